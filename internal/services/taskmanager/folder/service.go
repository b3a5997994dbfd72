// Package folder owns folder validation, per-folder task counts, and the
// cascading folder delete.
package folder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/taskmanager/internal/platform/errors"
	"github.com/louisbranch/taskmanager/internal/platform/id"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/storage"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNotFound indicates the folder is missing or owned by someone else.
	ErrNotFound = apperrors.NotFound("folder not found")
	// ErrEmptyName indicates a blank folder name.
	ErrEmptyName = apperrors.Validation("name", "folder name is required")
	// ErrEmptyFolderID indicates a blank folder id.
	ErrEmptyFolderID = apperrors.Validation("id", "folder id is required")
	// ErrEmptyOwnerID indicates a call without an owner.
	ErrEmptyOwnerID = apperrors.New(apperrors.CodeUnauthenticated, "owner is required")
)

// Store is the persistence surface the folder service needs.
type Store interface {
	PutFolder(ctx context.Context, folder storage.Folder) error
	GetFolder(ctx context.Context, ownerID, folderID string) (storage.Folder, error)
	ListFolders(ctx context.Context, ownerID string) ([]storage.Folder, error)
	RenameFolder(ctx context.Context, ownerID, folderID, name string, updatedAt time.Time) (storage.Folder, error)
	DeleteFolderCascade(ctx context.Context, ownerID, folderID string) (storage.FolderDeletion, error)
	ListTasks(ctx context.Context, ownerID string) ([]storage.Task, error)
}

// Summary is a folder with the tasks filed in it, split by completion.
type Summary struct {
	storage.Folder
	TaskCount      int
	CompletedCount int
	ActiveCount    int
	CompletedTasks []storage.Task
	ActiveTasks    []storage.Task
}

// DeleteResult reports what Delete removed.
type DeleteResult struct {
	FolderDeleted bool
	DeletedTasks  int64
}

// Service implements owner-scoped folder operations.
type Service struct {
	store       Store
	clock       func() time.Time
	idGenerator func() (string, error)
}

// NewService builds a folder service over store.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("folder store is required")
	}
	return &Service{
		store:       store,
		clock:       time.Now,
		idGenerator: id.NewID,
	}, nil
}

func requireOwner(ownerID string) (string, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return "", ErrEmptyOwnerID
	}
	return ownerID, nil
}

func requireFolderID(folderID string) (string, error) {
	folderID = strings.TrimSpace(folderID)
	if folderID == "" {
		return "", ErrEmptyFolderID
	}
	return folderID, nil
}

// NormalizeName trims and NFC-normalizes a folder name.
func NormalizeName(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}

// List returns the owner's folders with their tasks and counts.
func (s *Service) List(ctx context.Context, ownerID string) ([]Summary, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return nil, err
	}
	folders, err := s.store.ListFolders(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	summaries := make([]Summary, 0, len(folders))
	if len(folders) == 0 {
		return summaries, nil
	}

	groups, err := s.groupTasks(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, folder := range folders {
		summaries = append(summaries, summarize(folder, groups[folder.ID]))
	}
	return summaries, nil
}

// Get returns one folder owned by ownerID with its tasks and counts.
func (s *Service) Get(ctx context.Context, ownerID, folderID string) (Summary, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return Summary{}, err
	}
	folderID, err = requireFolderID(folderID)
	if err != nil {
		return Summary{}, err
	}
	folder, err := s.store.GetFolder(ctx, ownerID, folderID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Summary{}, ErrNotFound
		}
		return Summary{}, fmt.Errorf("get folder: %w", err)
	}
	groups, err := s.groupTasks(ctx, ownerID)
	if err != nil {
		return Summary{}, err
	}
	return summarize(folder, groups[folder.ID]), nil
}

// Create stores a new folder for ownerID.
func (s *Service) Create(ctx context.Context, ownerID, name string) (storage.Folder, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return storage.Folder{}, err
	}
	name, err = NormalizeName(name)
	if err != nil {
		return storage.Folder{}, err
	}

	folderID, err := s.idGenerator()
	if err != nil {
		return storage.Folder{}, fmt.Errorf("generate folder id: %w", err)
	}
	now := s.clock().UTC()
	folder := storage.Folder{
		ID:        folderID,
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.PutFolder(ctx, folder); err != nil {
		return storage.Folder{}, fmt.Errorf("put folder: %w", err)
	}
	return folder, nil
}

// Update renames a folder owned by ownerID.
func (s *Service) Update(ctx context.Context, ownerID, folderID, name string) (storage.Folder, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return storage.Folder{}, err
	}
	folderID, err = requireFolderID(folderID)
	if err != nil {
		return storage.Folder{}, err
	}
	name, err = NormalizeName(name)
	if err != nil {
		return storage.Folder{}, err
	}

	folder, err := s.store.RenameFolder(ctx, ownerID, folderID, name, s.clock().UTC())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Folder{}, ErrNotFound
		}
		return storage.Folder{}, fmt.Errorf("rename folder: %w", err)
	}
	return folder, nil
}

// Delete removes the owner's tasks in the folder and then the folder, as one
// unit. A missing or foreign folder is not an error; the result then reports
// that nothing was deleted.
func (s *Service) Delete(ctx context.Context, ownerID, folderID string) (DeleteResult, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return DeleteResult{}, err
	}
	folderID, err = requireFolderID(folderID)
	if err != nil {
		return DeleteResult{}, err
	}
	deletion, err := s.store.DeleteFolderCascade(ctx, ownerID, folderID)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete folder: %w", err)
	}
	return DeleteResult{FolderDeleted: deletion.FolderDeleted, DeletedTasks: deletion.TasksDeleted}, nil
}

type folderTasks struct {
	completed []storage.Task
	active    []storage.Task
}

// groupTasks partitions the owner's filed tasks by folder and completion,
// keeping store order.
func (s *Service) groupTasks(ctx context.Context, ownerID string) (map[string]folderTasks, error) {
	tasks, err := s.store.ListTasks(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	groups := make(map[string]folderTasks)
	for _, task := range tasks {
		if task.FolderID == "" {
			continue
		}
		group := groups[task.FolderID]
		if task.Completed {
			group.completed = append(group.completed, task)
		} else {
			group.active = append(group.active, task)
		}
		groups[task.FolderID] = group
	}
	return groups, nil
}

func summarize(folder storage.Folder, group folderTasks) Summary {
	completed := group.completed
	if completed == nil {
		completed = []storage.Task{}
	}
	active := group.active
	if active == nil {
		active = []storage.Task{}
	}
	return Summary{
		Folder:         folder,
		TaskCount:      len(completed) + len(active),
		CompletedCount: len(completed),
		ActiveCount:    len(active),
		CompletedTasks: completed,
		ActiveTasks:    active,
	}
}
