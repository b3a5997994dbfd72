package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/taskmanager/internal/platform/errors"
	"github.com/louisbranch/taskmanager/internal/platform/id"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/storage"
)

var (
	// ErrNotFound indicates the task is missing or owned by someone else.
	ErrNotFound = apperrors.NotFound("task not found")
	// ErrFolderNotFound indicates the referenced folder is not the caller's.
	ErrFolderNotFound = apperrors.Validation("folderId", "folder not found")
	// ErrEmptyTaskID indicates a blank task id.
	ErrEmptyTaskID = apperrors.Validation("id", "task id is required")
	// ErrEmptyOwnerID indicates a call without an owner.
	ErrEmptyOwnerID = apperrors.New(apperrors.CodeUnauthenticated, "owner is required")
)

// Store is the persistence surface the task service needs.
type Store interface {
	PutTask(ctx context.Context, task storage.Task) error
	GetTask(ctx context.Context, ownerID, taskID string) (storage.Task, error)
	ListTasks(ctx context.Context, ownerID string) ([]storage.Task, error)
	UpdateTask(ctx context.Context, task storage.Task) (storage.Task, error)
	SetTaskCompleted(ctx context.Context, ownerID, taskID string, completed bool, updatedAt time.Time) (storage.Task, error)
	DeleteTask(ctx context.Context, ownerID, taskID string) error
}

// Service implements owner-scoped task operations.
type Service struct {
	store       Store
	clock       func() time.Time
	idGenerator func() (string, error)
}

// NewService builds a task service over store.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("task store is required")
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

func requireTaskID(taskID string) (string, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return "", ErrEmptyTaskID
	}
	return taskID, nil
}

// mapStoreError translates storage sentinels into coded errors.
func mapStoreError(action string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrFolderNotFound):
		return ErrFolderNotFound
	default:
		return fmt.Errorf("%s: %w", action, err)
	}
}

// List returns every task owned by ownerID.
func (s *Service) List(ctx context.Context, ownerID string) ([]storage.Task, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, ownerID)
	if err != nil {
		return nil, mapStoreError("list tasks", err)
	}
	if tasks == nil {
		tasks = []storage.Task{}
	}
	return tasks, nil
}

// Get returns one task owned by ownerID.
func (s *Service) Get(ctx context.Context, ownerID, taskID string) (storage.Task, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return storage.Task{}, err
	}
	taskID, err = requireTaskID(taskID)
	if err != nil {
		return storage.Task{}, err
	}
	record, err := s.store.GetTask(ctx, ownerID, taskID)
	if err != nil {
		return storage.Task{}, mapStoreError("get task", err)
	}
	return record, nil
}

// Create validates input and stores a new, not yet completed task.
func (s *Service) Create(ctx context.Context, ownerID string, input Input) (storage.Task, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return storage.Task{}, err
	}
	fields, err := normalizeInput(input)
	if err != nil {
		return storage.Task{}, err
	}

	taskID, err := s.idGenerator()
	if err != nil {
		return storage.Task{}, fmt.Errorf("generate task id: %w", err)
	}
	now := s.clock().UTC()
	dueDate := fields.DueDate
	record := storage.Task{
		ID:          taskID,
		Title:       fields.Title,
		Description: fields.Description,
		Priority:    fields.Priority.String(),
		Tags:        fields.Tags,
		DueDate:     &dueDate,
		FolderID:    fields.FolderID,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.PutTask(ctx, record); err != nil {
		return storage.Task{}, mapStoreError("put task", err)
	}
	return record, nil
}

// Update overwrites the mutable fields of a task owned by ownerID. Completion
// state and creation time are kept.
func (s *Service) Update(ctx context.Context, ownerID, taskID string, input Input) (storage.Task, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return storage.Task{}, err
	}
	taskID, err = requireTaskID(taskID)
	if err != nil {
		return storage.Task{}, err
	}
	fields, err := normalizeInput(input)
	if err != nil {
		return storage.Task{}, err
	}

	dueDate := fields.DueDate
	updated, err := s.store.UpdateTask(ctx, storage.Task{
		ID:          taskID,
		Title:       fields.Title,
		Description: fields.Description,
		Priority:    fields.Priority.String(),
		Tags:        fields.Tags,
		DueDate:     &dueDate,
		FolderID:    fields.FolderID,
		OwnerID:     ownerID,
		UpdatedAt:   s.clock().UTC(),
	})
	if err != nil {
		return storage.Task{}, mapStoreError("update task", err)
	}
	return updated, nil
}

// SetCompleted changes only the completion flag.
func (s *Service) SetCompleted(ctx context.Context, ownerID, taskID string, completed bool) (storage.Task, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return storage.Task{}, err
	}
	taskID, err = requireTaskID(taskID)
	if err != nil {
		return storage.Task{}, err
	}
	updated, err := s.store.SetTaskCompleted(ctx, ownerID, taskID, completed, s.clock().UTC())
	if err != nil {
		return storage.Task{}, mapStoreError("set task completed", err)
	}
	return updated, nil
}

// Delete removes a task owned by ownerID.
func (s *Service) Delete(ctx context.Context, ownerID, taskID string) error {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return err
	}
	taskID, err = requireTaskID(taskID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, ownerID, taskID); err != nil {
		return mapStoreError("delete task", err)
	}
	return nil
}
