// Package memory provides an in-process store for tests and throwaway
// development servers. A single mutex serializes every operation, which gives
// the same atomicity the SQL stores get from transactions.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/taskmanager/internal/services/taskmanager/storage"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/user"
)

// Store implements storage.Store in memory.
type Store struct {
	mu sync.Mutex

	users       map[string]user.User
	userByEmail map[string]string
	folders     map[string]storage.Folder
	tasks       map[string]storage.Task
	folderOrder []string
	taskOrder   []string
	closed      bool
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:       make(map[string]user.User),
		userByEmail: make(map[string]string),
		folders:     make(map[string]storage.Folder),
		tasks:       make(map[string]storage.Task),
	}
}

// Close marks the store closed; later calls fail.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("storage is not configured")
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("storage is closed")
	}
	return nil
}

func cloneTask(t storage.Task) storage.Task {
	out := t
	out.Tags = append([]string(nil), t.Tags...)
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if t.DueDate != nil {
		due := t.DueDate.UTC()
		out.DueDate = &due
	}
	return out
}

// PutUser inserts a user keyed by id and unique email.
func (s *Store) PutUser(ctx context.Context, u user.User) error {
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if _, ok := s.userByEmail[u.Email]; ok {
		return storage.ErrAlreadyExists
	}
	if _, ok := s.users[u.ID]; ok {
		return storage.ErrAlreadyExists
	}
	s.users[u.ID] = u
	s.userByEmail[u.Email] = u.ID
	return nil
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, userID string) (user.User, error) {
	if err := s.lock(ctx); err != nil {
		return user.User{}, err
	}
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

// GetUserByEmail fetches a user by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	if err := s.lock(ctx); err != nil {
		return user.User{}, err
	}
	defer s.mu.Unlock()

	userID, ok := s.userByEmail[email]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return s.users[userID], nil
}

// PutFolder inserts a folder.
func (s *Store) PutFolder(ctx context.Context, folder storage.Folder) error {
	if strings.TrimSpace(folder.ID) == "" {
		return fmt.Errorf("folder id is required")
	}
	if strings.TrimSpace(folder.OwnerID) == "" {
		return fmt.Errorf("owner id is required")
	}
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if _, ok := s.folders[folder.ID]; ok {
		return storage.ErrAlreadyExists
	}
	s.folders[folder.ID] = folder
	s.folderOrder = append(s.folderOrder, folder.ID)
	return nil
}

// GetFolder fetches a folder owned by ownerID.
func (s *Store) GetFolder(ctx context.Context, ownerID, folderID string) (storage.Folder, error) {
	if err := s.lock(ctx); err != nil {
		return storage.Folder{}, err
	}
	defer s.mu.Unlock()

	folder, ok := s.ownedFolder(ownerID, folderID)
	if !ok {
		return storage.Folder{}, storage.ErrNotFound
	}
	return folder, nil
}

func (s *Store) ownedFolder(ownerID, folderID string) (storage.Folder, bool) {
	folder, ok := s.folders[folderID]
	if !ok || folder.OwnerID != ownerID {
		return storage.Folder{}, false
	}
	return folder, true
}

// ListFolders returns the owner's folders in creation order.
func (s *Store) ListFolders(ctx context.Context, ownerID string) ([]storage.Folder, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	folders := make([]storage.Folder, 0)
	for _, folderID := range s.folderOrder {
		if folder, ok := s.ownedFolder(ownerID, folderID); ok {
			folders = append(folders, folder)
		}
	}
	return folders, nil
}

// RenameFolder renames a folder owned by ownerID.
func (s *Store) RenameFolder(ctx context.Context, ownerID, folderID, name string, updatedAt time.Time) (storage.Folder, error) {
	if err := s.lock(ctx); err != nil {
		return storage.Folder{}, err
	}
	defer s.mu.Unlock()

	folder, ok := s.ownedFolder(ownerID, folderID)
	if !ok {
		return storage.Folder{}, storage.ErrNotFound
	}
	folder.Name = name
	folder.UpdatedAt = updatedAt.UTC()
	s.folders[folderID] = folder
	return folder, nil
}

// DeleteFolderCascade removes the owner's tasks in the folder, then the folder.
func (s *Store) DeleteFolderCascade(ctx context.Context, ownerID, folderID string) (storage.FolderDeletion, error) {
	if err := s.lock(ctx); err != nil {
		return storage.FolderDeletion{}, err
	}
	defer s.mu.Unlock()

	var result storage.FolderDeletion
	kept := s.taskOrder[:0]
	for _, taskID := range s.taskOrder {
		task := s.tasks[taskID]
		if task.OwnerID == ownerID && task.FolderID == folderID {
			delete(s.tasks, taskID)
			result.TasksDeleted++
			continue
		}
		kept = append(kept, taskID)
	}
	s.taskOrder = kept

	if _, ok := s.ownedFolder(ownerID, folderID); ok {
		delete(s.folders, folderID)
		s.folderOrder = removeID(s.folderOrder, folderID)
		result.FolderDeleted = true
	}
	return result, nil
}

// PutTask inserts a task.
func (s *Store) PutTask(ctx context.Context, task storage.Task) error {
	if strings.TrimSpace(task.ID) == "" {
		return fmt.Errorf("task id is required")
	}
	if strings.TrimSpace(task.OwnerID) == "" {
		return fmt.Errorf("owner id is required")
	}
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; ok {
		return storage.ErrAlreadyExists
	}
	if task.FolderID != "" {
		if _, ok := s.ownedFolder(task.OwnerID, task.FolderID); !ok {
			return storage.ErrFolderNotFound
		}
	}
	s.tasks[task.ID] = cloneTask(task)
	s.taskOrder = append(s.taskOrder, task.ID)
	return nil
}

// GetTask fetches a task owned by ownerID.
func (s *Store) GetTask(ctx context.Context, ownerID, taskID string) (storage.Task, error) {
	if err := s.lock(ctx); err != nil {
		return storage.Task{}, err
	}
	defer s.mu.Unlock()

	task, ok := s.ownedTask(ownerID, taskID)
	if !ok {
		return storage.Task{}, storage.ErrNotFound
	}
	return cloneTask(task), nil
}

func (s *Store) ownedTask(ownerID, taskID string) (storage.Task, bool) {
	task, ok := s.tasks[taskID]
	if !ok || task.OwnerID != ownerID {
		return storage.Task{}, false
	}
	return task, true
}

// ListTasks returns the owner's tasks in creation order.
func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]storage.Task, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	tasks := make([]storage.Task, 0)
	for _, taskID := range s.taskOrder {
		if task, ok := s.ownedTask(ownerID, taskID); ok {
			tasks = append(tasks, cloneTask(task))
		}
	}
	return tasks, nil
}

// UpdateTask overwrites the mutable fields of a task owned by task.OwnerID.
func (s *Store) UpdateTask(ctx context.Context, task storage.Task) (storage.Task, error) {
	if err := s.lock(ctx); err != nil {
		return storage.Task{}, err
	}
	defer s.mu.Unlock()

	current, ok := s.ownedTask(task.OwnerID, task.ID)
	if !ok {
		return storage.Task{}, storage.ErrNotFound
	}
	if task.FolderID != "" {
		if _, ok := s.ownedFolder(task.OwnerID, task.FolderID); !ok {
			return storage.Task{}, storage.ErrFolderNotFound
		}
	}
	current.Title = task.Title
	current.Description = task.Description
	current.Priority = task.Priority
	current.Tags = task.Tags
	current.DueDate = task.DueDate
	current.FolderID = task.FolderID
	current.UpdatedAt = task.UpdatedAt.UTC()
	current = cloneTask(current)
	s.tasks[task.ID] = current
	return cloneTask(current), nil
}

// SetTaskCompleted sets the completion flag of a task owned by ownerID.
func (s *Store) SetTaskCompleted(ctx context.Context, ownerID, taskID string, completed bool, updatedAt time.Time) (storage.Task, error) {
	if err := s.lock(ctx); err != nil {
		return storage.Task{}, err
	}
	defer s.mu.Unlock()

	task, ok := s.ownedTask(ownerID, taskID)
	if !ok {
		return storage.Task{}, storage.ErrNotFound
	}
	task.Completed = completed
	task.UpdatedAt = updatedAt.UTC()
	s.tasks[taskID] = task
	return cloneTask(task), nil
}

// DeleteTask removes a task owned by ownerID.
func (s *Store) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if _, ok := s.ownedTask(ownerID, taskID); !ok {
		return storage.ErrNotFound
	}
	delete(s.tasks, taskID)
	s.taskOrder = removeID(s.taskOrder, taskID)
	return nil
}

func removeID(ids []string, target string) []string {
	out := ids[:0]
	for _, value := range ids {
		if value != target {
			out = append(out, value)
		}
	}
	return out
}

// Users returns a snapshot of stored users sorted by email. Tests use it to
// assert on registration side effects.
func (s *Store) Users() []user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users
}

var _ storage.Store = (*Store)(nil)
