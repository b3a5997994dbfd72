package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/taskmanager/internal/services/taskmanager/user"
)

var (
	// ErrNotFound indicates a requested record is missing or not owned.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrFolderNotFound indicates a task referenced a folder the owner does not have.
	ErrFolderNotFound = errors.New("referenced folder not found")
)

// Folder groups tasks for one owner.
type Folder struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Task is one to-do item. Priority holds the canonical uppercase value and
// FolderID is empty when the task is not filed.
type Task struct {
	ID          string
	Title       string
	Description string
	Priority    string
	Tags        []string
	DueDate     *time.Time
	FolderID    string
	OwnerID     string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FolderDeletion reports what a cascading folder delete removed.
type FolderDeletion struct {
	FolderDeleted bool
	TasksDeleted  int64
}

// UserStore persists user accounts.
type UserStore interface {
	// PutUser inserts a user; ErrAlreadyExists when the email is taken.
	PutUser(ctx context.Context, u user.User) error
	GetUser(ctx context.Context, userID string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
}

// FolderStore persists owner-scoped folders.
type FolderStore interface {
	PutFolder(ctx context.Context, folder Folder) error
	GetFolder(ctx context.Context, ownerID, folderID string) (Folder, error)
	ListFolders(ctx context.Context, ownerID string) ([]Folder, error)
	RenameFolder(ctx context.Context, ownerID, folderID, name string, updatedAt time.Time) (Folder, error)
	// DeleteFolderCascade removes the owner's tasks filed in the folder and
	// then the folder itself as one atomic unit. A missing folder deletes
	// nothing and is not an error.
	DeleteFolderCascade(ctx context.Context, ownerID, folderID string) (FolderDeletion, error)
}

// TaskStore persists owner-scoped tasks. Writes that carry a FolderID fail
// with ErrFolderNotFound unless that folder belongs to the task owner at the
// time of the write.
type TaskStore interface {
	PutTask(ctx context.Context, task Task) error
	GetTask(ctx context.Context, ownerID, taskID string) (Task, error)
	ListTasks(ctx context.Context, ownerID string) ([]Task, error)
	// UpdateTask overwrites title, description, priority, tags, due date,
	// folder, and updated time. Completion and creation time are kept.
	UpdateTask(ctx context.Context, task Task) (Task, error)
	SetTaskCompleted(ctx context.Context, ownerID, taskID string, completed bool, updatedAt time.Time) (Task, error)
	DeleteTask(ctx context.Context, ownerID, taskID string) error
}

// Store is the full persistence surface used by the process wiring.
type Store interface {
	UserStore
	FolderStore
	TaskStore
	Close() error
}
