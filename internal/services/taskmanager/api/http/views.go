package httpapi

import (
	"time"

	"github.com/louisbranch/taskmanager/internal/services/taskmanager/folder"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/storage"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/user"
)

type userView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func newUserView(identity user.Identity) userView {
	return userView{ID: identity.ID, Email: identity.Email, Name: identity.Name}
}

type folderView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newFolderView(f storage.Folder) folderView {
	return folderView{
		ID:        f.ID,
		Name:      f.Name,
		UserID:    f.OwnerID,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

type folderSummaryView struct {
	folderView
	TaskCount      int        `json:"taskCount"`
	CompletedCount int        `json:"completedCount"`
	ActiveCount    int        `json:"activeCount"`
	CompletedTasks []taskView `json:"completedTasks"`
	ActiveTasks    []taskView `json:"activeTasks"`
}

func newFolderSummaryView(summary folder.Summary) folderSummaryView {
	return folderSummaryView{
		folderView:     newFolderView(summary.Folder),
		TaskCount:      summary.TaskCount,
		CompletedCount: summary.CompletedCount,
		ActiveCount:    summary.ActiveCount,
		CompletedTasks: newTaskViews(summary.CompletedTasks),
		ActiveTasks:    newTaskViews(summary.ActiveTasks),
	}
}

type taskView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Tags        []string   `json:"tags"`
	DueDate     *time.Time `json:"dueDate"`
	FolderID    *string    `json:"folderId"`
	UserID      string     `json:"userId"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func newTaskView(t storage.Task) taskView {
	view := taskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Tags:        t.Tags,
		DueDate:     t.DueDate,
		UserID:      t.OwnerID,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if view.Tags == nil {
		view.Tags = []string{}
	}
	if t.FolderID != "" {
		folderID := t.FolderID
		view.FolderID = &folderID
	}
	return view
}

func newTaskViews(records []storage.Task) []taskView {
	views := make([]taskView, 0, len(records))
	for _, record := range records {
		views = append(views, newTaskView(record))
	}
	return views
}
