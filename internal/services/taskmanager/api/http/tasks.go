package httpapi

import (
	"net/http"

	apperrors "github.com/louisbranch/taskmanager/internal/platform/errors"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/task"
)

type taskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	DueDate     string   `json:"dueDate"`
	Tags        []string `json:"tags"`
	FolderID    *string  `json:"folderId"`
}

func (req taskRequest) input() task.Input {
	input := task.Input{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		Tags:        req.Tags,
	}
	if req.FolderID != nil {
		input.FolderID = *req.FolderID
	}
	return input
}

type completeRequest struct {
	Completed *bool `json:"completed"`
}

var errCompletedRequired = apperrors.Validation("completed", "completed is required")

type taskListResponse struct {
	envelope
	Tasks []taskView `json:"tasks"`
}

type taskResponse struct {
	envelope
	Task taskView `json:"task"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	ownerID, found := s.ownerID(w, r)
	if !found {
		return
	}
	records, err := s.tasks.List(r.Context(), ownerID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskListResponse{envelope: ok("All tasks fetched successfully"), Tasks: newTaskViews(records)})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	ownerID, found := s.ownerID(w, r)
	if !found {
		return
	}
	record, err := s.tasks.Get(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{envelope: ok("Task fetched successfully"), Task: newTaskView(record)})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	ownerID, found := s.ownerID(w, r)
	if !found {
		return
	}
	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := s.tasks.Create(r.Context(), ownerID, req.input())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, taskResponse{envelope: ok("Task created successfully"), Task: newTaskView(created)})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	ownerID, found := s.ownerID(w, r)
	if !found {
		return
	}
	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	updated, err := s.tasks.Update(r.Context(), ownerID, r.PathValue("id"), req.input())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{envelope: ok("Task updated successfully"), Task: newTaskView(updated)})
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	ownerID, found := s.ownerID(w, r)
	if !found {
		return
	}
	var req completeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Completed == nil {
		s.fail(w, r, errCompletedRequired)
		return
	}
	updated, err := s.tasks.SetCompleted(r.Context(), ownerID, r.PathValue("id"), *req.Completed)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{envelope: ok("Task updated successfully"), Task: newTaskView(updated)})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	ownerID, found := s.ownerID(w, r)
	if !found {
		return
	}
	if err := s.tasks.Delete(r.Context(), ownerID, r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("Task deleted successfully"))
}
