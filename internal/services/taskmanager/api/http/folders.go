package httpapi

import (
	"net/http"
)

type folderRequest struct {
	Name string `json:"name"`
}

type folderListResponse struct {
	envelope
	Folders []folderSummaryView `json:"folders"`
}

type folderResponse struct {
	envelope
	Folder folderView `json:"folder"`
}

type folderSummaryResponse struct {
	envelope
	Folder folderSummaryView `json:"folder"`
}

type folderDeleteResponse struct {
	envelope
	DeletedTasks int64 `json:"deletedTasks"`
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	ownerID, found := s.ownerID(w, r)
	if !found {
		return
	}
	summaries, err := s.folders.List(r.Context(), ownerID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	message := "Folders fetched successfully"
	if len(summaries) == 0 {
		message = "No folders found"
	}
	views := make([]folderSummaryView, 0, len(summaries))
	for _, summary := range summaries {
		views = append(views, newFolderSummaryView(summary))
	}
	writeJSON(w, http.StatusOK, folderListResponse{envelope: ok(message), Folders: views})
}

func (s *Server) handleGetFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, found := s.ownerID(w, r)
	if !found {
		return
	}
	summary, err := s.folders.Get(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folderSummaryResponse{
		envelope: ok("Folder fetched successfully"),
		Folder:   newFolderSummaryView(summary),
	})
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, found := s.ownerID(w, r)
	if !found {
		return
	}
	var req folderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := s.folders.Create(r.Context(), ownerID, req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, folderResponse{
		envelope: ok("Folder created successfully"),
		Folder:   newFolderView(created),
	})
}

func (s *Server) handleUpdateFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, found := s.ownerID(w, r)
	if !found {
		return
	}
	var req folderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	updated, err := s.folders.Update(r.Context(), ownerID, r.PathValue("id"), req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folderResponse{
		envelope: ok("Folder updated successfully"),
		Folder:   newFolderView(updated),
	})
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, found := s.ownerID(w, r)
	if !found {
		return
	}
	result, err := s.folders.Delete(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folderDeleteResponse{
		envelope:     ok("Folder deleted successfully"),
		DeletedTasks: result.DeletedTasks,
	})
}
