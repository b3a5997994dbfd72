package httpapi

import (
	"net/http"

	"github.com/louisbranch/taskmanager/internal/platform/requestctx"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/identity"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/user"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	envelope
	User  userView `json:"user"`
	Token string   `json:"token"`
}

type userResponse struct {
	envelope
	User userView `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := s.credentials.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.startSession(w, r, http.StatusCreated, "User registered successfully", created)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	verified, err := s.credentials.Verify(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.startSession(w, r, http.StatusOK, "Login successful", verified)
}

// startSession issues a token, sets the cookie, and writes the session body.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, status int, message string, identityView user.Identity) {
	issued, err := s.tokens.Issue(identityView.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	identity.WriteTokenCookie(w, r, issued.Token, s.cookiePolicy)
	writeJSON(w, status, sessionResponse{
		envelope: ok(message),
		User:     newUserView(identityView),
		Token:    issued.Token,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	caller, found := requestctx.IdentityFromContext(r.Context())
	if !found {
		s.fail(w, r, identity.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		envelope: ok("User authenticated"),
		User:     userView{ID: caller.ID, Email: caller.Email, Name: caller.Name},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity.ClearTokenCookie(w, r, s.cookiePolicy)
	writeJSON(w, http.StatusOK, ok("Logged out successfully"))
}
