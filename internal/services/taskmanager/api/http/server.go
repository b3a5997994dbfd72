package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	apperrors "github.com/louisbranch/taskmanager/internal/platform/errors"
	"github.com/louisbranch/taskmanager/internal/platform/requestctx"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/folder"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/identity"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/storage"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/task"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/token"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/user"
)

// Credentials registers and verifies accounts.
type Credentials interface {
	Register(ctx context.Context, email, password, name string) (user.Identity, error)
	Verify(ctx context.Context, email, password string) (user.Identity, error)
}

// Tokens issues bearer tokens.
type Tokens interface {
	Issue(userID string) (token.Issued, error)
}

// Folders is the folder service surface.
type Folders interface {
	List(ctx context.Context, ownerID string) ([]folder.Summary, error)
	Get(ctx context.Context, ownerID, folderID string) (folder.Summary, error)
	Create(ctx context.Context, ownerID, name string) (storage.Folder, error)
	Update(ctx context.Context, ownerID, folderID, name string) (storage.Folder, error)
	Delete(ctx context.Context, ownerID, folderID string) (folder.DeleteResult, error)
}

// Tasks is the task service surface.
type Tasks interface {
	List(ctx context.Context, ownerID string) ([]storage.Task, error)
	Get(ctx context.Context, ownerID, taskID string) (storage.Task, error)
	Create(ctx context.Context, ownerID string, input task.Input) (storage.Task, error)
	Update(ctx context.Context, ownerID, taskID string, input task.Input) (storage.Task, error)
	SetCompleted(ctx context.Context, ownerID, taskID string, completed bool) (storage.Task, error)
	Delete(ctx context.Context, ownerID, taskID string) error
}

// Dependencies wires the handler to the services.
type Dependencies struct {
	Credentials  Credentials
	Tokens       Tokens
	Identity     *identity.Resolver
	Folders      Folders
	Tasks        Tasks
	CookiePolicy identity.CookiePolicy
	Logger       logrus.FieldLogger
	Metrics      *Metrics
	// Gatherer serves /metrics; nil disables the route.
	Gatherer prometheus.Gatherer
}

// Server hosts the HTTP routes.
type Server struct {
	credentials  Credentials
	tokens       Tokens
	identity     *identity.Resolver
	folders      Folders
	tasks        Tasks
	cookiePolicy identity.CookiePolicy
	logger       logrus.FieldLogger
	metrics      *Metrics
	gatherer     prometheus.Gatherer
}

// NewServer validates deps and builds a server.
func NewServer(deps Dependencies) (*Server, error) {
	switch {
	case deps.Credentials == nil:
		return nil, errors.New("credentials service is required")
	case deps.Tokens == nil:
		return nil, errors.New("token service is required")
	case deps.Identity == nil:
		return nil, errors.New("identity resolver is required")
	case deps.Folders == nil:
		return nil, errors.New("folder service is required")
	case deps.Tasks == nil:
		return nil, errors.New("task service is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		credentials:  deps.Credentials,
		tokens:       deps.Tokens,
		identity:     deps.Identity,
		folders:      deps.Folders,
		tasks:        deps.Tasks,
		cookiePolicy: deps.CookiePolicy,
		logger:       logger,
		metrics:      deps.Metrics,
		gatherer:     deps.Gatherer,
	}, nil
}

// RegisterRoutes registers every API route on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	protect := s.identity.Middleware

	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.Handle("GET /me", protect(http.HandlerFunc(s.handleMe)))

	mux.Handle("GET /folders", protect(http.HandlerFunc(s.handleListFolders)))
	mux.Handle("POST /folders", protect(http.HandlerFunc(s.handleCreateFolder)))
	mux.Handle("GET /folders/{id}", protect(http.HandlerFunc(s.handleGetFolder)))
	mux.Handle("PUT /folders/{id}", protect(http.HandlerFunc(s.handleUpdateFolder)))
	mux.Handle("DELETE /folders/{id}", protect(http.HandlerFunc(s.handleDeleteFolder)))
	mux.Handle("DELETE /folders/{$}", protect(http.HandlerFunc(s.handleDeleteFolder)))

	mux.Handle("GET /tasks", protect(http.HandlerFunc(s.handleListTasks)))
	mux.Handle("POST /tasks", protect(http.HandlerFunc(s.handleCreateTask)))
	mux.Handle("GET /tasks/{id}", protect(http.HandlerFunc(s.handleGetTask)))
	mux.Handle("PUT /tasks/{id}", protect(http.HandlerFunc(s.handleUpdateTask)))
	mux.Handle("PATCH /tasks/{id}/complete", protect(http.HandlerFunc(s.handleCompleteTask)))
	mux.Handle("DELETE /tasks/{id}", protect(http.HandlerFunc(s.handleDeleteTask)))

	mux.HandleFunc("GET /up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc(catchAllPattern, func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, errRouteNotFound)
	})
}

// Handler returns the routed API wrapped in the observability middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	var handler http.Handler = mux
	handler = recoverPanics(s.logger)(handler)
	if s.metrics != nil {
		handler = s.metrics.Middleware(handler)
	}
	handler = logRequests(s.logger)(handler)
	handler = traceRequests(handler)
	return handler
}

// NewHandler is shorthand for NewServer followed by Handler.
func NewHandler(deps Dependencies) (http.Handler, error) {
	server, err := NewServer(deps)
	if err != nil {
		return nil, err
	}
	return server.Handler(), nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, s.logger, r, err)
}

// ownerID returns the resolved caller id. Protected routes always have one;
// a missing id means the route was registered without the resolver.
func (s *Server) ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID := requestctx.UserIDFromContext(r.Context())
	if ownerID == "" {
		s.fail(w, r, apperrors.New(apperrors.CodeUnauthenticated, identity.ErrUnauthenticated.Message))
		return "", false
	}
	return ownerID, true
}
