package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"

	platformgrpc "github.com/louisbranch/taskmanager/internal/platform/grpc"
	"github.com/louisbranch/taskmanager/internal/platform/logging"
	"github.com/louisbranch/taskmanager/internal/platform/timeouts"
	httpapi "github.com/louisbranch/taskmanager/internal/services/taskmanager/api/http"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/credential"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/folder"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/identity"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/storage"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/storage/memory"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/storage/postgres"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/storage/sqlite"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/task"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/token"
)

// Storage drivers accepted by Config.DBDriver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the process configuration.
type Config struct {
	HTTPAddr            string `env:"TASKMANAGER_HTTP_ADDR" envDefault:"localhost:8080"`
	GRPCPort            int    `env:"TASKMANAGER_GRPC_PORT" envDefault:"8081"`
	DBDriver            string `env:"TASKMANAGER_DB_DRIVER" envDefault:"sqlite"`
	DBPath              string `env:"TASKMANAGER_DB_PATH" envDefault:"data/taskmanager.db"`
	DatabaseURL         string `env:"TASKMANAGER_DATABASE_URL"`
	JWTSecret           string `env:"TASKMANAGER_JWT_SECRET"`
	BcryptCost          int    `env:"TASKMANAGER_BCRYPT_COST" envDefault:"10"`
	UniformLoginErrors  bool   `env:"TASKMANAGER_UNIFORM_LOGIN_ERRORS" envDefault:"false"`
	TrustForwardedProto bool   `env:"TASKMANAGER_TRUST_FORWARDED_PROTO" envDefault:"false"`
	Logging             logging.Config
}

type closableStore interface {
	storage.Store
	Close() error
}

// Server hosts the task organizer.
type Server struct {
	logger       logrus.FieldLogger
	store        closableStore
	httpListener net.Listener
	httpServer   *http.Server
	grpcListener net.Listener
	grpcServer   *gogrpc.Server
	health       *health.Server
}

// New opens storage, builds the services, and binds both listeners.
func New(ctx context.Context, cfg Config, logger logrus.FieldLogger) (*Server, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	handler, err := newHandler(cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on http addr %s: %w", cfg.HTTPAddr, err)
	}
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = httpListener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("listen on port %d: %w", cfg.GRPCPort, err)
	}

	grpcServer := gogrpc.NewServer(gogrpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := platformgrpc.RegisterHealth(grpcServer)

	return &Server{
		logger:       logger,
		store:        store,
		httpListener: httpListener,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
			IdleTimeout:       timeouts.Idle,
		},
		grpcListener: grpcListener,
		grpcServer:   grpcServer,
		health:       healthServer,
	}, nil
}

func newHandler(cfg Config, store storage.Store, logger logrus.FieldLogger) (http.Handler, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		logger.Warn("TASKMANAGER_JWT_SECRET is empty; token issuance and verification will fail")
	}

	credentials, err := credential.NewService(store, credential.Options{
		Cost:               cfg.BcryptCost,
		UniformLoginErrors: cfg.UniformLoginErrors,
	})
	if err != nil {
		return nil, fmt.Errorf("credential service: %w", err)
	}
	tokens := token.NewService([]byte(cfg.JWTSecret), nil)
	folders, err := folder.NewService(store)
	if err != nil {
		return nil, fmt.Errorf("folder service: %w", err)
	}
	tasks, err := task.NewService(store)
	if err != nil {
		return nil, fmt.Errorf("task service: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rejections, err := identity.NewRejectionCounter(registry)
	if err != nil {
		return nil, fmt.Errorf("identity metrics: %w", err)
	}
	metrics, err := httpapi.NewMetrics(registry)
	if err != nil {
		return nil, err
	}

	resolver, err := identity.NewResolver(tokens, credentials,
		identity.WithErrorWriter(httpapi.ErrorWriter(logger)),
		identity.WithLogger(logger),
		identity.WithRejectionCounter(rejections),
	)
	if err != nil {
		return nil, fmt.Errorf("identity resolver: %w", err)
	}

	return httpapi.NewHandler(httpapi.Dependencies{
		Credentials:  credentials,
		Tokens:       tokens,
		Identity:     resolver,
		Folders:      folders,
		Tasks:        tasks,
		CookiePolicy: identity.CookiePolicy{TrustForwardedProto: cfg.TrustForwardedProto},
		Logger:       logger,
		Metrics:      metrics,
		Gatherer:     registry,
	})
}

// HTTPAddr returns the bound HTTP listener address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the bound gRPC listener address.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// Run creates and serves a server until the context ends.
func Run(ctx context.Context, cfg Config, logger logrus.FieldLogger) error {
	server, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve runs both listeners and blocks until one fails or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeStore()

	s.logger.WithField("addr", s.GRPCAddr()).Info("gRPC health server listening")
	grpcErr := make(chan error, 1)
	go func() {
		grpcErr <- s.grpcServer.Serve(s.grpcListener)
	}()

	s.logger.WithField("addr", s.HTTPAddr()).Info("HTTP server listening")
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- s.httpServer.Serve(s.httpListener)
	}()

	handleGRPC := func(err error) error {
		if err == nil || errors.Is(err, gogrpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
	shutdownGRPC := func() {
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
	}
	shutdownHTTP := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.WithError(err).Warn("http shutdown")
		}
	}

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownHTTP()
		shutdownGRPC()
		return handleGRPC(<-grpcErr)
	case err := <-grpcErr:
		shutdownHTTP()
		return handleGRPC(err)
	case err := <-httpErr:
		shutdownGRPC()
		if handled := handleGRPC(<-grpcErr); handled != nil {
			return handled
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}
}

func (s *Server) closeStore() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.WithError(err).Warn("close store")
	}
}

func openStore(ctx context.Context, cfg Config) (closableStore, error) {
	switch driver := strings.ToLower(strings.TrimSpace(cfg.DBDriver)); driver {
	case "", DriverSQLite:
		path := strings.TrimSpace(cfg.DBPath)
		if path == "" {
			path = filepath.Join("data", "taskmanager.db")
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case DriverPostgres:
		dsn := strings.TrimSpace(cfg.DatabaseURL)
		if dsn == "" {
			return nil, errors.New("TASKMANAGER_DATABASE_URL is required for the postgres driver")
		}
		openCtx, cancel := context.WithTimeout(ctx, timeouts.StoreOpen)
		defer cancel()
		store, err := postgres.Open(openCtx, dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.DBDriver)
	}
}
