// Package taskmanager parses configuration for and runs the task organizer
// process.
package taskmanager

import (
	"context"
	"flag"
	"fmt"
	"net"
	"strconv"

	entrypoint "github.com/louisbranch/taskmanager/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/taskmanager/internal/platform/grpc"
	"github.com/louisbranch/taskmanager/internal/platform/logging"
	"github.com/louisbranch/taskmanager/internal/platform/timeouts"
	server "github.com/louisbranch/taskmanager/internal/services/taskmanager/app"
)

// Config holds command configuration.
type Config struct {
	server.Config

	// HealthCheck probes a running instance's gRPC health port and exits.
	HealthCheck bool
}

// ParseConfig loads environment defaults then applies flag overrides.
func ParseConfig(fs *flag.FlagSet, args []string, lookup entrypoint.EnvLookup) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg.Config, lookup); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The HTTP API listen address")
	fs.IntVar(&cfg.GRPCPort, "port", cfg.GRPCPort, "The gRPC health server port")
	fs.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "Storage driver: sqlite, postgres, or memory")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database file")
	fs.BoolVar(&cfg.HealthCheck, "healthcheck", false, "Probe the gRPC health port and exit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the server, or probes a running one when HealthCheck is set.
func Run(ctx context.Context, cfg Config) error {
	logger, err := logging.New(entrypoint.ServiceTaskManager, cfg.Logging, nil)
	if err != nil {
		return err
	}
	if cfg.HealthCheck {
		return probe(ctx, cfg)
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceTaskManager, entrypoint.RunOptions{
		ShutdownTimeout: timeouts.Shutdown,
		Logger:          logger,
	}, func(ctx context.Context) error {
		return server.Run(ctx, cfg.Config, logger)
	})
}

func probe(ctx context.Context, cfg Config) error {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.GRPCPort))
	if err := platformgrpc.Probe(ctx, addr, timeouts.StoreOpen, nil); err != nil {
		return fmt.Errorf("health check %s: %w", addr, err)
	}
	return nil
}
