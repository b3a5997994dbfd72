// Package cmd holds the startup helpers shared by command entrypoints.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/taskmanager/internal/platform/config"
	"github.com/louisbranch/taskmanager/internal/platform/otel"
	"github.com/sirupsen/logrus"
)

const defaultOTelShutdownTimeout = 5 * time.Second

// ServiceTaskManager names the task organizer process in telemetry and logs.
const ServiceTaskManager = "taskmanager"

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

// RunOptions controls shared entrypoint behavior for service commands.
type RunOptions struct {
	// ShutdownTimeout sets the timeout used when stopping telemetry.
	ShutdownTimeout time.Duration
	// Logger receives telemetry shutdown failures.
	Logger logrus.FieldLogger
}

// ParseConfig loads environment defaults into cfg. A nil lookup reads the
// process environment.
func ParseConfig[T any](cfg *T, lookup EnvLookup) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	if lookup == nil {
		return config.ParseEnv(cfg)
	}
	return config.ParseEnvWithLookup(cfg, lookup)
}

// ParseArgs parses command-line flags.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// RunWithTelemetry configures observability and executes a service run loop.
func RunWithTelemetry(ctx context.Context, service string, options RunOptions, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return fmt.Errorf("service name is required")
	}
	if run == nil {
		return fmt.Errorf("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return err
	}
	defer func() {
		shutdownTimeout := options.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = defaultOTelShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil && options.Logger != nil {
			options.Logger.WithError(err).Warn("otel shutdown")
		}
	}()
	return run(ctx)
}
