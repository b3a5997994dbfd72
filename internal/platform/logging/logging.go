// Package logging configures the structured process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config selects level and output format.
type Config struct {
	Level  string `env:"TASKMANAGER_LOG_LEVEL" envDefault:"info"`
	Format string `env:"TASKMANAGER_LOG_FORMAT" envDefault:"json"`
}

// New builds a logger for service writing to out (stdout when nil). Every
// entry carries a service field.
func New(service string, cfg Config, out io.Writer) (*logrus.Entry, error) {
	if out == nil {
		out = os.Stdout
	}
	logger := logrus.New()
	logger.SetOutput(out)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "ts",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}

	level := logrus.InfoLevel
	if raw := strings.TrimSpace(cfg.Level); raw != "" {
		parsed, err := logrus.ParseLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}
	logger.SetLevel(level)

	return logger.WithField("service", service), nil
}

// Discard returns an entry that drops everything; tests and optional
// collaborators use it in place of a nil logger.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}
