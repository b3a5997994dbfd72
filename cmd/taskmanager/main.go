package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	taskmanagercmd "github.com/louisbranch/taskmanager/internal/cmd/taskmanager"
	"github.com/louisbranch/taskmanager/internal/platform/config"
)

func main() {
	cfg, err := taskmanagercmd.ParseConfig(flag.CommandLine, os.Args[1:], func(key string) (string, bool) {
		value, ok := os.LookupEnv(key)
		return value, ok
	})
	if err != nil {
		config.Exitf("parse config: %v", err)
	}
	log.SetPrefix("[TASKMANAGER] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := taskmanagercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
