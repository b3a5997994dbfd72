package grpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func TestProbeServing(t *testing.T) {
	addr, _, stop := startHealthServer(t, grpc_health_v1.HealthCheckResponse_SERVING)
	defer stop()

	if err := Probe(context.Background(), addr, 2*time.Second, nil); err != nil {
		t.Fatalf("probe: %v", err)
	}
}

func TestProbeNotServing(t *testing.T) {
	addr, _, stop := startHealthServer(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	defer stop()

	start := time.Now()
	err := Probe(context.Background(), addr, 300*time.Millisecond, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var probeErr *ProbeError
	if !errors.As(err, &probeErr) {
		t.Fatalf("expected ProbeError, got %T", err)
	}
	if probeErr.Stage != ProbeStageHealth {
		t.Fatalf("expected stage %q, got %q", ProbeStageHealth, probeErr.Stage)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("expected timeout to bound the probe, took %v", elapsed)
	}
}

func TestProbeRejectsBadTarget(t *testing.T) {
	err := Probe(context.Background(), "bad\x00target", time.Second, nil)
	var probeErr *ProbeError
	if !errors.As(err, &probeErr) {
		t.Fatalf("expected ProbeError, got %v", err)
	}
	if probeErr.Stage != ProbeStageConnect {
		t.Fatalf("expected stage %q, got %q", ProbeStageConnect, probeErr.Stage)
	}
}

func TestProbeErrorFormatting(t *testing.T) {
	wrapped := &ProbeError{Stage: ProbeStageConnect, Err: fmt.Errorf("boom")}
	if !strings.Contains(wrapped.Error(), "gRPC connect") {
		t.Fatalf("unexpected error: %s", wrapped.Error())
	}
	if wrapped.Unwrap() == nil {
		t.Fatal("expected wrapped error")
	}

	var nilErr *ProbeError
	if nilErr.Error() == "" {
		t.Fatal("expected fallback error message")
	}
	if nilErr.Unwrap() != nil {
		t.Fatal("expected nil unwrap for nil error")
	}
}
