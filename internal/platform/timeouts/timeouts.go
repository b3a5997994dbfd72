// Package timeouts defines shared timeout constants for the taskmanager
// process boundaries.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Idle bounds how long keep-alive connections stay open between requests.
const Idle = 60 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 10 * time.Second

// StoreOpen caps the initial database ping performed at startup.
const StoreOpen = 5 * time.Second

// HealthProbe caps a single gRPC health check round trip.
const HealthProbe = time.Second
