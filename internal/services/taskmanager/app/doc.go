// Package server wires the task organizer process: storage, services, the
// JSON HTTP API, and the gRPC health listener.
package server
