// Package sqlite provides the SQLite-backed taskmanager store.
//
// It is the default on-disk store. Timestamps are stored as Unix
// milliseconds and task tags as a JSON array.
package sqlite
