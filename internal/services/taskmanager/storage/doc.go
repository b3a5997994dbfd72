// Package storage defines the persistence contracts for users, folders, and
// tasks. Every folder and task method is owner-scoped: records belonging to
// another owner are reported as ErrNotFound.
package storage
