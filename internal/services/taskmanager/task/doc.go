// Package task owns task validation and the owner-scoped task operations.
//
// Every operation takes the caller's user id explicitly. A task that exists
// but belongs to someone else is reported exactly like a missing one.
package task
