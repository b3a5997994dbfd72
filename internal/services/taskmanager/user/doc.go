// Package user provides the taskmanager user domain model.
package user
