// Package taskmanager is the personal task and folder organizer.
//
// Users register with an email and password, then manage folders and tasks
// that are visible only to themselves. Ownership is enforced in every store
// query so another user's records always look absent.
//
// Subpackages:
//   - user: user domain model and email normalization
//   - credential: password registration and verification
//   - token: signed bearer token issuance and verification
//   - identity: HTTP middleware resolving the caller identity
//   - folder: owner-scoped folder operations with cascading delete
//   - task: owner-scoped task operations and the priority enumeration
//   - storage: persistence contracts plus sqlite, postgres, and memory stores
//   - api/http: JSON HTTP handlers
//   - app: process wiring and lifecycle
package taskmanager
