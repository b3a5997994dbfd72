package migrations

import "embed"

// FS contains embedded SQLite migrations for taskmanager storage.
//
//go:embed *.sql
var FS embed.FS
