package migrations

import "embed"

// FS contains embedded PostgreSQL migrations for taskmanager storage.
//
//go:embed *.sql
var FS embed.FS
