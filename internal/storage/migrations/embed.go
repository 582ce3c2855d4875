package migrations

import "embed"

// FS embeds the SQL migrations for the local SQLite catalog.
//
//go:embed *.sql
var FS embed.FS
