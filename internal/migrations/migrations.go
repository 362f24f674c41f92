// Package migrations embeds the goose SQL migrations of the ledger, one
// directory per dialect.
package migrations

import "embed"

// Directories inside Migrations.
const (
	SQLiteDir   = "sqlite"
	PostgresDir = "postgres"
)

//go:embed sqlite/*.sql postgres/*.sql
var Migrations embed.FS
