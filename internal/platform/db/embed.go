package db

import "embed"

// MigrationFS holds one migrations directory per storage driver.
//
//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var MigrationFS embed.FS
