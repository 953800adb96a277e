// Package dbtest opens throwaway migrated databases for package tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"emsys/internal/platform/config"
	"emsys/internal/platform/db"
)

func SQLite(t testing.TB) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	if err := db.Migrate(config.StorageDriverSQLite, path); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	handle, err := db.OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = handle.Close() })
	return handle
}
