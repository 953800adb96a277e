package db

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"emsys/internal/platform/config"
)

// Migrate applies all pending up migrations for the given storage driver.
// dsn is a postgres:// URL or a SQLite file path.
func Migrate(driver, dsn string) error {
	var dir, url string
	switch driver {
	case config.StorageDriverPostgres:
		dir, url = "migrations/postgres", dsn
	case config.StorageDriverSQLite:
		dir, url = "migrations/sqlite", "sqlite3://"+dsn
	default:
		return fmt.Errorf("migrate: unknown driver %q", driver)
	}

	source, err := iofs.New(MigrationFS, dir)
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
