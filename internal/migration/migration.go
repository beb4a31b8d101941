// Package migration runs the embedded SQL migrations of the
// database-backed Event Logs through golang-migrate.
package migration

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Table is the table keeping track of the schema version, kept apart from
// the default one so the host application can use golang-migrate too.
const Table = "replay_schema_migrations"

// Up applies all the migrations found in the "migrations" directory of fsys
// using the provided database driver. Having nothing to apply is not an error.
func Up(fsys fs.FS, databaseName string, driver database.Driver) error {
	source, err := iofs.New(fsys, "migrations")
	if err != nil {
		return fmt.Errorf("migration.Up: failed to read migrations, %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, databaseName, driver)
	if err != nil {
		return fmt.Errorf("migration.Up: failed to create migrate instance, %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration.Up: failed to apply migrations, %w", err)
	}

	return nil
}
