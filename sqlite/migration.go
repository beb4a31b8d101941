package sqlite

import (
	"database/sql"
	"embed"
	"fmt"

	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"

	"github.com/get-eventually/go-replay/internal/migration"
)

// MigrationsTable is the table used by RunMigrations to keep track
// of the schema version.
const MigrationsTable = migration.Table

//go:embed migrations/*.sql
var migrations embed.FS

// RunMigrations brings the database, usually opened through Open,
// to the latest schema version. It is safe to call it on every start.
func RunMigrations(db *sql.DB) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{
		MigrationsTable: MigrationsTable,
	})
	if err != nil {
		return fmt.Errorf("sqlite.RunMigrations: failed to create migrate driver, %w", err)
	}

	if err := migration.Up(migrations, "sqlite", driver); err != nil {
		return fmt.Errorf("sqlite.RunMigrations: %w", err)
	}

	return nil
}
