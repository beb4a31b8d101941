package postgres

import (
	"database/sql"
	"embed"
	"fmt"

	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"

	"github.com/get-eventually/go-replay/internal/migration"
)

// MigrationsTable is the table used by RunMigrations to keep track
// of the schema version.
const MigrationsTable = migration.Table

//go:embed migrations/*.sql
var migrations embed.FS

// RunMigrations brings the "event_streams" and "events" tables
// to the latest schema version. It is safe to call it on every start.
//
// The provided database handle must use the pgx driver, e.g. through
// sql.Open("pgx", dsn) after importing github.com/jackc/pgx/v5/stdlib.
func RunMigrations(db *sql.DB) error {
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{
		MigrationsTable: MigrationsTable,
	})
	if err != nil {
		return fmt.Errorf("postgres.RunMigrations: failed to create migrate driver, %w", err)
	}

	if err := migration.Up(migrations, "pgx5", driver); err != nil {
		return fmt.Errorf("postgres.RunMigrations: %w", err)
	}

	return nil
}
