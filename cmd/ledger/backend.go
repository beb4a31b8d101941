package main

import (
	"context"
	"database/sql"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/jackc/pgx/v5/pgxpool"
	// Registers the "pgx" database/sql driver, used to run migrations.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/get-eventually/go-replay/event"
	replayfirestore "github.com/get-eventually/go-replay/firestore"
	"github.com/get-eventually/go-replay/internal/account"
	"github.com/get-eventually/go-replay/logger"
	"github.com/get-eventually/go-replay/postgres"
	"github.com/get-eventually/go-replay/sqlite"
)

// openEventLog opens the Event Log for the configured backend.
// The returned function releases the backend resources.
func openEventLog(ctx context.Context, cfg *config, l logger.Logger) (event.Log, func(), error) {
	switch cfg.Backend {
	case backendSQLite:
		return openSQLite(cfg, l)
	case backendPostgres:
		return openPostgres(ctx, cfg, l)
	case backendFirestore:
		return openFirestore(ctx, cfg)
	default:
		return event.NewInMemoryLog(), func() {}, nil
	}
}

func openSQLite(cfg *config, l logger.Logger) (event.Log, func(), error) {
	db, err := sqlite.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, err
	}

	if err := sqlite.RunMigrations(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	closer := func() { _ = db.Close() }

	return sqlite.NewEventLog(db, account.EventSerde, sqlite.WithLogger(l)), closer, nil
}

func openPostgres(ctx context.Context, cfg *config, l logger.Logger) (event.Log, func(), error) {
	db, err := sql.Open("pgx", cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger: failed to open postgres database, %w", err)
	}

	err = postgres.RunMigrations(db)
	_ = db.Close()

	if err != nil {
		return nil, nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger: failed to create postgres connection pool, %w", err)
	}

	return postgres.NewEventLog(pool, account.EventSerde, postgres.WithLogger(l)), pool.Close, nil
}

func openFirestore(ctx context.Context, cfg *config) (event.Log, func(), error) {
	client, err := firestore.NewClient(ctx, cfg.Firestore.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger: failed to create firestore client, %w", err)
	}

	closer := func() { _ = client.Close() }

	return replayfirestore.EventLog{Client: client, Serde: account.EventSerde}, closer, nil
}
