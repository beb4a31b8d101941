// Package container contains testcontainers helpers to start the
// databases used by the integration tests of this module.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Postgres is a running PostgreSQL container, together with
// the DSN to connect to its "main" database.
type Postgres struct {
	*postgres.PostgresContainer

	ConnectionDSN string
}

// NewPostgres starts a new PostgreSQL container,
// to be terminated with testcontainers.CleanupContainer.
func NewPostgres(ctx context.Context) (*Postgres, error) {
	container, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("main"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("notasecret"),
		testcontainers.WithWaitStrategy(
			//nolint:mnd // It's ok to use a magic number here.
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("container.NewPostgres: failed to start, %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("container.NewPostgres: failed to get dsn, %w", err)
	}

	return &Postgres{PostgresContainer: container, ConnectionDSN: dsn}, nil
}
