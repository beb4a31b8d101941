package main

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Supported values for the LEDGER_BACKEND variable.
const (
	backendMemory    = "memory"
	backendSQLite    = "sqlite"
	backendPostgres  = "postgres"
	backendFirestore = "firestore"
)

// Supported values for the LEDGER_LOG_FORMAT variable.
const (
	logFormatZap     = "zap"
	logFormatZerolog = "zerolog"
)

type config struct {
	Backend string `default:"memory" required:"true"`

	SQLite struct {
		Path string `default:"ledger.db"`
	}

	Postgres struct {
		DSN string
	}

	Firestore struct {
		ProjectID string `split_words:"true"`
	}

	Log struct {
		Format string `default:"zap"`
		Debug  bool
	}
}

func (c *config) validate() error {
	switch c.Backend {
	case backendMemory, backendSQLite:
	case backendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("config: LEDGER_POSTGRES_DSN is required with the %q backend", c.Backend)
		}
	case backendFirestore:
		if c.Firestore.ProjectID == "" {
			return fmt.Errorf("config: LEDGER_FIRESTORE_PROJECT_ID is required with the %q backend", c.Backend)
		}
	default:
		return fmt.Errorf("config: unsupported backend %q", c.Backend)
	}

	switch c.Log.Format {
	case logFormatZap, logFormatZerolog:
	default:
		return fmt.Errorf("config: unsupported log format %q", c.Log.Format)
	}

	return nil
}

func parseConfig() (*config, error) {
	var config config

	if err := envconfig.Process("ledger", &config); err != nil {
		return nil, fmt.Errorf("config: failed to parse from env, %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
