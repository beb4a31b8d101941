package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Run("defaults to the in-memory backend", func(t *testing.T) {
		cfg, err := parseConfig()
		require.NoError(t, err)

		assert.Equal(t, backendMemory, cfg.Backend)
		assert.Equal(t, logFormatZap, cfg.Log.Format)
		assert.Equal(t, "ledger.db", cfg.SQLite.Path)
		assert.False(t, cfg.Log.Debug)
	})

	t.Run("reads nested variables", func(t *testing.T) {
		t.Setenv("LEDGER_BACKEND", backendPostgres)
		t.Setenv("LEDGER_POSTGRES_DSN", "postgres://localhost:5432/ledger")
		t.Setenv("LEDGER_LOG_FORMAT", logFormatZerolog)
		t.Setenv("LEDGER_LOG_DEBUG", "true")

		cfg, err := parseConfig()
		require.NoError(t, err)

		assert.Equal(t, backendPostgres, cfg.Backend)
		assert.Equal(t, "postgres://localhost:5432/ledger", cfg.Postgres.DSN)
		assert.Equal(t, logFormatZerolog, cfg.Log.Format)
		assert.True(t, cfg.Log.Debug)
	})

	t.Run("reads the firestore project id", func(t *testing.T) {
		t.Setenv("LEDGER_BACKEND", backendFirestore)
		t.Setenv("LEDGER_FIRESTORE_PROJECT_ID", "ledger-project")

		cfg, err := parseConfig()
		require.NoError(t, err)
		assert.Equal(t, "ledger-project", cfg.Firestore.ProjectID)
	})

	t.Run("rejects postgres without a dsn", func(t *testing.T) {
		t.Setenv("LEDGER_BACKEND", backendPostgres)

		_, err := parseConfig()
		assert.Error(t, err)
	})

	t.Run("rejects unknown backends", func(t *testing.T) {
		t.Setenv("LEDGER_BACKEND", "mongodb")

		_, err := parseConfig()
		assert.Error(t, err)
	})

	t.Run("rejects unknown log formats", func(t *testing.T) {
		t.Setenv("LEDGER_LOG_FORMAT", "logrus")

		_, err := parseConfig()
		assert.Error(t, err)
	})
}

func TestRun(t *testing.T) {
	testCases := map[string]func(cfg *config){
		"memory with zap": func(*config) {},
		"memory with zerolog": func(cfg *config) {
			cfg.Log.Format = logFormatZerolog
			cfg.Log.Debug = true
		},
		"sqlite": func(cfg *config) {
			cfg.Backend = backendSQLite
			cfg.SQLite.Path = filepath.Join(t.TempDir(), "ledger.db")
		},
	}

	for name, configure := range testCases {
		t.Run(name, func(t *testing.T) {
			cfg := &config{Backend: backendMemory}
			cfg.Log.Format = logFormatZap
			configure(cfg)
			require.NoError(t, cfg.validate())

			var out bytes.Buffer
			require.NoError(t, run(context.Background(), cfg, &out))

			assert.Contains(t, out.String(), "balance 125.00, version 3")
		})
	}
}
