package zerologger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/get-eventually/go-replay/logger"
	"github.com/get-eventually/go-replay/logger/zerologger"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer

	l := zerologger.Wrap(zerolog.New(&buf).Level(zerolog.InfoLevel))

	l.Debug("filtered out")
	l.Info("appended", logger.With("stream", "account-1"))
	l.Error("failed", logger.Err(errors.New("boom")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &info))
	assert.Equal(t, "info", info["level"])
	assert.Equal(t, "appended", info["message"])
	assert.Equal(t, "account-1", info["stream"])

	var failure map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &failure))
	assert.Equal(t, "error", failure["level"])
	assert.Equal(t, "boom", failure["error"])
}
