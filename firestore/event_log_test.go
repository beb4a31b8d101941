package replayfirestore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	replayfirestore "github.com/get-eventually/go-replay/firestore"
	"github.com/get-eventually/go-replay/internal/account"
	"github.com/get-eventually/go-replay/internal/container"
	"github.com/get-eventually/go-replay/internal/logtest"
)

func TestEventLog(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	ctx := context.Background()

	emulator, err := container.NewFirestore(ctx)
	testcontainers.CleanupContainer(t, emulator)
	require.NoError(t, err)

	t.Cleanup(func() { assert.NoError(t, emulator.Client.Close()) })

	eventLog := replayfirestore.EventLog{
		Client: emulator.Client,
		Serde:  account.EventSerde,
	}

	logtest.EventLogSuite(eventLog)(t)
}
