package aggregate_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/get-eventually/go-replay/aggregate"
	"github.com/get-eventually/go-replay/event"
	"github.com/get-eventually/go-replay/internal/account"
	"github.com/get-eventually/go-replay/version"
)

var errAppendFailed = errors.New("append failed")

type failingAppender struct{}

func (failingAppender) Append(context.Context, event.StreamID, ...event.Envelope) (version.Version, error) {
	return version.Unborn, errAppendFailed
}

func TestEventSourcedRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("it can load and save aggregates", func(t *testing.T) {
		id := account.NewID()
		repository := aggregate.NewEventSourcedRepository(event.NewInMemoryLog(), account.Type)

		_, err := repository.Get(ctx, id)
		require.ErrorIs(t, err, aggregate.ErrRootNotFound)

		acc, err := account.Open(id, "123", "John Doe", now)
		require.NoError(t, err)
		require.NoError(t, acc.Deposit(100, now))
		require.NoError(t, repository.Save(ctx, acc))
		assert.Empty(t, acc.UncommittedChanges())

		got, err := repository.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, acc, got)
		assert.Equal(t, version.Version(1), got.Version())
	})

	t.Run("saving with no pending changes does not touch the log", func(t *testing.T) {
		id := account.NewID()
		eventLog := event.NewInMemoryLog()
		trackingLog := event.NewTrackingLog(eventLog)
		repository := aggregate.NewEventSourcedRepository(event.FusedLog{
			Appender: trackingLog,
			Reader:   eventLog,
			Streamer: eventLog,
		}, account.Type)

		acc, err := account.Open(id, "123", "John Doe", now)
		require.NoError(t, err)
		require.NoError(t, repository.Save(ctx, acc))
		require.NoError(t, repository.Save(ctx, acc))

		assert.Len(t, trackingLog.Recorded(), 1)
	})

	t.Run("changes stay pending when the append fails", func(t *testing.T) {
		id := account.NewID()
		eventLog := event.NewInMemoryLog()
		repository := aggregate.NewEventSourcedRepository(event.FusedLog{
			Appender: failingAppender{},
			Reader:   eventLog,
			Streamer: eventLog,
		}, account.Type)

		acc, err := account.Open(id, "123", "John Doe", now)
		require.NoError(t, err)

		err = repository.Save(ctx, acc)
		assert.ErrorIs(t, err, errAppendFailed)
		assert.Len(t, acc.UncommittedChanges(), 1)
	})

	t.Run("unknown events in the log are not swallowed", func(t *testing.T) {
		id := account.NewID()
		eventLog := event.NewInMemoryLog()
		repository := aggregate.NewEventSourcedRepository(eventLog, account.Type)

		_, err := eventLog.Append(ctx, event.StreamID(id.String()),
			accountEvent(id, &account.WasOpened{Number: "123", Holder: "John Doe"}),
			event.ToEnvelope(unknownEvent{}),
		)
		require.NoError(t, err)

		_, err = repository.Get(ctx, id)
		assert.ErrorIs(t, err, aggregate.ErrUnknownEvent)
	})

	t.Run("update runs the whole sequence and persists the new events", func(t *testing.T) {
		id := account.NewID()
		repository := aggregate.NewEventSourcedRepository(event.NewInMemoryLog(), account.Type)

		acc, err := account.Open(id, "123", "John Doe", now)
		require.NoError(t, err)
		require.NoError(t, repository.Save(ctx, acc))

		require.NoError(t, repository.Update(ctx, id, func(acc *account.Account) error {
			return acc.Deposit(500, now)
		}))

		err = repository.Update(ctx, id, func(acc *account.Account) error {
			return acc.Withdraw(1000, now)
		})
		assert.ErrorIs(t, err, account.ErrInsufficientFunds)

		got, err := repository.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, account.Amount(500), got.State().Balance)
		assert.Equal(t, version.Version(1), got.Version())
	})

	t.Run("concurrent updates of the same aggregate are serialized", func(t *testing.T) {
		const updates = 50

		id := account.NewID()
		repository := aggregate.NewEventSourcedRepository(event.NewInMemoryLog(), account.Type)

		acc, err := account.Open(id, "123", "John Doe", now)
		require.NoError(t, err)
		require.NoError(t, repository.Save(ctx, acc))

		var wg sync.WaitGroup

		errs := make(chan error, updates)

		for range updates {
			wg.Add(1)

			go func() {
				defer wg.Done()

				errs <- repository.Update(ctx, id, func(acc *account.Account) error {
					return acc.Deposit(1, now)
				})
			}()
		}

		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}

		got, err := repository.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, account.Amount(updates), got.State().Balance)
		assert.Equal(t, version.Version(updates), got.Version())
	})
}
