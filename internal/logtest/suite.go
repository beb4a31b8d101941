// Package logtest contains the conformance suite every event.Log
// implementation in this module runs in its tests.
package logtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/get-eventually/go-replay/aggregate"
	"github.com/get-eventually/go-replay/event"
	"github.com/get-eventually/go-replay/internal/account"
	"github.com/get-eventually/go-replay/message"
	"github.com/get-eventually/go-replay/version"
)

// Durable Event Logs keep record times with microsecond precision at best,
// and in UTC.
var now = time.Date(2024, time.March, 1, 9, 30, 0, 123456000, time.UTC)

func accountEvent(id account.ID, kind account.Kind) event.Envelope {
	return event.ToEnvelope(&account.Event{
		ID:         id,
		RecordTime: now,
		Kind:       kind,
	})
}

func history(id account.ID) []event.Envelope {
	return []event.Envelope{
		accountEvent(id, &account.WasOpened{Number: "123", Holder: "John Doe"}),
		accountEvent(id, &account.FundsWereDeposited{Amount: 10000, Balance: 10000}),
		accountEvent(id, &account.FundsWereDeposited{Amount: 5000, Balance: 15000}),
		accountEvent(id, &account.FundsWereWithdrawn{Amount: 2500, Balance: 12500}),
	}
}

// onlyStreams keeps the events belonging to the specified Event Streams,
// so the suite can run on an Event Log shared with other tests.
func onlyStreams(events []event.Persisted, ids ...event.StreamID) []event.Persisted {
	wanted := make(map[event.StreamID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	var result []event.Persisted

	for _, evt := range events {
		if _, ok := wanted[evt.StreamID]; ok {
			result = append(result, evt)
		}
	}

	return result
}

func envelopes(events []event.Persisted) []event.Envelope {
	result := make([]event.Envelope, 0, len(events))
	for _, evt := range events {
		result = append(result, evt.Envelope)
	}

	return result
}

func stream(ctx context.Context, log event.Streamer, id event.StreamID, from version.Version) ([]event.Persisted, error) {
	return event.StreamToSlice(ctx, func(ctx context.Context, s event.StreamWrite) error {
		return log.Stream(ctx, s, id, version.Selector{From: from})
	})
}

// EventLogSuite returns an executable testing suite running on the event.Log
// value provided in input.
//
// The event.Log must be able to persist account Domain Events,
// e.g. using account.EventSerde.
func EventLogSuite(eventLog event.Log) func(t *testing.T) { //nolint:funlen // It's a test suite.
	return func(t *testing.T) {
		ctx := context.Background()

		t.Run("appending returns the new stream version", func(t *testing.T) {
			id := account.NewID()
			streamID := event.StreamID(id.String())
			events := history(id)

			v, err := eventLog.Append(ctx, streamID)
			require.NoError(t, err)
			assert.Equal(t, version.Unborn, v)

			v, err = eventLog.Append(ctx, streamID, events[:1]...)
			require.NoError(t, err)
			assert.Equal(t, version.Version(0), v)

			v, err = eventLog.Append(ctx, streamID, events[1:]...)
			require.NoError(t, err)
			assert.Equal(t, version.Version(3), v)

			v, err = eventLog.Append(ctx, streamID)
			require.NoError(t, err)
			assert.Equal(t, version.Version(3), v)
		})

		t.Run("read all returns the appended events in append order", func(t *testing.T) {
			first, second := account.NewID(), account.NewID()
			firstStream, secondStream := event.StreamID(first.String()), event.StreamID(second.String())
			firstHistory, secondHistory := history(first), history(second)

			var expected []event.Envelope

			for i := range firstHistory {
				_, err := eventLog.Append(ctx, firstStream, firstHistory[i])
				require.NoError(t, err)

				_, err = eventLog.Append(ctx, secondStream, secondHistory[i])
				require.NoError(t, err)

				expected = append(expected, firstHistory[i], secondHistory[i])
			}

			all, err := event.ReadAllToSlice(ctx, eventLog)
			require.NoError(t, err)

			got := onlyStreams(all, firstStream, secondStream)
			assert.Equal(t, expected, envelopes(got))

			for i := 1; i < len(got); i++ {
				assert.Greater(t, got[i].SequenceNumber, got[i-1].SequenceNumber)
			}

			for i, evt := range got {
				assert.Equal(t, version.Version(i/2), evt.Version)
			}

			// Reading the log again returns the very same events.
			again, err := event.ReadAllToSlice(ctx, eventLog)
			require.NoError(t, err)
			assert.Equal(t, got, onlyStreams(again, firstStream, secondStream))
		})

		t.Run("read all starts from the specified sequence number", func(t *testing.T) {
			id := account.NewID()
			streamID := event.StreamID(id.String())

			_, err := eventLog.Append(ctx, streamID, history(id)...)
			require.NoError(t, err)

			all, err := event.ReadAllToSlice(ctx, eventLog)
			require.NoError(t, err)

			appended := onlyStreams(all, streamID)
			require.Len(t, appended, 4)

			from := appended[2].SequenceNumber

			tail, err := event.StreamToSlice(ctx, func(ctx context.Context, s event.StreamWrite) error {
				return eventLog.ReadAll(ctx, s, from)
			})
			require.NoError(t, err)

			assert.Equal(t, appended[2:], onlyStreams(tail, streamID))

			for _, evt := range tail {
				assert.GreaterOrEqual(t, evt.SequenceNumber, from)
			}
		})

		t.Run("stream returns the events of a single stream in version order", func(t *testing.T) {
			id, other := account.NewID(), account.NewID()
			streamID := event.StreamID(id.String())
			events := history(id)

			_, err := eventLog.Append(ctx, streamID, events[:2]...)
			require.NoError(t, err)

			_, err = eventLog.Append(ctx, event.StreamID(other.String()), history(other)...)
			require.NoError(t, err)

			_, err = eventLog.Append(ctx, streamID, events[2:]...)
			require.NoError(t, err)

			got, err := stream(ctx, eventLog, streamID, 0)
			require.NoError(t, err)
			assert.Equal(t, events, envelopes(got))

			for i, evt := range got {
				assert.Equal(t, streamID, evt.StreamID)
				assert.Equal(t, version.Version(i), evt.Version)
			}

			got, err = stream(ctx, eventLog, streamID, 2)
			require.NoError(t, err)
			assert.Equal(t, events[2:], envelopes(got))

			got, err = stream(ctx, eventLog, event.StreamID(account.NewID().String()), 0)
			require.NoError(t, err)
			assert.Empty(t, got)
		})

		t.Run("metadata is stored with the event and isolated from the caller", func(t *testing.T) {
			id := account.NewID()
			streamID := event.StreamID(id.String())

			envelope := accountEvent(id, &account.WasOpened{Number: "123", Holder: "John Doe"})
			envelope.Metadata = message.Metadata{"Correlation-Id": "abc"}

			_, err := eventLog.Append(ctx, streamID, envelope)
			require.NoError(t, err)

			envelope.Metadata["Correlation-Id"] = "changed"

			got, err := stream(ctx, eventLog, streamID, 0)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, message.Metadata{"Correlation-Id": "abc"}, got[0].Metadata)
		})

		t.Run("a canceled context stops the read", func(t *testing.T) {
			canceled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := event.ReadAllToSlice(canceled, eventLog)
			assert.Error(t, err)
		})

		AggregateRepositorySuite(aggregate.NewEventSourcedRepository(eventLog, account.Type))(t)
	}
}

// AggregateRepositorySuite returns an executable testing suite running on the
// aggregate.Repository value provided in input.
func AggregateRepositorySuite(repository aggregate.Repository[account.ID, *account.Account]) func(t *testing.T) {
	return func(t *testing.T) {
		ctx := context.Background()

		t.Run("it can load and save aggregates", func(t *testing.T) {
			id := account.NewID()

			_, err := repository.Get(ctx, id)
			require.ErrorIs(t, err, aggregate.ErrRootNotFound)

			acc, err := account.Open(id, "123", "John Doe", now)
			require.NoError(t, err)
			require.NoError(t, acc.Deposit(10000, now))
			require.NoError(t, acc.Withdraw(2500, now))
			require.NoError(t, repository.Save(ctx, acc))

			got, err := repository.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, acc, got)

			require.NoError(t, got.Deposit(500, now))
			require.NoError(t, repository.Save(ctx, got))

			got, err = repository.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "80.00", got.State().Balance.String())
			assert.Equal(t, version.Version(3), got.Version())
		})
	}
}
