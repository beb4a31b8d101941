package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/get-eventually/go-replay/aggregate"
	"github.com/get-eventually/go-replay/event"
	"github.com/get-eventually/go-replay/internal/account"
	"github.com/get-eventually/go-replay/version"
)

var now = time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)

func mustAmount(t *testing.T, s string) account.Amount {
	t.Helper()

	amount, err := account.ParseAmount(s)
	require.NoError(t, err)

	return amount
}

func TestAccount(t *testing.T) {
	id := account.NewID()

	t.Run("open a new account", func(t *testing.T) {
		acc, err := account.Open(id, "IT60X0542811101000000123456", "John Doe", now)
		require.NoError(t, err)

		assert.Equal(t, version.Version(0), acc.Version())
		assert.Equal(t, id, acc.AggregateID())
		assert.Equal(t, account.State{
			ID:       id,
			Number:   "IT60X0542811101000000123456",
			Holder:   "John Doe",
			Balance:  0,
			OpenedAt: now,
		}, acc.State())

		assert.Equal(t, event.ToEnvelopes(&account.Event{
			ID:         id,
			RecordTime: now,
			Kind: &account.WasOpened{
				Number: "IT60X0542811101000000123456",
				Holder: "John Doe",
			},
		}), acc.UncommittedChanges())
	})

	t.Run("opening fails with all the invalid arguments reported", func(t *testing.T) {
		acc, err := account.Open(account.ID{}, "", "", now)
		assert.Nil(t, acc)
		assert.ErrorIs(t, err, account.ErrEmptyID)
		assert.ErrorIs(t, err, account.ErrEmptyNumber)
		assert.ErrorIs(t, err, account.ErrEmptyHolder)
	})

	t.Run("operations on an unopened account fail", func(t *testing.T) {
		acc := account.Type.Factory()

		err := acc.Deposit(100, now)
		assert.ErrorIs(t, err, account.ErrNotOpened)
		assert.ErrorContains(t, err, "account.Deposit:")

		err = acc.Withdraw(100, now)
		assert.ErrorIs(t, err, account.ErrNotOpened)
		assert.ErrorContains(t, err, "account.Withdraw:")
		assert.Equal(t, version.Unborn, acc.Version())
		assert.Empty(t, acc.UncommittedChanges())
	})

	t.Run("non-positive amounts are rejected", func(t *testing.T) {
		acc, err := account.Open(id, "123", "John Doe", now)
		require.NoError(t, err)

		assert.ErrorIs(t, acc.Deposit(0, now), account.ErrInvalidAmount)
		assert.ErrorIs(t, acc.Withdraw(-1, now), account.ErrInvalidAmount)
		assert.Equal(t, version.Version(0), acc.Version())
	})

	t.Run("events without a kind have no name", func(t *testing.T) {
		evt := &account.Event{ID: id, RecordTime: now}

		assert.Empty(t, evt.Name())

		_, err := account.EventSerde.Serialize(evt)
		assert.Error(t, err)
	})

	t.Run("applying an unknown event is a fatal error", func(t *testing.T) {
		acc := account.Type.Factory()

		err := aggregate.LoadFromHistory[account.ID](acc, event.ToEnvelope(unknownEvent{}))
		assert.ErrorIs(t, err, aggregate.ErrUnknownEvent)
		assert.Equal(t, version.Unborn, acc.Version())
		assert.Equal(t, account.State{}, acc.State())
	})
}

type unknownEvent struct{}

func (unknownEvent) Name() string { return "SomethingElseHappened" }

func TestAccountScenario(t *testing.T) {
	ctx := context.Background()
	id := account.NewID()

	acc, err := account.Open(id, "123", "John Doe", now)
	require.NoError(t, err)
	assert.Equal(t, version.Version(0), acc.Version())
	assert.Equal(t, account.Amount(0), acc.State().Balance)

	// The account has been stored right after being opened.
	acc.MarkChangesAsCommitted()

	require.NoError(t, acc.Deposit(mustAmount(t, "100.00"), now))
	assert.Equal(t, version.Version(1), acc.Version())
	assert.Equal(t, "100.00", acc.State().Balance.String())
	assert.Len(t, acc.UncommittedChanges(), 1)

	require.NoError(t, acc.Deposit(mustAmount(t, "50.00"), now))
	assert.Equal(t, version.Version(2), acc.Version())
	assert.Equal(t, "150.00", acc.State().Balance.String())
	assert.Len(t, acc.UncommittedChanges(), 2)

	require.NoError(t, acc.Withdraw(mustAmount(t, "25.00"), now))
	assert.Equal(t, version.Version(3), acc.Version())
	assert.Equal(t, "125.00", acc.State().Balance.String())

	stateBefore, changesBefore := acc.State(), acc.UncommittedChanges()

	err = acc.Withdraw(mustAmount(t, "1000.00"), now)
	assert.ErrorIs(t, err, account.ErrInsufficientFunds)
	assert.Equal(t, version.Version(3), acc.Version())
	assert.Equal(t, "125.00", acc.State().Balance.String())
	assert.Equal(t, stateBefore, acc.State())
	assert.Equal(t, changesBefore, acc.UncommittedChanges())

	eventLog := event.NewInMemoryLog()
	successful := acc.UncommittedChanges()
	require.Len(t, successful, 3)

	_, err = eventLog.Append(ctx, event.StreamID(id.String()), successful...)
	require.NoError(t, err)

	persisted, err := event.ReadAllToSlice(ctx, eventLog)
	require.NoError(t, err)

	history := make([]event.Envelope, 0, len(persisted))
	for _, evt := range persisted {
		history = append(history, evt.Envelope)
	}

	replayed := account.Type.Factory()
	require.NoError(t, aggregate.LoadFromHistory[account.ID](replayed, history...))

	assert.Equal(t, "125.00", replayed.State().Balance.String())
	assert.Equal(t, version.Version(2), replayed.Version())
	assert.Equal(t, id, replayed.AggregateID())
	assert.Empty(t, replayed.UncommittedChanges())

	require.NoError(t, replayed.Deposit(mustAmount(t, "1.00"), now))
	require.Len(t, replayed.UncommittedChanges(), 1)

	deposited, ok := replayed.UncommittedChanges()[0].Message.(*account.Event)
	require.True(t, ok)
	assert.Equal(t, id, deposited.ID)
}

func TestAccountReplay_RejectsForeignEvents(t *testing.T) {
	id, other := account.NewID(), account.NewID()

	acc := account.Type.Factory()
	err := aggregate.LoadFromHistory[account.ID](acc,
		event.ToEnvelope(&account.Event{ID: id, RecordTime: now, Kind: &account.FundsWereDeposited{Amount: 100, Balance: 100}}),
		event.ToEnvelope(&account.Event{ID: other, RecordTime: now, Kind: &account.FundsWereDeposited{Amount: 100, Balance: 200}}),
	)

	assert.ErrorIs(t, err, account.ErrIDMismatch)
	assert.Equal(t, id, acc.AggregateID())
	assert.Equal(t, account.Amount(100), acc.State().Balance)
	assert.Equal(t, version.Version(0), acc.Version())
}

func TestAccountReplay_DurableHistoryMatchesLive(t *testing.T) {
	opening := time.Date(2024, time.March, 1, 10, 30, 0, 0, time.FixedZone("CET", 3600))

	live, err := account.Open(account.NewID(), "123", "John Doe", opening)
	require.NoError(t, err)
	require.NoError(t, live.Deposit(10000, time.Now()))

	history := make([]event.Envelope, 0, len(live.UncommittedChanges()))

	for _, evt := range live.UncommittedChanges() {
		data, err := account.EventSerde.Serialize(evt.Message)
		require.NoError(t, err)

		msg, err := account.EventSerde.Deserialize(data)
		require.NoError(t, err)
		assert.Equal(t, evt.Message, msg)

		history = append(history, event.ToEnvelope(msg))
	}

	replayed := account.Type.Factory()
	require.NoError(t, aggregate.LoadFromHistory[account.ID](replayed, history...))

	assert.Equal(t, live.State(), replayed.State())
	assert.Equal(t, time.UTC, live.State().OpenedAt.Location())
	assert.True(t, opening.Equal(live.State().OpenedAt))
}

func TestAccountReplayLiveEquivalence(t *testing.T) {
	id := account.NewID()

	live, err := account.Open(id, "123", "John Doe", now)
	require.NoError(t, err)
	require.NoError(t, live.Deposit(10000, now.Add(time.Minute)))
	require.NoError(t, live.Withdraw(2550, now.Add(2*time.Minute)))
	require.NoError(t, live.Deposit(1, now.Add(3*time.Minute)))

	history := live.UncommittedChanges()

	first, second := account.Type.Factory(), account.Type.Factory()
	require.NoError(t, aggregate.LoadFromHistory[account.ID](first, history...))
	require.NoError(t, aggregate.LoadFromHistory[account.ID](second, history...))

	// Fold determinism.
	assert.Equal(t, first.State(), second.State())
	assert.Equal(t, first.Version(), second.Version())

	// Replay/live equivalence.
	assert.Equal(t, live.State(), first.State())
	assert.Equal(t, live.Version(), first.Version())
	assert.Equal(t, version.Version(len(history)-1), first.Version())
}
