package account_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/get-eventually/go-replay/internal/account"
	"github.com/get-eventually/go-replay/message"
)

func TestEventSerde(t *testing.T) {
	id := account.NewID()
	recordTime := time.Date(2024, time.March, 1, 9, 30, 0, 123456789, time.UTC)

	events := []*account.Event{
		{ID: id, RecordTime: recordTime, Kind: &account.WasOpened{Number: "123", Holder: "John Doe"}},
		{ID: id, RecordTime: recordTime, Kind: &account.FundsWereDeposited{Amount: 10000, Balance: 10000}},
		{ID: id, RecordTime: recordTime, Kind: &account.FundsWereWithdrawn{Amount: 2500, Balance: 7500}},
	}

	for _, evt := range events {
		t.Run(evt.Name(), func(t *testing.T) {
			data, err := account.EventSerde.Serialize(evt)
			require.NoError(t, err)

			got, err := account.EventSerde.Deserialize(data)
			require.NoError(t, err)
			assert.Equal(t, evt, got)
		})
	}

	t.Run("record time is normalized to UTC", func(t *testing.T) {
		local := recordTime.In(time.FixedZone("CET", 3600))

		data, err := account.EventSerde.Serialize(&account.Event{
			ID:         id,
			RecordTime: local,
			Kind:       &account.WasOpened{Number: "123", Holder: "John Doe"},
		})
		require.NoError(t, err)

		got, err := account.EventSerde.Deserialize(data)
		require.NoError(t, err)

		evt, ok := got.(*account.Event)
		require.True(t, ok)
		assert.True(t, local.Equal(evt.RecordTime))
	})

	t.Run("messages that are not account events are rejected", func(t *testing.T) {
		_, err := account.EventSerde.Serialize(unknownEvent{})
		assert.ErrorIs(t, err, account.ErrUnsupportedMessage)
	})

	t.Run("unknown event types are rejected", func(t *testing.T) {
		src, err := structpb.NewStruct(map[string]any{"type": "AccountWasFrozen"})
		require.NoError(t, err)

		_, err = account.EventStructSerde.Deserialize(src)
		assert.ErrorIs(t, err, account.ErrUnsupportedMessage)
	})

	t.Run("fractional amounts are rejected", func(t *testing.T) {
		src, err := structpb.NewStruct(map[string]any{
			"type":       "AccountFundsWereDeposited",
			"id":         id.String(),
			"recordTime": recordTime.Format(time.RFC3339Nano),
			"amount":     10.5,
			"balance":    10.5,
		})
		require.NoError(t, err)

		_, err = account.EventStructSerde.Deserialize(src)
		assert.Error(t, err)
	})

	t.Run("amounts outside the exact range are rejected", func(t *testing.T) {
		var msg message.Message = &account.Event{
			ID:         id,
			RecordTime: recordTime,
			Kind:       &account.FundsWereDeposited{Amount: 1 << 60, Balance: 1 << 60},
		}

		_, err := account.EventSerde.Serialize(msg)
		assert.Error(t, err)
	})
}
