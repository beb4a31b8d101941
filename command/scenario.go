package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/get-eventually/go-replay/event"
)

// ScenarioInit is the entrypoint of the Command Handler scenario API.
//
// Start from Given() to fill the Event Log with some history first,
// or go straight to When() to run on an empty Event Log.
type ScenarioInit[Cmd Command, T Handler[Cmd]] struct{}

// Scenario tests a Command Handler in terms of the Domain Events it appends
// to the Event Log while handling a Command, or the error it returns.
func Scenario[Cmd Command, T Handler[Cmd]]() ScenarioInit[Cmd, T] {
	return ScenarioInit[Cmd, T]{}
}

// Given sets the Domain Events found in the Event Log before the Command
// is handled. They are appended in the order provided, so each Event Stream
// must be listed in version order.
func (ScenarioInit[Cmd, T]) Given(events ...event.Persisted) ScenarioGiven[Cmd, T] {
	return ScenarioGiven[Cmd, T]{given: events}
}

// When sets the Command to handle on an empty Event Log.
func (ScenarioInit[Cmd, T]) When(cmd Envelope[Cmd]) ScenarioWhen[Cmd, T] {
	return ScenarioWhen[Cmd, T]{when: cmd}
}

// ScenarioGiven is the state of the scenario after Given().
type ScenarioGiven[Cmd Command, T Handler[Cmd]] struct {
	given []event.Persisted
}

// When sets the Command to handle.
func (sc ScenarioGiven[Cmd, T]) When(cmd Envelope[Cmd]) ScenarioWhen[Cmd, T] {
	return ScenarioWhen[Cmd, T]{given: sc.given, when: cmd}
}

// ScenarioWhen is the state of the scenario once the Command is set.
// Describe the expected outcome with Then(), ThenFails(), ThenError() or ThenErrors().
type ScenarioWhen[Cmd Command, T Handler[Cmd]] struct {
	given []event.Persisted
	when  Envelope[Cmd]
}

// Then expects the Command to be handled successfully, appending exactly
// the specified Domain Events in the specified order.
// Sequence Numbers are not compared.
func (sc ScenarioWhen[Cmd, T]) Then(events ...event.Persisted) ScenarioThen[Cmd, T] {
	return ScenarioThen[Cmd, T]{when: sc, then: events}
}

// ThenFails expects the Command to be rejected with any error.
func (sc ScenarioWhen[Cmd, T]) ThenFails() ScenarioThen[Cmd, T] {
	return ScenarioThen[Cmd, T]{when: sc, wantErr: true}
}

// ThenError expects the Command to be rejected with the specified error,
// matched through errors.Is.
func (sc ScenarioWhen[Cmd, T]) ThenError(err error) ScenarioThen[Cmd, T] {
	return sc.ThenErrors(err)
}

// ThenErrors expects the Command to be rejected with an error matching
// all the specified ones, e.g. one built with errors.Join.
func (sc ScenarioWhen[Cmd, T]) ThenErrors(errs ...error) ScenarioThen[Cmd, T] {
	return ScenarioThen[Cmd, T]{when: sc, errs: errs, wantErr: true}
}

// ScenarioThen is a fully described scenario, run with AssertOn.
type ScenarioThen[Cmd Command, T Handler[Cmd]] struct {
	when    ScenarioWhen[Cmd, T]
	then    []event.Persisted
	errs    []error
	wantErr bool
}

// AssertOn runs the scenario on the Command Handler built by handlerFactory.
//
// The event.Store passed to the factory reads from an event.InMemoryLog
// holding the Given Domain Events, and tracks every append made to it.
// A rejected Command must not append anything.
func (sc ScenarioThen[Cmd, T]) AssertOn(t *testing.T, handlerFactory func(event.Store) T) {
	t.Helper()

	ctx := context.Background()
	eventLog := event.NewInMemoryLog()

	for _, evt := range sc.when.given {
		_, err := eventLog.Append(ctx, evt.StreamID, evt.Envelope)
		require.NoError(t, err, "given events cannot be appended")
	}

	trackingLog := event.NewTrackingLog(eventLog)
	handler := handlerFactory(event.FusedLog{
		Appender: trackingLog,
		Reader:   eventLog,
		Streamer: eventLog,
	})

	err := handler.Handle(ctx, sc.when.when)

	if !sc.wantErr {
		assert.NoError(t, err)
		assert.Equal(t, sc.then, trackingLog.Recorded())

		return
	}

	assert.Error(t, err)
	assert.Empty(t, trackingLog.Recorded(), "rejected commands must not append events")

	for _, expected := range sc.errs {
		assert.ErrorIs(t, err, expected)
	}
}
