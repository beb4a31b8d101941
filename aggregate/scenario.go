package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/get-eventually/go-replay/event"
	"github.com/get-eventually/go-replay/version"
)

// ScenarioInit is the entrypoint of the Aggregate Root scenario API.
//
// Start from Given() to replay some history first, or go straight to When()
// to test a function creating a brand new Aggregate Root.
type ScenarioInit[I ID, T Root[I]] struct {
	typ Type[I, T]
}

// Scenario tests a domain operation on an Aggregate Root of the specified Type,
// in terms of the Domain Events it records or the error it returns.
//
// On success, AssertOn also checks that replaying the whole history,
// the given one plus the recorded one, into a fresh Aggregate Root
// produces the same Aggregate Root as the live operation.
func Scenario[I ID, T Root[I]](typ Type[I, T]) ScenarioInit[I, T] {
	return ScenarioInit[I, T]{typ: typ}
}

// Given sets the history the Aggregate Root is loaded from
// before running the domain operation.
func (sc ScenarioInit[I, T]) Given(events ...event.Envelope) ScenarioGiven[I, T] {
	return ScenarioGiven[I, T]{
		typ:   sc.typ,
		given: events,
	}
}

// When sets a function creating a new Aggregate Root, such as a domain constructor.
func (sc ScenarioInit[I, T]) When(fn func() (T, error)) ScenarioWhen[I, T] {
	return ScenarioWhen[I, T]{
		typ: sc.typ,
		run: func(*testing.T) (T, error) { return fn() },
	}
}

// ScenarioGiven is the state of the scenario after Given().
type ScenarioGiven[I ID, T Root[I]] struct {
	typ   Type[I, T]
	given []event.Envelope
}

// When sets the domain operation to call on the Aggregate Root
// loaded from the given history.
func (sc ScenarioGiven[I, T]) When(fn func(T) error) ScenarioWhen[I, T] {
	return ScenarioWhen[I, T]{
		typ:   sc.typ,
		given: sc.given,
		run: func(t *testing.T) (T, error) {
			root := sc.typ.Factory()
			require.NoError(t, LoadFromHistory[I](root, sc.given...), "given history cannot be replayed")

			return root, fn(root)
		},
	}
}

// ScenarioWhen is the state of the scenario once the domain operation is set.
// Describe the expected outcome with Then(), ThenFails(), ThenError() or ThenErrors().
type ScenarioWhen[I ID, T Root[I]] struct {
	typ   Type[I, T]
	given []event.Envelope
	run   func(t *testing.T) (T, error)
}

// Then expects the domain operation to succeed, leaving the Aggregate Root
// at the specified version with the specified uncommitted Domain Events.
func (sc ScenarioWhen[I, T]) Then(v version.Version, events ...event.Envelope) ScenarioThen[I, T] {
	return ScenarioThen[I, T]{
		when:     sc,
		version:  v,
		expected: events,
	}
}

// ThenFails expects the domain operation to fail with any error.
func (sc ScenarioWhen[I, T]) ThenFails() ScenarioThen[I, T] {
	return ScenarioThen[I, T]{
		when:    sc,
		wantErr: true,
	}
}

// ThenError expects the domain operation to fail with the specified error.
func (sc ScenarioWhen[I, T]) ThenError(err error) ScenarioThen[I, T] {
	return sc.ThenErrors(err)
}

// ThenErrors expects the domain operation to fail with an error matching
// all the specified ones, e.g. one built with errors.Join.
func (sc ScenarioWhen[I, T]) ThenErrors(errs ...error) ScenarioThen[I, T] {
	return ScenarioThen[I, T]{
		when:    sc,
		errors:  errs,
		wantErr: true,
	}
}

// ScenarioThen is a fully described scenario, run with AssertOn.
type ScenarioThen[I ID, T Root[I]] struct {
	when     ScenarioWhen[I, T]
	version  version.Version
	expected []event.Envelope
	errors   []error
	wantErr  bool
}

// AssertOn runs the test scenario using the specified testing.T instance.
func (sc ScenarioThen[I, T]) AssertOn(t *testing.T) {
	t.Helper()

	root, err := sc.when.run(t)

	if sc.wantErr {
		assert.Error(t, err)

		for _, expectedErr := range sc.errors {
			assert.ErrorIs(t, err, expectedErr)
		}

		sc.assertUntouched(t, root)

		return
	}

	if !assert.NoError(t, err) {
		return
	}

	assert.Equal(t, sc.expected, root.UncommittedChanges())
	assert.Equal(t, sc.version, root.Version())

	sc.assertReplayable(t, root)
}

// assertUntouched checks a failed operation on an existing Aggregate Root
// did not record anything, nor moved its version.
func (sc ScenarioThen[I, T]) assertUntouched(t *testing.T, root T) {
	t.Helper()

	if sc.when.given == nil {
		return
	}

	assert.Empty(t, root.UncommittedChanges(), "failed operations must not record events")
	assert.Equal(t, version.Unborn+version.Version(len(sc.when.given)), root.Version())
}

func (sc ScenarioThen[I, T]) assertReplayable(t *testing.T, root T) {
	t.Helper()

	history := make([]event.Envelope, 0, len(sc.when.given)+len(sc.expected))
	history = append(history, sc.when.given...)
	history = append(history, root.UncommittedChanges()...)

	replayed := sc.when.typ.Factory()
	if !assert.NoError(t, LoadFromHistory[I](replayed, history...), "recorded history cannot be replayed") {
		return
	}

	root.MarkChangesAsCommitted()
	assert.Equal(t, root, replayed, "replaying the history must rebuild the same aggregate root")
}
