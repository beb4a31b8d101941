package aggregate

import (
	"errors"
	"fmt"

	"github.com/get-eventually/go-replay/event"
)

var (
	// ErrPendingChanges is returned when trying to replay history into an
	// Aggregate Root that still holds uncommitted changes, which would end up
	// applying the same Domain Events twice.
	ErrPendingChanges = errors.New("aggregate: cannot load history with pending uncommitted changes")

	// ErrVersionMismatch is returned when a persisted Domain Event does not
	// sit at the version the Aggregate Root is expecting next.
	ErrVersionMismatch = errors.New("aggregate: persisted event version mismatch")
)

// LoadFromHistory replays the provided Domain Events, in order, onto the
// Aggregate Root. Each event is applied and counted in the version, but it
// is not added to the uncommitted changes, since it is already part of
// the Event Log.
//
// History should be loaded once, into a freshly created Aggregate Root, before
// any domain operation is called.
func LoadFromHistory[I ID](root Root[I], events ...event.Envelope) error {
	if len(root.UncommittedChanges()) > 0 {
		return fmt.Errorf("aggregate.LoadFromHistory: %w", ErrPendingChanges)
	}

	for _, evt := range events {
		if err := root.applyThat(root, evt, false); err != nil {
			return fmt.Errorf("aggregate.LoadFromHistory: failed to apply event, %w", err)
		}
	}

	return nil
}

// RehydrateFromEvents rehydrates an Aggregate Root from a read-only Event Stream.
//
// Persisted Domain Events must come in version order, each one sitting at
// the version following the current Aggregate Root version.
func RehydrateFromEvents[I ID](root Root[I], eventStream event.StreamRead) error {
	if len(root.UncommittedChanges()) > 0 {
		return fmt.Errorf("aggregate.RehydrateFromEvents: %w", ErrPendingChanges)
	}

	for evt := range eventStream {
		if expected := root.Version().Next(); evt.Version != expected {
			return fmt.Errorf("aggregate.RehydrateFromEvents: %w, expected: %d, got: %d",
				ErrVersionMismatch, expected, evt.Version)
		}

		if err := root.applyThat(root, evt.Envelope, false); err != nil {
			return fmt.Errorf("aggregate.RehydrateFromEvents: failed to apply event, %w", err)
		}
	}

	return nil
}
