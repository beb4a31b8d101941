package aggregate

import (
	"errors"
	"fmt"

	"github.com/get-eventually/go-replay/event"
	"github.com/get-eventually/go-replay/version"
)

// ErrUnknownEvent must be wrapped by Aggregate.Apply implementations when
// asked to apply a Domain Event they do not recognize.
//
// This is a fatal modeling error: it means either the Event Log is corrupted,
// or the domain model and the recorded history disagree. It must never be
// silently ignored, since the resulting state would not match the history.
var ErrUnknownEvent = errors.New("aggregate: unknown domain event")

// ID represents an Aggregate ID type.
//
// Aggregate IDs should be able to be marshaled into a string format,
// in order to be saved onto a named Event Stream.
type ID interface {
	fmt.Stringer
}

// Aggregate is the segregated interface, part of the Aggregate Root interface,
// that describes the left-folding behavior of Domain Events to update the
// Aggregate Root state.
type Aggregate interface {
	// Apply applies the specified Event to the Aggregate Root,
	// by causing a state change in the Aggregate Root instance.
	//
	// Apply must be a deterministic function of the current state and the Event:
	// no wall-clock reads, no external requests. For this reason, this method
	// does not include a context.Context instance in the input parameters.
	//
	// On error, the Aggregate Root state must be left untouched.
	Apply(event.Event) error
}

// Root is the interface describing an Aggregate Root instance.
//
// This interface should be implemented by your Aggregate Root types.
// Make sure your Aggregate Root types embed the aggregate.BaseRoot type
// to complete the implementation of this interface.
type Root[I ID] interface {
	Aggregate

	// AggregateID returns the Aggregate Root identifier.
	AggregateID() I

	// Version returns the current Aggregate Root version.
	// It starts from version.Unborn and grows by one for each Domain Event applied,
	// whether replayed or recorded.
	Version() version.Version

	// UncommittedChanges returns the Domain Events recorded since the
	// Aggregate Root was created, or since the last MarkChangesAsCommitted call.
	UncommittedChanges() []event.Envelope

	// MarkChangesAsCommitted clears the uncommitted changes. Call it only after
	// the changes have been durably appended to the Event Log.
	MarkChangesAsCommitted()

	applyThat(root Aggregate, evt event.Envelope, record bool) error
}

// Type represents the type of an Aggregate, which will expose the
// name of the Aggregate and a factory method to create new instances of the type,
// without using reflection.
//
// The Factory must return fresh, unborn instances: if your Aggregate implementation
// uses pointers, use the factory to return a non-nil instance of the type.
type Type[I ID, T Root[I]] struct {
	Name    string
	Factory func() T
}

// RecordThat records the Domain Events for the specified Aggregate Root,
// applying them to its state and adding them to the uncommitted changes.
//
// Domain operations should validate their preconditions before calling
// RecordThat. An error is returned if applying a Domain Event fails: in that
// case, the failing event is neither counted in the version nor recorded.
func RecordThat[I ID](root Root[I], events ...event.Envelope) error {
	for _, evt := range events {
		if err := root.applyThat(root, evt, true); err != nil {
			return fmt.Errorf("aggregate.RecordThat: failed to record event, %w", err)
		}
	}

	return nil
}

// BaseRoot segregates and completes the aggregate.Root interface implementation
// when embedded to a user-defined Aggregate Root type.
//
// BaseRoot provides some common traits, such as tracking the current Aggregate
// Root version, and the recorded-but-uncommitted Domain Events, through
// the aggregate.RecordThat function.
//
// The zero value is an unborn Aggregate Root, at version.Unborn.
type BaseRoot struct {
	applied     int64
	uncommitted []event.Envelope
}

// Version returns the current version of the Aggregate Root instance.
func (br BaseRoot) Version() version.Version {
	return version.Unborn + version.Version(br.applied)
}

// UncommittedChanges returns a copy of the Domain Events recorded
// and not yet committed, in the order they were recorded.
func (br BaseRoot) UncommittedChanges() []event.Envelope {
	if len(br.uncommitted) == 0 {
		return nil
	}

	changes := make([]event.Envelope, len(br.uncommitted))
	copy(changes, br.uncommitted)

	return changes
}

// MarkChangesAsCommitted clears the uncommitted changes buffer.
// Version and Aggregate Root state are not affected.
func (br *BaseRoot) MarkChangesAsCommitted() {
	br.uncommitted = nil
}

// applyThat is the single apply step shared by replay and recording:
// the two only differ in whether the event is buffered as uncommitted.
func (br *BaseRoot) applyThat(root Aggregate, evt event.Envelope, record bool) error {
	if err := root.Apply(evt.Message); err != nil {
		return err
	}

	br.applied++

	if record {
		br.uncommitted = append(br.uncommitted, evt)
	}

	return nil
}
