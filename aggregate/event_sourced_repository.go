package aggregate

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/get-eventually/go-replay/event"
	"github.com/get-eventually/go-replay/version"
)

var (
	_ Repository[ID, Root[ID]] = new(EventSourcedRepository[ID, Root[ID]])
	_ Updater[ID, Root[ID]]    = new(EventSourcedRepository[ID, Root[ID]])
)

// EventSourcedRepository provides an aggregate.Repository interface implementation
// that uses an event.Store to store and load the state of the Aggregate Root.
//
// Saves and updates of the same Aggregate Root are serialized within
// the EventSourcedRepository instance.
type EventSourcedRepository[I ID, T Root[I]] struct {
	eventStore event.Store
	typ        Type[I, T]
	locks      KeyedMutex
}

// NewEventSourcedRepository returns a new EventSourcedRepository implementation
// to store and load Aggregate Roots, specified by the aggregate.Type,
// using the provided event.Store implementation.
func NewEventSourcedRepository[I ID, T Root[I]](eventStore event.Store, typ Type[I, T]) *EventSourcedRepository[I, T] {
	return &EventSourcedRepository[I, T]{
		eventStore: eventStore,
		typ:        typ,
	}
}

// Get returns the Aggregate Root with the specified id, replaying its
// Event Stream into a fresh instance created by the aggregate.Type factory.
//
// aggregate.ErrRootNotFound is returned if no Aggregate Root was found with that id.
//
// An error is returned if the underlying Event Store fails, or if an error
// occurs while trying to rehydrate the Aggregate Root state from its Event Stream.
func (repo *EventSourcedRepository[I, T]) Get(ctx context.Context, id I) (T, error) {
	var zeroValue T

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	streamID := event.StreamID(id.String())
	eventStream := make(event.Stream, 1)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := repo.eventStore.Stream(ctx, eventStream, streamID, version.SelectFromBeginning); err != nil {
			return fmt.Errorf("aggregate.EventSourcedRepository: failed while reading event from stream, %w", err)
		}

		return nil
	})

	root := repo.typ.Factory()

	if err := RehydrateFromEvents[I](root, eventStream); err != nil {
		return zeroValue, fmt.Errorf("aggregate.EventSourcedRepository: failed to rehydrate aggregate root, %w", err)
	}

	if err := group.Wait(); err != nil {
		return zeroValue, err
	}

	if root.Version().IsUnborn() {
		return zeroValue, ErrRootNotFound
	}

	return root, nil
}

// Save stores the Aggregate Root to the Event Store, by appending the
// new, uncommitted Domain Events recorded through the Root, if any,
// and marking them as committed afterwards.
//
// An error is returned if the underlying Event Store fails: in that case
// the Domain Events are kept as uncommitted changes in the Aggregate Root.
func (repo *EventSourcedRepository[I, T]) Save(ctx context.Context, root T) error {
	unlock := repo.locks.Lock(root.AggregateID().String())
	defer unlock()

	return repo.save(ctx, root)
}

func (repo *EventSourcedRepository[I, T]) save(ctx context.Context, root T) error {
	events := root.UncommittedChanges()
	if len(events) == 0 {
		return nil
	}

	streamID := event.StreamID(root.AggregateID().String())

	if _, err := repo.eventStore.Append(ctx, streamID, events...); err != nil {
		return fmt.Errorf("aggregate.EventSourcedRepository: failed to commit recorded events, %w", err)
	}

	root.MarkChangesAsCommitted()

	return nil
}

// Update runs the full load-mutate-save sequence on the Aggregate Root
// with the specified id: the root is rehydrated from the Event Store,
// passed to fn to perform domain operations, and saved back.
//
// Update holds a lock on the Aggregate Root id for its whole duration,
// so concurrent updates of the same Aggregate Root are serialized.
//
// If fn returns an error, nothing is saved and the error is returned as-is.
func (repo *EventSourcedRepository[I, T]) Update(ctx context.Context, id I, fn func(T) error) error {
	unlock := repo.locks.Lock(id.String())
	defer unlock()

	root, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := fn(root); err != nil {
		return err
	}

	return repo.save(ctx, root)
}
