package event

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/get-eventually/go-replay/version"
)

// Stream represents a stream of persisted Domain Events coming from some
// stream-able source of data, like an Event Log.
type Stream = chan Persisted

// StreamWrite provides write-only access to an event.Stream object.
type StreamWrite chan<- Persisted

// StreamRead provides read-only access to an event.Stream object.
type StreamRead <-chan Persisted

// SliceToStream converts a slice of event.Persisted domain events to an event.Stream type.
//
// The event.Stream channel has the same buffer size as the input slice.
//
// The channel returned by the function contains all the original slice elements
// and is already closed.
func SliceToStream(events []Persisted) Stream {
	ch := make(chan Persisted, len(events))
	defer close(ch)

	for _, event := range events {
		ch <- event
	}

	return ch
}

// StreamToSlice synchronously exhausts an EventStream to an event.Persisted slice,
// and returns an error if the EventStream origin, passed here as a closure,
// fails with an error.
func StreamToSlice(ctx context.Context, f func(ctx context.Context, stream StreamWrite) error) ([]Persisted, error) {
	ch := make(chan Persisted, 1)
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error { return f(ctx, ch) })

	var events []Persisted
	for event := range ch {
		events = append(events, event)
	}

	return events, group.Wait()
}

// ReadAllToSlice reads the whole Event Log, from the beginning,
// into an event.Persisted slice ordered by append order.
func ReadAllToSlice(ctx context.Context, reader Reader) ([]Persisted, error) {
	return StreamToSlice(ctx, func(ctx context.Context, stream StreamWrite) error {
		return reader.ReadAll(ctx, stream, 0)
	})
}

// Appender is an event.Log trait used to append new Domain Events at the end of the Event Log.
//
// Insertion order is the order of record: implementations must never reorder,
// deduplicate or reject well-formed Domain Events. The new version
// of the Event Stream identified by id is returned.
type Appender interface {
	Append(ctx context.Context, id StreamID, events ...Envelope) (version.Version, error)
}

// Reader is an event.Log trait used to read back the whole Event Log,
// in append order, starting from the specified Sequence Number.
//
// Every call opens an independent read, so the Event Log can be read
// as many times as needed.
type Reader interface {
	ReadAll(ctx context.Context, stream StreamWrite, from version.SequenceNumber) error
}

// Streamer is an event.Log trait used to open a specific Event Stream and stream it back
// in the application.
type Streamer interface {
	Stream(ctx context.Context, stream StreamWrite, id StreamID, selector version.Selector) error
}

// Store is the subset of the Event Log used to load and save
// a single Aggregate Root.
type Store interface {
	Appender
	Streamer
}

// Log represents an Event Log, a stateful, append-only data source where
// Domain Events can be safely recorded, and replayed in the same order.
type Log interface {
	Appender
	Reader
	Streamer
}

// FusedLog is a convenience type to fuse
// multiple Event Log interfaces where you might need to extend
// the functionality of the Log only partially.
//
// E.g. You might want to extend the functionality of the Append() method,
// but keep the Reader and Streamer methods the same.
type FusedLog struct {
	Appender
	Reader
	Streamer
}
