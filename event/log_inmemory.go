package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/get-eventually/go-replay/version"
)

// Interface implementation assertion.
var _ Log = new(InMemoryLog)

// InMemoryLog is a thread-safe, in-memory event.Log implementation.
//
// Appends from concurrent callers are serialized, so the InMemoryLog
// provides a global total order across all Event Streams.
type InMemoryLog struct {
	mx      sync.RWMutex
	events  []Persisted
	streams map[StreamID][]int
}

// NewInMemoryLog creates a new, empty event.InMemoryLog instance.
func NewInMemoryLog() *InMemoryLog {
	return &InMemoryLog{
		mx:      sync.RWMutex{},
		events:  nil,
		streams: make(map[StreamID][]int),
	}
}

func contextErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("event.InMemoryLog: context error, %w", err)
	}

	return nil
}

func sendAll(ctx context.Context, stream StreamWrite, events []Persisted) error {
	for _, evt := range events {
		if err := contextErr(ctx); err != nil {
			return err
		}

		select {
		case stream <- evt:
		case <-ctx.Done():
			return contextErr(ctx)
		}
	}

	return nil
}

// ReadAll streams all the Domain Events in the Event Log onto the provided
// stream, in append order, starting from the specified Sequence Number.
//
// The events are taken from a snapshot of the Event Log, so appends happening
// while the stream is being consumed are not visible to this call.
//
// This method fails only when the context is canceled.
func (l *InMemoryLog) ReadAll(ctx context.Context, stream StreamWrite, from version.SequenceNumber) error {
	defer close(stream)

	l.mx.RLock()

	var snapshot []Persisted

	for _, evt := range l.events {
		if evt.SequenceNumber >= from {
			snapshot = append(snapshot, evt.clone())
		}
	}

	l.mx.RUnlock()

	return sendAll(ctx, stream, snapshot)
}

// Stream streams the Domain Events of the specified Event Stream onto
// the provided stream, ordered by version, starting from the version
// in the provided selector.
//
// This method fails only when the context is canceled.
func (l *InMemoryLog) Stream(
	ctx context.Context,
	stream StreamWrite,
	id StreamID,
	selector version.Selector,
) error {
	defer close(stream)

	l.mx.RLock()

	var snapshot []Persisted

	for _, i := range l.streams[id] {
		if evt := l.events[i]; evt.Version >= selector.From {
			snapshot = append(snapshot, evt.clone())
		}
	}

	l.mx.RUnlock()

	return sendAll(ctx, stream, snapshot)
}

// Append inserts the specified Domain Events at the end of the Event Log,
// in the order provided, returning the new version of the Event Stream.
func (l *InMemoryLog) Append(ctx context.Context, id StreamID, events ...Envelope) (version.Version, error) {
	if err := contextErr(ctx); err != nil {
		return version.Unborn, err
	}

	l.mx.Lock()
	defer l.mx.Unlock()

	indexes := l.streams[id]

	for _, evt := range events {
		persisted := Persisted{
			StreamID:       id,
			Version:        version.Version(len(indexes)),
			SequenceNumber: version.SequenceNumber(len(l.events) + 1),
			Envelope:       evt,
		}

		indexes = append(indexes, len(l.events))
		l.events = append(l.events, persisted.clone())
	}

	l.streams[id] = indexes

	return version.Version(len(indexes)) - 1, nil
}
