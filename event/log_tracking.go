package event

import (
	"context"
	"sync"

	"github.com/get-eventually/go-replay/version"
)

// TrackingLog is an Event Log wrapper to track the Events
// committed to the inner Event Log.
//
// Useful for tests assertion.
type TrackingLog struct {
	Appender

	mx       sync.RWMutex
	recorded []Persisted
}

// NewTrackingLog wraps an Event Log to capture events that get
// appended to it.
func NewTrackingLog(appender Appender) *TrackingLog {
	return &TrackingLog{Appender: appender}
}

// Recorded returns the list of Events that have been appended
// to the Event Log.
//
// Please note: these events do not record the Sequence Number assigned by
// the Event Log. Usually you should not need it in test assertions, since
// the order of Events in the returned slice always follows the global order
// of the Event Log.
func (l *TrackingLog) Recorded() []Persisted {
	l.mx.RLock()
	defer l.mx.RUnlock()

	recorded := make([]Persisted, len(l.recorded))
	copy(recorded, l.recorded)

	return recorded
}

// Append forwards the call to the wrapped Event Log instance and,
// if the operation concludes successfully, records these events internally.
//
// The recorded events can be accessed by calling Recorded().
func (l *TrackingLog) Append(ctx context.Context, id StreamID, events ...Envelope) (version.Version, error) {
	l.mx.Lock()
	defer l.mx.Unlock()

	v, err := l.Appender.Append(ctx, id, events...)
	if err != nil {
		return v, err
	}

	previousVersion := v - version.Version(len(events))

	for i, evt := range events {
		l.recorded = append(l.recorded, Persisted{
			StreamID:       id,
			Version:        previousVersion + version.Version(i) + 1,
			SequenceNumber: 0,
			Envelope:       evt,
		})
	}

	return v, nil
}
