// Package event contains the Event Log abstraction: an append-only,
// strictly ordered record of immutable Domain Events, together with
// the types used to move those events in and out of it.
package event

import (
	"github.com/get-eventually/go-replay/message"
	"github.com/get-eventually/go-replay/version"
)

// Event is a Message representing some Domain information that has happened
// in the past, which is of vital information to the Domain itself.
//
// Event type names should be phrased in the past tense, to enforce the notion
// of "information happened in the past".
//
// Events are facts: once recorded, an Event value must never be modified.
type Event message.Message

// Envelope contains a Domain Event and possible metadata associated to it.
type Envelope message.GenericEnvelope

// ToEnvelope returns an Envelope instance with the provided Domain Event
// instance, and no Metadata.
func ToEnvelope(event Event) Envelope {
	return Envelope{
		Message:  event,
		Metadata: nil,
	}
}

// ToEnvelopes returns a list of Envelopes from a list of Domain Events.
// The returned Envelopes have no Metadata.
func ToEnvelopes(events ...Event) []Envelope {
	envelopes := make([]Envelope, 0, len(events))

	for _, event := range events {
		envelopes = append(envelopes, ToEnvelope(event))
	}

	return envelopes
}

// StreamID identifies the Event Stream of a single Aggregate Root instance,
// usually the string representation of its identifier.
type StreamID string

// Persisted represents a Domain Event that has been appended to the Event Log.
type Persisted struct {
	// StreamID is the identity of the Aggregate Root the Event belongs to.
	StreamID StreamID

	// Version is the zero-based position of the Event in its Event Stream,
	// which is also the Aggregate Root version after applying it.
	Version version.Version

	// SequenceNumber is the global, 1-based position of the Event in the Event Log.
	SequenceNumber version.SequenceNumber

	Envelope
}

func (p Persisted) clone() Persisted {
	p.Metadata = p.Metadata.Clone()
	return p
}
