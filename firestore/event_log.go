// Package replayfirestore contains an event.Log implementation backed by
// Google Cloud Firestore.
//
// Domain Events are stored in the "Events" collection, the latest version
// of each Event Stream in the "EventStreams" collection, and the last
// assigned Sequence Number in the "EventLog/Sequence" document.
//
// Streaming a single Event Stream requires a composite index on
// the "event_stream_id" and "version" fields of the "Events" collection.
package replayfirestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/get-eventually/go-replay/event"
	"github.com/get-eventually/go-replay/message"
	"github.com/get-eventually/go-replay/serde"
	"github.com/get-eventually/go-replay/version"
)

var _ event.Log = EventLog{}

type eventDocument struct {
	StreamID       string            `firestore:"event_stream_id"`
	Version        int64             `firestore:"version"`
	SequenceNumber int64             `firestore:"sequence_number"`
	Type           string            `firestore:"type"`
	Metadata       map[string]string `firestore:"metadata"`
	Payload        []byte            `firestore:"payload"`
}

type streamDocument struct {
	Version int64 `firestore:"version"`
}

type sequenceDocument struct {
	Last int64 `firestore:"last"`
}

// EventLog is an event.Log implementation targeted to Google Cloud Firestore.
//
// Appends run in a Firestore transaction that also updates the Sequence document,
// so concurrent appends are serialized and the Event Log keeps a global total order.
type EventLog struct {
	Client *firestore.Client
	Serde  serde.Bytes[message.Message]
}

func (el EventLog) eventsCollection() *firestore.CollectionRef {
	return el.Client.Collection("Events")
}

func (el EventLog) streamsCollection() *firestore.CollectionRef {
	return el.Client.Collection("EventStreams")
}

func (el EventLog) sequenceDocument() *firestore.DocumentRef {
	return el.Client.Collection("EventLog").Doc("Sequence")
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// Append implements the event.Appender interface.
func (el EventLog) Append(ctx context.Context, id event.StreamID, events ...event.Envelope) (version.Version, error) {
	if len(events) == 0 {
		return el.streamVersion(ctx, id)
	}

	var newVersion version.Version

	err := el.Client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		streamRef := el.streamsCollection().Doc(string(id))

		// Firestore transactions require all reads to happen before any write.
		stream := streamDocument{Version: int64(version.Unborn)}
		if err := readDocument(tx, streamRef, &stream); err != nil {
			return fmt.Errorf("failed to read event stream, %w", err)
		}

		var sequence sequenceDocument
		if err := readDocument(tx, el.sequenceDocument(), &sequence); err != nil {
			return fmt.Errorf("failed to read sequence, %w", err)
		}

		for i, evt := range events {
			payload, err := el.Serde.Serialize(evt.Message)
			if err != nil {
				return fmt.Errorf("failed to serialize message, %w", err)
			}

			doc := eventDocument{
				StreamID:       string(id),
				Version:        stream.Version + int64(i) + 1,
				SequenceNumber: sequence.Last + int64(i) + 1,
				Type:           evt.Message.Name(),
				Metadata:       evt.Metadata,
				Payload:        payload,
			}

			docRef := el.eventsCollection().Doc(fmt.Sprintf("%s@%d", id, doc.Version))
			if err := tx.Create(docRef, doc); err != nil {
				return fmt.Errorf("failed to append event, %w", err)
			}
		}

		stream.Version += int64(len(events))
		sequence.Last += int64(len(events))

		if err := tx.Set(streamRef, stream); err != nil {
			return fmt.Errorf("failed to update event stream, %w", err)
		}

		if err := tx.Set(el.sequenceDocument(), sequence); err != nil {
			return fmt.Errorf("failed to update sequence, %w", err)
		}

		newVersion = version.Version(stream.Version)

		return nil
	})
	if err != nil {
		return version.Unborn, fmt.Errorf("replayfirestore.EventLog.Append: failed to commit transaction, %w", err)
	}

	return newVersion, nil
}

func readDocument(tx *firestore.Transaction, ref *firestore.DocumentRef, dst any) error {
	doc, err := tx.Get(ref)
	if isNotFound(err) {
		return nil
	}

	if err != nil {
		return err
	}

	return doc.DataTo(dst)
}

func (el EventLog) streamVersion(ctx context.Context, id event.StreamID) (version.Version, error) {
	doc, err := el.streamsCollection().Doc(string(id)).Get(ctx)
	if isNotFound(err) {
		return version.Unborn, nil
	}

	if err != nil {
		return version.Unborn, fmt.Errorf("replayfirestore.EventLog: failed to get event stream, %w", err)
	}

	var stream streamDocument
	if err := doc.DataTo(&stream); err != nil {
		return version.Unborn, fmt.Errorf("replayfirestore.EventLog: failed to decode event stream, %w", err)
	}

	return version.Version(stream.Version), nil
}

// ReadAll implements the event.Reader interface.
func (el EventLog) ReadAll(ctx context.Context, stream event.StreamWrite, from version.SequenceNumber) error {
	defer close(stream)

	iter := el.eventsCollection().
		Where("sequence_number", ">=", int64(from)). //nolint:gosec // Sequence numbers fit in an int64.
		OrderBy("sequence_number", firestore.Asc).
		Documents(ctx)

	if err := el.sendDocuments(ctx, iter, stream); err != nil {
		return fmt.Errorf("replayfirestore.EventLog.ReadAll: %w", err)
	}

	return nil
}

// Stream implements the event.Streamer interface.
func (el EventLog) Stream(
	ctx context.Context,
	stream event.StreamWrite,
	id event.StreamID,
	selector version.Selector,
) error {
	defer close(stream)

	iter := el.eventsCollection().
		Where("event_stream_id", "==", string(id)).
		Where("version", ">=", int64(selector.From)).
		OrderBy("version", firestore.Asc).
		Documents(ctx)

	if err := el.sendDocuments(ctx, iter, stream); err != nil {
		return fmt.Errorf("replayfirestore.EventLog.Stream: %w", err)
	}

	return nil
}

func (el EventLog) sendDocuments(ctx context.Context, iter *firestore.DocumentIterator, stream event.StreamWrite) error {
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("failed while reading iterator, %w", err)
		}

		var data eventDocument
		if err := doc.DataTo(&data); err != nil {
			return fmt.Errorf("failed to decode event document, %w", err)
		}

		msg, err := el.Serde.Deserialize(data.Payload)
		if err != nil {
			return fmt.Errorf("failed to deserialize message payload, %w", err)
		}

		var metadata message.Metadata
		if len(data.Metadata) > 0 {
			metadata = data.Metadata
		}

		evt := event.Persisted{
			StreamID:       event.StreamID(data.StreamID),
			Version:        version.Version(data.Version),
			SequenceNumber: version.SequenceNumber(data.SequenceNumber), //nolint:gosec // Sequence numbers are positive.
			Envelope: event.Envelope{
				Message:  msg,
				Metadata: metadata,
			},
		}

		select {
		case stream <- evt:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
