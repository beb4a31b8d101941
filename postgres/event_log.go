// Package postgres contains an event.Log implementation backed by
// a PostgreSQL database, using the pgx driver.
//
// Run RunMigrations before using the EventLog to create the necessary tables.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/get-eventually/go-replay/event"
	"github.com/get-eventually/go-replay/logger"
	"github.com/get-eventually/go-replay/message"
	"github.com/get-eventually/go-replay/serde"
	"github.com/get-eventually/go-replay/version"
)

var _ event.Log = new(EventLog)

// appendLockKey is the transaction-level advisory lock taken by Append,
// so that sequence numbers become visible to readers in commit order.
const appendLockKey int64 = 0x7265706c6179 // "replay"

// EventLog is an event.Log implementation targeted to PostgreSQL databases.
//
// The implementation uses "event_streams" and "events" as their
// operational tables. Updates to these tables are transactional.
//
// Appends are serialized through an advisory lock, so the Event Log
// keeps a global total order across all Event Streams.
type EventLog struct {
	conn   *pgxpool.Pool
	serde  serde.Bytes[message.Message]
	logger logger.Logger
}

// NewEventLog returns a new EventLog using the provided connection pool
// and serde to map Domain Events to their persisted representation.
func NewEventLog(conn *pgxpool.Pool, messageSerde serde.Bytes[message.Message], options ...Option[*EventLog]) *EventLog {
	el := &EventLog{
		conn:   conn,
		serde:  messageSerde,
		logger: nil,
	}

	for _, opt := range options {
		opt.apply(el)
	}

	return el
}

// Append implements the event.Appender interface.
func (el *EventLog) Append(ctx context.Context, id event.StreamID, events ...event.Envelope) (version.Version, error) {
	if len(events) == 0 {
		return el.streamVersion(ctx, id)
	}

	var newVersion version.Version

	txOptions := pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	}

	if err := pgx.BeginTxFunc(ctx, el.conn, txOptions, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", appendLockKey); err != nil {
			return fmt.Errorf("failed to acquire append lock, %w", err)
		}

		v, err := appendDomainEvents(ctx, tx, el.serde, id, events...)
		newVersion = v

		return err
	}); err != nil {
		return version.Unborn, fmt.Errorf("postgres.EventLog: failed to append domain events, %w", err)
	}

	logger.Debug(el.logger, "Appended events to PostgreSQL event log",
		logger.With("stream_id", id),
		logger.With("count", len(events)),
		logger.With("version", newVersion),
	)

	return newVersion, nil
}

func (el *EventLog) streamVersion(ctx context.Context, id event.StreamID) (version.Version, error) {
	var v int64

	err := el.conn.QueryRow(ctx,
		`SELECT "version" FROM event_streams WHERE event_stream_id = $1`,
		string(id),
	).Scan(&v)

	if errors.Is(err, pgx.ErrNoRows) {
		return version.Unborn, nil
	}

	if err != nil {
		return version.Unborn, fmt.Errorf("postgres.EventLog: failed to read event stream version, %w", err)
	}

	return version.Version(v), nil
}

// ReadAll implements the event.Reader interface.
func (el *EventLog) ReadAll(ctx context.Context, stream event.StreamWrite, from version.SequenceNumber) error {
	defer close(stream)

	rows, err := el.conn.Query(ctx,
		`SELECT sequence_number, event_stream_id, "version", event, metadata FROM events
		WHERE sequence_number >= $1
		ORDER BY sequence_number`,
		int64(from), //nolint:gosec // Sequence numbers are generated by a BIGSERIAL column.
	)
	if err != nil {
		return fmt.Errorf("postgres.EventLog: failed to query events table, %w", err)
	}

	if err := el.sendRows(ctx, rows, stream); err != nil {
		return fmt.Errorf("postgres.EventLog: failed to read events, %w", err)
	}

	return nil
}

// Stream implements the event.Streamer interface.
func (el *EventLog) Stream(
	ctx context.Context,
	stream event.StreamWrite,
	id event.StreamID,
	selector version.Selector,
) error {
	defer close(stream)

	rows, err := el.conn.Query(ctx,
		`SELECT sequence_number, event_stream_id, "version", event, metadata FROM events
		WHERE event_stream_id = $1 AND "version" >= $2
		ORDER BY "version"`,
		string(id), int64(selector.From),
	)
	if err != nil {
		return fmt.Errorf("postgres.EventLog: failed to query events table, %w", err)
	}

	if err := el.sendRows(ctx, rows, stream); err != nil {
		return fmt.Errorf("postgres.EventLog: failed to stream events, %w", err)
	}

	return nil
}

func (el *EventLog) sendRows(ctx context.Context, rows pgx.Rows, stream event.StreamWrite) error {
	defer rows.Close()

	for rows.Next() {
		var (
			sequenceNumber int64
			streamID       string
			eventVersion   int64
			rawEvent       []byte
			rawMetadata    []byte
		)

		if err := rows.Scan(&sequenceNumber, &streamID, &eventVersion, &rawEvent, &rawMetadata); err != nil {
			return fmt.Errorf("failed to scan next row, %w", err)
		}

		msg, err := el.serde.Deserialize(rawEvent)
		if err != nil {
			return fmt.Errorf("failed to deserialize event, %w", err)
		}

		metadata, err := deserializeMetadata(rawMetadata)
		if err != nil {
			return err
		}

		evt := event.Persisted{
			StreamID:       event.StreamID(streamID),
			Version:        version.Version(eventVersion),
			SequenceNumber: version.SequenceNumber(sequenceNumber), //nolint:gosec // BIGSERIAL values are positive.
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

	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate rows, %w", err)
	}

	return nil
}

func appendDomainEvents(
	ctx context.Context,
	tx pgx.Tx,
	messageSerializer serde.Serializer[message.Message, []byte],
	id event.StreamID,
	events ...event.Envelope,
) (version.Version, error) {
	var newVersion int64

	if err := tx.QueryRow(ctx,
		`INSERT INTO event_streams (event_stream_id, "version")
		VALUES ($1, $2)
		ON CONFLICT (event_stream_id) DO
		UPDATE SET "version" = event_streams."version" + $3
		RETURNING "version"`,
		string(id), int64(len(events)-1), int64(len(events)),
	).Scan(&newVersion); err != nil {
		return version.Unborn, fmt.Errorf("failed to update event stream, %w", err)
	}

	firstVersion := newVersion - int64(len(events)) + 1

	for i, evt := range events {
		if err := appendDomainEvent(ctx, tx, messageSerializer, id, firstVersion+int64(i), evt); err != nil {
			return version.Unborn, err
		}
	}

	return version.Version(newVersion), nil
}

func appendDomainEvent(
	ctx context.Context,
	tx pgx.Tx,
	messageSerializer serde.Serializer[message.Message, []byte],
	id event.StreamID,
	eventVersion int64,
	evt event.Envelope,
) error {
	msg := evt.Message

	data, err := messageSerializer.Serialize(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize domain event, %w", err)
	}

	metadata, err := serializeMetadata(evt.Metadata)
	if err != nil {
		return err
	}

	if _, err = tx.Exec(ctx,
		`INSERT INTO events (event_stream_id, "type", "version", event, metadata)
		VALUES ($1, $2, $3, $4, $5)`,
		string(id), msg.Name(), eventVersion, data, metadata,
	); err != nil {
		return fmt.Errorf("failed to append new domain event to event log, %w", err)
	}

	return nil
}

func serializeMetadata(metadata message.Metadata) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata to json, %w", err)
	}

	return data, nil
}

func deserializeMetadata(data []byte) (message.Metadata, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var metadata message.Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata from json, %w", err)
	}

	return metadata, nil
}
