// Package sqlite contains an event.Log implementation backed by
// a SQLite database file, using the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/get-eventually/go-replay/event"
	"github.com/get-eventually/go-replay/logger"
	"github.com/get-eventually/go-replay/message"
	"github.com/get-eventually/go-replay/serde"
	"github.com/get-eventually/go-replay/version"
)

var _ event.Log = new(EventLog)

// Open opens the SQLite database at the specified path, creating it if missing.
//
// SQLite allows a single writer at a time, so the returned handle uses
// one connection: this also gives the EventLog a global total order.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: failed to open database, %w", err)
	}

	db.SetMaxOpenConns(1)

	return db, nil
}

// EventLog is an event.Log implementation targeted to SQLite databases.
//
// The implementation uses "event_streams" and "events" as their
// operational tables, like the postgres one. Updates to these tables are transactional.
type EventLog struct {
	db     *sql.DB
	serde  serde.Bytes[message.Message]
	logger logger.Logger
}

// NewEventLog returns a new EventLog using the provided database handle
// and serde to map Domain Events to their persisted representation.
func NewEventLog(db *sql.DB, messageSerde serde.Bytes[message.Message], options ...Option[*EventLog]) *EventLog {
	el := &EventLog{
		db:     db,
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

	tx, err := el.db.BeginTx(ctx, nil)
	if err != nil {
		return version.Unborn, fmt.Errorf("sqlite.EventLog: failed to begin transaction, %w", err)
	}

	defer func() {
		// No effect if the transaction has been committed.
		_ = tx.Rollback()
	}()

	newVersion, err := el.appendDomainEvents(ctx, tx, id, events)
	if err != nil {
		return version.Unborn, fmt.Errorf("sqlite.EventLog: failed to append domain events, %w", err)
	}

	if err := tx.Commit(); err != nil {
		return version.Unborn, fmt.Errorf("sqlite.EventLog: failed to commit transaction, %w", err)
	}

	logger.Debug(el.logger, "Appended events to SQLite event log",
		logger.With("stream_id", id),
		logger.With("count", len(events)),
		logger.With("version", newVersion),
	)

	return newVersion, nil
}

func (el *EventLog) streamVersion(ctx context.Context, id event.StreamID) (version.Version, error) {
	var v int64

	err := el.db.QueryRowContext(ctx,
		`SELECT "version" FROM event_streams WHERE event_stream_id = ?`,
		string(id),
	).Scan(&v)

	if errors.Is(err, sql.ErrNoRows) {
		return version.Unborn, nil
	}

	if err != nil {
		return version.Unborn, fmt.Errorf("sqlite.EventLog: failed to read event stream version, %w", err)
	}

	return version.Version(v), nil
}

func (el *EventLog) appendDomainEvents(
	ctx context.Context,
	tx *sql.Tx,
	id event.StreamID,
	events []event.Envelope,
) (version.Version, error) {
	var newVersion int64

	if err := tx.QueryRowContext(ctx,
		`INSERT INTO event_streams (event_stream_id, "version")
		VALUES (?, ?)
		ON CONFLICT (event_stream_id) DO
		UPDATE SET "version" = "version" + ?
		RETURNING "version"`,
		string(id), len(events)-1, len(events),
	).Scan(&newVersion); err != nil {
		return version.Unborn, fmt.Errorf("failed to update event stream, %w", err)
	}

	firstVersion := newVersion - int64(len(events)) + 1

	for i, evt := range events {
		data, err := el.serde.Serialize(evt.Message)
		if err != nil {
			return version.Unborn, fmt.Errorf("failed to serialize domain event, %w", err)
		}

		metadata, err := serializeMetadata(evt.Metadata)
		if err != nil {
			return version.Unborn, err
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (event_stream_id, "type", "version", event, metadata)
			VALUES (?, ?, ?, ?, ?)`,
			string(id), evt.Message.Name(), firstVersion+int64(i), data, metadata,
		); err != nil {
			return version.Unborn, fmt.Errorf("failed to append new domain event to event log, %w", err)
		}
	}

	return version.Version(newVersion), nil
}

// ReadAll implements the event.Reader interface.
func (el *EventLog) ReadAll(ctx context.Context, stream event.StreamWrite, from version.SequenceNumber) error {
	defer close(stream)

	rows, err := el.db.QueryContext(ctx,
		`SELECT sequence_number, event_stream_id, "version", event, metadata FROM events
		WHERE sequence_number >= ?
		ORDER BY sequence_number`,
		int64(from), //nolint:gosec // Sequence numbers are generated by an AUTOINCREMENT column.
	)
	if err != nil {
		return fmt.Errorf("sqlite.EventLog: failed to query events table, %w", err)
	}

	if err := el.sendRows(ctx, rows, stream); err != nil {
		return fmt.Errorf("sqlite.EventLog: failed to read events, %w", err)
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

	rows, err := el.db.QueryContext(ctx,
		`SELECT sequence_number, event_stream_id, "version", event, metadata FROM events
		WHERE event_stream_id = ? AND "version" >= ?
		ORDER BY "version"`,
		string(id), int64(selector.From),
	)
	if err != nil {
		return fmt.Errorf("sqlite.EventLog: failed to query events table, %w", err)
	}

	if err := el.sendRows(ctx, rows, stream); err != nil {
		return fmt.Errorf("sqlite.EventLog: failed to stream events, %w", err)
	}

	return nil
}

func (el *EventLog) sendRows(ctx context.Context, rows *sql.Rows, stream event.StreamWrite) error {
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
			SequenceNumber: version.SequenceNumber(sequenceNumber), //nolint:gosec // AUTOINCREMENT values are positive.
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

func serializeMetadata(metadata message.Metadata) (any, error) {
	if len(metadata) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata to json, %w", err)
	}

	return string(data), nil
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
