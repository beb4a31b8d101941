package otelreplay

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/get-eventually/go-replay/event"
	"github.com/get-eventually/go-replay/version"
)

// Attribute keys used by the InstrumentedLog instrumentation.
const (
	EventStreamIDKey              attribute.Key = "event_stream.id"
	EventStreamVersionSelectorKey attribute.Key = "event_stream.select_from_version"
	EventStreamVersionKey         attribute.Key = "event_stream.version"
	EventLogNumEventsKey          attribute.Key = "event_log.num_events"
	EventLogFromSequenceKey       attribute.Key = "event_log.from_sequence_number"
)

var _ event.Log = new(InstrumentedLog)

// InstrumentedLog is a wrapper type over an event.Log
// instance to provide instrumentation, in the form of metrics and traces
// using OpenTelemetry.
//
// Use NewInstrumentedLog for constructing a new instance of this type.
type InstrumentedLog struct {
	eventLog event.Log

	tracer          trace.Tracer
	appendDuration  metric.Int64Histogram
	readAllDuration metric.Int64Histogram
	streamDuration  metric.Int64Histogram
}

func (il *InstrumentedLog) registerMetrics(meter metric.Meter) error {
	var err error

	if il.appendDuration, err = newDurationHistogram(meter,
		"replay.event_log.append.duration",
		"Duration in milliseconds of event.Log.Append operations performed.",
	); err != nil {
		return err
	}

	if il.readAllDuration, err = newDurationHistogram(meter,
		"replay.event_log.read_all.duration",
		"Duration in milliseconds of event.Log.ReadAll operations performed.",
	); err != nil {
		return err
	}

	if il.streamDuration, err = newDurationHistogram(meter,
		"replay.event_log.stream.duration",
		"Duration in milliseconds of event.Log.Stream operations performed.",
	); err != nil {
		return err
	}

	return nil
}

// NewInstrumentedLog returns a wrapper type to provide OpenTelemetry
// instrumentation (metrics and traces) around an event.Log.
//
// An error is returned if metrics could not be registered.
func NewInstrumentedLog(eventLog event.Log, options ...Option) (*InstrumentedLog, error) {
	cfg := newConfig(options...)

	il := &InstrumentedLog{
		eventLog: eventLog,
		tracer:   cfg.tracer(),
	}

	if err := il.registerMetrics(cfg.meter()); err != nil {
		return nil, err
	}

	return il, nil
}

// Append calls the wrapped event.Log.Append method and records metrics and traces around it.
func (il *InstrumentedLog) Append(
	ctx context.Context,
	id event.StreamID,
	events ...event.Envelope,
) (newVersion version.Version, err error) {
	ctx, m := startMeasurement(ctx, il.tracer, il.appendDuration, "event.Log.Append", nil,
		EventStreamIDKey.String(string(id)),
		EventLogNumEventsKey.Int(len(events)),
	)

	defer func() {
		if err == nil {
			m.span.SetAttributes(EventStreamVersionKey.Int64(int64(newVersion)))
		}

		m.end(ctx, err)
	}()

	newVersion, err = il.eventLog.Append(ctx, id, events...)

	return
}

// ReadAll calls the wrapped event.Log.ReadAll method and records metrics and traces around it.
func (il *InstrumentedLog) ReadAll(
	ctx context.Context,
	stream event.StreamWrite,
	from version.SequenceNumber,
) (err error) {
	ctx, m := startMeasurement(ctx, il.tracer, il.readAllDuration, "event.Log.ReadAll", nil,
		EventLogFromSequenceKey.Int64(int64(from)), //nolint:gosec // Sequence numbers fit in an int64.
	)

	defer func() { m.end(ctx, err) }()

	err = il.eventLog.ReadAll(ctx, stream, from)

	return
}

// Stream calls the wrapped event.Log.Stream method and records metrics and traces around it.
func (il *InstrumentedLog) Stream(
	ctx context.Context,
	stream event.StreamWrite,
	id event.StreamID,
	selector version.Selector,
) (err error) {
	ctx, m := startMeasurement(ctx, il.tracer, il.streamDuration, "event.Log.Stream", nil,
		EventStreamIDKey.String(string(id)),
		EventStreamVersionSelectorKey.Int64(int64(selector.From)),
	)

	defer func() { m.end(ctx, err) }()

	err = il.eventLog.Stream(ctx, stream, id, selector)

	return
}
