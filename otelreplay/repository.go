package otelreplay

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/get-eventually/go-replay/aggregate"
)

// Attribute keys used by the InstrumentedRepository instrumentation.
const (
	AggregateTypeAttribute    attribute.Key = "aggregate.type"
	AggregateVersionAttribute attribute.Key = "aggregate.version"
	AggregateIDAttribute      attribute.Key = "aggregate.id"
)

// InstrumentedRepository is a wrapper type over an aggregate.Repository
// instance to provide instrumentation, in the form of metrics and traces
// using OpenTelemetry.
//
// Use NewInstrumentedRepository for constructing a new instance of this type.
type InstrumentedRepository[I aggregate.ID, T aggregate.Root[I]] struct {
	aggregateType aggregate.Type[I, T]
	repository    aggregate.Repository[I, T]

	tracer         trace.Tracer
	getDuration    metric.Int64Histogram
	saveDuration   metric.Int64Histogram
	updateDuration metric.Int64Histogram
}

func (ir *InstrumentedRepository[I, T]) registerMetrics(meter metric.Meter) error {
	var err error

	if ir.getDuration, err = newDurationHistogram(meter,
		"replay.repository.get.duration",
		"Duration in milliseconds of aggregate.Repository.Get operations performed.",
	); err != nil {
		return err
	}

	if ir.saveDuration, err = newDurationHistogram(meter,
		"replay.repository.save.duration",
		"Duration in milliseconds of aggregate.Repository.Save operations performed.",
	); err != nil {
		return err
	}

	if ir.updateDuration, err = newDurationHistogram(meter,
		"replay.repository.update.duration",
		"Duration in milliseconds of aggregate.Updater.Update operations performed.",
	); err != nil {
		return err
	}

	return nil
}

// NewInstrumentedRepository returns a wrapper type to provide OpenTelemetry
// instrumentation (metrics and traces) around an aggregate.Repository.
//
// The aggregate.Type for the Repository is also used for reporting the
// Aggregate Type name as an attribute.
//
// An error is returned if metrics could not be registered.
func NewInstrumentedRepository[I aggregate.ID, T aggregate.Root[I]](
	aggregateType aggregate.Type[I, T],
	repository aggregate.Repository[I, T],
	options ...Option,
) (*InstrumentedRepository[I, T], error) {
	cfg := newConfig(options...)

	ir := &InstrumentedRepository[I, T]{
		aggregateType: aggregateType,
		repository:    repository,
		tracer:        cfg.tracer(),
	}

	if err := ir.registerMetrics(cfg.meter()); err != nil {
		return nil, err
	}

	return ir, nil
}

func (ir *InstrumentedRepository[I, T]) metricAttributes() []attribute.KeyValue {
	return []attribute.KeyValue{AggregateTypeAttribute.String(ir.aggregateType.Name)}
}

// Get calls the wrapped aggregate.Repository.Get method and records metrics
// and traces around it.
func (ir *InstrumentedRepository[I, T]) Get(ctx context.Context, id I) (result T, err error) {
	ctx, m := startMeasurement(ctx, ir.tracer, ir.getDuration, "aggregate.Repository.Get", ir.metricAttributes(),
		AggregateIDAttribute.String(id.String()),
	)

	defer func() { m.end(ctx, err) }()

	result, err = ir.repository.Get(ctx, id)

	return
}

// Save calls the wrapped aggregate.Repository.Save method and records metrics
// and traces around it.
func (ir *InstrumentedRepository[I, T]) Save(ctx context.Context, root T) (err error) {
	ctx, m := startMeasurement(ctx, ir.tracer, ir.saveDuration, "aggregate.Repository.Save", ir.metricAttributes(),
		AggregateIDAttribute.String(root.AggregateID().String()),
		AggregateVersionAttribute.Int64(int64(root.Version())),
	)

	defer func() { m.end(ctx, err) }()

	err = ir.repository.Save(ctx, root)

	return
}

// Update runs the load-mutate-save sequence on the Aggregate Root identified by id,
// and records metrics and traces around it.
//
// When the wrapped Repository also implements aggregate.Updater, its Update method
// is used, and so are its serialization guarantees. Otherwise, Update falls back
// to a plain Get, fn and Save sequence.
func (ir *InstrumentedRepository[I, T]) Update(ctx context.Context, id I, fn func(T) error) (err error) {
	ctx, m := startMeasurement(ctx, ir.tracer, ir.updateDuration, "aggregate.Repository.Update", ir.metricAttributes(),
		AggregateIDAttribute.String(id.String()),
	)

	defer func() { m.end(ctx, err) }()

	if updater, ok := ir.repository.(aggregate.Updater[I, T]); ok {
		return updater.Update(ctx, id, fn)
	}

	root, err := ir.repository.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("otelreplay.InstrumentedRepository: failed to get aggregate root, %w", err)
	}

	if err := fn(root); err != nil {
		return err
	}

	if err := ir.repository.Save(ctx, root); err != nil {
		return fmt.Errorf("otelreplay.InstrumentedRepository: failed to save aggregate root, %w", err)
	}

	return nil
}
