// Package otelreplay provides OpenTelemetry instrumentation, in the form of
// traces and duration histograms, for event.Log and aggregate.Repository
// implementations.
package otelreplay

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/get-eventually/go-replay/otelreplay"

// ErrorAttribute is recorded on every duration histogram,
// and reports whether the instrumented operation failed.
const ErrorAttribute attribute.Key = "error"

type config struct {
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

func (c config) meter() metric.Meter {
	return c.MeterProvider.Meter(instrumentationName)
}

func (c config) tracer() trace.Tracer {
	return c.TracerProvider.Tracer(instrumentationName)
}

// Option specifies instrumentation configuration options.
type Option interface {
	apply(*config)
}

type meterProviderOption struct{ metric.MeterProvider }

func (o meterProviderOption) apply(c *config) {
	c.MeterProvider = o.MeterProvider
}

// WithMeterProvider specifies the metric.MeterProvider instance to use for the instrumentation.
// By default, the global metric.MeterProvider is used.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return meterProviderOption{provider}
}

type tracerProviderOption struct{ trace.TracerProvider }

func (o tracerProviderOption) apply(c *config) {
	c.TracerProvider = o.TracerProvider
}

// WithTracerProvider specifies the trace.TracerProvider instance to use for the instrumentation.
// By default, the global trace.TracerProvider is used.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return tracerProviderOption{provider}
}

func newConfig(opts ...Option) config {
	c := config{
		MeterProvider:  otel.GetMeterProvider(),
		TracerProvider: otel.GetTracerProvider(),
	}

	for _, opt := range opts {
		opt.apply(&c)
	}

	return c
}

func newDurationHistogram(meter metric.Meter, name, description string) (metric.Int64Histogram, error) {
	histogram, err := meter.Int64Histogram(name,
		metric.WithUnit("ms"),
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("otelreplay: failed to register %s metric, %w", name, err)
	}

	return histogram, nil
}

// measurement tracks a single instrumented call, from span start
// to the histogram record.
type measurement struct {
	span       trace.Span
	start      time.Time
	histogram  metric.Int64Histogram
	attributes []attribute.KeyValue
}

// startMeasurement opens a new span named after the operation. Span attributes
// are only added to the span; metric attributes are added to both,
// so keep them low-cardinality.
func startMeasurement(
	ctx context.Context,
	tracer trace.Tracer,
	histogram metric.Int64Histogram,
	operation string,
	metricAttributes []attribute.KeyValue,
	spanAttributes ...attribute.KeyValue,
) (context.Context, *measurement) {
	attributes := make([]attribute.KeyValue, 0, len(metricAttributes)+len(spanAttributes))
	attributes = append(attributes, metricAttributes...)
	attributes = append(attributes, spanAttributes...)

	ctx, span := tracer.Start(ctx, operation, trace.WithAttributes(attributes...))

	return ctx, &measurement{
		span:       span,
		start:      time.Now(),
		histogram:  histogram,
		attributes: metricAttributes,
	}
}

func (m *measurement) end(ctx context.Context, err error) {
	attributes := append(m.attributes, ErrorAttribute.Bool(err != nil)) //nolint:gocritic // Copy on purpose.
	m.histogram.Record(ctx, time.Since(m.start).Milliseconds(), metric.WithAttributes(attributes...))

	if err != nil {
		m.span.RecordError(err)
		m.span.SetStatus(codes.Error, err.Error())
	}

	m.span.End()
}
