package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// NewMeterProvider builds an SDK meter provider and installs it globally.
// Readers are passed through opts. The caller owns Shutdown.
func NewMeterProvider(opts ...sdkmetric.Option) *sdkmetric.MeterProvider {
	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	return mp
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the harness instruments.
type Metrics struct {
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
	cacheTotal        metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	operationTotal, err := meter.Int64Counter("ormtest.operation.total",
		metric.WithDescription("Total number of database setup and teardown operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ormtest.operation.total counter: %w", err)
	}

	operationDuration, err := meter.Float64Histogram("ormtest.operation.duration",
		metric.WithDescription("Duration of database setup and teardown in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ormtest.operation.duration histogram: %w", err)
	}

	cacheTotal, err := meter.Int64Counter("ormtest.cache.total",
		metric.WithDescription("Schema and fixture cache lookups by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ormtest.cache.total counter: %w", err)
	}

	return &Metrics{
		operationTotal:    operationTotal,
		operationDuration: operationDuration,
		cacheTotal:        cacheTotal,
	}, nil
}

// RecordOperation records a finished operation.
func (m *Metrics) RecordOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordCache records a cache lookup; kind is "schema" or "fixtures".
func (m *Metrics) RecordCache(ctx context.Context, kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", kind),
		attribute.String("result", result),
	))
}
