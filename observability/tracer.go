package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "github.com/kbukum/ormtest/observability"

// TracerConfig configures the tracer provider.
type TracerConfig struct {
	// ServiceName identifies the test binary in exported spans.
	ServiceName string
	// SampleRate is the sampling rate (0.0 to 1.0).
	SampleRate float64
}

// DefaultTracerConfig samples every span.
func DefaultTracerConfig(serviceName string) TracerConfig {
	return TracerConfig{ServiceName: serviceName, SampleRate: 1.0}
}

// NewTracerProvider builds an SDK tracer provider and installs it globally.
// Exporters or span processors are passed through opts.
// The caller owns Shutdown.
func NewTracerProvider(cfg TracerConfig, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	res := resource.NewSchemaless(semconv.ServiceName(cfg.ServiceName))
	base := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	}
	tp := sdktrace.NewTracerProvider(append(base, opts...)...)
	otel.SetTracerProvider(tp)
	return tp
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan starts a new span using the default tracer.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer(defaultTracerName).Start(ctx, name, opts...)
}

// SpanFromContext returns the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// SetSpanAttribute sets an attribute on the current span in context.
func SetSpanAttribute(ctx context.Context, key string, value any) {
	span := SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	case []string:
		span.SetAttributes(attribute.StringSlice(key, v))
	}
}

// SetSpanError records an error on the current span in context.
func SetSpanError(ctx context.Context, err error) {
	span := SpanFromContext(ctx)
	if span.IsRecording() {
		span.RecordError(err)
	}
}

// Span names emitted by the harness.
const (
	SpanSetUpDatabase    = "ormtest.SetUpDatabase"
	SpanTearDownDatabase = "ormtest.TearDownDatabase"
	SpanLoadFixtures     = "ormtest.LoadFixtures"
)

// Attribute keys set on harness spans.
const (
	AttrSchemaCached   = "ormtest.schema_cached"
	AttrFixturesCached = "ormtest.fixtures_cached"
	AttrEntityCount    = "ormtest.entity_count"
	AttrDurationMs     = "duration_ms"
	AttrStatus         = "status"
	AttrErrorMessage   = "error.message"
)
