package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation is a traced unit of harness work.
type Operation struct {
	Name      string
	StartTime time.Time
	span      trace.Span
	metrics   *Metrics
	ctx       context.Context
}

// StartOperation starts a span named name and returns the derived context.
func StartOperation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *Operation) {
	ctx, span := StartSpan(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &Operation{Name: name, StartTime: time.Now(), span: span, ctx: ctx}
}

// WithMetrics makes End also record into m.
func (op *Operation) WithMetrics(m *Metrics) *Operation {
	op.metrics = m
	return op
}

// Span returns the underlying span.
func (op *Operation) Span() trace.Span {
	return op.span
}

// End records the outcome and ends the span. A nil err marks it ok.
func (op *Operation) End(err error) {
	status := "ok"
	if err != nil {
		status = "error"
		op.span.RecordError(err)
		op.span.SetStatus(codes.Error, err.Error())
		op.span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	op.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, op.Duration().Milliseconds()),
	)
	op.span.End()
	op.metrics.RecordOperation(op.ctx, op.Name, status, op.Duration())
}

// Duration returns the elapsed time since the operation started.
func (op *Operation) Duration() time.Duration {
	return time.Since(op.StartTime)
}
