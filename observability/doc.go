// Package observability wraps OpenTelemetry tracing for the harness.
//
// Spans go to the global tracer provider, which is a no-op unless the test
// binary installs one:
//
//	tp := observability.NewTracerProvider(observability.DefaultTracerConfig("orders-test"))
//	defer tp.Shutdown(ctx)
//
//	ctx, op := observability.StartOperation(ctx, "ormtest.SetUpDatabase")
//	defer func() { op.End(err) }()
package observability
