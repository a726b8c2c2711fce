// Package tracing wires OpenTelemetry into the pipeline and the web server.
//
// Init installs an SDK tracer provider and the W3C trace-context propagator.
// No exporter is configured: spans give every log line and response a trace
// ID and can be exported by swapping the provider.
//
//	shutdown := tracing.Init(1.0)
//	defer shutdown(context.Background())
//
//	ctx, span := tracing.GetTracer().Start(ctx, "generate.Run")
//	defer span.End()
package tracing
