// Package observability groups logging, Prometheus metrics and OpenTelemetry
// tracing for the generator, the worker and the web server.
//
// Subpackages:
//   - logging: slog construction and context propagation
//   - metrics: fact and database metrics
//   - tracing: tracer provider and HTTP middleware
package observability
