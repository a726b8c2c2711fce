package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the instrumentation scope of every span.
const TracerName = "historia-diaria"

// GetTracer returns the tracer of the current global provider.
func GetTracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// Init installs a tracer provider sampling ratio of new root traces (parent
// decisions are honoured) and the trace-context propagator. The returned
// function flushes and stops the provider.
func Init(ratio float64) func(context.Context) error {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown
}
