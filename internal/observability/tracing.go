package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig configures the tracer provider. Grounded on the teacher's
// go.opentelemetry.io/otel wiring in internal/observability/tracing.go,
// minus the OTLP exporter (no collector endpoint in scope for this core;
// the SDK's in-process provider is enough to produce the spans below).
type TracingConfig struct {
	ServiceName string `yaml:"service_name"`
	Enabled     bool   `yaml:"enabled"`
}

// NewTracerProvider builds an SDK tracer provider tagged with the service
// name. Callers are responsible for calling Shutdown on process exit.
func NewTracerProvider(cfg TracingConfig) (*sdktrace.TracerProvider, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	if cfg.Enabled {
		otel.SetTracerProvider(tp)
	}
	return tp, nil
}

// Tracer returns the named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan is a thin convenience wrapper used by the orchestrator around
// each model call and tool dispatch.
func StartSpan(ctx context.Context, tracerName, spanName string) (context.Context, trace.Span) {
	return Tracer(tracerName).Start(ctx, spanName)
}
