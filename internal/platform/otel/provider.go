// Package otel wires OpenTelemetry tracing for service processes.
package otel

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Settings controls tracer provider registration.
type Settings struct {
	ServiceName string
	Endpoint    string
	// Disabled forces a no-op provider even when Endpoint is set.
	Disabled bool
	// SampleRatio is the fraction of new root traces recorded. Values outside
	// (0, 1) record every trace.
	SampleRatio float64
}

// Setup initialises OpenTelemetry tracing.
//
// Tracing is opt-in: when the endpoint is empty or tracing is disabled, Setup
// returns a no-op shutdown function and no global provider is registered. The
// W3C trace-context propagator is always installed so outbound requests carry
// incoming trace headers.
//
// The returned shutdown function flushes pending spans and should be deferred
// by the caller.
func Setup(ctx context.Context, settings Settings) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	otel.SetTextMapPropagator(propagation.TraceContext{})

	endpoint := strings.TrimSpace(settings.Endpoint)
	if settings.Disabled || endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
	)
	if err != nil {
		return noop, err
	}

	serviceName := strings.TrimSpace(settings.ServiceName)
	if serviceName == "" {
		serviceName = "diagnosis"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(settings.SampleRatio)),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// sampler honors the caller's sampling decision and applies ratio to roots.
func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}
