// Package otel implements internal/trace.Hook on top of OpenTelemetry,
// grounded on xaas-cloud-genai-toolbox's use of the
// GoogleCloudPlatform/opentelemetry-operations-go exporters for the same
// "wrap library internals in spans, let the caller choose the exporter"
// shape: this package only depends on the otel API/SDK, never a concrete
// exporter, so callers wire whichever backend (OTLP, Cloud Trace, stdout)
// they need at their own construction site.
package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	exoptah_trace "github.com/stokaro/exoptah/internal/trace"
)

// Hook adapts an otel/trace.Tracer into internal/trace.Hook.
type Hook struct {
	tracer trace.Tracer
}

// New returns a Hook that starts spans on the tracer registered under
// instrumentationName in the global OpenTelemetry TracerProvider. Callers
// that configure their own TracerProvider should do so before calling New
// (or pass a provider explicitly via NewWithProvider).
func New(instrumentationName string) *Hook {
	return &Hook{tracer: otel.Tracer(instrumentationName)}
}

// NewWithProvider is like New but takes an explicit TracerProvider instead
// of reading the global one, for callers that wire their own SDK.
func NewWithProvider(provider trace.TracerProvider, instrumentationName string) *Hook {
	return &Hook{tracer: provider.Tracer(instrumentationName)}
}

// Span implements internal/trace.Hook.
func (h *Hook) Span(ctx context.Context, name string) (context.Context, func()) {
	spanCtx, span := h.tracer.Start(ctx, name)
	return spanCtx, func() { span.End() }
}

var _ exoptah_trace.Hook = (*Hook)(nil)
