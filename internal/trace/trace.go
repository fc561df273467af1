// Package trace defines a tracing hook interface. The resolver, differ, and
// solver do not take a Hook; a caller wraps its own units of work with one.
// A Hook is deliberately the smallest interface that lets a caller wrap a
// span around a named unit of work; NoOp satisfies it with zero overhead,
// and internal/trace/otel provides an OpenTelemetry-backed implementation.
package trace

import "context"

// Hook starts a span named name for the duration of the returned function.
// Callers invoke the returned func when the span ends, typically via
// defer: `ctx, end := hook.Span(ctx, "resolver.Build"); defer end()`.
type Hook interface {
	Span(ctx context.Context, name string) (context.Context, func())
}

// noop is a Hook that does nothing, usable wherever a non-nil Hook is
// needed so Span can be invoked unconditionally.
type noop struct{}

func (noop) Span(ctx context.Context, _ string) (context.Context, func()) {
	return ctx, func() {}
}

// NoOp is a Hook that starts no span and returns ctx unchanged.
var NoOp Hook = noop{}
