package telemetry

import (
	"context"

	"go.trai.ch/predicate/internal/core/ports"
)

// NoOpTracer discards every span. Tests and library callers without a
// provider use it.
type NoOpTracer struct{}

// NewNoOpTracer returns a tracer that records nothing.
func NewNoOpTracer() *NoOpTracer {
	return &NoOpTracer{}
}

// Start returns ctx unchanged and a span that ignores all calls.
func (NoOpTracer) Start(ctx context.Context, _ string) (context.Context, ports.Span) {
	return ctx, NoOpSpan{}
}

// EmitPlan is a no-op.
func (NoOpTracer) EmitPlan(context.Context, []string) {}

// NoOpSpan ignores every call.
type NoOpSpan struct{}

func (NoOpSpan) End()                     {}
func (NoOpSpan) RecordError(error)        {}
func (NoOpSpan) SetAttribute(string, any) {}
