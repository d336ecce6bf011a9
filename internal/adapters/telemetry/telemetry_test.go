package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/predicate/internal/adapters/telemetry"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/predicate/internal/core/ports"
	"go.trai.ch/zerr"
)

func TestInterfaceSatisfaction(_ *testing.T) {
	var _ ports.Tracer = (*telemetry.OTelTracer)(nil)
	var _ ports.Span = (*telemetry.OTelSpan)(nil)
	var _ ports.Tracer = (*telemetry.NoOpTracer)(nil)
	var _ ports.Span = telemetry.NoOpSpan{}
}

func newRecordingProvider(t *testing.T) (*tracetest.SpanRecorder, *telemetry.Provider) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	p, err := telemetry.NewProvider(context.Background(), domain.TelemetryConfig{}, sdktrace.WithSpanProcessor(sr))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return sr, p
}

func TestOTelTracer_SpanAttributesAndError(t *testing.T) {
	sr, p := newRecordingProvider(t)
	tracer := p.Tracer()

	_, span := tracer.Start(context.Background(), "pipeline.device")
	span.SetAttribute("device.id", "K201234")
	span.SetAttribute("citations", 3)
	span.SetAttribute("stale", true)
	span.SetAttribute("other", struct{ A int }{A: 1})
	span.SetAttribute("waited", 1500*time.Millisecond)
	span.SetAttribute("confidence", domain.ConfidenceMedium)
	span.RecordError(zerr.With(zerr.Wrap(domain.ErrDocumentUnavailable, "no source served the document"), "id", "K201234"))
	span.RecordError(nil)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "pipeline.device", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Status().Description, "document unavailable")

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "K201234", attrs["device.id"])
	assert.Equal(t, "3", attrs["citations"])
	assert.Equal(t, "true", attrs["stale"])
	assert.Equal(t, "{1}", attrs["other"])
	assert.Equal(t, "1500", attrs["waited.ms"])
	assert.Equal(t, "medium", attrs["confidence"])
	assert.Equal(t, "K201234", attrs["error.id"])
}

func TestOTelTracer_EmitPlan(t *testing.T) {
	sr, p := newRecordingProvider(t)
	tracer := p.Tracer()

	// Without an active span nothing is recorded.
	tracer.EmitPlan(context.Background(), []string{"K201234"})
	assert.Empty(t, sr.Ended())

	ctx, span := tracer.Start(context.Background(), "pipeline.build")
	tracer.EmitPlan(ctx, []string{"K201234", "K180001"})
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	events := spans[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "devices_planned", events[0].Name)
	assert.Contains(t, events[0].Attributes, attribute.Int("devices.count", 2))
}

func TestOTelTracer_ChildSpansShareTrace(t *testing.T) {
	sr, p := newRecordingProvider(t)
	tracer := p.Tracer()

	ctx, parent := tracer.Start(context.Background(), "parent")
	_, child := tracer.Start(ctx, "child")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[0].SpanContext().TraceID(), spans[1].SpanContext().TraceID())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestNoOpTracer_Start(t *testing.T) {
	tracer := telemetry.NewNoOpTracer()

	ctx := context.Background()
	got, span := tracer.Start(ctx, "test-span")
	assert.Equal(t, ctx, got)

	span.SetAttribute("key", "value")
	span.RecordError(errors.New("ignored"))
	tracer.EmitPlan(ctx, []string{"K201234"})
	span.End()
}
