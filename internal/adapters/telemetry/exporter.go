package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/zerr"
)

// ServiceName identifies pred in exported traces.
const ServiceName = "pred"

// Provider owns the tracer provider and flushes it on Shutdown.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// NewProvider builds a tracer provider. Spans are exported over OTLP HTTP when
// cfg names an endpoint; otherwise they are sampled but never leave the process.
func NewProvider(ctx context.Context, cfg domain.TelemetryConfig, opts ...sdktrace.TracerProviderOption) (*Provider, error) {
	res := resource.NewSchemaless(attribute.String("service.name", ServiceName))
	options := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	if cfg.OTLPEndpoint != "" {
		exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to create trace exporter"), "endpoint", cfg.OTLPEndpoint)
		}
		options = append(options, sdktrace.WithBatcher(exporter))
	}

	options = append(options, opts...)
	return &Provider{tp: sdktrace.NewTracerProvider(options...)}, nil
}

// Tracer returns a ports.Tracer backed by the provider.
func (p *Provider) Tracer() *OTelTracer {
	return NewOTelTracer(p.tp, ServiceName)
}

// Shutdown flushes pending spans and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.tp.Shutdown(ctx); err != nil {
		return zerr.Wrap(err, "failed to shut down tracer provider")
	}
	return nil
}
