// Package telemetry sets up the OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/stellarlinkco/datadog-mcp/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	instrumentationName = "github.com/stellarlinkco/datadog-mcp"
	tracesPath          = "/v1/traces"
)

// Provider owns the process tracer provider.
type Provider struct {
	provider trace.TracerProvider
	shutdown func(context.Context) error
	enabled  bool
}

// Setup returns a no-op provider when no OTLP endpoint is configured.
// Otherwise spans are batched to the endpoint over OTLP/HTTP and the provider
// becomes the global one, so otelhttp transports pick it up.
func Setup(ctx context.Context, cfg config.TelemetryConfig) (*Provider, error) {
	if cfg.Endpoint == "" {
		return &Provider{
			provider: noop.NewTracerProvider(),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	opts, err := endpointOptions(cfg)
	if err != nil {
		return nil, err
	}
	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = config.DefaultServiceName
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{provider: tp, shutdown: tp.Shutdown, enabled: true}, nil
}

// endpointOptions accepts both forms of the endpoint. A URL, as
// OTEL_EXPORTER_OTLP_ENDPOINT carries it, is a base that /v1/traces is
// appended to and whose scheme decides TLS. A bare host:port uses the default
// path and honours Insecure.
func endpointOptions(cfg config.TelemetryConfig) ([]otlptracehttp.Option, error) {
	if !strings.Contains(cfg.Endpoint, "://") {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return opts, nil
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("telemetry: invalid endpoint %q", cfg.Endpoint)
	}
	if !strings.HasSuffix(u.Path, tracesPath) {
		u.Path = strings.TrimSuffix(u.Path, "/") + tracesPath
	}
	return []otlptracehttp.Option{otlptracehttp.WithEndpointURL(u.String())}, nil
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool {
	return p.enabled
}

func (p *Provider) Tracer() trace.Tracer {
	return p.provider.Tracer(instrumentationName)
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}
