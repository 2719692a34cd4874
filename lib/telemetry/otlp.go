package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	ProtocolGrpc = "grpc"
	ProtocolHttp = "http"
)

// Exporter is where one signal is pushed to. An empty endpoint disables
// the signal.
type Exporter struct {
	// "grpc" or "http", http when empty
	Protocol string            `json:"protocol"`
	Endpoint string            `json:"endpoint"`
	Headers  map[string]string `json:"headers"`
}

func (e Exporter) enabled() bool {
	return e.Endpoint != ""
}

func (e Exporter) grpc() bool {
	return e.Protocol == ProtocolGrpc
}

func (e Exporter) validate() error {
	switch e.Protocol {
	case "", ProtocolGrpc, ProtocolHttp:
		return nil
	}
	return fmt.Errorf("unknown protocol %q, expected %q or %q", e.Protocol, ProtocolGrpc, ProtocolHttp)
}

// Config is the contents of telemetry.json5.
type Config struct {
	Traces  Exporter `json:"traces"`
	Metrics Exporter `json:"metrics"`
	// duration string, 5s when empty
	MetricInterval string `json:"metric_interval"`
	// share of runs that are traced, every run when 0
	SampleRatio float64 `json:"sample_ratio"`
}

func (c Config) Validate() error {
	err := c.Traces.validate()
	if err != nil {
		return fmt.Errorf("traces: %w", err)
	}
	err = c.Metrics.validate()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	_, err = c.metricInterval()
	if err != nil {
		return err
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("sample_ratio: %v is not between 0 and 1", c.SampleRatio)
	}
	return nil
}

func (c Config) metricInterval() (time.Duration, error) {
	if c.MetricInterval == "" {
		return 5 * time.Second, nil
	}
	interval, err := time.ParseDuration(c.MetricInterval)
	if err != nil {
		return 0, fmt.Errorf("metric_interval: %w", err)
	}
	if interval <= 0 {
		return 0, fmt.Errorf("metric_interval: must be positive, got %s", interval)
	}
	return interval, nil
}

func (c Config) sampler() trace.Sampler {
	if c.SampleRatio == 0 || c.SampleRatio == 1 {
		return trace.ParentBased(trace.AlwaysSample())
	}
	return trace.ParentBased(trace.TraceIDRatioBased(c.SampleRatio))
}

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
}

func newSpanExporter(ctx context.Context, e Exporter) (trace.SpanExporter, error) {
	slog.Debug("exporting traces", "protocol", e.Protocol, "endpoint", e.Endpoint)
	if e.grpc() {
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(e.Endpoint),
			otlptracegrpc.WithHeaders(e.Headers),
		)
	}
	return otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(e.Endpoint),
		otlptracehttp.WithHeaders(e.Headers),
	)
}

func newMetricExporter(ctx context.Context, e Exporter) (metric.Exporter, error) {
	slog.Debug("exporting metrics", "protocol", e.Protocol, "endpoint", e.Endpoint)
	if e.grpc() {
		return otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(e.Endpoint),
			otlpmetricgrpc.WithHeaders(e.Headers),
		)
	}
	return otlpmetrichttp.New(
		ctx,
		otlpmetrichttp.WithEndpointURL(e.Endpoint),
		otlpmetrichttp.WithHeaders(e.Headers),
	)
}

func newTracerProvider(ctx context.Context, r *resource.Resource, c Config) (*trace.TracerProvider, error) {
	exporter, err := newSpanExporter(ctx, c.Traces)
	if err != nil {
		return nil, err
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
		trace.WithSampler(c.sampler()),
	), nil
}

func newMeterProvider(ctx context.Context, r *resource.Resource, c Config) (*metric.MeterProvider, error) {
	interval, err := c.metricInterval()
	if err != nil {
		return nil, err
	}
	exporter, err := newMetricExporter(ctx, c.Metrics)
	if err != nil {
		return nil, err
	}
	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(interval))),
		metric.WithResource(r),
	), nil
}
