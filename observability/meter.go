package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/sweep/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// PipelineMetrics holds the instruments a pipeline run reports into.
type PipelineMetrics struct {
	reports      metric.Int64Counter
	itemDuration metric.Float64Histogram
	rate         metric.Float64Gauge
	backlog      metric.Int64Gauge
}

// NewPipelineMetrics creates metric instruments on the given meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	reports, err := meter.Int64Counter("pipeline.reports",
		metric.WithDescription("Reports observed by the aggregator, by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.reports counter: %w", err)
	}

	itemDuration, err := meter.Float64Histogram("pipeline.item.duration",
		metric.WithDescription("Time spent processing one item in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.item.duration histogram: %w", err)
	}

	rate, err := meter.Float64Gauge("pipeline.rate",
		metric.WithDescription("Smoothed processed items per second"),
		metric.WithUnit("{item}/s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.rate gauge: %w", err)
	}

	backlog, err := meter.Int64Gauge("pipeline.backlog",
		metric.WithDescription("Items waiting in the work queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.backlog gauge: %w", err)
	}

	return &PipelineMetrics{
		reports:      reports,
		itemDuration: itemDuration,
		rate:         rate,
		backlog:      backlog,
	}, nil
}

// RecordReport counts one report of the given kind.
func (m *PipelineMetrics) RecordReport(ctx context.Context, kind string) {
	m.reports.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrKind, kind)))
}

// RecordListed counts a chunk of n listed items.
func (m *PipelineMetrics) RecordListed(ctx context.Context, n int) {
	m.reports.Add(ctx, int64(n), metric.WithAttributes(attribute.String(AttrKind, "listed")))
}

// RecordItem records how long processing one item took.
func (m *PipelineMetrics) RecordItem(ctx context.Context, status string, duration time.Duration) {
	m.itemDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrStatus, status),
	))
}

// RecordSummary records the values published at a summary boundary.
func (m *PipelineMetrics) RecordSummary(ctx context.Context, rate float64, backlog int) {
	m.rate.Record(ctx, rate)
	m.backlog.Record(ctx, int64(backlog))
}
