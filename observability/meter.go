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

	"github.com/kbukum/orthotile/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows plain HTTP.
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The returned provider must be shut down at run end.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
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

	res, err := newResource(config.ServiceName, config.ServiceVersion)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("meter initialized", logger.Fields(
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Rejection reasons reported on tiles.rejected.
const (
	ReasonBlack = "black"
	ReasonWhite = "white"
)

// Metrics holds the instruments of a run. A nil *Metrics records nothing.
type Metrics struct {
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
	errorTotal        metric.Int64Counter

	tilesScanned    metric.Int64Counter
	tilesRejected   metric.Int64Counter
	tilesAccepted   metric.Int64Counter
	batchesEmitted  metric.Int64Counter
	rowsWritten     metric.Int64Counter
	sessionsTotal   metric.Int64Counter
	sessionDuration metric.Float64Histogram
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.operationTotal, "operation.total", "Total number of capability operations"},
		{&m.errorTotal, "error.total", "Total errors by type and component"},
		{&m.tilesScanned, "tiles.scanned", "Windows read from the mosaic"},
		{&m.tilesRejected, "tiles.rejected", "Windows rejected as mostly black or white"},
		{&m.tilesAccepted, "tiles.accepted", "Windows accepted by the extractor"},
		{&m.batchesEmitted, "batches.emitted", "Batches emitted by a stage"},
		{&m.rowsWritten, "rows.written", "Rows written by a sink"},
		{&m.sessionsTotal, "sessions.total", "Sessions processed by outcome"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
	}

	if m.operationDuration, err = meter.Float64Histogram("operation.duration",
		metric.WithDescription("Duration of capability operations in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating operation.duration histogram: %w", err)
	}
	if m.sessionDuration, err = meter.Float64Histogram("session.duration",
		metric.WithDescription("Duration of sessions in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating session.duration histogram: %w", err)
	}
	return &m, nil
}

// RecordOperation records an operation execution.
func (m *Metrics) RecordOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
	m.operationTotal.Add(ctx, 1, attrs)
	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("operation", operation),
	))
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}

// TileScanned counts one window read.
func (m *Metrics) TileScanned(ctx context.Context) {
	if m == nil {
		return
	}
	m.tilesScanned.Add(ctx, 1)
}

// TileRejected counts one rejected window.
func (m *Metrics) TileRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.tilesRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// TileAccepted counts one accepted window.
func (m *Metrics) TileAccepted(ctx context.Context) {
	if m == nil {
		return
	}
	m.tilesAccepted.Add(ctx, 1)
}

// BatchEmitted counts one batch leaving stage.
func (m *Metrics) BatchEmitted(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.batchesEmitted.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RowsWritten counts n rows written by sink.
func (m *Metrics) RowsWritten(ctx context.Context, sink string, n int) {
	if m == nil {
		return
	}
	m.rowsWritten.Add(ctx, int64(n), metric.WithAttributes(attribute.String("sink", sink)))
}

// SessionFinished records the outcome and duration of a session.
func (m *Metrics) SessionFinished(ctx context.Context, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.sessionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.sessionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}
