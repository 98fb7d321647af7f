package observability

import (
	"context"
	stderrors "errors"
	"sync"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/orthotile/component"
)

// Telemetry owns the trace and metric providers of a run.
type Telemetry struct {
	cfg     Config
	service string
	version string

	mu      sync.Mutex
	tracer  *sdktrace.TracerProvider
	meter   *sdkmetric.MeterProvider
	started bool
}

var _ component.Component = (*Telemetry)(nil)

// NewTelemetry creates the telemetry component. It does nothing until Start.
func NewTelemetry(cfg Config, service, version string) *Telemetry {
	cfg.ApplyDefaults()
	return &Telemetry{cfg: cfg, service: service, version: version}
}

// Name implements component.Component.
func (t *Telemetry) Name() string { return "telemetry" }

// Start installs the OTLP providers when telemetry is enabled.
func (t *Telemetry) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = true
	if !t.cfg.Enabled {
		return nil
	}

	tp, err := InitTracer(ctx, TracerConfig{
		ServiceName:    t.service,
		ServiceVersion: t.version,
		Endpoint:       t.cfg.Endpoint,
		Insecure:       t.cfg.Insecure,
		SampleRate:     t.cfg.SampleRate,
	})
	if err != nil {
		return err
	}
	mp, err := InitMeter(ctx, MeterConfig{
		ServiceName:    t.service,
		ServiceVersion: t.version,
		Endpoint:       t.cfg.Endpoint,
		Insecure:       t.cfg.Insecure,
		Interval:       t.cfg.Interval,
	})
	if err != nil {
		_ = tp.Shutdown(ctx)
		return err
	}
	t.tracer, t.meter = tp, mp
	return nil
}

// Stop flushes and shuts down the providers.
func (t *Telemetry) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = false

	var errs []error
	if t.meter != nil {
		errs = append(errs, t.meter.Shutdown(ctx))
		t.meter = nil
	}
	if t.tracer != nil {
		errs = append(errs, t.tracer.Shutdown(ctx))
		t.tracer = nil
	}
	return stderrors.Join(errs...)
}

// Health implements component.Component.
func (t *Telemetry) Health(context.Context) component.Health {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := component.Health{Name: t.Name(), Status: component.StatusHealthy}
	switch {
	case !t.cfg.Enabled:
		h.Message = "disabled"
	case !t.started:
		h.Status = component.StatusUnhealthy
		h.Message = "not started"
	}
	return h
}
