package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/orthotile/component"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation, attr attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected int64 sum, got %T", data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if attr.Key == "" {
			total += dp.Value
			continue
		}
		if v, ok := dp.Attributes.Value(attr.Key); ok && v == attr.Value {
			total += dp.Value
		}
	}
	return total
}

func TestConfigApplyDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	if c.Endpoint != "localhost:4318" {
		t.Errorf("expected default endpoint, got %q", c.Endpoint)
	}
	if c.SampleRate != 1.0 {
		t.Errorf("expected sample rate 1.0, got %v", c.SampleRate)
	}
	if c.Interval != 15*time.Second {
		t.Errorf("expected 15s interval, got %v", c.Interval)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled ignores fields", Config{SampleRate: 5}, false},
		{"enabled valid", Config{Enabled: true, Endpoint: "otel:4318", SampleRate: 0.5}, false},
		{"enabled no endpoint", Config{Enabled: true, SampleRate: 1}, true},
		{"enabled bad rate", Config{Enabled: true, Endpoint: "otel:4318", SampleRate: 1.5}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestMetrics_PipelineInstruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		m.TileScanned(ctx)
	}
	m.TileRejected(ctx, ReasonBlack)
	m.TileRejected(ctx, ReasonWhite)
	m.TileRejected(ctx, ReasonBlack)
	m.TileAccepted(ctx)
	m.TileAccepted(ctx)
	m.BatchEmitted(ctx, "tiling")
	m.RowsWritten(ctx, "csv", 2)
	m.SessionFinished(ctx, "success", time.Second)

	got := collect(t, reader)
	checks := []struct {
		name string
		attr attribute.KeyValue
		want int64
	}{
		{"tiles.scanned", attribute.KeyValue{}, 5},
		{"tiles.rejected", attribute.String("reason", ReasonBlack), 2},
		{"tiles.rejected", attribute.String("reason", ReasonWhite), 1},
		{"tiles.accepted", attribute.KeyValue{}, 2},
		{"batches.emitted", attribute.String("stage", "tiling"), 1},
		{"rows.written", attribute.String("sink", "csv"), 2},
		{"sessions.total", attribute.String("status", "success"), 1},
	}
	for _, c := range checks {
		data, ok := got[c.name]
		if !ok {
			t.Errorf("metric %s not collected", c.name)
			continue
		}
		if v := sumOf(t, data, c.attr); v != c.want {
			t.Errorf("%s%v: expected %d, got %d", c.name, c.attr, c.want, v)
		}
	}
	if _, ok := got["session.duration"]; !ok {
		t.Error("expected session.duration histogram")
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	// None of these may panic.
	m.TileScanned(ctx)
	m.TileRejected(ctx, ReasonBlack)
	m.TileAccepted(ctx)
	m.BatchEmitted(ctx, "x")
	m.RowsWritten(ctx, "csv", 1)
	m.SessionFinished(ctx, "failed", time.Millisecond)
	m.RecordOperation(ctx, "svc", "op", "ok", time.Millisecond)
	m.RecordError(ctx, "CAPABILITY_ERROR", "inference")
}

func TestEndSpan_RecordsError(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	_, span := tp.Tracer("test").Start(context.Background(), SpanSession)
	EndSpan(span, fmt.Errorf("mosaic missing"))

	ended := sr.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", ended[0].Status())
	}
	if len(ended[0].Events()) == 0 {
		t.Error("expected the error to be recorded as an event")
	}
}

func TestEndSpan_NoError(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	_, span := tp.Tracer("test").Start(context.Background(), SpanSession)
	EndSpan(span, nil)
	if got := sr.Ended()[0].Status().Code; got != codes.Unset {
		t.Errorf("expected unset status, got %v", got)
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, sdktrace.AlwaysSample().Description()},
		{0, sdktrace.NeverSample().Description()},
		{0.25, sdktrace.TraceIDRatioBased(0.25).Description()},
	}
	for _, tc := range tests {
		if got := samplerFor(tc.rate).Description(); got != tc.want {
			t.Errorf("samplerFor(%v) = %s, want %s", tc.rate, got, tc.want)
		}
	}
}

func TestTelemetry_Disabled(t *testing.T) {
	tel := NewTelemetry(Config{}, "orthotile", "test")
	var _ component.Component = tel

	if h := tel.Health(context.Background()); h.Status != component.StatusHealthy || h.Message != "disabled" {
		t.Errorf("unexpected health %+v", h)
	}
	if err := tel.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tel.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
