package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/filevault/logger"
)

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected default endpoint, got %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
	if cfg.MetricInterval != 15*time.Second {
		t.Errorf("expected 15s interval, got %v", cfg.MetricInterval)
	}

	cfg.Enabled = true
	cfg.SampleRate = 2
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for sample_rate > 1")
	}

	disabled := &Config{SampleRate: 5}
	if err := disabled.Validate(); err != nil {
		t.Errorf("disabled config should not be validated, got %v", err)
	}
}

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), &Config{}, ServiceInfo{Name: "filevault"}, logger.Nop())
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("no-op shutdown returned %v", err)
	}
}

func TestStartAndEndSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := StartSpan(context.Background(), "storage.save", attribute.String(AttrStorageClass, "public"))
	EndSpan(span, errors.New("disk full"))

	_, okSpan := StartSpan(context.Background(), "storage.get")
	EndSpan(okSpan, nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 ended spans, got %d", len(spans))
	}
	if spans[0].Name() != "storage.save" {
		t.Errorf("unexpected span name %q", spans[0].Name())
	}
	if spans[0].Status().Code != otelcodes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status())
	}
	if len(spans[0].Events()) == 0 {
		t.Error("expected recorded error event")
	}
	if spans[1].Status().Code == otelcodes.Error {
		t.Error("expected successful span to keep unset status")
	}
}

func TestNewMetricsNoop(t *testing.T) {
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}
	ctx := context.Background()
	metrics.RecordStorageOp(ctx, "public", "save", OutcomeOK)
	metrics.RecordStorageBytes(ctx, "public", 10)
	metrics.RecordShareIssued(ctx)
	metrics.RecordRedemption(ctx, OutcomeExhausted)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordStorageOp(ctx, "temp", "delete", OutcomeError)
	m.RecordStorageBytes(ctx, "temp", 1)
	m.RecordShareIssued(ctx)
	m.RecordRedemption(ctx, OutcomeOK)
}

func TestRedemptionCounter(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ctx := context.Background()
	metrics.RecordRedemption(ctx, OutcomeOK)
	metrics.RecordRedemption(ctx, OutcomeOK)
	metrics.RecordRedemption(ctx, OutcomeExpired)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "filevault.share.redemptions" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	if total != 3 {
		t.Errorf("expected 3 recorded redemptions, got %d", total)
	}
}
