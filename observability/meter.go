package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Outcome attribute values.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeExpired   = "expired"
	OutcomeExhausted = "exhausted"
	OutcomeNotFound  = "not_found"
)

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, cfg *Config, info ServiceInfo) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.MetricInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.MetricInterval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(newResource(info)),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the filevault metric instruments.
type Metrics struct {
	storageOps       metric.Int64Counter
	storageBytes     metric.Int64Counter
	shareIssued      metric.Int64Counter
	shareRedemptions metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	storageOps, err := meter.Int64Counter("filevault.storage.operations",
		metric.WithDescription("Storage backend operations by class, operation and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating filevault.storage.operations counter: %w", err)
	}

	storageBytes, err := meter.Int64Counter("filevault.storage.bytes",
		metric.WithDescription("Bytes written to storage backends"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating filevault.storage.bytes counter: %w", err)
	}

	shareIssued, err := meter.Int64Counter("filevault.share.issued",
		metric.WithDescription("Share links issued"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating filevault.share.issued counter: %w", err)
	}

	shareRedemptions, err := meter.Int64Counter("filevault.share.redemptions",
		metric.WithDescription("Share link redemption attempts by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating filevault.share.redemptions counter: %w", err)
	}

	return &Metrics{
		storageOps:       storageOps,
		storageBytes:     storageBytes,
		shareIssued:      shareIssued,
		shareRedemptions: shareRedemptions,
	}, nil
}

// RecordStorageOp records one backend operation.
func (m *Metrics) RecordStorageOp(ctx context.Context, class, operation, outcome string) {
	if m == nil {
		return
	}
	m.storageOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("storage_class", class),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

// RecordStorageBytes records bytes written to a backend.
func (m *Metrics) RecordStorageBytes(ctx context.Context, class string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.storageBytes.Add(ctx, n, metric.WithAttributes(attribute.String("storage_class", class)))
}

// RecordShareIssued records a newly issued link.
func (m *Metrics) RecordShareIssued(ctx context.Context) {
	if m == nil {
		return
	}
	m.shareIssued.Add(ctx, 1)
}

// RecordRedemption records a redemption attempt.
func (m *Metrics) RecordRedemption(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.shareRedemptions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
