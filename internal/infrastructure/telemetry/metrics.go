package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// Metric exporters
const (
	ExporterOTLP       = "otlp"
	ExporterPrometheus = "prometheus"
)

// DefaultExportInterval is the OTLP push interval when none is configured
const DefaultExportInterval = time.Minute

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled           bool
	Exporter          string // otlp (push) or prometheus (scrape)
	CollectorEndpoint string
	ExportInterval    time.Duration
	ServiceName       string
	Insecure          bool
}

// MeterProvider owns the SDK meter provider and, for the prometheus
// exporter, the scrape handler mounted at /metrics.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	handler  http.Handler
	logger   *zap.Logger
	config   MetricsConfig
}

// NewMeterProvider builds the configured exporter and installs the provider
// globally. Disabled metrics leave the otel no-op meter in place.
func NewMeterProvider(ctx context.Context, cfg MetricsConfig, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{logger: logger, config: cfg}
	if !cfg.Enabled {
		logger.Info("Metrics disabled")
		return mp, nil
	}

	reader, handler, err := newMetricReader(ctx, cfg)
	if err != nil {
		return nil, err
	}
	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	mp.handler = handler
	mp.provider = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp.provider)

	logger.Info("Metrics enabled",
		zap.String("exporter", cfg.Exporter),
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
	)
	return mp, nil
}

func newMetricReader(ctx context.Context, cfg MetricsConfig) (sdkmetric.Reader, http.Handler, error) {
	switch cfg.Exporter {
	case ExporterPrometheus:
		// registers with the default prometheus registry served by promhttp
		exporter, err := promexporter.New()
		if err != nil {
			return nil, nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		return exporter, promhttp.Handler(), nil
	case ExporterOTLP, "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		interval := cfg.ExportInterval
		if interval <= 0 {
			interval = DefaultExportInterval
		}
		return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)), nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.Exporter)
	}
}

// Shutdown flushes pending metrics.
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	return flushAndStop(ctx, "meter", mp.logger, mp.provider.Shutdown)
}

// Meter returns a meter from the SDK provider, or from the global provider
// when metrics are disabled.
func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.provider == nil {
		return otel.Meter(name, opts...)
	}
	return mp.provider.Meter(name, opts...)
}

// Handler is the scrape handler; nil unless the prometheus exporter is active.
func (mp *MeterProvider) Handler() http.Handler {
	return mp.handler
}

func (mp *MeterProvider) IsEnabled() bool {
	return mp.config.Enabled && mp.provider != nil
}

func (mp *MeterProvider) GetConfig() MetricsConfig {
	return mp.config
}
