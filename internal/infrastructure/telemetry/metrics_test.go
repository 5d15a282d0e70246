package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/telemetry"
)

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := telemetry.MetricsConfig{
		Enabled:     false,
		Exporter:    telemetry.ExporterOTLP,
		ServiceName: "test-service",
	}

	mp, err := telemetry.NewMeterProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.Nil(t, mp.Handler())
	assert.NotNil(t, mp.Meter("test"))
	assert.Equal(t, "test-service", mp.GetConfig().ServiceName)
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestNewMeterProvider_UnknownExporter(t *testing.T) {
	_, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:     true,
		Exporter:    "statsd",
		ServiceName: "test-service",
	}, zap.NewNop())
	assert.ErrorIs(t, err, telemetry.ErrUnknownExporter)
}

func TestNewSyncMetrics_NilMeter(t *testing.T) {
	m, err := telemetry.NewSyncMetrics(nil, zap.NewNop())
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
	assert.Nil(t, m)
}

func TestSyncMetrics_NilReceiver(t *testing.T) {
	var m *telemetry.SyncMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordProductSync(ctx, uuid.New(), "MANUAL", telemetry.SyncOutcomeSynced)
		m.RecordExternalFailure(ctx, uuid.New(), "network")
		m.RecordEnqueue(ctx, uuid.New(), "queued")
		m.RecordStaleJobRecovered(ctx, uuid.New())
		m.RecordBulkRun(ctx, uuid.New(), "completed", time.Second)
		m.RecordRiskCounts(ctx, uuid.New(), map[string]int64{"LOW": 1})
	})
}

func TestSyncMetrics_Noop(t *testing.T) {
	m, err := telemetry.NewSyncMetrics(noop.NewMeterProvider().Meter("test"), nil)
	require.NoError(t, err)

	m.RecordProductSync(context.Background(), uuid.New(), "SCHEDULED", telemetry.SyncOutcomeNoChange)
}

func TestSyncMetrics_Export(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := telemetry.NewSyncMetrics(provider.Meter("test"), zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	accountID := uuid.New()
	m.RecordProductSync(ctx, accountID, "MANUAL", telemetry.SyncOutcomeSynced)
	m.RecordProductSync(ctx, accountID, "MANUAL", telemetry.SyncOutcomeSynced)
	m.RecordStaleJobRecovered(ctx, accountID)
	m.RecordBulkRun(ctx, accountID, "completed", 3*time.Second)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	histograms := map[string]uint64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[md.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					histograms[md.Name] += dp.Count
				}
			}
		}
	}

	assert.Equal(t, int64(2), sums["inventory_product_sync_total"])
	assert.Equal(t, int64(1), sums["inventory_stale_jobs_recovered_total"])
	assert.Equal(t, int64(1), sums["inventory_bulk_sync_runs_total"])
	assert.Equal(t, uint64(1), histograms["inventory_bulk_sync_duration_seconds"])
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NoError(t, tp.Shutdown(context.Background()))

	ctx, span := telemetry.StartServiceSpan(context.Background(), "reconciler", "sync_product")
	defer span.End()
	assert.NotNil(t, ctx)
	telemetry.RecordError(span, assert.AnError)
}
