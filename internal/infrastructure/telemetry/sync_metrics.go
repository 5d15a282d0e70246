package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// SyncMetrics records inventory sync and forecast activity.
// All methods are safe to call on a nil receiver.
type SyncMetrics struct {
	logger *zap.Logger

	productSyncTotal      *Counter
	externalFailuresTotal *Counter
	enqueueTotal          *Counter
	bulkRunsTotal         *Counter
	staleJobsRecovered    *Counter
	bulkDuration          *Histogram
	forecastRiskProducts  *Gauge
}

// Product sync outcomes
const (
	SyncOutcomeSynced   = "synced"
	SyncOutcomeNoChange = "no_change"
	SyncOutcomeError    = "error"
)

// NewSyncMetrics creates the inventory metric set on meter.
func NewSyncMetrics(meter metric.Meter, logger *zap.Logger) (*SyncMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &SyncMetrics{logger: logger}
	var err error

	if m.productSyncTotal, err = NewCounter(meter,
		"inventory_product_sync_total",
		"Single product reconciliations by outcome",
		"{products}",
	); err != nil {
		return nil, err
	}
	if m.externalFailuresTotal, err = NewCounter(meter,
		"inventory_external_sync_failures_total",
		"Stock provider failures by reason",
		"{failures}",
	); err != nil {
		return nil, err
	}
	if m.enqueueTotal, err = NewCounter(meter,
		"inventory_bulk_sync_enqueue_total",
		"Bulk sync enqueue requests by result status",
		"{requests}",
	); err != nil {
		return nil, err
	}
	if m.bulkRunsTotal, err = NewCounter(meter,
		"inventory_bulk_sync_runs_total",
		"Finished bulk sync passes by outcome",
		"{runs}",
	); err != nil {
		return nil, err
	}
	if m.staleJobsRecovered, err = NewCounter(meter,
		"inventory_stale_jobs_recovered_total",
		"Active bulk sync jobs force-failed by the staleness watchdog",
		"{jobs}",
	); err != nil {
		return nil, err
	}
	if m.bulkDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "inventory_bulk_sync_duration_seconds",
		Description: "Duration of bulk sync passes",
		Unit:        "s",
		Boundaries:  BulkDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.forecastRiskProducts, err = NewGauge(meter,
		"inventory_forecast_risk_products",
		"Products per stock-out risk level in the latest batch forecast",
		"{products}",
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordProductSync counts one product reconciliation.
func (m *SyncMetrics) RecordProductSync(ctx context.Context, accountID uuid.UUID, trigger, outcome string) {
	if m == nil {
		return
	}
	m.productSyncTotal.Inc(ctx,
		AttrAccountID.String(accountID.String()),
		AttrTrigger.String(trigger),
		AttrStatus.String(outcome),
	)
}

// RecordExternalFailure counts a stock provider failure.
func (m *SyncMetrics) RecordExternalFailure(ctx context.Context, accountID uuid.UUID, reason string) {
	if m == nil {
		return
	}
	m.externalFailuresTotal.Inc(ctx,
		AttrAccountID.String(accountID.String()),
		AttrReason.String(reason),
	)
}

// RecordEnqueue counts a bulk sync enqueue request.
func (m *SyncMetrics) RecordEnqueue(ctx context.Context, accountID uuid.UUID, status string) {
	if m == nil {
		return
	}
	m.enqueueTotal.Inc(ctx,
		AttrAccountID.String(accountID.String()),
		AttrStatus.String(status),
	)
}

// RecordStaleJobRecovered counts a job restarted by the staleness watchdog.
func (m *SyncMetrics) RecordStaleJobRecovered(ctx context.Context, accountID uuid.UUID) {
	if m == nil {
		return
	}
	m.staleJobsRecovered.Inc(ctx, AttrAccountID.String(accountID.String()))
	m.logger.Debug("Stale job recovery recorded", zap.String("account_id", accountID.String()))
}

// RecordBulkRun records a finished bulk pass.
func (m *SyncMetrics) RecordBulkRun(ctx context.Context, accountID uuid.UUID, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := AttrAccountID.String(accountID.String())
	m.bulkRunsTotal.Inc(ctx, attrs, AttrOutcome.String(outcome))
	m.bulkDuration.RecordDuration(ctx, d, attrs, AttrOutcome.String(outcome))
}

// RecordRiskCounts records the number of products per risk level.
func (m *SyncMetrics) RecordRiskCounts(ctx context.Context, accountID uuid.UUID, counts map[string]int64) {
	if m == nil {
		return
	}
	for risk, count := range counts {
		m.forecastRiskProducts.Record(ctx, count,
			AttrAccountID.String(accountID.String()),
			AttrRisk.String(risk),
		)
	}
}
