package stocksync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/shared"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/telemetry"
)

// DefaultRunnerConcurrency bounds concurrent product reconciliations in a bulk pass
const DefaultRunnerConcurrency = 4

// Bulk pass outcomes reported to metrics
const (
	BulkOutcomeCompleted = "completed"
	BulkOutcomeCancelled = "cancelled"
	BulkOutcomeFailed    = "failed"
)

// BulkSyncRunner executes a bulk sync job: one reconciliation per BOM product
// against a single graph snapshot.
type BulkSyncRunner struct {
	graphs      bom.GraphProvider
	reconciler  *Reconciler
	concurrency int
	logger      *zap.Logger
	metrics     *telemetry.SyncMetrics
	now         func() time.Time
}

// NewBulkSyncRunner creates a new BulkSyncRunner
func NewBulkSyncRunner(graphs bom.GraphProvider, reconciler *Reconciler, concurrency int, logger *zap.Logger) *BulkSyncRunner {
	if concurrency <= 0 {
		concurrency = DefaultRunnerConcurrency
	}
	return &BulkSyncRunner{
		graphs:      graphs,
		reconciler:  reconciler,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// SetMetrics sets the metrics recorder (optional)
func (r *BulkSyncRunner) SetMetrics(m *telemetry.SyncMetrics) {
	r.metrics = m
}

// SetClock overrides the clock used for the summary timestamps
func (r *BulkSyncRunner) SetClock(now func() time.Time) {
	r.now = now
}

// Run reconciles every product with a non-empty BOM. Per-product failures are
// counted in the summary. When the job is cancelled or ctx is done the pass
// stops between products and the partial summary is returned with
// stocksync.ErrSyncCancelled.
func (r *BulkSyncRunner) Run(ctx context.Context, job *stocksync.SyncJob, heartbeat stocksync.HeartbeatFunc) (*stocksync.BulkSyncSummary, error) {
	accountID := job.Payload.AccountID
	trigger := job.Payload.Trigger
	if !trigger.IsValid() {
		trigger = stocksync.SyncTriggerScheduled
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "bulk_sync", "run",
		attribute.String("account_id", accountID.String()),
		attribute.String("job_key", job.Key),
	)
	defer span.End()

	started := r.now()
	summary := &stocksync.BulkSyncSummary{StartedAt: started.UTC()}

	g, err := r.graphs.Load(ctx, accountID)
	if err != nil {
		telemetry.RecordError(span, err)
		r.metrics.RecordBulkRun(ctx, accountID, BulkOutcomeFailed, r.now().Sub(started))
		return nil, fmt.Errorf("load component graph: %w", err)
	}

	boms := g.SyncableBOMs()
	summary.Total = len(boms)

	var (
		mu      sync.Mutex
		aborted atomic.Bool
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)

	for _, b := range boms {
		if aborted.Load() || groupCtx.Err() != nil {
			break
		}
		key := b.Key
		group.Go(func() error {
			if aborted.Load() || groupCtx.Err() != nil {
				return nil
			}

			result, err := r.reconciler.SyncProductInGraph(groupCtx, accountID, g, key, trigger)

			mu.Lock()
			switch {
			case err != nil:
				name := ""
				if p, ok := g.Product(key); ok {
					name = p.Name
				}
				summary.RecordFailure(key, name, shared.ErrorCode(err), err)
			case result.IsSynced():
				summary.Synced++
			default:
				summary.Skipped++
			}
			mu.Unlock()

			if err != nil {
				r.logger.Warn("Product failed during bulk sync",
					zap.String("account_id", accountID.String()),
					zap.String("product_key", key.String()),
					zap.String("code", shared.ErrorCode(err)),
					zap.Error(err),
				)
			}

			if heartbeat != nil {
				if hbErr := heartbeat(groupCtx); hbErr != nil {
					if errors.Is(hbErr, stocksync.ErrJobNotActive) || errors.Is(hbErr, stocksync.ErrJobNotFound) {
						aborted.Store(true)
						return nil
					}
					r.logger.Warn("Bulk sync heartbeat failed",
						zap.String("job_key", job.Key),
						zap.Error(hbErr),
					)
				}
			}
			return nil
		})
	}
	_ = group.Wait()

	summary.Duration = r.now().Sub(started)

	if aborted.Load() || ctx.Err() != nil {
		summary.Aborted = true
		r.metrics.RecordBulkRun(ctx, accountID, BulkOutcomeCancelled, summary.Duration)
		r.logger.Info("Bulk sync aborted",
			zap.String("account_id", accountID.String()),
			zap.String("job_key", job.Key),
			zap.Int("synced", summary.Synced),
			zap.Int("skipped", summary.Skipped),
			zap.Int("errored", summary.Errored),
		)
		return summary, stocksync.ErrSyncCancelled
	}

	r.metrics.RecordBulkRun(ctx, accountID, BulkOutcomeCompleted, summary.Duration)
	r.logger.Info("Bulk sync completed",
		zap.String("account_id", accountID.String()),
		zap.String("job_key", job.Key),
		zap.Int("total", summary.Total),
		zap.Int("synced", summary.Synced),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errored", summary.Errored),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}
