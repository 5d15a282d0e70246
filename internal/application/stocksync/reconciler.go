package stocksync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/telemetry"
)

// Activity listing limits
const (
	DefaultActivityLimit = 50
	MaxActivityLimit     = 500
)

// Reconciler compares computed effective stock with the recorded storefront
// stock and pushes absolute corrections.
type Reconciler struct {
	graphs     bom.GraphProvider
	calculator *bom.Calculator
	provider   stocksync.StockProvider
	audit      stocksync.AuditLogRepository
	logger     *zap.Logger
	metrics    *telemetry.SyncMetrics
	now        func() time.Time
}

// NewReconciler creates a new Reconciler
func NewReconciler(
	graphs bom.GraphProvider,
	provider stocksync.StockProvider,
	audit stocksync.AuditLogRepository,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		graphs:     graphs,
		calculator: bom.NewCalculator(),
		provider:   provider,
		audit:      audit,
		logger:     logger,
		now:        time.Now,
	}
}

// SetMetrics sets the metrics recorder (optional)
func (r *Reconciler) SetMetrics(m *telemetry.SyncMetrics) {
	r.metrics = m
}

// SetClock overrides the clock used for audit timestamps
func (r *Reconciler) SetClock(now func() time.Time) {
	r.now = now
}

// SyncProduct reconciles a single product against a freshly loaded snapshot.
// Errors propagate typed: *bom.CycleDetectedError, *bom.ComponentUnavailableError,
// *bom.ValidationError or *stocksync.ExternalSyncFailure.
func (r *Reconciler) SyncProduct(ctx context.Context, accountID uuid.UUID, key bom.ProductKey, trigger stocksync.SyncTrigger) (*stocksync.SyncResult, error) {
	if !trigger.IsValid() {
		return nil, stocksync.ErrInvalidTrigger
	}

	g, err := r.graphs.Load(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load component graph: %w", err)
	}

	return r.SyncProductInGraph(ctx, accountID, g, key, trigger)
}

// SyncProductInGraph reconciles a single product against an already loaded snapshot.
func (r *Reconciler) SyncProductInGraph(ctx context.Context, accountID uuid.UUID, g *bom.Graph, key bom.ProductKey, trigger stocksync.SyncTrigger) (*stocksync.SyncResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciler", "sync_product",
		attribute.String("account_id", accountID.String()),
		attribute.String("product_key", key.String()),
	)
	defer span.End()

	result, err := r.calculator.Compute(g, key)
	if err != nil {
		telemetry.RecordError(span, err)
		r.metrics.RecordProductSync(ctx, accountID, trigger.String(), telemetry.SyncOutcomeError)
		return nil, err
	}

	if !result.NeedsSync {
		r.metrics.RecordProductSync(ctx, accountID, trigger.String(), telemetry.SyncOutcomeNoChange)
		return &stocksync.SyncResult{
			Key:           key,
			Status:        stocksync.SyncStatusNoChange,
			PreviousStock: result.CurrentExternalStock,
			NewStock:      result.EffectiveStock,
			Computation:   result,
		}, nil
	}

	product, _ := g.Product(key)
	ref := product.ExternalRef()
	quantity := *result.EffectiveStock

	if err := r.provider.SetStock(ctx, accountID, ref, quantity); err != nil {
		failure := asSyncFailure(ref, err)
		telemetry.RecordError(span, failure)
		r.metrics.RecordExternalFailure(ctx, accountID, string(failure.Reason))
		r.metrics.RecordProductSync(ctx, accountID, trigger.String(), telemetry.SyncOutcomeError)
		return nil, failure
	}

	entry, err := stocksync.NewAuditLogEntry(accountID, key, ref, result.CurrentExternalStock, quantity, trigger, r.now())
	if err != nil {
		return nil, err
	}
	if err := r.audit.Append(ctx, entry); err != nil {
		r.logger.Error("Stock pushed but audit entry could not be written",
			zap.String("account_id", accountID.String()),
			zap.String("product_key", key.String()),
			zap.Int64("new_stock", quantity),
			zap.Error(err),
		)
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("append audit entry: %w", err)
	}

	r.metrics.RecordProductSync(ctx, accountID, trigger.String(), telemetry.SyncOutcomeSynced)
	r.logger.Info("Product stock synced",
		zap.String("account_id", accountID.String()),
		zap.String("product_key", key.String()),
		zap.String("external_ref", ref.String()),
		zap.Int64p("previous_stock", result.CurrentExternalStock),
		zap.Int64("new_stock", quantity),
		zap.String("trigger", trigger.String()),
	)

	return &stocksync.SyncResult{
		Key:           key,
		Status:        stocksync.SyncStatusSynced,
		PreviousStock: result.CurrentExternalStock,
		NewStock:      result.EffectiveStock,
		AuditEntryID:  &entry.ID,
		Computation:   result,
	}, nil
}

// asSyncFailure wraps provider errors that are not already classified
func asSyncFailure(ref bom.ExternalRef, err error) *stocksync.ExternalSyncFailure {
	if failure, ok := stocksync.AsExternalSyncFailure(err); ok {
		return failure
	}
	reason := stocksync.FailureReasonUnknown
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		reason = stocksync.FailureReasonNetwork
	}
	return stocksync.NewExternalSyncFailure(reason, ref, err)
}

// PendingChanges lists every BOM product whose computed stock differs from the
// recorded stock. Products that cannot be computed are logged and skipped.
func (r *Reconciler) PendingChanges(ctx context.Context, accountID uuid.UUID) ([]stocksync.PendingChange, error) {
	g, err := r.graphs.Load(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load component graph: %w", err)
	}

	changes := make([]stocksync.PendingChange, 0)
	for _, b := range g.SyncableBOMs() {
		result, err := r.calculator.Compute(g, b.Key)
		if err != nil {
			r.logger.Warn("Skipping product in pending changes",
				zap.String("account_id", accountID.String()),
				zap.String("product_key", b.Key.String()),
				zap.Error(err),
			)
			continue
		}
		if !result.NeedsSync {
			continue
		}

		product, _ := g.Product(b.Key)
		changes = append(changes, stocksync.PendingChange{
			Key:           b.Key,
			ProductName:   product.Name,
			SKU:           product.SKU,
			CurrentStock:  result.CurrentExternalStock,
			ComputedStock: *result.EffectiveStock,
		})
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].ProductName < changes[j].ProductName
	})
	return changes, nil
}

// RecentActivity returns the newest audit entries of an account.
// limit defaults to DefaultActivityLimit and is capped at MaxActivityLimit.
func (r *Reconciler) RecentActivity(ctx context.Context, accountID uuid.UUID, limit int) ([]stocksync.AuditLogEntry, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}
	return r.audit.ListRecent(ctx, accountID, limit)
}
