package stocksync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/telemetry"
)

// DefaultStaleAfter is how long an active job may go without a heartbeat
const DefaultStaleAfter = 10 * time.Minute

// OrchestratorConfig configures the bulk sync orchestrator
type OrchestratorConfig struct {
	StaleAfter time.Duration
}

// DefaultOrchestratorConfig returns the default configuration
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{StaleAfter: DefaultStaleAfter}
}

// EnqueueStatus is the outcome of a bulk sync request
type EnqueueStatus string

const (
	EnqueueStatusQueued         EnqueueStatus = "queued"
	EnqueueStatusAlreadyRunning EnqueueStatus = "already_running"
	EnqueueStatusRestarted      EnqueueStatus = "restarted"
)

// EnqueueResult is returned by EnqueueBulkSync
type EnqueueResult struct {
	Status    EnqueueStatus
	JobKey    string
	Job       *stocksync.SyncJob
	Recovered *stocksync.StaleJobRecovered
}

// JobStatus reports the bulk sync state of an account
type JobStatus struct {
	IsSyncing    bool
	State        stocksync.JobState
	JobKey       string
	EnqueuedAt   *time.Time
	ProcessedOn  *time.Time
	FinishedOn   *time.Time
	FailedReason string
	Summary      *stocksync.BulkSyncSummary
}

// CancelResult is returned by Cancel
type CancelResult struct {
	JobKey        string
	Cancelled     bool
	Forced        bool
	PreviousState stocksync.JobState
}

const (
	staleFailReason  = "stale: no heartbeat within threshold"
	cancelFailReason = "cancelled by user"
)

// Orchestrator guarantees at most one bulk sync per account and recovers jobs
// whose worker stopped heartbeating.
type Orchestrator struct {
	queue   stocksync.WorkQueue
	config  OrchestratorConfig
	logger  *zap.Logger
	metrics *telemetry.SyncMetrics
	now     func() time.Time
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(queue stocksync.WorkQueue, config OrchestratorConfig, logger *zap.Logger) *Orchestrator {
	if config.StaleAfter <= 0 {
		config.StaleAfter = DefaultStaleAfter
	}
	return &Orchestrator{
		queue:  queue,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// SetMetrics sets the metrics recorder (optional)
func (o *Orchestrator) SetMetrics(m *telemetry.SyncMetrics) {
	o.metrics = m
}

// SetClock overrides the clock used for staleness checks
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// EnqueueBulkSync requests a bulk sync of every BOM product of the account.
// A pending or healthy active job is reported as already_running; a stale
// active job is force-failed and replaced.
func (o *Orchestrator) EnqueueBulkSync(ctx context.Context, accountID uuid.UUID, trigger stocksync.SyncTrigger) (*EnqueueResult, error) {
	if accountID == uuid.Nil {
		return nil, stocksync.ErrInvalidAccountID
	}
	if !trigger.IsValid() {
		return nil, stocksync.ErrInvalidTrigger
	}

	key := stocksync.DedupKey(accountID)
	existing, err := o.queue.Get(ctx, key)
	if err != nil && !errors.Is(err, stocksync.ErrJobNotFound) {
		return nil, fmt.Errorf("get job %s: %w", key, err)
	}

	var recovered *stocksync.StaleJobRecovered
	if existing != nil {
		switch {
		case existing.State.IsPending():
			return o.alreadyRunning(ctx, accountID, existing), nil
		case existing.State == stocksync.JobStateActive:
			now := o.now()
			if !existing.IsStale(now, o.config.StaleAfter) {
				return o.alreadyRunning(ctx, accountID, existing), nil
			}
			recovered = &stocksync.StaleJobRecovered{
				Key:          key,
				AccountID:    accountID,
				LastProgress: existing.LastProgress(),
				StaleFor:     now.Sub(existing.LastProgress()),
			}
			if err := o.queue.ForceFail(ctx, key, staleFailReason); err != nil && !errors.Is(err, stocksync.ErrJobNotFound) {
				return nil, fmt.Errorf("force-fail stale job %s: %w", key, err)
			}
			o.logger.Warn("Recovered stale bulk sync job",
				zap.String("account_id", accountID.String()),
				zap.String("job_key", key),
				zap.Time("last_progress", recovered.LastProgress),
				zap.Duration("stale_for", recovered.StaleFor),
			)
			o.metrics.RecordStaleJobRecovered(ctx, accountID)
		}
		if err := o.queue.Remove(ctx, key); err != nil && !errors.Is(err, stocksync.ErrJobNotFound) {
			return nil, fmt.Errorf("remove finished job %s: %w", key, err)
		}
	}

	payload := stocksync.BulkSyncPayload{
		AccountID:   accountID,
		Trigger:     trigger,
		RequestedAt: o.now().UTC(),
	}
	job, err := o.queue.Enqueue(ctx, key, payload, stocksync.EnqueueOptions{
		Priority: stocksync.PriorityFor(trigger),
	})
	if err != nil {
		if errors.Is(err, stocksync.ErrDuplicateJob) {
			// Another request won the race
			current, getErr := o.queue.Get(ctx, key)
			if getErr != nil {
				current = nil
			}
			return o.alreadyRunning(ctx, accountID, current), nil
		}
		return nil, fmt.Errorf("enqueue job %s: %w", key, err)
	}

	status := EnqueueStatusQueued
	if recovered != nil {
		status = EnqueueStatusRestarted
	}
	o.metrics.RecordEnqueue(ctx, accountID, string(status))
	o.logger.Info("Bulk sync enqueued",
		zap.String("account_id", accountID.String()),
		zap.String("job_key", key),
		zap.String("trigger", trigger.String()),
		zap.String("status", string(status)),
	)

	return &EnqueueResult{
		Status:    status,
		JobKey:    key,
		Job:       job,
		Recovered: recovered,
	}, nil
}

func (o *Orchestrator) alreadyRunning(ctx context.Context, accountID uuid.UUID, job *stocksync.SyncJob) *EnqueueResult {
	o.metrics.RecordEnqueue(ctx, accountID, string(EnqueueStatusAlreadyRunning))
	o.logger.Debug("Bulk sync already running",
		zap.String("account_id", accountID.String()),
		zap.String("job_key", stocksync.DedupKey(accountID)),
	)
	return &EnqueueResult{
		Status: EnqueueStatusAlreadyRunning,
		JobKey: stocksync.DedupKey(accountID),
		Job:    job,
	}
}

// Status returns the bulk sync state of the account. No job means not syncing.
func (o *Orchestrator) Status(ctx context.Context, accountID uuid.UUID) (*JobStatus, error) {
	if accountID == uuid.Nil {
		return nil, stocksync.ErrInvalidAccountID
	}

	key := stocksync.DedupKey(accountID)
	job, err := o.queue.Get(ctx, key)
	if err != nil {
		if errors.Is(err, stocksync.ErrJobNotFound) {
			return &JobStatus{JobKey: key}, nil
		}
		return nil, fmt.Errorf("get job %s: %w", key, err)
	}

	enqueuedAt := job.EnqueuedAt
	return &JobStatus{
		IsSyncing:    !job.State.IsTerminal(),
		State:        job.State,
		JobKey:       key,
		EnqueuedAt:   &enqueuedAt,
		ProcessedOn:  job.ProcessedOn,
		FinishedOn:   job.FinishedOn,
		FailedReason: job.FailedReason,
		Summary:      job.Result,
	}, nil
}

// Cancel stops the account's bulk sync. Pending jobs are removed; an active
// job held by a worker is force-failed so the worker aborts at its next heartbeat.
func (o *Orchestrator) Cancel(ctx context.Context, accountID uuid.UUID) (*CancelResult, error) {
	if accountID == uuid.Nil {
		return nil, stocksync.ErrInvalidAccountID
	}

	key := stocksync.DedupKey(accountID)
	job, err := o.queue.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	result := &CancelResult{JobKey: key, PreviousState: job.State}
	if job.State.IsTerminal() {
		return result, nil
	}

	err = o.queue.Remove(ctx, key)
	switch {
	case err == nil:
		result.Cancelled = true
	case errors.Is(err, stocksync.ErrJobLocked):
		if err := o.queue.ForceFail(ctx, key, cancelFailReason); err != nil {
			return nil, fmt.Errorf("force-fail job %s: %w", key, err)
		}
		result.Cancelled = true
		result.Forced = true
	case errors.Is(err, stocksync.ErrJobNotFound):
		return result, nil
	default:
		return nil, fmt.Errorf("remove job %s: %w", key, err)
	}

	o.logger.Info("Bulk sync cancelled",
		zap.String("account_id", accountID.String()),
		zap.String("job_key", key),
		zap.String("previous_state", job.State.String()),
		zap.Bool("forced", result.Forced),
	)
	return result, nil
}
