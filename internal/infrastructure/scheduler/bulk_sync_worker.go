package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/logger"
)

// BulkSyncExecutor runs one reserved bulk sync job
type BulkSyncExecutor interface {
	Run(ctx context.Context, job *stocksync.SyncJob, heartbeat stocksync.HeartbeatFunc) (*stocksync.BulkSyncSummary, error)
}

// BulkSyncWorkerConfig holds configuration for the bulk sync worker pool
type BulkSyncWorkerConfig struct {
	// Workers is the number of jobs processed concurrently
	Workers int
	// PollInterval is how often idle workers look for ready jobs
	PollInterval time.Duration
	// JobTimeout is the maximum time a job can run
	JobTimeout time.Duration
	// HeartbeatInterval is how often a running job reports progress.
	// It must stay well below the orchestrator's stale threshold.
	HeartbeatInterval time.Duration
}

// DefaultBulkSyncWorkerConfig returns default configuration
func DefaultBulkSyncWorkerConfig() BulkSyncWorkerConfig {
	return BulkSyncWorkerConfig{
		Workers:           2,
		PollInterval:      2 * time.Second,
		JobTimeout:        30 * time.Minute,
		HeartbeatInterval: 30 * time.Second,
	}
}

// Validate validates the configuration
func (c *BulkSyncWorkerConfig) Validate() error {
	if c.Workers <= 0 || c.PollInterval <= 0 || c.JobTimeout <= 0 || c.HeartbeatInterval <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// BulkSyncWorker reserves bulk sync jobs from the queue and runs them
type BulkSyncWorker struct {
	config   BulkSyncWorkerConfig
	consumer stocksync.JobConsumer
	executor BulkSyncExecutor
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewBulkSyncWorker creates a new worker pool
func NewBulkSyncWorker(config BulkSyncWorkerConfig, consumer stocksync.JobConsumer, executor BulkSyncExecutor, logger *zap.Logger) (*BulkSyncWorker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &BulkSyncWorker{
		config:   config,
		consumer: consumer,
		executor: executor,
		logger:   logger,
	}, nil
}

// Start starts the worker pool
func (w *BulkSyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = true
	w.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	for i := 0; i < w.config.Workers; i++ {
		w.wg.Add(1)
		go w.worker(ctx, i)
	}

	w.logger.Info("Bulk sync worker started",
		zap.Int("workers", w.config.Workers),
		zap.Duration("job_timeout", w.config.JobTimeout),
		zap.Duration("heartbeat_interval", w.config.HeartbeatInterval),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers to exit
func (w *BulkSyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Bulk sync worker stopped gracefully")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Bulk sync worker stop timed out")
		return ctx.Err()
	}
}

func (w *BulkSyncWorker) worker(ctx context.Context, workerID int) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		w.drain(ctx, workerID)
		select {
		case <-ctx.Done():
			w.logger.Debug("Bulk sync worker stopping", zap.Int("worker_id", workerID))
			return
		case <-ticker.C:
		}
	}
}

// drain processes ready jobs until the queue is empty
func (w *BulkSyncWorker) drain(ctx context.Context, workerID int) {
	for ctx.Err() == nil {
		job, err := w.consumer.Reserve(ctx)
		if errors.Is(err, stocksync.ErrQueueEmpty) {
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Error("Failed to reserve bulk sync job",
					zap.Int("worker_id", workerID),
					zap.Error(err),
				)
			}
			return
		}
		w.ProcessJob(ctx, job, workerID)
	}
}

// ProcessJob runs a reserved job and settles it in the queue.
// The context handed to the executor carries the account ID and job key so
// repository and storefront logs can be tied back to the job.
func (w *BulkSyncWorker) ProcessJob(ctx context.Context, job *stocksync.SyncJob, workerID int) {
	jobCtx, jobLogger := logger.WithAccountID(ctx, w.logger, job.AccountID)
	jobCtx, jobLogger = logger.WithJobKey(jobCtx, jobLogger, job.Key)
	jobLogger = jobLogger.With(zap.Int("worker_id", workerID))

	jobLogger.Info("Processing bulk sync job",
		zap.String("trigger", job.Payload.Trigger.String()),
		zap.Int("attempts", job.Attempts),
	)

	jobCtx, cancel := context.WithTimeout(jobCtx, w.config.JobTimeout)
	defer cancel()

	var cancelled atomic.Bool
	heartbeat := func(hbCtx context.Context) error {
		err := w.consumer.Heartbeat(hbCtx, job.Key)
		if errors.Is(err, stocksync.ErrJobNotActive) || errors.Is(err, stocksync.ErrJobNotFound) {
			cancelled.Store(true)
		}
		return err
	}

	// Keep the job alive while a single slow product is being reconciled
	tickerDone := make(chan struct{})
	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(w.config.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-jobCtx.Done():
				return
			case <-ticker.C:
				if err := heartbeat(jobCtx); err != nil {
					if cancelled.Load() {
						cancel()
						return
					}
					jobLogger.Warn("Bulk sync heartbeat failed", zap.Error(err))
				}
			}
		}
	}()

	summary, err := w.executor.Run(jobCtx, job, heartbeat)
	timedOut := errors.Is(jobCtx.Err(), context.DeadlineExceeded)
	cancel()
	<-tickerDone

	// Settle with a context that survives shutdown of the pool
	settleCtx, settleCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer settleCancel()

	switch {
	case cancelled.Load():
		jobLogger.Info("Bulk sync job was cancelled")
	case err == nil:
		if completeErr := w.consumer.Complete(settleCtx, job.Key, summary); completeErr != nil {
			jobLogger.Error("Failed to complete bulk sync job", zap.Error(completeErr))
			return
		}
		jobLogger.Info("Bulk sync job completed",
			zap.Int("total", summary.Total),
			zap.Int("synced", summary.Synced),
			zap.Int("skipped", summary.Skipped),
			zap.Int("errored", summary.Errored),
		)
	default:
		reason := err
		switch {
		case timedOut:
			reason = ErrJobTimeout
		case ctx.Err() != nil:
			reason = ErrWorkerStopped
		}
		jobLogger.Error("Bulk sync job failed", zap.Error(err))
		if failErr := w.consumer.Fail(settleCtx, job.Key, reason.Error()); failErr != nil && !errors.Is(failErr, stocksync.ErrJobNotActive) {
			jobLogger.Error("Failed to mark bulk sync job failed", zap.Error(failErr))
		}
	}
}
