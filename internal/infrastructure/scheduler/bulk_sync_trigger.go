package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appsync "github.com/MerlinStacks/woodash-dashboard-sub007/internal/application/stocksync"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
)

// AccountProvider lists the accounts that take part in scheduled syncs
type AccountProvider interface {
	ActiveAccountIDs(ctx context.Context) ([]uuid.UUID, error)
}

// BulkSyncEnqueuer requests a bulk sync for an account
type BulkSyncEnqueuer interface {
	EnqueueBulkSync(ctx context.Context, accountID uuid.UUID, trigger stocksync.SyncTrigger) (*appsync.EnqueueResult, error)
}

// BulkSyncTriggerConfig holds configuration for the scheduled trigger
type BulkSyncTriggerConfig struct {
	// Interval between scheduled passes; zero disables the trigger
	Interval time.Duration
	// RunOnStart enqueues a pass immediately when started
	RunOnStart bool
}

// BulkSyncTrigger periodically enqueues a scheduled bulk sync per active account.
// Accounts with a pending or running job are left alone by the orchestrator's dedup.
type BulkSyncTrigger struct {
	config   BulkSyncTriggerConfig
	accounts AccountProvider
	enqueuer BulkSyncEnqueuer
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewBulkSyncTrigger creates a new scheduled trigger
func NewBulkSyncTrigger(config BulkSyncTriggerConfig, accounts AccountProvider, enqueuer BulkSyncEnqueuer, logger *zap.Logger) *BulkSyncTrigger {
	return &BulkSyncTrigger{
		config:   config,
		accounts: accounts,
		enqueuer: enqueuer,
		logger:   logger,
	}
}

// Start starts the trigger loop
func (t *BulkSyncTrigger) Start(ctx context.Context) error {
	if t.config.Interval <= 0 {
		t.logger.Info("Scheduled bulk sync disabled")
		return nil
	}

	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Scheduled bulk sync trigger started",
		zap.Duration("interval", t.config.Interval),
	)
	return nil
}

// Stop stops the trigger loop
func (t *BulkSyncTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Scheduled bulk sync trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *BulkSyncTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	if t.config.RunOnStart {
		t.RunOnce(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.RunOnce(ctx)
		}
	}
}

// RunOnce enqueues a scheduled bulk sync for every active account and
// returns the number of newly queued or restarted jobs.
func (t *BulkSyncTrigger) RunOnce(ctx context.Context) int {
	accountIDs, err := t.accounts.ActiveAccountIDs(ctx)
	if err != nil {
		t.logger.Error("Failed to list accounts for scheduled bulk sync", zap.Error(err))
		return 0
	}

	queued := 0
	for _, accountID := range accountIDs {
		if ctx.Err() != nil {
			break
		}
		result, err := t.enqueuer.EnqueueBulkSync(ctx, accountID, stocksync.SyncTriggerScheduled)
		if err != nil {
			t.logger.Error("Failed to enqueue scheduled bulk sync",
				zap.String("account_id", accountID.String()),
				zap.Error(err),
			)
			continue
		}
		if result.Status != appsync.EnqueueStatusAlreadyRunning {
			queued++
		}
	}

	t.logger.Debug("Scheduled bulk sync pass finished",
		zap.Int("accounts", len(accountIDs)),
		zap.Int("queued", queued),
	)
	return queued
}
