package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/logger"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/queue"
)

// fakeExecutor runs a scripted function per job
type fakeExecutor struct {
	mu   sync.Mutex
	runs []string
	run  func(ctx context.Context, job *stocksync.SyncJob, heartbeat stocksync.HeartbeatFunc) (*stocksync.BulkSyncSummary, error)
}

func (e *fakeExecutor) Run(ctx context.Context, job *stocksync.SyncJob, heartbeat stocksync.HeartbeatFunc) (*stocksync.BulkSyncSummary, error) {
	e.mu.Lock()
	e.runs = append(e.runs, job.Key)
	e.mu.Unlock()
	return e.run(ctx, job, heartbeat)
}

func testWorkerConfig() BulkSyncWorkerConfig {
	return BulkSyncWorkerConfig{
		Workers:           1,
		PollInterval:      10 * time.Millisecond,
		JobTimeout:        time.Second,
		HeartbeatInterval: 20 * time.Millisecond,
	}
}

func enqueueJob(t *testing.T, q *queue.MemoryQueue) string {
	t.Helper()
	accountID := uuid.New()
	key := stocksync.DedupKey(accountID)
	_, err := q.Enqueue(context.Background(), key, stocksync.BulkSyncPayload{AccountID: accountID, Trigger: stocksync.SyncTriggerManual}, stocksync.EnqueueOptions{})
	require.NoError(t, err)
	return key
}

func TestBulkSyncWorkerConfig_Validate(t *testing.T) {
	cfg := DefaultBulkSyncWorkerConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Workers = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	_, err := NewBulkSyncWorker(cfg, queue.NewMemoryQueue(), &fakeExecutor{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBulkSyncWorker_ProcessJob(t *testing.T) {
	ctx := context.Background()

	t.Run("completes with summary", func(t *testing.T) {
		q := queue.NewMemoryQueue()
		key := enqueueJob(t, q)
		exec := &fakeExecutor{run: func(ctx context.Context, job *stocksync.SyncJob, heartbeat stocksync.HeartbeatFunc) (*stocksync.BulkSyncSummary, error) {
			require.NoError(t, heartbeat(ctx))
			return &stocksync.BulkSyncSummary{Total: 3, Synced: 3}, nil
		}}
		w, err := NewBulkSyncWorker(testWorkerConfig(), q, exec, zap.NewNop())
		require.NoError(t, err)

		job, err := q.Reserve(ctx)
		require.NoError(t, err)
		w.ProcessJob(ctx, job, 0)

		got, err := q.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, stocksync.JobStateCompleted, got.State)
		assert.Equal(t, 3, got.Result.Synced)
	})

	t.Run("job context carries account and job key", func(t *testing.T) {
		q := queue.NewMemoryQueue()
		key := enqueueJob(t, q)
		core, recorded := observer.New(zapcore.InfoLevel)
		exec := &fakeExecutor{run: func(ctx context.Context, job *stocksync.SyncJob, _ stocksync.HeartbeatFunc) (*stocksync.BulkSyncSummary, error) {
			assert.Equal(t, job.Key, logger.GetJobKey(ctx))
			assert.Equal(t, job.AccountID, logger.GetAccountID(ctx))
			logger.FromContext(ctx).Info("Reconciling product")
			return &stocksync.BulkSyncSummary{}, nil
		}}
		w, err := NewBulkSyncWorker(testWorkerConfig(), q, exec, zap.New(core))
		require.NoError(t, err)

		job, err := q.Reserve(ctx)
		require.NoError(t, err)
		w.ProcessJob(ctx, job, 3)

		entries := recorded.FilterMessage("Reconciling product").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, key, fields["job_key"])
		assert.Equal(t, job.AccountID.String(), fields["account_id"])

		completed := recorded.FilterMessage("Bulk sync job completed").All()
		require.Len(t, completed, 1)
		assert.Equal(t, int64(3), completed[0].ContextMap()["worker_id"])
	})

	t.Run("failure is recorded", func(t *testing.T) {
		q := queue.NewMemoryQueue()
		key := enqueueJob(t, q)
		exec := &fakeExecutor{run: func(context.Context, *stocksync.SyncJob, stocksync.HeartbeatFunc) (*stocksync.BulkSyncSummary, error) {
			return nil, errors.New("load component graph: db down")
		}}
		w, err := NewBulkSyncWorker(testWorkerConfig(), q, exec, zap.NewNop())
		require.NoError(t, err)

		job, err := q.Reserve(ctx)
		require.NoError(t, err)
		w.ProcessJob(ctx, job, 0)

		got, err := q.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, stocksync.JobStateFailed, got.State)
		assert.Contains(t, got.FailedReason, "db down")
	})

	t.Run("force-failed job stays failed", func(t *testing.T) {
		q := queue.NewMemoryQueue()
		key := enqueueJob(t, q)
		exec := &fakeExecutor{run: func(ctx context.Context, job *stocksync.SyncJob, heartbeat stocksync.HeartbeatFunc) (*stocksync.BulkSyncSummary, error) {
			require.NoError(t, q.ForceFail(ctx, job.Key, "cancelled by user"))
			assert.ErrorIs(t, heartbeat(ctx), stocksync.ErrJobNotActive)
			return &stocksync.BulkSyncSummary{Aborted: true}, stocksync.ErrSyncCancelled
		}}
		w, err := NewBulkSyncWorker(testWorkerConfig(), q, exec, zap.NewNop())
		require.NoError(t, err)

		job, err := q.Reserve(ctx)
		require.NoError(t, err)
		w.ProcessJob(ctx, job, 0)

		got, err := q.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, stocksync.JobStateFailed, got.State)
		assert.Equal(t, "cancelled by user", got.FailedReason)
	})

	t.Run("timeout fails the job", func(t *testing.T) {
		q := queue.NewMemoryQueue()
		key := enqueueJob(t, q)
		exec := &fakeExecutor{run: func(ctx context.Context, _ *stocksync.SyncJob, _ stocksync.HeartbeatFunc) (*stocksync.BulkSyncSummary, error) {
			<-ctx.Done()
			return &stocksync.BulkSyncSummary{Aborted: true}, stocksync.ErrSyncCancelled
		}}
		cfg := testWorkerConfig()
		cfg.JobTimeout = 50 * time.Millisecond
		w, err := NewBulkSyncWorker(cfg, q, exec, zap.NewNop())
		require.NoError(t, err)

		job, err := q.Reserve(ctx)
		require.NoError(t, err)
		w.ProcessJob(ctx, job, 0)

		got, err := q.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, stocksync.JobStateFailed, got.State)
		assert.Equal(t, ErrJobTimeout.Error(), got.FailedReason)
	})
}

func TestBulkSyncWorker_StartStop(t *testing.T) {
	q := queue.NewMemoryQueue()
	key := enqueueJob(t, q)

	done := make(chan struct{})
	exec := &fakeExecutor{run: func(context.Context, *stocksync.SyncJob, stocksync.HeartbeatFunc) (*stocksync.BulkSyncSummary, error) {
		defer close(done)
		return &stocksync.BulkSyncSummary{Total: 1, Skipped: 1}, nil
	}}
	w, err := NewBulkSyncWorker(testWorkerConfig(), q, exec, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not picked up")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Stop(stopCtx))
	require.NoError(t, w.Stop(stopCtx))

	got, err := q.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, stocksync.JobStateCompleted, got.State)
}
