package queue

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	appsync "github.com/MerlinStacks/woodash-dashboard-sub007/internal/application/stocksync"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
)

var (
	// One Redis container serves every test in the package; each test gets its own key prefix
	sharedRedis     *tcredis.RedisContainer
	sharedRedisAddr string
	sharedRedisMu   sync.Mutex
)

// redisAddr starts the shared Redis container on first use
func redisAddr(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping Redis queue test in short mode")
	}

	sharedRedisMu.Lock()
	defer sharedRedisMu.Unlock()
	if sharedRedis != nil {
		return sharedRedisAddr
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx,
		"redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start Redis container")

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err, "Failed to get Redis endpoint")

	sharedRedis = container
	sharedRedisAddr = addr
	return addr
}

func TestMain(m *testing.M) {
	code := m.Run()
	if sharedRedis != nil {
		_ = sharedRedis.Terminate(context.Background())
	}
	os.Exit(code)
}

func newTestRedisQueue(t *testing.T) *RedisQueue {
	return newTestRedisQueueWithTTL(t, 5*time.Second)
}

func newTestRedisQueueWithTTL(t *testing.T, lockTTL time.Duration) *RedisQueue {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: redisAddr(t)})

	prefix := "invsync-test:" + uuid.NewString() + ":"
	t.Cleanup(func() {
		keys, _ := client.Keys(context.Background(), prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(context.Background(), keys...)
		}
		_ = client.Close()
	})
	return NewRedisQueue(client, RedisConfig{KeyPrefix: prefix, LockTTL: lockTTL}, zap.NewNop())
}

func TestRedisQueue_Lifecycle(t *testing.T) {
	q := newTestRedisQueue(t)
	ctx := context.Background()
	accountID := uuid.New()
	key := stocksync.DedupKey(accountID)

	_, err := q.Enqueue(ctx, key, payloadFor(accountID, stocksync.SyncTriggerManual), stocksync.EnqueueOptions{Priority: stocksync.PriorityManual})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, key, payloadFor(accountID, stocksync.SyncTriggerManual), stocksync.EnqueueOptions{})
	assert.ErrorIs(t, err, stocksync.ErrDuplicateJob)

	job, err := q.Reserve(ctx)
	require.NoError(t, err)
	assert.Equal(t, key, job.Key)
	assert.Equal(t, accountID, job.Payload.AccountID)

	assert.ErrorIs(t, q.Remove(ctx, key), stocksync.ErrJobLocked)
	require.NoError(t, q.Heartbeat(ctx, key))

	require.NoError(t, q.Complete(ctx, key, &stocksync.BulkSyncSummary{Total: 1, Synced: 1}))
	got, err := q.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, stocksync.JobStateCompleted, got.State)
	assert.Equal(t, 1, got.Result.Synced)

	require.NoError(t, q.Remove(ctx, key))
	_, err = q.Get(ctx, key)
	assert.ErrorIs(t, err, stocksync.ErrJobNotFound)
}

func TestRedisQueue_ForceFailCancelsWorker(t *testing.T) {
	q := newTestRedisQueue(t)
	ctx := context.Background()
	key := stocksync.DedupKey(uuid.New())

	_, err := q.Enqueue(ctx, key, stocksync.BulkSyncPayload{}, stocksync.EnqueueOptions{})
	require.NoError(t, err)
	_, err = q.Reserve(ctx)
	require.NoError(t, err)

	require.NoError(t, q.ForceFail(ctx, key, "stale"))
	assert.ErrorIs(t, q.Heartbeat(ctx, key), stocksync.ErrJobNotActive)

	got, err := q.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, stocksync.JobStateFailed, got.State)
	assert.NoError(t, q.Remove(ctx, key))
}

func TestRedisQueue_EmptyAndDelayed(t *testing.T) {
	q := newTestRedisQueue(t)
	ctx := context.Background()

	_, err := q.Reserve(ctx)
	assert.ErrorIs(t, err, stocksync.ErrQueueEmpty)

	key := stocksync.DedupKey(uuid.New())
	_, err = q.Enqueue(ctx, key, stocksync.BulkSyncPayload{}, stocksync.EnqueueOptions{Delay: time.Hour})
	require.NoError(t, err)

	_, err = q.Reserve(ctx)
	assert.ErrorIs(t, err, stocksync.ErrQueueEmpty)

	got, err := q.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, stocksync.JobStateDelayed, got.State)
}

func TestRedisQueue_StaleJobRecovery(t *testing.T) {
	q := newTestRedisQueueWithTTL(t, 200*time.Millisecond)
	ctx := context.Background()
	accountID := uuid.New()

	orch := appsync.NewOrchestrator(q, appsync.OrchestratorConfig{StaleAfter: time.Minute}, zap.NewNop())
	first, err := orch.EnqueueBulkSync(ctx, accountID, stocksync.SyncTriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, appsync.EnqueueStatusQueued, first.Status)

	job, err := q.Reserve(ctx)
	require.NoError(t, err)
	require.NotNil(t, job.ProcessedOn)

	// The worker dies: no heartbeat, so the lock expires on its own
	require.Eventually(t, func() bool {
		n, err := q.client.Exists(ctx, q.lockKey(job.Key)).Result()
		return err == nil && n == 0
	}, 5*time.Second, 50*time.Millisecond)

	t.Run("healthy job is reported as running", func(t *testing.T) {
		orch.SetClock(func() time.Time { return job.ProcessedOn.Add(30 * time.Second) })
		res, err := orch.EnqueueBulkSync(ctx, accountID, stocksync.SyncTriggerManual)
		require.NoError(t, err)
		assert.Equal(t, appsync.EnqueueStatusAlreadyRunning, res.Status)
	})

	t.Run("stale job is replaced", func(t *testing.T) {
		orch.SetClock(func() time.Time { return job.ProcessedOn.Add(2 * time.Minute) })
		res, err := orch.EnqueueBulkSync(ctx, accountID, stocksync.SyncTriggerManual)
		require.NoError(t, err)
		assert.Equal(t, appsync.EnqueueStatusRestarted, res.Status)
		require.NotNil(t, res.Recovered)
		assert.Equal(t, job.Key, res.Recovered.Key)
		assert.Equal(t, 2*time.Minute, res.Recovered.StaleFor)

		got, err := q.Get(ctx, job.Key)
		require.NoError(t, err)
		assert.Equal(t, stocksync.JobStateWaiting, got.State)
		assert.Equal(t, stocksync.SyncTriggerManual, got.Payload.Trigger)
		assert.Zero(t, got.Attempts)
	})

	t.Run("old worker learns it lost the job", func(t *testing.T) {
		assert.ErrorIs(t, q.Heartbeat(ctx, job.Key), stocksync.ErrJobNotActive)
	})

	t.Run("replacement can be reserved", func(t *testing.T) {
		again, err := q.Reserve(ctx)
		require.NoError(t, err)
		assert.Equal(t, job.Key, again.Key)
		assert.Equal(t, 1, again.Attempts)
	})
}

func TestRedisQueue_HeartbeatDoesNotOverwriteForceFail(t *testing.T) {
	q := newTestRedisQueue(t)
	ctx := context.Background()
	key := stocksync.DedupKey(uuid.New())

	_, err := q.Enqueue(ctx, key, stocksync.BulkSyncPayload{}, stocksync.EnqueueOptions{})
	require.NoError(t, err)
	_, err = q.Reserve(ctx)
	require.NoError(t, err)

	// A second instance on the same keys force-fails the job while the
	// heartbeat sits between reading and writing the record.
	other := NewRedisQueue(q.client, RedisConfig{KeyPrefix: q.prefix, LockTTL: q.ttl}, zap.NewNop())
	var once sync.Once
	q.SetClock(func() time.Time {
		once.Do(func() {
			require.NoError(t, other.ForceFail(ctx, key, "cancelled by user"))
		})
		return time.Now()
	})

	assert.ErrorIs(t, q.Heartbeat(ctx, key), stocksync.ErrJobNotActive)

	got, err := q.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, stocksync.JobStateFailed, got.State)
	assert.Equal(t, "cancelled by user", got.FailedReason)
}
