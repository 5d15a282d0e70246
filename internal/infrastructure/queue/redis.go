package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
)

// Redis queue defaults
const (
	DefaultKeyPrefix = "invsync:"
	DefaultLockTTL   = 2 * time.Minute
	// jobRetention keeps finished job records around for status queries
	jobRetention = 7 * 24 * time.Hour
	// maxUpdateAttempts bounds WATCH retries when the record changes underneath
	maxUpdateAttempts = 5
)

// RedisConfig configures a RedisQueue
type RedisConfig struct {
	KeyPrefix string
	// LockTTL is how long a worker lock survives without a heartbeat
	LockTTL time.Duration
}

// RedisQueue stores job records as JSON under <prefix>job:<key>, keeps ready
// keys in the <prefix>waiting sorted set scored by ready time, and guards
// active jobs with a redislock lock on <prefix>lock:<key>.
type RedisQueue struct {
	client *redis.Client
	locker *redislock.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*redislock.Lock
}

// NewRedisQueue creates a queue on an existing client
func NewRedisQueue(client *redis.Client, cfg RedisConfig, logger *zap.Logger) *RedisQueue {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisQueue{
		client: client,
		locker: redislock.New(client),
		prefix: cfg.KeyPrefix,
		ttl:    cfg.LockTTL,
		logger: logger,
		now:    time.Now,
		locks:  make(map[string]*redislock.Lock),
	}
}

// SetClock overrides the queue clock
func (q *RedisQueue) SetClock(now func() time.Time) {
	q.now = now
}

func (q *RedisQueue) jobKey(key string) string  { return q.prefix + "job:" + key }
func (q *RedisQueue) lockKey(key string) string { return q.prefix + "lock:" + key }
func (q *RedisQueue) waitingKey() string        { return q.prefix + "waiting" }

// Enqueue creates the job record with SETNX so a key exists at most once
func (q *RedisQueue) Enqueue(ctx context.Context, key string, payload stocksync.BulkSyncPayload, opts stocksync.EnqueueOptions) (*stocksync.SyncJob, error) {
	if key == "" {
		return nil, stocksync.ErrInvalidJobKey
	}

	now := q.now().UTC()
	job := &stocksync.SyncJob{
		Key:        key,
		AccountID:  payload.AccountID,
		State:      stocksync.JobStateWaiting,
		Priority:   opts.Priority,
		Payload:    payload,
		EnqueuedAt: now,
		ReadyAt:    now,
	}
	if opts.Delay > 0 {
		job.State = stocksync.JobStateDelayed
		job.ReadyAt = now.Add(opts.Delay)
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	created, err := q.client.SetNX(ctx, q.jobKey(key), data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("create job record: %w", err)
	}
	if !created {
		return nil, stocksync.ErrDuplicateJob
	}

	if err := q.client.ZAdd(ctx, q.waitingKey(), redis.Z{
		Score:  float64(job.ReadyAt.UnixMilli()),
		Member: key,
	}).Err(); err != nil {
		q.client.Del(ctx, q.jobKey(key))
		return nil, fmt.Errorf("schedule job: %w", err)
	}
	return job, nil
}

// Get loads the job record
func (q *RedisQueue) Get(ctx context.Context, key string) (*stocksync.SyncJob, error) {
	job, err := q.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if job.State == stocksync.JobStateDelayed && !q.now().Before(job.ReadyAt) {
		job.State = stocksync.JobStateWaiting
	}
	return job, nil
}

// Remove deletes the job unless a worker lock is held
func (q *RedisQueue) Remove(ctx context.Context, key string) error {
	locked, err := q.client.Exists(ctx, q.lockKey(key)).Result()
	if err != nil {
		return fmt.Errorf("check job lock: %w", err)
	}
	if locked > 0 {
		return stocksync.ErrJobLocked
	}

	pipe := q.client.TxPipeline()
	deleted := pipe.Del(ctx, q.jobKey(key))
	pipe.ZRem(ctx, q.waitingKey(), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove job: %w", err)
	}
	if deleted.Val() == 0 {
		return stocksync.ErrJobNotFound
	}
	return nil
}

// ForceFail marks the job failed and deletes its worker lock. The holding
// worker learns about it at its next heartbeat.
func (q *RedisQueue) ForceFail(ctx context.Context, key string, reason string) error {
	job, err := q.load(ctx, key)
	if err != nil {
		return err
	}
	q.finish(job, stocksync.JobStateFailed, reason, nil)

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	pipe := q.client.TxPipeline()
	pipe.Set(ctx, q.jobKey(key), data, jobRetention)
	pipe.ZRem(ctx, q.waitingKey(), key)
	pipe.Del(ctx, q.lockKey(key))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("force-fail job: %w", err)
	}
	return nil
}

// Reserve takes the highest priority ready job whose lock can be obtained
func (q *RedisQueue) Reserve(ctx context.Context) (*stocksync.SyncJob, error) {
	now := q.now().UTC()
	keys, err := q.client.ZRangeByScore(ctx, q.waitingKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list ready jobs: %w", err)
	}
	if len(keys) == 0 {
		return nil, stocksync.ErrQueueEmpty
	}

	candidates := make([]*stocksync.SyncJob, 0, len(keys))
	for _, key := range keys {
		job, err := q.load(ctx, key)
		if errors.Is(err, stocksync.ErrJobNotFound) {
			q.client.ZRem(ctx, q.waitingKey(), key)
			continue
		}
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, job)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return runsBefore(candidates[i], candidates[j])
	})

	for _, job := range candidates {
		lock, err := q.locker.Obtain(ctx, q.lockKey(job.Key), q.ttl, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("obtain job lock: %w", err)
		}

		removed, err := q.client.ZRem(ctx, q.waitingKey(), job.Key).Result()
		if err != nil || removed == 0 {
			// Another instance reserved it between listing and locking
			_ = lock.Release(ctx)
			if err != nil {
				return nil, fmt.Errorf("dequeue job: %w", err)
			}
			continue
		}

		job.State = stocksync.JobStateActive
		job.ProcessedOn = &now
		job.Attempts++
		if err := q.save(ctx, job, 0); err != nil {
			_ = lock.Release(ctx)
			return nil, err
		}

		q.mu.Lock()
		q.locks[job.Key] = lock
		q.mu.Unlock()
		return job, nil
	}
	return nil, stocksync.ErrQueueEmpty
}

// Heartbeat refreshes the worker lock and the job's progress timestamp
func (q *RedisQueue) Heartbeat(ctx context.Context, key string) error {
	lock := q.heldLock(key)
	if lock == nil {
		return stocksync.ErrJobNotActive
	}
	if err := lock.Refresh(ctx, q.ttl, nil); err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			q.dropLock(key)
			return stocksync.ErrJobNotActive
		}
		return fmt.Errorf("refresh job lock: %w", err)
	}

	err := q.updateActive(ctx, key, 0, func(job *stocksync.SyncJob) {
		now := q.now().UTC()
		job.ProcessedOn = &now
	})
	if errors.Is(err, stocksync.ErrJobNotFound) || errors.Is(err, stocksync.ErrJobNotActive) {
		q.release(ctx, key)
	}
	return err
}

// Complete stores the summary and releases the worker lock
func (q *RedisQueue) Complete(ctx context.Context, key string, summary *stocksync.BulkSyncSummary) error {
	return q.settle(ctx, key, stocksync.JobStateCompleted, "", summary)
}

// Fail marks a held job failed and releases the worker lock
func (q *RedisQueue) Fail(ctx context.Context, key string, reason string) error {
	return q.settle(ctx, key, stocksync.JobStateFailed, reason, nil)
}

func (q *RedisQueue) settle(ctx context.Context, key string, state stocksync.JobState, reason string, summary *stocksync.BulkSyncSummary) error {
	defer q.release(ctx, key)

	if q.heldLock(key) == nil {
		return stocksync.ErrJobNotActive
	}
	return q.updateActive(ctx, key, jobRetention, func(job *stocksync.SyncJob) {
		q.finish(job, state, reason, summary)
	})
}

// updateActive applies change to the record under WATCH and writes it back
// only while the job is still active, so a concurrent ForceFail always wins.
func (q *RedisQueue) updateActive(ctx context.Context, key string, ttl time.Duration, change func(*stocksync.SyncJob)) error {
	jobKey := q.jobKey(key)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, jobKey).Bytes()
		if errors.Is(err, redis.Nil) {
			return stocksync.ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("load job: %w", err)
		}
		var job stocksync.SyncJob
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("unmarshal job %s: %w", key, err)
		}
		if job.State != stocksync.JobStateActive {
			return stocksync.ErrJobNotActive
		}

		change(&job)
		updated, err := json.Marshal(&job)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, jobKey, updated, ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := q.client.Watch(ctx, txf, jobKey)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("update job %s: %w", key, redis.TxFailedErr)
}

func (q *RedisQueue) finish(job *stocksync.SyncJob, state stocksync.JobState, reason string, summary *stocksync.BulkSyncSummary) {
	now := q.now().UTC()
	job.State = state
	job.FinishedOn = &now
	job.FailedReason = reason
	if summary != nil {
		job.Result = summary
	}
}

func (q *RedisQueue) load(ctx context.Context, key string) (*stocksync.SyncJob, error) {
	data, err := q.client.Get(ctx, q.jobKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, stocksync.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	var job stocksync.SyncJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", key, err)
	}
	return &job, nil
}

// save overwrites an existing record; a removed job is not recreated
func (q *RedisQueue) save(ctx context.Context, job *stocksync.SyncJob, ttl time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	ok, err := q.client.SetXX(ctx, q.jobKey(job.Key), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	if !ok {
		return stocksync.ErrJobNotFound
	}
	return nil
}

func (q *RedisQueue) heldLock(key string) *redislock.Lock {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.locks[key]
}

func (q *RedisQueue) dropLock(key string) *redislock.Lock {
	q.mu.Lock()
	defer q.mu.Unlock()
	lock := q.locks[key]
	delete(q.locks, key)
	return lock
}

func (q *RedisQueue) release(ctx context.Context, key string) {
	lock := q.dropLock(key)
	if lock == nil {
		return
	}
	if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		q.logger.Warn("Failed to release job lock",
			zap.String("job_key", key),
			zap.Error(err),
		)
	}
}
