package queue

import (
	"context"
	"sync"
	"time"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
)

type memoryEntry struct {
	job    *stocksync.SyncJob
	locked bool
}

// MemoryQueue is an in-process job queue. Jobs do not survive a restart.
type MemoryQueue struct {
	mu   sync.Mutex
	jobs map[string]*memoryEntry
	now  func() time.Time
}

// NewMemoryQueue creates a new in-memory queue
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		jobs: make(map[string]*memoryEntry),
		now:  time.Now,
	}
}

// SetClock overrides the queue clock
func (q *MemoryQueue) SetClock(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}

// Enqueue adds a job, or returns stocksync.ErrDuplicateJob if the key is taken
func (q *MemoryQueue) Enqueue(ctx context.Context, key string, payload stocksync.BulkSyncPayload, opts stocksync.EnqueueOptions) (*stocksync.SyncJob, error) {
	if key == "" {
		return nil, stocksync.ErrInvalidJobKey
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.jobs[key]; exists {
		return nil, stocksync.ErrDuplicateJob
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
	q.jobs[key] = &memoryEntry{job: job}
	return copyJob(job), nil
}

// Get returns a copy of the job
func (q *MemoryQueue) Get(ctx context.Context, key string) (*stocksync.SyncJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.jobs[key]
	if !ok {
		return nil, stocksync.ErrJobNotFound
	}
	q.promote(entry)
	return copyJob(entry.job), nil
}

// Remove deletes a job that no worker holds
func (q *MemoryQueue) Remove(ctx context.Context, key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.jobs[key]
	if !ok {
		return stocksync.ErrJobNotFound
	}
	if entry.locked {
		return stocksync.ErrJobLocked
	}
	delete(q.jobs, key)
	return nil
}

// ForceFail marks the job failed and drops the worker lock
func (q *MemoryQueue) ForceFail(ctx context.Context, key string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.jobs[key]
	if !ok {
		return stocksync.ErrJobNotFound
	}
	q.finish(entry, stocksync.JobStateFailed, reason, nil)
	return nil
}

// Reserve locks the next ready job and marks it active
func (q *MemoryQueue) Reserve(ctx context.Context) (*stocksync.SyncJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	var next *memoryEntry
	for _, entry := range q.jobs {
		q.promote(entry)
		if entry.locked || entry.job.State != stocksync.JobStateWaiting {
			continue
		}
		if next == nil || runsBefore(entry.job, next.job) {
			next = entry
		}
	}
	if next == nil {
		return nil, stocksync.ErrQueueEmpty
	}

	now := q.now().UTC()
	next.locked = true
	next.job.State = stocksync.JobStateActive
	next.job.ProcessedOn = &now
	next.job.Attempts++
	return copyJob(next.job), nil
}

// Heartbeat refreshes the job's progress timestamp
func (q *MemoryQueue) Heartbeat(ctx context.Context, key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, err := q.held(key)
	if err != nil {
		return err
	}
	now := q.now().UTC()
	entry.job.ProcessedOn = &now
	return nil
}

// Complete stores the summary and releases the job
func (q *MemoryQueue) Complete(ctx context.Context, key string, summary *stocksync.BulkSyncSummary) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, err := q.held(key)
	if err != nil {
		return err
	}
	q.finish(entry, stocksync.JobStateCompleted, "", summary)
	return nil
}

// Fail marks a held job failed and releases it
func (q *MemoryQueue) Fail(ctx context.Context, key string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, err := q.held(key)
	if err != nil {
		return err
	}
	q.finish(entry, stocksync.JobStateFailed, reason, nil)
	return nil
}

// held returns an active, locked job. Callers hold q.mu.
func (q *MemoryQueue) held(key string) (*memoryEntry, error) {
	entry, ok := q.jobs[key]
	if !ok {
		return nil, stocksync.ErrJobNotFound
	}
	if !entry.locked || entry.job.State != stocksync.JobStateActive {
		return nil, stocksync.ErrJobNotActive
	}
	return entry, nil
}

// promote moves a due delayed job to waiting. Callers hold q.mu.
func (q *MemoryQueue) promote(entry *memoryEntry) {
	if entry.job.State == stocksync.JobStateDelayed && !q.now().Before(entry.job.ReadyAt) {
		entry.job.State = stocksync.JobStateWaiting
	}
}

func (q *MemoryQueue) finish(entry *memoryEntry, state stocksync.JobState, reason string, summary *stocksync.BulkSyncSummary) {
	now := q.now().UTC()
	entry.locked = false
	entry.job.State = state
	entry.job.FinishedOn = &now
	entry.job.FailedReason = reason
	if summary != nil {
		entry.job.Result = summary
	}
}
