package stocksync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
)

// dedupKeyPrefix namespaces bulk sync jobs in the work queue
const dedupKeyPrefix = "inventory-sync:"

// DedupKey returns the job key of an account's bulk sync.
// It depends on the account only, never on the payload.
func DedupKey(accountID uuid.UUID) string {
	return dedupKeyPrefix + accountID.String()
}

// JobState is the lifecycle state of a SyncJob
type JobState string

const (
	JobStateWaiting   JobState = "waiting"
	JobStateActive    JobState = "active"
	JobStateDelayed   JobState = "delayed"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// IsTerminal returns true for completed and failed jobs
func (s JobState) IsTerminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// IsPending returns true for jobs that have not been picked up yet
func (s JobState) IsPending() bool {
	return s == JobStateWaiting || s == JobStateDelayed
}

// String returns the string representation of JobState
func (s JobState) String() string {
	return string(s)
}

// Job priorities; lower runs first
const (
	PriorityManual    = 1
	PriorityScheduled = 10
)

// PriorityFor returns the queue priority of a trigger
func PriorityFor(trigger SyncTrigger) int {
	if trigger == SyncTriggerManual {
		return PriorityManual
	}
	return PriorityScheduled
}

// BulkSyncPayload is the body of a bulk sync job
type BulkSyncPayload struct {
	AccountID   uuid.UUID   `json:"account_id"`
	Trigger     SyncTrigger `json:"trigger"`
	RequestedAt time.Time   `json:"requested_at"`
}

// ProductFailure is one product that could not be reconciled during a bulk pass
type ProductFailure struct {
	ProductID   uuid.UUID `json:"product_id"`
	VariationID int64     `json:"variation_id,omitempty"`
	ProductName string    `json:"product_name"`
	Code        string    `json:"code,omitempty"`
	Message     string    `json:"message"`
}

// BulkSyncSummary counts the outcome of a bulk pass
type BulkSyncSummary struct {
	Total     int              `json:"total"`
	Synced    int              `json:"synced"`
	Skipped   int              `json:"skipped"`
	Errored   int              `json:"errored"`
	Errors    []ProductFailure `json:"errors,omitempty"`
	Aborted   bool             `json:"aborted,omitempty"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration"`
}

// MaxReportedFailures caps the failures kept in a summary
const MaxReportedFailures = 100

// RecordFailure counts a failed product and keeps its details up to MaxReportedFailures
func (s *BulkSyncSummary) RecordFailure(key bom.ProductKey, name, code string, err error) {
	s.Errored++
	if len(s.Errors) >= MaxReportedFailures {
		return
	}
	s.Errors = append(s.Errors, ProductFailure{
		ProductID:   key.ProductID,
		VariationID: key.VariationID,
		ProductName: name,
		Code:        code,
		Message:     err.Error(),
	})
}

// SyncJob is the queue record of an account's bulk sync
type SyncJob struct {
	Key          string           `json:"key"`
	AccountID    uuid.UUID        `json:"account_id"`
	State        JobState         `json:"state"`
	Priority     int              `json:"priority"`
	Payload      BulkSyncPayload  `json:"payload"`
	EnqueuedAt   time.Time        `json:"enqueued_at"`
	ReadyAt      time.Time        `json:"ready_at"`
	ProcessedOn  *time.Time       `json:"processed_on,omitempty"`
	FinishedOn   *time.Time       `json:"finished_on,omitempty"`
	FailedReason string           `json:"failed_reason,omitempty"`
	Result       *BulkSyncSummary `json:"result,omitempty"`
	Attempts     int              `json:"attempts"`
}

// LastProgress returns the heartbeat, or the enqueue time when the job never heartbeated
func (j *SyncJob) LastProgress() time.Time {
	if j.ProcessedOn != nil {
		return *j.ProcessedOn
	}
	return j.EnqueuedAt
}

// IsStale returns true if an active job made no progress for longer than threshold
func (j *SyncJob) IsStale(now time.Time, threshold time.Duration) bool {
	if j.State != JobStateActive {
		return false
	}
	return now.Sub(j.LastProgress()) > threshold
}

// EnqueueOptions controls how a job is queued
type EnqueueOptions struct {
	Priority int
	Delay    time.Duration
}

// WorkQueue is the producer side of the durable job queue.
// Enqueue returns ErrDuplicateJob when a job with the key already exists.
type WorkQueue interface {
	Enqueue(ctx context.Context, key string, payload BulkSyncPayload, opts EnqueueOptions) (*SyncJob, error)
	// Get returns ErrJobNotFound when no job has the key
	Get(ctx context.Context, key string) (*SyncJob, error)
	// Remove returns ErrJobLocked while a worker holds the job
	Remove(ctx context.Context, key string) error
	// ForceFail moves the job to failed regardless of worker locks
	ForceFail(ctx context.Context, key string, reason string) error
}

// JobConsumer is the worker side of the durable job queue
type JobConsumer interface {
	// Reserve moves the next ready job to active and locks it, or returns ErrQueueEmpty
	Reserve(ctx context.Context) (*SyncJob, error)
	// Heartbeat refreshes ProcessedOn and the lock; ErrJobNotActive means the job was cancelled
	Heartbeat(ctx context.Context, key string) error
	Complete(ctx context.Context, key string, summary *BulkSyncSummary) error
	Fail(ctx context.Context, key string, reason string) error
}

// HeartbeatFunc reports progress of a running job. ErrJobNotActive or
// ErrJobNotFound tells the caller the job was cancelled.
type HeartbeatFunc func(ctx context.Context) error

// StaleJobRecovered describes an active job the watchdog force-failed because
// it stopped heartbeating. It is informational, never an error.
type StaleJobRecovered struct {
	Key          string
	AccountID    uuid.UUID
	LastProgress time.Time
	StaleFor     time.Duration
}
