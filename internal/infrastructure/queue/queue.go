// Package queue provides the durable work queue behind bulk inventory syncs.
// MemoryQueue serves single-instance deployments and tests; RedisQueue shares
// job state and worker locks across instances.
package queue

import (
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
)

// Queue is both sides of the job queue
type Queue interface {
	stocksync.WorkQueue
	stocksync.JobConsumer
}

var (
	_ Queue = (*MemoryQueue)(nil)
	_ Queue = (*RedisQueue)(nil)
)

func copyJob(job *stocksync.SyncJob) *stocksync.SyncJob {
	if job == nil {
		return nil
	}
	c := *job
	if job.ProcessedOn != nil {
		t := *job.ProcessedOn
		c.ProcessedOn = &t
	}
	if job.FinishedOn != nil {
		t := *job.FinishedOn
		c.FinishedOn = &t
	}
	if job.Result != nil {
		r := *job.Result
		r.Errors = append([]stocksync.ProductFailure(nil), job.Result.Errors...)
		c.Result = &r
	}
	return &c
}

// runsBefore orders ready jobs by priority, then by readiness
func runsBefore(a, b *stocksync.SyncJob) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if !a.ReadyAt.Equal(b.ReadyAt) {
		return a.ReadyAt.Before(b.ReadyAt)
	}
	return a.Key < b.Key
}
