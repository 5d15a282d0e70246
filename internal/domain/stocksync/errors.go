package stocksync

import (
	"errors"
	"fmt"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/shared"
)

// Error codes shared with the HTTP layer
const (
	CodeExternalSyncFailure = "EXTERNAL_SYNC_FAILURE"
	CodeJobAlreadyRunning   = "JOB_ALREADY_RUNNING"
)

var (
	// ErrJobAlreadyRunning is the normal outcome of enqueuing while a job is pending
	ErrJobAlreadyRunning = shared.NewDomainError(CodeJobAlreadyRunning, "stocksync: bulk sync already running")

	// Queue errors
	ErrJobNotFound   = errors.New("stocksync: job not found")
	ErrJobLocked     = errors.New("stocksync: job is locked by an active worker")
	ErrDuplicateJob  = errors.New("stocksync: job with this key already exists")
	ErrJobNotActive  = errors.New("stocksync: job is no longer active")
	ErrQueueEmpty    = errors.New("stocksync: no job ready")
	ErrInvalidJobKey = errors.New("stocksync: invalid job key")
	ErrSyncCancelled = errors.New("stocksync: bulk sync cancelled")

	// Validation errors
	ErrInvalidAccountID = errors.New("stocksync: invalid account ID")
	ErrInvalidTrigger   = errors.New("stocksync: invalid sync trigger")
	ErrInvalidProduct   = errors.New("stocksync: invalid product key")
	ErrNegativeStock    = errors.New("stocksync: stock value cannot be negative")
)

// FailureReason classifies a Stock Provider failure
type FailureReason string

const (
	FailureReasonNetwork    FailureReason = "network"
	FailureReasonAuth       FailureReason = "auth"
	FailureReasonValidation FailureReason = "validation"
	FailureReasonUnknown    FailureReason = "unknown"
)

// ExternalSyncFailure is returned when the Stock Provider rejects or cannot
// receive a stock update. It is never retried by the reconciler.
type ExternalSyncFailure struct {
	Reason FailureReason
	Ref    bom.ExternalRef
	Err    error
}

// NewExternalSyncFailure creates a new external sync failure
func NewExternalSyncFailure(reason FailureReason, ref bom.ExternalRef, err error) *ExternalSyncFailure {
	return &ExternalSyncFailure{Reason: reason, Ref: ref, Err: err}
}

func (e *ExternalSyncFailure) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("stocksync: external sync failed (%s) for %s", e.Reason, e.Ref)
	}
	return fmt.Sprintf("stocksync: external sync failed (%s) for %s: %v", e.Reason, e.Ref, e.Err)
}

// Unwrap returns the provider error
func (e *ExternalSyncFailure) Unwrap() error { return e.Err }

// Code returns the stable error code
func (e *ExternalSyncFailure) Code() string { return CodeExternalSyncFailure }

// AsExternalSyncFailure returns the ExternalSyncFailure in err's chain, if any
func AsExternalSyncFailure(err error) (*ExternalSyncFailure, bool) {
	var failure *ExternalSyncFailure
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}
