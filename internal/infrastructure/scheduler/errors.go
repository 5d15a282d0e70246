package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrJobTimeout is recorded as the failure reason of a job that exceeded its timeout
	ErrJobTimeout = errors.New("bulk sync timed out")

	// ErrWorkerStopped is recorded as the failure reason of a job interrupted by shutdown
	ErrWorkerStopped = errors.New("bulk sync worker stopped")
)
