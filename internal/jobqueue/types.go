// Package jobqueue provides a job queue implementation with retry
// capabilities for handling asynchronous tasks with configurable retry
// policies and at-least-once execution semantics.
package jobqueue

import (
	"context"
	"errors"
	"time"
)

// Common errors that can be returned by job queue operations
var (
	ErrNilAction    = errors.New("cannot enqueue nil action")
	ErrQueueStopped = errors.New("job queue has been stopped")
	ErrQueueFull    = errors.New("job queue is full")
)

// RetryConfig holds the retry behavior of a job. The delay between
// attempts is fixed, not exponential.
type RetryConfig struct {
	MaxAttempts int           // Total number of attempts allowed (1 = no retry)
	Delay       time.Duration // Fixed delay between attempts
}

// Action defines the interface that must be implemented by any action
// that can be executed by the job queue.
type Action interface {
	Execute(ctx context.Context, data any) error
	GetDescription() string // Returns a human-readable description of the action
}

// PermanentFailureHandler is an optional interface for actions that want
// a terminal hook once all attempts are exhausted. The hook runs
// unconditionally and its outcome is not retried further.
type PermanentFailureHandler interface {
	OnPermanentFailure(ctx context.Context, data any, err error)
}

// JobStatus represents the current status of a job in the queue
type JobStatus int

const (
	// JobStatusPending indicates the job is waiting to be executed
	JobStatusPending JobStatus = iota
	// JobStatusRunning indicates the job is currently being executed
	JobStatusRunning
	// JobStatusCompleted indicates the job has completed successfully
	JobStatusCompleted
	// JobStatusFailed indicates the job has failed and will not be retried
	JobStatusFailed
	// JobStatusRetrying indicates the job has failed but will be retried
	JobStatusRetrying
)

// String returns a string representation of the job status
func (s JobStatus) String() string {
	switch s {
	case JobStatusPending:
		return "Pending"
	case JobStatusRunning:
		return "Running"
	case JobStatusCompleted:
		return "Completed"
	case JobStatusFailed:
		return "Failed"
	case JobStatusRetrying:
		return "Retrying"
	default:
		return "Unknown"
	}
}
