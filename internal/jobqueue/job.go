package jobqueue

import (
	"time"
)

// Job represents a unit of work in the job queue
type Job struct {
	ID          string      // Unique ID for this job
	Action      Action      // The action to execute
	Data        any         // Data for the action
	Attempts    int         // Number of attempts made so far
	MaxAttempts int         // Maximum number of attempts allowed
	CreatedAt   time.Time   // When the job was created
	NextRetryAt time.Time   // When to next attempt the job
	Status      JobStatus   // Current status of the job
	LastError   error       // Last error encountered
	Config      RetryConfig // Retry configuration for this job
}

// JobStats tracks statistics about job processing
type JobStats struct {
	TotalJobs      int
	SuccessfulJobs int
	FailedJobs     int
	ArchivedJobs   int
	DroppedJobs    int
	RetryAttempts  int
	ActionStats    map[string]ActionStats // Key is the type name of the action
}

// ActionStats tracks statistics for a specific action type
type ActionStats struct {
	Attempted  int // Total attempts (including retries)
	Successful int // Successfully completed jobs
	Failed     int // Permanently failed jobs (after retry attempts)
	Retried    int // Number of retry attempts
	Dropped    int // Jobs dropped due to queue full
}

// JobStatsSnapshot provides a point-in-time snapshot of job statistics
type JobStatsSnapshot struct {
	TotalJobs      int
	SuccessfulJobs int
	FailedJobs     int
	ArchivedJobs   int
	DroppedJobs    int
	RetryAttempts  int
	PendingJobs    int
	ActionStats    map[string]ActionStats
}
