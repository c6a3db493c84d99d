package jobqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// JobQueue manages a queue of jobs that can be retried with a fixed
// delay between attempts and a hard per-attempt execution timeout.
type JobQueue struct {
	jobs               []*Job
	archivedJobs       []*Job // Completed/failed jobs kept for inspection
	mu                 sync.Mutex
	stats              JobStats
	jobCounter         int
	stopCh             chan struct{}
	runningJobs        sync.WaitGroup // Track running jobs for graceful shutdown
	isRunning          bool
	maxArchivedJobs    int           // Maximum number of archived jobs to keep
	maxJobs            int           // Maximum number of pending jobs in the queue
	jobTimeout         time.Duration // Hard execution timeout per attempt
	processCancel      context.CancelFunc
	processingInterval time.Duration // Interval for the processing ticker
	logger             *slog.Logger
}

// Option configures a JobQueue.
type Option func(*JobQueue)

// WithMaxJobs caps the number of pending jobs in the queue.
func WithMaxJobs(maxJobs int) Option {
	return func(q *JobQueue) { q.maxJobs = maxJobs }
}

// WithJobTimeout sets the hard execution timeout per attempt.
func WithJobTimeout(timeout time.Duration) Option {
	return func(q *JobQueue) { q.jobTimeout = timeout }
}

// WithLogger sets the queue logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *JobQueue) { q.logger = logger }
}

// NewJobQueue creates a new job queue with the given options applied on
// top of the defaults.
func NewJobQueue(opts ...Option) *JobQueue {
	q := &JobQueue{
		jobs:               make([]*Job, 0),
		archivedJobs:       make([]*Job, 0),
		stopCh:             make(chan struct{}),
		maxArchivedJobs:    100,
		maxJobs:            1000,
		jobTimeout:         5 * time.Minute,
		processingInterval: 1 * time.Second,
		logger:             slog.Default().With("service", "jobqueue"),
		stats: JobStats{
			ActionStats: make(map[string]ActionStats),
		},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// SetProcessingInterval sets the processing interval, for tests.
func (q *JobQueue) SetProcessingInterval(interval time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processingInterval = interval
}

// Start starts the job queue processing with a context.
func (q *JobQueue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.isRunning {
		q.mu.Unlock()
		return
	}
	q.isRunning = true
	q.stopCh = make(chan struct{})
	q.mu.Unlock()

	processCtx, cancel := context.WithCancel(ctx)

	q.mu.Lock()
	q.processCancel = cancel
	q.mu.Unlock()

	go q.processJobs(processCtx)
}

// Stop stops the job queue processing, waiting up to timeout for running
// jobs to complete.
func (q *JobQueue) Stop(timeout time.Duration) error {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return nil
	}
	q.isRunning = false

	if q.processCancel != nil {
		q.processCancel()
		q.processCancel = nil
	}
	close(q.stopCh)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.runningJobs.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timed out waiting for jobs to complete after %v", timeout)
	}
}

// Enqueue adds a job to the queue. The job becomes due immediately.
func (q *JobQueue) Enqueue(action Action, data any, config RetryConfig) (*Job, error) {
	if action == nil {
		return nil, ErrNilAction
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.isRunning {
		return nil, ErrQueueStopped
	}

	if len(q.jobs) >= q.maxJobs {
		q.stats.DroppedJobs++

		actionType := fmt.Sprintf("%T", action)
		stats := q.stats.ActionStats[actionType]
		stats.Dropped++
		q.stats.ActionStats[actionType] = stats

		return nil, fmt.Errorf("%w: maximum queue size (%d) reached", ErrQueueFull, q.maxJobs)
	}

	q.jobCounter++
	job := &Job{
		ID:          fmt.Sprintf("job-%d", q.jobCounter),
		Action:      action,
		Data:        data,
		Attempts:    0,
		MaxAttempts: config.MaxAttempts,
		CreatedAt:   time.Now(),
		NextRetryAt: time.Now(), // Ready to run immediately
		Status:      JobStatusPending,
		Config:      config,
	}

	q.jobs = append(q.jobs, job)
	q.stats.TotalJobs++

	actionType := fmt.Sprintf("%T", action)
	stats := q.stats.ActionStats[actionType]
	stats.Attempted++
	q.stats.ActionStats[actionType] = stats

	return job, nil
}

// processJobs is the main job processing loop
func (q *JobQueue) processJobs(ctx context.Context) {
	q.mu.Lock()
	interval := q.processingInterval
	q.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopCh:
			q.logger.Info("job queue processing stopped")
			return
		case <-ctx.Done():
			q.logger.Info("job queue processing stopped via context", "error", ctx.Err())
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			q.archiveStaleJobs()
			q.processDueJobs(ctx)
		}
	}
}

// archiveStaleJobs moves completed and failed jobs to the archive.
func (q *JobQueue) archiveStaleJobs() {
	q.mu.Lock()
	defer q.mu.Unlock()

	var activeJobs, staleJobs []*Job
	for _, job := range q.jobs {
		if job.Status == JobStatusCompleted || job.Status == JobStatusFailed {
			staleJobs = append(staleJobs, job)
		} else {
			activeJobs = append(activeJobs, job)
		}
	}

	q.jobs = activeJobs
	q.archivedJobs = append(q.archivedJobs, staleJobs...)
	if len(q.archivedJobs) > q.maxArchivedJobs {
		excess := len(q.archivedJobs) - q.maxArchivedJobs
		q.archivedJobs = q.archivedJobs[excess:]
	}
	q.stats.ArchivedJobs = len(q.archivedJobs)
}

// processDueJobs launches jobs that are due for execution.
func (q *JobQueue) processDueJobs(ctx context.Context) {
	q.mu.Lock()

	var dueJobs []*Job
	now := time.Now()

	for _, job := range q.jobs {
		if (job.Status == JobStatusPending || job.Status == JobStatusRetrying) && !job.NextRetryAt.After(now) {
			dueJobs = append(dueJobs, job)
			job.Status = JobStatusRunning
		}
	}

	q.mu.Unlock()

	for _, job := range dueJobs {
		if ctx.Err() != nil {
			// Context was cancelled, revert job statuses and return
			q.mu.Lock()
			for _, j := range dueJobs {
				if j.Status == JobStatusRunning {
					if j.Attempts > 0 {
						j.Status = JobStatusRetrying
					} else {
						j.Status = JobStatusPending
					}
				}
			}
			q.mu.Unlock()
			return
		}

		q.runningJobs.Add(1)
		go func(j *Job) {
			defer q.runningJobs.Done()
			q.executeJob(ctx, j)
		}(job)
	}
}

// executeJob executes a job and handles retry scheduling and the
// permanent-failure hook.
func (q *JobQueue) executeJob(ctx context.Context, job *Job) {
	job.Attempts++

	q.mu.Lock()
	q.stats.RetryAttempts++
	actionType := fmt.Sprintf("%T", job.Action)
	stats := q.stats.ActionStats[actionType]
	stats.Retried++
	q.stats.ActionStats[actionType] = stats
	timeout := q.jobTimeout
	q.mu.Unlock()

	if job.Attempts > 1 {
		q.logger.Info("retrying job",
			"job_id", job.ID,
			"action", job.Action.GetDescription(),
			"attempt", job.Attempts,
			"max_attempts", job.MaxAttempts)
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so a late-finishing action can deliver its result without
	// blocking after the timeout branch has already won the select.
	errCh := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("job execution panicked: %v", r)
			}
		}()

		errCh <- job.Action.Execute(execCtx, job.Data)
	}()

	var err error
	select {
	case err = <-errCh:
	case <-execCtx.Done():
		ctxErr := execCtx.Err()
		if ctxErr == context.DeadlineExceeded {
			err = fmt.Errorf("job execution timed out after %v: %w", timeout, ctxErr)
		} else {
			err = fmt.Errorf("job execution was cancelled: %w", ctxErr)
		}
	}

	q.mu.Lock()

	if err != nil {
		job.LastError = err

		if job.Attempts >= job.MaxAttempts {
			job.Status = JobStatusFailed

			q.stats.FailedJobs++
			stats := q.stats.ActionStats[actionType]
			stats.Failed++
			q.stats.ActionStats[actionType] = stats
			q.mu.Unlock()

			q.logger.Error("job permanently failed",
				"job_id", job.ID,
				"action", job.Action.GetDescription(),
				"attempts", job.Attempts,
				"error", err)

			// Terminal hook runs once, outside the queue lock. Errors
			// from the hook are not retried further.
			if handler, ok := job.Action.(PermanentFailureHandler); ok {
				handler.OnPermanentFailure(ctx, job.Data, err)
			}
			return
		}

		job.Status = JobStatusRetrying
		job.NextRetryAt = time.Now().Add(job.Config.Delay)
		q.mu.Unlock()

		q.logger.Warn("job failed, will retry",
			"job_id", job.ID,
			"action", job.Action.GetDescription(),
			"retry_in", job.Config.Delay,
			"attempt", job.Attempts,
			"max_attempts", job.MaxAttempts,
			"error", err)
		return
	}

	job.Status = JobStatusCompleted

	q.stats.SuccessfulJobs++
	stats = q.stats.ActionStats[actionType]
	stats.Successful++
	q.stats.ActionStats[actionType] = stats
	q.mu.Unlock()

	if job.Attempts > 1 {
		q.logger.Info("job succeeded after retries",
			"job_id", job.ID,
			"action", job.Action.GetDescription(),
			"attempts", job.Attempts)
	}
}

// GetStats returns a snapshot of the current job statistics
func (q *JobQueue) GetStats() JobStatsSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	actionStatsCopy := make(map[string]ActionStats, len(q.stats.ActionStats))
	for k, v := range q.stats.ActionStats {
		actionStatsCopy[k] = v
	}

	pending := 0
	for _, job := range q.jobs {
		if job.Status == JobStatusPending || job.Status == JobStatusRetrying {
			pending++
		}
	}

	return JobStatsSnapshot{
		TotalJobs:      q.stats.TotalJobs,
		SuccessfulJobs: q.stats.SuccessfulJobs,
		FailedJobs:     q.stats.FailedJobs,
		ArchivedJobs:   q.stats.ArchivedJobs,
		DroppedJobs:    q.stats.DroppedJobs,
		RetryAttempts:  q.stats.RetryAttempts,
		PendingJobs:    pending,
		ActionStats:    actionStatsCopy,
	}
}

// ProcessImmediately processes any due jobs without waiting for the
// ticker. Intended for tests.
func (q *JobQueue) ProcessImmediately(ctx context.Context) {
	q.archiveStaleJobs()
	q.processDueJobs(ctx)
}

// Wait blocks until all currently running jobs have finished. Intended
// for tests.
func (q *JobQueue) Wait() {
	q.runningJobs.Wait()
}
