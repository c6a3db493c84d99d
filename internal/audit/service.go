package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cfornesa/ethics-risk-audit-assistant/internal/conf"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/datastore"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/events"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/jobqueue"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/llm"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/logging"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/notification"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/observability"
)

// Dispatcher is the subset of the notification dispatcher the audit
// pipeline needs. Satisfied by *notification.Dispatcher.
type Dispatcher interface {
	DispatchHighRiskAlert(ctx context.Context, item *datastore.Item, projectName string) error
}

// Service owns the audit job queue and enqueues audits for items. It is
// also an event bus consumer: item lifecycle events arriving on the bus
// are translated into queued audit jobs.
type Service struct {
	settings   *conf.Settings
	store      datastore.Interface
	llm        *llm.Client
	dispatcher Dispatcher
	queue      *jobqueue.JobQueue
	metrics    *observability.Metrics
	logger     *slog.Logger

	// inFlight holds a lease per item currently queued or running, so
	// duplicate enqueue requests for the same item coalesce instead of
	// racing each other through the pipeline.
	mu       sync.Mutex
	inFlight map[uint]struct{}
}

// New creates the audit service. metrics may be nil.
func New(settings *conf.Settings, store datastore.Interface, client *llm.Client,
	dispatcher *notification.Dispatcher, metrics *observability.Metrics) *Service {

	logger := logging.ForService("audit")
	if logger == nil {
		logger = slog.Default().With("service", "audit")
	}

	queueOpts := []jobqueue.Option{
		jobqueue.WithLogger(logger),
		jobqueue.WithJobTimeout(time.Duration(settings.Queue.Timeout) * time.Second),
	}
	if settings.Queue.MaxSize > 0 {
		queueOpts = append(queueOpts, jobqueue.WithMaxJobs(settings.Queue.MaxSize))
	}

	return &Service{
		settings:   settings,
		store:      store,
		llm:        client,
		dispatcher: dispatcher,
		queue:      jobqueue.NewJobQueue(queueOpts...),
		metrics:    metrics,
		logger:     logger,
		inFlight:   make(map[uint]struct{}),
	}
}

// Start begins queue processing. The context bounds the lifetime of the
// queue's worker loop.
func (s *Service) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue, waiting up to timeout for running jobs.
func (s *Service) Stop(timeout time.Duration) error {
	return s.queue.Stop(timeout)
}

// retryConfig builds the per-job retry policy from settings.
func (s *Service) retryConfig() jobqueue.RetryConfig {
	return jobqueue.RetryConfig{
		MaxAttempts: s.settings.Queue.RetryAttempts,
		Delay:       time.Duration(s.settings.Queue.RetryDelay) * time.Second,
	}
}

// EnqueueAudit schedules an audit for the item. A second enqueue for an
// item already queued or running is a no-op and returns nil.
func (s *Service) EnqueueAudit(itemID uint) error {
	s.mu.Lock()
	if _, held := s.inFlight[itemID]; held {
		s.mu.Unlock()
		s.logger.Debug("audit already in flight, coalescing", "item_id", itemID)
		return nil
	}
	s.inFlight[itemID] = struct{}{}
	s.mu.Unlock()

	action := &auditAction{service: s}
	if _, err := s.queue.Enqueue(action, &auditJobData{ItemID: itemID}, s.retryConfig()); err != nil {
		s.releaseLease(itemID)
		return err
	}

	stats := s.queue.GetStats()
	s.metrics.SetQueueDepth(stats.PendingJobs)
	s.logger.Info("audit enqueued", "item_id", itemID)
	return nil
}

// releaseLease drops the in-flight marker for an item, allowing the next
// enqueue to go through. Called on terminal success and terminal failure.
func (s *Service) releaseLease(itemID uint) {
	s.mu.Lock()
	delete(s.inFlight, itemID)
	s.mu.Unlock()
}

// Name implements events.Consumer.
func (s *Service) Name() string { return "audit" }

// ProcessItemEvent implements events.Consumer. Created and restored items
// that are still pending get an audit queued; anything else is ignored.
func (s *Service) ProcessItemEvent(event events.ItemEvent) error {
	switch event.Kind {
	case events.ItemCreated, events.ItemRestored:
		if event.Status != datastore.ItemStatusPending {
			return nil
		}
		return s.EnqueueAudit(event.ItemID)
	default:
		return nil
	}
}
