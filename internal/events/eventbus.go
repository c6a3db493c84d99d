package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cfornesa/ethics-risk-audit-assistant/internal/errors"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/logging"
)

// EventBus provides asynchronous event processing with non-blocking
// publish semantics: a full buffer drops the event rather than blocking
// the caller.
type EventBus struct {
	eventChan chan ItemEvent

	bufferSize int
	workers    int

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
	mu      sync.Mutex

	consumers []Consumer

	published atomic.Uint64
	dropped   atomic.Uint64
	consumed  atomic.Uint64
	failed    atomic.Uint64

	logger *slog.Logger
}

// Config holds event bus configuration
type Config struct {
	BufferSize int
	Workers    int
}

// DefaultConfig returns the default event bus configuration
func DefaultConfig() *Config {
	return &Config{
		BufferSize: 1024,
		Workers:    2,
	}
}

// NewEventBus creates a new event bus with the given configuration.
func NewEventBus(config *Config) *EventBus {
	if config == nil {
		config = DefaultConfig()
	}

	logger := logging.ForService("events")
	if logger == nil {
		logger = slog.Default().With("service", "events")
	}

	return &EventBus{
		eventChan:  make(chan ItemEvent, config.BufferSize),
		bufferSize: config.BufferSize,
		workers:    config.Workers,
		consumers:  make([]Consumer, 0),
		logger:     logger,
	}
}

// RegisterConsumer adds a consumer to the subscriber list. Consumers must
// be registered before Start.
func (eb *EventBus) RegisterConsumer(consumer Consumer) error {
	if consumer == nil {
		return errors.Newf("cannot register nil consumer").
			Component("events").
			Category(errors.CategoryValidation).
			Build()
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.running.Load() {
		return errors.Newf("cannot register consumer while event bus is running").
			Component("events").
			Category(errors.CategoryState).
			Build()
	}

	eb.consumers = append(eb.consumers, consumer)
	eb.logger.Info("consumer registered", "consumer", consumer.Name())
	return nil
}

// Start launches the worker goroutines.
func (eb *EventBus) Start(ctx context.Context) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.running.Load() {
		return
	}

	eb.ctx, eb.cancel = context.WithCancel(ctx)
	eb.running.Store(true)

	for i := 0; i < eb.workers; i++ {
		eb.wg.Add(1)
		go eb.worker(i)
	}

	eb.logger.Info("event bus started",
		"workers", eb.workers,
		"buffer_size", eb.bufferSize)
}

// Publish offers an event to the bus without blocking. It returns false
// when the bus is not running or the buffer is full.
func (eb *EventBus) Publish(event ItemEvent) bool {
	if !eb.running.Load() {
		return false
	}

	select {
	case eb.eventChan <- event:
		eb.published.Add(1)
		return true
	default:
		eb.dropped.Add(1)
		eb.logger.Warn("event dropped, buffer full",
			"kind", event.Kind,
			"item_id", event.ItemID)
		return false
	}
}

// worker consumes events until the bus is shut down.
func (eb *EventBus) worker(id int) {
	defer eb.wg.Done()

	for {
		select {
		case <-eb.ctx.Done():
			return
		case event, ok := <-eb.eventChan:
			if !ok {
				return
			}
			eb.dispatch(event)
		}
	}
}

// dispatch hands one event to every registered consumer. A consumer
// error is logged and counted but does not stop delivery to the others.
func (eb *EventBus) dispatch(event ItemEvent) {
	for _, consumer := range eb.consumers {
		if err := consumer.ProcessItemEvent(event); err != nil {
			eb.failed.Add(1)
			eb.logger.Error("consumer failed to process event",
				"consumer", consumer.Name(),
				"kind", event.Kind,
				"item_id", event.ItemID,
				"error", err)
			continue
		}
		eb.consumed.Add(1)
	}
}

// Shutdown stops the workers, draining nothing: buffered events that were
// not picked up before the deadline are lost.
func (eb *EventBus) Shutdown(timeout time.Duration) error {
	eb.mu.Lock()
	if !eb.running.Load() {
		eb.mu.Unlock()
		return nil
	}
	eb.running.Store(false)
	eb.cancel()
	eb.mu.Unlock()

	done := make(chan struct{})
	go func() {
		eb.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		eb.logger.Info("event bus stopped",
			"published", eb.published.Load(),
			"consumed", eb.consumed.Load(),
			"dropped", eb.dropped.Load())
		return nil
	case <-time.After(timeout):
		return errors.Newf("timed out waiting for event workers to stop").
			Component("events").
			Category(errors.CategoryTimeout).
			Build()
	}
}

// Stats is a point-in-time snapshot of bus counters.
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	Failed    uint64
}

// GetStats returns a snapshot of the bus counters.
func (eb *EventBus) GetStats() Stats {
	return Stats{
		Published: eb.published.Load(),
		Consumed:  eb.consumed.Load(),
		Dropped:   eb.dropped.Load(),
		Failed:    eb.failed.Load(),
	}
}
