package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskengine/internal/events"
)

// Engine accepts work from arbitrary callers and runs it on a fixed pool of
// workers fed by one shared TaskQueue.
//
// The host owns the engine: it calls Start once the process is ready and Stop
// when it shuts down. Work is submitted with the package-level Enqueue
// function, which returns a Future that is always resolved, at the latest
// when Stop returns.
type Engine struct {
	name   string
	config EngineConfig
	state  atomic.Int32

	queue *TaskQueue
	pool  *WorkerPool

	logger       *slog.Logger
	emitter      events.EventEmitter
	metrics      *Metrics
	errorHandler func(item *WorkItem, err error)

	// stopping is canceled when the engine starts draining. Items enqueued
	// with UseGlobalStoppingToken are linked to it.
	stopping context.Context
	stopAll  context.CancelCauseFunc

	stopped chan struct{}
	stopErr error

	// outstanding holds every admitted item until it is released, so the
	// drain deadline can resolve items that are queued, just taken or running.
	outstanding sync.Map // uuid.UUID -> *WorkItem

	enqueued atomic.Int64
	rejected atomic.Int64
	dropped  atomic.Int64
	canceled atomic.Int64
	aborted  atomic.Int64
}

// EngineOption customizes an Engine at construction.
type EngineOption func(*Engine)

// WithEmitter sets the sink for completion events built by NotifyWith callbacks.
func WithEmitter(emitter events.EventEmitter) EngineOption {
	return func(e *Engine) {
		e.emitter = emitter
	}
}

// WithMetrics records engine activity on m. Several engines may share one m.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithErrorHandler is called for every work item that fails. If unset,
// failures are logged at error level.
func WithErrorHandler(handler func(item *WorkItem, err error)) EngineOption {
	return func(e *Engine) {
		e.errorHandler = handler
	}
}

// WithName labels the engine in logs.
func WithName(name string) EngineOption {
	return func(e *Engine) {
		e.name = name
	}
}

// NewEngine creates an engine in the Created state. The config is copied;
// invalid values are replaced by their defaults.
func NewEngine(config EngineConfig, logger *slog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		name:    "default",
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.logger = logger.With("component", "task_engine", "engine", e.name)
	e.config = normalizeConfig(config, e.logger)
	e.stopping, e.stopAll = context.WithCancelCause(context.Background())

	e.queue = NewTaskQueue(e.config.ChannelCapacity, e.config.ChannelFullMode, e.logger)
	e.pool = NewWorkerPool(e.queue, WorkerPoolConfig{
		WorkerCount:     e.config.MaxConcurrentWorkers,
		DetailedLogging: e.config.EnableDetailedLogging,
	}, e.logger)
	e.pool.metrics = e.metrics
	if e.errorHandler != nil {
		e.pool.SetErrorHandler(e.errorHandler)
	}

	return e
}

func normalizeConfig(config EngineConfig, logger *slog.Logger) EngineConfig {
	if config.MaxConcurrentWorkers < 1 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.MaxConcurrentWorkers,
			"default_count", 1)
		config.MaxConcurrentWorkers = 1
	}
	if config.ChannelCapacity < 0 {
		config.ChannelCapacity = 0
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = DefaultEngineConfig().DrainTimeout
	}
	return config
}

// Config returns the configuration bound to the engine.
func (e *Engine) Config() EngineConfig {
	return e.config
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Start moves the engine from Created to Running and launches its workers.
// It is a no-op on a running engine and fails with ErrEngineStopped once
// Stop has been called.
func (e *Engine) Start() error {
	if e.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		e.pool.Start()
		e.logger.Info("task engine started",
			"workers", e.config.MaxConcurrentWorkers,
			"capacity", e.config.ChannelCapacity,
			"full_mode", e.config.ChannelFullMode.String(),
			"global_stopping_token", e.config.UseGlobalStoppingToken)
		return nil
	}
	if e.State() == StateRunning {
		return nil
	}
	return ErrEngineStopped
}

// Stop drains the engine and moves it to Stopped. Enqueue is rejected from
// the moment Stop is called. Queued and running items may finish until the
// drain window closes: the earlier of ctx's deadline and DrainTimeout. Every
// item still outstanding then is resolved with ErrShutdownAborted, and Stop
// returns an error wrapping ErrShutdownAborted.
//
// Running work is only signaled, never preempted. A worker stuck in work
// that ignores its context is abandoned.
//
// Concurrent and repeated calls wait for the same shutdown and return its
// result, or ctx.Err() if ctx ends first.
func (e *Engine) Stop(ctx context.Context) error {
	for {
		switch e.State() {
		case StateCreated:
			if e.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
				e.stopAll(ErrEngineStopping)
				e.queue.Close()
				close(e.stopped)
				e.logger.Info("task engine stopped before start")
				return nil
			}
		case StateRunning:
			if e.state.CompareAndSwap(int32(StateRunning), int32(StateDraining)) {
				return e.drain(ctx)
			}
		default:
			select {
			case <-e.stopped:
				return e.stopErr
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Run starts the engine, blocks until ctx is done and then stops it with a
// fresh DrainTimeout window.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Start(); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.DrainTimeout)
	defer cancel()
	return e.Stop(stopCtx)
}

// Stopped is closed once the engine reaches the Stopped state.
func (e *Engine) Stopped() <-chan struct{} {
	return e.stopped
}

func (e *Engine) drain(ctx context.Context) error {
	start := time.Now()
	e.logger.Info("stopping task engine",
		"queue_len", e.queue.Len(),
		"in_flight", e.pool.InFlight(),
		"drain_timeout", e.config.DrainTimeout)

	e.stopAll(ErrEngineStopping)
	e.queue.Close()

	drainCtx, cancel := context.WithTimeout(ctx, e.config.DrainTimeout)
	defer cancel()

	var err error
	if waitErr := e.pool.Wait(drainCtx); waitErr != nil {
		n := e.abortOutstanding()
		if n > 0 {
			err = fmt.Errorf("%w: %d work items did not finish within the drain window",
				ErrShutdownAborted, n)
			e.logger.Warn("drain window elapsed, outstanding work aborted",
				"aborted", n,
				"error", waitErr)
		}
	}

	e.stopErr = err
	e.state.Store(int32(StateStopped))
	close(e.stopped)

	stats := e.Stats()
	e.logger.Info("task engine stopped",
		"duration", time.Since(start),
		"completed", stats.Completed,
		"failed", stats.Failed,
		"canceled", stats.Canceled,
		"dropped", stats.Dropped,
		"aborted", stats.Aborted)
	return err
}

// abortOutstanding stops the workers from taking more items and resolves
// everything not yet resolved with ErrShutdownAborted.
func (e *Engine) abortOutstanding() int {
	e.pool.Abort()

	queued := e.queue.Drain()
	e.metrics.itemsDequeued(len(queued))

	n := 0
	e.outstanding.Range(func(_, value any) bool {
		item := value.(*WorkItem)
		if item.abort(ErrShutdownAborted) {
			n++
			e.aborted.Add(1)
			e.metrics.itemResolved(item.Kind(), "aborted")
		}
		return true
	})

	for _, item := range queued {
		item.release()
	}
	return n
}

// accepting reports whether Enqueue may admit new items.
func (e *Engine) accepting() bool {
	return e.State() == StateRunning
}

// admit registers item and puts it on the queue. On failure the item is
// released and the error says why it was not admitted.
func (e *Engine) admit(ctx context.Context, item *WorkItem) error {
	e.outstanding.Store(item.id, item)

	evicted, err := e.queue.Put(ctx, item)
	if err != nil {
		e.outstanding.Delete(item.id)
		item.onRelease = nil
		item.release()
		e.rejected.Add(1)

		switch {
		case errors.Is(err, ErrCapacityExceeded):
			e.metrics.admissionRejected(rejectCapacity)
			return err
		case errors.Is(err, ErrQueueClosed):
			e.metrics.admissionRejected(rejectNotRunning)
			return fmt.Errorf("%w: %w", ErrEngineNotRunning, err)
		default:
			e.metrics.admissionRejected(rejectCanceled)
			return canceledError(ctx)
		}
	}

	e.enqueued.Add(1)
	e.metrics.itemEnqueued(item.Kind())
	if e.config.EnableDetailedLogging {
		e.logger.Debug("work item enqueued", "item_id", item.ID(), "kind", item.Kind())
	}

	if evicted != nil {
		e.drop(evicted)
	}
	return nil
}

// drop resolves an item evicted under FullModeDropOldest.
func (e *Engine) drop(item *WorkItem) {
	e.metrics.itemsDequeued(1)
	if item.abort(ErrItemDropped) {
		e.dropped.Add(1)
		e.metrics.itemResolved(item.Kind(), "dropped")
		e.logger.Warn("task queue full, dropped oldest work item",
			"item_id", item.ID(),
			"kind", item.Kind(),
			"queued_for", time.Since(item.EnqueuedAt()))
	}
	item.release()
}

// onRelease is the final step of every admitted item.
func (e *Engine) onRelease(item *WorkItem) {
	e.outstanding.Delete(item.id)
	if item.canceledQueued.Load() {
		e.canceled.Add(1)
		e.metrics.itemResolved(item.Kind(), "canceled")
		if e.config.EnableDetailedLogging {
			e.logger.Debug("work item canceled before it ran",
				"item_id", item.ID(),
				"kind", item.Kind(),
				"cause", context.Cause(item.Context()))
		}
	}
}

// notify hands the completion event for a successful item to the emitter.
// Failures are logged and never retried.
func (e *Engine) notify(item *WorkItem, n *notifier, value any) {
	if n == nil {
		return
	}
	logger := e.logger.With("item_id", item.ID(), "kind", item.Kind())

	if e.emitter == nil {
		logger.Debug("no event emitter configured, skipping completion event")
		e.metrics.notification("skipped")
		return
	}

	event, err := buildEvent(n, value)
	if err != nil {
		logger.Error("failed to build completion event", "error", err)
		e.metrics.notification("build_failed")
		return
	}
	if event == nil {
		e.metrics.notification("skipped")
		return
	}
	if event.SourceID == uuid.Nil {
		event.SourceID = item.ID()
	}

	if err := e.emitter.EmitEvent(context.WithoutCancel(item.Context()), event); err != nil {
		logger.Error("failed to emit completion event",
			"error", err,
			"event_id", event.ID,
			"event_type", event.Type)
		e.metrics.notification("failed")
		return
	}
	e.metrics.notification("published")
}

// buildEvent runs the completion callback. A panic becomes a *PanicError; the
// item's result has already been delivered, so it must not reach the worker.
func buildEvent(n *notifier, value any) (event *events.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return n.build(value)
}

// Stats is a point-in-time snapshot of an engine.
type Stats struct {
	Name          string `json:"name"`
	State         State  `json:"state"`
	Workers       int    `json:"workers"`
	QueueLength   int    `json:"queue_length"`
	QueueCapacity int    `json:"queue_capacity"`
	FullMode      string `json:"full_mode"`
	InFlight      int64  `json:"in_flight"`
	Enqueued      int64  `json:"enqueued"`
	Completed     int64  `json:"completed"`
	Failed        int64  `json:"failed"`
	Canceled      int64  `json:"canceled"`
	Dropped       int64  `json:"dropped"`
	Rejected      int64  `json:"rejected"`
	Aborted       int64  `json:"aborted"`
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Name:          e.name,
		State:         e.State(),
		Workers:       e.pool.WorkerCount(),
		QueueLength:   e.queue.Len(),
		QueueCapacity: e.queue.Cap(),
		FullMode:      e.queue.Mode().String(),
		InFlight:      e.pool.InFlight(),
		Enqueued:      e.enqueued.Load(),
		Completed:     e.pool.completed.Load(),
		Failed:        e.pool.failed.Load(),
		Canceled:      e.canceled.Load() + e.pool.canceled.Load(),
		Dropped:       e.dropped.Load(),
		Rejected:      e.rejected.Load(),
		Aborted:       e.aborted.Load(),
	}
}
