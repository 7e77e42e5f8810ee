package task

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phrazzld/taskengine/internal/platform/logger"
	"github.com/phrazzld/taskengine/internal/platform/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/phrazzld/taskengine/internal/task"

// WorkerPool manages a pool of worker goroutines that process items
// from a WorkSource. Each item is owned by exactly one worker while it runs;
// workers share no mutable state beyond the source and atomic counters.
type WorkerPool struct {
	// source provides the items to be processed
	source WorkSource

	// workerCount is the number of concurrent workers to start
	workerCount int

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	// ctx is canceled by Abort to stop workers from taking more items
	ctx    context.Context
	cancel context.CancelFunc

	startOnce sync.Once
	done      chan struct{}

	logger   *slog.Logger
	detailed bool
	metrics  *Metrics
	tracer   trace.Tracer

	// errorHandler is called when a work item fails.
	// If nil, errors are only logged
	errorHandler func(item *WorkItem, err error)

	inFlight   atomic.Int64
	completed  atomic.Int64
	failed     atomic.Int64
	canceled   atomic.Int64
	superseded atomic.Int64
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int

	// DetailedLogging emits a debug record for every item processed
	DetailedLogging bool
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 1,
	}
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(source WorkSource, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		source:      source,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		logger:      logger,
		detailed:    config.DetailedLogging,
		tracer:      otel.Tracer(tracerName),
	}
}

// SetErrorHandler allows setting a custom error handler for failed work items
func (p *WorkerPool) SetErrorHandler(handler func(item *WorkItem, err error)) {
	p.errorHandler = handler
}

// Start launches the workers. Calling it again has no effect.
func (p *WorkerPool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting worker pool", "worker_count", p.workerCount)
		for i := 0; i < p.workerCount; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
		go func() {
			p.wg.Wait()
			close(p.done)
		}()
	})
}

// Wait blocks until every worker has exited or ctx is done. Workers exit
// once the source reports ErrQueueClosed or the pool is aborted.
func (p *WorkerPool) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Abort stops workers from taking further items. Items already running are
// left to finish; their futures are resolved by the caller.
func (p *WorkerPool) Abort() {
	p.cancel()
}

// Stop aborts the pool and waits for its workers to exit.
func (p *WorkerPool) Stop() {
	p.logger.Info("stopping worker pool")
	p.Abort()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// WorkerCount returns the number of workers.
func (p *WorkerPool) WorkerCount() int {
	return p.workerCount
}

// InFlight returns the number of items currently executing.
func (p *WorkerPool) InFlight() int64 {
	return p.inFlight.Load()
}

// worker processes items until the source is closed and empty
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)

	for {
		item, err := p.source.Take(p.ctx)
		if err != nil {
			switch {
			case errors.Is(err, ErrQueueClosed):
				p.logger.Debug("task queue closed, stopping worker", "worker_id", id)
			case errors.Is(err, context.Canceled):
				p.logger.Debug("worker pool aborted, stopping worker", "worker_id", id)
			default:
				p.logger.Error("unexpected error taking work item, stopping worker",
					"worker_id", id,
					"error", err)
			}
			return
		}
		p.metrics.itemsDequeued(1)

		p.processItem(id, item)
	}
}

// processItem handles execution of a single work item
func (p *WorkerPool) processItem(workerID int, item *WorkItem) {
	defer item.release()

	itemLogger := p.logger.With(
		"item_id", item.ID(),
		"kind", item.Kind(),
		"worker_id", workerID,
	)

	if !item.begin() {
		if p.detailed {
			itemLogger.Debug("skipping work item resolved while queued")
		}
		return
	}

	waited := time.Since(item.EnqueuedAt())
	p.inFlight.Add(1)
	p.metrics.itemStarted(item.Kind(), waited)
	if p.detailed {
		itemLogger.Debug("processing work item", "queue_wait", waited)
	}

	ctx, span := p.tracer.Start(item.Context(), "task.execute",
		trace.WithAttributes(
			attribute.String("task.item_id", item.ID().String()),
			attribute.String("task.kind", item.Kind()),
			attribute.Int("task.worker_id", workerID),
			attribute.Int64("task.queue_wait_ms", waited.Milliseconds()),
		))
	if traceID := telemetry.TraceID(ctx); traceID != "" {
		itemLogger = itemLogger.With("trace_id", traceID)
	}
	ctx = logger.WithLogger(ctx, itemLogger)

	start := time.Now()
	err := p.execute(ctx, item)
	elapsed := time.Since(start)
	result := item.finish(err)

	span.SetAttributes(attribute.String("task.outcome", result.String()))
	if result == outcomeFailed {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	p.inFlight.Add(-1)
	p.metrics.itemFinished(item.Kind(), result, elapsed)

	switch result {
	case outcomeCompleted:
		p.completed.Add(1)
		if p.detailed {
			itemLogger.Debug("work item completed", "duration", elapsed)
		}
	case outcomeCanceled:
		p.canceled.Add(1)
		if p.detailed {
			itemLogger.Debug("work item canceled while running", "duration", elapsed, "error", err)
		}
	case outcomeFailed:
		p.failed.Add(1)
		if p.errorHandler != nil {
			p.errorHandler(item, err)
		} else {
			itemLogger.Error("work item failed", "error", err, "duration", elapsed)
		}
	case outcomeSuperseded:
		p.superseded.Add(1)
		itemLogger.Warn("work item finished after its result was already delivered",
			"duration", elapsed)
	}
}

// execute runs the item, turning a panic into a *PanicError so a single
// item can never take down its worker.
func (p *WorkerPool) execute(ctx context.Context, item *WorkItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return item.execute(ctx)
}
