package task

import (
	"context"
	"errors"
	"fmt"
)

// Common errors returned by the engine and delivered through futures
var (
	// ErrCapacityExceeded is returned by Enqueue under FullModeThrowException
	// when the queue is full.
	ErrCapacityExceeded = errors.New("task queue capacity exceeded")

	// ErrItemDropped resolves the future of an item evicted under FullModeDropOldest.
	ErrItemDropped = errors.New("work item dropped from full queue")

	// ErrCanceled resolves the future of an item whose context was canceled
	// before it ran, or whose work gave up because of that cancellation.
	ErrCanceled = errors.New("work item canceled")

	// ErrShutdownAborted resolves every item still outstanding when the drain
	// window elapses.
	ErrShutdownAborted = errors.New("work item aborted by engine shutdown")

	// ErrQueueClosed is returned by the queue once Close has been called.
	ErrQueueClosed = errors.New("task queue is closed")

	// ErrEngineNotRunning is returned by Enqueue outside the Running state.
	ErrEngineNotRunning = errors.New("task engine is not running")

	// ErrEngineStopped is returned by Start after the engine began stopping.
	ErrEngineStopped = errors.New("task engine is stopped")

	// ErrEngineStopping is the cancellation cause seen by work linked to the
	// engine's stopping signal.
	ErrEngineStopping = errors.New("task engine is stopping")

	// ErrNotifierType is returned by Enqueue when a NotifyWith callback does
	// not accept the work's result type.
	ErrNotifierType = errors.New("completion callback does not match result type")

	// ErrNotResolved is returned by Future.Result while the item is pending.
	ErrNotResolved = errors.New("work item result not yet available")

	// ErrNilWork is returned by Enqueue when work is nil.
	ErrNilWork = errors.New("work function is nil")
)

// PanicError carries a panic recovered while running a work item.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("work item panic: %v", e.Value)
}

// canceledError reports why ctx was canceled, matching both ErrCanceled and
// the context's cause.
func canceledError(ctx context.Context) error {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}
	return fmt.Errorf("%w: %w", ErrCanceled, cause)
}

// isCancellation reports whether err is the result of ctx being done.
func isCancellation(ctx context.Context, err error) bool {
	if ctx.Err() == nil {
		return false
	}
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Cause(ctx))
}
