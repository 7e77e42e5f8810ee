package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// resultSink is the type-erased view of a Future held by its WorkItem.
type resultSink interface {
	fail(err error) bool
	resolved() bool
}

// errSuperseded is returned by an item's execute closure when its value
// arrived after the future had already been resolved.
var errSuperseded = errors.New("work item already resolved")

// outcome is how a worker's run of an item ended.
type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeFailed
	outcomeCanceled
	// outcomeSuperseded means the future was already resolved elsewhere,
	// e.g. force-failed by shutdown while the work was still running.
	outcomeSuperseded
)

func (o outcome) String() string {
	switch o {
	case outcomeCompleted:
		return "completed"
	case outcomeFailed:
		return "failed"
	case outcomeCanceled:
		return "canceled"
	default:
		return "superseded"
	}
}

// WorkItem is one deferred unit of execution plus its completion handle.
// All fields are set at creation; only the sink's one-time resolution and
// the release of its cancellation scope happen afterwards.
type WorkItem struct {
	id         uuid.UUID
	kind       string
	enqueuedAt time.Time

	// ctx links the caller's context and, optionally, the engine's stopping
	// signal. cancel releases it.
	ctx    context.Context
	cancel context.CancelCauseFunc

	// unwatch detaches the watcher that resolves the sink as canceled while
	// the item is queued. It reports false once the watcher has fired.
	unwatch func() bool
	// unlink detaches the item from the engine's stopping signal.
	unlink func() bool

	execute func(ctx context.Context) error
	sink    resultSink

	// canceledQueued is set when the item was resolved as canceled before
	// any worker started it.
	canceledQueued atomic.Bool

	releaseOnce sync.Once
	onRelease   func(*WorkItem)
}

// ID returns the item's unique identifier.
func (w *WorkItem) ID() uuid.UUID {
	return w.id
}

// Kind returns the label given at enqueue time.
func (w *WorkItem) Kind() string {
	return w.kind
}

// EnqueuedAt returns the creation timestamp.
func (w *WorkItem) EnqueuedAt() time.Time {
	return w.enqueuedAt
}

// Context returns the item's linked cancellation scope.
func (w *WorkItem) Context() context.Context {
	return w.ctx
}

// Resolved reports whether the item's future has an outcome.
func (w *WorkItem) Resolved() bool {
	return w.sink.resolved()
}

// begin claims the item for execution. It fails if the item was canceled or
// resolved while it sat in the queue.
func (w *WorkItem) begin() bool {
	if w.unwatch != nil && !w.unwatch() {
		return false
	}
	return !w.sink.resolved()
}

// finish routes a failed run to the sink and classifies the result.
func (w *WorkItem) finish(err error) outcome {
	switch {
	case err == nil:
		return outcomeCompleted
	case errors.Is(err, errSuperseded):
		return outcomeSuperseded
	}

	if isCancellation(w.ctx, err) {
		if w.sink.fail(canceledError(w.ctx)) {
			return outcomeCanceled
		}
		return outcomeSuperseded
	}

	if w.sink.fail(err) {
		return outcomeFailed
	}
	return outcomeSuperseded
}

// cancelWhileQueued resolves the item as canceled. It is the watcher run when
// the item's context is done before a worker claims it.
func (w *WorkItem) cancelWhileQueued() bool {
	if !w.sink.fail(canceledError(w.ctx)) {
		return false
	}
	w.canceledQueued.Store(true)
	return true
}

// abort force-fails the item with cause and signals its context.
func (w *WorkItem) abort(cause error) bool {
	if !w.sink.fail(cause) {
		return false
	}
	w.cancel(cause)
	return true
}

// release frees the item's cancellation scope. It is safe to call more than once.
func (w *WorkItem) release() {
	w.releaseOnce.Do(func() {
		if w.unwatch != nil {
			w.unwatch()
		}
		if w.unlink != nil {
			w.unlink()
		}
		w.cancel(nil)
		if w.onRelease != nil {
			w.onRelease(w)
		}
	})
}
