package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskengine/internal/events"
)

// EnqueueOption customizes a single Enqueue call.
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	kind     string
	notifier *notifier
}

// WithKind labels the work item in logs, traces and metrics.
func WithKind(kind string) EnqueueOption {
	return func(o *enqueueOptions) {
		if kind != "" {
			o.kind = kind
		}
	}
}

// notifier is the type-erased form of a NotifyWith callback.
type notifier struct {
	resultType string
	accepts    func(sample any) bool
	build      func(result any) (*events.Event, error)
}

// NotifyWith attaches a completion callback. After the work succeeds, fn turns
// its result into an event that the engine passes to its EventEmitter. fn runs
// at most once per item and never for failed or canceled work. Returning a nil
// event skips the notification.
//
// T must be the result type of the enqueued work, otherwise Enqueue fails
// with ErrNotifierType.
func NotifyWith[T any](fn func(result T) (*events.Event, error)) EnqueueOption {
	n := &notifier{
		resultType: fmt.Sprintf("%T", (*T)(nil)),
		accepts: func(sample any) bool {
			_, ok := sample.(*T)
			return ok
		},
		build: func(result any) (*events.Event, error) {
			v, _ := result.(T)
			return fn(v)
		},
	}
	return func(o *enqueueOptions) {
		o.notifier = n
	}
}

// Enqueue wraps work in a WorkItem and admits it to e's queue.
//
// The item runs with a context derived from ctx and, if the engine was built
// with UseGlobalStoppingToken, linked to the engine's stopping signal. If that
// context is done before a worker starts the item, the future resolves with
// ErrCanceled and work is never invoked. Once running, cancellation is only a
// signal: work must observe its context.
//
// Enqueue fails without returning a future when the engine is not running,
// when the queue is full under FullModeThrowException (ErrCapacityExceeded),
// or when ctx ends while waiting for space under FullModeWait (ErrCanceled).
// Otherwise the returned future is always resolved, at the latest when Stop
// returns.
func Enqueue[T any](ctx context.Context, e *Engine, work Work[T], opts ...EnqueueOption) (*Future[T], error) {
	if work == nil {
		return nil, ErrNilWork
	}

	o := enqueueOptions{kind: DefaultKind}
	for _, opt := range opts {
		opt(&o)
	}
	if o.notifier != nil && !o.notifier.accepts(any((*T)(nil))) {
		var zero *T
		return nil, fmt.Errorf("%w: callback takes %s, work returns %T",
			ErrNotifierType, o.notifier.resultType, zero)
	}

	if !e.accepting() {
		e.rejected.Add(1)
		e.metrics.admissionRejected(rejectNotRunning)
		return nil, fmt.Errorf("%w: state %s", ErrEngineNotRunning, e.State())
	}

	id := uuid.New()
	future := newFuture[T](id)

	if ctx.Err() != nil {
		// Already canceled: resolve without touching the queue.
		future.fail(canceledError(ctx))
		e.enqueued.Add(1)
		e.canceled.Add(1)
		e.metrics.itemAccepted(o.kind)
		e.metrics.itemResolved(o.kind, "canceled")
		return future, nil
	}

	itemCtx, cancel := context.WithCancelCause(ctx)
	item := &WorkItem{
		id:         id,
		kind:       o.kind,
		enqueuedAt: time.Now(),
		ctx:        itemCtx,
		cancel:     cancel,
		sink:       future,
		onRelease:  e.onRelease,
	}
	item.execute = func(ctx context.Context) error {
		v, err := work(ctx)
		if err != nil {
			return err
		}
		if !future.resolve(v, nil) {
			return errSuperseded
		}
		e.notify(item, o.notifier, v)
		return nil
	}

	if e.config.UseGlobalStoppingToken {
		stopping := e.stopping
		item.unlink = context.AfterFunc(stopping, func() {
			cancel(context.Cause(stopping))
		})
	}
	item.unwatch = context.AfterFunc(itemCtx, func() {
		item.cancelWhileQueued()
	})

	if err := e.admit(ctx, item); err != nil {
		return nil, err
	}
	return future, nil
}
