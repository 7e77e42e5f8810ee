package task

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Future is the single-assignment result of an enqueued work item.
// The first resolution wins; later attempts are ignored.
type Future[T any] struct {
	itemID uuid.UUID
	done   chan struct{}
	once   sync.Once
	value  T
	err    error
}

func newFuture[T any](itemID uuid.UUID) *Future[T] {
	return &Future[T]{
		itemID: itemID,
		done:   make(chan struct{}),
	}
}

// ItemID returns the ID of the work item backing this future.
func (f *Future[T]) ItemID() uuid.UUID {
	return f.itemID
}

// Done is closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future resolves or ctx is done. Giving up on the
// wait does not cancel the work item.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome without blocking, or ErrNotResolved.
func (f *Future[T]) Result() (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
		var zero T
		return zero, ErrNotResolved
	}
}

func (f *Future[T]) resolve(value T, err error) bool {
	resolved := false
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
		resolved = true
	})
	return resolved
}

func (f *Future[T]) fail(err error) bool {
	var zero T
	return f.resolve(zero, err)
}

func (f *Future[T]) resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
