package task

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// WorkSource provides items to workers. Take blocks until an item is
// available and returns ErrQueueClosed once the source is closed and empty.
type WorkSource interface {
	Take(ctx context.Context) (*WorkItem, error)
}

// TaskQueue is a FIFO of work items with an optional capacity and a policy
// for admissions beyond it. Every critical section is O(1) except Drain.
type TaskQueue struct {
	mu       sync.Mutex
	items    *list.List // of *WorkItem
	waiters  *list.List // of *putWaiter, FIFO
	capacity int
	mode     FullMode
	closed   bool
	// ready is closed and replaced whenever an item is pushed or the queue
	// closes, waking blocked takers.
	ready  chan struct{}
	logger *slog.Logger
}

// putWaiter is a producer suspended under FullModeWait.
type putWaiter struct {
	item     *WorkItem
	admitted chan struct{}
	err      error
}

// NewTaskQueue creates a queue. A capacity of zero or less means unbounded.
func NewTaskQueue(capacity int, mode FullMode, logger *slog.Logger) *TaskQueue {
	if capacity < 0 {
		capacity = 0
	}
	return &TaskQueue{
		items:    list.New(),
		waiters:  list.New(),
		capacity: capacity,
		mode:     mode,
		ready:    make(chan struct{}),
		logger:   logger,
	}
}

// Put admits item according to the queue's FullMode. Under
// FullModeDropOldest it returns the evicted item, which the caller must
// resolve. Under FullModeWait it blocks until the item is admitted, ctx is
// done, or the queue closes.
func (q *TaskQueue) Put(ctx context.Context, item *WorkItem) (*WorkItem, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}

	// A free slot only goes to a new producer if nobody is already waiting,
	// so admission stays FIFO across waiters.
	if q.capacity == 0 || (q.items.Len() < q.capacity && q.waiters.Len() == 0) {
		q.pushLocked(item)
		q.mu.Unlock()
		return nil, nil
	}

	switch q.mode {
	case FullModeThrowException:
		q.mu.Unlock()
		return nil, fmt.Errorf("%w: queue capacity %d reached", ErrCapacityExceeded, q.capacity)

	case FullModeDropOldest:
		evicted := q.items.Remove(q.items.Front()).(*WorkItem)
		q.pushLocked(item)
		q.mu.Unlock()
		return evicted, nil
	}

	w := &putWaiter{item: item, admitted: make(chan struct{})}
	elem := q.waiters.PushBack(w)
	q.mu.Unlock()

	select {
	case <-w.admitted:
		return nil, w.err
	case <-ctx.Done():
		q.mu.Lock()
		defer q.mu.Unlock()
		select {
		case <-w.admitted:
			// Admitted or closed before we reacquired the lock.
			return nil, w.err
		default:
		}
		q.waiters.Remove(elem)
		return nil, ctx.Err()
	}
}

// Take removes the oldest item, blocking while the queue is empty.
func (q *TaskQueue) Take(ctx context.Context) (*WorkItem, error) {
	for {
		q.mu.Lock()
		if front := q.items.Front(); front != nil {
			item := q.items.Remove(front).(*WorkItem)
			q.admitWaiterLocked()
			q.mu.Unlock()
			return item, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}
		ready := q.ready
		q.mu.Unlock()

		select {
		case <-ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close stops admissions. Suspended producers get ErrQueueClosed; queued
// items stay available to Take until the queue is empty.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true

	for e := q.waiters.Front(); e != nil; e = e.Next() {
		w := e.Value.(*putWaiter)
		w.err = ErrQueueClosed
		close(w.admitted)
	}
	q.waiters.Init()
	q.signalLocked()

	q.logger.Info("task queue closed", "queue_len", q.items.Len())
}

// Drain removes and returns every queued item in FIFO order.
func (q *TaskQueue) Drain() []*WorkItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := make([]*WorkItem, 0, q.items.Len())
	for e := q.items.Front(); e != nil; e = e.Next() {
		items = append(items, e.Value.(*WorkItem))
	}
	q.items.Init()
	return items
}

// Len returns the number of queued items.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Waiting returns the number of producers suspended under FullModeWait.
func (q *TaskQueue) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waiters.Len()
}

// Cap returns the capacity, zero meaning unbounded.
func (q *TaskQueue) Cap() int {
	return q.capacity
}

// Mode returns the full-queue policy.
func (q *TaskQueue) Mode() FullMode {
	return q.mode
}

func (q *TaskQueue) pushLocked(item *WorkItem) {
	q.items.PushBack(item)
	q.signalLocked()
}

// admitWaiterLocked hands the freed slot to the longest-waiting producer.
func (q *TaskQueue) admitWaiterLocked() {
	front := q.waiters.Front()
	if front == nil {
		return
	}
	w := q.waiters.Remove(front).(*putWaiter)
	q.pushLocked(w.item)
	close(w.admitted)
}

func (q *TaskQueue) signalLocked() {
	close(q.ready)
	q.ready = make(chan struct{})
}
