// Package queue provides a bounded FIFO shared between a producer and a
// consumer goroutine.
//
// Blocking calls take a context. Cancelling the context wakes every caller
// blocked on it and makes the call return ErrCancelled.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrCancelled is returned by blocking calls whose context was cancelled.
var ErrCancelled = errors.New("queue: cancelled")

// BoundedQueue is a FIFO with an optional capacity.
// A capacity of 0 means the queue is unbounded.
type BoundedQueue[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []T
	capacity int
}

// New creates a queue holding at most capacity items.
func New[T any](capacity int) *BoundedQueue[T] {
	if capacity < 0 {
		panic("queue: negative capacity")
	}
	q := &BoundedQueue[T]{capacity: capacity}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Put appends item, blocking while the queue is full.
func (q *BoundedQueue[T]) Put(ctx context.Context, item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	stop := q.wakeOnDone(ctx)
	defer stop()

	for q.full() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		q.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	q.items = append(q.items, item)
	q.cond.Broadcast()
	return nil
}

// Get removes and returns the oldest item, blocking while the queue is empty.
func (q *BoundedQueue[T]) Get(ctx context.Context) (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.waitNonEmpty(ctx); err != nil {
		var zero T
		return zero, err
	}
	return q.popFront(), nil
}

// Peek returns the oldest item without removing it, blocking while the
// queue is empty.
func (q *BoundedQueue[T]) Peek(ctx context.Context) (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.waitNonEmpty(ctx); err != nil {
		var zero T
		return zero, err
	}
	return q.items[0], nil
}

// TryGet removes and returns the oldest item if there is one.
func (q *BoundedQueue[T]) TryGet() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.popFront(), true
}

// TryPeek returns the oldest item without removing it if there is one.
func (q *BoundedQueue[T]) TryPeek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0], true
}

// ReturnToFront reinserts item at the head of the queue.
// It does not check the capacity.
func (q *BoundedQueue[T]) ReturnToFront(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, item)
	copy(q.items[1:], q.items)
	q.items[0] = item
	q.cond.Broadcast()
}

// Clear drops every item and wakes all blocked callers.
func (q *BoundedQueue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	clear(q.items)
	q.items = q.items[:0]
	q.cond.Broadcast()
}

// IsEmpty reports whether the queue holds no items.
func (q *BoundedQueue[T]) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Size returns the number of buffered items.
func (q *BoundedQueue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Capacity returns the current bound, 0 when unbounded.
func (q *BoundedQueue[T]) Capacity() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity
}

// Full reports whether a Put would block right now.
func (q *BoundedQueue[T]) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.full()
}

// SetCapacity changes the bound. Shrinking never drops items: producers
// block until the queue drains below the new bound.
func (q *BoundedQueue[T]) SetCapacity(capacity int) {
	if capacity < 0 {
		panic("queue: negative capacity")
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	q.capacity = capacity
	q.cond.Broadcast()
}

func (q *BoundedQueue[T]) full() bool {
	return q.capacity > 0 && len(q.items) >= q.capacity
}

// waitNonEmpty must be called with mu held.
func (q *BoundedQueue[T]) waitNonEmpty(ctx context.Context) error {
	stop := q.wakeOnDone(ctx)
	defer stop()

	for len(q.items) == 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		q.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}

func (q *BoundedQueue[T]) popFront() T {
	item := q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	q.cond.Broadcast()
	return item
}

// wakeOnDone broadcasts on the condition once ctx is done so waiters can
// observe the cancellation. The returned func unregisters the hook.
func (q *BoundedQueue[T]) wakeOnDone(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
}
