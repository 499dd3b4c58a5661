// Package queue holds pending journal rows between database flushes.
package queue

import (
	"sync"
)

// Queue is a thread-safe FIFO batch buffer.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	limit int
	lost  int
}

// New creates an unbounded queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// NewBounded creates a queue that keeps at most limit items, dropping the
// oldest ones once full.
func NewBounded[T any](limit int) *Queue[T] {
	return &Queue[T]{limit: limit}
}

// Push appends items to the queue.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
	q.trimLocked()
}

// Requeue puts a batch that failed to write back in front of anything
// pushed since it was taken.
func (q *Queue[T]) Requeue(batch []T) {
	if len(batch) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(batch[:len(batch):len(batch)], q.items...)
	q.trimLocked()
}

func (q *Queue[T]) trimLocked() {
	if q.limit <= 0 || len(q.items) <= q.limit {
		return
	}
	over := len(q.items) - q.limit
	q.lost += over
	q.items = append(q.items[:0:0], q.items[over:]...)
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Lost returns how many items a bounded queue has dropped.
func (q *Queue[T]) Lost() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lost
}

// Take removes and returns every queued item.
func (q *Queue[T]) Take() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}
