// Package queue provides the FIFO containers that connect pipeline phases.
package queue

import "sync"

// Queue is an unbounded FIFO safe for any number of concurrent producers
// and consumers.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	head  int
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends v to the tail.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
}

// Pop removes and returns the head. ok is false when the queue is empty;
// Pop never blocks.
func (q *Queue[T]) Pop() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.items) {
		return v, false
	}

	v = q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head++

	// Reclaim the backing array once it has been fully consumed.
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return v, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Reset discards every queued item.
func (q *Queue[T]) Reset() {
	q.mu.Lock()
	q.items = nil
	q.head = 0
	q.mu.Unlock()
}
