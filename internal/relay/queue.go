// Package relay provides the in-process plumbing for the repository list
// pipeline: an unbounded FIFO queue and multi-subscriber push relays.
package relay

import "sync"

// Queue is an unbounded FIFO.
//
// Push never blocks, so producers (HTTP handlers, gateway completions) are
// never held up by a slow consumer. Consumers pair TryPop with Wait:
//
//	for {
//		if v, ok := q.TryPop(); ok {
//			handle(v)
//			continue
//		}
//		if q.Closed() {
//			return
//		}
//		select {
//		case <-ctx.Done():
//			return
//		case <-q.Wait():
//		}
//	}
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{} // buffered, size 1; coalesces wakeups
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		items:  make([]T, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Push appends v. It returns false once the queue is closed.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, v)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryPop removes the front element without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	// Clear the slot so the backing array does not pin popped values.
	q.items[0] = zero
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return v, true
}

// Wait returns a channel that fires when elements may be available. It is
// closed by Close, so waiters never hang on a closed queue.
func (q *Queue[T]) Wait() <-chan struct{} {
	return q.signal
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close was called. Buffered elements remain poppable.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close rejects further pushes and wakes all waiters. Idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
