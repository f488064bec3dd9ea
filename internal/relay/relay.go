package relay

import (
	"context"
	"sync"
)

// Relay fans values out to every active subscriber.
//
// A behavior relay (NewBehavior) retains the latest value and replays it to each
// new subscriber before any later value. A publish relay (NewPublish) retains
// nothing: values published while nobody listens are dropped.
//
// Every subscriber has its own buffer drained by a pump goroutine, so Publish
// never blocks and each subscriber sees values in publish order without loss.
// Buffers are unbounded unless WithMaxBacklog is given; a subscriber whose
// backlog reaches the bound is cut off instead of losing values silently.
type Relay[T any] struct {
	mu         sync.Mutex
	subs       map[uint64]*Queue[T]
	nextID     uint64
	retain     bool
	has        bool
	last       T
	closed     bool
	maxBacklog int
}

// Option configures a Relay.
type Option func(*options)

type options struct {
	maxBacklog int
}

// WithMaxBacklog ends a subscription once n values are waiting for it. The
// subscriber still receives the values already buffered, then its channel
// closes. n <= 0 means unbounded.
func WithMaxBacklog(n int) Option {
	return func(o *options) {
		o.maxBacklog = n
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// NewBehavior returns a relay that retains and replays its latest value,
// starting with initial.
func NewBehavior[T any](initial T, opts ...Option) *Relay[T] {
	o := applyOptions(opts)
	return &Relay[T]{
		subs:       make(map[uint64]*Queue[T]),
		retain:     true,
		has:        true,
		last:       initial,
		maxBacklog: o.maxBacklog,
	}
}

// NewPublish returns a relay that delivers values only to current subscribers.
func NewPublish[T any](opts ...Option) *Relay[T] {
	o := applyOptions(opts)
	return &Relay[T]{subs: make(map[uint64]*Queue[T]), maxBacklog: o.maxBacklog}
}

// Publish delivers v to all current subscribers. Publishing to a closed relay
// is a no-op.
func (r *Relay[T]) Publish(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if r.retain {
		r.last = v
		r.has = true
	}
	for id, q := range r.subs {
		if r.maxBacklog > 0 && q.Len() >= r.maxBacklog {
			// Closing lets the pump drain what is buffered, then end.
			q.Close()
			delete(r.subs, id)
			continue
		}
		q.Push(v)
	}
}

// Value returns the retained value of a behavior relay.
func (r *Relay[T]) Value() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.has
}

// Subscribe returns a channel carrying values published from now on (preceded
// by the retained value for behavior relays). The channel is closed when ctx
// is done or when the relay is closed, after pending values are delivered.
func (r *Relay[T]) Subscribe(ctx context.Context) <-chan T {
	out := make(chan T)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		close(out)
		return out
	}
	q := NewQueue[T]()
	if r.retain && r.has {
		q.Push(r.last)
	}
	id := r.nextID
	r.nextID++
	r.subs[id] = q
	r.mu.Unlock()

	go r.pump(ctx, id, q, out)
	return out
}

func (r *Relay[T]) pump(ctx context.Context, id uint64, q *Queue[T], out chan<- T) {
	defer close(out)
	defer r.unsubscribe(id)

	for {
		if v, ok := q.TryPop(); ok {
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
			continue
		}
		if q.Closed() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-q.Wait():
		}
	}
}

func (r *Relay[T]) unsubscribe(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.subs[id]; ok {
		q.Close()
		delete(r.subs, id)
	}
}

// Subscribers returns the number of active subscriptions.
func (r *Relay[T]) Subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Close ends every subscription once its pending values are delivered and
// rejects further publishes. Idempotent.
func (r *Relay[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	for _, q := range r.subs {
		q.Close()
	}
}
