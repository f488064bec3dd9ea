package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RequestBudget tracks one GitHub rate-limit bucket as observed in response
// headers and holds callers back once it is exhausted or a Retry-After
// cooldown is active.
//
// The anonymous core bucket allows 60 requests per hour, so the contributor
// lookups fired for a full page of repositories can drain it quickly.
type RequestBudget struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	cooldown  time.Time
	probed    bool
	now       func() time.Time
	notifyCh  chan struct{}
}

// NewRequestBudget returns a budget for the core bucket.
func NewRequestBudget() *RequestBudget {
	// unauthenticated core limit until a response says otherwise
	return newRequestBudget(60, time.Hour)
}

// newSearchBudget returns a budget for the search bucket.
func newSearchBudget() *RequestBudget {
	// unauthenticated search limit until a response says otherwise
	return newRequestBudget(10, time.Minute)
}

func newRequestBudget(remaining int, window time.Duration) *RequestBudget {
	return &RequestBudget{
		remaining: remaining,
		reset:     time.Now().Add(window),
		now:       time.Now,
		notifyCh:  make(chan struct{}),
	}
}

func (b *RequestBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// Acquire reserves one request, blocking until the budget allows it or ctx ends.
func (b *RequestBudget) Acquire(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("Acquire: nil context")
	}
	if b == nil {
		return fmt.Errorf("Acquire: nil RequestBudget")
	}
	if b.now == nil || b.notifyCh == nil {
		return fmt.Errorf("Acquire: RequestBudget is not initialized (use NewRequestBudget)")
	}

	for {
		b.mu.Lock()
		now := b.now()

		if now.Before(b.cooldown) {
			until, ch := b.cooldown, b.notifyCh
			b.mu.Unlock()
			if err := waitUntil(ctx, until.Sub(now), ch); err != nil {
				return err
			}
			continue
		}

		if b.remaining > 0 {
			b.remaining--
			b.mu.Unlock()
			return nil
		}

		// Past the reset time without a fresh header: let one probe through and
		// park everyone else until UpdateFromResponse reports the new window.
		if !now.Before(b.reset) {
			if !b.probed {
				b.probed = true
				b.mu.Unlock()
				return nil
			}
			ch := b.notifyCh
			b.mu.Unlock()
			if err := waitUntil(ctx, -1, ch); err != nil {
				return err
			}
			continue
		}

		reset, ch := b.reset, b.notifyCh
		b.mu.Unlock()
		if err := waitUntil(ctx, reset.Sub(now), ch); err != nil {
			return err
		}
	}
}

// waitUntil blocks for d (forever when d < 0), until ch is closed, or until
// ctx is done. Only ctx ending is an error.
func waitUntil(ctx context.Context, d time.Duration, ch <-chan struct{}) error {
	var timeout <-chan time.Time
	if d >= 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
	case <-timeout:
	}
	return nil
}

func (b *RequestBudget) signalLocked() {
	close(b.notifyCh)
	b.notifyCh = make(chan struct{})
}

// UpdateFromResponse folds X-RateLimit-* and Retry-After headers into the budget.
// Malformed headers are ignored.
func (b *RequestBudget) UpdateFromResponse(resp *http.Response) {
	if b == nil || resp == nil || b.now == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	changed := false

	if seconds, ok := positiveHeaderInt(resp.Header, "Retry-After"); ok {
		until := b.now().Add(time.Duration(seconds) * time.Second)
		if until.After(b.cooldown) {
			b.cooldown = until
			changed = true
		}
	}

	if v := resp.Header.Get("X-RateLimit-Remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n != b.remaining {
			b.remaining = n
			changed = true
		}
	}

	if epoch, ok := positiveHeaderInt(resp.Header, "X-RateLimit-Reset"); ok {
		reset := time.Unix(int64(epoch), 0)
		if !b.reset.Equal(reset) {
			b.reset = reset
			changed = true
		}
	}

	if changed {
		b.probed = false
		b.signalLocked()
	}
}

func positiveHeaderInt(h http.Header, key string) (int, bool) {
	raw := h.Get(key)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
