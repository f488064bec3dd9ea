package gateway

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestRequestBudget(t *testing.T) {
	fixedNow := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	newBudget := func(remaining int, reset time.Time) *RequestBudget {
		b := NewRequestBudget()
		b.now = func() time.Time { return fixedNow }
		b.remaining = remaining
		b.reset = reset
		return b
	}

	headers := func(kv ...string) *http.Response {
		resp := &http.Response{Header: make(http.Header)}
		for i := 0; i+1 < len(kv); i += 2 {
			resp.Header.Set(kv[i], kv[i+1])
		}
		return resp
	}

	t.Run("Acquire decrements", func(t *testing.T) {
		b := newBudget(2, fixedNow.Add(time.Hour))
		if err := b.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		if rem := b.Remaining(); rem != 1 {
			t.Fatalf("Expected 1 remaining, got %d", rem)
		}
	})

	t.Run("UpdateFromResponse sets remaining and reset", func(t *testing.T) {
		b := newBudget(60, fixedNow.Add(time.Hour))
		b.UpdateFromResponse(headers("X-RateLimit-Remaining", "10", "X-RateLimit-Reset", "1700000000"))

		if rem := b.Remaining(); rem != 10 {
			t.Fatalf("Expected 10 remaining, got %d", rem)
		}
		b.mu.Lock()
		reset := b.reset
		b.mu.Unlock()
		if !reset.Equal(time.Unix(1700000000, 0)) {
			t.Fatalf("Expected reset %v, got %v", time.Unix(1700000000, 0), reset)
		}
	})

	t.Run("UpdateFromResponse ignores invalid headers", func(t *testing.T) {
		b := newBudget(7, time.Unix(123, 0))
		b.UpdateFromResponse(headers("X-RateLimit-Remaining", "nope", "X-RateLimit-Reset", "not-a-time", "Retry-After", "-3"))

		if rem := b.Remaining(); rem != 7 {
			t.Fatalf("Expected remaining to stay 7, got %d", rem)
		}
		b.mu.Lock()
		reset, cooldown := b.reset, b.cooldown
		b.mu.Unlock()
		if !reset.Equal(time.Unix(123, 0)) {
			t.Fatalf("Expected reset to stay %v, got %v", time.Unix(123, 0), reset)
		}
		if !cooldown.IsZero() {
			t.Fatalf("Expected no cooldown, got %v", cooldown)
		}
	})

	t.Run("Retry-After blocks until ctx ends", func(t *testing.T) {
		b := newBudget(5000, fixedNow.Add(-time.Hour))
		b.UpdateFromResponse(headers("Retry-After", "60"))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := b.Acquire(ctx); err == nil {
			t.Fatalf("Expected context deadline exceeded during cooldown")
		}
	})

	t.Run("Retry-After only extends cooldown", func(t *testing.T) {
		b := newBudget(5000, fixedNow.Add(-time.Hour))
		b.UpdateFromResponse(headers("Retry-After", "60"))
		b.UpdateFromResponse(headers("Retry-After", "10"))

		b.mu.Lock()
		cooldown := b.cooldown
		b.mu.Unlock()
		if !cooldown.Equal(fixedNow.Add(60 * time.Second)) {
			t.Fatalf("Expected cooldown %v, got %v", fixedNow.Add(60*time.Second), cooldown)
		}
	})

	t.Run("Exhausted before reset blocks", func(t *testing.T) {
		b := newBudget(0, fixedNow.Add(time.Hour))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := b.Acquire(ctx); err == nil {
			t.Fatalf("Expected Acquire to block while exhausted")
		}
	})

	t.Run("Exhausted after reset allows one probe", func(t *testing.T) {
		b := newBudget(0, fixedNow.Add(-time.Minute))

		if err := b.Acquire(context.Background()); err != nil {
			t.Fatalf("Expected probe to be allowed, got %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := b.Acquire(ctx); err == nil {
			t.Fatalf("Expected second Acquire to wait for a refreshed budget")
		}
	})

	t.Run("UpdateFromResponse wakes waiters", func(t *testing.T) {
		b := newBudget(0, fixedNow.Add(-time.Minute))
		if err := b.Acquire(context.Background()); err != nil {
			t.Fatalf("probe: %v", err)
		}

		done := make(chan error, 1)
		go func() { done <- b.Acquire(context.Background()) }()

		time.Sleep(10 * time.Millisecond)
		b.UpdateFromResponse(headers("X-RateLimit-Remaining", "5"))

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Acquire failed after refresh: %v", err)
			}
		case <-time.After(time.Second):
			t.Fatalf("Acquire was not woken by UpdateFromResponse")
		}
	})

	t.Run("nil context", func(t *testing.T) {
		b := NewRequestBudget()
		//nolint:staticcheck // exercising the nil guard
		if err := b.Acquire(nil); err == nil {
			t.Fatalf("Expected error for nil context")
		}
	})
}
