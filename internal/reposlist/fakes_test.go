package reposlist

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"toprepos/internal/model"
)

// fakeSearch answers FindRepositories from a script of results, one per call.
// When gate is set, each call waits for a value on it first.
type fakeSearch struct {
	mu      sync.Mutex
	pages   []model.RepositoryPage
	errs    []error
	gate    chan struct{}
	calls   atomic.Int32
	queries []string
}

func (f *fakeSearch) FindRepositories(ctx context.Context, query string, pageSize int) (model.RepositoryPage, error) {
	n := int(f.calls.Add(1)) - 1
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if n < len(f.errs) && f.errs[n] != nil {
		return model.RepositoryPage{}, f.errs[n]
	}
	if n < len(f.pages) {
		return f.pages[n], nil
	}
	return model.RepositoryPage{}, nil
}

type fakeContributors struct {
	list  []model.Contributor
	gate  chan struct{}
	calls atomic.Int32
	err   error
}

func (f *fakeContributors) ListContributors(ctx context.Context, owner, name string) ([]model.Contributor, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.list, nil
}

// nextState reads one State or fails the test after a second.
func nextState(t *testing.T, ch <-chan State) State {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok, "state stream closed")
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for state")
	}
	return nil
}

func nextEffect(t *testing.T, ch <-chan Effect) Effect {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "effect stream closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for effect")
	}
	return nil
}

func drainEvents(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("event stream did not close")
			return out
		}
	}
}
