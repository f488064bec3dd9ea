// Package contributors memoizes per-repository contributor lookups so each
// repository is fetched from the gateway at most once per process.
package contributors

import (
	"context"
	"fmt"
	"sync"

	"toprepos/internal/gateway"
	"toprepos/internal/model"
)

// EntryState is the lifecycle position of one repository id in the cache.
type EntryState int

const (
	// Absent means no lookup is pending or stored.
	Absent EntryState = iota
	// InFlight means exactly one gateway call is outstanding.
	InFlight
	// Resolved means the contributor list is stored. Resolved is terminal.
	Resolved
)

func (s EntryState) String() string {
	switch s {
	case Absent:
		return "absent"
	case InFlight:
		return "in_flight"
	case Resolved:
		return "resolved"
	default:
		return fmt.Sprintf("EntryState(%d)", int(s))
	}
}

type entry struct {
	state        EntryState
	contributors []model.Contributor
}

// Cache resolves contributor lists with at most one outstanding gateway call
// per repository id.
//
// A request for an id that is already in flight is suppressed rather than
// joined: it completes with ok=false and no error. Only the caller that
// started the fetch observes the result, and later callers read it from the
// cache.
type Cache struct {
	gw gateway.ContributorsGateway

	mu      sync.Mutex
	entries map[int64]*entry
}

func NewCache(gw gateway.ContributorsGateway) (*Cache, error) {
	if gw == nil {
		return nil, fmt.Errorf("contributors cache: nil gateway")
	}
	return &Cache{gw: gw, entries: make(map[int64]*entry)}, nil
}

// Request returns the contributors of repository id, fetching owner/name from
// the gateway if nothing is stored or pending.
//
// ok is true when contributors holds a resolution (possibly empty). A failed
// fetch returns the gateway error and leaves the id Absent so a later request
// may try again.
//
// The gateway call is detached from ctx cancellation: a caller going away
// does not abort a fetch other callers will read from the cache.
func (c *Cache) Request(ctx context.Context, id int64, owner, name string) ([]model.Contributor, bool, error) {
	if ctx == nil {
		return nil, false, fmt.Errorf("contributors cache: ctx is nil")
	}

	c.mu.Lock()
	if e, ok := c.entries[id]; ok {
		defer c.mu.Unlock()
		if e.state == Resolved {
			return clone(e.contributors), true, nil
		}
		return nil, false, nil
	}
	c.entries[id] = &entry{state: InFlight}
	c.mu.Unlock()

	list, err := c.gw.ListContributors(context.WithoutCancel(ctx), owner, name)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		delete(c.entries, id)
		return nil, false, fmt.Errorf("contributors for %s/%s: %w", owner, name, err)
	}
	stored := clone(list)
	c.entries[id] = &entry{state: Resolved, contributors: stored}
	return clone(stored), true, nil
}

// entryState reports where id currently sits in the lifecycle.
func (c *Cache) entryState(id int64) EntryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		return e.state
	}
	return Absent
}

// Lookup returns the stored resolution for id without fetching. ok is false
// unless the entry is Resolved.
func (c *Cache) Lookup(id int64) ([]model.Contributor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok && e.state == Resolved {
		return clone(e.contributors), true
	}
	return nil, false
}

// size returns the number of in-flight and resolved entries.
func (c *Cache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func clone(list []model.Contributor) []model.Contributor {
	out := make([]model.Contributor, len(list))
	copy(out, list)
	return out
}
