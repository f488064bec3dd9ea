package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// streamClient is one connected SSE subscriber.
type streamClient struct {
	ID          string
	Stream      string // "states" | "effects"
	ConnectedAt time.Time
}

type clientRegistry struct {
	mu      sync.RWMutex
	clients map[string]streamClient
}

func newClientRegistry() *clientRegistry {
	return &clientRegistry{clients: make(map[string]streamClient)}
}

func (r *clientRegistry) add(stream string) streamClient {
	c := streamClient{ID: uuid.NewString(), Stream: stream, ConnectedAt: time.Now()}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
	return c
}

func (r *clientRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
}

// counts returns the number of connected clients per stream.
func (r *clientRegistry) counts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string]int{"states": 0, "effects": 0}
	for _, c := range r.clients {
		out[c.Stream]++
	}
	return out
}
