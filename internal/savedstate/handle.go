// Package savedstate holds values that must outlive a single state container,
// such as the last content shown before a restart.
package savedstate

import "sync"

// Handle is a concurrency-safe key/value store scoped to one process.
// Nothing is written to disk.
type Handle struct {
	data sync.Map
}

func NewHandle() *Handle {
	return &Handle{}
}

func (h *Handle) Get(key string) (any, bool) {
	return h.data.Load(key)
}

func (h *Handle) Set(key string, value any) {
	h.data.Store(key, value)
}

func (h *Handle) Delete(key string) {
	h.data.Delete(key)
}

// Keys returns the stored keys in no particular order.
func (h *Handle) Keys() []string {
	var keys []string
	h.data.Range(func(k, _ any) bool {
		if s, ok := k.(string); ok {
			keys = append(keys, s)
		}
		return true
	})
	return keys
}
