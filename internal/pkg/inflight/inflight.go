// Package inflight provides a keyed single-flight guard: at most one
// operation per key may be active at a time. Unlike singleflight-style
// deduplication, a second caller does not wait for or share the first
// caller's result; it is told the operation is already running.
//
// The guard is process-local. Cross-process uniqueness of certification
// transactions rests on the provider's transaction identifier.
package inflight

import "sync"

// Guard tracks in-flight operations by key.
type Guard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{active: make(map[string]struct{})}
}

// TryAcquire marks key as in-flight. Returns false if the key is already
// held; the caller must then treat its invocation as a no-op.
func (g *Guard) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.active[key]; held {
		return false
	}
	g.active[key] = struct{}{}
	return true
}

// Release frees key. Safe to call for a key that is not held, so every
// terminal path of a flow may release unconditionally.
func (g *Guard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, key)
}

// Held reports whether key is currently in flight.
func (g *Guard) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, held := g.active[key]
	return held
}
