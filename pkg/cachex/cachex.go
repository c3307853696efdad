// Package cachex provides a small in-process TTL cache with an explicit
// invalidation-on-write contract. Services own a cache instance and must
// call Delete whenever they persist a change to the cached entity; stale
// reads are otherwise bounded by the TTL.
package cachex

import (
	"sync"
	"time"
)

// Cache is the read-through contract services depend on.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
	Delete(key string)
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a concurrency-safe map with per-entry expiry. Expired entries
// are dropped lazily on read and swept opportunistically on write.
type TTLCache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry[V]

	// now is swappable for tests.
	now func() time.Time

	lastSweep time.Time
}

// NewTTL builds a TTLCache. ttl <= 0 defaults to 5 minutes.
func NewTTL[V any](ttl time.Duration) *TTLCache[V] {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TTLCache[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(c.ttl)}
	c.maybeSweep(now)
}

func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// maybeSweep removes expired entries at most once per TTL interval so the
// map does not grow unbounded under churn. Caller holds the lock.
func (c *TTLCache[V]) maybeSweep(now time.Time) {
	if now.Sub(c.lastSweep) < c.ttl {
		return
	}
	c.lastSweep = now
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
