package cache

import (
	"sync"
	"time"
)

// Clock returns the current time. Injected so tests can control expiry.
type Clock func() time.Time

// Entry is one cached payload with its expiry deadline.
type Entry[V any] struct {
	Payload   V
	ExpiresAt time.Time
}

// TTL is a keyed time-to-live cache. Expiry is lazy: an expired entry is
// treated as absent and deleted on the read that observes it. There is no
// background sweep. Safe for concurrent use.
type TTL[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	ttl     time.Duration
	now     Clock
}

// New creates a TTL cache. A ttl <= 0 disables caching entirely: Set becomes
// a no-op and Get always misses. A nil clock defaults to time.Now.
func New[V any](ttl time.Duration, now Clock) *TTL[V] {
	if now == nil {
		now = time.Now
	}
	return &TTL[V]{
		entries: make(map[string]Entry[V]),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the payload for key if present and unexpired. An expired entry
// is deleted and reported as a miss.
func (c *TTL[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}

	if c.now().After(entry.ExpiresAt) {
		c.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have refreshed it.
		if current, still := c.entries[key]; still && c.now().After(current.ExpiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}

	return entry.Payload, true
}

// Set stores payload under key. No-op when the configured TTL is <= 0.
func (c *TTL[V]) Set(key string, payload V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = Entry[V]{
		Payload:   payload,
		ExpiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Invalidate removes key from the cache.
func (c *TTL[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len reports the number of stored entries, including any not yet observed
// as expired.
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
