package scan

import (
	"sync"
	"time"
)

// DefaultVerdictTTL is how long a reputation verdict stays cached.
// Scan traffic clusters around the same URLs (a phishing wave gets
// reported by many users at once), so caching keeps the external
// lookup quota intact.
const DefaultVerdictTTL = 15 * time.Minute

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// ttlCache is an in-memory cache with per-entry expiration. All
// methods are safe for concurrent use and nil-receiver safe (a nil
// cache is a no-op, which lets the reputation client run uncached in
// tests).
type ttlCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]cacheEntry[V]
	ttl     time.Duration
}

func newTTLCache[K comparable, V any](ttl time.Duration) *ttlCache[K, V] {
	return &ttlCache[K, V]{
		entries: make(map[K]cacheEntry[V]),
		ttl:     ttl,
	}
}

// Get returns the cached value and true if the key exists and has not
// expired. On a nil receiver it always misses.
func (c *ttlCache[K, V]) Get(key K) (V, bool) {
	if c == nil {
		var zero V
		return zero, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Set stores a value with the cache's TTL. No-op on a nil receiver.
func (c *ttlCache[K, V]) Set(key K, value V) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry[V]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Len returns the number of entries (including expired) in the cache.
func (c *ttlCache[K, V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
