// Package cache provides a small in-process TTL cache.
package cache

import (
	"sync"
	"time"

	"github.com/afraznein/KTPDiscordRelay/internal/core/clock"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

// TTL caches values for a fixed duration after each write.
//
// Expired entries are dropped lazily when a read misses on them; there is no
// background sweep and no size bound, so keys must come from a small space.
type TTL[K comparable, V any] struct {
	ttl   time.Duration
	clock clock.Clock

	mu      sync.RWMutex
	entries map[K]entry[V]
}

// NewTTL creates a cache whose entries live for ttl. A nil clock uses the wall clock.
func NewTTL[K comparable, V any](ttl time.Duration, c clock.Clock) *TTL[K, V] {
	if c == nil {
		c = clock.System{}
	}
	return &TTL[K, V]{
		ttl:     ttl,
		clock:   c,
		entries: make(map[K]entry[V]),
	}
}

// Get returns the cached value if it has not expired.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	now := c.clock.Now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && now.Before(e.expires) {
		return e.value, true
	}

	if ok {
		c.mu.Lock()
		// Only drop the entry we saw; a concurrent Set may have refreshed it.
		if cur, still := c.entries[key]; still && !now.Before(cur.expires) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
	}

	var zero V
	return zero, false
}

// Set stores value and resets its expiry to now+ttl.
func (c *TTL[K, V]) Set(key K, value V) {
	expires := c.clock.Now().Add(c.ttl)

	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expires: expires}
	c.mu.Unlock()
}

// Invalidate drops key, forcing the next Get to miss.
func (c *TTL[K, V]) Invalidate(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
