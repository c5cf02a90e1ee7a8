// Package memory implements the cache port as a mutex-guarded in-process
// map with a single TTL applied to every entry.
package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value    []byte
	storedAt time.Time
}

// Cache holds at most one entry per key, each stamped with its write time.
// Reads discard entries whose age has reached the TTL (an elapsed time equal
// to the TTL counts as expired). There is no size bound and no background
// sweep: an expired entry that is never read again stays in memory until
// that key is next read or invalidated. The key space is bounded by the
// active-user count in practice; a bounded eviction policy is a future
// hardening item.
type Cache struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]entry

	// now is swapped out in tests to control the clock.
	now func() time.Time
}

// New creates a Cache whose entries live for ttl after each write.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl: ttl,
		m:   make(map[string]entry),
		now: time.Now,
	}
}

// Get returns the value stored for key if it is still live. An entry found
// expired is deleted on the spot; a key that was never set has no side
// effects.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.m, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value for key, stamping it with the current time. Any prior
// entry is replaced whether or not it had expired.
func (c *Cache) Set(_ context.Context, key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = entry{value: value, storedAt: c.now()}
}

// Invalidate removes the entry for key if present.
func (c *Cache) Invalidate(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
}

// Len reports the number of physically present entries, live or expired.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
