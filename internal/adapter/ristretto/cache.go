// Package ristretto implements the cache port using dgraph-io/ristretto.
// Unlike the memory driver it enforces a byte-size bound with admission
// control, at the cost of asynchronous writes.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache wraps a ristretto cache behind the listing-cache port.
type Cache struct {
	c   *ristretto.Cache[string, []byte]
	ttl time.Duration
}

// New creates a ristretto-backed cache. maxCostBytes is the maximum total
// size of cached values in bytes; ttl is the entry lifetime applied to
// every Set.
func New(maxCostBytes int64, ttl time.Duration) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c, ttl: ttl}, nil
}

// Get retrieves a value from the cache.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool) {
	return c.c.Get(key)
}

// Set stores a value in the cache with the configured TTL.
func (c *Cache) Set(_ context.Context, key string, value []byte) {
	c.c.SetWithTTL(key, value, int64(len(value)), c.ttl)
	// Ristretto applies writes through an async buffer; waiting keeps the
	// read-through contract (a Set is visible to the next Get).
	c.c.Wait()
}

// Invalidate removes a value from the cache.
func (c *Cache) Invalidate(_ context.Context, key string) {
	c.c.Del(key)
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.c.Close()
}
