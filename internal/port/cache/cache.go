// Package cache defines the port interface for the listing cache.
package cache

import "context"

// Cache is a per-key cache with one expiry policy fixed at construction
// time. All three operations are total: they never fail, and an expired or
// missing entry is simply reported as not found. Implementations must be
// safe for concurrent use by multiple goroutines.
type Cache interface {
	// Get returns the stored value for key, or ok=false when the key is
	// absent or its entry has expired.
	Get(ctx context.Context, key string) (value []byte, ok bool)

	// Set unconditionally stores value for key, replacing any prior entry
	// regardless of its expiry state.
	Set(ctx context.Context, key string, value []byte)

	// Invalidate removes the entry for key if present; no-op otherwise.
	Invalidate(ctx context.Context, key string)
}
