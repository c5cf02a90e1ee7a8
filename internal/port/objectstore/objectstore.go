// Package objectstore defines the port interface for save-file blob storage.
package objectstore

import (
	"context"
	"io"
)

// Store holds save-file blobs keyed by storage key. The metadata row in the
// database, not the blob, is the source of truth for listings.
type Store interface {
	// Put streams a blob to the store, replacing any existing object.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Get opens a blob for reading. The caller must close the returned
	// reader. Returns domain.ErrNotFound when the object does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a blob. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}
