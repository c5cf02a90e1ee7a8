// Package bolt implements the object-store port on an embedded bbolt file,
// for single-node and development deployments where S3 is overkill.
package bolt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/savevault/savevault/internal/domain"
)

var bucketName = []byte("saves")

// Store keeps whole save-file blobs as values in a single bbolt bucket.
// Save files are small (tens of MiB at most, enforced upstream), so
// buffering a full blob per operation is acceptable here.
type Store struct {
	db *bbolt.DB
}

// Open initializes or opens a Store at the given path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put reads the blob fully and stores it, replacing any existing value.
func (s *Store) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("bolt read blob %s: %w", key, err)
	}

	if err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), data)
	}); err != nil {
		return fmt.Errorf("bolt put %s: %w", key, err)
	}
	return nil
}

// Get returns a reader over a copy of the stored blob.
func (s *Store) Get(_ context.Context, key string) (io.ReadCloser, error) {
	var out []byte
	if err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v == nil {
			return nil
		}
		// Copy: bbolt values are only valid inside the transaction.
		out = append([]byte(nil), v...)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("bolt get %s: %w", key, err)
	}
	if out == nil {
		return nil, fmt.Errorf("bolt get %s: %w", key, domain.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(out)), nil
}

// Delete removes a blob; deleting a missing key is a no-op.
func (s *Store) Delete(_ context.Context, key string) error {
	if err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	}); err != nil {
		return fmt.Errorf("bolt delete %s: %w", key, err)
	}
	return nil
}
