// Package service implements business logic on top of ports.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/savevault/savevault/internal/adapter/otel"
	"github.com/savevault/savevault/internal/config"
	"github.com/savevault/savevault/internal/domain"
	"github.com/savevault/savevault/internal/domain/save"
	"github.com/savevault/savevault/internal/port/cache"
	"github.com/savevault/savevault/internal/port/database"
	"github.com/savevault/savevault/internal/port/messagequeue"
	"github.com/savevault/savevault/internal/port/objectstore"
)

// Event subjects published on the message queue.
const (
	SubjectSaveUploaded = "saves.uploaded"
	SubjectSaveDeleted  = "saves.deleted"
)

// SaveEvent is the payload published for save lifecycle events.
type SaveEvent struct {
	UserID    string    `json:"user_id"`
	SaveID    string    `json:"save_id"`
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes,omitempty"`
	At        time.Time `json:"at"`
}

// SaveService handles save-file business logic: uploads, downloads, and the
// cached per-user listing.
type SaveService struct {
	store   database.Store
	objects objectstore.Store
	cache   cache.Cache
	queue   messagequeue.Queue // nil when messaging is disabled
	metrics *otel.Metrics      // nil when telemetry is disabled
	limits  config.Limits
}

// NewSaveService creates a new SaveService. queue and metrics may be nil.
func NewSaveService(store database.Store, objects objectstore.Store, c cache.Cache, queue messagequeue.Queue, metrics *otel.Metrics, limits config.Limits) *SaveService {
	return &SaveService{
		store:   store,
		objects: objects,
		cache:   c,
		queue:   queue,
		metrics: metrics,
		limits:  limits,
	}
}

// List returns all saves for a user, newest first. Listings are served from
// the cache when a fresh entry exists; otherwise the database is queried and
// the result is cached. Database errors are returned to the caller and never
// cached.
func (s *SaveService) List(ctx context.Context, userID string) ([]save.Save, error) {
	key := save.ListKey(userID)

	if data, ok := s.cache.Get(ctx, key); ok {
		var saves []save.Save
		if err := json.Unmarshal(data, &saves); err == nil {
			s.countCacheHit(ctx)
			return saves, nil
		}
		// Corrupt entry; drop it and fall through to the database.
		s.cache.Invalidate(ctx, key)
	}
	s.countCacheMiss(ctx)

	saves, err := s.store.ListSavesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	if saves == nil {
		saves = []save.Save{}
	}

	// An empty listing is a valid result and is cached like any other.
	if data, err := json.Marshal(saves); err == nil {
		s.cache.Set(ctx, key, data)
	}
	return saves, nil
}

// Get returns a save's metadata, verifying ownership.
func (s *SaveService) Get(ctx context.Context, userID, id string) (*save.Save, error) {
	sv, err := s.store.GetSave(ctx, id)
	if err != nil {
		return nil, err
	}
	if sv.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return sv, nil
}

// Upload stores a save-file blob and its metadata. Uploading a name the user
// already has replaces that save in place. The listing cache entry is
// invalidated only after both writes succeed.
func (s *SaveService) Upload(ctx context.Context, userID string, req save.UploadRequest, r io.Reader, size int64) (*save.Save, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: content length is required", domain.ErrValidation)
	}
	if size > s.limits.MaxSaveBytes {
		return nil, fmt.Errorf("%w: save exceeds %d bytes", domain.ErrQuotaExceeded, s.limits.MaxSaveBytes)
	}

	existing, err := s.store.GetSaveByName(ctx, userID, req.Name)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get save by name: %w", err)
	}

	if err := s.checkQuota(ctx, userID, existing, size); err != nil {
		return nil, err
	}

	saveID := uuid.NewString()
	if existing != nil {
		saveID = existing.ID
	}
	storageKey := save.StorageKeyFor(userID, saveID)

	hasher := sha256.New()
	counter := &countingReader{r: io.TeeReader(io.LimitReader(r, size), hasher)}
	if err := s.objects.Put(ctx, storageKey, counter, size, req.ContentType); err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}
	if counter.n != size {
		s.deleteBlob(ctx, storageKey)
		return nil, fmt.Errorf("%w: body shorter than declared length", domain.ErrValidation)
	}

	now := time.Now()
	sv := &save.Save{
		ID:          saveID,
		UserID:      userID,
		Name:        req.Name,
		SizeBytes:   size,
		Checksum:    hex.EncodeToString(hasher.Sum(nil)),
		ContentType: req.ContentType,
		StorageKey:  storageKey,
		UpdatedAt:   now,
	}

	if existing != nil {
		sv.CreatedAt = existing.CreatedAt
		err = s.store.UpdateSave(ctx, sv)
	} else {
		sv.CreatedAt = now
		err = s.store.CreateSave(ctx, sv)
	}
	if err != nil {
		s.deleteBlob(ctx, storageKey)
		return nil, fmt.Errorf("store save metadata: %w", err)
	}

	s.cache.Invalidate(ctx, save.ListKey(userID))
	s.countUpload(ctx, size)
	s.publish(ctx, SubjectSaveUploaded, sv)
	return sv, nil
}

// Download opens a save's blob for reading, verifying ownership. The caller
// must close the returned reader.
func (s *SaveService) Download(ctx context.Context, userID, id string) (*save.Save, io.ReadCloser, error) {
	sv, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.objects.Get(ctx, sv.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("open blob: %w", err)
	}

	s.countDownload(ctx)
	return sv, rc, nil
}

// Delete removes a save's metadata and blob, then invalidates the user's
// listing cache entry. A missing blob is tolerated: the metadata row is the
// source of truth.
func (s *SaveService) Delete(ctx context.Context, userID, id string) error {
	sv, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteSave(ctx, sv.ID); err != nil {
		return fmt.Errorf("delete save metadata: %w", err)
	}

	if err := s.objects.Delete(ctx, sv.StorageKey); err != nil {
		slog.Warn("failed to delete save blob, metadata already removed",
			"save_id", sv.ID, "storage_key", sv.StorageKey, "error", err)
	}

	s.cache.Invalidate(ctx, save.ListKey(userID))
	s.countDelete(ctx)
	s.publish(ctx, SubjectSaveDeleted, sv)
	return nil
}

// checkQuota enforces the per-user save count and total byte quotas.
// Replacing an existing save frees its current size before the check.
func (s *SaveService) checkQuota(ctx context.Context, userID string, existing *save.Save, size int64) error {
	if existing == nil {
		count, err := s.store.CountSavesByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("count saves: %w", err)
		}
		if count >= s.limits.MaxSavesPerUser {
			return fmt.Errorf("%w: save limit of %d reached", domain.ErrQuotaExceeded, s.limits.MaxSavesPerUser)
		}
	}

	used, err := s.store.SumSaveBytesByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("sum save bytes: %w", err)
	}
	if existing != nil {
		used -= existing.SizeBytes
	}
	if used+size > s.limits.MaxUserBytes {
		return fmt.Errorf("%w: storage quota of %d bytes exceeded", domain.ErrQuotaExceeded, s.limits.MaxUserBytes)
	}
	return nil
}

// deleteBlob removes an orphaned blob after a failed upload, best-effort.
func (s *SaveService) deleteBlob(ctx context.Context, key string) {
	if err := s.objects.Delete(ctx, key); err != nil {
		slog.Warn("failed to clean up orphaned blob", "storage_key", key, "error", err)
	}
}

// publish emits a save lifecycle event, best-effort.
func (s *SaveService) publish(ctx context.Context, subject string, sv *save.Save) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(SaveEvent{
		UserID:    sv.UserID,
		SaveID:    sv.ID,
		Name:      sv.Name,
		SizeBytes: sv.SizeBytes,
		At:        time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Warn("failed to publish save event", "subject", subject, "save_id", sv.ID, "error", err)
	}
}

func (s *SaveService) countCacheHit(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.CacheHits.Add(ctx, 1)
	}
}

func (s *SaveService) countCacheMiss(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.CacheMisses.Add(ctx, 1)
	}
}

func (s *SaveService) countUpload(ctx context.Context, size int64) {
	if s.metrics != nil {
		s.metrics.Uploads.Add(ctx, 1)
		s.metrics.UploadBytes.Record(ctx, size)
	}
}

func (s *SaveService) countDownload(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.Downloads.Add(ctx, 1)
	}
}

func (s *SaveService) countDelete(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.Deletes.Add(ctx, 1)
	}
}

// countingReader tracks how many bytes were consumed from the wrapped reader.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
