// Package save defines the save-file metadata domain model.
package save

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// MaxNameLength bounds save-file names. Names double as object-store path
// segments, so they must stay traversal-safe (see Validate).
const MaxNameLength = 128

// Save is the metadata record for one uploaded save file. The blob itself
// lives in the object store under StorageKey; this row is the source of
// truth for listings.
type Save struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	SizeBytes   int64     `json:"size_bytes"`
	Checksum    string    `json:"checksum"` // hex SHA-256 of the blob
	ContentType string    `json:"content_type"`
	StorageKey  string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UploadRequest is the input for uploading a save file.
type UploadRequest struct {
	Name        string
	ContentType string
}

// Validate checks the upload name is present and safe for use as an
// object-store key segment.
func (r *UploadRequest) Validate() error {
	return ValidateName(r.Name)
}

// ValidateName rejects names that are empty, oversized, or contain path
// traversal patterns.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("name is required")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name too long (max %d chars)", MaxNameLength)
	}
	if strings.ContainsAny(name, `/\`) {
		return errors.New("name must not contain path separators")
	}
	if strings.Contains(name, "..") {
		return errors.New("name must not contain '..'")
	}
	if name[0] == '.' {
		return errors.New("name must not start with '.'")
	}
	if cleaned := filepath.Clean(name); cleaned != name {
		return errors.New("name contains invalid path characters")
	}
	return nil
}

// ListKey returns the cache key for a user's save listing.
func ListKey(userID string) string {
	return "user:" + userID + ":saves"
}

// StorageKeyFor returns the object-store key for a save blob.
func StorageKeyFor(userID, saveID string) string {
	return "saves/" + userID + "/" + saveID
}
