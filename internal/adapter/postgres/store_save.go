package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/savevault/savevault/internal/domain/save"
)

const saveColumns = `id, user_id, name, size_bytes, checksum, content_type, storage_key, created_at, updated_at`

func scanSave(row scannable) (save.Save, error) {
	var sv save.Save
	err := row.Scan(&sv.ID, &sv.UserID, &sv.Name, &sv.SizeBytes, &sv.Checksum,
		&sv.ContentType, &sv.StorageKey, &sv.CreatedAt, &sv.UpdatedAt)
	return sv, err
}

func (s *Store) CreateSave(ctx context.Context, sv *save.Save) error {
	now := time.Now().UTC()
	sv.CreatedAt = now
	sv.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO saves (id, user_id, name, size_bytes, checksum, content_type, storage_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sv.ID, sv.UserID, sv.Name, sv.SizeBytes, sv.Checksum, sv.ContentType, sv.StorageKey, sv.CreatedAt, sv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create save: %w", err)
	}
	return nil
}

func (s *Store) GetSave(ctx context.Context, id string) (*save.Save, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+saveColumns+` FROM saves WHERE id = $1`, id)

	sv, err := scanSave(row)
	if err != nil {
		return nil, notFoundWrap(err, "get save %s", id)
	}
	return &sv, nil
}

func (s *Store) GetSaveByName(ctx context.Context, userID, name string) (*save.Save, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+saveColumns+` FROM saves WHERE user_id = $1 AND name = $2`, userID, name)

	sv, err := scanSave(row)
	if err != nil {
		return nil, notFoundWrap(err, "get save by name %s", name)
	}
	return &sv, nil
}

// ListSavesByUser returns a user's saves ordered by last update, newest first.
func (s *Store) ListSavesByUser(ctx context.Context, userID string) ([]save.Save, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+saveColumns+` FROM saves WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	var saves []save.Save
	for rows.Next() {
		sv, err := scanSave(rows)
		if err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		saves = append(saves, sv)
	}
	return saves, rows.Err()
}

func (s *Store) UpdateSave(ctx context.Context, sv *save.Save) error {
	sv.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE saves SET size_bytes = $2, checksum = $3, content_type = $4, updated_at = $5
		WHERE id = $1`,
		sv.ID, sv.SizeBytes, sv.Checksum, sv.ContentType, sv.UpdatedAt,
	)
	return execExpectOne(tag, err, "update save %s", sv.ID)
}

func (s *Store) DeleteSave(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM saves WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete save %s", id)
}

func (s *Store) CountSavesByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM saves WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count saves: %w", err)
	}
	return n, nil
}

func (s *Store) SumSaveBytesByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(SUM(size_bytes), 0) FROM saves WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sum save bytes: %w", err)
	}
	return n, nil
}
