// Package database defines the port interface for metadata persistence.
package database

import (
	"context"
	"time"

	"github.com/savevault/savevault/internal/domain/save"
	"github.com/savevault/savevault/internal/domain/user"
)

// Store is the persistence port backed by PostgreSQL in production.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdateUser(ctx context.Context, u *user.User) error
	DeleteUser(ctx context.Context, id string) error

	// Refresh tokens
	CreateRefreshToken(ctx context.Context, rt *user.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*user.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldTokenHash string, newRT *user.RefreshToken) error
	DeleteRefreshToken(ctx context.Context, id string) error
	DeleteRefreshTokensByUser(ctx context.Context, userID string) error
	DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error)

	// API keys
	CreateAPIKey(ctx context.Context, key *user.APIKey) error
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*user.APIKey, error)
	ListAPIKeysByUser(ctx context.Context, userID string) ([]user.APIKey, error)
	DeleteAPIKey(ctx context.Context, id, userID string) error

	// Saves
	CreateSave(ctx context.Context, sv *save.Save) error
	GetSave(ctx context.Context, id string) (*save.Save, error)
	GetSaveByName(ctx context.Context, userID, name string) (*save.Save, error)
	ListSavesByUser(ctx context.Context, userID string) ([]save.Save, error)
	UpdateSave(ctx context.Context, sv *save.Save) error
	DeleteSave(ctx context.Context, id string) error
	CountSavesByUser(ctx context.Context, userID string) (int64, error)
	SumSaveBytesByUser(ctx context.Context, userID string) (int64, error)
}
