package service

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/savevault/savevault/internal/domain"
	"github.com/savevault/savevault/internal/domain/save"
	"github.com/savevault/savevault/internal/domain/user"
	"github.com/savevault/savevault/internal/port/messagequeue"
)

// mockStore is an in-memory database.Store for service tests.
type mockStore struct {
	users         []user.User
	refreshTokens []user.RefreshToken
	apiKeys       []user.APIKey
	saves         []save.Save

	// Error hooks — set these to inject failures.
	listSavesErr  error
	createSaveErr error
	updateSaveErr error
	deleteSaveErr error
	countSavesErr error
	sumBytesErr   error

	listSavesCalls int
}

func (m *mockStore) CreateUser(_ context.Context, u *user.User) error {
	for i := range m.users {
		if m.users[i].Email == u.Email {
			return domain.ErrConflict
		}
	}
	m.users = append(m.users, *u)
	return nil
}

func (m *mockStore) GetUser(_ context.Context, id string) (*user.User, error) {
	for i := range m.users {
		if m.users[i].ID == id {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	for i := range m.users {
		if m.users[i].Email == email {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListUsers(_ context.Context) ([]user.User, error) {
	return m.users, nil
}

func (m *mockStore) UpdateUser(_ context.Context, u *user.User) error {
	for i := range m.users {
		if m.users[i].ID == u.ID {
			m.users[i] = *u
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) DeleteUser(_ context.Context, id string) error {
	for i := range m.users {
		if m.users[i].ID == id {
			m.users = append(m.users[:i], m.users[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) CreateRefreshToken(_ context.Context, rt *user.RefreshToken) error {
	m.refreshTokens = append(m.refreshTokens, *rt)
	return nil
}

func (m *mockStore) GetRefreshTokenByHash(_ context.Context, tokenHash string) (*user.RefreshToken, error) {
	for i := range m.refreshTokens {
		if m.refreshTokens[i].TokenHash == tokenHash {
			rt := m.refreshTokens[i]
			return &rt, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) RotateRefreshToken(_ context.Context, oldTokenHash string, newRT *user.RefreshToken) error {
	for i := range m.refreshTokens {
		if m.refreshTokens[i].TokenHash == oldTokenHash {
			m.refreshTokens[i] = *newRT
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) DeleteRefreshToken(_ context.Context, id string) error {
	for i := range m.refreshTokens {
		if m.refreshTokens[i].ID == id {
			m.refreshTokens = append(m.refreshTokens[:i], m.refreshTokens[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockStore) DeleteRefreshTokensByUser(_ context.Context, userID string) error {
	kept := m.refreshTokens[:0]
	for _, rt := range m.refreshTokens {
		if rt.UserID != userID {
			kept = append(kept, rt)
		}
	}
	m.refreshTokens = kept
	return nil
}

func (m *mockStore) DeleteExpiredRefreshTokens(_ context.Context, before time.Time) (int64, error) {
	var n int64
	kept := m.refreshTokens[:0]
	for _, rt := range m.refreshTokens {
		if rt.ExpiresAt.After(before) {
			kept = append(kept, rt)
		} else {
			n++
		}
	}
	m.refreshTokens = kept
	return n, nil
}

func (m *mockStore) CreateAPIKey(_ context.Context, key *user.APIKey) error {
	m.apiKeys = append(m.apiKeys, *key)
	return nil
}

func (m *mockStore) GetAPIKeyByHash(_ context.Context, keyHash string) (*user.APIKey, error) {
	for i := range m.apiKeys {
		if m.apiKeys[i].KeyHash == keyHash {
			k := m.apiKeys[i]
			return &k, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListAPIKeysByUser(_ context.Context, userID string) ([]user.APIKey, error) {
	var keys []user.APIKey
	for _, k := range m.apiKeys {
		if k.UserID == userID {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *mockStore) DeleteAPIKey(_ context.Context, id, userID string) error {
	for i := range m.apiKeys {
		if m.apiKeys[i].ID == id && m.apiKeys[i].UserID == userID {
			m.apiKeys = append(m.apiKeys[:i], m.apiKeys[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) CreateSave(_ context.Context, sv *save.Save) error {
	if m.createSaveErr != nil {
		return m.createSaveErr
	}
	m.saves = append(m.saves, *sv)
	return nil
}

func (m *mockStore) GetSave(_ context.Context, id string) (*save.Save, error) {
	for i := range m.saves {
		if m.saves[i].ID == id {
			sv := m.saves[i]
			return &sv, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) GetSaveByName(_ context.Context, userID, name string) (*save.Save, error) {
	for i := range m.saves {
		if m.saves[i].UserID == userID && m.saves[i].Name == name {
			sv := m.saves[i]
			return &sv, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListSavesByUser(_ context.Context, userID string) ([]save.Save, error) {
	m.listSavesCalls++
	if m.listSavesErr != nil {
		return nil, m.listSavesErr
	}
	var saves []save.Save
	for _, sv := range m.saves {
		if sv.UserID == userID {
			saves = append(saves, sv)
		}
	}
	return saves, nil
}

func (m *mockStore) UpdateSave(_ context.Context, sv *save.Save) error {
	if m.updateSaveErr != nil {
		return m.updateSaveErr
	}
	for i := range m.saves {
		if m.saves[i].ID == sv.ID {
			m.saves[i] = *sv
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) DeleteSave(_ context.Context, id string) error {
	if m.deleteSaveErr != nil {
		return m.deleteSaveErr
	}
	for i := range m.saves {
		if m.saves[i].ID == id {
			m.saves = append(m.saves[:i], m.saves[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) CountSavesByUser(_ context.Context, userID string) (int64, error) {
	if m.countSavesErr != nil {
		return 0, m.countSavesErr
	}
	var n int64
	for _, sv := range m.saves {
		if sv.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *mockStore) SumSaveBytesByUser(_ context.Context, userID string) (int64, error) {
	if m.sumBytesErr != nil {
		return 0, m.sumBytesErr
	}
	var total int64
	for _, sv := range m.saves {
		if sv.UserID == userID {
			total += sv.SizeBytes
		}
	}
	return total, nil
}

// mockCache is a TTL-less cache.Cache that records operation counts.
type mockCache struct {
	mu      sync.Mutex
	entries map[string][]byte

	sets        int
	invalidates int
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[string][]byte{}}
}

func (c *mockCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *mockCache) Set(_ context.Context, key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[key] = value
}

func (c *mockCache) Invalidate(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidates++
	delete(c.entries, key)
}

// mockObjects is an in-memory objectstore.Store.
type mockObjects struct {
	blobs map[string][]byte

	putErr error
	getErr error
}

func newMockObjects() *mockObjects {
	return &mockObjects{blobs: map[string][]byte{}}
}

func (o *mockObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if o.putErr != nil {
		return o.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	o.blobs[key] = data
	return nil
}

func (o *mockObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if o.getErr != nil {
		return nil, o.getErr
	}
	data, ok := o.blobs[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (o *mockObjects) Delete(_ context.Context, key string) error {
	delete(o.blobs, key)
	return nil
}

// mockQueue records published events.
type mockQueue struct {
	published []publishedEvent
}

type publishedEvent struct {
	subject string
	data    []byte
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.published = append(q.published, publishedEvent{subject: subject, data: data})
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, _ string, _ messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (q *mockQueue) Close() error { return nil }
