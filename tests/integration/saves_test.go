//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"testing"
)

func TestSaveLifecycle(t *testing.T) {
	cleanSaves(t)
	token := loginAdmin(t)

	// 1. Listing starts empty.
	resp := doAuth(t, token, http.MethodGet, "/api/v1/saves", nil)
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	var saves []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&saves); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(saves) != 0 {
		t.Fatalf("expected 0 saves, got %d", len(saves))
	}

	// 2. Upload a save file as a raw body.
	payload := []byte("integration save payload v1")
	wantChecksum := sha256.Sum256(payload)

	resp2 := doAuth(t, token, http.MethodPost,
		"/api/v1/saves?name="+url.QueryEscape("slot1.sav"), bytes.NewReader(payload))
	defer func() { _ = resp2.Body.Close() }()
	if resp2.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp2.Body)
		t.Fatalf("upload: expected 201, got %d: %s", resp2.StatusCode, raw)
	}

	var created struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		SizeBytes int64  `json:"size_bytes"`
		Checksum  string `json:"checksum"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected non-empty save ID")
	}
	if created.Name != "slot1.sav" {
		t.Fatalf("expected name 'slot1.sav', got %q", created.Name)
	}
	if created.SizeBytes != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), created.SizeBytes)
	}
	if created.Checksum != hex.EncodeToString(wantChecksum[:]) {
		t.Fatalf("checksum mismatch: got %q", created.Checksum)
	}

	// 3. The listing now contains it.
	resp3 := doAuth(t, token, http.MethodGet, "/api/v1/saves", nil)
	defer func() { _ = resp3.Body.Close() }()
	saves = nil
	if err := json.NewDecoder(resp3.Body).Decode(&saves); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(saves) != 1 {
		t.Fatalf("expected 1 save after upload, got %d", len(saves))
	}

	// 4. Download returns the exact bytes.
	resp4 := doAuth(t, token, http.MethodGet, "/api/v1/saves/"+created.ID+"/download", nil)
	defer func() { _ = resp4.Body.Close() }()
	if resp4.StatusCode != http.StatusOK {
		t.Fatalf("download: expected 200, got %d", resp4.StatusCode)
	}
	got, err := io.ReadAll(resp4.Body)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("downloaded bytes differ: got %q", got)
	}

	// 5. Re-uploading the same name replaces the file but keeps the ID.
	payload2 := []byte("integration save payload v2 - longer than before")
	resp5 := doAuth(t, token, http.MethodPost,
		"/api/v1/saves?name="+url.QueryEscape("slot1.sav"), bytes.NewReader(payload2))
	defer func() { _ = resp5.Body.Close() }()
	if resp5.StatusCode != http.StatusCreated {
		t.Fatalf("replace: expected 201, got %d", resp5.StatusCode)
	}
	var replaced struct {
		ID        string `json:"id"`
		SizeBytes int64  `json:"size_bytes"`
	}
	if err := json.NewDecoder(resp5.Body).Decode(&replaced); err != nil {
		t.Fatalf("decode replaced: %v", err)
	}
	if replaced.ID != created.ID {
		t.Fatalf("expected replacement to keep ID %s, got %s", created.ID, replaced.ID)
	}
	if replaced.SizeBytes != int64(len(payload2)) {
		t.Fatalf("expected replaced size %d, got %d", len(payload2), replaced.SizeBytes)
	}

	// 6. Delete and confirm the listing is empty again.
	resp6 := doAuth(t, token, http.MethodDelete, "/api/v1/saves/"+created.ID, nil)
	defer func() { _ = resp6.Body.Close() }()
	if resp6.StatusCode != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp6.StatusCode)
	}

	resp7 := doAuth(t, token, http.MethodGet, "/api/v1/saves", nil)
	defer func() { _ = resp7.Body.Close() }()
	saves = nil
	if err := json.NewDecoder(resp7.Body).Decode(&saves); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(saves) != 0 {
		t.Fatalf("expected 0 saves after delete, got %d", len(saves))
	}

	// 7. Download of the deleted save is a 404.
	resp8 := doAuth(t, token, http.MethodGet, "/api/v1/saves/"+created.ID+"/download", nil)
	defer func() { _ = resp8.Body.Close() }()
	if resp8.StatusCode != http.StatusNotFound {
		t.Fatalf("download deleted: expected 404, got %d", resp8.StatusCode)
	}
}

func TestUploadRejectsTraversalName(t *testing.T) {
	cleanSaves(t)
	token := loginAdmin(t)

	resp := doAuth(t, token, http.MethodPost,
		"/api/v1/saves?name="+url.QueryEscape("../escape.sav"), bytes.NewReader([]byte("x")))
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for traversal name, got %d", resp.StatusCode)
	}
}

func TestSavesAreScopedPerUser(t *testing.T) {
	cleanSaves(t)
	adminToken := loginAdmin(t)

	// Admin creates a second user, who then logs in.
	userBody, _ := json.Marshal(map[string]string{
		"email":    "player@savevault.test",
		"name":     "Player One",
		"password": "Player123!",
		"role":     "player",
	})
	resp := doAuth(t, adminToken, http.MethodPost, "/api/v1/users", bytes.NewReader(userBody))
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("create user: expected 201, got %d: %s", resp.StatusCode, raw)
	}

	loginBody, _ := json.Marshal(map[string]string{
		"email":    "player@savevault.test",
		"password": "Player123!",
	})
	resp2, err := http.Post(testServer.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(loginBody))
	if err != nil {
		t.Fatalf("player login: %v", err)
	}
	defer func() { _ = resp2.Body.Close() }()
	var login struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&login); err != nil {
		t.Fatalf("decode player login: %v", err)
	}

	// Admin uploads a save; the player must not see or fetch it.
	resp3 := doAuth(t, adminToken, http.MethodPost,
		"/api/v1/saves?name=admin.sav", bytes.NewReader([]byte("admin data")))
	defer func() { _ = resp3.Body.Close() }()
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp3.Body).Decode(&created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	resp4 := doAuth(t, login.AccessToken, http.MethodGet, "/api/v1/saves", nil)
	defer func() { _ = resp4.Body.Close() }()
	var playerSaves []map[string]any
	if err := json.NewDecoder(resp4.Body).Decode(&playerSaves); err != nil {
		t.Fatalf("decode player list: %v", err)
	}
	if len(playerSaves) != 0 {
		t.Fatalf("expected player to see 0 saves, got %d", len(playerSaves))
	}

	resp5 := doAuth(t, login.AccessToken, http.MethodGet, "/api/v1/saves/"+created.ID, nil)
	defer func() { _ = resp5.Body.Close() }()
	if resp5.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for another user's save, got %d", resp5.StatusCode)
	}
}

// cleanSaves removes save rows between tests without touching users, so the
// seeded admin survives.
func cleanSaves(t *testing.T) {
	t.Helper()
	if _, err := testPool.Exec(context.Background(), "DELETE FROM saves"); err != nil {
		t.Fatalf("clean saves: %v", err)
	}
}
