package http

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/savevault/savevault/internal/domain/save"
	"github.com/savevault/savevault/internal/middleware"
)

// ListSaves handles GET /api/v1/saves
func (h *Handlers) ListSaves(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	saves, err := h.Saves.List(r.Context(), u.ID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saves)
}

// UploadSave handles POST /api/v1/saves?name=<name>. The request body is the
// raw save-file content; Content-Length is required.
func (h *Handlers) UploadSave(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	name := r.URL.Query().Get("name")
	if !requireField(w, name, "name") {
		return
	}

	if r.ContentLength <= 0 {
		writeError(w, http.StatusLengthRequired, "content length is required")
		return
	}

	sv, err := h.Saves.Upload(r.Context(), u.ID, save.UploadRequest{
		Name:        name,
		ContentType: r.Header.Get("Content-Type"),
	}, r.Body, r.ContentLength)
	if err != nil {
		writeDomainError(w, err, "save not found")
		return
	}
	writeJSON(w, http.StatusCreated, sv)
}

// GetSave handles GET /api/v1/saves/{id}
func (h *Handlers) GetSave(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	sv, err := h.Saves.Get(r.Context(), u.ID, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "save not found")
		return
	}
	writeJSON(w, http.StatusOK, sv)
}

// DownloadSave handles GET /api/v1/saves/{id}/download
func (h *Handlers) DownloadSave(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	sv, rc, err := h.Saves.Download(r.Context(), u.ID, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "save not found")
		return
	}
	defer rc.Close()

	contentType := sv.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(sv.SizeBytes, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+sv.Name+`"`)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("failed to stream save blob", "save_id", sv.ID, "error", err)
	}
}

// DeleteSave handles DELETE /api/v1/saves/{id}
func (h *Handlers) DeleteSave(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := h.Saves.Delete(r.Context(), u.ID, urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "save not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
