package handlers

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"marketplace/internal/category"
	"marketplace/internal/models"
	"marketplace/internal/storage"
	"marketplace/internal/store"
)

// maxIconSize is the largest accepted category icon (2 MB).
const maxIconSize = 2 << 20

// allowedIconTypes defines MIME types accepted for icon upload.
var allowedIconTypes = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/gif":     true,
	"image/webp":    true,
	"image/svg+xml": true,
}

// CategoryService is the category engine as seen by the API.
type CategoryService interface {
	Tree(ctx context.Context, activeOnly bool) ([]models.Category, error)
	Create(ctx context.Context, in category.CreateInput) (*models.Category, error)
	Update(ctx context.Context, id uuid.UUID, in category.UpdateInput) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Reorder(ctx context.Context, items []store.ReorderItem) error
	Path(ctx context.Context, id uuid.UUID) ([]models.Category, error)
	ValidateAttributes(ctx context.Context, id uuid.UUID, data map[string]any) (map[string]string, error)
	SetIcon(ctx context.Context, id uuid.UUID, icon string) (*models.Category, string, error)
}

// IconStorage stores uploaded icons. *storage.Client implements it.
type IconStorage interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
	ExtractKey(rawURL string) (string, bool)
}

// Categories serves the category API.
type Categories struct {
	engine CategoryService
	icons  IconStorage
}

// NewCategories creates the category handlers. icons may be nil, which
// disables icon uploads.
func NewCategories(engine CategoryService, icons IconStorage) *Categories {
	return &Categories{engine: engine, icons: icons}
}

// Tree returns the category tree. Only active categories are included
// unless ?active=false.
func (h *Categories) Tree(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") != "false"
	tree, err := h.engine.Tree(r.Context(), activeOnly)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": tree})
}

// Create adds a category.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	var in category.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.engine.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": c})
}

// Update changes a category.
func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := categoryID(w, r)
	if !ok {
		return
	}
	var in category.UpdateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.engine.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": c})
}

// Delete removes a leaf category without listings.
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := categoryID(w, r)
	if !ok {
		return
	}
	if err := h.engine.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	Items []store.ReorderItem `json:"items" validate:"required,dive"`
}

// Reorder sets the sort order of several categories at once.
func (h *Categories) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.engine.Reorder(r.Context(), req.Items); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": len(req.Items)})
}

// Path returns the breadcrumb from the root to the category.
func (h *Categories) Path(w http.ResponseWriter, r *http.Request) {
	id, ok := categoryID(w, r)
	if !ok {
		return
	}
	path, err := h.engine.Path(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": path})
}

// ValidateAttributes checks listing attribute values against the
// category's schema.
func (h *Categories) ValidateAttributes(w http.ResponseWriter, r *http.Request) {
	id, ok := categoryID(w, r)
	if !ok {
		return
	}
	var data map[string]any
	if !decodeBody(w, r, &data) {
		return
	}
	errs, err := h.engine.ValidateAttributes(r.Context(), id, data)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

// UploadIcon stores a multipart "file" upload and sets it as the icon.
func (h *Categories) UploadIcon(w http.ResponseWriter, r *http.Request) {
	if h.icons == nil {
		writeError(w, http.StatusServiceUnavailable, "Object storage is not configured.")
		return
	}
	id, ok := categoryID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxIconSize+1024)
	if err := r.ParseMultipartForm(maxIconSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 2 MB.")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxIconSize+1))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read file.")
		return
	}
	if len(data) > maxIconSize {
		writeError(w, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 2 MB.")
		return
	}

	contentType := http.DetectContentType(data)
	// DetectContentType reports SVGs as text/xml or text/plain.
	if strings.HasSuffix(strings.ToLower(header.Filename), ".svg") &&
		(strings.Contains(contentType, "xml") || strings.Contains(contentType, "text/plain")) {
		contentType = "image/svg+xml"
	}
	if !allowedIconTypes[contentType] {
		writeError(w, http.StatusBadRequest, "File type "+contentType+" is not allowed.")
		return
	}

	ctx := r.Context()
	key := storage.IconKey(id, header.Filename)
	url, err := h.icons.Upload(ctx, key, contentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		slog.Error("icon upload failed", "error", err, "key", key)
		writeError(w, http.StatusBadGateway, "Failed to upload file.")
		return
	}

	c, previous, err := h.engine.SetIcon(ctx, id, url)
	if err != nil {
		if derr := h.icons.Delete(ctx, key); derr != nil {
			slog.Warn("orphaned icon cleanup failed", "error", derr, "key", key)
		}
		writeServiceError(w, r, err)
		return
	}
	if old, ok := h.icons.ExtractKey(previous); ok && old != key {
		if derr := h.icons.Delete(ctx, old); derr != nil {
			slog.Warn("previous icon cleanup failed", "error", derr, "key", old)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": c})
}

func categoryID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ID")
		return uuid.Nil, false
	}
	return id, true
}
