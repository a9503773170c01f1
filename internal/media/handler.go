// Package media serves the media catalog. Listing is filtered to what
// the session user may access; mutations are admin-only.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/backlogmedia/backlog/internal/access"
	"github.com/backlogmedia/backlog/internal/middleware"
	"github.com/backlogmedia/backlog/internal/storage"
)

// Store is the persistence surface the media catalog needs.
type Store interface {
	CreateMedia(ctx context.Context, m *storage.MediaItem) error
	GetMedia(ctx context.Context, id string) (*storage.MediaItem, error)
	ListMedia(ctx context.Context) ([]*storage.MediaItem, error)
	ListAccessibleMedia(ctx context.Context, userID int64) ([]*storage.MediaItem, error)
	UpdateMedia(ctx context.Context, m *storage.MediaItem) error
	DeleteMedia(ctx context.Context, id string) error
}

// Handler exposes the media catalog over HTTP.
type Handler struct {
	store    Store
	resolver *access.Resolver
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a media Handler.
func NewHandler(store Store, resolver *access.Resolver, logger *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		resolver: resolver,
		validate: validator.New(),
		logger:   logger,
	}
}

// Routes mounts the media endpoints on a chi router. The router is
// mounted behind SessionAuth; mutations additionally require admin.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Post("/", h.handleCreate)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
	return r
}

// wireItem is the catalog entry shape on the wire.
type wireItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Kind      string    `json:"kind"`
	URI       string    `json:"uri"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toWire(m *storage.MediaItem) wireItem {
	return wireItem{ID: m.ID, Title: m.Title, Kind: m.Kind, URI: m.URI, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

// handleList returns the catalog entries the session user may access.
// Admins see the whole catalog.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeJSONError(w, http.StatusUnauthorized, "missing token")
		return
	}

	var (
		items []*storage.MediaItem
		err   error
	)
	if user.Flags.Admin {
		items, err = h.store.ListMedia(r.Context())
	} else {
		items, err = h.store.ListAccessibleMedia(r.Context(), user.ID)
	}
	if err != nil {
		h.logger.Error("failed to list media", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]wireItem, 0, len(items))
	for _, m := range items {
		out = append(out, toWire(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGet returns a single catalog entry if the session user may
// access it. Missing items and denied items both return 404 so the
// catalog cannot be probed.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeJSONError(w, http.StatusUnauthorized, "missing token")
		return
	}
	id := chi.URLParam(r, "id")

	if !user.Flags.Admin {
		allowed, err := h.resolver.HasAccess(r.Context(), user.ID, id)
		if err != nil {
			h.logger.Error("access resolution failed", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !allowed {
			writeJSONError(w, http.StatusNotFound, "not found")
			return
		}
	}

	item, err := h.store.GetMedia(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "not found")
			return
		}
		h.logger.Error("failed to get media", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toWire(item))
}

type itemForm struct {
	Title string `json:"title" validate:"required"`
	Kind  string `json:"kind" validate:"required,oneof=audio video"`
	URI   string `json:"uri" validate:"required"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var form itemForm
	if !h.decodeForm(w, r, &form) {
		return
	}

	item := &storage.MediaItem{
		ID:    uuid.New().String(),
		Title: form.Title,
		Kind:  form.Kind,
		URI:   form.URI,
	}
	if err := h.store.CreateMedia(r.Context(), item); err != nil {
		h.logger.Error("failed to create media", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, toWire(item))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var form itemForm
	if !h.decodeForm(w, r, &form) {
		return
	}

	item := &storage.MediaItem{
		ID:    chi.URLParam(r, "id"),
		Title: form.Title,
		Kind:  form.Kind,
		URI:   form.URI,
	}
	if err := h.store.UpdateMedia(r.Context(), item); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "not found")
			return
		}
		h.logger.Error("failed to update media", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toWire(item))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteMedia(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "not found")
			return
		}
		h.logger.Error("failed to delete media", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeForm(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		_ = err
	}
}

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
