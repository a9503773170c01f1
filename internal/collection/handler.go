// Package collection administers the media collections used for
// group-based access. All routes are admin-only.
package collection

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

	"github.com/backlogmedia/backlog/internal/storage"
)

// Store is the persistence surface the collection admin needs.
type Store interface {
	CreateCollection(ctx context.Context, g *storage.MediaGroup) error
	GetCollection(ctx context.Context, id string) (*storage.MediaGroup, error)
	ListCollections(ctx context.Context) ([]*storage.MediaGroup, error)
	UpdateCollection(ctx context.Context, g *storage.MediaGroup) error
	DeleteCollection(ctx context.Context, id string) error
}

// Handler exposes collection administration over HTTP.
type Handler struct {
	store    Store
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a collection Handler.
func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
}

// Routes mounts the collection endpoints on a chi router. The router
// is mounted behind SessionAuth and RequireAdmin.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
	return r
}

// wireGroup is the collection shape on the wire.
type wireGroup struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Contents  []string  `json:"contents"`
	Members   []int64   `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toWire(g *storage.MediaGroup) wireGroup {
	return wireGroup{ID: g.ID, Title: g.Title, Contents: g.Contents, Members: g.Members, CreatedAt: g.CreatedAt, UpdatedAt: g.UpdatedAt}
}

type groupForm struct {
	Title    string   `json:"title" validate:"required"`
	Contents []string `json:"contents"`
	Members  []int64  `json:"members"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	groups, err := h.store.ListCollections(r.Context())
	if err != nil {
		h.logger.Error("failed to list collections", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]wireGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, toWire(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var form groupForm
	if !h.decodeForm(w, r, &form) {
		return
	}

	group := &storage.MediaGroup{
		ID:       uuid.New().String(),
		Title:    form.Title,
		Contents: form.Contents,
		Members:  form.Members,
	}
	if err := h.store.CreateCollection(r.Context(), group); err != nil {
		h.logger.Error("failed to create collection", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, toWire(group))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	group, err := h.store.GetCollection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "not found")
			return
		}
		h.logger.Error("failed to get collection", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toWire(group))
}

// handleUpdate replaces the collection's title, contents, and members
// wholesale.
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var form groupForm
	if !h.decodeForm(w, r, &form) {
		return
	}

	group := &storage.MediaGroup{
		ID:       chi.URLParam(r, "id"),
		Title:    form.Title,
		Contents: form.Contents,
		Members:  form.Members,
	}
	if err := h.store.UpdateCollection(r.Context(), group); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "not found")
			return
		}
		h.logger.Error("failed to update collection", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toWire(group))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteCollection(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "not found")
			return
		}
		h.logger.Error("failed to delete collection", "error", err)
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
