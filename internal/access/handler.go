package access

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler exposes the permission administration endpoints. All routes
// are admin-only; the session and admin checks are applied where the
// handler is mounted.
type Handler struct {
	resolver *Resolver
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a permissions Handler.
func NewHandler(resolver *Resolver, logger *slog.Logger) *Handler {
	return &Handler{
		resolver: resolver,
		validate: validator.New(),
		logger:   logger,
	}
}

// Routes mounts the permission endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/media", h.mutate(h.resolver.GrantMedia))
	r.Delete("/media", h.mutate(h.resolver.RevokeMedia))
	r.Post("/collection", h.mutate(h.resolver.GrantCollection))
	r.Delete("/collection", h.mutate(h.resolver.RevokeCollection))
	return r
}

type grantForm struct {
	Email string `json:"email" validate:"required,email"`
	ID    string `json:"id" validate:"required"`
}

// mutate adapts one resolver mutation into an HTTP handler. All four
// mutations share the same request shape and status mapping.
func (h *Handler) mutate(op func(ctx context.Context, email, id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form grantForm
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := h.validate.Struct(&form); err != nil {
			writeJSONError(w, http.StatusBadRequest, "validation failed: "+err.Error())
			return
		}

		if err := op(r.Context(), form.Email, form.ID); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				writeJSONError(w, http.StatusNotFound, "user not found")
				return
			}
			h.logger.Error("permission mutation failed", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "internal error")
			return
		}

		// Set semantics: repeating a grant or revoke is a success.
		w.WriteHeader(http.StatusNoContent)
	}
}

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		_ = err
	}
}
