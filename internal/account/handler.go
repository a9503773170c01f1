package account

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/backlogmedia/backlog/internal/storage"
	"github.com/backlogmedia/backlog/internal/token"
)

// Handler exposes the session and password flows over HTTP.
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates an account Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// Routes mounts the account endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/create", h.handleCreate)
	r.Post("/login", h.handleLogin)
	r.Post("/verify", h.handleVerify)
	r.Get("/confirm/{token}", h.handleConfirm)
	r.Delete("/invalidate", h.handleInvalidate)
	r.Post("/request-reset-password", h.handleRequestReset)
	r.Post("/reset-password", h.handleReset)
	return r
}

type nameForm struct {
	First  string `json:"first" validate:"required"`
	Middle string `json:"middle"`
	Last   string `json:"last" validate:"required"`
}

type createForm struct {
	Name     nameForm `json:"name" validate:"required"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var form createForm
	if !h.decodeForm(w, r, &form) {
		return
	}

	name := storage.PersonName{First: form.Name.First, Middle: form.Name.Middle, Last: form.Name.Last}
	tok, err := h.service.CreateAccount(r.Context(), name, form.Email, form.Password, fingerprintFrom(r))
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeJSONError(w, http.StatusConflict, "account already exists")
			return
		}
		h.logger.Error("account creation failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, token.ToWire(tok))
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if !h.decodeForm(w, r, &form) {
		return
	}

	tok, err := h.service.Login(r.Context(), form.Email, form.Password, fingerprintFrom(r))
	if err != nil {
		if errors.Is(err, ErrDenied) {
			writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("login failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, token.ToWire(tok))
}

type tokenForm struct {
	Token string `json:"token" validate:"required"`
}

// identity is the projection returned by verify: display name and
// effective permissions, never the password hash or the raw grants
// the caller should not see.
type identity struct {
	Name        storage.PersonName `json:"name"`
	Permissions permissions        `json:"permissions"`
}

type permissions struct {
	User       storage.UserFlags `json:"user"`
	Media      []string          `json:"media"`
	Collection []string          `json:"collection"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var form tokenForm
	if !h.decodeForm(w, r, &form) {
		return
	}

	user, _, err := h.service.Verify(r.Context(), form.Token)
	if err != nil {
		h.logger.Error("token verification failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"auth": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"auth": identity{
		Name: user.Name,
		Permissions: permissions{
			User:       user.Flags,
			Media:      user.Media,
			Collection: user.Collections,
		},
	}})
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	secret := chi.URLParam(r, "token")

	if err := h.service.ConfirmAccount(r.Context(), secret); err != nil {
		if errors.Is(err, ErrDenied) {
			writeJSONError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		h.logger.Error("account confirmation failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"confirmed": true})
}

func (h *Handler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var form tokenForm
	if !h.decodeForm(w, r, &form) {
		return
	}

	if err := h.service.Logout(r.Context(), form.Token); err != nil {
		h.logger.Error("token invalidation failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Idempotent: already-invalid and unknown tokens land here too.
	w.WriteHeader(http.StatusNoContent)
}

type emailForm struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	var form emailForm
	if !h.decodeForm(w, r, &form) {
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), form.Email); err != nil {
		h.logger.Error("password reset request failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Same response whether or not the account exists.
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type resetForm struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	var form resetForm
	if !h.decodeForm(w, r, &form) {
		return
	}

	tok, err := h.service.ResetPassword(r.Context(), form.Token, form.Password)
	if err != nil {
		if errors.Is(err, ErrDenied) {
			writeJSONError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		h.logger.Error("password reset failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, token.ToWire(tok))
}

// decodeForm parses and validates a JSON request body. Writes the
// error response and returns false on failure.
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

// fingerprintFrom captures the advisory client fingerprint recorded
// alongside issued session tokens. Never used to enforce anything.
func fingerprintFrom(r *http.Request) *storage.Fingerprint {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	return &storage.Fingerprint{
		UserAgent: r.UserAgent(),
		IP:        ip,
		IssuedAt:  time.Now().UTC(),
	}
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
