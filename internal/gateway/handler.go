package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/backlogmedia/backlog/internal/token"
)

// Handler wires the two gateway phases to HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a gateway Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type requestBody struct {
	MediaID string `json:"mediaId"`
}

// HandleRequest is phase 1.
// POST /api/content/request
// Bearer session token + JSON {"mediaId": "..."} -> 200 with a content
// token, or 401. Invalid session and missing permission produce the
// same response.
func (h *Handler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	sessionSecret := extractBearerToken(r)

	var body requestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.MediaID == "" {
		writeJSONError(w, http.StatusBadRequest, "mediaId is required")
		return
	}

	contentToken, err := h.service.Request(r.Context(), sessionSecret, body.MediaID)
	if err != nil {
		if errors.Is(err, ErrDenied) {
			writeDenied(w)
			return
		}
		h.logger.Error("content token request failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(token.ToWire(contentToken)); err != nil {
		_ = err
	}
}

// HandleCheck is phase 2, invoked by the reverse proxy as an
// auth-subrequest on every asset fetch.
// GET /api/content/check?token=...&asset=...
// 204 means "serve the file", 401 means "deny".
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	contentSecret := r.URL.Query().Get("token")
	assetID := r.URL.Query().Get("asset")

	allowed, err := h.service.Check(r.Context(), contentSecret, assetID)
	if err != nil {
		h.logger.Error("content check failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if !allowed {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// extractBearerToken gets token from "Authorization: Bearer <token>" header
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// writeDenied writes the collapsed 401 denial response.
func writeDenied(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]bool{"auth": false}); err != nil {
		_ = err
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
