package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a Chi router with the gateway endpoints. The check
// endpoint is the proxy hot path and carries no middleware beyond what
// the caller mounts globally.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()

	r.Post("/request", handler.HandleRequest)
	r.Get("/check", handler.HandleCheck)

	return r
}
