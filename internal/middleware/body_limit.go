package middleware

import "net/http"

// MaxBodySize returns middleware that caps request bodies at maxBytes.
// The cap is enforced lazily: a handler reading past it gets an error
// from the body and the client is answered with 413.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
