package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/backlogmedia/backlog/internal/metrics"
	"github.com/backlogmedia/backlog/internal/storage"
	"github.com/backlogmedia/backlog/internal/token"
)

const (
	sessionUserKey  ctxKey = "session_user"
	sessionTokenKey ctxKey = "session_token"
)

// SessionAuth returns Chi-compatible middleware that resolves the
// bearer secret from the Authorization header to its owning user.
// Requests without a currently valid normal token get 401. The
// resolved user and token are attached to the request context.
func SessionAuth(tokens *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := ExtractBearerToken(r)
			if secret == "" {
				metrics.RecordAuthFailure("missing_token")
				writeJSONError(w, http.StatusUnauthorized, "missing token")
				return
			}

			user, tok, err := tokens.VerifyOfType(r.Context(), secret, storage.TokenTypeNormal)
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if user == nil {
				metrics.RecordAuthFailure("invalid_token")
				writeJSONError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), sessionUserKey, user)
			ctx = context.WithValue(ctx, sessionTokenKey, tok)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin returns middleware that rejects non-admin sessions.
// Must be mounted inside SessionAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			writeJSONError(w, http.StatusUnauthorized, "missing token")
			return
		}
		if !user.Flags.Admin {
			metrics.RecordAuthFailure("not_admin")
			writeJSONError(w, http.StatusForbidden, "permission denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext retrieves the authenticated user from the request
// context. Returns nil if the request did not pass SessionAuth.
func UserFromContext(ctx context.Context) *storage.User {
	if v := ctx.Value(sessionUserKey); v != nil {
		if u, ok := v.(*storage.User); ok {
			return u
		}
	}
	return nil
}

// TokenFromContext retrieves the session token from the request
// context. Returns nil if the request did not pass SessionAuth.
func TokenFromContext(ctx context.Context) *storage.Token {
	if v := ctx.Value(sessionTokenKey); v != nil {
		if t, ok := v.(*storage.Token); ok {
			return t
		}
	}
	return nil
}

// ExtractBearerToken gets the secret from an
// "Authorization: Bearer <token>" header.
func ExtractBearerToken(r *http.Request) string {
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

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(map[string]string{"error": message})
	if err != nil {
		// Encoding errors are not critical for error responses
		_ = err
	}
}
