package account

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backlogmedia/backlog/internal/storage"
	"github.com/backlogmedia/backlog/internal/testutil/mockstore"
	"github.com/backlogmedia/backlog/internal/token"
)

func newTestHandler(store *mockstore.MockStorage) http.Handler {
	s := NewService(store, token.NewManager(store), newStubNotifier(), slog.Default(), TTLs{})
	return NewHandler(s, slog.Default()).Routes()
}

func TestHandleVerify(t *testing.T) {
	user := &storage.User{
		ID:    1,
		Email: "user@example.com",
		Name:  storage.PersonName{First: "Ada", Last: "Lovelace"},
		Flags: storage.UserFlags{Verified: true},
		Media: []string{"asset-1"},
	}
	store := &mockstore.MockStorage{
		FindUserByTokenFunc: func(ctx context.Context, q storage.TokenQuery) (*storage.User, *storage.Token, error) {
			if q.Secret == "valid-secret" {
				return user, &storage.Token{Secret: q.Secret, Type: storage.TokenTypeNormal}, nil
			}
			return nil, nil, storage.ErrNotFound
		},
	}
	router := newTestHandler(store)

	t.Run("valid token returns identity", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/verify", strings.NewReader(`{"token":"valid-secret"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Auth struct {
				Name        storage.PersonName `json:"name"`
				Permissions struct {
					User  storage.UserFlags `json:"user"`
					Media []string          `json:"media"`
				} `json:"permissions"`
			} `json:"auth"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Ada", body.Auth.Name.First)
		assert.True(t, body.Auth.Permissions.User.Verified)
		assert.Equal(t, []string{"asset-1"}, body.Auth.Permissions.Media)

		// The identity projection never carries credential material.
		assert.NotContains(t, w.Body.String(), "PasswordHash")
		assert.NotContains(t, w.Body.String(), "valid-secret")
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/verify", strings.NewReader(`{"token":"wrong"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"auth":false}`, w.Body.String())
	})

	t.Run("missing token field", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/verify", strings.NewReader(`{}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleCreate(t *testing.T) {
	store := &mockstore.MockStorage{
		GetUserByEmailFunc: func(ctx context.Context, email string) (*storage.User, error) {
			return &storage.User{ID: 7, Email: email, Name: storage.PersonName{First: "Ada", Last: "Lovelace"}}, nil
		},
	}
	router := newTestHandler(store)

	body := `{"name":{"first":"Ada","last":"Lovelace"},"email":"ada@example.com","password":"longenough"}`
	req := httptest.NewRequest("POST", "/create", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Signup answers 200 with the session token, same shape as login.
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "normal", resp["type"])
	assert.NotEmpty(t, resp["token"])
}

func TestHandleCreateValidation(t *testing.T) {
	router := newTestHandler(&mockstore.MockStorage{})

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing email", `{"name":{"first":"A","last":"B"},"password":"longenough"}`},
		{"bad email", `{"name":{"first":"A","last":"B"},"email":"nope","password":"longenough"}`},
		{"short password", `{"name":{"first":"A","last":"B"},"email":"a@b.com","password":"short"}`},
		{"missing name", `{"email":"a@b.com","password":"longenough"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/create", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleLoginDenied(t *testing.T) {
	router := newTestHandler(&mockstore.MockStorage{})

	req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"email":"ghost@example.com","password":"whatever"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleInvalidate(t *testing.T) {
	router := newTestHandler(&mockstore.MockStorage{})

	// Unknown token still gets 204: invalidation is idempotent.
	req := httptest.NewRequest("DELETE", "/invalidate", strings.NewReader(`{"token":"whatever"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandleRequestResetAlwaysOK(t *testing.T) {
	router := newTestHandler(&mockstore.MockStorage{})

	req := httptest.NewRequest("POST", "/request-reset-password", strings.NewReader(`{"email":"ghost@example.com"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
