package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backlogmedia/backlog/internal/storage"
	"github.com/backlogmedia/backlog/internal/testutil/mockstore"
)

func newTestRouter(t *testing.T, store *mockstore.MockStorage) http.Handler {
	t.Helper()
	s := newTestService(t, store)
	h := NewHandler(s, slog.Default())
	return NewRouter(h)
}

func TestHandleRequestSuccess(t *testing.T) {
	router := newTestRouter(t, &mockstore.MockStorage{})

	req := httptest.NewRequest("POST", "/request", strings.NewReader(`{"mediaId":"asset-1"}`))
	req.Header.Set("Authorization", "Bearer session-secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, storage.TokenTypeContentAccess, body["type"])
	assert.Equal(t, "asset-1", body["scope"])
	assert.NotEmpty(t, body["token"])
}

func TestHandleRequestMissingMediaID(t *testing.T) {
	router := newTestRouter(t, &mockstore.MockStorage{})

	req := httptest.NewRequest("POST", "/request", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer session-secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRequestDeniedResponsesMatch(t *testing.T) {
	router := newTestRouter(t, &mockstore.MockStorage{})

	// Bad session token.
	req1 := httptest.NewRequest("POST", "/request", strings.NewReader(`{"mediaId":"asset-1"}`))
	req1.Header.Set("Authorization", "Bearer wrong-secret")
	w1 := httptest.NewRecorder()
	router.ServeHTTP(w1, req1)

	// Valid session, missing permission.
	req2 := httptest.NewRequest("POST", "/request", strings.NewReader(`{"mediaId":"asset-2"}`))
	req2.Header.Set("Authorization", "Bearer session-secret")
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req2)

	// Both denials must be byte-identical so callers cannot probe
	// which guard refused.
	assert.Equal(t, http.StatusUnauthorized, w1.Code)
	assert.Equal(t, w1.Code, w2.Code)
	assert.Equal(t, w1.Body.String(), w2.Body.String())
}

func TestHandleCheck(t *testing.T) {
	store := &mockstore.MockStorage{
		CheckContentTokenFunc: func(ctx context.Context, secret, assetID string, now time.Time) (bool, error) {
			return secret == "content-secret" && assetID == "asset-1", nil
		},
	}
	router := newTestRouter(t, store)

	req := httptest.NewRequest("GET", "/check?token=content-secret&asset=asset-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest("GET", "/check?token=content-secret&asset=asset-2", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest("GET", "/check", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
