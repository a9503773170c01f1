package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backlogmedia/backlog/internal/access"
	"github.com/backlogmedia/backlog/internal/storage"
	"github.com/backlogmedia/backlog/internal/testutil/mockstore"
	"github.com/backlogmedia/backlog/internal/token"
)

// newTestService builds a Service over a mockstore holding one user
// with one valid session token and a direct grant on "asset-1".
func newTestService(t *testing.T, store *mockstore.MockStorage) *Service {
	t.Helper()

	user := &storage.User{ID: 1, Email: "user@example.com"}
	if store.FindUserByTokenFunc == nil {
		store.FindUserByTokenFunc = func(ctx context.Context, q storage.TokenQuery) (*storage.User, *storage.Token, error) {
			if q.Secret == "session-secret" {
				return user, &storage.Token{Secret: q.Secret, Type: storage.TokenTypeNormal}, nil
			}
			return nil, nil, storage.ErrNotFound
		}
	}
	if store.GetUserByEmailFunc == nil {
		store.GetUserByEmailFunc = func(ctx context.Context, email string) (*storage.User, error) {
			if email == user.Email {
				return user, nil
			}
			return nil, storage.ErrNotFound
		}
	}
	if store.HasMediaGrantFunc == nil {
		store.HasMediaGrantFunc = func(ctx context.Context, userID int64, mediaID string) (bool, error) {
			return mediaID == "asset-1", nil
		}
	}

	tokens := token.NewManager(store)
	resolver := access.NewResolver(store)
	return NewService(tokens, resolver, store, time.Hour)
}

func TestRequestIssuesScopedToken(t *testing.T) {
	var issued *storage.Token
	store := &mockstore.MockStorage{
		AppendTokenFunc: func(ctx context.Context, userID int64, tok *storage.Token) (int64, error) {
			issued = tok
			return 1, nil
		},
	}
	s := newTestService(t, store)

	tok, err := s.Request(context.Background(), "session-secret", "asset-1")
	require.NoError(t, err)

	assert.Equal(t, storage.TokenTypeContentAccess, tok.Type)
	assert.Equal(t, "asset-1", tok.Scope)
	assert.Same(t, tok, issued)
}

func TestRequestInvalidSession(t *testing.T) {
	s := newTestService(t, &mockstore.MockStorage{})

	tok, err := s.Request(context.Background(), "wrong-secret", "asset-1")
	assert.ErrorIs(t, err, ErrDenied)
	assert.Nil(t, tok)
}

func TestRequestPermissionDenied(t *testing.T) {
	s := newTestService(t, &mockstore.MockStorage{})

	// Valid session, but no grant on asset-2. The error is the same as
	// for a bad session.
	tok, err := s.Request(context.Background(), "session-secret", "asset-2")
	assert.ErrorIs(t, err, ErrDenied)
	assert.Nil(t, tok)
}

func TestRequestEmptyInputs(t *testing.T) {
	s := newTestService(t, &mockstore.MockStorage{})

	_, err := s.Request(context.Background(), "", "asset-1")
	assert.ErrorIs(t, err, ErrDenied)

	_, err = s.Request(context.Background(), "session-secret", "")
	assert.ErrorIs(t, err, ErrDenied)
}

func TestCheckScopeBinding(t *testing.T) {
	store := &mockstore.MockStorage{
		CheckContentTokenFunc: func(ctx context.Context, secret, assetID string, now time.Time) (bool, error) {
			// Token minted for asset-1 only.
			return secret == "content-secret" && assetID == "asset-1", nil
		},
	}
	s := newTestService(t, store)

	allowed, err := s.Check(context.Background(), "content-secret", "asset-1")
	require.NoError(t, err)
	assert.True(t, allowed)

	// The same token never passes for a different asset.
	allowed, err = s.Check(context.Background(), "content-secret", "asset-2")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCheckEmptyParams(t *testing.T) {
	store := &mockstore.MockStorage{
		CheckContentTokenFunc: func(ctx context.Context, secret, assetID string, now time.Time) (bool, error) {
			t.Fatal("store must not be consulted for empty parameters")
			return false, nil
		},
	}
	s := newTestService(t, store)

	allowed, err := s.Check(context.Background(), "", "asset-1")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = s.Check(context.Background(), "content-secret", "")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRequestThenCheckRoundTrip(t *testing.T) {
	// Shared in-memory token table so a token issued by phase 1 is
	// visible to phase 2.
	issued := map[string]*storage.Token{}
	store := &mockstore.MockStorage{
		AppendTokenFunc: func(ctx context.Context, userID int64, tok *storage.Token) (int64, error) {
			issued[tok.Secret] = tok
			return int64(len(issued)), nil
		},
		CheckContentTokenFunc: func(ctx context.Context, secret, assetID string, now time.Time) (bool, error) {
			tok, ok := issued[secret]
			if !ok || tok.Type != storage.TokenTypeContentAccess || tok.Scope != assetID {
				return false, nil
			}
			return now.Before(tok.Expires), nil
		},
	}
	s := newTestService(t, store)

	tok, err := s.Request(context.Background(), "session-secret", "asset-1")
	require.NoError(t, err)

	allowed, err := s.Check(context.Background(), tok.Secret, "asset-1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = s.Check(context.Background(), tok.Secret, "asset-other")
	require.NoError(t, err)
	assert.False(t, allowed)
}
