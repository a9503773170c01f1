package token

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backlogmedia/backlog/internal/storage"
	"github.com/backlogmedia/backlog/internal/testutil/mockstore"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewSecret(t *testing.T) {
	s1, err := NewSecret()
	require.NoError(t, err)
	s2, err := NewSecret()
	require.NoError(t, err)

	// 32 bytes hex-encoded
	assert.Len(t, s1, 64)
	assert.NotEqual(t, s1, s2)
}

func TestIssueDefaults(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var appended *storage.Token

	store := &mockstore.MockStorage{
		GetUserByEmailFunc: func(ctx context.Context, email string) (*storage.User, error) {
			return &storage.User{ID: 7, Email: email}, nil
		},
		AppendTokenFunc: func(ctx context.Context, userID int64, tok *storage.Token) (int64, error) {
			assert.Equal(t, int64(7), userID)
			appended = tok
			return 1, nil
		},
	}

	m := NewManagerAt(store, fixedClock(now))
	tok, err := m.Issue(context.Background(), "user@example.com", IssueOptions{})
	require.NoError(t, err)

	assert.Equal(t, storage.TokenTypeNormal, tok.Type)
	assert.Equal(t, now.Add(DefaultTTL), tok.Expires)
	assert.Empty(t, tok.Scope)
	assert.Len(t, tok.Secret, 64)
	assert.Same(t, tok, appended)
}

func TestIssueCustomOptions(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fp := &storage.Fingerprint{UserAgent: "test-agent", IP: "10.0.0.1", IssuedAt: now}

	store := &mockstore.MockStorage{
		GetUserByEmailFunc: func(ctx context.Context, email string) (*storage.User, error) {
			return &storage.User{ID: 1, Email: email}, nil
		},
	}

	m := NewManagerAt(store, fixedClock(now))
	tok, err := m.Issue(context.Background(), "user@example.com", IssueOptions{
		Type:        storage.TokenTypeContentAccess,
		TTL:         time.Hour,
		Fingerprint: fp,
		Scope:       "asset-42",
	})
	require.NoError(t, err)

	assert.Equal(t, storage.TokenTypeContentAccess, tok.Type)
	assert.Equal(t, now.Add(time.Hour), tok.Expires)
	assert.Equal(t, "asset-42", tok.Scope)
	assert.Same(t, fp, tok.Fingerprint)
}

func TestIssueUserNotFound(t *testing.T) {
	store := &mockstore.MockStorage{} // GetUserByEmail defaults to ErrNotFound

	m := NewManager(store)
	tok, err := m.Issue(context.Background(), "ghost@example.com", IssueOptions{})

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Nil(t, tok)
}

func TestVerifyMatch(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	user := &storage.User{ID: 3, Email: "user@example.com"}
	tok := &storage.Token{Secret: "abc", Type: storage.TokenTypeNormal}

	store := &mockstore.MockStorage{
		FindUserByTokenFunc: func(ctx context.Context, q storage.TokenQuery) (*storage.User, *storage.Token, error) {
			assert.Equal(t, "abc", q.Secret)
			assert.Equal(t, now, q.Now)
			return user, tok, nil
		},
	}

	m := NewManagerAt(store, fixedClock(now))
	gotUser, gotTok, err := m.Verify(context.Background(), "abc")
	require.NoError(t, err)
	assert.Same(t, user, gotUser)
	assert.Same(t, tok, gotTok)
}

func TestVerifyNoMatch(t *testing.T) {
	store := &mockstore.MockStorage{} // FindUserByToken defaults to ErrNotFound

	m := NewManager(store)
	user, tok, err := m.Verify(context.Background(), "unknown")

	// An expected denial, not a fault
	assert.NoError(t, err)
	assert.Nil(t, user)
	assert.Nil(t, tok)
}

func TestVerifyEmptySecret(t *testing.T) {
	store := &mockstore.MockStorage{
		FindUserByTokenFunc: func(ctx context.Context, q storage.TokenQuery) (*storage.User, *storage.Token, error) {
			t.Fatal("store must not be consulted for an empty secret")
			return nil, nil, nil
		},
	}

	m := NewManager(store)
	user, tok, err := m.Verify(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, user)
	assert.Nil(t, tok)
}

func TestVerifyOfType(t *testing.T) {
	store := &mockstore.MockStorage{
		FindUserByTokenFunc: func(ctx context.Context, q storage.TokenQuery) (*storage.User, *storage.Token, error) {
			assert.Equal(t, storage.TokenTypeResetPassword, q.Type)
			return nil, nil, storage.ErrNotFound
		},
	}

	m := NewManager(store)
	user, _, err := m.VerifyOfType(context.Background(), "abc", storage.TokenTypeResetPassword)
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestInvalidateIdempotent(t *testing.T) {
	invalidated := false
	store := &mockstore.MockStorage{
		InvalidateTokenFunc: func(ctx context.Context, secret string, now time.Time) (bool, error) {
			if invalidated {
				return false, nil
			}
			invalidated = true
			return true, nil
		},
	}

	m := NewManager(store)

	flipped, err := m.Invalidate(context.Background(), "abc")
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = m.Invalidate(context.Background(), "abc")
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestInvalidateEmptySecret(t *testing.T) {
	m := NewManager(&mockstore.MockStorage{})
	flipped, err := m.Invalidate(context.Background(), "")
	assert.NoError(t, err)
	assert.False(t, flipped)
}

func TestToWire(t *testing.T) {
	expires := time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC)
	tok := &storage.Token{
		Secret:      "deadbeef",
		Type:        storage.TokenTypeContentAccess,
		Scope:       "asset-1",
		Expires:     expires,
		Fingerprint: &storage.Fingerprint{UserAgent: "ua"},
	}

	w := ToWire(tok)
	assert.False(t, w.Invalidated)
	assert.Equal(t, expires, w.Expires)
	assert.Equal(t, "deadbeef", w.Token)
	assert.Equal(t, storage.TokenTypeContentAccess, w.Type)
	assert.Equal(t, "asset-1", w.Scope)
}
