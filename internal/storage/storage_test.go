package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func newTestUser(t *testing.T, s *SQLiteStorage, email string) *User {
	t.Helper()
	u := &User{
		Email:        email,
		PasswordHash: "not-a-real-hash",
		Name:         PersonName{First: "Test", Last: "User"},
	}
	_, err := s.CreateUser(context.Background(), u)
	require.NoError(t, err)
	return u
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStorage(t)
	newTestUser(t, s, "user@example.com")

	_, err := s.CreateUser(context.Background(), &User{
		Email:        "user@example.com",
		PasswordHash: "hash",
		Name:         PersonName{First: "Other", Last: "User"},
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestGetUserByEmail(t *testing.T) {
	s := newTestStorage(t)
	created := newTestUser(t, s, "user@example.com")

	u, err := s.GetUserByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)
	assert.Equal(t, "Test", u.Name.First)
	assert.Empty(t, u.Media)
	assert.Empty(t, u.Collections)

	_, err = s.GetUserByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenLifecycle(t *testing.T) {
	s := newTestStorage(t)
	u := newTestUser(t, s, "user@example.com")
	ctx := context.Background()
	now := time.Now().UTC()

	tok := &Token{
		Secret:  "secret-1",
		Type:    TokenTypeNormal,
		Expires: now.Add(time.Hour),
		Fingerprint: &Fingerprint{
			UserAgent: "test-agent",
			IP:        "127.0.0.1",
			IssuedAt:  now,
		},
	}
	_, err := s.AppendToken(ctx, u.ID, tok)
	require.NoError(t, err)

	// Valid token resolves to its owner.
	gotUser, gotTok, err := s.FindUserByToken(ctx, TokenQuery{Secret: "secret-1", Now: now})
	require.NoError(t, err)
	assert.Equal(t, u.ID, gotUser.ID)
	assert.Equal(t, TokenTypeNormal, gotTok.Type)
	require.NotNil(t, gotTok.Fingerprint)
	assert.Equal(t, "test-agent", gotTok.Fingerprint.UserAgent)

	// First invalidation flips, second is a no-op.
	flipped, err := s.InvalidateToken(ctx, "secret-1", now)
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = s.InvalidateToken(ctx, "secret-1", now)
	require.NoError(t, err)
	assert.False(t, flipped)

	// Invalidated token no longer verifies.
	_, _, err = s.FindUserByToken(ctx, TokenQuery{Secret: "secret-1", Now: now})
	assert.ErrorIs(t, err, ErrNotFound)

	// But it stays on the audit trail.
	tokens, err := s.ListUserTokens(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.True(t, tokens[0].Invalidated)
	require.NotNil(t, tokens[0].InvalidatedAt)
}

func TestTokenExpiry(t *testing.T) {
	s := newTestStorage(t)
	u := newTestUser(t, s, "user@example.com")
	ctx := context.Background()
	now := time.Now().UTC()

	tok := &Token{Secret: "secret-2", Type: TokenTypeNormal, Expires: now.Add(time.Hour)}
	_, err := s.AppendToken(ctx, u.ID, tok)
	require.NoError(t, err)

	// Valid now, expired later. Expiry is evaluated at verification
	// time against the provided instant.
	_, _, err = s.FindUserByToken(ctx, TokenQuery{Secret: "secret-2", Now: now})
	require.NoError(t, err)

	_, _, err = s.FindUserByToken(ctx, TokenQuery{Secret: "secret-2", Now: now.Add(2 * time.Hour)})
	assert.ErrorIs(t, err, ErrNotFound)

	// Invalidating an expired token is a no-op.
	flipped, err := s.InvalidateToken(ctx, "secret-2", now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestAppendTokenDuplicateSecret(t *testing.T) {
	s := newTestStorage(t)
	u := newTestUser(t, s, "user@example.com")
	ctx := context.Background()
	expires := time.Now().UTC().Add(time.Hour)

	_, err := s.AppendToken(ctx, u.ID, &Token{Secret: "secret-3", Type: TokenTypeNormal, Expires: expires})
	require.NoError(t, err)

	_, err = s.AppendToken(ctx, u.ID, &Token{Secret: "secret-3", Type: TokenTypeNormal, Expires: expires})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestFindUserByTokenTypeAndScope(t *testing.T) {
	s := newTestStorage(t)
	u := newTestUser(t, s, "user@example.com")
	ctx := context.Background()
	now := time.Now().UTC()

	tok := &Token{
		Secret:  "content-secret",
		Type:    TokenTypeContentAccess,
		Scope:   "asset-1",
		Expires: now.Add(time.Hour),
	}
	_, err := s.AppendToken(ctx, u.ID, tok)
	require.NoError(t, err)

	// Type filter.
	_, _, err = s.FindUserByToken(ctx, TokenQuery{Secret: "content-secret", Type: TokenTypeNormal, Now: now})
	assert.ErrorIs(t, err, ErrNotFound)

	// Scope filter is an exact string match.
	_, gotTok, err := s.FindUserByToken(ctx, TokenQuery{Secret: "content-secret", Scope: "asset-1", Now: now})
	require.NoError(t, err)
	assert.Equal(t, "asset-1", gotTok.Scope)

	_, _, err = s.FindUserByToken(ctx, TokenQuery{Secret: "content-secret", Scope: "asset-2", Now: now})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckContentToken(t *testing.T) {
	s := newTestStorage(t)
	u := newTestUser(t, s, "user@example.com")
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.AppendToken(ctx, u.ID, &Token{
		Secret:  "content-secret",
		Type:    TokenTypeContentAccess,
		Scope:   "asset-1",
		Expires: now.Add(time.Hour),
	})
	require.NoError(t, err)

	// A normal token with the same shape never passes the check.
	_, err = s.AppendToken(ctx, u.ID, &Token{
		Secret:  "session-secret",
		Type:    TokenTypeNormal,
		Expires: now.Add(time.Hour),
	})
	require.NoError(t, err)

	ok, err := s.CheckContentToken(ctx, "content-secret", "asset-1", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.CheckContentToken(ctx, "content-secret", "asset-2", now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.CheckContentToken(ctx, "session-secret", "asset-1", now)
	require.NoError(t, err)
	assert.False(t, ok)

	// Revocation is effective immediately.
	_, err = s.InvalidateToken(ctx, "content-secret", now)
	require.NoError(t, err)

	ok, err = s.CheckContentToken(ctx, "content-secret", "asset-1", now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMediaGrantsSetSemantics(t *testing.T) {
	s := newTestStorage(t)
	u := newTestUser(t, s, "user@example.com")
	ctx := context.Background()

	require.NoError(t, s.CreateMedia(ctx, &MediaItem{ID: "asset-1", Title: "One", Kind: "video", URI: "/media/static/one.mp4"}))

	// Granting twice leaves a single grant.
	require.NoError(t, s.GrantMedia(ctx, u.ID, "asset-1"))
	require.NoError(t, s.GrantMedia(ctx, u.ID, "asset-1"))

	has, err := s.HasMediaGrant(ctx, u.ID, "asset-1")
	require.NoError(t, err)
	assert.True(t, has)

	got, err := s.GetUserByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"asset-1"}, got.Media)

	// Revoking twice is equally a no-op.
	require.NoError(t, s.RevokeMedia(ctx, u.ID, "asset-1"))
	require.NoError(t, s.RevokeMedia(ctx, u.ID, "asset-1"))

	has, err = s.HasMediaGrant(ctx, u.ID, "asset-1")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCollections(t *testing.T) {
	s := newTestStorage(t)
	u := newTestUser(t, s, "user@example.com")
	ctx := context.Background()

	require.NoError(t, s.CreateMedia(ctx, &MediaItem{ID: "asset-1", Title: "One", Kind: "video", URI: "/media/static/one.mp4"}))
	require.NoError(t, s.CreateMedia(ctx, &MediaItem{ID: "asset-2", Title: "Two", Kind: "audio", URI: "/media/static/two.mp3"}))

	group := &MediaGroup{
		ID:       "col-1",
		Title:    "Favorites",
		Contents: []string{"asset-1"},
		Members:  []int64{u.ID},
	}
	require.NoError(t, s.CreateCollection(ctx, group))

	contains, err := s.CollectionContains(ctx, "col-1", "asset-1")
	require.NoError(t, err)
	assert.True(t, contains)

	contains, err = s.CollectionContains(ctx, "col-1", "asset-2")
	require.NoError(t, err)
	assert.False(t, contains)

	cols, err := s.ListUserCollections(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"col-1"}, cols)

	// Wholesale replacement of contents and members.
	group.Contents = []string{"asset-2"}
	group.Members = nil
	require.NoError(t, s.UpdateCollection(ctx, group))

	got, err := s.GetCollection(ctx, "col-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"asset-2"}, got.Contents)
	assert.Empty(t, got.Members)

	require.NoError(t, s.DeleteCollection(ctx, "col-1"))
	_, err = s.GetCollection(ctx, "col-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAccessibleMedia(t *testing.T) {
	s := newTestStorage(t)
	u := newTestUser(t, s, "user@example.com")
	other := newTestUser(t, s, "other@example.com")
	ctx := context.Background()

	require.NoError(t, s.CreateMedia(ctx, &MediaItem{ID: "direct", Title: "Direct", Kind: "video", URI: "/media/static/direct.mp4"}))
	require.NoError(t, s.CreateMedia(ctx, &MediaItem{ID: "via-col", Title: "Via Collection", Kind: "video", URI: "/media/static/col.mp4"}))
	require.NoError(t, s.CreateMedia(ctx, &MediaItem{ID: "hidden", Title: "Hidden", Kind: "video", URI: "/media/static/hidden.mp4"}))

	require.NoError(t, s.GrantMedia(ctx, u.ID, "direct"))
	require.NoError(t, s.CreateCollection(ctx, &MediaGroup{
		ID:       "col-1",
		Title:    "Group",
		Contents: []string{"via-col"},
		Members:  []int64{u.ID},
	}))

	items, err := s.ListAccessibleMedia(ctx, u.ID)
	require.NoError(t, err)

	ids := make([]string, 0, len(items))
	for _, m := range items {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []string{"direct", "via-col"}, ids)

	// The other user sees nothing.
	items, err = s.ListAccessibleMedia(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2-but-longer")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2-but-longer", hash)

	assert.NoError(t, VerifyPassword("hunter2-but-longer", hash))
	assert.Error(t, VerifyPassword("wrong", hash))
}

func TestPing(t *testing.T) {
	s := newTestStorage(t)
	assert.NoError(t, s.Ping(context.Background()))
}
