// Package mockstore provides a configurable mock implementation of storage interfaces for testing.
//
// The MockStorage type uses function fields for each method, allowing tests to customize behavior
// as needed while providing sensible defaults for methods that aren't customized.
package mockstore

import (
	"context"
	"time"

	"github.com/backlogmedia/backlog/internal/storage"
)

// MockStorage is a configurable mock implementation of storage.Store.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a sensible default value.
type MockStorage struct {
	// User operations
	CreateUserFunc         func(ctx context.Context, u *storage.User) (int64, error)
	GetUserByEmailFunc     func(ctx context.Context, email string) (*storage.User, error)
	UpdatePasswordHashFunc func(ctx context.Context, userID int64, hash string) error
	SetVerifiedFunc        func(ctx context.Context, userID int64) error

	// Token operations
	AppendTokenFunc       func(ctx context.Context, userID int64, t *storage.Token) (int64, error)
	FindUserByTokenFunc   func(ctx context.Context, q storage.TokenQuery) (*storage.User, *storage.Token, error)
	InvalidateTokenFunc   func(ctx context.Context, secret string, now time.Time) (bool, error)
	CheckContentTokenFunc func(ctx context.Context, secret, assetID string, now time.Time) (bool, error)
	ListUserTokensFunc    func(ctx context.Context, userID int64) ([]*storage.Token, error)

	// Permission operations
	GrantMediaFunc             func(ctx context.Context, userID int64, mediaID string) error
	RevokeMediaFunc            func(ctx context.Context, userID int64, mediaID string) error
	AddCollectionMemberFunc    func(ctx context.Context, collectionID string, userID int64) error
	RemoveCollectionMemberFunc func(ctx context.Context, collectionID string, userID int64) error
	HasMediaGrantFunc          func(ctx context.Context, userID int64, mediaID string) (bool, error)
	ListUserCollectionsFunc    func(ctx context.Context, userID int64) ([]string, error)
	CollectionContainsFunc     func(ctx context.Context, collectionID, mediaID string) (bool, error)

	// Collection operations
	CreateCollectionFunc func(ctx context.Context, g *storage.MediaGroup) error
	GetCollectionFunc    func(ctx context.Context, id string) (*storage.MediaGroup, error)
	ListCollectionsFunc  func(ctx context.Context) ([]*storage.MediaGroup, error)
	UpdateCollectionFunc func(ctx context.Context, g *storage.MediaGroup) error
	DeleteCollectionFunc func(ctx context.Context, id string) error

	// Media operations
	CreateMediaFunc         func(ctx context.Context, m *storage.MediaItem) error
	GetMediaFunc            func(ctx context.Context, id string) (*storage.MediaItem, error)
	ListMediaFunc           func(ctx context.Context) ([]*storage.MediaItem, error)
	ListAccessibleMediaFunc func(ctx context.Context, userID int64) ([]*storage.MediaItem, error)
	UpdateMediaFunc         func(ctx context.Context, m *storage.MediaItem) error
	DeleteMediaFunc         func(ctx context.Context, id string) error

	// Lifecycle
	PingFunc  func(ctx context.Context) error
	CloseFunc func() error
}

// CreateUser creates a new user record.
func (m *MockStorage) CreateUser(ctx context.Context, u *storage.User) (int64, error) {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, u)
	}
	return 1, nil
}

// GetUserByEmail retrieves a user by email.
func (m *MockStorage) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	if m.GetUserByEmailFunc != nil {
		return m.GetUserByEmailFunc(ctx, email)
	}
	return nil, storage.ErrNotFound
}

// UpdatePasswordHash overwrites a user's password hash.
func (m *MockStorage) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	if m.UpdatePasswordHashFunc != nil {
		return m.UpdatePasswordHashFunc(ctx, userID, hash)
	}
	return nil
}

// SetVerified marks a user account as verified.
func (m *MockStorage) SetVerified(ctx context.Context, userID int64) error {
	if m.SetVerifiedFunc != nil {
		return m.SetVerifiedFunc(ctx, userID)
	}
	return nil
}

// AppendToken appends a token to a user's token list.
func (m *MockStorage) AppendToken(ctx context.Context, userID int64, t *storage.Token) (int64, error) {
	if m.AppendTokenFunc != nil {
		return m.AppendTokenFunc(ctx, userID, t)
	}
	return 1, nil
}

// FindUserByToken resolves a token query to its owning user.
func (m *MockStorage) FindUserByToken(ctx context.Context, q storage.TokenQuery) (*storage.User, *storage.Token, error) {
	if m.FindUserByTokenFunc != nil {
		return m.FindUserByTokenFunc(ctx, q)
	}
	return nil, nil, storage.ErrNotFound
}

// InvalidateToken flips a token to the invalidated state.
func (m *MockStorage) InvalidateToken(ctx context.Context, secret string, now time.Time) (bool, error) {
	if m.InvalidateTokenFunc != nil {
		return m.InvalidateTokenFunc(ctx, secret, now)
	}
	return false, nil
}

// CheckContentToken checks a content-access token against an asset.
func (m *MockStorage) CheckContentToken(ctx context.Context, secret, assetID string, now time.Time) (bool, error) {
	if m.CheckContentTokenFunc != nil {
		return m.CheckContentTokenFunc(ctx, secret, assetID, now)
	}
	return false, nil
}

// ListUserTokens returns a user's token audit trail.
func (m *MockStorage) ListUserTokens(ctx context.Context, userID int64) ([]*storage.Token, error) {
	if m.ListUserTokensFunc != nil {
		return m.ListUserTokensFunc(ctx, userID)
	}
	return []*storage.Token{}, nil
}

// GrantMedia adds a direct media grant.
func (m *MockStorage) GrantMedia(ctx context.Context, userID int64, mediaID string) error {
	if m.GrantMediaFunc != nil {
		return m.GrantMediaFunc(ctx, userID, mediaID)
	}
	return nil
}

// RevokeMedia removes a direct media grant.
func (m *MockStorage) RevokeMedia(ctx context.Context, userID int64, mediaID string) error {
	if m.RevokeMediaFunc != nil {
		return m.RevokeMediaFunc(ctx, userID, mediaID)
	}
	return nil
}

// AddCollectionMember adds a user to a collection.
func (m *MockStorage) AddCollectionMember(ctx context.Context, collectionID string, userID int64) error {
	if m.AddCollectionMemberFunc != nil {
		return m.AddCollectionMemberFunc(ctx, collectionID, userID)
	}
	return nil
}

// RemoveCollectionMember removes a user from a collection.
func (m *MockStorage) RemoveCollectionMember(ctx context.Context, collectionID string, userID int64) error {
	if m.RemoveCollectionMemberFunc != nil {
		return m.RemoveCollectionMemberFunc(ctx, collectionID, userID)
	}
	return nil
}

// HasMediaGrant reports whether a direct media grant exists.
func (m *MockStorage) HasMediaGrant(ctx context.Context, userID int64, mediaID string) (bool, error) {
	if m.HasMediaGrantFunc != nil {
		return m.HasMediaGrantFunc(ctx, userID, mediaID)
	}
	return false, nil
}

// ListUserCollections returns the collection IDs a user belongs to.
func (m *MockStorage) ListUserCollections(ctx context.Context, userID int64) ([]string, error) {
	if m.ListUserCollectionsFunc != nil {
		return m.ListUserCollectionsFunc(ctx, userID)
	}
	return []string{}, nil
}

// CollectionContains reports whether a collection contains a media ID.
func (m *MockStorage) CollectionContains(ctx context.Context, collectionID, mediaID string) (bool, error) {
	if m.CollectionContainsFunc != nil {
		return m.CollectionContainsFunc(ctx, collectionID, mediaID)
	}
	return false, nil
}

// CreateCollection inserts a new collection.
func (m *MockStorage) CreateCollection(ctx context.Context, g *storage.MediaGroup) error {
	if m.CreateCollectionFunc != nil {
		return m.CreateCollectionFunc(ctx, g)
	}
	return nil
}

// GetCollection retrieves a collection by ID.
func (m *MockStorage) GetCollection(ctx context.Context, id string) (*storage.MediaGroup, error) {
	if m.GetCollectionFunc != nil {
		return m.GetCollectionFunc(ctx, id)
	}
	return nil, storage.ErrNotFound
}

// ListCollections returns all collections.
func (m *MockStorage) ListCollections(ctx context.Context) ([]*storage.MediaGroup, error) {
	if m.ListCollectionsFunc != nil {
		return m.ListCollectionsFunc(ctx)
	}
	return []*storage.MediaGroup{}, nil
}

// UpdateCollection replaces a collection wholesale.
func (m *MockStorage) UpdateCollection(ctx context.Context, g *storage.MediaGroup) error {
	if m.UpdateCollectionFunc != nil {
		return m.UpdateCollectionFunc(ctx, g)
	}
	return nil
}

// DeleteCollection deletes a collection by ID.
func (m *MockStorage) DeleteCollection(ctx context.Context, id string) error {
	if m.DeleteCollectionFunc != nil {
		return m.DeleteCollectionFunc(ctx, id)
	}
	return nil
}

// CreateMedia inserts a media item.
func (m *MockStorage) CreateMedia(ctx context.Context, item *storage.MediaItem) error {
	if m.CreateMediaFunc != nil {
		return m.CreateMediaFunc(ctx, item)
	}
	return nil
}

// GetMedia retrieves a media item by ID.
func (m *MockStorage) GetMedia(ctx context.Context, id string) (*storage.MediaItem, error) {
	if m.GetMediaFunc != nil {
		return m.GetMediaFunc(ctx, id)
	}
	return nil, storage.ErrNotFound
}

// ListMedia returns the whole media catalog.
func (m *MockStorage) ListMedia(ctx context.Context) ([]*storage.MediaItem, error) {
	if m.ListMediaFunc != nil {
		return m.ListMediaFunc(ctx)
	}
	return []*storage.MediaItem{}, nil
}

// ListAccessibleMedia returns the media a user may access.
func (m *MockStorage) ListAccessibleMedia(ctx context.Context, userID int64) ([]*storage.MediaItem, error) {
	if m.ListAccessibleMediaFunc != nil {
		return m.ListAccessibleMediaFunc(ctx, userID)
	}
	return []*storage.MediaItem{}, nil
}

// UpdateMedia overwrites a media item.
func (m *MockStorage) UpdateMedia(ctx context.Context, item *storage.MediaItem) error {
	if m.UpdateMediaFunc != nil {
		return m.UpdateMediaFunc(ctx, item)
	}
	return nil
}

// DeleteMedia deletes a media item by ID.
func (m *MockStorage) DeleteMedia(ctx context.Context, id string) error {
	if m.DeleteMediaFunc != nil {
		return m.DeleteMediaFunc(ctx, id)
	}
	return nil
}

// Ping checks connectivity.
func (m *MockStorage) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// Close releases resources.
func (m *MockStorage) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

var _ storage.Store = (*MockStorage)(nil)
