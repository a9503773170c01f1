// Package storage provides types and interfaces for SQLite persistence operations.
package storage

import (
	"context"
	"time"
)

// Store defines the full persistence surface of the service. Feature
// packages depend on their own narrow subsets; this interface exists for
// composition roots and tooling that need the whole thing.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, u *User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error
	SetVerified(ctx context.Context, userID int64) error

	// Token operations
	AppendToken(ctx context.Context, userID int64, t *Token) (int64, error)
	FindUserByToken(ctx context.Context, q TokenQuery) (*User, *Token, error)
	InvalidateToken(ctx context.Context, secret string, now time.Time) (bool, error)
	CheckContentToken(ctx context.Context, secret, assetID string, now time.Time) (bool, error)
	ListUserTokens(ctx context.Context, userID int64) ([]*Token, error)

	// Permission operations
	GrantMedia(ctx context.Context, userID int64, mediaID string) error
	RevokeMedia(ctx context.Context, userID int64, mediaID string) error
	AddCollectionMember(ctx context.Context, collectionID string, userID int64) error
	RemoveCollectionMember(ctx context.Context, collectionID string, userID int64) error
	HasMediaGrant(ctx context.Context, userID int64, mediaID string) (bool, error)
	ListUserCollections(ctx context.Context, userID int64) ([]string, error)
	CollectionContains(ctx context.Context, collectionID, mediaID string) (bool, error)

	// Collection operations
	CreateCollection(ctx context.Context, g *MediaGroup) error
	GetCollection(ctx context.Context, id string) (*MediaGroup, error)
	ListCollections(ctx context.Context) ([]*MediaGroup, error)
	UpdateCollection(ctx context.Context, g *MediaGroup) error
	DeleteCollection(ctx context.Context, id string) error

	// Media operations
	CreateMedia(ctx context.Context, m *MediaItem) error
	GetMedia(ctx context.Context, id string) (*MediaItem, error)
	ListMedia(ctx context.Context) ([]*MediaItem, error)
	ListAccessibleMedia(ctx context.Context, userID int64) ([]*MediaItem, error)
	UpdateMedia(ctx context.Context, m *MediaItem) error
	DeleteMedia(ctx context.Context, id string) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

var _ Store = (*SQLiteStorage)(nil)
