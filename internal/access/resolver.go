// Package access resolves whether a user may reach a media asset, and
// administers the grants that decision is based on.
package access

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/backlogmedia/backlog/internal/storage"
)

// ErrUserNotFound is returned by grant/revoke operations when the email
// matches no user.
var ErrUserNotFound = errors.New("access: user not found")

// Store is the persistence surface the resolver needs.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (*storage.User, error)
	HasMediaGrant(ctx context.Context, userID int64, mediaID string) (bool, error)
	ListUserCollections(ctx context.Context, userID int64) ([]string, error)
	CollectionContains(ctx context.Context, collectionID, mediaID string) (bool, error)
	GrantMedia(ctx context.Context, userID int64, mediaID string) error
	RevokeMedia(ctx context.Context, userID int64, mediaID string) error
	AddCollectionMember(ctx context.Context, collectionID string, userID int64) error
	RemoveCollectionMember(ctx context.Context, collectionID string, userID int64) error
}

// Resolver decides access and applies grant/revoke mutations.
type Resolver struct {
	store Store
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// HasAccess reports whether the user may access the asset, either
// through a direct grant or through membership of a collection that
// contains it. The direct check short-circuits; the per-collection
// checks fan out concurrently and are all joined before the answer is
// reduced with a logical OR - the answer is never returned before every
// relevant collection has been examined.
func (r *Resolver) HasAccess(ctx context.Context, userID int64, assetID string) (bool, error) {
	direct, err := r.store.HasMediaGrant(ctx, userID, assetID)
	if err != nil {
		return false, err
	}
	if direct {
		return true, nil
	}

	collections, err := r.store.ListUserCollections(ctx, userID)
	if err != nil {
		return false, err
	}
	if len(collections) == 0 {
		return false, nil
	}

	results := make([]bool, len(collections))
	g, gctx := errgroup.WithContext(ctx)
	for i, collectionID := range collections {
		i, collectionID := i, collectionID
		g.Go(func() error {
			contains, err := r.store.CollectionContains(gctx, collectionID, assetID)
			if err != nil {
				return fmt.Errorf("collection %s: %w", collectionID, err)
			}
			results[i] = contains
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	for _, contains := range results {
		if contains {
			return true, nil
		}
	}
	return false, nil
}

// GrantMedia adds a direct media grant for the user with this email.
// Idempotent on the grant itself; returns ErrUserNotFound if the email
// matches no user.
func (r *Resolver) GrantMedia(ctx context.Context, email, mediaID string) error {
	user, err := r.lookup(ctx, email)
	if err != nil {
		return err
	}
	return r.store.GrantMedia(ctx, user.ID, mediaID)
}

// RevokeMedia removes a direct media grant. Idempotent.
func (r *Resolver) RevokeMedia(ctx context.Context, email, mediaID string) error {
	user, err := r.lookup(ctx, email)
	if err != nil {
		return err
	}
	return r.store.RevokeMedia(ctx, user.ID, mediaID)
}

// GrantCollection adds the user to a collection's members. Idempotent.
func (r *Resolver) GrantCollection(ctx context.Context, email, collectionID string) error {
	user, err := r.lookup(ctx, email)
	if err != nil {
		return err
	}
	return r.store.AddCollectionMember(ctx, collectionID, user.ID)
}

// RevokeCollection removes the user from a collection's members.
// Idempotent.
func (r *Resolver) RevokeCollection(ctx context.Context, email, collectionID string) error {
	user, err := r.lookup(ctx, email)
	if err != nil {
		return err
	}
	return r.store.RemoveCollectionMember(ctx, collectionID, user.ID)
}

func (r *Resolver) lookup(ctx context.Context, email string) (*storage.User, error) {
	user, err := r.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
