package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GrantMedia adds a direct media grant to a user. Idempotent: granting
// an already-granted ID is a no-op, so concurrent grants commute.
func (s *SQLiteStorage) GrantMedia(ctx context.Context, userID int64, mediaID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO media_grants (user_id, media_id) VALUES (?, ?)",
		userID, mediaID)
	if err != nil {
		return fmt.Errorf("failed to grant media: %w", err)
	}
	return nil
}

// RevokeMedia removes a direct media grant. Idempotent: revoking an
// absent grant is a no-op.
func (s *SQLiteStorage) RevokeMedia(ctx context.Context, userID int64, mediaID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM media_grants WHERE user_id = ? AND media_id = ?",
		userID, mediaID)
	if err != nil {
		return fmt.Errorf("failed to revoke media: %w", err)
	}
	return nil
}

// AddCollectionMember adds a user to a collection. Idempotent.
func (s *SQLiteStorage) AddCollectionMember(ctx context.Context, collectionID string, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO collection_members (collection_id, user_id) VALUES (?, ?)",
		collectionID, userID)
	if err != nil {
		return fmt.Errorf("failed to add collection member: %w", err)
	}
	return nil
}

// RemoveCollectionMember removes a user from a collection. Idempotent.
func (s *SQLiteStorage) RemoveCollectionMember(ctx context.Context, collectionID string, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM collection_members WHERE collection_id = ? AND user_id = ?",
		collectionID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove collection member: %w", err)
	}
	return nil
}

// HasMediaGrant reports whether the user holds a direct grant on the
// media ID.
func (s *SQLiteStorage) HasMediaGrant(ctx context.Context, userID int64, mediaID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM media_grants WHERE user_id = ? AND media_id = ?",
		userID, mediaID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check media grant: %w", err)
	}
	return true, nil
}

// ListUserCollections returns the IDs of collections the user belongs
// to, in insertion order so callers can scan them deterministically.
func (s *SQLiteStorage) ListUserCollections(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT collection_id FROM collection_members WHERE user_id = ? ORDER BY rowid ASC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user collections: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan collection ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user collections: %w", err)
	}
	return ids, nil
}

// CollectionContains reports whether a collection's contents include the
// media ID.
func (s *SQLiteStorage) CollectionContains(ctx context.Context, collectionID, mediaID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM collection_media WHERE collection_id = ? AND media_id = ?",
		collectionID, mediaID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check collection contents: %w", err)
	}
	return true, nil
}
