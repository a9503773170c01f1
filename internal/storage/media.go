package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateMedia inserts a new media item.
// Returns ErrDuplicate if the ID is already taken.
func (s *SQLiteStorage) CreateMedia(ctx context.Context, m *MediaItem) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO media (id, title, kind, uri, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		m.ID, m.Title, m.Kind, m.URI, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create media: %w", err)
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	return nil
}

// GetMedia retrieves a media item by ID.
// Returns ErrNotFound if the item doesn't exist.
func (s *SQLiteStorage) GetMedia(ctx context.Context, id string) (*MediaItem, error) {
	var m MediaItem
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, kind, uri, created_at, updated_at FROM media WHERE id = ?", id).
		Scan(&m.ID, &m.Title, &m.Kind, &m.URI, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get media: %w", err)
	}
	return &m, nil
}

// ListMedia returns the whole media catalog.
// Returns empty slice if no items exist.
func (s *SQLiteStorage) ListMedia(ctx context.Context) ([]*MediaItem, error) {
	return s.queryMedia(ctx,
		"SELECT id, title, kind, uri, created_at, updated_at FROM media ORDER BY created_at DESC")
}

// ListAccessibleMedia returns the media items a user may access, either
// through a direct grant or through membership of a collection that
// contains the item.
func (s *SQLiteStorage) ListAccessibleMedia(ctx context.Context, userID int64) ([]*MediaItem, error) {
	return s.queryMedia(ctx,
		`SELECT DISTINCT m.id, m.title, m.kind, m.uri, m.created_at, m.updated_at
		 FROM media m
		 LEFT JOIN media_grants g ON g.media_id = m.id AND g.user_id = ?
		 LEFT JOIN collection_media cm ON cm.media_id = m.id
		 LEFT JOIN collection_members me ON me.collection_id = cm.collection_id AND me.user_id = ?
		 WHERE g.user_id IS NOT NULL OR me.user_id IS NOT NULL
		 ORDER BY m.created_at DESC`,
		userID, userID)
}

// queryMedia runs a media select and scans the result rows.
func (s *SQLiteStorage) queryMedia(ctx context.Context, query string, args ...any) ([]*MediaItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query media: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var items []*MediaItem
	for rows.Next() {
		var m MediaItem
		if err := rows.Scan(&m.ID, &m.Title, &m.Kind, &m.URI, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan media row: %w", err)
		}
		items = append(items, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media: %w", err)
	}

	if items == nil {
		items = make([]*MediaItem, 0)
	}
	return items, nil
}

// UpdateMedia overwrites a media item's mutable fields.
// Returns ErrNotFound if the item doesn't exist.
func (s *SQLiteStorage) UpdateMedia(ctx context.Context, m *MediaItem) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE media SET title = ?, kind = ?, uri = ?, updated_at = ? WHERE id = ?",
		m.Title, m.Kind, m.URI, time.Now().UTC(), m.ID)
	if err != nil {
		return fmt.Errorf("failed to update media: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMedia deletes a media item by ID.
// Returns ErrNotFound if the item doesn't exist.
func (s *SQLiteStorage) DeleteMedia(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM media WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
