package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateCollection inserts a new media group with its contents and
// members. Returns ErrDuplicate if the ID is already taken.
func (s *SQLiteStorage) CreateCollection(ctx context.Context, g *MediaGroup) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		"INSERT INTO collections (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)",
		g.ID, g.Title, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if err := insertCollectionSets(ctx, tx, g); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit collection: %w", err)
	}
	g.CreatedAt = now
	g.UpdatedAt = now
	return nil
}

// UpdateCollection replaces a collection's title, contents, and members
// wholesale. Returns ErrNotFound if the collection doesn't exist.
func (s *SQLiteStorage) UpdateCollection(ctx context.Context, g *MediaGroup) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx,
		"UPDATE collections SET title = ?, updated_at = ? WHERE id = ?",
		g.Title, time.Now().UTC(), g.ID)
	if err != nil {
		return fmt.Errorf("failed to update collection: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM collection_media WHERE collection_id = ?", g.ID); err != nil {
		return fmt.Errorf("failed to clear collection contents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM collection_members WHERE collection_id = ?", g.ID); err != nil {
		return fmt.Errorf("failed to clear collection members: %w", err)
	}
	if err := insertCollectionSets(ctx, tx, g); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit collection update: %w", err)
	}
	return nil
}

// insertCollectionSets writes the contents and members rows for a
// collection inside an open transaction.
func insertCollectionSets(ctx context.Context, tx *sql.Tx, g *MediaGroup) error {
	for _, mediaID := range g.Contents {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO collection_media (collection_id, media_id) VALUES (?, ?)",
			g.ID, mediaID)
		if err != nil {
			return fmt.Errorf("failed to insert collection media: %w", err)
		}
	}
	for _, userID := range g.Members {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO collection_members (collection_id, user_id) VALUES (?, ?)",
			g.ID, userID)
		if err != nil {
			return fmt.Errorf("failed to insert collection member: %w", err)
		}
	}
	return nil
}

// GetCollection retrieves a collection with its contents and members.
// Returns ErrNotFound if the collection doesn't exist.
func (s *SQLiteStorage) GetCollection(ctx context.Context, id string) (*MediaGroup, error) {
	var g MediaGroup
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, created_at, updated_at FROM collections WHERE id = ?", id).
		Scan(&g.ID, &g.Title, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	if err := s.loadCollectionSets(ctx, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// ListCollections returns all collections with contents and members.
// Returns empty slice if none exist.
func (s *SQLiteStorage) ListCollections(ctx context.Context) ([]*MediaGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, created_at, updated_at FROM collections ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var groups []*MediaGroup
	for rows.Next() {
		var g MediaGroup
		if err := rows.Scan(&g.ID, &g.Title, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collection row: %w", err)
		}
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collections: %w", err)
	}

	for _, g := range groups {
		if err := s.loadCollectionSets(ctx, g); err != nil {
			return nil, err
		}
	}

	if groups == nil {
		groups = make([]*MediaGroup, 0)
	}
	return groups, nil
}

// DeleteCollection deletes a collection by ID. Contents and membership
// rows cascade via foreign key constraints.
// Returns ErrNotFound if the collection doesn't exist.
func (s *SQLiteStorage) DeleteCollection(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
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

// loadCollectionSets populates a collection's contents and members.
func (s *SQLiteStorage) loadCollectionSets(ctx context.Context, g *MediaGroup) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT media_id FROM collection_media WHERE collection_id = ? ORDER BY rowid ASC", g.ID)
	if err != nil {
		return fmt.Errorf("failed to query collection contents: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	g.Contents = make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan collection media: %w", err)
		}
		g.Contents = append(g.Contents, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating collection contents: %w", err)
	}

	memberRows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM collection_members WHERE collection_id = ? ORDER BY rowid ASC", g.ID)
	if err != nil {
		return fmt.Errorf("failed to query collection members: %w", err)
	}
	defer memberRows.Close() //nolint:errcheck

	g.Members = make([]int64, 0)
	for memberRows.Next() {
		var id int64
		if err := memberRows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan collection member: %w", err)
		}
		g.Members = append(g.Members, id)
	}
	if err := memberRows.Err(); err != nil {
		return fmt.Errorf("error iterating collection members: %w", err)
	}
	return nil
}
