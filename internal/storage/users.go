package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// violation (extended error code 2067, base constraint code 19).
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code() == 2067 || (sqliteErr.Code()&0xFF) == sqlite3.SQLITE_CONSTRAINT {
			return true
		}
	}
	return false
}

// CreateUser inserts a new user record and returns its ID.
// Returns ErrDuplicate if a user with this email already exists.
func (s *SQLiteStorage) CreateUser(ctx context.Context, u *User) (int64, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, name_first, name_last, name_middle, name_title, name_suffix,
			verified, admin, paid, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Email, u.PasswordHash, u.Name.First, u.Name.Last, u.Name.Middle, u.Name.Title, u.Name.Suffix,
		u.Flags.Verified, u.Flags.Admin, u.Flags.Paid, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert ID: %w", err)
	}

	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	return id, nil
}

// userColumns is the select list shared by all user queries.
const userColumns = `u.id, u.email, u.password_hash, u.name_first, u.name_last, u.name_middle,
	u.name_title, u.name_suffix, u.verified, u.admin, u.paid, u.created_at, u.updated_at`

// scanUser scans one user row into a User value.
func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name.First, &u.Name.Last, &u.Name.Middle,
		&u.Name.Title, &u.Name.Suffix, &u.Flags.Verified, &u.Flags.Admin, &u.Flags.Paid,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail fetches a user by email, including permission grants.
// Returns ErrNotFound if no user matches.
func (s *SQLiteStorage) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users u WHERE u.email = ?", email)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if err := s.loadGrants(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdatePasswordHash overwrites the stored password hash for a user.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStorage) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
		hash, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
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

// SetVerified marks a user account as email-verified.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStorage) SetVerified(ctx context.Context, userID int64) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET verified = 1, updated_at = ? WHERE id = ?",
		time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to set verified flag: %w", err)
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

// loadGrants populates the Media and Collections sets of a user.
// Rows are returned in insertion order so permission scans are
// deterministic.
func (s *SQLiteStorage) loadGrants(ctx context.Context, u *User) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT media_id FROM media_grants WHERE user_id = ? ORDER BY rowid ASC", u.ID)
	if err != nil {
		return fmt.Errorf("failed to query media grants: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	u.Media = make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan media grant: %w", err)
		}
		u.Media = append(u.Media, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating media grants: %w", err)
	}

	collections, err := s.ListUserCollections(ctx, u.ID)
	if err != nil {
		return err
	}
	u.Collections = collections
	return nil
}
