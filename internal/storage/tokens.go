package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AppendToken appends a token to a user's token list.
// Returns ErrDuplicate if a token with this secret already exists
// (the secret is unique across all users and all time).
func (s *SQLiteStorage) AppendToken(ctx context.Context, userID int64, t *Token) (int64, error) {
	now := time.Now().UTC()

	var fpUA, fpIP sql.NullString
	var fpAt sql.NullTime
	if t.Fingerprint != nil {
		fpUA = sql.NullString{String: t.Fingerprint.UserAgent, Valid: true}
		fpIP = sql.NullString{String: t.Fingerprint.IP, Valid: true}
		fpAt = sql.NullTime{Time: t.Fingerprint.IssuedAt.UTC(), Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tokens (user_id, secret, type, invalidated, expires_at,
			fp_user_agent, fp_ip, fp_issued_at, scope, created_at)
		 VALUES (?, ?, ?, 0, ?, ?, ?, ?, ?, ?)`,
		userID, t.Secret, t.Type, t.Expires.UTC(), fpUA, fpIP, fpAt, t.Scope, now)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("failed to append token: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert ID: %w", err)
	}

	t.ID = id
	t.UserID = userID
	t.CreatedAt = now
	return id, nil
}

// TokenQuery describes a token lookup. Secret is required; Type and
// Scope narrow the match when non-empty. Now is the instant expiry is
// evaluated against.
type TokenQuery struct {
	Secret string
	Type   string
	Scope  string
	Now    time.Time
}

// FindUserByToken looks up the user owning a currently valid token
// matching the query: secret match, not invalidated, not expired, and
// (when set) exact type and scope match. Identity comes solely from the
// storage match, never from the secret's shape.
//
// Returns ErrNotFound when no valid token matches; this covers unknown,
// invalidated, and expired secrets alike.
func (s *SQLiteStorage) FindUserByToken(ctx context.Context, q TokenQuery) (*User, *Token, error) {
	query := `SELECT ` + userColumns + `, t.id, t.secret, t.type, t.invalidated, t.invalidated_at,
		t.expires_at, t.fp_user_agent, t.fp_ip, t.fp_issued_at, t.scope, t.created_at
		FROM tokens t JOIN users u ON u.id = t.user_id
		WHERE t.secret = ? AND t.invalidated = 0 AND t.expires_at >= ?`
	args := []any{q.Secret, q.Now.UTC()}

	if q.Type != "" {
		query += " AND t.type = ?"
		args = append(args, q.Type)
	}
	if q.Scope != "" {
		query += " AND t.scope = ?"
		args = append(args, q.Scope)
	}

	row := s.db.QueryRowContext(ctx, query, args...)

	var u User
	var t Token
	var invalidatedAt, fpAt sql.NullTime
	var fpUA, fpIP sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name.First, &u.Name.Last, &u.Name.Middle,
		&u.Name.Title, &u.Name.Suffix, &u.Flags.Verified, &u.Flags.Admin, &u.Flags.Paid,
		&u.CreatedAt, &u.UpdatedAt,
		&t.ID, &t.Secret, &t.Type, &t.Invalidated, &invalidatedAt,
		&t.Expires, &fpUA, &fpIP, &fpAt, &t.Scope, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to find user by token: %w", err)
	}

	t.UserID = u.ID
	if invalidatedAt.Valid {
		at := invalidatedAt.Time
		t.InvalidatedAt = &at
	}
	if fpUA.Valid || fpIP.Valid || fpAt.Valid {
		t.Fingerprint = &Fingerprint{UserAgent: fpUA.String, IP: fpIP.String, IssuedAt: fpAt.Time}
	}

	if err := s.loadGrants(ctx, &u); err != nil {
		return nil, nil, err
	}
	return &u, &t, nil
}

// InvalidateToken flips a token's invalidated flag in a single atomic
// conditional update: only the row matching the secret that is still
// valid is touched. A read-then-write sequence here would race with a
// concurrent verify or invalidate on the same secret.
//
// Returns true if a token was invalidated, false if the secret was
// unknown, already invalidated, or expired (an idempotent no-op, not an
// error).
func (s *SQLiteStorage) InvalidateToken(ctx context.Context, secret string, now time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tokens SET invalidated = 1, invalidated_at = ?
		 WHERE secret = ? AND invalidated = 0 AND expires_at >= ?`,
		now.UTC(), secret, now.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to invalidate token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// CheckContentToken reports whether a valid content-access token exists
// binding this secret to exactly this asset. This is the proxy-facing
// hot path: a single indexed lookup, no joins, no permission
// resolution.
func (s *SQLiteStorage) CheckContentToken(ctx context.Context, secret, assetID string, now time.Time) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM tokens
		 WHERE secret = ? AND invalidated = 0 AND expires_at >= ? AND type = ? AND scope = ?`,
		secret, now.UTC(), TokenTypeContentAccess, assetID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check content token: %w", err)
	}
	return true, nil
}

// ListUserTokens returns every token ever issued to a user, newest
// first. The list is the durable audit trail; invalidated and expired
// entries are included.
func (s *SQLiteStorage) ListUserTokens(ctx context.Context, userID int64) ([]*Token, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, secret, type, invalidated, invalidated_at, expires_at,
			fp_user_agent, fp_ip, fp_issued_at, scope, created_at
		 FROM tokens WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var tokens []*Token
	for rows.Next() {
		var t Token
		var invalidatedAt, fpAt sql.NullTime
		var fpUA, fpIP sql.NullString
		err := rows.Scan(&t.ID, &t.Secret, &t.Type, &t.Invalidated, &invalidatedAt, &t.Expires,
			&fpUA, &fpIP, &fpAt, &t.Scope, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token row: %w", err)
		}
		t.UserID = userID
		if invalidatedAt.Valid {
			at := invalidatedAt.Time
			t.InvalidatedAt = &at
		}
		if fpUA.Valid || fpIP.Valid || fpAt.Valid {
			t.Fingerprint = &Fingerprint{UserAgent: fpUA.String, IP: fpIP.String, IssuedAt: fpAt.Time}
		}
		tokens = append(tokens, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tokens: %w", err)
	}

	if tokens == nil {
		tokens = make([]*Token, 0)
	}
	return tokens, nil
}
