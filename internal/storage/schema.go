// Package storage handles all database operations for the Backlog service.
package storage

import (
	"database/sql"
	"fmt"
)

// InitSchema creates all required tables and indexes.
// This is idempotent - safe to call multiple times.
func InitSchema(db *sql.DB) error {
	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	ddlStatements := []string{
		// users table: identity, credential hash, and account flags
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			name_first TEXT NOT NULL,
			name_last TEXT NOT NULL,
			name_middle TEXT NOT NULL DEFAULT '',
			name_title TEXT NOT NULL DEFAULT '',
			name_suffix TEXT NOT NULL DEFAULT '',
			verified INTEGER NOT NULL DEFAULT 0,
			admin INTEGER NOT NULL DEFAULT 0,
			paid INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// Index on email for login lookups
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,

		// tokens table: the append-only per-user token list. Entries are
		// never deleted, only flagged invalidated.
		`CREATE TABLE IF NOT EXISTS tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			secret TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			invalidated INTEGER NOT NULL DEFAULT 0,
			invalidated_at TIMESTAMP,
			expires_at TIMESTAMP NOT NULL,
			fp_user_agent TEXT,
			fp_ip TEXT,
			fp_issued_at TIMESTAMP,
			scope TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Index on secret for verification; this is the hot-path lookup
		`CREATE INDEX IF NOT EXISTS idx_tokens_secret ON tokens(secret)`,

		// Index on user_id for listing a user's tokens
		`CREATE INDEX IF NOT EXISTS idx_tokens_user ON tokens(user_id)`,

		// media table: the media catalog
		`CREATE TABLE IF NOT EXISTS media (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			kind TEXT NOT NULL,
			uri TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// media_grants table: direct per-user media grants (set semantics)
		`CREATE TABLE IF NOT EXISTS media_grants (
			user_id INTEGER NOT NULL,
			media_id TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, media_id),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// collections table: named media groups
		`CREATE TABLE IF NOT EXISTS collections (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// collection_media table: collection contents (set semantics)
		`CREATE TABLE IF NOT EXISTS collection_media (
			collection_id TEXT NOT NULL,
			media_id TEXT NOT NULL,
			PRIMARY KEY (collection_id, media_id),
			FOREIGN KEY (collection_id) REFERENCES collections(id) ON DELETE CASCADE
		)`,

		// collection_members table: user membership (set semantics)
		`CREATE TABLE IF NOT EXISTS collection_members (
			collection_id TEXT NOT NULL,
			user_id INTEGER NOT NULL,
			PRIMARY KEY (collection_id, user_id),
			FOREIGN KEY (collection_id) REFERENCES collections(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Index on user_id for resolving a user's collections
		`CREATE INDEX IF NOT EXISTS idx_collection_members_user ON collection_members(user_id)`,
	}

	for _, stmt := range ddlStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute DDL: %w", err)
		}
	}

	return nil
}

// MigrateSchema checks current schema version and applies migrations.
// There is only one schema version so far; future versions will add
// version tracking and incremental migrations here.
func MigrateSchema(db *sql.DB) error {
	return InitSchema(db)
}
