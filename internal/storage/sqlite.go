package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteStorage implements the persistence interfaces using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLiteStorage instance.
func NewSQLiteStorage(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

// Open opens (or creates) the SQLite database at path, applies the
// schema, and returns a ready storage instance.
func Open(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite handles one writer at a time; serialize access through a
	// single connection to avoid SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := MigrateSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
