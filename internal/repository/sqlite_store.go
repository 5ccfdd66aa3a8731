package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	cerrors "quickbasket/pkg/errors"
)

// SQLiteStore implements Store on a single key-value table
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the store and its table if missing
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS kv_store (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to migrate kv_store: %w", err)
	}
	return nil
}

// Get returns the value under key
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, mapSQLiteError(err)
	}
	return value, true, nil
}

// Set upserts value under key
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return mapSQLiteError(err)
	}
	return nil
}

// Delete removes key
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return mapSQLiteError(err)
	}
	return nil
}

// Ping verifies the database responds
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", cerrors.ErrStorageUnavailable, err)
	}
	return nil
}

func mapSQLiteError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "database or disk is full"), strings.Contains(msg, "string or blob too big"):
		return fmt.Errorf("%w: %v", cerrors.ErrStorageQuotaExceeded, err)
	case errors.Is(err, sql.ErrConnDone), strings.Contains(msg, "database is closed"):
		return fmt.Errorf("%w: %v", cerrors.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("sqlite store error: %w", err)
}
