package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"libraquant/internal/domain"
)

// SQLiteKVRepository keeps terminal state in a local SQLite file,
// the durable per-origin storage of a single installation
type SQLiteKVRepository struct {
	db *sql.DB
}

// NewSQLiteKVRepository creates a new repository over an open SQLite handle.
// The kv_store table must already exist (see database.RunSQLiteMigrations).
func NewSQLiteKVRepository(db *sql.DB) domain.KVRepository {
	return &SQLiteKVRepository{db: db}
}

// Get retrieves a value by key
func (r *SQLiteKVRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return value, true, nil
}

// Set updates or creates a key
func (r *SQLiteKVRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// SetIfAbsent inserts key only if no row exists yet
func (r *SQLiteKVRepository) SetIfAbsent(ctx context.Context, key, value string) (string, bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO NOTHING`,
		key, value,
	)
	if err != nil {
		return "", false, fmt.Errorf("failed to claim key %s: %w", key, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return value, true, nil
	}

	existing, _, err := r.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	return existing, false, nil
}

// Delete removes a key
func (r *SQLiteKVRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}
