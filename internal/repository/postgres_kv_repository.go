package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"libraquant/internal/domain"
)

// PostgresKVRepository stores terminal state in a shared kv_store table.
// Several terminal processes pointed at the same database behave like
// browser tabs of one origin.
type PostgresKVRepository struct {
	db *pgxpool.Pool
}

// NewPostgresKVRepository creates a new repository instance
func NewPostgresKVRepository(db *pgxpool.Pool) domain.KVRepository {
	return &PostgresKVRepository{db: db}
}

// Get retrieves a value by key
func (r *PostgresKVRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(ctx, `
		SELECT value
		FROM kv_store
		WHERE key = $1
	`, key).Scan(&value)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	return value, true, nil
}

// Set updates or creates a key
func (r *PostgresKVRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)

	if err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}

	return nil
}

// SetIfAbsent inserts key only if no row exists yet
func (r *PostgresKVRepository) SetIfAbsent(ctx context.Context, key, value string) (string, bool, error) {
	cmdTag, err := r.db.Exec(ctx, `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO NOTHING
	`, key, value)
	if err != nil {
		return "", false, fmt.Errorf("failed to claim key %s: %w", key, err)
	}

	if cmdTag.RowsAffected() == 1 {
		return value, true, nil
	}

	existing, _, err := r.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	return existing, false, nil
}

// Delete removes a key
func (r *PostgresKVRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}
