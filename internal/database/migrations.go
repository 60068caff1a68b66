package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/001_init_schema.sql
var migrationSQL string

//go:embed migrations/sqlite_schema.sql
var sqliteSchemaSQL string

// RunMigrations runs Postgres migrations on startup
func RunMigrations(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("Running database migrations...")

	var exists bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'kv_store'
		)
	`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if migrations needed: %w", err)
	}

	if exists {
		log.Println("[OK] Database already migrated, skipping...")
		return nil
	}

	if _, err := db.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("[OK] Database migrations completed successfully")
	return nil
}

// RunSQLiteMigrations creates the local store schema. Safe to call repeatedly.
func RunSQLiteMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, sqliteSchemaSQL); err != nil {
		return fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	return nil
}
