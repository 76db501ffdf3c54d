// Package db provides PostgreSQL storage for the flair update audit ledger.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS flair_updates (
	id           UUID PRIMARY KEY,
	subreddit    TEXT NOT NULL,
	comment_id   TEXT NOT NULL,
	author       TEXT NOT NULL,
	target_user  TEXT NOT NULL,
	emails       INTEGER NOT NULL,
	letters      INTEGER NOT NULL,
	outcome      TEXT NOT NULL,
	old_flair    TEXT NOT NULL DEFAULT '',
	new_flair    TEXT NOT NULL DEFAULT '',
	template_id  TEXT NOT NULL DEFAULT '',
	error        TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS flair_updates_target_idx
	ON flair_updates (subreddit, lower(target_user), created_at DESC);
`

// EnsureSchema creates the ledger table if it does not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
