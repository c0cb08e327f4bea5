package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ordview/ordview/common/db"
)

const createContentCacheTable = `
	CREATE TABLE IF NOT EXISTS content_cache (
		content_id   TEXT PRIMARY KEY,
		content      TEXT NOT NULL,
		content_type TEXT NOT NULL,
		size_bytes   BIGINT NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

const createContentCacheIndex = `
	CREATE INDEX IF NOT EXISTS content_cache_updated_at_idx ON content_cache (updated_at)
`

// PostgresStore persists entries in the content_cache table
type PostgresStore struct {
	db *db.DB
}

// NewPostgresStore creates a Postgres-backed store
func NewPostgresStore(database *db.DB) *PostgresStore {
	return &PostgresStore{db: database}
}

// EnsureSchema creates the content_cache table if needed
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return s.db.Migrate(ctx, "content_cache", createContentCacheTable, createContentCacheIndex)
}

// Get reads an entry
func (s *PostgresStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	query := `SELECT content, content_type FROM content_cache WHERE content_id = $1`

	var entry Entry
	err := s.db.QueryRow(ctx, query, key).Scan(&entry.Content, &entry.ContentType)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to get cached content: %w", err)
	}

	return entry, true, nil
}

// Set upserts an entry
func (s *PostgresStore) Set(ctx context.Context, key string, entry Entry) error {
	query := `
		INSERT INTO content_cache (content_id, content, content_type, size_bytes, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (content_id) DO UPDATE
		SET content = EXCLUDED.content,
		    content_type = EXCLUDED.content_type,
		    size_bytes = EXCLUDED.size_bytes,
		    updated_at = EXCLUDED.updated_at
	`

	if _, err := s.db.Exec(ctx, query, key, entry.Content, entry.ContentType, entry.Size()); err != nil {
		return fmt.Errorf("failed to store cached content: %w", err)
	}
	return nil
}

// Delete removes an entry
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM content_cache WHERE content_id = $1`, key); err != nil {
		return fmt.Errorf("failed to delete cached content: %w", err)
	}
	return nil
}

// DeleteOlderThan removes entries not written since cutoff and returns how many
func (s *PostgresStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM content_cache WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune cached content: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close is a no-op; the pool is closed by bootstrap
func (s *PostgresStore) Close() error {
	return nil
}
