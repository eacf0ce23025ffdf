// Package cacheentries persists result cache entries in the client's SQLite
// database so cached guides and identifications outlive a single command.
package cacheentries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/cache"
	"github.com/dmitrijs2005/plantcare/internal/dbx"
)

var _ cache.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) (*cache.Entry, error) {
	var (
		e         = cache.Entry{Key: key}
		createdAt string
		ttl       int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT value, created_at, ttl_ns FROM cache_entries WHERE key = ?`, key).Scan(&e.Value, &createdAt, &ttl)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry %s: %w", key, err)
	}

	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("cache entry %s has a bad timestamp: %w", key, err)
	}
	e.TTL = time.Duration(ttl)
	return &e, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, e *cache.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, created_at, ttl_ns) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at, ttl_ns = excluded.ttl_ns
	`, e.Key, e.Value, e.CreatedAt.UTC().Format(time.RFC3339Nano), int64(e.TTL))
	if err != nil {
		return fmt.Errorf("failed to set cache entry %s: %w", e.Key, err)
	}
	return nil
}

// Keys uses SQLite's GLOB, which shares '*' and '?' with the cache's
// pattern syntax.
func (r *SQLiteRepository) Keys(ctx context.Context, pattern string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key FROM cache_entries WHERE key GLOB ? ORDER BY key`, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *SQLiteRepository) Delete(ctx context.Context, keys ...string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")

	res, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}
