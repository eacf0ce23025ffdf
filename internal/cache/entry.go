// Package cache implements the TTL result cache used by both the server and
// the offline-first client.
//
// Entries are never removed on read: an expired entry stays available as a
// stale value so callers can serve it when the remote is unreachable.
// Physical removal happens only through Invalidate and CleanupExpired.
package cache

import (
	"context"
	"time"
)

// Entry is a cached value with its write time and freshness window.
type Entry struct {
	Key       string
	Value     []byte
	CreatedAt time.Time
	TTL       time.Duration
}

// Fresh reports whether the entry is younger than its TTL at now.
func (e *Entry) Fresh(now time.Time) bool {
	return now.Sub(e.CreatedAt) < e.TTL
}

func (e *Entry) Stale(now time.Time) bool {
	return !e.Fresh(now)
}

// Store is a key/value backend for entries. Get returns (nil, nil) on a
// miss; errors mean the backend itself failed.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, e *Entry) error
	// Keys lists keys matching a glob pattern where '*' matches any run of
	// characters and '?' a single one.
	Keys(ctx context.Context, pattern string) ([]string, error)
	Delete(ctx context.Context, keys ...string) (int, error)
}
