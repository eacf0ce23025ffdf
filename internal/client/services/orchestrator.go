// Package services holds the client's application services: the
// offline-aware orchestrator and the guide, identification, collection and
// sync services built on it.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/cache"
	"github.com/dmitrijs2005/plantcare/internal/client/client"
	"github.com/dmitrijs2005/plantcare/internal/logging"
)

// ErrOffline is matched by every *OfflineError.
var ErrOffline = errors.New("offline and no cached data")

// OfflineError is returned when the server is unreachable and nothing is
// cached for Key.
type OfflineError struct {
	Key string
	// Err is the transport failure that revealed the outage, if any.
	Err error
}

func (e *OfflineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("offline, no cached data for %s: %v", e.Key, e.Err)
	}
	return "offline, no cached data for " + e.Key
}

func (e *OfflineError) Is(target error) bool {
	return target == ErrOffline
}

func (e *OfflineError) Unwrap() error {
	return e.Err
}

// Cache is the part of cache.ResultCache the orchestrator needs.
type Cache interface {
	Get(ctx context.Context, key string) (*cache.Entry, bool)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration)
	Now() time.Time
}

// Connectivity reports the server's reachability. Anything other than a
// confirmed online state counts as offline.
type Connectivity interface {
	IsOnline() bool
	MarkOffline()
}

// Result is a resolved value and where it came from.
type Result[T any] struct {
	Value     T
	FromCache bool
	IsOffline bool
	IsStale   bool
	// CachedAt is the write time of the cached entry served, if any.
	CachedAt time.Time
}

type Orchestrator struct {
	cache Cache
	conn  Connectivity
	log   logging.Logger
}

func NewOrchestrator(c Cache, conn Connectivity, logger logging.Logger) *Orchestrator {
	return &Orchestrator{cache: c, conn: conn, log: logger.With("module", "orchestrator")}
}

// Resolve returns the value for key: a fresh cache entry directly; else,
// when online, the result of fetch written through to the cache; else the
// stale entry flagged as offline, or an *OfflineError.
//
// If ctx ends while fetch runs nothing is cached and ctx.Err() is returned.
func Resolve[T any](ctx context.Context, o *Orchestrator, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (*Result[T], error) {
	var (
		cached    T
		entry     *cache.Entry
		haveEntry bool
	)
	if e, ok := o.cache.Get(ctx, key); ok {
		if err := json.Unmarshal(e.Value, &cached); err != nil {
			o.log.Warn(ctx, "ignoring undecodable cache entry", "key", key, "error", err)
		} else {
			entry, haveEntry = e, true
		}
	}

	if haveEntry && entry.Fresh(o.cache.Now()) {
		return &Result[T]{Value: cached, FromCache: true, CachedAt: entry.CreatedAt}, nil
	}

	offline := func(cause error) (*Result[T], error) {
		if !haveEntry {
			return nil, &OfflineError{Key: key, Err: cause}
		}
		o.log.Debug(ctx, "serving stale entry offline", "key", key, "cached_at", entry.CreatedAt)
		return &Result[T]{
			Value:     cached,
			FromCache: true,
			IsOffline: true,
			IsStale:   entry.Stale(o.cache.Now()),
			CachedAt:  entry.CreatedAt,
		}, nil
	}

	if !o.conn.IsOnline() {
		return offline(nil)
	}

	v, err := fetch(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			o.conn.MarkOffline()
			return offline(err)
		}
		return nil, err
	}

	b, err := json.Marshal(v)
	if err != nil {
		o.log.Warn(ctx, "result not cached", "key", key, "error", err)
	} else {
		o.cache.Put(ctx, key, b, ttl)
	}
	return &Result[T]{Value: v}, nil
}
