package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/logging"
	"github.com/dmitrijs2005/plantcare/internal/timex"
)

// DefaultRetryInterval is how long a failed primary store is bypassed
// before it is tried again.
const DefaultRetryInterval = 30 * time.Second

// ResultCache is a TTL cache over an optional primary Store (Redis) with an
// in-memory fallback. Store failures are logged and absorbed: callers only
// ever see hits and misses.
type ResultCache struct {
	primary Store
	memory  *MemoryStore
	clock   timex.Clock
	log     logging.Logger
	metrics *Metrics

	retryInterval time.Duration

	mu        sync.Mutex
	downUntil time.Time
}

type Option func(*ResultCache)

func WithRetryInterval(d time.Duration) Option {
	return func(c *ResultCache) { c.retryInterval = d }
}

// New builds a cache. primary may be nil, in which case everything lives in
// memory. metrics may be nil.
func New(primary Store, clock timex.Clock, logger logging.Logger, metrics *Metrics, opts ...Option) *ResultCache {
	c := &ResultCache{
		primary:       primary,
		memory:        NewMemoryStore(),
		clock:         clock,
		log:           logger.With("module", "cache"),
		metrics:       metrics,
		retryInterval: DefaultRetryInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now is the cache's notion of the current time.
func (c *ResultCache) Now() time.Time {
	return c.clock.Now()
}

// Get returns the entry for key whether fresh or stale. It never deletes.
func (c *ResultCache) Get(ctx context.Context, key string) (*Entry, bool) {
	e := c.get(ctx, key)

	switch {
	case e == nil:
		c.metrics.lookup("miss")
		return nil, false
	case e.Fresh(c.clock.Now()):
		c.metrics.lookup("fresh")
	default:
		c.metrics.lookup("stale")
	}
	return e, true
}

func (c *ResultCache) get(ctx context.Context, key string) *Entry {
	if c.primaryUp() {
		e, err := c.primary.Get(ctx, key)
		if err == nil && e != nil {
			return e
		}
		if err != nil {
			c.primaryFailed(ctx, "get", key, err)
		}
	}
	// Entries written during a primary outage live here.
	e, _ := c.memory.Get(ctx, key)
	return e
}

// Put stores value under key with the given TTL, replacing any entry.
func (c *ResultCache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) {
	e := &Entry{Key: key, Value: value, CreatedAt: c.clock.Now(), TTL: ttl}

	if c.primaryUp() {
		err := c.primary.Set(ctx, e)
		if err == nil {
			_, _ = c.memory.Delete(ctx, key)
			return
		}
		c.primaryFailed(ctx, "put", key, err)
	}
	_ = c.memory.Set(ctx, e)
}

// Invalidate deletes every key matching the glob pattern and returns how
// many distinct keys were removed.
func (c *ResultCache) Invalidate(ctx context.Context, pattern string) int {
	removed := make(map[string]struct{})

	collect := func(s Store) error {
		keys, err := s.Keys(ctx, pattern)
		if err != nil || len(keys) == 0 {
			return err
		}
		if _, err := s.Delete(ctx, keys...); err != nil {
			return err
		}
		for _, k := range keys {
			removed[k] = struct{}{}
		}
		return nil
	}

	if c.primaryUp() {
		if err := collect(c.primary); err != nil {
			c.primaryFailed(ctx, "invalidate", pattern, err)
		}
	}
	_ = collect(c.memory)

	c.metrics.evicted("invalidate", len(removed))
	if len(removed) > 0 {
		c.log.Debug(ctx, "cache invalidated", "pattern", pattern, "count", len(removed))
	}
	return len(removed)
}

// CleanupExpired removes every entry that is no longer fresh and returns
// the number removed.
func (c *ResultCache) CleanupExpired(ctx context.Context) int {
	now := c.clock.Now()
	removed := 0

	sweep := func(s Store) (int, error) {
		keys, err := s.Keys(ctx, "*")
		if err != nil {
			return 0, err
		}
		var expired []string
		for _, k := range keys {
			e, err := s.Get(ctx, k)
			if err != nil {
				return 0, err
			}
			if e != nil && e.Stale(now) {
				expired = append(expired, k)
			}
		}
		if len(expired) == 0 {
			return 0, nil
		}
		return s.Delete(ctx, expired...)
	}

	if c.primaryUp() {
		n, err := sweep(c.primary)
		if err != nil {
			c.primaryFailed(ctx, "cleanup", "*", err)
		}
		removed += n
	}
	n, _ := sweep(c.memory)
	removed += n

	c.metrics.evicted("expired", removed)
	c.log.Debug(ctx, "expired entries removed", "count", removed)
	return removed
}

func (c *ResultCache) primaryUp() bool {
	if c.primary == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.clock.Now().Before(c.downUntil)
}

func (c *ResultCache) primaryFailed(ctx context.Context, op, key string, err error) {
	// A cancelled caller says nothing about the store's health.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}

	c.mu.Lock()
	c.downUntil = c.clock.Now().Add(c.retryInterval)
	c.mu.Unlock()

	c.metrics.fallback()
	c.log.Warn(ctx, "cache primary unavailable, using memory", "op", op, "key", key, "error", err, "retry_in", c.retryInterval)
}
