package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// GetJSON decodes the entry for key into a T. An entry that no longer
// decodes is reported as a miss.
func GetJSON[T any](ctx context.Context, c *ResultCache, key string) (T, *Entry, bool) {
	var v T
	e, ok := c.Get(ctx, key)
	if !ok {
		return v, nil, false
	}
	if err := json.Unmarshal(e.Value, &v); err != nil {
		c.log.Warn(ctx, "undecodable cache entry", "key", key, "error", err)
		return v, nil, false
	}
	return v, e, true
}

// PutJSON encodes v and stores it under key.
func PutJSON[T any](ctx context.Context, c *ResultCache, key string, v T, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache value %s: %w", key, err)
	}
	c.Put(ctx, key, b, ttl)
	return nil
}
