package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultMaxRetention bounds how long Redis keeps an entry after its write,
// well past its TTL, so offline clients can still be served stale data.
const DefaultMaxRetention = 7 * 24 * time.Hour

type envelope struct {
	Value      []byte    `json:"value"`
	CreatedAt  time.Time `json:"created_at"`
	TTLSeconds float64   `json:"ttl_seconds"`
}

// RedisStore persists entries as JSON envelopes under a key prefix. The
// freshness TTL lives inside the envelope; the Redis expiry is only the
// retention bound.
type RedisStore struct {
	client       redis.UniversalClient
	prefix       string
	maxRetention time.Duration
}

type RedisOption func(*RedisStore)

// WithPrefix namespaces every key, e.g. "plantcare:".
func WithPrefix(p string) RedisOption {
	return func(s *RedisStore) { s.prefix = p }
}

// WithMaxRetention sets the physical lifetime of entries. Zero keeps them
// until deleted.
func WithMaxRetention(d time.Duration) RedisOption {
	return func(s *RedisStore) { s.maxRetention = d }
}

func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, maxRetention: DefaultMaxRetention}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DialRedis parses a redis:// URL, connects and pings with a 5s timeout.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("redis decode %s: %w", key, err)
	}
	return &Entry{
		Key:       key,
		Value:     env.Value,
		CreatedAt: env.CreatedAt,
		TTL:       time.Duration(env.TTLSeconds * float64(time.Second)),
	}, nil
}

func (s *RedisStore) Set(ctx context.Context, e *Entry) error {
	raw, err := json.Marshal(envelope{Value: e.Value, CreatedAt: e.CreatedAt, TTLSeconds: e.TTL.Seconds()})
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", e.Key, err)
	}
	if err := s.client.Set(ctx, s.prefix+e.Key, raw, s.maxRetention).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", e.Key, err)
	}
	return nil
}

func (s *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, s.prefix+pattern, 200).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		for _, k := range batch {
			keys = append(keys, k[len(s.prefix):])
		}
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	n, err := s.client.Del(ctx, full...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis del: %w", err)
	}
	return int(n), nil
}
