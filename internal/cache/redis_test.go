package cache

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/plantcare/internal/testutil"
)

func newRedisStore(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, opts...), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, WithPrefix("pc:"))

	created := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	require.NoError(t, s.Set(ctx, &Entry{Key: "guide:id:g1", Value: []byte(`{"id":"g1"}`), CreatedAt: created, TTL: 24 * time.Hour}))

	assert.True(t, mr.Exists("pc:guide:id:g1"))
	assert.Equal(t, DefaultMaxRetention, mr.TTL("pc:guide:id:g1"))

	e, err := s.Get(ctx, "guide:id:g1")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "guide:id:g1", e.Key)
	assert.JSONEq(t, `{"id":"g1"}`, string(e.Value))
	assert.True(t, created.Equal(e.CreatedAt))
	assert.Equal(t, 24*time.Hour, e.TTL)

	miss, err := s.Get(ctx, "guide:id:nope")
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestRedisStore_NoRetentionKeepsForever(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, WithMaxRetention(0))

	require.NoError(t, s.Set(ctx, &Entry{Key: "k", Value: []byte("v"), CreatedAt: time.Now(), TTL: time.Second}))
	mr.FastForward(48 * time.Hour)

	e, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, e, "stale entries survive past their TTL")
	assert.Equal(t, "v", string(e.Value))
}

func TestRedisStore_KeysAndDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t, WithPrefix("pc:"))

	for _, k := range []string{"guide:plant:p1:a", "guide:plant:p1:b", "guide:plant:p2:a"} {
		require.NoError(t, s.Set(ctx, &Entry{Key: k, Value: []byte("x"), TTL: time.Hour}))
	}

	keys, err := s.Keys(ctx, "guide:plant:p1:*")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"guide:plant:p1:a", "guide:plant:p1:b"}, keys)

	n, err := s.Delete(ctx, keys...)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Delete(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisStore_ServerDownIsAnError(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.Close()

	_, err := s.Get(context.Background(), "k")
	require.Error(t, err)
}

func TestResultCache_RedisOutage(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)
	clock := testutil.FixedClock()
	c := New(s, clock, testutil.DiscardLogger(), nil)

	c.Put(ctx, "guide:id:g1", []byte("v1"), time.Hour)
	require.True(t, mr.Exists("guide:id:g1"))

	mr.Close()

	c.Put(ctx, "guide:id:g2", []byte("v2"), time.Hour)
	e, ok := c.Get(ctx, "guide:id:g2")
	require.True(t, ok)
	assert.Equal(t, "v2", string(e.Value))
}

func TestDialRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := DialRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	_ = client.Close()

	_, err = DialRedis(context.Background(), "not-a-url")
	require.Error(t, err)
}
