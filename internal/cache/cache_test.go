package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	a := Key("graph", "Model", "abort")
	assert.Len(t, a, 64)
	assert.Equal(t, a, Key("graph", "Model", "abort"))
	assert.NotEqual(t, a, Key("graph", "Model", "skip"))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
}

func TestIsCacheMiss(t *testing.T) {
	assert.True(t, IsCacheMiss(ErrCacheMiss{Key: "k"}))
	assert.False(t, IsCacheMiss(context.Canceled))
	assert.Equal(t, "cache miss: k", ErrCacheMiss{Key: "k"}.Error())
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(DefaultConfig())
	defer c.Close()

	_, err := c.Get(ctx, "missing")
	assert.True(t, IsCacheMiss(err))

	value := []byte("class Model(nn.Cell):")
	require.NoError(t, c.Set(ctx, "k", value, 0))
	value[0] = 'X'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "class Model(nn.Cell):", string(got))

	got[0] = 'X'
	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "class Model(nn.Cell):", string(again))
}

func TestMemoryCache_Expiration(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(DefaultConfig())
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "k")
	assert.True(t, IsCacheMiss(err))
}

func TestMemoryCache_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewMemoryCache(DefaultConfig())
	assert.ErrorIs(t, c.Set(ctx, "k", []byte("v"), 0), context.Canceled)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheWithClient(client, DefaultConfig())
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestRedisCache_SetAndGet(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "digest", []byte("source"), 0))

	got, err := c.Get(ctx, "digest")
	require.NoError(t, err)
	assert.Equal(t, []byte("source"), got)

	assert.True(t, mr.Exists("opconvert:digest"))
	assert.Equal(t, 24*time.Hour, mr.TTL("opconvert:digest"))
}

func TestRedisCache_Miss(t *testing.T) {
	c, _ := setupTestRedis(t)

	_, err := c.Get(context.Background(), "absent")
	assert.True(t, IsCacheMiss(err))
}

func TestRedisCache_Expiration(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	_, err := c.Get(ctx, "k")
	assert.True(t, IsCacheMiss(err))
}

func TestNewRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	c, err := NewRedisCache(context.Background(), mr.Addr(), DefaultConfig())
	require.NoError(t, err)
	assert.NoError(t, c.Close())

	_, err = NewRedisCache(context.Background(), "localhost:99999", DefaultConfig())
	assert.Error(t, err)
}
