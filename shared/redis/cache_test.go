package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testView struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
}

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestViewCacheSetGetDelete(t *testing.T) {
	_, client := newTestClient(t)
	cache := NewViewCache[testView](client, 0, zap.NewNop())
	ctx := context.Background()

	_, ok := cache.Get(ctx, "view:1")
	assert.False(t, ok)

	cache.Set(ctx, "view:1", &testView{ID: "1", Owner: "usr-1"})
	got, ok := cache.Get(ctx, "view:1")
	require.True(t, ok)
	assert.Equal(t, "usr-1", got.Owner)

	cache.Delete(ctx, "view:1")
	_, ok = cache.Get(ctx, "view:1")
	assert.False(t, ok)
}

func TestViewCacheTTL(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewViewCache[testView](client, time.Minute, zap.NewNop())
	ctx := context.Background()

	cache.Set(ctx, "view:ttl", &testView{ID: "ttl"})
	assert.Equal(t, time.Minute, mr.TTL("view:ttl"))

	mr.FastForward(2 * time.Minute)
	_, ok := cache.Get(ctx, "view:ttl")
	assert.False(t, ok)
}

func TestViewCacheCorruptEntryIsMiss(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewViewCache[testView](client, 0, zap.NewNop())

	require.NoError(t, mr.Set("view:bad", "{not json"))
	_, ok := cache.Get(context.Background(), "view:bad")
	assert.False(t, ok)
}

func TestViewCacheWithoutClient(t *testing.T) {
	cache := NewViewCache[testView](nil, 0, nil)
	ctx := context.Background()

	assert.False(t, cache.Enabled())
	cache.Set(ctx, "k", &testView{ID: "k"})
	cache.Delete(ctx, "k")
	_, ok := cache.Get(ctx, "k")
	assert.False(t, ok)
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	mr.Close()
	_, err = NewClient(context.Background(), mr.Addr(), "", 0)
	assert.Error(t, err)
}
