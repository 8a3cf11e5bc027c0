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

type cachedPost struct {
	ID     uint   `json:"id"`
	Titulo string `json:"titulo"`
}

func setupCache(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestGetSetJSON(t *testing.T) {
	mr := setupCache(t)
	ctx := context.Background()

	var out cachedPost
	found, err := GetJSON(ctx, PostKey(1), &out)
	require.NoError(t, err)
	assert.False(t, found)

	in := cachedPost{ID: 1, Titulo: "Lampara vintage"}
	require.NoError(t, SetJSON(ctx, PostKey(1), in, PostTTL))

	found, err = GetJSON(ctx, PostKey(1), &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, out)

	// The entry expires with its TTL.
	mr.FastForward(PostTTL + time.Second)
	found, err = GetJSON(ctx, PostKey(1), &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheAside(t *testing.T) {
	setupCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedPost) func() error {
		return func() error {
			calls++
			*dest = cachedPost{ID: 7, Titulo: "Sofa de dos plazas"}
			return nil
		}
	}

	var first cachedPost
	require.NoError(t, CacheAside(ctx, PostKey(7), &first, PostTTL, fetch(&first)))
	assert.Equal(t, uint(7), first.ID)
	assert.Equal(t, 1, calls)

	// Second read is served from the cache.
	var second cachedPost
	require.NoError(t, CacheAside(ctx, PostKey(7), &second, PostTTL, fetch(&second)))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	// Invalidation forces the next read back to the source.
	InvalidatePost(ctx, 7)
	var third cachedPost
	require.NoError(t, CacheAside(ctx, PostKey(7), &third, PostTTL, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestCacheAsideWithoutRedis(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	calls := 0
	var out cachedPost
	err := CacheAside(ctx, PostKey(3), &out, PostTTL, func() error {
		calls++
		out = cachedPost{ID: 3, Titulo: "Silla plegable"}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint(3), out.ID)
}
