package whoop

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetOrFetch_Idempotent(t *testing.T) {
	cache := NewCache(10)
	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return "value", nil
	}

	for range 3 {
		got, err := cache.GetOrFetch(context.Background(), "key", time.Minute, fetch)
		require.NoError(t, err)
		assert.Equal(t, "value", got)
	}

	assert.Equal(t, 1, calls, "identical keys within TTL must invoke fetch exactly once")
}

func TestCache_GetOrFetch_ExpiredEntryRefetches(t *testing.T) {
	cache := NewCache(10)
	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	got, err := cache.GetOrFetch(context.Background(), "key", time.Nanosecond, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	time.Sleep(2 * time.Millisecond)

	got, err = cache.GetOrFetch(context.Background(), "key", time.Nanosecond, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
	assert.Equal(t, 2, calls)
}

func TestCache_GetOrFetch_ErrorNotCached(t *testing.T) {
	cache := NewCache(10)
	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("boom")
		}
		return "ok", nil
	}

	_, err := cache.GetOrFetch(context.Background(), "key", time.Minute, fetch)
	assert.Error(t, err)
	assert.Equal(t, 0, cache.Len(), "a failed fetch must not leave a partial entry")

	got, err := cache.GetOrFetch(context.Background(), "key", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestCache_EvictsOldestAtCapacity(t *testing.T) {
	cache := NewCache(3)

	for i := range 4 {
		key := fmt.Sprintf("key-%d", i)
		_, err := cache.GetOrFetch(context.Background(), key, time.Minute, func(ctx context.Context) (any, error) {
			return i, nil
		})
		require.NoError(t, err)
		time.Sleep(time.Millisecond) // distinct fetch times
	}

	assert.Equal(t, 3, cache.Len())

	// key-0 was the oldest and must be gone: fetching it again calls fetch
	calls := 0
	_, err := cache.GetOrFetch(context.Background(), "key-0", time.Minute, func(ctx context.Context) (any, error) {
		calls++
		return 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestCache_Invalidate(t *testing.T) {
	cache := NewCache(10)
	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	_, err := cache.GetOrFetch(context.Background(), "key", time.Minute, fetch)
	require.NoError(t, err)

	cache.Invalidate("key")

	got, err := cache.GetOrFetch(context.Background(), "key", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestCacheKey_NormalizesParamOrder(t *testing.T) {
	a := url.Values{}
	a.Set("limit", "7")
	a.Set("nextToken", "abc")

	b := url.Values{}
	b.Set("nextToken", "abc")
	b.Set("limit", "7")

	assert.Equal(t, CacheKey("/v2/recovery", a), CacheKey("/v2/recovery", b))
	assert.NotEqual(t, CacheKey("/v2/recovery", a), CacheKey("/v2/cycle", a))
	assert.Equal(t, "/v2/cycle", CacheKey("/v2/cycle", nil))
}
