package external

import (
	"context"
	"testing"
	"time"

	"citabot.app/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheProvider_ExpiresEntries(t *testing.T) {
	now := time.Date(2025, 9, 9, 8, 0, 0, 0, time.UTC)
	cache := NewMemoryCacheProvider()
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	now = now.Add(time.Minute)
	_, err = cache.Get(ctx, "k")
	assert.True(t, errors.IsNotFoundError(err))

	exists, err := cache.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, 0, cache.Len())

	stats := cache.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRatio, 1e-9)
}

func TestMemoryCacheProvider_StoresCopies(t *testing.T) {
	cache := NewMemoryCacheProvider()
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, cache.Set(ctx, "k", value, time.Minute))
	value[0] = 'z'

	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'z'
	again, _ := cache.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestMemoryCacheProvider_Validation(t *testing.T) {
	cache := NewMemoryCacheProvider()
	ctx := context.Background()

	assert.True(t, errors.IsValidationError(cache.Set(ctx, "", []byte("x"), time.Minute)))
	assert.True(t, errors.IsValidationError(cache.Set(ctx, "k", nil, time.Minute)))
	assert.True(t, errors.IsValidationError(cache.Set(ctx, "k", []byte("x"), -time.Second)))
	assert.True(t, errors.IsValidationError(cache.Delete(ctx, "")))
}

func TestMemoryCacheProvider_ClearAndSweep(t *testing.T) {
	now := time.Date(2025, 9, 9, 8, 0, 0, 0, time.UTC)
	cache := NewMemoryCacheProvider()
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", []byte("x"), time.Second))
	now = now.Add(time.Hour)
	for i := 0; i < sweepEvery; i++ {
		require.NoError(t, cache.Set(ctx, "long", []byte("y"), time.Hour))
	}

	cache.mutex.RLock()
	_, stillThere := cache.data["short"]
	cache.mutex.RUnlock()
	assert.False(t, stillThere, "expired entries are swept on write")

	require.NoError(t, cache.Clear(ctx))
	assert.Equal(t, 0, cache.Len())
}
