package external

import (
	"context"
	"testing"
	"time"

	"citabot.app/internal/config"
	"citabot.app/pkg/errors"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisProvider(t *testing.T) (*miniredis.Miniredis, *RedisCacheProviderAdapter) {
	t.Helper()

	mr := miniredis.RunT(t)
	provider, err := NewRedisCacheProviderAdapter(&config.RedisConfig{
		Addr:         mr.Addr(),
		DialTimeout:  1,
		ReadTimeout:  1,
		WriteTimeout: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })
	return mr, provider
}

func TestRedisCacheProvider_SetGet(t *testing.T) {
	mr, provider := newTestRedisProvider(t)
	ctx := context.Background()

	require.NoError(t, provider.Set(ctx, "stations", []byte(`[{"id":"21"}]`), time.Minute))

	got, err := provider.Get(ctx, "stations")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"21"}]`, string(got))
	assert.True(t, mr.Exists("citabot:stations"), "keys are namespaced")

	exists, err := provider.Exists(ctx, "stations")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRedisCacheProvider_MissAndExpiry(t *testing.T) {
	mr, provider := newTestRedisProvider(t)
	ctx := context.Background()

	_, err := provider.Get(ctx, "absent")
	assert.True(t, errors.IsNotFoundError(err))

	require.NoError(t, provider.Set(ctx, "session", []byte("x"), time.Second))
	mr.FastForward(2 * time.Second)

	_, err = provider.Get(ctx, "session")
	assert.True(t, errors.IsNotFoundError(err))

	stats := provider.GetStats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
}

func TestRedisCacheProvider_Validation(t *testing.T) {
	_, provider := newTestRedisProvider(t)
	ctx := context.Background()

	assert.True(t, errors.IsValidationError(provider.Set(ctx, "", []byte("x"), time.Minute)))
	assert.True(t, errors.IsValidationError(provider.Set(ctx, "k", nil, time.Minute)))
	assert.True(t, errors.IsValidationError(provider.Set(ctx, "k", []byte("x"), 0)))
	assert.True(t, errors.IsValidationError(provider.Delete(ctx, " ")))
	_, err := provider.Get(ctx, "")
	assert.True(t, errors.IsValidationError(err))
}

func TestRedisCacheProvider_ClearOnlyOwnKeys(t *testing.T) {
	mr, provider := newTestRedisProvider(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("other-app:key", "keep"))
	require.NoError(t, provider.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, provider.Set(ctx, "b", []byte("2"), time.Minute))

	require.NoError(t, provider.Clear(ctx))

	exists, err := provider.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.True(t, mr.Exists("other-app:key"))
}

func TestRedisCacheProvider_Delete(t *testing.T) {
	_, provider := newTestRedisProvider(t)
	ctx := context.Background()

	require.NoError(t, provider.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, provider.Delete(ctx, "k"))

	_, err := provider.Get(ctx, "k")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestRedisCacheProvider_PingAfterServerStops(t *testing.T) {
	mr, provider := newTestRedisProvider(t)
	require.NoError(t, provider.Ping(context.Background()))

	mr.Close()
	assert.True(t, errors.IsPersistenceError(provider.Ping(context.Background())))
}
