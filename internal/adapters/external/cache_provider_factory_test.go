package external

import (
	"testing"

	"citabot.app/internal/config"
	"citabot.app/pkg/errors"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheProviderFactory_CreateCacheProvider(t *testing.T) {
	mr := miniredis.RunT(t)
	factory := NewCacheProviderFactory()

	tests := []struct {
		name     string
		cfg      *config.CacheConfig
		wantType interface{}
		wantErr  bool
	}{
		{name: "nil config", cfg: nil, wantErr: true},
		{name: "memory", cfg: &config.CacheConfig{Type: config.CacheTypeMemory}, wantType: &MemoryCacheProvider{}},
		{
			name:     "redis",
			cfg:      &config.CacheConfig{Type: config.CacheTypeRedis, Redis: config.RedisConfig{Addr: mr.Addr(), DialTimeout: 1, ReadTimeout: 1, WriteTimeout: 1}},
			wantType: &RedisCacheProviderAdapter{},
		},
		{name: "unknown", cfg: &config.CacheConfig{Type: config.CacheTypeUnknown}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := factory.CreateCacheProvider(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsConfigurationError(err))
				assert.Nil(t, provider)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, provider)
		})
	}
}

func TestCacheProviderFactory_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewCacheProviderFactory().CreateCacheProvider(&config.CacheConfig{
		Type:  config.CacheTypeRedis,
		Redis: config.RedisConfig{Addr: addr, DialTimeout: 1, ReadTimeout: 1, WriteTimeout: 1},
	})
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
}
