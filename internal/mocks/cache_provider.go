package mocks

import (
	"context"
	"time"

	"citabot.app/internal/ports"
	"github.com/stretchr/testify/mock"
)

// CacheProvider is a testify mock for ports.CacheProvider
type CacheProvider struct {
	mock.Mock
}

func NewCacheProvider(t testingT) *CacheProvider {
	m := &CacheProvider{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *CacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CacheProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *CacheProvider) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *CacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *CacheProvider) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var _ ports.CacheProvider = (*CacheProvider)(nil)
