package external

import (
	"context"
	"strings"
	"sync"
	"time"

	"citabot.app/internal/config"
	"citabot.app/internal/ports"
	"citabot.app/pkg/errors"
	"github.com/go-redis/redis/v8"
)

// redisKeyPrefix namespaces every key so Clear never touches foreign data
const redisKeyPrefix = "citabot:"

// RedisCacheProviderAdapter implements CacheProvider port using Redis
type RedisCacheProviderAdapter struct {
	client *redis.Client
	stats  struct {
		hits   int64
		misses int64
		mutex  sync.RWMutex
	}
}

// NewRedisCacheProviderAdapter connects to Redis and verifies the connection
func NewRedisCacheProviderAdapter(cfg *config.RedisConfig) (*RedisCacheProviderAdapter, error) {
	if cfg == nil {
		return nil, errors.NewConfigurationError("redis config cannot be nil", nil)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewConfigurationError("failed to connect to Redis at "+cfg.Addr, err)
	}

	return &RedisCacheProviderAdapter{client: client}, nil
}

func (r *RedisCacheProviderAdapter) key(key string) string {
	if strings.HasPrefix(key, redisKeyPrefix) {
		return key
	}
	return redisKeyPrefix + key
}

func (r *RedisCacheProviderAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errors.NewValidationError("cache key cannot be empty")
	}

	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		r.recordMiss()
		return nil, errors.NewNotFoundError("cache miss")
	}
	if err != nil {
		return nil, errors.NewPersistenceError("redis get failed", err)
	}

	r.recordHit()
	return val, nil
}

func (r *RedisCacheProviderAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return errors.NewValidationError("cache key cannot be empty")
	}
	if value == nil {
		return errors.NewValidationError("cache value cannot be nil")
	}
	if ttl <= 0 {
		return errors.NewValidationError("cache TTL must be positive")
	}

	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return errors.NewPersistenceError("redis set failed", err)
	}
	return nil
}

func (r *RedisCacheProviderAdapter) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.NewValidationError("cache key cannot be empty")
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return errors.NewPersistenceError("redis delete failed", err)
	}
	return nil
}

func (r *RedisCacheProviderAdapter) Exists(ctx context.Context, key string) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, errors.NewValidationError("cache key cannot be empty")
	}
	count, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, errors.NewPersistenceError("redis exists failed", err)
	}
	return count > 0, nil
}

// Clear removes this application's keys only
func (r *RedisCacheProviderAdapter) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return errors.NewPersistenceError("redis clear failed", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return errors.NewPersistenceError("redis scan failed", err)
	}
	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return errors.NewPersistenceError("redis clear failed", err)
		}
	}
	return nil
}

func (r *RedisCacheProviderAdapter) GetStats() ports.CacheStats {
	r.stats.mutex.RLock()
	defer r.stats.mutex.RUnlock()
	return buildCacheStats(r.stats.hits, r.stats.misses)
}

func (r *RedisCacheProviderAdapter) RecordHit()  { r.recordHit() }
func (r *RedisCacheProviderAdapter) RecordMiss() { r.recordMiss() }

func (r *RedisCacheProviderAdapter) recordHit() {
	r.stats.mutex.Lock()
	r.stats.hits++
	r.stats.mutex.Unlock()
}

func (r *RedisCacheProviderAdapter) recordMiss() {
	r.stats.mutex.Lock()
	r.stats.misses++
	r.stats.mutex.Unlock()
}

func (r *RedisCacheProviderAdapter) Close() error {
	if err := r.client.Close(); err != nil {
		return errors.NewPersistenceError("failed to close Redis connection", err)
	}
	return nil
}

// Ping checks if the Redis connection is alive
func (r *RedisCacheProviderAdapter) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.NewPersistenceError("redis ping failed", err)
	}
	return nil
}

var (
	_ ports.CacheProvider = (*RedisCacheProviderAdapter)(nil)
	_ ports.CacheMetrics  = (*RedisCacheProviderAdapter)(nil)
)
