package external

import (
	"context"
	"strings"
	"sync"
	"time"

	"citabot.app/internal/ports"
	"citabot.app/pkg/errors"
)

// MemoryCacheProvider keeps entries in process memory. Expired entries are
// dropped lazily on read and swept on write.
type MemoryCacheProvider struct {
	data  map[string]memoryCacheItem
	mutex sync.RWMutex
	now   func() time.Time

	stats struct {
		hits   int64
		misses int64
		mutex  sync.RWMutex
	}
	writes int
}

type memoryCacheItem struct {
	data      []byte
	expiresAt time.Time
}

// sweepEvery is how many writes happen between expiry sweeps
const sweepEvery = 128

func NewMemoryCacheProvider() *MemoryCacheProvider {
	return &MemoryCacheProvider{
		data: make(map[string]memoryCacheItem),
		now:  time.Now,
	}
}

func (c *MemoryCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errors.NewValidationError("cache key cannot be empty")
	}

	c.mutex.RLock()
	item, exists := c.data[key]
	c.mutex.RUnlock()

	if !exists || !c.now().Before(item.expiresAt) {
		c.recordMiss()
		return nil, errors.NewNotFoundError("cache miss")
	}

	c.recordHit()
	out := make([]byte, len(item.data))
	copy(out, item.data)
	return out, nil
}

func (c *MemoryCacheProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return errors.NewValidationError("cache key cannot be empty")
	}
	if value == nil {
		return errors.NewValidationError("cache value cannot be nil")
	}
	if ttl <= 0 {
		return errors.NewValidationError("cache TTL must be positive")
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	c.data[key] = memoryCacheItem{data: stored, expiresAt: now.Add(ttl)}

	c.writes++
	if c.writes%sweepEvery == 0 {
		for k, item := range c.data {
			if !now.Before(item.expiresAt) {
				delete(c.data, k)
			}
		}
	}
	return nil
}

func (c *MemoryCacheProvider) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.NewValidationError("cache key cannot be empty")
	}

	c.mutex.Lock()
	delete(c.data, key)
	c.mutex.Unlock()
	return nil
}

func (c *MemoryCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, errors.NewValidationError("cache key cannot be empty")
	}

	c.mutex.RLock()
	item, exists := c.data[key]
	c.mutex.RUnlock()

	return exists && c.now().Before(item.expiresAt), nil
}

func (c *MemoryCacheProvider) Clear(ctx context.Context) error {
	c.mutex.Lock()
	c.data = make(map[string]memoryCacheItem)
	c.mutex.Unlock()
	return nil
}

// Len counts live entries
func (c *MemoryCacheProvider) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := c.now()
	n := 0
	for _, item := range c.data {
		if now.Before(item.expiresAt) {
			n++
		}
	}
	return n
}

func (c *MemoryCacheProvider) GetStats() ports.CacheStats {
	c.stats.mutex.RLock()
	defer c.stats.mutex.RUnlock()
	return buildCacheStats(c.stats.hits, c.stats.misses)
}

func (c *MemoryCacheProvider) RecordHit()  { c.recordHit() }
func (c *MemoryCacheProvider) RecordMiss() { c.recordMiss() }

func (c *MemoryCacheProvider) recordHit() {
	c.stats.mutex.Lock()
	c.stats.hits++
	c.stats.mutex.Unlock()
}

func (c *MemoryCacheProvider) recordMiss() {
	c.stats.mutex.Lock()
	c.stats.misses++
	c.stats.mutex.Unlock()
}

func buildCacheStats(hits, misses int64) ports.CacheStats {
	total := hits + misses
	ratio := float64(0)
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return ports.CacheStats{
		Hits:        hits,
		Misses:      misses,
		TotalOps:    total,
		HitRatio:    ratio,
		LastUpdated: time.Now(),
	}
}

var (
	_ ports.CacheProvider = (*MemoryCacheProvider)(nil)
	_ ports.CacheMetrics  = (*MemoryCacheProvider)(nil)
)
