package infrastructure

import (
	"context"
	"sync"

	"citabot.app/internal/ports"
)

// SystemHealthChecker aggregates all health checks
type SystemHealthChecker struct {
	checkers       map[string]ports.HealthChecker
	configProvider ports.ConfigProvider
	messaging      ports.MessagingProvider
}

// SystemHealthCheckerConfig holds the configuration for creating a system health checker
type SystemHealthCheckerConfig struct {
	Checkers       map[string]ports.HealthChecker
	ConfigProvider ports.ConfigProvider
	Messaging      ports.MessagingProvider
}

func NewSystemHealthChecker(config SystemHealthCheckerConfig) *SystemHealthChecker {
	return &SystemHealthChecker{
		checkers:       config.Checkers,
		configProvider: config.ConfigProvider,
		messaging:      config.Messaging,
	}
}

// CheckAll runs every checker concurrently
func (s *SystemHealthChecker) CheckAll(ctx context.Context) map[string]ports.HealthStatus {
	results := make(map[string]ports.HealthStatus, len(s.checkers)+2)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, checker := range s.checkers {
		if checker == nil {
			continue
		}
		wg.Add(1)
		go func(name string, checker ports.HealthChecker) {
			defer wg.Done()
			status := checker.Check(ctx)
			mu.Lock()
			results[name] = status
			mu.Unlock()
		}(name, checker)
	}
	wg.Wait()

	if s.messaging != nil {
		results["messaging"] = ports.HealthStatus{
			Component: "messaging",
			Status:    statusHealthy,
			Details:   map[string]interface{}{"provider": s.messaging.ProviderName()},
		}
	}

	if s.configProvider != nil {
		cache := s.configProvider.GetSlotCacheConfig()
		store := s.configProvider.GetStoreConfig()
		notification := s.configProvider.GetNotificationConfig()
		results["config"] = ports.HealthStatus{
			Component: "config",
			Status:    statusHealthy,
			Details: map[string]interface{}{
				"cache_type":        cache.Type,
				"slot_ttl_seconds":  int(cache.SlotTTL.Seconds()),
				"max_slots":         cache.MaxSlots,
				"store_type":        store.Type,
				"notification_mode": notification.Mode,
			},
		}
	}

	return results
}
