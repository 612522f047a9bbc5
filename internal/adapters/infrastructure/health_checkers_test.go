package infrastructure

import (
	"context"
	stderrors "errors"
	"testing"

	"citabot.app/internal/config"
	"citabot.app/internal/mocks"
	"citabot.app/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type fixedScheduler bool

func (f fixedScheduler) IsRunning() bool { return bool(f) }

func TestPingHealthChecker(t *testing.T) {
	ok := NewPingHealthChecker("store", pingFunc(func(context.Context) error { return nil }), map[string]interface{}{"type": "database"})
	status := ok.Check(context.Background())
	assert.Equal(t, statusHealthy, status.Status)
	assert.Equal(t, "database", status.Details["type"])

	down := NewPingHealthChecker("cache", pingFunc(func(context.Context) error { return stderrors.New("connection refused") }), nil)
	status = down.Check(context.Background())
	assert.Equal(t, statusUnhealthy, status.Status)
	assert.Equal(t, "connection refused", status.Error)

	static := NewPingHealthChecker("store", nil, map[string]interface{}{"type": "file"})
	assert.Equal(t, statusHealthy, static.Check(context.Background()).Status)
}

func TestUpstreamHealthChecker(t *testing.T) {
	upstream := mocks.NewUpstreamClient(t)
	upstream.On("ResolveSession", mock.Anything, "").
		Return(ports.SessionContext{InstanceCode: "abc", Strategy: "html"}).Once()
	upstream.On("ResolveSession", mock.Anything, "").
		Return(ports.SessionContext{Strategy: "empty"}).Once()

	checker := NewUpstreamHealthChecker(upstream, "https://citaitvsitval.com")

	status := checker.Check(context.Background())
	assert.Equal(t, statusHealthy, status.Status)
	assert.Equal(t, "html", status.Details["session_strategy"])

	status = checker.Check(context.Background())
	assert.Equal(t, statusDegraded, status.Status)
}

func TestSchedulerHealthChecker(t *testing.T) {
	assert.Equal(t, statusHealthy, NewSchedulerHealthChecker(fixedScheduler(true), true).Check(context.Background()).Status)
	assert.Equal(t, statusDegraded, NewSchedulerHealthChecker(fixedScheduler(false), true).Check(context.Background()).Status)
	assert.Equal(t, statusHealthy, NewSchedulerHealthChecker(nil, false).Check(context.Background()).Status)
}

func TestSystemHealthChecker_CheckAll(t *testing.T) {
	cfg := &config.Config{
		Cache:        config.CacheConfig{Type: config.CacheTypeMemory, SlotTTLSeconds: 3600, MaxSlots: 10},
		Store:        config.StoreConfig{Type: config.StoreTypeFile, FilePath: "data/subscribers.json"},
		Notification: config.NotificationConfig{Mode: "subscriber"},
	}

	system := NewSystemHealthChecker(SystemHealthCheckerConfig{
		Checkers: map[string]ports.HealthChecker{
			"store":     NewPingHealthChecker("store", nil, nil),
			"scheduler": NewSchedulerHealthChecker(fixedScheduler(false), true),
		},
		ConfigProvider: NewConfigProviderAdapter(cfg),
		Messaging:      mocks.NewMessagingProvider(t),
	})

	results := system.CheckAll(context.Background())
	assert.Len(t, results, 4)
	assert.Equal(t, "mock", results["messaging"].Details["provider"])
	assert.Equal(t, "memory", results["config"].Details["cache_type"])
	assert.Equal(t, 3600, results["config"].Details["slot_ttl_seconds"])
	assert.Equal(t, statusDegraded, ports.OverallStatus(results))

	results["store"] = ports.HealthStatus{Status: statusUnhealthy}
	assert.Equal(t, statusUnhealthy, ports.OverallStatus(results))
}
