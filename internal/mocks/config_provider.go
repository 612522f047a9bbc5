package mocks

import (
	"citabot.app/internal/ports"
	"github.com/stretchr/testify/mock"
)

// ConfigProvider is a testify mock for ports.ConfigProvider
type ConfigProvider struct {
	mock.Mock
}

func NewConfigProvider(t testingT) *ConfigProvider {
	m := &ConfigProvider{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *ConfigProvider) GetServerConfig() ports.ServerConfig {
	return m.Called().Get(0).(ports.ServerConfig)
}

func (m *ConfigProvider) GetUpstreamConfig() ports.UpstreamConfig {
	return m.Called().Get(0).(ports.UpstreamConfig)
}

func (m *ConfigProvider) GetSlotCacheConfig() ports.SlotCacheConfig {
	return m.Called().Get(0).(ports.SlotCacheConfig)
}

func (m *ConfigProvider) GetSchedulerConfig() ports.SchedulerConfig {
	return m.Called().Get(0).(ports.SchedulerConfig)
}

func (m *ConfigProvider) GetNotificationConfig() ports.NotificationConfig {
	return m.Called().Get(0).(ports.NotificationConfig)
}

func (m *ConfigProvider) GetStoreConfig() ports.StoreConfig {
	return m.Called().Get(0).(ports.StoreConfig)
}
