package infrastructure

import (
	"time"

	"citabot.app/internal/config"
	"citabot.app/internal/ports"
)

// ConfigProviderAdapter implements the ConfigProvider port
type ConfigProviderAdapter struct {
	config *config.Config
}

func NewConfigProviderAdapter(cfg *config.Config) *ConfigProviderAdapter {
	return &ConfigProviderAdapter{config: cfg}
}

func (c *ConfigProviderAdapter) GetServerConfig() ports.ServerConfig {
	return ports.ServerConfig{Port: c.config.Server.Port}
}

func (c *ConfigProviderAdapter) GetUpstreamConfig() ports.UpstreamConfig {
	return ports.UpstreamConfig{
		BaseURL:       c.config.Upstream.BaseURL,
		HorizonMonths: c.config.Upstream.HorizonMonths,
	}
}

func (c *ConfigProviderAdapter) GetSlotCacheConfig() ports.SlotCacheConfig {
	return ports.SlotCacheConfig{
		Type:       c.config.Cache.Type.String(),
		SlotTTL:    time.Duration(c.config.Cache.SlotTTLSeconds) * time.Second,
		MaxSlots:   c.config.Cache.MaxSlots,
		StationTTL: time.Duration(c.config.Cache.StationTTLSeconds) * time.Second,
		SessionTTL: time.Duration(c.config.Upstream.SessionTTLSeconds) * time.Second,
	}
}

func (c *ConfigProviderAdapter) GetSchedulerConfig() ports.SchedulerConfig {
	s := c.config.Scheduler
	return ports.SchedulerConfig{
		Enabled:          s.Enabled,
		RefreshInterval:  time.Duration(s.RefreshIntervalSecond) * time.Second,
		RequestDelay:     time.Duration(s.RequestDelaySeconds) * time.Second,
		MaxConcurrent:    s.MaxConcurrent,
		CommonServices:   append([]string(nil), s.CommonServices...),
		ActiveHoursStart: s.ActiveHoursStart,
		ActiveHoursEnd:   s.ActiveHoursEnd,
	}
}

func (c *ConfigProviderAdapter) GetNotificationConfig() ports.NotificationConfig {
	return ports.NotificationConfig{
		Mode:  c.config.Notification.Mode,
		Title: c.config.Notification.Title,
	}
}

func (c *ConfigProviderAdapter) GetStoreConfig() ports.StoreConfig {
	store := c.config.Store
	location := store.FilePath
	switch store.Type {
	case config.StoreTypeDatabase:
		location = store.Database.Driver
		if store.Database.Driver == "sqlite" {
			location += ":" + store.Database.SQLitePath
		} else {
			location += "://" + store.Database.Host + "/" + store.Database.Name
		}
	case config.StoreTypeGCS:
		location = "gs://" + store.GCSBucket + "/" + store.GCSObject
	}
	return ports.StoreConfig{Type: store.Type.String(), Location: location}
}

var _ ports.ConfigProvider = (*ConfigProviderAdapter)(nil)
