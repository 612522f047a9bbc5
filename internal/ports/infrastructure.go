package ports

import (
	"context"
	"time"
)

// ServerConfig represents server configuration
type ServerConfig struct {
	Port int
}

// UpstreamConfig represents the parts of the upstream configuration use cases need
type UpstreamConfig struct {
	BaseURL       string
	HorizonMonths int
}

// SlotCacheConfig represents cache sizing and expiry
type SlotCacheConfig struct {
	Type       string
	SlotTTL    time.Duration
	MaxSlots   int
	StationTTL time.Duration
	SessionTTL time.Duration
}

// SchedulerConfig represents background refresh configuration
type SchedulerConfig struct {
	Enabled          bool
	RefreshInterval  time.Duration
	RequestDelay     time.Duration
	MaxConcurrent    int
	CommonServices   []string
	ActiveHoursStart int
	ActiveHoursEnd   int
}

// NotificationConfig represents notification fan-out configuration
type NotificationConfig struct {
	Mode  string
	Title string
}

// StoreConfig represents subscriber persistence configuration
type StoreConfig struct {
	Type     string
	Location string
}

// ConfigProvider defines the contract for configuration management
type ConfigProvider interface {
	GetServerConfig() ServerConfig
	GetUpstreamConfig() UpstreamConfig
	GetSlotCacheConfig() SlotCacheConfig
	GetSchedulerConfig() SchedulerConfig
	GetNotificationConfig() NotificationConfig
	GetStoreConfig() StoreConfig
}

// Logger defines the contract for structured logging
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a log field
type Field struct {
	Key   string
	Value interface{}
}

// F creates a log field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// MetricsRecorder defines the contract for operational metrics
type MetricsRecorder interface {
	RecordUpstreamRequest(module string, success bool, duration time.Duration)
	TrackUpstreamInFlight(delta int)
	RecordSlotCacheLookup(hit bool)
	RecordTrackedKeys(count int)
	RecordNotification(outcome string)
	RecordRefreshPass(duration time.Duration, keys, failures int)
}

// MetricsCollector exposes a JSON view of runtime metrics for diagnostics
type MetricsCollector interface {
	GetMetrics(ctx context.Context) (map[string]interface{}, error)
}
