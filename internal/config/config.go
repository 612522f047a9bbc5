package config

import (
	"fmt"
	"strings"

	"citabot.app/pkg/errors"
	"github.com/kelseyhightower/envconfig"
)

const (
	maxRedisDB     = 15
	maxPortNumber  = 65535
	maxSlotsLimit  = 100
	maxHourOfDay   = 24
	minIDLength    = 20
	maxMonthsAhead = 12

	redactedValue = "********"
)

// Config represents the application configuration structure
type Config struct {
	Server       ServerConfig       `split_words:"true"`
	Upstream     UpstreamConfig     `split_words:"true"`
	Cache        CacheConfig        `split_words:"true"`
	Scheduler    SchedulerConfig    `split_words:"true"`
	Notification NotificationConfig `split_words:"true"`
	Push         PushConfig         `split_words:"true"`
	Store        StoreConfig        `split_words:"true"`
	LogLevel     string             `envconfig:"LOG_LEVEL" default:"info"`
}

type ServerConfig struct {
	Port        int      `envconfig:"SERVER_PORT" default:"8080"`
	CORSOrigins []string `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`
}

type UpstreamConfig struct {
	BaseURL              string   `envconfig:"UPSTREAM_BASE_URL" default:"https://citaitvsitval.com"`
	FallbackInstanceCode string   `envconfig:"UPSTREAM_FALLBACK_INSTANCE_CODE" default:"2g8mkjxs7t6sk5gawgri5x1u2nryqcxb"`
	SessionStrategies    []string `envconfig:"UPSTREAM_SESSION_STRATEGIES" default:"fallback,html,cookie,startup_json"`
	InstancePatterns     []string `envconfig:"UPSTREAM_INSTANCE_PATTERNS" default:"instanceCode[\"']?\\s*[:=]\\s*[\"']([a-zA-Z0-9]{20}[a-zA-Z0-9]*)[\"'],instance_code[\"']?\\s*[:=]\\s*[\"']([a-zA-Z0-9]{20}[a-zA-Z0-9]*)[\"']"`
	SessionTTLSeconds    int      `envconfig:"UPSTREAM_SESSION_TTL" default:"1800"`
	TimeoutSeconds       int      `envconfig:"UPSTREAM_TIMEOUT" default:"15"`
	MaxRetries           int      `envconfig:"MAX_RETRIES" default:"3"`
	RetryDelaySeconds    int      `envconfig:"RETRY_DELAY" default:"5"`
	RequestsPerMinute    int      `envconfig:"UPSTREAM_REQUESTS_PER_MINUTE" default:"30"`
	HorizonMonths        int      `envconfig:"UPSTREAM_HORIZON_MONTHS" default:"2"`
	EnableLogging        bool     `envconfig:"UPSTREAM_ENABLE_LOGGING" default:"true"`
	LogFilePath          string   `envconfig:"UPSTREAM_LOG_FILE_PATH" default:""`
}

// CacheType represents the type of cache to use
type CacheType int

const (
	CacheTypeUnknown CacheType = iota
	CacheTypeMemory
	CacheTypeRedis
)

// String returns the string representation of cache type
func (c CacheType) String() string {
	switch c {
	case CacheTypeMemory:
		return "memory"
	case CacheTypeRedis:
		return "redis"
	default:
		return "unknown"
	}
}

// IsValid checks if the cache type is valid
func (c CacheType) IsValid() bool {
	return c == CacheTypeMemory || c == CacheTypeRedis
}

// CacheTypeFromString converts string to CacheType enum
func CacheTypeFromString(s string) CacheType {
	switch s {
	case "memory":
		return CacheTypeMemory
	case "redis":
		return CacheTypeRedis
	default:
		return CacheTypeUnknown
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for envconfig
func (c *CacheType) UnmarshalText(text []byte) error {
	*c = CacheTypeFromString(string(text))
	return nil
}

// MarshalText implements encoding.TextMarshaler for envconfig
func (c CacheType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// CacheConfig covers both the slot cache and the generic provider used for
// sessions and station listings.
type CacheConfig struct {
	Type              CacheType   `envconfig:"CACHE_TYPE" default:"memory"`
	Redis             RedisConfig `split_words:"true"`
	SlotTTLSeconds    int         `envconfig:"CACHE_TTL" default:"3600"`
	MaxSlots          int         `envconfig:"CACHE_MAX_SLOTS" default:"10"`
	StationTTLSeconds int         `envconfig:"STATION_CACHE_TTL" default:"21600"`
}

type RedisConfig struct {
	Addr         string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password     string `envconfig:"REDIS_PASSWORD" default:""`
	DB           int    `envconfig:"REDIS_DB" default:"0"`
	DialTimeout  int    `envconfig:"REDIS_DIAL_TIMEOUT" default:"5"`
	ReadTimeout  int    `envconfig:"REDIS_READ_TIMEOUT" default:"3"`
	WriteTimeout int    `envconfig:"REDIS_WRITE_TIMEOUT" default:"3"`
}

type SchedulerConfig struct {
	Enabled               bool     `envconfig:"SCHEDULER_ENABLED" default:"true"`
	RefreshIntervalSecond int      `envconfig:"BACKGROUND_REFRESH_INTERVAL" default:"3600"`
	RequestDelaySeconds   int      `envconfig:"REQUEST_DELAY" default:"5"`
	MaxConcurrent         int      `envconfig:"MAX_CONCURRENT_REQUESTS" default:"2"`
	CommonServices        []string `envconfig:"COMMON_SERVICES" default:"259,260"`
	ActiveHoursStart      int      `envconfig:"SCRAPING_HOURS_START" default:"7"`
	ActiveHoursEnd        int      `envconfig:"SCRAPING_HOURS_END" default:"22"`
}

type NotificationConfig struct {
	Mode  string `envconfig:"NOTIFICATION_MODE" default:"subscriber"`
	Title string `envconfig:"NOTIFICATION_TITLE" default:"Cita Previa"`
}

type PushConfig struct {
	Provider        string `envconfig:"PUSH_PROVIDER" default:"log"`
	CredentialsFile string `envconfig:"FIREBASE_CREDENTIALS_FILE" default:""`
	ProjectID       string `envconfig:"FIREBASE_PROJECT_ID" default:""`
}

// StoreType selects where the subscriber registry is persisted
type StoreType int

const (
	StoreTypeUnknown StoreType = iota
	StoreTypeFile
	StoreTypeDatabase
	StoreTypeGCS
)

func (s StoreType) String() string {
	switch s {
	case StoreTypeFile:
		return "file"
	case StoreTypeDatabase:
		return "database"
	case StoreTypeGCS:
		return "gcs"
	default:
		return "unknown"
	}
}

func (s StoreType) IsValid() bool {
	return s == StoreTypeFile || s == StoreTypeDatabase || s == StoreTypeGCS
}

func StoreTypeFromString(s string) StoreType {
	switch s {
	case "file":
		return StoreTypeFile
	case "database":
		return StoreTypeDatabase
	case "gcs":
		return StoreTypeGCS
	default:
		return StoreTypeUnknown
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for envconfig
func (s *StoreType) UnmarshalText(text []byte) error {
	*s = StoreTypeFromString(string(text))
	return nil
}

func (s StoreType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type StoreConfig struct {
	Type      StoreType      `envconfig:"STORE_TYPE" default:"file"`
	FilePath  string         `envconfig:"STORE_FILE_PATH" default:"data/subscribers.json"`
	GCSBucket string         `envconfig:"STORE_GCS_BUCKET" default:""`
	GCSObject string         `envconfig:"STORE_GCS_OBJECT" default:"subscribers.json"`
	Database  DatabaseConfig `split_words:"true"`
}

type DatabaseConfig struct {
	Driver     string `envconfig:"DB_DRIVER" default:"sqlite"`
	SQLitePath string `envconfig:"DB_SQLITE_PATH" default:"data/citabot.db"`
	Host       string `envconfig:"DB_HOST" default:"localhost"`
	Port       int    `envconfig:"DB_PORT" default:"5432"`
	User       string `envconfig:"DB_USER" default:"postgres"`
	Password   string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name       string `envconfig:"DB_NAME" default:"citabot"`
	SSLMode    string `envconfig:"DB_SSL_MODE" default:"disable"`
}

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, errors.NewConfigurationError("error processing config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	out := c
	if out.Cache.Redis.Password != "" {
		out.Cache.Redis.Password = redactedValue
	}
	if out.Store.Database.Password != "" {
		out.Store.Database.Password = redactedValue
	}
	out.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	return out
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Upstream.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	if err := c.Notification.Validate(); err != nil {
		return err
	}
	if err := c.Push.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	return nil
}

func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > maxPortNumber {
		return errors.NewConfigurationError("SERVER_PORT must be between 1 and 65535", nil)
	}
	return nil
}

var validSessionStrategies = map[string]bool{
	"fallback":     true,
	"html":         true,
	"cookie":       true,
	"startup_json": true,
}

func (u *UpstreamConfig) Validate() error {
	if !strings.HasPrefix(u.BaseURL, "http://") && !strings.HasPrefix(u.BaseURL, "https://") {
		return errors.NewConfigurationError("UPSTREAM_BASE_URL must start with http:// or https://", nil)
	}
	if u.FallbackInstanceCode != "" && len(u.FallbackInstanceCode) < minIDLength {
		return errors.NewConfigurationError("UPSTREAM_FALLBACK_INSTANCE_CODE must be at least 20 characters", nil)
	}
	for _, strategy := range u.SessionStrategies {
		if !validSessionStrategies[strategy] {
			return errors.NewConfigurationError(fmt.Sprintf("invalid session strategy: %s", strategy), nil)
		}
	}
	if u.SessionTTLSeconds < 1 {
		return errors.NewConfigurationError("UPSTREAM_SESSION_TTL must be at least 1 second", nil)
	}
	if u.TimeoutSeconds < 1 {
		return errors.NewConfigurationError("UPSTREAM_TIMEOUT must be at least 1 second", nil)
	}
	if u.MaxRetries < 1 {
		return errors.NewConfigurationError("MAX_RETRIES must be at least 1", nil)
	}
	if u.RetryDelaySeconds < 0 {
		return errors.NewConfigurationError("RETRY_DELAY cannot be negative", nil)
	}
	if u.RequestsPerMinute < 1 {
		return errors.NewConfigurationError("UPSTREAM_REQUESTS_PER_MINUTE must be at least 1", nil)
	}
	if u.HorizonMonths < 1 || u.HorizonMonths > maxMonthsAhead {
		return errors.NewConfigurationError("UPSTREAM_HORIZON_MONTHS must be between 1 and 12", nil)
	}
	return nil
}

func (c *CacheConfig) Validate() error {
	if !c.Type.IsValid() {
		return errors.NewConfigurationError("CACHE_TYPE must be one of: memory, redis", nil)
	}
	if c.SlotTTLSeconds < 1 {
		return errors.NewConfigurationError("CACHE_TTL must be at least 1 second", nil)
	}
	if c.MaxSlots < 1 || c.MaxSlots > maxSlotsLimit {
		return errors.NewConfigurationError("CACHE_MAX_SLOTS must be between 1 and 100", nil)
	}
	if c.StationTTLSeconds < 1 {
		return errors.NewConfigurationError("STATION_CACHE_TTL must be at least 1 second", nil)
	}

	if c.Type == CacheTypeRedis {
		return c.Redis.Validate()
	}

	return nil
}

func (r *RedisConfig) Validate() error {
	if r.Addr == "" {
		return errors.NewConfigurationError("REDIS_ADDR cannot be empty when using Redis cache", nil)
	}
	if r.DB < 0 || r.DB > maxRedisDB {
		return errors.NewConfigurationError("REDIS_DB must be between 0 and 15", nil)
	}
	if r.DialTimeout < 1 {
		return errors.NewConfigurationError("REDIS_DIAL_TIMEOUT must be at least 1 second", nil)
	}
	if r.ReadTimeout < 1 {
		return errors.NewConfigurationError("REDIS_READ_TIMEOUT must be at least 1 second", nil)
	}
	if r.WriteTimeout < 1 {
		return errors.NewConfigurationError("REDIS_WRITE_TIMEOUT must be at least 1 second", nil)
	}
	return nil
}

func (s *SchedulerConfig) Validate() error {
	if s.RefreshIntervalSecond < 1 {
		return errors.NewConfigurationError("BACKGROUND_REFRESH_INTERVAL must be at least 1 second", nil)
	}
	if s.RequestDelaySeconds < 0 {
		return errors.NewConfigurationError("REQUEST_DELAY cannot be negative", nil)
	}
	if s.MaxConcurrent < 1 {
		return errors.NewConfigurationError("MAX_CONCURRENT_REQUESTS must be at least 1", nil)
	}
	for _, service := range s.CommonServices {
		if strings.TrimSpace(service) == "" {
			return errors.NewConfigurationError("COMMON_SERVICES cannot contain empty entries", nil)
		}
	}
	if s.ActiveHoursStart < 0 || s.ActiveHoursStart > maxHourOfDay ||
		s.ActiveHoursEnd < 0 || s.ActiveHoursEnd > maxHourOfDay {
		return errors.NewConfigurationError("SCRAPING_HOURS_START and SCRAPING_HOURS_END must be between 0 and 24", nil)
	}
	return nil
}

func (n *NotificationConfig) Validate() error {
	switch n.Mode {
	case "subscriber", "favorites", "broadcast":
	default:
		return errors.NewConfigurationError("NOTIFICATION_MODE must be one of: subscriber, favorites, broadcast", nil)
	}
	if strings.TrimSpace(n.Title) == "" {
		return errors.NewConfigurationError("NOTIFICATION_TITLE cannot be empty", nil)
	}
	return nil
}

func (p *PushConfig) Validate() error {
	switch p.Provider {
	case "log":
		return nil
	case "fcm":
		if p.CredentialsFile == "" && p.ProjectID == "" {
			return errors.NewConfigurationError("FIREBASE_CREDENTIALS_FILE or FIREBASE_PROJECT_ID is required for the fcm push provider", nil)
		}
		return nil
	default:
		return errors.NewConfigurationError("PUSH_PROVIDER must be one of: log, fcm", nil)
	}
}

func (s *StoreConfig) Validate() error {
	switch s.Type {
	case StoreTypeFile:
		if s.FilePath == "" {
			return errors.NewConfigurationError("STORE_FILE_PATH cannot be empty", nil)
		}
	case StoreTypeGCS:
		if s.GCSBucket == "" {
			return errors.NewConfigurationError("STORE_GCS_BUCKET cannot be empty when using gcs store", nil)
		}
		if s.GCSObject == "" {
			return errors.NewConfigurationError("STORE_GCS_OBJECT cannot be empty", nil)
		}
	case StoreTypeDatabase:
		return s.Database.Validate()
	default:
		return errors.NewConfigurationError("STORE_TYPE must be one of: file, database, gcs", nil)
	}
	return nil
}

func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case "sqlite":
		if d.SQLitePath == "" {
			return errors.NewConfigurationError("DB_SQLITE_PATH cannot be empty", nil)
		}
		return nil
	case "postgres":
	default:
		return errors.NewConfigurationError("DB_DRIVER must be one of: sqlite, postgres", nil)
	}

	if d.Host == "" {
		return errors.NewConfigurationError("DB_HOST cannot be empty", nil)
	}
	if d.Port < 1 || d.Port > maxPortNumber {
		return errors.NewConfigurationError("DB_PORT must be between 1 and 65535", nil)
	}
	if d.User == "" {
		return errors.NewConfigurationError("DB_USER cannot be empty", nil)
	}
	if d.Name == "" {
		return errors.NewConfigurationError("DB_NAME cannot be empty", nil)
	}
	return d.ValidateSSLMode()
}

func (d *DatabaseConfig) ValidateSSLMode() error {
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	for _, mode := range validSSLModes {
		if d.SSLMode == mode {
			return nil
		}
	}
	return errors.NewConfigurationError(
		fmt.Sprintf("DB_SSL_MODE must be one of: %s", strings.Join(validSSLModes, ", ")), nil)
}
