package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"citabot.app/internal/adapters/database"
	"citabot.app/internal/adapters/external"
	"citabot.app/internal/adapters/infrastructure"
	adapterstorage "citabot.app/internal/adapters/storage"
	"citabot.app/internal/config"
	"citabot.app/internal/ports"
	"citabot.app/pkg/errors"
	"cloud.google.com/go/storage"
	"gorm.io/gorm"
)

type DependencyContainer struct {
	config  *config.Config
	db      *gorm.DB
	gcs     *storage.Client
	closers []io.Closer
	ports   *ports.ApplicationPorts
	metrics *infrastructure.PrometheusMetrics
	sitval  *external.SitvalClient
}

// NewDependencyContainer builds every adapter the application needs.
// The messaging provider is only created when withMessaging is set so that
// one-shot CLI commands never need push credentials.
func NewDependencyContainer(ctx context.Context, cfg *config.Config, withMessaging bool) (*DependencyContainer, error) {
	if cfg == nil {
		return nil, errors.NewConfigurationError("configuration is required", nil)
	}

	container := &DependencyContainer{config: cfg}
	if err := container.initializePorts(ctx, withMessaging); err != nil {
		_ = container.Cleanup()
		return nil, fmt.Errorf("initialize ports: %w", err)
	}
	return container, nil
}

func (c *DependencyContainer) initializePorts(ctx context.Context, withMessaging bool) error {
	slog.Info("Initializing ports...")

	var logger ports.Logger = infrastructure.NewSlogLoggerAdapter(slog.Default(), "citabot")
	c.metrics = infrastructure.NewPrometheusMetrics()
	configProvider := infrastructure.NewConfigProviderAdapter(c.config)

	cacheProvider, err := external.NewCacheProviderFactory().CreateCacheProvider(&c.config.Cache)
	if err != nil {
		return fmt.Errorf("create cache provider: %w", err)
	}
	if closer, ok := cacheProvider.(io.Closer); ok {
		c.closers = append(c.closers, closer)
	}
	slog.Info("Cache provider initialized",
		"type", c.config.Cache.Type.String(),
		"redis_addr", c.config.Cache.Redis.Addr)

	upstream, err := c.createUpstream(cacheProvider, logger)
	if err != nil {
		return err
	}

	store, err := c.createSubscriberStore(ctx, logger)
	if err != nil {
		return err
	}

	var messaging ports.MessagingProvider
	if withMessaging {
		messaging, err = external.NewMessagingProviderFactory(logger).CreateMessagingProvider(ctx, &c.config.Push)
		if err != nil {
			return fmt.Errorf("create messaging provider: %w", err)
		}
		slog.Info("Messaging provider initialized", "provider", messaging.ProviderName())
	}

	var cacheMetrics ports.CacheMetrics
	if cm, ok := cacheProvider.(ports.CacheMetrics); ok {
		cacheMetrics = cm
	}

	c.ports = &ports.ApplicationPorts{
		Upstream:        upstream,
		Cache:           cacheProvider,
		CacheMetrics:    cacheMetrics,
		SubscriberStore: store,
		Messaging:       messaging,
		ConfigProvider:  configProvider,
		Logger:          logger,
		Metrics:         c.metrics,
		Database:        c.db,
	}

	slog.Info("Ports initialized successfully")
	return nil
}

// createUpstream builds the booking site client, wrapped in the logging
// decorator when upstream logging is enabled
func (c *DependencyContainer) createUpstream(cache ports.CacheProvider, logger ports.Logger) (ports.UpstreamClient, error) {
	u := c.config.Upstream
	client, err := external.NewSitvalClient(external.SitvalClientParams{
		BaseURL:              u.BaseURL,
		FallbackInstanceCode: u.FallbackInstanceCode,
		SessionStrategies:    u.SessionStrategies,
		InstancePatterns:     u.InstancePatterns,
		SessionTTL:           time.Duration(u.SessionTTLSeconds) * time.Second,
		Timeout:              time.Duration(u.TimeoutSeconds) * time.Second,
		MaxRetries:           u.MaxRetries,
		RetryDelay:           time.Duration(u.RetryDelaySeconds) * time.Second,
		RequestsPerMinute:    u.RequestsPerMinute,
		Cache:                cache,
		Logger:               logger,
		Metrics:              c.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create upstream client: %w", err)
	}
	c.sitval = client

	if !u.EnableLogging {
		return client, nil
	}

	decoratorLogger := logger
	if u.LogFilePath != "" {
		fileLogger, err := infrastructure.NewFileLoggerAdapter(u.LogFilePath)
		if err != nil {
			slog.Warn("Failed to create file logger, falling back to slog", "error", err)
		} else {
			c.closers = append(c.closers, fileLogger)
			decoratorLogger = infrastructure.NewMultiLogger(logger, fileLogger)
			slog.Info("Upstream file logging enabled", "path", u.LogFilePath)
		}
	}

	slog.Info("Upstream logging enabled")
	return external.NewUpstreamLoggingDecorator(client, decoratorLogger), nil
}

func (c *DependencyContainer) createSubscriberStore(ctx context.Context, logger ports.Logger) (ports.SubscriberStore, error) {
	s := c.config.Store
	switch s.Type {
	case config.StoreTypeFile:
		slog.Info("Subscriber store initialized", "type", "file", "path", s.FilePath)
		return adapterstorage.NewFileStore(s.FilePath, logger), nil

	case config.StoreTypeDatabase:
		slog.Info("Initializing database connection...", "driver", s.Database.Driver)
		db, err := database.Open(s.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		c.db = db
		slog.Info("Database connection established successfully")
		return database.NewSubscriberStoreAdapter(db), nil

	case config.StoreTypeGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, errors.NewConfigurationError("failed to create cloud storage client", err)
		}
		c.gcs = client
		slog.Info("Subscriber store initialized", "type", "gcs", "bucket", s.GCSBucket, "object", s.GCSObject)
		return adapterstorage.NewGCSStore(client, s.GCSBucket, s.GCSObject, logger), nil

	default:
		return nil, errors.NewConfigurationError(fmt.Sprintf("unsupported store type: %s", s.Type.String()), nil)
	}
}

func (c *DependencyContainer) ApplicationPorts() *ports.ApplicationPorts {
	return c.ports
}

func (c *DependencyContainer) Metrics() *infrastructure.PrometheusMetrics {
	return c.metrics
}

// SessionResolver exposes the undecorated upstream client for health checks
func (c *DependencyContainer) SessionResolver() infrastructure.SessionResolver {
	return c.sitval
}

// StorePinger returns the subscriber store's liveness check, nil when it has none
func (c *DependencyContainer) StorePinger() infrastructure.Pinger {
	if p, ok := c.ports.SubscriberStore.(infrastructure.Pinger); ok {
		return p
	}
	return nil
}

// CachePinger returns the cache provider's liveness check, nil when it has none
func (c *DependencyContainer) CachePinger() infrastructure.Pinger {
	if p, ok := c.ports.Cache.(infrastructure.Pinger); ok {
		return p
	}
	return nil
}

// Cleanup releases connections and open files
func (c *DependencyContainer) Cleanup() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if c.db != nil {
		keep(database.Close(c.db))
		c.db = nil
	}
	if c.gcs != nil {
		keep(c.gcs.Close())
		c.gcs = nil
	}
	for _, closer := range c.closers {
		keep(closer.Close())
	}
	c.closers = nil
	return firstErr
}
