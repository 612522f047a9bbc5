package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"citabot.app/internal/adapters/api"
	"citabot.app/internal/adapters/infrastructure"
	"citabot.app/internal/config"
	"citabot.app/internal/core/availability"
	"citabot.app/internal/core/limiter"
	"citabot.app/internal/core/notification"
	"citabot.app/internal/core/scheduler"
	"citabot.app/internal/core/slotcache"
	"citabot.app/internal/core/station"
	"citabot.app/internal/core/subscription"
	"citabot.app/internal/ports"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Application struct {
	config *config.Config
	deps   *DependencyContainer

	// Use Cases
	stationUseCase      *station.UseCase
	availabilityUseCase *availability.UseCase
	subscriptionUseCase *subscription.UseCase
	notificationUseCase *notification.UseCase
	schedulerUseCase    *scheduler.UseCase

	slotCache *slotcache.Cache
	limiter   *limiter.Limiter

	// Adapters
	httpServer *http.Server
	router     *gin.Engine

	// Infrastructure
	ports *ports.ApplicationPorts
}

// NewApplication wires the full server: HTTP surface, scheduler and notifications
func NewApplication(ctx context.Context, cfg *config.Config) (*Application, error) {
	deps, err := NewDependencyContainer(ctx, cfg, true)
	if err != nil {
		return nil, fmt.Errorf("create dependency container: %w", err)
	}

	app, err := NewApplicationWithDependencies(cfg, deps)
	if err != nil {
		_ = deps.Cleanup()
		return nil, err
	}
	return app, nil
}

// NewCLIApplication wires only station listing and slot lookup for one-shot commands
func NewCLIApplication(ctx context.Context, cfg *config.Config) (*Application, error) {
	deps, err := NewDependencyContainer(ctx, cfg, false)
	if err != nil {
		return nil, fmt.Errorf("create dependency container: %w", err)
	}

	app, err := NewApplicationWithDependencies(cfg, deps)
	if err != nil {
		_ = deps.Cleanup()
		return nil, err
	}
	return app, nil
}

// NewApplicationWithDependencies creates an application with provided dependencies
func NewApplicationWithDependencies(cfg *config.Config, deps *DependencyContainer) (*Application, error) {
	app := &Application{
		config: cfg,
		deps:   deps,
		ports:  deps.ApplicationPorts(),
	}

	if err := app.initializeUseCases(); err != nil {
		return nil, fmt.Errorf("initialize use cases: %w", err)
	}

	if app.ports.Messaging != nil {
		if err := app.initializeNotifications(); err != nil {
			return nil, fmt.Errorf("initialize notifications: %w", err)
		}
		if err := app.initializeAdapters(); err != nil {
			return nil, fmt.Errorf("initialize adapters: %w", err)
		}
	}

	return app, nil
}

func (a *Application) initializeUseCases() error {
	slog.Info("Initializing use cases...")

	cacheCfg := a.ports.ConfigProvider.GetSlotCacheConfig()
	schedCfg := a.ports.ConfigProvider.GetSchedulerConfig()

	a.limiter = limiter.New(schedCfg.MaxConcurrent, a.ports.Metrics)
	a.slotCache = slotcache.New(slotcache.Options{
		TTL:      cacheCfg.SlotTTL,
		MaxSlots: cacheCfg.MaxSlots,
		Metrics:  a.ports.Metrics,
	})

	stationUseCase, err := station.NewUseCase(station.UseCaseDependencies{
		Upstream: a.ports.Upstream,
		Cache:    a.ports.Cache,
		Limiter:  a.limiter,
		Config:   a.ports.ConfigProvider,
		Logger:   a.ports.Logger,
	})
	if err != nil {
		return fmt.Errorf("create station use case: %w", err)
	}
	a.stationUseCase = stationUseCase

	availabilityUseCase, err := availability.NewUseCase(availability.UseCaseDependencies{
		Resolver: availability.NewResolver(availability.ResolverOptions{
			Upstream: a.ports.Upstream,
			Stations: stationUseCase,
			Logger:   a.ports.Logger,
		}),
		Cache:   a.slotCache,
		Limiter: a.limiter,
		Config:  a.ports.ConfigProvider,
		Logger:  a.ports.Logger,
	})
	if err != nil {
		return fmt.Errorf("create availability use case: %w", err)
	}
	a.availabilityUseCase = availabilityUseCase

	slog.Info("Use cases initialized successfully")
	return nil
}

// initializeNotifications wires the subscriber registry, the change gateway and
// the refresh scheduler. Only the server needs them.
func (a *Application) initializeNotifications() error {
	subscriptionUseCase, err := subscription.NewUseCase(subscription.UseCaseDependencies{
		Store:  a.ports.SubscriberStore,
		Logger: a.ports.Logger,
	})
	if err != nil {
		return fmt.Errorf("create subscription use case: %w", err)
	}
	a.subscriptionUseCase = subscriptionUseCase

	notificationUseCase, err := notification.NewUseCase(notification.UseCaseDependencies{
		Subscribers: subscriptionUseCase,
		Stations:    a.stationUseCase,
		Messaging:   a.ports.Messaging,
		Config:      a.ports.ConfigProvider,
		Metrics:     a.ports.Metrics,
		Logger:      a.ports.Logger,
	})
	if err != nil {
		return fmt.Errorf("create notification use case: %w", err)
	}
	a.notificationUseCase = notificationUseCase
	a.slotCache.SetObserver(notificationUseCase)

	schedulerUseCase, err := scheduler.NewUseCase(scheduler.UseCaseDependencies{
		Refresher: a.availabilityUseCase,
		Stations:  a.stationUseCase,
		Keys:      a.slotCache,
		Favorites: subscriptionUseCase,
		Config:    a.ports.ConfigProvider,
		Metrics:   a.ports.Metrics,
		Logger:    a.ports.Logger,
	})
	if err != nil {
		return fmt.Errorf("create scheduler use case: %w", err)
	}
	a.schedulerUseCase = schedulerUseCase
	return nil
}

func (a *Application) initializeAdapters() error {
	slog.Info("Initializing adapters...")

	upstreamCfg := a.ports.ConfigProvider.GetUpstreamConfig()
	storeCfg := a.ports.ConfigProvider.GetStoreConfig()

	systemHealthChecker := infrastructure.NewSystemHealthChecker(infrastructure.SystemHealthCheckerConfig{
		Checkers: map[string]ports.HealthChecker{
			"store": infrastructure.NewPingHealthChecker("store", a.deps.StorePinger(), map[string]interface{}{
				"type":     storeCfg.Type,
				"location": storeCfg.Location,
			}),
			"cache": infrastructure.NewPingHealthChecker("cache", a.deps.CachePinger(), map[string]interface{}{
				"type": a.config.Cache.Type.String(),
			}),
			"upstream":  infrastructure.NewUpstreamHealthChecker(a.deps.SessionResolver(), upstreamCfg.BaseURL),
			"scheduler": infrastructure.NewSchedulerHealthChecker(a.schedulerUseCase, a.config.Scheduler.Enabled),
		},
		ConfigProvider: a.ports.ConfigProvider,
		Messaging:      a.ports.Messaging,
	})

	metrics := a.deps.Metrics()
	httpAdapter, err := api.NewHTTPServerAdapter(api.ServerOptions{
		Config: api.ServerConfig{
			Port:        a.config.Server.Port,
			CORSOrigins: a.config.Server.CORSOrigins,
		},
		StationUseCase:      a.stationUseCase,
		AppointmentUseCase:  a.availabilityUseCase,
		SubscriptionUseCase: a.subscriptionUseCase,
		NotificationUseCase: a.notificationUseCase,
		MetricsCollector:    metrics,
		HealthChecker:       systemHealthChecker,
		MetricsHandler:      promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}),
	})
	if err != nil {
		return fmt.Errorf("create HTTP adapter: %w", err)
	}

	a.router = httpAdapter.GetRouter()

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      httpAdapter.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("Adapters initialized successfully")
	return nil
}

// Start loads subscribers, starts the scheduler and blocks serving HTTP
func (a *Application) Start(ctx context.Context) error {
	slog.Info("Starting application...")

	if a.httpServer == nil {
		return fmt.Errorf("application was built without an HTTP surface")
	}

	if err := a.subscriptionUseCase.Load(ctx); err != nil {
		// memory stays authoritative; start empty rather than refuse to serve
		slog.Error("Failed to load subscribers", "error", err)
	}

	if a.config.Scheduler.Enabled {
		if err := a.schedulerUseCase.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	} else {
		slog.Info("Background refresh disabled")
	}

	slog.Info("Starting HTTP server", "port", a.config.Server.Port)
	if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	return nil
}

func (a *Application) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down application...")

	if a.schedulerUseCase != nil {
		a.schedulerUseCase.Stop()
	}

	var shutdownErr error
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			slog.Error("Error shutting down HTTP server", "error", err)
			shutdownErr = fmt.Errorf("shutdown HTTP server: %w", err)
		}
	}

	if err := a.deps.Cleanup(); err != nil {
		slog.Warn("Error releasing resources", "error", err)
	}

	slog.Info("Application shutdown complete")
	return shutdownErr
}

// Config returns the application configuration
func (a *Application) Config() *config.Config {
	return a.config
}

// GetRouter returns the Gin router for testing
func (a *Application) GetRouter() *gin.Engine {
	return a.router
}

// GetStationUseCase returns the station use case
func (a *Application) GetStationUseCase() *station.UseCase {
	return a.stationUseCase
}

// GetAvailabilityUseCase returns the availability use case
func (a *Application) GetAvailabilityUseCase() *availability.UseCase {
	return a.availabilityUseCase
}

// GetSubscriptionUseCase returns the subscription use case, nil for CLI applications
func (a *Application) GetSubscriptionUseCase() *subscription.UseCase {
	return a.subscriptionUseCase
}
