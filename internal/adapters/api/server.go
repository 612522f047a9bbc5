// Package api provides HTTP adapters for the hexagonal architecture
// These adapters handle incoming HTTP requests and translate them to use cases
package api

import (
	"context"
	"fmt"
	"net/http"

	"citabot.app/internal/core/availability"
	"citabot.app/internal/core/notification"
	"citabot.app/internal/core/slotcache"
	"citabot.app/internal/core/station"
	"citabot.app/internal/core/subscription"
	"citabot.app/internal/ports"
	"citabot.app/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port        int
	CORSOrigins []string
}

// HTTPServerAdapter implements HTTP server using Gin framework
type HTTPServerAdapter struct {
	router              *gin.Engine
	config              ServerConfig
	stationUseCase      StationUseCase
	appointmentUseCase  AppointmentUseCase
	subscriptionUseCase SubscriptionUseCase
	notificationUseCase NotificationUseCase
	metricsCollector    ports.MetricsCollector
	healthChecker       ports.SystemHealthChecker
	metricsHandler      http.Handler
}

// Use case interfaces that the HTTP adapter depends on
type StationUseCase interface {
	ListStations(ctx context.Context) ([]station.Station, error)
	ServicesFor(ctx context.Context, stationID string) ([]station.Service, error)
}

type AppointmentUseCase interface {
	GetAppointments(ctx context.Context, req availability.AppointmentsRequest) (*availability.AppointmentsResult, error)
	CacheStats() []slotcache.EntryStat
	ClearCache() int
}

type SubscriptionUseCase interface {
	Register(ctx context.Context, params subscription.RegisterParams) (bool, error)
	Unregister(ctx context.Context, token string) bool
	UpdateFavorites(ctx context.Context, token string, favorites []string) error
	ClearHistory(ctx context.Context, token string) (int, error)
	Count() int
	Tokens() []string
}

type NotificationUseCase interface {
	SendTest(ctx context.Context, token string) (*notification.Event, error)
	GetStats() notification.Stats
	Mode() notification.Mode
}

// ServerOptions represents options for creating the HTTP server
type ServerOptions struct {
	Config              ServerConfig
	StationUseCase      StationUseCase
	AppointmentUseCase  AppointmentUseCase
	SubscriptionUseCase SubscriptionUseCase
	NotificationUseCase NotificationUseCase
	MetricsCollector    ports.MetricsCollector
	HealthChecker       ports.SystemHealthChecker
	// MetricsHandler serves /metrics; nothing is mounted when nil
	MetricsHandler http.Handler
}

// NewHTTPServerAdapter creates a new HTTP server adapter
func NewHTTPServerAdapter(opts ServerOptions) (*HTTPServerAdapter, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server options: %w", err)
	}
	if err := RegisterValidators(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	server := &HTTPServerAdapter{
		router:              router,
		config:              opts.Config,
		stationUseCase:      opts.StationUseCase,
		appointmentUseCase:  opts.AppointmentUseCase,
		subscriptionUseCase: opts.SubscriptionUseCase,
		notificationUseCase: opts.NotificationUseCase,
		metricsCollector:    opts.MetricsCollector,
		healthChecker:       opts.HealthChecker,
		metricsHandler:      opts.MetricsHandler,
	}

	server.setupRoutes()
	return server, nil
}

// Validate checks if all required dependencies are provided
func (opts *ServerOptions) Validate() error {
	if opts.StationUseCase == nil {
		return errors.NewValidationError("station use case is required")
	}
	if opts.AppointmentUseCase == nil {
		return errors.NewValidationError("appointment use case is required")
	}
	if opts.SubscriptionUseCase == nil {
		return errors.NewValidationError("subscription use case is required")
	}
	if opts.NotificationUseCase == nil {
		return errors.NewValidationError("notification use case is required")
	}
	if opts.MetricsCollector == nil {
		return errors.NewValidationError("metrics collector is required")
	}
	if opts.HealthChecker == nil {
		return errors.NewValidationError("health checker is required")
	}
	return nil
}

// setupRoutes configures all HTTP routes
func (s *HTTPServerAdapter) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/stations", s.listStations)
		api.GET("/stations/:id/services", s.listServices)

		api.GET("/appointments", s.getAppointments)

		api.POST("/subscriptions", s.register)
		api.GET("/subscriptions", s.listSubscriptions)
		api.DELETE("/subscriptions/:token", s.unregister)
		api.POST("/subscriptions/:token/favorites", s.updateFavorites)
		api.DELETE("/subscriptions/:token/history", s.clearHistory)

		api.GET("/cache", s.getCache)
		api.POST("/cache/clear", s.clearCache)

		api.POST("/notifications/test", s.sendTestNotification)
		api.GET("/notifications/stats", s.getNotificationStats)

		api.GET("/health", s.getHealth)
		api.GET("/metrics", s.getMetrics)
	}

	if s.metricsHandler != nil {
		s.router.GET("/metrics", gin.WrapH(s.metricsHandler))
	}
}

// Handler returns the router wrapped with CORS handling
func (s *HTTPServerAdapter) Handler() http.Handler {
	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Cache-Control"},
	})
	return c.Handler(s.router)
}

// GetRouter returns the router for testing purposes
func (s *HTTPServerAdapter) GetRouter() *gin.Engine {
	return s.router
}
