// Package ports defines the interfaces for external dependencies in our hexagonal architecture.
// These interfaces are implemented by adapters and mocked for testing.
package ports

// ApplicationPorts aggregates all ports for dependency injection
type ApplicationPorts struct {
	// Upstream booking site
	Upstream UpstreamClient

	// Generic cache for sessions and station listings
	Cache        CacheProvider
	CacheMetrics CacheMetrics

	// Subscribers
	SubscriberStore SubscriberStore

	// Communication
	Messaging MessagingProvider

	// Infrastructure
	ConfigProvider ConfigProvider
	Logger         Logger
	Metrics        MetricsRecorder
	Database       interface{}
}
