package infrastructure

import (
	"context"
	"strconv"
	"time"

	"citabot.app/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "citabot"

// PrometheusMetrics implements ports.MetricsRecorder on its own registry so
// tests and multiple instances never collide on the global one
type PrometheusMetrics struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	upstreamInFlight prometheus.Gauge
	slotCacheLookups *prometheus.CounterVec
	trackedKeys      prometheus.Gauge
	notifications    *prometheus.CounterVec
	refreshDuration  prometheus.Histogram
	refreshKeys      prometheus.Gauge
	refreshFailures  prometheus.Counter
}

func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		registry: registry,
		upstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "upstream_requests_total",
			Help:      "Requests sent to the booking site by module and outcome",
		}, []string{"module", "success"}),
		upstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Booking site request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"module"}),
		upstreamInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "upstream_in_flight",
			Help:      "Availability resolutions currently holding a permit",
		}),
		slotCacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "slot_cache_lookups_total",
			Help:      "Slot cache lookups by result",
		}, []string{"result"}),
		trackedKeys: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "slot_cache_tracked_keys",
			Help:      "Station and service pairs held in the slot cache",
		}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "notifications_total",
			Help:      "Push notifications by outcome",
		}, []string{"outcome"}),
		refreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "refresh_pass_duration_seconds",
			Help:      "Duration of background refresh passes",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		refreshKeys: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "refresh_pass_keys",
			Help:      "Keys visited by the last refresh pass",
		}),
		refreshFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "refresh_failures_total",
			Help:      "Keys whose refresh failed",
		}),
	}
}

// Registry exposes the registry for the /metrics handler
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PrometheusMetrics) RecordUpstreamRequest(module string, success bool, duration time.Duration) {
	m.upstreamRequests.WithLabelValues(module, strconv.FormatBool(success)).Inc()
	m.upstreamLatency.WithLabelValues(module).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) TrackUpstreamInFlight(delta int) {
	m.upstreamInFlight.Add(float64(delta))
}

func (m *PrometheusMetrics) RecordSlotCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.slotCacheLookups.WithLabelValues(result).Inc()
}

func (m *PrometheusMetrics) RecordTrackedKeys(count int) {
	m.trackedKeys.Set(float64(count))
}

func (m *PrometheusMetrics) RecordNotification(outcome string) {
	m.notifications.WithLabelValues(outcome).Inc()
}

func (m *PrometheusMetrics) RecordRefreshPass(duration time.Duration, keys, failures int) {
	m.refreshDuration.Observe(duration.Seconds())
	m.refreshKeys.Set(float64(keys))
	m.refreshFailures.Add(float64(failures))
}

// GetMetrics summarizes this application's series as plain numbers
func (m *PrometheusMetrics) GetMetrics(ctx context.Context) (map[string]interface{}, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	out := make(map[string]interface{})
	prefix := metricsNamespace + "_"
	for _, mf := range families {
		name := mf.GetName()
		if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		var total float64
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				total += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				total += metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				total += float64(metric.GetHistogram().GetSampleCount())
			}
		}
		out[name[len(prefix):]] = total
	}
	return out, nil
}

var (
	_ ports.MetricsRecorder  = (*PrometheusMetrics)(nil)
	_ ports.MetricsCollector = (*PrometheusMetrics)(nil)
)
