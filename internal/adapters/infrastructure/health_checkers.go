package infrastructure

import (
	"context"
	"time"

	"citabot.app/internal/ports"
)

const (
	statusHealthy   = ports.StatusHealthy
	statusDegraded  = ports.StatusDegraded
	statusUnhealthy = ports.StatusUnhealthy
)

// Pinger is anything with a cheap liveness check
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingHealthChecker reports a component healthy when its Ping succeeds
type PingHealthChecker struct {
	component string
	pinger    Pinger
	details   map[string]interface{}
}

func NewPingHealthChecker(component string, pinger Pinger, details map[string]interface{}) *PingHealthChecker {
	return &PingHealthChecker{component: component, pinger: pinger, details: details}
}

func (p *PingHealthChecker) Check(ctx context.Context) ports.HealthStatus {
	status := ports.HealthStatus{Component: p.component, Status: statusHealthy, Details: copyDetails(p.details)}
	if p.pinger == nil {
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.pinger.Ping(ctx); err != nil {
		status.Status = statusUnhealthy
		status.Error = err.Error()
	}
	return status
}

// SessionResolver is the part of the upstream client the health check needs
type SessionResolver interface {
	ResolveSession(ctx context.Context, stationHint string) ports.SessionContext
}

// UpstreamHealthChecker reports how the current booking site session was obtained.
// A missing instance code is degraded, not unhealthy: queries still run without one.
type UpstreamHealthChecker struct {
	upstream SessionResolver
	baseURL  string
}

func NewUpstreamHealthChecker(upstream SessionResolver, baseURL string) *UpstreamHealthChecker {
	return &UpstreamHealthChecker{upstream: upstream, baseURL: baseURL}
}

func (u *UpstreamHealthChecker) Check(ctx context.Context) ports.HealthStatus {
	session := u.upstream.ResolveSession(ctx, "")
	status := ports.HealthStatus{
		Component: "upstream",
		Status:    statusHealthy,
		Details: map[string]interface{}{
			"base_url":          u.baseURL,
			"session_strategy":  session.Strategy,
			"has_instance_code": session.InstanceCode != "",
		},
	}
	if session.InstanceCode == "" {
		status.Status = statusDegraded
	}
	return status
}

// SchedulerState is the part of the refresh scheduler the health check needs
type SchedulerState interface {
	IsRunning() bool
}

type SchedulerHealthChecker struct {
	scheduler SchedulerState
	enabled   bool
}

func NewSchedulerHealthChecker(scheduler SchedulerState, enabled bool) *SchedulerHealthChecker {
	return &SchedulerHealthChecker{scheduler: scheduler, enabled: enabled}
}

func (s *SchedulerHealthChecker) Check(ctx context.Context) ports.HealthStatus {
	running := s.scheduler != nil && s.scheduler.IsRunning()
	status := ports.HealthStatus{
		Component: "scheduler",
		Status:    statusHealthy,
		Details:   map[string]interface{}{"enabled": s.enabled, "running": running},
	}
	if s.enabled && !running {
		status.Status = statusDegraded
	}
	return status
}

func copyDetails(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
