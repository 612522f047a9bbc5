package external

import (
	"context"
	"time"

	"citabot.app/internal/ports"
)

// UpstreamLoggingDecorator decorates the booking site client with structured logging
type UpstreamLoggingDecorator struct {
	client ports.UpstreamClient
	logger ports.Logger
}

// NewUpstreamLoggingDecorator creates a new logging decorator for the upstream client
func NewUpstreamLoggingDecorator(client ports.UpstreamClient, logger ports.Logger) ports.UpstreamClient {
	return &UpstreamLoggingDecorator{
		client: client,
		logger: logger,
	}
}

func (d *UpstreamLoggingDecorator) ResolveSession(ctx context.Context, stationHint string) ports.SessionContext {
	start := time.Now()
	session := d.client.ResolveSession(ctx, stationHint)

	d.logger.Info("Upstream session resolved",
		ports.F("station_hint", stationHint),
		ports.F("strategy", session.Strategy),
		ports.F("has_instance_code", session.InstanceCode != ""),
		ports.F("duration_ms", time.Since(start).Milliseconds()),
		ports.F("event", "session"))
	return session
}

func (d *UpstreamLoggingDecorator) FetchStations(ctx context.Context, session ports.SessionContext) []ports.StationData {
	start := time.Now()
	stations := d.client.FetchStations(ctx, session)

	d.logger.Info("Upstream station listing",
		ports.F("stations", len(stations)),
		ports.F("duration_ms", time.Since(start).Milliseconds()),
		ports.F("event", "stations"))
	return stations
}

func (d *UpstreamLoggingDecorator) FetchMonthAvailability(ctx context.Context, stationID, serviceID string, session ports.SessionContext, month time.Time) ports.MonthAvailability {
	start := time.Now()
	result := d.client.FetchMonthAvailability(ctx, stationID, serviceID, session, month)

	d.logger.Info("Upstream month availability",
		ports.F("station_id", stationID),
		ports.F("service_id", serviceID),
		ports.F("month", month.Format("2006-01")),
		ports.F("open_days", len(result.OpenDays)),
		ports.F("refreshed_instance_code", result.InstanceCode != ""),
		ports.F("duration_ms", time.Since(start).Milliseconds()),
		ports.F("event", "month"))
	return result
}

func (d *UpstreamLoggingDecorator) FetchDayAvailability(ctx context.Context, stationID, serviceID string, session ports.SessionContext, date string) ports.DayAvailability {
	start := time.Now()
	result := d.client.FetchDayAvailability(ctx, stationID, serviceID, session, date)

	d.logger.Info("Upstream day availability",
		ports.F("station_id", stationID),
		ports.F("service_id", serviceID),
		ports.F("date", date),
		ports.F("slots", len(result.SlotIDs)),
		ports.F("duration_ms", time.Since(start).Milliseconds()),
		ports.F("event", "day"))
	return result
}

func (d *UpstreamLoggingDecorator) ResolveSlotTime(ctx context.Context, session ports.SessionContext, slotID string) (string, bool) {
	start := time.Now()
	t, ok := d.client.ResolveSlotTime(ctx, session, slotID)

	d.logger.Debug("Upstream slot time",
		ports.F("slot_id", slotID),
		ports.F("time", t),
		ports.F("resolved", ok),
		ports.F("duration_ms", time.Since(start).Milliseconds()),
		ports.F("event", "slot_time"))
	return t, ok
}
