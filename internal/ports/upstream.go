package ports

import (
	"context"
	"time"
)

// SessionContext carries the opaque instance identifier the booking site
// requires on every availability call. An empty InstanceCode is valid and
// means the site is queried without one.
type SessionContext struct {
	InstanceCode string
	Strategy     string
	ResolvedAt   time.Time
}

// StationData is one store as listed by the booking site
type StationData struct {
	StationID    string
	Name         string
	Province     string
	Type         string
	Address      string
	InstanceCode string
	// FirstAvailability is nil when the site omitted the field
	FirstAvailability *string
}

// MonthAvailability is the normalized serviceMonthData payload
type MonthAvailability struct {
	OpenDays     []string
	BasePrice    *float64
	InstanceCode string
}

// DayAvailability is the normalized serviceDayData payload
type DayAvailability struct {
	SlotIDs []string
	Prices  map[string]float64
}

// UpstreamClient talks to the booking site's AJAX modules. Implementations
// swallow transport and decode failures and return empty results instead.
type UpstreamClient interface {
	ResolveSession(ctx context.Context, stationHint string) SessionContext
	FetchStations(ctx context.Context, session SessionContext) []StationData
	FetchMonthAvailability(ctx context.Context, stationID, serviceID string, session SessionContext, month time.Time) MonthAvailability
	FetchDayAvailability(ctx context.Context, stationID, serviceID string, session SessionContext, date string) DayAvailability
	ResolveSlotTime(ctx context.Context, session SessionContext, slotID string) (string, bool)
}
