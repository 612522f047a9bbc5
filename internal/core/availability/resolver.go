// Package availability flattens the booking site's month and day disclosure
// protocol into an ordered list of slots.
package availability

import (
	"context"
	"sort"
	"time"

	"citabot.app/internal/core/slot"
	"citabot.app/internal/core/station"
	"citabot.app/internal/ports"
	"citabot.app/pkg/validation"
)

const (
	DefaultHorizonMonths = 2
	DefaultCount         = 3
)

// StationStatus reports what the station listing knows about a station
type StationStatus interface {
	AvailabilityStatus(ctx context.Context, stationID string) station.Availability
}

type Resolver struct {
	upstream ports.UpstreamClient
	stations StationStatus
	logger   ports.Logger
	now      func() time.Time
}

type ResolverOptions struct {
	Upstream ports.UpstreamClient
	Stations StationStatus
	Logger   ports.Logger
	Now      func() time.Time
}

func NewResolver(opts ResolverOptions) *Resolver {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Resolver{
		upstream: opts.Upstream,
		stations: opts.Stations,
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// ListNextSlots returns up to maxSlots upcoming slots for the pair, earliest first.
// The only error it reports is cancellation of ctx.
func (r *Resolver) ListNextSlots(ctx context.Context, stationID, serviceID string, maxSlots, horizonMonths int) ([]slot.Slot, error) {
	if maxSlots <= 0 {
		return []slot.Slot{}, nil
	}
	if horizonMonths <= 0 {
		horizonMonths = DefaultHorizonMonths
	}

	if r.stations != nil && r.stations.AvailabilityStatus(ctx, stationID) == station.AvailabilityConfirmedEmpty {
		r.logger.Debug("Station has no availability, skipping upstream",
			ports.F("station_id", stationID), ports.F("service_id", serviceID))
		return []slot.Slot{}, nil
	}

	now := r.now()
	firstMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	today := now.Format(time.DateOnly)
	horizonEnd := firstMonth.AddDate(0, horizonMonths, -1).Format(time.DateOnly)

	session := r.upstream.ResolveSession(ctx, stationID)
	slots := make([]slot.Slot, 0, maxSlots)
	// lanes of the same day can offer the same time
	seen := make(map[string]struct{})

	for offset := 0; offset < horizonMonths; offset++ {
		if err := ctx.Err(); err != nil {
			return slots, err
		}

		month := firstMonth.AddDate(0, offset, 0)
		monthData := r.upstream.FetchMonthAvailability(ctx, stationID, serviceID, session, month)

		daySession := session
		if monthData.InstanceCode != "" {
			daySession.InstanceCode = monthData.InstanceCode
		}

		for _, date := range openDates(monthData.OpenDays, today, horizonEnd) {
			if err := ctx.Err(); err != nil {
				return slots, err
			}

			day := r.upstream.FetchDayAvailability(ctx, stationID, serviceID, daySession, date)
			daySlots := make([]slot.Slot, 0, len(day.SlotIDs))
			for _, id := range day.SlotIDs {
				if isPlaceholderValue(id) {
					continue
				}
				clock, ok := r.slotTime(ctx, daySession, id)
				if !ok {
					continue
				}

				s := slot.Slot{Date: date, Time: clock, StationID: stationID, ServiceID: serviceID}
				if _, dup := seen[s.ID()]; dup {
					continue
				}
				seen[s.ID()] = struct{}{}
				if price, ok := day.Prices[id]; ok {
					p := price
					s.Price = &p
				} else if monthData.BasePrice != nil {
					p := *monthData.BasePrice
					s.Price = &p
				}
				daySlots = append(daySlots, s)
			}

			slot.Sort(daySlots)
			for _, s := range daySlots {
				slots = append(slots, s)
				if len(slots) >= maxSlots {
					return slots, nil
				}
			}
		}
	}

	slot.Sort(slots)
	return slots, nil
}

// slotTime turns a slot identifier into HH:MM, asking the site when the
// identifier is opaque
func (r *Resolver) slotTime(ctx context.Context, session ports.SessionContext, id string) (string, bool) {
	if validation.IsClockTime(id) {
		return id[:5], true
	}

	resolved, ok := r.upstream.ResolveSlotTime(ctx, session, id)
	if !ok || isPlaceholderValue(resolved) || !validation.IsClockTime(resolved) {
		r.logger.Debug("Dropping unresolvable slot", ports.F("slot_id", id))
		return "", false
	}
	return resolved[:5], true
}

// openDates keeps well-formed dates inside [from, to], ascending and unique
func openDates(raw []string, from, to string) []string {
	seen := make(map[string]struct{}, len(raw))
	dates := make([]string, 0, len(raw))
	for _, d := range raw {
		if isPlaceholderValue(d) || !validation.IsISODate(d) {
			continue
		}
		if d < from || d > to {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// isPlaceholderValue reports whether the site used a value to mean "nothing here".
// The site pads day and hour lists with entries such as "n0", "n1"; this is an
// observed convention, not a documented one.
func isPlaceholderValue(v string) bool {
	return v == "" || v[0] == 'n'
}
