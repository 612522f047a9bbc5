package availability

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"citabot.app/internal/ports"
)

// fakeUpstream serves canned month/day data and records how it was called
type fakeUpstream struct {
	mu          sync.Mutex
	months      map[string]ports.MonthAvailability
	days        map[string]ports.DayAvailability
	slotTimes   map[string]string
	dayCalls    []string
	daySessions []string
	monthCalls  int
	latency     time.Duration

	inFlight atomic.Int32
	peak     atomic.Int32
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		months:    map[string]ports.MonthAvailability{},
		days:      map[string]ports.DayAvailability{},
		slotTimes: map[string]string{},
	}
}

func (f *fakeUpstream) enter() func() {
	n := f.inFlight.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.latency > 0 {
		time.Sleep(f.latency)
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeUpstream) ResolveSession(ctx context.Context, stationHint string) ports.SessionContext {
	return ports.SessionContext{InstanceCode: "session-from-resolver-000", Strategy: "fallback"}
}

func (f *fakeUpstream) FetchStations(ctx context.Context, session ports.SessionContext) []ports.StationData {
	return nil
}

func (f *fakeUpstream) FetchMonthAvailability(ctx context.Context, stationID, serviceID string, session ports.SessionContext, month time.Time) ports.MonthAvailability {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.monthCalls++
	return f.months[month.Format("2006-01")]
}

func (f *fakeUpstream) FetchDayAvailability(ctx context.Context, stationID, serviceID string, session ports.SessionContext, date string) ports.DayAvailability {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dayCalls = append(f.dayCalls, date)
	f.daySessions = append(f.daySessions, session.InstanceCode)
	return f.days[date]
}

func (f *fakeUpstream) ResolveSlotTime(ctx context.Context, session ports.SessionContext, slotID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.slotTimes[slotID]
	return t, ok
}

func (f *fakeUpstream) calls() (int, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.monthCalls, append([]string(nil), f.dayCalls...)
}
