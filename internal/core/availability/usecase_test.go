package availability

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"citabot.app/internal/core/limiter"
	"citabot.app/internal/core/slot"
	"citabot.app/internal/core/slotcache"
	"citabot.app/internal/core/station"
	"citabot.app/internal/mocks"
	"citabot.app/internal/ports"
	"citabot.app/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	uc       *UseCase
	upstream *fakeUpstream
	cache    *slotcache.Cache
	limiter  *limiter.Limiter
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()

	up := newFakeUpstream()
	cfg := mocks.NewConfigProvider(t)
	cfg.On("GetUpstreamConfig").Return(ports.UpstreamConfig{HorizonMonths: 2}).Maybe()

	cache := slotcache.New(slotcache.Options{TTL: time.Hour, MaxSlots: 10})
	lim := limiter.New(capacity, nil)

	uc, err := NewUseCase(UseCaseDependencies{
		Resolver: newTestResolver(t, up, station.AvailabilityUnknown),
		Cache:    cache,
		Limiter:  lim,
		Config:   cfg,
		Logger:   mocks.NewLogger(t),
	})
	require.NoError(t, err)

	return &fixture{uc: uc, upstream: up, cache: cache, limiter: lim}
}

func TestNewUseCase_RequiresDependencies(t *testing.T) {
	_, err := NewUseCase(UseCaseDependencies{})
	assert.True(t, errors.IsValidationError(err))
}

func TestUseCase_GetAppointments_LiveFetchPopulatesCache(t *testing.T) {
	f := newFixture(t, 2)
	f.upstream.months["2025-09"] = ports.MonthAvailability{OpenDays: []string{"2025-09-10", "2025-09-11"}}
	f.upstream.days["2025-09-10"] = ports.DayAvailability{SlotIDs: []string{"08:00", "08:20", "08:40"}}
	f.upstream.days["2025-09-11"] = ports.DayAvailability{SlotIDs: []string{"09:00", "09:20"}}

	key := slot.NewKey("21", "323")
	_, _, cached := f.cache.Get(key)
	require.False(t, cached)

	res, err := f.uc.GetAppointments(context.Background(), AppointmentsRequest{StationID: "21", ServiceID: "323", Count: 3})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Len(t, res.Slots, 3)
	assert.False(t, res.FetchedAt.IsZero())

	slots, fetchedAt, ok := f.cache.Get(key)
	require.True(t, ok)
	assert.Len(t, slots, 5, "the cache keeps up to its own capacity, not the requested count")
	assert.Equal(t, res.FetchedAt, fetchedAt)

	again, err := f.uc.GetAppointments(context.Background(), AppointmentsRequest{StationID: "21", ServiceID: "323", Count: 3})
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, res.Slots, again.Slots)

	months, _ := f.upstream.calls()
	assert.Equal(t, 2, months, "second request is served from cache")
}

func TestUseCase_GetAppointments_ForceRefreshBypassesCache(t *testing.T) {
	f := newFixture(t, 2)
	f.upstream.months["2025-09"] = ports.MonthAvailability{OpenDays: []string{"2025-09-10"}}
	f.upstream.days["2025-09-10"] = ports.DayAvailability{SlotIDs: []string{"08:00"}}

	req := AppointmentsRequest{StationID: "21", ServiceID: "323"}
	first, err := f.uc.GetAppointments(context.Background(), req)
	require.NoError(t, err)

	req.ForceRefresh = true
	second, err := f.uc.GetAppointments(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, second.Cached)
	assert.True(t, second.FetchedAt.After(first.FetchedAt))
}

func TestUseCase_GetAppointments_Validation(t *testing.T) {
	f := newFixture(t, 2)

	tests := []struct {
		name string
		req  AppointmentsRequest
	}{
		{"missing station", AppointmentsRequest{ServiceID: "323"}},
		{"non numeric station", AppointmentsRequest{StationID: "abc", ServiceID: "323"}},
		{"missing service", AppointmentsRequest{StationID: "21"}},
		{"negative count", AppointmentsRequest{StationID: "21", ServiceID: "323", Count: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.GetAppointments(context.Background(), tt.req)
			assert.True(t, errors.IsValidationError(err))
		})
	}
}

func TestUseCase_GetAppointments_BoundsUpstreamConcurrency(t *testing.T) {
	const capacity = 2
	f := newFixture(t, capacity)
	f.upstream.latency = 5 * time.Millisecond
	f.upstream.months["2025-09"] = ports.MonthAvailability{OpenDays: []string{"2025-09-10"}}
	f.upstream.days["2025-09-10"] = ports.DayAvailability{SlotIDs: []string{"08:00"}}

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.uc.GetAppointments(context.Background(), AppointmentsRequest{
				StationID: fmt.Sprintf("%d", i+1),
				ServiceID: "259",
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, int(f.upstream.peak.Load()), capacity)
	assert.Equal(t, 0, f.limiter.InFlight())
}

func TestUseCase_ClearCache(t *testing.T) {
	f := newFixture(t, 2)
	f.cache.Set(context.Background(), slot.NewKey("21", "259"), nil)
	f.cache.Set(context.Background(), slot.NewKey("21", "260"), nil)

	assert.Len(t, f.uc.CacheStats(), 2)
	assert.Equal(t, 2, f.uc.ClearCache())
	assert.Empty(t, f.uc.CacheStats())
}
