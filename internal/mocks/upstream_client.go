package mocks

import (
	"context"
	"time"

	"citabot.app/internal/ports"
	"github.com/stretchr/testify/mock"
)

// UpstreamClient is a testify mock for ports.UpstreamClient
type UpstreamClient struct {
	mock.Mock
}

func NewUpstreamClient(t testingT) *UpstreamClient {
	m := &UpstreamClient{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *UpstreamClient) ResolveSession(ctx context.Context, stationHint string) ports.SessionContext {
	args := m.Called(ctx, stationHint)
	return args.Get(0).(ports.SessionContext)
}

func (m *UpstreamClient) FetchStations(ctx context.Context, session ports.SessionContext) []ports.StationData {
	args := m.Called(ctx, session)
	if v := args.Get(0); v != nil {
		return v.([]ports.StationData)
	}
	return nil
}

func (m *UpstreamClient) FetchMonthAvailability(ctx context.Context, stationID, serviceID string, session ports.SessionContext, month time.Time) ports.MonthAvailability {
	args := m.Called(ctx, stationID, serviceID, session, month)
	return args.Get(0).(ports.MonthAvailability)
}

func (m *UpstreamClient) FetchDayAvailability(ctx context.Context, stationID, serviceID string, session ports.SessionContext, date string) ports.DayAvailability {
	args := m.Called(ctx, stationID, serviceID, session, date)
	return args.Get(0).(ports.DayAvailability)
}

func (m *UpstreamClient) ResolveSlotTime(ctx context.Context, session ports.SessionContext, slotID string) (string, bool) {
	args := m.Called(ctx, session, slotID)
	return args.String(0), args.Bool(1)
}
