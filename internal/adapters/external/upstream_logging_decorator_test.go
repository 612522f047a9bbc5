package external

import (
	"context"
	"testing"
	"time"

	"citabot.app/internal/mocks"
	"citabot.app/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUpstreamLoggingDecorator_PassesThroughAndLogs(t *testing.T) {
	upstream := mocks.NewUpstreamClient(t)
	logger := mocks.NewLogger(t)
	decorated := NewUpstreamLoggingDecorator(upstream, logger)
	ctx := context.Background()
	session := ports.SessionContext{InstanceCode: "abc", Strategy: StrategyFallback}
	month := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	upstream.On("ResolveSession", mock.Anything, "21").Return(session).Once()
	upstream.On("FetchMonthAvailability", mock.Anything, "21", "323", session, month).
		Return(ports.MonthAvailability{OpenDays: []string{"2025-09-10"}}).Once()
	upstream.On("FetchDayAvailability", mock.Anything, "21", "323", session, "2025-09-10").
		Return(ports.DayAvailability{SlotIDs: []string{"08:00"}}).Once()
	upstream.On("ResolveSlotTime", mock.Anything, session, "a3f9").Return("09:00", true).Once()

	assert.Equal(t, session, decorated.ResolveSession(ctx, "21"))
	assert.Equal(t, []string{"2025-09-10"}, decorated.FetchMonthAvailability(ctx, "21", "323", session, month).OpenDays)
	assert.Equal(t, []string{"08:00"}, decorated.FetchDayAvailability(ctx, "21", "323", session, "2025-09-10").SlotIDs)
	got, ok := decorated.ResolveSlotTime(ctx, session, "a3f9")
	assert.True(t, ok)
	assert.Equal(t, "09:00", got)

	entries := logger.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, "session", entries[0].Fields["event"])
	assert.Equal(t, "2025-09", entries[1].Fields["month"])
	assert.Equal(t, 1, entries[2].Fields["slots"])
	assert.Equal(t, "DEBUG", entries[3].Level)
	assert.Contains(t, entries[0].Fields, "duration_ms")
}
