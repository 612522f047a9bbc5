package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"citabot.app/internal/core/availability"
	"citabot.app/internal/core/slot"
	"citabot.app/internal/core/slotcache"
	"github.com/gin-gonic/gin"
)

// AppointmentsQuery represents the query string of an appointment lookup
type AppointmentsQuery struct {
	Station      string `form:"station" binding:"required,numeric"`
	Service      string `form:"service" binding:"required,numeric"`
	Count        int    `form:"count" binding:"omitempty,min=0"`
	ForceRefresh bool   `form:"forceRefresh"`
}

type AppointmentsResponse struct {
	Slots     []slot.Slot `json:"slots"`
	Cached    bool        `json:"cached"`
	FetchedAt time.Time   `json:"fetched_at"`
}

type CacheResponse struct {
	Count   int                   `json:"count"`
	Entries []slotcache.EntryStat `json:"entries"`
}

type ClearedResponse struct {
	Cleared int `json:"cleared"`
}

// getAppointments handles GET /api/appointments requests
func (s *HTTPServerAdapter) getAppointments(c *gin.Context) {
	var query AppointmentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		slog.Debug("Appointments query binding error", "error", err)
		s.handleError(c, bindingError(err))
		return
	}

	req := availability.AppointmentsRequest{
		StationID:    query.Station,
		ServiceID:    query.Service,
		Count:        query.Count,
		ForceRefresh: query.ForceRefresh || noCache(c.GetHeader("Cache-Control")),
	}

	result, err := s.appointmentUseCase.GetAppointments(c.Request.Context(), req)
	if err != nil {
		slog.Error("Appointments lookup failed", "station", req.StationID, "service", req.ServiceID, "error", err)
		s.handleError(c, err)
		return
	}

	slots := result.Slots
	if slots == nil {
		slots = []slot.Slot{}
	}
	c.JSON(http.StatusOK, AppointmentsResponse{
		Slots:     slots,
		Cached:    result.Cached,
		FetchedAt: result.FetchedAt,
	})
}

// getCache handles GET /api/cache requests
func (s *HTTPServerAdapter) getCache(c *gin.Context) {
	entries := s.appointmentUseCase.CacheStats()
	if entries == nil {
		entries = []slotcache.EntryStat{}
	}
	c.JSON(http.StatusOK, CacheResponse{Count: len(entries), Entries: entries})
}

// clearCache handles POST /api/cache/clear requests
func (s *HTTPServerAdapter) clearCache(c *gin.Context) {
	c.JSON(http.StatusOK, ClearedResponse{Cleared: s.appointmentUseCase.ClearCache()})
}

func noCache(header string) bool {
	for _, directive := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(directive), "no-cache") {
			return true
		}
	}
	return false
}
