package api

import (
	"log/slog"
	"net/http"

	"citabot.app/internal/core/station"
	"citabot.app/pkg/errors"
	"citabot.app/pkg/validation"
	"github.com/gin-gonic/gin"
)

type StationsResponse struct {
	Stations []station.Station `json:"stations"`
}

type ServicesResponse struct {
	StationID string            `json:"station_id"`
	Services  []station.Service `json:"services"`
}

// listStations handles GET /api/stations requests.
// A failed listing is served as an empty list so clients keep working.
func (s *HTTPServerAdapter) listStations(c *gin.Context) {
	stations, err := s.stationUseCase.ListStations(c.Request.Context())
	if err != nil {
		slog.Warn("Station listing failed", "error", err)
		stations = nil
	}
	if stations == nil {
		stations = []station.Station{}
	}

	c.JSON(http.StatusOK, StationsResponse{Stations: stations})
}

// listServices handles GET /api/stations/:id/services requests
func (s *HTTPServerAdapter) listServices(c *gin.Context) {
	stationID := c.Param("id")
	if !validation.IsValidStationID(stationID) {
		s.handleError(c, errors.NewValidationError("station must be a numeric id"))
		return
	}

	services, err := s.stationUseCase.ServicesFor(c.Request.Context(), stationID)
	if err != nil {
		slog.Debug("Services lookup failed", "station", stationID, "error", err)
		s.handleError(c, err)
		return
	}
	if services == nil {
		services = []station.Service{}
	}

	c.JSON(http.StatusOK, ServicesResponse{StationID: stationID, Services: services})
}
