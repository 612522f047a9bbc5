package api

import (
	"errors"
	"log/slog"
	"net/http"

	errorspkg "citabot.app/pkg/errors"
	"github.com/gin-gonic/gin"
)

// ErrorResponse represents an error message structure for API responses
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleError handles different types of application errors
func (s *HTTPServerAdapter) handleError(c *gin.Context, err error) {
	var appErr *errorspkg.AppError
	if !errors.As(err, &appErr) {
		slog.Error("Unhandled error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}

	switch {
	case errorspkg.IsValidationError(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: appErr.Message})
	case errorspkg.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: appErr.Message})
	case errorspkg.IsAlreadyExistsError(err):
		c.JSON(http.StatusConflict, ErrorResponse{Error: appErr.Message})
	case errorspkg.IsUpstreamError(err):
		slog.Warn("Booking site unavailable", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Booking site unavailable"})
	case errorspkg.IsDeliveryError(err):
		slog.Warn("Notification delivery failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Unable to deliver notification"})
	case errorspkg.IsPersistenceError(err):
		slog.Error("Subscriber store failure", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	case errorspkg.IsConfigurationError(err):
		slog.Error("Misconfigured dependency", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	default:
		slog.Error("Request failed", "path", c.FullPath(), "type", appErr.Type.String(), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}

// getMetrics handles GET /api/metrics requests
func (s *HTTPServerAdapter) getMetrics(c *gin.Context) {
	slog.Debug("Metrics endpoint called")

	metrics, err := s.metricsCollector.GetMetrics(c.Request.Context())
	if err != nil {
		slog.Error("Error getting metrics", "error", err)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, metrics)
}
