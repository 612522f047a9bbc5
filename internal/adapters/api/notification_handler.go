package api

import (
	"log/slog"
	"net/http"

	"citabot.app/internal/core/notification"
	"citabot.app/internal/ports"
	"github.com/gin-gonic/gin"
)

// TestNotificationRequest asks for one synthetic notification
type TestNotificationRequest struct {
	Token string `json:"token" binding:"required,pushtoken"`
}

type TestNotificationResponse struct {
	Message string             `json:"message"`
	Event   notification.Event `json:"event"`
}

type NotificationStatsResponse struct {
	Mode string `json:"mode"`
	notification.Stats
}

type HealthResponse struct {
	Status     string                        `json:"status"`
	Components map[string]ports.HealthStatus `json:"components"`
}

// sendTestNotification handles POST /api/notifications/test requests
func (s *HTTPServerAdapter) sendTestNotification(c *gin.Context) {
	var httpReq TestNotificationRequest
	if err := c.ShouldBindJSON(&httpReq); err != nil {
		slog.Debug("Request binding error", "error", err)
		s.handleError(c, bindingError(err))
		return
	}

	event, err := s.notificationUseCase.SendTest(c.Request.Context(), httpReq.Token)
	if err != nil {
		slog.Warn("Test notification failed", "error", err)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, TestNotificationResponse{Message: "Test notification sent", Event: *event})
}

// getNotificationStats handles GET /api/notifications/stats requests
func (s *HTTPServerAdapter) getNotificationStats(c *gin.Context) {
	c.JSON(http.StatusOK, NotificationStatsResponse{
		Mode:  s.notificationUseCase.Mode().String(),
		Stats: s.notificationUseCase.GetStats(),
	})
}

// getHealth handles GET /api/health requests
func (s *HTTPServerAdapter) getHealth(c *gin.Context) {
	components := s.healthChecker.CheckAll(c.Request.Context())
	status := ports.OverallStatus(components)

	code := http.StatusOK
	if status == ports.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, HealthResponse{Status: status, Components: components})
}
