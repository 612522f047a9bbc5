package api

import (
	"log/slog"
	"net/http"

	"citabot.app/internal/core/subscription"
	"citabot.app/pkg/errors"
	"github.com/gin-gonic/gin"
)

// RegisterRequest represents the HTTP request for registering a device
type RegisterRequest struct {
	Token     string    `json:"token" binding:"required,pushtoken"`
	UserID    *string   `json:"userId"`
	Favorites *[]string `json:"favorites" binding:"omitempty,stationids"`
}

// FavoritesRequest replaces a subscriber's favorite stations
type FavoritesRequest struct {
	Favorites []string `json:"favorites" binding:"stationids"`
}

// SuccessResponse represents a successful HTTP response
type SuccessResponse struct {
	Message string `json:"message"`
}

type SubscriptionsResponse struct {
	Count  int      `json:"count"`
	Tokens []string `json:"tokens"`
}

// register handles POST /api/subscriptions requests
func (s *HTTPServerAdapter) register(c *gin.Context) {
	var httpReq RegisterRequest
	slog.Debug("Handling registration request")

	if err := c.ShouldBindJSON(&httpReq); err != nil {
		slog.Debug("Request binding error", "error", err)
		s.handleError(c, bindingError(err))
		return
	}

	created, err := s.subscriptionUseCase.Register(c.Request.Context(), subscription.RegisterParams{
		Token:     httpReq.Token,
		UserID:    httpReq.UserID,
		Favorites: httpReq.Favorites,
	})
	if err != nil {
		slog.Error("Registration error", "error", err)
		s.handleError(c, err)
		return
	}

	if created {
		c.JSON(http.StatusCreated, SuccessResponse{Message: "Subscriber registered"})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Subscriber updated"})
}

// listSubscriptions handles GET /api/subscriptions requests
func (s *HTTPServerAdapter) listSubscriptions(c *gin.Context) {
	tokens := s.subscriptionUseCase.Tokens()
	if tokens == nil {
		tokens = []string{}
	}
	c.JSON(http.StatusOK, SubscriptionsResponse{Count: len(tokens), Tokens: tokens})
}

// unregister handles DELETE /api/subscriptions/:token requests
func (s *HTTPServerAdapter) unregister(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		s.handleError(c, errors.NewValidationError("token parameter is required"))
		return
	}

	if !s.subscriptionUseCase.Unregister(c.Request.Context(), token) {
		s.handleError(c, errors.NewNotFoundError("subscriber not found"))
		return
	}

	slog.Debug("Subscriber removed", "token", token)
	c.JSON(http.StatusOK, SuccessResponse{Message: "Subscriber removed"})
}

// updateFavorites handles POST /api/subscriptions/:token/favorites requests
func (s *HTTPServerAdapter) updateFavorites(c *gin.Context) {
	token := c.Param("token")

	var httpReq FavoritesRequest
	if err := c.ShouldBindJSON(&httpReq); err != nil {
		slog.Debug("Request binding error", "error", err)
		s.handleError(c, bindingError(err))
		return
	}
	if httpReq.Favorites == nil {
		httpReq.Favorites = []string{}
	}

	if err := s.subscriptionUseCase.UpdateFavorites(c.Request.Context(), token, httpReq.Favorites); err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Favorites updated"})
}

// clearHistory handles DELETE /api/subscriptions/:token/history requests
func (s *HTTPServerAdapter) clearHistory(c *gin.Context) {
	cleared, err := s.subscriptionUseCase.ClearHistory(c.Request.Context(), c.Param("token"))
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ClearedResponse{Cleared: cleared})
}
