package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorType_String(t *testing.T) {
	tests := []struct {
		errType  ErrorType
		expected string
	}{
		{ErrorTypeValidation, "VALIDATION_ERROR"},
		{ErrorTypeNotFound, "NOT_FOUND_ERROR"},
		{ErrorTypeAlreadyExists, "ALREADY_EXISTS_ERROR"},
		{ErrorTypePersistence, "PERSISTENCE_ERROR"},
		{ErrorTypeUpstream, "UPSTREAM_ERROR"},
		{ErrorTypeDelivery, "DELIVERY_ERROR"},
		{ErrorTypeConfiguration, "CONFIGURATION_ERROR"},
		{ErrorTypeUnknown, "UNKNOWN_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.errType.String())
		})
	}
}

func TestAppError_Error(t *testing.T) {
	err := NewValidationError("token is too short")
	assert.Equal(t, "VALIDATION_ERROR: token is too short", err.Error())

	cause := fmt.Errorf("disk full")
	wrapped := NewPersistenceError("failed to save subscribers", cause)
	assert.Equal(t, "PERSISTENCE_ERROR: failed to save subscribers (caused by: disk full)", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestTypeHelpers_FollowWrappedChain(t *testing.T) {
	err := fmt.Errorf("update favorites: %w", NewNotFoundError("subscriber not found"))

	assert.True(t, IsNotFoundError(err))
	assert.False(t, IsValidationError(err))
	assert.Equal(t, ErrorTypeNotFound, TypeOf(err))
}

func TestTypeHelpers(t *testing.T) {
	assert.True(t, IsValidationError(NewValidationError("x")))
	assert.True(t, IsAlreadyExistsError(NewAlreadyExistsError("x")))
	assert.True(t, IsPersistenceError(NewPersistenceError("x", nil)))
	assert.True(t, IsUpstreamError(NewUpstreamError("x", nil)))
	assert.True(t, IsDeliveryError(NewDeliveryError("x", nil)))
	assert.True(t, IsConfigurationError(NewConfigurationError("x", nil)))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(fmt.Errorf("plain")))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(nil))
}
