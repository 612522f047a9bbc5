package api

import (
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"citabot.app/pkg/errors"
	"citabot.app/pkg/validation"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators installs the custom binding tags on gin's validator engine
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := v.RegisterValidation("pushtoken", validatePushToken); err != nil {
			registerErr = err
			return
		}
		registerErr = v.RegisterValidation("stationids", validateStationIDs)
	})
	return registerErr
}

func validatePushToken(fl validator.FieldLevel) bool {
	return validation.IsValidPushToken(fl.Field().String())
}

// validateStationIDs checks every element of a string slice
func validateStationIDs(fl validator.FieldLevel) bool {
	ids, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, id := range ids {
		if !validation.IsValidStationID(strings.TrimSpace(id)) {
			return false
		}
	}
	return true
}

// bindingError turns a gin binding failure into a validation error with a readable message
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return errors.NewValidationError("Invalid request format")
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return errors.NewValidationError(fmt.Sprintf("%s is required", field))
	case "pushtoken":
		return errors.NewValidationError(
			fmt.Sprintf("%s must be at least %d characters", field, validation.MinPushTokenLength))
	case "stationids":
		return errors.NewValidationError(fmt.Sprintf("%s must be a list of numeric station ids", field))
	case "numeric":
		return errors.NewValidationError(fmt.Sprintf("%s must be a numeric id", field))
	default:
		return errors.NewValidationError(fmt.Sprintf("%s is invalid", field))
	}
}
