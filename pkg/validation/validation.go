package validation

import (
	"regexp"
	"strings"
	"time"
)

// MinPushTokenLength is the shortest device token accepted for registration
const MinPushTokenLength = 10

var (
	numericIDRegex = regexp.MustCompile(`^[0-9]+$`)
	clockRegex     = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9])?$`)
)

// IsNotEmpty checks if string is not empty after trimming
func IsNotEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

// TrimAndValidate trims string and validates it's not empty
func TrimAndValidate(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	return trimmed, trimmed != ""
}

// IsValidPushToken checks the minimum shape of a device push token
func IsValidPushToken(token string) bool {
	return len(strings.TrimSpace(token)) >= MinPushTokenLength
}

// IsValidStationID checks that a station identifier is numeric
func IsValidStationID(id string) bool {
	return numericIDRegex.MatchString(id)
}

// IsValidServiceID checks that a service code is numeric
func IsValidServiceID(id string) bool {
	return numericIDRegex.MatchString(id)
}

// IsISODate checks YYYY-MM-DD
func IsISODate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// IsClockTime checks HH:MM with optional seconds
func IsClockTime(s string) bool {
	return clockRegex.MatchString(s)
}
