package notification

import (
	"fmt"
	"strings"
)

// Mode selects who is told about new slots
type Mode int

const (
	ModeUnknown Mode = iota
	// ModeSubscriber diffs against each subscriber's own history
	ModeSubscriber
	// ModeFavorites diffs globally and targets devices favoriting the station
	ModeFavorites
	// ModeBroadcast diffs globally and targets every device
	ModeBroadcast
)

func (m Mode) String() string {
	switch m {
	case ModeSubscriber:
		return "subscriber"
	case ModeFavorites:
		return "favorites"
	case ModeBroadcast:
		return "broadcast"
	default:
		return "unknown"
	}
}

func (m Mode) IsValid() bool {
	return m == ModeSubscriber || m == ModeFavorites || m == ModeBroadcast
}

// ModeFromString converts a NOTIFICATION_MODE value, defaulting to subscriber
func ModeFromString(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "subscriber":
		return ModeSubscriber
	case "favorites":
		return ModeFavorites
	case "broadcast":
		return ModeBroadcast
	default:
		return ModeUnknown
	}
}

const DefaultTitle = "Cita Previa"

// Event announces one newly available slot
type Event struct {
	ID          string `json:"event_id"`
	StationID   string `json:"station_id"`
	ServiceID   string `json:"service_id"`
	StationName string `json:"station_name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

// Body renders the human-readable notification text
func (e Event) Body() string {
	return fmt.Sprintf("%s: %s %s", e.StationName, e.Date, e.Time)
}

// Data is the machine-readable payload delivered alongside the text
func (e Event) Data() map[string]string {
	return map[string]string{
		"event_id":     e.ID,
		"station_id":   e.StationID,
		"service_id":   e.ServiceID,
		"station_name": e.StationName,
		"date":         e.Date,
		"time":         e.Time,
	}
}

// Stats counts delivery outcomes since start
type Stats struct {
	Sent          int64  `json:"sent"`
	Failed        int64  `json:"failed"`
	RemovedTokens int64  `json:"removed_tokens"`
	LastError     string `json:"last_error,omitempty"`
}
