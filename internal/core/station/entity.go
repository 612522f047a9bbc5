package station

import (
	"strings"
	"time"
)

// Station types as named by the booking site
const (
	TypeFixed        = "Estaciones fijas"
	TypeMobile       = "Estaciones móviles"
	TypeAgricultural = "Estaciones agrícolas"
)

// Station is one inspection centre
type Station struct {
	ID                string       `json:"station_id"`
	Name              string       `json:"name"`
	Province          string       `json:"province"`
	Type              string       `json:"type"`
	Address           string       `json:"address"`
	FirstAvailability string       `json:"first_availability,omitempty"`
	Availability      Availability `json:"availability"`
}

// Service is one inspection product offered at a station
type Service struct {
	ID       string `json:"service_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Availability is the station-level hint about whether any slot exists
type Availability int

const (
	AvailabilityUnknown Availability = iota
	AvailabilityHasSlots
	AvailabilityConfirmedEmpty
)

func (a Availability) String() string {
	switch a {
	case AvailabilityHasSlots:
		return "has_slots"
	case AvailabilityConfirmedEmpty:
		return "confirmed_empty"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (a Availability) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Availability) UnmarshalText(text []byte) error {
	switch string(text) {
	case "has_slots":
		*a = AvailabilityHasSlots
	case "confirmed_empty":
		*a = AvailabilityConfirmedEmpty
	default:
		*a = AvailabilityUnknown
	}
	return nil
}

// ClassifyFirstAvailability maps the site's first_availability field.
// A missing field says nothing; an empty or placeholder value means the
// station has no open day; a date means it has at least one.
func ClassifyFirstAvailability(v *string) Availability {
	if v == nil {
		return AvailabilityUnknown
	}
	s := strings.TrimSpace(*v)
	if s == "" || s == "false" || s == "0" || strings.HasPrefix(s, "n") {
		return AvailabilityConfirmedEmpty
	}
	if len(s) >= 10 {
		if _, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return AvailabilityHasSlots
		}
	}
	return AvailabilityUnknown
}

var servicesByType = map[string][]Service{
	TypeFixed: {
		{ID: "259", Name: "Turismo", Category: "vehicle"},
		{ID: "260", Name: "Motocicleta", Category: "motorcycle"},
		{ID: "261", Name: "Vehículo ligero", Category: "light_vehicle"},
		{ID: "262", Name: "Ciclomotor/ Motocicleta sin catalizar", Category: "moped"},
	},
	TypeMobile: {
		{ID: "259", Name: "Turismo", Category: "vehicle"},
		{ID: "260", Name: "Motocicleta", Category: "motorcycle"},
	},
	TypeAgricultural: {
		{ID: "263", Name: "Vehículo agrícola", Category: "agricultural"},
	},
}

var defaultServices = []Service{
	{ID: "259", Name: "Turismo", Category: "vehicle"},
}

// ServicesForType returns the service catalogue for a station type
func ServicesForType(stationType string) []Service {
	services, ok := servicesByType[stationType]
	if !ok {
		services = defaultServices
	}
	out := make([]Service, len(services))
	copy(out, services)
	return out
}

// FallbackDisplayName is used when a station is not in the listing
func FallbackDisplayName(id string) string {
	return "Station " + id
}
