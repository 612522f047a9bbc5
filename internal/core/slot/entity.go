package slot

import (
	"fmt"
	"sort"
	"strings"
)

// Slot is one bookable inspection appointment
type Slot struct {
	Date      string   `json:"date"`
	Time      string   `json:"time"`
	Price     *float64 `json:"price,omitempty"`
	StationID string   `json:"station_id"`
	ServiceID string   `json:"service_id"`
}

// ID identifies a slot within its key, e.g. "2025-09-10_08:00"
func (s Slot) ID() string {
	return s.Date + "_" + s.Time
}

// Key identifies a (station, service) pair
type Key struct {
	StationID string `json:"station_id"`
	ServiceID string `json:"service_id"`
}

func NewKey(stationID, serviceID string) Key {
	return Key{StationID: stationID, ServiceID: serviceID}
}

// String renders the key as "<station>:<service>"
func (k Key) String() string {
	return k.StationID + ":" + k.ServiceID
}

// ParseKey is the inverse of Key.String
func ParseKey(s string) (Key, error) {
	station, service, ok := strings.Cut(s, ":")
	if !ok || station == "" || service == "" {
		return Key{}, fmt.Errorf("malformed key %q", s)
	}
	return Key{StationID: station, ServiceID: service}, nil
}

// Less orders slots by date, then time
func Less(a, b Slot) bool {
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	return a.Time < b.Time
}

// Sort orders slots ascending by (date, time) in place
func Sort(slots []Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		return Less(slots[i], slots[j])
	})
}

// Dedupe drops every slot whose identity already appeared earlier in slots.
// It filters in place and keeps the first occurrence.
func Dedupe(slots []Slot) []Slot {
	seen := make(map[string]struct{}, len(slots))
	out := slots[:0]
	for _, s := range slots {
		id := s.ID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, s)
	}
	return out
}

// IDs returns the identities of slots in order
func IDs(slots []Slot) []string {
	ids := make([]string, 0, len(slots))
	for _, s := range slots {
		ids = append(ids, s.ID())
	}
	return ids
}

// SortKeys orders keys by station then service
func SortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].StationID != keys[j].StationID {
			return keys[i].StationID < keys[j].StationID
		}
		return keys[i].ServiceID < keys[j].ServiceID
	})
}

// PriceOf returns a pointer to a copy of p
func PriceOf(p float64) *float64 {
	return &p
}
