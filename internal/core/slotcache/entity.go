package slotcache

import (
	"time"

	"citabot.app/internal/core/slot"
)

// Entry is the cached slot list for one key
type Entry struct {
	Key       slot.Key
	Slots     []slot.Slot
	FetchedAt time.Time
}

// IsPlaceholder reports whether the entry was seeded but never fetched
func (e Entry) IsPlaceholder() bool {
	return e.FetchedAt.IsZero()
}

// Change is handed to the observer after every Set
type Change struct {
	Key      slot.Key
	Previous *Entry
	Current  Entry
}

// IsBaseline reports whether this is the first real fetch for the key
func (c Change) IsBaseline() bool {
	return c.Previous == nil || c.Previous.IsPlaceholder()
}

// EntryStat describes one entry for diagnostics
type EntryStat struct {
	Key        string    `json:"key"`
	Size       int       `json:"size"`
	FetchedAt  time.Time `json:"fetched_at"`
	AgeSeconds float64   `json:"age_seconds"`
	Fresh      bool      `json:"fresh"`
}
