// Package slotcache keeps the latest slot list per (station, service) and
// hands every replacement to a change observer.
package slotcache

import (
	"context"
	"sort"
	"sync"
	"time"

	"citabot.app/internal/core/slot"
	"citabot.app/internal/ports"
)

const (
	DefaultTTL      = time.Hour
	DefaultMaxSlots = 10
)

// Observer receives (previous, current) pairs after every Set.
// It is called without the cache lock held.
type Observer interface {
	OnSlotsChanged(ctx context.Context, change Change)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(ctx context.Context, change Change)

func (f ObserverFunc) OnSlotsChanged(ctx context.Context, change Change) {
	f(ctx, change)
}

type Options struct {
	TTL      time.Duration
	MaxSlots int
	Now      func() time.Time
	Observer Observer
	Metrics  ports.MetricsRecorder
}

type Cache struct {
	mu       sync.Mutex
	entries  map[slot.Key]Entry
	ttl      time.Duration
	maxSlots int
	now      func() time.Time
	observer Observer
	metrics  ports.MetricsRecorder
}

func New(opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxSlots <= 0 {
		opts.MaxSlots = DefaultMaxSlots
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Cache{
		entries:  make(map[slot.Key]Entry),
		ttl:      opts.TTL,
		maxSlots: opts.MaxSlots,
		now:      opts.Now,
		observer: opts.Observer,
		metrics:  opts.Metrics,
	}
}

// SetObserver replaces the change observer
func (c *Cache) SetObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = o
}

// MaxSlots is the per-key capacity
func (c *Cache) MaxSlots() int {
	return c.maxSlots
}

// Get returns the cached slots for key when the entry is younger than the TTL
func (c *Cache) Get(key slot.Key) ([]slot.Slot, time.Time, bool) {
	c.mu.Lock()
	entry, exists := c.entries[key]
	now := c.now()
	c.mu.Unlock()

	fresh := exists && !entry.IsPlaceholder() && now.Sub(entry.FetchedAt) < c.ttl
	if c.metrics != nil {
		c.metrics.RecordSlotCacheLookup(fresh)
	}
	if !fresh {
		return nil, time.Time{}, false
	}

	return copySlots(entry.Slots), entry.FetchedAt, true
}

// Set replaces the entry for key and notifies the observer
func (c *Cache) Set(ctx context.Context, key slot.Key, slots []slot.Slot) Entry {
	normalized := copySlots(slots)
	slot.Sort(normalized)
	normalized = slot.Dedupe(normalized)
	if len(normalized) > c.maxSlots {
		normalized = normalized[:c.maxSlots]
	}

	c.mu.Lock()
	fetchedAt := c.now()
	var previous *Entry
	if prev, ok := c.entries[key]; ok {
		p := prev
		previous = &p
		if !fetchedAt.After(prev.FetchedAt) {
			fetchedAt = prev.FetchedAt.Add(time.Nanosecond)
		}
	}
	current := Entry{Key: key, Slots: normalized, FetchedAt: fetchedAt}
	c.entries[key] = current
	observer := c.observer
	tracked := len(c.entries)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordTrackedKeys(tracked)
	}
	if observer != nil {
		observer.OnSlotsChanged(ctx, Change{Key: key, Previous: previous, Current: cloneEntry(current)})
	}

	return cloneEntry(current)
}

// Seed inserts an empty placeholder for key if absent so the scheduler picks it up
func (c *Cache) Seed(key slot.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		return false
	}
	c.entries[key] = Entry{Key: key}
	return true
}

// InvalidateAll drops every entry and returns how many were removed
func (c *Cache) InvalidateAll() int {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[slot.Key]Entry)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordTrackedKeys(0)
	}
	return n
}

// Keys returns every tracked key in stable order
func (c *Cache) Keys() []slot.Key {
	c.mu.Lock()
	keys := make([]slot.Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.Unlock()

	slot.SortKeys(keys)
	return keys
}

// Stats describes every entry
func (c *Cache) Stats() []EntryStat {
	c.mu.Lock()
	now := c.now()
	stats := make([]EntryStat, 0, len(c.entries))
	for _, e := range c.entries {
		stat := EntryStat{Key: e.Key.String(), Size: len(e.Slots), FetchedAt: e.FetchedAt}
		if !e.IsPlaceholder() {
			age := now.Sub(e.FetchedAt)
			stat.AgeSeconds = age.Seconds()
			stat.Fresh = age < c.ttl
		}
		stats = append(stats, stat)
	}
	c.mu.Unlock()

	sortStats(stats)
	return stats
}

func sortStats(stats []EntryStat) {
	sort.Slice(stats, func(i, j int) bool { return stats[i].Key < stats[j].Key })
}

func copySlots(slots []slot.Slot) []slot.Slot {
	out := make([]slot.Slot, len(slots))
	copy(out, slots)
	return out
}

func cloneEntry(e Entry) Entry {
	e.Slots = copySlots(e.Slots)
	return e
}
