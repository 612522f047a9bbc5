package subscription

import (
	"sort"
	"strings"
	"time"

	"citabot.app/internal/ports"
	"citabot.app/pkg/validation"
)

// Subscriber is one registered device and what it has already been told about
type Subscriber struct {
	Token     string
	UserID    string
	Favorites []string
	// LastSeen maps a "<station>:<service>" key to the slot ids already notified
	LastSeen  map[string]map[string]struct{}
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RegisterParams carries optional fields; nil means "leave untouched"
type RegisterParams struct {
	Token     string
	UserID    *string
	Favorites *[]string
}

func NewSubscriber(token string, now time.Time) *Subscriber {
	return &Subscriber{
		Token:     token,
		Favorites: []string{},
		LastSeen:  make(map[string]map[string]struct{}),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasFavorite reports whether the subscriber follows stationID
func (s *Subscriber) HasFavorite(stationID string) bool {
	for _, f := range s.Favorites {
		if f == stationID {
			return true
		}
	}
	return false
}

// observe replaces the seen set for key and returns ids not seen before, in input order
func (s *Subscriber) observe(key string, current []string) (fresh []string, changed bool) {
	seen := s.LastSeen[key]
	next := make(map[string]struct{}, len(current))
	for _, id := range current {
		if _, ok := seen[id]; !ok {
			if _, dup := next[id]; !dup {
				fresh = append(fresh, id)
			}
		}
		next[id] = struct{}{}
	}

	changed = len(next) != len(seen) || len(fresh) > 0
	if _, tracked := s.LastSeen[key]; !tracked {
		changed = true
	}
	s.LastSeen[key] = next
	return fresh, changed
}

func (s *Subscriber) clone() *Subscriber {
	c := *s
	c.Favorites = append([]string(nil), s.Favorites...)
	c.LastSeen = make(map[string]map[string]struct{}, len(s.LastSeen))
	for k, ids := range s.LastSeen {
		set := make(map[string]struct{}, len(ids))
		for id := range ids {
			set[id] = struct{}{}
		}
		c.LastSeen[k] = set
	}
	return &c
}

func (s *Subscriber) toData() ports.SubscriberData {
	data := ports.SubscriberData{
		Token:     s.Token,
		UserID:    s.UserID,
		Favorites: append([]string{}, s.Favorites...),
		LastSeen:  make(map[string][]string, len(s.LastSeen)),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	for k, ids := range s.LastSeen {
		list := make([]string, 0, len(ids))
		for id := range ids {
			list = append(list, id)
		}
		sort.Strings(list)
		data.LastSeen[k] = list
	}
	return data
}

func fromData(d ports.SubscriberData) *Subscriber {
	s := &Subscriber{
		Token:     d.Token,
		UserID:    d.UserID,
		Favorites: append([]string{}, d.Favorites...),
		LastSeen:  make(map[string]map[string]struct{}, len(d.LastSeen)),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for k, ids := range d.LastSeen {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		s.LastSeen[k] = set
	}
	return s
}

// normalizeFavorites trims and dedupes station ids, rejecting anything non-numeric
func normalizeFavorites(favorites []string) ([]string, bool) {
	out := make([]string, 0, len(favorites))
	seen := make(map[string]struct{}, len(favorites))
	for _, f := range favorites {
		f = strings.TrimSpace(f)
		if !validation.IsValidStationID(f) {
			return nil, false
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out, true
}
