// Package subscription owns the registry of devices that receive slot
// notifications.
package subscription

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"citabot.app/internal/ports"
	"citabot.app/pkg/errors"
	"citabot.app/pkg/validation"
)

type UseCase struct {
	mu          sync.Mutex
	subscribers map[string]*Subscriber

	persistMu sync.Mutex
	store     ports.SubscriberStore
	logger    ports.Logger
	now       func() time.Time
}

type UseCaseDependencies struct {
	Store  ports.SubscriberStore
	Logger ports.Logger
	Now    func() time.Time
}

func NewUseCase(deps UseCaseDependencies) (*UseCase, error) {
	if deps.Store == nil {
		return nil, errors.NewValidationError("subscriber store is required")
	}
	if deps.Logger == nil {
		return nil, errors.NewValidationError("logger is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &UseCase{
		subscribers: make(map[string]*Subscriber),
		store:       deps.Store,
		logger:      deps.Logger,
		now:         deps.Now,
	}, nil
}

// Load replaces the in-memory registry with the persisted document
func (uc *UseCase) Load(ctx context.Context) error {
	data, err := uc.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load subscribers: %w", err)
	}

	loaded := make(map[string]*Subscriber, len(data))
	for _, d := range data {
		if !validation.IsValidPushToken(d.Token) {
			uc.logger.Warn("Skipping stored subscriber with invalid token", ports.F("token", d.Token))
			continue
		}
		loaded[d.Token] = fromData(d)
	}

	uc.mu.Lock()
	uc.subscribers = loaded
	uc.mu.Unlock()

	uc.logger.Info("Subscribers loaded", ports.F("count", len(loaded)))
	return nil
}

// Register creates or updates a subscriber and reports whether it was created
func (uc *UseCase) Register(ctx context.Context, params RegisterParams) (bool, error) {
	token := strings.TrimSpace(params.Token)
	if !validation.IsValidPushToken(token) {
		return false, errors.NewValidationError(
			fmt.Sprintf("token must be at least %d characters", validation.MinPushTokenLength))
	}

	var favorites []string
	if params.Favorites != nil {
		normalized, ok := normalizeFavorites(*params.Favorites)
		if !ok {
			return false, errors.NewValidationError("favorites must be a list of numeric station ids")
		}
		favorites = normalized
	}

	uc.mu.Lock()
	now := uc.now()
	sub, exists := uc.subscribers[token]
	if !exists {
		sub = NewSubscriber(token, now)
		uc.subscribers[token] = sub
	}
	if params.UserID != nil {
		sub.UserID = strings.TrimSpace(*params.UserID)
	}
	if params.Favorites != nil {
		sub.Favorites = favorites
	}
	sub.UpdatedAt = now
	uc.mu.Unlock()

	uc.logger.Debug("Subscriber registered",
		ports.F("token", token),
		ports.F("created", !exists),
	)
	uc.persist(ctx)
	return !exists, nil
}

// Unregister removes a subscriber and reports whether it existed
func (uc *UseCase) Unregister(ctx context.Context, token string) bool {
	uc.mu.Lock()
	_, exists := uc.subscribers[token]
	delete(uc.subscribers, token)
	uc.mu.Unlock()

	if exists {
		uc.logger.Info("Subscriber removed", ports.F("token", token))
		uc.persist(ctx)
	}
	return exists
}

// UpdateFavorites replaces the favorites of an existing subscriber
func (uc *UseCase) UpdateFavorites(ctx context.Context, token string, favorites []string) error {
	normalized, ok := normalizeFavorites(favorites)
	if !ok {
		return errors.NewValidationError("favorites must be a list of numeric station ids")
	}

	uc.mu.Lock()
	sub, exists := uc.subscribers[token]
	if exists {
		sub.Favorites = normalized
		sub.UpdatedAt = uc.now()
	}
	uc.mu.Unlock()

	if !exists {
		return errors.NewNotFoundError("subscriber not found")
	}
	uc.persist(ctx)
	return nil
}

// ClearHistory forgets every notified slot for token and returns how many keys were dropped
func (uc *UseCase) ClearHistory(ctx context.Context, token string) (int, error) {
	uc.mu.Lock()
	sub, exists := uc.subscribers[token]
	cleared := 0
	if exists {
		cleared = len(sub.LastSeen)
		sub.LastSeen = make(map[string]map[string]struct{})
		sub.UpdatedAt = uc.now()
	}
	uc.mu.Unlock()

	if !exists {
		return 0, errors.NewNotFoundError("subscriber not found")
	}
	if cleared > 0 {
		uc.persist(ctx)
	}
	return cleared, nil
}

// Observe records currentIDs as everything token has seen for key and returns the ids that are new to it
func (uc *UseCase) Observe(ctx context.Context, token, key string, currentIDs []string) ([]string, error) {
	uc.mu.Lock()
	sub, exists := uc.subscribers[token]
	var fresh []string
	var changed bool
	if exists {
		fresh, changed = sub.observe(key, currentIDs)
	}
	uc.mu.Unlock()

	if !exists {
		return nil, errors.NewNotFoundError("subscriber not found")
	}
	if changed {
		uc.persist(ctx)
	}
	return fresh, nil
}

// Get returns a copy of one subscriber
func (uc *UseCase) Get(token string) (*Subscriber, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	sub, ok := uc.subscribers[token]
	if !ok {
		return nil, errors.NewNotFoundError("subscriber not found")
	}
	return sub.clone(), nil
}

func (uc *UseCase) Count() int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return len(uc.subscribers)
}

// Tokens lists every registered token, sorted
func (uc *UseCase) Tokens() []string {
	uc.mu.Lock()
	tokens := make([]string, 0, len(uc.subscribers))
	for t := range uc.subscribers {
		tokens = append(tokens, t)
	}
	uc.mu.Unlock()

	sort.Strings(tokens)
	return tokens
}

// SubscribersFavoriting lists the tokens following stationID, sorted
func (uc *UseCase) SubscribersFavoriting(stationID string) []string {
	uc.mu.Lock()
	var tokens []string
	for t, sub := range uc.subscribers {
		if sub.HasFavorite(stationID) {
			tokens = append(tokens, t)
		}
	}
	uc.mu.Unlock()

	sort.Strings(tokens)
	return tokens
}

// FavoriteStations is the sorted union of every subscriber's favorites
func (uc *UseCase) FavoriteStations() []string {
	uc.mu.Lock()
	set := make(map[string]struct{})
	for _, sub := range uc.subscribers {
		for _, f := range sub.Favorites {
			set[f] = struct{}{}
		}
	}
	uc.mu.Unlock()

	stations := make([]string, 0, len(set))
	for s := range set {
		stations = append(stations, s)
	}
	sort.Strings(stations)
	return stations
}

// persist writes the whole registry. Failures are logged and memory stays authoritative.
func (uc *UseCase) persist(ctx context.Context) {
	uc.persistMu.Lock()
	defer uc.persistMu.Unlock()

	uc.mu.Lock()
	snapshot := make([]ports.SubscriberData, 0, len(uc.subscribers))
	for _, sub := range uc.subscribers {
		snapshot = append(snapshot, sub.toData())
	}
	uc.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Token < snapshot[j].Token })

	if err := uc.store.Save(context.WithoutCancel(ctx), snapshot); err != nil {
		uc.logger.Error("Failed to persist subscribers",
			ports.F("error", err),
			ports.F("count", len(snapshot)),
		)
	}
}
