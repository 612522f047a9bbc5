// Package notification turns slot cache changes into push notifications.
package notification

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"citabot.app/internal/core/slot"
	"citabot.app/internal/core/slotcache"
	"citabot.app/internal/ports"
	"citabot.app/pkg/errors"
	"citabot.app/pkg/validation"
	"github.com/google/uuid"
)

// SubscriberRegistry is the part of the subscriber registry the gateway needs
type SubscriberRegistry interface {
	SubscribersFavoriting(stationID string) []string
	Tokens() []string
	Observe(ctx context.Context, token, key string, currentIDs []string) ([]string, error)
	Unregister(ctx context.Context, token string) bool
}

// StationNames resolves display names for stations
type StationNames interface {
	DisplayName(ctx context.Context, stationID string) string
}

type UseCase struct {
	subscribers SubscriberRegistry
	stations    StationNames
	messaging   ports.MessagingProvider
	metrics     ports.MetricsRecorder
	logger      ports.Logger
	mode        Mode
	title       string

	statsMu sync.Mutex
	stats   Stats
}

type UseCaseDependencies struct {
	Subscribers SubscriberRegistry
	Stations    StationNames
	Messaging   ports.MessagingProvider
	Config      ports.ConfigProvider
	Metrics     ports.MetricsRecorder
	Logger      ports.Logger
}

func NewUseCase(deps UseCaseDependencies) (*UseCase, error) {
	if deps.Subscribers == nil {
		return nil, errors.NewValidationError("subscriber registry is required")
	}
	if deps.Stations == nil {
		return nil, errors.NewValidationError("station names are required")
	}
	if deps.Messaging == nil {
		return nil, errors.NewValidationError("messaging provider is required")
	}
	if deps.Config == nil {
		return nil, errors.NewValidationError("config is required")
	}
	if deps.Logger == nil {
		return nil, errors.NewValidationError("logger is required")
	}

	cfg := deps.Config.GetNotificationConfig()
	mode := ModeFromString(cfg.Mode)
	if !mode.IsValid() {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown notification mode %q", cfg.Mode))
	}
	title := cfg.Title
	if title == "" {
		title = DefaultTitle
	}

	return &UseCase{
		subscribers: deps.Subscribers,
		stations:    deps.Stations,
		messaging:   deps.Messaging,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		mode:        mode,
		title:       title,
	}, nil
}

func (uc *UseCase) Mode() Mode {
	return uc.mode
}

// OnSlotsChanged implements slotcache.Observer
func (uc *UseCase) OnSlotsChanged(ctx context.Context, change slotcache.Change) {
	if uc.mode == ModeSubscriber {
		uc.notifySubscribers(ctx, change)
		return
	}
	uc.notifyGlobal(ctx, change)
}

func (uc *UseCase) notifySubscribers(ctx context.Context, change slotcache.Change) {
	tokens := uc.subscribers.SubscribersFavoriting(change.Key.StationID)
	if len(tokens) == 0 {
		return
	}

	key := change.Key.String()
	currentIDs := slot.IDs(change.Current.Slots)
	byID := indexSlots(change.Current.Slots)

	for _, token := range tokens {
		fresh, err := uc.subscribers.Observe(ctx, token, key, currentIDs)
		if err != nil {
			// unregistered between listing and observing
			uc.logger.Debug("Skipping subscriber", ports.F("token", token), ports.F("error", err))
			continue
		}
		for _, id := range fresh {
			if uc.deliver(ctx, token, uc.newEvent(ctx, byID[id])) {
				break
			}
		}
	}
}

func (uc *UseCase) notifyGlobal(ctx context.Context, change slotcache.Change) {
	if change.IsBaseline() {
		uc.logger.Debug("Baseline fetch, nothing to announce", ports.F("key", change.Key.String()))
		return
	}

	fresh := NewSlots(change.Previous.Slots, change.Current.Slots)
	if len(fresh) == 0 {
		return
	}

	var tokens []string
	if uc.mode == ModeBroadcast {
		tokens = uc.subscribers.Tokens()
	} else {
		tokens = uc.subscribers.SubscribersFavoriting(change.Key.StationID)
	}

	uc.logger.Info("New slots detected",
		ports.F("key", change.Key.String()),
		ports.F("new", len(fresh)),
		ports.F("recipients", len(tokens)),
	)

	dropped := make(map[string]bool)
	for _, s := range fresh {
		event := uc.newEvent(ctx, s)
		for _, token := range tokens {
			if dropped[token] {
				continue
			}
			dropped[token] = uc.deliver(ctx, token, event)
		}
	}
}

// SendTest delivers one synthetic event to token without any change detection
func (uc *UseCase) SendTest(ctx context.Context, token string) (*Event, error) {
	if !validation.IsValidPushToken(token) {
		return nil, errors.NewValidationError(
			fmt.Sprintf("token must be at least %d characters", validation.MinPushTokenLength))
	}

	event := Event{
		ID:          uuid.NewString(),
		StationID:   "0",
		ServiceID:   "0",
		StationName: "Test",
		Date:        "2000-01-01",
		Time:        "00:00",
	}
	if err := uc.send(ctx, token, event); err != nil {
		return nil, errors.NewDeliveryError("test notification failed", err)
	}
	return &event, nil
}

func (uc *UseCase) GetStats() Stats {
	uc.statsMu.Lock()
	defer uc.statsMu.Unlock()
	return uc.stats
}

// deliver sends one event and reports whether the token was dropped as invalid
func (uc *UseCase) deliver(ctx context.Context, token string, event Event) bool {
	err := uc.send(ctx, token, event)
	if err == nil {
		return false
	}

	var de *ports.DeliveryError
	if stderrors.As(err, &de) && de.Kind == ports.DeliveryInvalidToken {
		return true
	}
	uc.logger.Warn("Notification delivery failed",
		ports.F("token", token),
		ports.F("event_id", event.ID),
		ports.F("error", err),
	)
	return false
}

func (uc *UseCase) send(ctx context.Context, token string, event Event) error {
	err := uc.messaging.SendMessage(ctx, ports.PushMessage{
		Token: token,
		Title: uc.title,
		Body:  event.Body(),
		Data:  event.Data(),
	})
	if err == nil {
		uc.record("sent", nil)
		return nil
	}

	var de *ports.DeliveryError
	if stderrors.As(err, &de) && de.Kind == ports.DeliveryInvalidToken {
		uc.record("invalid_token", err)
		if uc.subscribers.Unregister(ctx, token) {
			uc.logger.Info("Removed subscriber with invalid token", ports.F("token", token))
		}
		return err
	}

	uc.record("failed", err)
	return err
}

func (uc *UseCase) record(outcome string, err error) {
	uc.statsMu.Lock()
	switch outcome {
	case "sent":
		uc.stats.Sent++
	case "invalid_token":
		uc.stats.Failed++
		uc.stats.RemovedTokens++
	default:
		uc.stats.Failed++
	}
	if err != nil {
		uc.stats.LastError = err.Error()
	}
	uc.statsMu.Unlock()

	if uc.metrics != nil {
		uc.metrics.RecordNotification(outcome)
	}
}

func (uc *UseCase) newEvent(ctx context.Context, s slot.Slot) Event {
	return Event{
		ID:          uuid.NewString(),
		StationID:   s.StationID,
		ServiceID:   s.ServiceID,
		StationName: uc.stations.DisplayName(ctx, s.StationID),
		Date:        s.Date,
		Time:        s.Time,
	}
}

// NewSlots returns the slots of current whose identity is absent from previous
func NewSlots(previous, current []slot.Slot) []slot.Slot {
	seen := make(map[string]struct{}, len(previous))
	for _, s := range previous {
		seen[s.ID()] = struct{}{}
	}
	var fresh []slot.Slot
	for _, s := range current {
		if _, ok := seen[s.ID()]; !ok {
			seen[s.ID()] = struct{}{}
			fresh = append(fresh, s)
		}
	}
	return fresh
}

func indexSlots(slots []slot.Slot) map[string]slot.Slot {
	m := make(map[string]slot.Slot, len(slots))
	for _, s := range slots {
		m[s.ID()] = s
	}
	return m
}
