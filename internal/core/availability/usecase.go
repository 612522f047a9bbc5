package availability

import (
	"context"
	"fmt"
	"time"

	"citabot.app/internal/core/slot"
	"citabot.app/internal/core/slotcache"
	"citabot.app/internal/ports"
	"citabot.app/pkg/errors"
	"citabot.app/pkg/validation"
)

// Limiter gates upstream access
type Limiter interface {
	Acquire(ctx context.Context) error
	Release()
}

// SlotLister is satisfied by Resolver
type SlotLister interface {
	ListNextSlots(ctx context.Context, stationID, serviceID string, maxSlots, horizonMonths int) ([]slot.Slot, error)
}

// AppointmentsRequest is an inbound appointment lookup
type AppointmentsRequest struct {
	StationID    string
	ServiceID    string
	Count        int
	ForceRefresh bool
}

// AppointmentsResult carries the slots together with where they came from
type AppointmentsResult struct {
	Slots     []slot.Slot
	Cached    bool
	FetchedAt time.Time
}

type UseCase struct {
	resolver SlotLister
	cache    *slotcache.Cache
	limiter  Limiter
	config   ports.ConfigProvider
	logger   ports.Logger
}

type UseCaseDependencies struct {
	Resolver SlotLister
	Cache    *slotcache.Cache
	Limiter  Limiter
	Config   ports.ConfigProvider
	Logger   ports.Logger
}

func NewUseCase(deps UseCaseDependencies) (*UseCase, error) {
	if deps.Resolver == nil {
		return nil, errors.NewValidationError("resolver is required")
	}
	if deps.Cache == nil {
		return nil, errors.NewValidationError("slot cache is required")
	}
	if deps.Limiter == nil {
		return nil, errors.NewValidationError("limiter is required")
	}
	if deps.Config == nil {
		return nil, errors.NewValidationError("config is required")
	}
	if deps.Logger == nil {
		return nil, errors.NewValidationError("logger is required")
	}

	return &UseCase{
		resolver: deps.Resolver,
		cache:    deps.Cache,
		limiter:  deps.Limiter,
		config:   deps.Config,
		logger:   deps.Logger,
	}, nil
}

// GetAppointments serves slots from the cache, fetching live on a miss or when forced
func (uc *UseCase) GetAppointments(ctx context.Context, req AppointmentsRequest) (*AppointmentsResult, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	key := slot.NewKey(req.StationID, req.ServiceID)

	if !req.ForceRefresh {
		if slots, fetchedAt, ok := uc.cache.Get(key); ok {
			return &AppointmentsResult{
				Slots:     firstN(slots, req.Count),
				Cached:    true,
				FetchedAt: fetchedAt,
			}, nil
		}
	}

	entry, err := uc.Refresh(ctx, key)
	if err != nil {
		return nil, err
	}

	return &AppointmentsResult{
		Slots:     firstN(entry.Slots, req.Count),
		Cached:    false,
		FetchedAt: entry.FetchedAt,
	}, nil
}

// Refresh fetches the key live under a limiter permit and writes it through the cache
func (uc *UseCase) Refresh(ctx context.Context, key slot.Key) (slotcache.Entry, error) {
	if err := uc.limiter.Acquire(ctx); err != nil {
		return slotcache.Entry{}, fmt.Errorf("acquire upstream permit: %w", err)
	}
	slots, err := uc.resolver.ListNextSlots(ctx, key.StationID, key.ServiceID,
		uc.cache.MaxSlots(), uc.config.GetUpstreamConfig().HorizonMonths)
	uc.limiter.Release()
	if err != nil {
		return slotcache.Entry{}, fmt.Errorf("list slots for %s: %w", key, err)
	}

	entry := uc.cache.Set(ctx, key, slots)
	uc.logger.Debug("Slots refreshed",
		ports.F("key", key.String()),
		ports.F("slots", len(entry.Slots)),
	)
	return entry, nil
}

// CacheStats describes every cached key
func (uc *UseCase) CacheStats() []slotcache.EntryStat {
	return uc.cache.Stats()
}

// ClearCache drops every cached key and returns how many were removed
func (uc *UseCase) ClearCache() int {
	n := uc.cache.InvalidateAll()
	uc.logger.Info("Slot cache cleared", ports.F("entries", n))
	return n
}

func validateRequest(req *AppointmentsRequest) error {
	stationID, ok := validation.TrimAndValidate(req.StationID)
	if !ok || !validation.IsValidStationID(stationID) {
		return errors.NewValidationError("station must be a numeric id")
	}
	serviceID, ok := validation.TrimAndValidate(req.ServiceID)
	if !ok || !validation.IsValidServiceID(serviceID) {
		return errors.NewValidationError("service must be a numeric id")
	}
	if req.Count < 0 {
		return errors.NewValidationError("count cannot be negative")
	}
	if req.Count == 0 {
		req.Count = DefaultCount
	}

	req.StationID = stationID
	req.ServiceID = serviceID
	return nil
}

func firstN(slots []slot.Slot, n int) []slot.Slot {
	if len(slots) > n {
		return slots[:n]
	}
	return slots
}
