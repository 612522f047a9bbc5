package station

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"citabot.app/internal/ports"
	"citabot.app/pkg/errors"
)

const listingCacheKey = "citabot:stations:listing"

// Limiter gates upstream access
type Limiter interface {
	Acquire(ctx context.Context) error
	Release()
}

type UseCase struct {
	upstream ports.UpstreamClient
	cache    ports.CacheProvider
	limiter  Limiter
	config   ports.ConfigProvider
	logger   ports.Logger
}

type UseCaseDependencies struct {
	Upstream ports.UpstreamClient
	Cache    ports.CacheProvider
	Limiter  Limiter
	Config   ports.ConfigProvider
	Logger   ports.Logger
}

func NewUseCase(deps UseCaseDependencies) (*UseCase, error) {
	if deps.Upstream == nil {
		return nil, errors.NewValidationError("upstream client is required")
	}
	if deps.Cache == nil {
		return nil, errors.NewValidationError("cache provider is required")
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
		upstream: deps.Upstream,
		cache:    deps.Cache,
		limiter:  deps.Limiter,
		config:   deps.Config,
		logger:   deps.Logger,
	}, nil
}

// ListStations returns every station, from cache when possible
func (uc *UseCase) ListStations(ctx context.Context) ([]Station, error) {
	if stations, ok := uc.cachedListing(ctx); ok {
		return stations, nil
	}

	if err := uc.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("acquire upstream permit: %w", err)
	}
	session := uc.upstream.ResolveSession(ctx, "")
	data := uc.upstream.FetchStations(ctx, session)
	uc.limiter.Release()

	stations := make([]Station, 0, len(data))
	for _, d := range data {
		stations = append(stations, fromData(d))
	}
	sort.SliceStable(stations, func(i, j int) bool {
		if stations[i].Province != stations[j].Province {
			return stations[i].Province < stations[j].Province
		}
		return stations[i].Name < stations[j].Name
	})

	if len(stations) == 0 {
		uc.logger.Warn("Station listing came back empty")
		return stations, nil
	}

	uc.storeListing(ctx, stations)
	uc.logger.Debug("Station listing refreshed", ports.F("stations", len(stations)))
	return stations, nil
}

// Find returns the station with the given id
func (uc *UseCase) Find(ctx context.Context, stationID string) (*Station, error) {
	stations, err := uc.ListStations(ctx)
	if err != nil {
		return nil, err
	}
	if len(stations) == 0 {
		return nil, errors.NewUpstreamError("station listing unavailable", nil)
	}
	for i := range stations {
		if stations[i].ID == stationID {
			return &stations[i], nil
		}
	}
	return nil, errors.NewNotFoundError(fmt.Sprintf("station %s not found", stationID))
}

// ServicesFor returns the services offered at a station, by its type
func (uc *UseCase) ServicesFor(ctx context.Context, stationID string) ([]Service, error) {
	st, err := uc.Find(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return ServicesForType(st.Type), nil
}

// DisplayName resolves a human-readable name without touching the network
func (uc *UseCase) DisplayName(ctx context.Context, stationID string) string {
	if st, ok := uc.cachedStation(ctx, stationID); ok && st.Name != "" {
		return st.Name
	}
	return FallbackDisplayName(stationID)
}

// AvailabilityStatus reports the station-level availability hint from the cached listing
func (uc *UseCase) AvailabilityStatus(ctx context.Context, stationID string) Availability {
	if st, ok := uc.cachedStation(ctx, stationID); ok {
		return st.Availability
	}
	return AvailabilityUnknown
}

func (uc *UseCase) cachedStation(ctx context.Context, stationID string) (Station, bool) {
	stations, ok := uc.cachedListing(ctx)
	if !ok {
		return Station{}, false
	}
	for _, st := range stations {
		if st.ID == stationID {
			return st, true
		}
	}
	return Station{}, false
}

func (uc *UseCase) cachedListing(ctx context.Context) ([]Station, bool) {
	data, err := uc.cache.Get(ctx, listingCacheKey)
	if err != nil {
		if !errors.IsNotFoundError(err) {
			uc.logger.Warn("Station listing cache read failed", ports.F("error", err))
		}
		return nil, false
	}

	var stations []Station
	if err := json.Unmarshal(data, &stations); err != nil {
		uc.logger.Warn("Discarding undecodable station listing", ports.F("error", err))
		return nil, false
	}
	return stations, true
}

func (uc *UseCase) storeListing(ctx context.Context, stations []Station) {
	data, err := json.Marshal(stations)
	if err != nil {
		uc.logger.Warn("Failed to encode station listing", ports.F("error", err))
		return
	}

	ttl := uc.config.GetSlotCacheConfig().StationTTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	if err := uc.cache.Set(ctx, listingCacheKey, data, ttl); err != nil {
		uc.logger.Warn("Failed to cache station listing", ports.F("error", err))
	}
}

func fromData(d ports.StationData) Station {
	st := Station{
		ID:           d.StationID,
		Name:         d.Name,
		Province:     d.Province,
		Type:         d.Type,
		Address:      d.Address,
		Availability: ClassifyFirstAvailability(d.FirstAvailability),
	}
	if d.FirstAvailability != nil {
		st.FirstAvailability = *d.FirstAvailability
	}
	return st
}
