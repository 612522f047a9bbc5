// Package scheduler keeps the slot cache warm by re-fetching every tracked
// key on an interval, one key at a time.
package scheduler

import (
	"context"
	"sync"
	"time"

	"citabot.app/internal/core/slot"
	"citabot.app/internal/core/slotcache"
	"citabot.app/internal/core/station"
	"citabot.app/internal/ports"
	"citabot.app/pkg/errors"
)

// KeyRefresher fetches one key live and writes it through the cache
type KeyRefresher interface {
	Refresh(ctx context.Context, key slot.Key) (slotcache.Entry, error)
}

// KeySet is the tracked key set, normally the slot cache
type KeySet interface {
	Keys() []slot.Key
	Seed(key slot.Key) bool
}

// FavoriteSource lists stations some subscriber follows
type FavoriteSource interface {
	FavoriteStations() []string
}

// StationDirectory serves the station listing from cache, fetching it when expired.
// Display names, the confirmed-empty hint and per-station sessions all come from it.
type StationDirectory interface {
	ListStations(ctx context.Context) ([]station.Station, error)
}

type UseCase struct {
	refresher KeyRefresher
	stations  StationDirectory
	keys      KeySet
	favorites FavoriteSource
	metrics   ports.MetricsRecorder
	logger    ports.Logger
	now       func() time.Time

	interval       time.Duration
	requestDelay   time.Duration
	commonServices []string
	activeHours    ActiveHours

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	last    PassResult
	running bool
}

type UseCaseDependencies struct {
	Refresher KeyRefresher
	Stations  StationDirectory
	Keys      KeySet
	Favorites FavoriteSource
	Config    ports.ConfigProvider
	Metrics   ports.MetricsRecorder
	Logger    ports.Logger
	Now       func() time.Time
}

func NewUseCase(deps UseCaseDependencies) (*UseCase, error) {
	if deps.Refresher == nil {
		return nil, errors.NewValidationError("key refresher is required")
	}
	if deps.Keys == nil {
		return nil, errors.NewValidationError("key set is required")
	}
	if deps.Favorites == nil {
		return nil, errors.NewValidationError("favorite source is required")
	}
	if deps.Config == nil {
		return nil, errors.NewValidationError("config is required")
	}
	if deps.Logger == nil {
		return nil, errors.NewValidationError("logger is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	cfg := deps.Config.GetSchedulerConfig()
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Hour
	}
	if cfg.RequestDelay < 0 {
		cfg.RequestDelay = 0
	}

	return &UseCase{
		refresher:      deps.Refresher,
		stations:       deps.Stations,
		keys:           deps.Keys,
		favorites:      deps.Favorites,
		metrics:        deps.Metrics,
		logger:         deps.Logger,
		now:            deps.Now,
		interval:       cfg.RefreshInterval,
		requestDelay:   cfg.RequestDelay,
		commonServices: append([]string(nil), cfg.CommonServices...),
		activeHours:    ActiveHours{Start: cfg.ActiveHoursStart, End: cfg.ActiveHoursEnd},
	}, nil
}

// Start launches the refresh loop. It returns immediately; Stop ends the loop.
func (uc *UseCase) Start(ctx context.Context) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.running {
		return errors.NewAlreadyExistsError("scheduler already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	uc.cancel = cancel
	uc.running = true
	uc.wg.Add(1)
	go uc.loop(loopCtx)

	uc.logger.Info("Refresh scheduler started",
		ports.F("interval", uc.interval.String()),
		ports.F("request_delay", uc.requestDelay.String()),
	)
	return nil
}

// Stop cancels the loop and waits for the current pass to unwind
func (uc *UseCase) Stop() {
	uc.mu.Lock()
	cancel := uc.cancel
	uc.cancel = nil
	uc.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	uc.wg.Wait()

	uc.mu.Lock()
	uc.running = false
	uc.mu.Unlock()
	uc.logger.Info("Refresh scheduler stopped")
}

func (uc *UseCase) IsRunning() bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.running
}

// LastPass returns the result of the most recent pass
func (uc *UseCase) LastPass() PassResult {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.last
}

func (uc *UseCase) loop(ctx context.Context) {
	defer uc.wg.Done()

	for {
		if uc.activeHours.Contains(uc.now()) {
			if _, err := uc.RunPass(ctx); err != nil && ctx.Err() == nil {
				uc.logger.Error("Refresh pass aborted", ports.F("error", err))
			}
		} else {
			uc.logger.Debug("Outside active hours, skipping pass",
				ports.F("start", uc.activeHours.Start),
				ports.F("end", uc.activeHours.End),
			)
			uc.setLast(PassResult{Skipped: true, StartedAt: uc.now()})
		}

		timer := time.NewTimer(uc.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// RefreshSet is the sorted union of cached keys and favorited stations crossed
// with the common services. Favorited keys not yet cached are seeded.
func (uc *UseCase) RefreshSet() ([]slot.Key, int) {
	seeded := 0
	for _, stationID := range uc.favorites.FavoriteStations() {
		for _, serviceID := range uc.commonServices {
			if uc.keys.Seed(slot.NewKey(stationID, serviceID)) {
				seeded++
			}
		}
	}
	return uc.keys.Keys(), seeded
}

// RunPass refreshes every key once. Per-key failures are logged and counted;
// only cancellation of ctx ends the pass early.
func (uc *UseCase) RunPass(ctx context.Context) (PassResult, error) {
	started := uc.now()
	uc.warmStations(ctx)
	keys, seeded := uc.RefreshSet()
	result := PassResult{Keys: len(keys), Seeded: seeded, StartedAt: started}

	uc.logger.Debug("Refresh pass started", ports.F("keys", len(keys)), ports.F("seeded", seeded))

	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return uc.finish(result, started), err
		}

		if err := uc.refreshKey(ctx, key); err != nil {
			result.Failures++
			uc.logger.Warn("Key refresh failed",
				ports.F("key", key.String()),
				ports.F("error", err),
			)
		}

		if i < len(keys)-1 {
			if err := uc.pause(ctx); err != nil {
				return uc.finish(result, started), err
			}
		}
	}

	result = uc.finish(result, started)
	uc.logger.Info("Refresh pass completed",
		ports.F("keys", result.Keys),
		ports.F("failures", result.Failures),
		ports.F("duration", result.Duration.String()),
	)
	return result, nil
}

// warmStations keeps the station listing loaded; a failure only costs the hints
func (uc *UseCase) warmStations(ctx context.Context) {
	if uc.stations == nil {
		return
	}
	stations, err := uc.stations.ListStations(ctx)
	if err != nil {
		uc.logger.Warn("Station listing refresh failed", ports.F("error", err))
		return
	}
	uc.logger.Debug("Station listing ready", ports.F("stations", len(stations)))
}

func (uc *UseCase) refreshKey(ctx context.Context, key slot.Key) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewUpstreamError("panic during refresh", nil)
			uc.logger.Error("Recovered from panic in refresh", ports.F("key", key.String()), ports.F("panic", r))
		}
	}()

	_, err = uc.refresher.Refresh(ctx, key)
	return err
}

func (uc *UseCase) pause(ctx context.Context) error {
	if uc.requestDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(uc.requestDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (uc *UseCase) finish(result PassResult, started time.Time) PassResult {
	result.Duration = uc.now().Sub(started)
	if uc.metrics != nil {
		uc.metrics.RecordRefreshPass(result.Duration, result.Keys, result.Failures)
	}
	uc.setLast(result)
	return result
}

func (uc *UseCase) setLast(result PassResult) {
	uc.mu.Lock()
	uc.last = result
	uc.mu.Unlock()
}
