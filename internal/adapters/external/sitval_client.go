package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"citabot.app/internal/ports"
	"citabot.app/pkg/errors"
	"github.com/codeGROOVE-dev/retry"
	"golang.org/x/time/rate"
)

const (
	moduleMonth        = "serviceMonthData"
	moduleDay          = "serviceDayData"
	moduleHourDebug    = "set-hour-debug"
	moduleGroupStartup = "groupStartup"
	moduleStartUp      = "startUp"

	sessionCacheKey   = "citabot:upstream:session"
	stationKeyPrefix  = "citabot:upstream:station:"
	emptySessionTTL   = 5 * time.Minute
	maxResponseBytes  = 4 << 20
	defaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	defaultAcceptLang = "es-ES,es;q=0.9,en;q=0.8"
)

// statusError is a non-200 answer from the booking site
type statusError struct {
	Module string
	Status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d", e.Module, e.Status)
}

// SitvalClient implements ports.UpstreamClient against the ITV booking site's
// ajaxmodules.php endpoint
type SitvalClient struct {
	baseURL      *url.URL
	http         *http.Client
	limiter      *rate.Limiter
	cache        ports.CacheProvider
	logger       ports.Logger
	metrics      ports.MetricsRecorder
	fallbackCode string
	strategies   []string
	patterns     []*regexp.Regexp
	sessionTTL   time.Duration
	maxRetries   uint
	retryDelay   time.Duration
}

// SitvalClientParams holds parameters for creating the booking site client
type SitvalClientParams struct {
	BaseURL              string
	FallbackInstanceCode string
	SessionStrategies    []string
	InstancePatterns     []string
	SessionTTL           time.Duration
	Timeout              time.Duration
	MaxRetries           int
	RetryDelay           time.Duration
	RequestsPerMinute    int
	Cache                ports.CacheProvider
	Logger               ports.Logger
	Metrics              ports.MetricsRecorder
}

// NewSitvalClient creates a new booking site client
func NewSitvalClient(params SitvalClientParams) (*SitvalClient, error) {
	if params.Cache == nil {
		return nil, errors.NewConfigurationError("upstream client requires a cache provider", nil)
	}
	if params.Logger == nil {
		return nil, errors.NewConfigurationError("upstream client requires a logger", nil)
	}

	base, err := url.Parse(strings.TrimRight(params.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.NewConfigurationError(fmt.Sprintf("invalid upstream base URL %q", params.BaseURL), err)
	}

	patterns := make([]*regexp.Regexp, 0, len(params.InstancePatterns))
	for _, p := range params.InstancePatterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, errors.NewConfigurationError(fmt.Sprintf("invalid instance pattern %q", p), err)
		}
		patterns = append(patterns, re)
	}

	for _, s := range params.SessionStrategies {
		if s != StrategyFallback && s != StrategyHTML && s != StrategyCookie && s != StrategyStartupJSON {
			return nil, errors.NewConfigurationError(fmt.Sprintf("unknown session strategy %q", s), nil)
		}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.NewConfigurationError("failed to create cookie jar", err)
	}

	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	sessionTTL := params.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 30 * time.Minute
	}
	maxRetries := params.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	limit := rate.Inf
	if params.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(params.RequestsPerMinute) / 60.0)
	}

	return &SitvalClient{
		baseURL:      base,
		http:         &http.Client{Timeout: timeout, Jar: jar},
		limiter:      rate.NewLimiter(limit, 1),
		cache:        params.Cache,
		logger:       params.Logger,
		metrics:      params.Metrics,
		fallbackCode: strings.TrimSpace(params.FallbackInstanceCode),
		strategies:   append([]string(nil), params.SessionStrategies...),
		patterns:     patterns,
		sessionTTL:   sessionTTL,
		maxRetries:   uint(maxRetries),
		retryDelay:   params.RetryDelay,
	}, nil
}

// ResolveSession returns a cached session or walks the configured strategies.
// It never fails: when nothing works the session carries an empty identifier.
func (c *SitvalClient) ResolveSession(ctx context.Context, stationHint string) ports.SessionContext {
	if stationHint != "" {
		if code, err := c.cache.Get(ctx, stationKeyPrefix+stationHint); err == nil && len(code) > 0 {
			return ports.SessionContext{InstanceCode: string(code), Strategy: StrategyStation, ResolvedAt: time.Now()}
		}
	}

	if data, err := c.cache.Get(ctx, sessionCacheKey); err == nil {
		var session ports.SessionContext
		if json.Unmarshal(data, &session) == nil {
			return session
		}
	}

	w := &warmUp{client: c}
	session := ports.SessionContext{Strategy: StrategyEmpty, ResolvedAt: time.Now()}
	for _, name := range c.strategies {
		if ctx.Err() != nil {
			break
		}
		if code := c.strategy(name)(ctx, w); code != "" {
			session.InstanceCode = code
			session.Strategy = name
			break
		}
		c.logger.Debug("Session strategy found nothing", ports.F("strategy", name))
	}

	ttl := c.sessionTTL
	if session.InstanceCode == "" {
		ttl = min(ttl, emptySessionTTL)
		c.logger.Warn("No instance code found, continuing without one")
	}
	if data, err := json.Marshal(session); err == nil {
		if err := c.cache.Set(ctx, sessionCacheKey, data, ttl); err != nil {
			c.logger.Warn("Failed to cache session", ports.F("error", err))
		}
	}

	c.logger.Info("Upstream session resolved", ports.F("strategy", session.Strategy))
	return session
}

// InvalidateSession forgets the cached session
func (c *SitvalClient) InvalidateSession(ctx context.Context) error {
	return c.cache.Delete(ctx, sessionCacheKey)
}

// FetchStations lists every station from groupStartup
func (c *SitvalClient) FetchStations(ctx context.Context, session ports.SessionContext) []ports.StationData {
	body, err := c.postModule(ctx, moduleGroupStartup, groupStartupForm(session.InstanceCode))
	if err != nil {
		c.logger.Warn("Station listing failed", ports.F("error", err))
		return nil
	}

	stations := decodeStations(body)
	for _, st := range stations {
		if st.InstanceCode != "" {
			// station codes rotate like the shared session, so they share its TTL
			if err := c.cache.Set(ctx, stationKeyPrefix+st.StationID, []byte(st.InstanceCode), c.sessionTTL); err != nil {
				c.logger.Warn("Failed to cache station instance code",
					ports.F("station_id", st.StationID), ports.F("error", err))
			}
		}
	}
	return stations
}

// FetchMonthAvailability returns the open days of month for the pair
func (c *SitvalClient) FetchMonthAvailability(ctx context.Context, stationID, serviceID string, session ports.SessionContext, month time.Time) ports.MonthAvailability {
	body, err := c.postModule(ctx, moduleMonth, url.Values{
		"store":          {stationID},
		"itineraryPlace": {"0"},
		"instanceCode":   {session.InstanceCode},
		"firstCall":      {"true"},
		"date":           {month.Format("2006-01") + "-01"},
		"service":        {serviceID},
	})
	if err != nil {
		c.logger.Warn("Month availability failed",
			ports.F("station_id", stationID), ports.F("service_id", serviceID), ports.F("error", err))
		return ports.MonthAvailability{}
	}
	return decodeMonth(body)
}

// FetchDayAvailability returns the slot ids offered on date
func (c *SitvalClient) FetchDayAvailability(ctx context.Context, stationID, serviceID string, session ports.SessionContext, date string) ports.DayAvailability {
	body, err := c.postModule(ctx, moduleDay, url.Values{
		"store":          {stationID},
		"service":        {serviceID},
		"instanceCode":   {session.InstanceCode},
		"date":           {date},
		"itineraryPlace": {"0"},
		"dateHour":       {date},
	})
	if err != nil {
		c.logger.Warn("Day availability failed",
			ports.F("station_id", stationID), ports.F("date", date), ports.F("error", err))
		return ports.DayAvailability{}
	}
	return decodeDay(body)
}

// ResolveSlotTime asks the site which clock time an opaque slot id stands for
func (c *SitvalClient) ResolveSlotTime(ctx context.Context, session ports.SessionContext, slotID string) (string, bool) {
	body, err := c.postModule(ctx, moduleHourDebug, url.Values{
		"selectedTime":     {slotID},
		"realSelectedTime": {slotID},
		"instanceCode":     {session.InstanceCode},
		"firstCall":        {"undefined"},
	})
	if err != nil {
		c.logger.Debug("Slot time lookup failed", ports.F("slot_id", slotID), ports.F("error", err))
		return "", false
	}
	t := decodeHourDebug(body)
	return t, t != ""
}

func (c *SitvalClient) postModule(ctx context.Context, module string, form url.Values) ([]byte, error) {
	target := c.baseURL.JoinPath("ajax", "ajaxmodules.php")
	target.RawQuery = url.Values{"module": {module}}.Encode()

	return c.do(ctx, module, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
		req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
		req.Header.Set("Origin", c.baseURL.String())
		req.Header.Set("Referer", c.baseURL.String()+"/")
		return req, nil
	})
}

func (c *SitvalClient) getPage(ctx context.Context, path string) ([]byte, error) {
	target := c.baseURL.String() + path
	return c.do(ctx, "landing", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
		req.Header.Set("Upgrade-Insecure-Requests", "1")
		return req, nil
	})
}

// do runs one rate-limited request with retries; 4xx answers are not retried
func (c *SitvalClient) do(ctx context.Context, module string, build func() (*http.Request, error)) ([]byte, error) {
	var body []byte

	err := retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}

			req, err := build()
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			req.Header.Set("User-Agent", defaultUserAgent)
			req.Header.Set("Accept-Language", defaultAcceptLang)

			start := time.Now()
			resp, err := c.http.Do(req)
			if err != nil {
				c.record(module, false, time.Since(start))
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					c.logger.Warn("Failed to close upstream response body", ports.F("error", closeErr))
				}
			}()

			if resp.StatusCode != http.StatusOK {
				c.record(module, false, time.Since(start))
				statusErr := &statusError{Module: module, Status: resp.StatusCode}
				if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
					return retry.Unrecoverable(statusErr)
				}
				return statusErr
			}

			data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			c.record(module, err == nil, time.Since(start))
			if err != nil {
				return fmt.Errorf("read %s response: %w", module, err)
			}
			body = data
			return nil
		},
		retry.Attempts(c.maxRetries),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(8*c.retryDelay+time.Second),
		retry.MaxJitter(c.retryDelay/2+time.Millisecond),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("Retrying upstream request",
				ports.F("module", module), ports.F("attempt", n+1), ports.F("error", err))
		}),
	)
	if err != nil {
		return nil, errors.NewUpstreamError(fmt.Sprintf("%s request failed", module), err)
	}
	return body, nil
}

func (c *SitvalClient) record(module string, success bool, d time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(module, success, d)
	}
}

func groupStartupForm(instanceCode string) url.Values {
	return url.Values{
		"store":        {"1"},
		"owner":        {"1"},
		"instanceCode": {instanceCode},
		"group":        {"4"},
	}
}

var _ ports.UpstreamClient = (*SitvalClient)(nil)
