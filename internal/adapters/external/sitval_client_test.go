package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"citabot.app/internal/mocks"
	"citabot.app/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	siteInstanceCode   = "k3j9x0w2q8m4n7b5v1c6z0a9s8d7f6g5"
	cookieInstanceCode = "p0o9i8u7y6t5r4e3w2q1a2s3d4f5g6h7"
)

// fakeSite mimics the booking site's landing page and ajax modules
type fakeSite struct {
	mu       sync.Mutex
	landing  string
	cookie   *http.Cookie
	modules  map[string]func(form url.Values) (int, string)
	requests map[string][]url.Values
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		landing:  "<html><body>nothing here</body></html>",
		modules:  map[string]func(url.Values) (int, string){},
		requests: map[string][]url.Values{},
	}
}

func (f *fakeSite) reply(module, body string) {
	f.modules[module] = func(url.Values) (int, string) { return http.StatusOK, body }
}

func (f *fakeSite) calls(module string) []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[module]
}

func (f *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		f.mu.Lock()
		f.requests["landing"] = append(f.requests["landing"], nil)
		f.mu.Unlock()
		if f.cookie != nil {
			http.SetCookie(w, f.cookie)
		}
		_, _ = w.Write([]byte(f.landing))
		return
	}

	if r.URL.Path != "/ajax/ajaxmodules.php" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	module := r.URL.Query().Get("module")
	f.mu.Lock()
	f.requests[module] = append(f.requests[module], r.PostForm)
	handler := f.modules[module]
	f.mu.Unlock()

	if handler == nil {
		_, _ = w.Write([]byte(`{}`))
		return
	}
	status, body := handler(r.PostForm)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newTestSitvalClient(t *testing.T, site *fakeSite, strategies ...string) *SitvalClient {
	t.Helper()

	server := httptest.NewServer(site)
	t.Cleanup(server.Close)

	client, err := NewSitvalClient(SitvalClientParams{
		BaseURL:              server.URL,
		FallbackInstanceCode: "2g8mkjxs7t6sk5gawgri5x1u2nryqcxb",
		SessionStrategies:    strategies,
		InstancePatterns: []string{
			`instanceCode["']?\s*[:=]\s*["']([a-zA-Z0-9]{20}[a-zA-Z0-9]*)["']`,
		},
		Timeout:    2 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		Cache:      NewMemoryCacheProvider(),
		Logger:     mocks.NewLogger(t),
	})
	require.NoError(t, err)
	return client
}

func TestNewSitvalClient_RejectsBadConfiguration(t *testing.T) {
	base := SitvalClientParams{BaseURL: "https://citaitvsitval.com", Cache: NewMemoryCacheProvider(), Logger: mocks.NewLogger(t)}

	bad := base
	bad.BaseURL = "not a url"
	_, err := NewSitvalClient(bad)
	assert.Error(t, err)

	bad = base
	bad.InstancePatterns = []string{"("}
	_, err = NewSitvalClient(bad)
	assert.Error(t, err)

	bad = base
	bad.SessionStrategies = []string{"selenium"}
	_, err = NewSitvalClient(bad)
	assert.Error(t, err)
}

func TestSitvalClient_ResolveSession_FallbackIsCached(t *testing.T) {
	site := newFakeSite()
	client := newTestSitvalClient(t, site, StrategyFallback, StrategyHTML)
	ctx := context.Background()

	session := client.ResolveSession(ctx, "")
	assert.Equal(t, "2g8mkjxs7t6sk5gawgri5x1u2nryqcxb", session.InstanceCode)
	assert.Equal(t, StrategyFallback, session.Strategy)

	again := client.ResolveSession(ctx, "")
	assert.Equal(t, session.InstanceCode, again.InstanceCode)
	assert.Empty(t, site.calls("landing"), "fallback never touches the network")
}

func TestSitvalClient_ResolveSession_HTMLStrategies(t *testing.T) {
	tests := []struct {
		name    string
		landing string
	}{
		{"inline script", `<html><script>var instanceCode = "` + siteInstanceCode + `";</script></html>`},
		{"data attribute", `<html><div id="app" data-instance-code="` + siteInstanceCode + `"></div></html>`},
		{"hidden input", `<html><form><input type="hidden" name="booking_instance" value="` + siteInstanceCode + `"></form></html>`},
		{"anywhere in document", `<html><a href="#" title='` + siteInstanceCode + `'>x</a></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := newFakeSite()
			site.landing = tt.landing
			client := newTestSitvalClient(t, site, StrategyHTML)

			session := client.ResolveSession(context.Background(), "")
			assert.Equal(t, siteInstanceCode, session.InstanceCode)
			assert.Equal(t, StrategyHTML, session.Strategy)
		})
	}
}

func TestSitvalClient_ResolveSession_CookieStrategy(t *testing.T) {
	site := newFakeSite()
	site.cookie = &http.Cookie{Name: "citaitv", Value: cookieInstanceCode, Path: "/"}
	client := newTestSitvalClient(t, site, StrategyHTML, StrategyCookie)

	session := client.ResolveSession(context.Background(), "")
	assert.Equal(t, cookieInstanceCode, session.InstanceCode)
	assert.Equal(t, StrategyCookie, session.Strategy)
	assert.Len(t, site.calls("landing"), 1, "landing page is fetched once per resolution")
	assert.Len(t, site.calls(moduleStartUp), 1)
}

func TestSitvalClient_ResolveSession_StartupJSONStrategy(t *testing.T) {
	site := newFakeSite()
	site.reply(moduleGroupStartup, `{"groups":{"1":{"name":"Valencia","level2":{"1":{"stores":{"1":{"store":"21","instanceCode":"`+cookieInstanceCode+`"}}}}}}}`)
	client := newTestSitvalClient(t, site, StrategyCookie, StrategyStartupJSON)

	session := client.ResolveSession(context.Background(), "")
	assert.Equal(t, cookieInstanceCode, session.InstanceCode)
	assert.Equal(t, StrategyStartupJSON, session.Strategy)
	assert.Len(t, site.calls(moduleGroupStartup), 1)
}

func TestSitvalClient_ResolveSession_DegradesToEmpty(t *testing.T) {
	site := newFakeSite()
	client := newTestSitvalClient(t, site, StrategyHTML, StrategyCookie, StrategyStartupJSON)

	session := client.ResolveSession(context.Background(), "")
	assert.Empty(t, session.InstanceCode)
	assert.Equal(t, StrategyEmpty, session.Strategy)
}

func TestSitvalClient_FetchStations_RemembersStationInstanceCodes(t *testing.T) {
	site := newFakeSite()
	site.reply(moduleGroupStartup, `{
		"groups": {
			"2": {"name": "Valencia", "level2": {
				"1": {"name": "fixed", "stores": {
					"1": {"name": "Valencia - Vara de Quart", "store": 21, "short_description": "C/ Vara de Quart", "first_availability": "2025-09-10", "instanceCode": "`+siteInstanceCode+`"},
					"2": {"name": "Valencia - Sueca", "store": "22", "first_availability": false}
				}},
				"2": {"name": "mobile", "stores": [{"name": "Móvil 1", "store": "40"}]}
			}},
			"1": {"name": "Alicante", "level2": []}
		}
	}`)
	client := newTestSitvalClient(t, site, StrategyFallback)

	stations := client.FetchStations(context.Background(), ports.SessionContext{InstanceCode: "abc"})
	require.Len(t, stations, 3)

	assert.Equal(t, "21", stations[0].StationID)
	assert.Equal(t, "Valencia", stations[0].Province)
	assert.Equal(t, "fixed", stations[0].Type)
	assert.Equal(t, "C/ Vara de Quart", stations[0].Address)
	require.NotNil(t, stations[0].FirstAvailability)
	assert.Equal(t, "2025-09-10", *stations[0].FirstAvailability)
	assert.Equal(t, "false", *stations[1].FirstAvailability)
	assert.Nil(t, stations[2].FirstAvailability)
	assert.Equal(t, "mobile", stations[2].Type)

	assert.Equal(t, "abc", site.calls(moduleGroupStartup)[0].Get("instanceCode"))

	session := client.ResolveSession(context.Background(), "21")
	assert.Equal(t, siteInstanceCode, session.InstanceCode)
	assert.Equal(t, StrategyStation, session.Strategy)
}

func TestSitvalClient_StationInstanceCodesExpireWithSession(t *testing.T) {
	site := newFakeSite()
	site.reply(moduleGroupStartup, `{"groups": {"1": {"name": "Valencia", "level2": {"1": {"name": "fixed", "stores": {
		"1": {"name": "Valencia - Vara de Quart", "store": "21", "instanceCode": "`+siteInstanceCode+`"}
	}}}}}}`)
	client := newTestSitvalClient(t, site, StrategyFallback)

	now := time.Date(2025, 9, 9, 10, 0, 0, 0, time.UTC)
	client.cache.(*MemoryCacheProvider).now = func() time.Time { return now }
	ctx := context.Background()

	require.Len(t, client.FetchStations(ctx, ports.SessionContext{}), 1)
	assert.Equal(t, StrategyStation, client.ResolveSession(ctx, "21").Strategy)

	now = now.Add(client.sessionTTL)
	session := client.ResolveSession(ctx, "21")
	assert.Equal(t, StrategyFallback, session.Strategy, "an expired station code is not reused")
	assert.Equal(t, "2g8mkjxs7t6sk5gawgri5x1u2nryqcxb", session.InstanceCode)
}

func TestSitvalClient_FetchMonthAvailability(t *testing.T) {
	site := newFakeSite()
	site.reply(moduleMonth, `{"get_open_days":{"0":"2025-09-10","1":"n1","2":"2025-09-11"},"service_price":"42,50","instanceCode":"`+siteInstanceCode+`"}`)
	client := newTestSitvalClient(t, site, StrategyFallback)

	month := client.FetchMonthAvailability(context.Background(), "21", "323",
		ports.SessionContext{InstanceCode: "abc"}, time.Date(2025, 9, 9, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, []string{"2025-09-10", "n1", "2025-09-11"}, month.OpenDays)
	require.NotNil(t, month.BasePrice)
	assert.Equal(t, 42.5, *month.BasePrice)
	assert.Equal(t, siteInstanceCode, month.InstanceCode)

	form := site.calls(moduleMonth)[0]
	assert.Equal(t, "21", form.Get("store"))
	assert.Equal(t, "323", form.Get("service"))
	assert.Equal(t, "2025-09-01", form.Get("date"))
	assert.Equal(t, "true", form.Get("firstCall"))
	assert.Equal(t, "abc", form.Get("instanceCode"))
}

func TestSitvalClient_FetchDayAvailability(t *testing.T) {
	site := newFakeSite()
	site.reply(moduleDay, `{"get_day_slots":{"0":["08:00","n0"],"1":["08:20"]},"get-hour-prices":"{\"08:00\": 39.9, \"08:20\": \"41.00\"}"}`)
	client := newTestSitvalClient(t, site, StrategyFallback)

	day := client.FetchDayAvailability(context.Background(), "21", "323", ports.SessionContext{}, "2025-09-10")

	assert.Equal(t, []string{"08:00", "n0", "08:20"}, day.SlotIDs)
	assert.Equal(t, map[string]float64{"08:00": 39.9, "08:20": 41}, day.Prices)
	assert.Equal(t, "2025-09-10", site.calls(moduleDay)[0].Get("dateHour"))
}

func TestSitvalClient_ResolveSlotTime(t *testing.T) {
	site := newFakeSite()
	site.modules[moduleHourDebug] = func(form url.Values) (int, string) {
		if form.Get("selectedTime") == "a3f9c2" {
			return http.StatusOK, `{"realSelectedTime":"11:15:00"}`
		}
		return http.StatusOK, `{}`
	}
	client := newTestSitvalClient(t, site, StrategyFallback)

	got, ok := client.ResolveSlotTime(context.Background(), ports.SessionContext{}, "a3f9c2")
	assert.True(t, ok)
	assert.Equal(t, "11:15:00", got)

	_, ok = client.ResolveSlotTime(context.Background(), ports.SessionContext{}, "zzz")
	assert.False(t, ok)
}

func TestSitvalClient_ServerErrorsAreRetriedThenEmpty(t *testing.T) {
	site := newFakeSite()
	site.modules[moduleMonth] = func(url.Values) (int, string) { return http.StatusBadGateway, "" }
	client := newTestSitvalClient(t, site, StrategyFallback)

	month := client.FetchMonthAvailability(context.Background(), "21", "323", ports.SessionContext{}, time.Now())
	assert.Empty(t, month.OpenDays)
	assert.Len(t, site.calls(moduleMonth), 3)
}

func TestSitvalClient_ClientErrorsAreNotRetried(t *testing.T) {
	site := newFakeSite()
	site.modules[moduleDay] = func(url.Values) (int, string) { return http.StatusForbidden, "banned" }
	client := newTestSitvalClient(t, site, StrategyFallback)

	day := client.FetchDayAvailability(context.Background(), "21", "323", ports.SessionContext{}, "2025-09-10")
	assert.Empty(t, day.SlotIDs)
	assert.Len(t, site.calls(moduleDay), 1)
}

func TestSitvalClient_MalformedJSONIsEmpty(t *testing.T) {
	site := newFakeSite()
	site.reply(moduleMonth, `<html>maintenance</html>`)
	site.reply(moduleGroupStartup, `[`)
	client := newTestSitvalClient(t, site, StrategyFallback)

	month := client.FetchMonthAvailability(context.Background(), "21", "323", ports.SessionContext{}, time.Now())
	assert.Empty(t, month.OpenDays)
	assert.Nil(t, month.BasePrice)
	assert.Empty(t, client.FetchStations(context.Background(), ports.SessionContext{}))
}

func TestRawValues_OrdersNumericKeys(t *testing.T) {
	values := rawValues([]byte(`{"10":"c","2":"b","1":"a"}`))
	require.Len(t, values, 3)
	assert.Equal(t, `"a"`, string(values[0]))
	assert.Equal(t, `"c"`, string(values[2]))

	assert.Nil(t, rawValues([]byte(`"scalar"`)))
	assert.Nil(t, rawValues(nil))
}

func TestFindInstanceCode_RequiresPlausibleLength(t *testing.T) {
	assert.Empty(t, findInstanceCode([]byte(`{"instanceCode":"short"}`)))
	assert.Equal(t, cookieInstanceCode, findInstanceCode([]byte(`[{"a":{"instanceCode":"`+cookieInstanceCode+`"}}]`)))
}
