package external

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"

	"citabot.app/internal/ports"
	"github.com/PuerkitoBio/goquery"
)

// Session strategy names, tried in the configured order
const (
	StrategyFallback    = "fallback"
	StrategyHTML        = "html"
	StrategyCookie      = "cookie"
	StrategyStartupJSON = "startup_json"
	StrategyStation     = "station_listing"
	StrategyEmpty       = "empty"
)

const (
	minHTMLInstanceCodeLength   = 20
	minCookieInstanceCodeLength = 25
	minJSONInstanceCodeLength   = 25
)

var (
	instanceCodeShape = regexp.MustCompile(`^[a-zA-Z0-9]{20,35}$`)
	cookieCodeShape   = regexp.MustCompile(`^[a-z0-9]+$`)
	quotedTokenRegex  = regexp.MustCompile(`["']([a-zA-Z0-9]{25,35})["']`)
	instanceAttrNames = []string{"data-instance-code", "data-instancecode", "instancecode", "instance-code"}
)

// sessionStrategy returns an identifier or "" when it found nothing
type sessionStrategy func(ctx context.Context, w *warmUp) string

// warmUp memoizes the landing page and startup calls for one resolution
type warmUp struct {
	client      *SitvalClient
	landing     []byte
	landingDone bool
	startup     []byte
	startupDone bool
}

func (w *warmUp) landingPage(ctx context.Context) []byte {
	if !w.landingDone {
		w.landingDone = true
		body, err := w.client.getPage(ctx, "/")
		if err != nil {
			w.client.logger.Warn("Landing page fetch failed", ports.F("error", err))
		}
		w.landing = body
	}
	return w.landing
}

// startupResponse replays the browser's startUp then groupStartup calls and
// returns the groupStartup body
func (w *warmUp) startupResponse(ctx context.Context) []byte {
	if !w.startupDone {
		w.startupDone = true
		w.landingPage(ctx)
		if _, err := w.client.postModule(ctx, moduleStartUp, url.Values{
			"store":          {"1"},
			"itineraryPlace": {"0"},
			"instanceCode":   {""},
		}); err != nil {
			w.client.logger.Warn("startUp call failed", ports.F("error", err))
		}
		body, err := w.client.postModule(ctx, moduleGroupStartup, groupStartupForm(""))
		if err != nil {
			w.client.logger.Warn("groupStartup call failed", ports.F("error", err))
		}
		w.startup = body
	}
	return w.startup
}

func (c *SitvalClient) strategy(name string) sessionStrategy {
	switch name {
	case StrategyFallback:
		return func(ctx context.Context, w *warmUp) string { return c.fallbackCode }
	case StrategyHTML:
		return func(ctx context.Context, w *warmUp) string {
			return extractInstanceFromHTML(w.landingPage(ctx), c.patterns)
		}
	case StrategyCookie:
		return func(ctx context.Context, w *warmUp) string {
			w.startupResponse(ctx)
			return c.instanceFromCookies()
		}
	case StrategyStartupJSON:
		return func(ctx context.Context, w *warmUp) string {
			return findInstanceCode(w.startupResponse(ctx))
		}
	default:
		return nil
	}
}

func (c *SitvalClient) instanceFromCookies() string {
	if c.http.Jar == nil {
		return ""
	}
	for _, cookie := range c.http.Jar.Cookies(c.baseURL) {
		if len(cookie.Value) >= minCookieInstanceCodeLength && cookieCodeShape.MatchString(cookie.Value) {
			return cookie.Value
		}
	}
	return ""
}

// extractInstanceFromHTML looks for the identifier in inline scripts, then DOM
// attributes, then hidden inputs, then anywhere in the raw document
func extractInstanceFromHTML(body []byte, patterns []*regexp.Regexp) string {
	if len(body) == 0 {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var found string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = matchInstance(s.Text(), patterns)
		return found == ""
	})
	if found != "" {
		return found
	}

	for _, attr := range instanceAttrNames {
		doc.Find("[" + attr + "]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, ok := s.Attr(attr); ok && len(strings.TrimSpace(v)) >= minHTMLInstanceCodeLength {
				found = strings.TrimSpace(v)
			}
			return found == ""
		})
		if found != "" {
			return found
		}
	}

	doc.Find(`input[type="hidden"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		value, _ := s.Attr("value")
		if strings.Contains(strings.ToLower(name), "instance") && len(value) >= minHTMLInstanceCodeLength {
			found = value
		}
		return found == ""
	})
	if found != "" {
		return found
	}

	return matchInstance(string(body), patterns)
}

func matchInstance(text string, patterns []*regexp.Regexp) string {
	all := append(append([]*regexp.Regexp{}, patterns...), quotedTokenRegex)
	for _, re := range all {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			if instanceCodeShape.MatchString(m[1]) {
				return m[1]
			}
		}
	}
	return ""
}
