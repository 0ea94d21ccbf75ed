// ABOUTME: One-shot session greeting composed from weather and news lookups
// ABOUTME: Each sub-call degrades independently to a fixed placeholder

package briefing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/vilora/vilora-gateway/internal/auth"
	"github.com/vilora/vilora-gateway/internal/geo"
	"github.com/vilora/vilora-gateway/internal/proxy"
)

// ErrNoIdentity is returned when a greeting is requested without a signed-in
// caller. The briefing only runs for authenticated sessions.
var ErrNoIdentity = errors.New("no caller identity")

// Degraded sub-call placeholders. Product strings, not log text.
const (
	weatherUnavailable = "🌦️ Weather data unavailable."
	newsUnavailable    = "📰 News data unavailable."
)

// Proxy is the subset of the service proxy the assembler calls.
type Proxy interface {
	Weather(ctx context.Context, callerID string, latitude, longitude float64) (*proxy.WeatherReport, error)
	News(ctx context.Context, callerID, country string) ([]proxy.Article, error)
}

// Assembler composes the session-start greeting. It never blocks message
// sending; its output is advisory text only.
type Assembler struct {
	proxy    Proxy
	locator  geo.Locator
	geocoder geo.Geocoder
	logger   *slog.Logger
}

// New creates a briefing assembler. Locator and geocoder are optional; a
// nil locator behaves like a location denial.
func New(p Proxy, locator geo.Locator, geocoder geo.Geocoder, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		proxy:    p,
		locator:  locator,
		geocoder: geocoder,
		logger:   logger.With("component", "briefing"),
	}
}

// Greeting produces the one-shot greeting for a signed-in caller.
//
// When the location is denied the result is a generic greeting and no
// network call is made. Otherwise weather and news are fetched
// independently; a failure in one degrades that sentence to its
// placeholder without blocking the other.
func (a *Assembler) Greeting(ctx context.Context, identity *auth.Identity) (string, error) {
	if identity == nil || identity.UserID == "" {
		return "", ErrNoIdentity
	}

	coords, ok := a.locate(ctx)
	if !ok {
		return fmt.Sprintf("Good morning, %s! ✨ How can I help you create something amazing today?",
			identity.DisplayName), nil
	}

	var weatherText, newsText string
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		weatherText = a.weatherSentence(ctx, identity.UserID, coords)
	}()
	go func() {
		defer wg.Done()
		newsText = a.newsSentence(ctx, identity.UserID, coords)
	}()
	wg.Wait()

	parts := []string{fmt.Sprintf("Good morning, %s! ✨", identity.DisplayName)}
	if weatherText != "" {
		parts = append(parts, weatherText)
	}
	if newsText != "" {
		parts = append(parts, newsText)
	}
	return strings.Join(parts, " "), nil
}

func (a *Assembler) locate(ctx context.Context) (geo.Coordinates, bool) {
	if a.locator == nil {
		return geo.Coordinates{}, false
	}
	coords, err := a.locator.Locate(ctx)
	if err != nil {
		a.logger.Debug("location unavailable, using generic greeting", "error", err)
		return geo.Coordinates{}, false
	}
	return coords, true
}

func (a *Assembler) weatherSentence(ctx context.Context, callerID string, coords geo.Coordinates) string {
	report, err := a.proxy.Weather(ctx, callerID, coords.Latitude, coords.Longitude)
	if err != nil {
		a.logger.Warn("briefing weather fetch failed", "error", err)
		return weatherUnavailable
	}
	return fmt.Sprintf("🌡️ The current temperature is %g°C.", report.TemperatureC)
}

func (a *Assembler) newsSentence(ctx context.Context, callerID string, coords geo.Coordinates) string {
	if a.geocoder == nil {
		a.logger.Warn("briefing news skipped, no geocoder configured")
		return newsUnavailable
	}
	country, err := a.geocoder.CountryCode(ctx, coords)
	if err != nil {
		a.logger.Warn("briefing geocoding failed", "error", err)
		return newsUnavailable
	}

	articles, err := a.proxy.News(ctx, callerID, country)
	if err != nil {
		a.logger.Warn("briefing news fetch failed", "error", err)
		return newsUnavailable
	}
	if len(articles) == 0 {
		return ""
	}
	return fmt.Sprintf("📰 Top headline: %s", articles[0].Title)
}
