// ABOUTME: Service is the external-request proxy for generation, weather, and news
// ABOUTME: Validates caller requests, forwards them upstream with server-held credentials, normalizes results

package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode"
)

// Turn is one entry of the chat history forwarded to the generation provider.
type Turn struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

// Chat history roles
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// WeatherReport is the normalized weather result: metric units only.
type WeatherReport struct {
	TemperatureC float64 `json:"temperature"`
	WindSpeed    float64 `json:"windspeed"`
}

// Article is one normalized news headline.
type Article struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// maxArticles caps the number of headlines returned per News call
const maxArticles = 5

// systemInstruction is the fixed framing sent with every generation request.
// The persona tag, when present, is appended to it.
const systemInstruction = "Your name is Vilora. You are a helpful AI assistant."

// Generator is the upstream generation provider contract.
type Generator interface {
	// GenerateText returns the first candidate's text for the given history.
	// Returns ErrNoCandidate when the upstream response holds no usable text.
	GenerateText(ctx context.Context, history []Turn, system string) (string, error)
}

// WeatherProvider is the upstream weather service contract.
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, latitude, longitude float64) (*WeatherReport, error)
}

// NewsProvider is the upstream headline service contract.
type NewsProvider interface {
	TopHeadlines(ctx context.Context, country string) ([]Article, error)
}

// Service proxies validated caller requests to keyed third-party providers.
// It holds no cross-request state: every operation is independent and safe
// under unbounded parallelism. Upstream calls are billable side effects —
// the service never retries and never issues them speculatively; a nil
// provider means the corresponding credential is not configured.
type Service struct {
	generator Generator
	weather   WeatherProvider
	news      NewsProvider
	logger    *slog.Logger
}

// New creates a proxy service. Any provider may be nil when its credential is
// absent; the matching capability then fails with KindFailedPrecondition.
func New(generator Generator, weather WeatherProvider, news NewsProvider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		generator: generator,
		weather:   weather,
		news:      news,
		logger:    logger.With("component", "proxy"),
	}
}

// Generate forwards the full chat history plus the fixed system instruction to
// the generation provider and returns the first candidate's text.
func (s *Service) Generate(ctx context.Context, callerID string, history []Turn, persona string) (string, error) {
	if callerID == "" {
		return "", E(KindUnauthenticated, "caller identity required")
	}
	if len(history) == 0 {
		return "", E(KindInvalidArgument, "chat history must be a non-empty sequence")
	}
	for i, turn := range history {
		if turn.Role != RoleUser && turn.Role != RoleModel {
			return "", E(KindInvalidArgument, fmt.Sprintf("chat history entry %d has invalid role %q", i, turn.Role))
		}
	}
	if s.generator == nil {
		return "", E(KindFailedPrecondition, "missing Gemini API key")
	}

	system := systemInstruction
	if persona != "" {
		system += " Adopt the persona of " + persona + "."
	}

	text, err := s.generator.GenerateText(ctx, history, system)
	if err != nil {
		if errors.Is(err, ErrNoCandidate) {
			return "", Wrap(KindNotFound, "invalid response from generation provider", err)
		}
		s.logger.Error("generation call failed", "caller_id", callerID, "error", err)
		return "", Wrap(KindInternal, "generation API call failed", err)
	}

	return text, nil
}

// Weather forwards coordinates to the weather provider with metric units.
func (s *Service) Weather(ctx context.Context, callerID string, latitude, longitude float64) (*WeatherReport, error) {
	if callerID == "" {
		return nil, E(KindUnauthenticated, "caller identity required")
	}
	if !isFinite(latitude) || !isFinite(longitude) {
		return nil, E(KindInvalidArgument, "latitude and longitude must be numbers")
	}
	if s.weather == nil {
		return nil, E(KindFailedPrecondition, "missing OpenWeather API key")
	}

	report, err := s.weather.CurrentWeather(ctx, latitude, longitude)
	if err != nil {
		s.logger.Error("weather call failed", "caller_id", callerID, "error", err)
		return nil, Wrap(KindInternal, "weather API call failed", err)
	}

	return report, nil
}

// News returns at most the top five headlines for a 2-letter country code,
// in upstream order. The code is normalized to lowercase before forwarding;
// an invalid code fails before any upstream call is issued.
func (s *Service) News(ctx context.Context, callerID string, country string) ([]Article, error) {
	if callerID == "" {
		return nil, E(KindUnauthenticated, "caller identity required")
	}
	if !isCountryCode(country) {
		return nil, E(KindInvalidArgument, "a 2-letter country code is required")
	}
	if s.news == nil {
		return nil, E(KindFailedPrecondition, "missing News API key")
	}

	articles, err := s.news.TopHeadlines(ctx, strings.ToLower(country))
	if err != nil {
		s.logger.Error("news call failed", "caller_id", callerID, "error", err)
		return nil, Wrap(KindInternal, "news API call failed", err)
	}

	if len(articles) > maxArticles {
		articles = articles[:maxArticles]
	}
	return articles, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isCountryCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
