// ABOUTME: Tests for the proxy Service error taxonomy and validation ordering
// ABOUTME: Uses mock providers to verify no upstream call is issued on precondition failures

package proxy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockGenerator struct {
	text  string
	err   error
	calls int

	lastHistory []Turn
	lastSystem  string
}

func (m *mockGenerator) GenerateText(_ context.Context, history []Turn, system string) (string, error) {
	m.calls++
	m.lastHistory = history
	m.lastSystem = system
	return m.text, m.err
}

type mockWeather struct {
	report *WeatherReport
	err    error
	calls  int
}

func (m *mockWeather) CurrentWeather(_ context.Context, _, _ float64) (*WeatherReport, error) {
	m.calls++
	return m.report, m.err
}

type mockNews struct {
	articles []Article
	err      error
	calls    int

	lastCountry string
}

func (m *mockNews) TopHeadlines(_ context.Context, country string) ([]Article, error) {
	m.calls++
	m.lastCountry = country
	return m.articles, m.err
}

func history(texts ...string) []Turn {
	turns := make([]Turn, 0, len(texts))
	for i, text := range texts {
		role := RoleUser
		if i%2 == 1 {
			role = RoleModel
		}
		turns = append(turns, Turn{Role: role, Text: text})
	}
	return turns
}

func TestGenerate_ReturnsFirstCandidateText(t *testing.T) {
	gen := &mockGenerator{text: "hello there"}
	svc := New(gen, nil, nil, nil)

	text, err := svc.Generate(context.Background(), "caller-1", history("hi"), "")
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, history("hi"), gen.lastHistory)
	assert.Contains(t, gen.lastSystem, "Vilora")
}

func TestGenerate_PersonaIsPartOfSystemInstruction(t *testing.T) {
	gen := &mockGenerator{text: "ok"}
	svc := New(gen, nil, nil, nil)

	_, err := svc.Generate(context.Background(), "caller-1", history("hi"), "Comedian")
	require.NoError(t, err)
	assert.Contains(t, gen.lastSystem, "Comedian")
}

func TestGenerate_Unauthenticated(t *testing.T) {
	gen := &mockGenerator{text: "ok"}
	svc := New(gen, nil, nil, nil)

	_, err := svc.Generate(context.Background(), "", history("hi"), "")
	assert.Equal(t, KindUnauthenticated, KindOf(err))
	assert.Zero(t, gen.calls)
}

func TestGenerate_EmptyHistoryRegardlessOfCredential(t *testing.T) {
	// Argument validation precedes the credential check: an empty history is
	// invalid-argument even when no generator is configured at all.
	tests := []struct {
		name string
		gen  Generator
	}{
		{name: "credential configured", gen: &mockGenerator{text: "ok"}},
		{name: "credential absent", gen: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(tt.gen, nil, nil, nil)
			_, err := svc.Generate(context.Background(), "caller-1", nil, "")
			assert.Equal(t, KindInvalidArgument, KindOf(err))
		})
	}
}

func TestGenerate_InvalidRole(t *testing.T) {
	svc := New(&mockGenerator{text: "ok"}, nil, nil, nil)

	_, err := svc.Generate(context.Background(), "caller-1", []Turn{{Role: "assistant", Text: "hi"}}, "")
	assert.Equal(t, KindInvalidArgument, KindOf(err))
}

func TestGenerate_MissingCredential(t *testing.T) {
	svc := New(nil, nil, nil, nil)

	_, err := svc.Generate(context.Background(), "caller-1", history("hi"), "")
	assert.Equal(t, KindFailedPrecondition, KindOf(err))
}

func TestGenerate_NoCandidateMapsToNotFound(t *testing.T) {
	svc := New(&mockGenerator{err: ErrNoCandidate}, nil, nil, nil)

	_, err := svc.Generate(context.Background(), "caller-1", history("hi"), "")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestGenerate_UpstreamFailureMapsToInternal(t *testing.T) {
	svc := New(&mockGenerator{err: errors.New("connection reset")}, nil, nil, nil)

	_, err := svc.Generate(context.Background(), "caller-1", history("hi"), "")
	assert.Equal(t, KindInternal, KindOf(err))
}

func TestWeather_ReturnsNormalizedReport(t *testing.T) {
	weather := &mockWeather{report: &WeatherReport{TemperatureC: 21.5, WindSpeed: 3.2}}
	svc := New(nil, weather, nil, nil)

	report, err := svc.Weather(context.Background(), "caller-1", 34.05, -118.24)
	require.NoError(t, err)
	assert.Equal(t, 21.5, report.TemperatureC)
	assert.Equal(t, 3.2, report.WindSpeed)
}

func TestWeather_RejectsNonFiniteCoordinates(t *testing.T) {
	weather := &mockWeather{report: &WeatherReport{}}
	svc := New(nil, weather, nil, nil)

	nan := func() float64 { var z float64; return z / z }()

	_, err := svc.Weather(context.Background(), "caller-1", nan, 0)
	assert.Equal(t, KindInvalidArgument, KindOf(err))
	assert.Zero(t, weather.calls)
}

func TestWeather_MissingCredential(t *testing.T) {
	svc := New(nil, nil, nil, nil)

	_, err := svc.Weather(context.Background(), "caller-1", 1, 2)
	assert.Equal(t, KindFailedPrecondition, KindOf(err))
}

func TestWeather_Unauthenticated(t *testing.T) {
	svc := New(nil, &mockWeather{}, nil, nil)

	_, err := svc.Weather(context.Background(), "", 1, 2)
	assert.Equal(t, KindUnauthenticated, KindOf(err))
}

func TestNews_NormalizesCountryAndCapsArticles(t *testing.T) {
	news := &mockNews{articles: []Article{
		{Title: "one", URL: "https://example.com/1"},
		{Title: "two", URL: "https://example.com/2"},
		{Title: "three", URL: "https://example.com/3"},
		{Title: "four", URL: "https://example.com/4"},
		{Title: "five", URL: "https://example.com/5"},
		{Title: "six", URL: "https://example.com/6"},
	}}
	svc := New(nil, nil, news, nil)

	articles, err := svc.News(context.Background(), "caller-1", "US")
	require.NoError(t, err)

	assert.Equal(t, "us", news.lastCountry, "country code is lowercased before forwarding")
	require.Len(t, articles, 5)
	// Upstream order is preserved, never re-ranked
	assert.Equal(t, "one", articles[0].Title)
	assert.Equal(t, "five", articles[4].Title)
}

func TestNews_InvalidCountryCodeIssuesNoUpstreamCall(t *testing.T) {
	tests := []string{"", "u", "usa", "u1", "1u", "u-", "日本"}

	for _, code := range tests {
		t.Run("code="+code, func(t *testing.T) {
			news := &mockNews{}
			svc := New(nil, nil, news, nil)

			_, err := svc.News(context.Background(), "caller-1", code)
			assert.Equal(t, KindInvalidArgument, KindOf(err))
			assert.Zero(t, news.calls)
		})
	}
}

func TestNews_MissingCredential(t *testing.T) {
	svc := New(nil, nil, nil, nil)

	_, err := svc.News(context.Background(), "caller-1", "us")
	assert.Equal(t, KindFailedPrecondition, KindOf(err))
}

func TestNews_UpstreamFailureMapsToInternal(t *testing.T) {
	svc := New(nil, nil, &mockNews{err: errors.New("boom")}, nil)

	_, err := svc.News(context.Background(), "caller-1", "us")
	assert.Equal(t, KindInternal, KindOf(err))
}

func TestKindOf_UnclassifiedErrorIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}
