// ABOUTME: OpenWeather-backed WeatherProvider over plain HTTP
// ABOUTME: Requests current conditions in metric units and normalizes to WeatherReport

package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultOpenWeatherBaseURL = "https://api.openweathermap.org"

// upstreamTimeout bounds every third-party HTTP call issued by the proxy
const upstreamTimeout = 15 * time.Second

// OpenWeatherClient implements WeatherProvider against the OpenWeather
// current-weather endpoint.
type OpenWeatherClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewOpenWeatherClient creates a weather client for the given API key.
func NewOpenWeatherClient(apiKey string) *OpenWeatherClient {
	return &OpenWeatherClient{
		apiKey:     apiKey,
		baseURL:    defaultOpenWeatherBaseURL,
		httpClient: &http.Client{Timeout: upstreamTimeout},
	}
}

// openWeatherResponse is the subset of the upstream payload we consume
type openWeatherResponse struct {
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// CurrentWeather fetches current conditions for the coordinates, metric units.
func (c *OpenWeatherClient) CurrentWeather(ctx context.Context, latitude, longitude float64) (*WeatherReport, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(latitude, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(longitude, 'f', -1, 64))
	query.Set("appid", c.apiKey)
	query.Set("units", "metric")

	reqURL := c.baseURL + "/data/2.5/weather?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather upstream returned status %d", resp.StatusCode)
	}

	var payload openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding weather response: %w", err)
	}

	return &WeatherReport{
		TemperatureC: payload.Main.Temp,
		WindSpeed:    payload.Wind.Speed,
	}, nil
}

// Ensure OpenWeatherClient implements WeatherProvider
var _ WeatherProvider = (*OpenWeatherClient)(nil)
