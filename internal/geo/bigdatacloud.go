// ABOUTME: Reverse geocoding client backed by the BigDataCloud public API
// ABOUTME: Maps coordinates to a lowercase ISO country code with a best-effort fallback

package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultGeocodeBaseURL = "https://api.bigdatacloud.net"

// BigDataCloudClient reverse-geocodes coordinates using BigDataCloud's
// free reverse-geocode-client endpoint, which requires no API key.
type BigDataCloudClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewBigDataCloudClient creates a reverse geocoding client.
func NewBigDataCloudClient() *BigDataCloudClient {
	return &BigDataCloudClient{
		baseURL: defaultGeocodeBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CountryCode resolves the ISO 3166-1 alpha-2 country code for the given
// coordinates, lowercased. Upstream failures are returned as errors;
// callers decide whether to fall back to DefaultCountry.
func (c *BigDataCloudClient) CountryCode(ctx context.Context, coords Coordinates) (string, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	params.Set("localityLanguage", "en")

	endpoint := c.baseURL + "/data/reverse-geocode-client?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("building geocode request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling geocode upstream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocode upstream returned status %d", resp.StatusCode)
	}

	var body struct {
		CountryCode string `json:"countryCode"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding geocode response: %w", err)
	}

	if body.CountryCode == "" {
		return "", fmt.Errorf("geocode response missing country code")
	}

	return strings.ToLower(body.CountryCode), nil
}

var _ Geocoder = (*BigDataCloudClient)(nil)
