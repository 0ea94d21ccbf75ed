// ABOUTME: Tests for location resolution and reverse geocoding
// ABOUTME: Uses an httptest server to exercise the BigDataCloud client

package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticLocator(t *testing.T) {
	locator := &StaticLocator{Coords: Coordinates{Latitude: 51.5, Longitude: -0.12}}

	coords, err := locator.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 51.5, coords.Latitude)
	assert.Equal(t, -0.12, coords.Longitude)
}

func TestDeniedLocator(t *testing.T) {
	locator := &DeniedLocator{}

	_, err := locator.Locate(context.Background())
	assert.ErrorIs(t, err, ErrLocationDenied)
}

func TestBigDataCloudClient_CountryCode(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"latitude":  r.URL.Query().Get("latitude"),
			"longitude": r.URL.Query().Get("longitude"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"countryCode":"GB","city":"London"}`))
	}))
	defer srv.Close()

	client := NewBigDataCloudClient()
	client.baseURL = srv.URL

	code, err := client.CountryCode(context.Background(), Coordinates{Latitude: 51.5072, Longitude: -0.1276})
	require.NoError(t, err)

	assert.Equal(t, "gb", code, "country code should be lowercased")
	assert.Equal(t, "51.5072", gotQuery["latitude"])
	assert.Equal(t, "-0.1276", gotQuery["longitude"])
}

func TestBigDataCloudClient_MissingCountryCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"city":"Atlantis"}`))
	}))
	defer srv.Close()

	client := NewBigDataCloudClient()
	client.baseURL = srv.URL

	_, err := client.CountryCode(context.Background(), DefaultCoordinates)
	assert.ErrorContains(t, err, "missing country code")
}

func TestBigDataCloudClient_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewBigDataCloudClient()
	client.baseURL = srv.URL

	_, err := client.CountryCode(context.Background(), DefaultCoordinates)
	assert.ErrorContains(t, err, "status 429")
}
