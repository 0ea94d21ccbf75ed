// ABOUTME: Location resolution interfaces and defaults for location-aware features
// ABOUTME: Defines Locator for coordinate lookup and Geocoder for reverse geocoding

package geo

import (
	"context"
	"errors"
)

// ErrLocationDenied indicates the caller's location could not be determined,
// typically because the user declined to share it.
var ErrLocationDenied = errors.New("location unavailable")

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// DefaultCoordinates is used when reverse geocoding needs a position but
// none was supplied.
var DefaultCoordinates = Coordinates{Latitude: 34.0522, Longitude: -118.2437}

// DefaultCountry is the country code assumed when reverse geocoding fails.
const DefaultCountry = "us"

// Locator resolves the caller's current position. Implementations may
// return ErrLocationDenied when no position is available.
type Locator interface {
	Locate(ctx context.Context) (Coordinates, error)
}

// Geocoder maps coordinates to an ISO 3166-1 alpha-2 country code.
type Geocoder interface {
	CountryCode(ctx context.Context, coords Coordinates) (string, error)
}

// StaticLocator always reports a fixed position.
type StaticLocator struct {
	Coords Coordinates
}

func (l *StaticLocator) Locate(ctx context.Context) (Coordinates, error) {
	return l.Coords, nil
}

// DeniedLocator always reports that no position is available.
type DeniedLocator struct{}

func (l *DeniedLocator) Locate(ctx context.Context) (Coordinates, error) {
	return Coordinates{}, ErrLocationDenied
}

var (
	_ Locator = (*StaticLocator)(nil)
	_ Locator = (*DeniedLocator)(nil)
)
