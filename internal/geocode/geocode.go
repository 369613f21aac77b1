// Package geocode wraps the external geocoding provider. Zero results or a
// provider error surface as ErrNoResults; only the first candidate is used.
package geocode

import (
	"context"
	"errors"
	"fmt"

	"tandem-backend/internal/models"

	"googlemaps.github.io/maps"
)

// ErrNoResults is returned when the provider finds nothing for an address.
var ErrNoResults = errors.New("no geodata found for address")

// Result is one geocoded candidate: a point location plus the recommended
// display viewport.
type Result struct {
	Location models.LatLng
	Viewport models.Viewport
}

// Geocoder resolves a free-form address string into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Result, error)
}

// MapsGeocoder is a Geocoder backed by the Google Maps Geocoding API.
type MapsGeocoder struct {
	client *maps.Client
}

// NewMapsGeocoder creates a geocoder with the given API key.
func NewMapsGeocoder(apiKey string) (*MapsGeocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &MapsGeocoder{client: client}, nil
}

// Geocode resolves the address through the Maps API.
func (g *MapsGeocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	geometry := results[0].Geometry
	return &Result{
		Location: models.LatLng{Lat: geometry.Location.Lat, Lng: geometry.Location.Lng},
		Viewport: models.Viewport{
			Northeast: models.LatLng{Lat: geometry.Viewport.NorthEast.Lat, Lng: geometry.Viewport.NorthEast.Lng},
			Southwest: models.LatLng{Lat: geometry.Viewport.SouthWest.Lat, Lng: geometry.Viewport.SouthWest.Lng},
		},
	}, nil
}
