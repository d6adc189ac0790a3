package maps

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"wayfarer/internal/itinerary"
)

// Geocoder resolves free-text addresses through the Geocoding API.
type Geocoder struct {
	client *maps.Client
	locale Locale
}

func NewGeocoder(client *maps.Client, locale Locale) *Geocoder {
	return &Geocoder{client: client, locale: locale}
}

// Geocode returns the first match for address, or nil when there is none.
func (g *Geocoder) Geocode(ctx context.Context, address string) (*itinerary.Coordinates, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:  address,
		Language: g.locale.Language,
		Region:   g.locale.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("geocoding api error: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	loc := results[0].Geometry.Location
	return &itinerary.Coordinates{Lng: loc.Lng, Lat: loc.Lat}, nil
}
