package maps

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"wayfarer/internal/itinerary"
)

// Estimate is the first leg of the best route between two points.
type Estimate struct {
	Duration       time.Duration
	DistanceMeters int
	Distance       string
}

// RouteService handles travel estimates through the Directions API.
type RouteService struct {
	client *maps.Client
	locale Locale
}

func NewRouteService(client *maps.Client, locale Locale) *RouteService {
	return &RouteService{client: client, locale: locale}
}

// TravelEstimate returns the driving estimate from origin to destination.
func (s *RouteService) TravelEstimate(ctx context.Context, origin, destination itinerary.Coordinates) (Estimate, error) {
	r := &maps.DirectionsRequest{
		Origin:      latLng(origin),
		Destination: latLng(destination),
		Mode:        maps.TravelModeDriving,
		Language:    s.locale.Language,
		Region:      s.locale.Region,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return Estimate{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Estimate{}, fmt.Errorf("no route found")
	}

	leg := routes[0].Legs[0]
	return Estimate{
		Duration:       leg.Duration,
		DistanceMeters: leg.Distance.Meters,
		Distance:       leg.Distance.HumanReadable,
	}, nil
}

func latLng(c itinerary.Coordinates) string {
	return fmt.Sprintf("%f,%f", c.Lat, c.Lng)
}
