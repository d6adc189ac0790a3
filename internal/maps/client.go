package maps

import (
	"fmt"

	"googlemaps.github.io/maps"
)

// Locale biases results for every maps call.
type Locale struct {
	Language string
	Region   string
}

// NewClient creates a Google Maps client shared by the geocoder, route and
// places services.
func NewClient(apiKey string) (*maps.Client, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return client, nil
}
