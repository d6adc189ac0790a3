package itinerary

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Geocoder resolves an address to a point. A nil point with a nil error
// means the address was not found.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Coordinates, error)
}

type EnrichReport struct {
	Attempted int `json:"attempted"`
	Enriched  int `json:"enriched"`
	Failed    int `json:"failed"`
}

type Enricher struct {
	geocoder Geocoder
	logger   *zap.Logger
}

func NewEnricher(geocoder Geocoder, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{geocoder: geocoder, logger: logger}
}

// Enrich fills missing activity coordinates one activity at a time. A failed
// lookup is logged and leaves that activity untouched; only a done context
// stops the pass early.
func (e *Enricher) Enrich(ctx context.Context, it *Itinerary, fallbackCity string) (EnrichReport, error) {
	var report EnrichReport
	if it == nil || e.geocoder == nil {
		return report, nil
	}
	for i := range it.Days {
		for j := range it.Days[i].Activities {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			loc := &it.Days[i].Activities[j].Location
			if loc.HasCoordinates() {
				continue
			}
			address := geocodeAddress(*loc, fallbackCity)
			if address == "" {
				continue
			}
			report.Attempted++
			point, err := e.geocoder.Geocode(ctx, address)
			if err != nil {
				report.Failed++
				e.logger.Warn("geocode failed", zap.String("address", address), zap.Error(err))
				continue
			}
			if point == nil {
				continue
			}
			loc.Coordinates = point
			report.Enriched++
		}
	}
	return report, nil
}

func geocodeAddress(loc Location, fallbackCity string) string {
	city := strings.TrimSpace(loc.City)
	if city == "" {
		city = strings.TrimSpace(fallbackCity)
	}
	place := strings.TrimSpace(loc.Address)
	if place == "" {
		place = strings.TrimSpace(loc.Name)
	}
	if place == "" {
		return ""
	}
	return strings.TrimSpace(city + " " + place)
}
