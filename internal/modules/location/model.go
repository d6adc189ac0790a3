// README: Cached geocode entries.
package location

import (
	"time"

	"wayfarer/internal/itinerary"
)

const (
	// HitTTL keeps resolved addresses for a month.
	HitTTL = 30 * 24 * time.Hour
	// MissTTL remembers unresolvable addresses for a day.
	MissTTL = 24 * time.Hour
)

// Entry is a cached lookup. Point is nil for a remembered miss.
type Entry struct {
	Point *itinerary.Coordinates `json:"point,omitempty"`
}
