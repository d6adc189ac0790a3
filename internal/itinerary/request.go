package itinerary

import (
	"fmt"
	"strings"
	"time"
)

// MaxTripDays bounds how many days a single generation call is asked for.
const MaxTripDays = 30

type Interest string

const (
	InterestFood       Interest = "food"
	InterestCulture    Interest = "culture"
	InterestNature     Interest = "nature"
	InterestHistory    Interest = "history"
	InterestShopping   Interest = "shopping"
	InterestNightlife  Interest = "nightlife"
	InterestAdventure  Interest = "adventure"
	InterestRelaxation Interest = "relaxation"
	InterestAnime      Interest = "anime"
	InterestArt        Interest = "art"
)

var knownInterests = map[Interest]bool{
	InterestFood: true, InterestCulture: true, InterestNature: true, InterestHistory: true,
	InterestShopping: true, InterestNightlife: true, InterestAdventure: true,
	InterestRelaxation: true, InterestAnime: true, InterestArt: true,
}

func (i Interest) Valid() bool { return knownInterests[i] }

// PlanningRequest is the user's trip description. Dates use DateLayout.
type PlanningRequest struct {
	Destination  string     `json:"destination"`
	StartDate    string     `json:"start_date"`
	EndDate      string     `json:"end_date"`
	Budget       float64    `json:"budget"`
	Participants int        `json:"participants"`
	Interests    []Interest `json:"interests"`
	Notes        string     `json:"notes,omitempty"`
}

// ValidationError reports the first request field that fails its constraint.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid planning request: %s %s", e.Field, e.Reason)
}

func (r PlanningRequest) Validate() error {
	if strings.TrimSpace(r.Destination) == "" {
		return &ValidationError{Field: "destination", Reason: "is required"}
	}
	start, err := time.Parse(DateLayout, r.StartDate)
	if err != nil {
		return &ValidationError{Field: "start_date", Reason: "must be YYYY-MM-DD"}
	}
	end, err := time.Parse(DateLayout, r.EndDate)
	if err != nil {
		return &ValidationError{Field: "end_date", Reason: "must be YYYY-MM-DD"}
	}
	if end.Before(start) {
		return &ValidationError{Field: "end_date", Reason: "must not be before start_date"}
	}
	if days := dayCount(start, end); days > MaxTripDays {
		return &ValidationError{Field: "end_date", Reason: fmt.Sprintf("trip longer than %d days", MaxTripDays)}
	}
	if r.Budget <= 0 {
		return &ValidationError{Field: "budget", Reason: "must be positive"}
	}
	if r.Participants <= 0 {
		return &ValidationError{Field: "participants", Reason: "must be positive"}
	}
	for _, in := range r.Interests {
		if !in.Valid() {
			return &ValidationError{Field: "interests", Reason: fmt.Sprintf("unknown interest %q", in)}
		}
	}
	return nil
}

// Start returns the parsed start date, or the zero time when it is malformed.
func (r PlanningRequest) Start() time.Time {
	t, _ := time.Parse(DateLayout, r.StartDate)
	return t
}

// Days is the inclusive day count of the date range; 0 when the range is invalid.
func (r PlanningRequest) Days() int {
	start, err := time.Parse(DateLayout, r.StartDate)
	if err != nil {
		return 0
	}
	end, err := time.Parse(DateLayout, r.EndDate)
	if err != nil || end.Before(start) {
		return 0
	}
	return dayCount(start, end)
}

func dayCount(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}
