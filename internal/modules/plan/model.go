// README: Travel plan aggregate and status definitions.
package plan

import (
	"time"

	"wayfarer/internal/itinerary"
	"wayfarer/internal/types"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPlanned   Status = "planned"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

type Preferences struct {
	Interests []itinerary.Interest `json:"interests"`
	Notes     string               `json:"notes,omitempty"`
}

// Plan dates use itinerary.DateLayout.
type Plan struct {
	ID           types.ID             `json:"id"`
	UserID       string               `json:"user_id"`
	Title        string               `json:"title"`
	Destination  string               `json:"destination"`
	StartDate    string               `json:"start_date"`
	EndDate      string               `json:"end_date"`
	Budget       float64              `json:"budget"`
	Participants int                  `json:"participants"`
	Preferences  Preferences          `json:"preferences"`
	Itinerary    *itinerary.Itinerary `json:"itinerary,omitempty"`
	Status       Status               `json:"status"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Request rebuilds the planning request the plan was created from.
func (p *Plan) Request() itinerary.PlanningRequest {
	return itinerary.PlanningRequest{
		Destination:  p.Destination,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		Budget:       p.Budget,
		Participants: p.Participants,
		Interests:    p.Preferences.Interests,
		Notes:        p.Preferences.Notes,
	}
}

// AllowedTransitions represents the plan status flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusDraft:   {StatusPlanned},
	StatusPlanned: {StatusDraft, StatusActive},
	StatusActive:  {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPlanned, StatusActive, StatusCompleted:
		return true
	}
	return false
}
