package itinerary

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() PlanningRequest {
	return PlanningRequest{
		Destination:  "Tokyo",
		StartDate:    "2024-05-01",
		EndDate:      "2024-05-05",
		Budget:       10000,
		Participants: 2,
		Interests:    []Interest{InterestFood, InterestAnime},
	}
}

func TestPlanningRequestDays(t *testing.T) {
	r := validRequest()
	assert.Equal(t, 5, r.Days())

	r.EndDate = r.StartDate
	assert.Equal(t, 1, r.Days())

	r.EndDate = "2024-04-30"
	assert.Equal(t, 0, r.Days())
}

func TestPlanningRequestValidate(t *testing.T) {
	require.NoError(t, validRequest().Validate())

	cases := map[string]func(*PlanningRequest){
		"destination":  func(r *PlanningRequest) { r.Destination = " " },
		"start_date":   func(r *PlanningRequest) { r.StartDate = "05/01/2024" },
		"end_date":     func(r *PlanningRequest) { r.EndDate = "2024-04-01" },
		"budget":       func(r *PlanningRequest) { r.Budget = 0 },
		"participants": func(r *PlanningRequest) { r.Participants = -1 },
		"interests":    func(r *PlanningRequest) { r.Interests = []Interest{"skydiving"} },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			r := validRequest()
			mutate(&r)
			err := r.Validate()
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, field, verr.Field)
		})
	}
}

func TestPlanningRequestRejectsLongTrips(t *testing.T) {
	r := validRequest()
	r.EndDate = "2024-07-01"
	var verr *ValidationError
	require.True(t, errors.As(r.Validate(), &verr))
	assert.Equal(t, "end_date", verr.Field)
}
