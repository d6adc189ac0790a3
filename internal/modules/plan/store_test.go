package plan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/itinerary"
	"wayfarer/internal/testutil"
)

func TestStoreRoundTrip(t *testing.T) {
	db := testutil.Postgres(t, "travel_plans")
	svc := NewService(NewStore(db))
	ctx := context.Background()

	rating := itinerary.Number(4.5)
	it := &itinerary.Itinerary{
		Days: []itinerary.DayPlan{{
			Date: "2024-05-01",
			Activities: []itinerary.Activity{{
				Name:     "灵隐寺",
				Location: itinerary.Location{Name: "灵隐寺", City: "杭州", Coordinates: &itinerary.Coordinates{Lng: 120.1, Lat: 30.2}},
				Cost:     75,
				Rating:   &rating,
			}},
			DailyCost: 300,
		}},
		TotalCost:       900,
		Recommendations: itinerary.TextList{"避开周末"},
	}

	created, err := svc.Create(ctx, CreateCommand{UserID: "u1", Request: sampleRequest(), Itinerary: it})
	require.NoError(t, err)

	got, err := svc.Get(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPlanned, got.Status)
	assert.Equal(t, "2024-05-01", got.StartDate)
	assert.Equal(t, "2024-05-03", got.EndDate)
	assert.Equal(t, []itinerary.Interest{itinerary.InterestNature}, got.Preferences.Interests)
	require.NotNil(t, got.Itinerary)
	assert.Equal(t, it.Days[0].Activities[0].Location.Coordinates, got.Itinerary.Days[0].Activities[0].Location.Coordinates)
	assert.Equal(t, itinerary.Number(900), got.Itinerary.TotalCost)

	_, err = svc.Transition(ctx, "u1", created.ID, StatusActive)
	require.NoError(t, err)

	store := NewStore(db)
	ok, err := store.UpdateStatus(ctx, created.ID, StatusPlanned, StatusDraft, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "stale status must not update")

	require.NoError(t, svc.Delete(ctx, "u1", created.ID))
	_, err = store.Get(ctx, created.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}
