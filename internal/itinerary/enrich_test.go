package itinerary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedGeocoder struct {
	calls   []string
	results []*Coordinates
	errs    []error
}

func (g *scriptedGeocoder) Geocode(_ context.Context, address string) (*Coordinates, error) {
	i := len(g.calls)
	g.calls = append(g.calls, address)
	if i < len(g.errs) && g.errs[i] != nil {
		return nil, g.errs[i]
	}
	if i < len(g.results) {
		return g.results[i], nil
	}
	return nil, nil
}

func threeActivities() *Itinerary {
	return &Itinerary{Days: []DayPlan{
		{Date: "2024-05-01", Activities: []Activity{
			{Name: "Senso-ji", Location: Location{Name: "Senso-ji", Address: "2-3-1 Asakusa", City: "Tokyo"}},
			{Name: "Skytree", Location: Location{Name: "Tokyo Skytree"}},
		}},
		{Date: "2024-05-02", Activities: []Activity{
			{Name: "Meiji Jingu", Location: Location{Name: "Meiji Jingu", City: "Shibuya"}},
		}},
	}}
}

func TestEnrichIsolatesFailures(t *testing.T) {
	geo := &scriptedGeocoder{
		results: []*Coordinates{{Lng: 139.79, Lat: 35.71}, nil, {Lng: 139.69, Lat: 35.67}},
		errs:    []error{nil, errors.New("quota exceeded"), nil},
	}
	it := threeActivities()

	report, err := NewEnricher(geo, nil).Enrich(context.Background(), it, "Tokyo")
	require.NoError(t, err)
	assert.Equal(t, EnrichReport{Attempted: 3, Enriched: 2, Failed: 1}, report)

	assert.Equal(t, []string{"Tokyo 2-3-1 Asakusa", "Tokyo Tokyo Skytree", "Shibuya Meiji Jingu"}, geo.calls)
	assert.True(t, it.Days[0].Activities[0].Location.HasCoordinates())
	assert.Nil(t, it.Days[0].Activities[1].Location.Coordinates)
	assert.True(t, it.Days[1].Activities[0].Location.HasCoordinates())
}

func TestEnrichSkipsLocatedActivities(t *testing.T) {
	it := threeActivities()
	it.Days[0].Activities[0].Location.Coordinates = &Coordinates{Lng: 1, Lat: 1}
	geo := &scriptedGeocoder{}

	report, err := NewEnricher(geo, nil).Enrich(context.Background(), it, "Tokyo")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 0, report.Enriched)
	assert.Len(t, geo.calls, 2)
}

func TestEnrichStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	geo := &scriptedGeocoder{}

	_, err := NewEnricher(geo, nil).Enrich(ctx, threeActivities(), "Tokyo")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, geo.calls)
}
