package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"wayfarer/internal/ai"
	"wayfarer/internal/itinerary"
	"wayfarer/internal/maps"
	"wayfarer/internal/modules/location"
	"wayfarer/internal/modules/plan"
)

var (
	ErrDayOutOfRange     = errors.New("day out of range")
	ErrPlacesUnavailable = errors.New("places search not configured")
)

// RouteEstimator returns a travel estimate between two points.
type RouteEstimator interface {
	TravelEstimate(ctx context.Context, origin, destination itinerary.Coordinates) (maps.Estimate, error)
}

type PlaceSearcher interface {
	Search(ctx context.Context, query string, opts maps.SearchOptions) ([]maps.Place, error)
}

// TripPlanner orchestrates generation, normalization and map lookups.
type TripPlanner struct {
	generator ai.Generator
	enricher  *itinerary.Enricher
	routes    RouteEstimator
	places    PlaceSearcher
	logger    *zap.Logger
}

// NewTripPlanner creates a TripPlanner. geocoder, routes and places may be nil;
// the matching features are then skipped or report ErrPlacesUnavailable.
func NewTripPlanner(generator ai.Generator, geocoder itinerary.Geocoder, routes RouteEstimator, places PlaceSearcher, logger *zap.Logger) *TripPlanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &TripPlanner{generator: generator, routes: routes, places: places, logger: logger}
	if geocoder != nil {
		p.enricher = itinerary.NewEnricher(geocoder, logger)
	}
	return p
}

// Planned is a recovered itinerary together with its enrichment outcome.
type Planned struct {
	*itinerary.Result
	Enrichment itinerary.EnrichReport
}

// Plan drafts an itinerary for req.
func (p *TripPlanner) Plan(ctx context.Context, req itinerary.PlanningRequest) (*Planned, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return p.generate(ctx, req, ai.PlanningMessages(req), req.Days())
}

// Optimize regenerates the plan's itinerary taking feedback into account.
func (p *TripPlanner) Optimize(ctx context.Context, pl *plan.Plan, feedback string) (*Planned, error) {
	if strings.TrimSpace(feedback) == "" {
		return nil, &itinerary.ValidationError{Field: "feedback", Reason: "is required"}
	}
	if pl.Itinerary == nil || len(pl.Itinerary.Days) == 0 {
		return nil, fmt.Errorf("%w: plan has no itinerary to optimize", plan.ErrInvalidState)
	}
	messages, err := ai.OptimizeMessages(pl.Itinerary, feedback)
	if err != nil {
		return nil, err
	}
	req := pl.Request()
	days := req.Days()
	if days == 0 {
		days = len(pl.Itinerary.Days)
	}
	return p.generate(ctx, req, messages, days)
}

func (p *TripPlanner) generate(ctx context.Context, req itinerary.PlanningRequest, messages []ai.Message, days int) (*Planned, error) {
	started := time.Now()
	raw, err := p.generator.Generate(ctx, messages, ai.Options{JSON: true})
	if err != nil {
		return nil, fmt.Errorf("generate itinerary: %w", err)
	}

	opts := []itinerary.Option{itinerary.WithLogger(p.logger)}
	if start := req.Start(); !start.IsZero() {
		opts = append(opts, itinerary.WithStartDate(start))
	}
	result, err := itinerary.NewNormalizer(opts...).Normalize(raw, days)
	if err != nil {
		return nil, err
	}

	planned := &Planned{Result: result}
	if p.enricher != nil {
		report, err := p.enricher.Enrich(ctx, result.Itinerary, req.Destination)
		if err != nil {
			return nil, err
		}
		planned.Enrichment = report
	}

	p.logger.Info("itinerary generated",
		zap.String("provider", p.generator.Name()),
		zap.String("destination", req.Destination),
		zap.String("stage", result.Stage),
		zap.Int("days", len(result.Itinerary.Days)),
		zap.Bool("partial", result.Partial()),
		zap.Int("geocoded", planned.Enrichment.Enriched),
		zap.Duration("elapsed", time.Since(started)),
	)
	return planned, nil
}

// Tips returns up to ten travel tips for destination. Generation failures are
// logged and yield an empty list.
func (p *TripPlanner) Tips(ctx context.Context, destination string) ([]string, error) {
	if strings.TrimSpace(destination) == "" {
		return nil, &itinerary.ValidationError{Field: "destination", Reason: "is required"}
	}
	raw, err := p.generator.Generate(ctx, ai.TipsMessages(destination), ai.Options{MaxTokens: ai.TipsMaxTokens})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Warn("tips generation failed", zap.String("destination", destination), zap.Error(err))
		return []string{}, nil
	}
	return ai.ParseTips(raw), nil
}

// Leg connects two consecutive activities that both have coordinates.
type Leg struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	DistanceKm float64 `json:"distance_km"`
	// Driving figures are only set when a route service answered.
	DurationMinutes float64 `json:"duration_minutes,omitempty"`
	Distance        string  `json:"distance,omitempty"`
}

// DayRoute returns the legs of the given 1-based day.
func (p *TripPlanner) DayRoute(ctx context.Context, it *itinerary.Itinerary, day int) ([]Leg, error) {
	if it == nil || day < 1 || day > len(it.Days) {
		return nil, ErrDayOutOfRange
	}

	var located []itinerary.Activity
	for _, a := range it.Days[day-1].Activities {
		if a.Location.HasCoordinates() {
			located = append(located, a)
		}
	}

	legs := make([]Leg, 0, len(located))
	for i := 1; i < len(located); i++ {
		from, to := located[i-1], located[i]
		leg := Leg{
			From:       from.Name,
			To:         to.Name,
			DistanceKm: location.DistanceKm(*from.Location.Coordinates, *to.Location.Coordinates),
		}
		if p.routes != nil {
			est, err := p.routes.TravelEstimate(ctx, *from.Location.Coordinates, *to.Location.Coordinates)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				p.logger.Warn("route estimate failed", zap.String("from", from.Name), zap.String("to", to.Name), zap.Error(err))
			} else {
				leg.DurationMinutes = est.Duration.Minutes()
				leg.Distance = est.Distance
			}
		}
		legs = append(legs, leg)
	}
	return legs, nil
}

// SearchPlaces looks up points of interest in city. When near is set the
// results are ordered nearest-first from it.
func (p *TripPlanner) SearchPlaces(ctx context.Context, query, city string, near *itinerary.Coordinates) ([]maps.Place, error) {
	if p.places == nil {
		return nil, ErrPlacesUnavailable
	}
	if strings.TrimSpace(query) == "" {
		return nil, &itinerary.ValidationError{Field: "q", Reason: "is required"}
	}
	places, err := p.places.Search(ctx, query, maps.SearchOptions{City: city})
	if err != nil {
		return nil, err
	}
	if near != nil {
		location.SortByDistance(*near, places, func(pl maps.Place) *itinerary.Coordinates { return pl.Coordinates })
	}
	return places, nil
}
