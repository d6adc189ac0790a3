package maps

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"wayfarer/internal/itinerary"
)

const defaultPlaceLimit = 10

// Place represents a simplified search result.
type Place struct {
	Name             string                 `json:"name"`
	Address          string                 `json:"address"`
	Coordinates      *itinerary.Coordinates `json:"coordinates,omitempty"`
	Rating           float32                `json:"rating"`
	PlaceID          string                 `json:"place_id"`
	UserRatingsTotal int                    `json:"user_ratings_total"`
	Types            []string               `json:"types,omitempty"`
}

// SearchOptions refine a text search.
type SearchOptions struct {
	// City is appended to the query as "<query> in <city>".
	City string
	// ExcludeKeywords drop any result whose name contains one of them.
	ExcludeKeywords []string
	MinRating       float32
	Limit           int
}

// PlacesService handles interactions with the Places API.
type PlacesService struct {
	client *maps.Client
	locale Locale
}

func NewPlacesService(client *maps.Client, locale Locale) *PlacesService {
	return &PlacesService{client: client, locale: locale}
}

func (s *PlacesService) Search(ctx context.Context, query string, opts SearchOptions) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("places: empty query")
	}
	fullQuery := query
	if city := strings.TrimSpace(opts.City); city != "" {
		fullQuery = fmt.Sprintf("%s in %s", query, city)
	}

	resp, err := s.client.TextSearch(ctx, &maps.TextSearchRequest{
		Query:    fullQuery,
		Language: s.locale.Language,
		Region:   s.locale.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}
	return filterPlaces(resp.Results, opts), nil
}

func filterPlaces(in []maps.PlacesSearchResult, opts SearchOptions) []Place {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPlaceLimit
	}
	results := make([]Place, 0, limit)
	for _, r := range in {
		if r.Rating < opts.MinRating {
			continue
		}
		if containsAny(r.Name, opts.ExcludeKeywords) {
			continue
		}
		p := Place{
			Name:             r.Name,
			Address:          r.FormattedAddress,
			Rating:           r.Rating,
			PlaceID:          r.PlaceID,
			UserRatingsTotal: r.UserRatingsTotal,
			Types:            r.Types,
		}
		if loc := r.Geometry.Location; loc.Lat != 0 || loc.Lng != 0 {
			p.Coordinates = &itinerary.Coordinates{Lng: loc.Lng, Lat: loc.Lat}
		}
		results = append(results, p)
		if len(results) >= limit {
			break
		}
	}
	return results
}

func containsAny(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
