// README: Place search handler.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wayfarer/internal/itinerary"
	"wayfarer/internal/maps"
	"wayfarer/internal/service"
)

type LocationHandler struct {
	planner *service.TripPlanner
}

func NewLocationHandler(planner *service.TripPlanner) *LocationHandler {
	return &LocationHandler{planner: planner}
}

// SearchPlaces handles GET /api/places/search?q=&city=[&lat=&lng=].
func (h *LocationHandler) SearchPlaces(c *gin.Context) {
	near, ok := nearPoint(c)
	if !ok {
		writeError(c, http.StatusBadRequest, "lat and lng must be given together as valid coordinates")
		return
	}
	places, err := h.planner.SearchPlaces(c.Request.Context(), c.Query("q"), c.Query("city"), near)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if places == nil {
		places = []maps.Place{}
	}
	writeJSON(c, http.StatusOK, gin.H{"places": places})
}

// nearPoint reads the optional lat/lng pair used to order results by distance.
func nearPoint(c *gin.Context) (*itinerary.Coordinates, bool) {
	rawLat, rawLng := c.Query("lat"), c.Query("lng")
	if rawLat == "" && rawLng == "" {
		return nil, true
	}
	lat, errLat := strconv.ParseFloat(rawLat, 64)
	lng, errLng := strconv.ParseFloat(rawLng, 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, false
	}
	return &itinerary.Coordinates{Lng: lng, Lat: lat}, true
}
