// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"wayfarer/internal/ai"
	"wayfarer/internal/itinerary"
	"wayfarer/internal/modules/expense"
	"wayfarer/internal/modules/plan"
	"wayfarer/internal/modules/quota"
	"wayfarer/internal/service"
	"wayfarer/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

type normalizationResponse struct {
	Error      string `json:"error"`
	Kind       string `json:"kind"`
	Diagnostic string `json:"diagnostic"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// pathID reads a UUID path parameter, writing a 400 when it is malformed.
func pathID(c *gin.Context, name string) (types.ID, bool) {
	id := types.ID(c.Param(name))
	if !id.Valid() {
		writeError(c, http.StatusBadRequest, "invalid "+name)
		return "", false
	}
	return id, true
}

// writeServiceError maps every module's errors to a status in one place.
func writeServiceError(c *gin.Context, err error) {
	var (
		verr *itinerary.ValidationError
		nerr *itinerary.NormalizationError
		terr *ai.TransportError
	)
	switch {
	case errors.As(err, &verr):
		writeError(c, http.StatusBadRequest, verr.Error())
	case errors.Is(err, plan.ErrBadRequest), errors.Is(err, expense.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, plan.ErrNotFound), errors.Is(err, expense.ErrNotFound), errors.Is(err, service.ErrDayOutOfRange):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, plan.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, plan.ErrInvalidState), errors.Is(err, plan.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, quota.ErrQuotaExhausted):
		writeError(c, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &nerr):
		writeJSON(c, http.StatusUnprocessableEntity, normalizationResponse{
			Error:      "could not recover an itinerary from the model response",
			Kind:       nerr.Kind.Error(),
			Diagnostic: nerr.Diagnostic,
		})
	case errors.Is(err, ai.ErrNotConfigured), errors.Is(err, service.ErrPlacesUnavailable):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &terr):
		_ = c.Error(err)
		if terr.Timeout {
			writeError(c, http.StatusRequestTimeout, "generation request timed out")
			return
		}
		writeError(c, http.StatusBadGateway, "generation service failed")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(c, http.StatusRequestTimeout, "request timed out")
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
