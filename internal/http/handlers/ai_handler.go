// README: AI helper handlers (travel tips, generation quota).
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wayfarer/internal/http/middleware"
	"wayfarer/internal/service"
)

const tipsTimeout = 20 * time.Second

type AIHandler struct {
	planner *service.TripPlanner
	quota   Quota
}

func NewAIHandler(planner *service.TripPlanner, q Quota) *AIHandler {
	return &AIHandler{planner: planner, quota: q}
}

// Tips handles GET /api/tips?destination=.
func (h *AIHandler) Tips(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), tipsTimeout)
	defer cancel()

	tips, err := h.planner.Tips(ctx, c.Query("destination"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"tips": tips})
}

// Quota handles GET /api/quota.
func (h *AIHandler) Quota(c *gin.Context) {
	usage, err := h.quota.Usage(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, usage)
}
