// README: Plan handlers: generate, CRUD, status, budget and day routes.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wayfarer/internal/http/middleware"
	"wayfarer/internal/itinerary"
	"wayfarer/internal/modules/expense"
	"wayfarer/internal/modules/plan"
	"wayfarer/internal/modules/quota"
	"wayfarer/internal/service"
)

// Quota meters generation calls per user.
type Quota interface {
	Consume(ctx context.Context, uid string) error
	Refund(ctx context.Context, uid string) error
	Usage(ctx context.Context, uid string) (quota.Usage, error)
}

type PlanHandler struct {
	plans    *plan.Service
	expenses *expense.Service
	planner  *service.TripPlanner
	quota    Quota
}

func NewPlanHandler(plans *plan.Service, expenses *expense.Service, planner *service.TripPlanner, q Quota) *PlanHandler {
	return &PlanHandler{plans: plans, expenses: expenses, planner: planner, quota: q}
}

type generatePlanReq struct {
	itinerary.PlanningRequest
	Title string `json:"title"`
}

// generationResponse reports a saved plan together with how the itinerary was recovered.
type generationResponse struct {
	Plan         *plan.Plan             `json:"plan"`
	Stage        string                 `json:"stage"`
	Warnings     []string               `json:"warnings"`
	ExpectedDays int                    `json:"expected_days"`
	ActualDays   int                    `json:"actual_days"`
	Enrichment   itinerary.EnrichReport `json:"enrichment"`
}

func newGenerationResponse(p *plan.Plan, planned *service.Planned, expected int) generationResponse {
	resp := generationResponse{
		Plan:         p,
		Stage:        planned.Stage,
		Warnings:     []string{},
		ExpectedDays: expected,
		ActualDays:   len(planned.Itinerary.Days),
		Enrichment:   planned.Enrichment,
	}
	if planned.Warning != nil {
		resp.Warnings = append(resp.Warnings, planned.Warning.Error())
	}
	return resp
}

// Generate handles POST /api/plans/generate.
func (h *PlanHandler) Generate(c *gin.Context) {
	var req generatePlanReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(c, err)
		return
	}
	uid := middleware.CallerUID(c)
	ctx := c.Request.Context()

	var p *plan.Plan
	planned, err := h.generate(ctx, uid, func() (*service.Planned, error) {
		planned, err := h.planner.Plan(ctx, req.PlanningRequest)
		if err != nil {
			return nil, err
		}
		p, err = h.plans.Create(ctx, plan.CreateCommand{
			UserID:    uid,
			Title:     req.Title,
			Request:   req.PlanningRequest,
			Itinerary: planned.Itinerary,
		})
		if err != nil {
			return nil, err
		}
		return planned, nil
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, newGenerationResponse(p, planned, req.Days()))
}

// generate consumes one generation and gives it back when run fails,
// including when the result could not be saved.
func (h *PlanHandler) generate(ctx context.Context, uid string, run func() (*service.Planned, error)) (*service.Planned, error) {
	if err := h.quota.Consume(ctx, uid); err != nil {
		return nil, err
	}
	planned, err := run()
	if err != nil {
		if refundErr := h.quota.Refund(context.WithoutCancel(ctx), uid); refundErr != nil {
			return nil, errors.Join(err, refundErr)
		}
		return nil, err
	}
	return planned, nil
}

type createPlanReq struct {
	itinerary.PlanningRequest
	Title     string               `json:"title"`
	Itinerary *itinerary.Itinerary `json:"itinerary"`
}

// Create handles POST /api/plans (manual plan, optionally with an itinerary).
func (h *PlanHandler) Create(c *gin.Context) {
	var req createPlanReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Itinerary != nil && len(req.Itinerary.Days) == 0 {
		req.Itinerary = nil
	}
	p, err := h.plans.Create(c.Request.Context(), plan.CreateCommand{
		UserID:    middleware.CallerUID(c),
		Title:     req.Title,
		Request:   req.PlanningRequest,
		Itinerary: req.Itinerary,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, p)
}

func (h *PlanHandler) List(c *gin.Context) {
	plans, err := h.plans.List(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if plans == nil {
		plans = []plan.Plan{}
	}
	writeJSON(c, http.StatusOK, gin.H{"plans": plans})
}

func (h *PlanHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.plans.Get(c.Request.Context(), middleware.CallerUID(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

type updatePlanReq struct {
	Title        *string           `json:"title"`
	Destination  *string           `json:"destination"`
	StartDate    *string           `json:"start_date"`
	EndDate      *string           `json:"end_date"`
	Budget       *float64          `json:"budget"`
	Participants *int              `json:"participants"`
	Preferences  *plan.Preferences `json:"preferences"`
}

// Update handles PATCH /api/plans/:id.
func (h *PlanHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updatePlanReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p, err := h.plans.Update(c.Request.Context(), plan.UpdateCommand{
		UserID:       middleware.CallerUID(c),
		PlanID:       id,
		Title:        req.Title,
		Destination:  req.Destination,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Budget:       req.Budget,
		Participants: req.Participants,
		Preferences:  req.Preferences,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

// ReplaceItinerary handles PUT /api/plans/:id/itinerary.
func (h *PlanHandler) ReplaceItinerary(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var it itinerary.Itinerary
	if err := c.ShouldBindJSON(&it); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p, err := h.plans.ReplaceItinerary(c.Request.Context(), middleware.CallerUID(c), id, &it)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

type optimizeReq struct {
	Feedback string `json:"feedback"`
}

// Optimize handles POST /api/plans/:id/optimize and saves the revised itinerary.
func (h *PlanHandler) Optimize(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req optimizeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	uid := middleware.CallerUID(c)
	ctx := c.Request.Context()

	current, err := h.plans.Get(ctx, uid, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	var p *plan.Plan
	planned, err := h.generate(ctx, uid, func() (*service.Planned, error) {
		planned, err := h.planner.Optimize(ctx, current, req.Feedback)
		if err != nil {
			return nil, err
		}
		p, err = h.plans.ReplaceItinerary(ctx, uid, id, planned.Itinerary)
		if err != nil {
			return nil, err
		}
		return planned, nil
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	expected := current.Request().Days()
	writeJSON(c, http.StatusOK, newGenerationResponse(p, planned, expected))
}

type transitionReq struct {
	Status plan.Status `json:"status"`
}

// Transition handles POST /api/plans/:id/status.
func (h *PlanHandler) Transition(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transitionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p, err := h.plans.Transition(c.Request.Context(), middleware.CallerUID(c), id, req.Status)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

func (h *PlanHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.plans.Delete(c.Request.Context(), middleware.CallerUID(c), id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Budget handles GET /api/plans/:id/budget.
func (h *PlanHandler) Budget(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.expenses.Budget(c.Request.Context(), middleware.CallerUID(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, view)
}

// DayRoute handles GET /api/plans/:id/days/:day/route.
func (h *PlanHandler) DayRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid day")
		return
	}
	ctx := c.Request.Context()
	p, err := h.plans.Get(ctx, middleware.CallerUID(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	legs, err := h.planner.DayRoute(ctx, p.Itinerary, day)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"day": day, "legs": legs})
}
