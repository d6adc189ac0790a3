// README: Plan and expense handler tests over in-memory repositories.
package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/http/handlers"
	httpmiddleware "wayfarer/internal/http/middleware"
	"wayfarer/internal/infra"
	"wayfarer/internal/itinerary"
	"wayfarer/internal/modules/expense"
	"wayfarer/internal/modules/plan"
	"wayfarer/internal/service"
	"wayfarer/internal/types"
)

const twoDays = `{"days":[
 {"date":"x","activities":[
   {"name":"西湖","location":{"name":"西湖","coordinates":{"lng":120.141,"lat":30.246}}},
   {"name":"灵隐寺","location":{"name":"灵隐寺","coordinates":{"lng":120.101,"lat":30.241}}}
 ],"meals":[],"daily_cost":400},
 {"date":"y","activities":[],"meals":[],"daily_cost":350}
],"total_cost":800,"recommendations":"带伞"}`

type testEnv struct {
	router   *gin.Engine
	plans    *plan.Service
	planRepo *memPlanRepo
	gen      *stubGenerator
	quota    *fakeQuota
}

func newTestEnv(verifier infra.TokenVerifier) *testEnv {
	gin.SetMode(gin.TestMode)
	env := &testEnv{
		planRepo: newMemPlanRepo(),
		gen:      &stubGenerator{reply: twoDays},
		quota:    &fakeQuota{remaining: 5},
	}
	env.plans = plan.NewService(env.planRepo)
	expenses := expense.NewService(newMemExpenseRepo(), env.plans)
	planner := service.NewTripPlanner(env.gen, nil, nil, nil, nil)

	r := gin.New()
	r.Use(httpmiddleware.Auth(verifier))
	ph := handlers.NewPlanHandler(env.plans, expenses, planner, env.quota)
	eh := handlers.NewExpenseHandler(expenses)
	r.POST("/api/plans/generate", ph.Generate)
	r.POST("/api/plans", ph.Create)
	r.GET("/api/plans", ph.List)
	r.GET("/api/plans/:id", ph.Get)
	r.PATCH("/api/plans/:id", ph.Update)
	r.PUT("/api/plans/:id/itinerary", ph.ReplaceItinerary)
	r.POST("/api/plans/:id/status", ph.Transition)
	r.POST("/api/plans/:id/optimize", ph.Optimize)
	r.GET("/api/plans/:id/budget", ph.Budget)
	r.GET("/api/plans/:id/days/:day/route", ph.DayRoute)
	r.POST("/api/plans/:id/expenses", eh.Add)
	r.GET("/api/plans/:id/expenses/summary", eh.Summary)
	env.router = r
	return env
}

func generateBody() map[string]any {
	return map[string]any{
		"destination":  "杭州",
		"start_date":   "2024-05-01",
		"end_date":     "2024-05-03",
		"budget":       3000,
		"participants": 2,
		"interests":    []string{"nature", "food"},
	}
}

func TestGenerate_Unauthenticated(t *testing.T) {
	env := newTestEnv(&stubTokenVerifier{err: context.Canceled})
	w := doRequest(env.router, http.MethodPost, "/api/plans/generate", generateBody(), "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, env.gen.calls)
}

func TestGenerate_SavesPartialPlanWithWarning(t *testing.T) {
	env := newTestEnv(makeVerifier("u1"))
	w := doRequest(env.router, http.MethodPost, "/api/plans/generate", generateBody(), "Bearer ok")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Plan         plan.Plan `json:"plan"`
		Stage        string    `json:"stage"`
		Warnings     []string  `json:"warnings"`
		ExpectedDays int       `json:"expected_days"`
		ActualDays   int       `json:"actual_days"`
	}
	require.NoError(t, decode(w, &resp))
	assert.Equal(t, "direct", resp.Stage)
	assert.Equal(t, 3, resp.ExpectedDays)
	assert.Equal(t, 2, resp.ActualDays)
	assert.Len(t, resp.Warnings, 1)
	assert.Equal(t, plan.StatusPlanned, resp.Plan.Status)
	assert.Equal(t, "杭州3日游", resp.Plan.Title)
	require.NotNil(t, resp.Plan.Itinerary)
	assert.Equal(t, "2024-05-01", resp.Plan.Itinerary.Days[0].Date)
	assert.Equal(t, "2024-05-02", resp.Plan.Itinerary.Days[1].Date)
	assert.Equal(t, 1, env.quota.consumed)

	stored, err := env.plans.Get(context.Background(), "u1", resp.Plan.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Itinerary.Days, 2)
}

func TestGenerate_UnparseableRefundsQuota(t *testing.T) {
	env := newTestEnv(makeVerifier("u1"))
	env.gen.reply = "对不起，我现在无法规划。"
	w := doRequest(env.router, http.MethodPost, "/api/plans/generate", generateBody(), "Bearer ok")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp struct {
		Kind       string `json:"kind"`
		Diagnostic string `json:"diagnostic"`
	}
	require.NoError(t, decode(w, &resp))
	assert.Equal(t, itinerary.ErrUnparseable.Error(), resp.Kind)
	assert.Equal(t, "对不起，我现在无法规划。", resp.Diagnostic)
	assert.Equal(t, 1, env.quota.refunded)
	assert.Equal(t, 5, env.quota.remaining)
}

func TestGenerate_SaveFailureRefundsQuota(t *testing.T) {
	env := newTestEnv(makeVerifier("u1"))
	env.planRepo.createErr = errors.New("connection reset")

	w := doRequest(env.router, http.MethodPost, "/api/plans/generate", generateBody(), "Bearer ok")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, env.gen.calls)
	assert.Equal(t, 1, env.quota.refunded)
	assert.Equal(t, 5, env.quota.remaining)
}

func TestGenerate_QuotaExhausted(t *testing.T) {
	env := newTestEnv(makeVerifier("u1"))
	env.quota.remaining = 0
	w := doRequest(env.router, http.MethodPost, "/api/plans/generate", generateBody(), "Bearer ok")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Zero(t, env.gen.calls)
}

func TestGenerate_InvalidRequest(t *testing.T) {
	env := newTestEnv(makeVerifier("u1"))
	body := generateBody()
	body["participants"] = 0
	w := doRequest(env.router, http.MethodPost, "/api/plans/generate", body, "Bearer ok")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "participants")
	assert.Zero(t, env.quota.consumed)
}

func createDraft(t *testing.T, env *testEnv, uid string) *plan.Plan {
	t.Helper()
	p, err := env.plans.Create(context.Background(), plan.CreateCommand{
		UserID: uid,
		Request: itinerary.PlanningRequest{
			Destination: "杭州", StartDate: "2024-05-01", EndDate: "2024-05-02", Budget: 1000, Participants: 1,
		},
	})
	require.NoError(t, err)
	return p
}

func TestGet_OwnershipAndIDValidation(t *testing.T) {
	env := newTestEnv(makeVerifier("intruder"))
	p := createDraft(t, env, "owner")

	w := doRequest(env.router, http.MethodGet, "/api/plans/"+string(p.ID), nil, "Bearer ok")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(env.router, http.MethodGet, "/api/plans/not-a-uuid", nil, "Bearer ok")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(env.router, http.MethodGet, "/api/plans/"+string(types.NewID()), nil, "Bearer ok")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransition_DraftWithoutItineraryConflicts(t *testing.T) {
	env := newTestEnv(makeVerifier("u1"))
	p := createDraft(t, env, "u1")

	w := doRequest(env.router, http.MethodPost, "/api/plans/"+string(p.ID)+"/status", map[string]string{"status": "planned"}, "Bearer ok")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(env.router, http.MethodPost, "/api/plans/"+string(p.ID)+"/status", map[string]string{"status": "archived"}, "Bearer ok")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReplaceItinerary_ClampsEditedValues(t *testing.T) {
	env := newTestEnv(makeVerifier("u1"))
	p := createDraft(t, env, "u1")

	body := `{"days":[{"date":"2024-05-01","activities":[{"name":"西湖","cost":-99,"duration":-10,"rating":42}],"meals":[],"daily_cost":-500}],"total_cost":-1}`
	w := doRequest(env.router, http.MethodPut, "/api/plans/"+string(p.ID)+"/itinerary", body, "Bearer ok")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp plan.Plan
	require.NoError(t, decode(w, &resp))
	assert.Equal(t, plan.StatusPlanned, resp.Status)

	stored, err := env.plans.Get(context.Background(), "u1", p.ID)
	require.NoError(t, err)
	it := stored.Itinerary
	require.Len(t, it.Days, 1)
	act := it.Days[0].Activities[0]
	assert.Zero(t, it.TotalCost.Float64())
	assert.Zero(t, it.Days[0].DailyCost.Float64())
	assert.Zero(t, act.Cost.Float64())
	assert.Zero(t, act.Duration.Float64())
	require.NotNil(t, act.Rating)
	assert.Equal(t, 5.0, act.Rating.Float64())

	w = doRequest(env.router, http.MethodPut, "/api/plans/"+string(p.ID)+"/itinerary", `{"days":[]}`, "Bearer ok")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOptimize_ReplacesItinerary(t *testing.T) {
	env := newTestEnv(makeVerifier("u1"))
	p := createDraft(t, env, "u1")

	w := doRequest(env.router, http.MethodPost, "/api/plans/"+string(p.ID)+"/optimize", map[string]string{"feedback": "轻松一点"}, "Bearer ok")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, env.quota.refunded)

	_, err := env.plans.ReplaceItinerary(context.Background(), "u1", p.ID, &itinerary.Itinerary{Days: []itinerary.DayPlan{{Date: "2024-05-01"}}})
	require.NoError(t, err)

	w = doRequest(env.router, http.MethodPost, "/api/plans/"+string(p.ID)+"/optimize", map[string]string{"feedback": "轻松一点"}, "Bearer ok")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stored, err := env.plans.Get(context.Background(), "u1", p.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Itinerary.Days, 2)
	assert.Equal(t, 800.0, stored.Itinerary.TotalCost.Float64())
}

func TestBudgetAndExpenses(t *testing.T) {
	env := newTestEnv(makeVerifier("u1"))
	w := doRequest(env.router, http.MethodPost, "/api/plans/generate", generateBody(), "Bearer ok")
	require.Equal(t, http.StatusCreated, w.Code)
	var gen struct {
		Plan plan.Plan `json:"plan"`
	}
	require.NoError(t, decode(w, &gen))
	base := "/api/plans/" + string(gen.Plan.ID)

	w = doRequest(env.router, http.MethodPost, base+"/expenses", map[string]any{
		"category": "food", "amount": 120.5, "description": "楼外楼", "date": "2024-05-01",
	}, "Bearer ok")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doRequest(env.router, http.MethodPost, base+"/expenses", map[string]any{
		"category": "gifts", "amount": 10,
	}, "Bearer ok")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(env.router, http.MethodGet, base+"/budget", nil, "Bearer ok")
	require.Equal(t, http.StatusOK, w.Code)
	var view expense.BudgetView
	require.NoError(t, decode(w, &view))
	assert.Equal(t, 3000.0, view.Budget)
	require.NotNil(t, view.ModelTotalCost)
	require.NotNil(t, view.DailyCostSum)
	assert.Equal(t, 800.0, *view.ModelTotalCost)
	assert.Equal(t, 750.0, *view.DailyCostSum)
	assert.Equal(t, 120.5, view.Spent)
	assert.Equal(t, 2879.5, view.Remaining)

	w = doRequest(env.router, http.MethodGet, base+"/expenses/summary", nil, "Bearer ok")
	require.Equal(t, http.StatusOK, w.Code)
	var sum expense.Summary
	require.NoError(t, decode(w, &sum))
	assert.Equal(t, 1, sum.Count)
}

func TestDayRoute(t *testing.T) {
	env := newTestEnv(makeVerifier("u1"))
	w := doRequest(env.router, http.MethodPost, "/api/plans/generate", generateBody(), "Bearer ok")
	require.Equal(t, http.StatusCreated, w.Code)
	var gen struct {
		Plan plan.Plan `json:"plan"`
	}
	require.NoError(t, decode(w, &gen))
	base := "/api/plans/" + string(gen.Plan.ID)

	w = doRequest(env.router, http.MethodGet, base+"/days/1/route", nil, "Bearer ok")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Legs []service.Leg `json:"legs"`
	}
	require.NoError(t, decode(w, &resp))
	require.Len(t, resp.Legs, 1)
	assert.Equal(t, "西湖", resp.Legs[0].From)
	assert.InDelta(t, 3.87, resp.Legs[0].DistanceKm, 0.05)

	w = doRequest(env.router, http.MethodGet, base+"/days/5/route", nil, "Bearer ok")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doRequest(env.router, http.MethodGet, base+"/days/x/route", nil, "Bearer ok")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
