package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"wayfarer/internal/ai"
	"wayfarer/internal/infra"
	"wayfarer/internal/itinerary"
	"wayfarer/internal/modules/expense"
	"wayfarer/internal/modules/plan"
	"wayfarer/internal/modules/quota"
	"wayfarer/internal/types"
)

// stubTokenVerifier is a test double for infra.TokenVerifier.
type stubTokenVerifier struct {
	token *infra.FirebaseToken
	err   error
}

func (s *stubTokenVerifier) VerifyIDToken(_ context.Context, _ string) (*infra.FirebaseToken, error) {
	return s.token, s.err
}

func makeVerifier(uid string) *stubTokenVerifier {
	return &stubTokenVerifier{token: &infra.FirebaseToken{UID: uid}}
}

func doRequest(r *gin.Engine, method, path string, body interface{}, authHeader string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(w.Body.Bytes(), v)
}

type stubGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (g *stubGenerator) Name() string { return "stub" }

func (g *stubGenerator) Generate(context.Context, []ai.Message, ai.Options) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.reply, g.err
}

type fakeQuota struct {
	remaining int
	consumed  int
	refunded  int
}

func (q *fakeQuota) Consume(context.Context, string) error {
	if q.remaining == 0 {
		return quota.ErrQuotaExhausted
	}
	q.remaining--
	q.consumed++
	return nil
}

func (q *fakeQuota) Refund(context.Context, string) error {
	q.remaining++
	q.refunded++
	return nil
}

func (q *fakeQuota) Usage(_ context.Context, uid string) (quota.Usage, error) {
	return quota.Usage{UID: uid, Remaining: q.remaining, Allowance: quota.DefaultAllowance, Month: "2024-05"}, nil
}

type memPlanRepo struct {
	mu        sync.Mutex
	plans     map[types.ID]plan.Plan
	createErr error
}

func newMemPlanRepo() *memPlanRepo { return &memPlanRepo{plans: map[types.ID]plan.Plan{}} }

func (r *memPlanRepo) Create(_ context.Context, p *plan.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.plans[p.ID] = *p
	return nil
}

func (r *memPlanRepo) Get(_ context.Context, id types.ID) (*plan.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, plan.ErrNotFound
	}
	return &p, nil
}

func (r *memPlanRepo) ListByUser(_ context.Context, userID string) ([]plan.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []plan.Plan
	for _, p := range r.plans {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memPlanRepo) Update(_ context.Context, p *plan.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[p.ID] = *p
	return nil
}

func (r *memPlanRepo) ReplaceItinerary(_ context.Context, id types.ID, it *itinerary.Itinerary, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.plans[id]
	p.Itinerary, p.UpdatedAt = it, at
	r.plans[id] = p
	return nil
}

func (r *memPlanRepo) UpdateStatus(_ context.Context, id types.ID, from, to plan.Status, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status, p.UpdatedAt = to, at
	r.plans[id] = p
	return true, nil
}

func (r *memPlanRepo) Delete(_ context.Context, id types.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plans[id]; !ok {
		return plan.ErrNotFound
	}
	delete(r.plans, id)
	return nil
}

type memExpenseRepo struct {
	mu    sync.Mutex
	items map[types.ID]expense.Expense
}

func newMemExpenseRepo() *memExpenseRepo {
	return &memExpenseRepo{items: map[types.ID]expense.Expense{}}
}

func (r *memExpenseRepo) Create(_ context.Context, e *expense.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[e.ID] = *e
	return nil
}

func (r *memExpenseRepo) Get(_ context.Context, id types.ID) (*expense.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok {
		return nil, expense.ErrNotFound
	}
	return &e, nil
}

func (r *memExpenseRepo) ListByPlan(_ context.Context, planID types.ID) ([]expense.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []expense.Expense{}
	for _, e := range r.items {
		if e.PlanID == planID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (r *memExpenseRepo) Update(_ context.Context, e *expense.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[e.ID] = *e
	return nil
}

func (r *memExpenseRepo) Delete(_ context.Context, id types.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return expense.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memExpenseRepo) TotalsByCategory(_ context.Context, planID types.ID) (map[expense.Category]expense.CategoryTotal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := map[expense.Category]expense.CategoryTotal{}
	for _, e := range r.items {
		if e.PlanID != planID {
			continue
		}
		t := totals[e.Category]
		t.Amount += e.Amount
		t.Count++
		totals[e.Category] = t
	}
	return totals, nil
}
