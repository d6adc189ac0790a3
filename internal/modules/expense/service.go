// README: Expense service (CRUD, per-plan summary and budget view); ownership goes through the plan.
package expense

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"wayfarer/internal/itinerary"
	"wayfarer/internal/modules/plan"
	"wayfarer/internal/types"
)

var (
	ErrNotFound   = errors.New("expense not found")
	ErrBadRequest = errors.New("bad request")
)

type Repository interface {
	Create(ctx context.Context, e *Expense) error
	Get(ctx context.Context, id types.ID) (*Expense, error)
	ListByPlan(ctx context.Context, planID types.ID) ([]Expense, error)
	Update(ctx context.Context, e *Expense) error
	Delete(ctx context.Context, id types.ID) error
	TotalsByCategory(ctx context.Context, planID types.ID) (map[Category]CategoryTotal, error)
}

// Plans resolves a plan on behalf of a user, enforcing ownership.
type Plans interface {
	Get(ctx context.Context, userID string, id types.ID) (*plan.Plan, error)
}

type Service struct {
	repo  Repository
	plans Plans
	now   func() time.Time
}

func NewService(repo Repository, plans Plans) *Service {
	return &Service{repo: repo, plans: plans, now: time.Now}
}

type AddCommand struct {
	UserID      string
	PlanID      types.ID
	Category    Category
	Amount      float64
	Description string
	Location    *string
	// Date defaults to today when empty.
	Date string
}

type UpdateCommand struct {
	UserID      string
	ExpenseID   types.ID
	Category    *Category
	Amount      *float64
	Description *string
	Location    *string
	Date        *string
}

func (s *Service) Add(ctx context.Context, cmd AddCommand) (*Expense, error) {
	if _, err := s.plans.Get(ctx, cmd.UserID, cmd.PlanID); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	e := &Expense{
		ID:          types.NewID(),
		PlanID:      cmd.PlanID,
		Category:    cmd.Category,
		Amount:      cmd.Amount,
		Description: strings.TrimSpace(cmd.Description),
		Location:    trimmed(cmd.Location),
		Date:        cmd.Date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if e.Date == "" {
		e.Date = now.Format(itinerary.DateLayout)
	}
	if err := validate(e); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, userID string, planID types.ID) ([]Expense, error) {
	if _, err := s.plans.Get(ctx, userID, planID); err != nil {
		return nil, err
	}
	return s.repo.ListByPlan(ctx, planID)
}

func (s *Service) Update(ctx context.Context, cmd UpdateCommand) (*Expense, error) {
	e, err := s.owned(ctx, cmd.UserID, cmd.ExpenseID)
	if err != nil {
		return nil, err
	}
	if cmd.Category != nil {
		e.Category = *cmd.Category
	}
	if cmd.Amount != nil {
		e.Amount = *cmd.Amount
	}
	if cmd.Description != nil {
		e.Description = strings.TrimSpace(*cmd.Description)
	}
	if cmd.Location != nil {
		e.Location = trimmed(cmd.Location)
	}
	if cmd.Date != nil {
		e.Date = *cmd.Date
	}
	if err := validate(e); err != nil {
		return nil, err
	}
	e.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Delete(ctx context.Context, userID string, id types.ID) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Summary totals a plan's expenses and compares them with its budget.
func (s *Service) Summary(ctx context.Context, userID string, planID types.ID) (*Summary, error) {
	p, err := s.plans.Get(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, p)
}

// Budget reports the model's total_cost untouched next to the recomputed
// daily sum, so a mismatch stays visible.
func (s *Service) Budget(ctx context.Context, userID string, planID types.ID) (*BudgetView, error) {
	p, err := s.plans.Get(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	sum, err := s.summarize(ctx, p)
	if err != nil {
		return nil, err
	}
	view := &BudgetView{PlanID: planID, Budget: p.Budget, Spent: sum.Total, Remaining: sum.Remaining}
	if p.Itinerary != nil {
		total := p.Itinerary.TotalCost.Float64()
		daily := round2(p.Itinerary.DailyCostSum())
		view.ModelTotalCost = &total
		view.DailyCostSum = &daily
	}
	return view, nil
}

func (s *Service) summarize(ctx context.Context, p *plan.Plan) (*Summary, error) {
	totals, err := s.repo.TotalsByCategory(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	sum := &Summary{PlanID: p.ID, ByCategory: totals, Budget: p.Budget}
	for _, t := range totals {
		sum.Total += t.Amount
		sum.Count += t.Count
	}
	sum.Total = round2(sum.Total)
	if sum.Count > 0 {
		sum.Average = round2(sum.Total / float64(sum.Count))
	}
	sum.Remaining = round2(p.Budget - sum.Total)
	return sum, nil
}

func (s *Service) owned(ctx context.Context, userID string, id types.ID) (*Expense, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.plans.Get(ctx, userID, e.PlanID); err != nil {
		return nil, err
	}
	return e, nil
}

func validate(e *Expense) error {
	if !e.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrBadRequest, e.Category)
	}
	if e.Amount <= 0 || math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
		return fmt.Errorf("%w: amount must be positive", ErrBadRequest)
	}
	if _, err := time.Parse(itinerary.DateLayout, e.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrBadRequest)
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
