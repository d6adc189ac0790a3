// README: Expense records tracked against a travel plan.
package expense

import (
	"time"

	"wayfarer/internal/types"
)

type Category string

const (
	CategoryTransportation Category = "transportation"
	CategoryAccommodation  Category = "accommodation"
	CategoryFood           Category = "food"
	CategoryActivities     Category = "activities"
	CategoryShopping       Category = "shopping"
	CategoryOther          Category = "other"
)

var Categories = []Category{
	CategoryTransportation, CategoryAccommodation, CategoryFood,
	CategoryActivities, CategoryShopping, CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Expense struct {
	ID          types.ID  `json:"id"`
	PlanID      types.ID  `json:"plan_id"`
	Category    Category  `json:"category"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Location    *string   `json:"location,omitempty"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CategoryTotal aggregates the expenses of one category.
type CategoryTotal struct {
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}

type Summary struct {
	PlanID     types.ID                   `json:"plan_id"`
	Total      float64                    `json:"total"`
	Count      int                        `json:"count"`
	Average    float64                    `json:"average"`
	ByCategory map[Category]CategoryTotal `json:"by_category"`
	Budget     float64                    `json:"budget"`
	Remaining  float64                    `json:"remaining"`
}

// BudgetView puts the plan budget, the model's total_cost as returned, the
// recomputed sum of daily costs and actual spending side by side.
type BudgetView struct {
	PlanID         types.ID `json:"plan_id"`
	Budget         float64  `json:"budget"`
	ModelTotalCost *float64 `json:"model_total_cost,omitempty"`
	DailyCostSum   *float64 `json:"daily_cost_sum,omitempty"`
	Spent          float64  `json:"spent"`
	Remaining      float64  `json:"remaining"`
}
