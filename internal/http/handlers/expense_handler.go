// README: Expense handlers scoped to a plan.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wayfarer/internal/http/middleware"
	"wayfarer/internal/modules/expense"
)

type ExpenseHandler struct {
	expenses *expense.Service
}

func NewExpenseHandler(svc *expense.Service) *ExpenseHandler {
	return &ExpenseHandler{expenses: svc}
}

type addExpenseReq struct {
	Category    expense.Category `json:"category"`
	Amount      float64          `json:"amount"`
	Description string           `json:"description"`
	Location    *string          `json:"location"`
	Date        string           `json:"date"`
}

// Add handles POST /api/plans/:id/expenses.
func (h *ExpenseHandler) Add(c *gin.Context) {
	planID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req addExpenseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	e, err := h.expenses.Add(c.Request.Context(), expense.AddCommand{
		UserID:      middleware.CallerUID(c),
		PlanID:      planID,
		Category:    req.Category,
		Amount:      req.Amount,
		Description: req.Description,
		Location:    req.Location,
		Date:        req.Date,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, e)
}

func (h *ExpenseHandler) List(c *gin.Context) {
	planID, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.expenses.List(c.Request.Context(), middleware.CallerUID(c), planID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if list == nil {
		list = []expense.Expense{}
	}
	writeJSON(c, http.StatusOK, gin.H{"expenses": list})
}

func (h *ExpenseHandler) Summary(c *gin.Context) {
	planID, ok := pathID(c, "id")
	if !ok {
		return
	}
	sum, err := h.expenses.Summary(c.Request.Context(), middleware.CallerUID(c), planID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, sum)
}

type updateExpenseReq struct {
	Category    *expense.Category `json:"category"`
	Amount      *float64          `json:"amount"`
	Description *string           `json:"description"`
	Location    *string           `json:"location"`
	Date        *string           `json:"date"`
}

// Update handles PATCH /api/expenses/:id.
func (h *ExpenseHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateExpenseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	e, err := h.expenses.Update(c.Request.Context(), expense.UpdateCommand{
		UserID:      middleware.CallerUID(c),
		ExpenseID:   id,
		Category:    req.Category,
		Amount:      req.Amount,
		Description: req.Description,
		Location:    req.Location,
		Date:        req.Date,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, e)
}

func (h *ExpenseHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.expenses.Delete(c.Request.Context(), middleware.CallerUID(c), id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
