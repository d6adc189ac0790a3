package quota

import "errors"

// ErrQuotaExhausted is returned when a user has no generations left this month.
var ErrQuotaExhausted = errors.New("monthly generation quota exhausted")

// DefaultAllowance is the number of generations granted per month.
const DefaultAllowance = 100

// Usage is a user's standing for the current month.
type Usage struct {
	UID       string `json:"uid"`
	Remaining int    `json:"remaining"`
	Allowance int    `json:"allowance"`
	Month     string `json:"month"`
}
