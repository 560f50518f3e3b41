package core

import "github.com/shopspring/decimal"

// BudgetState classifies spending against a budget cap.
type BudgetState string

const (
	OnTrack    BudgetState = "on_track"
	NearLimit  BudgetState = "near_limit"
	OverBudget BudgetState = "over_budget"
)

// BudgetStatus is the spending of a budget within its current period window.
type BudgetStatus struct {
	BudgetID  int64           `json:"budgetId"`
	Start     Date            `json:"start"`
	End       Date            `json:"end"`
	Spent     decimal.Decimal `json:"spent"`
	Limit     decimal.Decimal `json:"limit"`
	Remaining decimal.Decimal `json:"remaining"`
	Ratio     decimal.Decimal `json:"ratio"`
	State     BudgetState     `json:"state"`
}

// GoalProgress is a goal's allocated amount relative to its target.
type GoalProgress struct {
	GoalID        int64           `json:"goalId"`
	Name          string          `json:"name"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	Ratio         decimal.Decimal `json:"ratio"`
}

// Headroom is what an account can still fund across all of its goals.
type Headroom struct {
	AccountID int64           `json:"accountId"`
	Balance   decimal.Decimal `json:"balance"`
	Allocated decimal.Decimal `json:"allocated"`
	Available decimal.Decimal `json:"available"`
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	CategoryID *int64          `json:"categoryId"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year         int              `json:"year"`
	Month        int              `json:"month"` // 1-12
	TotalBalance decimal.Decimal  `json:"totalBalance"`
	Income       decimal.Decimal  `json:"income"`
	Expenses     decimal.Decimal  `json:"expenses"`
	Net          decimal.Decimal  `json:"net"`
	ByCategory   []CategoryAmount `json:"byCategory"`
	Goals        []GoalProgress   `json:"goals"`
}
