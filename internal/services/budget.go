package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"finledger/internal/core"
	"finledger/internal/storage"
)

const ratioPlaces = 4

// SpendingAggregator sums expense spending against budgets. Every call is a
// fresh scan of the transaction log.
type SpendingAggregator struct {
	store storage.Queries
	now   func() time.Time
}

func NewSpendingAggregator(store storage.Queries, now func() time.Time) *SpendingAggregator {
	if now == nil {
		now = time.Now
	}
	return &SpendingAggregator{store: store, now: now}
}

// Spending returns the expense total inside the budget's current period window.
// An unknown budget spends zero.
func (a *SpendingAggregator) Spending(ctx context.Context, budgetID int64) (decimal.Decimal, error) {
	b, err := a.store.GetBudget(ctx, budgetID)
	if err != nil {
		if core.IsNotFound(err) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("load budget: %w", err)
	}
	_, _, spent, err := a.spendingFor(ctx, b)
	return spent, err
}

// Status classifies the budget's current spending against its cap.
func (a *SpendingAggregator) Status(ctx context.Context, budgetID int64) (core.BudgetStatus, error) {
	b, err := a.store.GetBudget(ctx, budgetID)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	return a.StatusFor(ctx, b)
}

// StatusFor is Status for an already loaded budget.
func (a *SpendingAggregator) StatusFor(ctx context.Context, b core.Budget) (core.BudgetStatus, error) {
	start, end, spent, err := a.spendingFor(ctx, b)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	ratio, state := Classify(spent, b.Amount, b.AlertThreshold)
	return core.BudgetStatus{
		BudgetID:  b.ID,
		Start:     start,
		End:       end,
		Spent:     spent,
		Limit:     b.Amount,
		Remaining: b.Amount.Sub(spent),
		Ratio:     ratio,
		State:     state,
	}, nil
}

func (a *SpendingAggregator) spendingFor(ctx context.Context, b core.Budget) (start, end core.Date, spent decimal.Decimal, err error) {
	start, end = PeriodWindow(b.Period, a.now())
	txs, err := a.store.ListTransactions(ctx, storage.TransactionFilter{
		AccountID:  b.AccountID,
		CategoryID: b.CategoryID,
		Type:       core.Expense,
		From:       start,
		To:         end,
	})
	if err != nil {
		return start, end, decimal.Zero, fmt.Errorf("list transactions: %w", err)
	}
	return start, end, SumAmounts(txs), nil
}

// SumAmounts adds up transaction amounts regardless of type.
func SumAmounts(txs []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return core.RoundMoney(total)
}

// Classify compares spent with limit. Reaching the limit is over budget and
// reaching threshold × limit is near the limit. A zero limit with any
// spending is over budget.
func Classify(spent, limit, threshold decimal.Decimal) (decimal.Decimal, core.BudgetState) {
	if !limit.IsPositive() {
		if spent.IsPositive() {
			return decimal.NewFromInt(1), core.OverBudget
		}
		return decimal.Zero, core.OnTrack
	}
	ratio := spent.DivRound(limit, ratioPlaces)
	switch {
	case spent.GreaterThanOrEqual(limit):
		return ratio, core.OverBudget
	case spent.GreaterThanOrEqual(limit.Mul(threshold)):
		return ratio, core.NearLimit
	default:
		return ratio, core.OnTrack
	}
}
