package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"finledger/internal/core"
	"finledger/internal/storage"
)

const uncategorized = "Uncategorized"

// Overview summarises one calendar month: the current total balance of
// active accounts, the month's income and expenses, expenses by category and
// the progress of open goals. Transfers are neither income nor expense here.
func (l *Ledger) Overview(ctx context.Context, year, month int) (core.MonthOverview, error) {
	if month < 1 || month > 12 {
		return core.MonthOverview{}, core.NewValidationError("month", "must be between 1 and 12")
	}
	if year < 1 {
		return core.MonthOverview{}, core.NewValidationError("year", "must be positive")
	}
	ov := core.MonthOverview{
		Year:         year,
		Month:        month,
		TotalBalance: decimal.Zero,
		Income:       decimal.Zero,
		Expenses:     decimal.Zero,
		ByCategory:   []core.CategoryAmount{},
		Goals:        []core.GoalProgress{},
	}

	accounts, err := l.store.ListAccounts(ctx)
	if err != nil {
		return ov, fmt.Errorf("list accounts: %w", err)
	}
	for _, a := range accounts {
		if a.IsActive {
			ov.TotalBalance = ov.TotalBalance.Add(a.Balance)
		}
	}

	from := core.NewDate(year, month, 1)
	to := from.Time.AddDate(0, 1, -1)
	txs, err := l.store.ListTransactions(ctx, storage.TransactionFilter{From: from, To: core.DateOf(to)})
	if err != nil {
		return ov, fmt.Errorf("list transactions: %w", err)
	}

	categories, err := l.store.ListCategories(ctx)
	if err != nil {
		return ov, fmt.Errorf("list categories: %w", err)
	}
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	byCategory := map[int64]*core.CategoryAmount{}
	var none *core.CategoryAmount
	for _, t := range txs {
		switch t.Type {
		case core.Income:
			ov.Income = ov.Income.Add(t.Amount)
		case core.Expense:
			ov.Expenses = ov.Expenses.Add(t.Amount)
			var bucket *core.CategoryAmount
			if t.CategoryID == nil {
				if none == nil {
					none = &core.CategoryAmount{Name: uncategorized, Amount: decimal.Zero}
				}
				bucket = none
			} else {
				bucket = byCategory[*t.CategoryID]
				if bucket == nil {
					bucket = &core.CategoryAmount{CategoryID: core.ID(*t.CategoryID), Name: names[*t.CategoryID], Amount: decimal.Zero}
					byCategory[*t.CategoryID] = bucket
				}
			}
			bucket.Amount = bucket.Amount.Add(t.Amount)
		}
	}
	for _, b := range byCategory {
		ov.ByCategory = append(ov.ByCategory, *b)
	}
	if none != nil {
		ov.ByCategory = append(ov.ByCategory, *none)
	}
	sort.Slice(ov.ByCategory, func(i, j int) bool {
		a, b := ov.ByCategory[i], ov.ByCategory[j]
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.Name < b.Name
	})

	ov.Income = core.RoundMoney(ov.Income)
	ov.Expenses = core.RoundMoney(ov.Expenses)
	ov.Net = ov.Income.Sub(ov.Expenses)

	goals, err := l.store.ListGoals(ctx, nil)
	if err != nil {
		return ov, fmt.Errorf("list goals: %w", err)
	}
	allocs, err := l.store.ListAllocations(ctx, nil)
	if err != nil {
		return ov, fmt.Errorf("list allocations: %w", err)
	}
	for _, g := range goals {
		if !g.IsCompleted {
			ov.Goals = append(ov.Goals, Progress(g, allocs))
		}
	}
	return ov, nil
}
