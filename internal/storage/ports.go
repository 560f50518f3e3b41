// Package storage defines the ledger record store contract shared by the
// memory, SQLite and Postgres backends.
package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"finledger/internal/core"
)

// TransactionFilter narrows a transaction listing. Nil or zero fields match everything.
type TransactionFilter struct {
	AccountID  *int64
	CategoryID *int64
	Type       core.TransactionType
	From       core.Date // inclusive
	To         core.Date // inclusive
}

// Matches reports whether t satisfies the filter.
func (f TransactionFilter) Matches(t core.Transaction) bool {
	if f.AccountID != nil && t.AccountID != *f.AccountID {
		return false
	}
	if f.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *f.CategoryID) {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	return true
}

// BudgetFilter narrows a budget listing. A set field matches budgets scoped
// to exactly that account or category.
type BudgetFilter struct {
	AccountID  *int64
	CategoryID *int64
}

// Matches reports whether b satisfies the filter.
func (f BudgetFilter) Matches(b core.Budget) bool {
	if f.AccountID != nil && (b.AccountID == nil || *b.AccountID != *f.AccountID) {
		return false
	}
	if f.CategoryID != nil && (b.CategoryID == nil || *b.CategoryID != *f.CategoryID) {
		return false
	}
	return true
}

// Ports for the record store. Get*, Update* and Delete* return a
// *core.NotFoundError when the record does not exist; writes that would
// break a reference return a *core.ValidationError or *core.NotFoundError.
// Any other failure is a *core.StorageError.
type (
	AccountStore interface {
		ListAccounts(ctx context.Context) ([]core.Account, error)
		GetAccount(ctx context.Context, id int64) (core.Account, error)
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
		// UpdateAccount replaces every field except Balance.
		UpdateAccount(ctx context.Context, a core.Account) (core.Account, error)
		SetAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) error
		// DeleteAccount fails while transactions, holdings, goals or budgets reference the account.
		DeleteAccount(ctx context.Context, id int64) error
	}

	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		GetCategory(ctx context.Context, id int64) (core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
		// DeleteCategory fails while transactions, budgets or child categories reference it.
		DeleteCategory(ctx context.Context, id int64) error
	}

	TransactionStore interface {
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id int64) error
	}

	HoldingStore interface {
		// ListHoldings lists every holding, or only those of accountID when it is set.
		ListHoldings(ctx context.Context, accountID *int64) ([]core.Holding, error)
		GetHolding(ctx context.Context, id int64) (core.Holding, error)
		CreateHolding(ctx context.Context, h core.Holding) (core.Holding, error)
		UpdateHolding(ctx context.Context, h core.Holding) (core.Holding, error)
		DeleteHolding(ctx context.Context, id int64) error
	}

	GoalStore interface {
		ListGoals(ctx context.Context, accountID *int64) ([]core.Goal, error)
		GetGoal(ctx context.Context, id int64) (core.Goal, error)
		CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
		UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
		// DeleteGoal removes the goal and all of its allocations atomically.
		DeleteGoal(ctx context.Context, id int64) error
	}

	AllocationStore interface {
		// ListAllocations lists allocations of the given goals, or every allocation when goalIDs is nil.
		ListAllocations(ctx context.Context, goalIDs []int64) ([]core.GoalAllocation, error)
		GetAllocation(ctx context.Context, id int64) (core.GoalAllocation, error)
		CreateAllocation(ctx context.Context, a core.GoalAllocation) (core.GoalAllocation, error)
		UpdateAllocation(ctx context.Context, a core.GoalAllocation) (core.GoalAllocation, error)
		DeleteAllocation(ctx context.Context, id int64) error
	}

	BudgetStore interface {
		ListBudgets(ctx context.Context) ([]core.Budget, error)
		GetBudget(ctx context.Context, id int64) (core.Budget, error)
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, id int64) error
	}

	// Queries is the full read/write surface, available both on the store and inside Atomic.
	Queries interface {
		AccountStore
		CategoryStore
		TransactionStore
		HoldingStore
		GoalStore
		AllocationStore
		BudgetStore
	}

	// Store is a Ledger Record Store backend.
	Store interface {
		Queries
		// Atomic runs fn in a single store transaction. Every write made through
		// q is discarded when fn returns an error.
		Atomic(ctx context.Context, fn func(ctx context.Context, q Queries) error) error
		Close() error
	}
)
