package memory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"finledger/internal/core"
	"finledger/internal/storage"
)

// view implements storage.Queries over a state without locking. The caller holds Store.mu.
type view struct {
	st  *state
	now func() time.Time
}

var _ storage.Queries = (*view)(nil)

func (v *view) ListAccounts(_ context.Context) ([]core.Account, error) {
	return sortedValues(v.st.accounts, nil), nil
}

func (v *view) GetAccount(_ context.Context, id int64) (core.Account, error) {
	a, ok := v.st.accounts[id]
	if !ok {
		return core.Account{}, core.NewNotFound("account", id)
	}
	return a, nil
}

func (v *view) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	a.ID = v.st.next("accounts")
	v.st.accounts[a.ID] = a
	return a, nil
}

func (v *view) UpdateAccount(_ context.Context, a core.Account) (core.Account, error) {
	cur, ok := v.st.accounts[a.ID]
	if !ok {
		return core.Account{}, core.NewNotFound("account", a.ID)
	}
	a.Balance = cur.Balance
	v.st.accounts[a.ID] = a
	return a, nil
}

func (v *view) SetAccountBalance(_ context.Context, id int64, balance decimal.Decimal) error {
	a, ok := v.st.accounts[id]
	if !ok {
		return core.NewNotFound("account", id)
	}
	a.Balance = balance
	v.st.accounts[id] = a
	return nil
}

func (v *view) DeleteAccount(_ context.Context, id int64) error {
	if _, ok := v.st.accounts[id]; !ok {
		return core.NewNotFound("account", id)
	}
	for _, t := range v.st.transactions {
		if t.AccountID == id {
			return core.NewValidationError("id", "account still has transactions")
		}
	}
	for _, h := range v.st.holdings {
		if h.AccountID == id {
			return core.NewValidationError("id", "account still has holdings")
		}
	}
	for _, g := range v.st.goals {
		if g.AccountID == id {
			return core.NewValidationError("id", "account still funds goals")
		}
	}
	for _, b := range v.st.budgets {
		if b.AccountID != nil && *b.AccountID == id {
			return core.NewValidationError("id", "account is the scope of a budget")
		}
	}
	delete(v.st.accounts, id)
	return nil
}

func (v *view) ListCategories(_ context.Context) ([]core.Category, error) {
	return sortedValues(v.st.categories, nil), nil
}

func (v *view) GetCategory(_ context.Context, id int64) (core.Category, error) {
	c, ok := v.st.categories[id]
	if !ok {
		return core.Category{}, core.NewNotFound("category", id)
	}
	return c, nil
}

func (v *view) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := v.checkCategoryRef(c.ParentID); err != nil {
		return core.Category{}, err
	}
	c.ID = v.st.next("categories")
	v.st.categories[c.ID] = c
	return c, nil
}

func (v *view) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if _, ok := v.st.categories[c.ID]; !ok {
		return core.Category{}, core.NewNotFound("category", c.ID)
	}
	if err := v.checkCategoryRef(c.ParentID); err != nil {
		return core.Category{}, err
	}
	v.st.categories[c.ID] = c
	return c, nil
}

func (v *view) DeleteCategory(_ context.Context, id int64) error {
	if _, ok := v.st.categories[id]; !ok {
		return core.NewNotFound("category", id)
	}
	for _, c := range v.st.categories {
		if c.ParentID != nil && *c.ParentID == id {
			return core.NewValidationError("id", "category still has subcategories")
		}
	}
	for _, t := range v.st.transactions {
		if t.CategoryID != nil && *t.CategoryID == id {
			return core.NewValidationError("id", "category still has transactions")
		}
	}
	for _, b := range v.st.budgets {
		if b.CategoryID != nil && *b.CategoryID == id {
			return core.NewValidationError("id", "category is the scope of a budget")
		}
	}
	delete(v.st.categories, id)
	return nil
}

func (v *view) ListTransactions(_ context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	return sortedValues(v.st.transactions, f.Matches), nil
}

func (v *view) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	t, ok := v.st.transactions[id]
	if !ok {
		return core.Transaction{}, core.NewNotFound("transaction", id)
	}
	return t, nil
}

func (v *view) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := v.checkTransactionRefs(t); err != nil {
		return core.Transaction{}, err
	}
	t.ID = v.st.next("transactions")
	t.CreatedAt = v.now()
	v.st.transactions[t.ID] = t
	return t, nil
}

func (v *view) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	cur, ok := v.st.transactions[t.ID]
	if !ok {
		return core.Transaction{}, core.NewNotFound("transaction", t.ID)
	}
	if err := v.checkTransactionRefs(t); err != nil {
		return core.Transaction{}, err
	}
	t.CreatedAt = cur.CreatedAt
	v.st.transactions[t.ID] = t
	return t, nil
}

func (v *view) DeleteTransaction(_ context.Context, id int64) error {
	if _, ok := v.st.transactions[id]; !ok {
		return core.NewNotFound("transaction", id)
	}
	delete(v.st.transactions, id)
	return nil
}

func (v *view) ListHoldings(_ context.Context, accountID *int64) ([]core.Holding, error) {
	return sortedValues(v.st.holdings, func(h core.Holding) bool {
		return accountID == nil || h.AccountID == *accountID
	}), nil
}

func (v *view) GetHolding(_ context.Context, id int64) (core.Holding, error) {
	h, ok := v.st.holdings[id]
	if !ok {
		return core.Holding{}, core.NewNotFound("holding", id)
	}
	return h, nil
}

func (v *view) CreateHolding(_ context.Context, h core.Holding) (core.Holding, error) {
	if err := v.checkAccountRef(h.AccountID); err != nil {
		return core.Holding{}, err
	}
	h.ID = v.st.next("holdings")
	h.CreatedAt = v.now()
	h.UpdatedAt = h.CreatedAt
	v.st.holdings[h.ID] = h
	return h, nil
}

func (v *view) UpdateHolding(_ context.Context, h core.Holding) (core.Holding, error) {
	cur, ok := v.st.holdings[h.ID]
	if !ok {
		return core.Holding{}, core.NewNotFound("holding", h.ID)
	}
	if err := v.checkAccountRef(h.AccountID); err != nil {
		return core.Holding{}, err
	}
	h.CreatedAt = cur.CreatedAt
	h.UpdatedAt = v.now()
	v.st.holdings[h.ID] = h
	return h, nil
}

func (v *view) DeleteHolding(_ context.Context, id int64) error {
	if _, ok := v.st.holdings[id]; !ok {
		return core.NewNotFound("holding", id)
	}
	delete(v.st.holdings, id)
	return nil
}

func (v *view) ListGoals(_ context.Context, accountID *int64) ([]core.Goal, error) {
	return sortedValues(v.st.goals, func(g core.Goal) bool {
		return accountID == nil || g.AccountID == *accountID
	}), nil
}

func (v *view) GetGoal(_ context.Context, id int64) (core.Goal, error) {
	g, ok := v.st.goals[id]
	if !ok {
		return core.Goal{}, core.NewNotFound("goal", id)
	}
	return g, nil
}

func (v *view) CreateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	if err := v.checkAccountRef(g.AccountID); err != nil {
		return core.Goal{}, err
	}
	g.ID = v.st.next("goals")
	v.st.goals[g.ID] = g
	return g, nil
}

func (v *view) UpdateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	if _, ok := v.st.goals[g.ID]; !ok {
		return core.Goal{}, core.NewNotFound("goal", g.ID)
	}
	if err := v.checkAccountRef(g.AccountID); err != nil {
		return core.Goal{}, err
	}
	v.st.goals[g.ID] = g
	return g, nil
}

func (v *view) DeleteGoal(_ context.Context, id int64) error {
	if _, ok := v.st.goals[id]; !ok {
		return core.NewNotFound("goal", id)
	}
	for aid, a := range v.st.allocations {
		if a.GoalID == id {
			delete(v.st.allocations, aid)
		}
	}
	delete(v.st.goals, id)
	return nil
}

func (v *view) ListAllocations(_ context.Context, goalIDs []int64) ([]core.GoalAllocation, error) {
	if goalIDs == nil {
		return sortedValues(v.st.allocations, nil), nil
	}
	wanted := make(map[int64]struct{}, len(goalIDs))
	for _, id := range goalIDs {
		wanted[id] = struct{}{}
	}
	return sortedValues(v.st.allocations, func(a core.GoalAllocation) bool {
		_, ok := wanted[a.GoalID]
		return ok
	}), nil
}

func (v *view) GetAllocation(_ context.Context, id int64) (core.GoalAllocation, error) {
	a, ok := v.st.allocations[id]
	if !ok {
		return core.GoalAllocation{}, core.NewNotFound("goal allocation", id)
	}
	return a, nil
}

func (v *view) CreateAllocation(_ context.Context, a core.GoalAllocation) (core.GoalAllocation, error) {
	if _, ok := v.st.goals[a.GoalID]; !ok {
		return core.GoalAllocation{}, core.NewNotFound("goal", a.GoalID)
	}
	a.ID = v.st.next("allocations")
	a.CreatedAt = v.now()
	v.st.allocations[a.ID] = a
	return a, nil
}

func (v *view) UpdateAllocation(_ context.Context, a core.GoalAllocation) (core.GoalAllocation, error) {
	cur, ok := v.st.allocations[a.ID]
	if !ok {
		return core.GoalAllocation{}, core.NewNotFound("goal allocation", a.ID)
	}
	if _, ok := v.st.goals[a.GoalID]; !ok {
		return core.GoalAllocation{}, core.NewNotFound("goal", a.GoalID)
	}
	a.CreatedAt = cur.CreatedAt
	v.st.allocations[a.ID] = a
	return a, nil
}

func (v *view) DeleteAllocation(_ context.Context, id int64) error {
	if _, ok := v.st.allocations[id]; !ok {
		return core.NewNotFound("goal allocation", id)
	}
	delete(v.st.allocations, id)
	return nil
}

func (v *view) ListBudgets(_ context.Context) ([]core.Budget, error) {
	return sortedValues(v.st.budgets, nil), nil
}

func (v *view) GetBudget(_ context.Context, id int64) (core.Budget, error) {
	b, ok := v.st.budgets[id]
	if !ok {
		return core.Budget{}, core.NewNotFound("budget", id)
	}
	return b, nil
}

func (v *view) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := v.checkBudgetRefs(b); err != nil {
		return core.Budget{}, err
	}
	b.ID = v.st.next("budgets")
	b.CreatedAt = v.now()
	v.st.budgets[b.ID] = b
	return b, nil
}

func (v *view) UpdateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	cur, ok := v.st.budgets[b.ID]
	if !ok {
		return core.Budget{}, core.NewNotFound("budget", b.ID)
	}
	if err := v.checkBudgetRefs(b); err != nil {
		return core.Budget{}, err
	}
	b.CreatedAt = cur.CreatedAt
	v.st.budgets[b.ID] = b
	return b, nil
}

func (v *view) DeleteBudget(_ context.Context, id int64) error {
	if _, ok := v.st.budgets[id]; !ok {
		return core.NewNotFound("budget", id)
	}
	delete(v.st.budgets, id)
	return nil
}

func (v *view) checkAccountRef(id int64) error {
	if _, ok := v.st.accounts[id]; !ok {
		return core.NewNotFound("account", id)
	}
	return nil
}

func (v *view) checkCategoryRef(id *int64) error {
	if id == nil {
		return nil
	}
	if _, ok := v.st.categories[*id]; !ok {
		return core.NewNotFound("category", *id)
	}
	return nil
}

func (v *view) checkTransactionRefs(t core.Transaction) error {
	if err := v.checkAccountRef(t.AccountID); err != nil {
		return err
	}
	return v.checkCategoryRef(t.CategoryID)
}

func (v *view) checkBudgetRefs(b core.Budget) error {
	if b.AccountID != nil {
		if err := v.checkAccountRef(*b.AccountID); err != nil {
			return err
		}
	}
	return v.checkCategoryRef(b.CategoryID)
}
