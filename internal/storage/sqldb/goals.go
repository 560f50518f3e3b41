package sqldb

import (
	"context"
	"database/sql"
	"strings"

	"finledger/internal/core"
)

const holdingColumns = "id, symbol, name, shares, purchase_price, current_price, account_id, purchase_date, notes, created_at, updated_at"

func scanHolding(r rowScanner) (core.Holding, error) {
	var h core.Holding
	err := r.Scan(&h.ID, &h.Symbol, &h.Name, &h.Shares, &h.PurchasePrice, &h.CurrentPrice, &h.AccountID,
		&h.PurchaseDate, &h.Notes, timestamp{&h.CreatedAt}, timestamp{&h.UpdatedAt})
	return h, err
}

func (q *queries) ListHoldings(ctx context.Context, accountID *int64) ([]core.Holding, error) {
	query := "SELECT " + holdingColumns + " FROM holdings"
	var args []any
	if accountID != nil {
		query += " WHERE account_id = ?"
		args = append(args, *accountID)
	}
	rows, err := q.ex.QueryContext(ctx, q.rebind(query+" ORDER BY id"), args...)
	if err != nil {
		return nil, core.WrapStorage("list holdings", err)
	}
	return collect(rows, "list holdings", scanHolding)
}

func (q *queries) GetHolding(ctx context.Context, id int64) (core.Holding, error) {
	row := q.ex.QueryRowContext(ctx, q.rebind("SELECT "+holdingColumns+" FROM holdings WHERE id = ?"), id)
	h, err := scanHolding(row)
	if err != nil {
		return core.Holding{}, notFoundOr(err, "holding", id, "get holding")
	}
	return h, nil
}

func (q *queries) CreateHolding(ctx context.Context, h core.Holding) (core.Holding, error) {
	if err := q.mustExist(ctx, "accounts", "account", h.AccountID); err != nil {
		return core.Holding{}, err
	}
	h.CreatedAt = q.now()
	h.UpdatedAt = h.CreatedAt
	id, err := q.insert(ctx, "insert holding",
		`INSERT INTO holdings (symbol, name, shares, purchase_price, current_price, account_id, purchase_date, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.Symbol, h.Name, h.Shares.String(), h.PurchasePrice.String(), h.CurrentPrice.String(), h.AccountID,
		h.PurchaseDate.String(), h.Notes, stamp(h.CreatedAt), stamp(h.UpdatedAt))
	if err != nil {
		return core.Holding{}, err
	}
	h.ID = id
	return h, nil
}

func (q *queries) UpdateHolding(ctx context.Context, h core.Holding) (core.Holding, error) {
	if err := q.mustExist(ctx, "accounts", "account", h.AccountID); err != nil {
		return core.Holding{}, err
	}
	n, err := q.exec(ctx, "update holding",
		`UPDATE holdings SET symbol = ?, name = ?, shares = ?, purchase_price = ?, current_price = ?,
		 account_id = ?, purchase_date = ?, notes = ?, updated_at = ? WHERE id = ?`,
		h.Symbol, h.Name, h.Shares.String(), h.PurchasePrice.String(), h.CurrentPrice.String(),
		h.AccountID, h.PurchaseDate.String(), h.Notes, stamp(q.now()), h.ID)
	if err != nil {
		return core.Holding{}, err
	}
	if n == 0 {
		return core.Holding{}, core.NewNotFound("holding", h.ID)
	}
	return q.GetHolding(ctx, h.ID)
}

func (q *queries) DeleteHolding(ctx context.Context, id int64) error {
	return q.deleteByID(ctx, "holdings", "holding", id)
}

const goalColumns = "id, name, target_amount, deadline, account_id, description, is_completed"

func scanGoal(r rowScanner) (core.Goal, error) {
	var (
		g        core.Goal
		deadline core.Date
	)
	if err := r.Scan(&g.ID, &g.Name, &g.TargetAmount, &deadline, &g.AccountID, &g.Description, &g.IsCompleted); err != nil {
		return core.Goal{}, err
	}
	if !deadline.IsZero() {
		g.Deadline = &deadline
	}
	return g, nil
}

func (q *queries) ListGoals(ctx context.Context, accountID *int64) ([]core.Goal, error) {
	query := "SELECT " + goalColumns + " FROM goals"
	var args []any
	if accountID != nil {
		query += " WHERE account_id = ?"
		args = append(args, *accountID)
	}
	rows, err := q.ex.QueryContext(ctx, q.rebind(query+" ORDER BY id"), args...)
	if err != nil {
		return nil, core.WrapStorage("list goals", err)
	}
	return collect(rows, "list goals", scanGoal)
}

func (q *queries) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	row := q.ex.QueryRowContext(ctx, q.rebind("SELECT "+goalColumns+" FROM goals WHERE id = ?"), id)
	g, err := scanGoal(row)
	if err != nil {
		return core.Goal{}, notFoundOr(err, "goal", id, "get goal")
	}
	return g, nil
}

func (q *queries) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if err := q.mustExist(ctx, "accounts", "account", g.AccountID); err != nil {
		return core.Goal{}, err
	}
	id, err := q.insert(ctx, "insert goal",
		"INSERT INTO goals (name, target_amount, deadline, account_id, description, is_completed) VALUES (?, ?, ?, ?, ?, ?)",
		g.Name, g.TargetAmount.String(), nullDate(g.Deadline), g.AccountID, g.Description, g.IsCompleted)
	if err != nil {
		return core.Goal{}, err
	}
	g.ID = id
	return g, nil
}

func (q *queries) UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if err := q.mustExist(ctx, "accounts", "account", g.AccountID); err != nil {
		return core.Goal{}, err
	}
	n, err := q.exec(ctx, "update goal",
		"UPDATE goals SET name = ?, target_amount = ?, deadline = ?, account_id = ?, description = ?, is_completed = ? WHERE id = ?",
		g.Name, g.TargetAmount.String(), nullDate(g.Deadline), g.AccountID, g.Description, g.IsCompleted, g.ID)
	if err != nil {
		return core.Goal{}, err
	}
	if n == 0 {
		return core.Goal{}, core.NewNotFound("goal", g.ID)
	}
	return g, nil
}

func (q *queries) DeleteGoal(ctx context.Context, id int64) error {
	if err := q.mustExist(ctx, "goals", "goal", id); err != nil {
		return err
	}
	if _, err := q.exec(ctx, "delete goal allocations", "DELETE FROM goal_allocations WHERE goal_id = ?", id); err != nil {
		return err
	}
	return q.deleteByID(ctx, "goals", "goal", id)
}

const allocationColumns = "id, goal_id, amount, description, date, created_at"

func scanAllocation(r rowScanner) (core.GoalAllocation, error) {
	var a core.GoalAllocation
	err := r.Scan(&a.ID, &a.GoalID, &a.Amount, &a.Description, &a.Date, timestamp{&a.CreatedAt})
	return a, err
}

func (q *queries) ListAllocations(ctx context.Context, goalIDs []int64) ([]core.GoalAllocation, error) {
	if goalIDs != nil && len(goalIDs) == 0 {
		return []core.GoalAllocation{}, nil
	}
	query := "SELECT " + allocationColumns + " FROM goal_allocations"
	args := make([]any, len(goalIDs))
	if goalIDs != nil {
		marks := make([]string, len(goalIDs))
		for i, id := range goalIDs {
			marks[i] = "?"
			args[i] = id
		}
		query += " WHERE goal_id IN (" + strings.Join(marks, ", ") + ")"
	}
	rows, err := q.ex.QueryContext(ctx, q.rebind(query+" ORDER BY id"), args...)
	if err != nil {
		return nil, core.WrapStorage("list allocations", err)
	}
	return collect(rows, "list allocations", scanAllocation)
}

func (q *queries) GetAllocation(ctx context.Context, id int64) (core.GoalAllocation, error) {
	row := q.ex.QueryRowContext(ctx, q.rebind("SELECT "+allocationColumns+" FROM goal_allocations WHERE id = ?"), id)
	a, err := scanAllocation(row)
	if err != nil {
		return core.GoalAllocation{}, notFoundOr(err, "goal allocation", id, "get allocation")
	}
	return a, nil
}

func (q *queries) CreateAllocation(ctx context.Context, a core.GoalAllocation) (core.GoalAllocation, error) {
	if err := q.mustExist(ctx, "goals", "goal", a.GoalID); err != nil {
		return core.GoalAllocation{}, err
	}
	a.CreatedAt = q.now()
	id, err := q.insert(ctx, "insert allocation",
		"INSERT INTO goal_allocations (goal_id, amount, description, date, created_at) VALUES (?, ?, ?, ?, ?)",
		a.GoalID, a.Amount.String(), a.Description, a.Date.String(), stamp(a.CreatedAt))
	if err != nil {
		return core.GoalAllocation{}, err
	}
	a.ID = id
	return a, nil
}

func (q *queries) UpdateAllocation(ctx context.Context, a core.GoalAllocation) (core.GoalAllocation, error) {
	if err := q.mustExist(ctx, "goals", "goal", a.GoalID); err != nil {
		return core.GoalAllocation{}, err
	}
	n, err := q.exec(ctx, "update allocation",
		"UPDATE goal_allocations SET goal_id = ?, amount = ?, description = ?, date = ? WHERE id = ?",
		a.GoalID, a.Amount.String(), a.Description, a.Date.String(), a.ID)
	if err != nil {
		return core.GoalAllocation{}, err
	}
	if n == 0 {
		return core.GoalAllocation{}, core.NewNotFound("goal allocation", a.ID)
	}
	return q.GetAllocation(ctx, a.ID)
}

func (q *queries) DeleteAllocation(ctx context.Context, id int64) error {
	return q.deleteByID(ctx, "goal_allocations", "goal allocation", id)
}

const budgetColumns = "id, name, description, amount, period, account_id, category_id, is_active, alert_threshold, created_at"

func scanBudget(r rowScanner) (core.Budget, error) {
	var (
		b                 core.Budget
		account, category sql.NullInt64
	)
	err := r.Scan(&b.ID, &b.Name, &b.Description, &b.Amount, &b.Period, &account, &category,
		&b.IsActive, &b.AlertThreshold, timestamp{&b.CreatedAt})
	if err != nil {
		return core.Budget{}, err
	}
	b.AccountID = idPtr(account)
	b.CategoryID = idPtr(category)
	return b, nil
}

func (q *queries) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := q.ex.QueryContext(ctx, "SELECT "+budgetColumns+" FROM budgets ORDER BY id")
	if err != nil {
		return nil, core.WrapStorage("list budgets", err)
	}
	return collect(rows, "list budgets", scanBudget)
}

func (q *queries) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	row := q.ex.QueryRowContext(ctx, q.rebind("SELECT "+budgetColumns+" FROM budgets WHERE id = ?"), id)
	b, err := scanBudget(row)
	if err != nil {
		return core.Budget{}, notFoundOr(err, "budget", id, "get budget")
	}
	return b, nil
}

func (q *queries) checkBudgetRefs(ctx context.Context, b core.Budget) error {
	if err := q.mustExistRef(ctx, "accounts", "account", b.AccountID); err != nil {
		return err
	}
	return q.mustExistRef(ctx, "categories", "category", b.CategoryID)
}

func (q *queries) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := q.checkBudgetRefs(ctx, b); err != nil {
		return core.Budget{}, err
	}
	b.CreatedAt = q.now()
	id, err := q.insert(ctx, "insert budget",
		`INSERT INTO budgets (name, description, amount, period, account_id, category_id, is_active, alert_threshold, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Name, b.Description, b.Amount.String(), string(b.Period), nullID(b.AccountID), nullID(b.CategoryID),
		b.IsActive, b.AlertThreshold.String(), stamp(b.CreatedAt))
	if err != nil {
		return core.Budget{}, err
	}
	b.ID = id
	return b, nil
}

func (q *queries) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := q.checkBudgetRefs(ctx, b); err != nil {
		return core.Budget{}, err
	}
	n, err := q.exec(ctx, "update budget",
		`UPDATE budgets SET name = ?, description = ?, amount = ?, period = ?, account_id = ?, category_id = ?,
		 is_active = ?, alert_threshold = ? WHERE id = ?`,
		b.Name, b.Description, b.Amount.String(), string(b.Period), nullID(b.AccountID), nullID(b.CategoryID),
		b.IsActive, b.AlertThreshold.String(), b.ID)
	if err != nil {
		return core.Budget{}, err
	}
	if n == 0 {
		return core.Budget{}, core.NewNotFound("budget", b.ID)
	}
	return q.GetBudget(ctx, b.ID)
}

func (q *queries) DeleteBudget(ctx context.Context, id int64) error {
	return q.deleteByID(ctx, "budgets", "budget", id)
}
