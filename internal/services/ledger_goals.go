package services

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"finledger/internal/amqp"
	"finledger/internal/core"
	"finledger/internal/storage"
)

// Goals

func (l *Ledger) ListGoals(ctx context.Context, accountID *int64) ([]core.Goal, error) {
	return l.store.ListGoals(ctx, accountID)
}

func (l *Ledger) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	return l.store.GetGoal(ctx, id)
}

func (l *Ledger) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	g.ID = 0
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	out, err := l.store.CreateGoal(ctx, g)
	if err != nil {
		return core.Goal{}, err
	}
	slog.InfoContext(ctx, "Goal created", "goal_id", out.ID, "account_id", out.AccountID)
	return out, nil
}

// UpdateGoal applies p. Moving a goal to another account carries its
// allocations along, so they must fit in the destination's headroom.
func (l *Ledger) UpdateGoal(ctx context.Context, id int64, p core.GoalPatch) (core.Goal, error) {
	var (
		out   core.Goal
		moved bool
		from  int64
	)
	resolve := func(ctx context.Context, q storage.Queries) ([]int64, error) {
		cur, err := q.GetGoal(ctx, id)
		if err != nil {
			return nil, err
		}
		return []int64{cur.AccountID, p.Apply(cur).AccountID}, nil
	}
	err := l.withAccounts(ctx, resolve, func(ctx context.Context, q storage.Queries) error {
		cur, err := q.GetGoal(ctx, id)
		if err != nil {
			return err
		}
		next := p.Apply(cur)
		if err := next.Validate(); err != nil {
			return err
		}
		if next.AccountID != cur.AccountID {
			if err := ValidateGoalMove(ctx, q, cur, next.AccountID); err != nil {
				return err
			}
			moved, from = true, cur.AccountID
		}
		out, err = q.UpdateGoal(ctx, next)
		return err
	})
	if err != nil {
		return core.Goal{}, err
	}
	if moved {
		l.publish(ctx, amqp.NewAllocationChanged(from, out.ID))
		l.publish(ctx, amqp.NewAllocationChanged(out.AccountID, out.ID))
	}
	return out, nil
}

// DeleteGoal removes the goal together with all of its allocations.
func (l *Ledger) DeleteGoal(ctx context.Context, id int64) error {
	var accountID int64
	resolve := func(ctx context.Context, q storage.Queries) ([]int64, error) {
		g, err := q.GetGoal(ctx, id)
		if err != nil {
			return nil, err
		}
		accountID = g.AccountID
		return []int64{g.AccountID}, nil
	}
	err := l.withAccounts(ctx, resolve, func(ctx context.Context, q storage.Queries) error {
		return q.DeleteGoal(ctx, id)
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Goal deleted", "goal_id", id, "account_id", accountID)
	l.publish(ctx, amqp.NewAllocationChanged(accountID, id))
	return nil
}

// GoalCurrentAmount is the sum of the goal's allocations.
func (l *Ledger) GoalCurrentAmount(ctx context.Context, goalID int64) (decimal.Decimal, error) {
	return l.allocations.CurrentAmount(ctx, goalID)
}

func (l *Ledger) GoalProgress(ctx context.Context, goalID int64) (core.GoalProgress, error) {
	return l.allocations.Progress(ctx, goalID)
}

// Goal allocations

func (l *Ledger) ListAllocations(ctx context.Context) ([]core.GoalAllocation, error) {
	return l.store.ListAllocations(ctx, nil)
}

func (l *Ledger) ListAllocationsByGoal(ctx context.Context, goalID int64) ([]core.GoalAllocation, error) {
	if _, err := l.store.GetGoal(ctx, goalID); err != nil {
		return nil, err
	}
	return l.store.ListAllocations(ctx, []int64{goalID})
}

func (l *Ledger) GetAllocation(ctx context.Context, id int64) (core.GoalAllocation, error) {
	return l.store.GetAllocation(ctx, id)
}

func goalAccount(ctx context.Context, q storage.Queries, goalID int64) (int64, error) {
	g, err := q.GetGoal(ctx, goalID)
	if err != nil {
		return 0, err
	}
	return g.AccountID, nil
}

// CreateAllocation earmarks a.Amount of the goal's funding account. It fails
// with a CapacityExceededError when the account's headroom is too small.
func (l *Ledger) CreateAllocation(ctx context.Context, a core.GoalAllocation) (core.GoalAllocation, error) {
	a.ID = 0
	if err := a.Validate(); err != nil {
		return core.GoalAllocation{}, err
	}
	var (
		out       core.GoalAllocation
		accountID int64
	)
	resolve := func(ctx context.Context, q storage.Queries) ([]int64, error) {
		id, err := goalAccount(ctx, q, a.GoalID)
		accountID = id
		return []int64{id}, err
	}
	err := l.withAccounts(ctx, resolve, func(ctx context.Context, q storage.Queries) error {
		if _, err := ValidateAllocation(ctx, q, a, 0); err != nil {
			return err
		}
		var err error
		out, err = q.CreateAllocation(ctx, a)
		return err
	})
	if err != nil {
		return core.GoalAllocation{}, err
	}
	slog.InfoContext(ctx, "Allocation created",
		"allocation_id", out.ID,
		"goal_id", out.GoalID,
		"account_id", accountID,
		"amount", out.Amount.String())
	l.publish(ctx, amqp.NewAllocationChanged(accountID, out.GoalID))
	return out, nil
}

// UpdateAllocation applies p. The edited allocation's old amount does not
// count against its own headroom.
func (l *Ledger) UpdateAllocation(ctx context.Context, id int64, p core.AllocationPatch) (core.GoalAllocation, error) {
	var (
		out       core.GoalAllocation
		accountID int64
	)
	resolve := func(ctx context.Context, q storage.Queries) ([]int64, error) {
		cur, err := q.GetAllocation(ctx, id)
		if err != nil {
			return nil, err
		}
		from, err := goalAccount(ctx, q, cur.GoalID)
		if err != nil {
			return nil, err
		}
		to, err := goalAccount(ctx, q, p.Apply(cur).GoalID)
		if err != nil {
			return nil, err
		}
		return []int64{from, to}, nil
	}
	err := l.withAccounts(ctx, resolve, func(ctx context.Context, q storage.Queries) error {
		cur, err := q.GetAllocation(ctx, id)
		if err != nil {
			return err
		}
		next := p.Apply(cur)
		if err := next.Validate(); err != nil {
			return err
		}
		g, err := ValidateAllocation(ctx, q, next, id)
		if err != nil {
			return err
		}
		accountID = g.AccountID
		out, err = q.UpdateAllocation(ctx, next)
		return err
	})
	if err != nil {
		return core.GoalAllocation{}, err
	}
	l.publish(ctx, amqp.NewAllocationChanged(accountID, out.GoalID))
	return out, nil
}

func (l *Ledger) DeleteAllocation(ctx context.Context, id int64) error {
	var accountID, goalID int64
	resolve := func(ctx context.Context, q storage.Queries) ([]int64, error) {
		cur, err := q.GetAllocation(ctx, id)
		if err != nil {
			return nil, err
		}
		goalID = cur.GoalID
		accountID, err = goalAccount(ctx, q, cur.GoalID)
		return []int64{accountID}, err
	}
	err := l.withAccounts(ctx, resolve, func(ctx context.Context, q storage.Queries) error {
		return q.DeleteAllocation(ctx, id)
	})
	if err != nil {
		return err
	}
	l.publish(ctx, amqp.NewAllocationChanged(accountID, goalID))
	return nil
}

// Budgets

func (l *Ledger) ListBudgets(ctx context.Context, f storage.BudgetFilter) ([]core.Budget, error) {
	budgets, err := l.store.ListBudgets(ctx)
	if err != nil {
		return nil, err
	}
	out := budgets[:0]
	for _, b := range budgets {
		if f.Matches(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (l *Ledger) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	return l.store.GetBudget(ctx, id)
}

func (l *Ledger) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.ID = 0
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	return l.store.CreateBudget(ctx, b)
}

func (l *Ledger) UpdateBudget(ctx context.Context, id int64, p core.BudgetPatch) (core.Budget, error) {
	var out core.Budget
	err := l.store.Atomic(ctx, func(ctx context.Context, q storage.Queries) error {
		cur, err := q.GetBudget(ctx, id)
		if err != nil {
			return err
		}
		next := p.Apply(cur)
		if err := next.Validate(); err != nil {
			return err
		}
		out, err = q.UpdateBudget(ctx, next)
		return err
	})
	return out, err
}

func (l *Ledger) DeleteBudget(ctx context.Context, id int64) error {
	return l.store.DeleteBudget(ctx, id)
}

// BudgetSpending sums the budget's expenses in its current window. An unknown budget spends zero.
func (l *Ledger) BudgetSpending(ctx context.Context, id int64) (decimal.Decimal, error) {
	return l.spending.Spending(ctx, id)
}

func (l *Ledger) BudgetStatus(ctx context.Context, id int64) (core.BudgetStatus, error) {
	return l.spending.Status(ctx, id)
}
