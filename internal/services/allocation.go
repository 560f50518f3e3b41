package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"finledger/internal/core"
	"finledger/internal/storage"
)

// AllocationValidator answers allocation questions against a store. The
// package-level functions do the same work on the Queries of an open Atomic block.
type AllocationValidator struct {
	store storage.Queries
}

func NewAllocationValidator(store storage.Queries) *AllocationValidator {
	return &AllocationValidator{store: store}
}

func (v *AllocationValidator) Headroom(ctx context.Context, accountID int64) (core.Headroom, error) {
	return AccountHeadroom(ctx, v.store, accountID, 0)
}

func (v *AllocationValidator) CurrentAmount(ctx context.Context, goalID int64) (decimal.Decimal, error) {
	return GoalCurrentAmount(ctx, v.store, goalID)
}

func (v *AllocationValidator) Progress(ctx context.Context, goalID int64) (core.GoalProgress, error) {
	g, err := v.store.GetGoal(ctx, goalID)
	if err != nil {
		return core.GoalProgress{}, err
	}
	allocs, err := v.store.ListAllocations(ctx, []int64{goalID})
	if err != nil {
		return core.GoalProgress{}, fmt.Errorf("list allocations: %w", err)
	}
	return Progress(g, allocs), nil
}

// AccountHeadroom sums the allocations of every goal funded by accountID,
// skipping allocation excludeID, and subtracts them from the balance.
func AccountHeadroom(ctx context.Context, q storage.Queries, accountID, excludeID int64) (core.Headroom, error) {
	a, err := q.GetAccount(ctx, accountID)
	if err != nil {
		return core.Headroom{}, err
	}
	goals, err := q.ListGoals(ctx, &accountID)
	if err != nil {
		return core.Headroom{}, fmt.Errorf("list goals: %w", err)
	}
	ids := make([]int64, 0, len(goals))
	for _, g := range goals {
		ids = append(ids, g.ID)
	}
	allocs, err := q.ListAllocations(ctx, ids)
	if err != nil {
		return core.Headroom{}, fmt.Errorf("list allocations: %w", err)
	}

	allocated := decimal.Zero
	for _, al := range allocs {
		if al.ID == excludeID {
			continue
		}
		allocated = allocated.Add(al.Amount)
	}
	return core.Headroom{
		AccountID: accountID,
		Balance:   a.Balance,
		Allocated: allocated,
		Available: a.Balance.Sub(allocated),
	}, nil
}

// CheckCapacity rejects requested when it exceeds the available headroom.
func CheckCapacity(h core.Headroom, requested decimal.Decimal) error {
	if requested.GreaterThan(h.Available) {
		return &core.CapacityExceededError{
			AccountID: h.AccountID,
			Available: h.Available,
			Requested: requested,
		}
	}
	return nil
}

// ValidateAllocation checks that a fits within its goal's funding account.
// excludeID is the allocation being edited, or 0 for a new one.
func ValidateAllocation(ctx context.Context, q storage.Queries, a core.GoalAllocation, excludeID int64) (core.Goal, error) {
	g, err := q.GetGoal(ctx, a.GoalID)
	if err != nil {
		return core.Goal{}, err
	}
	h, err := AccountHeadroom(ctx, q, g.AccountID, excludeID)
	if err != nil {
		return core.Goal{}, err
	}
	return g, CheckCapacity(h, a.Amount)
}

// ValidateGoalMove checks that the allocations of g fit in the headroom of accountID.
func ValidateGoalMove(ctx context.Context, q storage.Queries, g core.Goal, accountID int64) error {
	current, err := GoalCurrentAmount(ctx, q, g.ID)
	if err != nil {
		return err
	}
	h, err := AccountHeadroom(ctx, q, accountID, 0)
	if err != nil {
		return err
	}
	return CheckCapacity(h, current)
}

// GoalCurrentAmount is the sum of the goal's allocations. It is never stored.
func GoalCurrentAmount(ctx context.Context, q storage.Queries, goalID int64) (decimal.Decimal, error) {
	if _, err := q.GetGoal(ctx, goalID); err != nil {
		return decimal.Zero, err
	}
	allocs, err := q.ListAllocations(ctx, []int64{goalID})
	if err != nil {
		return decimal.Zero, fmt.Errorf("list allocations: %w", err)
	}
	return sumAllocations(goalID, allocs), nil
}

// Progress reports current against target for g. The ratio is zero for a zero target.
func Progress(g core.Goal, allocs []core.GoalAllocation) core.GoalProgress {
	current := sumAllocations(g.ID, allocs)
	ratio := decimal.Zero
	if g.TargetAmount.IsPositive() {
		ratio = current.DivRound(g.TargetAmount, ratioPlaces)
	}
	return core.GoalProgress{
		GoalID:        g.ID,
		Name:          g.Name,
		CurrentAmount: current,
		TargetAmount:  g.TargetAmount,
		Ratio:         ratio,
	}
}

func sumAllocations(goalID int64, allocs []core.GoalAllocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocs {
		if a.GoalID == goalID {
			total = total.Add(a.Amount)
		}
	}
	return total
}
