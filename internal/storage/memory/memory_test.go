package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"finledger/internal/core"
	"finledger/internal/storage"
)

func seedAccount(t *testing.T, s *Store) core.Account {
	t.Helper()
	a, err := s.CreateAccount(context.Background(), core.Account{
		Name:           "Checking",
		Type:           core.Checking,
		InitialBalance: decimal.NewFromInt(100),
		Balance:        decimal.NewFromInt(100),
		IsActive:       true,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func TestCreateAndGetAccount(t *testing.T) {
	s := New()
	a := seedAccount(t, s)
	if a.ID != 1 {
		t.Fatalf("expected first id 1, got %d", a.ID)
	}
	got, err := s.GetAccount(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Checking" || !got.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected account %+v", got)
	}

	if _, err := s.GetAccount(context.Background(), 99); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateAccountKeepsBalance(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s)
	if err := s.SetAccountBalance(ctx, a.ID, decimal.NewFromInt(42)); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	a.Name = "Main"
	a.Balance = decimal.NewFromInt(1_000_000)
	got, err := s.UpdateAccount(ctx, a)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Main" || !got.Balance.Equal(decimal.NewFromInt(42)) {
		t.Fatalf("unexpected account after update: %+v", got)
	}
}

func TestTransactionReferencesAreChecked(t *testing.T) {
	s := New()
	ctx := context.Background()
	tx := core.Transaction{Description: "x", Amount: decimal.NewFromInt(1), Type: core.Expense, Date: core.NewDate(2025, 1, 1), AccountID: 5}
	if _, err := s.CreateTransaction(ctx, tx); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for missing account, got %v", err)
	}

	a := seedAccount(t, s)
	tx.AccountID = a.ID
	tx.CategoryID = core.ID(9)
	if _, err := s.CreateTransaction(ctx, tx); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for missing category, got %v", err)
	}
}

func TestDeleteReferencedAccountFails(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s)
	if _, err := s.CreateGoal(ctx, core.Goal{Name: "Trip", TargetAmount: decimal.NewFromInt(500), AccountID: a.ID}); err != nil {
		t.Fatalf("create goal: %v", err)
	}
	if err := s.DeleteAccount(ctx, a.ID); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteGoalCascadesAllocations(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s)
	g, err := s.CreateGoal(ctx, core.Goal{Name: "Trip", TargetAmount: decimal.NewFromInt(500), AccountID: a.ID})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	other, err := s.CreateGoal(ctx, core.Goal{Name: "Car", TargetAmount: decimal.NewFromInt(900), AccountID: a.ID})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	for _, gid := range []int64{g.ID, g.ID, other.ID} {
		if _, err := s.CreateAllocation(ctx, core.GoalAllocation{GoalID: gid, Amount: decimal.NewFromInt(10), Date: core.NewDate(2025, 1, 1)}); err != nil {
			t.Fatalf("create allocation: %v", err)
		}
	}

	if err := s.DeleteGoal(ctx, g.ID); err != nil {
		t.Fatalf("delete goal: %v", err)
	}
	left, err := s.ListAllocations(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(left) != 1 || left[0].GoalID != other.ID {
		t.Fatalf("expected only the other goal's allocation, got %+v", left)
	}
}

func TestListTransactionsFilterAndOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s)
	b := seedAccount(t, s)
	dates := []core.Date{core.NewDate(2025, 1, 3), core.NewDate(2025, 1, 1), core.NewDate(2025, 2, 1)}
	for _, d := range dates {
		if _, err := s.CreateTransaction(ctx, core.Transaction{Description: "a", Amount: decimal.NewFromInt(1), Type: core.Expense, Date: d, AccountID: a.ID}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := s.CreateTransaction(ctx, core.Transaction{Description: "b", Amount: decimal.NewFromInt(1), Type: core.Income, Date: dates[0], AccountID: b.ID}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.ListTransactions(ctx, storage.TransactionFilter{
		AccountID: &a.ID,
		From:      core.NewDate(2025, 1, 1),
		To:        core.NewDate(2025, 1, 31),
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("unexpected transactions %+v", got)
	}
}

func TestAtomicRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s)
	boom := errors.New("boom")

	err := s.Atomic(ctx, func(ctx context.Context, q storage.Queries) error {
		if err := q.SetAccountBalance(ctx, a.ID, decimal.NewFromInt(7)); err != nil {
			return err
		}
		if _, err := q.CreateAccount(ctx, core.Account{Name: "Tmp", Type: core.Savings}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := s.GetAccount(ctx, a.ID)
	if !got.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance write was not rolled back: %s", got.Balance)
	}
	all, _ := s.ListAccounts(ctx)
	if len(all) != 1 {
		t.Fatalf("expected created account to be rolled back, got %d accounts", len(all))
	}
}

func TestDeleteCategoryWithChildrenFails(t *testing.T) {
	s := New()
	ctx := context.Background()
	parent, err := s.CreateCategory(ctx, core.Category{Name: "Food", Type: core.ExpenseCategory})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateCategory(ctx, core.Category{Name: "Groceries", Type: core.ExpenseCategory, ParentID: &parent.ID}); err != nil {
		t.Fatalf("create child: %v", err)
	}
	if err := s.DeleteCategory(ctx, parent.ID); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
