package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"finledger/internal/amqp"
	"finledger/internal/core"
	"finledger/internal/storage"
)

func TestCategoryHierarchyRules(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	create := func(name string, typ core.CategoryType, parent *int64) (core.Category, error) {
		return l.CreateCategory(ctx, core.Category{Name: name, Type: typ, ParentID: parent})
	}

	food, err := create("Food", core.ExpenseCategory, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if food.Color != core.DefaultCategoryColor {
		t.Errorf("color = %q, want default", food.Color)
	}
	groceries, err := create("Groceries", core.ExpenseCategory, core.ID(food.ID))
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	salary, err := create("Salary", core.IncomeCategory, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	tests := []struct {
		name  string
		run   func() error
		field string
	}{
		{
			name: "grandchild",
			run: func() error {
				_, err := create("Organic", core.ExpenseCategory, core.ID(groceries.ID))
				return err
			},
			field: "parentId",
		},
		{
			name: "mixed types",
			run: func() error {
				_, err := create("Bonus", core.IncomeCategory, core.ID(food.ID))
				return err
			},
			field: "parentId",
		},
		{
			name: "own parent",
			run: func() error {
				_, err := l.UpdateCategory(ctx, food.ID, core.CategoryPatch{ParentID: core.ID(food.ID)})
				return err
			},
			field: "parentId",
		},
		{
			name: "cycle through child",
			run: func() error {
				_, err := l.UpdateCategory(ctx, food.ID, core.CategoryPatch{ParentID: core.ID(groceries.ID)})
				return err
			},
			field: "parentId",
		},
		{
			name: "parent with children becomes child",
			run: func() error {
				other, err := create("Household", core.ExpenseCategory, nil)
				if err != nil {
					return err
				}
				_, err = l.UpdateCategory(ctx, food.ID, core.CategoryPatch{ParentID: core.ID(other.ID)})
				return err
			},
			field: "parentId",
		},
		{
			name: "parent type change with subcategories",
			run: func() error {
				_, err := l.UpdateCategory(ctx, food.ID, core.CategoryPatch{Type: ptr(core.IncomeCategory)})
				return err
			},
			field: "type",
		},
		{
			name: "child type change",
			run: func() error {
				_, err := l.UpdateCategory(ctx, groceries.ID, core.CategoryPatch{Type: ptr(core.IncomeCategory)})
				return err
			},
			field: "parentId",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			var verr *core.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Fatalf("expected %s error, got %v", tt.field, verr)
			}
		})
	}

	if _, err := create("Ghost", core.ExpenseCategory, core.ID(999)); !core.IsNotFound(err) {
		t.Fatalf("missing parent should be not found, got %v", err)
	}

	moved, err := l.UpdateCategory(ctx, groceries.ID, core.CategoryPatch{ClearParent: true})
	if err != nil {
		t.Fatalf("clear parent: %v", err)
	}
	if moved.ParentID != nil {
		t.Fatalf("parent not cleared")
	}
	if got, _ := l.GetCategory(ctx, food.ID); got.Type != core.ExpenseCategory {
		t.Fatalf("rejected type change was stored: %+v", got)
	}
	if _, err := l.UpdateCategory(ctx, food.ID, core.CategoryPatch{Type: ptr(core.IncomeCategory)}); err != nil {
		t.Fatalf("type change without subcategories: %v", err)
	}
	if _, err := l.UpdateCategory(ctx, salary.ID, core.CategoryPatch{Name: ptr("Wages")}); err != nil {
		t.Fatalf("rename: %v", err)
	}
}

func TestDeleteReferencedRecords(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	a := mustAccount(t, l, core.Checking, "10")
	c, err := l.CreateCategory(ctx, core.Category{Name: "Fees", Type: core.ExpenseCategory})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	tx, err := l.CreateTransaction(ctx, core.Transaction{
		Description: "fee", Amount: dec("1"), Type: core.Expense, Date: core.NewDate(2025, 3, 1),
		AccountID: a.ID, CategoryID: core.ID(c.ID),
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	if err := l.DeleteAccount(ctx, a.ID); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("deleting an account with transactions should fail validation, got %v", err)
	}
	if err := l.DeleteCategory(ctx, c.ID); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("deleting a used category should fail validation, got %v", err)
	}

	if err := l.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	if err := l.DeleteAccount(ctx, a.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	if _, err := l.GetAccount(ctx, a.ID); !core.IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := l.DeleteTransaction(ctx, tx.ID); !core.IsNotFound(err) {
		t.Fatalf("expected not found for a deleted transaction, got %v", err)
	}
}

func TestUpdateAccountTypeRecomputesBalance(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	a := mustAccount(t, l, core.Investment, "100")
	if _, err := l.CreateHolding(ctx, core.Holding{
		Symbol: "VOO", Name: "Vanguard", Shares: dec("1"), CurrentPrice: dec("50"),
		AccountID: a.ID, PurchaseDate: core.NewDate(2024, 1, 1),
	}); err != nil {
		t.Fatalf("create holding: %v", err)
	}
	assertDecimal(t, "investment balance", balanceOf(t, l, a.ID), "150")

	savings := core.Savings
	updated, err := l.UpdateAccount(ctx, a.ID, core.AccountPatch{Type: &savings})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	assertDecimal(t, "balance after type change", updated.Balance, "100")
}

func TestLedgerPublishesEvents(t *testing.T) {
	pub := &recordingPublisher{}
	l := newTestLedger(t, WithEvents(pub))
	a := mustAccount(t, l, core.Savings, "500")
	mustTransaction(t, l, a.ID, core.Income, "100", core.NewDate(2025, 3, 1))
	g := mustGoal(t, l, a.ID, "1000")
	if _, err := allocate(l, g.ID, "200"); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	// Rejected allocations publish nothing.
	if _, err := allocate(l, g.ID, "2000"); err == nil {
		t.Fatalf("expected capacity error")
	}

	events := pub.snapshot()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[0].Type != amqp.BalanceRecomputed || events[0].AccountID != a.ID || events[0].Balance != "600.00" {
		t.Errorf("unexpected balance event: %+v", events[0])
	}
	if events[1].Type != amqp.AllocationChanged || events[1].GoalID != g.ID {
		t.Errorf("unexpected allocation event: %+v", events[1])
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	pub := &recordingPublisher{err: amqp.ErrCircuitOpen}
	l := newTestLedger(t, WithEvents(pub))
	a := mustAccount(t, l, core.Checking, "1")
	mustTransaction(t, l, a.ID, core.Income, "1", core.NewDate(2025, 3, 1))
	assertDecimal(t, "balance", balanceOf(t, l, a.ID), "2")
}

func TestAccountLocks(t *testing.T) {
	locks := NewAccountLocks()

	unlock := locks.Lock(3, 1, 3, 0, -2)
	if n := locks.size(); n != 2 {
		t.Fatalf("size = %d, want 2", n)
	}
	unlock()
	if n := locks.size(); n != 0 {
		t.Fatalf("size after unlock = %d, want 0", n)
	}

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Overlapping pairs taken in different argument orders.
			var unlock func()
			if i%2 == 0 {
				unlock = locks.Lock(1, 2)
			} else {
				unlock = locks.Lock(2, 1)
			}
			counter++
			unlock()
		}(i)
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
	if n := locks.size(); n != 0 {
		t.Fatalf("size after concurrent use = %d, want 0", n)
	}
}

func TestOverview(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	checking := mustAccount(t, l, core.Checking, "1000")
	if _, err := l.CreateAccount(ctx, core.Account{Name: "Old", Type: core.Savings, InitialBalance: dec("50"), IsActive: false}); err != nil {
		t.Fatalf("create account: %v", err)
	}
	food, _ := l.CreateCategory(ctx, core.Category{Name: "Food", Type: core.ExpenseCategory})
	fun, _ := l.CreateCategory(ctx, core.Category{Name: "Fun", Type: core.ExpenseCategory})

	add := func(typ core.TransactionType, amount string, category *int64, date core.Date) {
		t.Helper()
		if _, err := l.CreateTransaction(ctx, core.Transaction{
			Description: "t", Amount: dec(amount), Type: typ, Date: date, AccountID: checking.ID, CategoryID: category,
		}); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}
	add(core.Income, "2000", nil, core.NewDate(2025, 3, 1))
	add(core.Expense, "30", core.ID(food.ID), core.NewDate(2025, 3, 2))
	add(core.Expense, "20", core.ID(food.ID), core.NewDate(2025, 3, 31))
	add(core.Expense, "50", core.ID(fun.ID), core.NewDate(2025, 3, 3))
	add(core.Expense, "10", nil, core.NewDate(2025, 3, 4))
	add(core.Transfer, "100", nil, core.NewDate(2025, 3, 5))
	add(core.Expense, "999", core.ID(food.ID), core.NewDate(2025, 4, 1))

	g := mustGoal(t, l, checking.ID, "100")
	if _, err := allocate(l, g.ID, "25"); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if _, err := l.CreateGoal(ctx, core.Goal{Name: "Done", TargetAmount: dec("1"), AccountID: checking.ID, IsCompleted: true}); err != nil {
		t.Fatalf("create goal: %v", err)
	}

	ov, err := l.Overview(ctx, 2025, 3)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	// 1000 + 2000 - 30 - 20 - 50 - 10 - 100 - 999
	assertDecimal(t, "total balance", ov.TotalBalance, "1791")
	assertDecimal(t, "income", ov.Income, "2000")
	assertDecimal(t, "expenses", ov.Expenses, "110")
	assertDecimal(t, "net", ov.Net, "1890")

	wantOrder := []string{"Food", "Fun", uncategorized}
	if len(ov.ByCategory) != len(wantOrder) {
		t.Fatalf("by category = %+v", ov.ByCategory)
	}
	for i, name := range wantOrder {
		if ov.ByCategory[i].Name != name {
			t.Errorf("by category[%d] = %s, want %s", i, ov.ByCategory[i].Name, name)
		}
	}
	if len(ov.Goals) != 1 || ov.Goals[0].GoalID != g.ID {
		t.Fatalf("goals = %+v", ov.Goals)
	}

	if _, err := l.Overview(ctx, 2025, 13); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error for month 13, got %v", err)
	}
}

func TestAuditorCorrectsStaleBalances(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	a := mustAccount(t, l, core.Savings, "1000")
	mustAccount(t, l, core.Checking, "10")
	g := mustGoal(t, l, a.ID, "1000")
	if _, err := allocate(l, g.ID, "800"); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	// Simulate drift: a stored balance no transaction explains.
	if err := l.Store().SetAccountBalance(ctx, a.ID, dec("500")); err != nil {
		t.Fatalf("set balance: %v", err)
	}

	report, err := NewAuditor(l, 2).Run(ctx)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if report.Accounts != 2 {
		t.Errorf("accounts = %d, want 2", report.Accounts)
	}
	if len(report.Changed) != 1 || report.Changed[0].AccountID != a.ID {
		t.Fatalf("changed = %+v", report.Changed)
	}
	assertDecimal(t, "before", report.Changed[0].Before, "500")
	assertDecimal(t, "after", report.Changed[0].After, "1000")
	if len(report.OverAllocated) != 0 {
		t.Fatalf("over-allocated = %+v", report.OverAllocated)
	}
	assertDecimal(t, "restored balance", balanceOf(t, l, a.ID), "1000")
}

func TestAuditorReportsOverAllocation(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	a := mustAccount(t, l, core.Checking, "1000")
	g := mustGoal(t, l, a.ID, "1000")
	if _, err := allocate(l, g.ID, "900"); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	// Spending after the allocation leaves it uncovered.
	mustTransaction(t, l, a.ID, core.Expense, "300", core.NewDate(2025, 3, 10))

	auditor := NewAuditor(l, 0)
	h, over, err := auditor.AuditAccount(ctx, a.ID)
	if err != nil {
		t.Fatalf("audit account: %v", err)
	}
	if !over {
		t.Fatalf("expected over-allocation")
	}
	assertDecimal(t, "available", h.Available, "-200")

	report, err := auditor.Run(ctx)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(report.OverAllocated) != 1 || report.OverAllocated[0].AccountID != a.ID {
		t.Fatalf("over-allocated = %+v", report.OverAllocated)
	}
	allocs, _ := l.ListAllocations(ctx)
	if len(allocs) != 1 {
		t.Fatalf("audit must not remove allocations")
	}

	if _, _, err := auditor.AuditAccount(ctx, 404); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSeedDemoData(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	if err := SeedDemoData(ctx, l); err != nil {
		t.Fatalf("seed: %v", err)
	}

	accounts, _ := l.ListAccounts(ctx)
	if len(accounts) != 5 {
		t.Fatalf("accounts = %d, want 5", len(accounts))
	}
	categories, _ := l.ListCategories(ctx)
	if len(categories) != 18 {
		t.Fatalf("categories = %d, want 18", len(categories))
	}
	budgets, _ := l.ListBudgets(ctx, storage.BudgetFilter{})
	if len(budgets) != 3 {
		t.Fatalf("budgets = %d, want 3", len(budgets))
	}

	// 4250.32 + 3200 - 124.50 - 75.40 - 52 - 45.20 - 12.80 - 35 - 87.30
	assertDecimal(t, "checking balance", balanceOf(t, l, accounts[0].ID), "7018.12")
	// 10.5×175.80 + 8.25×420.50 + 15×435.25
	assertDecimal(t, "fidelity balance", balanceOf(t, l, accounts[3].ID), "11843.78")

	h, err := l.Headroom(ctx, accounts[1].ID)
	if err != nil {
		t.Fatalf("headroom: %v", err)
	}
	assertDecimal(t, "savings allocated", h.Allocated, "7050")

	// Seeding again leaves the ledger alone.
	if err := SeedDemoData(ctx, l); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	again, _ := l.ListAccounts(ctx)
	if len(again) != 5 {
		t.Fatalf("second seed added accounts")
	}
}

func ptr[T any](v T) *T { return &v }
