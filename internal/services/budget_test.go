package services

import (
	"context"
	"errors"
	"testing"

	"finledger/internal/core"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		spent     string
		limit     string
		threshold string
		wantRatio string
		wantState core.BudgetState
	}{
		{"well under", "10", "100", "0.80", "0.1", core.OnTrack},
		{"just under threshold", "79.99", "100", "0.80", "0.7999", core.OnTrack},
		{"at threshold", "80", "100", "0.80", "0.8", core.NearLimit},
		{"at limit", "100", "100", "0.80", "1", core.OverBudget},
		{"over limit", "150", "100", "0.80", "1.5", core.OverBudget},
		{"zero threshold is always near", "0", "100", "0", "0", core.NearLimit},
		{"zero limit without spending", "0", "0", "0.80", "0", core.OnTrack},
		{"zero limit with spending", "0.01", "0", "0.80", "1", core.OverBudget},
		{"ratio rounds to four places", "1", "3", "0.80", "0.3333", core.OnTrack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratio, state := Classify(dec(tt.spent), dec(tt.limit), dec(tt.threshold))
			if state != tt.wantState {
				t.Errorf("state = %s, want %s", state, tt.wantState)
			}
			assertDecimal(t, "ratio", ratio, tt.wantRatio)
		})
	}
}

func TestMonthlyBudgetWindow(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	a := mustAccount(t, l, core.Checking, "1000")

	// Last day of the previous month, first day of this one, today and tomorrow.
	mustTransaction(t, l, a.ID, core.Expense, "11", core.NewDate(2025, 2, 28))
	mustTransaction(t, l, a.ID, core.Expense, "20", core.NewDate(2025, 3, 1))
	mustTransaction(t, l, a.ID, core.Expense, "5.50", core.NewDate(2025, 3, 12))
	mustTransaction(t, l, a.ID, core.Expense, "7", core.NewDate(2025, 3, 13))
	mustTransaction(t, l, a.ID, core.Income, "300", core.NewDate(2025, 3, 5))

	b, err := l.CreateBudget(ctx, core.Budget{
		Name: "Everything", Amount: dec("100"), Period: core.Monthly, AccountID: core.ID(a.ID),
		IsActive: true, AlertThreshold: core.DefaultAlertThreshold,
	})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}

	spent, err := l.BudgetSpending(ctx, b.ID)
	if err != nil {
		t.Fatalf("spending: %v", err)
	}
	assertDecimal(t, "spent", spent, "25.50")

	st, err := l.BudgetStatus(ctx, b.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Start != core.NewDate(2025, 3, 1) || st.End != core.NewDate(2025, 3, 12) {
		t.Errorf("window = %s..%s", st.Start, st.End)
	}
	assertDecimal(t, "remaining", st.Remaining, "74.50")
	if st.State != core.OnTrack {
		t.Errorf("state = %s, want on_track", st.State)
	}
}

func TestWeeklyCategoryBudgetNearLimit(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	a := mustAccount(t, l, core.Checking, "1000")
	groceries, err := l.CreateCategory(ctx, core.Category{Name: "Groceries", Type: core.ExpenseCategory})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	other, err := l.CreateCategory(ctx, core.Category{Name: "Other", Type: core.ExpenseCategory})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	expense := func(amount string, category int64, date core.Date) {
		t.Helper()
		_, err := l.CreateTransaction(ctx, core.Transaction{
			Description: "shop", Amount: dec(amount), Type: core.Expense, Date: date,
			AccountID: a.ID, CategoryID: core.ID(category),
		})
		if err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}
	expense("50", groceries.ID, core.NewDate(2025, 3, 9)) // Sunday
	expense("30", groceries.ID, core.NewDate(2025, 3, 11))
	expense("40", groceries.ID, core.NewDate(2025, 3, 8)) // previous week
	expense("99", other.ID, core.NewDate(2025, 3, 10))

	b, err := l.CreateBudget(ctx, core.Budget{
		Name: "Weekly groceries", Amount: dec("100"), Period: core.Weekly, CategoryID: core.ID(groceries.ID),
		IsActive: true, AlertThreshold: dec("0.75"),
	})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}

	st, err := l.BudgetStatus(ctx, b.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	assertDecimal(t, "spent", st.Spent, "80")
	if st.State != core.NearLimit {
		t.Fatalf("state = %s, want near_limit", st.State)
	}
	assertDecimal(t, "ratio", st.Ratio, "0.8")
}

func TestUnknownBudget(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	spent, err := l.BudgetSpending(ctx, 404)
	if err != nil {
		t.Fatalf("spending of an unknown budget should not fail: %v", err)
	}
	if !spent.IsZero() {
		t.Fatalf("spent = %s, want 0", spent)
	}
	if _, err := l.BudgetStatus(ctx, 404); !core.IsNotFound(err) {
		t.Fatalf("status of an unknown budget should be not found, got %v", err)
	}
}

func TestBudgetValidation(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreateBudget(ctx, core.Budget{Name: "x", Amount: dec("10"), Period: "daily", AlertThreshold: dec("1.5")})
	var verr *core.ValidationError
	if err == nil || !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"period", "alertThreshold"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("missing field error for %s", field)
		}
	}

	_, err = l.CreateBudget(ctx, core.Budget{Name: "x", Amount: dec("10"), Period: core.Monthly, CategoryID: core.ID(77), AlertThreshold: dec("0.5")})
	if !core.IsNotFound(err) {
		t.Fatalf("expected not found for a missing category, got %v", err)
	}
}
