package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"finledger/internal/core"
)

// SeedDemoData fills an empty ledger with sample accounts, categories,
// transactions, holdings, goals and budgets. It does nothing when any
// account already exists.
func SeedDemoData(ctx context.Context, l *Ledger) error {
	existing, err := l.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	if len(existing) > 0 {
		slog.InfoContext(ctx, "Ledger not empty, skipping demo data", "accounts", len(existing))
		return nil
	}

	d := decimal.RequireFromString
	accounts := map[string]int64{}
	for _, a := range []core.Account{
		{Name: "Checking Account", Type: core.Checking, InitialBalance: d("4250.32"), Color: "#2563EB", IsActive: true},
		{Name: "Savings Account", Type: core.Savings, InitialBalance: d("8597.00"), Color: "#059669", IsActive: true},
		{Name: "Credit Card", Type: core.Credit, InitialBalance: d("-347.89"), Color: "#DC2626", IsActive: true},
		{Name: "Fidelity 401k", Type: core.Investment, InitialBalance: decimal.Zero, Color: "#7C3AED", IsActive: true},
		{Name: "Robinhood", Type: core.Investment, InitialBalance: decimal.Zero, Color: "#F59E0B", IsActive: true},
	} {
		created, err := l.CreateAccount(ctx, a)
		if err != nil {
			return fmt.Errorf("seed account %q: %w", a.Name, err)
		}
		accounts[a.Name] = created.ID
	}

	categories := map[string]int64{}
	addCategory := func(name string, typ core.CategoryType, color, parent string) error {
		c := core.Category{Name: name, Type: typ, Color: color}
		if parent != "" {
			c.ParentID = core.ID(categories[parent])
		}
		created, err := l.CreateCategory(ctx, c)
		if err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
		categories[name] = created.ID
		return nil
	}
	for _, c := range []struct {
		name, color, parent string
		typ                 core.CategoryType
	}{
		{"Food & Dining", "#DC2626", "", core.ExpenseCategory},
		{"Transportation", "#D97706", "", core.ExpenseCategory},
		{"Utilities", "#2563EB", "", core.ExpenseCategory},
		{"Entertainment", "#7C3AED", "", core.ExpenseCategory},
		{"Salary", "#059669", "", core.IncomeCategory},
		{"Freelance", "#10B981", "", core.IncomeCategory},
		{"Groceries", "#DC2626", "Food & Dining", core.ExpenseCategory},
		{"Restaurants", "#EF4444", "Food & Dining", core.ExpenseCategory},
		{"Coffee & Snacks", "#F87171", "Food & Dining", core.ExpenseCategory},
		{"Gas", "#B45309", "Transportation", core.ExpenseCategory},
		{"Public Transit", "#D97706", "Transportation", core.ExpenseCategory},
		{"Car Maintenance", "#F59E0B", "Transportation", core.ExpenseCategory},
		{"Electricity", "#1D4ED8", "Utilities", core.ExpenseCategory},
		{"Water", "#2563EB", "Utilities", core.ExpenseCategory},
		{"Internet", "#3B82F6", "Utilities", core.ExpenseCategory},
		{"Movies & Shows", "#6D28D9", "Entertainment", core.ExpenseCategory},
		{"Games", "#7C3AED", "Entertainment", core.ExpenseCategory},
		{"Sports", "#8B5CF6", "Entertainment", core.ExpenseCategory},
	} {
		if err := addCategory(c.name, c.typ, c.color, c.parent); err != nil {
			return err
		}
	}

	today := core.DateOf(l.now())
	day := func(n int) core.Date { return core.NewDate(today.Year(), int(today.Month()), n) }
	checking := accounts["Checking Account"]
	for _, t := range []core.Transaction{
		{Description: "Salary Deposit", Amount: d("3200.00"), Type: core.Income, Date: day(1), CategoryID: core.ID(categories["Salary"]), Notes: "Monthly salary"},
		{Description: "Grocery Store - Weekly Shopping", Amount: d("124.50"), Type: core.Expense, Date: day(3), CategoryID: core.ID(categories["Groceries"]), Notes: "Weekly groceries"},
		{Description: "Italian Restaurant", Amount: d("75.40"), Type: core.Expense, Date: day(5), CategoryID: core.ID(categories["Restaurants"]), Notes: "Dinner out"},
		{Description: "Gas Station", Amount: d("52.00"), Type: core.Expense, Date: day(7), CategoryID: core.ID(categories["Gas"]), Notes: "Fill up tank"},
		{Description: "Farmer's Market", Amount: d("45.20"), Type: core.Expense, Date: day(8), CategoryID: core.ID(categories["Groceries"]), Notes: "Fresh produce"},
		{Description: "Coffee Shop", Amount: d("12.80"), Type: core.Expense, Date: day(10), CategoryID: core.ID(categories["Coffee & Snacks"]), Notes: "Morning coffee"},
		{Description: "Metro Card", Amount: d("35.00"), Type: core.Expense, Date: day(12), CategoryID: core.ID(categories["Public Transit"]), Notes: "Monthly transit pass"},
		{Description: "Grocery Store - Mid-week shopping", Amount: d("87.30"), Type: core.Expense, Date: day(15), CategoryID: core.ID(categories["Groceries"]), Notes: "Additional groceries"},
	} {
		t.AccountID = checking
		if _, err := l.CreateTransaction(ctx, t); err != nil {
			return fmt.Errorf("seed transaction %q: %w", t.Description, err)
		}
	}

	fidelity, robinhood := accounts["Fidelity 401k"], accounts["Robinhood"]
	for _, h := range []core.Holding{
		{Symbol: "AAPL", Name: "Apple Inc.", Shares: d("10.5"), PurchasePrice: d("150.25"), CurrentPrice: d("175.80"), AccountID: fidelity, PurchaseDate: core.NewDate(2024, 1, 15), Notes: "Tech portfolio allocation"},
		{Symbol: "MSFT", Name: "Microsoft Corporation", Shares: d("8.25"), PurchasePrice: d("380.00"), CurrentPrice: d("420.50"), AccountID: fidelity, PurchaseDate: core.NewDate(2024, 2, 20), Notes: "Blue chip holding"},
		{Symbol: "VOO", Name: "Vanguard S&P 500 ETF", Shares: d("15"), PurchasePrice: d("400.00"), CurrentPrice: d("435.25"), AccountID: fidelity, PurchaseDate: core.NewDate(2024, 3, 10), Notes: "Index fund exposure"},
		{Symbol: "TSLA", Name: "Tesla Inc.", Shares: d("3.25"), PurchasePrice: d("240.00"), CurrentPrice: d("185.50"), AccountID: robinhood, PurchaseDate: core.NewDate(2024, 4, 5), Notes: "Growth stock bet"},
		{Symbol: "NVDA", Name: "NVIDIA Corporation", Shares: d("2.75"), PurchasePrice: d("450.00"), CurrentPrice: d("875.00"), AccountID: robinhood, PurchaseDate: core.NewDate(2024, 5, 12), Notes: "AI/GPU play"},
		{Symbol: "AMD", Name: "Advanced Micro Devices", Shares: d("12"), PurchasePrice: d("95.00"), CurrentPrice: d("140.75"), AccountID: robinhood, PurchaseDate: core.NewDate(2024, 6, 8), Notes: "Semiconductor exposure"},
	} {
		if _, err := l.CreateHolding(ctx, h); err != nil {
			return fmt.Errorf("seed holding %s: %w", h.Symbol, err)
		}
	}

	savings := accounts["Savings Account"]
	for _, g := range []struct {
		goal      core.Goal
		allocated decimal.Decimal
	}{
		{core.Goal{Name: "Emergency Fund", TargetAmount: d("10000.00"), Description: "Build emergency fund"}, d("5200.00")},
		{core.Goal{Name: "Vacation Fund", TargetAmount: d("3500.00"), Description: "Save for summer vacation"}, d("1850.00")},
	} {
		g.goal.AccountID = savings
		created, err := l.CreateGoal(ctx, g.goal)
		if err != nil {
			return fmt.Errorf("seed goal %q: %w", g.goal.Name, err)
		}
		if _, err := l.CreateAllocation(ctx, core.GoalAllocation{GoalID: created.ID, Amount: g.allocated, Description: "Opening allocation", Date: today}); err != nil {
			return fmt.Errorf("seed allocation for %q: %w", g.goal.Name, err)
		}
	}

	for _, b := range []core.Budget{
		{Name: "Monthly Groceries", Description: "Monthly grocery budget", Amount: d("600.00"), CategoryID: core.ID(categories["Groceries"]), AlertThreshold: d("0.80")},
		{Name: "Dining Out", Description: "Monthly restaurant budget", Amount: d("200.00"), CategoryID: core.ID(categories["Restaurants"]), AlertThreshold: d("0.85")},
		{Name: "Transportation", Description: "Monthly transport costs", Amount: d("300.00"), CategoryID: core.ID(categories["Gas"]), AlertThreshold: d("0.75")},
	} {
		b.Period = core.Monthly
		b.AccountID = core.ID(checking)
		b.IsActive = true
		if _, err := l.CreateBudget(ctx, b); err != nil {
			return fmt.Errorf("seed budget %q: %w", b.Name, err)
		}
	}

	slog.InfoContext(ctx, "Demo data seeded", "accounts", len(accounts), "categories", len(categories))
	return nil
}
