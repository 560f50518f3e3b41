package core

import "github.com/shopspring/decimal"

// Patches carry partial updates. A nil field leaves the stored value alone;
// the Clear* flags reset an optional reference to null.
type (
	AccountPatch struct {
		Name     *string
		Type     *AccountType
		Color    *string
		IsActive *bool
	}

	CategoryPatch struct {
		Name        *string
		Type        *CategoryType
		Color       *string
		ParentID    *int64
		ClearParent bool
	}

	TransactionPatch struct {
		Description   *string
		Amount        *decimal.Decimal
		Type          *TransactionType
		Date          *Date
		AccountID     *int64
		CategoryID    *int64
		ClearCategory bool
		Notes         *string
	}

	HoldingPatch struct {
		Symbol        *string
		Name          *string
		Shares        *decimal.Decimal
		PurchasePrice *decimal.Decimal
		CurrentPrice  *decimal.Decimal
		AccountID     *int64
		PurchaseDate  *Date
		Notes         *string
	}

	GoalPatch struct {
		Name          *string
		TargetAmount  *decimal.Decimal
		Deadline      *Date
		ClearDeadline bool
		AccountID     *int64
		Description   *string
		IsCompleted   *bool
	}

	AllocationPatch struct {
		GoalID      *int64
		Amount      *decimal.Decimal
		Description *string
		Date        *Date
	}

	BudgetPatch struct {
		Name           *string
		Description    *string
		Amount         *decimal.Decimal
		Period         *Period
		AccountID      *int64
		ClearAccount   bool
		CategoryID     *int64
		ClearCategory  bool
		IsActive       *bool
		AlertThreshold *decimal.Decimal
	}
)

func (p AccountPatch) Apply(a Account) Account {
	setIf(&a.Name, p.Name)
	setIf(&a.Type, p.Type)
	setIf(&a.Color, p.Color)
	setIf(&a.IsActive, p.IsActive)
	return a
}

func (p CategoryPatch) Apply(c Category) Category {
	setIf(&c.Name, p.Name)
	setIf(&c.Type, p.Type)
	setIf(&c.Color, p.Color)
	setRef(&c.ParentID, p.ParentID, p.ClearParent)
	return c
}

func (p TransactionPatch) Apply(t Transaction) Transaction {
	setIf(&t.Description, p.Description)
	setIf(&t.Amount, p.Amount)
	setIf(&t.Type, p.Type)
	setIf(&t.Date, p.Date)
	setIf(&t.AccountID, p.AccountID)
	setRef(&t.CategoryID, p.CategoryID, p.ClearCategory)
	setIf(&t.Notes, p.Notes)
	return t
}

func (p HoldingPatch) Apply(h Holding) Holding {
	setIf(&h.Symbol, p.Symbol)
	setIf(&h.Name, p.Name)
	setIf(&h.Shares, p.Shares)
	setIf(&h.PurchasePrice, p.PurchasePrice)
	setIf(&h.CurrentPrice, p.CurrentPrice)
	setIf(&h.AccountID, p.AccountID)
	setIf(&h.PurchaseDate, p.PurchaseDate)
	setIf(&h.Notes, p.Notes)
	return h
}

func (p GoalPatch) Apply(g Goal) Goal {
	setIf(&g.Name, p.Name)
	setIf(&g.TargetAmount, p.TargetAmount)
	switch {
	case p.ClearDeadline:
		g.Deadline = nil
	case p.Deadline != nil:
		d := *p.Deadline
		g.Deadline = &d
	}
	setIf(&g.AccountID, p.AccountID)
	setIf(&g.Description, p.Description)
	setIf(&g.IsCompleted, p.IsCompleted)
	return g
}

func (p AllocationPatch) Apply(a GoalAllocation) GoalAllocation {
	setIf(&a.GoalID, p.GoalID)
	setIf(&a.Amount, p.Amount)
	setIf(&a.Description, p.Description)
	setIf(&a.Date, p.Date)
	return a
}

func (p BudgetPatch) Apply(b Budget) Budget {
	setIf(&b.Name, p.Name)
	setIf(&b.Description, p.Description)
	setIf(&b.Amount, p.Amount)
	setIf(&b.Period, p.Period)
	setRef(&b.AccountID, p.AccountID, p.ClearAccount)
	setRef(&b.CategoryID, p.CategoryID, p.ClearCategory)
	setIf(&b.IsActive, p.IsActive)
	setIf(&b.AlertThreshold, p.AlertThreshold)
	return b
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setRef(dst **int64, src *int64, clear bool) {
	switch {
	case clear:
		*dst = nil
	case src != nil:
		v := *src
		*dst = &v
	}
}

// ID returns a pointer to id, for optional references.
func ID(id int64) *int64 { return &id }
