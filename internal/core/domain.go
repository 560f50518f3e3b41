package core

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	Credit     AccountType = "credit"
	Investment AccountType = "investment"

	IncomeCategory  CategoryType = "income"
	ExpenseCategory CategoryType = "expense"

	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"

	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

const (
	DefaultAccountColor  = "#2563EB"
	DefaultCategoryColor = "#059669"
	dateLayout           = "2006-01-02"
	maxNameLength        = 200
)

// DefaultAlertThreshold is the fraction of a budget at which it is reported as near its limit.
var DefaultAlertThreshold = decimal.RequireFromString("0.80")

type (
	AccountType     string
	CategoryType    string
	TransactionType string
	Period          string

	// Date is a calendar day in UTC.
	Date struct {
		time.Time
	}

	Account struct {
		ID             int64           `json:"id"`
		Name           string          `json:"name"`
		Type           AccountType     `json:"type"`
		InitialBalance decimal.Decimal `json:"initialBalance"`
		Balance        decimal.Decimal `json:"balance"` // derived, written only by balance recomputation
		Color          string          `json:"color"`
		IsActive       bool            `json:"isActive"`
	}

	Category struct {
		ID       int64        `json:"id"`
		Name     string       `json:"name"`
		Type     CategoryType `json:"type"`
		Color    string       `json:"color"`
		ParentID *int64       `json:"parentId"`
	}

	Transaction struct {
		ID          int64           `json:"id"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Type        TransactionType `json:"type"`
		Date        Date            `json:"date"`
		AccountID   int64           `json:"accountId"`
		CategoryID  *int64          `json:"categoryId"`
		Notes       string          `json:"notes"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	// Holding is a position in a security held by an investment account.
	Holding struct {
		ID            int64           `json:"id"`
		Symbol        string          `json:"symbol"`
		Name          string          `json:"name"`
		Shares        decimal.Decimal `json:"shares"`
		PurchasePrice decimal.Decimal `json:"purchasePrice"`
		CurrentPrice  decimal.Decimal `json:"currentPrice"`
		AccountID     int64           `json:"accountId"`
		PurchaseDate  Date            `json:"purchaseDate"`
		Notes         string          `json:"notes"`
		CreatedAt     time.Time       `json:"createdAt"`
		UpdatedAt     time.Time       `json:"updatedAt"`
	}

	Goal struct {
		ID           int64           `json:"id"`
		Name         string          `json:"name"`
		TargetAmount decimal.Decimal `json:"targetAmount"`
		Deadline     *Date           `json:"deadline"`
		AccountID    int64           `json:"accountId"`
		Description  string          `json:"description"`
		IsCompleted  bool            `json:"isCompleted"`
	}

	// GoalAllocation earmarks money of the goal's funding account. It moves no funds.
	GoalAllocation struct {
		ID          int64           `json:"id"`
		GoalID      int64           `json:"goalId"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		Date        Date            `json:"date"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	Budget struct {
		ID             int64           `json:"id"`
		Name           string          `json:"name"`
		Description    string          `json:"description"`
		Amount         decimal.Decimal `json:"amount"`
		Period         Period          `json:"period"`
		AccountID      *int64          `json:"accountId"`
		CategoryID     *int64          `json:"categoryId"`
		IsActive       bool            `json:"isActive"`
		AlertThreshold decimal.Decimal `json:"alertThreshold"`
		CreatedAt      time.Time       `json:"createdAt"`
	}
)

func (t AccountType) IsValid() bool {
	switch t {
	case Checking, Savings, Credit, Investment:
		return true
	}
	return false
}

func (t CategoryType) IsValid() bool {
	return t == IncomeCategory || t == ExpenseCategory
}

func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	}
	return false
}

func (p Period) IsValid() bool {
	switch p {
	case Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Before reports whether d is an earlier calendar day than o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After reports whether d is a later calendar day than o.
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores dates as YYYY-MM-DD.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan accepts the representations returned by the SQLite and Postgres drivers.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = NewDate(v.Year(), int(v.Month()), v.Day())
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
	return nil
}

func (d *Date) scanString(s string) error {
	if len(s) >= len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (a Account) Validate() error {
	verr := &ValidationError{}
	checkName(verr, "name", a.Name)
	if !a.Type.IsValid() {
		verr.Add("type", "must be one of checking, savings, credit, investment")
	}
	return verr.OrNil()
}

func (c Category) Validate() error {
	verr := &ValidationError{}
	checkName(verr, "name", c.Name)
	if !c.Type.IsValid() {
		verr.Add("type", "must be income or expense")
	}
	if c.ParentID != nil && c.ID != 0 && *c.ParentID == c.ID {
		verr.Add("parentId", "category cannot be its own parent")
	}
	return verr.OrNil()
}

func (t Transaction) Validate() error {
	verr := &ValidationError{}
	checkName(verr, "description", t.Description)
	if t.Amount.IsNegative() {
		verr.Add("amount", "must not be negative")
	}
	if !t.Type.IsValid() {
		verr.Add("type", "must be one of income, expense, transfer")
	}
	if t.Date.IsZero() {
		verr.Add("date", "is required")
	}
	if t.AccountID <= 0 {
		verr.Add("accountId", "is required")
	}
	return verr.OrNil()
}

func (h Holding) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(h.Symbol) == "" {
		verr.Add("symbol", "is required")
	}
	checkName(verr, "name", h.Name)
	if !h.Shares.IsPositive() {
		verr.Add("shares", "must be greater than zero")
	}
	if h.PurchasePrice.IsNegative() {
		verr.Add("purchasePrice", "must not be negative")
	}
	if h.CurrentPrice.IsNegative() {
		verr.Add("currentPrice", "must not be negative")
	}
	if h.AccountID <= 0 {
		verr.Add("accountId", "is required")
	}
	if h.PurchaseDate.IsZero() {
		verr.Add("purchaseDate", "is required")
	}
	return verr.OrNil()
}

func (g Goal) Validate() error {
	verr := &ValidationError{}
	checkName(verr, "name", g.Name)
	if !g.TargetAmount.IsPositive() {
		verr.Add("targetAmount", "must be greater than zero")
	}
	if g.AccountID <= 0 {
		verr.Add("accountId", "is required")
	}
	return verr.OrNil()
}

func (a GoalAllocation) Validate() error {
	verr := &ValidationError{}
	if a.GoalID <= 0 {
		verr.Add("goalId", "is required")
	}
	if !a.Amount.IsPositive() {
		verr.Add("amount", "must be greater than zero")
	}
	if a.Date.IsZero() {
		verr.Add("date", "is required")
	}
	return verr.OrNil()
}

func (b Budget) Validate() error {
	verr := &ValidationError{}
	checkName(verr, "name", b.Name)
	if b.Amount.IsNegative() {
		verr.Add("amount", "must not be negative")
	}
	if !b.Period.IsValid() {
		verr.Add("period", "must be one of weekly, monthly, yearly")
	}
	if b.AlertThreshold.IsNegative() || b.AlertThreshold.GreaterThan(decimal.NewFromInt(1)) {
		verr.Add("alertThreshold", "must be between 0 and 1")
	}
	return verr.OrNil()
}

func checkName(verr *ValidationError, field, value string) {
	switch {
	case strings.TrimSpace(value) == "":
		verr.Add(field, "is required")
	case len(value) > maxNameLength:
		verr.Add(field, fmt.Sprintf("too long (max %d characters)", maxNameLength))
	}
}
