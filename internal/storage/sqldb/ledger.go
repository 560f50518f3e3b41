package sqldb

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"

	"finledger/internal/core"
	"finledger/internal/storage"
)

const accountColumns = "id, name, type, initial_balance, balance, color, is_active"

func scanAccount(r rowScanner) (core.Account, error) {
	var a core.Account
	err := r.Scan(&a.ID, &a.Name, &a.Type, &a.InitialBalance, &a.Balance, &a.Color, &a.IsActive)
	return a, err
}

func (q *queries) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := q.ex.QueryContext(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY id")
	if err != nil {
		return nil, core.WrapStorage("list accounts", err)
	}
	return collect(rows, "list accounts", scanAccount)
}

func (q *queries) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row := q.ex.QueryRowContext(ctx, q.rebind("SELECT "+accountColumns+" FROM accounts WHERE id = ?"), id)
	a, err := scanAccount(row)
	if err != nil {
		return core.Account{}, notFoundOr(err, "account", id, "get account")
	}
	return a, nil
}

func (q *queries) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	id, err := q.insert(ctx, "insert account",
		"INSERT INTO accounts (name, type, initial_balance, balance, color, is_active) VALUES (?, ?, ?, ?, ?, ?)",
		a.Name, string(a.Type), a.InitialBalance.String(), a.Balance.String(), a.Color, a.IsActive)
	if err != nil {
		return core.Account{}, err
	}
	a.ID = id
	return a, nil
}

func (q *queries) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	n, err := q.exec(ctx, "update account",
		"UPDATE accounts SET name = ?, type = ?, initial_balance = ?, color = ?, is_active = ? WHERE id = ?",
		a.Name, string(a.Type), a.InitialBalance.String(), a.Color, a.IsActive, a.ID)
	if err != nil {
		return core.Account{}, err
	}
	if n == 0 {
		return core.Account{}, core.NewNotFound("account", a.ID)
	}
	return q.GetAccount(ctx, a.ID)
}

func (q *queries) SetAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	n, err := q.exec(ctx, "set account balance", "UPDATE accounts SET balance = ? WHERE id = ?", balance.String(), id)
	if err != nil {
		return err
	}
	if n == 0 {
		return core.NewNotFound("account", id)
	}
	return nil
}

func (q *queries) DeleteAccount(ctx context.Context, id int64) error {
	if err := q.mustExist(ctx, "accounts", "account", id); err != nil {
		return err
	}
	checks := []struct{ msg, query string }{
		{"account still has transactions", "SELECT 1 FROM transactions WHERE account_id = ?"},
		{"account still has holdings", "SELECT 1 FROM holdings WHERE account_id = ?"},
		{"account still funds goals", "SELECT 1 FROM goals WHERE account_id = ?"},
		{"account is the scope of a budget", "SELECT 1 FROM budgets WHERE account_id = ?"},
	}
	for _, c := range checks {
		if err := q.refuseIfReferenced(ctx, c.msg, c.query, id); err != nil {
			return err
		}
	}
	return q.deleteByID(ctx, "accounts", "account", id)
}

const categoryColumns = "id, name, type, color, parent_id"

func scanCategory(r rowScanner) (core.Category, error) {
	var (
		c      core.Category
		parent sql.NullInt64
	)
	if err := r.Scan(&c.ID, &c.Name, &c.Type, &c.Color, &parent); err != nil {
		return core.Category{}, err
	}
	c.ParentID = idPtr(parent)
	return c, nil
}

func (q *queries) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := q.ex.QueryContext(ctx, "SELECT "+categoryColumns+" FROM categories ORDER BY id")
	if err != nil {
		return nil, core.WrapStorage("list categories", err)
	}
	return collect(rows, "list categories", scanCategory)
}

func (q *queries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	row := q.ex.QueryRowContext(ctx, q.rebind("SELECT "+categoryColumns+" FROM categories WHERE id = ?"), id)
	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, notFoundOr(err, "category", id, "get category")
	}
	return c, nil
}

func (q *queries) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := q.mustExistRef(ctx, "categories", "category", c.ParentID); err != nil {
		return core.Category{}, err
	}
	id, err := q.insert(ctx, "insert category",
		"INSERT INTO categories (name, type, color, parent_id) VALUES (?, ?, ?, ?)",
		c.Name, string(c.Type), c.Color, nullID(c.ParentID))
	if err != nil {
		return core.Category{}, err
	}
	c.ID = id
	return c, nil
}

func (q *queries) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := q.mustExistRef(ctx, "categories", "category", c.ParentID); err != nil {
		return core.Category{}, err
	}
	n, err := q.exec(ctx, "update category",
		"UPDATE categories SET name = ?, type = ?, color = ?, parent_id = ? WHERE id = ?",
		c.Name, string(c.Type), c.Color, nullID(c.ParentID), c.ID)
	if err != nil {
		return core.Category{}, err
	}
	if n == 0 {
		return core.Category{}, core.NewNotFound("category", c.ID)
	}
	return c, nil
}

func (q *queries) DeleteCategory(ctx context.Context, id int64) error {
	if err := q.mustExist(ctx, "categories", "category", id); err != nil {
		return err
	}
	checks := []struct{ msg, query string }{
		{"category still has subcategories", "SELECT 1 FROM categories WHERE parent_id = ?"},
		{"category still has transactions", "SELECT 1 FROM transactions WHERE category_id = ?"},
		{"category is the scope of a budget", "SELECT 1 FROM budgets WHERE category_id = ?"},
	}
	for _, c := range checks {
		if err := q.refuseIfReferenced(ctx, c.msg, c.query, id); err != nil {
			return err
		}
	}
	return q.deleteByID(ctx, "categories", "category", id)
}

const transactionColumns = "id, description, amount, type, date, account_id, category_id, notes, created_at"

func scanTransaction(r rowScanner) (core.Transaction, error) {
	var (
		t        core.Transaction
		category sql.NullInt64
	)
	err := r.Scan(&t.ID, &t.Description, &t.Amount, &t.Type, &t.Date, &t.AccountID, &category, &t.Notes,
		timestamp{&t.CreatedAt})
	if err != nil {
		return core.Transaction{}, err
	}
	t.CategoryID = idPtr(category)
	return t, nil
}

func (q *queries) ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.AccountID != nil {
		where = append(where, "account_id = ?")
		args = append(args, *f.AccountID)
	}
	if f.CategoryID != nil {
		where = append(where, "category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, f.To.String())
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := q.ex.QueryContext(ctx, q.rebind(query), args...)
	if err != nil {
		return nil, core.WrapStorage("list transactions", err)
	}
	return collect(rows, "list transactions", scanTransaction)
}

func (q *queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := q.ex.QueryRowContext(ctx, q.rebind("SELECT "+transactionColumns+" FROM transactions WHERE id = ?"), id)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, notFoundOr(err, "transaction", id, "get transaction")
	}
	return t, nil
}

func (q *queries) checkTransactionRefs(ctx context.Context, t core.Transaction) error {
	if err := q.mustExist(ctx, "accounts", "account", t.AccountID); err != nil {
		return err
	}
	return q.mustExistRef(ctx, "categories", "category", t.CategoryID)
}

func (q *queries) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := q.checkTransactionRefs(ctx, t); err != nil {
		return core.Transaction{}, err
	}
	t.CreatedAt = q.now()
	id, err := q.insert(ctx, "insert transaction",
		"INSERT INTO transactions (description, amount, type, date, account_id, category_id, notes, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		t.Description, t.Amount.String(), string(t.Type), t.Date.String(), t.AccountID, nullID(t.CategoryID), t.Notes, stamp(t.CreatedAt))
	if err != nil {
		return core.Transaction{}, err
	}
	t.ID = id
	return t, nil
}

func (q *queries) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := q.checkTransactionRefs(ctx, t); err != nil {
		return core.Transaction{}, err
	}
	n, err := q.exec(ctx, "update transaction",
		"UPDATE transactions SET description = ?, amount = ?, type = ?, date = ?, account_id = ?, category_id = ?, notes = ? WHERE id = ?",
		t.Description, t.Amount.String(), string(t.Type), t.Date.String(), t.AccountID, nullID(t.CategoryID), t.Notes, t.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	if n == 0 {
		return core.Transaction{}, core.NewNotFound("transaction", t.ID)
	}
	return q.GetTransaction(ctx, t.ID)
}

func (q *queries) DeleteTransaction(ctx context.Context, id int64) error {
	return q.deleteByID(ctx, "transactions", "transaction", id)
}
