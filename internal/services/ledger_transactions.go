package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"finledger/internal/core"
	"finledger/internal/storage"
)

// Transactions

func (l *Ledger) ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	return l.store.ListTransactions(ctx, f)
}

func (l *Ledger) ListTransactionsByAccount(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	if _, err := l.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return l.store.ListTransactions(ctx, storage.TransactionFilter{AccountID: &accountID})
}

func (l *Ledger) ListTransactionsByCategory(ctx context.Context, categoryID int64) ([]core.Transaction, error) {
	if _, err := l.store.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return l.store.ListTransactions(ctx, storage.TransactionFilter{CategoryID: &categoryID})
}

func (l *Ledger) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return l.store.GetTransaction(ctx, id)
}

// CreateTransaction records t and recomputes its account's balance.
func (l *Ledger) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = 0
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	var (
		out      core.Transaction
		balances map[int64]decimal.Decimal
	)
	err := l.withAccount(ctx, t.AccountID, func(ctx context.Context, q storage.Queries) error {
		var err error
		if out, err = q.CreateTransaction(ctx, t); err != nil {
			return err
		}
		balances, err = recomputeAll(ctx, q, t.AccountID)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}
	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", out.ID,
		"account_id", out.AccountID,
		"type", out.Type,
		"amount", out.Amount.String())
	l.publishBalances(ctx, balances)
	return out, nil
}

// UpdateTransaction applies p and recomputes the old and the new account.
func (l *Ledger) UpdateTransaction(ctx context.Context, id int64, p core.TransactionPatch) (core.Transaction, error) {
	var (
		out      core.Transaction
		balances map[int64]decimal.Decimal
	)
	resolve := func(ctx context.Context, q storage.Queries) ([]int64, error) {
		cur, err := q.GetTransaction(ctx, id)
		if err != nil {
			return nil, err
		}
		return []int64{cur.AccountID, p.Apply(cur).AccountID}, nil
	}
	err := l.withAccounts(ctx, resolve, func(ctx context.Context, q storage.Queries) error {
		cur, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		next := p.Apply(cur)
		if err := next.Validate(); err != nil {
			return err
		}
		if out, err = q.UpdateTransaction(ctx, next); err != nil {
			return err
		}
		balances, err = recomputeAll(ctx, q, cur.AccountID, next.AccountID)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}
	l.publishBalances(ctx, balances)
	return out, nil
}

// DeleteTransaction removes the transaction and recomputes its account from scratch.
func (l *Ledger) DeleteTransaction(ctx context.Context, id int64) error {
	var balances map[int64]decimal.Decimal
	resolve := func(ctx context.Context, q storage.Queries) ([]int64, error) {
		cur, err := q.GetTransaction(ctx, id)
		if err != nil {
			return nil, err
		}
		return []int64{cur.AccountID}, nil
	}
	err := l.withAccounts(ctx, resolve, func(ctx context.Context, q storage.Queries) error {
		cur, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if err := q.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		balances, err = recomputeAll(ctx, q, cur.AccountID)
		return err
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted", "transaction_id", id)
	l.publishBalances(ctx, balances)
	return nil
}

// Holdings

func (l *Ledger) ListHoldings(ctx context.Context, accountID *int64) ([]core.Holding, error) {
	if accountID != nil {
		if _, err := l.store.GetAccount(ctx, *accountID); err != nil {
			return nil, err
		}
	}
	return l.store.ListHoldings(ctx, accountID)
}

func (l *Ledger) GetHolding(ctx context.Context, id int64) (core.Holding, error) {
	return l.store.GetHolding(ctx, id)
}

func normalizeHolding(h core.Holding) core.Holding {
	h.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))
	return h
}

func warnIfNotInvestment(ctx context.Context, q storage.Queries, h core.Holding) error {
	a, err := q.GetAccount(ctx, h.AccountID)
	if err != nil {
		return err
	}
	if a.Type != core.Investment {
		slog.WarnContext(ctx, "Holding recorded on a non-investment account; it does not count toward the balance",
			"account_id", a.ID,
			"account_type", a.Type,
			"symbol", h.Symbol)
	}
	return nil
}

// CreateHolding records h and recomputes its account's balance.
func (l *Ledger) CreateHolding(ctx context.Context, h core.Holding) (core.Holding, error) {
	h.ID = 0
	h = normalizeHolding(h)
	if err := h.Validate(); err != nil {
		return core.Holding{}, err
	}
	var (
		out      core.Holding
		balances map[int64]decimal.Decimal
	)
	err := l.withAccount(ctx, h.AccountID, func(ctx context.Context, q storage.Queries) error {
		if err := warnIfNotInvestment(ctx, q, h); err != nil {
			return err
		}
		var err error
		if out, err = q.CreateHolding(ctx, h); err != nil {
			return err
		}
		balances, err = recomputeAll(ctx, q, h.AccountID)
		return err
	})
	if err != nil {
		return core.Holding{}, err
	}
	slog.InfoContext(ctx, "Holding created", "holding_id", out.ID, "account_id", out.AccountID, "symbol", out.Symbol)
	l.publishBalances(ctx, balances)
	return out, nil
}

// UpdateHolding applies p and recomputes the old and the new account.
func (l *Ledger) UpdateHolding(ctx context.Context, id int64, p core.HoldingPatch) (core.Holding, error) {
	var (
		out      core.Holding
		balances map[int64]decimal.Decimal
	)
	resolve := func(ctx context.Context, q storage.Queries) ([]int64, error) {
		cur, err := q.GetHolding(ctx, id)
		if err != nil {
			return nil, err
		}
		return []int64{cur.AccountID, p.Apply(cur).AccountID}, nil
	}
	err := l.withAccounts(ctx, resolve, func(ctx context.Context, q storage.Queries) error {
		cur, err := q.GetHolding(ctx, id)
		if err != nil {
			return err
		}
		next := normalizeHolding(p.Apply(cur))
		if err := next.Validate(); err != nil {
			return err
		}
		if next.AccountID != cur.AccountID {
			if err := warnIfNotInvestment(ctx, q, next); err != nil {
				return err
			}
		}
		if out, err = q.UpdateHolding(ctx, next); err != nil {
			return err
		}
		balances, err = recomputeAll(ctx, q, cur.AccountID, next.AccountID)
		return err
	})
	if err != nil {
		return core.Holding{}, err
	}
	l.publishBalances(ctx, balances)
	return out, nil
}

// UpdateHoldingPrice sets the current market price of a holding.
func (l *Ledger) UpdateHoldingPrice(ctx context.Context, id int64, price decimal.Decimal) (core.Holding, error) {
	return l.UpdateHolding(ctx, id, core.HoldingPatch{CurrentPrice: &price})
}

func (l *Ledger) DeleteHolding(ctx context.Context, id int64) error {
	var balances map[int64]decimal.Decimal
	resolve := func(ctx context.Context, q storage.Queries) ([]int64, error) {
		cur, err := q.GetHolding(ctx, id)
		if err != nil {
			return nil, err
		}
		return []int64{cur.AccountID}, nil
	}
	err := l.withAccounts(ctx, resolve, func(ctx context.Context, q storage.Queries) error {
		cur, err := q.GetHolding(ctx, id)
		if err != nil {
			return err
		}
		if err := q.DeleteHolding(ctx, id); err != nil {
			return err
		}
		balances, err = recomputeAll(ctx, q, cur.AccountID)
		return err
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Holding deleted", "holding_id", id)
	l.publishBalances(ctx, balances)
	return nil
}
