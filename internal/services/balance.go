package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"finledger/internal/core"
	"finledger/internal/storage"
)

// ComputeBalance derives the balance of a from its opening balance, its
// transactions and, for investment accounts, the market value of holdings.
// Transfers only debit a.
func ComputeBalance(a core.Account, txs []core.Transaction, holdings []core.Holding) decimal.Decimal {
	balance := a.InitialBalance
	for _, t := range txs {
		if t.AccountID != a.ID {
			continue
		}
		switch t.Type {
		case core.Income:
			balance = balance.Add(t.Amount)
		case core.Expense, core.Transfer:
			balance = balance.Sub(t.Amount)
		}
	}
	if a.Type == core.Investment {
		balance = balance.Add(MarketValue(a.ID, holdings))
	}
	return core.RoundMoney(balance)
}

// MarketValue is the sum of shares × current price over the holdings of accountID.
func MarketValue(accountID int64, holdings []core.Holding) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		if h.AccountID == accountID {
			total = total.Add(h.Shares.Mul(h.CurrentPrice))
		}
	}
	return total
}

// RecomputeBalance recomputes and persists the balance of accountID using q.
// A missing account is logged and reported with ok=false and no error.
func RecomputeBalance(ctx context.Context, q storage.Queries, accountID int64) (balance decimal.Decimal, ok bool, err error) {
	a, err := q.GetAccount(ctx, accountID)
	if err != nil {
		if core.IsNotFound(err) {
			slog.WarnContext(ctx, "Skipping balance recomputation for missing account", "account_id", accountID)
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("load account: %w", err)
	}

	txs, err := q.ListTransactions(ctx, storage.TransactionFilter{AccountID: &accountID})
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("list transactions: %w", err)
	}

	var holdings []core.Holding
	if a.Type == core.Investment {
		holdings, err = q.ListHoldings(ctx, &accountID)
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("list holdings: %w", err)
		}
	}

	balance = ComputeBalance(a, txs, holdings)
	if err := q.SetAccountBalance(ctx, accountID, balance); err != nil {
		return decimal.Zero, false, fmt.Errorf("persist balance: %w", err)
	}

	slog.DebugContext(ctx, "Balance recomputed",
		"account_id", accountID,
		"balance", balance.StringFixed(core.MoneyPlaces),
		"transactions", len(txs),
		"holdings", len(holdings))
	return balance, true, nil
}
