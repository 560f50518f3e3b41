package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"finledger/internal/core"
)

// BalanceChange records an account whose stored balance differed from the recomputed one.
type BalanceChange struct {
	AccountID int64           `json:"accountId"`
	Before    decimal.Decimal `json:"before"`
	After     decimal.Decimal `json:"after"`
}

// AuditReport is the outcome of one audit pass.
type AuditReport struct {
	Accounts      int             `json:"accounts"`
	Changed       []BalanceChange `json:"changed"`
	OverAllocated []core.Headroom `json:"overAllocated"`
}

// Auditor recomputes every balance and reports accounts whose goal
// allocations exceed their balance. It never removes allocations.
type Auditor struct {
	ledger      *Ledger
	concurrency int
}

func NewAuditor(ledger *Ledger, concurrency int) *Auditor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Auditor{ledger: ledger, concurrency: concurrency}
}

// Run audits all accounts with at most a.concurrency in flight.
func (a *Auditor) Run(ctx context.Context) (AuditReport, error) {
	accounts, err := a.ledger.store.ListAccounts(ctx)
	if err != nil {
		return AuditReport{}, fmt.Errorf("list accounts: %w", err)
	}

	slog.InfoContext(ctx, "Starting ledger audit", "accounts", len(accounts), "concurrency", a.concurrency)

	var (
		mu     sync.Mutex
		report = AuditReport{Accounts: len(accounts), Changed: []BalanceChange{}, OverAllocated: []core.Headroom{}}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for _, acc := range accounts {
		acc := acc
		g.Go(func() error {
			change, h, over, err := a.audit(gctx, acc)
			if err != nil {
				return fmt.Errorf("audit account %d: %w", acc.ID, err)
			}
			mu.Lock()
			defer mu.Unlock()
			if change != nil {
				report.Changed = append(report.Changed, *change)
			}
			if over {
				report.OverAllocated = append(report.OverAllocated, h)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return AuditReport{}, err
	}

	sort.Slice(report.Changed, func(i, j int) bool { return report.Changed[i].AccountID < report.Changed[j].AccountID })
	sort.Slice(report.OverAllocated, func(i, j int) bool {
		return report.OverAllocated[i].AccountID < report.OverAllocated[j].AccountID
	})

	slog.InfoContext(ctx, "Ledger audit complete",
		"accounts", report.Accounts,
		"balances_corrected", len(report.Changed),
		"over_allocated", len(report.OverAllocated))
	return report, nil
}

// AuditAccount audits a single account and reports whether it is over-allocated.
func (a *Auditor) AuditAccount(ctx context.Context, accountID int64) (core.Headroom, bool, error) {
	acc, err := a.ledger.store.GetAccount(ctx, accountID)
	if err != nil {
		return core.Headroom{}, false, err
	}
	_, h, over, err := a.audit(ctx, acc)
	return h, over, err
}

func (a *Auditor) audit(ctx context.Context, acc core.Account) (*BalanceChange, core.Headroom, bool, error) {
	after, err := a.ledger.RecomputeAccount(ctx, acc.ID)
	if err != nil {
		if core.IsNotFound(err) {
			// Deleted while the audit was running
			return nil, core.Headroom{}, false, nil
		}
		return nil, core.Headroom{}, false, err
	}
	var change *BalanceChange
	if !after.Equal(acc.Balance) {
		change = &BalanceChange{AccountID: acc.ID, Before: acc.Balance, After: after}
		slog.WarnContext(ctx, "Stored balance was stale",
			"account_id", acc.ID,
			"before", acc.Balance.StringFixed(core.MoneyPlaces),
			"after", after.StringFixed(core.MoneyPlaces))
	}

	h, err := a.ledger.Headroom(ctx, acc.ID)
	if err != nil {
		return nil, core.Headroom{}, false, err
	}
	over := h.Available.IsNegative()
	if over {
		slog.WarnContext(ctx, "Account is over-allocated",
			"account_id", acc.ID,
			"balance", h.Balance.StringFixed(core.MoneyPlaces),
			"allocated", h.Allocated.StringFixed(core.MoneyPlaces))
	}
	return change, h, over, nil
}
