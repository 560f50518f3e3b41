package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finledger/internal/amqp"
	"finledger/internal/core"
	"finledger/internal/storage/memory"
)

// Wednesday; the weekly window starts on Sunday 2025-03-09.
var testNow = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewLedger(memory.New(), opts...)
}

func mustAccount(t *testing.T, l *Ledger, typ core.AccountType, initial string) core.Account {
	t.Helper()
	a, err := l.CreateAccount(context.Background(), core.Account{Name: "Account", Type: typ, InitialBalance: dec(initial), IsActive: true})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func mustTransaction(t *testing.T, l *Ledger, accountID int64, typ core.TransactionType, amount string, date core.Date) core.Transaction {
	t.Helper()
	tx, err := l.CreateTransaction(context.Background(), core.Transaction{
		Description: "tx", Amount: dec(amount), Type: typ, Date: date, AccountID: accountID,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tx
}

func mustGoal(t *testing.T, l *Ledger, accountID int64, target string) core.Goal {
	t.Helper()
	g, err := l.CreateGoal(context.Background(), core.Goal{Name: "Goal", TargetAmount: dec(target), AccountID: accountID})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	return g
}

func balanceOf(t *testing.T, l *Ledger, id int64) decimal.Decimal {
	t.Helper()
	a, err := l.GetAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return a.Balance
}

func assertDecimal(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s = %s, want %s", what, got, want)
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *ev)
	return p.err
}

func (p *recordingPublisher) snapshot() []amqp.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]amqp.LedgerEvent(nil), p.events...)
}
