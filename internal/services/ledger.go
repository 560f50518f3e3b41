package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"finledger/internal/amqp"
	"finledger/internal/core"
	"finledger/internal/storage"
)

// EventPublisher receives ledger events after a mutation commits.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// Ledger is the persistence-operation contract used by the HTTP and CLI
// adapters. Mutations that touch an account's balance or allocation headroom
// hold that account's lock and run inside one store transaction.
type Ledger struct {
	store       storage.Store
	events      EventPublisher
	locks       *AccountLocks
	now         func() time.Time
	spending    *SpendingAggregator
	allocations *AllocationValidator
}

type Option func(*Ledger)

// WithClock overrides the clock used for budget windows.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithEvents publishes ledger events to p.
func WithEvents(p EventPublisher) Option {
	return func(l *Ledger) { l.events = p }
}

func NewLedger(store storage.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		locks: NewAccountLocks(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.spending = NewSpendingAggregator(store, l.now)
	l.allocations = NewAllocationValidator(store)
	return l
}

// Store exposes the underlying record store for read-only consumers.
func (l *Ledger) Store() storage.Store { return l.store }

var errStaleLock = errors.New("locked accounts changed")

// withAccounts locks the accounts reported by resolve and runs fn in a store
// transaction. resolve runs again inside the transaction and the attempt is
// repeated if the record moved to other accounts in between.
func (l *Ledger) withAccounts(
	ctx context.Context,
	resolve func(ctx context.Context, q storage.Queries) ([]int64, error),
	fn func(ctx context.Context, q storage.Queries) error,
) error {
	for {
		ids, err := resolve(ctx, l.store)
		if err != nil {
			return err
		}
		unlock := l.locks.Lock(ids...)
		err = l.store.Atomic(ctx, func(ctx context.Context, q storage.Queries) error {
			again, err := resolve(ctx, q)
			if err != nil {
				return err
			}
			if !sameAccounts(ids, again) {
				return errStaleLock
			}
			return fn(ctx, q)
		})
		unlock()
		if !errors.Is(err, errStaleLock) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (l *Ledger) withAccount(ctx context.Context, accountID int64, fn func(ctx context.Context, q storage.Queries) error) error {
	unlock := l.locks.Lock(accountID)
	defer unlock()
	return l.store.Atomic(ctx, fn)
}

func sameAccounts(a, b []int64) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(slices.Compact(a), slices.Compact(b))
}

// recomputeAll recomputes each distinct account in ids and returns the new balances.
func recomputeAll(ctx context.Context, q storage.Queries, ids ...int64) (map[int64]decimal.Decimal, error) {
	out := make(map[int64]decimal.Decimal, len(ids))
	for _, id := range ids {
		if _, done := out[id]; done {
			continue
		}
		balance, ok, err := RecomputeBalance(ctx, q, id)
		if err != nil {
			return nil, fmt.Errorf("recompute account %d: %w", id, err)
		}
		if ok {
			out[id] = balance
		}
	}
	return out, nil
}

func (l *Ledger) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if l.events == nil {
		return
	}
	if err := l.events.PublishLedgerEvent(ctx, ev); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger event",
			"type", ev.Type,
			"account_id", ev.AccountID,
			"error", err)
	}
}

func (l *Ledger) publishBalances(ctx context.Context, balances map[int64]decimal.Decimal) {
	ids := make([]int64, 0, len(balances))
	for id := range balances {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		l.publish(ctx, amqp.NewBalanceRecomputed(id, balances[id]))
	}
}

// Accounts

func (l *Ledger) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return l.store.ListAccounts(ctx)
}

func (l *Ledger) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return l.store.GetAccount(ctx, id)
}

// CreateAccount stores a new account whose balance starts at its initial balance.
func (l *Ledger) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.Color == "" {
		a.Color = core.DefaultAccountColor
	}
	a.ID = 0
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	a.Balance = ComputeBalance(a, nil, nil)

	created, err := l.store.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	slog.InfoContext(ctx, "Account created", "account_id", created.ID, "type", created.Type)
	return created, nil
}

// UpdateAccount applies p. The initial balance is immutable; a type change
// recomputes the balance since holdings only count for investment accounts.
func (l *Ledger) UpdateAccount(ctx context.Context, id int64, p core.AccountPatch) (core.Account, error) {
	var (
		out      core.Account
		balances map[int64]decimal.Decimal
	)
	err := l.withAccount(ctx, id, func(ctx context.Context, q storage.Queries) error {
		cur, err := q.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		next := p.Apply(cur)
		if err := next.Validate(); err != nil {
			return err
		}
		if _, err := q.UpdateAccount(ctx, next); err != nil {
			return err
		}
		if next.Type != cur.Type {
			if balances, err = recomputeAll(ctx, q, id); err != nil {
				return err
			}
		}
		out, err = q.GetAccount(ctx, id)
		return err
	})
	if err != nil {
		return core.Account{}, err
	}
	l.publishBalances(ctx, balances)
	return out, nil
}

func (l *Ledger) DeleteAccount(ctx context.Context, id int64) error {
	err := l.withAccount(ctx, id, func(ctx context.Context, q storage.Queries) error {
		return q.DeleteAccount(ctx, id)
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Account deleted", "account_id", id)
	return nil
}

// RecomputeAccount recomputes and persists the balance of id on demand.
func (l *Ledger) RecomputeAccount(ctx context.Context, id int64) (decimal.Decimal, error) {
	var (
		balance decimal.Decimal
		ok      bool
	)
	err := l.withAccount(ctx, id, func(ctx context.Context, q storage.Queries) error {
		var err error
		balance, ok, err = RecomputeBalance(ctx, q, id)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, core.NewNotFound("account", id)
	}
	l.publish(ctx, amqp.NewBalanceRecomputed(id, balance))
	return balance, nil
}

// Headroom reports how much more the account can fund across its goals.
func (l *Ledger) Headroom(ctx context.Context, accountID int64) (core.Headroom, error) {
	return l.allocations.Headroom(ctx, accountID)
}

// Categories

func (l *Ledger) ListCategories(ctx context.Context) ([]core.Category, error) {
	return l.store.ListCategories(ctx)
}

func (l *Ledger) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	return l.store.GetCategory(ctx, id)
}

func (l *Ledger) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.Color == "" {
		c.Color = core.DefaultCategoryColor
	}
	c.ID = 0
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	var out core.Category
	err := l.store.Atomic(ctx, func(ctx context.Context, q storage.Queries) error {
		if err := checkCategoryParent(ctx, q, c); err != nil {
			return err
		}
		var err error
		out, err = q.CreateCategory(ctx, c)
		return err
	})
	return out, err
}

func (l *Ledger) UpdateCategory(ctx context.Context, id int64, p core.CategoryPatch) (core.Category, error) {
	var out core.Category
	err := l.store.Atomic(ctx, func(ctx context.Context, q storage.Queries) error {
		cur, err := q.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		next := p.Apply(cur)
		if err := next.Validate(); err != nil {
			return err
		}
		if err := checkCategoryParent(ctx, q, next); err != nil {
			return err
		}
		out, err = q.UpdateCategory(ctx, next)
		return err
	})
	return out, err
}

func (l *Ledger) DeleteCategory(ctx context.Context, id int64) error {
	return l.store.DeleteCategory(ctx, id)
}

// checkCategoryParent keeps categories a two-level tree of a single type.
func checkCategoryParent(ctx context.Context, q storage.Queries, c core.Category) error {
	if c.ID != 0 {
		if err := checkCategoryChildren(ctx, q, c); err != nil {
			return err
		}
	}
	if c.ParentID == nil {
		return nil
	}
	parent, err := q.GetCategory(ctx, *c.ParentID)
	if err != nil {
		return err
	}

	// Walk up from the parent; reaching c means the new edge closes a loop.
	seen := map[int64]bool{}
	for p := parent; ; {
		if c.ID != 0 && p.ID == c.ID {
			return core.NewValidationError("parentId", "would create a cycle")
		}
		if p.ParentID == nil || seen[p.ID] {
			break
		}
		seen[p.ID] = true
		if p, err = q.GetCategory(ctx, *p.ParentID); err != nil {
			return err
		}
	}

	if parent.ParentID != nil {
		return core.NewValidationError("parentId", "parent is already a subcategory")
	}
	if parent.Type != c.Type {
		return core.NewValidationError("parentId", "parent must have the same type")
	}
	return nil
}

// checkCategoryChildren rejects edits to a stored category that its
// subcategories would no longer fit under.
func checkCategoryChildren(ctx context.Context, q storage.Queries, c core.Category) error {
	all, err := q.ListCategories(ctx)
	if err != nil {
		return err
	}
	for _, child := range all {
		if child.ParentID == nil || *child.ParentID != c.ID || child.ID == c.ID {
			continue
		}
		if c.ParentID != nil && *c.ParentID != c.ID {
			return core.NewValidationError("parentId", "category with subcategories cannot become a subcategory")
		}
		if child.Type != c.Type {
			return core.NewValidationError("type", "must match the type of its subcategories")
		}
	}
	return nil
}
