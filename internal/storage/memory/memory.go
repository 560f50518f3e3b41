// Package memory is an in-process storage.Store used for development, demos and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"finledger/internal/core"
	"finledger/internal/storage"
)

type state struct {
	seq          map[string]int64
	accounts     map[int64]core.Account
	categories   map[int64]core.Category
	transactions map[int64]core.Transaction
	holdings     map[int64]core.Holding
	goals        map[int64]core.Goal
	allocations  map[int64]core.GoalAllocation
	budgets      map[int64]core.Budget
}

func newState() *state {
	return &state{
		seq:          map[string]int64{},
		accounts:     map[int64]core.Account{},
		categories:   map[int64]core.Category{},
		transactions: map[int64]core.Transaction{},
		holdings:     map[int64]core.Holding{},
		goals:        map[int64]core.Goal{},
		allocations:  map[int64]core.GoalAllocation{},
		budgets:      map[int64]core.Budget{},
	}
}

func (s *state) clone() *state {
	return &state{
		seq:          cloneMap(s.seq),
		accounts:     cloneMap(s.accounts),
		categories:   cloneMap(s.categories),
		transactions: cloneMap(s.transactions),
		holdings:     cloneMap(s.holdings),
		goals:        cloneMap(s.goals),
		allocations:  cloneMap(s.allocations),
		budgets:      cloneMap(s.budgets),
	}
}

func (s *state) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// Store keeps every table in maps guarded by a single mutex.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func New() *Store {
	return &Store{st: newState(), now: func() time.Time { return time.Now().UTC() }}
}

// Atomic runs fn under the store lock against a snapshot that is restored if fn fails.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, q storage.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(ctx, s.view()); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) view() *view { return &view{st: s.st, now: s.now} }

func locked[T any](s *Store, fn func(v *view) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.view())
}

func lockedErr(s *Store, fn func(v *view) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.view())
}

func (s *Store) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return locked(s, func(v *view) ([]core.Account, error) { return v.ListAccounts(ctx) })
}

func (s *Store) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return locked(s, func(v *view) (core.Account, error) { return v.GetAccount(ctx, id) })
}

func (s *Store) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	return locked(s, func(v *view) (core.Account, error) { return v.CreateAccount(ctx, a) })
}

func (s *Store) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	return locked(s, func(v *view) (core.Account, error) { return v.UpdateAccount(ctx, a) })
}

func (s *Store) SetAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	return lockedErr(s, func(v *view) error { return v.SetAccountBalance(ctx, id, balance) })
}

func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	return lockedErr(s, func(v *view) error { return v.DeleteAccount(ctx, id) })
}

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	return locked(s, func(v *view) ([]core.Category, error) { return v.ListCategories(ctx) })
}

func (s *Store) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	return locked(s, func(v *view) (core.Category, error) { return v.GetCategory(ctx, id) })
}

func (s *Store) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	return locked(s, func(v *view) (core.Category, error) { return v.CreateCategory(ctx, c) })
}

func (s *Store) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	return locked(s, func(v *view) (core.Category, error) { return v.UpdateCategory(ctx, c) })
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	return lockedErr(s, func(v *view) error { return v.DeleteCategory(ctx, id) })
}

func (s *Store) ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	return locked(s, func(v *view) ([]core.Transaction, error) { return v.ListTransactions(ctx, f) })
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return locked(s, func(v *view) (core.Transaction, error) { return v.GetTransaction(ctx, id) })
}

func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	return locked(s, func(v *view) (core.Transaction, error) { return v.CreateTransaction(ctx, t) })
}

func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	return locked(s, func(v *view) (core.Transaction, error) { return v.UpdateTransaction(ctx, t) })
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	return lockedErr(s, func(v *view) error { return v.DeleteTransaction(ctx, id) })
}

func (s *Store) ListHoldings(ctx context.Context, accountID *int64) ([]core.Holding, error) {
	return locked(s, func(v *view) ([]core.Holding, error) { return v.ListHoldings(ctx, accountID) })
}

func (s *Store) GetHolding(ctx context.Context, id int64) (core.Holding, error) {
	return locked(s, func(v *view) (core.Holding, error) { return v.GetHolding(ctx, id) })
}

func (s *Store) CreateHolding(ctx context.Context, h core.Holding) (core.Holding, error) {
	return locked(s, func(v *view) (core.Holding, error) { return v.CreateHolding(ctx, h) })
}

func (s *Store) UpdateHolding(ctx context.Context, h core.Holding) (core.Holding, error) {
	return locked(s, func(v *view) (core.Holding, error) { return v.UpdateHolding(ctx, h) })
}

func (s *Store) DeleteHolding(ctx context.Context, id int64) error {
	return lockedErr(s, func(v *view) error { return v.DeleteHolding(ctx, id) })
}

func (s *Store) ListGoals(ctx context.Context, accountID *int64) ([]core.Goal, error) {
	return locked(s, func(v *view) ([]core.Goal, error) { return v.ListGoals(ctx, accountID) })
}

func (s *Store) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	return locked(s, func(v *view) (core.Goal, error) { return v.GetGoal(ctx, id) })
}

func (s *Store) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	return locked(s, func(v *view) (core.Goal, error) { return v.CreateGoal(ctx, g) })
}

func (s *Store) UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	return locked(s, func(v *view) (core.Goal, error) { return v.UpdateGoal(ctx, g) })
}

func (s *Store) DeleteGoal(ctx context.Context, id int64) error {
	return lockedErr(s, func(v *view) error { return v.DeleteGoal(ctx, id) })
}

func (s *Store) ListAllocations(ctx context.Context, goalIDs []int64) ([]core.GoalAllocation, error) {
	return locked(s, func(v *view) ([]core.GoalAllocation, error) { return v.ListAllocations(ctx, goalIDs) })
}

func (s *Store) GetAllocation(ctx context.Context, id int64) (core.GoalAllocation, error) {
	return locked(s, func(v *view) (core.GoalAllocation, error) { return v.GetAllocation(ctx, id) })
}

func (s *Store) CreateAllocation(ctx context.Context, a core.GoalAllocation) (core.GoalAllocation, error) {
	return locked(s, func(v *view) (core.GoalAllocation, error) { return v.CreateAllocation(ctx, a) })
}

func (s *Store) UpdateAllocation(ctx context.Context, a core.GoalAllocation) (core.GoalAllocation, error) {
	return locked(s, func(v *view) (core.GoalAllocation, error) { return v.UpdateAllocation(ctx, a) })
}

func (s *Store) DeleteAllocation(ctx context.Context, id int64) error {
	return lockedErr(s, func(v *view) error { return v.DeleteAllocation(ctx, id) })
}

func (s *Store) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	return locked(s, func(v *view) ([]core.Budget, error) { return v.ListBudgets(ctx) })
}

func (s *Store) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	return locked(s, func(v *view) (core.Budget, error) { return v.GetBudget(ctx, id) })
}

func (s *Store) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	return locked(s, func(v *view) (core.Budget, error) { return v.CreateBudget(ctx, b) })
}

func (s *Store) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	return locked(s, func(v *view) (core.Budget, error) { return v.UpdateBudget(ctx, b) })
}

func (s *Store) DeleteBudget(ctx context.Context, id int64) error {
	return lockedErr(s, func(v *view) error { return v.DeleteBudget(ctx, id) })
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedValues[V any](in map[int64]V, keep func(V) bool) []V {
	ids := make([]int64, 0, len(in))
	for id, v := range in {
		if keep == nil || keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]V, len(ids))
	for i, id := range ids {
		out[i] = in[id]
	}
	return out
}
