package services

import (
	"slices"
	"sync"
)

// AccountLocks serialises mutations per account. Entries are reference
// counted and dropped once no caller holds or waits for them.
type AccountLocks struct {
	mu    sync.Mutex
	locks map[int64]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func NewAccountLocks() *AccountLocks {
	return &AccountLocks{locks: make(map[int64]*accountLock)}
}

// Lock acquires the locks of ids in ascending order and returns the function
// that releases them. Duplicate and non-positive ids are ignored.
func (l *AccountLocks) Lock(ids ...int64) (unlock func()) {
	keys := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			keys = append(keys, id)
		}
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]*accountLock, len(keys))
	for i, id := range keys {
		held[i] = l.acquire(id)
		held[i].mu.Lock()
	}

	return func() {
		for i := len(keys) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.release(keys[i])
		}
	}
}

func (l *AccountLocks) acquire(id int64) *accountLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	al, ok := l.locks[id]
	if !ok {
		al = &accountLock{}
		l.locks[id] = al
	}
	al.refs++
	return al
}

func (l *AccountLocks) release(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	al := l.locks[id]
	al.refs--
	if al.refs == 0 {
		delete(l.locks, id)
	}
}

// size reports the number of live entries.
func (l *AccountLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
