package trading

import (
	"sync"

	"github.com/google/uuid"
)

// userLocks hands out one mutex per user so that order processing for a
// single user is serialized while different users proceed in parallel.
// Entries are never evicted; the map is bounded by the active user count.
type userLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// lock acquires the user's mutex and returns its release function
func (l *userLocks) lock(userID uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
