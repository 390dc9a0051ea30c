package membership

import "sync"

// roomLocks serializes membership mutations per room id. Together with the
// store's atomic set operations this closes the lost-update window between
// the membership check and the write.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for roomID and returns the unlock function.
func (l *roomLocks) acquire(roomID string) func() {
	l.mu.Lock()
	m, ok := l.locks[roomID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[roomID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// drop evicts the lock entry for a room that no longer exists. A holder of
// the old mutex keeps it; new acquires get a fresh one.
func (l *roomLocks) drop(roomID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, roomID)
}
