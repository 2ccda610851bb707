package history

import "sync"

// Locker provides per-conversation-id mutual exclusion. Holding the lock
// across load, converse and save serializes exchanges for one conversation
// and closes the last-write-wins race between concurrent messages from
// the same chat. Locks are never evicted; one mutex per conversation id
// is cheap at this relay's scale.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocker creates an empty lock table.
func NewLocker() *Locker {
	return &Locker{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the mutex for the given conversation id and returns the
// matching unlock function.
func (l *Locker) Lock(conversationID string) (unlock func()) {
	l.mu.Lock()
	m, ok := l.locks[conversationID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[conversationID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
