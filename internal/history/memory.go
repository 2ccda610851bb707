package history

import (
	"context"
	"slices"
	"sync"

	"tanya/internal/domain"
)

// MemoryStore is the in-process Store used when no database is
// configured. Histories do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]domain.Turn
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]domain.Turn),
	}
}

// Load implements Store. The returned slice is a copy; callers may append
// to it freely.
func (s *MemoryStore) Load(_ context.Context, conversationID string) ([]domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sessions[conversationID]), nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, conversationID string, turns []domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[conversationID] = slices.Clone(turns)
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, conversationID)
	return nil
}
