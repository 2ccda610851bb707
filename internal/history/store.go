// Package history persists per-conversation turn sequences, keyed by a
// stable conversation id (e.g. a Telegram chat id).
package history

import (
	"context"

	"tanya/internal/domain"
)

// Store is the persistence contract consumed by the transport adapters.
// Histories are read before and written after each exchange; the store
// itself makes no atomicity promise across concurrent exchanges for the
// same id; callers that need that use a Locker.
type Store interface {
	// Load returns the persisted history, or an empty slice when the
	// conversation is unknown.
	Load(ctx context.Context, conversationID string) ([]domain.Turn, error)

	// Save replaces the persisted history. Last write wins.
	Save(ctx context.Context, conversationID string, turns []domain.Turn) error

	// Clear removes the conversation's history. Clearing an unknown id
	// is not an error.
	Clear(ctx context.Context, conversationID string) error
}
