// Package store defines the session storage interface and implementations.
package store

import (
	"context"

	"github.com/manualmate/orchestrator/internal/domain"
)

// Store persists ordered per-session message history plus turn trace events.
// The concrete backend is chosen at construction time: SQLiteStore when the
// database opens, MemoryStore otherwise. Orchestrator logic never branches
// on the implementation.
type Store interface {
	// GetMessages returns the full ordered history for a session. A session
	// that does not exist yet yields an empty slice, not an error.
	GetMessages(ctx context.Context, sessionID string) ([]domain.Message, error)

	// PutMessages replaces the stored history for a session with msgs,
	// creating the session if needed.
	PutMessages(ctx context.Context, sessionID string, msgs []domain.Message) error

	// RecordEvent appends a turn trace event.
	RecordEvent(ctx context.Context, event *domain.Event) error

	// GetEvents returns trace events for a turn in chronological order.
	GetEvents(ctx context.Context, turnID string) ([]domain.Event, error)

	// Lifecycle
	Close() error
}
