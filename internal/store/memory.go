package store

import (
	"context"
	"sync"

	"github.com/manualmate/orchestrator/internal/domain"
)

// MemoryStore is the in-memory stand-in used when the durable backend is
// unavailable. History survives for the process lifetime only.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]domain.Message
	events   map[string][]domain.Event // keyed by turn id
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]domain.Message),
		events:   make(map[string][]domain.Event),
	}
}

// GetMessages returns the ordered history for a session.
func (s *MemoryStore) GetMessages(_ context.Context, sessionID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.sessions[sessionID]
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// PutMessages replaces the stored history for a session.
func (s *MemoryStore) PutMessages(_ context.Context, sessionID string, msgs []domain.Message) error {
	stored := make([]domain.Message, len(msgs))
	copy(stored, msgs)
	s.mu.Lock()
	s.sessions[sessionID] = stored
	s.mu.Unlock()
	return nil
}

// RecordEvent appends a turn trace event.
func (s *MemoryStore) RecordEvent(_ context.Context, event *domain.Event) error {
	s.mu.Lock()
	s.events[event.TurnID] = append(s.events[event.TurnID], *event)
	s.mu.Unlock()
	return nil
}

// GetEvents returns trace events for a turn.
func (s *MemoryStore) GetEvents(_ context.Context, turnID string) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.events[turnID]
	out := make([]domain.Event, len(events))
	copy(out, events)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
