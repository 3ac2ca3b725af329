// Package service implements the conversation orchestrator: the per-turn
// state machine that ties retrieval, generation, tool dispatch and
// persistence together.
package service

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/manualmate/orchestrator/internal/adapter/llm"
	"github.com/manualmate/orchestrator/internal/domain"
	"github.com/manualmate/orchestrator/internal/retrieval"
	"github.com/manualmate/orchestrator/internal/store"
	"github.com/manualmate/orchestrator/internal/tools"
)

// Options tunes a Service. Zero values fall back to sensible defaults.
type Options struct {
	RetrievalTopK      int
	RetrievalMinScore  float64
	HistoryTokenBudget int
}

// Service orchestrates chat turns. Providers are tried in order: the first
// is the primary (offered the tool catalog), the rest are fallbacks called
// without tools.
type Service struct {
	store     store.Store
	index     *retrieval.Index
	registry  *tools.Registry
	providers []llm.Provider
	estimator *tokenEstimator

	topK        int
	minScore    float64
	tokenBudget int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Service.
func New(st store.Store, index *retrieval.Index, registry *tools.Registry, providers []llm.Provider, opts Options) *Service {
	if opts.RetrievalTopK <= 0 {
		opts.RetrievalTopK = 3
	}
	if opts.RetrievalMinScore <= 0 {
		opts.RetrievalMinScore = retrieval.DefaultMinScore
	}
	if opts.HistoryTokenBudget <= 0 {
		opts.HistoryTokenBudget = 6000
	}
	return &Service{
		store:       st,
		index:       index,
		registry:    registry,
		providers:   providers,
		estimator:   newTokenEstimator(),
		topK:        opts.RetrievalTopK,
		minScore:    opts.RetrievalMinScore,
		tokenBudget: opts.HistoryTokenBudget,
		locks:       make(map[string]*sync.Mutex),
	}
}

// History returns the stored message history for a session.
func (s *Service) History(ctx context.Context, sessionID string) ([]domain.Message, error) {
	return s.store.GetMessages(ctx, sessionID)
}

// TurnEvents returns the trace events recorded for a turn.
func (s *Service) TurnEvents(ctx context.Context, turnID string) ([]domain.Event, error) {
	return s.store.GetEvents(ctx, turnID)
}

// sessionLock returns the mutex serializing turns for one session. Turns on
// different sessions proceed concurrently.
func (s *Service) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

// recordEvent writes a turn trace event. Failures are logged and swallowed:
// tracing never fails a turn.
func (s *Service) recordEvent(ctx context.Context, sessionID, turnID string, typ domain.EventType, payload map[string]any) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Printf("WARN: failed to marshal event payload: %v", err)
		} else {
			raw = data
		}
	}
	ev := &domain.Event{
		EventID:   "ev_" + uuid.New().String()[:8],
		SessionID: sessionID,
		TurnID:    turnID,
		Ts:        time.Now().UnixMilli(),
		Type:      typ,
		Payload:   raw,
	}
	if err := s.store.RecordEvent(ctx, ev); err != nil {
		log.Printf("WARN: failed to record %s event: %v", typ, err)
	}
}

func newMessage(sessionID, role, name, content string) domain.Message {
	return domain.Message{
		MessageID: "msg_" + uuid.New().String()[:8],
		SessionID: sessionID,
		Role:      role,
		Name:      name,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}
