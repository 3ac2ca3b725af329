// Package domain defines the core domain models for the orchestrator.
package domain

import (
	"encoding/json"
	"time"
)

// Message roles. RoleFunction carries a tool result back to the model.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleFunction  = "function"
)

// Message represents a single message in a session. Messages are append-only
// within a session: once stored they are never mutated, only dropped from the
// head when the history is trimmed.
type Message struct {
	MessageID string    `json:"message_id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Name      string    `json:"name,omitempty"` // tool name, function role only
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session represents a conversation session. Sessions are created lazily on
// the first turn for an unknown id and seeded with a system message.
type Session struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

// Chunk is one embedded, retrievable unit of manual text, produced by the
// offline ingestion job. Immutable once loaded.
type Chunk struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Page      int       `json:"page,omitempty"`
	Text      string    `json:"text"`
	Embedding []float64 `json:"embedding,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
}

// ScoredChunk is a retrieval result: a chunk plus its similarity score.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// ToolCall is a structured request from the model to invoke a named tool.
// Arguments are the raw JSON emitted by the model; they are validated
// against the tool's schema before dispatch.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// EventType identifies a turn lifecycle event.
type EventType string

const (
	EventTypeTurnStarted      EventType = "turn_started"
	EventTypeToolInvoked      EventType = "tool_invoked"
	EventTypeProviderFallback EventType = "provider_fallback"
	EventTypeTurnDone         EventType = "turn_done"
	EventTypeTurnFailed       EventType = "turn_failed"
)

// Event is a trace record of one step of a turn, kept for debugging and
// replay. Event recording is best-effort and never fails a turn.
type Event struct {
	EventID   string          `json:"event_id"`
	SessionID string          `json:"session_id"`
	TurnID    string          `json:"turn_id"`
	Ts        int64           `json:"ts"` // Unix milliseconds
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ChatRequest is the inbound chat request body.
type ChatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"sessionId"`
}

// ChatResponse is the inbound chat response body. On failure Answer carries
// a generic apology, never provider error detail.
type ChatResponse struct {
	Answer string `json:"answer"`
}
