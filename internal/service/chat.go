package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/manualmate/orchestrator/internal/domain"
)

const (
	systemPrompt = "You are a Cadillac assistant. You can access real-time information like weather and charging station status. Use tools to provide accurate and up-to-date information to users."

	// ApologyMessage is the only text ever shown to the user when every
	// provider fails. Provider error detail stays in the logs.
	ApologyMessage = "❌ Sorry, I encountered an error while processing your request. Please try again later."

	// explainPrompt is injected before regenerating after a tool result. It
	// is sent to the provider but never persisted to the session.
	explainPrompt = "Now explain that info to me."
)

// ErrAllProvidersFailed reports that the primary and every fallback provider
// failed for a turn. Nothing from the turn is persisted.
var ErrAllProvidersFailed = errors.New("all generation providers failed")

// documentContext strips the retrieval preamble so fallback providers see
// only the bare question.
var documentContext = regexp.MustCompile(`(?s)Document context:\n.*?\n\nUser question: `)

// CompleteTurn runs one full chat turn for a session: retrieve context,
// generate, optionally dispatch a tool and regenerate, then persist.
// Turns within a session are serialized; each sees the history left by the
// previous one.
func (s *Service) CompleteTurn(ctx context.Context, sessionID, question string) (string, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	turnID := "turn_" + uuid.New().String()[:8]
	s.recordEvent(ctx, sessionID, turnID, domain.EventTypeTurnStarted, map[string]any{
		"question_chars": len(question),
	})

	msgs, err := s.store.GetMessages(ctx, sessionID)
	if err != nil {
		log.Printf("WARN: failed to load history for session %s, starting fresh: %v", sessionID, err)
		msgs = nil
	}
	if len(msgs) == 0 {
		msgs = append(msgs, newMessage(sessionID, domain.RoleSystem, "", systemPrompt))
	}

	contextText := s.retrieveContext(ctx, question)
	userContent := question
	if contextText != "" {
		userContent = fmt.Sprintf("Document context:\n%s\n\nUser question: %s", contextText, question)
	}
	msgs = append(msgs, newMessage(sessionID, domain.RoleUser, "", userContent))
	msgs = s.trimHistory(msgs)

	primary := s.providers[0]
	completion, err := primary.Complete(ctx, msgs, s.registry.Definitions())
	if err != nil {
		log.Printf("ERROR: provider %s failed: %v", primary.Name(), err)
		return s.fallback(ctx, sessionID, turnID, msgs)
	}

	if completion.ToolCall != nil {
		toolName := completion.ToolCall.Name
		s.recordEvent(ctx, sessionID, turnID, domain.EventTypeToolInvoked, map[string]any{
			"tool": toolName,
		})

		output, toolErr := s.registry.Invoke(ctx, toolName, completion.ToolCall.Arguments)
		if toolErr != nil {
			log.Printf("WARN: tool %s failed: %v", toolName, toolErr)
			output = fmt.Sprintf("I tried to get real-time information for you, but encountered an error: %v. Let me answer based on what I know.", toolErr)
		}
		msgs = append(msgs, newMessage(sessionID, domain.RoleFunction, toolName, output))

		// The explain prompt steers the regeneration but is not part of the
		// durable history, so it goes only into this call's message list.
		callMsgs := make([]domain.Message, len(msgs), len(msgs)+1)
		copy(callMsgs, msgs)
		callMsgs = append(callMsgs, newMessage(sessionID, domain.RoleUser, "", explainPrompt))

		completion, err = primary.Complete(ctx, callMsgs, nil)
		if err != nil {
			log.Printf("ERROR: provider %s failed after tool call: %v", primary.Name(), err)
			return s.fallback(ctx, sessionID, turnID, msgs)
		}
	}

	answer := completion.Text
	s.persist(ctx, sessionID, append(msgs, newMessage(sessionID, domain.RoleAssistant, "", answer)))
	s.recordEvent(ctx, sessionID, turnID, domain.EventTypeTurnDone, map[string]any{
		"provider": primary.Name(),
	})
	return answer, nil
}

// fallback tries the remaining providers in order, without tools and with
// the retrieval preamble stripped from user messages. The session history is
// persisted with the original (context-bearing) messages so follow-up turns
// keep their grounding.
func (s *Service) fallback(ctx context.Context, sessionID, turnID string, msgs []domain.Message) (string, error) {
	cleaned := stripContext(msgs)

	for _, p := range s.providers[1:] {
		s.recordEvent(ctx, sessionID, turnID, domain.EventTypeProviderFallback, map[string]any{
			"provider": p.Name(),
		})
		completion, err := p.Complete(ctx, cleaned, nil)
		if err != nil {
			log.Printf("ERROR: fallback provider %s failed: %v", p.Name(), err)
			continue
		}
		answer := completion.Text
		s.persist(ctx, sessionID, append(msgs, newMessage(sessionID, domain.RoleAssistant, "", answer)))
		s.recordEvent(ctx, sessionID, turnID, domain.EventTypeTurnDone, map[string]any{
			"provider": p.Name(),
		})
		return answer, nil
	}

	s.recordEvent(ctx, sessionID, turnID, domain.EventTypeTurnFailed, nil)
	return ApologyMessage, ErrAllProvidersFailed
}

// retrieveContext embeds the question and returns the formatted top chunks.
// Retrieval failure degrades to no context rather than failing the turn.
// An unembedded fallback corpus yields a fixed static excerpt instead.
func (s *Service) retrieveContext(ctx context.Context, question string) string {
	results, err := s.index.Search(ctx, question, s.topK, s.minScore)
	if err != nil {
		log.Printf("WARN: retrieval failed, continuing without context: %v", err)
		return ""
	}
	if len(results) == 0 {
		if !s.index.HasEmbeddings() && s.index.Len() > 0 {
			return s.index.StaticContext(s.topK)
		}
		return ""
	}

	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("Page %d:\n%s", r.Chunk.Page, r.Chunk.Text))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// persist writes the full updated history. A storage failure loses history
// but the user still gets their answer.
func (s *Service) persist(ctx context.Context, sessionID string, msgs []domain.Message) {
	if err := s.store.PutMessages(ctx, sessionID, msgs); err != nil {
		log.Printf("ERROR: failed to persist session %s: %v", sessionID, err)
	}
}

func stripContext(msgs []domain.Message) []domain.Message {
	cleaned := make([]domain.Message, len(msgs))
	copy(cleaned, msgs)
	for i := range cleaned {
		if cleaned[i].Role == domain.RoleUser {
			cleaned[i].Content = documentContext.ReplaceAllString(cleaned[i].Content, "")
		}
	}
	return cleaned
}
