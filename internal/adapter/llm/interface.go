// Package llm provides a uniform abstraction over the remote generation
// providers. Each adapter translates the generic message/tool model into its
// provider's wire format and normalizes all failures into *ProviderError so
// the fallback chain needs no provider-specific handling.
package llm

import (
	"context"
	"fmt"

	"github.com/manualmate/orchestrator/internal/domain"
)

// FunctionDef describes one callable tool in the provider-facing catalog.
type FunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Completion is the normalized result of a generation call: either plain
// assistant text or a request to invoke exactly one tool.
type Completion struct {
	Text     string
	ToolCall *domain.ToolCall
}

// Provider is the uniform contract over a remote chat-completion API.
// Providers that do not support tool calls ignore the catalog and always
// return text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, messages []domain.Message, tools []FunctionDef) (*Completion, error)
}

// ProviderError normalizes authentication failures, timeouts and malformed
// responses from any provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
