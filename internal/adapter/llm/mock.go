package llm

import (
	"context"

	"github.com/manualmate/orchestrator/internal/domain"
)

// MockProvider is a function-backed Provider for tests and offline mode.
type MockProvider struct {
	ProviderName string
	CompleteFunc func(ctx context.Context, messages []domain.Message, tools []FunctionDef) (*Completion, error)
	Calls        int
}

var _ Provider = (*MockProvider)(nil)

// Name returns the configured provider name, defaulting to "mock".
func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// Complete delegates to CompleteFunc, counting invocations.
func (m *MockProvider) Complete(ctx context.Context, messages []domain.Message, tools []FunctionDef) (*Completion, error) {
	m.Calls++
	if m.CompleteFunc == nil {
		return &Completion{Text: "mock response"}, nil
	}
	return m.CompleteFunc(ctx, messages, tools)
}
