package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/manualmate/orchestrator/internal/domain"
)

const (
	openaiModel       = "gpt-4"
	openaiTemperature = 0.4
)

var errMissingFunctionCall = errors.New("finish_reason is function_call but no function_call in message")

// OpenAIClient is the fallback generation provider. The tool catalog is not
// offered to it: fallback turns always produce plain text.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Provider = (*OpenAIClient)(nil)

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(baseURL, apiKey string, timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Complete sends the history to OpenAI. The tools argument is ignored.
func (c *OpenAIClient) Complete(ctx context.Context, messages []domain.Message, _ []FunctionDef) (*Completion, error) {
	req := &chatRequest{
		Model:       openaiModel,
		Messages:    toWire(messages),
		Temperature: openaiTemperature,
	}

	resp, err := postChat(ctx, c.httpClient, c.baseURL, c.apiKey, c.Name(), req)
	if err != nil {
		return nil, err
	}

	return &Completion{Text: resp.Choices[0].Message.Content}, nil
}
