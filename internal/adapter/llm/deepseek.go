package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/manualmate/orchestrator/internal/domain"
)

const (
	deepseekModel       = "deepseek-chat"
	deepseekTemperature = 0.3
)

// DeepSeekClient is the primary generation provider. It supports the
// functions/function_call convention and may answer with either text or a
// single tool-call directive per turn.
type DeepSeekClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Provider = (*DeepSeekClient)(nil)

// NewDeepSeekClient creates a new DeepSeek client.
func NewDeepSeekClient(baseURL, apiKey string, timeout time.Duration) *DeepSeekClient {
	return &DeepSeekClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the provider name.
func (c *DeepSeekClient) Name() string {
	return "deepseek"
}

// Complete sends the history and tool catalog to DeepSeek. A function_call
// finish reason is surfaced as a normalized tool-call directive; arguments
// stay raw JSON so the dispatcher can validate them against the schema.
func (c *DeepSeekClient) Complete(ctx context.Context, messages []domain.Message, tools []FunctionDef) (*Completion, error) {
	req := &chatRequest{
		Model:       deepseekModel,
		Messages:    toWire(messages),
		Temperature: deepseekTemperature,
	}
	if len(tools) > 0 {
		req.Functions = tools
		req.FunctionCall = "auto"
	}

	resp, err := postChat(ctx, c.httpClient, c.baseURL, c.apiKey, c.Name(), req)
	if err != nil {
		return nil, err
	}

	ch := resp.Choices[0]
	if ch.FinishReason == "function_call" || ch.Message.FunctionCall != nil {
		fn := ch.Message.FunctionCall
		if fn == nil {
			return nil, &ProviderError{Provider: c.Name(), Err: errMissingFunctionCall}
		}
		return &Completion{
			ToolCall: &domain.ToolCall{
				Name:      fn.Name,
				Arguments: json.RawMessage(fn.Arguments),
			},
		}, nil
	}

	return &Completion{Text: ch.Message.Content}, nil
}
