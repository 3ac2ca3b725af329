package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/manualmate/orchestrator/internal/domain"
)

// chatMessage is the OpenAI-compatible wire form shared by both providers.
type chatMessage struct {
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// chatRequest is the chat completion request body. Functions and
// FunctionCall are only populated for providers that support tool calls.
type chatRequest struct {
	Model        string        `json:"model"`
	Messages     []chatMessage `json:"messages"`
	Functions    []FunctionDef `json:"functions,omitempty"`
	FunctionCall string        `json:"function_call,omitempty"`
	Temperature  float64       `json:"temperature"`
}

// functionCall is the tool-call directive in a response message.
type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type responseMessage struct {
	Role         string        `json:"role"`
	Content      string        `json:"content"`
	FunctionCall *functionCall `json:"function_call,omitempty"`
}

type choice struct {
	Index        int              `json:"index"`
	Message      *responseMessage `json:"message,omitempty"`
	FinishReason string           `json:"finish_reason,omitempty"`
}

type chatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
}

type errorResponse struct {
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// toWire converts domain messages into the wire form.
func toWire(messages []domain.Message) []chatMessage {
	out := make([]chatMessage, len(messages))
	for i, m := range messages {
		out[i] = chatMessage{Role: m.Role, Name: m.Name, Content: m.Content}
	}
	return out
}

// postChat sends a chat completion request and decodes the response. Every
// failure mode is wrapped in *ProviderError.
func postChat(ctx context.Context, client *http.Client, baseURL, apiKey, provider string, req *chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &ProviderError{Provider: provider, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(baseURL, "/")+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &ProviderError{Provider: provider, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: provider, Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: provider, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			return nil, &ProviderError{Provider: provider,
				Err: fmt.Errorf("API error [%d]: %s (type: %s)", resp.StatusCode, errResp.Error.Message, errResp.Error.Type)}
		}
		return nil, &ProviderError{Provider: provider,
			Err: fmt.Errorf("API error [%d]: %s", resp.StatusCode, string(respBody))}
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &ProviderError{Provider: provider, Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}
	if len(result.Choices) == 0 || result.Choices[0].Message == nil {
		return nil, &ProviderError{Provider: provider, Err: fmt.Errorf("response contains no choices")}
	}

	return &result, nil
}
