// Package embedding wraps the remote embedding API used for query-time
// vectorization.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/manualmate/orchestrator/internal/adapter/llm"
)

// maxInputChars bounds the text sent to the provider to keep cost and
// latency predictable. Longer input is truncated, not rejected.
const maxInputChars = 8000

// Embedder converts text to a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Client calls an OpenAI-style /v1/embeddings endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

var _ Embedder = (*Client)(nil)

// NewClient creates a new embedding client.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for text, truncated to the input
// budget. Failures are normalized into *llm.ProviderError.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if len(text) > maxInputChars {
		cut := maxInputChars
		// Never split a multi-byte rune at the boundary.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, &llm.ProviderError{Provider: "embedding", Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, &llm.ProviderError{Provider: "embedding", Err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &llm.ProviderError{Provider: "embedding", Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &llm.ProviderError{Provider: "embedding", Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &llm.ProviderError{Provider: "embedding",
			Err: fmt.Errorf("API error [%d]: %s", resp.StatusCode, string(respBody))}
	}

	var result embeddingResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &llm.ProviderError{Provider: "embedding", Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}
	if len(result.Data) == 0 {
		return nil, &llm.ProviderError{Provider: "embedding", Err: fmt.Errorf("response contains no embeddings")}
	}

	return result.Data[0].Embedding, nil
}
