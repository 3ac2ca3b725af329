package retrieval

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/manualmate/orchestrator/internal/domain"
)

// embeddedEntry is one record of the offline ingestion output
// (manual-embeddings.json).
type embeddedEntry struct {
	Page      int       `json:"page"`
	Text      string    `json:"text"`
	Embedding []float64 `json:"embedding"`
	Tags      []string  `json:"tags,omitempty"`
}

// contentEntry is one OCR page of the raw manual export
// (manual-content.json). No embeddings.
type contentEntry struct {
	Page    int    `json:"page"`
	OCRText string `json:"ocrText"`
	RawText string `json:"rawText"`
}

// LoadChunks reads the embedded manual corpus produced by the offline
// ingestion job.
func LoadChunks(path string) ([]domain.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	var entries []embeddedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse corpus: %w", err)
	}

	chunks := make([]domain.Chunk, 0, len(entries))
	for i, e := range entries {
		chunks = append(chunks, domain.Chunk{
			ID:        "chunk_" + strconv.Itoa(i),
			Source:    path,
			Page:      e.Page,
			Text:      e.Text,
			Embedding: e.Embedding,
			Tags:      e.Tags,
		})
	}
	return chunks, nil
}

// LoadFallback reads the raw manual content as an unembedded static corpus,
// used best-effort when the embedded corpus is unreachable.
func LoadFallback(path string) ([]domain.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fallback corpus: %w", err)
	}

	var entries []contentEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse fallback corpus: %w", err)
	}

	chunks := make([]domain.Chunk, 0, len(entries))
	for i, e := range entries {
		text := e.OCRText
		if text == "" {
			text = e.RawText
		}
		if text == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			ID:     "page_" + strconv.Itoa(i),
			Source: path,
			Page:   e.Page,
			Text:   text,
		})
	}
	return chunks, nil
}
