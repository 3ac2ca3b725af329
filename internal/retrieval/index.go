// Package retrieval provides the in-memory similarity index over the manual
// corpus. The index is loaded once at startup and immutable afterwards, so
// reads need no locking.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/manualmate/orchestrator/internal/adapter/embedding"
	"github.com/manualmate/orchestrator/internal/domain"
)

// DefaultMinScore is the similarity threshold below which a chunk is not
// considered relevant.
const DefaultMinScore = 0.6

// Index holds the embedded corpus and scores queries against it.
type Index struct {
	embedder embedding.Embedder
	chunks   []domain.Chunk
	embedded bool // at least one chunk carries an embedding
}

// New creates an index over chunks, using embedder for query vectorization.
func New(embedder embedding.Embedder, chunks []domain.Chunk) *Index {
	embedded := false
	for _, c := range chunks {
		if len(c.Embedding) > 0 {
			embedded = true
			break
		}
	}
	return &Index{embedder: embedder, chunks: chunks, embedded: embedded}
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	return len(idx.chunks)
}

// HasEmbeddings reports whether the index was built from an embedded corpus.
// A false value means the index holds the static fallback corpus and search
// can never match.
func (idx *Index) HasEmbeddings() bool {
	return idx.embedded
}

// Search embeds queryText and returns at most topK chunks whose cosine
// similarity exceeds minScore, best first, ties broken by ingestion order.
// An empty result is "no context", not an error. Embedding failure
// propagates as a retrieval error for the caller to degrade on.
func (idx *Index) Search(ctx context.Context, queryText string, topK int, minScore float64) ([]domain.ScoredChunk, error) {
	if len(idx.chunks) == 0 || !idx.embedded || topK <= 0 {
		return nil, nil
	}

	queryVec, err := idx.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results := make([]domain.ScoredChunk, 0, len(idx.chunks))
	for _, c := range idx.chunks {
		score := CosineSimilarity(queryVec, c.Embedding)
		if score > minScore {
			results = append(results, domain.ScoredChunk{Chunk: c, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// StaticContext joins the first n chunk texts, used as best-effort context
// when the index holds the unembedded fallback corpus.
func (idx *Index) StaticContext(n int) string {
	if n > len(idx.chunks) {
		n = len(idx.chunks)
	}
	parts := make([]string, 0, n)
	for _, c := range idx.chunks[:n] {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n---\n")
}

// CosineSimilarity returns dot(a,b) / (|a| * |b|). Length mismatch or a
// zero-norm vector yields 0 rather than an error.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
