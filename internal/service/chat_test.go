package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualmate/orchestrator/internal/adapter/llm"
	"github.com/manualmate/orchestrator/internal/domain"
	"github.com/manualmate/orchestrator/internal/retrieval"
	"github.com/manualmate/orchestrator/internal/store"
	"github.com/manualmate/orchestrator/internal/tools"
)

type stubEmbedder struct {
	vec []float64
	err error
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float64, error) {
	return s.vec, s.err
}

// embeddedIndex returns an index with one chunk that always scores ~1.0
// against the stub query vector.
func embeddedIndex() *retrieval.Index {
	return retrieval.New(
		&stubEmbedder{vec: []float64{1, 0}},
		[]domain.Chunk{{ID: "c1", Page: 42, Text: "Charging the LYRIQ takes 30 minutes.", Embedding: []float64{1, 0}}},
	)
}

func emptyIndex() *retrieval.Index {
	return retrieval.New(&stubEmbedder{vec: []float64{1, 0}}, nil)
}

func textProvider(name, reply string) *llm.MockProvider {
	return &llm.MockProvider{
		ProviderName: name,
		CompleteFunc: func(context.Context, []domain.Message, []llm.FunctionDef) (*llm.Completion, error) {
			return &llm.Completion{Text: reply}, nil
		},
	}
}

func failingProvider(name string) *llm.MockProvider {
	return &llm.MockProvider{
		ProviderName: name,
		CompleteFunc: func(context.Context, []domain.Message, []llm.FunctionDef) (*llm.Completion, error) {
			return nil, &llm.ProviderError{Provider: name, Err: errors.New("boom")}
		},
	}
}

func newService(st store.Store, idx *retrieval.Index, providers ...llm.Provider) *Service {
	r := tools.NewRegistry(nil)
	tools.RegisterLocalTools(r)
	return New(st, idx, r, providers, Options{})
}

func TestCompleteTurnPlainAnswer(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newService(st, emptyIndex(), textProvider("deepseek", "Check the charge port on the left."))

	answer, err := svc.CompleteTurn(context.Background(), "s1", "Where is the charge port?")
	require.NoError(t, err)
	assert.Equal(t, "Check the charge port on the left.", answer)

	msgs, err := st.GetMessages(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 3) // system seed, user, assistant
	assert.Equal(t, domain.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Cadillac assistant")
	assert.Equal(t, "Where is the charge port?", msgs[1].Content)
	assert.Equal(t, domain.RoleAssistant, msgs[2].Role)
}

func TestCompleteTurnInjectsRetrievedContext(t *testing.T) {
	st := store.NewMemoryStore()
	var seen []domain.Message
	p := &llm.MockProvider{
		ProviderName: "deepseek",
		CompleteFunc: func(_ context.Context, msgs []domain.Message, _ []llm.FunctionDef) (*llm.Completion, error) {
			seen = msgs
			return &llm.Completion{Text: "About 30 minutes."}, nil
		},
	}
	svc := newService(st, embeddedIndex(), p)

	_, err := svc.CompleteTurn(context.Background(), "s1", "How long does charging take?")
	require.NoError(t, err)

	require.NotEmpty(t, seen)
	user := seen[len(seen)-1]
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.True(t, strings.HasPrefix(user.Content, "Document context:\n"), "context must be prepended")
	assert.Contains(t, user.Content, "Page 42:")
	assert.Contains(t, user.Content, "Charging the LYRIQ takes 30 minutes.")
	assert.Contains(t, user.Content, "\n\nUser question: How long does charging take?")
}

func TestCompleteTurnUsesStaticFallbackContext(t *testing.T) {
	st := store.NewMemoryStore()
	// Unembedded chunks: search can never match, so the static excerpt is
	// the only available grounding.
	idx := retrieval.New(&stubEmbedder{err: errors.New("must not be called")}, []domain.Chunk{
		{ID: "p1", Page: 1, Text: "Charging overview."},
		{ID: "p2", Page: 2, Text: "Connector types."},
	})
	var seen []domain.Message
	p := &llm.MockProvider{
		ProviderName: "deepseek",
		CompleteFunc: func(_ context.Context, msgs []domain.Message, _ []llm.FunctionDef) (*llm.Completion, error) {
			seen = msgs
			return &llm.Completion{Text: "ok"}, nil
		},
	}
	svc := newService(st, idx, p)

	_, err := svc.CompleteTurn(context.Background(), "s1", "How do I charge?")
	require.NoError(t, err)

	require.NotEmpty(t, seen)
	user := seen[len(seen)-1]
	assert.True(t, strings.HasPrefix(user.Content, "Document context:\n"))
	assert.Contains(t, user.Content, "Charging overview.")
	assert.Contains(t, user.Content, "Connector types.")
	assert.Contains(t, user.Content, "\n\nUser question: How do I charge?")
}

func TestCompleteTurnToolRoundTrip(t *testing.T) {
	st := store.NewMemoryStore()
	calls := 0
	p := &llm.MockProvider{
		ProviderName: "deepseek",
		CompleteFunc: func(_ context.Context, msgs []domain.Message, defs []llm.FunctionDef) (*llm.Completion, error) {
			calls++
			if calls == 1 {
				require.NotEmpty(t, defs, "first call must offer the tool catalog")
				return &llm.Completion{ToolCall: &domain.ToolCall{
					Name:      "getVehicleSpecSheet",
					Arguments: json.RawMessage(`{"model":"LYRIQ"}`),
				}}, nil
			}
			assert.Empty(t, defs, "regeneration must not offer tools")
			last := msgs[len(msgs)-1]
			assert.Equal(t, "Now explain that info to me.", last.Content)
			prev := msgs[len(msgs)-2]
			assert.Equal(t, domain.RoleFunction, prev.Role)
			assert.Equal(t, "getVehicleSpecSheet", prev.Name)
			assert.Contains(t, prev.Content, "Specs for LYRIQ")
			return &llm.Completion{Text: "The LYRIQ has a 400V battery."}, nil
		},
	}
	svc := newService(st, emptyIndex(), p)

	answer, err := svc.CompleteTurn(context.Background(), "s1", "LYRIQ specs?")
	require.NoError(t, err)
	assert.Equal(t, "The LYRIQ has a 400V battery.", answer)
	assert.Equal(t, 2, calls)

	// The synthetic explain prompt is not part of the durable history.
	msgs, err := st.GetMessages(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 4) // system, user, function, assistant
	assert.Equal(t, domain.RoleFunction, msgs[2].Role)
	for _, m := range msgs {
		assert.NotEqual(t, "Now explain that info to me.", m.Content)
	}
}

func TestCompleteTurnToolErrorFedBack(t *testing.T) {
	st := store.NewMemoryStore()
	calls := 0
	p := &llm.MockProvider{
		ProviderName: "deepseek",
		CompleteFunc: func(_ context.Context, msgs []domain.Message, _ []llm.FunctionDef) (*llm.Completion, error) {
			calls++
			if calls == 1 {
				return &llm.Completion{ToolCall: &domain.ToolCall{
					Name:      "noSuchTool",
					Arguments: json.RawMessage(`{}`),
				}}, nil
			}
			prev := msgs[len(msgs)-2]
			assert.Equal(t, domain.RoleFunction, prev.Role)
			assert.Contains(t, prev.Content, "encountered an error")
			return &llm.Completion{Text: "Here is what I know."}, nil
		},
	}
	svc := newService(st, emptyIndex(), p)

	answer, err := svc.CompleteTurn(context.Background(), "s1", "anything")
	require.NoError(t, err)
	assert.Equal(t, "Here is what I know.", answer)
}

func TestFallbackTriggersOnceWithoutContext(t *testing.T) {
	st := store.NewMemoryStore()
	primary := failingProvider("deepseek")
	var fallbackSaw []domain.Message
	secondary := &llm.MockProvider{
		ProviderName: "openai",
		CompleteFunc: func(_ context.Context, msgs []domain.Message, defs []llm.FunctionDef) (*llm.Completion, error) {
			fallbackSaw = msgs
			assert.Empty(t, defs, "fallback providers are never offered tools")
			return &llm.Completion{Text: "Fallback answer."}, nil
		},
	}
	svc := newService(st, embeddedIndex(), primary, secondary)

	answer, err := svc.CompleteTurn(context.Background(), "s1", "How long does charging take?")
	require.NoError(t, err)
	assert.Equal(t, "Fallback answer.", answer)
	assert.Equal(t, 1, primary.Calls, "primary gets exactly one attempt")
	assert.Equal(t, 1, secondary.Calls)

	// The fallback sees the bare question, not the retrieval preamble.
	user := fallbackSaw[len(fallbackSaw)-1]
	assert.Equal(t, "How long does charging take?", user.Content)

	// The persisted history keeps the context-bearing user message.
	msgs, err := st.GetMessages(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[1].Content, "Document context:")
}

func TestAllProvidersFailedNothingPersisted(t *testing.T) {
	st := store.NewMemoryStore()
	primary := failingProvider("deepseek")
	secondary := failingProvider("openai")
	svc := newService(st, emptyIndex(), primary, secondary)

	answer, err := svc.CompleteTurn(context.Background(), "s1", "hello")
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
	assert.Equal(t, ApologyMessage, answer)
	assert.Equal(t, 1, primary.Calls)
	assert.Equal(t, 1, secondary.Calls)

	msgs, err := st.GetMessages(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, msgs, "a failed turn must not persist anything")
}

func TestHistoryAccumulatesAcrossTurns(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newService(st, emptyIndex(), textProvider("deepseek", "ok"))

	for i := 0; i < 3; i++ {
		_, err := svc.CompleteTurn(context.Background(), "s1", fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	msgs, err := st.GetMessages(context.Background(), "s1")
	require.NoError(t, err)
	// seed + 2 per plain turn
	assert.Len(t, msgs, 1+3*2)
	assert.Equal(t, domain.RoleSystem, msgs[0].Role)
}

func TestConcurrentTurnsOneSessionDoNotInterleave(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newService(st, emptyIndex(), textProvider("deepseek", "ok"))

	const turns = 8
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.CompleteTurn(context.Background(), "s1", fmt.Sprintf("question %d", n))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Serialized turns leave exactly seed + 2 per turn, alternating
	// user/assistant; an interleaved turn would lose an update.
	msgs, err := st.GetMessages(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 1+2*turns)
	assert.Equal(t, domain.RoleSystem, msgs[0].Role)
	for i := 1; i < len(msgs); i += 2 {
		assert.Equal(t, domain.RoleUser, msgs[i].Role)
		assert.Equal(t, domain.RoleAssistant, msgs[i+1].Role)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newService(st, emptyIndex(), textProvider("deepseek", "ok"))

	_, err := svc.CompleteTurn(context.Background(), "a", "first")
	require.NoError(t, err)
	_, err = svc.CompleteTurn(context.Background(), "b", "second")
	require.NoError(t, err)

	a, _ := st.GetMessages(context.Background(), "a")
	b, _ := st.GetMessages(context.Background(), "b")
	assert.Len(t, a, 3)
	assert.Len(t, b, 3)
	assert.Equal(t, "first", a[1].Content)
	assert.Equal(t, "second", b[1].Content)
}

func TestStripContext(t *testing.T) {
	msgs := []domain.Message{
		{Role: domain.RoleSystem, Content: "seed"},
		{Role: domain.RoleUser, Content: "Document context:\nPage 1:\nsome text\n\nUser question: plain?"},
		{Role: domain.RoleAssistant, Content: "Document context: untouched in assistant messages"},
	}
	cleaned := stripContext(msgs)
	assert.Equal(t, "plain?", cleaned[1].Content)
	assert.Equal(t, msgs[2].Content, cleaned[2].Content)
	// Original slice untouched.
	assert.Contains(t, msgs[1].Content, "Document context:")
}
