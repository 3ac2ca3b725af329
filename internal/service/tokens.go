package service

import (
	"log"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/manualmate/orchestrator/internal/domain"
)

var loaderOnce sync.Once

// tokenEstimator counts tokens with the cl100k_base encoding. If the
// encoding cannot be loaded it falls back to a chars/4 estimate.
type tokenEstimator struct {
	enc *tiktoken.Tiktoken
}

func newTokenEstimator() *tokenEstimator {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		log.Printf("WARN: failed to load cl100k_base encoding, estimating tokens by length: %v", err)
		return &tokenEstimator{}
	}
	return &tokenEstimator{enc: enc}
}

func (e *tokenEstimator) count(text string) int {
	if e.enc == nil {
		return len(text) / 4
	}
	return len(e.enc.Encode(text, nil, nil))
}

// trimHistory drops the oldest messages until the history fits the token
// budget. The leading system message and the final (current) message are
// never dropped.
func (s *Service) trimHistory(msgs []domain.Message) []domain.Message {
	if len(msgs) <= 2 {
		return msgs
	}

	counts := make([]int, len(msgs))
	total := 0
	for i, m := range msgs {
		counts[i] = s.estimator.count(m.Content) + 4 // per-message framing overhead
		total += counts[i]
	}

	head := 0
	if msgs[0].Role == domain.RoleSystem {
		head = 1
	}

	drop := head
	for total > s.tokenBudget && drop < len(msgs)-1 {
		total -= counts[drop]
		drop++
	}
	if drop == head {
		return msgs
	}

	trimmed := make([]domain.Message, 0, len(msgs)-(drop-head))
	trimmed = append(trimmed, msgs[:head]...)
	trimmed = append(trimmed, msgs[drop:]...)
	return trimmed
}
