package sentiment

import (
	"context"
	"fmt"

	"github.com/ppiankov/callaudit/internal/llm"
)

// LLM delegates scoring to a hosted or local language model
type LLM struct {
	provider llm.Provider
}

// NewLLM wraps an llm.Provider as a Scorer
func NewLLM(provider llm.Provider) *LLM {
	return &LLM{provider: provider}
}

// Name returns "llm:<provider>"
func (s *LLM) Name() string { return "llm:" + s.provider.Name() }

// Polarity asks the provider to rate text
func (s *LLM) Polarity(ctx context.Context, text string) (float64, error) {
	resp, err := s.provider.Polarity(ctx, llm.PolarityRequest{Text: text})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", s.Name(), err)
	}
	return Clamp(resp.Polarity), nil
}
