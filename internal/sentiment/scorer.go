// Package sentiment provides polarity scorers for call transcripts.
//
// Every scorer maps text to a single value in [-1, 1], negative meaning
// hostile. Scorers must be safe for concurrent use.
package sentiment

import (
	"context"
	"fmt"
	"math"

	"github.com/ppiankov/callaudit/internal/cache"
	"github.com/ppiankov/callaudit/internal/llm"
	"github.com/ppiankov/callaudit/internal/model"
)

// Scorer rates the overall tone of a transcript
type Scorer interface {
	Name() string
	Polarity(ctx context.Context, text string) (float64, error)
}

// Func adapts a plain function to the Scorer interface
type Func func(ctx context.Context, text string) (float64, error)

// Name returns "func"
func (f Func) Name() string { return "func" }

// Polarity calls f
func (f Func) Polarity(ctx context.Context, text string) (float64, error) {
	return f(ctx, text)
}

// Clamp bounds v to [-1, 1]; NaN becomes 0
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < -1:
		return -1
	case v > 1:
		return 1
	}
	return v
}

// New builds the scorer selected by cfg, wrapped in c when caching is enabled
func New(cfg model.SentimentConfig, httpCfg model.HTTPConfig, c cache.Cache) (Scorer, error) {
	var s Scorer

	switch cfg.Provider {
	case "", "lexicon":
		s = NewLexicon()
	default:
		provider, err := llm.NewProvider(llm.ConfigFromModel(cfg, httpCfg))
		if err != nil {
			return nil, fmt.Errorf("sentiment provider: %w", err)
		}
		s = NewLLM(provider)
	}

	if cfg.Cached && c != nil {
		s = NewCached(s, c, 0)
	}
	return s, nil
}
