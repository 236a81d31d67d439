package sentiment

import (
	"context"
	"strings"
	"sync"

	"github.com/jonreiter/govader"
)

// defaultAnalyzer is built once; loading the VADER lexicon parses every entry.
// PolarityScores only reads the analyzer, so it is shared across goroutines.
var defaultAnalyzer = sync.OnceValue(govader.NewSentimentIntensityAnalyzer)

// Lexicon scores text with the VADER rule-based analyzer. It runs offline,
// is deterministic and is the default scorer.
type Lexicon struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewLexicon returns a scorer over the stock VADER lexicon
func NewLexicon() *Lexicon {
	return &Lexicon{analyzer: defaultAnalyzer()}
}

// NewLexiconWith returns a scorer whose lexicon is the stock one with the
// given term weights added or replaced (VADER scale, roughly -4..4)
func NewLexiconWith(weights map[string]float64) *Lexicon {
	analyzer := govader.NewSentimentIntensityAnalyzer()
	for term, weight := range weights {
		analyzer.Lexicon[strings.ToLower(term)] = weight
	}
	return &Lexicon{analyzer: analyzer}
}

// Name returns "lexicon"
func (l *Lexicon) Name() string { return "lexicon" }

// Polarity never fails; text without known terms scores 0
func (l *Lexicon) Polarity(_ context.Context, text string) (float64, error) {
	return l.Score(text), nil
}

// Score returns the VADER compound score of text, clamped to [-1, 1]
func (l *Lexicon) Score(text string) float64 {
	return Clamp(l.analyzer.PolarityScores(text).Compound)
}
