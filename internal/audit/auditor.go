// Package audit classifies call transcripts into verdict tiers.
//
// An Auditor combines the identity context scanner, the keyword detectors of
// every rule category and a sentiment scorer, then resolves the results to a
// single tier. It holds no mutable state; Audit may be called concurrently.
package audit

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/callaudit/internal/detect"
	"github.com/ppiankov/callaudit/internal/model"
	"github.com/ppiankov/callaudit/internal/rules"
	"github.com/ppiankov/callaudit/internal/sentiment"
)

// Auditor produces verdicts from one immutable rule table
type Auditor struct {
	table    *rules.Table
	identity *detect.ContextScanner
	keywords []*detect.KeywordDetector
	scorer   sentiment.Scorer
	logger   *zap.Logger
}

// New compiles the detectors for table. A nil scorer scores every text as neutral.
func New(table *rules.Table, scorer sentiment.Scorer, logger *zap.Logger) (*Auditor, error) {
	if table == nil {
		return nil, fmt.Errorf("audit: nil rule table")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &Auditor{
		table:    table,
		identity: detect.NewContextScanner(table.Identity(), table.LookbackChars()),
		scorer:   scorer,
		logger:   logger,
	}

	for _, c := range table.Categories() {
		d, err := detect.NewKeywordDetector(c)
		if err != nil {
			return nil, fmt.Errorf("compile rules %s: %w", table.Version(), err)
		}
		a.keywords = append(a.keywords, d)
	}

	return a, nil
}

// Table returns the rule table the auditor was built from
func (a *Auditor) Table() *rules.Table { return a.table }

// Scorer returns the sentiment scorer in use
func (a *Auditor) Scorer() sentiment.Scorer { return a.scorer }

// Audit classifies lower-cased transcript text. It never fails: blank text
// yields SKIPPED and a failing scorer degrades to neutral polarity.
func (a *Auditor) Audit(ctx context.Context, text string) model.Verdict {
	if strings.TrimSpace(text) == "" {
		return model.Skipped(a.table.Version())
	}

	scanned := detect.CollapseSpace(text)
	details := a.identity.Scan(scanned)
	for _, d := range a.keywords {
		details = append(details, d.Detect(scanned)...)
	}

	polarity, degraded := a.polarity(ctx, text)

	signals := countKinds(details)
	signals.Polarity = polarity
	tier := Resolve(signals, a.table.HostilityThreshold())

	findings := make([]string, 0, len(details))
	for _, f := range details {
		findings = append(findings, f.Label())
	}

	return model.Verdict{
		Tier:              tier,
		Indicator:         tier.Indicator(),
		Findings:          findings,
		Sentiment:         polarity,
		SentimentDegraded: degraded,
		Details:           details,
		Drift:             Drift(signals.Risk, polarity),
		Disclosure:        detect.ContainsAny(scanned, a.table.Disclosures()),
		RulesVersion:      a.table.Version(),
	}
}

// AuditRecord audits a normalized transcript record
func (a *Auditor) AuditRecord(ctx context.Context, rec model.TranscriptRecord) model.Verdict {
	return a.Audit(ctx, rec.Text)
}

func (a *Auditor) polarity(ctx context.Context, text string) (float64, bool) {
	if a.scorer == nil {
		return 0, false
	}

	v, err := a.scorer.Polarity(ctx, text)
	if err != nil {
		a.logger.Warn("sentiment scorer failed, using neutral polarity",
			zap.String("scorer", a.scorer.Name()),
			zap.Error(err),
		)
		return 0, true
	}
	return sentiment.Clamp(v), false
}
