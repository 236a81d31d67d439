// Package detect locates rule triggers in lower-cased transcript text.
//
// Two strategies exist side by side. ContextScanner checks only the first
// occurrence of each trigger and suppresses it when a denial cue sits in the
// lookback window before it. KeywordDetector reports every trigger that occurs
// anywhere, once per trigger.
package detect

import (
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/callaudit/internal/model"
	"github.com/ppiankov/callaudit/internal/rules"
)

// ContextScanner detects identity triggers with negation suppression
type ContextScanner struct {
	category string
	triggers []string
	cues     []string
	lookback int
}

// NewContextScanner creates a scanner for the identity rule of a table
func NewContextScanner(identity rules.Identity, lookback int) *ContextScanner {
	return &ContextScanner{
		category: rules.IdentityCategory,
		triggers: identity.Triggers,
		cues:     identity.DenialCues,
		lookback: lookback,
	}
}

// Scan returns one finding per trigger whose first occurrence is not negated,
// in trigger order.
func (s *ContextScanner) Scan(text string) []model.Finding {
	if text == "" {
		return nil
	}

	var findings []model.Finding
	for _, trigger := range s.triggers {
		offset, window, ok := FirstUnnegated(text, trigger, s.lookback, s.cues)
		if !ok {
			continue
		}
		findings = append(findings, model.Finding{
			Category: s.category,
			Kind:     model.KindIdentity,
			Trigger:  trigger,
			Offset:   offset,
			Context:  window,
		})
	}
	return findings
}

// FirstUnnegated locates the first occurrence of trigger in text and reports
// it unless one of cues appears within the lookback characters preceding it.
// Later occurrences are never examined. It returns the byte offset of the
// match and the window that was inspected.
func FirstUnnegated(text, trigger string, lookback int, cues []string) (int, string, bool) {
	if text == "" || trigger == "" {
		return 0, "", false
	}

	idx := strings.Index(text, trigger)
	if idx < 0 {
		return 0, "", false
	}

	window := Lookback(text, idx, lookback)
	for _, cue := range cues {
		if cue != "" && strings.Contains(window, cue) {
			return idx, window, false
		}
	}

	return idx, window, true
}

// Lookback returns up to n characters (runes) of text immediately before the
// byte offset end, clipped at the start of text.
func Lookback(text string, end, n int) string {
	if end > len(text) {
		end = len(text)
	}
	if end <= 0 || n <= 0 {
		return ""
	}

	start := end
	for i := 0; i < n && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}
	return text[start:end]
}
