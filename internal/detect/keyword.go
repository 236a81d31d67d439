package detect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/callaudit/internal/model"
	"github.com/ppiankov/callaudit/internal/rules"
)

// wordEdge matches the start/end of text or any rune that cannot be part of a word.
// RE2's \b is ASCII-only, which would treat "ñ" as a boundary.
const wordEdge = `[^\p{L}\p{N}_]`

// KeywordDetector reports every trigger of one category present in text
type KeywordDetector struct {
	category string
	kind     model.Kind
	matchers []matcher
}

type matcher struct {
	trigger string
	re      *regexp.Regexp // nil means plain containment
}

// NewKeywordDetector compiles the triggers of a category
func NewKeywordDetector(c rules.Category) (*KeywordDetector, error) {
	d := &KeywordDetector{
		category: c.Name,
		kind:     c.Kind,
		matchers: make([]matcher, 0, len(c.Triggers)),
	}

	for _, trigger := range c.Triggers {
		m := matcher{trigger: trigger}
		if needsWordBoundary(c.Match, trigger) {
			re, err := compileWord(trigger)
			if err != nil {
				return nil, fmt.Errorf("category %q trigger %q: %w", c.Name, trigger, err)
			}
			m.re = re
		}
		d.matchers = append(d.matchers, m)
	}

	return d, nil
}

// Category returns the category name
func (d *KeywordDetector) Category() string { return d.category }

// Kind returns the category kind
func (d *KeywordDetector) Kind() model.Kind { return d.kind }

// Detect returns one finding per trigger found anywhere in text, in trigger order
func (d *KeywordDetector) Detect(text string) []model.Finding {
	if text == "" {
		return nil
	}

	var findings []model.Finding
	for _, m := range d.matchers {
		offset := m.find(text)
		if offset < 0 {
			continue
		}
		findings = append(findings, model.Finding{
			Category: d.category,
			Kind:     d.kind,
			Trigger:  m.trigger,
			Offset:   offset,
		})
	}
	return dedupeFindings(findings)
}

func (m matcher) find(text string) int {
	if m.re == nil {
		return strings.Index(text, m.trigger)
	}
	loc := m.re.FindStringSubmatchIndex(text)
	if loc == nil {
		return -1
	}
	return loc[2]
}

// needsWordBoundary applies the category match mode; auto bounds single tokens only
func needsWordBoundary(mode rules.MatchMode, trigger string) bool {
	switch mode {
	case rules.MatchWord:
		return true
	case rules.MatchSubstring:
		return false
	default:
		return !strings.ContainsAny(trigger, " \t")
	}
}

func compileWord(trigger string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?:^|` + wordEdge + `)(` + regexp.QuoteMeta(trigger) + `)(?:$|` + wordEdge + `)`)
}

// CollapseSpace trims text and folds every whitespace run into one space,
// matching how rule tables normalize their trigger phrases.
func CollapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ContainsAny reports whether text contains any of phrases as a substring
func ContainsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// dedupeFindings removes repeated category/trigger pairs, keeping the first
func dedupeFindings(findings []model.Finding) []model.Finding {
	seen := make(map[string]bool, len(findings))
	var unique []model.Finding

	for _, f := range findings {
		key := f.Label()
		if !seen[key] {
			seen[key] = true
			unique = append(unique, f)
		}
	}

	return unique
}
