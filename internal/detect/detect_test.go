package detect

import (
	"strings"
	"testing"

	"github.com/ppiankov/callaudit/internal/model"
	"github.com/ppiankov/callaudit/internal/rules"
)

func defaultScanner() *ContextScanner {
	table := rules.Default()
	return NewContextScanner(table.Identity(), table.LookbackChars())
}

func TestContextScanner_NegationSuppressed(t *testing.T) {
	findings := defaultScanner().Scan("i am not a real person, i'm an automated assistant")
	for _, f := range findings {
		if f.Trigger == "real person" {
			t.Fatalf("expected negated 'real person' to be suppressed, got %+v", f)
		}
	}
}

func TestContextScanner_PositiveViolation(t *testing.T) {
	findings := defaultScanner().Scan("i am a real person, trust me")
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d: %+v", len(findings), findings)
	}
	f := findings[0]
	if f.Label() != "identity-misrepresentation: real person" {
		t.Errorf("unexpected label %q", f.Label())
	}
	if f.Kind != model.KindIdentity {
		t.Errorf("expected identity kind, got %s", f.Kind)
	}
	if f.Offset != strings.Index("i am a real person, trust me", "real person") {
		t.Errorf("unexpected offset %d", f.Offset)
	}
}

func TestContextScanner_OnlyFirstOccurrenceChecked(t *testing.T) {
	// The first occurrence is negated; the second one is never examined.
	text := "i'm not a real person. okay fine, honestly i am a real person"
	findings := defaultScanner().Scan(text)
	if len(findings) != 0 {
		t.Errorf("expected no findings when the first occurrence is negated, got %+v", findings)
	}
}

func TestContextScanner_CueOutsideWindowIgnored(t *testing.T) {
	text := "not that it matters for this particular question, but i am a real person"
	findings := defaultScanner().Scan(text)
	if len(findings) != 1 {
		t.Fatalf("expected cue outside the window to be ignored, got %+v", findings)
	}
}

// Cues are substrings of the window, so "not" inside "notice" still suppresses.
func TestContextScanner_CueInsideWordSuppresses(t *testing.T) {
	if got := defaultScanner().Scan("notice: i am a real person"); len(got) != 0 {
		t.Errorf("expected substring cue to suppress, got %+v", got)
	}
}

func TestContextScanner_EmptyText(t *testing.T) {
	if got := defaultScanner().Scan(""); got != nil {
		t.Errorf("expected nil findings for empty text, got %+v", got)
	}
}

func TestFirstUnnegated(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		trigger string
		found   bool
	}{
		{"absent", "hello there", "real person", false},
		{"empty trigger", "hello", "", false},
		{"at start", "real person here", "real person", true},
		{"negated", "i'm not a real person", "real person", false},
		{"contraction", "i wasn't a real person", "real person", false},
		{"clean", "yes i am a real person", "real person", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, got := FirstUnnegated(tt.text, tt.trigger, 30, []string{"not", "n't"})
			if got != tt.found {
				t.Errorf("FirstUnnegated(%q, %q) = %v, want %v", tt.text, tt.trigger, got, tt.found)
			}
		})
	}
}

func TestLookback(t *testing.T) {
	text := "abcdefghij"
	if got := Lookback(text, 5, 3); got != "cde" {
		t.Errorf("expected 'cde', got %q", got)
	}
	if got := Lookback(text, 2, 10); got != "ab" {
		t.Errorf("expected clipping at start, got %q", got)
	}
	if got := Lookback(text, 0, 10); got != "" {
		t.Errorf("expected empty window at offset 0, got %q", got)
	}
	if got := Lookback(text, 50, 2); got != "ij" {
		t.Errorf("expected end clamped to len, got %q", got)
	}

	// Window counts characters, not bytes
	if got := Lookback("señor x", 6, 3); got != "ñor" {
		t.Errorf("expected rune-aware window 'ñor', got %q", got)
	}
}

func TestKeywordDetector_WordBoundary(t *testing.T) {
	d, err := NewKeywordDetector(rules.Category{
		Name:     "linguistic-aave",
		Kind:     model.KindLinguistic,
		Match:    rules.MatchAuto,
		Triggers: []string{"ion", "bet", "no cap"},
	})
	if err != nil {
		t.Fatalf("NewKeywordDetector: %v", err)
	}

	if got := d.Detect("thanks for the information, it is better now"); len(got) != 0 {
		t.Errorf("expected no matches inside longer words, got %+v", got)
	}

	got := d.Detect("ion know, bet. no cap")
	if len(got) != 3 {
		t.Fatalf("expected 3 standalone matches, got %+v", got)
	}
	if got[0].Trigger != "ion" || got[0].Offset != 0 {
		t.Errorf("unexpected first finding %+v", got[0])
	}
	if got[1].Trigger != "bet" || got[1].Offset != strings.Index("ion know, bet. no cap", "bet") {
		t.Errorf("unexpected second finding %+v", got[1])
	}
}

func TestKeywordDetector_UnicodeBoundary(t *testing.T) {
	d, err := NewKeywordDetector(rules.Category{
		Name:     "linguistic-spanish",
		Kind:     model.KindLinguistic,
		Match:    rules.MatchWord,
		Triggers: []string{"señor"},
	})
	if err != nil {
		t.Fatalf("NewKeywordDetector: %v", err)
	}

	if got := d.Detect("buenas tardes señora"); len(got) != 0 {
		t.Errorf("expected 'señor' not to match inside 'señora', got %+v", got)
	}
	if got := d.Detect("sí, señor."); len(got) != 1 {
		t.Errorf("expected 'señor' to match, got %+v", got)
	}
}

func TestKeywordDetector_DedupesRepeatedPhrase(t *testing.T) {
	d, err := NewKeywordDetector(rules.Category{
		Name:     "risk",
		Kind:     model.KindRisk,
		Triggers: []string{"act now", "guaranteed"},
	})
	if err != nil {
		t.Fatalf("NewKeywordDetector: %v", err)
	}

	got := d.Detect("act now! seriously, act now. returns guaranteed, guaranteed!")
	if len(got) != 2 {
		t.Fatalf("expected one finding per phrase, got %+v", got)
	}
	if got[0].Label() != "risk: act now" || got[1].Label() != "risk: guaranteed" {
		t.Errorf("unexpected findings order: %q, %q", got[0].Label(), got[1].Label())
	}
}

func TestKeywordDetector_SubstringForPhrases(t *testing.T) {
	d, err := NewKeywordDetector(rules.Category{
		Name:     "bias-cultural",
		Kind:     model.KindBias,
		Triggers: []string{"you people"},
	})
	if err != nil {
		t.Fatalf("NewKeywordDetector: %v", err)
	}

	if got := d.Detect("honestly, you people never listen"); len(got) != 1 {
		t.Errorf("expected phrase match, got %+v", got)
	}
}

func TestKeywordDetector_RegexMetacharactersQuoted(t *testing.T) {
	d, err := NewKeywordDetector(rules.Category{
		Name:     "risk",
		Kind:     model.KindRisk,
		Match:    rules.MatchWord,
		Triggers: []string{"100%"},
	})
	if err != nil {
		t.Fatalf("NewKeywordDetector: %v", err)
	}
	if got := d.Detect("it's 100% safe"); len(got) != 1 {
		t.Errorf("expected literal match, got %+v", got)
	}
	if got := d.Detect("it's 1000 safe"); len(got) != 0 {
		t.Errorf("expected no match, got %+v", got)
	}
}

func TestContainsAny(t *testing.T) {
	if !ContainsAny("this call may be recorded", []string{"recorded", "quality assurance"}) {
		t.Error("expected disclosure match")
	}
	if ContainsAny("hello", []string{"", "recorded"}) {
		t.Error("expected no match")
	}
}

func TestCollapseSpace(t *testing.T) {
	tests := map[string]string{
		"por  favor":             "por favor",
		" gracias,\tpor\nfavor ": "gracias, por favor",
		"already clean":          "already clean",
		"\n\t ":                  "",
	}
	for in, want := range tests {
		if got := CollapseSpace(in); got != want {
			t.Errorf("CollapseSpace(%q) = %q, want %q", in, got, want)
		}
	}
}
