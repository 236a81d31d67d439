package model

// Tier is the severity classification of a verdict
type Tier string

const (
	TierSkipped        Tier = "SKIPPED"         // Empty or blank transcript, nothing scanned
	TierCriticalFail   Tier = "CRITICAL_FAIL"   // Agent misrepresented itself as human
	TierFailBias       Tier = "FAIL_BIAS"       // Biased language detected
	TierFailHostile    Tier = "FAIL_HOSTILE"    // Sentiment polarity below the hostility threshold
	TierWarnRisk       Tier = "WARN_RISK"       // Risky sales/compliance language
	TierPassLinguistic Tier = "PASS_LINGUISTIC" // Clean, with cultural/linguistic markers noted
	TierPass           Tier = "PASS"            // Nothing fired
)

// Tiers lists every tier in resolution priority order, SKIPPED first
var Tiers = []Tier{
	TierSkipped,
	TierCriticalFail,
	TierFailBias,
	TierFailHostile,
	TierWarnRisk,
	TierPassLinguistic,
	TierPass,
}

// Indicator returns the fixed display symbol for the tier
func (t Tier) Indicator() string {
	switch t {
	case TierSkipped:
		return "⏭️"
	case TierCriticalFail:
		return "🚨"
	case TierFailBias:
		return "⚖️"
	case TierFailHostile:
		return "😡"
	case TierWarnRisk:
		return "⚠️"
	case TierPassLinguistic:
		return "🌐"
	case TierPass:
		return "✅"
	default:
		return "?"
	}
}

// Failed reports whether the tier is one of the failing tiers
func (t Tier) Failed() bool {
	switch t {
	case TierCriticalFail, TierFailBias, TierFailHostile:
		return true
	}
	return false
}

// Finding is a single labeled detection
type Finding struct {
	Category string `json:"category"`         // Rule category, e.g. "bias-gender"
	Kind     Kind   `json:"kind"`             // Category kind driving tier resolution
	Trigger  string `json:"trigger"`          // Phrase that matched
	Offset   int    `json:"offset"`           // Byte offset in the whitespace-collapsed transcript
	Context  string `json:"context,omitempty"` // Lookback window inspected (identity only)
}

// Label renders the finding as "{category}: {trigger}"
func (f Finding) Label() string {
	return f.Category + ": " + f.Trigger
}

// Kind groups rule categories for verdict resolution
type Kind string

const (
	KindIdentity   Kind = "identity"
	KindBias       Kind = "bias"
	KindRisk       Kind = "risk"
	KindLinguistic Kind = "linguistic"
)

// Verdict is the auditor's output for one transcript
type Verdict struct {
	Tier      Tier     `json:"tier"`
	Indicator string   `json:"indicator"`
	Findings  []string `json:"findings"`  // Ordered "{category}: {trigger}" labels
	Sentiment float64  `json:"sentiment"` // Polarity used in the decision, [-1, 1]

	// SentimentDegraded is set when the scorer failed and a neutral polarity was used
	SentimentDegraded bool `json:"sentiment_degraded,omitempty"`

	Details      []Finding `json:"details,omitempty"`       // Structured form of Findings, same order
	Drift        float64   `json:"drift"`                   // Compliance drift probability, informational
	Disclosure   bool      `json:"disclosure"`              // Recording/QA disclosure present, informational
	RulesVersion string    `json:"rules_version,omitempty"` // Rule table that produced the verdict
}

// Skipped returns the verdict for an empty transcript
func Skipped(rulesVersion string) Verdict {
	return Verdict{
		Tier:         TierSkipped,
		Indicator:    TierSkipped.Indicator(),
		Findings:     []string{},
		RulesVersion: rulesVersion,
	}
}

// FindingsOf returns the details of the given kind, in verdict order
func (v Verdict) FindingsOf(kind Kind) []Finding {
	var out []Finding
	for _, f := range v.Details {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}
