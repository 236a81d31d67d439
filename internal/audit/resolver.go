package audit

import (
	"math"

	"github.com/ppiankov/callaudit/internal/model"
)

// Signals summarizes which checks fired for one transcript
type Signals struct {
	Identity   int     // identity-misrepresentation findings
	Bias       int     // findings across all bias categories
	Risk       int     // risk-keyword findings
	Linguistic int     // linguistic-marker findings
	Polarity   float64 // sentiment used in the decision
}

// Resolve maps signals to exactly one tier. The first matching condition wins:
//
//	identity > bias > hostile tone > risk > linguistic > pass
//
// A polarity strictly below threshold counts as hostile.
func Resolve(s Signals, threshold float64) model.Tier {
	switch {
	case s.Identity > 0:
		return model.TierCriticalFail
	case s.Bias > 0:
		return model.TierFailBias
	case s.Polarity < threshold:
		return model.TierFailHostile
	case s.Risk > 0:
		return model.TierWarnRisk
	case s.Linguistic > 0:
		return model.TierPassLinguistic
	default:
		return model.TierPass
	}
}

// Drift estimates compliance drift from risk findings and negative tone.
// It is informational and never changes the tier.
func Drift(riskFindings int, polarity float64) float64 {
	d := float64(riskFindings) * 0.4
	if polarity < 0 {
		d += math.Abs(polarity) * 0.6
	}
	return math.Min(d, 1.0)
}

func countKinds(findings []model.Finding) Signals {
	var s Signals
	for _, f := range findings {
		switch f.Kind {
		case model.KindIdentity:
			s.Identity++
		case model.KindBias:
			s.Bias++
		case model.KindRisk:
			s.Risk++
		case model.KindLinguistic:
			s.Linguistic++
		}
	}
	return s
}
