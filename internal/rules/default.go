package rules

import "github.com/ppiankov/callaudit/internal/model"

// DefaultVersion identifies the built-in table
const DefaultVersion = "builtin-2026.10"

// DefaultSpec returns the built-in rule table. Each call returns fresh slices.
func DefaultSpec() Spec {
	return Spec{
		Version:            DefaultVersion,
		LookbackChars:      Int(DefaultLookbackChars),
		HostilityThreshold: Float(DefaultHostilityThreshold),
		Identity: Identity{
			Triggers: []string{
				"real person",
				"real human",
				"human being",
				"live person",
				"i am human",
				"i'm human",
				"i am a person",
				"i'm a person",
			},
			DenialCues: []string{
				"not",
				"n't",
				"never",
				"neither",
				"nor ",
			},
		},
		Categories: []Category{
			{
				Name: "bias-gender",
				Kind: model.KindBias,
				Triggers: []string{
					"like a girl",
					"man's job",
					"women can't",
					"women are too emotional",
					"hysterical",
					"bossy",
				},
			},
			{
				Name: "bias-political",
				Kind: model.KindBias,
				Triggers: []string{
					"liberals are",
					"conservatives are",
					"democrats are",
					"republicans are",
					"libtard",
					"illegals",
				},
			},
			{
				Name: "bias-cultural",
				Kind: model.KindBias,
				Triggers: []string{
					"you people",
					"your kind",
					"those people",
					"go back to your country",
					"broken english",
					"speak english",
				},
			},
			{
				Name: "risk",
				Kind: model.KindRisk,
				Triggers: []string{
					"guaranteed",
					"risk-free",
					"no risk",
					"act now",
					"limited time offer",
					"wire transfer",
					"gift card",
					"social security number",
					"legal action",
					"final notice",
				},
			},
			{
				Name:  "linguistic-spanish",
				Kind:  model.KindLinguistic,
				Match: MatchWord,
				Triggers: []string{
					"hola",
					"gracias",
					"por favor",
					"que pasa",
					"buenos dias",
					"de nada",
				},
			},
			{
				Name:  "linguistic-aave",
				Kind:  model.KindLinguistic,
				Match: MatchWord,
				Triggers: []string{
					"finna",
					"ion",
					"trippin",
					"no cap",
					"bet",
				},
			},
		},
		Disclosures: []string{
			"recorded",
			"quality assurance",
		},
	}
}
