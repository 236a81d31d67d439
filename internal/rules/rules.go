// Package rules holds the versioned, immutable rule tables the auditor runs
// against. A table is loaded once (built-in default or YAML file) and injected
// into the auditor; reloading produces a new table, never mutates an old one.
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/callaudit/internal/model"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultLookbackChars is how many characters before an identity trigger
	// are searched for a denial cue.
	DefaultLookbackChars = 30

	// DefaultHostilityThreshold is the polarity below which a transcript is hostile.
	DefaultHostilityThreshold = -0.5

	// IdentityCategory is the category name used for identity findings.
	IdentityCategory = "identity-misrepresentation"
)

// ErrInvalidTable is returned when a rule table fails validation
var ErrInvalidTable = errors.New("invalid rule table")

// MatchMode controls how a category's triggers are located in text
type MatchMode string

const (
	MatchAuto      MatchMode = "auto"      // word boundary for single tokens, substring for phrases
	MatchWord      MatchMode = "word"      // always word boundary
	MatchSubstring MatchMode = "substring" // always plain containment
)

// Identity is the identity-misrepresentation rule: triggers plus the denial
// cues that suppress them when found in the lookback window.
type Identity struct {
	Triggers   []string `yaml:"triggers"`
	DenialCues []string `yaml:"denial_cues"`
}

// Category is a non-identity rule category
type Category struct {
	Name     string     `yaml:"name"`
	Kind     model.Kind `yaml:"kind"`
	Match    MatchMode  `yaml:"match,omitempty"`
	Triggers []string   `yaml:"triggers"`
}

// Spec is the on-disk shape of a rule table. A nil LookbackChars or
// HostilityThreshold takes the default; an explicit zero is kept.
type Spec struct {
	Version            string     `yaml:"version"`
	LookbackChars      *int       `yaml:"lookback_chars,omitempty"`
	HostilityThreshold *float64   `yaml:"hostility_threshold,omitempty"`
	Identity           Identity   `yaml:"identity"`
	Categories         []Category `yaml:"categories"`
	Disclosures        []string   `yaml:"disclosures,omitempty"`
}

// Table is a validated, normalized rule table. It is safe for concurrent use
// because nothing mutates it after construction.
type Table struct {
	spec Spec
	hash string
}

// New validates and normalizes spec into a Table
func New(spec Spec) (*Table, error) {
	normalized := normalize(spec)
	if err := validate(normalized); err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("marshal rule table: %w", err)
	}
	sum := sha256.Sum256(data)

	return &Table{
		spec: normalized,
		hash: "sha256:" + hex.EncodeToString(sum[:]),
	}, nil
}

// Default returns the built-in rule table
func Default() *Table {
	t, err := New(DefaultSpec())
	if err != nil {
		panic(fmt.Sprintf("built-in rule table is invalid: %v", err))
	}
	return t
}

// Load reads a rule table from a YAML file. An empty path returns the built-in table.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule table: %w", err)
	}

	return Parse(data)
}

// Parse decodes a YAML rule table
func Parse(data []byte) (*Table, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalidTable, err)
	}
	return New(spec)
}

// Version returns the table's declared version
func (t *Table) Version() string { return t.spec.Version }

// Hash returns a content hash of the normalized table
func (t *Table) Hash() string { return t.hash }

// LookbackChars returns the identity negation window size
func (t *Table) LookbackChars() int { return *t.spec.LookbackChars }

// HostilityThreshold returns the polarity threshold for FAIL_HOSTILE
func (t *Table) HostilityThreshold() float64 { return *t.spec.HostilityThreshold }

// Identity returns a copy of the identity rule
func (t *Table) Identity() Identity {
	return Identity{
		Triggers:   clone(t.spec.Identity.Triggers),
		DenialCues: clone(t.spec.Identity.DenialCues),
	}
}

// Categories returns copies of the non-identity categories in table order
func (t *Table) Categories() []Category {
	out := make([]Category, len(t.spec.Categories))
	for i, c := range t.spec.Categories {
		c.Triggers = clone(c.Triggers)
		out[i] = c
	}
	return out
}

// Disclosures returns the recording-disclosure phrases
func (t *Table) Disclosures() []string { return clone(t.spec.Disclosures) }

// Spec returns a deep copy of the normalized table
func (t *Table) Spec() Spec {
	s := t.spec
	s.LookbackChars = Int(t.LookbackChars())
	s.HostilityThreshold = Float(t.HostilityThreshold())
	s.Identity = t.Identity()
	s.Categories = t.Categories()
	s.Disclosures = t.Disclosures()
	return s
}

// Marshal renders the normalized table as YAML
func (t *Table) Marshal() ([]byte, error) {
	return yaml.Marshal(t.Spec())
}

// normalize lower-cases and trims triggers, drops empties and duplicates, and fills defaults
func normalize(spec Spec) Spec {
	out := Spec{
		Version:            strings.TrimSpace(spec.Version),
		LookbackChars:      Int(DefaultLookbackChars),
		HostilityThreshold: Float(DefaultHostilityThreshold),
		Identity: Identity{
			Triggers:   normalizePhrases(spec.Identity.Triggers),
			DenialCues: normalizeCues(spec.Identity.DenialCues),
		},
		Disclosures: normalizePhrases(spec.Disclosures),
	}

	if out.Version == "" {
		out.Version = "unversioned"
	}
	if spec.LookbackChars != nil {
		out.LookbackChars = Int(*spec.LookbackChars)
	}
	if spec.HostilityThreshold != nil {
		out.HostilityThreshold = Float(*spec.HostilityThreshold)
	}

	for _, c := range spec.Categories {
		match := c.Match
		if match == "" {
			match = MatchAuto
		}
		out.Categories = append(out.Categories, Category{
			Name:     strings.ToLower(strings.TrimSpace(c.Name)),
			Kind:     model.Kind(strings.ToLower(strings.TrimSpace(string(c.Kind)))),
			Match:    match,
			Triggers: normalizePhrases(c.Triggers),
		})
	}

	return out
}

func validate(spec Spec) error {
	if n := *spec.LookbackChars; n < 0 {
		return fmt.Errorf("%w: lookback_chars must be >= 0, got %d", ErrInvalidTable, n)
	}
	if th := *spec.HostilityThreshold; th < -1 || th > 1 {
		return fmt.Errorf("%w: hostility_threshold must be within [-1, 1], got %v", ErrInvalidTable, th)
	}

	seen := map[string]bool{IdentityCategory: true}
	for i, c := range spec.Categories {
		if c.Name == "" {
			return fmt.Errorf("%w: category %d has no name", ErrInvalidTable, i)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidTable, c.Name)
		}
		seen[c.Name] = true

		switch c.Kind {
		case model.KindBias, model.KindRisk, model.KindLinguistic:
		case model.KindIdentity:
			return fmt.Errorf("%w: category %q: identity rules belong in the identity section", ErrInvalidTable, c.Name)
		default:
			return fmt.Errorf("%w: category %q has unknown kind %q", ErrInvalidTable, c.Name, c.Kind)
		}

		switch c.Match {
		case MatchAuto, MatchWord, MatchSubstring:
		default:
			return fmt.Errorf("%w: category %q has unknown match mode %q", ErrInvalidTable, c.Name, c.Match)
		}

		if len(c.Triggers) == 0 {
			return fmt.Errorf("%w: category %q has no triggers", ErrInvalidTable, c.Name)
		}
	}

	return nil
}

func normalizePhrases(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.Join(strings.Fields(strings.ToLower(p)), " ")
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// normalizeCues keeps whitespace as written, so a padded cue like "nor "
// only matches the standalone word.
func normalizeCues(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.ToLower(c)
		if strings.TrimSpace(c) == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Int returns a pointer to n, for building a Spec in code
func Int(n int) *int { return &n }

// Float returns a pointer to f, for building a Spec in code
func Float(f float64) *float64 { return &f }

func clone(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
