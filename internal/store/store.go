// Package store persists audit verdicts.
//
// A Sink only receives entries. A Store can also list the most recent ones
// for the webhook API. Stores are written after a verdict is computed and
// never influence it.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/callaudit/internal/model"
)

// ErrClosed is returned by operations on a closed store
var ErrClosed = errors.New("store closed")

// DefaultRecentLimit caps Recent when the caller passes a non-positive limit
const DefaultRecentLimit = 50

// MaxRecentLimit is the largest page Recent will return
const MaxRecentLimit = 500

// Entry is one persisted verdict
type Entry struct {
	ID                int64             `json:"id"`
	CallID            string            `json:"call_id"`
	Source            string            `json:"source,omitempty"`
	Tier              model.Tier        `json:"tier"`
	Indicator         string            `json:"indicator"`
	Findings          []string          `json:"findings"`
	Sentiment         float64           `json:"sentiment"`
	SentimentDegraded bool              `json:"sentiment_degraded,omitempty"`
	Drift             float64           `json:"drift"`
	Disclosure        bool              `json:"disclosure"`
	RulesVersion      string            `json:"rules_version,omitempty"`
	Transcript        string            `json:"transcript,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	AuditedAt         time.Time         `json:"audited_at"`
}

// NewEntry builds an entry from a record and its verdict. The transcript is
// kept only when withTranscript is set.
func NewEntry(rec model.TranscriptRecord, v model.Verdict, withTranscript bool, at time.Time) Entry {
	e := Entry{
		CallID:            rec.CallID,
		Source:            rec.Source,
		Tier:              v.Tier,
		Indicator:         v.Indicator,
		Findings:          v.Findings,
		Sentiment:         v.Sentiment,
		SentimentDegraded: v.SentimentDegraded,
		Drift:             v.Drift,
		Disclosure:        v.Disclosure,
		RulesVersion:      v.RulesVersion,
		Metadata:          rec.Metadata,
		AuditedAt:         at.UTC(),
	}
	if e.Findings == nil {
		e.Findings = []string{}
	}
	if withTranscript {
		e.Transcript = rec.Text
	}
	return e
}

// Sink receives verdict entries
type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// Store is a Sink that can also list recent entries, newest first
type Store interface {
	Sink
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Open builds the store selected by cfg
func Open(cfg model.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return OpenSQLite(cfg.DSN)
	case "memory":
		return NewMemoryStore(0), nil
	case "", "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s (supported: sqlite, memory, none)", cfg.Driver)
	}
}

// Nop discards every entry
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }
func (Nop) Recent(context.Context, int) ([]Entry, error) { return []Entry{}, nil }
func (Nop) Close() error { return nil }

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		return MaxRecentLimit
	}
	return limit
}
