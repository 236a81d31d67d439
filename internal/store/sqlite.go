package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/callaudit/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS verdicts (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	call_id            TEXT    NOT NULL,
	source             TEXT    NOT NULL DEFAULT '',
	tier               TEXT    NOT NULL,
	indicator          TEXT    NOT NULL,
	findings           TEXT    NOT NULL,
	sentiment          REAL    NOT NULL,
	sentiment_degraded INTEGER NOT NULL DEFAULT 0,
	drift              REAL    NOT NULL DEFAULT 0,
	disclosure         INTEGER NOT NULL DEFAULT 0,
	rules_version      TEXT    NOT NULL DEFAULT '',
	transcript         TEXT    NOT NULL DEFAULT '',
	metadata           TEXT    NOT NULL DEFAULT '{}',
	audited_at         TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_verdicts_call_id ON verdicts(call_id);
`

// SQLiteStore persists entries in a SQLite database (pure Go driver)
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// OpenSQLite opens or creates the database at path and ensures the schema
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store: empty path")
	}

	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Record inserts an entry
func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	findings, err := json.Marshal(e.Findings)
	if err != nil {
		return fmt.Errorf("marshal findings: %w", err)
	}
	meta := []byte("{}")
	if len(e.Metadata) > 0 {
		if meta, err = json.Marshal(e.Metadata); err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verdicts (call_id, source, tier, indicator, findings, sentiment,
			sentiment_degraded, drift, disclosure, rules_version, transcript, metadata, audited_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CallID, e.Source, string(e.Tier), e.Indicator, string(findings), e.Sentiment,
		boolInt(e.SentimentDegraded), e.Drift, boolInt(e.Disclosure), e.RulesVersion,
		e.Transcript, string(meta), e.AuditedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert verdict %s: %w", e.CallID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, call_id, source, tier, indicator, findings, sentiment, sentiment_degraded,
			drift, disclosure, rules_version, transcript, metadata, audited_at
		FROM verdicts ORDER BY id DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []Entry{}
	for rows.Next() {
		var (
			e                    Entry
			tier, findings, meta string
			auditedAt            string
			degraded, disclosure int
		)
		if err := rows.Scan(&e.ID, &e.CallID, &e.Source, &tier, &e.Indicator, &findings,
			&e.Sentiment, &degraded, &e.Drift, &disclosure, &e.RulesVersion, &e.Transcript,
			&meta, &auditedAt); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}

		e.Tier = model.Tier(tier)
		e.SentimentDegraded = degraded != 0
		e.Disclosure = disclosure != 0
		if err := json.Unmarshal([]byte(findings), &e.Findings); err != nil {
			return nil, fmt.Errorf("decode findings of %s: %w", e.CallID, err)
		}
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of %s: %w", e.CallID, err)
			}
		}
		if e.AuditedAt, err = time.Parse(time.RFC3339Nano, auditedAt); err != nil {
			return nil, fmt.Errorf("decode audited_at of %s: %w", e.CallID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdicts: %w", err)
	}
	return entries, nil
}

// Close closes the database; further calls return ErrClosed
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
