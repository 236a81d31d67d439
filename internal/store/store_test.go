package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/callaudit/internal/model"
)

func sampleEntry(callID string) Entry {
	rec := model.TranscriptRecord{
		CallID:   callID,
		Text:     "i am a real person, act now",
		Source:   "webhook",
		Metadata: map[string]string{"client": "tax"},
	}
	v := model.Verdict{
		Tier:         model.TierCriticalFail,
		Indicator:    model.TierCriticalFail.Indicator(),
		Findings:     []string{"identity-misrepresentation: real person", "risk: act now"},
		Sentiment:    -0.25,
		Drift:        0.55,
		Disclosure:   false,
		RulesVersion: "test-1",
	}
	return NewEntry(rec, v, true, time.Date(2026, 10, 16, 9, 30, 0, 123, time.UTC))
}

func storeImplementations(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "verdicts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemoryStore(0),
	}
}

func TestStore_RecordAndRecent(t *testing.T) {
	for name, s := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 1; i <= 3; i++ {
				require.NoError(t, s.Record(ctx, sampleEntry(fmt.Sprintf("call-%d", i))))
			}

			got, err := s.Recent(ctx, 2)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "call-3", got[0].CallID)
			assert.Equal(t, "call-2", got[1].CallID)
			assert.Greater(t, got[0].ID, got[1].ID)

			e := got[0]
			assert.Equal(t, model.TierCriticalFail, e.Tier)
			assert.Equal(t, "🚨", e.Indicator)
			assert.Equal(t, []string{"identity-misrepresentation: real person", "risk: act now"}, e.Findings)
			assert.InDelta(t, -0.25, e.Sentiment, 1e-9)
			assert.InDelta(t, 0.55, e.Drift, 1e-9)
			assert.Equal(t, "i am a real person, act now", e.Transcript)
			assert.Equal(t, map[string]string{"client": "tax"}, e.Metadata)
			assert.Equal(t, "test-1", e.RulesVersion)
			assert.True(t, e.AuditedAt.Equal(time.Date(2026, 10, 16, 9, 30, 0, 123, time.UTC)))
		})
	}
}

func TestStore_EmptyRecent(t *testing.T) {
	for name, s := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Recent(context.Background(), 10)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestStore_Closed(t *testing.T) {
	for name, s := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Close())
			require.NoError(t, s.Close())

			err := s.Record(context.Background(), sampleEntry("late"))
			assert.True(t, errors.Is(err, ErrClosed), "got %v", err)

			_, err = s.Recent(context.Background(), 1)
			assert.True(t, errors.Is(err, ErrClosed), "got %v", err)
		})
	}
}

func TestStore_ConcurrentRecord(t *testing.T) {
	for name, s := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					assert.NoError(t, s.Record(context.Background(), sampleEntry(fmt.Sprintf("c-%d", i))))
				}(i)
			}
			wg.Wait()

			got, err := s.Recent(context.Background(), 100)
			require.NoError(t, err)
			assert.Len(t, got, 20)
		})
	}
}

func TestNewEntry_OmitsTranscript(t *testing.T) {
	e := NewEntry(model.TranscriptRecord{CallID: "c", Text: "secret"}, model.Skipped("v1"), false, time.Now())
	assert.Empty(t, e.Transcript)
	assert.NotNil(t, e.Findings)
	assert.Equal(t, model.TierSkipped, e.Tier)
}

func TestMemoryStore_Capacity(t *testing.T) {
	s := NewMemoryStore(2)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Record(context.Background(), sampleEntry(fmt.Sprintf("c-%d", i))))
	}
	assert.Equal(t, 2, s.Count())

	got, err := s.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c-4", got[0].CallID)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultRecentLimit, clampLimit(0))
	assert.Equal(t, DefaultRecentLimit, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, MaxRecentLimit, clampLimit(MaxRecentLimit+1))
}

func TestOpen(t *testing.T) {
	s, err := Open(model.StoreConfig{Driver: "none"})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, s)

	s, err = Open(model.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(model.StoreConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "v.db")})
	require.NoError(t, err)
	assert.NoError(t, s.Close())

	_, err = Open(model.StoreConfig{Driver: "postgres"})
	assert.Error(t, err)
}
