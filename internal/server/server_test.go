package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/callaudit/internal/audit"
	"github.com/ppiankov/callaudit/internal/model"
	"github.com/ppiankov/callaudit/internal/pipeline"
	"github.com/ppiankov/callaudit/internal/rules"
	"github.com/ppiankov/callaudit/internal/sentiment"
	"github.com/ppiankov/callaudit/internal/store"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *store.MemoryStore) {
	t.Helper()

	cfg := model.DefaultConfig()
	cfg.HTTP.RespectRobots = false
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.MaxBodyBytes = 256

	a, err := audit.New(rules.Default(), sentiment.NewLexicon(), nil)
	require.NoError(t, err)

	mem := store.NewMemoryStore(100)
	p := pipeline.NewPipeline(cfg, a, pipeline.WithSink(mem))
	opts = append([]Option{WithStore(mem), WithVersion("test")}, opts...)
	return New(cfg.Server, p, opts...), mem
}

func TestHandleRoot(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "online", body.Status)
	assert.Equal(t, ServiceName, body.Service)
	assert.Equal(t, rules.DefaultVersion, body.RulesVersion)
	assert.Equal(t, "lexicon", body.Scorer)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleAuditCall(t *testing.T) {
	s, mem := newTestServer(t)
	h := s.Handler()

	payload := `{"call_id":"vapi-42","transcript_text":"Hola! This call is recorded. Gracias","metadata":{"agent":"a1"}}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/audit-call", strings.NewReader(payload)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report model.Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, "vapi-42", report.CallID)
	assert.Equal(t, model.TierPassLinguistic, report.Verdict.Tier)
	assert.Equal(t, []string{"linguistic-spanish: hola", "linguistic-spanish: gracias"}, report.Verdict.Findings)
	assert.True(t, report.Verdict.Disclosure)

	require.Equal(t, 1, mem.Count())
	entries, err := mem.Recent(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "a1", entries[0].Metadata["agent"])
}

func TestHandleAuditCall_Shapes(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		name    string
		payload string
		tier    model.Tier
	}{
		{"message artifact", `{"message":{"call":{"id":"m1"},"artifact":{"transcript":"I'm a real human"}}}`, model.TierCriticalFail},
		{"messages turns", `{"messages":[{"role":"agent","content":"act now"}]}`, model.TierWarnRisk},
		{"empty transcript", `{"call_id":"e1","transcript_text":"   "}`, model.TierSkipped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/audit-call", strings.NewReader(tt.payload)))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var report model.Report
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
			assert.Equal(t, tt.tier, report.Verdict.Tier)
			assert.NotEmpty(t, report.CallID)
		})
	}
}

func TestHandleAuditCall_Rejects(t *testing.T) {
	s, mem := newTestServer(t)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit-call", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/audit-call", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/audit-call", strings.NewReader(`{"call_id":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	big := `{"transcript_text":"` + strings.Repeat("a", 1024) + `"}`
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/audit-call", strings.NewReader(big)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	assert.Equal(t, 0, mem.Count())
}

func TestHandleVerdicts(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	for _, id := range []string{"c1", "c2", "c3"} {
		payload := `{"call_id":"` + id + `","transcript_text":"hello"}`
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/audit-call", strings.NewReader(payload)))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/verdicts?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body verdictsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "c3", body.Verdicts[0].CallID)
	assert.Equal(t, "c2", body.Verdicts[1].CallID)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/verdicts?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServe_GracefulShutdown(t *testing.T) {
	s, _ := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	url := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get(url + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_ReloadsRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: v1\ncategories: [{name: risk, kind: risk, triggers: [act now]}]\n"), 0o644))

	s, _ := newTestServer(t, WithRuleWatch(path))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register before editing
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("version: v2\ncategories: [{name: risk, kind: risk, triggers: [refund]}]\n"), 0o644))

	require.Eventually(t, func() bool {
		return s.pipeline.Auditor().Table().Version() == "v2"
	}, 5*time.Second, 20*time.Millisecond)

	report := s.pipeline.AuditText(context.Background(), "we can refund you", "inline")
	assert.Equal(t, model.TierWarnRisk, report.Verdict.Tier)
	assert.Equal(t, "lexicon", s.pipeline.Auditor().Scorer().Name())
}
