package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ppiankov/callaudit/internal/audit"
	"github.com/ppiankov/callaudit/internal/cache"
	"github.com/ppiankov/callaudit/internal/ingest"
	"github.com/ppiankov/callaudit/internal/model"
	"github.com/ppiankov/callaudit/internal/relay"
	"github.com/ppiankov/callaudit/internal/store"
	"github.com/ppiankov/callaudit/internal/util"
)

// Pipeline resolves transcripts, audits them, then hands verdicts to the
// store and relay. Downstream collaborators run only after the verdict
// exists and their failures never change it.
type Pipeline struct {
	auditor  atomic.Pointer[audit.Auditor]
	fetcher  *Fetcher
	robots   *util.RobotsChecker
	sink     store.Sink
	relay    *relay.Dispatcher
	renderer *Renderer
	config   *model.Config
	logger   *zap.Logger
	stdin    io.Reader
	now      func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithSink persists every verdict to s
func WithSink(s store.Sink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithRelay forwards every verdict through d
func WithRelay(d *relay.Dispatcher) Option {
	return func(p *Pipeline) { p.relay = d }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithCache caches fetched transcript documents
func WithCache(c cache.Cache) Option {
	return func(p *Pipeline) { p.fetcher.WithCache(c, p.config.Cache.DiskTTL) }
}

// WithStdin sets the reader used for the "-" source
func WithStdin(r io.Reader) Option {
	return func(p *Pipeline) { p.stdin = r }
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, auditor *audit.Auditor, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher: NewFetcher(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes,
			cfg.HTTP.InsecureTLS, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy),
		sink:     store.Nop{},
		renderer: NewRenderer(cfg.Output.IncludeFooter),
		config:   cfg,
		logger:   zap.NewNop(),
		stdin:    os.Stdin,
		now:      time.Now,
	}
	if cfg.HTTP.RespectRobots {
		p.robots = util.NewRobotsChecker(util.NormalizeUserAgent(cfg.HTTP.UserAgent), cfg.HTTP.Timeout)
	}
	p.auditor.Store(auditor)

	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Auditor returns the auditor currently in use
func (p *Pipeline) Auditor() *audit.Auditor { return p.auditor.Load() }

// SetAuditor swaps the auditor; in-flight audits finish with the previous one
func (p *Pipeline) SetAuditor(a *audit.Auditor) {
	if a != nil {
		p.auditor.Store(a)
	}
}

// AuditRecord audits one normalized record, then persists and relays the verdict
func (p *Pipeline) AuditRecord(ctx context.Context, rec model.TranscriptRecord) *model.Report {
	start := p.now()
	verdict := p.Auditor().AuditRecord(ctx, rec)

	report := &model.Report{
		CallID:     rec.CallID,
		Source:     rec.Source,
		AuditedAt:  start.UTC(),
		Characters: utf8.RuneCountInString(rec.Text),
		Verdict:    verdict,
	}
	if p.config.Output.IncludeTranscript {
		report.Transcript = rec.Text
	}

	p.logger.Info("audited transcript",
		zap.String("call_id", rec.CallID),
		zap.String("source", rec.Source),
		zap.String("tier", string(verdict.Tier)),
		zap.Int("findings", len(verdict.Findings)),
		zap.Float64("sentiment", verdict.Sentiment),
		zap.Bool("sentiment_degraded", verdict.SentimentDegraded),
		zap.Duration("elapsed", p.now().Sub(start)),
	)

	p.persist(ctx, rec, verdict, report.AuditedAt)
	p.relay.Dispatch(relay.NewEvent(rec.CallID, verdict, report.AuditedAt))

	return report
}

// persist writes the entry even if the caller's context is already cancelled
func (p *Pipeline) persist(ctx context.Context, rec model.TranscriptRecord, v model.Verdict, at time.Time) {
	timeout := p.config.Server.SinkTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	entry := store.NewEntry(rec, v, p.config.Output.IncludeTranscript, at)
	if err := p.sink.Record(sinkCtx, entry); err != nil {
		p.logger.Error("persist verdict failed", zap.String("call_id", rec.CallID), zap.Error(err))
	}
}

// AuditText audits raw transcript text from the given source label
func (p *Pipeline) AuditText(ctx context.Context, text, source string) *model.Report {
	return p.AuditRecord(ctx, ingest.FromText(text, source))
}

// AuditSource resolves a file path, "-" or URL and audits it
func (p *Pipeline) AuditSource(ctx context.Context, src string) (*model.Report, error) {
	rec, meta, err := p.resolve(ctx, src)
	if err != nil {
		return nil, err
	}

	report := p.AuditRecord(ctx, rec)
	report.FetchMeta = meta
	return report, nil
}

// Renderer returns the report renderer
func (p *Pipeline) Renderer() *Renderer { return p.renderer }

// RenderReport renders the report to the specified outputs
func (p *Pipeline) RenderReport(w io.Writer, report *model.Report, jsonPath, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	p.renderer.RenderSummary(w, report)
	return nil
}
