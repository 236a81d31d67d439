package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/callaudit/internal/model"
)

// SourceAuditor audits one transcript source (file path, "-" or URL)
type SourceAuditor interface {
	AuditSource(ctx context.Context, src string) (*model.Report, error)
}

// AuditJob audits a single source
type AuditJob struct {
	Source  string
	Auditor SourceAuditor
	Limiter *Limiter
}

// Execute runs the audit after waiting for the source's host budget
func (j *AuditJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &AuditResult{Source: j.Source, Error: err}
	}
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.Source); err != nil {
			return &AuditResult{Source: j.Source, Error: fmt.Errorf("rate limit: %w", err)}
		}
	}

	report, err := j.Auditor.AuditSource(ctx, j.Source)
	return &AuditResult{Source: j.Source, Report: report, Error: err}
}

// AuditResult is the outcome of auditing one source
type AuditResult struct {
	Source string
	Report *model.Report
	Error  error
}

// Err returns the audit error, if any
func (r *AuditResult) Err() error { return r.Error }

// BatchProcessor audits many sources concurrently
type BatchProcessor struct {
	auditor SourceAuditor
	pool    *Pool
	limiter *Limiter
}

// NewBatchProcessor creates a batch processor. rps <= 0 disables per-host pacing.
func NewBatchProcessor(auditor SourceAuditor, workers int, rps float64, burst int) *BatchProcessor {
	return &BatchProcessor{
		auditor: auditor,
		pool:    NewPool(workers),
		limiter: NewLimiter(rps, burst),
	}
}

// Limiter returns the per-host limiter
func (b *BatchProcessor) Limiter() *Limiter { return b.limiter }

// ProcessSources audits every source; results keep input order
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []string) []*AuditResult {
	jobs := make([]Job, len(sources))
	for i, src := range sources {
		jobs[i] = &AuditJob{Source: src, Auditor: b.auditor, Limiter: b.limiter}
	}

	results := b.pool.Run(ctx, jobs)
	out := make([]*AuditResult, len(results))
	for i, r := range results {
		out[i] = r.(*AuditResult)
	}
	return out
}

// ProcessFile reads sources from a list file and audits them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AuditResult, error) {
	sources, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}
	return b.ProcessSources(ctx, sources), nil
}

// ReadSourcesFromFile reads one source per line, skipping blanks, "#"
// comments and duplicates
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		sources = append(sources, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return sources, nil
}

// Summary aggregates batch results by tier
type Summary struct {
	Total  int                `json:"total"`
	Errors int                `json:"errors"`
	Failed int                `json:"failed"` // Sources whose tier is a failing tier
	Tiers  map[model.Tier]int `json:"tiers"`
}

// Summarize counts results per tier
func Summarize(results []*AuditResult) Summary {
	s := Summary{Total: len(results), Tiers: make(map[model.Tier]int)}
	for _, r := range results {
		if r.Error != nil || r.Report == nil {
			s.Errors++
			continue
		}
		tier := r.Report.Verdict.Tier
		s.Tiers[tier]++
		if tier.Failed() {
			s.Failed++
		}
	}
	return s
}
