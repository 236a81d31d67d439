package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/callaudit/internal/model"
	"github.com/ppiankov/callaudit/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Audit many transcripts listed in a file",
	Long: `Batch audits every transcript source listed in a file, one per line.
Blank lines and lines starting with # are skipped; duplicates are audited once.
Sources may be file paths, JSON payload files or http(s) URLs. URL fetches
are rate limited per host.

Each source gets a JSON and a Markdown report in the output directory, and
summary.json holds the tier histogram.

Example:
  callaudit batch calls.txt
  callaudit batch calls.txt --concurrency 8 --output-dir ./audit-reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	flags := batchCmd.Flags()
	flags.IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	flags.StringVar(&outputDir, "output-dir", "./callaudit-reports", "output directory for reports")
	flags.DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	flags.Bool("no-cache", false, "disable cache (force fresh fetch and scoring)")
	flags.Bool("no-footer", false, "disable footer in Markdown reports")
	flags.Bool("no-robots", false, "ignore robots.txt for URL sources")
	flags.String("store", "", "verdict store driver (sqlite, memory, none)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyScanFlags(cmd, cfg)
	if cmd.Flags().Changed("concurrency") || cfg.Concurrency.Workers <= 0 {
		cfg.Concurrency.Workers = concurrency
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  CallAudit Batch\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(stderr, "  Rules:        %s\n", a.table.Version())
	fmt.Fprintf(stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(a.pipeline, cfg.Concurrency.Workers,
		cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := a.pipeline.Renderer()
	used := make(map[string]int)
	for _, result := range results {
		if result.Error != nil {
			fmt.Fprintf(stderr, "✗ %s: %v\n", result.Source, result.Error)
			continue
		}

		slug := uniqueSlug(used, reportSlug(result.Report))
		if err := renderer.RenderJSON(result.Report, filepath.Join(outputDir, slug+".json")); err != nil {
			fmt.Fprintf(stderr, "✗ %s: failed to write JSON: %v\n", result.Source, err)
			continue
		}
		if err := renderer.RenderMarkdown(result.Report, filepath.Join(outputDir, slug+".md")); err != nil {
			fmt.Fprintf(stderr, "✗ %s: failed to write Markdown: %v\n", result.Source, err)
			continue
		}

		v := result.Report.Verdict
		fmt.Fprintf(stderr, "%s %-16s %s\n", v.Indicator, v.Tier, result.Source)
	}

	summary := worker.Summarize(results)
	if err := writeSummary(filepath.Join(outputDir, "summary.json"), summary); err != nil {
		return err
	}
	printSummary(stderr, summary, outputDir)

	return nil
}

func writeSummary(path string, s worker.Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func printSummary(w io.Writer, s worker.Summary, dir string) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Batch Complete\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Total:     %d sources\n", s.Total)
	fmt.Fprintf(w, "  Errors:    %d\n", s.Errors)
	fmt.Fprintf(w, "  Failed:    %d\n", s.Failed)
	for _, tier := range model.Tiers {
		if n := s.Tiers[tier]; n > 0 {
			fmt.Fprintf(w, "  %s %-16s %d\n", tier.Indicator(), tier, n)
		}
	}
	fmt.Fprintf(w, "  Output:    %s\n", dir)
	fmt.Fprintf(w, "\n")
}

// reportSlug names a report file after its source, falling back to the call id
func reportSlug(r *model.Report) string {
	base := r.Source
	if base == "" || base == "stdin" {
		base = r.CallID
	}
	base = strings.TrimSuffix(filepath.Base(strings.TrimRight(base, "/")), filepath.Ext(base))
	return sanitizeFilename(base)
}

// sanitizeFilename replaces characters that are unsafe in file names
func sanitizeFilename(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		case ' ':
			return '-'
		}
		return r
	}, s)

	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" || s == "." {
		s = "report"
	}
	return s
}

// uniqueSlug suffixes repeated slugs with a counter
func uniqueSlug(used map[string]int, slug string) string {
	used[slug]++
	if n := used[slug]; n > 1 {
		return fmt.Sprintf("%s-%d", slug, n)
	}
	return slug
}
