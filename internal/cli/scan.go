package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/callaudit/internal/model"
)

// ErrVerdictFailed is returned by scan --fail when the verdict is a failing tier
var ErrVerdictFailed = errors.New("verdict failed")

var (
	outJSON    string
	outMD      string
	scanText   string
	scanTime   time.Duration
	failOnTier bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [file | - | url]",
	Short: "Audit a single call transcript",
	Long: `Scan audits one transcript and prints its verdict.

The transcript can be a plain-text file, a JSON webhook payload (*.json),
stdin ("-"), inline text (--text) or an http(s) URL. URLs honour robots.txt
and HTML pages are reduced to their visible text.

Example:
  callaudit scan call-0142.txt
  callaudit scan payload.json --json verdict.json --md verdict.md
  cat call.txt | callaudit scan -
  callaudit scan --text "hi, i'm a real human" --fail
  callaudit scan https://transcripts.example.com/calls/0142 --sentiment openai`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	flags := scanCmd.Flags()
	flags.StringVar(&outJSON, "json", "", "output JSON path (optional)")
	flags.StringVar(&outMD, "md", "", "output Markdown path (optional)")
	flags.StringVar(&scanText, "text", "", "audit inline transcript text")
	flags.DurationVar(&scanTime, "timeout", 2*time.Minute, "overall scan timeout")
	flags.BoolVar(&failOnTier, "fail", false, "exit non-zero when the verdict is a failing tier")

	flags.String("ua", "", "HTTP User-Agent for URL sources")
	flags.Bool("no-cache", false, "disable cache (force fresh fetch and scoring)")
	flags.Bool("no-footer", false, "disable footer in Markdown reports")
	flags.Bool("insecure", false, "skip TLS certificate verification for URL sources")
	flags.Bool("no-robots", false, "ignore robots.txt for URL sources")
	flags.Bool("include-transcript", false, "include the transcript in reports and the store")
	flags.String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	flags.String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	flags.String("store", "", "verdict store driver (sqlite, memory, none)")
}

// applyScanFlags copies explicitly set flags over the loaded config
func applyScanFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("ua") {
		cfg.HTTP.UserAgent, _ = flags.GetString("ua")
	}
	if v, _ := flags.GetBool("no-cache"); v {
		cfg.Cache.Enabled = false
	}
	if v, _ := flags.GetBool("no-footer"); v {
		cfg.Output.IncludeFooter = false
	}
	if v, _ := flags.GetBool("insecure"); v {
		cfg.HTTP.InsecureTLS = true
	}
	if v, _ := flags.GetBool("no-robots"); v {
		cfg.HTTP.RespectRobots = false
	}
	if v, _ := flags.GetBool("include-transcript"); v {
		cfg.Output.IncludeTranscript = true
	}
	if flags.Changed("http-proxy") {
		cfg.HTTP.HTTPProxy, _ = flags.GetString("http-proxy")
	}
	if flags.Changed("https-proxy") {
		cfg.HTTP.HTTPSProxy, _ = flags.GetString("https-proxy")
	}
	if flags.Changed("store") {
		cfg.Store.Driver, _ = flags.GetString("store")
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && scanText == "" {
		return fmt.Errorf("a transcript source or --text is required")
	}
	if len(args) == 1 && scanText != "" {
		return fmt.Errorf("use either a transcript source or --text, not both")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyScanFlags(cmd, cfg)

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), scanTime)
	defer cancel()

	if viper.GetBool("output.verbose") {
		fmt.Fprintf(os.Stderr, "Rules:     %s\n", a.table.Version())
		fmt.Fprintf(os.Stderr, "Sentiment: %s\n", a.pipeline.Auditor().Scorer().Name())
		fmt.Fprintf(os.Stderr, "Cache:     %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	var report *model.Report
	if scanText != "" {
		report = a.pipeline.AuditText(ctx, scanText, "inline")
	} else {
		report, err = a.pipeline.AuditSource(ctx, args[0])
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
	}

	if err := a.pipeline.RenderReport(cmd.OutOrStdout(), report, outJSON, outMD, cfg.Output.Verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if failOnTier && report.Verdict.Tier.Failed() {
		return fmt.Errorf("%w: %s", ErrVerdictFailed, report.Verdict.Tier)
	}
	return nil
}
