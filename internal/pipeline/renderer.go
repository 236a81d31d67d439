package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/callaudit/internal/model"
)

// Renderer writes audit reports as JSON, Markdown or a terminal summary
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes a human-readable Markdown report
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(r.Markdown(report)))
}

// Markdown renders the report as a Markdown document
func (r *Renderer) Markdown(report *model.Report) string {
	v := report.Verdict
	var b strings.Builder

	fmt.Fprintf(&b, "# Call Audit: %s\n\n", report.CallID)
	fmt.Fprintf(&b, "**Verdict:** %s %s\n\n", v.Indicator, v.Tier)
	fmt.Fprintf(&b, "| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Source | %s |\n", report.Source)
	fmt.Fprintf(&b, "| Audited at | %s |\n", report.AuditedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "| Characters | %d |\n", report.Characters)
	fmt.Fprintf(&b, "| Sentiment | %.3f |\n", v.Sentiment)
	if v.SentimentDegraded {
		fmt.Fprintf(&b, "| Sentiment degraded | yes |\n")
	}
	fmt.Fprintf(&b, "| Drift | %.2f |\n", v.Drift)
	fmt.Fprintf(&b, "| Disclosure | %s |\n", yesNo(v.Disclosure))
	if v.RulesVersion != "" {
		fmt.Fprintf(&b, "| Rules | %s |\n", v.RulesVersion)
	}
	if report.FetchMeta != nil {
		fmt.Fprintf(&b, "| HTTP status | %d |\n", report.FetchMeta.StatusCode)
		if report.FetchMeta.Cached {
			fmt.Fprintf(&b, "| Cached | yes |\n")
		}
	}
	b.WriteString("\n")

	b.WriteString("## Findings\n\n")
	switch {
	case len(v.Details) > 0:
		b.WriteString("| Category | Kind | Trigger | Offset |\n|---|---|---|---|\n")
		for _, f := range v.Details {
			fmt.Fprintf(&b, "| %s | %s | `%s` | %d |\n", f.Category, f.Kind, f.Trigger, f.Offset)
		}
		b.WriteString("\n")
	case len(v.Findings) > 0:
		for _, f := range v.Findings {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
		b.WriteString("\n")
	default:
		b.WriteString("_No findings._\n\n")
	}

	if report.Transcript != "" {
		b.WriteString("## Transcript\n\n```\n")
		b.WriteString(report.Transcript)
		b.WriteString("\n```\n\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("_Generated by callaudit. Findings are keyword matches and lexical sentiment; review flagged calls manually._\n")
	}

	return b.String()
}

// RenderSummary prints a short verdict summary
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	v := report.Verdict
	fmt.Fprintf(w, "%s %s  call=%s\n", v.Indicator, v.Tier, report.CallID)
	fmt.Fprintf(w, "  source:     %s\n", report.Source)
	fmt.Fprintf(w, "  sentiment:  %.3f", v.Sentiment)
	if v.SentimentDegraded {
		fmt.Fprint(w, " (degraded)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  drift:      %.2f\n", v.Drift)
	fmt.Fprintf(w, "  disclosure: %s\n", yesNo(v.Disclosure))
	if len(v.Findings) > 0 {
		fmt.Fprintf(w, "  findings:   %s\n", strings.Join(v.Findings, ", "))
	}
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
