// internal/reporting/markdown.go
package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
)

// MarkdownReporter renders the human-facing run report: verdict, metrics,
// ranked findings, and the step-by-step trail.
type MarkdownReporter struct {
	writer io.WriteCloser
}

func NewMarkdownReporter(writer io.WriteCloser) *MarkdownReporter {
	return &MarkdownReporter{writer: writer}
}

func (r *MarkdownReporter) Write(record *schemas.RunRecord) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Exploration Report: %s\n\n", record.Goal)
	fmt.Fprintf(&b, "- **Target**: %s\n", record.TargetURL)
	fmt.Fprintf(&b, "- **Run ID**: %s\n", record.ID)
	fmt.Fprintf(&b, "- **Started**: %s\n", record.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Verdict**: %s\n", strings.ToUpper(string(record.Outcome.Status)))
	fmt.Fprintf(&b, "- **Reason**: %s\n", record.Outcome.Reason)
	if len(record.Outcome.CompletionEvidence) > 0 {
		fmt.Fprintf(&b, "- **Evidence steps**: %s\n", joinInts(record.Outcome.CompletionEvidence))
	}
	b.WriteByte('\n')

	m := record.Metrics
	b.WriteString("## Metrics\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total steps | %d |\n", m.TotalSteps)
	fmt.Fprintf(&b, "| Page transitions | %d |\n", m.PageTransitions)
	fmt.Fprintf(&b, "| Backtracks | %d |\n", m.Backtracks)
	fmt.Fprintf(&b, "| Stuck events | %d |\n", m.StuckEvents)
	fmt.Fprintf(&b, "| Used search | %t |\n", m.UsedSearch)
	fmt.Fprintf(&b, "| Console errors | %d |\n", m.ConsoleErrors)
	fmt.Fprintf(&b, "| Failed requests | %d |\n", m.FailedRequests)
	fmt.Fprintf(&b, "| Duration | %s |\n\n", m.Duration.Round(time.Second))

	if len(record.Findings) > 0 {
		b.WriteString("## Findings\n\n")
		for i, f := range record.Findings {
			fmt.Fprintf(&b, "### %d. [%s] %s (%s)\n\n", i+1, strings.ToUpper(string(f.Severity)), f.Title, f.Type)
			fmt.Fprintf(&b, "%s\n\n", f.Details)
			fmt.Fprintf(&b, "Evidence: step %d", f.Evidence.StepIndex)
			if f.Evidence.Screenshot != "" {
				fmt.Fprintf(&b, " (%s)", f.Evidence.Screenshot)
			}
			b.WriteString("\n\n")
		}
	} else {
		b.WriteString("## Findings\n\nNo usability findings.\n\n")
	}

	if len(record.Steps) > 0 {
		b.WriteString("## Step Trail\n\n")
		b.WriteString("| # | Action | Outcome | Progress | URL |\n|---|---|---|---|---|\n")
		for _, step := range record.Steps {
			outcome := "ok"
			if !step.Result.OK {
				outcome = "failed"
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
				step.Index, step.Action.Short(), outcome, step.Result.Progress, step.URL)
		}
		b.WriteByte('\n')
	}

	_, err := io.WriteString(r.writer, b.String())
	return err
}

func (r *MarkdownReporter) Close() error {
	return r.writer.Close()
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}
