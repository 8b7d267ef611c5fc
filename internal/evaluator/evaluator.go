// Package evaluator derives quantitative metrics and ranked usability
// findings from a completed run trace. Everything here is a pure function
// of the trace: no I/O and no mutation of the input.
package evaluator

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
)

// maxFindings caps the ranked findings list.
const maxFindings = 7

// Evaluation bundles the evaluator's two outputs.
type Evaluation struct {
	Metrics  schemas.RunMetrics
	Findings []schemas.Finding
}

// Evaluate computes metrics and findings for one completed trace. The same
// trace always yields the same evaluation.
func Evaluate(steps []schemas.StepRecord) Evaluation {
	return Evaluation{
		Metrics:  computeMetrics(steps),
		Findings: synthesizeFindings(steps),
	}
}

func computeMetrics(steps []schemas.StepRecord) schemas.RunMetrics {
	m := schemas.RunMetrics{TotalSteps: len(steps)}

	seen := make(map[string]bool, len(steps))
	stallRun := 0
	prevKey := ""
	for i, step := range steps {
		if i > 0 && pathOf(steps[i-1].URL) != pathOf(step.URL) {
			m.PageTransitions++
		}

		// A backtrack is a return to a page after having left it; staying
		// put on the same page is a stall, not a backtrack.
		key := pageKey(step)
		if seen[key] && key != prevKey {
			m.Backtracks++
		}
		seen[key] = true

		// Run-length stall counter: each time three consecutive steps share
		// a page key the event fires and the counter resets, so a 7-step
		// stall counts as 2 events, not 5.
		if i > 0 && key == prevKey {
			stallRun++
		} else {
			stallRun = 1
		}
		if stallRun == 3 {
			m.StuckEvents++
			stallRun = 0
		}
		prevKey = key

		if step.Action.Type == "search" {
			m.UsedSearch = true
		}
		m.ConsoleErrors += len(step.ConsoleErrors)
		m.FailedRequests += len(step.FailedRequests)
	}

	if len(steps) > 1 {
		m.Duration = steps[len(steps)-1].Timestamp.Sub(steps[0].Timestamp)
	}
	return m
}

// synthesizeFindings runs every detector over the trace, then ranks by
// severity (high first, stable within a tier) and truncates.
func synthesizeFindings(steps []schemas.StepRecord) []schemas.Finding {
	var findings []schemas.Finding
	findings = append(findings, stalledWindowFindings(steps)...)
	if f, ok := repeatedSearchFinding(steps); ok {
		findings = append(findings, f)
	}
	if f, ok := backtrackingFinding(steps); ok {
		findings = append(findings, f)
	}
	if f, ok := consoleErrorFinding(steps); ok {
		findings = append(findings, f)
	}
	if f, ok := failedRequestFinding(steps); ok {
		findings = append(findings, f)
	}
	if f, ok := validationFinding(steps); ok {
		findings = append(findings, f)
	}
	if f, ok := helpEscalationFinding(steps); ok {
		findings = append(findings, f)
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.Rank() < findings[j].Severity.Rank()
	})
	if len(findings) > maxFindings {
		findings = findings[:maxFindings]
	}
	return findings
}

// stalledWindowFindings groups the trace into maximal runs of three or more
// consecutive same-page steps. Each window becomes one finding anchored at
// the window's first step.
func stalledWindowFindings(steps []schemas.StepRecord) []schemas.Finding {
	var findings []schemas.Finding

	start := 0
	for i := 1; i <= len(steps); i++ {
		if i < len(steps) && pageKey(steps[i]) == pageKey(steps[start]) {
			continue
		}
		if length := i - start; length >= 3 {
			severity := schemas.SeverityMed
			if length >= 6 {
				severity = schemas.SeverityHigh
			}
			actions := make([]string, 0, length)
			for _, step := range steps[start:i] {
				actions = append(actions, step.Action.Short())
			}
			findings = append(findings, schemas.Finding{
				Type:     schemas.FindingDiscoverability,
				Severity: severity,
				Title:    fmt.Sprintf("Stalled on the same page for %d steps", length),
				Details:  "Actions attempted without leaving the page: " + strings.Join(actions, ", "),
				Evidence: evidenceAt(steps[start]),
			})
		}
		start = i
	}
	return findings
}

func repeatedSearchFinding(steps []schemas.StepRecord) (schemas.Finding, bool) {
	var queries []string
	first := -1
	for _, step := range steps {
		if step.Action.Type == "search" {
			queries = append(queries, step.Action.Value)
			if first == -1 {
				first = step.Index
			}
		}
	}
	if len(queries) < 2 {
		return schemas.Finding{}, false
	}
	return schemas.Finding{
		Type:     schemas.FindingDiscoverability,
		Severity: schemas.SeverityMed,
		Title:    "Goal required repeated search attempts",
		Details:  "Search queries tried: " + strings.Join(queries, ", "),
		Evidence: evidenceAt(steps[indexOf(steps, first)]),
	}, true
}

func backtrackingFinding(steps []schemas.StepRecord) (schemas.Finding, bool) {
	seen := make(map[string]bool, len(steps))
	count := 0
	first := -1
	prevKey := ""
	for _, step := range steps {
		key := pageKey(step)
		if seen[key] && key != prevKey {
			count++
			if first == -1 {
				first = step.Index
			}
		}
		seen[key] = true
		prevKey = key
	}
	if count < 3 {
		return schemas.Finding{}, false
	}
	severity := schemas.SeverityMed
	if count >= 5 {
		severity = schemas.SeverityHigh
	}
	return schemas.Finding{
		Type:     schemas.FindingDiscoverability,
		Severity: severity,
		Title:    "Excessive backtracking to previously visited pages",
		Details:  fmt.Sprintf("%d steps returned to a page already seen earlier in the run.", count),
		Evidence: evidenceAt(steps[indexOf(steps, first)]),
	}, true
}

func consoleErrorFinding(steps []schemas.StepRecord) (schemas.Finding, bool) {
	var messages []string
	total := 0
	first := -1
	for _, step := range steps {
		for _, msg := range step.ConsoleErrors {
			total++
			if len(messages) < 3 {
				messages = append(messages, msg)
			}
			if first == -1 {
				first = step.Index
			}
		}
	}
	if total == 0 {
		return schemas.Finding{}, false
	}
	severity := schemas.SeverityMed
	if total >= 5 {
		severity = schemas.SeverityHigh
	}
	details := strings.Join(messages, "; ")
	if total > len(messages) {
		details += "; ..."
	}
	return schemas.Finding{
		Type:     schemas.FindingBug,
		Severity: severity,
		Title:    fmt.Sprintf("Console reported %d error(s) during the run", total),
		Details:  details,
		Evidence: evidenceAt(steps[indexOf(steps, first)]),
	}, true
}

func failedRequestFinding(steps []schemas.StepRecord) (schemas.Finding, bool) {
	var entries []string
	total := 0
	first := -1
	for _, step := range steps {
		for _, req := range step.FailedRequests {
			total++
			if len(entries) < 3 {
				entries = append(entries, req)
			}
			if first == -1 {
				first = step.Index
			}
		}
	}
	if total == 0 {
		return schemas.Finding{}, false
	}
	severity := schemas.SeverityLow
	if total >= 3 {
		severity = schemas.SeverityHigh
	}
	details := strings.Join(entries, "; ")
	if total > len(entries) {
		details += "; ..."
	}
	return schemas.Finding{
		Type:     schemas.FindingBug,
		Severity: severity,
		Title:    fmt.Sprintf("%d network request(s) failed during the run", total),
		Details:  details,
		Evidence: evidenceAt(steps[indexOf(steps, first)]),
	}, true
}

// validationKeywords are the note fragments that mark a step as having hit
// form-validation friction.
var validationKeywords = []string{"validation", "invalid", "required", "error"}

func validationFinding(steps []schemas.StepRecord) (schemas.Finding, bool) {
	count := 0
	first := -1
	for _, step := range steps {
		if step.Result.Progress != schemas.ProgressSome {
			continue
		}
		notes := strings.ToLower(step.Result.Notes)
		for _, kw := range validationKeywords {
			if strings.Contains(notes, kw) {
				count++
				if first == -1 {
					first = step.Index
				}
				break
			}
		}
	}
	if count == 0 {
		return schemas.Finding{}, false
	}
	return schemas.Finding{
		Type:     schemas.FindingValidation,
		Severity: schemas.SeverityLow,
		Title:    "Form validation interrupted progress",
		Details:  fmt.Sprintf("%d step(s) surfaced validation or error text without leaving the page.", count),
		Evidence: evidenceAt(steps[indexOf(steps, first)]),
	}, true
}

func helpEscalationFinding(steps []schemas.StepRecord) (schemas.Finding, bool) {
	for _, step := range steps {
		if step.Action.Type == "open_help" {
			return schemas.Finding{
				Type:     schemas.FindingDiscoverability,
				Severity: schemas.SeverityMed,
				Title:    "Agent had to escalate to the help section",
				Details:  "The goal could not be reached by browsing or search alone; the help page was consulted.",
				Evidence: evidenceAt(step),
			}, true
		}
	}
	return schemas.Finding{}, false
}

// pageKey mirrors the decision loop's page-identity rule (normalized URL
// path plus first heading), computed independently over the stored trace.
func pageKey(step schemas.StepRecord) string {
	return pathOf(step.URL) + "|" + step.Observation.FirstHeading()
}

func pathOf(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		path = "/"
	}
	return path
}

func evidenceAt(step schemas.StepRecord) schemas.Evidence {
	return schemas.Evidence{StepIndex: step.Index, Screenshot: step.Screenshot}
}

// indexOf locates the trace position for a step index. Step indices are
// assigned sequentially by the loop, so this is normally the identity, but
// the evaluator does not rely on that.
func indexOf(steps []schemas.StepRecord, stepIndex int) int {
	for i, step := range steps {
		if step.Index == stepIndex {
			return i
		}
	}
	return 0
}

// EvaluateRun is a convenience wrapper that fills the metric and finding
// fields of a run record in place and returns it.
func EvaluateRun(record *schemas.RunRecord) {
	eval := Evaluate(record.Steps)
	record.Metrics = eval.Metrics
	record.Findings = eval.Findings
}
