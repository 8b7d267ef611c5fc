// internal/reporting/reporter_test.go
package reporting

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
)

type captureWriter struct {
	bytes.Buffer
	closed bool
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func reportRecord() *schemas.RunRecord {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &schemas.RunRecord{
		ID:        "run-42",
		Goal:      "find the pricing page",
		TargetURL: "https://site.test",
		StartedAt: started,
		EndedAt:   started.Add(90 * time.Second),
		Outcome: schemas.RunOutcome{
			Status:             schemas.StatusSuccess,
			Reason:             "success hints satisfied",
			CompletionEvidence: []int{2},
		},
		Steps: []schemas.StepRecord{
			{Index: 0, URL: "https://site.test/", Action: schemas.ActionSummary{Type: "click", Target: "nav_1"},
				Result: schemas.StepResult{OK: true, Progress: schemas.ProgressMajor}},
			{Index: 1, URL: "https://site.test/pricing", Action: schemas.ActionSummary{Type: "scroll", Detail: "down"},
				Result: schemas.StepResult{OK: true, Progress: schemas.ProgressNone}},
		},
		Metrics: schemas.RunMetrics{TotalSteps: 2, PageTransitions: 1, Duration: 90 * time.Second},
		Findings: []schemas.Finding{
			{
				Type:     schemas.FindingDiscoverability,
				Severity: schemas.SeverityMed,
				Title:    "Goal required repeated search attempts",
				Details:  "Search queries tried: pricing, cost",
				Evidence: schemas.Evidence{StepIndex: 1},
			},
		},
	}
}

func TestMarkdownReporter_Write(t *testing.T) {
	w := &captureWriter{}
	r := NewMarkdownReporter(w)

	require.NoError(t, r.Write(reportRecord()))
	require.NoError(t, r.Close())
	assert.True(t, w.closed)

	out := w.String()
	assert.Contains(t, out, "# Exploration Report: find the pricing page")
	assert.Contains(t, out, "- **Verdict**: SUCCESS")
	assert.Contains(t, out, "- **Evidence steps**: 2")
	assert.Contains(t, out, "| Total steps | 2 |")
	assert.Contains(t, out, "[MED] Goal required repeated search attempts")
	assert.Contains(t, out, "| 0 | click(nav_1) | ok | major | https://site.test/ |")
	assert.Contains(t, out, "| 1 | scroll(down) | ok | none | https://site.test/pricing |")
}

func TestJSONReporter_Write(t *testing.T) {
	w := &captureWriter{}
	r := NewJSONReporter(w)

	require.NoError(t, r.Write(reportRecord()))
	require.NoError(t, r.Close())

	var decoded schemas.RunRecord
	require.NoError(t, json.Unmarshal(w.Bytes(), &decoded))
	assert.Equal(t, "run-42", decoded.ID)
	assert.Len(t, decoded.Steps, 2)
	assert.Len(t, decoded.Findings, 1)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	r, err := New("markdown", path)
	require.NoError(t, err)
	require.NoError(t, r.Write(reportRecord()))
	require.NoError(t, r.Close())
}

func TestNew_UnsupportedFormat(t *testing.T) {
	_, err := New("pdf", "")
	assert.Error(t, err)
}
