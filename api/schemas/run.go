// api/schemas/run.go
package schemas

import "time"

// Budgets bound a single run. Immutable once the run starts.
type Budgets struct {
	MaxSteps   int     `json:"max_steps" mapstructure:"max_steps"`
	MaxMinutes float64 `json:"max_minutes" mapstructure:"max_minutes"`
}

// SuccessHints are optional externally supplied predicates used to
// auto-detect goal completion. All MustSeeText entries must be visible
// (AND), and the final URL must include at least one of
// MustEndOnURLIncludes (OR) when any are configured.
type SuccessHints struct {
	MustSeeText          []string `json:"must_see_text,omitempty" mapstructure:"must_see_text"`
	MustEndOnURLIncludes []string `json:"must_end_on_url_includes,omitempty" mapstructure:"must_end_on_url_includes"`
}

// Empty reports whether no hint predicates are configured.
func (h SuccessHints) Empty() bool {
	return len(h.MustSeeText) == 0 && len(h.MustEndOnURLIncludes) == 0
}

// ProgressLevel is the qualitative classification of one action's effect,
// derived purely from URL comparison. Ordered by impact.
type ProgressLevel string

const (
	ProgressNone  ProgressLevel = "none"
	ProgressSome  ProgressLevel = "some"
	ProgressMajor ProgressLevel = "major"
)

// StepResult records what executing one action did to the page.
type StepResult struct {
	OK       bool          `json:"ok"`
	Notes    string        `json:"notes,omitempty"`
	NewURL   string        `json:"new_url,omitempty"`
	Progress ProgressLevel `json:"progress"`
	Error    string        `json:"error,omitempty"`
}

// StepRecord is one entry of the append-only run trace. Immutable once
// appended; the trace is the sole input to the evaluator.
type StepRecord struct {
	Index          int             `json:"index"`
	Timestamp      time.Time       `json:"timestamp"`
	URL            string          `json:"url"`
	Title          string          `json:"title"`
	Observation    PageObservation `json:"observation"`
	Action         ActionSummary   `json:"action"`
	Result         StepResult      `json:"result"`
	Screenshot     string          `json:"screenshot,omitempty"`
	ConsoleErrors  []string        `json:"console_errors,omitempty"`
	FailedRequests []string        `json:"failed_requests,omitempty"`
}

// ActionSummary is the serializable form of a canonical action as it
// appears in the trace.
type ActionSummary struct {
	Type   string `json:"type"`
	Target string `json:"target,omitempty"`
	Value  string `json:"value,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Short renders the action as a compact "type(target)" string for prompts
// and finding details.
func (a ActionSummary) Short() string {
	switch {
	case a.Target != "" && a.Value != "":
		return a.Type + "(" + a.Target + "=" + a.Value + ")"
	case a.Target != "":
		return a.Type + "(" + a.Target + ")"
	case a.Value != "":
		return a.Type + "(" + a.Value + ")"
	case a.Detail != "":
		return a.Type + "(" + a.Detail + ")"
	default:
		return a.Type
	}
}

// RunStatus is the terminal status of a run.
type RunStatus string

const (
	StatusSuccess RunStatus = "success"
	StatusFail    RunStatus = "fail"
	StatusPartial RunStatus = "partial"
)

// RunOutcome is computed exactly once, at loop termination.
type RunOutcome struct {
	Status             RunStatus `json:"status"`
	Reason             string    `json:"reason"`
	CompletionEvidence []int     `json:"completion_evidence,omitempty"`
}

// RunMetrics are the quantitative measures the evaluator derives from a
// completed trace.
type RunMetrics struct {
	TotalSteps      int           `json:"total_steps"`
	PageTransitions int           `json:"page_transitions"`
	Backtracks      int           `json:"backtracks"`
	UsedSearch      bool          `json:"used_search"`
	StuckEvents     int           `json:"stuck_events"`
	ConsoleErrors   int           `json:"console_errors"`
	FailedRequests  int           `json:"failed_requests"`
	Duration        time.Duration `json:"duration"`
}

// RunRecord is the full serializable artifact bundle for one run. This is
// the data contract the reporting layer depends on.
type RunRecord struct {
	ID        string       `json:"id"`
	Goal      string       `json:"goal"`
	TargetURL string       `json:"target_url"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
	Budgets   Budgets      `json:"budgets"`
	Hints     SuccessHints `json:"hints"`
	Steps     []StepRecord `json:"steps"`
	Outcome   RunOutcome   `json:"outcome"`
	Metrics   RunMetrics   `json:"metrics"`
	Findings  []Finding    `json:"findings"`
}
