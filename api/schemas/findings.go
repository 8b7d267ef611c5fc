// api/schemas/findings.go
package schemas

// FindingType categorizes a usability finding.
type FindingType string

const (
	FindingDiscoverability FindingType = "discoverability"
	FindingCopy            FindingType = "copy"
	FindingValidation      FindingType = "validation"
	FindingBug             FindingType = "bug"
	FindingPerformance     FindingType = "performance"
)

// Severity ranks a finding. Rank() gives the sort order used when findings
// are merged: high sorts before med, med before low.
type Severity string

const (
	SeverityLow  Severity = "low"
	SeverityMed  Severity = "med"
	SeverityHigh Severity = "high"
)

// Rank returns the priority order of the severity, lower is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMed:
		return 1
	default:
		return 2
	}
}

// Evidence points a finding back at the step that demonstrates it.
type Evidence struct {
	StepIndex  int    `json:"step_index"`
	Screenshot string `json:"screenshot,omitempty"`
}

// Finding is one usability problem derived from the run trace. Findings are
// produced only by the evaluator, never by the decision loop.
type Finding struct {
	Type     FindingType `json:"type"`
	Severity Severity    `json:"severity"`
	Title    string      `json:"title"`
	Details  string      `json:"details"`
	Evidence Evidence    `json:"evidence"`
}
