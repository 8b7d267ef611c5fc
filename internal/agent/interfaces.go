// File: internal/agent/interfaces.go
package agent

import (
	"context"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
)

// SettleStatus classifies the outcome of a best-effort wait: these
// operations are logged but never escalate into run failures.
type SettleStatus int

const (
	SettleOK SettleStatus = iota
	SettleTimedOut
	SettleFailed
)

// SettleResult reports how the post-action navigation wait went.
type SettleResult struct {
	Status SettleStatus
	Detail string
}

// PageIssues are the per-step error buffers the driver accumulates while an
// action executes: console error/warning text and failed same-origin
// requests. Draining resets the buffers.
type PageIssues struct {
	ConsoleErrors  []string
	FailedRequests []string
}

// Driver is the browser-automation collaborator. It performs canonical
// actions against the live page and produces compact observations of it.
// Implementations own the target-resolution fallback chain: reference id,
// then free-text match, then per-action structural fallbacks.
type Driver interface {
	// Navigate loads the given URL, replacing the current page.
	Navigate(ctx context.Context, rawURL string) error

	// Observe builds a bounded observation of the current page.
	Observe(ctx context.Context) (schemas.PageObservation, error)

	// Execute performs one canonical action, returning human-readable notes
	// about what was done. Errors here are non-fatal to the run.
	Execute(ctx context.Context, action Action) (string, error)

	// WaitSettle waits briefly for navigation to settle. Best-effort.
	WaitSettle(ctx context.Context) SettleResult

	// CurrentURL reports the page URL after the most recent action.
	CurrentURL(ctx context.Context) (string, error)

	// Screenshot captures the current page, returning an artifact reference.
	// Best-effort: failures are reported but never escalate.
	Screenshot(ctx context.Context, name string) (string, error)

	// DrainPageIssues returns and clears the per-step error buffers.
	DrainPageIssues() PageIssues

	// Close releases the browser resources.
	Close(ctx context.Context) error
}

// StepListener is notified after each StepRecord is appended to the trace.
type StepListener func(step schemas.StepRecord)
