// internal/agent/prompt.go
package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
)

// decisionContext is everything the prompt builder needs for one decision
// point.
type decisionContext struct {
	Goal           string
	Observation    schemas.PageObservation
	RecentSteps    []schemas.StepRecord
	Ladder         HelpLadderState
	RemainingSteps int
	RemainingTime  time.Duration
	Hints          schemas.SuccessHints
}

// generateSystemPrompt is the fixed instruction set for the exploration
// agent's decisions.
func generateSystemPrompt() string {
	return `You are an autonomous usability explorer driving a real web application toward a stated goal.
You can only use what is visible on screen. At each step you receive the current page state and your recent history, and you must reply with exactly one JSON object choosing your next action.

Available actions:
    - click: Click an interactive element. {"type": "click", "target": "<ref id or visible label>"}
    - fill: Type into a field. {"type": "fill", "target": "<ref id or label>", "value": "<text>"}
    - select: Choose a dropdown option. {"type": "select", "target": "<ref id or label>", "option": "<visible option>"}
    - scroll: Scroll the page. {"type": "scroll", "direction": "up" | "down"}
    - back: Go back to the previous page. {"type": "back"}
    - wait: Pause for async content. {"type": "wait", "ms": 1000}
    - search: Use the site search. {"type": "search", "query": "<term>"}
    - open_help: Open the site's help or support page. {"type": "open_help"}
    - done: Declare the goal achieved. {"type": "done", "reason": "<why>", "evidence_steps": [<step indices>]}

Respond with strict JSON only, in this exact shape:
{"thinking": "<brief reasoning>", "action": {"type": "...", ...}}

Do not invent element references. Prefer elements listed on the current page. Declare done only when the page in front of you demonstrates the goal.`
}

// generateUserPrompt renders the decision context into the per-step request.
func generateUserPrompt(dc decisionContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Goal: %s\n\n", dc.Goal)

	if !dc.Hints.Empty() {
		b.WriteString("Success criteria:\n")
		for _, t := range dc.Hints.MustSeeText {
			fmt.Fprintf(&b, "  - The text %q must be visible.\n", t)
		}
		if len(dc.Hints.MustEndOnURLIncludes) > 0 {
			fmt.Fprintf(&b, "  - The final URL must include one of: %s\n", strings.Join(dc.Hints.MustEndOnURLIncludes, ", "))
		}
		b.WriteByte('\n')
	}

	b.WriteString("Current page:\n")
	b.WriteString(dc.Observation.CompactText())
	b.WriteByte('\n')

	if len(dc.RecentSteps) > 0 {
		b.WriteString("Recent steps (oldest first):\n")
		for _, step := range dc.RecentSteps {
			outcome := "ok"
			if !step.Result.OK {
				outcome = "failed"
			}
			fmt.Fprintf(&b, "  %d. %s -> %s, progress=%s", step.Index, step.Action.Short(), outcome, step.Result.Progress)
			if step.Result.Notes != "" {
				fmt.Fprintf(&b, " (%s)", step.Result.Notes)
			}
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	if dc.Ladder.StepsWithoutProgress >= nudgeThreshold {
		fmt.Fprintf(&b, "You have made no real progress for %d steps. Try a different approach than before.\n", dc.Ladder.StepsWithoutProgress)
	}
	switch dc.Ladder.Phase {
	case 1:
		b.WriteString("Browsing has not worked so far. This page has a search box; consider the search action.\n")
	case 2:
		b.WriteString("Neither browsing nor search has worked. This page has a help link; consider the open_help action.\n")
	}
	if len(dc.Ladder.SearchTermsUsed) > 0 {
		fmt.Fprintf(&b, "Search terms already tried: %s\n", strings.Join(dc.Ladder.SearchTermsUsed, ", "))
	}

	fmt.Fprintf(&b, "\nBudget: %d steps and %s remaining.\n", dc.RemainingSteps, dc.RemainingTime.Round(time.Second))
	b.WriteString("Decide your next action now. Respond with the strict JSON shape only.")

	return b.String()
}
