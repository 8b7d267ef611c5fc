// internal/agent/models.go
package agent

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
)

// ActionType is the closed vocabulary of canonical actions the agent can
// take. Every decision must normalize to exactly one of these.
type ActionType string

const (
	ActionClick    ActionType = "click"
	ActionFill     ActionType = "fill"
	ActionSelect   ActionType = "select"
	ActionScroll   ActionType = "scroll"
	ActionBack     ActionType = "back"
	ActionWait     ActionType = "wait"
	ActionSearch   ActionType = "search"
	ActionOpenHelp ActionType = "open_help"
	ActionDone     ActionType = "done"
)

// knownActionTypes enumerates every canonical type, used both by the
// normalizer's shorthand detection and by prompt assembly.
var knownActionTypes = []ActionType{
	ActionClick, ActionFill, ActionSelect, ActionScroll, ActionBack,
	ActionWait, ActionSearch, ActionOpenHelp, ActionDone,
}

// Action is one canonical, type-safe action. Only the fields relevant to
// Type are populated.
type Action struct {
	Type ActionType `json:"type"`

	// Target is an interactive-element reference id or a free-text label.
	// Used by click, fill, select, and optionally back.
	Target string `json:"target,omitempty"`

	// Value is the text for fill actions.
	Value string `json:"value,omitempty"`

	// Option is the choice for select actions.
	Option string `json:"option,omitempty"`

	// Direction is "up" or "down" for scroll actions.
	Direction string `json:"direction,omitempty"`

	// Ms is the wait duration, clamped to [100, 5000].
	Ms int `json:"ms,omitempty"`

	// Query is the term for search actions.
	Query string `json:"query,omitempty"`

	// Reason and EvidenceSteps belong to done actions.
	Reason        string `json:"reason,omitempty"`
	EvidenceSteps []int  `json:"evidence_steps,omitempty"`
}

// Summary renders the action into its serializable trace form.
func (a Action) Summary() schemas.ActionSummary {
	s := schemas.ActionSummary{Type: string(a.Type)}
	switch a.Type {
	case ActionClick, ActionBack:
		s.Target = a.Target
	case ActionFill:
		s.Target = a.Target
		s.Value = a.Value
	case ActionSelect:
		s.Target = a.Target
		s.Value = a.Option
	case ActionScroll:
		s.Detail = a.Direction
	case ActionWait:
		s.Detail = strconv.Itoa(a.Ms) + "ms"
	case ActionSearch:
		s.Value = a.Query
	case ActionDone:
		s.Detail = a.Reason
	}
	return s
}

// HelpLadderState tracks the three-phase escalation hint driven by
// consecutive no-progress steps. Mutated once per step by the loop, and by
// nothing else. Phase never de-escalates within a run.
type HelpLadderState struct {
	Phase                int      `json:"phase"`
	StepsWithoutProgress int      `json:"steps_without_progress"`
	SearchTermsUsed      []string `json:"search_terms_used,omitempty"`
	HelpOpened           bool     `json:"help_opened"`
}

// Escalation thresholds for the help ladder and the hard ceilings around it.
const (
	nudgeThreshold         = 4  // prompt gets a "try a different approach" nudge
	searchPhaseThreshold   = 6  // phase 1: suggest using site search
	helpPhaseThreshold     = 10 // phase 2: suggest opening help
	discoverabilityCeiling = 14 // hard stop, independent of ladder phase
)

// advance moves the ladder phase per the current observation. The phase is a
// one-way ratchet: it only ever increases.
func (h *HelpLadderState) advance(obs schemas.PageObservation) {
	phase := h.Phase
	if h.StepsWithoutProgress >= helpPhaseThreshold && !h.HelpOpened && obs.HasHelp {
		phase = 2
	} else if h.StepsWithoutProgress >= searchPhaseThreshold && obs.HasSearch {
		phase = 1
	}
	if phase > h.Phase {
		h.Phase = phase
	}
}

// recordProgress applies the partial-credit rule: major resets the counter,
// none increments it, some decrements toward zero without going negative.
func (h *HelpLadderState) recordProgress(p schemas.ProgressLevel) {
	switch p {
	case schemas.ProgressMajor:
		h.StepsWithoutProgress = 0
	case schemas.ProgressSome:
		if h.StepsWithoutProgress > 0 {
			h.StepsWithoutProgress--
		}
	default:
		h.StepsWithoutProgress++
	}
}

// pageIdentityKey is the loop's page-identity rule: normalized URL path plus
// the first heading. The evaluator applies the same rule independently over
// the stored trace.
func pageIdentityKey(rawURL, firstHeading string) string {
	return normalizePath(rawURL) + "|" + firstHeading
}

// normalizePath extracts the URL path with any trailing slash trimmed
// (except for the root path itself).
func normalizePath(rawURL string) string {
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
