package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
)

func TestHelpLadderState_RecordProgress(t *testing.T) {
	var ladder HelpLadderState

	ladder.recordProgress(schemas.ProgressNone)
	ladder.recordProgress(schemas.ProgressNone)
	assert.Equal(t, 2, ladder.StepsWithoutProgress)

	ladder.recordProgress(schemas.ProgressSome)
	assert.Equal(t, 1, ladder.StepsWithoutProgress)

	// Partial credit never goes below zero.
	ladder.recordProgress(schemas.ProgressSome)
	ladder.recordProgress(schemas.ProgressSome)
	assert.Equal(t, 0, ladder.StepsWithoutProgress)

	for i := 0; i < 5; i++ {
		ladder.recordProgress(schemas.ProgressNone)
	}
	ladder.recordProgress(schemas.ProgressMajor)
	assert.Equal(t, 0, ladder.StepsWithoutProgress)
}

func TestHelpLadderState_AdvanceThresholds(t *testing.T) {
	obs := schemas.PageObservation{HasSearch: true, HasHelp: true}

	var ladder HelpLadderState
	ladder.StepsWithoutProgress = 5
	ladder.advance(obs)
	assert.Equal(t, 0, ladder.Phase)

	ladder.StepsWithoutProgress = 6
	ladder.advance(obs)
	assert.Equal(t, 1, ladder.Phase)

	ladder.StepsWithoutProgress = 10
	ladder.advance(obs)
	assert.Equal(t, 2, ladder.Phase)
}

func TestHelpLadderState_AdvanceRequiresCapability(t *testing.T) {
	var ladder HelpLadderState
	ladder.StepsWithoutProgress = 12

	// Neither search nor help available: no escalation.
	ladder.advance(schemas.PageObservation{})
	assert.Equal(t, 0, ladder.Phase)

	// Help available but already used: fall back to the search phase.
	ladder.HelpOpened = true
	ladder.advance(schemas.PageObservation{HasSearch: true, HasHelp: true})
	assert.Equal(t, 1, ladder.Phase)
}

func TestHelpLadderState_PhaseRatchet(t *testing.T) {
	var ladder HelpLadderState
	ladder.StepsWithoutProgress = 10
	ladder.advance(schemas.PageObservation{HasSearch: true, HasHelp: true})
	assert.Equal(t, 2, ladder.Phase)

	// Progress resets the counter, but the phase never moves backwards.
	ladder.recordProgress(schemas.ProgressMajor)
	ladder.advance(schemas.PageObservation{HasSearch: true, HasHelp: true})
	assert.Equal(t, 2, ladder.Phase)
}

func TestPageIdentityKey(t *testing.T) {
	assert.Equal(t, "/docs|Getting Started", pageIdentityKey("https://site.test/docs", "Getting Started"))
	assert.Equal(t, "/docs|Getting Started", pageIdentityKey("https://site.test/docs/", "Getting Started"))
	assert.Equal(t, "/|Home", pageIdentityKey("https://site.test", "Home"))
	assert.Equal(t, "/docs|", pageIdentityKey("https://site.test/docs?page=2", ""))
}

func TestActionSummaryShort(t *testing.T) {
	cases := []struct {
		action Action
		want   string
	}{
		{Action{Type: ActionClick, Target: "nav_2"}, "click(nav_2)"},
		{Action{Type: ActionFill, Target: "input_1", Value: "jane"}, "fill(input_1=jane)"},
		{Action{Type: ActionScroll, Direction: "down"}, "scroll(down)"},
		{Action{Type: ActionSearch, Query: "pricing"}, "search(pricing)"},
		{Action{Type: ActionBack}, "back"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.action.Summary().Short())
	}
}
