package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBlockedDestructiveClick(t *testing.T) {
	goal := "Find the pricing page"

	blocked := []string{
		"Delete my account",
		"REMOVE item",
		"Cancel Subscription",
		"unsubscribe from newsletter",
		"Close Account",
		"Permanently erase data",
	}
	for _, target := range blocked {
		action := Action{Type: ActionClick, Target: target}
		assert.True(t, isBlockedDestructiveClick(action, goal), target)
	}

	safe := []string{"Sign in", "View pricing", "Continue", "Next page"}
	for _, target := range safe {
		action := Action{Type: ActionClick, Target: target}
		assert.False(t, isBlockedDestructiveClick(action, goal), target)
	}
}

func TestIsBlockedDestructiveClick_GoalExemption(t *testing.T) {
	action := Action{Type: ActionClick, Target: "Delete my account"}
	assert.False(t, isBlockedDestructiveClick(action, "delete my account and confirm the flow works"))
	assert.True(t, isBlockedDestructiveClick(action, "check the profile settings page"))
}

func TestIsBlockedDestructiveClick_OnlyAppliesToClicks(t *testing.T) {
	assert.False(t, isBlockedDestructiveClick(Action{Type: ActionFill, Target: "delete", Value: "x"}, "goal"))
	assert.False(t, isBlockedDestructiveClick(Action{Type: ActionSearch, Query: "delete account"}, "goal"))
}
