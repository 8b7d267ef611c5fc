// internal/agent/safety.go
package agent

import "strings"

// destructiveKeywords flag click targets that could damage the account or
// data under exploration. Matching is a case-insensitive substring check.
var destructiveKeywords = []string{
	"delete",
	"remove",
	"cancel subscription",
	"unsubscribe",
	"close account",
	"deactivate",
	"terminate",
	"destroy",
	"erase",
	"permanently",
}

// matchesDestructivePattern reports whether the text contains any
// destructive keyword.
func matchesDestructivePattern(text string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range destructiveKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// isBlockedDestructiveClick is the hard safety gate: a click whose target
// matches a destructive keyword is blocked unless the goal itself asks for
// the destructive operation. Never retried or overridden.
func isBlockedDestructiveClick(action Action, goal string) bool {
	if action.Type != ActionClick {
		return false
	}
	return matchesDestructivePattern(action.Target) && !matchesDestructivePattern(goal)
}
