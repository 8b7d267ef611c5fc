// internal/agent/progress.go
package agent

import (
	"net/url"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
)

// AssessProgress classifies the effect of one action purely from the URLs
// before and after it. A path change is major progress, a query-string
// change on the same path is some progress, anything else is none. DOM
// content is deliberately not consulted.
func AssessProgress(beforeURL, afterURL string) schemas.ProgressLevel {
	before, errB := url.Parse(beforeURL)
	after, errA := url.Parse(afterURL)
	if errB != nil || errA != nil {
		if beforeURL != afterURL {
			return schemas.ProgressMajor
		}
		return schemas.ProgressNone
	}

	if normalizePath(before.Path) != normalizePath(after.Path) {
		return schemas.ProgressMajor
	}
	if before.RawQuery != after.RawQuery {
		return schemas.ProgressSome
	}
	return schemas.ProgressNone
}
