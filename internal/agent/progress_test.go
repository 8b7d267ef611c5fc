package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
)

func TestAssessProgress(t *testing.T) {
	cases := []struct {
		name   string
		before string
		after  string
		want   schemas.ProgressLevel
	}{
		{"same url", "https://site.test/docs", "https://site.test/docs", schemas.ProgressNone},
		{"path changed", "https://site.test/docs", "https://site.test/docs/install", schemas.ProgressMajor},
		{"trailing slash only", "https://site.test/docs/", "https://site.test/docs", schemas.ProgressNone},
		{"query changed", "https://site.test/search", "https://site.test/search?q=pricing", schemas.ProgressSome},
		{"query value changed", "https://site.test/search?q=a", "https://site.test/search?q=b", schemas.ProgressSome},
		{"fragment only", "https://site.test/docs", "https://site.test/docs#section-2", schemas.ProgressNone},
		{"root variants", "https://site.test", "https://site.test/", schemas.ProgressNone},
		{"path and query changed", "https://site.test/a", "https://site.test/b?x=1", schemas.ProgressMajor},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AssessProgress(tc.before, tc.after))
		})
	}
}

func TestAssessProgress_UnparsableFallsBackToStringCompare(t *testing.T) {
	assert.Equal(t, schemas.ProgressMajor, AssessProgress("http://a b/one", "http://a b/two"))
	assert.Equal(t, schemas.ProgressNone, AssessProgress("http://a b/one", "http://a b/one"))
}
