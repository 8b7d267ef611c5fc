package cmd

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/wayfinder-cli/internal/config"
	"github.com/xkilldash9x/wayfinder-cli/internal/observability"
)

// resetForTest provides the single source of truth for resetting test state.
func resetForTest(t *testing.T) {
	t.Helper()

	viper.Reset()
	cfgFile = ""

	// Silence the logger and re-create the root command so no Cobra state
	// leaks between tests.
	observability.InitializeLogger(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"})
	rootCmd = newRootCmd()

	// A fresh working directory so no config.yaml is picked up, and a
	// scratch artifact directory via the environment override.
	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	t.Setenv("WAYFINDER_ARTIFACTS_DIR", t.TempDir())
	t.Setenv("WAYFINDER_BROWSER_MODE", "static")
}

// executeCommand runs the root command with the given args and captures its
// combined output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestVersionFlag(t *testing.T) {
	resetForTest(t)

	out, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestExploreRequiresGoal(t *testing.T) {
	resetForTest(t)

	_, err := executeCommand(t, "explore", "https://example.test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "goal")
}

func TestExploreRequiresTarget(t *testing.T) {
	resetForTest(t)

	_, err := executeCommand(t, "explore", "--goal", "find pricing")
	require.Error(t, err)
}

func TestRunsCommandEmptyStore(t *testing.T) {
	resetForTest(t)

	out, err := executeCommand(t, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded yet.")
}

func TestReportUnknownRun(t *testing.T) {
	resetForTest(t)

	_, err := executeCommand(t, "report", "no-such-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestInvalidConfigurationFails(t *testing.T) {
	resetForTest(t)
	t.Setenv("WAYFINDER_AGENT_MAX_STEPS", "-5")

	_, err := executeCommand(t, "runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_steps")
}
