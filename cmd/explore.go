package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
	"github.com/xkilldash9x/wayfinder-cli/internal/llmclient"
	"github.com/xkilldash9x/wayfinder-cli/internal/observability"
	"github.com/xkilldash9x/wayfinder-cli/internal/reporting"
	"github.com/xkilldash9x/wayfinder-cli/internal/runstore"
	"github.com/xkilldash9x/wayfinder-cli/internal/service"
)

// newExploreCmd creates and configures the `explore` command.
func newExploreCmd() *cobra.Command {
	var (
		goal        string
		maxSteps    int
		maxMinutes  float64
		mustSee     []string
		urlIncludes []string
		browserMode string
		format      string
		output      string
	)

	exploreCmd := &cobra.Command{
		Use:   "explore [target-url]",
		Short: "Runs one autonomous exploration against the target and reports the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("browser") {
				cfg.Browser.Mode = browserMode
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			target := args[0]
			if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
				target = "https://" + target
			}
			if goal == "" {
				return fmt.Errorf("a goal is required (--goal)")
			}

			llm, err := llmclient.NewClient(cfg.Agent.LLM, logger)
			if err != nil {
				return fmt.Errorf("failed to build the completion client: %w", err)
			}

			store, err := runstore.NewFromConfig(ctx, cfg.Store, cfg.Artifact.Dir, logger)
			if err != nil {
				return fmt.Errorf("failed to open the run store: %w", err)
			}
			defer store.Close()

			runner := service.NewRunner(cfg, logger, store, llm)

			record, err := runner.Explore(ctx, service.RunRequest{
				Goal:      goal,
				TargetURL: target,
				Budgets:   schemas.Budgets{MaxSteps: maxSteps, MaxMinutes: maxMinutes},
				Hints: schemas.SuccessHints{
					MustSeeText:          mustSee,
					MustEndOnURLIncludes: urlIncludes,
				},
				Listener: func(step schemas.StepRecord) {
					logger.Info("Step completed",
						zap.Int("step", step.Index),
						zap.String("action", step.Action.Short()),
						zap.Bool("ok", step.Result.OK),
						zap.String("progress", string(step.Result.Progress)),
					)
				},
			})
			if err != nil {
				return err
			}

			// A rendered report lives next to the trace for every run.
			reportPath := filepath.Join(cfg.Artifact.Dir, record.ID, "report.md")
			if err := writeReport("markdown", reportPath, record); err != nil {
				logger.Warn("Failed to write run report artifact", zap.Error(err))
			}

			reporter, err := reporting.New(format, output)
			if err != nil {
				return err
			}
			if err := reporter.Write(record); err != nil {
				reporter.Close()
				return fmt.Errorf("failed to write report: %w", err)
			}
			if err := reporter.Close(); err != nil {
				return fmt.Errorf("failed to finalize report: %w", err)
			}

			if record.Outcome.Status == schemas.StatusFail {
				return fmt.Errorf("exploration failed: %s", record.Outcome.Reason)
			}
			return nil
		},
	}

	exploreCmd.Flags().StringVarP(&goal, "goal", "g", "", "natural-language goal for the agent (required)")
	exploreCmd.Flags().IntVar(&maxSteps, "max-steps", 0, "step budget for this run (default from config)")
	exploreCmd.Flags().Float64Var(&maxMinutes, "max-minutes", 0, "time budget in minutes (default from config)")
	exploreCmd.Flags().StringSliceVar(&mustSee, "must-see-text", nil, "text fragments that must all be visible for auto-success")
	exploreCmd.Flags().StringSliceVar(&urlIncludes, "url-includes", nil, "URL fragments, any of which marks auto-success")
	exploreCmd.Flags().StringVar(&browserMode, "browser", "", "page driver override: chromedp or static")
	exploreCmd.Flags().StringVarP(&format, "format", "f", "markdown", "report format: markdown or json")
	exploreCmd.Flags().StringVarP(&output, "output", "o", "", "report destination file (default stdout)")
	_ = exploreCmd.MarkFlagRequired("goal")

	return exploreCmd
}

// writeReport renders the record to the given path, creating parent
// directories as needed.
func writeReport(format, path string, record *schemas.RunRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	reporter, err := reporting.New(format, path)
	if err != nil {
		return err
	}
	if err := reporter.Write(record); err != nil {
		reporter.Close()
		return err
	}
	return reporter.Close()
}
