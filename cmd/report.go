package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/wayfinder-cli/internal/observability"
	"github.com/xkilldash9x/wayfinder-cli/internal/reporting"
	"github.com/xkilldash9x/wayfinder-cli/internal/runstore"
)

// newReportCmd creates the `report` command, which re-renders a stored run.
func newReportCmd() *cobra.Command {
	var (
		format string
		output string
	)

	reportCmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Renders the report for a previously recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}

			store, err := runstore.NewFromConfig(ctx, cfg.Store, cfg.Artifact.Dir, observability.GetLogger())
			if err != nil {
				return fmt.Errorf("failed to open the run store: %w", err)
			}
			defer store.Close()

			record, err := store.GetRun(ctx, args[0])
			if err != nil {
				return err
			}

			reporter, err := reporting.New(format, output)
			if err != nil {
				return err
			}
			if err := reporter.Write(record); err != nil {
				reporter.Close()
				return fmt.Errorf("failed to write report: %w", err)
			}
			return reporter.Close()
		},
	}

	reportCmd.Flags().StringVarP(&format, "format", "f", "markdown", "report format: markdown or json")
	reportCmd.Flags().StringVarP(&output, "output", "o", "", "report destination file (default stdout)")

	return reportCmd
}
