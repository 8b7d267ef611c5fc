package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/wayfinder-cli/internal/observability"
	"github.com/xkilldash9x/wayfinder-cli/internal/runstore"
)

// newRunsCmd creates the `runs` command, which lists recorded runs.
func newRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "Lists recorded exploration runs, newest first",
		Args:  cobra.NoArgs,
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

			summaries, err := store.ListRuns(ctx)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				cmd.Println("No runs recorded yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tSTARTED\tSTATUS\tTARGET\tGOAL")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					s.ID, s.StartedAt.Format("2006-01-02 15:04:05"), s.Status, s.TargetURL, s.Goal)
			}
			return w.Flush()
		},
	}
}
