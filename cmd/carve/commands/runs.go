package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Inspect recorded executions",
		Long: `List past plan and apply runs from the report database, or show the
per-step outcomes of one run. Requires database.path to be set in the
config file.`,
		Example: `  # List the most recent runs
  carve runs

  # Show one run's steps
  carve runs 2f9d1c3a-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if a.store == nil {
				return fmt.Errorf("no report database configured; set database.path in %s", configPath)
			}

			if len(args) == 1 {
				return showRun(cmd, a, args[0])
			}

			runs, err := a.store.ListRuns(ctx, limit, 0)
			if err != nil {
				return err
			}

			if jsonOutput {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(runs)
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no recorded runs")
				return nil
			}
			for _, run := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  %s  %s\n",
					run.ID, run.StartedAt.Format("2006-01-02 15:04:05"),
					run.Strategy, run.Mode, run.Status)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list")

	return cmd
}

// showRun prints one run and its step records.
func showRun(cmd *cobra.Command, a *app, id string) error {
	ctx := cmd.Context()

	run, err := a.store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	steps, err := a.store.ListStepsByRun(ctx, id)
	if err != nil {
		return err
	}

	if jsonOutput {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(struct {
			Run   interface{} `json:"run"`
			Steps interface{} `json:"steps"`
		}{run, steps})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s (%s): %s\n", run.ID, run.Strategy, run.Mode, run.Status)
	if run.Error != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "  error: %s\n", *run.Error)
	}
	for _, step := range steps {
		fmt.Fprintf(cmd.OutOrStdout(), "  %d. [%s] %s\n", step.StepIndex+1, step.Status, step.Description)
		if step.Error != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "       %s\n", *step.Error)
		}
	}
	return nil
}
