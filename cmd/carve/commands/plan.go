package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aerynos/carve/pkg/strategy"
)

func newPlanCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "plan <strategy>",
		Short: "Resolve a strategy into concrete operations without touching disks",
		Long: `Resolve the named strategy against the configured disk inventory and
print the operations it would perform: which disk it selects, what table
it writes, and where each partition lands. No mutation is issued; a
successful plan predicts a successful apply against an unchanged backend.`,
		Example: `  # Preview the operations for a strategy
  carve plan whole_disk_with_swap

  # Machine-readable output
  carve plan whole_disk_with_swap --json

  # Re-plan whenever a strategy document changes
  carve plan whole_disk_with_swap --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := planOnce(cmd, a, name); err != nil && !watch {
				return err
			}

			if !watch {
				return nil
			}

			err = a.loader.Watch(ctx, a.strategyLoadPaths(), func(strategies []*strategy.Strategy) error {
				if err := a.reloadStrategies(strategies); err != nil {
					return err
				}
				return planOnce(cmd, a, name)
			})
			if err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-plan when strategy documents change")

	return cmd
}

// planOnce runs one dry-run and prints the resulting plan.
func planOnce(cmd *cobra.Command, a *app, name string) error {
	ctx := cmd.Context()

	report, err := a.executor(false).DryRun(ctx, name)
	a.record(ctx, report)
	if err != nil {
		if report != nil {
			fmt.Fprint(os.Stderr, report.Describe())
		}
		return err
	}

	if jsonOutput {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(report.Plan())
	}

	fmt.Fprint(cmd.OutOrStdout(), report.Plan().Describe())
	return nil
}
