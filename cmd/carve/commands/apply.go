package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newApplyCommand() *cobra.Command {
	var (
		force bool
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "apply <strategy>",
		Short: "Execute a strategy against the storage backend",
		Long: `Execute the named strategy. A dry-run pass computes the full plan
first; only when every step resolves does carve issue mutations, in step
order. The first failing step aborts the remaining ones. Committed steps
are not rolled back; the report records exactly what happened.

Writing a partition table to a non-empty disk is refused unless --force
acknowledges the data loss.`,
		Example: `  # Execute a strategy (asks for confirmation)
  carve apply whole_disk_with_swap --yes

  # Overwrite disks that already carry a partition table
  carve apply whole_disk_with_swap --yes --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			executor := a.executor(force)

			// Rehearse before mutating anything.
			preview, err := executor.DryRun(ctx, name)
			if err != nil {
				if preview != nil {
					fmt.Fprint(os.Stderr, preview.Describe())
				}
				return fmt.Errorf("refusing to apply, dry-run failed: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), preview.Plan().Describe())

			if !yes {
				return fmt.Errorf("refusing to apply without --yes")
			}

			report, err := executor.Apply(ctx, name)
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
				return encoder.Encode(report)
			}

			fmt.Fprint(cmd.OutOrStdout(), report.Describe())
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite non-empty disks")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm execution")

	return cmd
}
