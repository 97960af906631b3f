package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse and validate strategy documents",
		Long: `Load the configured strategy documents, translate them into the
intermediate representation and register them. Structural problems,
undefined parents and cyclic inheritance are reported without touching
any disk.`,
		Example: `  # Validate the configured strategy paths
  carve validate

  # Validate a specific directory
  carve validate -s ./strategies`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			strategies := a.registry.List()
			if len(strategies) == 0 {
				return fmt.Errorf("no strategies found; pass --strategies or set strategy_paths in %s", configPath)
			}

			// Resolving every strategy surfaces composition problems that
			// registration alone cannot see.
			for _, s := range strategies {
				if _, err := a.registry.Resolve(s.Name); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d strategies valid\n", len(strategies))
			return nil
		},
	}

	return cmd
}
