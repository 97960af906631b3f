package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStrategiesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "List the registered strategies",
		Long: `List every strategy loaded from the configured documents, with its
parent and the number of steps it declares. The effective step count
includes inherited steps.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			strategies := a.registry.List()

			if jsonOutput {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(strategies)
			}

			if len(strategies) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no strategies registered")
				return nil
			}

			for _, s := range strategies {
				steps, err := a.registry.Resolve(s.Name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d effective steps)\n", s.Describe(), len(steps))
				if s.Description != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", s.Description)
				}
			}
			return nil
		},
	}

	return cmd
}
