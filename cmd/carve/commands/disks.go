package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aerynos/carve/pkg/sizing"
)

func newDisksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disks",
		Short: "List the disks the backend knows about",
		Long: `Enumerate the configured disk inventory with capacity, partition
table type and existing partitions, the way a strategy's find-disk step
sees it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			disks, err := a.backend.EnumerateDisks(ctx)
			if err != nil {
				return err
			}

			if jsonOutput {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(disks)
			}

			if len(disks) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no disks configured; declare them under disks: in %s\n", configPath)
				return nil
			}

			for _, d := range disks {
				table := d.TableType
				if table == "" {
					table = "none"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  table=%s  partitions=%d\n",
					d.ID, sizing.FormatSize(d.Size), table, len(d.Partitions))
				for _, p := range d.Partitions {
					fmt.Fprintf(cmd.OutOrStdout(), "    %d: %s at %s  role=%s  label=%s\n",
						p.Number, sizing.FormatSize(p.Size),
						sizing.FormatPosition(p.Start, d.Size), orDash(p.Role), orDash(p.Label))
				}
			}
			return nil
		},
	}

	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
