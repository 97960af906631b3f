package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath    string
	strategyPaths []string
	verbose       bool
	jsonOutput    bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "carve",
		Short: "Carve - Declarative Disk Partitioning Engine",
		Long: `Carve resolves declarative partitioning strategies into concrete disk
operations and executes them against a storage backend.

Strategies are named, inheritable sequences of steps (find a disk, create
a partition table, carve partitions under size constraints, locate
existing partitions). Carve composes inheritance chains, selects disks
deterministically, sizes partitions with exact integer arithmetic, and
reports every step it took.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "config file path")
	rootCmd.PersistentFlags().StringSliceVarP(&strategyPaths, "strategies", "s", nil, "strategy document files or directories")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newApplyCommand())
	rootCmd.AddCommand(newStrategiesCommand())
	rootCmd.AddCommand(newDisksCommand())
	rootCmd.AddCommand(newRunsCommand())

	return rootCmd
}

// defaultConfigPath returns ~/.carve.yaml, or .carve.yaml when the home
// directory cannot be determined.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".carve.yaml"
	}
	return filepath.Join(home, ".carve.yaml")
}
