package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "froyo-provider",
		Short: "Froyo resource provider host",
		Long: `froyo-provider hosts a resource provider plugin and serves the provider
RPC protocol to a deployment engine.

The host listens on a TCP port, announces the port on stdout, and then
answers provider requests (Check, Diff, Create, Update, Delete, Read,
Invoke, Construct, ...) over newline-framed JSON envelopes. Resource
checkpoints are kept in a local SQLite store.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(newServeCommand(version))
	rootCmd.AddCommand(newVersionCommand(version, commit, buildDate))

	return rootCmd
}
