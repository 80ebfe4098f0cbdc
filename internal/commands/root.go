package commands

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/flock"
	"github.com/simonhull/firebird-suite/flock/internal/output"
)

// RootCmd creates and returns the root command for the Flock CLI
func RootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "flock",
		Short: "Cross-project dependency graph for TypeScript workspaces",
		Long: `Flock reads an Angular CLI or Nx workspace and maps which projects
consume the public API of which libraries.

Every symbol exported from a library's barrel file is traced to the
projects that reference it. The result is a weighted graph of library to
consumer edges, or a per-symbol report.`,
		Version:       flock.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			output.SetVerbose(verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging (disables the progress spinner)")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to flock.yaml (default: <workspace>/flock.yaml)")

	return cmd
}

// NewApp returns the root command with every subcommand registered.
func NewApp() *cobra.Command {
	root := RootCmd()
	root.AddCommand(GraphCmd())
	root.AddCommand(ReportCmd())
	root.AddCommand(InitCmd())
	root.AddCommand(VersionCmd())
	return root
}

// Execute runs the CLI and prints a failure through the status writer.
// An interrupt cancels the analysis in progress.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewApp().ExecuteContext(ctx); err != nil {
		output.Error(err.Error())
		return err
	}
	return nil
}
