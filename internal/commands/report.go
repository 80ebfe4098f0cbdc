package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/flock/pkg/report"
)

// ReportCmd returns the report command
func ReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report [workspace]",
		Short: "Print which projects use each library symbol",
		Long: `Analyzes the workspace and prints, per library, every exported symbol
followed by the projects that reference it.

Example:
  flock report
  flock report ../my-nx-repo > usage.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, args)
			if err != nil {
				return err
			}

			res, err := s.analyze(cmd.Context())
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			return report.WriteConsole(cmd.OutOrStdout(), res.Usages)
		},
	}
}
