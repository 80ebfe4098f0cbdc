package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/flock/internal/fileop"
	"github.com/simonhull/firebird-suite/flock/internal/output"
	"github.com/simonhull/firebird-suite/flock/pkg/report"
)

// GraphCmd returns the graph command
func GraphCmd() *cobra.Command {
	var (
		outPath string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "graph [workspace]",
		Short: "Write the project dependency graph as JSON",
		Long: `Analyzes the workspace and writes a {"nodes", "links"} graph where each
link carries the number of references a consumer makes to a library's
public API.

The file is written only after the whole analysis succeeds.

Example:
  flock graph
  flock graph ../my-nx-repo --out graph.json
  flock graph --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, args)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = s.cfg.Output.Graph
			}

			output.Info(fmt.Sprintf("Analyzing workspace: %s", s.root))
			res, err := s.analyze(cmd.Context())
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			data, err := report.MarshalGraph(res.Graph)
			if err != nil {
				return err
			}

			ops := []fileop.Operation{
				&fileop.WriteFileOp{Path: outPath, Content: data, Mode: 0644},
			}
			if err := fileop.Execute(cmd.Context(), ops, fileop.ExecuteOptions{
				DryRun: dryRun,
				Force:  true,
				Writer: output.Writer(),
			}); err != nil {
				return err
			}

			output.Success(fmt.Sprintf("%d projects, %d links", len(res.Graph.Nodes), len(res.Graph.Links)))
			if !dryRun {
				output.Step(fmt.Sprintf("Output: %s", outPath))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Graph output file (default: output.graph from config, data.json)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Analyze without writing the graph file")

	return cmd
}
