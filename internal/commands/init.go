package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/flock/internal/fileop"
	"github.com/simonhull/firebird-suite/flock/internal/output"
	"github.com/simonhull/firebird-suite/flock/pkg/config"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [workspace]",
		Short: "Write a default flock.yaml",
		Long: `Writes flock.yaml with the default settings into the workspace root.

Example:
  flock init
  flock init ../my-nx-repo --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := workspaceArg(args)
			if err != nil {
				return err
			}

			data, err := config.Marshal(config.DefaultConfig())
			if err != nil {
				return err
			}

			path := filepath.Join(root, config.FileName)
			ops := []fileop.Operation{
				&fileop.WriteFileOp{Path: path, Content: data, Mode: 0644},
			}
			if err := fileop.Execute(cmd.Context(), ops, fileop.ExecuteOptions{
				Force:  force,
				Writer: output.Writer(),
			}); err != nil {
				return err
			}

			output.Success(fmt.Sprintf("Created %s", config.FileName))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing flock.yaml")

	return cmd
}
