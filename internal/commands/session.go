package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/flock/internal/output"
	"github.com/simonhull/firebird-suite/flock/internal/progress"
	"github.com/simonhull/firebird-suite/flock/pkg/analysis/tsengine"
	"github.com/simonhull/firebird-suite/flock/pkg/config"
	"github.com/simonhull/firebird-suite/flock/pkg/deps"
	"github.com/simonhull/firebird-suite/flock/pkg/logger"
	"github.com/simonhull/firebird-suite/flock/pkg/workspace"
)

// session holds what every analysing command resolves from its flags.
type session struct {
	cmd     *cobra.Command
	root    string
	cfg     *config.Config
	log     logger.Logger
	level   logger.Level
	verbose bool
}

func workspaceArg(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving workspace path: %w", err)
	}
	return abs, nil
}

func newSession(cmd *cobra.Command, args []string) (*session, error) {
	root, err := workspaceArg(args)
	if err != nil {
		return nil, err
	}

	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(root, configPath)
	if err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level: %w", err)
	}
	if verbose {
		level = logger.LevelDebug
	}
	log := logger.NewLogger(level, cmd.ErrOrStderr())
	logger.SetDefault(log)

	return &session{cmd: cmd, root: root, cfg: cfg, log: log, level: level, verbose: verbose}, nil
}

// analyze loads the workspace and runs the full pipeline. On an interactive
// terminal it runs under a spinner with logging held at warnings.
func (s *session) analyze(ctx context.Context) (*deps.Result, error) {
	ws, err := workspace.Load(s.root, workspace.Options{
		ManifestFiles: s.cfg.Manifest.Files,
		ConfigNames: workspace.ConfigNames{
			Application: s.cfg.TSConfig.Application,
			Library:     s.cfg.TSConfig.Library,
		},
		Strict: s.cfg.Manifest.Strict,
		Logger: s.log,
	})
	if err != nil {
		return nil, err
	}
	output.Verbose(fmt.Sprintf("Manifest: %s (%d projects, %d libraries)",
		ws.ManifestPath(), len(ws.ListProjects()), len(ws.ListLibraries())))

	engine, err := tsengine.New(tsengine.Options{
		Root:           s.root,
		RootConfigs:    s.cfg.TSConfig.Root,
		IgnoreDirs:     s.cfg.Analysis.IgnoreDirs,
		IgnorePatterns: s.cfg.Analysis.IgnorePatterns,
		IncludeHidden:  s.cfg.Analysis.IncludeHidden,
		Gitignore:      s.cfg.Analysis.Gitignore,
		Workers:        s.cfg.Analysis.Workers,
		Logger:         s.log,
	})
	if err != nil {
		return nil, err
	}

	output.Verbose(fmt.Sprintf("Barrel: %s, parser workers: %d", s.cfg.Barrel, s.cfg.Analysis.Workers))

	analyzer := deps.NewAnalyzer(ws, engine, deps.Options{Barrel: s.cfg.Barrel}).WithLogger(s.log)

	stderr := s.cmd.ErrOrStderr()
	if s.verbose || !progress.IsInteractive(stderr) {
		return analyzer.Run(ctx)
	}

	if s.level < logger.LevelWarn {
		s.log.SetLevel(logger.LevelWarn)
		defer s.log.SetLevel(s.level)
	}
	var res *deps.Result
	err = progress.Run(ctx, stderr, "Analyzing workspace", func(ctx context.Context) error {
		var runErr error
		res, runErr = analyzer.Run(ctx)
		return runErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
