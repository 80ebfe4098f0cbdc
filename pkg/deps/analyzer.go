// Package deps turns per-symbol reference data into a project-level
// dependency graph.
//
// The pipeline runs in one sequential pass:
//
//	load sources -> EnumerateSurface -> Collector.Collect -> Aggregator
//
// Each run is a full recomputation; nothing is cached between runs.
package deps

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/simonhull/firebird-suite/flock/pkg/analysis"
	"github.com/simonhull/firebird-suite/flock/pkg/logger"
	"github.com/simonhull/firebird-suite/flock/pkg/workspace"
)

// Options configures an Analyzer.
type Options struct {
	// Barrel is the library entry file relative to its source root.
	Barrel string
}

// Result is everything one run produces.
type Result struct {
	Graph *Graph
	// Usages has one entry per exported symbol, in enumeration order.
	Usages []*SymbolUsage
}

// Analyzer drives the engine over a workspace.
type Analyzer struct {
	ws       *workspace.Workspace
	engine   analysis.Engine
	resolver *workspace.Resolver
	opts     Options
	logger   logger.Logger
}

// NewAnalyzer creates an Analyzer for ws backed by engine.
func NewAnalyzer(ws *workspace.Workspace, engine analysis.Engine, opts Options) *Analyzer {
	if opts.Barrel == "" {
		opts.Barrel = DefaultBarrel
	}
	return &Analyzer{
		ws:       ws,
		engine:   engine,
		resolver: workspace.NewResolver(ws),
		opts:     opts,
		logger:   logger.Default(),
	}
}

// WithLogger returns a new Analyzer with the specified logger
func (a *Analyzer) WithLogger(log logger.Logger) *Analyzer {
	return &Analyzer{
		ws:       a.ws,
		engine:   a.engine,
		resolver: a.resolver,
		opts:     a.opts,
		logger:   log,
	}
}

// LoadSources loads each project's compiler config into the engine. Missing
// configs are skipped.
func (a *Analyzer) LoadSources(ctx context.Context) error {
	for _, p := range a.ws.ListProjects() {
		configPath := a.ws.ConfigPath(p)
		err := a.engine.AddSourceFilesFromConfig(ctx, configPath)
		switch {
		case err == nil:
			a.logger.Debug("Loaded project sources",
				logger.F("project", p.Name),
				logger.F("config", configPath))
		case errors.Is(err, fs.ErrNotExist):
			a.logger.Debug("No compiler config, skipping project",
				logger.F("project", p.Name),
				logger.F("config", configPath))
		default:
			return fmt.Errorf("loading sources of %s: %w", p.Name, err)
		}
	}
	return nil
}

// Collect enumerates the public surface of every library and gathers the
// references to it. Sources must already be loaded.
func (a *Analyzer) Collect(ctx context.Context) (*Result, error) {
	symbols, err := EnumerateSurface(a.ws, a.engine, a.opts.Barrel, a.logger)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Enumerated exported symbols", logger.F("symbols", len(symbols)))

	collector := NewCollector(a.engine, a.resolver).WithLogger(a.logger)
	agg := NewAggregator()
	usages := make([]*SymbolUsage, 0, len(symbols))

	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		usage, err := collector.Collect(ctx, sym)
		if err != nil {
			return nil, err
		}
		agg.AddUsage(usage)
		usages = append(usages, usage)
	}

	graph := agg.Graph()
	a.logger.Info("Dependency graph complete",
		logger.F("nodes", len(graph.Nodes)),
		logger.F("links", len(graph.Links)))

	return &Result{Graph: graph, Usages: usages}, nil
}

// Run loads sources and collects in one call.
func (a *Analyzer) Run(ctx context.Context) (*Result, error) {
	if err := a.LoadSources(ctx); err != nil {
		return nil, err
	}
	return a.Collect(ctx)
}
