package deps

import (
	"context"
	"fmt"
	"sort"

	"github.com/simonhull/firebird-suite/flock/pkg/analysis"
	"github.com/simonhull/firebird-suite/flock/pkg/logger"
	"github.com/simonhull/firebird-suite/flock/pkg/workspace"
)

// ProjectReference is a reference site already attributed to its project.
type ProjectReference struct {
	Project  string
	FilePath string
	Pos      analysis.Position
}

// SymbolUsage is every foreign reference to one exported symbol.
type SymbolUsage struct {
	Symbol ExportedSymbol
	// References holds one entry per reference site outside the exporting
	// project. Its length is the symbol's contribution to edge weights.
	References []ProjectReference
}

// Projects returns the distinct referencing projects, sorted.
func (u *SymbolUsage) Projects() []string {
	seen := make(map[string]struct{}, len(u.References))
	var out []string
	for _, ref := range u.References {
		if _, ok := seen[ref.Project]; ok {
			continue
		}
		seen[ref.Project] = struct{}{}
		out = append(out, ref.Project)
	}
	sort.Strings(out)
	return out
}

// Collector finds the references to exported symbols and attributes them to
// projects.
type Collector struct {
	engine   analysis.Engine
	resolver *workspace.Resolver
	logger   logger.Logger
}

// NewCollector creates a collector.
func NewCollector(engine analysis.Engine, resolver *workspace.Resolver) *Collector {
	return &Collector{
		engine:   engine,
		resolver: resolver,
		logger:   logger.Default(),
	}
}

// WithLogger returns a copy of the collector using log.
func (c *Collector) WithLogger(log logger.Logger) *Collector {
	return &Collector{
		engine:   c.engine,
		resolver: c.resolver,
		logger:   log,
	}
}

// Collect gathers the references to sym from other projects. A reference in
// a file no project owns aborts collection with *workspace.UnresolvedFileError.
func (c *Collector) Collect(ctx context.Context, sym ExportedSymbol) (*SymbolUsage, error) {
	decls, err := c.referenceable(sym)
	if err != nil {
		return nil, err
	}

	usage := &SymbolUsage{Symbol: sym}
	for _, decl := range decls {
		refs, err := c.engine.FindReferences(ctx, decl)
		if err != nil {
			return nil, fmt.Errorf("finding references to %s.%s: %w", sym.Project, sym.Name, err)
		}

		for _, ref := range refs {
			project, err := c.resolver.ProjectName(ref.FilePath)
			if err != nil {
				return nil, fmt.Errorf("resolving reference to %s.%s: %w", sym.Project, sym.Name, err)
			}
			if project == sym.Project {
				continue
			}
			usage.References = append(usage.References, ProjectReference{
				Project:  project,
				FilePath: ref.FilePath,
				Pos:      ref.Pos,
			})
		}
	}

	c.logger.Debug("Collected references",
		logger.F("project", sym.Project),
		logger.F("symbol", sym.Name),
		logger.F("references", len(usage.References)))

	return usage, nil
}

// referenceable replaces export specifiers with the declarations they alias
// and drops declarations the engine cannot track.
func (c *Collector) referenceable(sym ExportedSymbol) ([]analysis.Declaration, error) {
	var resolved []analysis.Declaration
	for _, decl := range sym.Declarations {
		if !decl.IsAlias() {
			resolved = append(resolved, decl)
			continue
		}
		targets, err := c.engine.ResolveAlias(decl)
		if err != nil {
			return nil, fmt.Errorf("resolving alias %s.%s: %w", sym.Project, sym.Name, err)
		}
		resolved = append(resolved, targets...)
	}

	seen := make(map[analysis.Declaration]struct{}, len(resolved))
	var out []analysis.Declaration
	for _, decl := range resolved {
		if _, dup := seen[decl]; dup {
			continue
		}
		seen[decl] = struct{}{}

		if !c.engine.IsReferenceFindable(decl) {
			c.logger.Debug("Skipping untrackable declaration",
				logger.F("symbol", sym.Name),
				logger.F("kind", decl.Kind))
			continue
		}
		out = append(out, decl)
	}
	return out, nil
}
