// Package analysistest provides an in-memory analysis.Engine so the
// dependency core can be exercised with synthetic workspaces.
package analysistest

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/simonhull/firebird-suite/flock/pkg/analysis"
)

// Engine is a scripted analysis.Engine. Configure it with Config, Export,
// Reference, Alias and Untrackable before handing it to the core.
type Engine struct {
	configs     map[string][]string
	loaded      map[string]bool
	exports     map[string][]analysis.Symbol
	refs        map[analysis.Declaration][]analysis.Reference
	aliases     map[analysis.Declaration][]analysis.Declaration
	untrackable map[analysis.Declaration]bool

	// LoadedConfigs records config paths in the order they were loaded.
	LoadedConfigs []string
	// Queries records every declaration passed to FindReferences.
	Queries []analysis.Declaration
}

// New returns an empty engine.
func New() *Engine {
	return &Engine{
		configs:     make(map[string][]string),
		loaded:      make(map[string]bool),
		exports:     make(map[string][]analysis.Symbol),
		refs:        make(map[analysis.Declaration][]analysis.Reference),
		aliases:     make(map[analysis.Declaration][]analysis.Declaration),
		untrackable: make(map[analysis.Declaration]bool),
	}
}

// Config registers the files that loading configPath brings in.
func (e *Engine) Config(configPath string, files ...string) *Engine {
	e.configs[configPath] = append(e.configs[configPath], files...)
	return e
}

// Decl builds a declaration handle.
func Decl(file, name string, kind analysis.DeclarationKind) analysis.Declaration {
	return analysis.Declaration{Name: name, Kind: kind, FilePath: file}
}

// Export adds an exported symbol to file.
func (e *Engine) Export(file, name string, decls ...analysis.Declaration) *Engine {
	e.exports[file] = append(e.exports[file], analysis.Symbol{Name: name, Declarations: decls})
	return e
}

// Reference adds one reference site per file argument; repeat a file to add
// several sites in it.
func (e *Engine) Reference(decl analysis.Declaration, files ...string) *Engine {
	for _, f := range files {
		e.refs[decl] = append(e.refs[decl], analysis.Reference{
			FilePath: f,
			Pos:      analysis.Position{Line: len(e.refs[decl])},
		})
	}
	return e
}

// Alias makes spec resolve to targets.
func (e *Engine) Alias(spec analysis.Declaration, targets ...analysis.Declaration) *Engine {
	e.aliases[spec] = append(e.aliases[spec], targets...)
	return e
}

// Untrackable marks decl as not reference-findable.
func (e *Engine) Untrackable(decl analysis.Declaration) *Engine {
	e.untrackable[decl] = true
	return e
}

func (e *Engine) AddSourceFilesFromConfig(ctx context.Context, configPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	files, ok := e.configs[configPath]
	if !ok {
		return fmt.Errorf("config %s: %w", configPath, fs.ErrNotExist)
	}
	e.LoadedConfigs = append(e.LoadedConfigs, configPath)
	for _, f := range files {
		e.loaded[f] = true
	}
	return nil
}

func (e *Engine) HasSourceFile(path string) bool {
	return e.loaded[path]
}

func (e *Engine) ExportedSymbols(path string) ([]analysis.Symbol, error) {
	if !e.loaded[path] {
		return nil, fmt.Errorf("file %s not loaded", path)
	}
	return e.exports[path], nil
}

func (e *Engine) IsReferenceFindable(decl analysis.Declaration) bool {
	if e.untrackable[decl] {
		return false
	}
	switch decl.Kind {
	case analysis.KindExportAssignment, analysis.KindNamespaceExport:
		return false
	}
	return true
}

func (e *Engine) FindReferences(ctx context.Context, decl analysis.Declaration) ([]analysis.Reference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.Queries = append(e.Queries, decl)
	return e.refs[decl], nil
}

func (e *Engine) ResolveAlias(decl analysis.Declaration) ([]analysis.Declaration, error) {
	targets, ok := e.aliases[decl]
	if !ok {
		return nil, fmt.Errorf("no alias target for %s", decl)
	}
	return targets, nil
}

var _ analysis.Engine = (*Engine)(nil)
