// Package tsengine is an analysis.Engine built on tree-sitter's TypeScript
// grammar.
//
// Loading a compiler config expands its files/include/exclude, parses the
// result with a worker pool and follows relative and path-mapped imports
// until the source set is closed. Each file is reduced to an index of its
// declarations, imports, exports and identifier usages; trees are not kept.
//
// References are syntactic: an identifier counts when it names an import
// binding that resolves to the declaration. Function parameters shadow
// imports inside their function; other local shadowing is not tracked.
package tsengine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/simonhull/firebird-suite/flock/pkg/analysis"
	"github.com/simonhull/firebird-suite/flock/pkg/logger"
)

// DefaultRootConfigs are tried in order for workspace-wide path aliases.
var DefaultRootConfigs = []string{"tsconfig.json", "tsconfig.base.json"}

// Options configures an Engine.
type Options struct {
	Root           string   // Workspace root
	RootConfigs    []string // Root tsconfig candidates, relative to Root
	IgnoreDirs     []string // Directory names skipped while expanding includes
	IgnorePatterns []string // Globs over Root-relative paths skipped while expanding includes
	IncludeHidden  bool     // Expand includes into dot-directories
	Gitignore      bool     // Honour <Root>/.gitignore while expanding includes
	Workers        int      // Parser workers (default: runtime.NumCPU())
	Logger         logger.Logger
}

// Engine indexes a TypeScript source set. Loading is not safe for
// concurrent use; queries run after loading completes.
type Engine struct {
	opts Options
	log  logger.Logger

	// rootOptions applies to configs that set neither baseUrl nor paths.
	rootOptions compilerOptions

	files  map[string]*fileInfo
	failed map[string]bool
	stats  map[string]bool

	resolved map[exportKey]resolution
}

type exportKey struct {
	file string
	name string
}

type resolution struct {
	decl analysis.Declaration
	ok   bool
}

// New creates an engine and reads the first root tsconfig found.
func New(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	if len(opts.RootConfigs) == 0 {
		opts.RootConfigs = DefaultRootConfigs
	}
	if opts.Root != "" {
		abs, err := filepath.Abs(opts.Root)
		if err != nil {
			return nil, err
		}
		opts.Root = abs
	}

	e := &Engine{
		opts:     opts,
		log:      opts.Logger,
		files:    make(map[string]*fileInfo),
		failed:   make(map[string]bool),
		stats:    make(map[string]bool),
		resolved: make(map[exportKey]resolution),
	}

	if opts.Root == "" {
		return e, nil
	}
	for _, name := range opts.RootConfigs {
		configPath := filepath.Join(opts.Root, name)
		cfg, err := e.loadConfig(configPath)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading root config: %w", err)
		}
		e.rootOptions = cfg.compilerOptions
		e.log.Debug("Loaded root compiler options",
			logger.F("config", configPath),
			logger.F("paths", len(cfg.paths)))
		break
	}
	return e, nil
}

// AddSourceFilesFromConfig loads the files configPath includes and every
// file they import, transitively.
func (e *Engine) AddSourceFilesFromConfig(ctx context.Context, configPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	configPath, err := filepath.Abs(configPath)
	if err != nil {
		return err
	}

	cfg, err := e.loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", configPath, err)
	}
	opts := cfg.compilerOptions
	if opts.empty() {
		opts = e.rootOptions
	}

	roots, err := e.sourceFiles(cfg)
	if err != nil {
		return err
	}

	added, err := e.load(ctx, roots, opts)
	if err != nil {
		return err
	}
	e.log.Debug("Loaded compiler config",
		logger.F("config", configPath),
		logger.F("included", len(roots)),
		logger.F("added", added))
	return nil
}

func (e *Engine) load(ctx context.Context, roots []string, opts compilerOptions) (int, error) {
	// new files invalidate memoized export resolution
	e.resolved = make(map[exportKey]resolution)

	frontier := e.pending(roots)
	added := 0
	for len(frontier) > 0 {
		infos, err := e.parseFiles(ctx, frontier)
		if err != nil {
			return added, err
		}
		for _, p := range frontier {
			e.failed[p] = true
		}

		var next []string
		for _, fi := range infos {
			delete(e.failed, fi.path)
			fi.modules = make(map[string]string, len(fi.specs))
			for _, spec := range fi.specs {
				target := e.resolveModule(fi.path, spec, opts)
				fi.modules[spec] = target
				if target != "" {
					next = append(next, target)
				}
			}
			e.files[fi.path] = fi
			added++
		}
		frontier = e.pending(next)
	}
	return added, nil
}

// pending returns the distinct paths not yet loaded or failed, sorted.
func (e *Engine) pending(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		p = filepath.Clean(p)
		if seen[p] || e.files[p] != nil || e.failed[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// HasSourceFile reports whether path has been loaded.
func (e *Engine) HasSourceFile(path string) bool {
	return e.files[filepath.Clean(path)] != nil
}

// ExportedSymbols lists the exports of path in source order. Names from
// `export *` follow the file's own exports and resolve to the underlying
// declaration.
func (e *Engine) ExportedSymbols(path string) ([]analysis.Symbol, error) {
	fi := e.files[filepath.Clean(path)]
	if fi == nil {
		return nil, fmt.Errorf("%s is not in the source set", path)
	}

	explicit := make(map[string]bool)
	for _, ex := range fi.exports {
		if ex.kind != exportStar {
			explicit[ex.name] = true
		}
	}

	var symbols []analysis.Symbol
	emitted := make(map[string]bool)
	emit := func(name string, decl analysis.Declaration) {
		if emitted[name] {
			return
		}
		emitted[name] = true
		symbols = append(symbols, analysis.Symbol{Name: name, Declarations: []analysis.Declaration{decl}})
	}

	for _, ex := range fi.exports {
		if ex.kind == exportStar {
			continue
		}
		emit(ex.name, e.exportDeclaration(fi, ex))
	}

	for _, ex := range fi.exports {
		if ex.kind != exportStar {
			continue
		}
		for _, name := range e.exportNames(fi.modules[ex.spec], make(map[string]bool)) {
			if explicit[name] || name == "default" || name == "export=" {
				continue
			}
			if decl, ok := e.resolveExport(fi.modules[ex.spec], name); ok {
				emit(name, decl)
			}
		}
	}
	return symbols, nil
}

// exportDeclaration is the handle ExportedSymbols reports for an explicit
// export entry.
func (e *Engine) exportDeclaration(fi *fileInfo, ex exportEntry) analysis.Declaration {
	handle := analysis.Declaration{Name: ex.name, FilePath: fi.path, Pos: ex.pos}
	switch ex.kind {
	case exportFrom:
		handle.Kind = analysis.KindExportSpecifier
	case exportNamespace:
		handle.Kind = analysis.KindNamespaceExport
	case exportAssignment:
		handle.Kind = analysis.KindExportAssignment
	case exportLocal:
		if decl, ok := fi.declaration(ex.local); ok {
			return decl
		}
		if _, ok := fi.importOf(ex.local); ok {
			handle.Kind = analysis.KindExportSpecifier
		}
	}
	return handle
}

// exportNames lists every name path exports, expanding star exports.
func (e *Engine) exportNames(path string, active map[string]bool) []string {
	fi := e.files[path]
	if fi == nil || active[path] {
		return nil
	}
	active[path] = true

	var names []string
	for _, ex := range fi.exports {
		if ex.kind == exportStar {
			names = append(names, e.exportNames(fi.modules[ex.spec], active)...)
			continue
		}
		names = append(names, ex.name)
	}
	return names
}

// IsReferenceFindable reports whether decl names a declaration the engine
// can track. Default-export expressions and namespace re-exports cannot be.
func (e *Engine) IsReferenceFindable(decl analysis.Declaration) bool {
	switch decl.Kind {
	case analysis.KindExportAssignment, analysis.KindNamespaceExport, analysis.KindUnknown:
		return false
	}
	return e.files[decl.FilePath] != nil
}

// ResolveAlias follows an export specifier to the declaration it forwards
// to. The result is empty when the chain leaves the source set.
func (e *Engine) ResolveAlias(decl analysis.Declaration) ([]analysis.Declaration, error) {
	fi := e.files[filepath.Clean(decl.FilePath)]
	if fi == nil {
		return nil, fmt.Errorf("%s is not in the source set", decl.FilePath)
	}
	for _, ex := range fi.exports {
		if ex.name != decl.Name || ex.pos != decl.Pos {
			continue
		}
		var (
			target analysis.Declaration
			ok     bool
		)
		switch ex.kind {
		case exportFrom:
			target, ok = e.resolveExport(fi.modules[ex.spec], ex.imported)
		case exportLocal:
			target, ok = e.resolveLocal(fi, ex.local, make(map[exportKey]bool))
		default:
			return nil, fmt.Errorf("%s is not an export specifier", decl)
		}
		if !ok {
			return nil, nil
		}
		return []analysis.Declaration{target}, nil
	}
	return nil, fmt.Errorf("no export specifier %s", decl)
}

// resolveExport follows name exported from path to its declaration.
func (e *Engine) resolveExport(path, name string) (analysis.Declaration, bool) {
	key := exportKey{file: path, name: name}
	if r, ok := e.resolved[key]; ok {
		return r.decl, r.ok
	}
	decl, ok := e.resolveExportChain(path, name, make(map[exportKey]bool))
	e.resolved[key] = resolution{decl: decl, ok: ok}
	return decl, ok
}

func (e *Engine) resolveExportChain(path, name string, active map[exportKey]bool) (analysis.Declaration, bool) {
	fi := e.files[path]
	key := exportKey{file: path, name: name}
	if fi == nil || active[key] {
		return analysis.Declaration{}, false
	}
	active[key] = true

	for _, ex := range fi.exports {
		if ex.kind == exportStar || ex.name != name {
			continue
		}
		switch ex.kind {
		case exportLocal:
			return e.resolveLocal(fi, ex.local, active)
		case exportFrom:
			return e.resolveExportChain(fi.modules[ex.spec], ex.imported, active)
		default:
			return e.exportDeclaration(fi, ex), true
		}
	}

	if name == "default" {
		return analysis.Declaration{}, false
	}
	for _, ex := range fi.exports {
		if ex.kind != exportStar {
			continue
		}
		if decl, ok := e.resolveExportChain(fi.modules[ex.spec], name, active); ok {
			return decl, true
		}
	}
	return analysis.Declaration{}, false
}

// resolveLocal follows a local binding of fi to its declaration.
func (e *Engine) resolveLocal(fi *fileInfo, local string, active map[exportKey]bool) (analysis.Declaration, bool) {
	if decl, ok := fi.declaration(local); ok {
		return decl, true
	}
	imp, ok := fi.importOf(local)
	if !ok || imp.imported == "*" {
		return analysis.Declaration{}, false
	}
	return e.resolveExportChain(fi.modules[imp.spec], imp.imported, active)
}

// FindReferences returns every reference site of decl across the source
// set, sorted by file then position. The declaring identifier itself is not
// a reference; import and re-export specifiers are.
func (e *Engine) FindReferences(ctx context.Context, decl analysis.Declaration) ([]analysis.Reference, error) {
	if !e.IsReferenceFindable(decl) {
		return nil, fmt.Errorf("cannot find references to %s", decl)
	}

	paths := make([]string, 0, len(e.files))
	for p := range e.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var refs []analysis.Reference
	for i, p := range paths {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		refs = append(refs, e.referencesIn(e.files[p], decl)...)
	}
	return refs, nil
}

func (e *Engine) referencesIn(fi *fileInfo, decl analysis.Declaration) []analysis.Reference {
	same := func(d analysis.Declaration, ok bool) bool {
		return ok && d.FilePath == decl.FilePath && d.Name == decl.Name
	}

	var positions []analysis.Position
	locals := make(map[string]bool)
	if fi.path == decl.FilePath {
		locals[decl.Name] = true
	}

	namespaces := make(map[string]string)
	for _, imp := range fi.imports {
		target := fi.modules[imp.spec]
		if imp.imported == "*" {
			if target != "" {
				namespaces[imp.local] = target
			}
			continue
		}
		if same(e.resolveExport(target, imp.imported)) {
			positions = append(positions, imp.pos)
			locals[imp.local] = true
		}
	}

	for local := range locals {
		positions = append(positions, fi.usages[local]...)
	}

	for _, m := range fi.members {
		if target, ok := namespaces[m.object]; ok && same(e.resolveExport(target, m.property)) {
			positions = append(positions, m.pos)
		}
	}

	for _, ex := range fi.exports {
		if ex.kind == exportFrom && same(e.resolveExport(fi.modules[ex.spec], ex.imported)) {
			positions = append(positions, ex.pos)
		}
	}

	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Line != positions[j].Line {
			return positions[i].Line < positions[j].Line
		}
		return positions[i].Column < positions[j].Column
	})

	refs := make([]analysis.Reference, 0, len(positions))
	for _, pos := range positions {
		refs = append(refs, analysis.Reference{FilePath: fi.path, Pos: pos})
	}
	return refs
}

var _ analysis.Engine = (*Engine)(nil)
