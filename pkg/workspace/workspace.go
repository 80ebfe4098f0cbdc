// Package workspace models an Angular CLI or Nx style workspace: the set of
// projects declared in its manifest and the mapping from source files back to
// the project that owns them.
package workspace

import (
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Kind distinguishes applications from libraries.
type Kind string

const (
	KindApplication Kind = "application"
	KindLibrary     Kind = "library"
)

// Declaration is a project entry as written in the manifest.
type Declaration struct {
	Root       string
	SourceRoot string
	Kind       Kind
}

// Project is a declared project together with its manifest key.
type Project struct {
	Name string
	Declaration
}

// IsLibrary reports whether the project is a library.
func (p Project) IsLibrary() bool {
	return p.Kind == KindLibrary
}

// ConfigNames are the per-kind compiler config file names.
type ConfigNames struct {
	Application string
	Library     string
}

// DefaultConfigNames follows the Angular CLI convention.
var DefaultConfigNames = ConfigNames{
	Application: "tsconfig.app.json",
	Library:     "tsconfig.lib.json",
}

// Workspace is the immutable project set of one workspace root.
type Workspace struct {
	root         string
	manifestPath string
	projects     []Project
	configNames  ConfigNames
}

// New builds a workspace from already-known projects. Source roots are
// normalized the same way Load normalizes them.
func New(root string, projects []Project) *Workspace {
	ws := &Workspace{
		root:        filepath.Clean(root),
		configNames: DefaultConfigNames,
		projects:    make([]Project, 0, len(projects)),
	}
	for _, p := range projects {
		p.Root = normalizeDir(p.Root)
		p.SourceRoot = normalizeDir(p.SourceRoot)
		ws.projects = append(ws.projects, p)
	}
	return ws
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string {
	return w.root
}

// ManifestPath returns the manifest the workspace was loaded from, if any.
func (w *Workspace) ManifestPath() string {
	return w.manifestPath
}

// ListProjects returns all projects in manifest order.
func (w *Workspace) ListProjects() []Project {
	out := make([]Project, len(w.projects))
	copy(out, w.projects)
	return out
}

// ListLibraries returns the library projects in manifest order.
func (w *Workspace) ListLibraries() []Project {
	var libs []Project
	for _, p := range w.projects {
		if p.IsLibrary() {
			libs = append(libs, p)
		}
	}
	return libs
}

// Project looks up a project by name.
func (w *Workspace) Project(name string) (Project, bool) {
	for _, p := range w.projects {
		if p.Name == name {
			return p, true
		}
	}
	return Project{}, false
}

// Abs joins a workspace-relative, forward-slash path onto the root.
func (w *Workspace) Abs(rel string) string {
	return filepath.Join(w.root, filepath.FromSlash(rel))
}

// ConfigPath returns the compiler config that defines p's source set.
func (w *Workspace) ConfigPath(p Project) string {
	name := w.configNames.Application
	if p.IsLibrary() {
		name = w.configNames.Library
	}
	return filepath.Join(w.Abs(p.Root), name)
}

// BarrelPath returns the absolute path of a library's public entry file.
func (w *Workspace) BarrelPath(p Project, barrel string) string {
	return filepath.Join(w.Abs(p.SourceRoot), barrel)
}

// Overlap is a pair of projects where one source root contains the other.
type Overlap struct {
	Outer string
	Inner string
}

// Overlaps lists project pairs whose source roots nest. Files under the inner
// root are claimed by both unless the resolver disambiguates.
func (w *Workspace) Overlaps() []Overlap {
	var out []Overlap
	for i, a := range w.projects {
		for j, b := range w.projects {
			if i == j {
				continue
			}
			if len(a.SourceRoot) > len(b.SourceRoot) || (len(a.SourceRoot) == len(b.SourceRoot) && i > j) {
				continue
			}
			if ownsPath(a.SourceRoot, b.SourceRoot) {
				out = append(out, Overlap{Outer: a.Name, Inner: b.Name})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Outer != out[j].Outer {
			return out[i].Outer < out[j].Outer
		}
		return out[i].Inner < out[j].Inner
	})
	return out
}

// normalizeDir turns a manifest path into clean forward-slash form with no
// leading "./" and no trailing slash. The workspace root itself becomes "".
func normalizeDir(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	if p == "." || p == "/" {
		return ""
	}
	return strings.TrimPrefix(p, "./")
}

// ownsPath reports whether dir contains rel on a path segment boundary.
func ownsPath(dir, rel string) bool {
	if dir == "" {
		return true
	}
	return rel == dir || strings.HasPrefix(rel, dir+"/")
}
