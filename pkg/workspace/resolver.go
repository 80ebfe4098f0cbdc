package workspace

import (
	"path"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const resolverCacheSize = 8192

// Resolver maps source files to the project that owns them.
type Resolver struct {
	ws    *Workspace
	cache *lru.Cache[string, Project]
}

// NewResolver creates a resolver for ws.
func NewResolver(ws *Workspace) *Resolver {
	// lru.New only fails for a non-positive size
	cache, _ := lru.New[string, Project](resolverCacheSize)
	return &Resolver{ws: ws, cache: cache}
}

// Normalize converts filePath into a workspace-relative path with forward
// slashes. Backslashes are treated as separators on every platform so that
// paths reported by tools running on Windows still match.
func (r *Resolver) Normalize(filePath string) string {
	p := filepath.FromSlash(strings.ReplaceAll(filePath, `\`, "/"))
	if filepath.IsAbs(p) {
		if rel, err := filepath.Rel(r.ws.root, p); err == nil {
			p = rel
		}
	}
	p = path.Clean(filepath.ToSlash(p))
	if p == "." {
		return ""
	}
	return strings.TrimPrefix(p, "./")
}

// Resolve returns the project whose source root contains filePath. When
// source roots nest, the longest one wins; equal roots keep manifest order.
// Roots containing the path on a directory boundary are preferred; failing
// that, the longest root that is a plain string prefix of the path owns it.
func (r *Resolver) Resolve(filePath string) (Project, error) {
	rel := r.Normalize(filePath)
	if p, ok := r.cache.Get(rel); ok {
		return p, nil
	}

	if rel == ".." || strings.HasPrefix(rel, "../") {
		return Project{}, &UnresolvedFileError{FilePath: filePath, Relative: rel}
	}

	best := r.longestRoot(func(root string) bool { return ownsPath(root, rel) })
	if best < 0 {
		// a root that is only a string prefix, e.g. src for src-gen/x.ts
		best = r.longestRoot(func(root string) bool { return strings.HasPrefix(rel, root) })
	}
	if best < 0 {
		return Project{}, &UnresolvedFileError{FilePath: filePath, Relative: rel}
	}

	p := r.ws.projects[best]
	r.cache.Add(rel, p)
	return p, nil
}

// longestRoot returns the index of the first project with the longest
// source root accepted by match, or -1.
func (r *Resolver) longestRoot(match func(root string) bool) int {
	best := -1
	for i, p := range r.ws.projects {
		if !match(p.SourceRoot) {
			continue
		}
		if best < 0 || len(p.SourceRoot) > len(r.ws.projects[best].SourceRoot) {
			best = i
		}
	}
	return best
}

// ProjectName is Resolve reduced to the project's identity.
func (r *Resolver) ProjectName(filePath string) (string, error) {
	p, err := r.Resolve(filePath)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}
