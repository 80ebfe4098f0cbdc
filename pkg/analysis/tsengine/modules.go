package tsengine

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var extensions = []string{".ts", ".tsx", ".d.ts"}

// resolveModule maps an import specifier in from to a file, or "" when the
// module lives outside the workspace (node_modules, builtins).
func (e *Engine) resolveModule(from, spec string, opts compilerOptions) string {
	if spec == "" {
		return ""
	}
	if isRelative(spec) {
		return e.probe(filepath.Join(filepath.Dir(from), filepath.FromSlash(spec)))
	}
	if filepath.IsAbs(spec) {
		return e.probe(filepath.Clean(spec))
	}

	base := opts.baseURL
	if base == "" {
		base = opts.pathsBase
	}
	for _, key := range orderedPatterns(opts.paths) {
		star, ok := matchPathPattern(key, spec)
		if !ok {
			continue
		}
		for _, target := range opts.paths[key] {
			sub := strings.Replace(target, "*", star, 1)
			if p := e.probe(filepath.Join(base, filepath.FromSlash(sub))); p != "" {
				return p
			}
		}
	}

	if opts.baseURL != "" {
		return e.probe(filepath.Join(opts.baseURL, filepath.FromSlash(spec)))
	}
	return ""
}

func isRelative(spec string) bool {
	return spec == "." || spec == ".." ||
		strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}

// orderedPatterns sorts path keys the way the compiler tries them: exact
// keys first, then wildcards by longest prefix.
func orderedPatterns(paths map[string][]string) []string {
	keys := make([]string, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		wi, wj := strings.Contains(keys[i], "*"), strings.Contains(keys[j], "*")
		if wi != wj {
			return !wi
		}
		pi, pj := strings.Index(keys[i], "*"), strings.Index(keys[j], "*")
		if pi != pj {
			return pi > pj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// matchPathPattern matches spec against a "paths" key with at most one
// wildcard and returns the text the wildcard captured.
func matchPathPattern(key, spec string) (string, bool) {
	star := strings.Index(key, "*")
	if star < 0 {
		return "", key == spec
	}
	prefix, suffix := key[:star], key[star+1:]
	if len(spec) < len(prefix)+len(suffix) ||
		!strings.HasPrefix(spec, prefix) || !strings.HasSuffix(spec, suffix) {
		return "", false
	}
	return spec[len(prefix) : len(spec)-len(suffix)], true
}

// probe tries base as a file, with each extension, then as a directory
// holding an index file.
func (e *Engine) probe(base string) string {
	var candidates []string
	if isSourceFile(base) {
		candidates = append(candidates, base)
	}
	if strings.HasSuffix(base, ".js") {
		trimmed := strings.TrimSuffix(base, ".js")
		candidates = append(candidates, trimmed+".ts", trimmed+".tsx")
	}
	for _, ext := range extensions {
		candidates = append(candidates, base+ext)
	}
	for _, ext := range extensions {
		candidates = append(candidates, filepath.Join(base, "index"+ext))
	}

	for _, c := range candidates {
		if e.isFile(c) {
			return c
		}
	}
	return ""
}

func (e *Engine) isFile(p string) bool {
	if ok, cached := e.stats[p]; cached {
		return ok
	}
	info, err := os.Stat(p)
	ok := err == nil && !info.IsDir()
	e.stats[p] = ok
	return ok
}
