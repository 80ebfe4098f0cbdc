package tsengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
	"github.com/tailscale/hujson"

	"github.com/simonhull/firebird-suite/flock/internal/filesystem"
	"github.com/simonhull/firebird-suite/flock/pkg/logger"
)

type rawConfig struct {
	Extends         json.RawMessage `json:"extends"`
	CompilerOptions struct {
		BaseURL *string             `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
	Files   *[]string `json:"files"`
	Include *[]string `json:"include"`
	Exclude *[]string `json:"exclude"`
}

// compilerOptions is the part of compilerOptions module resolution reads.
type compilerOptions struct {
	baseURL   string              // absolute, empty when unset
	paths     map[string][]string // tsconfig "paths"
	pathsBase string              // directory of the config declaring paths
}

func (o compilerOptions) empty() bool {
	return o.baseURL == "" && len(o.paths) == 0
}

// tsconfig is a compiler config with its extends chain applied.
type tsconfig struct {
	path string
	compilerOptions

	files   []string
	include []pattern
	exclude []pattern

	hasFiles   bool
	hasInclude bool
}

// pattern is an include/exclude glob split into a literal base directory and
// a slash-separated remainder matched relative to it.
type pattern struct {
	base string
	rest string
}

func newPattern(dir, p string) pattern {
	full := filepath.ToSlash(p)
	if !filepath.IsAbs(p) {
		full = path.Join(filepath.ToSlash(dir), full)
	}
	segs := strings.Split(full, "/")

	wild := -1
	for i, s := range segs {
		if strings.ContainsAny(s, "*?[{") {
			wild = i
			break
		}
	}

	if wild < 0 {
		// a bare directory means everything below it
		if last := segs[len(segs)-1]; !strings.Contains(last, ".") {
			return pattern{base: filepath.FromSlash(full), rest: "**/*"}
		}
		return pattern{base: filepath.FromSlash(path.Dir(full)), rest: path.Base(full)}
	}
	return pattern{
		base: filepath.FromSlash(strings.Join(segs[:wild], "/")),
		rest: strings.Join(segs[wild:], "/"),
	}
}

func (p pattern) match(file string) bool {
	rel, err := filepath.Rel(p.base, file)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return false
	}
	ok, _ := doublestar.Match(p.rest, rel)
	return ok
}

func matchAny(patterns []pattern, file string) bool {
	for _, p := range patterns {
		if p.match(file) {
			return true
		}
	}
	return false
}

// loadConfig reads a tsconfig and everything it extends. A missing file
// surfaces as an error wrapping fs.ErrNotExist.
func (e *Engine) loadConfig(configPath string) (*tsconfig, error) {
	return e.loadConfigChain(filepath.Clean(configPath), make(map[string]bool))
}

func (e *Engine) loadConfigChain(configPath string, active map[string]bool) (*tsconfig, error) {
	if active[configPath] {
		return nil, fmt.Errorf("%s: circular extends", configPath)
	}
	active[configPath] = true
	defer delete(active, configPath)

	raw, err := readRawConfig(configPath)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(configPath)
	cfg := &tsconfig{path: configPath}

	parents, err := extendsList(raw.Extends)
	if err != nil {
		return nil, fmt.Errorf("parsing extends in %s: %w", configPath, err)
	}
	for _, parent := range parents {
		if !strings.HasPrefix(parent, ".") && !filepath.IsAbs(parent) {
			e.log.Debug("Skipping package tsconfig in extends",
				logger.F("config", configPath),
				logger.F("extends", parent))
			continue
		}
		parentPath := parent
		if !filepath.IsAbs(parentPath) {
			parentPath = filepath.Join(dir, filepath.FromSlash(parent))
		}
		if filepath.Ext(parentPath) != ".json" {
			parentPath += ".json"
		}

		base, err := e.loadConfigChain(parentPath, active)
		if errors.Is(err, fs.ErrNotExist) {
			// not wrapped: a broken extends is not a missing project config
			return nil, fmt.Errorf("%s extends %s: config not found", configPath, parent)
		}
		if err != nil {
			return nil, err
		}
		cfg.merge(base)
	}

	cfg.apply(dir, raw)
	return cfg, nil
}

func readRawConfig(configPath string) (*rawConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configPath, err)
	}
	var raw rawConfig
	if err := json.Unmarshal(std, &raw); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", configPath, err)
	}
	return &raw, nil
}

// extendsList accepts both the string and the array form of "extends".
func extendsList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, err
	}
	return many, nil
}

// merge layers an extended config under c.
func (c *tsconfig) merge(base *tsconfig) {
	if base.baseURL != "" {
		c.baseURL = base.baseURL
	}
	if base.paths != nil {
		c.paths = base.paths
		c.pathsBase = base.pathsBase
	}
	if base.hasFiles {
		c.files, c.hasFiles = base.files, true
	}
	if base.hasInclude {
		c.include, c.hasInclude = base.include, true
	}
	if base.exclude != nil {
		c.exclude = base.exclude
	}
}

// apply overrides c with the values set in raw; relative paths are relative
// to dir, the directory of the config that sets them.
func (c *tsconfig) apply(dir string, raw *rawConfig) {
	if raw.CompilerOptions.BaseURL != nil {
		c.baseURL = filepath.Join(dir, filepath.FromSlash(*raw.CompilerOptions.BaseURL))
	}
	if raw.CompilerOptions.Paths != nil {
		c.paths = raw.CompilerOptions.Paths
		c.pathsBase = dir
	}
	if raw.Files != nil {
		c.hasFiles = true
		c.files = c.files[:0:0]
		for _, f := range *raw.Files {
			c.files = append(c.files, filepath.Join(dir, filepath.FromSlash(f)))
		}
	}
	if raw.Include != nil {
		c.hasInclude = true
		c.include = nil
		for _, p := range *raw.Include {
			c.include = append(c.include, newPattern(dir, p))
		}
	}
	if raw.Exclude != nil {
		c.exclude = []pattern{}
		for _, p := range *raw.Exclude {
			c.exclude = append(c.exclude, newPattern(dir, p))
		}
	}
}

// sourceFiles lists the files the config includes directly, sorted.
func (e *Engine) sourceFiles(cfg *tsconfig) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}

	for _, f := range cfg.files {
		if !isSourceFile(f) {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			e.log.Warn("File listed in tsconfig not found",
				logger.F("config", cfg.path),
				logger.F("file", f))
			continue
		}
		add(f)
	}

	include := cfg.include
	if !cfg.hasFiles && !cfg.hasInclude {
		include = []pattern{newPattern(filepath.Dir(cfg.path), "**/*")}
	}

	walked := make(map[string]bool)
	for _, inc := range include {
		if walked[inc.base] {
			continue
		}
		walked[inc.base] = true

		if _, err := os.Stat(inc.base); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		err := filesystem.Walk(inc.base, e.walkOptions(), func(p string, info os.FileInfo) error {
			if info.IsDir() || !isSourceFile(p) {
				return nil
			}
			if matchAny(include, p) && !matchAny(cfg.exclude, p) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("expanding includes of %s: %w", cfg.path, err)
		}
	}

	sort.Strings(out)
	return out, nil
}

func (e *Engine) walkOptions() filesystem.WalkOptions {
	return filesystem.WalkOptions{
		IgnoreDirs:     e.opts.IgnoreDirs,
		IgnorePatterns: e.opts.IgnorePatterns,
		IncludeHidden:  e.opts.IncludeHidden,
		Gitignore:      e.opts.Gitignore,
		IgnoreRoot:     e.opts.Root,
	}
}

func isSourceFile(p string) bool {
	return strings.HasSuffix(p, ".ts") || strings.HasSuffix(p, ".tsx")
}
