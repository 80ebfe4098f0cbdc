package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar"
	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultIgnoreDirs are directories never worth parsing in a workspace.
var DefaultIgnoreDirs = []string{
	"node_modules", ".git", ".svn", ".hg",
	"dist", "tmp", "coverage", ".angular", ".nx",
	".idea", ".vscode",
}

// WalkOptions configures directory traversal behavior
type WalkOptions struct {
	IgnoreDirs     []string // Directory names to skip (default: DefaultIgnoreDirs)
	IgnorePatterns []string // Globs matched against the IgnoreRoot-relative slash path or the base name
	IncludeHidden  bool     // Include hidden files/dirs (default: false)
	Gitignore      bool     // Honour the .gitignore in IgnoreRoot
	IgnoreRoot     string   // Base for .gitignore and IgnorePatterns (default: the walk root)
}

// Walk traverses a directory tree with configurable ignore rules.
// The visitor is called for each file and directory that survives them.
func Walk(rootPath string, opts WalkOptions, visitor func(path string, info os.FileInfo) error) error {
	ignoreDirs := opts.IgnoreDirs
	if len(ignoreDirs) == 0 {
		ignoreDirs = DefaultIgnoreDirs
	}
	skipDir := make(map[string]bool, len(ignoreDirs))
	for _, d := range ignoreDirs {
		skipDir[d] = true
	}

	ignoreRoot := opts.IgnoreRoot
	if ignoreRoot == "" {
		ignoreRoot = rootPath
	}
	var gitignore *ignore.GitIgnore
	if opts.Gitignore {
		var err error
		gitignore, err = LoadGitignore(ignoreRoot)
		if err != nil {
			return err
		}
	}

	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == rootPath {
			return visitor(path, info)
		}

		rel, err := filepath.Rel(rootPath, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		ignoreRel := rel
		if ignoreRoot != rootPath {
			if r, err := filepath.Rel(ignoreRoot, path); err == nil {
				ignoreRel = filepath.ToSlash(r)
			}
		}

		if skip(info, rel, ignoreRel, opts, skipDir, gitignore) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		return visitor(path, info)
	})
}

func skip(info os.FileInfo, rel, ignoreRel string, opts WalkOptions, skipDir map[string]bool, gitignore *ignore.GitIgnore) bool {
	name := info.Name()
	if !opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	if info.IsDir() && skipDir[name] {
		return true
	}
	if gitignore != nil {
		if gitignore.MatchesPath(ignoreRel) || (info.IsDir() && gitignore.MatchesPath(ignoreRel+"/")) {
			return true
		}
	}
	if !info.IsDir() {
		for _, pattern := range opts.IgnorePatterns {
			if matched, _ := doublestar.Match(pattern, ignoreRel); matched {
				return true
			}
			if matched, _ := doublestar.Match(pattern, name); matched {
				return true
			}
		}
	}
	return false
}

// LoadGitignore compiles <root>/.gitignore. A missing file yields a nil
// matcher and no error.
func LoadGitignore(rootPath string) (*ignore.GitIgnore, error) {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(rootPath, ".gitignore"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return gi, err
}
