package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func collectFiles(t *testing.T, root string, opts WalkOptions) []string {
	t.Helper()
	var visited []string
	err := Walk(root, opts, func(path string, info os.FileInfo) error {
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		require.NoError(t, err)
		visited = append(visited, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)
	return visited
}

func TestWalk_DefaultIgnores(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"libs/a/src/index.ts":          "",
		"node_modules/rxjs/index.ts":   "",
		"dist/libs/a/index.ts":         "",
		".angular/cache/x.ts":          "",
		"apps/b/src/.hidden.ts":        "",
		"apps/b/src/main.ts":           "",
		"apps/b/node_modules/x/foo.ts": "",
	})

	visited := collectFiles(t, root, WalkOptions{})

	assert.ElementsMatch(t, []string{"libs/a/src/index.ts", "apps/b/src/main.ts"}, visited)
}

func TestWalk_IncludeHidden(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/.hidden.ts": "",
		"src/main.ts":    "",
	})

	visited := collectFiles(t, root, WalkOptions{IncludeHidden: true})

	assert.ElementsMatch(t, []string{"src/.hidden.ts", "src/main.ts"}, visited)
}

func TestWalk_IgnorePatterns(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/app.ts":            "",
		"src/app.spec.ts":       "",
		"src/deep/util.ts":      "",
		"src/deep/util.spec.ts": "",
		"e2e/login.ts":          "",
	})

	visited := collectFiles(t, root, WalkOptions{IgnorePatterns: []string{"*.spec.ts", "e2e/**"}})

	assert.ElementsMatch(t, []string{"src/app.ts", "src/deep/util.ts"}, visited)
}

func TestWalk_Gitignore(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":          "generated/\n*.gen.ts\n",
		"src/main.ts":         "",
		"src/api.gen.ts":      "",
		"generated/client.ts": "",
		"libs/generated/x.ts": "",
	})

	t.Run("honoured", func(t *testing.T) {
		visited := collectFiles(t, root, WalkOptions{Gitignore: true})
		assert.ElementsMatch(t, []string{"src/main.ts"}, visited)
	})

	t.Run("disabled", func(t *testing.T) {
		visited := collectFiles(t, root, WalkOptions{})
		assert.Contains(t, visited, "src/api.gen.ts")
		assert.Contains(t, visited, "generated/client.ts")
	})
}

func TestWalk_MissingGitignore(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"src/main.ts": ""})

	visited := collectFiles(t, root, WalkOptions{Gitignore: true})

	assert.Equal(t, []string{"src/main.ts"}, visited)
}

func TestWalk_SkipDir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"keep/a.ts": "",
		"skip/b.ts": "",
	})

	var visited []string
	err := Walk(root, WalkOptions{}, func(path string, info os.FileInfo) error {
		if info.IsDir() && info.Name() == "skip" {
			return filepath.SkipDir
		}
		if !info.IsDir() {
			visited = append(visited, info.Name())
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a.ts"}, visited)
}

func TestWalk_NonexistentRoot(t *testing.T) {
	err := Walk(filepath.Join(t.TempDir(), "missing"), WalkOptions{}, func(string, os.FileInfo) error {
		return nil
	})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWalk_GitignoreFromIgnoreRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":                "libs/a/src/generated/\n",
		"libs/a/src/index.ts":       "",
		"libs/a/src/generated/x.ts": "",
	})

	visited := collectFiles(t, filepath.Join(root, "libs", "a"), WalkOptions{Gitignore: true, IgnoreRoot: root})

	assert.Equal(t, []string{"src/index.ts"}, visited)
}

func TestWalk_IgnorePatternsFromIgnoreRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"libs/a/src/index.ts":          "",
		"libs/a/src/button.stories.ts": "",
		"libs/a/src/generated/x.ts":    "",
	})

	visited := collectFiles(t, filepath.Join(root, "libs", "a"), WalkOptions{
		IgnorePatterns: []string{"libs/a/src/generated/**", "*.stories.ts"},
		IgnoreRoot:     root,
	})

	assert.Equal(t, []string{"src/index.ts"}, visited)
}
