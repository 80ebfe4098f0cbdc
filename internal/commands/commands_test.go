package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/firebird-suite/flock"
	"github.com/simonhull/firebird-suite/flock/internal/output"
	"github.com/simonhull/firebird-suite/flock/pkg/config"
	"github.com/simonhull/firebird-suite/flock/pkg/deps"
)

func lines(l ...string) string {
	return strings.Join(l, "\n") + "\n"
}

// writeWorkspace lays out lib-a (barrel index.ts), lib-c (entry
// public-api.ts) and app-b, which uses Foo from lib-a and Baz from lib-c.
func writeWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"angular.json": `{
  "version": 1,
  "projects": {
    "lib-a": { "root": "libs/a", "sourceRoot": "libs/a/src", "projectType": "library" },
    "app-b": { "root": "apps/b", "sourceRoot": "apps/b/src", "projectType": "application" },
    "lib-c": { "root": "libs/c", "sourceRoot": "libs/c/src", "projectType": "library" }
  }
}`,
		"tsconfig.base.json": `{"compilerOptions": {"baseUrl": ".", "paths": {"@org/lib-a": ["libs/a/src/index.ts"], "@org/lib-c": ["libs/c/src/public-api.ts"]}}}`,

		"libs/a/tsconfig.lib.json": `{"extends": "../../tsconfig.base.json", "include": ["src/**/*.ts"]}`,
		"libs/a/src/index.ts":      lines(`export * from './lib/foo';`),
		"libs/a/src/lib/foo.ts":    lines(`export class Foo {}`),

		"libs/c/tsconfig.lib.json": `{"extends": "../../tsconfig.base.json", "include": ["src/**/*.ts"]}`,
		"libs/c/src/public-api.ts": lines(`export class Baz {}`),

		"apps/b/tsconfig.app.json": `{"extends": "../../tsconfig.base.json", "files": ["src/main.ts"]}`,
		"apps/b/src/main.ts": lines(
			`import { Foo } from '@org/lib-a';`,
			`import { Baz } from '@org/lib-c';`,
			`new Foo();`,
			`new Baz();`,
		),
	}
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return root
}

// run executes the CLI and returns stdout and the status lines.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr, status bytes.Buffer
	output.SetWriter(&status)
	t.Cleanup(func() { output.SetWriter(nil) })

	cmd := NewApp()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), status.String(), err
}

func readGraph(t *testing.T, path string) deps.Graph {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var g deps.Graph
	require.NoError(t, json.Unmarshal(data, &g))
	return g
}

func TestGraphCmd(t *testing.T) {
	root := writeWorkspace(t)
	out := filepath.Join(t.TempDir(), "graph.json")

	_, status, err := run(t, "graph", root, "--out", out)
	require.NoError(t, err)

	g := readGraph(t, out)
	assert.Equal(t, []deps.Edge{{Source: "lib-a", Target: "app-b", Value: 2}}, g.Links)
	assert.Equal(t, []deps.Node{{ID: "lib-a", Title: "lib-a"}, {ID: "app-b", Title: "app-b"}}, g.Nodes)
	assert.Contains(t, status, "2 projects, 1 links")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n    \"nodes\""), "four-space indent")
}

func TestGraphCmd_BarrelFromConfig(t *testing.T) {
	root := writeWorkspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, config.FileName), []byte("barrel: public-api.ts\n"), 0644))
	out := filepath.Join(t.TempDir(), "graph.json")

	_, _, err := run(t, "graph", root, "--out", out)
	require.NoError(t, err)

	g := readGraph(t, out)
	assert.Equal(t, []deps.Edge{{Source: "lib-c", Target: "app-b", Value: 2}}, g.Links)
}

func TestGraphCmd_DryRun(t *testing.T) {
	root := writeWorkspace(t)
	out := filepath.Join(t.TempDir(), "graph.json")

	_, status, err := run(t, "graph", root, "--out", out, "--dry-run")
	require.NoError(t, err)

	assert.NoFileExists(t, out)
	assert.Contains(t, status, "[DRY RUN]")
}

func TestGraphCmd_Overwrites(t *testing.T) {
	root := writeWorkspace(t)
	out := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0644))

	_, _, err := run(t, "graph", root, "--out", out)
	require.NoError(t, err)
	assert.Len(t, readGraph(t, out).Links, 1)
}

func TestGraphCmd_FailureWritesNothing(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(t.TempDir(), "graph.json")

	_, _, err := run(t, "graph", root, "--out", out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis failed")
	assert.NoFileExists(t, out)
}

func TestReportCmd(t *testing.T) {
	root := writeWorkspace(t)

	stdout, _, err := run(t, "report", root)
	require.NoError(t, err)

	assert.Contains(t, stdout, "lib-a:")
	assert.Contains(t, stdout, "   Foo (app-b)")
	assert.NotContains(t, stdout, "Baz")
}

func TestInitCmd(t *testing.T) {
	root := t.TempDir()

	_, status, err := run(t, "init", root)
	require.NoError(t, err)
	assert.Contains(t, status, "Created flock.yaml")

	cfg, err := config.Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)

	_, _, err = run(t, "init", root)
	require.Error(t, err, "existing file is kept without --force")

	_, _, err = run(t, "init", root, "--force")
	assert.NoError(t, err)
}

func TestVersionCmd(t *testing.T) {
	stdout, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "Flock v"+flock.Version+"\n", stdout)
}

func TestConfigFlag_MissingFile(t *testing.T) {
	root := writeWorkspace(t)

	_, _, err := run(t, "report", root, "--config", filepath.Join(root, "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestGraphCmd_VerbosePhases(t *testing.T) {
	root := writeWorkspace(t)
	out := filepath.Join(t.TempDir(), "graph.json")

	_, status, err := run(t, "graph", root, "--out", out)
	require.NoError(t, err)
	assert.NotContains(t, status, "Manifest:")
	assert.Contains(t, status, "Output: "+out)

	_, status, err = run(t, "graph", root, "--out", out, "--verbose")
	require.NoError(t, err)
	assert.Contains(t, status, "Manifest: "+filepath.Join(root, "angular.json")+" (3 projects, 2 libraries)")
	assert.Contains(t, status, "Barrel: index.ts")
}
