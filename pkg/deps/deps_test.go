package deps

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/firebird-suite/flock/pkg/analysis"
	"github.com/simonhull/firebird-suite/flock/pkg/analysis/analysistest"
	"github.com/simonhull/firebird-suite/flock/pkg/logger"
	"github.com/simonhull/firebird-suite/flock/pkg/workspace"
)

var root = filepath.FromSlash("/repo")

func abs(rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

// fixture is lib-a (library) and app-b (application), the shape used by most
// scenarios below.
type fixture struct {
	ws     *workspace.Workspace
	engine *analysistest.Engine
}

func newFixture(extra ...workspace.Project) *fixture {
	projects := []workspace.Project{
		{Name: "lib-a", Declaration: workspace.Declaration{Root: "libs/a", SourceRoot: "libs/a/src", Kind: workspace.KindLibrary}},
		{Name: "app-b", Declaration: workspace.Declaration{Root: "apps/b", SourceRoot: "apps/b/src", Kind: workspace.KindApplication}},
	}
	projects = append(projects, extra...)

	engine := analysistest.New().
		Config(abs("libs/a/tsconfig.lib.json"), abs("libs/a/src/index.ts"), abs("libs/a/src/lib/foo.ts")).
		Config(abs("apps/b/tsconfig.app.json"), abs("apps/b/src/main.ts"), abs("apps/b/src/app.ts"))

	return &fixture{ws: workspace.New(root, projects), engine: engine}
}

func (f *fixture) run(t *testing.T) *Result {
	t.Helper()
	res, err := f.analyzer().Run(context.Background())
	require.NoError(t, err)
	return res
}

func (f *fixture) analyzer() *Analyzer {
	return NewAnalyzer(f.ws, f.engine, Options{}).WithLogger(logger.NewSilentLogger())
}

func nodeIDs(g *Graph) []string {
	var ids []string
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestScenarioA_WeightCountsEveryReferenceSite(t *testing.T) {
	f := newFixture()
	foo := analysistest.Decl(abs("libs/a/src/lib/foo.ts"), "Foo", analysis.KindClass)
	f.engine.
		Export(abs("libs/a/src/index.ts"), "Foo", foo).
		Reference(foo, abs("apps/b/src/main.ts"), abs("apps/b/src/main.ts"), abs("apps/b/src/app.ts"))

	res := f.run(t)

	assert.ElementsMatch(t, []string{"lib-a", "app-b"}, nodeIDs(res.Graph))
	require.Len(t, res.Graph.Links, 1)
	assert.Equal(t, Edge{Source: "lib-a", Target: "app-b", Value: 3}, res.Graph.Links[0])
}

func TestScenarioB_SelfReferencesProduceNoEdge(t *testing.T) {
	f := newFixture()
	bar := analysistest.Decl(abs("libs/a/src/lib/foo.ts"), "Bar", analysis.KindFunction)
	f.engine.
		Export(abs("libs/a/src/index.ts"), "Bar", bar).
		Reference(bar, abs("libs/a/src/lib/foo.ts"), abs("libs/a/src/index.ts"))

	res := f.run(t)

	assert.Empty(t, res.Graph.Links)
	assert.Equal(t, []string{"lib-a"}, nodeIDs(res.Graph))
	require.Len(t, res.Usages, 1)
	assert.Empty(t, res.Usages[0].References)
}

func TestScenarioC_LibraryWithoutBarrelIsSkipped(t *testing.T) {
	f := newFixture(workspace.Project{
		Name:        "lib-c",
		Declaration: workspace.Declaration{Root: "libs/c", SourceRoot: "libs/c/src", Kind: workspace.KindLibrary},
	})
	// lib-c's config loads files but no index.ts
	f.engine.Config(abs("libs/c/tsconfig.lib.json"), abs("libs/c/src/public-api.ts"))
	baz := analysistest.Decl(abs("libs/c/src/public-api.ts"), "Baz", analysis.KindClass)
	f.engine.
		Export(abs("libs/c/src/public-api.ts"), "Baz", baz).
		Reference(baz, abs("apps/b/src/main.ts"))

	res := f.run(t)

	assert.False(t, res.Graph.HasNode("lib-c"))
	for _, e := range res.Graph.Links {
		assert.NotEqual(t, "lib-c", e.Source)
	}
	assert.NotContains(t, f.engine.Queries, baz)
}

func TestScenarioD_ReExportFollowsAlias(t *testing.T) {
	f := newFixture()
	spec := analysistest.Decl(abs("libs/a/src/index.ts"), "Foo", analysis.KindExportSpecifier)
	foo := analysistest.Decl(abs("libs/a/src/lib/foo.ts"), "Foo", analysis.KindClass)
	f.engine.
		Export(abs("libs/a/src/index.ts"), "Foo", spec).
		Alias(spec, foo).
		Reference(foo, abs("libs/a/src/index.ts"), abs("apps/b/src/main.ts"), abs("apps/b/src/app.ts"))

	res := f.run(t)

	assert.Equal(t, []analysis.Declaration{foo}, f.engine.Queries)
	edge, ok := res.Graph.Edge("lib-a", "app-b")
	require.True(t, ok)
	assert.Equal(t, 2, edge.Value)
}

func TestAnalyzer_UntrackableDeclarationsSkipped(t *testing.T) {
	f := newFixture()
	typ := analysistest.Decl(abs("libs/a/src/lib/foo.ts"), "Options", analysis.KindTypeAlias)
	def := analysistest.Decl(abs("libs/a/src/index.ts"), "default", analysis.KindExportAssignment)
	f.engine.
		Export(abs("libs/a/src/index.ts"), "Options", typ).
		Export(abs("libs/a/src/index.ts"), "default", def).
		Untrackable(typ).
		Reference(typ, abs("apps/b/src/main.ts"))

	res := f.run(t)

	assert.Empty(t, f.engine.Queries)
	assert.Empty(t, res.Graph.Links)
	// exporting project is still a node
	assert.Equal(t, []string{"lib-a"}, nodeIDs(res.Graph))
	assert.Len(t, res.Usages, 2)
}

func TestAnalyzer_UnresolvedReferenceIsFatal(t *testing.T) {
	f := newFixture()
	foo := analysistest.Decl(abs("libs/a/src/lib/foo.ts"), "Foo", analysis.KindClass)
	f.engine.
		Export(abs("libs/a/src/index.ts"), "Foo", foo).
		Reference(foo, abs("apps/b/src/main.ts"), abs("tools/generate.ts"))

	_, err := f.analyzer().Run(context.Background())

	var unresolved *workspace.UnresolvedFileError
	require.True(t, errors.As(err, &unresolved), "got %v", err)
	assert.Equal(t, "tools/generate.ts", unresolved.Relative)
}

func TestAnalyzer_MissingConfigsSkipped(t *testing.T) {
	f := newFixture(workspace.Project{
		Name:        "legacy",
		Declaration: workspace.Declaration{Root: "apps/legacy", SourceRoot: "apps/legacy/src", Kind: workspace.KindApplication},
	})

	require.NoError(t, f.analyzer().LoadSources(context.Background()))
	assert.Equal(t, []string{abs("libs/a/tsconfig.lib.json"), abs("apps/b/tsconfig.app.json")}, f.engine.LoadedConfigs)
}

func TestAnalyzer_Cancelled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.analyzer().Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// multiFixture: two libraries, two apps, cross references in both directions.
func multiFixture() *fixture {
	f := newFixture(
		workspace.Project{Name: "lib-c", Declaration: workspace.Declaration{Root: "libs/c", SourceRoot: "libs/c/src", Kind: workspace.KindLibrary}},
		workspace.Project{Name: "app-d", Declaration: workspace.Declaration{Root: "apps/d", SourceRoot: "apps/d/src", Kind: workspace.KindApplication}},
	)
	f.engine.
		Config(abs("libs/c/tsconfig.lib.json"), abs("libs/c/src/index.ts")).
		Config(abs("apps/d/tsconfig.app.json"), abs("apps/d/src/main.ts"))

	foo := analysistest.Decl(abs("libs/a/src/lib/foo.ts"), "Foo", analysis.KindClass)
	qux := analysistest.Decl(abs("libs/a/src/lib/foo.ts"), "qux", analysis.KindVariable)
	baz := analysistest.Decl(abs("libs/c/src/index.ts"), "Baz", analysis.KindInterface)

	f.engine.
		Export(abs("libs/a/src/index.ts"), "Foo", foo).
		Export(abs("libs/a/src/index.ts"), "qux", qux).
		Export(abs("libs/c/src/index.ts"), "Baz", baz).
		Reference(foo, abs("apps/b/src/main.ts"), abs("apps/d/src/main.ts"), abs("libs/c/src/index.ts")).
		Reference(qux, abs("apps/b/src/app.ts"), abs("apps/b/src/app.ts")).
		Reference(baz, abs("libs/a/src/lib/foo.ts"), abs("apps/d/src/main.ts"))
	return f
}

func TestAnalyzer_MultiProjectGraph(t *testing.T) {
	res := multiFixture().run(t)

	assert.Equal(t, []string{"lib-a", "app-b", "app-d", "lib-c"}, nodeIDs(res.Graph))
	assert.Equal(t, []Edge{
		{Source: "lib-a", Target: "app-b", Value: 3},
		{Source: "lib-a", Target: "app-d", Value: 1},
		{Source: "lib-a", Target: "lib-c", Value: 1},
		{Source: "lib-c", Target: "lib-a", Value: 1},
		{Source: "lib-c", Target: "app-d", Value: 1},
	}, res.Graph.Links)

	require.Len(t, res.Usages, 3)
	assert.Equal(t, []string{"app-b", "app-d", "lib-c"}, res.Usages[0].Projects())
	assert.Equal(t, []string{"app-b"}, res.Usages[1].Projects())
}

func TestAnalyzer_Deterministic(t *testing.T) {
	first := multiFixture().run(t)
	second := multiFixture().run(t)

	assert.Equal(t, first.Graph, second.Graph)
}

func TestAnalyzer_GraphProperties(t *testing.T) {
	res := multiFixture().run(t)

	for _, e := range res.Graph.Links {
		assert.NotEqual(t, e.Source, e.Target, "self edge %v", e)
		assert.True(t, res.Graph.HasNode(e.Source), "missing source node %s", e.Source)
		assert.True(t, res.Graph.HasNode(e.Target), "missing target node %s", e.Target)
		assert.Positive(t, e.Value)
	}

	seen := make(map[string]bool)
	for _, n := range res.Graph.Nodes {
		assert.False(t, seen[n.ID], "duplicate node %s", n.ID)
		seen[n.ID] = true
		assert.Equal(t, n.ID, n.Title)
	}
}

func TestAggregator_AddReference(t *testing.T) {
	tests := []struct {
		name      string
		source    string
		target    string
		wantAdded bool
		wantLinks []Edge
		wantNodes []string
	}{
		{
			name:      "existing pair gains one",
			source:    "lib-a",
			target:    "app-b",
			wantAdded: true,
			wantLinks: []Edge{{Source: "lib-a", Target: "app-b", Value: 3}},
			wantNodes: []string{"lib-a", "app-b"},
		},
		{
			name:      "new pair appends an edge",
			source:    "lib-a",
			target:    "app-d",
			wantAdded: true,
			wantLinks: []Edge{
				{Source: "lib-a", Target: "app-b", Value: 2},
				{Source: "lib-a", Target: "app-d", Value: 1},
			},
			wantNodes: []string{"lib-a", "app-b", "app-d"},
		},
		{
			name:      "self pair is dropped",
			source:    "x",
			target:    "x",
			wantAdded: false,
			wantLinks: []Edge{{Source: "lib-a", Target: "app-b", Value: 2}},
			wantNodes: []string{"lib-a", "app-b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator()
			agg.AddNode("lib-a")
			agg.AddNode("lib-a")
			require.True(t, agg.AddReference("lib-a", "app-b"))
			require.True(t, agg.AddReference("lib-a", "app-b"))
			require.Equal(t, []Edge{{Source: "lib-a", Target: "app-b", Value: 2}}, agg.Graph().Links)

			assert.Equal(t, tt.wantAdded, agg.AddReference(tt.source, tt.target))

			g := agg.Graph()
			assert.Equal(t, tt.wantLinks, g.Links)
			var ids []string
			for _, n := range g.Nodes {
				ids = append(ids, n.ID)
			}
			assert.Equal(t, tt.wantNodes, ids)
		})
	}
}
