package workspace

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWorkspace() *Workspace {
	return New("/repo", []Project{
		{Name: "app-b", Declaration: Declaration{Root: "apps/b", SourceRoot: "apps/b/src", Kind: KindApplication}},
		{Name: "lib-a", Declaration: Declaration{Root: "libs/a", SourceRoot: "libs/a/src", Kind: KindLibrary}},
		{Name: "core", Declaration: Declaration{Root: "libs/core", SourceRoot: "libs/core", Kind: KindLibrary}},
		{Name: "core-testing", Declaration: Declaration{Root: "libs/core/testing", SourceRoot: "libs/core/testing", Kind: KindLibrary}},
	})
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(testWorkspace())

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "absolute path", path: filepath.FromSlash("/repo/apps/b/src/main.ts"), want: "app-b"},
		{name: "relative path", path: "libs/a/src/index.ts", want: "lib-a"},
		{name: "backslash separators", path: `libs\a\src\lib\foo.ts`, want: "lib-a"},
		{name: "absolute with backslashes", path: `/repo\libs\a\src\index.ts`, want: "lib-a"},
		{name: "dot segments", path: "./apps/b/src/../src/app.ts", want: "app-b"},
		{name: "outer root", path: "libs/core/src/http.ts", want: "core"},
		{name: "nested root wins", path: "libs/core/testing/mock.ts", want: "core-testing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := r.Resolve(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name)
		})
	}
}

func TestResolver_NestedRootWinsRegardlessOfOrder(t *testing.T) {
	ws := New("/repo", []Project{
		{Name: "core-testing", Declaration: Declaration{SourceRoot: "libs/core/testing", Kind: KindLibrary}},
		{Name: "core", Declaration: Declaration{SourceRoot: "libs/core", Kind: KindLibrary}},
	})
	r := NewResolver(ws)

	name, err := r.ProjectName("libs/core/testing/mock.ts")
	require.NoError(t, err)
	assert.Equal(t, "core-testing", name)
}

func TestResolver_EqualRootsKeepManifestOrder(t *testing.T) {
	ws := New("/repo", []Project{
		{Name: "first", Declaration: Declaration{SourceRoot: "shared/src", Kind: KindLibrary}},
		{Name: "second", Declaration: Declaration{SourceRoot: "shared/src/", Kind: KindLibrary}},
	})

	name, err := NewResolver(ws).ProjectName("shared/src/x.ts")
	require.NoError(t, err)
	assert.Equal(t, "first", name)
}

func TestResolver_StringPrefixFallback(t *testing.T) {
	r := NewResolver(testWorkspace())

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "sibling of source root", path: "apps/b/src-gen/x.ts", want: "app-b"},
		{name: "numbered sibling", path: "libs/a/src2/index.ts", want: "lib-a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, err := r.ProjectName(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, name)
		})
	}
}

func TestResolver_DirectoryBoundaryBeatsLongerStringPrefix(t *testing.T) {
	ws := New("/repo", []Project{
		{Name: "lib-a-src", Declaration: Declaration{SourceRoot: "libs/a/src", Kind: KindLibrary}},
		{Name: "lib-a", Declaration: Declaration{SourceRoot: "libs/a", Kind: KindLibrary}},
	})

	name, err := NewResolver(ws).ProjectName("libs/a/src2/index.ts")
	require.NoError(t, err)
	assert.Equal(t, "lib-a", name)
}

func TestResolver_Unresolved(t *testing.T) {
	r := NewResolver(testWorkspace())

	for _, p := range []string{"tools/scripts/x.ts", "/elsewhere/x.ts", "../x.ts"} {
		_, err := r.Resolve(p)

		var unresolved *UnresolvedFileError
		assert.True(t, errors.As(err, &unresolved), "path %s: got %v", p, err)
	}
}

func TestResolver_Idempotent(t *testing.T) {
	r := NewResolver(testWorkspace())

	first, err := r.Resolve("libs/a/src/lib/foo.ts")
	require.NoError(t, err)
	second, err := r.Resolve(`libs\a\src\lib\foo.ts`)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolver_Normalize(t *testing.T) {
	r := NewResolver(testWorkspace())

	assert.Equal(t, "libs/a/src/index.ts", r.Normalize(filepath.FromSlash("/repo/libs/a/src/index.ts")))
	assert.Equal(t, "libs/a/src/index.ts", r.Normalize(`libs\a\src\index.ts`))
	assert.Equal(t, "", r.Normalize(filepath.FromSlash("/repo")))
}
