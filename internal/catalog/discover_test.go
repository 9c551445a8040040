package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "cppdep/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "core", "a.h"), "#pragma once\n")
	writeFile(t, filepath.Join(root, "core", "a.cpp"), "#include \"a.h\"\n")
	writeFile(t, filepath.Join(root, "core", "notes.txt"), "ignored\n")
	writeFile(t, filepath.Join(root, "core", "gen", "g.h"), "")
	writeFile(t, filepath.Join(root, "ext", "lib.h"), "")

	cat, err := Discover(context.Background(), []PackageSource{
		{Group: "app", Name: "core", Roots: []string{filepath.Join(root, "core")},
			Ignore: []string{filepath.Join(root, "core", "gen")}},
		{Group: "third", Name: "lib", External: true, Roots: []string{filepath.Join(root, "ext")}},
	}, DiscoverOptions{Workers: 2})
	require.NoError(t, err)

	files := cat.Files()
	require.Len(t, files, 3)
	_, ok := cat.File(NormalizePath(filepath.Join(root, "core", "gen", "g.h")))
	assert.False(t, ok)

	for _, f := range files {
		assert.Len(t, f.Digest, 64, f.Path)
	}
	a, _ := cat.File(NormalizePath(filepath.Join(root, "core", "a.h")))
	b, _ := cat.File(NormalizePath(filepath.Join(root, "ext", "lib.h")))
	assert.NotEqual(t, a.Digest, b.Digest)
}

func TestDiscover_Glob(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "m1", "x.h"), "")
	writeFile(t, filepath.Join(root, "m2", "y.h"), "")

	cat, err := Discover(context.Background(), []PackageSource{
		{Group: "g", Name: "p", Roots: []string{filepath.Join(root, "m*")}},
	}, DiscoverOptions{SkipDigests: true})
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())
	for _, f := range cat.Files() {
		assert.Empty(t, f.Digest)
	}
}

func TestDiscover_Empty(t *testing.T) {
	_, err := Discover(context.Background(), []PackageSource{
		{Group: "g", Name: "p", Roots: []string{t.TempDir()}},
	}, DiscoverOptions{})
	assert.ErrorIs(t, err, cerrors.Sentinel(cerrors.CatalogEmpty))
}

func TestDiscover_SharedFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.h"), "")

	_, err := Discover(context.Background(), []PackageSource{
		{Group: "g", Name: "p", Roots: []string{root}},
		{Group: "g", Name: "q", Roots: []string{root}},
	}, DiscoverOptions{SkipDigests: true})
	assert.ErrorIs(t, err, cerrors.Sentinel(cerrors.DuplicateDefinition))

	cat, err := Discover(context.Background(), []PackageSource{
		{Group: "g", Name: "p", Roots: []string{root}},
		{Group: "x", Name: "q", External: true, Roots: []string{root}},
	}, DiscoverOptions{SkipDigests: true})
	require.NoError(t, err)
	f, _ := cat.File(NormalizePath(filepath.Join(root, "a.h")))
	assert.Equal(t, "g.p", f.Package)
}

func TestDigest_Stable(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a.h")
	writeFile(t, p, "int x;\n")
	d1, err := Digest(p)
	require.NoError(t, err)
	d2, err := Digest(p)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	_, err = Digest(filepath.Join(t.TempDir(), "missing.h"))
	assert.ErrorIs(t, err, cerrors.Sentinel(cerrors.IOFailure))
}

func TestDiscover_ExtensionlessOnlyExternal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app", "README"), "")
	writeFile(t, filepath.Join(root, "app", "a.h"), "")
	writeFile(t, filepath.Join(root, "std", "vector"), "")

	cat, err := Discover(context.Background(), []PackageSource{
		{Group: "g", Name: "app", Roots: []string{filepath.Join(root, "app")}},
		{Group: "sys", Name: "std", External: true, Roots: []string{filepath.Join(root, "std")}},
	}, DiscoverOptions{SkipDigests: true})
	require.NoError(t, err)
	_, ok := cat.File(NormalizePath(filepath.Join(root, "app", "README")))
	assert.False(t, ok)
	_, ok = cat.File(NormalizePath(filepath.Join(root, "std", "vector")))
	assert.True(t, ok)
}
