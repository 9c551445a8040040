// Package testutil lays out source trees for tests.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// WriteFile writes content to root/rel, creating parent directories.
func WriteFile(t testing.TB, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(p), err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// WriteTree writes every file of tree (slash-separated relative path to
// content) under root.
func WriteTree(t testing.TB, root string, tree map[string]string) {
	t.Helper()
	names := make([]string, 0, len(tree))
	for n := range tree {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		WriteFile(t, root, n, tree[n])
	}
}

// Project creates a temporary project with a .cppdep.yml description and
// the given source tree, returning its directory.
func Project(t testing.TB, description string, tree map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	WriteTree(t, dir, tree)
	WriteFile(t, dir, ".cppdep.yml", description)
	return dir
}
