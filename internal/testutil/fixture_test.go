package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject(t *testing.T) {
	dir := Project(t, "internal: []\n", map[string]string{
		"src/a/a.h":  "#pragma once\n",
		"src/a/a.cc": "#include \"a.h\"\n",
	})

	data, err := os.ReadFile(filepath.Join(dir, ".cppdep.yml"))
	require.NoError(t, err)
	assert.Equal(t, "internal: []\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "src", "a", "a.cc"))
	require.NoError(t, err)
	assert.Equal(t, "#include \"a.h\"\n", string(data))
}

func TestWriteFile_Returns(t *testing.T) {
	root := t.TempDir()
	p := WriteFile(t, root, "x/y/z.h", "")
	assert.Equal(t, filepath.Join(root, "x", "y", "z.h"), p)
	assert.FileExists(t, p)
}
