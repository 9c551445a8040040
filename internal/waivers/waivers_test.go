package waivers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "cppdep/internal/errors"
	"cppdep/internal/flaws"
)

func write(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), ".cppdep-waivers.toml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

var now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func TestLoad_Missing(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Empty(t, s.Waivers)

	kept, waived := s.Apply([]flaws.Finding{{Category: flaws.Cycle}}, now)
	assert.Len(t, kept, 1)
	assert.Zero(t, waived)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", "[[waiver]\n"},
		{"unknown key", "[[waiver]]\nentity = \"a\"\nreason = \"r\"\nowner = \"x\"\n"},
		{"unknown category", "[[waiver]]\ncategory = \"style\"\nentity = \"a\"\nreason = \"r\"\n"},
		{"no reason", "[[waiver]]\nentity = \"a\"\n"},
		{"no entity", "[[waiver]]\nreason = \"r\"\n"},
		{"bad glob", "[[waiver]]\nentity = \"[\"\nreason = \"r\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(write(t, tt.content))
			assert.ErrorIs(t, err, cerrors.Sentinel(cerrors.ConfigInvalid))
		})
	}
}

func TestApply(t *testing.T) {
	s, err := Load(write(t, `
[[waiver]]
category = "include-order"
entity = "core.util/*"
reason = "generated"

[[waiver]]
entity = "legacy/*.cc"
reason = "frozen code"

[[waiver]]
category = "cycle"
entity = "core.net/*"
reason = "being split"
expires = 2026-01-01

[[waiver]]
category = "missing-include"
entity = "never/*"
reason = "unused"
`))
	require.NoError(t, err)
	require.Len(t, s.Waivers, 4)

	findings := []flaws.Finding{
		{Category: flaws.IncludeOrder, Entities: []string{"core.util/str"}, File: "util/str.cc"},
		{Category: flaws.IncludeOrder, Entities: []string{"core.net/sock"}, File: "net/sock.cc"},
		{Category: flaws.MissingInclude, Entities: []string{"core.io/file"}, File: "legacy/file.cc", Line: 3},
		{Category: flaws.Cycle, Level: "component", Entities: []string{"core.net/a", "core.net/b"}},
	}
	kept, waived := s.Apply(findings, now)
	assert.Equal(t, 2, waived)
	require.Len(t, kept, 2)
	assert.Equal(t, "core.net/sock", kept[0].Subject())
	assert.Equal(t, flaws.Cycle, kept[1].Category, "expired waiver must not apply")

	unused := s.Unused()
	require.Len(t, unused, 2)
	assert.Equal(t, "core.net/*", unused[0].Entity)
	assert.Equal(t, "never/*", unused[1].Entity)
}

func TestApply_ExpiryInFuture(t *testing.T) {
	s := &Set{Waivers: []Waiver{{Category: flaws.Cycle, Entity: "g.p/*", Reason: "r", Expires: now.Add(24 * time.Hour)}}}
	kept, waived := s.Apply([]flaws.Finding{{Category: flaws.Cycle, Entities: []string{"g.p/a"}}}, now)
	assert.Empty(t, kept)
	assert.Equal(t, 1, waived)
	assert.Empty(t, s.Unused())
}
