package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func withVersion(t *testing.T, v, c, d string) {
	t.Helper()
	ov, oc, od := Version, Commit, BuildDate
	t.Cleanup(func() { Version, Commit, BuildDate = ov, oc, od })
	Version, Commit, BuildDate = v, c, d
}

func TestInfo(t *testing.T) {
	tests := []struct {
		name   string
		commit string
		want   string
	}{
		{"short commit", "abc", "1.0.0"},
		{"seven chars", "1234567", "1.0.0"},
		{"full hash", "abc1234567890", "1.0.0 (abc1234)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withVersion(t, "1.0.0", tt.commit, "unknown")
			assert.Equal(t, tt.want, Info())
		})
	}
}

func TestFull(t *testing.T) {
	withVersion(t, "2.1.0", "deadbeefcafe", "2026-01-02")
	got := Full()
	assert.Contains(t, got, "cppdep version 2.1.0")
	assert.Contains(t, got, "Commit: deadbeefcafe")
	assert.Contains(t, got, "Built: 2026-01-02")
}
