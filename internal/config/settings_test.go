package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	assert.True(t, s.Analysis.HeaderOnly)
	assert.True(t, s.Analysis.SourceOnly)
	assert.Equal(t, "lexical", s.Analysis.Extractor)
	assert.Equal(t, "text", s.Report.Format)
	assert.Equal(t, "warn", s.Logging.Level)
}

func TestLoadSettings_Default(t *testing.T) {
	s, err := LoadSettings(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoadSettings_FromFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, SettingsDir), 0o755))
	content := `{
		"version": 1,
		"analysis": {"sourceOnly": false, "workers": 4},
		"report": {"format": "json", "failOn": "error"},
		"logging": {"level": "debug"}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(root, SettingsDir, "settings.json"), []byte(content), 0o644))

	s, err := LoadSettings(root)
	require.NoError(t, err)
	assert.False(t, s.Analysis.SourceOnly)
	assert.True(t, s.Analysis.HeaderOnly)
	assert.Equal(t, 4, s.Analysis.Workers)
	assert.Equal(t, "json", s.Report.Format)
	assert.Equal(t, "error", s.Report.FailOn)
	assert.Equal(t, "debug", s.Logging.Level)
	assert.Equal(t, "human", s.Logging.Format)
}

func TestLoadSettings_EnvOverride(t *testing.T) {
	t.Setenv("CPPDEP_LOGGING_LEVEL", "error")
	t.Setenv("CPPDEP_REPORT_FORMAT", "json")

	s, err := LoadSettings(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "error", s.Logging.Level)
	assert.Equal(t, "json", s.Report.Format)
}

func TestLoadSettings_Invalid(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, SettingsDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, SettingsDir, "settings.json"), []byte(`{"report": {"format": "xml"}}`), 0o644))

	_, err := LoadSettings(root)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "report.format", cfgErr.Field)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Settings)
		field string
	}{
		{"version", func(s *Settings) { s.Version = 2 }, "version"},
		{"workers", func(s *Settings) { s.Analysis.Workers = -1 }, "analysis.workers"},
		{"extractor", func(s *Settings) { s.Analysis.Extractor = "clang" }, "analysis.extractor"},
		{"failOn", func(s *Settings) { s.Report.FailOn = "fatal" }, "report.failOn"},
		{"logging", func(s *Settings) { s.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.edit(s)
			err := s.Validate()
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestSettings_SaveRoundTrip(t *testing.T) {
	root := t.TempDir()
	s := DefaultSettings()
	s.Analysis.Workers = 3
	s.History.Enabled = true
	require.NoError(t, s.Save(root))

	loaded, err := LoadSettings(root)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}
