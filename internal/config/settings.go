// Package config loads tool settings and the project description.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// SettingsDir holds per-project tool state next to the project description.
const SettingsDir = ".cppdep"

// Settings represents the cppdep tool settings (.cppdep/settings.json)
type Settings struct {
	Version int `json:"version" mapstructure:"version"`

	Analysis AnalysisSettings `json:"analysis" mapstructure:"analysis"`
	Report   ReportSettings   `json:"report" mapstructure:"report"`
	History  HistorySettings  `json:"history" mapstructure:"history"`
	Logging  LoggingSettings  `json:"logging" mapstructure:"logging"`
}

// AnalysisSettings control discovery and component formation
type AnalysisSettings struct {
	HeaderOnly bool   `json:"headerOnly" mapstructure:"headerOnly"`
	SourceOnly bool   `json:"sourceOnly" mapstructure:"sourceOnly"`
	Workers    int    `json:"workers" mapstructure:"workers"`
	Extractor  string `json:"extractor" mapstructure:"extractor"`
	Digests    bool   `json:"digests" mapstructure:"digests"`
}

// ReportSettings control output
type ReportSettings struct {
	Format  string `json:"format" mapstructure:"format"`
	FailOn  string `json:"failOn" mapstructure:"failOn"`
	Reduced bool   `json:"reduced" mapstructure:"reduced"`
	Waivers string `json:"waivers" mapstructure:"waivers"`
}

// HistorySettings control the run store
type HistorySettings struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// LoggingSettings contains logging configuration
type LoggingSettings struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
	File   string `json:"file" mapstructure:"file"`
}

// DefaultSettings returns the default settings
func DefaultSettings() *Settings {
	return &Settings{
		Version: 1,
		Analysis: AnalysisSettings{
			HeaderOnly: true,
			SourceOnly: true,
			Extractor:  "lexical",
			Digests:    true,
		},
		Report: ReportSettings{
			Format:  "text",
			Waivers: ".cppdep-waivers.toml",
		},
		History: HistorySettings{
			Path: filepath.Join(SettingsDir, "history.db"),
		},
		Logging: LoggingSettings{
			Format: "human",
			Level:  "warn",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultSettings()
	v.SetDefault("version", d.Version)
	v.SetDefault("analysis.headerOnly", d.Analysis.HeaderOnly)
	v.SetDefault("analysis.sourceOnly", d.Analysis.SourceOnly)
	v.SetDefault("analysis.workers", d.Analysis.Workers)
	v.SetDefault("analysis.extractor", d.Analysis.Extractor)
	v.SetDefault("analysis.digests", d.Analysis.Digests)
	v.SetDefault("report.format", d.Report.Format)
	v.SetDefault("report.failOn", d.Report.FailOn)
	v.SetDefault("report.reduced", d.Report.Reduced)
	v.SetDefault("report.waivers", d.Report.Waivers)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
}

// LoadSettings loads settings from .cppdep/settings.json under root.
// A missing file yields the defaults. CPPDEP_* environment variables
// override file values, e.g. CPPDEP_LOGGING_LEVEL=debug.
func LoadSettings(root string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("settings")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, SettingsDir))

	v.SetEnvPrefix("CPPDEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes the settings to .cppdep/settings.json under root.
func (s *Settings) Save(root string) error {
	dir := filepath.Join(root, SettingsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "settings.json"), data, 0o644)
}

// Validate checks if the settings are valid
func (s *Settings) Validate() error {
	if s.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported settings version"}
	}
	if s.Analysis.Workers < 0 {
		return &ConfigError{Field: "analysis.workers", Message: "must not be negative"}
	}
	switch s.Analysis.Extractor {
	case "lexical", "treesitter":
	default:
		return &ConfigError{Field: "analysis.extractor", Message: "must be lexical or treesitter"}
	}
	switch s.Report.Format {
	case "text", "json":
	default:
		return &ConfigError{Field: "report.format", Message: "must be text or json"}
	}
	switch strings.ToLower(s.Report.FailOn) {
	case "", "info", "warning", "warn", "error":
	default:
		return &ConfigError{Field: "report.failOn", Message: "must be info, warning or error"}
	}
	switch s.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// ConfigError represents a settings error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
