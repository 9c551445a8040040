// Package version holds the build identity of cppdep.
package version

import "runtime/debug"

// Overridable at build time:
// go build -ldflags "-X cppdep/internal/version.Version=1.2.0 -X cppdep/internal/version.Commit=abc123"
var (
	Version   = "0.9.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns the version with a short commit suffix when known.
func Info() string {
	if c := commit(); len(c) > 7 {
		return Version + " (" + c[:7] + ")"
	}
	return Version
}

// Full returns the multi-line version banner.
func Full() string {
	return "cppdep version " + Version + "\n" +
		"Commit: " + commit() + "\n" +
		"Built: " + BuildDate
}

// commit falls back to the VCS revision stamped by the go command.
func commit() string {
	if Commit != "unknown" {
		return Commit
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return s.Value
			}
		}
	}
	return Commit
}
