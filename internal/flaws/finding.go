// Package flaws turns a resolved and analyzed codebase into design-quality
// findings.
package flaws

import (
	"fmt"
	"strings"
)

// Category names a kind of finding.
type Category string

const (
	UnassociatedFile       Category = "unassociated-file"
	HeaderBasenameConflict Category = "header-basename-conflict"
	SourceBasenameConflict Category = "source-basename-conflict"
	MissingInclude         Category = "missing-include"
	SelfDependencyOmission Category = "self-dependency-omission"
	IncludeOrder           Category = "include-order"
	Cycle                  Category = "cycle"
	DuplicateInclude       Category = "duplicate-include"
	RedundantInclude       Category = "redundant-include"
)

// Categories lists every category in report order.
var Categories = []Category{
	UnassociatedFile,
	HeaderBasenameConflict,
	SourceBasenameConflict,
	MissingInclude,
	SelfDependencyOmission,
	IncludeOrder,
	Cycle,
	DuplicateInclude,
	RedundantInclude,
}

var categoryRank = func() map[Category]int {
	m := make(map[Category]int, len(Categories))
	for i, c := range Categories {
		m[c] = i
	}
	return m
}()

// Severity is the default severity of findings in this category.
func (c Category) Severity() Severity {
	switch c {
	case Cycle:
		return Error
	case DuplicateInclude, RedundantInclude:
		return Info
	default:
		return Warning
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryRank[c]
	return ok
}

// Severity orders findings by importance.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	default:
		return "error"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeverity accepts info, warning (or warn) and error.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(s) {
	case "info":
		return Info, nil
	case "warning", "warn":
		return Warning, nil
	case "error":
		return Error, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

// Finding is one reported flaw.
type Finding struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`

	// Level is the graph level of a cycle, empty otherwise
	Level string `json:"level,omitempty"`

	// Entities are the components, packages, groups or files involved
	Entities []string `json:"entities"`

	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`

	// Digests of the files involved in a basename conflict
	Digests []string `json:"digests,omitempty"`
}

// Subject is the first entity, or empty.
func (f Finding) Subject() string {
	if len(f.Entities) == 0 {
		return ""
	}
	return f.Entities[0]
}

func (f Finding) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", f.Severity, f.Category, f.Message)
	if f.File != "" {
		fmt.Fprintf(&b, " (%s", f.File)
		if f.Line > 0 {
			fmt.Fprintf(&b, ":%d", f.Line)
		}
		b.WriteString(")")
	}
	return b.String()
}

// less orders findings by category, first entity, file and line.
func less(a, b Finding) bool {
	if ra, rb := categoryRank[a.Category], categoryRank[b.Category]; ra != rb {
		return ra < rb
	}
	if a.Subject() != b.Subject() {
		return a.Subject() < b.Subject()
	}
	if a.Level != b.Level {
		return a.Level < b.Level
	}
	if a.File != b.File {
		return a.File < b.File
	}
	return a.Line < b.Line
}

// CountBySeverity tallies findings per severity.
func CountBySeverity(findings []Finding) map[Severity]int {
	out := make(map[Severity]int)
	for _, f := range findings {
		out[f.Severity]++
	}
	return out
}

// AtLeast returns the findings whose severity is at or above min.
func AtLeast(findings []Finding, min Severity) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Severity >= min {
			out = append(out, f)
		}
	}
	return out
}
