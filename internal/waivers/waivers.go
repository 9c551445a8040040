// Package waivers suppresses accepted findings listed in a TOML file:
//
//	[[waiver]]
//	category = "include-order"
//	entity = "core.util/*"
//	reason = "generated sources"
//	expires = 2027-01-01
package waivers

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	cerrors "cppdep/internal/errors"
	"cppdep/internal/flaws"
)

// Waiver suppresses findings whose category matches and one of whose
// entities or file matches the Entity glob. An empty Category matches
// any category.
type Waiver struct {
	Category flaws.Category `toml:"category"`
	Entity   string         `toml:"entity"`
	Reason   string         `toml:"reason"`
	Expires  time.Time      `toml:"expires,omitempty"`
}

// Set is a loaded waiver file.
type Set struct {
	Waivers []Waiver `toml:"waiver"`

	used []int
}

// Load reads a waiver file. A missing file yields an empty set.
func Load(file string) (*Set, error) {
	var s Set
	md, err := toml.DecodeFile(file, &s)
	if errors.Is(err, os.ErrNotExist) {
		return &Set{}, nil
	}
	if err != nil {
		return nil, cerrors.New(cerrors.ConfigInvalid, "failed to parse waivers "+file, err)
	}
	if und := md.Undecoded(); len(und) > 0 {
		keys := make([]string, len(und))
		for i, k := range und {
			keys[i] = k.String()
		}
		return nil, cerrors.Newf(cerrors.ConfigInvalid, "%s: unknown keys %s", file, strings.Join(keys, ", "))
	}
	if err := s.Validate(); err != nil {
		return nil, cerrors.New(cerrors.ConfigInvalid, "invalid waivers "+file, err)
	}
	return &s, nil
}

// Validate checks categories, globs and reasons.
func (s *Set) Validate() error {
	var errs []error
	for i, w := range s.Waivers {
		if w.Category != "" && !w.Category.Valid() {
			errs = append(errs, fmt.Errorf("waiver %d: unknown category %q", i+1, w.Category))
		}
		if w.Entity == "" {
			errs = append(errs, fmt.Errorf("waiver %d: entity is required", i+1))
		} else if _, err := path.Match(w.Entity, ""); err != nil {
			errs = append(errs, fmt.Errorf("waiver %d: bad entity pattern %q", i+1, w.Entity))
		}
		if strings.TrimSpace(w.Reason) == "" {
			errs = append(errs, fmt.Errorf("waiver %d: reason is required", i+1))
		}
	}
	return errors.Join(errs...)
}

// Apply returns the findings not covered by an unexpired waiver and the
// number suppressed.
func (s *Set) Apply(findings []flaws.Finding, now time.Time) ([]flaws.Finding, int) {
	s.used = make([]int, len(s.Waivers))
	kept := make([]flaws.Finding, 0, len(findings))
	waived := 0
	for _, f := range findings {
		if i := s.match(f, now); i >= 0 {
			s.used[i]++
			waived++
			continue
		}
		kept = append(kept, f)
	}
	return kept, waived
}

func (s *Set) match(f flaws.Finding, now time.Time) int {
	for i, w := range s.Waivers {
		if w.Category != "" && w.Category != f.Category {
			continue
		}
		if !w.Expires.IsZero() && !now.Before(w.Expires) {
			continue
		}
		if matches(w.Entity, f.File) {
			return i
		}
		for _, e := range f.Entities {
			if matches(w.Entity, e) {
				return i
			}
		}
	}
	return -1
}

func matches(pattern, name string) bool {
	if name == "" {
		return false
	}
	ok, _ := path.Match(pattern, name)
	return ok
}

// Unused lists the waivers that suppressed nothing in the last Apply.
func (s *Set) Unused() []Waiver {
	var out []Waiver
	for i, w := range s.Waivers {
		if i >= len(s.used) || s.used[i] == 0 {
			out = append(out, w)
		}
	}
	return out
}
