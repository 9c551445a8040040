package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"cppdep/internal/catalog"
	cerrors "cppdep/internal/errors"
	"cppdep/internal/resolver"
)

// ProjectFiles are the project description names looked up by FindProject, in order.
var ProjectFiles = []string{".cppdep.yml", ".cppdep.yaml", ".cppdep.toml"}

// Project is the description of the codebase under analysis.
type Project struct {
	Internal []GroupSpec `yaml:"internal" toml:"internal"`
	External []GroupSpec `yaml:"external" toml:"external"`

	// Dir anchors relative group paths; it is the description's directory
	Dir string `yaml:"-" toml:"-"`
}

// GroupSpec describes one package group.
type GroupSpec struct {
	Name     string        `yaml:"name" toml:"name"`
	Path     string        `yaml:"path" toml:"path"`
	Packages []PackageSpec `yaml:"packages" toml:"packages"`
}

// PackageSpec describes one package. Paths are relative to the group path.
type PackageSpec struct {
	Name string `yaml:"name" toml:"name"`

	// Src are directories or glob patterns holding the package files
	Src []string `yaml:"src" toml:"src"`

	// Include are exported header directories, searched for includes
	Include []string `yaml:"include" toml:"include"`

	// Alias are more directories whose headers belong to the package
	Alias []string `yaml:"alias" toml:"alias"`

	// Pattern are regexes routing include tokens to an external package
	Pattern []string `yaml:"pattern" toml:"pattern"`

	// Ignore are glob patterns excluded from Src
	Ignore []string `yaml:"ignore" toml:"ignore"`
}

// FindProject returns the first project description found in dir.
func FindProject(dir string) (string, error) {
	for _, name := range ProjectFiles {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", cerrors.Newf(cerrors.ConfigNotFound, "no %s in %s", strings.Join(ProjectFiles, ", "), dir)
}

// LoadProject reads a YAML or TOML project description. Unknown fields
// are rejected.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, cerrors.New(cerrors.ConfigNotFound, "project description "+path+" not found", err)
		}
		return nil, cerrors.New(cerrors.IOFailure, "read "+path, err)
	}

	var p Project
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&p)
	case ".yml", ".yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&p)
	default:
		return nil, cerrors.Newf(cerrors.ConfigInvalid, "%s: project description must be .yml, .yaml or .toml", path)
	}
	if err != nil {
		return nil, cerrors.New(cerrors.ConfigInvalid, "parse "+path, err)
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, cerrors.New(cerrors.IOFailure, "resolve "+path, err)
	}
	p.Dir = abs
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

// Validate checks names, paths and patterns without touching the filesystem.
func (p *Project) Validate() error {
	if len(p.Internal) == 0 {
		return cerrors.Newf(cerrors.ConfigInvalid, "at least one internal package group is required")
	}
	groups := make(map[string]bool)
	for _, sec := range []struct {
		name     string
		groups   []GroupSpec
		external bool
	}{{"internal", p.Internal, false}, {"external", p.External, true}} {
		for _, g := range sec.groups {
			if !namePattern.MatchString(g.Name) {
				return cerrors.Newf(cerrors.ConfigInvalid, "%s group name %q must be letters, digits, '_' or '-'", sec.name, g.Name)
			}
			if groups[g.Name] {
				return cerrors.Newf(cerrors.DuplicateDefinition, "group %s defined twice", g.Name)
			}
			groups[g.Name] = true
			if g.Path == "" {
				return cerrors.Newf(cerrors.ConfigInvalid, "group %s has no path", g.Name)
			}
			if len(g.Packages) == 0 {
				return cerrors.Newf(cerrors.ConfigInvalid, "group %s has no packages", g.Name)
			}
			if err := validatePackages(g, sec.external); err != nil {
				return err
			}
		}
	}
	return nil
}

func validatePackages(g GroupSpec, external bool) error {
	names := make(map[string]bool)
	for _, pkg := range g.Packages {
		if !namePattern.MatchString(pkg.Name) {
			return cerrors.Newf(cerrors.ConfigInvalid, "package name %q in group %s must be letters, digits, '_' or '-'", pkg.Name, g.Name)
		}
		if names[pkg.Name] {
			return cerrors.Newf(cerrors.DuplicateDefinition, "package %s defined twice in group %s", pkg.Name, g.Name)
		}
		names[pkg.Name] = true

		if !external && len(pkg.Src) == 0 {
			return cerrors.Newf(cerrors.ConfigInvalid, "internal package %s.%s has no src", g.Name, pkg.Name)
		}
		if !external && len(pkg.Pattern) > 0 {
			return cerrors.Newf(cerrors.ConfigInvalid, "include patterns are only allowed on external packages (%s.%s)", g.Name, pkg.Name)
		}
		for _, expr := range pkg.Pattern {
			if _, err := regexp.Compile(expr); err != nil {
				return cerrors.New(cerrors.ConfigInvalid, "bad pattern in "+g.Name+"."+pkg.Name, err)
			}
		}
		for _, list := range [][]string{pkg.Src, pkg.Include, pkg.Alias, pkg.Ignore} {
			seen := make(map[string]bool)
			for _, rel := range list {
				clean := filepath.Clean(rel)
				if seen[clean] {
					return cerrors.Newf(cerrors.DuplicateDefinition, "%s is duplicated in %s.%s", rel, g.Name, pkg.Name)
				}
				seen[clean] = true
			}
		}
	}
	return nil
}

// Layout is the project description resolved against the filesystem.
type Layout struct {
	Sources []catalog.PackageSource
	Search  resolver.SearchPaths
}

// Layout resolves every path to an absolute one and builds discovery
// sources and include search paths. Include and alias directories must
// exist.
func (p *Project) Layout() (*Layout, error) {
	var out Layout
	var internalInc, externalInc []string
	for _, sec := range []struct {
		groups   []GroupSpec
		external bool
	}{{p.Internal, false}, {p.External, true}} {
		for _, g := range sec.groups {
			root := g.Path
			if !filepath.IsAbs(root) {
				root = filepath.Join(p.Dir, root)
			}
			root = filepath.Clean(root)
			for _, pkg := range g.Packages {
				src, err := under(root, g, pkg, pkg.Src, false)
				if err != nil {
					return nil, err
				}
				inc, err := under(root, g, pkg, pkg.Include, true)
				if err != nil {
					return nil, err
				}
				alias, err := under(root, g, pkg, pkg.Alias, true)
				if err != nil {
					return nil, err
				}
				ignore, err := under(root, g, pkg, pkg.Ignore, false)
				if err != nil {
					return nil, err
				}

				ps := catalog.PackageSource{Group: g.Name, Name: pkg.Name, External: sec.external, Roots: src, Ignore: ignore}
				if sec.external {
					ps.Roots = append(append(append([]string{}, src...), inc...), alias...)
					externalInc = append(externalInc, inc...)
					out.Search.Alias = append(out.Search.Alias, alias...)
					if len(pkg.Pattern) > 0 {
						pat := resolver.Pattern{Package: catalog.QualifyPackage(g.Name, pkg.Name)}
						for _, expr := range pkg.Pattern {
							pat.Regexps = append(pat.Regexps, regexp.MustCompile(expr))
						}
						out.Search.Patterns = append(out.Search.Patterns, pat)
					}
				} else {
					internalInc = append(internalInc, inc...)
					out.Search.Source = append(out.Search.Source, sourceDirs(src)...)
				}
				out.Sources = append(out.Sources, ps)
			}
		}
	}
	out.Search.Include = append(internalInc, externalInc...)
	for _, list := range [][]string{out.Search.Source, out.Search.Include, out.Search.Alias} {
		for i := range list {
			list[i] = catalog.NormalizePath(list[i])
		}
	}
	return &out, nil
}

// under joins each relative path with root and checks it stays inside.
func under(root string, g GroupSpec, pkg PackageSpec, rels []string, mustBeDir bool) ([]string, error) {
	out := make([]string, 0, len(rels))
	for _, rel := range rels {
		abs := filepath.Clean(filepath.Join(root, rel))
		if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return nil, cerrors.Newf(cerrors.ConfigInvalid, "%s is not inside %s (group %s, package %s)", rel, root, g.Name, pkg.Name)
		}
		if mustBeDir {
			info, err := os.Stat(abs)
			if err != nil || !info.IsDir() {
				return nil, cerrors.Newf(cerrors.SearchPathInvalid, "%s is not a directory (group %s, package %s)", abs, g.Name, pkg.Name)
			}
		}
		out = append(out, abs)
	}
	return out, nil
}

// sourceDirs expands src entries to the directories they name.
func sourceDirs(src []string) []string {
	var out []string
	for _, s := range src {
		matches, err := filepath.Glob(s)
		if err != nil {
			continue
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				out = append(out, m)
			}
		}
	}
	return out
}
