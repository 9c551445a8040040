// Package resolver groups cataloged files into components and resolves
// every include directive to a component, an external sink or nothing.
package resolver

import (
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"sort"

	"cppdep/internal/catalog"
	cerrors "cppdep/internal/errors"
	"cppdep/internal/includes"
)

// Status is the outcome of resolving one include.
type Status int

const (
	Internal Status = iota
	External
	Missing
)

func (s Status) String() string {
	switch s {
	case Internal:
		return "internal"
	case External:
		return "external"
	default:
		return "missing"
	}
}

// Pattern routes include tokens matching any regex to an external package.
type Pattern struct {
	Package string
	Regexps []*regexp.Regexp
}

// SearchPaths are the absolute roots consulted after the including file's
// own directory, in order.
type SearchPaths struct {
	Source  []string
	Include []string
	Alias   []string

	// Patterns of external packages, checked before any root
	Patterns []Pattern
}

// Validate rejects roots that are empty or not absolute.
func (sp SearchPaths) Validate() error {
	for _, set := range []struct {
		name  string
		roots []string
	}{{"source", sp.Source}, {"include", sp.Include}, {"alias", sp.Alias}} {
		for _, root := range set.roots {
			if root == "" || !path.IsAbs(catalog.NormalizePath(root)) {
				return cerrors.Newf(cerrors.SearchPathInvalid, "%s search path %q is not absolute", set.name, root)
			}
		}
	}
	return nil
}

// Options controls component acceptance.
type Options struct {
	// HeaderOnly accepts a lone header as a component
	HeaderOnly bool

	// SourceOnly accepts a lone source as a component
	SourceOnly bool

	Logger *slog.Logger
}

// DefaultOptions accepts both header-only and source-only components.
func DefaultOptions() Options {
	return Options{HeaderOnly: true, SourceOnly: true}
}

// Resolved is one include with its resolution.
type Resolved struct {
	Include includes.Include `json:"include"`
	Status  Status           `json:"status"`

	// Via names the policy that matched, empty when Missing
	Via string `json:"via,omitempty"`

	// Target is the cataloged file, nil for pattern matches and Missing
	Target *catalog.File `json:"-"`

	// Sink is the external sink name when Status is External
	Sink string `json:"sink,omitempty"`
}

// Edge is a component dependency with the include sites that justify it.
type Edge struct {
	From  string   `json:"from"`
	To    string   `json:"to"`
	Sites []string `json:"sites"`
}

// FirstInclude records the first non-external include of a file.
type FirstInclude struct {
	// Index into the file's resolved includes, -1 when there is none
	Index int

	// OwnHeader is true when that include is the owner's own header
	OwnHeader bool
}

// Sink is an external package that received at least one include.
type Sink struct {
	Name    string `json:"name"`
	Package string `json:"package"`
	Group   string `json:"group"`
}

// Result is the outcome of Resolve.
type Result struct {
	Catalog *catalog.Catalog

	// Components sorted by qualified name
	Components []*Component

	// Files holds the resolved includes of every internal file
	Files map[string][]Resolved

	// First holds the FirstInclude of every internal file
	First map[string]FirstInclude

	// Edges sorted by (From, To)
	Edges []*Edge

	// Sinks sorted by name
	Sinks []Sink

	Conflicts    []Conflict
	Unassociated []*catalog.File

	owner map[string]*Component
}

// Owner returns the component a file belongs to.
func (r *Result) Owner(path string) (*Component, bool) {
	c, ok := r.owner[path]
	return c, ok
}

// ComponentsOf returns the components of a package, sorted by name.
func (r *Result) ComponentsOf(pkg string) []*Component {
	var out []*Component
	for _, c := range r.Components {
		if c.Package == pkg {
			out = append(out, c)
		}
	}
	return out
}

// Resolve builds components and resolves every include of every internal file.
func Resolve(cat *catalog.Catalog, table includes.Table, sp SearchPaths, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := sp.Validate(); err != nil {
		return nil, err
	}
	if len(cat.InternalFiles()) == 0 {
		return nil, cerrors.Newf(cerrors.CatalogEmpty, "no header or source file cataloged in internal packages")
	}
	for _, p := range sp.Patterns {
		pkg, ok := cat.Package(p.Package)
		if !ok {
			return nil, cerrors.Newf(cerrors.PackageNotFound, "include pattern refers to unknown package %s", p.Package)
		}
		if !pkg.External {
			return nil, cerrors.Newf(cerrors.ConfigInvalid, "include patterns are only allowed on external packages, %s is internal", p.Package)
		}
	}

	res := &Result{
		Catalog: cat,
		Files:   make(map[string][]Resolved),
		First:   make(map[string]FirstInclude),
		owner:   make(map[string]*Component),
	}
	for _, pkg := range cat.Packages() {
		if pkg.External {
			continue
		}
		comps, conflicts, lone := group(pkg, opts)
		res.Components = append(res.Components, comps...)
		res.Conflicts = append(res.Conflicts, conflicts...)
		res.Unassociated = append(res.Unassociated, lone...)
		for _, c := range comps {
			for _, f := range c.Files() {
				res.owner[f.Path] = c
			}
		}
	}
	sort.Slice(res.Components, func(i, j int) bool {
		return res.Components[i].QualifiedName() < res.Components[j].QualifiedName()
	})
	sortFiles(res.Unassociated)

	r := &run{cat: cat, sp: sp}
	edges := make(map[[2]string]*Edge)
	sinks := make(map[string]Sink)

	for _, f := range cat.InternalFiles() {
		owner := res.owner[f.Path]
		incs := table[f.Path]
		resolved := make([]Resolved, len(incs))
		first := FirstInclude{Index: -1}
		for i, inc := range incs {
			rv := r.resolve(f, inc)
			resolved[i] = rv
			if rv.Status != External && first.Index < 0 {
				first.Index = i
				first.OwnHeader = owner != nil && owner.Header != nil && rv.Target == owner.Header
			}

			if owner == nil {
				continue
			}
			var to string
			switch rv.Status {
			case Internal:
				target, ok := res.owner[rv.Target.Path]
				if !ok || target == owner {
					continue
				}
				to = target.QualifiedName()
			case External:
				to = rv.Sink
				pkg, _ := cat.Package(sinkPackage(rv))
				sinks[to] = Sink{Name: to, Package: pkg.QualifiedName(), Group: pkg.Group}
			default:
				continue
			}
			key := [2]string{owner.QualifiedName(), to}
			e, ok := edges[key]
			if !ok {
				e = &Edge{From: key[0], To: key[1]}
				edges[key] = e
			}
			e.Sites = append(e.Sites, fmt.Sprintf("%s:%d", f.Path, inc.Line))
		}
		res.Files[f.Path] = resolved
		res.First[f.Path] = first
	}

	res.Edges = make([]*Edge, 0, len(edges))
	for _, e := range edges {
		res.Edges = append(res.Edges, e)
	}
	sort.Slice(res.Edges, func(i, j int) bool {
		if res.Edges[i].From != res.Edges[j].From {
			return res.Edges[i].From < res.Edges[j].From
		}
		return res.Edges[i].To < res.Edges[j].To
	})
	for _, s := range sinks {
		res.Sinks = append(res.Sinks, s)
	}
	sort.Slice(res.Sinks, func(i, j int) bool { return res.Sinks[i].Name < res.Sinks[j].Name })

	logger.Debug("includes resolved",
		"components", len(res.Components),
		"edges", len(res.Edges),
		"sinks", len(res.Sinks),
		"conflicts", len(res.Conflicts))
	return res, nil
}

func sinkPackage(rv Resolved) string {
	return rv.Sink[:len(rv.Sink)-len("/*")]
}

func sortFiles(files []*catalog.File) {
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
}

func sortedKeys(maps ...map[string][]*catalog.File) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, m := range maps {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}
