package resolver

import (
	"cppdep/internal/catalog"
	"cppdep/internal/includes"
)

// policy is one step of include resolution. The first policy that
// matches decides the outcome.
type policy struct {
	name  string
	match func(r *run, from *catalog.File, inc includes.Include) (Resolved, bool)
}

var policies = []policy{
	{"local", func(r *run, from *catalog.File, inc includes.Include) (Resolved, bool) {
		if !inc.Quoted {
			return Resolved{}, false
		}
		return r.lookup([]string{from.Dir()}, inc)
	}},
	{"pattern", func(r *run, _ *catalog.File, inc includes.Include) (Resolved, bool) {
		key := inc.Key()
		for _, p := range r.sp.Patterns {
			for _, re := range p.Regexps {
				if re.MatchString(key) {
					return Resolved{Include: inc, Status: External, Sink: SinkName(p.Package)}, true
				}
			}
		}
		return Resolved{}, false
	}},
	{"source", func(r *run, _ *catalog.File, inc includes.Include) (Resolved, bool) {
		return r.lookup(r.sp.Source, inc)
	}},
	{"include", func(r *run, _ *catalog.File, inc includes.Include) (Resolved, bool) {
		return r.lookup(r.sp.Include, inc)
	}},
	{"alias", func(r *run, _ *catalog.File, inc includes.Include) (Resolved, bool) {
		return r.lookup(r.sp.Alias, inc)
	}},
}

// PolicyNames lists the resolution policies in the order they apply.
func PolicyNames() []string {
	out := make([]string, len(policies))
	for i, p := range policies {
		out[i] = p.name
	}
	return out
}

type run struct {
	cat *catalog.Catalog
	sp  SearchPaths
}

func (r *run) resolve(from *catalog.File, inc includes.Include) Resolved {
	for _, p := range policies {
		if rv, ok := p.match(r, from, inc); ok {
			rv.Via = p.name
			return rv
		}
	}
	return Resolved{Include: inc, Status: Missing}
}

// lookup probes normjoin(root, token) against the catalog for each root.
func (r *run) lookup(roots []string, inc includes.Include) (Resolved, bool) {
	for _, root := range roots {
		f, ok := r.cat.File(catalog.NormJoin(root, inc.Token))
		if !ok {
			continue
		}
		pkg, _ := r.cat.Package(f.Package)
		if pkg.External {
			return Resolved{Include: inc, Status: External, Target: f, Sink: SinkName(pkg.QualifiedName())}, true
		}
		return Resolved{Include: inc, Status: Internal, Target: f}, true
	}
	return Resolved{}, false
}
