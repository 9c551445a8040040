package depgraph

import (
	"sort"

	cerrors "cppdep/internal/errors"
	"cppdep/internal/resolver"
)

// Hierarchy is the three level graphs of one codebase.
type Hierarchy struct {
	Component *Graph
	Package   *Graph
	Group     *Graph
}

// Graphs returns the graphs finest first.
func (h *Hierarchy) Graphs() [3]*Graph {
	return [3]*Graph{h.Component, h.Package, h.Group}
}

// Builder collects membership and component edges. The zero value is not
// usable; call NewBuilder.
type Builder struct {
	groups     map[string]bool // name -> external
	packages   map[string]Node
	components map[string]Node
	edges      map[edgeKey]*edgeAcc
}

type edgeKey struct{ from, to string }

type edgeAcc struct {
	witnesses map[string]bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		groups:     make(map[string]bool),
		packages:   make(map[string]Node),
		components: make(map[string]Node),
		edges:      make(map[edgeKey]*edgeAcc),
	}
}

// AddGroup declares a package group.
func (b *Builder) AddGroup(name string, external bool) {
	b.groups[name] = external
}

// AddPackage declares a package by qualified name.
func (b *Builder) AddPackage(name, group string, external bool) {
	b.packages[name] = Node{Name: name, Parent: group, External: external}
}

// AddComponent declares a component or an external sink.
func (b *Builder) AddComponent(name, pkg string, external bool) {
	b.components[name] = Node{Name: name, Parent: pkg, External: external}
}

// AddEdge records a component dependency justified by the given sites.
// Repeated pairs merge.
func (b *Builder) AddEdge(from, to string, sites ...string) {
	k := edgeKey{from, to}
	acc, ok := b.edges[k]
	if !ok {
		acc = &edgeAcc{witnesses: make(map[string]bool)}
		b.edges[k] = acc
	}
	for _, s := range sites {
		acc.witnesses[s] = true
	}
}

// Build validates membership and aggregates the component edges upward.
// Edges leaving external nodes are dropped.
func (b *Builder) Build() (*Hierarchy, error) {
	for _, c := range b.components {
		p, ok := b.packages[c.Parent]
		if !ok {
			return nil, cerrors.Newf(cerrors.PackageNotFound, "component %s refers to unknown package %s", c.Name, c.Parent)
		}
		if c.External && !p.External {
			return nil, cerrors.Newf(cerrors.ConfigInvalid, "external component %s in internal package %s", c.Name, c.Parent)
		}
	}
	for _, p := range b.packages {
		if _, ok := b.groups[p.Parent]; !ok {
			return nil, cerrors.Newf(cerrors.PackageNotFound, "package %s refers to unknown group %s", p.Name, p.Parent)
		}
	}

	compEdges := make(map[edgeKey]*Edge)
	pkgEdges := make(map[edgeKey]*Edge)
	for k, acc := range b.edges {
		from, ok := b.components[k.from]
		if !ok {
			return nil, cerrors.Newf(cerrors.InternalError, "edge from unknown component %s", k.from)
		}
		to, ok := b.components[k.to]
		if !ok {
			return nil, cerrors.Newf(cerrors.InternalError, "edge to unknown component %s", k.to)
		}
		if from.External || k.from == k.to {
			continue
		}
		strength := len(acc.witnesses)
		if strength == 0 {
			strength = 1
		}
		compEdges[k] = &Edge{From: k.from, To: k.to, Strength: strength, Witnesses: keys(acc.witnesses)}
		if from.Parent != to.Parent {
			lift(pkgEdges, from.Parent, to.Parent, k.from+" -> "+k.to)
		}
	}

	grpEdges := make(map[edgeKey]*Edge)
	for k := range pkgEdges {
		from, to := b.packages[k.from], b.packages[k.to]
		if from.Parent != to.Parent {
			lift(grpEdges, from.Parent, to.Parent, k.from+" -> "+k.to)
		}
	}

	groups := make([]Node, 0, len(b.groups))
	for name, ext := range b.groups {
		groups = append(groups, Node{Name: name, External: ext})
	}
	return &Hierarchy{
		Component: newGraph(ComponentLevel, values(b.components), finish(compEdges)),
		Package:   newGraph(PackageLevel, values(b.packages), finish(pkgEdges)),
		Group:     newGraph(GroupLevel, groups, finish(grpEdges)),
	}, nil
}

// lift records that the lower-level fact w justifies the edge (from, to).
func lift(m map[edgeKey]*Edge, from, to, w string) {
	k := edgeKey{from, to}
	e, ok := m[k]
	if !ok {
		e = &Edge{From: from, To: to}
		m[k] = e
	}
	e.Strength++
	e.Witnesses = append(e.Witnesses, w)
}

func finish(m map[edgeKey]*Edge) []*Edge {
	out := make([]*Edge, 0, len(m))
	for _, e := range m {
		sort.Strings(e.Witnesses)
		if len(e.Witnesses) > MaxWitnesses {
			e.Witnesses = e.Witnesses[:MaxWitnesses]
		}
		out = append(out, e)
	}
	return out
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func values(m map[string]Node) []Node {
	out := make([]Node, 0, len(m))
	for _, n := range m {
		out = append(out, n)
	}
	return out
}

// FromResolution builds the hierarchy of a resolved codebase. Every internal
// package is a node; external packages appear only when they received an
// include.
func FromResolution(res *resolver.Result) (*Hierarchy, error) {
	b := NewBuilder()
	cat := res.Catalog
	for _, g := range cat.Groups() {
		external := g.External()
		used := !external
		for _, p := range g.Packages {
			if !p.External {
				b.AddPackage(p.QualifiedName(), g.Name, false)
			}
		}
		for _, s := range res.Sinks {
			if s.Group == g.Name {
				b.AddPackage(s.Package, g.Name, true)
				used = true
			}
		}
		if used {
			b.AddGroup(g.Name, external)
		}
	}
	for _, c := range res.Components {
		b.AddComponent(c.QualifiedName(), c.Package, false)
	}
	for _, s := range res.Sinks {
		b.AddComponent(s.Name, s.Package, true)
	}
	for _, e := range res.Edges {
		b.AddEdge(e.From, e.To, e.Sites...)
	}
	return b.Build()
}
