// Package depgraph builds the component, package and group dependency
// graphs and analyzes them: cycle condensation, levelization and the
// cumulative component dependency metrics.
package depgraph

import (
	"sort"
)

// Level identifies one of the three graph granularities.
type Level int

const (
	ComponentLevel Level = iota
	PackageLevel
	GroupLevel
)

// Levels lists all granularities, finest first.
var Levels = [...]Level{ComponentLevel, PackageLevel, GroupLevel}

func (l Level) String() string {
	switch l {
	case ComponentLevel:
		return "component"
	case PackageLevel:
		return "package"
	default:
		return "group"
	}
}

// MaxWitnesses bounds the witnesses kept on each edge.
const MaxWitnesses = 5

// Node is a vertex of one level graph.
type Node struct {
	Name     string `json:"name"`
	External bool   `json:"external,omitempty"`

	// Parent is the package of a component or the group of a package
	Parent string `json:"parent,omitempty"`
}

// Edge is a dependency between two distinct nodes.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`

	// Strength counts the distinct lower-level facts behind the edge
	Strength int `json:"strength"`

	// Witnesses are up to MaxWitnesses of those facts, sorted
	Witnesses []string `json:"witnesses,omitempty"`
}

// Graph is an immutable level graph with nodes and edges sorted by name.
type Graph struct {
	Level Level
	Nodes []Node
	Edges []*Edge

	index map[string]int
	succ  [][]int
}

func newGraph(level Level, nodes []Node, edges []*Edge) *Graph {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	g := &Graph{
		Level: level,
		Nodes: nodes,
		Edges: edges,
		index: make(map[string]int, len(nodes)),
		succ:  make([][]int, len(nodes)),
	}
	for i, n := range nodes {
		g.index[n.Name] = i
	}
	for _, e := range edges {
		from := g.index[e.From]
		g.succ[from] = append(g.succ[from], g.index[e.To])
	}
	return g
}

// Index returns the position of a node in Nodes.
func (g *Graph) Index(name string) (int, bool) {
	i, ok := g.index[name]
	return i, ok
}

// Successors returns the direct dependencies of node i in name order.
func (g *Graph) Successors(i int) []int {
	return g.succ[i]
}

// HasEdge reports whether from depends directly on to.
func (g *Graph) HasEdge(from, to string) bool {
	i, ok := g.index[from]
	if !ok {
		return false
	}
	j, ok := g.index[to]
	if !ok {
		return false
	}
	for _, s := range g.succ[i] {
		if s == j {
			return true
		}
	}
	return false
}

// Edge returns the edge between two nodes.
func (g *Graph) Edge(from, to string) (*Edge, bool) {
	i := sort.Search(len(g.Edges), func(k int) bool {
		e := g.Edges[k]
		return e.From > from || (e.From == from && e.To >= to)
	})
	if i < len(g.Edges) && g.Edges[i].From == from && g.Edges[i].To == to {
		return g.Edges[i], true
	}
	return nil, false
}

// Internal counts nodes that are not external.
func (g *Graph) Internal() int {
	n := 0
	for _, node := range g.Nodes {
		if !node.External {
			n++
		}
	}
	return n
}
