package depgraph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	cerrors "cppdep/internal/errors"
)

// CondensedNode is a strongly connected component of a level graph: a
// single node or a cycle group.
type CondensedNode struct {
	// Members are node indices in name order
	Members []int

	// Succ are condensed indices of direct dependencies, ascending
	Succ []int

	Level int
}

// Cyclic reports whether the node is a cycle group.
func (c *CondensedNode) Cyclic() bool { return len(c.Members) > 1 }

// Condensation is the acyclic graph of strongly connected components.
// Nodes are ordered by their first member's name.
type Condensation struct {
	Nodes []CondensedNode

	// Of maps a node index to its condensed index
	Of []int

	// Order lists condensed indices with every node after its dependencies
	Order []int
}

// Condense computes the condensation of g. Edges leaving external nodes
// are ignored.
func Condense(g *Graph) (*Condensation, error) {
	return condense(len(g.Nodes), func(i int) []int {
		if g.Nodes[i].External {
			return nil
		}
		return g.succ[i]
	})
}

func condense(n int, succ func(int) []int) (*Condensation, error) {
	dg := simple.NewDirectedGraph()
	for i := 0; i < n; i++ {
		dg.AddNode(simple.Node(i))
	}
	for i := 0; i < n; i++ {
		for _, j := range succ(i) {
			if i != j {
				dg.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
			}
		}
	}

	sccs := topo.TarjanSCC(dg)
	members := make([][]int, len(sccs))
	for k, scc := range sccs {
		m := make([]int, len(scc))
		for i, node := range scc {
			m[i] = int(node.ID())
		}
		sort.Ints(m)
		members[k] = m
	}
	sort.Slice(members, func(i, j int) bool { return members[i][0] < members[j][0] })

	c := &Condensation{Nodes: make([]CondensedNode, len(members)), Of: make([]int, n)}
	for k, m := range members {
		c.Nodes[k].Members = m
		for _, i := range m {
			c.Of[i] = k
		}
	}

	cg := simple.NewDirectedGraph()
	for k := range c.Nodes {
		cg.AddNode(simple.Node(k))
	}
	for k := range c.Nodes {
		seen := make(map[int]bool)
		for _, i := range c.Nodes[k].Members {
			for _, j := range succ(i) {
				t := c.Of[j]
				if t == k || seen[t] {
					continue
				}
				seen[t] = true
				c.Nodes[k].Succ = append(c.Nodes[k].Succ, t)
				cg.SetEdge(simple.Edge{F: simple.Node(k), T: simple.Node(t)})
			}
		}
		sort.Ints(c.Nodes[k].Succ)
	}

	sorted, err := topo.Sort(cg)
	if err != nil {
		return nil, cerrors.New(cerrors.InternalError, "condensation is not acyclic", err)
	}
	c.Order = make([]int, len(sorted))
	for i, node := range sorted {
		c.Order[len(sorted)-1-i] = int(node.ID())
	}
	return c, nil
}

// descendants returns, per condensed node, the condensed nodes reachable
// through one or more edges.
func (c *Condensation) descendants() []bitset {
	desc := make([]bitset, len(c.Nodes))
	for _, k := range c.Order {
		d := newBitset(len(c.Nodes))
		for _, s := range c.Nodes[k].Succ {
			d.set(s)
			d.union(desc[s])
		}
		desc[k] = d
	}
	return desc
}

// Cycle is a strongly connected component with at least two members.
type Cycle struct {
	Level   Level    `json:"level"`
	Members []string `json:"members"`
	Edges   []*Edge  `json:"edges"`
}

// cycles lists the cycle groups of g in first-member order.
func cycles(g *Graph, c *Condensation) []Cycle {
	var out []Cycle
	for k := range c.Nodes {
		cn := &c.Nodes[k]
		if !cn.Cyclic() {
			continue
		}
		cy := Cycle{Level: g.Level}
		for _, i := range cn.Members {
			cy.Members = append(cy.Members, g.Nodes[i].Name)
		}
		for _, e := range g.Edges {
			from, to := g.index[e.From], g.index[e.To]
			if c.Of[from] == k && c.Of[to] == k {
				cy.Edges = append(cy.Edges, e)
			}
		}
		out = append(out, cy)
	}
	return out
}

// redundant returns the edges of g implied by a longer path in the
// condensation. Edges inside a cycle group are never redundant.
func redundant(g *Graph, c *Condensation, desc []bitset) []*Edge {
	var out []*Edge
	for _, e := range g.Edges {
		from, to := c.Of[g.index[e.From]], c.Of[g.index[e.To]]
		if from == to || g.Nodes[g.index[e.From]].External {
			continue
		}
		for _, s := range c.Nodes[from].Succ {
			if s != to && desc[s].has(to) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
