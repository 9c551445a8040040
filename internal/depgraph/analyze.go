package depgraph

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// NodeStats are the per-node results of analysis.
type NodeStats struct {
	Level int `json:"level"`

	// Reach is |R(n)|; CD is Reach+1
	Reach int `json:"reach"`
	CD    int `json:"cd"`

	// Cycle indexes Analyzed.Cycles, -1 outside any cycle
	Cycle int `json:"cycle"`
}

// Summary describes one analyzed level graph.
type Summary struct {
	Nodes     int `json:"nodes"`
	Internal  int `json:"internal"`
	Edges     int `json:"edges"`
	Cycles    int `json:"cycles"`
	Levels    int `json:"levels"`
	Redundant int `json:"redundant"`

	Metrics Metrics `json:"metrics"`
}

// Analyzed is a level graph with its condensation, levels and metrics.
type Analyzed struct {
	Graph        *Graph
	Condensation *Condensation

	// Stats is parallel to Graph.Nodes
	Stats []NodeStats

	Cycles []Cycle

	// Redundant edges are implied by longer paths
	Redundant []*Edge

	Summary Summary

	// Scoped holds per-parent metrics keyed by the parent's name
	Scoped map[string]Metrics
}

// Stat returns the stats of a node by name.
func (a *Analyzed) Stat(name string) (NodeStats, bool) {
	i, ok := a.Graph.Index(name)
	if !ok {
		return NodeStats{}, false
	}
	return a.Stats[i], true
}

// Analyze condenses, levelizes and measures g. Scopes name the parents
// for which scoped metrics are computed; a scope with no nodes yields
// empty metrics.
func Analyze(ctx context.Context, g *Graph, scopes []string) (*Analyzed, error) {
	c, err := Condense(g)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	levelize(c)
	desc := c.descendants()

	external := make([]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		external[i] = n.External
	}
	reach := reachCounts(c, external, desc)

	a := &Analyzed{
		Graph:        g,
		Condensation: c,
		Stats:        make([]NodeStats, len(g.Nodes)),
		Cycles:       cycles(g, c),
		Redundant:    redundant(g, c, desc),
	}

	cycleOf := make(map[int]int)
	for ci, cy := range a.Cycles {
		first, _ := g.Index(cy.Members[0])
		cycleOf[c.Of[first]] = ci
	}

	ccd, maxLevel := 0, -1
	for i := range g.Nodes {
		k := c.Of[i]
		st := NodeStats{Level: c.Nodes[k].Level, Reach: reach[i], CD: reach[i] + 1, Cycle: -1}
		if ci, ok := cycleOf[k]; ok {
			st.Cycle = ci
		}
		if !external[i] {
			ccd += st.CD
		}
		if st.Level > maxLevel {
			maxLevel = st.Level
		}
		a.Stats[i] = st
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.Summary = Summary{
		Nodes:     len(g.Nodes),
		Internal:  g.Internal(),
		Edges:     len(g.Edges),
		Cycles:    len(a.Cycles),
		Levels:    maxLevel + 1,
		Redundant: len(a.Redundant),
		Metrics:   newMetrics(g.Internal(), ccd),
	}

	if len(scopes) > 0 {
		a.Scoped = make(map[string]Metrics, len(scopes))
		for _, s := range scopes {
			m, err := scopedMetrics(g, s)
			if err != nil {
				return nil, err
			}
			a.Scoped[s] = m
		}
	}
	return a, nil
}

// AnalyzeAll analyzes the three graphs of h concurrently. Component
// metrics are scoped per internal package and package metrics per
// internal group.
func AnalyzeAll(ctx context.Context, h *Hierarchy) ([3]*Analyzed, error) {
	var out [3]*Analyzed
	graphs := h.Graphs()
	eg, ctx := errgroup.WithContext(ctx)
	for i, g := range graphs {
		var scopes []string
		if i+1 < len(graphs) {
			scopes = internalNames(graphs[i+1])
		}
		eg.Go(func() error {
			a, err := Analyze(ctx, g, scopes)
			if err != nil {
				return err
			}
			out[i] = a
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return [3]*Analyzed{}, err
	}
	return out, nil
}

func internalNames(g *Graph) []string {
	var out []string
	for _, n := range g.Nodes {
		if !n.External {
			out = append(out, n.Name)
		}
	}
	return out
}
