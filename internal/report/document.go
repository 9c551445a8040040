// Package report renders analysis results as text, JSON, compressed JSON
// and Graphviz DOT.
package report

import (
	"math"
	"sort"

	"cppdep/internal/analysis"
	"cppdep/internal/depgraph"
	"cppdep/internal/flaws"
	"cppdep/internal/version"
)

// Document is the serializable form of one run. Identical inputs produce
// identical documents.
type Document struct {
	Tool    string `json:"tool"`
	Version string `json:"version"`

	// RunID is set when the run was recorded in history
	RunID string `json:"runId,omitempty"`

	Levels   []LevelReport   `json:"levels"`
	Findings []flaws.Finding `json:"findings"`

	// Waived counts findings suppressed by waivers
	Waived int `json:"waived,omitempty"`
}

// LevelReport is one analyzed graph.
type LevelReport struct {
	Level   string         `json:"level"`
	Summary SummaryReport  `json:"summary"`
	Nodes   []NodeReport   `json:"nodes"`
	Edges   []EdgeReport   `json:"edges"`
	Cycles  []CycleReport  `json:"cycles,omitempty"`
	Scoped  []ScopedReport `json:"scoped,omitempty"`
}

// SummaryReport mirrors depgraph.Summary with rounded metrics.
type SummaryReport struct {
	Nodes     int      `json:"nodes"`
	Internal  int      `json:"internal"`
	Edges     int      `json:"edges"`
	Cycles    int      `json:"cycles"`
	Levels    int      `json:"levels"`
	Redundant int      `json:"redundant"`
	CCD       int      `json:"ccd"`
	ACD       *float64 `json:"acd"`
	NCCD      *float64 `json:"nccd"`
}

// NodeReport is one node with its stats.
type NodeReport struct {
	Name     string `json:"name"`
	External bool   `json:"external,omitempty"`
	Parent   string `json:"parent,omitempty"`
	Level    int    `json:"level"`
	Reach    int    `json:"reach"`
	CD       int    `json:"cd"`

	// Cycle is 1-based, 0 outside any cycle
	Cycle int `json:"cycle,omitempty"`
}

// EdgeReport is one dependency.
type EdgeReport struct {
	From      string   `json:"from"`
	To        string   `json:"to"`
	Strength  int      `json:"strength"`
	Witnesses []string `json:"witnesses,omitempty"`
	Redundant bool     `json:"redundant,omitempty"`
}

// CycleReport lists the members and internal edges of a cycle.
type CycleReport struct {
	Members []string `json:"members"`
	Edges   []string `json:"edges"`
}

// ScopedReport carries the metrics of one package or group.
type ScopedReport struct {
	Name string   `json:"name"`
	N    int      `json:"n"`
	CCD  int      `json:"ccd"`
	ACD  *float64 `json:"acd"`
	NCCD *float64 `json:"nccd"`
}

// Build converts a result into a document.
func Build(res *analysis.Result, findings []flaws.Finding, waived int) *Document {
	doc := &Document{
		Tool:     "cppdep",
		Version:  version.Version,
		Findings: findings,
		Waived:   waived,
	}
	if doc.Findings == nil {
		doc.Findings = []flaws.Finding{}
	}
	for _, a := range res.Graphs {
		doc.Levels = append(doc.Levels, buildLevel(a))
	}
	return doc
}

func buildLevel(a *depgraph.Analyzed) LevelReport {
	g := a.Graph
	lr := LevelReport{
		Level: g.Level.String(),
		Summary: SummaryReport{
			Nodes:     a.Summary.Nodes,
			Internal:  a.Summary.Internal,
			Edges:     a.Summary.Edges,
			Cycles:    a.Summary.Cycles,
			Levels:    a.Summary.Levels,
			Redundant: a.Summary.Redundant,
			CCD:       a.Summary.Metrics.CCD,
			ACD:       round(a.Summary.Metrics.ACD),
			NCCD:      round(a.Summary.Metrics.NCCD),
		},
		Nodes: make([]NodeReport, len(g.Nodes)),
		Edges: make([]EdgeReport, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		st := a.Stats[i]
		lr.Nodes[i] = NodeReport{
			Name: n.Name, External: n.External, Parent: n.Parent,
			Level: st.Level, Reach: st.Reach, CD: st.CD, Cycle: st.Cycle + 1,
		}
	}
	redundant := make(map[*depgraph.Edge]bool, len(a.Redundant))
	for _, e := range a.Redundant {
		redundant[e] = true
	}
	for i, e := range g.Edges {
		lr.Edges[i] = EdgeReport{From: e.From, To: e.To, Strength: e.Strength, Witnesses: e.Witnesses, Redundant: redundant[e]}
	}
	for _, cy := range a.Cycles {
		cr := CycleReport{Members: cy.Members}
		for _, e := range cy.Edges {
			cr.Edges = append(cr.Edges, e.From+"->"+e.To)
		}
		lr.Cycles = append(lr.Cycles, cr)
	}
	for name, m := range a.Scoped {
		lr.Scoped = append(lr.Scoped, ScopedReport{Name: name, N: m.N, CCD: m.CCD, ACD: round(m.ACD), NCCD: round(m.NCCD)})
	}
	sort.Slice(lr.Scoped, func(i, j int) bool { return lr.Scoped[i].Name < lr.Scoped[j].Name })
	return lr
}

// round keeps six decimals so encodings are stable across platforms.
func round(f *float64) *float64 {
	if f == nil {
		return nil
	}
	r := math.Round(*f*1e6) / 1e6
	return &r
}

// Level returns the report of one level by name.
func (d *Document) Level(name string) (*LevelReport, bool) {
	for i := range d.Levels {
		if d.Levels[i].Level == name {
			return &d.Levels[i], true
		}
	}
	return nil, false
}
