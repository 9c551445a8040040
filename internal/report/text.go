package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"cppdep/internal/flaws"
)

// Deps selects which dependencies the text report lists per node.
type Deps int

const (
	// DepsNone lists levels only
	DepsNone Deps = iota
	// DepsReduced omits edges implied by longer paths
	DepsReduced
	// DepsAll lists every direct dependency
	DepsAll
)

// TextOptions control WriteText.
type TextOptions struct {
	Deps Deps

	// Levels restricts output to the named levels; empty means all
	Levels []string
}

const rule = "================================================================================"

// WriteText renders the human-readable report.
func WriteText(w io.Writer, doc *Document, opts TextOptions) error {
	tw := &textWriter{w: w}
	for i := range doc.Levels {
		lr := &doc.Levels[i]
		if !wanted(opts.Levels, lr.Level) {
			continue
		}
		tw.level(lr, opts.Deps)
	}
	tw.findings(doc)
	return tw.err
}

func wanted(levels []string, name string) bool {
	if len(levels) == 0 {
		return true
	}
	for _, l := range levels {
		if l == name {
			return true
		}
	}
	return false
}

type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(format string, args ...interface{}) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *textWriter) level(lr *LevelReport, deps Deps) {
	t.printf("%s\n%s graph\n%s\n", rule, lr.Level, rule)

	t.printf("cycles (%d):\n", len(lr.Cycles))
	for i, cy := range lr.Cycles {
		t.printf("  #%d nodes (%d): %s\n", i+1, len(cy.Members), strings.Join(cy.Members, " "))
		t.printf("  #%d edges (%d): %s\n", i+1, len(cy.Edges), strings.Join(cy.Edges, " "))
	}

	layers := make(map[int][]NodeReport)
	for _, n := range lr.Nodes {
		layers[n.Level] = append(layers[n.Level], n)
	}
	cycleOf := make(map[string]int, len(lr.Nodes))
	for _, n := range lr.Nodes {
		cycleOf[n.Name] = n.Cycle
	}
	succ := successors(lr, deps)

	t.printf("levels (%d):\n", lr.Summary.Levels)
	for l := 0; l < lr.Summary.Levels; l++ {
		nodes := layers[l]
		t.printf("level %d (%d nodes):\n", l, len(nodes))
		for _, n := range nodes {
			t.printf("  %s", label(n.Name, cycleOf))
			if n.External {
				t.printf(" (external)")
			}
			if deps != DepsNone {
				out := make([]string, 0, len(succ[n.Name]))
				for _, s := range succ[n.Name] {
					out = append(out, label(s, cycleOf))
				}
				t.printf(" -> %s", strings.Join(out, " "))
			}
			t.printf("\n")
		}
	}
	if deps == DepsReduced {
		var stripped []string
		for _, e := range lr.Edges {
			if e.Redundant {
				stripped = append(stripped, e.From+"->"+e.To)
			}
		}
		t.printf("redundant edges stripped (%d): %s\n", len(stripped), strings.Join(stripped, " "))
	}

	s := lr.Summary
	t.printf("summary: nodes %d  internal %d  edges %d  cycles %d  levels %d\n",
		s.Nodes, s.Internal, s.Edges, s.Cycles, s.Levels)
	t.printf("CCD: %d  ACD: %s  NCCD: %s (typical range is [0.85, 1.10])\n",
		s.CCD, formatFloat(s.ACD), formatFloat(s.NCCD))
	for _, sc := range lr.Scoped {
		t.printf("  %s: N %d  CCD %d  ACD %s  NCCD %s\n",
			sc.Name, sc.N, sc.CCD, formatFloat(sc.ACD), formatFloat(sc.NCCD))
	}
}

func successors(lr *LevelReport, deps Deps) map[string][]string {
	out := make(map[string][]string)
	if deps == DepsNone {
		return out
	}
	for _, e := range lr.Edges {
		if deps == DepsReduced && e.Redundant {
			continue
		}
		out[e.From] = append(out[e.From], e.To)
	}
	for _, s := range out {
		sort.Strings(s)
	}
	return out
}

func label(name string, cycleOf map[string]int) string {
	if c := cycleOf[name]; c > 0 {
		return "[cycle " + strconv.Itoa(c) + "]" + name
	}
	return name
}

func (t *textWriter) findings(doc *Document) {
	counts := flaws.CountBySeverity(doc.Findings)
	t.printf("%s\nfindings (%d): %d error, %d warning, %d info",
		rule, len(doc.Findings), counts[flaws.Error], counts[flaws.Warning], counts[flaws.Info])
	if doc.Waived > 0 {
		t.printf(", %d waived", doc.Waived)
	}
	t.printf("\n")
	for _, f := range doc.Findings {
		t.printf("%s\n", f.String())
	}
}

// formatFloat prints a metric with six decimals, "-" when undefined.
func formatFloat(f *float64) string {
	if f == nil {
		return "-"
	}
	return strconv.FormatFloat(*f, 'f', 6, 64)
}
