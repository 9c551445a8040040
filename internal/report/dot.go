package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"

	cerrors "cppdep/internal/errors"
)

type dotNode struct {
	id   int64
	name string
	attr []encoding.Attribute
}

func (n dotNode) ID() int64                        { return n.id }
func (n dotNode) DOTID() string                    { return n.name }
func (n dotNode) Attributes() []encoding.Attribute { return n.attr }

type dotEdge struct {
	from, to dotNode
	attr     []encoding.Attribute
}

func (e dotEdge) From() graph.Node                 { return e.from }
func (e dotEdge) To() graph.Node                   { return e.to }
func (e dotEdge) ReversedEdge() graph.Edge         { return dotEdge{from: e.to, to: e.from, attr: e.attr} }
func (e dotEdge) Attributes() []encoding.Attribute { return e.attr }

type attrs []encoding.Attribute

func (a attrs) Attributes() []encoding.Attribute { return a }

// dotGraph adds graph-wide attributes to a directed graph.
type dotGraph struct {
	*simple.DirectedGraph
	graphAttr attrs
}

func (g dotGraph) DOTAttributers() (graph, node, edge encoding.Attributer) {
	return g.graphAttr, attrs{{Key: "fontname", Value: "Helvetica"}}, attrs(nil)
}

// DOTGraph builds the DOT rendering of one level. With reduced set,
// redundant edges are left out; otherwise they are drawn dotted.
func DOTGraph(lr *LevelReport, reduced bool) ([]byte, error) {
	return marshal(lr, lr.Level, func(NodeReport) bool { return true }, reduced)
}

// DOTCycle builds the DOT rendering of the i-th cycle (0-based) of a level.
func DOTCycle(lr *LevelReport, i int) ([]byte, error) {
	members := make(map[string]bool, len(lr.Cycles[i].Members))
	for _, m := range lr.Cycles[i].Members {
		members[m] = true
	}
	name := lr.Level + "_cycle" + strconv.Itoa(i+1)
	return marshal(lr, name, func(n NodeReport) bool { return members[n.Name] }, false)
}

func marshal(lr *LevelReport, name string, keep func(NodeReport) bool, reduced bool) ([]byte, error) {
	g := dotGraph{
		DirectedGraph: simple.NewDirectedGraph(),
		graphAttr:     attrs{{Key: "rankdir", Value: "BT"}, {Key: "label", Value: name}},
	}
	nodes := make(map[string]dotNode, len(lr.Nodes))
	for i, n := range lr.Nodes {
		if !keep(n) {
			continue
		}
		dn := dotNode{id: int64(i), name: n.Name}
		if n.External {
			dn.attr = append(dn.attr, encoding.Attribute{Key: "shape", Value: "box"}, encoding.Attribute{Key: "style", Value: "dashed"})
		}
		if n.Cycle > 0 {
			dn.attr = append(dn.attr, encoding.Attribute{Key: "color", Value: "red"})
		}
		nodes[n.Name] = dn
		g.AddNode(dn)
	}
	for _, e := range lr.Edges {
		from, ok1 := nodes[e.From]
		to, ok2 := nodes[e.To]
		if !ok1 || !ok2 || (reduced && e.Redundant) {
			continue
		}
		de := dotEdge{from: from, to: to}
		if e.Strength > 1 {
			de.attr = append(de.attr, encoding.Attribute{Key: "label", Value: strconv.Itoa(e.Strength)})
		}
		if e.Redundant {
			de.attr = append(de.attr, encoding.Attribute{Key: "style", Value: "dotted"})
		}
		g.SetEdge(de)
	}
	return dot.Marshal(g, name, "", "  ")
}

// WriteDOT writes <level>.dot for every level and <level>_cycle<N>.dot
// for every cycle into dir, returning the written paths.
func WriteDOT(dir string, doc *Document, reduced bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, cerrors.New(cerrors.IOFailure, "failed to create DOT directory", err)
	}
	var written []string
	write := func(name string, data []byte, err error) error {
		if err != nil {
			return cerrors.New(cerrors.InternalError, fmt.Sprintf("failed to render %s", name), err)
		}
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return cerrors.New(cerrors.IOFailure, "failed to write "+p, err)
		}
		written = append(written, p)
		return nil
	}
	for li := range doc.Levels {
		lr := &doc.Levels[li]
		data, err := DOTGraph(lr, reduced)
		if err := write(lr.Level+".dot", data, err); err != nil {
			return written, err
		}
		for ci := range lr.Cycles {
			data, err := DOTCycle(lr, ci)
			if err := write(fmt.Sprintf("%s_cycle%d.dot", lr.Level, ci+1), data, err); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}
