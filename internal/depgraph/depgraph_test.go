package depgraph

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "cppdep/internal/errors"
)

// onePackage builds a hierarchy with every component in g.p.
func onePackage(t *testing.T, comps []string, edges [][2]string) *Hierarchy {
	t.Helper()
	b := NewBuilder()
	b.AddGroup("g", false)
	b.AddPackage("g.p", "g", false)
	for _, c := range comps {
		b.AddComponent("g.p/"+c, "g.p", false)
	}
	for _, e := range edges {
		b.AddEdge("g.p/"+e[0], "g.p/"+e[1])
	}
	h, err := b.Build()
	require.NoError(t, err)
	return h
}

func analyze(t *testing.T, g *Graph, scopes ...string) *Analyzed {
	t.Helper()
	a, err := Analyze(context.Background(), g, scopes)
	require.NoError(t, err)
	return a
}

func stat(t *testing.T, a *Analyzed, name string) NodeStats {
	t.Helper()
	st, ok := a.Stat(name)
	require.True(t, ok, name)
	return st
}

func TestScenarioA_ThreeCycle(t *testing.T) {
	h := onePackage(t, []string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}})
	a := analyze(t, h.Component)

	require.Len(t, a.Cycles, 1)
	assert.Equal(t, []string{"g.p/A", "g.p/B", "g.p/C"}, a.Cycles[0].Members)
	assert.Len(t, a.Cycles[0].Edges, 3)
	for _, n := range []string{"g.p/A", "g.p/B", "g.p/C"} {
		st := stat(t, a, n)
		assert.Equal(t, 0, st.Level)
		assert.Equal(t, 2, st.Reach)
		assert.Equal(t, 0, st.Cycle)
	}
	assert.Len(t, a.Condensation.Nodes, 1)
}

func TestScenarioA_CycleWithOutsideDependency(t *testing.T) {
	b := NewBuilder()
	b.AddGroup("g", false)
	b.AddGroup("sys", true)
	b.AddPackage("g.p", "g", false)
	b.AddPackage("sys.std", "sys", true)
	for _, c := range []string{"A", "B", "C", "D"} {
		b.AddComponent("g.p/"+c, "g.p", false)
	}
	b.AddComponent("sys.std/*", "sys.std", true)
	b.AddEdge("g.p/A", "g.p/B")
	b.AddEdge("g.p/B", "g.p/C")
	b.AddEdge("g.p/C", "g.p/A")
	b.AddEdge("g.p/B", "g.p/D")
	b.AddEdge("g.p/D", "sys.std/*")
	h, err := b.Build()
	require.NoError(t, err)

	a := analyze(t, h.Component)
	assert.Equal(t, 0, stat(t, a, "sys.std/*").Level)
	assert.Equal(t, 1, stat(t, a, "g.p/D").Level)
	for _, n := range []string{"g.p/A", "g.p/B", "g.p/C"} {
		assert.Equal(t, 2, stat(t, a, n).Level, n)
		// the two other members plus D; the sink is not counted
		assert.Equal(t, 3, stat(t, a, n).Reach, n)
	}
	assert.Equal(t, 0, stat(t, a, "g.p/D").Reach)
}

func TestScenarioC_PackageCCD(t *testing.T) {
	h := onePackage(t, []string{"X", "Y"}, [][2]string{{"Y", "X"}})
	a := analyze(t, h.Component, "g.p")

	assert.Equal(t, 0, stat(t, a, "g.p/X").Level)
	assert.Equal(t, 1, stat(t, a, "g.p/Y").Level)

	m := a.Scoped["g.p"]
	assert.Equal(t, 2, m.N)
	assert.Equal(t, 3, m.CCD)
	require.NotNil(t, m.ACD)
	assert.InDelta(t, 1.5, *m.ACD, 1e-9)
	require.NotNil(t, m.NCCD)
	// balanced tree of 2 nodes: 3*log2(3) - 2
	assert.InDelta(t, 3/(3*1.584962500721156-2), *m.NCCD, 1e-9)
}

func TestScenarioE_EmptyPackage(t *testing.T) {
	b := NewBuilder()
	b.AddGroup("g", false)
	b.AddPackage("g.empty", "g", false)
	b.AddPackage("g.p", "g", false)
	b.AddComponent("g.p/a", "g.p", false)
	h, err := b.Build()
	require.NoError(t, err)

	all, err := AnalyzeAll(context.Background(), h)
	require.NoError(t, err)

	m, ok := all[ComponentLevel].Scoped["g.empty"]
	require.True(t, ok)
	assert.Equal(t, 0, m.N)
	assert.Equal(t, 0, m.CCD)
	assert.Nil(t, m.ACD)
	assert.Nil(t, m.NCCD)

	assert.Empty(t, h.Package.Edges)
	st := stat(t, all[PackageLevel], "g.empty")
	assert.Equal(t, 0, st.Level)
	assert.Equal(t, 0, st.Reach)
}

func TestEmptyGraph(t *testing.T) {
	h, err := NewBuilder().Build()
	require.NoError(t, err)
	a := analyze(t, h.Component)
	assert.Equal(t, 0, a.Summary.Levels)
	assert.Equal(t, 0, a.Summary.Metrics.CCD)
	assert.Nil(t, a.Summary.Metrics.ACD)
	assert.Nil(t, a.Layers())
}

func TestBuild_Aggregation(t *testing.T) {
	b := NewBuilder()
	b.AddGroup("app", false)
	b.AddGroup("lib", false)
	b.AddGroup("sys", true)
	b.AddPackage("app.ui", "app", false)
	b.AddPackage("app.core", "app", false)
	b.AddPackage("lib.base", "lib", false)
	b.AddPackage("sys.std", "sys", true)
	b.AddComponent("app.ui/w", "app.ui", false)
	b.AddComponent("app.ui/v", "app.ui", false)
	b.AddComponent("app.core/m", "app.core", false)
	b.AddComponent("lib.base/s", "lib.base", false)
	b.AddComponent("sys.std/*", "sys.std", true)

	b.AddEdge("app.ui/w", "app.core/m", "w.cpp:1")
	b.AddEdge("app.ui/v", "app.core/m", "v.cpp:3", "v.h:2")
	b.AddEdge("app.ui/w", "app.ui/v", "w.cpp:2")
	b.AddEdge("app.core/m", "lib.base/s", "m.cpp:1")
	b.AddEdge("app.core/m", "sys.std/*", "m.cpp:2")
	b.AddEdge("lib.base/s", "lib.base/s", "s.cpp:1")
	h, err := b.Build()
	require.NoError(t, err)

	assert.Len(t, h.Component.Edges, 5)
	assert.False(t, h.Component.HasEdge("lib.base/s", "lib.base/s"))

	e, ok := h.Component.Edge("app.ui/v", "app.core/m")
	require.True(t, ok)
	assert.Equal(t, 2, e.Strength)
	assert.Equal(t, []string{"v.cpp:3", "v.h:2"}, e.Witnesses)

	pe, ok := h.Package.Edge("app.ui", "app.core")
	require.True(t, ok)
	assert.Equal(t, 2, pe.Strength)
	assert.Equal(t, []string{"app.ui/v -> app.core/m", "app.ui/w -> app.core/m"}, pe.Witnesses)
	assert.True(t, h.Package.HasEdge("app.core", "sys.std"))
	assert.Len(t, h.Package.Edges, 3)

	assert.Equal(t, []string{"app", "lib", "sys"}, names(h.Group))
	ge, ok := h.Group.Edge("app", "lib")
	require.True(t, ok)
	assert.Equal(t, []string{"app.core -> lib.base"}, ge.Witnesses)
	assert.True(t, h.Group.HasEdge("app", "sys"))
	assert.Len(t, h.Group.Edges, 2)
}

func TestBuild_WitnessCap(t *testing.T) {
	b := NewBuilder()
	b.AddGroup("g", false)
	b.AddPackage("g.a", "g", false)
	b.AddPackage("g.b", "g", false)
	b.AddComponent("g.b/t", "g.b", false)
	for i := 0; i < 8; i++ {
		c := fmt.Sprintf("g.a/c%d", i)
		b.AddComponent(c, "g.a", false)
		b.AddEdge(c, "g.b/t")
	}
	h, err := b.Build()
	require.NoError(t, err)
	e, _ := h.Package.Edge("g.a", "g.b")
	assert.Equal(t, 8, e.Strength)
	assert.Len(t, e.Witnesses, MaxWitnesses)
	assert.Equal(t, "g.a/c0 -> g.b/t", e.Witnesses[0])
}

func TestBuild_ExternalOutgoingDropped(t *testing.T) {
	b := NewBuilder()
	b.AddGroup("g", false)
	b.AddGroup("x", true)
	b.AddPackage("g.p", "g", false)
	b.AddPackage("x.q", "x", true)
	b.AddComponent("g.p/a", "g.p", false)
	b.AddComponent("x.q/*", "x.q", true)
	b.AddEdge("x.q/*", "g.p/a")
	b.AddEdge("g.p/a", "x.q/*")
	h, err := b.Build()
	require.NoError(t, err)
	assert.Len(t, h.Component.Edges, 1)
	assert.False(t, h.Package.HasEdge("x.q", "g.p"))
	assert.False(t, h.Group.HasEdge("x", "g"))
}

func TestBuild_Errors(t *testing.T) {
	b := NewBuilder()
	b.AddGroup("g", false)
	b.AddComponent("g.p/a", "g.p", false)
	_, err := b.Build()
	assert.ErrorIs(t, err, cerrors.Sentinel(cerrors.PackageNotFound))

	b = NewBuilder()
	b.AddPackage("g.p", "g", false)
	_, err = b.Build()
	assert.ErrorIs(t, err, cerrors.Sentinel(cerrors.PackageNotFound))

	b = NewBuilder()
	b.AddGroup("g", false)
	b.AddPackage("g.p", "g", false)
	b.AddComponent("g.p/a", "g.p", false)
	b.AddEdge("g.p/a", "g.p/ghost")
	_, err = b.Build()
	assert.ErrorIs(t, err, cerrors.Sentinel(cerrors.InternalError))
}

func TestAggregationIdempotent(t *testing.T) {
	// one component per package and one package per group: every level
	// sees the same shape
	edges := [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}, {"c", "d"}}
	b := NewBuilder()
	for _, n := range []string{"a", "b", "c", "d"} {
		b.AddGroup(n, false)
		b.AddPackage(n+".p", n, false)
		b.AddComponent(n+".p/x", n+".p", false)
	}
	for _, e := range edges {
		b.AddEdge(e[0]+".p/x", e[1]+".p/x")
		b.AddEdge(e[0]+".p/x", e[1]+".p/x")
	}
	h, err := b.Build()
	require.NoError(t, err)

	all, err := AnalyzeAll(context.Background(), h)
	require.NoError(t, err)
	for _, a := range all {
		assert.Len(t, a.Graph.Edges, len(edges))
		assert.Equal(t, 1, a.Summary.Cycles)
		assert.Equal(t, 2, a.Summary.Levels)
		assert.Equal(t, all[ComponentLevel].Summary.Metrics.CCD, a.Summary.Metrics.CCD)
	}
}

func TestRedundantEdges(t *testing.T) {
	h := onePackage(t, []string{"a", "b", "c", "d"},
		[][2]string{{"a", "b"}, {"b", "c"}, {"a", "c"}, {"c", "d"}, {"a", "d"}})
	a := analyze(t, h.Component)

	var got []string
	for _, e := range a.Redundant {
		got = append(got, e.From+">"+e.To)
	}
	assert.Equal(t, []string{"g.p/a>g.p/c", "g.p/a>g.p/d"}, got)
	assert.Equal(t, 2, a.Summary.Redundant)
}

func TestLayers(t *testing.T) {
	h := onePackage(t, []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})
	a := analyze(t, h.Component)
	assert.Equal(t, [][]string{{"g.p/c"}, {"g.p/b"}, {"g.p/a"}}, a.Layers())
}

func TestAnalyze_Canceled(t *testing.T) {
	h := onePackage(t, []string{"a"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Analyze(ctx, h.Component, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// randomGraph returns n components in one package with edges drawn at
// the given density, plus the edge list.
func randomGraph(t *testing.T, rng *rand.Rand, n int, density float64) (*Hierarchy, [][2]string) {
	var comps []string
	for i := 0; i < n; i++ {
		comps = append(comps, fmt.Sprintf("n%02d", i))
	}
	var edges [][2]string
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j && rng.Float64() < density {
				edges = append(edges, [2]string{comps[i], comps[j]})
			}
		}
	}
	return onePackage(t, comps, edges), edges
}

// pathEndpoints enumerates every simple path from start and collects the
// distinct endpoints.
func pathEndpoints(adj map[string][]string, start string) map[string]bool {
	ends := make(map[string]bool)
	onPath := map[string]bool{start: true}
	var dfs func(string)
	dfs = func(n string) {
		for _, m := range adj[n] {
			if m != start {
				ends[m] = true
			}
			if onPath[m] {
				continue
			}
			onPath[m] = true
			dfs(m)
			onPath[m] = false
		}
	}
	dfs(start)
	return ends
}

func TestProperties_Random(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 40; round++ {
		h, _ := randomGraph(t, rng, 3+rng.Intn(7), 0.05+rng.Float64()*0.3)
		g := h.Component
		a := analyze(t, g)
		c := a.Condensation

		// acyclic condensation: every successor precedes its node in Order
		pos := make(map[int]int)
		for i, k := range c.Order {
			pos[k] = i
		}
		for k, cn := range c.Nodes {
			for _, s := range cn.Succ {
				require.Less(t, pos[s], pos[k])
			}
		}

		// levels: 0 iff no condensed successors, else exactly 1+max
		for _, cn := range c.Nodes {
			if len(cn.Succ) == 0 {
				assert.Equal(t, 0, cn.Level)
				continue
			}
			hi := 0
			for _, s := range cn.Succ {
				if c.Nodes[s].Level > hi {
					hi = c.Nodes[s].Level
				}
			}
			assert.Equal(t, hi+1, cn.Level)
		}

		// cycle members share their group level
		for _, cy := range a.Cycles {
			lvl := stat(t, a, cy.Members[0]).Level
			for _, m := range cy.Members {
				assert.Equal(t, lvl, stat(t, a, m).Level)
			}
		}

		// CCD matches the path-enumeration reference
		adj := make(map[string][]string)
		for _, e := range g.Edges {
			adj[e.From] = append(adj[e.From], e.To)
		}
		ccd := 0
		for _, n := range g.Nodes {
			want := len(pathEndpoints(adj, n.Name))
			assert.Equal(t, want, stat(t, a, n.Name).Reach, n.Name)
			ccd += want + 1
		}
		assert.Equal(t, ccd, a.Summary.Metrics.CCD)
	}
}

func TestDeterministicOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	h, _ := randomGraph(t, rng, 9, 0.3)
	first := analyze(t, h.Component)
	for i := 0; i < 5; i++ {
		again := analyze(t, h.Component)
		assert.Equal(t, first.Cycles, again.Cycles)
		assert.Equal(t, first.Stats, again.Stats)
	}
	assert.True(t, sort.SliceIsSorted(first.Graph.Nodes, func(i, j int) bool {
		return first.Graph.Nodes[i].Name < first.Graph.Nodes[j].Name
	}))
}

func names(g *Graph) []string {
	var out []string
	for _, n := range g.Nodes {
		out = append(out, n.Name)
	}
	return out
}
