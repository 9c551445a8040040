package depgraph

import "math"

// Metrics are the cumulative component dependency figures of a node set.
// ACD and NCCD are nil when the set is empty.
type Metrics struct {
	N    int      `json:"n"`
	CCD  int      `json:"ccd"`
	ACD  *float64 `json:"acd"`
	NCCD *float64 `json:"nccd"`
}

// newMetrics derives ACD and NCCD from CCD over n nodes. NCCD compares
// CCD with that of a balanced binary tree of n nodes.
func newMetrics(n, ccd int) Metrics {
	m := Metrics{N: n, CCD: ccd}
	if n == 0 {
		return m
	}
	acd := float64(ccd) / float64(n)
	m.ACD = &acd
	if tree := float64(n+1)*math.Log2(float64(n+1)) - float64(n); tree > 0 {
		nccd := float64(ccd) / tree
		m.NCCD = &nccd
	}
	return m
}

// reachCounts returns |R(n)| for every node: the distinct nodes reachable
// through one or more edges, excluding n itself and external nodes.
func reachCounts(c *Condensation, external []bool, desc []bitset) []int {
	weight := make([]int, len(c.Nodes))
	for k, cn := range c.Nodes {
		for _, i := range cn.Members {
			if !external[i] {
				weight[k]++
			}
		}
	}
	out := make([]int, len(c.Of))
	for i, k := range c.Of {
		if external[i] {
			continue
		}
		r := len(c.Nodes[k].Members) - 1
		desc[k].each(func(d int) { r += weight[d] })
		out[i] = r
	}
	return out
}

// scopedMetrics computes CCD over the internal nodes whose Parent is scope,
// counting reachability inside that induced subgraph only.
func scopedMetrics(g *Graph, scope string) (Metrics, error) {
	var local []int
	pos := make(map[int]int)
	for i, n := range g.Nodes {
		if !n.External && n.Parent == scope {
			pos[i] = len(local)
			local = append(local, i)
		}
	}
	if len(local) == 0 {
		return newMetrics(0, 0), nil
	}
	c, err := condense(len(local), func(li int) []int {
		var out []int
		for _, j := range g.succ[local[li]] {
			if lj, ok := pos[j]; ok {
				out = append(out, lj)
			}
		}
		return out
	})
	if err != nil {
		return Metrics{}, err
	}
	reach := reachCounts(c, make([]bool, len(local)), c.descendants())
	ccd := 0
	for _, r := range reach {
		ccd += r + 1
	}
	return newMetrics(len(local), ccd), nil
}
