package depgraph

// levelize assigns levels bottom-up: a condensed node without dependencies
// is level 0, any other is one above its highest dependency. External
// nodes carry no dependencies and stay at 0.
func levelize(c *Condensation) {
	for _, k := range c.Order {
		cn := &c.Nodes[k]
		cn.Level = 0
		for _, s := range cn.Succ {
			if l := c.Nodes[s].Level + 1; l > cn.Level {
				cn.Level = l
			}
		}
	}
}

// Layers groups node names by level, lowest level first.
func (a *Analyzed) Layers() [][]string {
	if len(a.Stats) == 0 {
		return nil
	}
	layers := make([][]string, a.Summary.Levels)
	for i, st := range a.Stats {
		layers[st.Level] = append(layers[st.Level], a.Graph.Nodes[i].Name)
	}
	return layers
}
