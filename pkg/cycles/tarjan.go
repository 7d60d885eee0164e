package cycles

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"
)

// TarjanSCC finds the strongly connected components of a directed graph.
// gonum's traversal order follows map iteration, so the components are
// normalized before they are handed out.
type TarjanSCC struct {
	graph graph.Directed
}

// NewTarjanSCC creates a new Tarjan SCC finder
func NewTarjanSCC(g graph.Directed) *TarjanSCC {
	return &TarjanSCC{graph: g}
}

// FindSCCs returns every strongly connected component with more than one
// node. Each component is sorted by node ID and the components are ordered
// by their smallest ID.
func (t *TarjanSCC) FindSCCs() [][]int64 {
	var results [][]int64
	for _, nodes := range topo.TarjanSCC(t.graph) {
		if len(nodes) < 2 {
			continue
		}
		component := make([]int64, len(nodes))
		for i, n := range nodes {
			component[i] = n.ID()
		}
		slices.Sort(component)
		results = append(results, component)
	}
	slices.SortFunc(results, func(a, b []int64) int {
		return cmp.Compare(a[0], b[0])
	})
	return results
}
