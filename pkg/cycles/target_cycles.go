package cycles

import (
	"slices"

	"github.com/ritzau/depscope/pkg/graph"
)

// TargetCycle represents a circular dependency between targets
type TargetCycle struct {
	IDs   []string `json:"ids"`   // Target ids in the cycle, in discovery order
	Names []string `json:"names"` // Matching target names
}

// FindTargetCycles finds all circular dependencies in the target graph.
// A target that depends on itself is reported as a cycle of one.
func FindTargetCycles(tg *graph.TargetGraph) []TargetCycle {
	sccs := NewTarjanSCC(tg.Graph()).FindSCCs()

	cycles := make([]TargetCycle, 0, len(sccs))
	for _, scc := range sccs {
		cycle := TargetCycle{}
		for _, nodeID := range scc {
			if node := tg.GetNodeByID(nodeID); node != nil {
				cycle.IDs = append(cycle.IDs, node.ID)
				cycle.Names = append(cycle.Names, node.Name)
			}
		}
		if len(cycle.IDs) > 1 {
			cycles = append(cycles, cycle)
		}
	}

	for _, id := range tg.SelfLoops() {
		if node, ok := tg.GetNode(id); ok {
			cycles = append(cycles, TargetCycle{IDs: []string{node.ID}, Names: []string{node.Name}})
		}
	}

	// Report cycles in target insertion order of their first member
	order := make(map[string]int)
	for i, node := range tg.Nodes() {
		order[node.ID] = i
	}
	slices.SortStableFunc(cycles, func(a, b TargetCycle) int {
		return order[a.IDs[0]] - order[b.IDs[0]]
	})

	return cycles
}
