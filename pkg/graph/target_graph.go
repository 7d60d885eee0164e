package graph

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/ritzau/depscope/pkg/model"
)

// TargetNode is a target in the dependency graph
type TargetNode struct {
	ID   string // Target id from the codemodel
	Name string
	Kind string
}

// TargetGraph is the target-level dependency graph. Graph node ids follow
// insertion order, which keeps every query deterministic.
type TargetGraph struct {
	graph     *simple.DirectedGraph
	nodes     []*TargetNode    // Indexed by graph ID
	ids       map[string]int64 // Map from target id to graph ID
	selfLoops []string         // Target ids that depend on themselves
}

// NewTargetGraph creates an empty target graph
func NewTargetGraph() *TargetGraph {
	return &TargetGraph{
		graph: simple.NewDirectedGraph(),
		ids:   make(map[string]int64),
	}
}

// BuildTargetGraph builds the graph for every indexed target of g. Edges
// follow the same resolve-or-drop rule as the SBOM: references to unknown
// ids are left out. When ids are duplicated only the indexed target counts.
func BuildTargetGraph(g *model.BuildGraph) *TargetGraph {
	tg := NewTargetGraph()

	var indexed []*model.Target
	for _, target := range g.Targets {
		if winner, ok := g.Lookup(target.ID); ok && winner == target {
			tg.AddTarget(target)
			indexed = append(indexed, target)
		}
	}

	for _, target := range indexed {
		resolved, _ := g.ResolveDependencies(target)
		for _, dep := range resolved {
			// Both ends are known, so this cannot fail
			_ = tg.AddDependency(target.ID, dep.ID)
		}
	}

	return tg
}

// AddTarget adds a target to the graph. Adding an id twice replaces the
// node's details but keeps its edges.
func (tg *TargetGraph) AddTarget(t *model.Target) {
	node := &TargetNode{ID: t.ID, Name: t.Name, Kind: t.Kind}
	if id, exists := tg.ids[t.ID]; exists {
		tg.nodes[id] = node
		return
	}

	id := int64(len(tg.nodes))
	tg.ids[t.ID] = id
	tg.nodes = append(tg.nodes, node)
	tg.graph.AddNode(simple.Node(id))
}

// AddDependency adds a dependency edge from source to target.
// Returns error if either target doesn't exist in the graph
func (tg *TargetGraph) AddDependency(source, target string) error {
	sourceID, ok := tg.ids[source]
	if !ok {
		return fmt.Errorf("source target not found: %s", source)
	}
	targetID, ok := tg.ids[target]
	if !ok {
		return fmt.Errorf("target not found: %s", target)
	}

	// simple.DirectedGraph does not allow self edges
	if sourceID == targetID {
		if !slices.Contains(tg.selfLoops, source) {
			tg.selfLoops = append(tg.selfLoops, source)
		}
		return nil
	}

	if !tg.graph.HasEdgeFromTo(sourceID, targetID) {
		tg.graph.SetEdge(tg.graph.NewEdge(tg.graph.Node(sourceID), tg.graph.Node(targetID)))
	}
	return nil
}

// GetNode returns a target node by target id
func (tg *TargetGraph) GetNode(id string) (*TargetNode, bool) {
	nodeID, exists := tg.ids[id]
	if !exists {
		return nil, false
	}
	return tg.nodes[nodeID], true
}

// GetNodeByID returns a target node by its graph ID
func (tg *TargetGraph) GetNodeByID(id int64) *TargetNode {
	if id < 0 || id >= int64(len(tg.nodes)) {
		return nil
	}
	return tg.nodes[id]
}

// Graph returns the underlying directed graph
func (tg *TargetGraph) Graph() graph.Directed {
	return tg.graph
}

// Nodes returns all target nodes in insertion order
func (tg *TargetGraph) Nodes() []*TargetNode {
	return slices.Clone(tg.nodes)
}

// SelfLoops returns the ids of targets that list themselves as a dependency
func (tg *TargetGraph) SelfLoops() []string {
	return slices.Clone(tg.selfLoops)
}

// Edges returns all dependency edges as [source, target] id pairs, ordered by
// source then target insertion order
func (tg *TargetGraph) Edges() [][2]string {
	var edges [][2]string
	for from := range tg.nodes {
		for _, to := range tg.successors(int64(from)) {
			edges = append(edges, [2]string{tg.nodes[from].ID, tg.nodes[to].ID})
		}
	}
	return edges
}

// Dependencies returns the ids of the targets id depends on directly
func (tg *TargetGraph) Dependencies(id string) []string {
	nodeID, exists := tg.ids[id]
	if !exists {
		return nil
	}
	return tg.toIDs(tg.successors(nodeID))
}

// Dependents returns the ids of the targets that depend directly on id
func (tg *TargetGraph) Dependents(id string) []string {
	nodeID, exists := tg.ids[id]
	if !exists {
		return nil
	}
	preds := graph.NodesOf(tg.graph.To(nodeID))
	ids := make([]int64, len(preds))
	for i, n := range preds {
		ids[i] = n.ID()
	}
	slices.Sort(ids)
	return tg.toIDs(ids)
}

// TransitiveDependencies returns every target reachable from id, excluding
// id itself, in breadth-first order
func (tg *TargetGraph) TransitiveDependencies(id string) []string {
	start, exists := tg.ids[id]
	if !exists {
		return nil
	}

	visited := map[int64]bool{start: true}
	queue := []int64{start}
	var reached []int64
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range tg.successors(current) {
			if visited[next] {
				continue
			}
			visited[next] = true
			reached = append(reached, next)
			queue = append(queue, next)
		}
	}
	return tg.toIDs(reached)
}

// ErrCyclic is returned by BuildOrder when the graph has a dependency cycle
var ErrCyclic = errors.New("dependency graph has cycles")

// BuildOrder returns target ids ordered so that every target comes after the
// targets it depends on. Ties are broken by insertion order.
func (tg *TargetGraph) BuildOrder() ([]string, error) {
	sorted, err := topo.SortStabilized(tg.graph, func(nodes []graph.Node) {
		slices.SortFunc(nodes, func(a, b graph.Node) int {
			return int(b.ID() - a.ID())
		})
	})
	if err != nil {
		var unorderable topo.Unorderable
		if errors.As(err, &unorderable) {
			return nil, fmt.Errorf("%w: %d strongly connected components", ErrCyclic, len(unorderable))
		}
		return nil, fmt.Errorf("failed to sort targets: %w", err)
	}

	order := make([]string, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		order = append(order, tg.nodes[sorted[i].ID()].ID)
	}
	return order, nil
}

func (tg *TargetGraph) successors(id int64) []int64 {
	succ := graph.NodesOf(tg.graph.From(id))
	ids := make([]int64, len(succ))
	for i, n := range succ {
		ids[i] = n.ID()
	}
	slices.Sort(ids)
	return ids
}

func (tg *TargetGraph) toIDs(nodeIDs []int64) []string {
	ids := make([]string, len(nodeIDs))
	for i, id := range nodeIDs {
		ids[i] = tg.nodes[id].ID
	}
	return ids
}
