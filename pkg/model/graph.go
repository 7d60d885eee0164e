package model

// Graph is a flattened, JSON-friendly view of a BuildGraph used by the web
// view. Nodes keep target discovery order.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`

	index map[string]int
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes: make([]*Node, 0),
		Edges: make([]*Edge, 0),
		index: make(map[string]int),
	}
}

// Node represents a target in the view.
type Node struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Kind      string   `json:"kind"`
	Artifacts []string `json:"artifacts,omitempty"`
}

// Edge represents a resolved dependency from Source onto Target.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// AddNode adds a node to the graph. If a node with the same ID exists, it is
// replaced in place.
func (g *Graph) AddNode(node *Node) {
	if i, exists := g.index[node.ID]; exists {
		g.Nodes[i] = node
		return
	}
	g.index[node.ID] = len(g.Nodes)
	g.Nodes = append(g.Nodes, node)
}

// AddEdge adds an edge to the graph.
func (g *Graph) AddEdge(edge *Edge) {
	g.Edges = append(g.Edges, edge)
}

// Node returns the node with the given ID
func (g *Graph) Node(id string) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.Nodes[i], true
}

// NodeID returns the view identifier of a target. Ids and names live in
// separate namespaces, so an id can never equal another target's name key.
func NodeID(t *Target) string {
	if t.ID != "" {
		return "target:" + t.ID
	}
	return "targetname:" + t.Name
}

// View flattens the build graph into nodes and resolved edges. Dangling
// dependency ids are dropped.
func (g *BuildGraph) View() *Graph {
	view := NewGraph()

	for _, target := range g.Targets {
		view.AddNode(&Node{
			ID:        NodeID(target),
			Label:     target.Name,
			Kind:      target.Kind,
			Artifacts: target.Artifacts,
		})
	}

	for _, target := range g.Targets {
		resolved, _ := g.ResolveDependencies(target)
		for _, dep := range resolved {
			view.AddEdge(&Edge{
				Source: NodeID(target),
				Target: NodeID(dep),
			})
		}
	}

	return view
}
