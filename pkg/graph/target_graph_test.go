package graph

import (
	"errors"
	"slices"
	"testing"

	"github.com/ritzau/depscope/pkg/model"
)

func target(id, name string, deps ...string) *model.Target {
	return &model.Target{ID: id, Name: name, Kind: "STATIC_LIBRARY", DependencyIDs: deps}
}

func TestNewTargetGraph(t *testing.T) {
	tg := NewTargetGraph()
	if tg == nil {
		t.Fatal("NewTargetGraph() returned nil")
	}

	if len(tg.Nodes()) != 0 {
		t.Errorf("New graph should have 0 nodes, got %d", len(tg.Nodes()))
	}
}

func TestAddTarget(t *testing.T) {
	tg := NewTargetGraph()
	tg.AddTarget(target("util-id", "util"))

	if len(tg.Nodes()) != 1 {
		t.Errorf("Expected 1 node, got %d", len(tg.Nodes()))
	}

	node, exists := tg.GetNode("util-id")
	if !exists {
		t.Fatal("Target not found in graph")
	}
	if node.Name != "util" {
		t.Errorf("Expected name util, got %s", node.Name)
	}

	// Re-adding replaces details without duplicating the node
	tg.AddTarget(target("util-id", "util2"))
	node, _ = tg.GetNode("util-id")
	if len(tg.Nodes()) != 1 || node.Name != "util2" {
		t.Errorf("Expected a single replaced node, got %d nodes named %s", len(tg.Nodes()), node.Name)
	}
}

func TestAddDependency(t *testing.T) {
	tg := NewTargetGraph()
	tg.AddTarget(target("util", "util"))
	tg.AddTarget(target("core", "core"))

	if err := tg.AddDependency("core", "util"); err != nil {
		t.Fatalf("Failed to add dependency: %v", err)
	}
	// Adding it twice is a no-op
	if err := tg.AddDependency("core", "util"); err != nil {
		t.Fatalf("Failed to add dependency: %v", err)
	}

	edges := tg.Edges()
	if len(edges) != 1 {
		t.Fatalf("Expected 1 edge, got %d", len(edges))
	}
	if edges[0][0] != "core" || edges[0][1] != "util" {
		t.Errorf("Expected edge core->util, got %v", edges[0])
	}

	if err := tg.AddDependency("core", "missing"); err == nil {
		t.Error("Expected error for unknown target")
	}
	if err := tg.AddDependency("missing", "core"); err == nil {
		t.Error("Expected error for unknown source")
	}
}

func TestBuildTargetGraph(t *testing.T) {
	g := model.NewBuildGraph("/build", []*model.Target{
		target("app", "app", "core", "dangling"),
		target("core", "core", "util"),
		target("util", "util"),
		{Name: "anonymous", DependencyIDs: []string{"util"}},
	})

	tg := BuildTargetGraph(g)

	if len(tg.Nodes()) != 3 {
		t.Fatalf("Expected 3 nodes (id-less targets are excluded), got %d", len(tg.Nodes()))
	}
	if got := tg.Dependencies("app"); !slices.Equal(got, []string{"core"}) {
		t.Errorf("Expected app -> [core], got %v", got)
	}
	if got := tg.TransitiveDependencies("app"); !slices.Equal(got, []string{"core", "util"}) {
		t.Errorf("Expected transitive [core util], got %v", got)
	}
	if got := tg.Dependents("util"); !slices.Equal(got, []string{"core"}) {
		t.Errorf("Expected util dependents [core], got %v", got)
	}
	if got := tg.Dependencies("nope"); got != nil {
		t.Errorf("Expected nil for unknown target, got %v", got)
	}
}

func TestBuildTargetGraph_DuplicateIDs(t *testing.T) {
	first := target("dup", "first", "other")
	second := target("dup", "second")
	g := model.NewBuildGraph("/build", []*model.Target{first, target("other", "other"), second})

	tg := BuildTargetGraph(g)

	node, _ := tg.GetNode("dup")
	if node.Name != "second" {
		t.Errorf("Expected the indexed target to win, got %s", node.Name)
	}
	if len(tg.Edges()) != 0 {
		t.Errorf("Expected no edges from the overwritten target, got %v", tg.Edges())
	}
}

func TestBuildOrder(t *testing.T) {
	g := model.NewBuildGraph("/build", []*model.Target{
		target("app", "app", "core", "log"),
		target("core", "core", "util"),
		target("log", "log"),
		target("util", "util"),
	})

	order, err := BuildTargetGraph(g).BuildOrder()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	if len(pos) != 4 {
		t.Fatalf("Expected 4 targets in order, got %v", order)
	}
	for _, edge := range [][2]string{{"app", "core"}, {"app", "log"}, {"core", "util"}} {
		if pos[edge[1]] > pos[edge[0]] {
			t.Errorf("Expected %s before %s in %v", edge[1], edge[0], order)
		}
	}
}

func TestBuildOrder_Cycle(t *testing.T) {
	g := model.NewBuildGraph("/build", []*model.Target{
		target("a", "a", "b"),
		target("b", "b", "a"),
	})

	_, err := BuildTargetGraph(g).BuildOrder()
	if !errors.Is(err, ErrCyclic) {
		t.Errorf("Expected ErrCyclic, got %v", err)
	}
}

func TestSelfLoop(t *testing.T) {
	g := model.NewBuildGraph("/build", []*model.Target{target("a", "a", "a")})

	tg := BuildTargetGraph(g)

	if got := tg.SelfLoops(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Expected self loop on a, got %v", got)
	}
	if len(tg.Edges()) != 0 {
		t.Errorf("Self loops are not stored as edges, got %v", tg.Edges())
	}
}
