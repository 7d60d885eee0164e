package cycles

import (
	"slices"
	"testing"

	"github.com/ritzau/depscope/pkg/graph"
	"github.com/ritzau/depscope/pkg/model"
)

func buildGraph(targets ...*model.Target) *graph.TargetGraph {
	return graph.BuildTargetGraph(model.NewBuildGraph("/build", targets))
}

func target(id string, deps ...string) *model.Target {
	return &model.Target{ID: id, Name: "n-" + id, DependencyIDs: deps}
}

func TestFindTargetCycles_NoCycles(t *testing.T) {
	tg := buildGraph(target("a", "b"), target("b", "c"), target("c"))

	if cycles := FindTargetCycles(tg); len(cycles) != 0 {
		t.Errorf("Expected no cycles, but found %d", len(cycles))
	}
}

func TestFindTargetCycles_SimpleCycle(t *testing.T) {
	tg := buildGraph(target("a", "b"), target("b", "a"))

	cycles := FindTargetCycles(tg)
	if len(cycles) != 1 {
		t.Fatalf("Expected 1 cycle, but found %d", len(cycles))
	}
	if !slices.Equal(cycles[0].IDs, []string{"a", "b"}) {
		t.Errorf("Expected cycle [a b], got %v", cycles[0].IDs)
	}
	if !slices.Equal(cycles[0].Names, []string{"n-a", "n-b"}) {
		t.Errorf("Expected names [n-a n-b], got %v", cycles[0].Names)
	}
}

func TestFindTargetCycles_Multiple(t *testing.T) {
	tg := buildGraph(
		target("x", "y"),
		target("a", "b"),
		target("b", "c"),
		target("c", "a"),
		target("y", "x"),
		target("self", "self"),
		target("free", "a"),
	)

	cycles := FindTargetCycles(tg)
	if len(cycles) != 3 {
		t.Fatalf("Expected 3 cycles, got %d: %v", len(cycles), cycles)
	}

	want := [][]string{{"x", "y"}, {"a", "b", "c"}, {"self"}}
	for i, cycle := range cycles {
		if !slices.Equal(cycle.IDs, want[i]) {
			t.Errorf("cycle %d: expected %v, got %v", i, want[i], cycle.IDs)
		}
	}
}

func TestFindTargetCycles_Stable(t *testing.T) {
	targets := []*model.Target{target("a", "b", "c"), target("b", "a"), target("c", "a")}

	first := FindTargetCycles(buildGraph(targets...))
	for i := 0; i < 20; i++ {
		again := FindTargetCycles(buildGraph(targets...))
		if len(again) != len(first) || !slices.Equal(again[0].IDs, first[0].IDs) {
			t.Fatalf("Expected stable result %v, got %v", first, again)
		}
	}
}
