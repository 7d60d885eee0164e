package model

import "time"

// Target represents one CMake build target as described by its File API
// target document.
type Target struct {
	ID            string   `json:"id"`            // Target id from the codemodel (may be empty)
	Name          string   `json:"name"`          // Target name (falls back to the document's file stem)
	Kind          string   `json:"kind"`          // Raw target type, e.g. "EXECUTABLE", "STATIC_LIBRARY"
	Artifacts     []string `json:"artifacts"`     // Produced files, in document order
	DependencyIDs []string `json:"dependencyIds"` // Ids of targets this target depends on
}

// BuildGraph is the normalized result of parsing a File API reply set.
// It is built once per scan and treated as read-only afterwards.
type BuildGraph struct {
	Generator      string    `json:"generator,omitempty"` // Build-system backend, empty when unknown
	BuildDirectory string    `json:"buildDirectory"`      // Absolute path of the scanned build tree
	Configuration  string    `json:"configuration,omitempty"`
	CMakeVersion   string    `json:"cmakeVersion,omitempty"`
	IndexFile      string    `json:"indexFile,omitempty"` // Reply-dir relative name of the selected index
	IndexModTime   time.Time `json:"indexModTime,omitzero"`
	Targets        []*Target `json:"targets"` // Discovery order

	targetsByID map[string]*Target
}

// NewBuildGraph creates a graph over targets and indexes every target with a
// non-empty id. When two targets share an id the later one wins.
func NewBuildGraph(buildDir string, targets []*Target) *BuildGraph {
	if targets == nil {
		targets = []*Target{}
	}

	index := make(map[string]*Target, len(targets))
	for _, target := range targets {
		if target.ID == "" {
			continue
		}
		index[target.ID] = target
	}

	return &BuildGraph{
		BuildDirectory: buildDir,
		Targets:        targets,
		targetsByID:    index,
	}
}

// Lookup returns the target indexed under id.
func (g *BuildGraph) Lookup(id string) (*Target, bool) {
	if g == nil || id == "" {
		return nil, false
	}
	target, ok := g.targetsByID[id]
	return target, ok
}

// TargetsByID returns a copy of the identifier index
func (g *BuildGraph) TargetsByID() map[string]*Target {
	out := make(map[string]*Target, len(g.targetsByID))
	for id, target := range g.targetsByID {
		out[id] = target
	}
	return out
}

// ResolveDependencies splits a target's dependency ids into the targets they
// resolve to and the ids that are not present in the graph. Both results keep
// the order of t.DependencyIDs.
func (g *BuildGraph) ResolveDependencies(t *Target) (resolved []*Target, dangling []string) {
	for _, id := range t.DependencyIDs {
		if dep, ok := g.Lookup(id); ok {
			resolved = append(resolved, dep)
		} else {
			dangling = append(dangling, id)
		}
	}
	return resolved, dangling
}

// DanglingCount returns the number of dependency references in the graph that
// do not resolve to a known target.
func (g *BuildGraph) DanglingCount() int {
	count := 0
	for _, target := range g.Targets {
		_, dangling := g.ResolveDependencies(target)
		count += len(dangling)
	}
	return count
}
