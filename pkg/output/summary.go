package output

import (
	"time"

	"github.com/ritzau/depscope/pkg/cycles"
	"github.com/ritzau/depscope/pkg/graph"
	"github.com/ritzau/depscope/pkg/model"
	"github.com/ritzau/depscope/pkg/sbom"
)

// TargetRow is one target as shown in the reports
type TargetRow struct {
	Name           string   `json:"name"`
	ID             string   `json:"id,omitempty"`
	Kind           string   `json:"kind"`
	Classification string   `json:"classification"`
	Dependencies   int      `json:"dependencies"` // Resolved direct dependencies
	Transitive     int      `json:"transitive"`   // Resolved transitive dependencies
	Artifacts      []string `json:"artifacts"`
}

// Summary is the report model shared by the console, HTML and web views
type Summary struct {
	Project        string               `json:"project"`
	BuildDirectory string               `json:"buildDirectory"`
	Generator      string               `json:"generator,omitempty"`
	Configuration  string               `json:"configuration,omitempty"`
	CMakeVersion   string               `json:"cmakeVersion,omitempty"`
	FileAPIPresent bool                 `json:"fileApiPresent"`
	GeneratedAt    time.Time            `json:"generatedAt,omitzero"`
	Targets        []TargetRow          `json:"targets"`
	Cycles         []cycles.TargetCycle `json:"cycles"`
	Dangling       int                  `json:"dangling"`
	Notes          []string             `json:"notes,omitempty"`
}

// NewSummary collects the report model for a parsed build graph
func NewSummary(project string, g *model.BuildGraph, tg *graph.TargetGraph, found []cycles.TargetCycle) *Summary {
	s := &Summary{
		Project:        project,
		BuildDirectory: g.BuildDirectory,
		Generator:      g.Generator,
		Configuration:  g.Configuration,
		CMakeVersion:   g.CMakeVersion,
		FileAPIPresent: true,
		GeneratedAt:    g.IndexModTime,
		Targets:        make([]TargetRow, 0, len(g.Targets)),
		Cycles:         found,
		Dangling:       g.DanglingCount(),
	}
	if s.Cycles == nil {
		s.Cycles = []cycles.TargetCycle{}
	}

	for _, target := range g.Targets {
		resolved, _ := g.ResolveDependencies(target)
		row := TargetRow{
			Name:           target.Name,
			ID:             target.ID,
			Kind:           target.Kind,
			Classification: string(sbom.ClassifyKind(target.Kind)),
			Dependencies:   len(resolved),
			Artifacts:      target.Artifacts,
		}
		if tg != nil && target.ID != "" {
			row.Transitive = len(tg.TransitiveDependencies(target.ID))
		}
		s.Targets = append(s.Targets, row)
	}

	if g.Generator == "" {
		s.Notes = append(s.Notes, "Generator could not be determined from the File API index.")
	}
	if s.Dangling > 0 {
		s.Notes = append(s.Notes, "Some dependency references point at targets outside the selected configuration and were dropped.")
	}

	return s
}

// Counts returns the number of application and library targets
func (s *Summary) Counts() (applications, libraries int) {
	for _, row := range s.Targets {
		if row.Classification == string(sbom.ComponentApplication) {
			applications++
		} else {
			libraries++
		}
	}
	return applications, libraries
}
