package sbom

import (
	"crypto/sha256"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ritzau/depscope/pkg/model"
)

// Options controls the document envelope. The zero value is usable.
type Options struct {
	ProjectName string    // Name of the root component, "unknown" if empty
	ToolVersion string    // Version reported in metadata.tools
	Timestamp   time.Time // metadata.timestamp, omitted when zero
}

// ClassifyKind maps a free-text target kind to a component type. Only
// executables are applications, everything else is reported as a library.
func ClassifyKind(kind string) ComponentType {
	if strings.Contains(strings.ToUpper(kind), "EXECUTABLE") {
		return ComponentApplication
	}
	return ComponentLibrary
}

// TargetRef returns the bom-ref for a target: derived from its id when it
// has one, otherwise from its name.
func TargetRef(t *model.Target) string {
	if t.ID != "" {
		return "target:" + t.ID
	}
	return "targetname:" + t.Name
}

// Project builds a CycloneDX document from a build graph. It performs no I/O
// and never fails; the output depends only on g and opts.
func Project(g *model.BuildGraph, opts Options) *Document {
	if g == nil {
		g = model.NewBuildGraph("", nil)
	}

	project := opts.ProjectName
	if project == "" {
		project = "unknown"
	}
	toolVersion := opts.ToolVersion
	if toolVersion == "" {
		toolVersion = "dev"
	}

	refs := make([]string, len(g.Targets))
	components := make([]Component, 0, len(g.Targets))
	for i, target := range g.Targets {
		refs[i] = TargetRef(target)
		components = append(components, targetComponent(target, refs[i]))
	}

	// Root edge first, then targets in discovery order
	dependencies := make([]Dependency, 0, len(g.Targets)+1)
	dependencies = append(dependencies, Dependency{Ref: RootRef, DependsOn: refs})
	for i, target := range g.Targets {
		if len(target.DependencyIDs) == 0 {
			continue
		}
		resolved, _ := g.ResolveDependencies(target)
		dependsOn := make([]string, 0, len(resolved))
		seen := make(map[string]bool, len(resolved))
		for _, dep := range resolved {
			ref := TargetRef(dep)
			if seen[ref] {
				continue
			}
			seen[ref] = true
			dependsOn = append(dependsOn, ref)
		}
		if len(dependsOn) == 0 {
			continue
		}
		dependencies = append(dependencies, Dependency{Ref: refs[i], DependsOn: dependsOn})
	}

	metadata := Metadata{
		Tools: []Tool{{Vendor: ToolVendor, Name: ToolName, Version: toolVersion}},
		Component: &Component{
			Type:    ComponentApplication,
			BOMRef:  RootRef,
			Name:    project,
			Version: RootVersion,
		},
	}
	if !opts.Timestamp.IsZero() {
		metadata.Timestamp = opts.Timestamp.UTC().Format(time.RFC3339)
	}
	if g.Generator != "" {
		metadata.Properties = append(metadata.Properties, Property{Name: PropGenerator, Value: g.Generator})
	}
	if g.BuildDirectory != "" {
		metadata.Properties = append(metadata.Properties, Property{Name: PropBuildDirectory, Value: g.BuildDirectory})
	}

	doc := &Document{
		BOMFormat:    BOMFormat,
		SpecVersion:  SpecVersion,
		Version:      1,
		Metadata:     metadata,
		Components:   components,
		Dependencies: dependencies,
	}
	doc.SerialNumber = SerialNumber(doc)
	return doc
}

func targetComponent(t *model.Target, ref string) Component {
	props := make([]Property, 0, 2+3*len(t.Artifacts))
	props = append(props, Property{Name: PropTargetKind, Value: t.Kind})
	if t.ID != "" {
		props = append(props, Property{Name: PropTargetID, Value: t.ID})
	}
	for i, artifact := range t.Artifacts {
		prefix := propArtifactPrefix + strconv.Itoa(i) + ":"
		props = append(props,
			Property{Name: prefix + "path", Value: artifact},
			Property{Name: prefix + "target", Value: t.Name},
			Property{Name: prefix + "type", Value: t.Kind},
		)
	}

	return Component{
		Type:       ClassifyKind(t.Kind),
		BOMRef:     ref,
		Name:       t.Name,
		Properties: props,
	}
}

// SerialNumber derives a urn:uuid from a hash of the document content:
// the root component, the components and the dependency edges. Unchanged
// input yields an unchanged serial number, any content change a new one.
// The timestamp and tool version are left out.
func SerialNumber(doc *Document) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	// Encoding plain structs of strings cannot fail
	_ = enc.Encode(doc.Metadata.Component)
	_ = enc.Encode(doc.Metadata.Properties)
	_ = enc.Encode(doc.Components)
	_ = enc.Encode(doc.Dependencies)
	return uuid.NewSHA1(uuid.NameSpaceURL, h.Sum(nil)).URN()
}
