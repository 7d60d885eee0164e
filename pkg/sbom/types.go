package sbom

// ComponentType is the CycloneDX component classification
type ComponentType string

const (
	ComponentApplication ComponentType = "application"
	ComponentLibrary     ComponentType = "library"
)

const (
	// BOMFormat and SpecVersion identify the emitted document format
	BOMFormat   = "CycloneDX"
	SpecVersion = "1.5"

	// MediaType is the content type of a serialized Document
	MediaType = "application/vnd.cyclonedx+json; version=1.5"

	// RootRef is the bom-ref of the synthetic project component. Target
	// references always start with "target:" or "targetname:", so it cannot
	// collide with one.
	RootRef = "depscope:root"

	// RootVersion is reported for the project component, which has no version of its own
	RootVersion = "0.0.0"

	ToolVendor = "depscope"
	ToolName   = "depscope"
)

// Property names attached to components and metadata
const (
	PropGenerator      = "depscope:generator"
	PropBuildDirectory = "depscope:buildDirectory"
	PropTargetKind     = "depscope:target:kind"
	PropTargetID       = "depscope:target:id"
	propArtifactPrefix = "depscope:artifact:"
)

// Document is a CycloneDX BOM
type Document struct {
	BOMFormat    string       `json:"bomFormat"`
	SpecVersion  string       `json:"specVersion"`
	SerialNumber string       `json:"serialNumber"`
	Version      int          `json:"version"`
	Metadata     Metadata     `json:"metadata"`
	Components   []Component  `json:"components"`
	Dependencies []Dependency `json:"dependencies"`
}

// Metadata describes the BOM itself
type Metadata struct {
	Timestamp  string     `json:"timestamp,omitempty"`
	Tools      []Tool     `json:"tools"`
	Component  *Component `json:"component,omitempty"`
	Properties []Property `json:"properties,omitempty"`
}

// Tool identifies the program that produced the BOM
type Tool struct {
	Vendor  string `json:"vendor"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Component is one entry of the BOM's component list
type Component struct {
	Type       ComponentType `json:"type"`
	BOMRef     string        `json:"bom-ref"`
	Name       string        `json:"name"`
	Version    string        `json:"version,omitempty"`
	Properties []Property    `json:"properties,omitempty"`
}

// Property is a free-form name/value pair
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Dependency lists the components a component depends on, by bom-ref
type Dependency struct {
	Ref       string   `json:"ref"`
	DependsOn []string `json:"dependsOn"`
}

// Component returns the component with the given bom-ref
func (d *Document) Component(ref string) (*Component, bool) {
	for i := range d.Components {
		if d.Components[i].BOMRef == ref {
			return &d.Components[i], true
		}
	}
	return nil, false
}

// Dependency returns the dependency entry for ref
func (d *Document) Dependency(ref string) (*Dependency, bool) {
	for i := range d.Dependencies {
		if d.Dependencies[i].Ref == ref {
			return &d.Dependencies[i], true
		}
	}
	return nil, false
}
