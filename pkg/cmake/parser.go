package cmake

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ritzau/depscope/pkg/logging"
	"github.com/ritzau/depscope/pkg/model"
)

// UnknownKind is assigned to targets whose document carries no type
const UnknownKind = "UNKNOWN"

// targetRef is one entry of a configuration's target list
type targetRef struct {
	ID       string
	Name     string
	JSONFile string
}

// stringField returns the string at key, or "" when it is absent or of
// another type
func stringField(doc gjson.Result, key string) string {
	if v := doc.Get(key); v.Type == gjson.String {
		return v.Str
	}
	return ""
}

// arrayField returns the elements of the array at key, or nil when it is
// absent or not an array
func arrayField(doc gjson.Result, key string) []gjson.Result {
	if v := doc.Get(key); v.IsArray() {
		return v.Array()
	}
	return nil
}

// Parser turns a File API reply set into a model.BuildGraph
type Parser struct {
	logger *logging.Logger
}

// NewParser creates a new File API parser
func NewParser() *Parser {
	return &Parser{logger: logging.New("cmake.parser")}
}

// ParseBuildGraph parses the reply set under buildDir from disk
func ParseBuildGraph(buildDir string) (*model.BuildGraph, error) {
	abs, err := filepath.Abs(buildDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve build directory: %w", err)
	}
	return NewParser().Parse(os.DirFS(abs), abs)
}

// Parse reads the reply set from fsys, whose root is the build tree, and
// returns the normalized graph. buildDir is recorded on the result as is.
//
// A missing reply directory or index yields a *NotFoundError. A reply set
// that is present but unusable yields a *SchemaError. Everything else
// degrades: optional fields fall back to defaults and target references
// without a document are skipped.
func (p *Parser) Parse(fsys fs.FS, buildDir string) (*model.BuildGraph, error) {
	set, found, err := Locate(fsys)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &NotFoundError{Path: path.Join(buildDir, ReplyDir), Reason: "reply directory does not exist"}
	}
	p.logger.Debug("Selected index", "file", set.IndexFile, "modTime", set.IndexModTime)

	indexPath := set.Path(set.IndexFile)
	indexData, err := fs.ReadFile(fsys, indexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", set.IndexFile, err)
	}

	if !gjson.ValidBytes(indexData) {
		return nil, &SchemaError{Document: set.IndexFile, Reason: "malformed index"}
	}

	// Objects of other kinds are not inspected, whatever their shape
	codemodelFile := ""
	for _, obj := range arrayField(gjson.ParseBytes(indexData), "objects") {
		if stringField(obj, "kind") == "codemodel" {
			codemodelFile = stringField(obj, "jsonFile")
			break
		}
	}
	if codemodelFile == "" {
		return nil, &SchemaError{Document: set.IndexFile, Reason: "no codemodel object with a jsonFile"}
	}

	codemodelData, err := p.readDocument(fsys, set, codemodelFile)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(codemodelData) {
		return nil, &SchemaError{Document: codemodelFile, Reason: "malformed codemodel"}
	}
	configurations := arrayField(gjson.ParseBytes(codemodelData), "configurations")
	if len(configurations) == 0 {
		return nil, &SchemaError{Document: codemodelFile, Reason: "codemodel has no configurations"}
	}

	// Multi-config generators list one configuration per build type; the
	// first listed is used until callers can pick one.
	config := configurations[0]
	configName := stringField(config, "name")
	if len(configurations) > 1 {
		p.logger.Info("Multiple configurations found, using the first",
			"configuration", configName, "count", len(configurations))
	}

	refs := arrayField(config, "targets")
	targets := make([]*model.Target, 0, len(refs))
	seen := make(map[string]string, len(refs))
	for _, entry := range refs {
		ref := targetRef{
			ID:       stringField(entry, "id"),
			Name:     stringField(entry, "name"),
			JSONFile: stringField(entry, "jsonFile"),
		}
		if ref.JSONFile == "" {
			p.logger.Debug("Skipping target reference without jsonFile", "id", ref.ID, "name", ref.Name)
			continue
		}

		target, err := p.parseTarget(fsys, set, ref.ID, ref.JSONFile)
		if err != nil {
			return nil, err
		}

		if target.ID != "" {
			if prev, dup := seen[target.ID]; dup {
				p.logger.Debug("Duplicate target id, later target wins",
					"id", target.ID, "previous", prev, "current", target.Name)
			}
			seen[target.ID] = target.Name
		}

		targets = append(targets, target)
		p.logger.Trace("Parsed target", "name", target.Name, "kind", target.Kind,
			"artifacts", len(target.Artifacts), "dependencies", len(target.DependencyIDs))
	}

	graph := model.NewBuildGraph(buildDir, targets)
	graph.Generator = ExtractGenerator(indexData)
	graph.CMakeVersion = ExtractCMakeVersion(indexData)
	graph.Configuration = configName
	graph.IndexFile = set.IndexFile
	graph.IndexModTime = set.IndexModTime

	if graph.Generator == "" {
		p.logger.Debug("Generator not found in index", "file", set.IndexFile)
	}
	if dangling := graph.DanglingCount(); dangling > 0 {
		p.logger.Debug("Unresolved dependency references", "count", dangling)
	}

	p.logger.Info("Parsed build graph",
		"targets", len(graph.Targets), "generator", graph.Generator, "configuration", configName)
	return graph, nil
}

// parseTarget reads one target document. Field extraction is tolerant: a
// value of the wrong shape is treated as absent.
func (p *Parser) parseTarget(fsys fs.FS, set *ReplySet, id, jsonFile string) (*model.Target, error) {
	data, err := p.readDocument(fsys, set, jsonFile)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, &SchemaError{Document: jsonFile, Reason: "malformed target document"}
	}
	doc := gjson.ParseBytes(data)

	target := &model.Target{
		ID:            id,
		Name:          stem(jsonFile),
		Kind:          UnknownKind,
		Artifacts:     []string{},
		DependencyIDs: []string{},
	}

	if name := doc.Get("name"); name.Type == gjson.String && name.Str != "" {
		target.Name = name.Str
	}
	if kind := doc.Get("type"); kind.Type == gjson.String && kind.Str != "" {
		target.Kind = kind.Str
	}

	for _, artifact := range arrayField(doc, "artifacts") {
		if ap := artifact.Get("path"); ap.Type == gjson.String && ap.Str != "" {
			target.Artifacts = append(target.Artifacts, ap.Str)
		}
	}
	for _, dep := range arrayField(doc, "dependencies") {
		if depID := dep.Get("id"); depID.Type == gjson.String && depID.Str != "" {
			target.DependencyIDs = append(target.DependencyIDs, depID.Str)
		}
	}

	return target, nil
}

// readDocument reads a document referenced from the index or codemodel. A
// reference to a file that does not exist is a schema problem of the
// referencing document.
func (p *Parser) readDocument(fsys fs.FS, set *ReplySet, jsonFile string) ([]byte, error) {
	clean := path.Clean(jsonFile)
	if clean == "." {
		return nil, &SchemaError{Document: jsonFile, Reason: "referenced path is not a document"}
	}
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return nil, &SchemaError{Document: jsonFile, Reason: "referenced path escapes the reply directory"}
	}
	data, err := fs.ReadFile(fsys, set.Path(jsonFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &SchemaError{Document: jsonFile, Reason: "referenced document does not exist", Err: err}
	}
	if err != nil {
		if info, statErr := fs.Stat(fsys, set.Path(jsonFile)); statErr == nil && info.IsDir() {
			return nil, &SchemaError{Document: jsonFile, Reason: "referenced path is not a document"}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", jsonFile, err)
	}
	return data, nil
}

func stem(jsonFile string) string {
	base := path.Base(jsonFile)
	return strings.TrimSuffix(base, path.Ext(base))
}
