package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ritzau/depscope/pkg/cmake"
	"github.com/ritzau/depscope/pkg/config"
	"github.com/ritzau/depscope/pkg/cycles"
	"github.com/ritzau/depscope/pkg/graph"
	"github.com/ritzau/depscope/pkg/logging"
	"github.com/ritzau/depscope/pkg/model"
	"github.com/ritzau/depscope/pkg/output"
	"github.com/ritzau/depscope/pkg/sbom"
)

// Options configures a scan
type Options struct {
	BuildDir    string
	OutDir      string // Nothing is written when empty
	ProjectName string // Defaults to the build directory's base name
	Report      string // One of the config.Report* formats
	SBOMFile    string
	ReportFile  string // Base name without extension
	ToolVersion string
}

// OptionsFromConfig builds scan options from the loaded configuration
func OptionsFromConfig(cfg *config.Config, toolVersion string) Options {
	return Options{
		BuildDir:    cfg.BuildDir,
		OutDir:      cfg.OutDir,
		ProjectName: cfg.ProjectName,
		Report:      cfg.Report,
		SBOMFile:    cfg.SBOMFile,
		ReportFile:  cfg.ReportFile,
		ToolVersion: toolVersion,
	}
}

// Result is everything one scan produced
type Result struct {
	Project     string
	Reason      string
	Graph       *model.BuildGraph
	TargetGraph *graph.TargetGraph
	Cycles      []cycles.TargetCycle
	BuildOrder  []string // Empty when the graph has cycles
	Document    *sbom.Document
	Summary     *output.Summary
	Written     []string // Paths of the files written, in write order
	FinishedAt  time.Time
	Duration    time.Duration
}

// Publisher receives every successful scan result
type Publisher interface {
	SetResult(*Result)
}

// Runner orchestrates scans. Each run builds its own graph; runs are
// serialized so watch-triggered rescans never overlap.
type Runner struct {
	opts      Options
	publisher Publisher
	logger    *logging.Logger
	mu        sync.Mutex
}

// NewRunner creates a runner. publisher may be nil.
func NewRunner(opts Options, publisher Publisher) *Runner {
	return &Runner{
		opts:      opts,
		publisher: publisher,
		logger:    logging.New("scan"),
	}
}

// BuildDir returns the absolute build directory the runner scans
func (r *Runner) BuildDir() string {
	abs, err := filepath.Abs(r.opts.BuildDir)
	if err != nil {
		return r.opts.BuildDir
	}
	return abs
}

// Run performs a single scan with opts
func Run(ctx context.Context, opts Options) (*Result, error) {
	return NewRunner(opts, nil).Run(ctx, "scan")
}

// Run executes one scan: parse, project, write outputs, publish. Nothing is
// written if parsing fails.
func (r *Runner) Run(ctx context.Context, reason string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	r.logger.Info("Starting scan", "reason", reason, "buildDir", r.opts.BuildDir)

	buildDir, err := resolveBuildDir(r.opts.BuildDir)
	if err != nil {
		return nil, err
	}

	g, err := cmake.NewParser().Parse(os.DirFS(buildDir), buildDir)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cmake file api: %w", err)
	}

	project := ProjectName(r.opts.ProjectName, buildDir)
	tg := graph.BuildTargetGraph(g)
	found := cycles.FindTargetCycles(tg)
	for _, cycle := range found {
		r.logger.Warn("Dependency cycle", "targets", cycle.Names)
	}
	order, err := tg.BuildOrder()
	if err != nil {
		r.logger.Debug("No build order", "error", err)
	}

	result := &Result{
		Project:     project,
		Reason:      reason,
		Graph:       g,
		TargetGraph: tg,
		Cycles:      found,
		BuildOrder:  order,
		Document: sbom.Project(g, sbom.Options{
			ProjectName: project,
			ToolVersion: r.opts.ToolVersion,
			Timestamp:   g.IndexModTime,
		}),
		Summary: output.NewSummary(project, g, tg, found),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.opts.OutDir != "" {
		if err := r.writeOutputs(result); err != nil {
			return nil, err
		}
	}

	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(start)
	r.logger.Info("Scan complete",
		"targets", len(g.Targets), "cycles", len(found), "durationMs", result.Duration.Milliseconds())

	if r.publisher != nil {
		r.publisher.SetResult(result)
	}
	return result, nil
}

func (r *Runner) writeOutputs(result *Result) error {
	if err := os.MkdirAll(r.opts.OutDir, 0o755); err != nil {
		return &OutputError{Path: r.opts.OutDir, Err: err}
	}

	sbomPath := filepath.Join(r.opts.OutDir, valueOr(r.opts.SBOMFile, "sbom.cdx.json"))
	if err := sbom.WriteFile(result.Document, sbomPath); err != nil {
		return &OutputError{Path: sbomPath, Err: err}
	}
	result.Written = append(result.Written, sbomPath)
	r.logger.Debug("Wrote sbom", "path", sbomPath)

	base := filepath.Join(r.opts.OutDir, valueOr(r.opts.ReportFile, "report"))
	report := valueOr(r.opts.Report, config.ReportHTML)

	if report == config.ReportHTML || report == config.ReportBoth {
		path := base + ".html"
		if err := output.WriteHTML(result.Summary, path); err != nil {
			return &OutputError{Path: path, Err: err}
		}
		result.Written = append(result.Written, path)
		r.logger.Debug("Wrote report", "path", path)
	}
	if report == config.ReportText || report == config.ReportBoth {
		path := base + ".txt"
		if err := output.WriteText(result.Summary, path); err != nil {
			return &OutputError{Path: path, Err: err}
		}
		result.Written = append(result.Written, path)
		r.logger.Debug("Wrote report", "path", path)
	}

	return nil
}

func resolveBuildDir(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%w: no build directory given", ErrBuildDir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve build directory: %w", err)
	}
	info, err := os.Stat(abs)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.IsDir()) {
		return "", fmt.Errorf("%w: %s", ErrBuildDir, abs)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat build directory: %w", err)
	}
	return abs, nil
}

// ProjectName picks the name of the root component: the explicit override,
// else the build directory's base name, else "unknown".
func ProjectName(override, buildDir string) string {
	if override != "" {
		return override
	}
	base := filepath.Base(buildDir)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "unknown"
	}
	return base
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
