package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/depscope/pkg/cycles"
	"github.com/ritzau/depscope/pkg/graph"
	"github.com/ritzau/depscope/pkg/model"
)

func sampleSummary() *Summary {
	g := model.NewBuildGraph("/work/build", []*model.Target{
		{ID: "t1", Name: "app", Kind: "EXECUTABLE", Artifacts: []string{"bin/app"}, DependencyIDs: []string{"t2", "gone"}},
		{ID: "t2", Name: "lib<script>", Kind: "STATIC_LIBRARY", Artifacts: []string{"lib/liblib.a"}, DependencyIDs: []string{"t3"}},
		{ID: "t3", Name: "util", Kind: "STATIC_LIBRARY", DependencyIDs: []string{"t2"}},
	})
	g.Generator = "Ninja"
	g.Configuration = "Release"

	tg := graph.BuildTargetGraph(g)
	return NewSummary("demo", g, tg, cycles.FindTargetCycles(tg))
}

func TestNewSummary(t *testing.T) {
	s := sampleSummary()

	require.Len(t, s.Targets, 3)
	assert.Equal(t, "application", s.Targets[0].Classification)
	assert.Equal(t, 1, s.Targets[0].Dependencies)
	assert.Equal(t, 2, s.Targets[0].Transitive)
	assert.Equal(t, "library", s.Targets[1].Classification)
	assert.Equal(t, 1, s.Dangling)
	require.Len(t, s.Cycles, 1)
	assert.Equal(t, []string{"lib<script>", "util"}, s.Cycles[0].Names)

	apps, libs := s.Counts()
	assert.Equal(t, 1, apps)
	assert.Equal(t, 2, libs)
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintReport(&buf, sampleSummary(), false))

	out := buf.String()
	assert.Contains(t, out, "Project:    demo")
	assert.Contains(t, out, "Generator:  Ninja")
	assert.Contains(t, out, "bin/app")
	assert.Contains(t, out, "DEPENDENCY CYCLES (1):")
	assert.Contains(t, out, "lib<script> -> util -> lib<script>")
	assert.Contains(t, out, "Unresolved dependency references: 1")
	assert.Contains(t, out, "Summary: 3 targets (1 applications, 2 libraries), 1 cycles")
	assert.NotContains(t, out, "\x1b[", "plain output must not carry escape codes")
}

func TestPrintReport_Empty(t *testing.T) {
	g := model.NewBuildGraph("/work/build", nil)
	var buf bytes.Buffer
	require.NoError(t, PrintReport(&buf, NewSummary("empty", g, nil, nil), false))

	assert.Contains(t, buf.String(), "No targets found.")
	assert.Contains(t, buf.String(), "Generator:  unknown")
}

func TestRenderHTML_Escapes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, sampleSummary()))

	page := buf.String()
	assert.True(t, strings.HasPrefix(page, "<!doctype html>"))
	assert.Contains(t, page, "<title>Depscope Report - demo</title>")
	assert.Contains(t, page, "lib&lt;script&gt;")
	assert.NotContains(t, page, "lib<script>")
	assert.Contains(t, page, "<code>bin/app</code>")
	assert.Contains(t, page, "Dependency cycles (1)")
}

func TestWriteReports(t *testing.T) {
	dir := t.TempDir()
	s := sampleSummary()

	require.NoError(t, WriteHTML(s, filepath.Join(dir, "report.html")))
	require.NoError(t, WriteText(s, filepath.Join(dir, "report.txt")))

	text, err := os.ReadFile(filepath.Join(dir, "report.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(text), "depscope - Build Dependency Report")

	err = WriteHTML(s, filepath.Join(dir, "missing", "report.html"))
	assert.Error(t, err)
}
