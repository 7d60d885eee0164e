package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/depscope/pkg/cmake"
	"github.com/ritzau/depscope/pkg/config"
	"github.com/ritzau/depscope/pkg/sbom"
)

var indexTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// writeReplySet creates a build tree with a two-target File API reply
func writeReplySet(t *testing.T) string {
	t.Helper()
	buildDir := filepath.Join(t.TempDir(), "demo-build")
	reply := filepath.Join(buildDir, filepath.FromSlash(cmake.ReplyDir))
	require.NoError(t, os.MkdirAll(reply, 0o755))

	files := map[string]string{
		"index-2026-03-14T12-00-00-0000.json": `{
			"cmake": {"generator": {"name": "Ninja"}},
			"objects": [{"kind": "codemodel", "jsonFile": "codemodel-v2-1.json"}]
		}`,
		"codemodel-v2-1.json": `{"configurations": [{"name": "Release", "targets": [
			{"id": "t1", "jsonFile": "target-app.json"},
			{"id": "t2", "jsonFile": "target-lib.json"}
		]}]}`,
		"target-app.json": `{"name": "app", "type": "EXECUTABLE", "artifacts": [{"path": "bin/app"}], "dependencies": [{"id": "t2"}]}`,
		"target-lib.json": `{"name": "lib", "type": "STATIC_LIBRARY", "artifacts": [{"path": "lib/liblib.a"}]}`,
	}
	for name, data := range files {
		path := filepath.Join(reply, name)
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
		require.NoError(t, os.Chtimes(path, indexTime, indexTime))
	}
	return buildDir
}

func TestRun_WritesOutputs(t *testing.T) {
	buildDir := writeReplySet(t)
	outDir := filepath.Join(t.TempDir(), "out")

	result, err := Run(context.Background(), Options{
		BuildDir:    buildDir,
		OutDir:      outDir,
		Report:      config.ReportBoth,
		ToolVersion: "test",
	})
	require.NoError(t, err)

	assert.Equal(t, "demo-build", result.Project)
	assert.Equal(t, []string{
		filepath.Join(outDir, "sbom.cdx.json"),
		filepath.Join(outDir, "report.html"),
		filepath.Join(outDir, "report.txt"),
	}, result.Written)
	assert.Equal(t, []string{"t2", "t1"}, result.BuildOrder)
	assert.Empty(t, result.Cycles)

	data, err := os.ReadFile(filepath.Join(outDir, "sbom.cdx.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"timestamp": "2026-03-14T12:00:00Z"`)
	assert.Contains(t, string(data), `"name": "demo-build"`)

	dep, ok := result.Document.Dependency("target:t1")
	require.True(t, ok)
	assert.Equal(t, []string{"target:t2"}, dep.DependsOn)
}

func TestRun_Idempotent(t *testing.T) {
	buildDir := writeReplySet(t)
	outA := filepath.Join(t.TempDir(), "a")
	outB := filepath.Join(t.TempDir(), "b")

	_, err := Run(context.Background(), Options{BuildDir: buildDir, OutDir: outA, ProjectName: "p"})
	require.NoError(t, err)
	_, err = Run(context.Background(), Options{BuildDir: buildDir, OutDir: outB, ProjectName: "p"})
	require.NoError(t, err)

	for _, name := range []string{"sbom.cdx.json", "report.html"} {
		a, err := os.ReadFile(filepath.Join(outA, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(outB, name))
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b), "%s differs between runs", name)
	}
}

func TestRun_Failures(t *testing.T) {
	t.Run("missing build dir", func(t *testing.T) {
		_, err := Run(context.Background(), Options{BuildDir: filepath.Join(t.TempDir(), "nope")})
		assert.ErrorIs(t, err, ErrBuildDir)
		assert.Equal(t, ExitUsage, ExitCode(err))
	})

	t.Run("no reply directory", func(t *testing.T) {
		outDir := filepath.Join(t.TempDir(), "out")
		_, err := Run(context.Background(), Options{BuildDir: t.TempDir(), OutDir: outDir})
		assert.True(t, cmake.IsNotFound(err))
		assert.Equal(t, ExitNotFound, ExitCode(err))
		assert.NoDirExists(t, outDir, "nothing is written on failure")
	})

	t.Run("schema error", func(t *testing.T) {
		buildDir := writeReplySet(t)
		index := filepath.Join(buildDir, filepath.FromSlash(cmake.ReplyDir), "index-2026-03-14T12-00-00-0000.json")
		require.NoError(t, os.WriteFile(index, []byte(`{"objects": []}`), 0o644))

		outDir := filepath.Join(t.TempDir(), "out")
		_, err := Run(context.Background(), Options{BuildDir: buildDir, OutDir: outDir})
		assert.True(t, cmake.IsSchema(err))
		assert.Equal(t, ExitSchema, ExitCode(err))
		assert.NoDirExists(t, outDir)
	})

	t.Run("unwritable output", func(t *testing.T) {
		buildDir := writeReplySet(t)
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0o644))

		_, err := Run(context.Background(), Options{BuildDir: buildDir, OutDir: filepath.Join(blocker, "out")})
		var outErr *OutputError
		assert.True(t, errors.As(err, &outErr))
		assert.Equal(t, ExitOutput, ExitCode(err))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, Options{BuildDir: writeReplySet(t)})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

type recorder struct {
	results []*Result
}

func (r *recorder) SetResult(result *Result) {
	r.results = append(r.results, result)
}

func TestRunner_Publishes(t *testing.T) {
	rec := &recorder{}
	runner := NewRunner(Options{BuildDir: writeReplySet(t)}, rec)

	first, err := runner.Run(context.Background(), "initial")
	require.NoError(t, err)
	second, err := runner.Run(context.Background(), "index changed")
	require.NoError(t, err)

	require.Len(t, rec.results, 2)
	assert.Equal(t, "index changed", rec.results[1].Reason)
	assert.Empty(t, first.Written, "no out dir, nothing written")
	assert.NotSame(t, first.Graph, second.Graph, "every run builds its own graph")
	assert.Equal(t, sbom.RootRef, second.Document.Metadata.Component.BOMRef)
}

func TestProjectName(t *testing.T) {
	assert.Equal(t, "override", ProjectName("override", "/work/build"))
	assert.Equal(t, "build", ProjectName("", "/work/build"))
	assert.Equal(t, "unknown", ProjectName("", string(filepath.Separator)))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitNotFound, ExitCode(&cmake.NotFoundError{Path: "x", Reason: "y"}))
	assert.Equal(t, ExitSchema, ExitCode(&cmake.SchemaError{Document: "x", Reason: "y"}))
	assert.Equal(t, ExitOutput, ExitCode(&OutputError{Path: "x", Err: errors.New("disk full")}))
	assert.Equal(t, ExitUsage, ExitCode(errors.New("other")))
}
