package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/depscope/pkg/cmake"
	"github.com/ritzau/depscope/pkg/scan"
)

func writeBuildTree(t *testing.T, index string) string {
	t.Helper()
	buildDir := t.TempDir()
	reply := filepath.Join(buildDir, filepath.FromSlash(cmake.ReplyDir))
	require.NoError(t, os.MkdirAll(reply, 0o755))

	files := map[string]string{
		"index-1.json":        index,
		"codemodel-v2-1.json": `{"configurations": [{"targets": [{"id": "t1", "jsonFile": "target-app.json"}]}]}`,
		"target-app.json":     `{"name": "app", "type": "EXECUTABLE", "artifacts": [{"path": "bin/app"}]}`,
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(reply, name), []byte(data), 0o644))
	}
	return buildDir
}

const goodIndex = `{"objects": [{"kind": "codemodel", "jsonFile": "codemodel-v2-1.json"}]}`

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	// Never pick up a depscope.toml from the package directory
	if len(args) > 0 && args[0] == "scan" {
		args = append(args, "--config", filepath.Join(t.TempDir(), "none.toml"))
	}
	code := execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestScan_Success(t *testing.T) {
	buildDir := writeBuildTree(t, goodIndex)
	outDir := filepath.Join(t.TempDir(), "out")

	code, stdout, stderr := run(t, "scan", "--build-dir", buildDir, "--out", outDir, "--report", "both", "--project-name", "demo")
	require.Equal(t, scan.ExitOK, code, stderr)

	assert.Contains(t, stdout, "Project:    demo")
	assert.Contains(t, stdout, "OK: wrote")
	assert.FileExists(t, filepath.Join(outDir, "sbom.cdx.json"))
	assert.FileExists(t, filepath.Join(outDir, "report.html"))
	assert.FileExists(t, filepath.Join(outDir, "report.txt"))
	assert.Empty(t, stderr, "degraded conditions are silent by default")
}

func TestScan_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
		want int
	}{
		{
			name: "missing build dir flag",
			args: func(t *testing.T) []string { return []string{"scan"} },
			want: scan.ExitUsage,
		},
		{
			name: "build dir does not exist",
			args: func(t *testing.T) []string {
				return []string{"scan", "-b", filepath.Join(t.TempDir(), "nope")}
			},
			want: scan.ExitUsage,
		},
		{
			name: "no file api",
			args: func(t *testing.T) []string { return []string{"scan", "-b", t.TempDir()} },
			want: scan.ExitNotFound,
		},
		{
			name: "no codemodel",
			args: func(t *testing.T) []string {
				return []string{"scan", "-b", writeBuildTree(t, `{"objects": []}`), "-o", t.TempDir()}
			},
			want: scan.ExitSchema,
		},
		{
			name: "unknown flag",
			args: func(t *testing.T) []string { return []string{"scan", "--frobnicate"} },
			want: scan.ExitUsage,
		},
		{
			name: "invalid report format",
			args: func(t *testing.T) []string {
				return []string{"scan", "-b", writeBuildTree(t, goodIndex), "--report", "pdf"}
			},
			want: scan.ExitUsage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := run(t, tt.args(t)...)
			assert.Equal(t, tt.want, code, stderr)
			assert.True(t, strings.HasPrefix(stderr, "ERROR: "), "stderr: %q", stderr)
			assert.Equal(t, 1, strings.Count(strings.TrimSpace(stderr), "\n")+1, "single diagnostic line: %q", stderr)
		})
	}
}

func TestVersion(t *testing.T) {
	code, stdout, _ := run(t, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "depscope dev\n", stdout)
}
