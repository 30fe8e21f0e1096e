package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/devana"
)

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	assert.Equal(t, root, findRepoRoot(root))
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "sub", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	assert.Equal(t, root, findRepoRoot(deep))
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	// TempDir has no .git directory anywhere in its ancestry
	// (unless /tmp itself is a repo, which would be unusual).
	dir := t.TempDir()
	assert.Equal(t, dir, findRepoRoot(dir))
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	err := validateFormat("yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json or text")
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := parseLogLevel("loud")
	assert.Error(t, err)
}

// =============================================================================
// Output conversion
// =============================================================================

const cliTestSource = `// Shapes.

namespace geo {
/// A point.
struct [[nodiscard]] Point {
  int x;
  // devana: ignore-field
  int y;
};
}
`

func buildTestModel(t *testing.T) *devana.Model {
	t.Helper()
	e, err := devana.New(devana.WithParallel(false))
	require.NoError(t, err)
	m, err := e.BuildSource(context.Background(), "shapes.hpp", []byte(cliTestSource))
	require.NoError(t, err)
	return m
}

func TestDumpModel_DepthAndOrder(t *testing.T) {
	t.Parallel()
	d := dumpModel(buildTestModel(t))

	require.Len(t, d.Entities, 4)
	names := make([]string, len(d.Entities))
	depths := make([]int, len(d.Entities))
	for i, e := range d.Entities {
		names[i] = e.QualifiedName
		depths[i] = e.Depth
	}
	assert.Equal(t, []string{"geo", "geo::Point", "geo::Point::x", "geo::Point::y"}, names)
	assert.Equal(t, []int{0, 1, 2, 2}, depths)
	assert.Equal(t, []string{"shapes.hpp"}, d.Files)
	assert.NotEmpty(t, d.Fingerprint)
}

func TestEntityToCLI_Annotations(t *testing.T) {
	t.Parallel()
	m := buildTestModel(t)

	p, err := m.Lookup("geo::Point")
	require.NoError(t, err)
	c := entityToCLI(&p, 1)
	assert.Equal(t, "class", c.Kind)
	assert.Equal(t, "A point.", c.Doc)
	assert.Equal(t, []string{"nodiscard"}, c.Attributes)
	assert.Equal(t, "shapes.hpp", c.File)

	y, err := m.Lookup("geo::Point::y")
	require.NoError(t, err)
	c = entityToCLI(&y, 2)
	assert.Contains(t, c.Directives, "ignore-field")
}

func TestFormatDiagnosticsText(t *testing.T) {
	color.NoColor = true
	ds := []devana.Diagnostic{{
		Code:    devana.Code(1),
		Message: `name "Missing" not found`,
		Span:    devana.Span{File: "a.hpp", StartLine: 3, StartCol: 5},
	}, {
		Code:    devana.Code(1),
		Message: "no position",
	}}

	var buf bytes.Buffer
	formatDiagnosticsText(&buf, ds)
	assert.Equal(t,
		"a.hpp:3:5: UnresolvedReference: name \"Missing\" not found\n"+
			"<unknown>: UnresolvedReference: no position\n",
		buf.String())
}

func TestFormatDumpText(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	formatDumpText(&buf, dumpModel(buildTestModel(t)))

	out := buf.String()
	assert.Contains(t, out, "Files: shapes.hpp")
	assert.Contains(t, out, "namespace geo")
	assert.Contains(t, out, "  class Point")
	assert.Contains(t, out, "[[nodiscard]]")
	assert.Contains(t, out, "{ignore-field}")
}
