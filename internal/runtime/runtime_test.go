package runtime

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/devana"
	"github.com/jward/devana/internal/store"
	"github.com/jward/devana/internal/syntax"
)

const cppTestSource = `namespace geo {
// A point.
struct Point {
  int x;
  // devana: ignore-field
  int y;
};

double length(const Point& p);
}

template <typename T, typename U>
struct S {};

template <>
struct S<double, char> {};
`

// parseCppSource parses C++ source into a fresh Runtime's tree cache.
func parseCppSource(t *testing.T, src string) (*syntaxFile, *Runtime) {
	t.Helper()
	rt := NewRuntime("")
	f, err := rt.trees.parse(context.Background(), "test.hpp", []byte(src), "cpp")
	require.NoError(t, err)
	return f, rt
}

func buildModel(t *testing.T, src string) *devana.Model {
	t.Helper()
	e, err := devana.New(devana.WithParallel(false))
	require.NoError(t, err)
	m, err := e.BuildSource(context.Background(), "test.hpp", []byte(src))
	require.NoError(t, err)
	return m
}

// =============================================================================
// Language detection
// =============================================================================

func TestLanguageForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"main.c", "c", true},
		{"point.h", "cpp", true},
		{"point.hpp", "cpp", true},
		{"point.HPP", "cpp", true},
		{"impl.cc", "cpp", true},
		{"impl.cpp", "cpp", true},
		{"impl.cxx", "cpp", true},
		{"detail.ipp", "cpp", true},
		{"main.go", "", false},
		{"README", "", false},
	}
	for _, tt := range tests {
		got, ok := LanguageForFile(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestParserForLanguage(t *testing.T) {
	t.Parallel()

	for _, lang := range []string{"c", "cpp"} {
		l, ok := ParserForLanguage(lang)
		assert.True(t, ok, lang)
		assert.NotNil(t, l, lang)
	}
	_, ok := ParserForLanguage("go")
	assert.False(t, ok)
}

// =============================================================================
// Tree-sitter access
// =============================================================================

func TestParse_CppRootNodeType(t *testing.T) {
	t.Parallel()
	f, _ := parseCppSource(t, cppTestSource)
	defer f.tree.Close()

	root := f.tree.RootNode()
	require.NotNil(t, root)
	assert.Equal(t, "translation_unit", root.Type())
	assert.False(t, root.HasError())
}

func TestSyntaxTrees_OwnerFromChild(t *testing.T) {
	t.Parallel()
	f, rt := parseCppSource(t, cppTestSource)
	defer f.tree.Close()

	ns := f.tree.RootNode().NamedChild(0)
	require.NotNil(t, ns)
	assert.Equal(t, "namespace_definition", ns.Type())

	owner, ok := rt.trees.owner(ns.ChildByFieldName("name"))
	require.True(t, ok)
	assert.Same(t, f, owner)
	assert.Equal(t, "geo", ns.ChildByFieldName("name").Content(owner.src))

	other, err := rt.trees.parse(context.Background(), "other.hpp", []byte("int z;"), "cpp")
	require.NoError(t, err)
	defer other.tree.Close()
	owner, ok = rt.trees.owner(other.tree.RootNode())
	require.True(t, ok)
	assert.Equal(t, "other.hpp", owner.path)
}

func TestSyntaxTrees_FileParsedOnce(t *testing.T) {
	t.Parallel()
	reads := 0
	trees := newSyntaxTrees(func(path string) ([]byte, error) {
		reads++
		return []byte("struct A { int a; };\n"), nil
	})
	first, err := trees.file(context.Background(), "a.hpp")
	require.NoError(t, err)
	second, err := trees.file(context.Background(), "a.hpp")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, reads)

	_, err = newSyntaxTrees(os.ReadFile).file(context.Background(), filepath.Join(t.TempDir(), "missing.hpp"))
	assert.Error(t, err)
}

func TestSyntaxFile_At(t *testing.T) {
	t.Parallel()
	f, _ := parseCppSource(t, cppTestSource)
	defer f.tree.Close()

	// "int x;" on line 4.
	n := f.at(syntax.Span{StartLine: 4, StartCol: 3, EndLine: 4, EndCol: 9})
	require.NotNil(t, n)
	assert.Equal(t, "field_declaration", n.Type())
	assert.Equal(t, "int x;", n.Content(f.src))
	assert.Nil(t, f.at(syntax.Span{}))
}

func TestQuery_StructNames(t *testing.T) {
	t.Parallel()
	f, _ := parseCppSource(t, cppTestSource)
	defer f.tree.Close()

	q, err := sitter.NewQuery([]byte("(struct_specifier name: (type_identifier) @name body: (field_declaration_list))"), f.lang)
	require.NoError(t, err)
	defer q.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, f.tree.RootNode())

	var names []string
	for {
		match, found := cursor.NextMatch()
		if !found {
			break
		}
		match = cursor.FilterPredicates(match, f.src)
		for _, c := range match.Captures {
			names = append(names, c.Node.Content(f.src))
		}
	}
	assert.Equal(t, []string{"Point", "S"}, names)
}

func TestQuery_InvalidPattern(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")
	err := rt.RunSource(context.Background(), `query("(not_a_real_node_type) @x", parse_src("int x;").RootNode())`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

// =============================================================================
// Risor host functions
// =============================================================================

func TestRunSource_ParseSrcAndQuery(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")

	script := `
tree := parse_src(src)
root := tree.RootNode()
assert(root.Type() == "translation_unit", 'unexpected root {root.Type()}')

matches := query('(field_declaration declarator: (field_identifier) @name)', root)
assert(len(matches) == 2, 'expected 2 fields, got {len(matches)}')
assert(node_text(matches[0]["name"]) == "x", "first field should be x")
assert(node_text(matches[1]["name"]) == "y", "second field should be y")
`
	err := rt.RunSource(context.Background(), script, map[string]any{"src": cppTestSource})
	require.NoError(t, err)
}

func TestRunSource_ParseFileUsesExtension(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "point.c")
	require.NoError(t, os.WriteFile(path, []byte("struct point { int x; };\n"), 0o644))

	rt := NewRuntime("")
	script := `
tree := parse(path)
root := tree.RootNode()
assert(root.Type() == "translation_unit")
s := root.NamedChild(0)
assert(s.Type() == "struct_specifier", 'got {s.Type()}')
assert(node_text(node_child(s, "name")) == "point")
assert(node_child(s, "no_such_field") == nil)
`
	err := rt.RunSource(context.Background(), script, map[string]any{"path": path})
	require.NoError(t, err)
}

func TestRunSource_NodeOf(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("", WithModel(buildModel(t, cppTestSource)))

	script := `
p := lookup("geo::Point")
n := node_of(p)
assert(n.Type() == "struct_specifier", 'got {n.Type()}')
assert(node_text(node_child(n, "name")) == "Point")

f := fields(p)[0]
assert(node_text(node_of(f)) == "int x;", 'got {node_text(node_of(f))}')
assert(len(query("(field_identifier) @f", node_of(f))) == 1)

assert(node_of(root()) == nil, "the global scope has no span")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestRunSource_NodeOfNeedsModel(t *testing.T) {
	t.Parallel()
	err := NewRuntime("").RunSource(context.Background(), `node_of(3)`, nil)
	require.Error(t, err)
}

func TestRunSource_ParseUnsupportedLanguage(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")
	err := rt.RunSource(context.Background(), `parse_src("int x;", "cobol")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

func TestRunSource_LogUsesLogger(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rt := NewRuntime("", WithLogger(logger))

	require.NoError(t, rt.RunSource(context.Background(), `log.Warn("checked")`, nil))
	assert.Contains(t, buf.String(), "checked")
	assert.Contains(t, buf.String(), "script=")
	assert.Contains(t, buf.String(), "level=WARN")
}

// =============================================================================
// Model host functions
// =============================================================================

func TestModelFunctions_LookupAndFields(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("", WithModel(buildModel(t, cppTestSource)))

	script := `
p := lookup("geo::Point")
assert(p["kind"] == "class", 'kind {p["kind"]}')
assert(p["keyword"] == "struct")
assert(p["qualified_name"] == "geo::Point")
assert(p["doc"] == "A point.", 'doc {p["doc"]}')

fs := fields(p)
assert(len(fs) == 2, 'expected 2 fields, got {len(fs)}')
assert(fs[0]["name"] == "x")
assert(fs[0]["type"] == "int")
assert(!has_directive(fs[0], "ignore-field"))
assert(has_directive(fs[1], "ignore-field"))

ns := lookup("geo")
kids := children(ns)
assert(len(kids) == 2, 'expected 2 children, got {len(kids)}')
assert(entity(ns["id"])["name"] == "geo")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestModelFunctions_LookupMissingFails(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("", WithModel(buildModel(t, cppTestSource)))
	err := rt.RunSource(context.Background(), `lookup("geo::Nope")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup")
}

func TestModelFunctions_EntitiesByKind(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("", WithModel(buildModel(t, cppTestSource)))

	script := `
fns := entities("function")
assert(len(fns) == 1, 'expected 1 function, got {len(fns)}')
assert(fns[0]["qualified_name"] == "geo::length")
assert(len(fns[0]["params"]) == 1)
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))

	err := rt.RunSource(context.Background(), `entities("gadget")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestModelFunctions_Instantiate(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("", WithModel(buildModel(t, cppTestSource)))

	script := `
s := lookup("S")
assert(s["kind"] == "template", 'kind {s["kind"]}')
assert(len(specializations(s)) == 1)

inst := instantiate(s, "double", "char")
assert(inst["status"] == "selected", 'status {inst["status"]}')
assert(inst["explicit"])

inst = instantiate(s, "float", "char")
assert(inst["status"] == "selected")
assert(!inst["explicit"])
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestModelFunctions_FingerprintAndFiles(t *testing.T) {
	t.Parallel()
	m := buildModel(t, cppTestSource)
	rt := NewRuntime("", WithModel(m))

	script := `
assert(fingerprint() == want)
fs := files()
assert(len(fs) == 1 && fs[0] == "test.hpp")
assert(root()["kind"] == "namespace")
`
	require.NoError(t, rt.RunSource(context.Background(), script, map[string]any{"want": m.Fingerprint()}))
}

func TestModelFunctions_AbsentWithoutModel(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")
	err := rt.RunSource(context.Background(), `lookup("geo")`, nil)
	assert.Error(t, err)
}

// =============================================================================
// Store host functions
// =============================================================================

func exportedStore(t *testing.T, m *devana.Model) *store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "model.db")
	e, err := devana.New()
	require.NoError(t, err)
	require.NoError(t, e.Export(context.Background(), m, dbPath))

	s, err := store.NewStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreFunctions_Query(t *testing.T) {
	t.Parallel()
	s := exportedStore(t, buildModel(t, cppTestSource))
	rt := NewRuntime("", WithStore(s))

	script := `
rows := db_query("SELECT name FROM entities WHERE kind = ? ORDER BY name", "class")
assert(len(rows) >= 1, 'expected classes, got {len(rows)}')

pts := db_entities("geo::Point")
assert(len(pts) == 1)
kids := db_children(pts[0]["id"])
assert(len(kids) == 2, 'expected 2 fields, got {len(kids)}')
assert(kids[0]["name"] == "x")

ids := db_with_directive("ignore-field")
assert(len(ids) == 1)
assert(ids[0] == kids[1]["id"])
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestStoreFunctions_QueryRejectsWrites(t *testing.T) {
	t.Parallel()
	s := exportedStore(t, buildModel(t, cppTestSource))
	rt := NewRuntime("", WithStore(s))

	err := rt.RunSource(context.Background(), `db_query("DELETE FROM entities")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only SELECT")

	n, err := s.CountRows("entities")
	require.NoError(t, err)
	assert.Positive(t, n)
}

// =============================================================================
// Script loading and imports
// =============================================================================

func TestRunScript_LoadsFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "check.risor"), []byte(`result := 1 + 1`), 0o644))

	rt := NewRuntime(dir)
	require.NoError(t, rt.RunScript(context.Background(), "check.risor", nil))
}

func TestRunScript_MissingFile(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(t.TempDir())
	err := rt.RunScript(context.Background(), "nonexistent.risor", nil)
	require.Error(t, err)
}

func TestRunScript_ErrorNamesScript(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.risor"), []byte(`assert(false, "boom")`), 0o644))

	rt := NewRuntime(dir)
	err := rt.RunScript(context.Background(), "bad.risor", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.risor")
}

func TestLoadScript(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "check.risor")
	content := `x := 42`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rt := NewRuntime(dir)
	got, err := rt.LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	got, err = rt.LoadScript("check.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFS(t *testing.T) {
	t.Parallel()
	content := `x := 42`
	mapFS := fstest.MapFS{
		"checks/fields.risor": &fstest.MapFile{Data: []byte(content)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("checks/fields.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// Absolute-style path should be resolved within the FS.
	got, err = rt.LoadScript("/checks/fields.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = rt.LoadScript("nonexistent.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestImport_FSImporter(t *testing.T) {
	t.Parallel()
	mapFS := fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func greet(name) {
	return "hello " + name
}
`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	script := `
import lib_helpers

msg := lib_helpers.greet("world")
assert(msg == "hello world", 'expected "hello world", got ' + msg)
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestImport_LocalImporter(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0o644))
	rt := NewRuntime(dir)

	script := `
import math_utils

result := math_utils.double(21)
assert(result == 42, 'expected 42, got {result}')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestImport_ModelGlobalsAvailableInImportedModules(t *testing.T) {
	t.Parallel()
	mapFS := fstest.MapFS{
		"helper.risor": &fstest.MapFile{Data: []byte(`
func field_names(name) {
	out := []
	for _, f := range fields(lookup(name)) {
		out.append(f["name"])
	}
	return out
}
`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS), WithModel(buildModel(t, cppTestSource)))

	script := `
import helper
names := helper.field_names("geo::Point")
assert(len(names) == 2 && names[0] == "x" && names[1] == "y")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestNewRuntime_Defaults(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("/some/dir")
	require.NotNil(t, rt)
	assert.Nil(t, rt.fsys)
	assert.Nil(t, rt.model)
	assert.Nil(t, rt.store)
	assert.Equal(t, "/some/dir", rt.scriptsDir)
}
