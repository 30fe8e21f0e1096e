package frontend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/devana/internal/syntax"
)

func parse(t *testing.T, src string) *syntax.Unit {
	t.Helper()
	u, err := Parse(context.Background(), "test.hpp", []byte(src))
	require.NoError(t, err)
	return u
}

func find(nodes []*syntax.RawNode, kind, spelling string) *syntax.RawNode {
	for _, n := range nodes {
		if n.Kind == kind && n.Spelling == spelling {
			return n
		}
	}
	return nil
}

// =============================================================================
// Scopes and records
// =============================================================================

func TestParseNamespaceAndRecord(t *testing.T) {
	t.Parallel()
	u := parse(t, `namespace geo {
struct Point {
  int x;
  int y;
  double norm() const;
};
}
`)
	require.Len(t, u.Nodes, 1)
	ns := u.Nodes[0]
	assert.Equal(t, "Namespace", ns.Kind)
	assert.Equal(t, "geo", ns.Spelling)

	pt := find(ns.Children, "Struct", "Point")
	require.NotNil(t, pt)
	assert.True(t, pt.IsDefinition)
	assert.Equal(t, 2, pt.Span.StartLine)

	x := find(pt.Children, "Field", "x")
	require.NotNil(t, x)
	assert.Equal(t, "int", x.Type)

	norm := find(pt.Children, "Method", "norm")
	require.NotNil(t, norm)
	assert.Equal(t, "double", norm.Type)
	assert.Contains(t, norm.Qualifiers, "const")
	assert.False(t, norm.IsDefinition)
}

func TestParseAccessAndBases(t *testing.T) {
	t.Parallel()
	u := parse(t, `class Derived : public Base, private virtual Mixin {
public:
  Derived();
private:
  static int count;
};
`)
	d := find(u.Nodes, "Class", "Derived")
	require.NotNil(t, d)
	require.Len(t, d.Bases, 2)
	assert.Equal(t, syntax.Base{Name: "Base", Access: "public"}, d.Bases[0])
	assert.Equal(t, syntax.Base{Name: "Mixin", Access: "private", Virtual: true}, d.Bases[1])

	var labels []string
	for _, c := range d.Children {
		if c.Kind == "AccessSpecifier" {
			labels = append(labels, c.Access)
		}
	}
	assert.Equal(t, []string{"public", "private"}, labels)

	count := find(d.Children, "Variable", "count")
	require.NotNil(t, count)
	assert.Contains(t, count.Qualifiers, "static")
}

func TestParseScopedEnum(t *testing.T) {
	t.Parallel()
	u := parse(t, `enum class Color : unsigned char {
  Red = 1,
  Green,
};
`)
	e := find(u.Nodes, "EnumClass", "Color")
	require.NotNil(t, e)
	assert.Equal(t, "unsigned char", e.Type)
	require.Len(t, e.Children, 2)
	assert.Equal(t, "Red", e.Children[0].Spelling)
	assert.Equal(t, "1", e.Children[0].Value)
	assert.Equal(t, "Green", e.Children[1].Spelling)
}

// =============================================================================
// Declarations
// =============================================================================

func TestParseFunctionsAndVariables(t *testing.T) {
	t.Parallel()
	u := parse(t, `const char* name(int id, double scale = 1.0);
int table[16];
extern int shared;
`)
	fn := find(u.Nodes, "Function", "name")
	require.NotNil(t, fn)
	assert.Equal(t, "const char*", fn.Type)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, syntax.Param{Name: "id", Type: "int"}, fn.Params[0])
	assert.Equal(t, "scale", fn.Params[1].Name)
	assert.Equal(t, "1.0", fn.Params[1].Default)

	table := find(u.Nodes, "Variable", "table")
	require.NotNil(t, table)
	assert.Equal(t, "int[16]", table.Type)

	shared := find(u.Nodes, "Variable", "shared")
	require.NotNil(t, shared)
	assert.False(t, shared.IsDefinition)
}

func TestParseOutOfLineDefinition(t *testing.T) {
	t.Parallel()
	u := parse(t, `int Counter::next() { return 1; }
`)
	fn := find(u.Nodes, "Function", "Counter::next")
	require.NotNil(t, fn)
	assert.True(t, fn.IsDefinition)
	assert.Equal(t, "int", fn.Type)
}

func TestParseAliasesAndUsing(t *testing.T) {
	t.Parallel()
	u := parse(t, `typedef unsigned long size_type;
using Handle = void*;
using namespace std;
using std::string;
`)
	td := find(u.Nodes, "Typedef", "size_type")
	require.NotNil(t, td)
	assert.Equal(t, "unsigned long", td.Type)

	al := find(u.Nodes, "UsingAlias", "Handle")
	require.NotNil(t, al)
	assert.Equal(t, "void*", al.Type)

	assert.NotNil(t, find(u.Nodes, "UsingDirective", "std"))
	assert.NotNil(t, find(u.Nodes, "UsingDeclaration", "std::string"))
}

func TestParseExternBlock(t *testing.T) {
	t.Parallel()
	u := parse(t, `extern "C" {
int legacy(void* p);
}
`)
	require.Len(t, u.Nodes, 1)
	ext := u.Nodes[0]
	assert.Equal(t, "ExternBlock", ext.Kind)
	assert.Equal(t, `"C"`, ext.Linkage)
	assert.NotNil(t, find(ext.Children, "Function", "legacy"))
}

// =============================================================================
// Templates
// =============================================================================

func TestParseTemplates(t *testing.T) {
	t.Parallel()
	u := parse(t, `template <typename T, int N = 4>
struct Buffer {
  T data[N];
};

template <>
struct Buffer<char, 8> {};
`)
	require.Len(t, u.Nodes, 2)

	primary := u.Nodes[0]
	assert.Equal(t, "TemplateWrapper", primary.Kind)
	require.Len(t, primary.TemplateParams, 2)
	assert.Equal(t, syntax.TemplateParam{Name: "T", Kind: "type", Specifier: "typename"}, primary.TemplateParams[0])
	assert.Equal(t, "N", primary.TemplateParams[1].Name)
	assert.Equal(t, "non-type", primary.TemplateParams[1].Kind)
	assert.Equal(t, "int", primary.TemplateParams[1].Type)
	assert.Equal(t, "4", primary.TemplateParams[1].Default)
	require.Len(t, primary.Children, 1)
	assert.Equal(t, "Buffer", primary.Children[0].Spelling)

	spec := u.Nodes[1]
	assert.Empty(t, spec.TemplateParams)
	require.Len(t, spec.Children, 1)
	assert.Equal(t, "Buffer", spec.Children[0].Spelling)
	assert.Equal(t, []string{"char", "8"}, spec.Children[0].TemplateArgs)
}

func TestParseTemplateDefaultDeclarators(t *testing.T) {
	t.Parallel()
	u := parse(t, `template <class T, class U = T*, typename V = const T&, class W = T[2], class X = Pair<T, int>>
struct D;
`)
	require.Len(t, u.Nodes, 1)
	params := u.Nodes[0].TemplateParams
	require.Len(t, params, 5)
	var defaults []string
	for _, p := range params {
		defaults = append(defaults, p.Default)
	}
	assert.Equal(t, []string{"", "T*", "const T&", "T[2]", "Pair<T, int>"}, defaults)
	assert.Equal(t, "V", params[2].Name)
}

func TestParseVariadicTemplate(t *testing.T) {
	t.Parallel()
	u := parse(t, `template <class... Ts>
struct Tuple;
`)
	require.Len(t, u.Nodes, 1)
	require.Len(t, u.Nodes[0].TemplateParams, 1)
	p := u.Nodes[0].TemplateParams[0]
	assert.Equal(t, "Ts", p.Name)
	assert.True(t, p.Variadic)
	assert.Equal(t, "class", p.Specifier)
}

// =============================================================================
// Comments and attributes
// =============================================================================

func TestParseComments(t *testing.T) {
	t.Parallel()
	u := parse(t, `// Line one.
/** Block. */
struct [[nodiscard]] S {
  int a; // trailing
};
`)
	require.Len(t, u.Comments, 3)
	assert.False(t, u.Comments[0].Block)
	assert.Equal(t, 1, u.Comments[0].Span.StartLine)
	assert.True(t, u.Comments[1].Block)
	assert.Equal(t, "// trailing", u.Comments[2].Text)

	s := find(u.Nodes, "Struct", "S")
	require.NotNil(t, s)
	assert.Equal(t, []string{"[[nodiscard]]"}, s.AttributeTokens)

	a := find(s.Children, "Field", "a")
	require.NotNil(t, a)
	assert.GreaterOrEqual(t, u.Comments[2].Span.StartCol, a.Span.EndCol)
}

func TestParseFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "a.h")
	require.NoError(t, os.WriteFile(path, []byte("struct A {};\n"), 0o644))
	u, err := ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, u.Path)
	assert.NotNil(t, find(u.Nodes, "Struct", "A"))

	_, err = ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.h"))
	assert.Error(t, err)
}
