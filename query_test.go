package devana

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/devana/internal/model"
)

func mustLookup(t *testing.T, m *Model, name string) Entity {
	t.Helper()
	e, err := m.Lookup(name)
	require.NoError(t, err, name)
	return e
}

func diagnosticsWith(m *Model, code Code) []Diagnostic {
	var out []Diagnostic
	for _, d := range m.Diagnostics() {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// =============================================================================
// Lookup
// =============================================================================

const lookupSource = `namespace outer {
namespace inner {
struct Z {};
}
struct Y {
  inner::Z z;
  ::outer::inner::Z g;
};
}
`

func TestLookup_QualifiedAndGlobal(t *testing.T) {
	t.Parallel()
	m := buildSource(t, lookupSource)

	z := mustLookup(t, m, "outer::inner::Z")
	assert.Equal(t, KindClass, z.Kind)
	assert.Equal(t, "outer::inner::Z", z.QualifiedName())
	assert.Equal(t, []string{"outer", "inner"}, z.Path)

	global := mustLookup(t, m, "::outer::inner::Z")
	assert.Equal(t, z.ID, global.ID)

	_, err := m.Lookup("inner::Z")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Lookup("  ")
	assert.ErrorIs(t, err, ErrNotFound)

	y := mustLookup(t, m, "outer::Y")
	fields := m.Fields(y.ID)
	require.Len(t, fields, 2)
	assert.Equal(t, z.ID, fields[0].TypeEntity)
	assert.Equal(t, z.ID, fields[1].TypeEntity)
	assert.Empty(t, m.Diagnostics())
}

func TestEntity_AndChildren(t *testing.T) {
	t.Parallel()
	m := buildSource(t, lookupSource)

	root := m.Root()
	assert.Equal(t, RootID, root.ID)
	top := m.Children(RootID)
	require.Len(t, top, 1)
	assert.Equal(t, "outer", top[0].Name)

	got, ok := m.Entity(top[0].ID)
	require.True(t, ok)
	assert.Equal(t, "outer", got.Name)

	_, ok = m.Entity(ID(1 << 20))
	assert.False(t, ok)
}

func TestWalk_DocumentOrderAndSkip(t *testing.T) {
	t.Parallel()
	m := buildSource(t, lookupSource)

	var all []string
	m.Walk(func(e Entity) bool {
		all = append(all, e.QualifiedName())
		return true
	})
	assert.Equal(t, []string{
		"outer",
		"outer::inner",
		"outer::inner::Z",
		"outer::Y",
		"outer::Y::z",
		"outer::Y::g",
	}, all)

	var shallow []string
	m.Walk(func(e Entity) bool {
		shallow = append(shallow, e.QualifiedName())
		return e.Name != "inner"
	})
	assert.NotContains(t, shallow, "outer::inner::Z")
	assert.Contains(t, shallow, "outer::Y::z")
}

func TestReturnedEntitiesAreCopies(t *testing.T) {
	t.Parallel()
	m := buildSource(t, lookupSource)

	z := mustLookup(t, m, "outer::inner::Z")
	z.Path[0] = "changed"
	z.Name = "changed"
	again := mustLookup(t, m, "outer::inner::Z")
	assert.Equal(t, "outer::inner::Z", again.QualifiedName())
}

// =============================================================================
// Redeclarations
// =============================================================================

func TestForwardDeclarationMergesWithDefinition(t *testing.T) {
	t.Parallel()
	m := buildSource(t, `struct F;
struct F { int v; };
struct G { F* f; };
`)
	var fs []Entity
	for _, c := range m.EntitiesByKind(KindClass) {
		if c.Name == "F" {
			fs = append(fs, c)
		}
	}
	require.Len(t, fs, 1)
	assert.Len(t, m.Fields(fs[0].ID), 1)

	g := mustLookup(t, m, "G")
	gf := m.Fields(g.ID)
	require.Len(t, gf, 1)
	assert.Equal(t, fs[0].ID, gf[0].TypeEntity)
	assert.Equal(t, model.TypePointer, gf[0].Type.Kind)
	assert.Empty(t, m.Diagnostics())
}

func TestDuplicateDefinition(t *testing.T) {
	t.Parallel()
	m := buildSource(t, `struct D { int a; };
struct D { int b; };
`)
	dups := diagnosticsWith(m, DuplicateDefinition)
	require.Len(t, dups, 1)
	assert.Contains(t, dups[0].Message, "D")
	assert.Equal(t, 2, dups[0].Span.StartLine)

	d := mustLookup(t, m, "D")
	fields := m.Fields(d.ID)
	require.Len(t, fields, 1)
	assert.Equal(t, "a", fields[0].Entity.Name)
}

// =============================================================================
// Aliases and using
// =============================================================================

const aliasSource = `namespace lib {
struct Widget { int id; };
typedef Widget WidgetT;
using Handle = WidgetT;
}
namespace app {
using lib::Widget;
using namespace lib;
struct Holder {
  Handle h;
  Widget w;
};
}
`

func TestResolve_FollowsAliasChains(t *testing.T) {
	t.Parallel()
	m := buildSource(t, aliasSource)
	widget := mustLookup(t, m, "lib::Widget")

	handle := mustLookup(t, m, "lib::Handle")
	assert.Equal(t, KindTypedefAlias, handle.Kind)
	resolved, err := m.Resolve("lib::Handle")
	require.NoError(t, err)
	assert.Equal(t, widget.ID, resolved.ID)

	decl := mustLookup(t, m, "app::Widget")
	assert.Equal(t, KindTypedefAlias, decl.Kind)
	resolved, err = m.Resolve("app::Widget")
	require.NoError(t, err)
	assert.Equal(t, widget.ID, resolved.ID)
}

func TestFields_ResolveThroughUsing(t *testing.T) {
	t.Parallel()
	m := buildSource(t, aliasSource)
	widget := mustLookup(t, m, "lib::Widget")
	holder := mustLookup(t, m, "app::Holder")

	fields := m.Fields(holder.ID)
	require.Len(t, fields, 2)
	assert.Equal(t, "h", fields[0].Entity.Name)
	assert.Equal(t, widget.ID, fields[0].TypeEntity)
	assert.Equal(t, widget.ID, fields[1].TypeEntity)
	assert.Empty(t, diagnosticsWith(m, UnresolvedReference))
}

// =============================================================================
// Unresolved names
// =============================================================================

func TestUnresolvedReference(t *testing.T) {
	t.Parallel()
	m := buildSource(t, `struct B {
  int ok;
  Missing m;
};
`)
	unresolved := diagnosticsWith(m, UnresolvedReference)
	require.Len(t, unresolved, 1)
	assert.Contains(t, unresolved[0].Message, "Missing")
	assert.Equal(t, 3, unresolved[0].Span.StartLine)

	b := mustLookup(t, m, "B")
	fields := m.Fields(b.ID)
	require.Len(t, fields, 2)
	assert.Equal(t, ID(0), fields[0].TypeEntity)
	assert.Equal(t, UnknownID, fields[1].TypeEntity)

	var statuses []model.RefStatus
	for _, r := range m.References() {
		if r.String() == "Missing" {
			statuses = append(statuses, r.Status)
		}
	}
	assert.Equal(t, []model.RefStatus{model.RefUnknown}, statuses)
}

// =============================================================================
// Classes and enums
// =============================================================================

func TestClassMembers(t *testing.T) {
	t.Parallel()
	m := buildSource(t, `struct Base {};
struct Mixin {};
class Shape : public Base, private virtual Mixin {
public:
  double area() const;
  static int count;
  int sides;
private:
  int id_;
};
enum class Color : unsigned char { Red, Green = 2, Blue };
`)
	shape := mustLookup(t, m, "Shape")
	base := mustLookup(t, m, "Base")
	mixin := mustLookup(t, m, "Mixin")

	bases := m.Bases(shape.ID)
	require.Len(t, bases, 2)
	assert.Equal(t, base.ID, bases[0].Entity)
	assert.Equal(t, "public", bases[0].Access)
	assert.False(t, bases[0].Virtual)
	assert.Equal(t, mixin.ID, bases[1].Entity)
	assert.Equal(t, "private", bases[1].Access)
	assert.True(t, bases[1].Virtual)

	fields := m.Fields(shape.ID)
	require.Len(t, fields, 2)
	assert.Equal(t, "sides", fields[0].Entity.Name)
	assert.Equal(t, "public", fields[0].Access)
	assert.Equal(t, "id_", fields[1].Entity.Name)
	assert.Equal(t, "private", fields[1].Access)

	methods := m.Methods(shape.ID)
	require.Len(t, methods, 1)
	assert.Equal(t, "area", methods[0].Name)

	color := mustLookup(t, m, "Color")
	enumerators := m.Enumerators(color.ID)
	require.Len(t, enumerators, 3)
	assert.Equal(t, "Red", enumerators[0].Name)
	assert.Equal(t, "Color::Blue", enumerators[2].QualifiedName())
	assert.Nil(t, m.Enumerators(shape.ID))
	assert.Nil(t, m.Fields(color.ID))
}

func TestUnsupportedConstruct(t *testing.T) {
	t.Parallel()
	m := buildSource(t, `struct K {
  friend struct Z;
  int a;
};
`)
	require.Len(t, diagnosticsWith(m, UnsupportedConstruct), 1)
	assert.NotEmpty(t, m.EntitiesByKind(KindUnmodeled))

	k := mustLookup(t, m, "K")
	assert.Len(t, m.Fields(k.ID), 1)
}

// =============================================================================
// Templates
// =============================================================================

const templateSource = `template <typename T, typename U>
struct S {};

template <>
struct S<double, char> {};

template <typename P>
struct S<P*, int> {};

template <class A, class B>
struct Pair {};

template <class A>
struct Pair<A, int> {};

template <class B>
struct Pair<int, B> {};

struct User {
  Pair<int, int> both;
  S<long*, int> ptr;
};
`

func TestInstantiate_SelectsDefinition(t *testing.T) {
	t.Parallel()
	m := buildSource(t, templateSource)
	s := mustLookup(t, m, "S")
	require.Equal(t, KindTemplate, s.Kind)

	specs := m.Specializations(s.ID)
	require.Len(t, specs, 2)
	assert.True(t, specs[0].Explicit)
	assert.False(t, specs[1].Explicit)

	explicit, err := m.Instantiate(s.ID, "double", "char")
	require.NoError(t, err)
	assert.Equal(t, model.InstanceSelected, explicit.Status)
	assert.True(t, explicit.Explicit)
	assert.Equal(t, 0, explicit.Specialization)
	assert.Equal(t, specs[0].Body, explicit.Body)

	partial, err := m.Instantiate(s.ID, "int*", "int")
	require.NoError(t, err)
	assert.Equal(t, model.InstanceSelected, partial.Status)
	assert.False(t, partial.Explicit)
	assert.Equal(t, 1, partial.Specialization)
	p, ok := partial.Binding("P")
	require.True(t, ok)
	require.Len(t, p.Values, 1)
	assert.Equal(t, "int", p.Values[0].String())

	primary, err := m.Instantiate(s.ID, "float", "char")
	require.NoError(t, err)
	assert.Equal(t, model.InstanceSelected, primary.Status)
	assert.Equal(t, model.PrimaryIndex, primary.Specialization)
	tb, ok := primary.Binding("T")
	require.True(t, ok)
	assert.Equal(t, "float", tb.Values[0].String())

	invalid, err := m.Instantiate(s.ID, "int")
	require.NoError(t, err)
	assert.Equal(t, model.InstanceInvalid, invalid.Status)
}

func TestInstantiate_NotATemplate(t *testing.T) {
	t.Parallel()
	m := buildSource(t, templateSource)
	user := mustLookup(t, m, "User")
	_, err := m.Instantiate(user.ID, "int")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, m.Specializations(user.ID))
}

func TestInstantiate_DoesNotChangeModel(t *testing.T) {
	t.Parallel()
	m := buildSource(t, templateSource)
	s := mustLookup(t, m, "S")
	before := len(m.Instances())
	diags := len(m.Diagnostics())

	_, err := m.Instantiate(s.ID, "short", "short")
	require.NoError(t, err)
	assert.Len(t, m.Instances(), before)
	assert.Len(t, m.Diagnostics(), diags)
}

func TestInstances_FromFieldTypes(t *testing.T) {
	t.Parallel()
	m := buildSource(t, templateSource)
	pair := mustLookup(t, m, "Pair")
	s := mustLookup(t, m, "S")

	byTemplate := map[ID][]Instance{}
	for _, in := range m.Instances() {
		byTemplate[in.Template] = append(byTemplate[in.Template], in)
	}

	require.Len(t, byTemplate[pair.ID], 1)
	ambiguous := byTemplate[pair.ID][0]
	assert.Equal(t, model.InstanceAmbiguous, ambiguous.Status)
	assert.ElementsMatch(t, []int{0, 1}, ambiguous.Candidates)

	require.Len(t, byTemplate[s.ID], 1)
	ptr := byTemplate[s.ID][0]
	assert.Equal(t, 1, ptr.Specialization)
	p, ok := ptr.Binding("P")
	require.True(t, ok)
	assert.Equal(t, "long", p.Values[0].String())

	amb := diagnosticsWith(m, AmbiguousSpecialization)
	require.Len(t, amb, 1)
	assert.Contains(t, amb[0].Message, "Pair")
}

// =============================================================================
// Annotations
// =============================================================================

const annotatedSource = `// Shapes library.
// Generated code, do not edit.

namespace geo {
/// A point.
struct [[nodiscard]] Point {
  int x; // Horizontal.
  // devana: ignore-field
  int y;
  // devana: custom-name = 9bad
  int z;
};
}
`

func TestAnnotations(t *testing.T) {
	t.Parallel()
	m := buildSource(t, annotatedSource)

	assert.Equal(t, "Shapes library.\nGenerated code, do not edit.", m.Preamble("test.hpp"))
	assert.Empty(t, m.Preamble("other.hpp"))

	p := mustLookup(t, m, "geo::Point")
	assert.Equal(t, "A point.", m.Doc(p.ID))
	attrs := m.Attributes(p.ID)
	require.Len(t, attrs, 1)
	assert.Equal(t, "nodiscard", attrs[0].Key())

	x := mustLookup(t, m, "geo::Point::x")
	assert.Equal(t, "Horizontal.", m.Doc(x.ID))
	assert.False(t, m.HasDirective(x.ID, "ignore-field"))

	y := mustLookup(t, m, "geo::Point::y")
	assert.True(t, m.HasDirective(y.ID, "ignore-field"))
	dirs := m.Directives(y.ID)
	require.Len(t, dirs, 1)
	assert.True(t, dirs[0].Known)

	z := mustLookup(t, m, "geo::Point::z")
	assert.Empty(t, m.Directives(z.ID))
	malformed := diagnosticsWith(m, MalformedDirective)
	require.Len(t, malformed, 1)
	assert.Equal(t, z.ID, malformed[0].Entity)

	assert.Nil(t, m.Attributes(ID(1<<20)))
	assert.Empty(t, m.Doc(ID(1<<20)))
}
