package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/devana/internal/syntax"
)

func at(line int) syntax.Span {
	return syntax.Span{File: "a.hpp", StartLine: line, StartCol: 1, EndLine: line, EndCol: 10}
}

// =============================================================================
// Type parsing
// =============================================================================

func TestParseType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		kind TypeKind
		text string
	}{
		{"int", TypeBuiltin, "int"},
		{"const unsigned long", TypeBuiltin, "const unsigned long"},
		{"long unsigned int", TypeBuiltin, "unsigned long int"},
		{"struct Foo", TypeNamed, "Foo"},
		{"::a::B", TypeNamed, "::a::B"},
		{"Foo<int, 8>*", TypePointer, "Foo<int, 8>*"},
		{"const char* const&", TypeLValueRef, "const char* const&"},
		{"Foo&&", TypeRValueRef, "Foo&&"},
		{"int[4]", TypeArray, "int[4]"},
		{"int (*)(int)", TypeUnknown, "int(*)(int)"},
	}
	for _, tt := range tests {
		got := ParseType(tt.in, nil)
		require.NotNil(t, got, tt.in)
		assert.Equal(t, tt.kind, got.Kind, tt.in)
		assert.Equal(t, tt.text, got.String(), tt.in)
	}
	assert.Nil(t, ParseType("   ", nil))
}

func TestParseType_NamedParts(t *testing.T) {
	t.Parallel()
	p := ParseType("Foo<int, 8>*", nil)
	require.Equal(t, TypePointer, p.Kind)
	named := p.Elem
	require.Equal(t, TypeNamed, named.Kind)
	seg := named.Ref.Last()
	assert.Equal(t, "Foo", seg.Name)
	assert.True(t, seg.HasArgs)
	require.Len(t, seg.Args, 2)
	assert.Equal(t, TypeBuiltin, seg.Args[0].Kind)
	assert.Equal(t, TypeValue, seg.Args[1].Kind)
	assert.Equal(t, "8", seg.Args[1].Name)

	g := ParseType("::a::B", nil)
	assert.True(t, g.Ref.Global)
	assert.True(t, g.Ref.Qualified())
	assert.Len(t, g.Ref.Segments, 2)
	assert.Len(t, p.Refs(), 1)
}

func TestParseType_TemplateParameters(t *testing.T) {
	t.Parallel()
	params := map[string]int{"T": 0, "U": 1}

	ph := ParseType("const U", params)
	assert.Equal(t, TypePlaceholder, ph.Kind)
	assert.Equal(t, 1, ph.Param)
	assert.True(t, ph.Const)
	assert.True(t, ph.HasPlaceholders())

	dep := ParseType("T::type", params)
	require.Equal(t, TypeNamed, dep.Kind)
	assert.True(t, dep.Ref.Dependent)

	nested := ParseType("Box<T*>", params)
	assert.True(t, nested.HasPlaceholders())
	assert.False(t, ParseType("Box<int>", params).HasPlaceholders())

	global := ParseType("::T", params)
	assert.Equal(t, TypeNamed, global.Kind, "a qualified name never names a parameter")
}

func TestParseArgs(t *testing.T) {
	t.Parallel()
	args := ParseArgs([]string{"int*", "N + 1", "T", "true"}, map[string]int{"T": 0})
	require.Len(t, args, 4)
	assert.Equal(t, TypePointer, args[0].Kind)
	assert.Equal(t, TypeValue, args[1].Kind)
	assert.Equal(t, "N+1", args[1].Name)
	assert.Equal(t, TypePlaceholder, args[2].Kind)
	assert.Equal(t, TypeValue, args[3].Kind)
	assert.Equal(t, "<int*, N+1, T, true>", ArgsText(args))
}

func TestSplitArgs(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"A<B, C>", "D"}, SplitArgs("A<B, C>, D"))
	assert.Equal(t, []string{"f(1, 2)", "int"}, SplitArgs(" f(1, 2) ,int "))
	assert.Equal(t, []string{"int", ""}, SplitArgs("int,"))
	assert.Nil(t, SplitArgs(""))
}

func TestParseName(t *testing.T) {
	t.Parallel()
	r := ParseName("::ns::Box<int>::inner")
	assert.True(t, r.Global)
	require.Len(t, r.Segments, 3)
	assert.True(t, r.Segments[1].HasArgs)
	assert.Equal(t, "inner", r.Last().Name)
	assert.Equal(t, "::ns::Box<int>::inner", r.String())

	odd := ParseName("operator+")
	assert.Equal(t, "operator+", odd.Last().Name)
}

// =============================================================================
// Type expressions
// =============================================================================

func TestTypeExprKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "P(cB(int))", ParseType("const int*", nil).Key())
	assert.Equal(t, "N(Foo)", ParseType("Foo", nil).Key())
	assert.Equal(t, "-", (*TypeExpr)(nil).Key())

	a := ParseType("Foo<int>", nil)
	b := ParseType("::lib::Foo<int>", nil)
	assert.NotEqual(t, a.Key(), b.Key())
	for _, x := range []*TypeExpr{a, b} {
		x.Ref.Status = RefResolved
		x.Ref.Target = 7
	}
	assert.Equal(t, "E7<B(int)>", a.Key())
	assert.Equal(t, a.Key(), b.Key(), "resolved spellings of one entity share a key")
	assert.Equal(t, ID(7), a.Target())
	assert.Equal(t, None, ParseType("int", nil).Target())
}

func TestTypeExprCloneAndStrip(t *testing.T) {
	t.Parallel()
	orig := ParseType("const Foo<Bar>", nil)
	c := orig.Clone()
	c.Ref.Segments[0].Name = "Other"
	c.Ref.Segments[0].Args[0].Ref.Segments[0].Name = "Baz"
	assert.Equal(t, "const Foo<Bar>", orig.String())
	assert.Equal(t, "const Other<Baz>", c.String())

	s := orig.Strip()
	assert.False(t, s.Const)
	assert.True(t, orig.Const)
	plain := ParseType("int", nil)
	assert.Same(t, plain, plain.Strip())
	assert.True(t, ParseType("int&", nil).IsReference())
}

// =============================================================================
// Diagnostics
// =============================================================================

func TestBag_LimitAndMerge(t *testing.T) {
	t.Parallel()
	b := NewBag(2)
	assert.True(t, b.Add(Diagnostic{Code: UnresolvedReference}))
	assert.True(t, b.Add(Diagnostic{Code: DuplicateDefinition}))
	assert.False(t, b.Add(Diagnostic{Code: UnresolvedReference}))
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 1, b.Dropped())

	other := NewBag(0)
	other.Addf(UnresolvedReference, 5, at(1), "unresolved reference %q", "X")
	b.Merge(other)
	b.Merge(nil)
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 2, b.Count(UnresolvedReference))
	assert.Equal(t, `unresolved reference "X"`, b.Items()[2].Message)
}

func TestBag_Sort(t *testing.T) {
	t.Parallel()
	b := NewBag(0)
	b.Add(Diagnostic{Code: MalformedDirective, Span: syntax.Span{File: "b.hpp", StartLine: 1}})
	b.Add(Diagnostic{Code: DuplicateDefinition, Span: syntax.Span{File: "a.hpp", StartLine: 4}})
	b.Add(Diagnostic{Code: UnresolvedReference, Span: syntax.Span{File: "a.hpp", StartLine: 4}})
	b.Add(Diagnostic{Code: UnresolvedReference, Span: syntax.Span{File: "a.hpp", StartLine: 2}})
	b.Sort()

	var got []string
	for _, d := range b.Items() {
		got = append(got, d.Span.File+" "+d.Code.String())
	}
	assert.Equal(t, []string{
		"a.hpp UnresolvedReference",
		"a.hpp UnresolvedReference",
		"a.hpp DuplicateDefinition",
		"b.hpp MalformedDirective",
	}, got)
	assert.Equal(t, 2, b.Items()[0].Span.StartLine)
}

func TestDiagnosticStrings(t *testing.T) {
	t.Parallel()
	d := Diagnostic{Code: UnresolvedReference, Message: "unresolved reference \"X\"", Span: syntax.Span{File: "a.hpp", StartLine: 2, StartCol: 3}}
	assert.Equal(t, `a.hpp:2:3: UnresolvedReference: unresolved reference "X"`, d.String())
	assert.Equal(t, "MalformedDirective: bad", Diagnostic{Code: MalformedDirective, Message: "bad"}.String())
	assert.Equal(t, "Code(99)", Code(99).String())

	e := &StructuralError{Unit: "a.hpp", Span: syntax.Span{StartLine: 4, StartCol: 2}, Reason: "field outside a record"}
	assert.Equal(t, "model: structural error in a.hpp at 4:2: field outside a record", e.Error())
	assert.Equal(t, "model: structural error in a.hpp: empty", (&StructuralError{Unit: "a.hpp", Reason: "empty"}).Error())
}

// =============================================================================
// Arena
// =============================================================================

func TestNewArena(t *testing.T) {
	t.Parallel()
	a := NewArena(0)
	assert.Equal(t, RootID, a.Root().ID)
	assert.Equal(t, KindNamespace, a.Root().Kind)
	assert.Equal(t, KindUnknown, a.Get(UnknownID).Kind)
	assert.Nil(t, a.Get(None))
	assert.Nil(t, a.Get(999))
	require.Len(t, a.All(), 1, "the unknown placeholder is not listed")
	assert.Empty(t, a.Children(RootID))
}

func TestArena_NewPathsAndScopes(t *testing.T) {
	t.Parallel()
	a := NewArena(0)
	ns := a.New(KindNamespace, "outer", RootID, at(1), &NamespaceInfo{}, true, true)
	cls := a.New(KindClass, "C", ns.ID, at(2), &ClassInfo{Keyword: "struct", Defined: true}, true, true)
	f := a.New(KindVariable, "x", cls.ID, at(3), &VariableInfo{Field: true}, true, true)
	hidden := a.New(KindVariable, "", cls.ID, at(4), &VariableInfo{Field: true}, true, false)

	assert.Empty(t, ns.Path)
	assert.Equal(t, []string{"outer"}, cls.Path)
	assert.Equal(t, "outer::C::x", f.QualifiedName())
	assert.True(t, hidden.Anonymous())
	assert.False(t, a.Root().Anonymous())

	assert.Equal(t, []ID{ns.ID}, a.Root().Scope().Lookup("outer"))
	assert.Equal(t, []string{"x"}, cls.Scope().Names())
	assert.Len(t, a.Children(cls.ID), 2)
	assert.Nil(t, a.Children(f.ID))

	path, err := a.DerivePath(f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.Path, path)
	_, err = a.DerivePath(999)
	assert.Error(t, err)
}

func TestArena_IndexWithoutListing(t *testing.T) {
	t.Parallel()
	a := NewArena(0)
	e := a.New(KindEnum, "Color", RootID, at(1), &EnumInfo{Keyword: "enum", Defined: true}, true, true)
	red := a.New(KindVariable, "Red", e.ID, at(1), &VariableInfo{Enumerator: true}, true, true)
	a.Index(a.Root().Scope(), "Red", red.ID)

	assert.Equal(t, []ID{red.ID}, a.Root().Scope().Lookup("Red"))
	assert.Len(t, a.Children(RootID), 1)
}

func TestArena_Supersede(t *testing.T) {
	t.Parallel()
	a := NewArena(0)
	ns := a.New(KindNamespace, "n", RootID, at(1), &NamespaceInfo{}, true, true)
	first := a.New(KindClass, "A", ns.ID, at(2), &ClassInfo{Keyword: "struct", Defined: true}, true, true)
	fwd := a.New(KindClass, "F", ns.ID, at(3), &ClassInfo{Keyword: "struct"}, true, true)
	last := a.New(KindClass, "B", ns.ID, at(4), &ClassInfo{Keyword: "struct", Defined: true}, true, true)
	def := a.New(KindClass, "F", ns.ID, at(5), &ClassInfo{Keyword: "struct", Defined: true}, true, true)

	a.Supersede(fwd.ID, def.ID)

	var order []ID
	for _, c := range a.Children(ns.ID) {
		order = append(order, c.ID)
	}
	assert.Equal(t, []ID{first.ID, def.ID, last.ID}, order)
	assert.False(t, a.Live(fwd.ID))
	assert.Same(t, def, a.Get(fwd.ID))
	assert.Equal(t, def.ID, a.Canonical(fwd.ID))
	assert.Equal(t, []ID{def.ID}, ns.Scope().Lookup("F"))
	assert.NotContains(t, a.All(), fwd)
}

func TestArena_DiscardTree(t *testing.T) {
	t.Parallel()
	a := NewArena(0)
	ns := a.New(KindNamespace, "n", RootID, at(1), &NamespaceInfo{}, true, true)
	keep := a.New(KindClass, "A", ns.ID, at(2), &ClassInfo{Keyword: "struct", Defined: true}, true, true)
	drop := a.New(KindClass, "F", ns.ID, at(3), &ClassInfo{Keyword: "struct", Defined: true}, true, true)
	x := a.New(KindVariable, "x", drop.ID, at(4), &VariableInfo{Field: true}, true, true)
	nested := a.New(KindClass, "G", drop.ID, at(5), &ClassInfo{Keyword: "struct", Defined: true}, true, true)
	y := a.New(KindVariable, "y", nested.ID, at(6), &VariableInfo{Field: true}, true, true)
	hidden := a.New(KindVariable, "h", drop.ID, at(7), &VariableInfo{}, false, false)
	kept := &NameRef{Segments: []Segment{{Name: "int"}}, Scope: keep.ID, Owner: keep.ID}
	dropped := &NameRef{Segments: []Segment{{Name: "A"}}, Scope: nested.ID, Owner: y.ID}
	a.AddRef(kept)
	a.AddRef(dropped)

	a.DiscardTree(drop.ID, keep.ID)

	for _, e := range []*Entity{drop, x, nested, y, hidden} {
		assert.False(t, a.Live(e.ID), e.Name)
		assert.Equal(t, keep.ID, a.Canonical(e.ID), e.Name)
	}
	assert.True(t, a.Live(keep.ID))
	assert.Equal(t, []*Entity{keep}, a.Children(ns.ID))
	assert.Equal(t, []*NameRef{kept}, a.Refs())
}

func TestArena_Reparent(t *testing.T) {
	t.Parallel()
	a := NewArena(0)
	src := a.New(KindNamespace, "src", RootID, at(1), &NamespaceInfo{}, true, true)
	dst := a.New(KindNamespace, "dst", RootID, at(2), &NamespaceInfo{}, true, true)
	cls := a.New(KindClass, "C", src.ID, at(3), &ClassInfo{Keyword: "class", Defined: true}, true, true)
	f := a.New(KindVariable, "x", cls.ID, at(4), &VariableInfo{Field: true}, true, true)

	a.Reparent(cls.ID, dst.ID)
	assert.Equal(t, dst.ID, cls.Owner)
	assert.Equal(t, []string{"dst"}, cls.Path)
	assert.Equal(t, []string{"dst", "C"}, f.Path)
	assert.Empty(t, a.Children(src.ID))
	assert.Equal(t, []ID{cls.ID}, dst.Scope().Lookup("C"))
}

func TestArena_SealedPanics(t *testing.T) {
	t.Parallel()
	a := NewArena(0)
	a.Seal()
	assert.True(t, a.Sealed())
	assert.PanicsWithValue(t, ErrSealed, func() {
		a.New(KindNamespace, "late", RootID, at(1), &NamespaceInfo{}, true, true)
	})
	assert.PanicsWithValue(t, ErrSealed, func() { a.Discard(UnknownID, RootID) })
	assert.NotPanics(t, func() { _ = a.Children(RootID) })
}

func TestArena_Fingerprint(t *testing.T) {
	t.Parallel()
	build := func(field string) *Arena {
		a := NewArena(0)
		ns := a.New(KindNamespace, "geo", RootID, at(1), &NamespaceInfo{}, true, true)
		cls := a.New(KindClass, "Point", ns.ID, at(2), &ClassInfo{Keyword: "struct", Defined: true}, true, true)
		a.New(KindVariable, field, cls.ID, at(3), &VariableInfo{Field: true, Type: ParseType("int", nil)}, true, true)
		a.Diags.Addf(UnresolvedReference, cls.ID, at(2), "unresolved reference %q", "Q")
		return a
	}
	fp1, err := build("x").Fingerprint()
	require.NoError(t, err)
	fp2, err := build("x").Fingerprint()
	require.NoError(t, err)
	fp3, err := build("y").Fingerprint()
	require.NoError(t, err)

	assert.Len(t, fp1, 64)
	assert.Equal(t, fp1, fp2)
	assert.NotEqual(t, fp1, fp3)
}

// =============================================================================
// Entities
// =============================================================================

func TestEntityKinds(t *testing.T) {
	t.Parallel()
	for k := KindNamespace; k <= KindUnknown; k++ {
		got, ok := ParseEntityKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}
	_, ok := ParseEntityKind("struct")
	assert.False(t, ok)
	assert.True(t, KindTypedefAlias.IsType())
	assert.False(t, KindFunction.IsType())
	assert.True(t, KindUnion.HasScope())
	assert.False(t, KindTemplate.HasScope())
}

func TestEntityCloneAndDirectives(t *testing.T) {
	t.Parallel()
	e := &Entity{
		Name:       "port",
		Path:       []string{"cfg", "Server"},
		Attributes: []Attribute{{Namespace: "devana", Name: "ignore-field", Arguments: []string{"x"}}},
		Directives: []Directive{{Name: "custom-name", Value: "listen", HasValue: true, Known: true}},
	}
	c := e.Clone()
	c.Path[0] = "other"
	c.Attributes[0].Arguments[0] = "y"
	assert.Equal(t, "cfg", e.Path[0])
	assert.Equal(t, "x", e.Attributes[0].Arguments[0])
	assert.Equal(t, "devana::ignore-field", e.Attributes[0].Key())
	assert.Equal(t, "nodiscard", Attribute{Name: "nodiscard"}.Key())

	d, ok := e.Directive("custom-name")
	require.True(t, ok)
	assert.Equal(t, "listen", d.Value)
	assert.True(t, e.HasDirective("custom-name"))
	assert.False(t, e.HasDirective("ignore-field"))
}
