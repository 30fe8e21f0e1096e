package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/devana/internal/annotate"
	"github.com/jward/devana/internal/build"
	"github.com/jward/devana/internal/model"
	"github.com/jward/devana/internal/resolve"
	"github.com/jward/devana/internal/syntax"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func line(n, from, to int) syntax.Span {
	return syntax.Span{File: "a.h", StartLine: n, StartCol: from, EndLine: n, EndCol: to}
}

// buildArena runs the pipeline over a hand-written unit and seals the
// result.
func buildArena(t *testing.T, u *syntax.Unit) *model.Arena {
	t.Helper()
	a, err := build.Unit(syntax.Adapt(u), 100)
	require.NoError(t, err)
	a, err = build.Link([]*model.Arena{a}, 100)
	require.NoError(t, err)
	resolve.New(a).Run()
	annotate.Bind(a, annotate.DefaultOptions())
	a.Diags.Sort()
	a.Seal()
	return a
}

// shapes is a small unit with two records, a function and a field whose
// type does not resolve.
func shapes() *syntax.Unit {
	return &syntax.Unit{
		Path:     "a.h",
		Comments: []syntax.Comment{{Span: line(1, 1, 20), Text: "// Shapes library"}},
		Nodes: []*syntax.RawNode{
			{
				Kind: "Struct", Spelling: "Point", IsDefinition: true,
				Span:        syntax.Span{File: "a.h", StartLine: 3, StartCol: 1, EndLine: 6, EndCol: 3},
				CommentText: "// A point.",
				Children: []*syntax.RawNode{
					{Kind: "Field", Spelling: "x", Type: "int", Span: line(4, 3, 9)},
					{Kind: "Field", Spelling: "y", Type: "int", Span: line(5, 3, 9), CommentText: "// devana: ignore-field"},
				},
			},
			{
				Kind: "Struct", Spelling: "Segment", IsDefinition: true,
				Span: syntax.Span{File: "a.h", StartLine: 8, StartCol: 1, EndLine: 12, EndCol: 3},
				Children: []*syntax.RawNode{
					{Kind: "Field", Spelling: "from", Type: "Point", Span: line(9, 3, 14)},
					{Kind: "Field", Spelling: "to", Type: "const Point*", Span: line(10, 3, 20)},
					{Kind: "Field", Spelling: "tag", Type: "Missing", Span: line(11, 3, 15), AttributeTokens: []string{"[[deprecated(\"old\")]]"}},
				},
			},
			{
				Kind: "Function", Spelling: "length", Type: "double", Span: line(14, 1, 40),
				Params: []syntax.Param{{Name: "s", Type: "const Segment&"}, {Name: "scale", Type: "double", Default: "1.0"}},
			},
		},
	}
}

func entityNamed(t *testing.T, s *Store, qualified string) *Entity {
	t.Helper()
	es, err := s.EntitiesByQualifiedName(qualified)
	require.NoError(t, err)
	require.Len(t, es, 1, "entities named %s", qualified)
	return es[0]
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range Tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

func TestMetadata_SetGetReplace(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	got, err := s.GetMetadata("k")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.SetMetadata("k", "one"))
	require.NoError(t, s.SetMetadata("k", "two"))
	got, err = s.GetMetadata("k")
	require.NoError(t, err)
	assert.Equal(t, "two", got)
}

// =============================================================================
// Direct inserts
// =============================================================================

func TestEntity_InsertAndRetrieve(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.InsertEntity(&Entity{ID: 1, Kind: "namespace", Ordinal: -1})
	require.NoError(t, err)
	id, err := s.InsertEntity(&Entity{
		ID: 10, Kind: "class", Name: "W", QualifiedName: "W", OwnerID: ptr(int64(1)),
		File: "a.h", StartLine: 3, StartCol: 1, EndLine: 9, EndCol: 3, Doc: "A widget.",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), id)

	got, err := s.EntityByID(10)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "W", got.Name)
	assert.Equal(t, "A widget.", got.Doc)
	require.NotNil(t, got.OwnerID)
	assert.Equal(t, int64(1), *got.OwnerID)

	root, err := s.EntityByID(1)
	require.NoError(t, err)
	assert.Nil(t, root.OwnerID)

	missing, err := s.EntityByID(99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAttribute_ArgumentsNilVersusEmpty(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.InsertEntity(&Entity{ID: 5, Kind: "function", Name: "f", QualifiedName: "f"})
	require.NoError(t, err)

	_, err = s.InsertAttribute(&Attribute{EntityID: 5, Ordinal: 0, Name: "nodiscard"})
	require.NoError(t, err)
	_, err = s.InsertAttribute(&Attribute{EntityID: 5, Ordinal: 1, Name: "deprecated", Arguments: []string{}})
	require.NoError(t, err)
	_, err = s.InsertAttribute(&Attribute{EntityID: 5, Ordinal: 2, Namespace: "gnu", Name: "section", Arguments: []string{`".text"`}})
	require.NoError(t, err)

	attrs, err := s.AttributesOf(5)
	require.NoError(t, err)
	require.Len(t, attrs, 3)
	assert.Nil(t, attrs[0].Arguments)
	assert.NotNil(t, attrs[1].Arguments)
	assert.Empty(t, attrs[1].Arguments)
	assert.Equal(t, "gnu", attrs[2].Namespace)
	assert.Equal(t, []string{`".text"`}, attrs[2].Arguments)
}

func TestForeignKey_DeferredOwner(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	// A member may be written before its owner inside one transaction.
	tx, err := s.db.Begin()
	require.NoError(t, err)
	_, err = insertEntity(tx, &Entity{ID: 3, Kind: "variable", Name: "x", QualifiedName: "P::x", OwnerID: ptr(int64(2))})
	require.NoError(t, err)
	_, err = insertEntity(tx, &Entity{ID: 2, Kind: "class", Name: "P", QualifiedName: "P"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	// A dangling owner is rejected at commit.
	tx, err = s.db.Begin()
	require.NoError(t, err)
	_, err = insertEntity(tx, &Entity{ID: 4, Kind: "variable", Name: "y", QualifiedName: "Q::y", OwnerID: ptr(int64(40))})
	require.NoError(t, err)
	assert.Error(t, tx.Commit())
}

func TestCountRows_UnknownTable(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.CountRows("sqlite_master")
	assert.Error(t, err)
}

// =============================================================================
// Export
// =============================================================================

func TestExport_Entities(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := buildArena(t, shapes())
	require.NoError(t, Export(context.Background(), s, a))

	n, err := s.CountRows("entities")
	require.NoError(t, err)
	assert.Equal(t, len(a.All()), n)

	point := entityNamed(t, s, "Point")
	assert.Equal(t, "class", point.Kind)
	assert.Equal(t, "A point.", point.Doc)
	assert.Equal(t, 3, point.StartLine)
	assert.NotEmpty(t, point.SignatureHash)
	assert.Contains(t, point.Detail, "struct")

	children, err := s.ChildrenOf(int64(model.RootID))
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, "Point", children[0].Name)
	assert.Equal(t, "Segment", children[1].Name)
	assert.Equal(t, "length", children[2].Name)
	for i, c := range children {
		assert.Equal(t, i, c.Ordinal)
	}
}

func TestExport_TypeMembers(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := buildArena(t, shapes())
	require.NoError(t, Export(context.Background(), s, a))

	point := entityNamed(t, s, "Point")
	seg := entityNamed(t, s, "Segment")
	members, err := s.TypeMembersOf(seg.ID)
	require.NoError(t, err)
	require.Len(t, members, 3)

	assert.Equal(t, "from", members[0].Name)
	assert.Equal(t, "Point", members[0].TypeExpr)
	require.NotNil(t, members[0].TypeEntityID)
	assert.Equal(t, point.ID, *members[0].TypeEntityID)

	// Pointers are looked through.
	assert.Equal(t, "to", members[1].Name)
	require.NotNil(t, members[1].TypeEntityID)
	assert.Equal(t, point.ID, *members[1].TypeEntityID)

	// Unresolved types have no entity.
	assert.Equal(t, "tag", members[2].Name)
	assert.Nil(t, members[2].TypeEntityID)
}

func TestExport_FunctionParams(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := buildArena(t, shapes())
	require.NoError(t, Export(context.Background(), s, a))

	fn := entityNamed(t, s, "length")
	params, err := s.FunctionParamsOf(fn.ID)
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "s", params[0].Name)
	assert.Equal(t, "scale", params[1].Name)
	assert.Equal(t, "1.0", params[1].Default)
}

func TestExport_AnnotationsAndDiagnostics(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := buildArena(t, shapes())
	require.NoError(t, Export(context.Background(), s, a))

	y := entityNamed(t, s, "Point::y")
	dirs, err := s.DirectivesOf(y.ID)
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	assert.Equal(t, "ignore-field", dirs[0].Name)
	assert.True(t, dirs[0].Known)

	ids, err := s.EntitiesWithDirective("ignore-field")
	require.NoError(t, err)
	assert.Equal(t, []int64{y.ID}, ids)

	tag := entityNamed(t, s, "Segment::tag")
	attrs, err := s.AttributesOf(tag.ID)
	require.NoError(t, err)
	require.Len(t, attrs, 1)
	assert.Equal(t, "deprecated", attrs[0].Name)
	assert.Equal(t, []string{`"old"`}, attrs[0].Arguments)

	diags, err := s.Diagnostics()
	require.NoError(t, err)
	var unresolved int
	for _, d := range diags {
		if d.Code == model.UnresolvedReference.String() {
			unresolved++
		}
	}
	assert.Equal(t, a.Diags.Count(model.UnresolvedReference), unresolved)
	assert.Positive(t, unresolved)

	refs, err := s.ReferencesByStatus(model.RefUnknown.String())
	require.NoError(t, err)
	require.NotEmpty(t, refs)
	for _, r := range refs {
		assert.Nil(t, r.TargetID)
	}
}

func TestExport_FilesAndFingerprint(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := buildArena(t, shapes())
	require.NoError(t, Export(context.Background(), s, a))

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.h", files[0].Path)
	assert.Equal(t, "Shapes library", files[0].Preamble)

	want, err := a.Fingerprint()
	require.NoError(t, err)
	got, err := s.GetMetadata(MetaFingerprint)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestExport_ReplacesPreviousModel(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, Export(ctx, s, buildArena(t, shapes())))
	first, err := s.CountRows("entities")
	require.NoError(t, err)

	require.NoError(t, Export(ctx, s, buildArena(t, shapes())))
	second, err := s.CountRows("entities")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExport_Cancelled(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Export(ctx, s, buildArena(t, shapes()))
	require.ErrorIs(t, err, context.Canceled)

	n, err := s.CountRows("entities")
	require.NoError(t, err)
	assert.Zero(t, n)
}

// =============================================================================
// Signature hash
// =============================================================================

func TestComputeSignatureHash(t *testing.T) {
	t.Parallel()
	params := []*FunctionParam{{Ordinal: 0, Name: "a", TypeExpr: "int"}}
	h1 := ComputeSignatureHash("function", "f", []string{"nodiscard", "deprecated"}, nil, params, nil)
	h2 := ComputeSignatureHash("function", "f", []string{"deprecated", "nodiscard"}, nil, params, nil)
	assert.Equal(t, h1, h2, "attribute order does not matter")

	renamed := []*FunctionParam{{Ordinal: 0, Name: "b", TypeExpr: "int"}}
	assert.Equal(t, h1, ComputeSignatureHash("function", "f", []string{"nodiscard", "deprecated"}, nil, renamed, nil),
		"parameter names do not matter")

	retyped := []*FunctionParam{{Ordinal: 0, Name: "a", TypeExpr: "long"}}
	assert.NotEqual(t, h1, ComputeSignatureHash("function", "f", []string{"nodiscard", "deprecated"}, nil, retyped, nil))
	assert.NotEqual(t, h1, ComputeSignatureHash("function", "g", []string{"nodiscard", "deprecated"}, nil, params, nil))
}

func TestExport_SignatureHashIgnoresLocation(t *testing.T) {
	t.Parallel()
	moved := shapes()
	moved.Nodes[0].Span.StartLine = 30
	moved.Nodes[0].Span.EndLine = 33

	s1, s2 := newTestStore(t), newTestStore(t)
	ctx := context.Background()
	require.NoError(t, Export(ctx, s1, buildArena(t, shapes())))
	require.NoError(t, Export(ctx, s2, buildArena(t, moved)))

	assert.Equal(t, entityNamed(t, s1, "Point").SignatureHash, entityNamed(t, s2, "Point").SignatureHash)
}
