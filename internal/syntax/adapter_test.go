package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptKind(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want Kind
	}{
		{"Struct", Struct},
		{"struct", Struct},
		{"STRUCT_DECL", Struct},
		{"CXX_METHOD", Method},
		{"CLASS_TEMPLATE_PARTIAL_SPECIALIZATION", Specialization},
		{"ENUM_CONSTANT_DECL", Variable},
		{"friend_declaration", Unknown},
		{"", Unknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, adaptKind(tt.in), tt.in)
	}
}

func TestParseKind_RoundTrip(t *testing.T) {
	t.Parallel()
	for k := Unknown; k <= ExternBlock; k++ {
		got, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}
	_, ok := ParseKind("Nope")
	assert.False(t, ok)
	assert.Equal(t, "Unknown", Kind(200).String())
}

func TestAdapt_NormalizesNodes(t *testing.T) {
	t.Parallel()
	u := &Unit{
		Path: "a.hpp",
		Nodes: []*RawNode{
			nil,
			{
				Kind:            "CLASS_DECL",
				Spelling:        " outer :: Inner ",
				AttributeTokens: []string{"[[nodiscard]] [[deprecated(\"x\")]]", "__attribute__((packed))", "  "},
				Access:          " Public ",
				Linkage:         `"C"`,
				TemplateArgs:    []string{" int ", "T *"},
				Bases:           []Base{{Name: "ns :: Base", Access: "public"}},
				Span:            Span{StartLine: 3, StartCol: 1},
				Children: []*RawNode{
					{Kind: "FIELD_DECL", Spelling: "x", Type: " int "},
					nil,
				},
			},
		},
		Comments: []Comment{
			{Span: Span{StartLine: 5, StartCol: 1}, Text: "// later"},
			{Span: Span{StartLine: 1, StartCol: 1}, Text: "// first"},
		},
	}

	f := Adapt(u)
	assert.Equal(t, "a.hpp", f.Path)
	require.Len(t, f.Nodes, 1)

	n := f.Nodes[0]
	assert.Equal(t, Class, n.Kind)
	assert.Equal(t, "CLASS_DECL", n.RawKind)
	assert.Equal(t, "outer::Inner", n.Name)
	assert.Equal(t, []string{"nodiscard", `deprecated("x")`, "packed"}, n.Attributes)
	assert.Equal(t, "public", n.Access)
	assert.Equal(t, "C", n.Linkage)
	assert.Equal(t, []string{"int", "T *"}, n.TemplateArgs)
	assert.Equal(t, "ns::Base", n.Bases[0].Name)
	assert.Equal(t, Span{File: "a.hpp", StartLine: 3, StartCol: 1, EndLine: 3, EndCol: 1}, n.Span)

	require.Len(t, n.Children, 1)
	assert.Equal(t, Field, n.Children[0].Kind)
	assert.Equal(t, "int", n.Children[0].Type)
	assert.Equal(t, "a.hpp", n.Children[0].Span.File)

	require.Len(t, f.Comments, 2)
	assert.Equal(t, "// first", f.Comments[0].Text)
	assert.Equal(t, "a.hpp", f.Comments[0].Span.File)
}

func TestSpan(t *testing.T) {
	t.Parallel()
	a := Span{File: "a.hpp", StartLine: 2, StartCol: 5}
	b := Span{File: "a.hpp", StartLine: 2, StartCol: 9}
	c := Span{File: "a.hpp", StartLine: 3, StartCol: 1}

	assert.True(t, a.Before(b))
	assert.True(t, b.Before(c))
	assert.False(t, c.Before(a))
	assert.True(t, Span{}.IsZero())
	assert.False(t, a.IsZero())
	assert.Equal(t, "a.hpp:2:5", a.String())
}

func TestNodeHas(t *testing.T) {
	t.Parallel()
	n := &Node{Qualifiers: []string{"const", "static"}}
	assert.True(t, n.Has("static"))
	assert.False(t, n.Has("virtual"))
	assert.True(t, Struct.IsRecord())
	assert.False(t, Enum.IsRecord())
	assert.True(t, EnumClass.IsEnum())
}
