// Package syntax holds the node stream exchanged with the C++ front end and
// the adapter that normalizes it before the model is built.
package syntax

import "fmt"

// Span is a source range. Lines and columns are 1-based.
type Span struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// IsZero reports whether the span carries no position.
func (s Span) IsZero() bool {
	return s.StartLine == 0 && s.EndLine == 0
}

// Before reports whether s starts before o in document order.
func (s Span) Before(o Span) bool {
	if s.StartLine != o.StartLine {
		return s.StartLine < o.StartLine
	}
	return s.StartCol < o.StartCol
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.StartLine, s.StartCol)
}

// Param is a function parameter as spelled in source.
type Param struct {
	Name    string
	Type    string
	Default string
}

// TemplateParam is one entry of a template parameter list.
type TemplateParam struct {
	Name      string
	Kind      string // "type", "non-type" or "template"
	Specifier string // "class" or "typename" for type parameters
	Type      string // declared type of a non-type parameter
	Default   string
	Variadic  bool
}

// Base is a base-class specifier.
type Base struct {
	Name    string
	Access  string
	Virtual bool
}

// RawNode is one cursor as delivered by the front end. Kind is the front
// end's spelling of the node kind (see Kind.String for the vocabulary).
type RawNode struct {
	Kind            string
	Spelling        string
	AttributeTokens []string
	CommentText     string
	TrailingComment string
	Span            Span
	Children        []*RawNode

	// Declared type, return type, alias target or enum underlying type.
	Type string
	// Initializer, enumerator value or concept constraint expression.
	Value          string
	Params         []Param
	TemplateParams []TemplateParam
	// Argument pattern of a specialization, one entry per argument.
	TemplateArgs []string
	Bases        []Base
	Access       string
	Qualifiers   []string
	IsDefinition bool
	Linkage      string
}

// Comment is a comment token with its position.
type Comment struct {
	Span  Span
	Text  string
	Block bool
}

// Unit is the front end's output for one translation unit.
type Unit struct {
	Path     string
	Nodes    []*RawNode
	Comments []Comment
	// Source is the text the unit was parsed from, when the front end
	// kept it.
	Source []byte
}

// Node is the normalized form of a RawNode.
type Node struct {
	Kind    Kind
	RawKind string
	Name    string
	Span    Span

	// Attributes holds the body of each attribute list, without the
	// surrounding brackets, in source order.
	Attributes      []string
	Comment         string
	TrailingComment string
	Children        []*Node

	Type           string
	Value          string
	Params         []Param
	TemplateParams []TemplateParam
	TemplateArgs   []string
	Bases          []Base
	Access         string
	Qualifiers     []string
	IsDefinition   bool
	Linkage        string
}

// Has reports whether the node carries the given qualifier.
func (n *Node) Has(qualifier string) bool {
	for _, q := range n.Qualifiers {
		if q == qualifier {
			return true
		}
	}
	return false
}

// File is the normalized form of a Unit.
type File struct {
	Path     string
	Nodes    []*Node
	Comments []Comment
}
