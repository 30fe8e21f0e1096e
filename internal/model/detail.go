package model

import "github.com/jward/devana/internal/syntax"

// Detail is the closed set of per-kind payloads. Consumers switch over the
// concrete types; the unexported method keeps the set closed.
type Detail interface {
	isDetail()
}

type NamespaceInfo struct {
	Inline    bool
	Scope     *Scope
	Fragments []syntax.Span
}

// ClassInfo describes classes, structs and unions.
type ClassInfo struct {
	Keyword string // "class", "struct" or "union"
	Defined bool
	Final   bool
	Bases   []Base
	Access  string
	Scope   *Scope
}

// DefaultAccess is the access of members declared before any specifier.
func (c *ClassInfo) DefaultAccess() string {
	if c.Keyword == "class" {
		return "private"
	}
	return "public"
}

type Base struct {
	Type    *TypeExpr
	Access  string
	Virtual bool
}

type EnumInfo struct {
	Scoped     bool
	Keyword    string // "enum", "enum class" or "enum struct"
	Underlying *TypeExpr
	Defined    bool
	Access     string
	Scope      *Scope
}

type FunctionInfo struct {
	Return *TypeExpr
	Params []Param

	Method     bool
	HasBody    bool
	Static     bool
	Virtual    bool
	Pure       bool
	Const      bool
	Deleted    bool
	Defaulted  bool
	Inline     bool
	Constexpr  bool
	Noexcept   bool
	Variadic   bool
	Ctor, Dtor bool
	Access     string
	Linkage    string

	// Qualifier names the class or namespace of an out-of-line definition
	// such as "void A::f() {}". Nil for ordinary declarations.
	Qualifier *NameRef
	// TemplateArgs holds the explicit argument list of a function template
	// specialization ("f<int>").
	TemplateArgs []*TypeExpr
}

type Param struct {
	Name    string
	Type    *TypeExpr
	Default string
}

type VariableInfo struct {
	Type       *TypeExpr
	Value      string
	Field      bool
	Enumerator bool
	Static     bool
	Constexpr  bool
	Mutable    bool
	Access     string
	Linkage    string

	// Qualifier names the class of an out-of-line static member
	// definition such as "int A::count = 0;".
	Qualifier *NameRef
}

// AliasForm distinguishes the three alias spellings.
type AliasForm uint8

const (
	AliasTypedef AliasForm = iota
	AliasUsing
	AliasUsingDeclaration
)

func (f AliasForm) String() string {
	switch f {
	case AliasTypedef:
		return "typedef"
	case AliasUsing:
		return "using"
	default:
		return "using-declaration"
	}
}

type AliasInfo struct {
	Form AliasForm
	// Target is the aliased type of typedef and alias declarations.
	Target *TypeExpr
	// Ref is the named entity of a using-declaration.
	Ref    *NameRef
	Access string

	// Resolved is the entity the alias stands for after resolution; None
	// when the target is not an entity (builtins, pointers).
	Resolved ID
	// Targets lists the whole overload set of a using-declaration.
	Targets []ID
}

type TemplateInfo struct {
	Params          []TemplateParam
	Primary         ID
	Specializations []Specialization
}

// Variadic reports whether the last parameter is a pack.
func (t *TemplateInfo) Variadic() bool {
	return len(t.Params) > 0 && t.Params[len(t.Params)-1].Variadic
}

type ParamKind uint8

const (
	ParamType ParamKind = iota
	ParamNonType
	ParamTemplate
)

func (k ParamKind) String() string {
	switch k {
	case ParamType:
		return "type"
	case ParamNonType:
		return "non-type"
	default:
		return "template"
	}
}

type TemplateParam struct {
	Name      string
	Kind      ParamKind
	Specifier string
	Type      *TypeExpr
	Default   string
	// DefaultType is Default parsed as a type argument.
	DefaultType *TypeExpr
	Variadic    bool
}

type Specialization struct {
	Pattern  []*TypeExpr
	Params   []TemplateParam
	Explicit bool
	Body     ID
	Span     syntax.Span
}

type ConceptInfo struct {
	Params       []TemplateParam
	Constraint   string
	Requirements []Requirement
}

type RequirementKind uint8

const (
	RequireSimple RequirementKind = iota
	RequireType
	RequireCompound
	RequireNested
)

func (k RequirementKind) String() string {
	switch k {
	case RequireSimple:
		return "simple"
	case RequireType:
		return "type"
	case RequireCompound:
		return "compound"
	default:
		return "nested"
	}
}

type Requirement struct {
	Kind RequirementKind
	Text string
	// ReturnConstraint is the type-constraint after "->" of a compound
	// requirement.
	ReturnConstraint string
	Noexcept         bool
}

// UnmodeledInfo wraps a construct the model does not understand.
type UnmodeledInfo struct {
	RawKind string
}

type UnknownInfo struct{}

func (*NamespaceInfo) isDetail() {}
func (*ClassInfo) isDetail()     {}
func (*EnumInfo) isDetail()      {}
func (*FunctionInfo) isDetail()  {}
func (*VariableInfo) isDetail()  {}
func (*AliasInfo) isDetail()     {}
func (*TemplateInfo) isDetail()  {}
func (*ConceptInfo) isDetail()   {}
func (*UnmodeledInfo) isDetail() {}
func (*UnknownInfo) isDetail()   {}
