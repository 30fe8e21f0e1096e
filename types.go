package devana

import (
	"github.com/jward/devana/internal/model"
	"github.com/jward/devana/internal/syntax"
)

// Public type aliases for the internal model types returned by Model.
// These are Go type aliases (=), identical to the internal types at compile
// time. External consumers use these names; no conversion is needed.

type ID = model.ID
type Kind = model.Kind
type Entity = model.Entity
type Attribute = model.Attribute
type Directive = model.Directive
type Diagnostic = model.Diagnostic
type Code = model.Code
type Instance = model.Instance
type Binding = model.Binding
type Specialization = model.Specialization
type TypeExpr = model.TypeExpr
type NameRef = model.NameRef
type StructuralError = model.StructuralError

type Unit = syntax.Unit
type RawNode = syntax.RawNode
type Span = syntax.Span

// Well-known entity IDs.
const (
	RootID    = model.RootID
	UnknownID = model.UnknownID
)

// Entity kinds.
const (
	KindNamespace    = model.KindNamespace
	KindClass        = model.KindClass
	KindUnion        = model.KindUnion
	KindEnum         = model.KindEnum
	KindFunction     = model.KindFunction
	KindVariable     = model.KindVariable
	KindTypedefAlias = model.KindTypedefAlias
	KindTemplate     = model.KindTemplate
	KindConcept      = model.KindConcept
	KindUnmodeled    = model.KindUnmodeled
)

// Diagnostic codes.
const (
	UnresolvedReference     = model.UnresolvedReference
	AmbiguousReference      = model.AmbiguousReference
	AmbiguousSpecialization = model.AmbiguousSpecialization
	DuplicateDefinition     = model.DuplicateDefinition
	UnsupportedConstruct    = model.UnsupportedConstruct
	MalformedDirective      = model.MalformedDirective
)
