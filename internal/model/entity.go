// Package model is the semantic model of a C++ translation unit: an arena
// of entities addressed by ID, the scopes that own them, type expressions,
// name references and the diagnostics raised while building them.
//
// Entities are mutable while the pipeline runs and become read-only once
// the arena is sealed.
package model

import (
	"slices"

	"github.com/jward/devana/internal/syntax"
)

// ID addresses an entity in an Arena. The zero ID refers to nothing.
type ID int32

const (
	None ID = 0
	// RootID is the global namespace.
	RootID ID = 1
	// UnknownID is the placeholder every failed resolution points at.
	UnknownID ID = 2
)

// Kind is the entity variant tag.
type Kind uint8

const (
	KindNamespace Kind = iota
	KindClass
	KindUnion
	KindEnum
	KindFunction
	KindVariable
	KindTypedefAlias
	KindTemplate
	KindConcept
	KindUnmodeled
	KindUnknown
)

var entityKindNames = [...]string{
	KindNamespace:    "namespace",
	KindClass:        "class",
	KindUnion:        "union",
	KindEnum:         "enum",
	KindFunction:     "function",
	KindVariable:     "variable",
	KindTypedefAlias: "alias",
	KindTemplate:     "template",
	KindConcept:      "concept",
	KindUnmodeled:    "unmodeled",
	KindUnknown:      "unknown",
}

func (k Kind) String() string {
	if int(k) < len(entityKindNames) {
		return entityKindNames[k]
	}
	return "unknown"
}

// ParseEntityKind is the inverse of Kind.String.
func ParseEntityKind(s string) (Kind, bool) {
	for k, n := range entityKindNames {
		if n == s {
			return Kind(k), true
		}
	}
	return KindUnknown, false
}

// IsType reports whether entities of this kind can appear in a type position.
func (k Kind) IsType() bool {
	switch k {
	case KindClass, KindUnion, KindEnum, KindTypedefAlias, KindTemplate:
		return true
	}
	return false
}

// HasScope reports whether entities of this kind own a Scope.
func (k Kind) HasScope() bool {
	switch k {
	case KindNamespace, KindClass, KindUnion, KindEnum:
		return true
	}
	return false
}

// Entity is one modeled declaration.
type Entity struct {
	ID   ID
	Kind Kind
	// Name is empty for anonymous entities; Internal then holds a
	// synthesized name that lookup never sees.
	Name     string
	Internal string
	// Path lists the names of the enclosing scopes from the root down.
	Path  []string
	Owner ID
	Span  syntax.Span

	Attributes []Attribute
	Directives []Directive
	Doc        string

	Detail Detail

	// Raw holds the unparsed annotation inputs gathered by the builder and
	// merger; the binder turns them into Attributes, Directives and Doc.
	Raw RawAnnotations
}

// RawAnnotations are the annotation inputs of every cursor that
// contributed to an entity, in source order.
type RawAnnotations struct {
	Attributes []string
	Comments   []string
	Trailing   []string
	Spans      []syntax.Span
}

// ScopeName is the name this entity contributes to a qualified path.
func (e *Entity) ScopeName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Internal
}

// QualifiedName joins Path and Name with "::". Anonymous path components
// are kept so that the result stays unique.
func (e *Entity) QualifiedName() string {
	out := ""
	for _, p := range e.Path {
		out += p + "::"
	}
	return out + e.ScopeName()
}

// Anonymous reports whether the entity has no source name.
func (e *Entity) Anonymous() bool {
	return e.Name == "" && e.ID != RootID
}

// Scope returns the scope the entity owns, or nil.
func (e *Entity) Scope() *Scope {
	switch d := e.Detail.(type) {
	case *NamespaceInfo:
		return d.Scope
	case *ClassInfo:
		return d.Scope
	case *EnumInfo:
		return d.Scope
	}
	return nil
}

// Clone returns a copy whose slices do not alias e.
func (e *Entity) Clone() Entity {
	c := *e
	c.Path = slices.Clone(e.Path)
	c.Attributes = make([]Attribute, len(e.Attributes))
	for i, a := range e.Attributes {
		c.Attributes[i] = a.Clone()
	}
	c.Directives = slices.Clone(e.Directives)
	c.Raw = RawAnnotations{
		Attributes: slices.Clone(e.Raw.Attributes),
		Comments:   slices.Clone(e.Raw.Comments),
		Trailing:   slices.Clone(e.Raw.Trailing),
		Spans:      slices.Clone(e.Raw.Spans),
	}
	return c
}

// HasDirective reports whether a directive with the given name is attached.
func (e *Entity) HasDirective(name string) bool {
	for _, d := range e.Directives {
		if d.Name == name {
			return true
		}
	}
	return false
}

// Directive returns the first directive with the given name.
func (e *Entity) Directive(name string) (Directive, bool) {
	for _, d := range e.Directives {
		if d.Name == name {
			return d, true
		}
	}
	return Directive{}, false
}
