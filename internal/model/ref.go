package model

import "strings"

// RefContext says what kind of entity a reference expects.
type RefContext uint8

const (
	RefAny RefContext = iota
	RefType
	RefNamespace
	RefBase
	RefValue
	// RefTemplate only accepts templates; used to attach specializations.
	RefTemplate
)

func (c RefContext) String() string {
	switch c {
	case RefType:
		return "type"
	case RefNamespace:
		return "namespace"
	case RefBase:
		return "base"
	case RefValue:
		return "value"
	case RefTemplate:
		return "template"
	default:
		return "any"
	}
}

// RefStatus is the outcome of resolving a reference.
type RefStatus uint8

const (
	RefUnresolved RefStatus = iota
	RefResolved
	RefUnknown
	RefAmbiguous
	RefCyclic
	// RefDependent: the name starts with a template parameter and cannot
	// be looked up before instantiation.
	RefDependent
)

func (s RefStatus) String() string {
	switch s {
	case RefResolved:
		return "resolved"
	case RefUnknown:
		return "unknown"
	case RefAmbiguous:
		return "ambiguous"
	case RefCyclic:
		return "cyclic"
	case RefDependent:
		return "dependent"
	default:
		return "unresolved"
	}
}

// Segment is one "::"-separated component of a name, with its template
// argument list when written as a template-id.
type Segment struct {
	Name    string
	Args    []*TypeExpr
	HasArgs bool
}

// NameRef is a name occurring in a signature, base specifier, alias target
// or using-directive, pending resolution.
type NameRef struct {
	Segments []Segment
	// Global is set for names written with a leading "::".
	Global  bool
	Scope   ID
	Owner   ID
	Context RefContext

	Status RefStatus
	// Target is the resolved entity; UnknownID when resolution failed.
	Target ID
	// Declared is the entity lookup found before alias transparency was
	// applied. Equal to Target when no alias was involved.
	Declared   ID
	Candidates []ID
	// Dependent is set by the parser for names such as "T::type".
	Dependent bool
	// Instance is the selected definition when the last segment names a
	// template with arguments.
	Instance *Instance
}

// ParseName splits a qualified name such as "::a::b<int>::c" into a
// reference. Template arguments are parsed as type arguments.
func ParseName(text string) *NameRef {
	t := ParseType(text, nil)
	if t != nil && t.Kind == TypeNamed && t.Ref != nil {
		return t.Ref
	}
	return &NameRef{Segments: []Segment{{Name: strings.TrimSpace(text)}}}
}

// Last returns the final segment.
func (r *NameRef) Last() Segment {
	if len(r.Segments) == 0 {
		return Segment{}
	}
	return r.Segments[len(r.Segments)-1]
}

// Qualified reports whether the name has more than one segment or a
// leading "::".
func (r *NameRef) Qualified() bool {
	return r.Global || len(r.Segments) > 1
}

func (r *NameRef) String() string {
	var b strings.Builder
	if r.Global {
		b.WriteString("::")
	}
	for i, s := range r.Segments {
		if i > 0 {
			b.WriteString("::")
		}
		b.WriteString(s.Name)
		if s.HasArgs {
			b.WriteString(argsString(s.Args))
		}
	}
	return b.String()
}

func argsString(args []*TypeExpr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

// Resolved reports whether resolution found an entity.
func (r *NameRef) Resolved() bool {
	return r.Status == RefResolved
}
