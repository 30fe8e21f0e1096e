package model

import (
	"fmt"
	"strings"
)

// TypeKind is the shape of a type expression node.
type TypeKind uint8

const (
	// TypeUnknown keeps text the parser could not structure.
	TypeUnknown TypeKind = iota
	TypeBuiltin
	TypeNamed
	TypePointer
	TypeLValueRef
	TypeRValueRef
	TypeArray
	// TypePlaceholder stands for a template parameter.
	TypePlaceholder
	// TypeValue is a non-type template argument.
	TypeValue
)

func (k TypeKind) String() string {
	switch k {
	case TypeBuiltin:
		return "builtin"
	case TypeNamed:
		return "named"
	case TypePointer:
		return "pointer"
	case TypeLValueRef:
		return "lvalue-ref"
	case TypeRValueRef:
		return "rvalue-ref"
	case TypeArray:
		return "array"
	case TypePlaceholder:
		return "placeholder"
	case TypeValue:
		return "value"
	default:
		return "unknown"
	}
}

// TypeExpr is a structured C++ type-id or template argument.
type TypeExpr struct {
	Kind     TypeKind
	Const    bool
	Volatile bool
	// Name is the builtin spelling, placeholder name, value text or, for
	// TypeUnknown, the original text.
	Name string
	Ref  *NameRef
	Elem *TypeExpr
	// Extent is the array bound text.
	Extent string
	// Param is the template parameter index of a placeholder.
	Param int
	Pack  bool
}

// IsReference reports whether t is an lvalue or rvalue reference.
func (t *TypeExpr) IsReference() bool {
	return t != nil && (t.Kind == TypeLValueRef || t.Kind == TypeRValueRef)
}

func (t *TypeExpr) String() string {
	if t == nil {
		return ""
	}
	var s string
	switch t.Kind {
	case TypeBuiltin, TypePlaceholder:
		s = cvPrefix(t) + t.Name
	case TypeNamed:
		s = cvPrefix(t) + t.Ref.String()
	case TypePointer:
		s = t.Elem.String() + "*"
		if t.Const {
			s += " const"
		}
		if t.Volatile {
			s += " volatile"
		}
	case TypeLValueRef:
		s = t.Elem.String() + "&"
	case TypeRValueRef:
		s = t.Elem.String() + "&&"
	case TypeArray:
		s = t.Elem.String() + "[" + t.Extent + "]"
	default:
		s = t.Name
	}
	if t.Pack {
		s += "..."
	}
	return s
}

func cvPrefix(t *TypeExpr) string {
	p := ""
	if t.Const {
		p += "const "
	}
	if t.Volatile {
		p += "volatile "
	}
	return p
}

// Key is a structural identity string. Resolved names are keyed by entity
// ID so that differently spelled references to one entity compare equal.
func (t *TypeExpr) Key() string {
	if t == nil {
		return "-"
	}
	cv := ""
	if t.Const {
		cv += "c"
	}
	if t.Volatile {
		cv += "v"
	}
	pack := ""
	if t.Pack {
		pack = "..."
	}
	switch t.Kind {
	case TypeBuiltin:
		return cv + "B(" + t.Name + ")" + pack
	case TypePlaceholder:
		return fmt.Sprintf("%s$%d%s", cv, t.Param, pack)
	case TypeValue:
		return "V(" + t.Name + ")" + pack
	case TypeNamed:
		return cv + refKey(t.Ref) + pack
	case TypePointer:
		return cv + "P(" + t.Elem.Key() + ")" + pack
	case TypeLValueRef:
		return "L(" + t.Elem.Key() + ")" + pack
	case TypeRValueRef:
		return "R(" + t.Elem.Key() + ")" + pack
	case TypeArray:
		return "A[" + t.Extent + "](" + t.Elem.Key() + ")" + pack
	default:
		return "U(" + t.Name + ")" + pack
	}
}

func refKey(r *NameRef) string {
	if r == nil {
		return "N()"
	}
	var b strings.Builder
	if r.Status == RefResolved && r.Target != None {
		fmt.Fprintf(&b, "E%d", r.Target)
	} else {
		b.WriteString("N(" + r.String() + ")")
		return b.String()
	}
	last := r.Last()
	if last.HasArgs {
		b.WriteString(ArgsKey(last.Args))
	}
	return b.String()
}

// ArgsKey keys an argument list.
func ArgsKey(args []*TypeExpr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Key()
	}
	return "<" + strings.Join(parts, ",") + ">"
}

// ArgsText renders an argument list as written, e.g. "<int*, T>".
func ArgsText(args []*TypeExpr) string {
	return argsString(args)
}

// Refs returns every name reference in t, outermost first.
func (t *TypeExpr) Refs() []*NameRef {
	var out []*NameRef
	t.walk(func(n *TypeExpr) {
		if n.Kind == TypeNamed && n.Ref != nil {
			out = append(out, n.Ref)
		}
	})
	return out
}

// HasPlaceholders reports whether t mentions any template parameter.
func (t *TypeExpr) HasPlaceholders() bool {
	found := false
	t.walk(func(n *TypeExpr) {
		if n.Kind == TypePlaceholder {
			found = true
		}
	})
	return found
}

func (t *TypeExpr) walk(fn func(*TypeExpr)) {
	if t == nil {
		return
	}
	fn(t)
	t.Elem.walk(fn)
	if t.Ref != nil {
		for _, s := range t.Ref.Segments {
			for _, a := range s.Args {
				a.walk(fn)
			}
		}
	}
}

// Clone deep-copies t. Name references are copied too, so the clone can be
// resolved independently.
func (t *TypeExpr) Clone() *TypeExpr {
	if t == nil {
		return nil
	}
	c := *t
	c.Elem = t.Elem.Clone()
	if t.Ref != nil {
		r := *t.Ref
		r.Segments = make([]Segment, len(t.Ref.Segments))
		for i, s := range t.Ref.Segments {
			r.Segments[i] = Segment{Name: s.Name, HasArgs: s.HasArgs, Args: CloneAll(s.Args)}
		}
		r.Candidates = append([]ID(nil), t.Ref.Candidates...)
		c.Ref = &r
	}
	return &c
}

// CloneAll clones every element of ts.
func CloneAll(ts []*TypeExpr) []*TypeExpr {
	if ts == nil {
		return nil
	}
	out := make([]*TypeExpr, len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
	}
	return out
}

// Strip returns t without top-level cv-qualification.
func (t *TypeExpr) Strip() *TypeExpr {
	if t == nil || (!t.Const && !t.Volatile) {
		return t
	}
	c := *t
	c.Const, c.Volatile = false, false
	return &c
}

// Target returns the entity a named type resolved to, or None.
func (t *TypeExpr) Target() ID {
	if t == nil || t.Kind != TypeNamed || t.Ref == nil || t.Ref.Status != RefResolved {
		return None
	}
	return t.Ref.Target
}
