package model

import "slices"

// Attribute is one entry of a C++ attribute list.
type Attribute struct {
	Namespace string
	Name      string
	// Arguments is nil when the attribute has no argument clause and empty
	// for "name()".
	Arguments []string
}

// Key returns the namespaced identifier, e.g. "devana::ignore-field".
func (a Attribute) Key() string {
	if a.Namespace == "" {
		return a.Name
	}
	return a.Namespace + "::" + a.Name
}

func (a Attribute) Clone() Attribute {
	c := a
	if a.Arguments != nil {
		c.Arguments = slices.Clone(a.Arguments)
	}
	return c
}

// Directive is a tool instruction parsed from a documentation comment.
type Directive struct {
	Name     string
	Value    string
	HasValue bool
	// Known is false for directives this version does not interpret; they
	// are kept for forward compatibility.
	Known bool
}
