package build

import (
	"strings"

	"github.com/jward/devana/internal/model"
)

// signature is the identity of a function among its overloads: parameter
// types with top-level cv dropped from non-reference parameters, the
// method's const qualifier and the variadic ellipsis. Return type and
// parameter names do not take part. Qualifiers naming scope (or a tail
// of its path) are dropped from named types; see typeKey.
func signature(info *model.FunctionInfo, scope []string) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range info.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		t := p.Type
		if !t.IsReference() {
			t = t.Strip()
		}
		b.WriteString(typeKey(t, scope))
	}
	if info.Variadic {
		b.WriteString(",...")
	}
	b.WriteByte(')')
	if info.Const {
		b.WriteString("const")
	}
	if len(info.TemplateArgs) > 0 {
		b.WriteByte('<')
		for i, a := range info.TemplateArgs {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(typeKey(a, scope))
		}
		b.WriteByte('>')
	}
	return b.String()
}

// typeKey is TypeExpr.Key over spelled names, since merging runs before
// names are resolved. A qualifier that names scope is dropped, so an
// out-of-line definition spelling "A::Inner" matches the in-class
// declaration spelling "Inner" when scope is A's path. With a nil scope
// every qualifier is kept.
func typeKey(t *model.TypeExpr, scope []string) string {
	if t == nil {
		return "-"
	}
	if t.Kind != model.TypeNamed || t.Ref == nil {
		if t.Elem == nil {
			return t.Key()
		}
		c := *t
		c.Elem = &model.TypeExpr{Kind: model.TypeUnknown, Name: typeKey(t.Elem, scope)}
		return c.Key()
	}
	var b strings.Builder
	if t.Const {
		b.WriteString("c")
	}
	if t.Volatile {
		b.WriteString("v")
	}
	b.WriteString("N(")
	segs := t.Ref.Segments
	if n := len(segs) - 1; n > 0 && namesScope(segs[:n], t.Ref.Global, scope) {
		segs = segs[n:]
	} else if t.Ref.Global {
		b.WriteString("::")
	}
	for i, seg := range segs {
		if i > 0 {
			b.WriteString("::")
		}
		b.WriteString(seg.Name)
		if seg.HasArgs {
			b.WriteByte('<')
			for j, a := range seg.Args {
				if j > 0 {
					b.WriteByte(',')
				}
				b.WriteString(typeKey(a, scope))
			}
			b.WriteByte('>')
		}
	}
	b.WriteByte(')')
	if t.Pack {
		b.WriteString("...")
	}
	return b.String()
}

// namesScope reports whether quals spell scope: its trailing components,
// or all of it for a "::"-qualified name.
func namesScope(quals []model.Segment, global bool, scope []string) bool {
	if len(scope) == 0 || len(quals) > len(scope) || (global && len(quals) != len(scope)) {
		return false
	}
	tail := scope[len(scope)-len(quals):]
	for i, q := range quals {
		if q.Name != tail[i] {
			return false
		}
	}
	return true
}

// identity groups declarations that may denote the same entity: same kind
// and name, and for functions the same signature. scope is passed through
// to signature.
func identity(a *model.Arena, e *model.Entity, scope []string) (string, bool) {
	if e.Name == "" {
		return "", false
	}
	key := e.Kind.String() + ":" + e.Name
	switch d := e.Detail.(type) {
	case *model.FunctionInfo:
		return key + signature(d, scope), true
	case *model.TemplateInfo:
		p := a.Get(d.Primary)
		if p == nil {
			return "", false
		}
		key += "/" + p.Kind.String()
		if fn, ok := p.Detail.(*model.FunctionInfo); ok {
			key += signature(fn, scope)
			for _, tp := range d.Params {
				key += "," + tp.Kind.String()
				if tp.Variadic {
					key += "..."
				}
			}
		}
		return key, true
	case *model.NamespaceInfo, *model.UnmodeledInfo, *model.UnknownInfo:
		return "", false
	}
	return key, true
}
