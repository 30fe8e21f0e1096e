package resolve

import (
	"fmt"

	"github.com/jward/devana/internal/model"
)

// bindings maps a specialization parameter index to the arguments it
// deduced; packs bind any number of values.
type bindings map[int][]*model.TypeExpr

func (b bindings) export(params []model.TemplateParam) []model.Binding {
	out := make([]model.Binding, 0, len(params))
	for i, p := range params {
		out = append(out, model.Binding{Name: p.Name, Values: b[i], Pack: p.Variadic})
	}
	return out
}

// canonical returns t with its names resolved and aliases of non-entity
// types replaced by what they stand for, so that structurally equal
// arguments have equal keys. t itself is not modified.
func (r *Resolver) canonical(t *model.TypeExpr) *model.TypeExpr {
	return r.canon(t, 0)
}

func (r *Resolver) canonicalAll(ts []*model.TypeExpr) []*model.TypeExpr {
	out := make([]*model.TypeExpr, len(ts))
	for i, t := range ts {
		out[i] = r.canonical(t)
	}
	return out
}

func (r *Resolver) canon(t *model.TypeExpr, depth int) *model.TypeExpr {
	if t == nil || depth > 32 {
		return t
	}
	switch t.Kind {
	case model.TypeNamed:
		if t.Ref == nil {
			return t
		}
		if !r.refBusy[t.Ref] {
			r.resolve(t.Ref)
		}
		if t.Ref.Resolved() {
			if e := r.arena.Get(t.Ref.Target); e.Kind == model.KindTypedefAlias {
				if d := e.Detail.(*model.AliasInfo); d.Target != nil && d.Form != model.AliasUsingDeclaration {
					inner := *r.canon(d.Target, depth+1)
					inner.Const = inner.Const || t.Const
					inner.Volatile = inner.Volatile || t.Volatile
					inner.Pack = t.Pack
					return &inner
				}
			}
		}
		c := *t
		ref := *t.Ref
		ref.Segments = make([]model.Segment, len(t.Ref.Segments))
		for i, s := range t.Ref.Segments {
			args := make([]*model.TypeExpr, len(s.Args))
			for j, a := range s.Args {
				args[j] = r.canon(a, depth+1)
			}
			ref.Segments[i] = model.Segment{Name: s.Name, HasArgs: s.HasArgs, Args: args}
		}
		c.Ref = &ref
		return &c
	case model.TypePointer, model.TypeLValueRef, model.TypeRValueRef, model.TypeArray:
		c := *t
		c.Elem = r.canon(t.Elem, depth+1)
		return &c
	}
	return t
}

// substitute replaces placeholders by the values at their index.
func substitute(t *model.TypeExpr, vals []*model.TypeExpr) *model.TypeExpr {
	return transform(t, func(p *model.TypeExpr) *model.TypeExpr {
		if p.Param < len(vals) && vals[p.Param] != nil {
			return vals[p.Param]
		}
		return nil
	})
}

// opaque replaces every placeholder by a distinct type nothing else
// equals, for use as deduction input.
func opaque(t *model.TypeExpr, tag string) *model.TypeExpr {
	return transform(t, func(p *model.TypeExpr) *model.TypeExpr {
		return &model.TypeExpr{Kind: model.TypeUnknown, Name: fmt.Sprintf("#%s%d", tag, p.Param), Pack: p.Pack}
	})
}

// transform copies t, replacing each placeholder by fn's result, keeping
// the placeholder's cv-qualifiers. A nil result keeps the placeholder.
func transform(t *model.TypeExpr, fn func(*model.TypeExpr) *model.TypeExpr) *model.TypeExpr {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case model.TypePlaceholder:
		v := fn(t)
		if v == nil {
			return t
		}
		c := *v
		c.Const = c.Const || t.Const
		c.Volatile = c.Volatile || t.Volatile
		return &c
	case model.TypeNamed:
		if t.Ref == nil {
			return t
		}
		c := *t
		ref := *t.Ref
		ref.Segments = make([]model.Segment, len(t.Ref.Segments))
		for i, s := range t.Ref.Segments {
			args := make([]*model.TypeExpr, len(s.Args))
			for j, a := range s.Args {
				args[j] = transform(a, fn)
			}
			ref.Segments[i] = model.Segment{Name: s.Name, HasArgs: s.HasArgs, Args: args}
		}
		c.Ref = &ref
		return &c
	case model.TypePointer, model.TypeLValueRef, model.TypeRValueRef, model.TypeArray:
		c := *t
		c.Elem = transform(t.Elem, fn)
		return &c
	}
	return t
}

// match deduces pattern's placeholders from args. Pointer, reference and
// array wrappers and template-id arguments are matched structurally; a
// trailing pack placeholder absorbs the remaining arguments.
func (r *Resolver) match(pattern, args []*model.TypeExpr) (bindings, bool) {
	b := bindings{}
	if !r.matchList(pattern, args, b) {
		return nil, false
	}
	return b, true
}

func (r *Resolver) matchList(pattern, args []*model.TypeExpr, b bindings) bool {
	for i, p := range pattern {
		if p.Kind == model.TypePlaceholder && p.Pack && i == len(pattern)-1 {
			var rest []*model.TypeExpr
			if i < len(args) {
				rest = args[i:]
			}
			if prev, ok := b[p.Param]; ok {
				return model.ArgsKey(prev) == model.ArgsKey(rest)
			}
			b[p.Param] = rest
			return true
		}
		if i >= len(args) || !r.matchType(p, args[i], b) {
			return false
		}
	}
	return len(pattern) == len(args)
}

func (r *Resolver) matchType(p, a *model.TypeExpr, b bindings) bool {
	if p == nil || a == nil {
		return p == nil && a == nil
	}
	if p.Kind == model.TypePlaceholder {
		if (p.Const && !a.Const) || (p.Volatile && !a.Volatile) {
			return false
		}
		v := *a
		v.Const = a.Const && !p.Const
		v.Volatile = a.Volatile && !p.Volatile
		v.Pack = false
		if prev, ok := b[p.Param]; ok {
			return len(prev) == 1 && prev[0].Key() == v.Key()
		}
		b[p.Param] = []*model.TypeExpr{&v}
		return true
	}
	if p.Kind != a.Kind || p.Const != a.Const || p.Volatile != a.Volatile {
		return false
	}
	switch p.Kind {
	case model.TypePointer, model.TypeLValueRef, model.TypeRValueRef:
		return r.matchType(p.Elem, a.Elem, b)
	case model.TypeArray:
		return p.Extent == a.Extent && r.matchType(p.Elem, a.Elem, b)
	case model.TypeNamed:
		pr, ar := p.Ref, a.Ref
		if pr.Resolved() && ar.Resolved() {
			if pr.Target != ar.Target {
				return false
			}
		} else if !sameSpelling(pr, ar) {
			return false
		}
		pl, al := pr.Last(), ar.Last()
		if pl.HasArgs != al.HasArgs {
			return false
		}
		return r.matchList(pl.Args, al.Args, b)
	}
	return p.Name == a.Name
}

func sameSpelling(x, y *model.NameRef) bool {
	if x.Global != y.Global || len(x.Segments) != len(y.Segments) {
		return false
	}
	for i := range x.Segments {
		if x.Segments[i].Name != y.Segments[i].Name {
			return false
		}
	}
	return true
}

// moreSpecialized reports whether a is more specialized than b: b's
// pattern deduces from a's pattern with a's parameters held opaque, and
// not the other way round.
func (r *Resolver) moreSpecialized(a, b model.Specialization) bool {
	pa, pb := r.canonicalAll(a.Pattern), r.canonicalAll(b.Pattern)
	oa := make([]*model.TypeExpr, len(pa))
	for i, t := range pa {
		oa[i] = opaque(t, "a")
	}
	ob := make([]*model.TypeExpr, len(pb))
	for i, t := range pb {
		ob[i] = opaque(t, "b")
	}
	_, bFromA := r.match(pb, oa)
	_, aFromB := r.match(pa, ob)
	return bFromA && !aFromB
}
