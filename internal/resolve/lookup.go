package resolve

import (
	"fmt"
	"slices"

	"github.com/jward/devana/internal/model"
)

// accept filters lookup hits by what the reference expects.
func accept(ctx model.RefContext, e *model.Entity) bool {
	switch e.Kind {
	case model.KindUnmodeled, model.KindUnknown:
		return false
	}
	switch ctx {
	case model.RefType, model.RefBase:
		return e.Kind.IsType()
	case model.RefNamespace:
		return e.Kind == model.KindNamespace
	case model.RefTemplate:
		return e.Kind == model.KindTemplate
	}
	return true
}

// acceptPrefix filters hits for a non-final segment of a qualified name:
// anything a "::" can follow.
func acceptPrefix(e *model.Entity) bool {
	switch e.Kind {
	case model.KindNamespace, model.KindClass, model.KindUnion, model.KindEnum, model.KindTemplate, model.KindTypedefAlias:
		return true
	}
	return false
}

// lookupRef finds the entities a reference names. Qualified names resolve
// their first segment by unqualified lookup and every further segment
// strictly inside the scope found so far.
func (r *Resolver) lookupRef(ref *model.NameRef) ([]model.ID, error) {
	if len(ref.Segments) == 0 {
		return nil, fmt.Errorf("empty reference")
	}
	last := len(ref.Segments) - 1
	filter := func(i int) func(*model.Entity) bool {
		if i < last {
			return acceptPrefix
		}
		return func(e *model.Entity) bool { return accept(ref.Context, e) }
	}

	var found []model.ID
	if ref.Global {
		found = r.member(model.RootID, ref.Segments[0].Name, filter(0))
	} else {
		found = r.unqualified(ref.Scope, ref.Segments[0].Name, filter(0))
	}
	for i := 1; i <= last; i++ {
		if len(found) == 0 {
			return nil, nil
		}
		if len(found) > 1 && !overloadSet(r.arena, found) {
			return found, nil
		}
		scope, err := r.enter(found[0], ref.Segments[i-1])
		if err != nil {
			return nil, err
		}
		found = r.member(scope, ref.Segments[i].Name, filter(i))
		if len(found) == 0 {
			return nil, fmt.Errorf("no member %q in %q", ref.Segments[i].Name, r.arena.Get(scope).QualifiedName())
		}
	}
	return found, nil
}

// enter returns the scope a qualified name continues in after naming id
// with seg: aliases are followed, templates stand for the definition
// selected by the segment's arguments or for their primary.
func (r *Resolver) enter(id model.ID, seg model.Segment) (model.ID, error) {
	for hops := 0; hops < 16; hops++ {
		e := r.arena.Get(id)
		switch d := e.Detail.(type) {
		case *model.AliasInfo:
			target, ok := r.aliasTarget(e)
			if !ok || target == model.None {
				return model.None, fmt.Errorf("alias %q does not name a scope", e.QualifiedName())
			}
			id = target
			if inner := aliasRef(d); inner != nil && inner.Instance != nil && inner.Instance.Status == model.InstanceSelected {
				return inner.Instance.Body, nil
			}
			continue
		case *model.TemplateInfo:
			if seg.HasArgs {
				in := r.Instantiate(e.ID, seg.Args)
				if in.Status == model.InstanceSelected {
					return in.Body, nil
				}
			}
			if p := r.arena.Get(d.Primary); p != nil && p.Scope() != nil {
				return p.ID, nil
			}
			return model.None, fmt.Errorf("template %q has no member scope", e.QualifiedName())
		}
		if e.Scope() == nil {
			return model.None, fmt.Errorf("%q is not a scope", e.QualifiedName())
		}
		return e.ID, nil
	}
	return model.None, fmt.Errorf("alias chain too long at %q", seg.Name)
}

// unqualified searches from scope outward. The first scope level with at
// least one hit wins; hits of one level are returned together.
func (r *Resolver) unqualified(scope model.ID, name string, ok func(*model.Entity) bool) []model.ID {
	for s := r.arena.Get(scope); s != nil; s = r.arena.Get(s.Owner) {
		if s.Scope() == nil {
			continue
		}
		if found := r.member(s.ID, name, ok); len(found) > 0 {
			return found
		}
		if s.ID == model.RootID {
			break
		}
	}
	return nil
}

// member searches one scope level: the scope itself, the namespaces it
// makes visible implicitly or through using-directives (transitively),
// and for classes their bases.
func (r *Resolver) member(scope model.ID, name string, ok func(*model.Entity) bool) []model.ID {
	var out []model.ID
	visited := map[model.ID]bool{}
	r.collect(scope, name, ok, visited, &out)
	if len(out) == 0 {
		if e := r.arena.Get(scope); e != nil && (e.Kind == model.KindClass || e.Kind == model.KindUnion) {
			out = r.inBases(e, name, ok, map[model.ID]bool{e.ID: true})
		}
	}
	return out
}

func (r *Resolver) collect(scope model.ID, name string, ok func(*model.Entity) bool, visited map[model.ID]bool, out *[]model.ID) {
	if visited[scope] {
		return
	}
	visited[scope] = true
	sc := r.arena.ScopeOf(scope)
	if sc == nil {
		return
	}
	for _, id := range sc.Lookup(name) {
		e := r.arena.Get(id)
		if e != nil && ok(e) && !slices.Contains(*out, e.ID) {
			*out = append(*out, e.ID)
		}
	}
	for _, id := range sc.Implicit {
		r.collect(id, name, ok, visited, out)
	}
	for _, u := range sc.Using {
		if r.refBusy[u] {
			// The directive is being resolved; it cannot nominate anything
			// to its own lookup.
			continue
		}
		r.resolve(u)
		if u.Status == model.RefResolved {
			r.collect(u.Target, name, ok, visited, out)
		}
	}
}

// inBases searches base classes depth first in declaration order; the
// first base yielding a hit wins.
func (r *Resolver) inBases(cls *model.Entity, name string, ok func(*model.Entity) bool, seen map[model.ID]bool) []model.ID {
	info, isClass := cls.Detail.(*model.ClassInfo)
	if !isClass {
		return nil
	}
	for _, b := range info.Bases {
		base := r.baseScope(b.Type)
		if base == model.None || seen[base] {
			continue
		}
		seen[base] = true
		var out []model.ID
		r.collect(base, name, ok, map[model.ID]bool{}, &out)
		if len(out) > 0 {
			return out
		}
		if found := r.inBases(r.arena.Get(base), name, ok, seen); len(found) > 0 {
			return found
		}
	}
	return nil
}

// baseScope returns the class a base specifier names: the selected
// definition for template-ids, the primary for bare templates.
func (r *Resolver) baseScope(t *model.TypeExpr) model.ID {
	if t == nil || t.Kind != model.TypeNamed || t.Ref == nil || r.refBusy[t.Ref] {
		return model.None
	}
	r.resolve(t.Ref)
	if !t.Ref.Resolved() {
		return model.None
	}
	if in := t.Ref.Instance; in != nil && in.Status == model.InstanceSelected {
		return in.Body
	}
	e := r.arena.Get(t.Ref.Target)
	if d, ok := e.Detail.(*model.TemplateInfo); ok {
		return d.Primary
	}
	if e.Scope() == nil {
		return model.None
	}
	return e.ID
}
