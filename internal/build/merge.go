package build

import (
	"slices"

	"github.com/jward/devana/internal/model"
	"github.com/jward/devana/internal/syntax"
)

// Unit builds and merges one file.
func Unit(f *syntax.File, maxDiagnostics int) (*model.Arena, error) {
	a, err := Build(f, maxDiagnostics)
	if err != nil {
		return nil, err
	}
	Merge(a)
	return a, nil
}

// Merge folds redeclarations into canonical records. Out-of-line
// definitions are moved into the class or namespace they name first, then
// every scope is scanned for records sharing an identity. Running Merge
// again on its own output changes nothing.
func Merge(a *model.Arena) {
	m := &merger{arena: a}
	m.relocate()
	for _, e := range a.All() {
		if a.Live(e.ID) && e.Scope() != nil {
			m.scope(e.ID)
		}
	}
}

type merger struct {
	arena *model.Arena
}

// ---------------------------------------------------------------------------
// Out-of-line definitions
// ---------------------------------------------------------------------------

func qualifierOf(a *model.Arena, e *model.Entity) (*model.NameRef, *model.Entity) {
	switch d := e.Detail.(type) {
	case *model.FunctionInfo:
		return d.Qualifier, e
	case *model.VariableInfo:
		return d.Qualifier, e
	case *model.TemplateInfo:
		if p := a.Get(d.Primary); p != nil {
			if fn, ok := p.Detail.(*model.FunctionInfo); ok {
				return fn.Qualifier, p
			}
		}
	}
	return nil, nil
}

func (m *merger) relocate() {
	a := m.arena
	for _, e := range a.All() {
		if !a.Live(e.ID) {
			continue
		}
		q, carrier := qualifierOf(a, e)
		if q == nil {
			continue
		}
		target := m.findScope(q, e.Owner)
		if target == model.None || target == e.Owner {
			continue
		}
		if decl := m.declarationIn(target, e); decl != nil {
			inherit(a, decl, e)
		}
		a.Reparent(e.ID, target)
		a.RescopeRefs(e.ID, target)
		if carrier.ID != e.ID {
			a.RescopeRefs(carrier.ID, target)
		}
	}
}

// findScope looks the qualifier of an out-of-line definition up from the
// scope the definition was written in. Only names already declared in this
// arena are considered; the full resolver runs later.
func (m *merger) findScope(q *model.NameRef, from model.ID) model.ID {
	a := m.arena
	cur := model.None
	for i, seg := range q.Segments {
		if i == 0 {
			start := from
			if q.Global {
				start = model.RootID
			}
			for s := a.Get(start); s != nil; s = a.Get(s.Owner) {
				if id := m.scopeMember(s.ID, seg.Name); id != model.None {
					cur = id
					break
				}
				if q.Global {
					break
				}
			}
		} else {
			cur = m.scopeMember(cur, seg.Name)
		}
		if cur == model.None {
			return model.None
		}
	}
	return cur
}

// scopeMember returns the scope-owning entity declared as name in owner;
// class templates stand for their primary.
func (m *merger) scopeMember(owner model.ID, name string) model.ID {
	a := m.arena
	sc := a.ScopeOf(owner)
	if sc == nil {
		return model.None
	}
	scopes := append([]model.ID{owner}, sc.Implicit...)
	for _, s := range scopes {
		ss := a.ScopeOf(s)
		if ss == nil {
			continue
		}
		for _, id := range ss.Lookup(name) {
			e := a.Get(id)
			if e == nil {
				continue
			}
			if t, ok := e.Detail.(*model.TemplateInfo); ok {
				if p := a.Get(t.Primary); p != nil && p.Scope() != nil {
					return p.ID
				}
				continue
			}
			if e.Scope() != nil {
				return e.ID
			}
		}
	}
	return model.None
}

// declarationIn finds the in-scope declaration an out-of-line definition
// completes.
func (m *merger) declarationIn(scope model.ID, def *model.Entity) *model.Entity {
	a := m.arena
	path := scopePath(a.Get(scope))
	key, ok := identity(a, def, path)
	if !ok {
		return nil
	}
	for _, id := range a.ScopeOf(scope).Lookup(def.Name) {
		if e := a.Get(id); e != nil && e.ID != def.ID {
			if k, ok := identity(a, e, path); ok && k == key {
				return e
			}
		}
	}
	return nil
}

// scopePath is the qualified path of a scope-owning entity, nil for the
// global scope.
func scopePath(e *model.Entity) []string {
	if e == nil || e.ID == model.RootID {
		return nil
	}
	return append(slices.Clone(e.Path), e.Name)
}

// inherit copies what an out-of-line definition does not repeat from the
// in-class declaration.
func inherit(a *model.Arena, decl, def *model.Entity) {
	switch dd := def.Detail.(type) {
	case *model.FunctionInfo:
		if d, ok := decl.Detail.(*model.FunctionInfo); ok {
			dd.Method = d.Method
			dd.Access = d.Access
			dd.Static = d.Static
			dd.Virtual = d.Virtual
			dd.Pure = d.Pure
			dd.Ctor = d.Ctor || dd.Ctor
			dd.Dtor = d.Dtor || dd.Dtor
			dd.Inline = d.Inline || dd.Inline
			dd.Constexpr = d.Constexpr || dd.Constexpr
			dd.Noexcept = d.Noexcept || dd.Noexcept
		}
	case *model.VariableInfo:
		if d, ok := decl.Detail.(*model.VariableInfo); ok {
			dd.Access = d.Access
			dd.Static = d.Static
			dd.Field = d.Field
			dd.Constexpr = d.Constexpr || dd.Constexpr
		}
	case *model.TemplateInfo:
		if d, ok := decl.Detail.(*model.TemplateInfo); ok {
			dp, fp := a.Get(d.Primary), a.Get(dd.Primary)
			if dp != nil && fp != nil {
				inherit(a, dp, fp)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Redeclarations
// ---------------------------------------------------------------------------

// scope merges the children of one scope pairwise in declaration order.
func (m *merger) scope(owner model.ID) {
	a := m.arena
	sc := a.ScopeOf(owner)
	if sc == nil {
		return
	}
	path := scopePath(a.Get(owner))
	seen := make(map[string]model.ID)
	for _, id := range slices.Clone(sc.Children) {
		e := a.Get(id)
		if e == nil || e.ID != id {
			continue
		}
		key, ok := identity(a, e, path)
		if !ok {
			continue
		}
		first, dup := seen[key]
		if !dup {
			seen[key] = e.ID
			continue
		}
		seen[key] = m.pair(a.Get(first), e)
	}
}

// pair merges later into first, both denoting the same entity, and
// returns the survivor.
func (m *merger) pair(first, later *model.Entity) model.ID {
	a := m.arena
	fd, ld := defined(a, first), defined(a, later)
	switch {
	case fd && ld && !compatibleRedefinition(first, later):
		a.Diags.Addf(model.DuplicateDefinition, later.ID, later.Span,
			"duplicate definition of %s (first defined at %s)", later.QualifiedName(), first.Span)
		mergeRaw(first, first, later)
		a.DiscardTree(later.ID, first.ID)
		return first.ID
	case ld && !fd:
		fill(a, later, first)
		mergeRaw(later, first, later)
		if ft, ok := first.Detail.(*model.TemplateInfo); ok {
			// The forward template's primary goes with it.
			a.DiscardTree(ft.Primary, later.Detail.(*model.TemplateInfo).Primary)
		}
		a.Supersede(first.ID, later.ID)
		return later.ID
	default:
		fill(a, first, later)
		mergeRaw(first, first, later)
		a.DiscardTree(later.ID, first.ID)
		return first.ID
	}
}

// defined reports whether e carries a definition: a class body, a function
// body, an initializer, an alias target.
func defined(a *model.Arena, e *model.Entity) bool {
	switch d := e.Detail.(type) {
	case *model.ClassInfo:
		return d.Defined
	case *model.EnumInfo:
		return d.Defined
	case *model.FunctionInfo:
		return d.HasBody || d.Deleted || d.Defaulted
	case *model.VariableInfo:
		return d.Value != "" || d.Field
	case *model.AliasInfo, *model.ConceptInfo:
		return true
	case *model.TemplateInfo:
		if p := a.Get(d.Primary); p != nil {
			return defined(a, p)
		}
	}
	return false
}

// compatibleRedefinition reports whether two definitions may legally
// coexist: repeated typedefs or using-declarations naming the same thing.
func compatibleRedefinition(first, later *model.Entity) bool {
	fa, ok1 := first.Detail.(*model.AliasInfo)
	la, ok2 := later.Detail.(*model.AliasInfo)
	if !ok1 || !ok2 {
		return false
	}
	if fa.Form == model.AliasUsingDeclaration || la.Form == model.AliasUsingDeclaration {
		return fa.Form == la.Form && fa.Ref.String() == la.Ref.String()
	}
	return typeKey(fa.Target, nil) == typeKey(la.Target, nil)
}

// fill copies metadata the survivor lacks from the discarded record.
func fill(a *model.Arena, survivor, other *model.Entity) {
	switch s := survivor.Detail.(type) {
	case *model.FunctionInfo:
		o, ok := other.Detail.(*model.FunctionInfo)
		if !ok {
			return
		}
		for i := range s.Params {
			if i < len(o.Params) && s.Params[i].Default == "" {
				s.Params[i].Default = o.Params[i].Default
			}
		}
		if s.Access == "" {
			s.Access = o.Access
		}
		s.Virtual = s.Virtual || o.Virtual
		s.Static = s.Static || o.Static
		s.Inline = s.Inline || o.Inline
	case *model.TemplateInfo:
		o, ok := other.Detail.(*model.TemplateInfo)
		if !ok {
			return
		}
		for i := range s.Params {
			if i < len(o.Params) && s.Params[i].Default == "" && o.Params[i].Default != "" {
				s.Params[i].Default = o.Params[i].Default
				s.Params[i].DefaultType = o.Params[i].DefaultType
			}
		}
		s.Specializations = append(s.Specializations, o.Specializations...)
		if sp, op := a.Get(s.Primary), a.Get(o.Primary); sp != nil && op != nil {
			fill(a, sp, op)
			mergeRaw(sp, op, sp)
		}
	case *model.EnumInfo:
		if o, ok := other.Detail.(*model.EnumInfo); ok && s.Underlying == nil {
			s.Underlying = o.Underlying
		}
	case *model.VariableInfo:
		if o, ok := other.Detail.(*model.VariableInfo); ok {
			s.Static = s.Static || o.Static
			if s.Access == "" {
				s.Access = o.Access
			}
		}
	}
}

// mergeRaw sets dst's annotation inputs to those of x and y, the record
// written first in the source contributing first.
func mergeRaw(dst, x, y *model.Entity) {
	if x == y {
		return
	}
	if len(x.Raw.Spans) > 0 && len(y.Raw.Spans) > 0 && y.Raw.Spans[0].Before(x.Raw.Spans[0]) {
		x, y = y, x
	}
	dst.Raw = model.RawAnnotations{
		Attributes: slices.Concat(x.Raw.Attributes, y.Raw.Attributes),
		Comments:   slices.Concat(x.Raw.Comments, y.Raw.Comments),
		Trailing:   slices.Concat(x.Raw.Trailing, y.Raw.Trailing),
		Spans:      slices.Concat(x.Raw.Spans, y.Raw.Spans),
	}
}
