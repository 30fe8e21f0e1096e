// Package resolve binds name references to entities and selects template
// definitions for concrete argument lists. Name lookup and template
// selection call each other: a template-id inside a qualified name is
// instantiated before lookup descends into it, and specialization
// patterns are resolved before they are matched.
package resolve

import (
	"fmt"
	"strings"

	"github.com/jward/devana/internal/model"
)

// Resolver holds the per-run state: the instantiation cache and the
// in-progress markers that break cycles. It is not safe for concurrent use.
type Resolver struct {
	arena *model.Arena
	// readOnly resolvers answer queries against a sealed arena. They never
	// record instances or diagnostics.
	readOnly bool

	cache      map[string]*model.Instance
	inProgress map[string]bool
	refBusy    map[*model.NameRef]bool
	aliasDone  map[model.ID]bool
	aliasBusy  map[model.ID]bool
}

// New returns a resolver that records its results in a.
func New(a *model.Arena) *Resolver {
	return &Resolver{
		arena:      a,
		cache:      make(map[string]*model.Instance),
		inProgress: make(map[string]bool),
		refBusy:    make(map[*model.NameRef]bool),
		aliasDone:  make(map[model.ID]bool),
		aliasBusy:  make(map[model.ID]bool),
	}
}

// NewReadOnly returns a resolver for queries against a sealed arena.
// Instances recorded during the build are reused.
func NewReadOnly(a *model.Arena) *Resolver {
	r := New(a)
	r.readOnly = true
	for _, in := range a.Instances {
		r.cache[cacheKey(in.Template, in.Key)] = in
	}
	return r
}

// Stats summarizes a run.
type Stats struct {
	References      int
	Unresolved      int
	Ambiguous       int
	Specializations int
	Instances       int
}

// Run registers pending specializations, then resolves every reference
// and alias in registration order.
func (r *Resolver) Run() Stats {
	var st Stats
	st.Specializations = r.registerSpecializations()
	for _, ref := range r.arena.Refs() {
		r.resolve(ref)
		st.References++
		switch ref.Status {
		case model.RefUnknown:
			st.Unresolved++
		case model.RefAmbiguous:
			st.Ambiguous++
		}
	}
	for _, e := range r.arena.All() {
		if _, ok := e.Detail.(*model.AliasInfo); ok {
			r.aliasTarget(e)
		}
	}
	st.Instances = len(r.arena.Instances)
	return st
}

// registerSpecializations attaches every queued specialization to its
// template in declaration order.
func (r *Resolver) registerSpecializations() int {
	n := 0
	for _, p := range r.arena.Pending() {
		r.resolve(p.Template)
		t := r.arena.Get(p.Template.Target)
		info, ok := t.Detail.(*model.TemplateInfo)
		if !p.Template.Resolved() || !ok {
			continue
		}
		info.Specializations = append(info.Specializations, p.Spec)
		n++
	}
	r.arena.ClearPending()
	return n
}

// ---------------------------------------------------------------------------
// References
// ---------------------------------------------------------------------------

// resolve sets the status and target of ref. Already resolved references
// are left alone.
func (r *Resolver) resolve(ref *model.NameRef) {
	if ref.Status != model.RefUnresolved {
		return
	}
	if ref.Dependent {
		ref.Status = model.RefDependent
		ref.Target = model.UnknownID
		return
	}
	if r.refBusy[ref] {
		ref.Status = model.RefCyclic
		ref.Target = model.UnknownID
		return
	}
	r.refBusy[ref] = true
	defer delete(r.refBusy, ref)

	found, err := r.lookupRef(ref)
	switch {
	case err != nil:
		ref.Status = model.RefUnknown
		ref.Target = model.UnknownID
		r.report(model.UnresolvedReference, ref, "%s", err)
		return
	case len(found) == 0:
		ref.Status = model.RefUnknown
		ref.Target = model.UnknownID
		r.report(model.UnresolvedReference, ref, "unresolved reference %q", ref.String())
		return
	case len(found) > 1 && !overloadSet(r.arena, found):
		ref.Status = model.RefAmbiguous
		ref.Target = model.UnknownID
		ref.Candidates = found
		names := make([]string, len(found))
		for i, id := range found {
			names[i] = r.arena.Get(id).QualifiedName()
		}
		r.report(model.AmbiguousReference, ref, "ambiguous reference %q: %s", ref.String(), strings.Join(names, ", "))
		return
	}
	if len(found) > 1 {
		ref.Candidates = found
	}
	ref.Declared = found[0]
	ref.Target = found[0]
	ref.Status = model.RefResolved

	e := r.arena.Get(found[0])
	if e.Kind == model.KindTypedefAlias {
		target, ok := r.aliasTarget(e)
		if !ok {
			ref.Status = model.RefCyclic
			ref.Target = model.UnknownID
			r.report(model.UnresolvedReference, ref, "alias cycle through %q", ref.String())
			return
		}
		if target != model.None {
			ref.Target = target
			if inner := aliasRef(e.Detail.(*model.AliasInfo)); inner != nil {
				ref.Instance = inner.Instance
			}
		}
	}
	if last := ref.Last(); last.HasArgs {
		if t := r.arena.Get(ref.Target); t != nil && t.Kind == model.KindTemplate {
			ref.Instance = r.Instantiate(t.ID, last.Args)
		}
	}
}

// report records a diagnostic against the entity owning ref.
func (r *Resolver) report(code model.Code, ref *model.NameRef, format string, args ...any) {
	if r.readOnly {
		return
	}
	d := model.Diagnostic{Code: code, Entity: ref.Owner, Message: fmt.Sprintf(format, args...)}
	if owner := r.arena.Get(ref.Owner); owner != nil {
		d.Span = owner.Span
	}
	r.arena.Diags.Add(d)
}

// overloadSet reports whether every candidate is a function or function
// template, which makes several hits an overload set rather than an
// ambiguity.
func overloadSet(a *model.Arena, ids []model.ID) bool {
	for _, id := range ids {
		e := a.Get(id)
		switch e.Kind {
		case model.KindFunction:
		case model.KindTemplate:
			p := a.Get(e.Detail.(*model.TemplateInfo).Primary)
			if p == nil || p.Kind != model.KindFunction {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// resolveType resolves every reference inside t.
func (r *Resolver) resolveType(t *model.TypeExpr) {
	for _, ref := range t.Refs() {
		if !r.refBusy[ref] {
			r.resolve(ref)
		}
	}
}

// ---------------------------------------------------------------------------
// Aliases
// ---------------------------------------------------------------------------

// aliasRef is the name an alias is written in terms of, if any.
func aliasRef(d *model.AliasInfo) *model.NameRef {
	switch {
	case d.Form == model.AliasUsingDeclaration:
		return d.Ref
	case d.Target != nil && d.Target.Kind == model.TypeNamed:
		return d.Target.Ref
	}
	return nil
}

// aliasTarget returns the entity an alias stands for, or None when its
// target is not an entity. ok is false for alias cycles.
func (r *Resolver) aliasTarget(e *model.Entity) (model.ID, bool) {
	d := e.Detail.(*model.AliasInfo)
	ref := aliasRef(d)
	if r.readOnly || r.aliasDone[e.ID] {
		return d.Resolved, ref == nil || ref.Status != model.RefCyclic
	}
	if r.aliasBusy[e.ID] {
		return model.None, false
	}
	r.aliasBusy[e.ID] = true
	defer delete(r.aliasBusy, e.ID)

	if ref != nil {
		r.resolve(ref)
		if ref.Status == model.RefResolved {
			d.Resolved = ref.Target
			if d.Form == model.AliasUsingDeclaration {
				d.Targets = ref.Candidates
				if len(d.Targets) == 0 {
					d.Targets = []model.ID{ref.Target}
				}
			}
		}
	} else {
		r.resolveType(d.Target)
	}
	r.aliasDone[e.ID] = true
	return d.Resolved, ref == nil || ref.Status != model.RefCyclic
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Resolve parses text as a qualified name and resolves it from scope,
// applying the same rules as references in the source.
func (r *Resolver) Resolve(text string, scope model.ID, ctx model.RefContext) *model.NameRef {
	ref := model.ParseName(text)
	ref.Scope = scope
	ref.Owner = scope
	ref.Context = ctx
	r.resolve(ref)
	return ref
}
