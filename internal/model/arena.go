package model

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jward/devana/internal/syntax"
)

// ErrSealed is the panic value raised when a sealed arena is mutated.
var ErrSealed = errors.New("model: arena is sealed")

// Arena stores every entity of a model. Entities refer to each other by ID
// only, so the arena is the single owner of all records.
type Arena struct {
	entities []*Entity
	dead     map[ID]ID
	refs     []*NameRef
	pending  []*PendingSpecialization

	// Instances records every template instantiation resolved so far.
	Instances []*Instance
	// Diags accumulates non-fatal diagnostics.
	Diags *Bag
	// Comments holds each file's comment tokens, keyed by path.
	Comments map[string][]syntax.Comment
	// Preambles holds each file's leading comment run, keyed by path.
	Preambles map[string]string
	// Files lists the unit paths in the order they were added.
	Files []string

	sealed bool
}

// NewArena returns an arena holding the global namespace and the unknown
// placeholder.
func NewArena(maxDiagnostics int) *Arena {
	a := &Arena{
		entities:  make([]*Entity, 1, 64),
		dead:      make(map[ID]ID),
		Diags:     NewBag(maxDiagnostics),
		Comments:  make(map[string][]syntax.Comment),
		Preambles: make(map[string]string),
	}
	root := &Entity{ID: RootID, Kind: KindNamespace, Owner: None}
	root.Detail = &NamespaceInfo{Scope: newScope(RootID)}
	a.entities = append(a.entities, root)
	unknown := &Entity{ID: UnknownID, Kind: KindUnknown, Internal: "<unknown>", Owner: RootID, Detail: &UnknownInfo{}}
	a.entities = append(a.entities, unknown)
	return a
}

func (a *Arena) mutable() {
	if a.sealed {
		panic(ErrSealed)
	}
}

// Seal freezes the arena. Further mutation through arena methods panics.
func (a *Arena) Seal() {
	a.sealed = true
}

// Sealed reports whether Seal has been called.
func (a *Arena) Sealed() bool {
	return a.sealed
}

// Root returns the global namespace.
func (a *Arena) Root() *Entity {
	return a.entities[RootID]
}

// New creates an entity owned by owner. When listed is true the entity is
// appended to the owner scope's children; when indexed is true it is
// visible to lookup under its name.
func (a *Arena) New(kind Kind, name string, owner ID, span syntax.Span, detail Detail, listed, indexed bool) *Entity {
	a.mutable()
	id := ID(len(a.entities))
	e := &Entity{
		ID:     id,
		Kind:   kind,
		Name:   name,
		Owner:  owner,
		Span:   span,
		Detail: detail,
	}
	if parent := a.Get(owner); parent != nil {
		e.Path = append(slices.Clone(parent.Path), parent.pathComponent()...)
		if sc := parent.Scope(); sc != nil {
			key := name
			if !indexed {
				key = ""
			}
			sc.insert(key, id, listed)
		}
	}
	switch d := detail.(type) {
	case *NamespaceInfo:
		if d.Scope == nil {
			d.Scope = newScope(id)
		}
	case *ClassInfo:
		if d.Scope == nil {
			d.Scope = newScope(id)
		}
	case *EnumInfo:
		if d.Scope == nil {
			d.Scope = newScope(id)
		}
	}
	a.entities = append(a.entities, e)
	return e
}

// pathComponent is what an entity contributes to its children's paths: the
// root contributes nothing.
func (e *Entity) pathComponent() []string {
	if e.ID == RootID {
		return nil
	}
	return []string{e.ScopeName()}
}

// Index makes id visible under name in scope without listing it as a
// child. Used for unscoped enumerators and template primaries.
func (a *Arena) Index(scope *Scope, name string, id ID) {
	a.mutable()
	scope.insert(name, id, false)
}

// Get returns the live entity for id, following merge redirects. It
// returns nil for None and out-of-range IDs.
func (a *Arena) Get(id ID) *Entity {
	for i := 0; i < 64; i++ {
		to, ok := a.dead[id]
		if !ok {
			break
		}
		id = to
	}
	if id <= None || int(id) >= len(a.entities) {
		return nil
	}
	return a.entities[id]
}

// Canonical returns the ID a possibly discarded id now stands for.
func (a *Arena) Canonical(id ID) ID {
	if e := a.Get(id); e != nil {
		return e.ID
	}
	return None
}

// Len returns the number of slots, live or discarded, including None.
func (a *Arena) Len() int {
	return len(a.entities)
}

// Live reports whether id names an entity that has not been discarded.
func (a *Arena) Live(id ID) bool {
	_, gone := a.dead[id]
	return !gone && id > None && int(id) < len(a.entities)
}

// All returns every live entity in creation order, excluding the unknown
// placeholder.
func (a *Arena) All() []*Entity {
	out := make([]*Entity, 0, len(a.entities))
	for _, e := range a.entities[1:] {
		if e.ID == UnknownID || !a.Live(e.ID) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Discard removes from from its scope and redirects it to into. The slot is
// kept so that IDs handed out earlier stay valid.
func (a *Arena) Discard(from, into ID) {
	a.mutable()
	e := a.Get(from)
	if e == nil || e.ID == into {
		return
	}
	if owner := a.Get(e.Owner); owner != nil {
		if sc := owner.Scope(); sc != nil {
			sc.remove(e.ID)
		}
	}
	a.dead[e.ID] = into
}

// Supersede replaces old with survivor: survivor takes old's place in the
// owner's children and old is discarded into survivor.
func (a *Arena) Supersede(old, survivor ID) {
	a.mutable()
	o, s := a.Get(old), a.Get(survivor)
	if o == nil || s == nil || o.ID == s.ID {
		return
	}
	if owner := a.Get(o.Owner); owner != nil {
		if sc := owner.Scope(); sc != nil && sc.contains(o.ID) && sc.contains(s.ID) {
			sc.move(s.ID, o.ID)
		}
	}
	a.Discard(o.ID, s.ID)
}

// Reparent moves id from its current owner into newOwner, recomputing its
// path and the paths of everything it owns.
func (a *Arena) Reparent(id, newOwner ID) {
	a.mutable()
	e, dst := a.Get(id), a.Get(newOwner)
	if e == nil || dst == nil {
		return
	}
	if old := a.Get(e.Owner); old != nil {
		if sc := old.Scope(); sc != nil {
			sc.remove(e.ID)
		}
	}
	e.Owner = dst.ID
	if sc := dst.Scope(); sc != nil {
		sc.insert(e.Name, e.ID, true)
	}
	a.repath(e)
}

func (a *Arena) repath(e *Entity) {
	owner := a.Get(e.Owner)
	if owner == nil {
		return
	}
	e.Path = append(slices.Clone(owner.Path), owner.pathComponent()...)
	if sc := e.Scope(); sc != nil {
		for _, c := range sc.Children {
			if ce := a.Get(c); ce != nil {
				a.repath(ce)
			}
		}
	}
	if t, ok := e.Detail.(*TemplateInfo); ok {
		if p := a.Get(t.Primary); p != nil && p.ID != e.ID {
			p.Owner = e.Owner
			a.repath(p)
		}
	}
}

// ScopeOf returns the scope owned by id, or nil.
func (a *Arena) ScopeOf(id ID) *Scope {
	if e := a.Get(id); e != nil {
		return e.Scope()
	}
	return nil
}

// Children returns the live children of a scope owner in order.
func (a *Arena) Children(id ID) []*Entity {
	sc := a.ScopeOf(id)
	if sc == nil {
		return nil
	}
	out := make([]*Entity, 0, len(sc.Children))
	for _, c := range sc.Children {
		if a.Live(c) {
			out = append(out, a.entities[c])
		}
	}
	return out
}

// DerivePath walks owner links to the root and returns the names found on
// the way, outermost first.
func (a *Arena) DerivePath(id ID) ([]string, error) {
	e := a.Get(id)
	if e == nil {
		return nil, fmt.Errorf("model: derive path: no entity %d", id)
	}
	var rev []string
	seen := map[ID]bool{e.ID: true}
	for cur := a.Get(e.Owner); cur != nil && cur.ID != RootID; cur = a.Get(cur.Owner) {
		if seen[cur.ID] {
			return nil, fmt.Errorf("model: derive path: owner cycle at %d", cur.ID)
		}
		seen[cur.ID] = true
		rev = append(rev, cur.ScopeName())
	}
	slices.Reverse(rev)
	return rev, nil
}

// AddRef registers a name reference so the resolver visits it.
func (a *Arena) AddRef(r *NameRef) {
	a.mutable()
	a.refs = append(a.refs, r)
}

// AddTypeRefs registers every name reference inside t.
func (a *Arena) AddTypeRefs(t *TypeExpr, scope, owner ID, ctx RefContext) {
	for _, r := range t.Refs() {
		r.Scope = scope
		r.Owner = owner
		if r.Context == RefAny {
			r.Context = ctx
		}
		a.AddRef(r)
	}
}

// Refs returns every registered reference in registration order.
func (a *Arena) Refs() []*NameRef {
	return a.refs
}

// AddFile records a unit's path and comment tokens.
func (a *Arena) AddFile(path string, comments []syntax.Comment) {
	a.mutable()
	if !slices.Contains(a.Files, path) {
		a.Files = append(a.Files, path)
	}
	a.Comments[path] = append(a.Comments[path], comments...)
}

// PendingSpecialization is a specialization whose template has not been
// looked up yet. The resolver appends Spec to the template named by
// Template once that reference resolves.
type PendingSpecialization struct {
	Template *NameRef
	Spec     Specialization
}

// AddPending queues a specialization for registration.
func (a *Arena) AddPending(p *PendingSpecialization) {
	a.mutable()
	a.pending = append(a.pending, p)
}

// Pending returns the queued specializations in declaration order.
func (a *Arena) Pending() []*PendingSpecialization {
	return a.pending
}

// ClearPending drops the queue once every entry has been registered.
func (a *Arena) ClearPending() {
	a.mutable()
	a.pending = nil
}

// RescopeRefs moves the lookup scope of every reference owned by owner.
// Used when an out-of-line definition is relocated into its class.
func (a *Arena) RescopeRefs(owner, scope ID) {
	a.mutable()
	for _, r := range a.refs {
		if a.Canonical(r.Owner) == owner {
			r.Scope = scope
		}
	}
}

// DiscardTree discards id together with everything declared inside it.
// References owned by discarded entities are dropped.
func (a *Arena) DiscardTree(id, into ID) {
	a.mutable()
	e := a.Get(id)
	if e == nil {
		return
	}
	owned := map[ID][]*Entity{}
	for _, c := range a.entities[1:] {
		if a.Live(c.ID) {
			owned[c.Owner] = append(owned[c.Owner], c)
		}
	}
	gone := map[ID]bool{}
	var mark func(*Entity)
	mark = func(x *Entity) {
		if gone[x.ID] {
			return
		}
		gone[x.ID] = true
		for _, c := range owned[x.ID] {
			mark(c)
		}
		if t, ok := x.Detail.(*TemplateInfo); ok {
			if p := a.Get(t.Primary); p != nil {
				mark(p)
			}
		}
	}
	mark(e)
	for gid := range gone {
		if gid != e.ID {
			a.dead[gid] = into
		}
	}
	a.Discard(e.ID, into)
	a.refs = slices.DeleteFunc(a.refs, func(r *NameRef) bool { return gone[r.Owner] })
	a.pending = slices.DeleteFunc(a.pending, func(p *PendingSpecialization) bool { return gone[p.Spec.Body] })
}
