package model

import (
	"fmt"
	"slices"
)

type importKey struct {
	kind  Kind
	owner ID
	name  string
	span  string
}

type scopeSnapshot struct {
	owner    ID
	children []ID
	index    map[string][]ID
	implicit []ID
	using    []*NameRef
}

// Import moves every live entity of src into a. Named namespaces with the
// same qualified path are merged by concatenating their children in unit
// order. An entity with the same kind, owner, name and source span as one
// already present is the same declaration seen through a shared header and
// is mapped onto the existing record. src must not be used afterwards.
func (a *Arena) Import(src *Arena) error {
	a.mutable()
	if src == a {
		return fmt.Errorf("model: import: arena imported into itself")
	}
	known := make(map[importKey]ID)
	for _, e := range a.All() {
		if e.ID != RootID {
			known[keyOf(e, e.Owner)] = e.ID
		}
	}

	canon := func(id ID) ID {
		for i := 0; i < 64; i++ {
			to, ok := src.dead[id]
			if !ok {
				break
			}
			id = to
		}
		return id
	}

	// Plan: decide for every live src entity whether it maps onto an
	// existing record or gets a fresh slot.
	remap := map[ID]ID{None: None, RootID: RootID, UnknownID: UnknownID}
	fresh := make(map[ID]bool)
	var moved []*Entity
	next := ID(len(a.entities))
	pending := src.All()
	for len(pending) > 0 {
		var deferred []*Entity
		for _, e := range pending {
			if e.ID == RootID {
				continue
			}
			owner, ok := remap[canon(e.Owner)]
			if !ok {
				deferred = append(deferred, e)
				continue
			}
			key := keyOf(e, owner)
			if id, dup := known[key]; dup && mergeable(e) {
				remap[e.ID] = id
				continue
			}
			remap[e.ID] = next
			fresh[e.ID] = true
			known[key] = next
			moved = append(moved, e)
			next++
		}
		if len(deferred) == len(pending) {
			return fmt.Errorf("model: import: %d entities with unreachable owners", len(deferred))
		}
		pending = deferred
	}
	mapID := func(id ID) ID {
		if id == None {
			return None
		}
		if m, ok := remap[canon(id)]; ok {
			return m
		}
		return UnknownID
	}

	// Snapshot src scopes before any record changes hands.
	var scopes []scopeSnapshot
	for _, e := range src.All() {
		sc := e.Scope()
		if sc == nil {
			continue
		}
		snap := scopeSnapshot{
			owner:    e.ID,
			children: slices.Clone(sc.Children),
			index:    make(map[string][]ID, len(sc.index)),
			implicit: slices.Clone(sc.Implicit),
			using:    slices.Clone(sc.Using),
		}
		for n, ids := range sc.index {
			snap.index[n] = slices.Clone(ids)
		}
		scopes = append(scopes, snap)
	}

	// Merged namespaces keep every fragment.
	for _, e := range src.All() {
		ns, ok := e.Detail.(*NamespaceInfo)
		if !ok || fresh[e.ID] || e.ID == RootID {
			continue
		}
		if dst, ok := a.Get(remap[e.ID]).Detail.(*NamespaceInfo); ok {
			for _, f := range ns.Fragments {
				if !slices.Contains(dst.Fragments, f) {
					dst.Fragments = append(dst.Fragments, f)
				}
			}
		}
	}

	// Move fresh records.
	for _, e := range moved {
		e.ID = remap[e.ID]
		e.Owner = mapID(e.Owner)
		if o := a.Get(e.Owner); o != nil {
			e.Path = append(slices.Clone(o.Path), o.pathComponent()...)
		}
		if sc := e.Scope(); sc != nil {
			sc.Owner = e.ID
			sc.Children = nil
			sc.Implicit = nil
			sc.Using = nil
			sc.index = make(map[string][]ID)
		}
		switch d := e.Detail.(type) {
		case *TemplateInfo:
			d.Primary = mapID(d.Primary)
			for i := range d.Specializations {
				d.Specializations[i].Body = mapID(d.Specializations[i].Body)
			}
		case *AliasInfo:
			d.Resolved = mapID(d.Resolved)
		}
		a.entities = append(a.entities, e)
	}

	// Refill scopes.
	carried := make(map[*NameRef]bool)
	for _, snap := range scopes {
		owner := remap[snap.owner]
		dst := a.ScopeOf(owner)
		if dst == nil {
			continue
		}
		ownerFresh := fresh[snap.owner]
		for _, c := range snap.children {
			if ownerFresh || fresh[canon(c)] {
				if m := mapID(c); m != UnknownID && !dst.contains(m) {
					dst.Children = append(dst.Children, m)
				}
			}
		}
		for _, name := range sortedNames(snap.index) {
			for _, c := range snap.index[name] {
				if m := mapID(c); m != UnknownID && !slices.Contains(dst.index[name], m) {
					dst.index[name] = append(dst.index[name], m)
				}
			}
		}
		for _, c := range snap.implicit {
			dst.Implicit = appendUnique(dst.Implicit, mapID(c))
		}
		for _, u := range snap.using {
			if slices.ContainsFunc(dst.Using, func(x *NameRef) bool { return x.String() == u.String() }) {
				continue
			}
			dst.Using = append(dst.Using, u)
			carried[u] = true
		}
	}

	for _, r := range src.refs {
		if !fresh[canon(r.Owner)] && !carried[r] {
			continue
		}
		r.Scope = mapID(r.Scope)
		r.Owner = mapID(r.Owner)
		a.refs = append(a.refs, r)
	}

	for _, p := range src.pending {
		if !fresh[canon(p.Spec.Body)] {
			continue
		}
		p.Spec.Body = mapID(p.Spec.Body)
		a.pending = append(a.pending, p)
	}

	for _, d := range src.Diags.Items() {
		d.Entity = mapID(d.Entity)
		a.Diags.Add(d)
	}
	a.Diags.dropped += src.Diags.Dropped()
	for _, f := range src.Files {
		a.AddFile(f, src.Comments[f])
		if p, ok := src.Preambles[f]; ok {
			a.Preambles[f] = p
		}
	}
	return nil
}

// mergeable reports whether e may be mapped onto an existing record with
// the same key. Anonymous namespaces stay private to their unit.
func mergeable(e *Entity) bool {
	if e.Kind == KindNamespace {
		return e.Name != ""
	}
	return !e.Span.IsZero()
}

func keyOf(e *Entity, owner ID) importKey {
	k := importKey{kind: e.Kind, owner: owner, name: e.Name}
	if e.Kind == KindNamespace && e.Name != "" {
		return k
	}
	k.span = fmt.Sprintf("%s-%d:%d", e.Span, e.Span.EndLine, e.Span.EndCol)
	return k
}

func sortedNames(index map[string][]ID) []string {
	names := make([]string, 0, len(index))
	for n := range index {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func appendUnique(ids []ID, id ID) []ID {
	if id == None || id == UnknownID || slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}
