package model

import "slices"

// Scope is the body of a namespace, class, union or enum. Children keeps
// insertion order; the name index maps a name to every entity declared
// under it (overloads, a type and a function sharing a name).
type Scope struct {
	Owner    ID
	Children []ID
	// Using holds the using-directives written in this scope. Their order
	// does not matter for lookup.
	Using []*NameRef
	// Implicit lists namespaces whose members are visible here without a
	// directive: anonymous and inline namespaces.
	Implicit []ID

	index map[string][]ID
}

func newScope(owner ID) *Scope {
	return &Scope{Owner: owner, index: make(map[string][]ID)}
}

// Lookup returns the entities indexed under name. The slice must not be
// modified.
func (s *Scope) Lookup(name string) []ID {
	return s.index[name]
}

// Names returns the indexed names in sorted order.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.index))
	for n := range s.index {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// insert appends id to Children (when listed) and indexes it under name
// (when name is non-empty).
func (s *Scope) insert(name string, id ID, listed bool) {
	if listed {
		s.Children = append(s.Children, id)
	}
	if name != "" {
		s.index[name] = append(s.index[name], id)
	}
}

func (s *Scope) remove(id ID) {
	s.Children = slices.DeleteFunc(s.Children, func(c ID) bool { return c == id })
	for name, ids := range s.index {
		ids = slices.DeleteFunc(ids, func(c ID) bool { return c == id })
		if len(ids) == 0 {
			delete(s.index, name)
			continue
		}
		s.index[name] = ids
	}
}

// move places id at the position currently held by at, removing id from
// its old position.
func (s *Scope) move(id, at ID) {
	from := slices.Index(s.Children, id)
	to := slices.Index(s.Children, at)
	if from < 0 || to < 0 || from == to {
		return
	}
	s.Children = slices.Delete(s.Children, from, from+1)
	if from < to {
		to--
	}
	s.Children = slices.Insert(s.Children, to, id)
}

func (s *Scope) contains(id ID) bool {
	return slices.Contains(s.Children, id)
}
