package devana

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jward/devana/internal/model"
	"github.com/jward/devana/internal/resolve"
)

// ErrNotFound is returned when a name or ID does not denote an entity of
// the expected kind.
var ErrNotFound = errors.New("devana: entity not found")

// ErrAmbiguous is returned when a name denotes several unrelated entities.
var ErrAmbiguous = errors.New("devana: ambiguous name")

// Model is a sealed, read-only semantic model. Every value it returns is a
// copy; Detail payloads and type expressions are shared with the model and
// must not be modified. A Model is safe for concurrent use.
type Model struct {
	arena       *model.Arena
	fingerprint string
	sources     map[string][]byte

	// mu guards the query resolver's caches.
	mu       sync.Mutex
	resolver *resolve.Resolver
}

func newModel(a *model.Arena) (*Model, error) {
	fp, err := a.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("devana: %w", err)
	}
	return &Model{arena: a, fingerprint: fp, resolver: resolve.NewReadOnly(a)}, nil
}

// Field is a data member of a class.
type Field struct {
	Entity Entity
	Type   *TypeExpr
	// TypeEntity is the entity the declared type names after aliases are
	// followed, looking through pointers, references and arrays. None for
	// builtin types; UnknownID when the name did not resolve.
	TypeEntity ID
	Access     string
	Static     bool
}

// Base is a resolved base-class specifier.
type Base struct {
	Type *TypeExpr
	// Entity is the base class, or UnknownID when it did not resolve.
	Entity  ID
	Access  string
	Virtual bool
	// Instance is the selected definition when the base is a template-id.
	Instance *Instance
}

// ---------------------------------------------------------------------------
// Entities
// ---------------------------------------------------------------------------

// Root returns the global namespace.
func (m *Model) Root() Entity {
	return m.arena.Root().Clone()
}

// Entity returns the entity with the given ID. IDs of entities merged
// into another resolve to the survivor.
func (m *Model) Entity(id ID) (Entity, bool) {
	e := m.arena.Get(id)
	if e == nil {
		return Entity{}, false
	}
	return e.Clone(), true
}

// Children returns the listed members of a scope in declaration order.
func (m *Model) Children(scope ID) []Entity {
	return clones(m.arena.Children(scope))
}

// EntitiesByKind returns every entity of the given kind in document order.
func (m *Model) EntitiesByKind(kind Kind) []Entity {
	var out []Entity
	for _, e := range m.arena.All() {
		if e.Kind == kind {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Walk visits the scope tree depth first from the root, parents before
// children. Returning false from fn skips the entity's members.
func (m *Model) Walk(fn func(Entity) bool) {
	var visit func(id ID)
	visit = func(id ID) {
		for _, c := range m.arena.Children(id) {
			if fn(c.Clone()) {
				visit(c.ID)
			}
		}
	}
	visit(RootID)
}

// Len returns the number of live entities, excluding the unknown
// placeholder.
func (m *Model) Len() int {
	return len(m.arena.All())
}

// Lookup finds the entity a qualified name is declared as, without
// following aliases. Names are looked up from the global namespace.
func (m *Model) Lookup(qualified string) (Entity, error) {
	ref, err := m.resolve(qualified)
	if err != nil {
		return Entity{}, err
	}
	return m.arena.Get(ref.Declared).Clone(), nil
}

// Resolve finds the entity a qualified name stands for, following
// typedefs, alias declarations and using-declarations.
func (m *Model) Resolve(qualified string) (Entity, error) {
	ref, err := m.resolve(qualified)
	if err != nil {
		return Entity{}, err
	}
	return m.arena.Get(ref.Target).Clone(), nil
}

func (m *Model) resolve(qualified string) (*model.NameRef, error) {
	qualified = strings.TrimSpace(qualified)
	if qualified == "" {
		return nil, fmt.Errorf("%w: empty name", ErrNotFound)
	}
	m.mu.Lock()
	ref := m.resolver.Resolve(qualified, RootID, model.RefAny)
	m.mu.Unlock()
	switch ref.Status {
	case model.RefResolved:
		if ref.Target == model.None {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, qualified)
		}
		return ref, nil
	case model.RefAmbiguous:
		names := make([]string, len(ref.Candidates))
		for i, id := range ref.Candidates {
			names[i] = m.arena.Get(id).QualifiedName()
		}
		return nil, fmt.Errorf("%w: %q: %s", ErrAmbiguous, qualified, strings.Join(names, ", "))
	}
	return nil, fmt.Errorf("%w: %q (%s)", ErrNotFound, qualified, ref.Status)
}

// ---------------------------------------------------------------------------
// Annotations
// ---------------------------------------------------------------------------

// Attributes returns the attributes attached to an entity in source order.
func (m *Model) Attributes(id ID) []Attribute {
	e := m.arena.Get(id)
	if e == nil {
		return nil
	}
	return e.Clone().Attributes
}

// Directives returns the directives attached to an entity in source order.
func (m *Model) Directives(id ID) []Directive {
	e := m.arena.Get(id)
	if e == nil {
		return nil
	}
	return e.Clone().Directives
}

// HasDirective reports whether an entity carries the named directive.
func (m *Model) HasDirective(id ID, name string) bool {
	e := m.arena.Get(id)
	return e != nil && e.HasDirective(name)
}

// Doc returns an entity's documentation text.
func (m *Model) Doc(id ID) string {
	if e := m.arena.Get(id); e != nil {
		return e.Doc
	}
	return ""
}

// Preamble returns the comment run at the top of a file.
func (m *Model) Preamble(file string) string {
	return m.arena.Preambles[file]
}

// ---------------------------------------------------------------------------
// Classes and enums
// ---------------------------------------------------------------------------

func (m *Model) class(id ID) (*model.Entity, *model.ClassInfo) {
	e := m.arena.Get(id)
	if e == nil {
		return nil, nil
	}
	if t, ok := e.Detail.(*model.TemplateInfo); ok {
		e = m.arena.Get(t.Primary)
		if e == nil {
			return nil, nil
		}
	}
	info, ok := e.Detail.(*model.ClassInfo)
	if !ok {
		return nil, nil
	}
	return e, info
}

// Fields returns the non-static data members of a class, or of a class
// template's primary, in declaration order.
func (m *Model) Fields(class ID) []Field {
	e, _ := m.class(class)
	if e == nil {
		return nil
	}
	var out []Field
	for _, c := range m.arena.Children(e.ID) {
		v, ok := c.Detail.(*model.VariableInfo)
		if !ok || !v.Field || v.Static {
			continue
		}
		out = append(out, Field{
			Entity:     c.Clone(),
			Type:       v.Type,
			TypeEntity: namedTarget(v.Type),
			Access:     v.Access,
			Static:     v.Static,
		})
	}
	return out
}

// namedTarget returns the entity named at the core of t.
func namedTarget(t *model.TypeExpr) ID {
	for t != nil && t.Elem != nil {
		t = t.Elem
	}
	if t == nil || t.Kind != model.TypeNamed || t.Ref == nil {
		return model.None
	}
	if t.Ref.Status != model.RefResolved {
		return model.UnknownID
	}
	return t.Ref.Target
}

// Methods returns the member functions and member function templates of a
// class in declaration order.
func (m *Model) Methods(class ID) []Entity {
	e, _ := m.class(class)
	if e == nil {
		return nil
	}
	var out []Entity
	for _, c := range m.arena.Children(e.ID) {
		switch d := c.Detail.(type) {
		case *model.FunctionInfo:
			out = append(out, c.Clone())
		case *model.TemplateInfo:
			if p := m.arena.Get(d.Primary); p != nil && p.Kind == model.KindFunction {
				out = append(out, c.Clone())
			}
		}
	}
	return out
}

// Bases returns a class's base specifiers in declaration order.
func (m *Model) Bases(class ID) []Base {
	_, info := m.class(class)
	if info == nil {
		return nil
	}
	out := make([]Base, 0, len(info.Bases))
	for _, b := range info.Bases {
		base := Base{Type: b.Type, Entity: namedTarget(b.Type), Access: b.Access, Virtual: b.Virtual}
		if b.Type != nil && b.Type.Ref != nil && b.Type.Ref.Instance != nil {
			in := *b.Type.Ref.Instance
			base.Instance = &in
		}
		out = append(out, base)
	}
	return out
}

// Enumerators returns an enum's enumerators in declaration order.
func (m *Model) Enumerators(enum ID) []Entity {
	e := m.arena.Get(enum)
	if e == nil {
		return nil
	}
	if _, ok := e.Detail.(*model.EnumInfo); !ok {
		return nil
	}
	return clones(m.arena.Children(e.ID))
}

// ---------------------------------------------------------------------------
// Templates
// ---------------------------------------------------------------------------

func (m *Model) template(id ID) (*model.Entity, *model.TemplateInfo, error) {
	e := m.arena.Get(id)
	if e == nil {
		return nil, nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	info, ok := e.Detail.(*model.TemplateInfo)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s is a %s, not a template", ErrNotFound, e.QualifiedName(), e.Kind)
	}
	return e, info, nil
}

// Specializations returns a template's explicit and partial
// specializations in declaration order.
func (m *Model) Specializations(tmpl ID) []Specialization {
	_, info, err := m.template(tmpl)
	if err != nil {
		return nil
	}
	out := make([]Specialization, len(info.Specializations))
	copy(out, info.Specializations)
	return out
}

// Instantiate selects the definition of a template used with the given
// argument spellings. Names in the arguments are looked up from the
// template's scope. The model is not changed.
func (m *Model) Instantiate(tmpl ID, args ...string) (Instance, error) {
	e, _, err := m.template(tmpl)
	if err != nil {
		return Instance{}, err
	}
	parsed := model.ParseArgs(args, nil)
	for _, a := range parsed {
		for _, ref := range a.Refs() {
			ref.Scope = e.Owner
			ref.Owner = e.ID
			ref.Context = model.RefType
		}
	}
	m.mu.Lock()
	in := m.resolver.Instantiate(e.ID, parsed)
	m.mu.Unlock()
	return *in, nil
}

// Instances returns every instantiation resolved while the model was
// built, in the order they were first needed.
func (m *Model) Instances() []Instance {
	out := make([]Instance, len(m.arena.Instances))
	for i, in := range m.arena.Instances {
		out[i] = *in
	}
	return out
}

// ---------------------------------------------------------------------------
// References and diagnostics
// ---------------------------------------------------------------------------

// References returns every name reference recorded in the sources with
// its resolution status.
func (m *Model) References() []NameRef {
	refs := m.arena.Refs()
	out := make([]NameRef, len(refs))
	for i, r := range refs {
		out[i] = *r
	}
	return out
}

// Diagnostics returns the non-fatal problems found during the build,
// ordered by position.
func (m *Model) Diagnostics() []Diagnostic {
	items := m.arena.Diags.Items()
	out := make([]Diagnostic, len(items))
	copy(out, items)
	return out
}

// DroppedDiagnostics returns how many diagnostics exceeded the limit.
func (m *Model) DroppedDiagnostics() int {
	return m.arena.Diags.Dropped()
}

// Files returns the unit paths in link order.
func (m *Model) Files() []string {
	out := make([]string, len(m.arena.Files))
	copy(out, m.arena.Files)
	return out
}

// Source returns the text file was parsed from. Models built from
// pre-parsed units have none.
func (m *Model) Source(file string) ([]byte, bool) {
	src, ok := m.sources[file]
	return src, ok
}

// Fingerprint returns a hash of the model's observable content. Building
// the same sources twice yields the same fingerprint.
func (m *Model) Fingerprint() string {
	return m.fingerprint
}

func clones(es []*model.Entity) []Entity {
	out := make([]Entity, len(es))
	for i, e := range es {
		out[i] = e.Clone()
	}
	return out
}
