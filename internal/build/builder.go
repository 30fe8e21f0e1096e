// Package build turns an adapted node stream into a model arena. The
// builder creates one entity per declaration and attaches it to its scope;
// the merger then folds redeclarations into canonical records.
package build

import (
	"fmt"
	"strings"

	"github.com/jward/devana/internal/model"
	"github.com/jward/devana/internal/syntax"
)

// frame is one level of the builder's scope stack.
type frame struct {
	scope   model.ID
	kind    frameKind
	access  string
	linkage string
	params  map[string]int
}

type frameKind uint8

const (
	frameNamespace frameKind = iota
	frameRecord
	frameEnum
)

// Builder walks one file in document order.
type Builder struct {
	arena *model.Arena
	file  *syntax.File
	stack []frame
}

// Build creates a fresh arena for f. A StructuralError aborts the unit;
// every other problem is recorded as a diagnostic.
func Build(f *syntax.File, maxDiagnostics int) (*model.Arena, error) {
	a := model.NewArena(maxDiagnostics)
	if err := BuildInto(a, f); err != nil {
		return nil, err
	}
	return a, nil
}

// BuildInto adds the declarations of f to an existing arena.
func BuildInto(a *model.Arena, f *syntax.File) error {
	b := &Builder{arena: a, file: f}
	b.stack = []frame{{scope: model.RootID, kind: frameNamespace}}
	a.AddFile(f.Path, f.Comments)
	for _, n := range f.Nodes {
		if err := b.node(n); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) top() *frame {
	return &b.stack[len(b.stack)-1]
}

func (b *Builder) push(fr frame) {
	if fr.params == nil {
		fr.params = b.top().params
	}
	b.stack = append(b.stack, fr)
}

func (b *Builder) pop() {
	b.stack = b.stack[:len(b.stack)-1]
}

func (b *Builder) structural(n *syntax.Node, format string, args ...any) error {
	return &model.StructuralError{Unit: b.file.Path, Span: n.Span, Reason: fmt.Sprintf(format, args...)}
}

// node dispatches one declaration into the current scope.
func (b *Builder) node(n *syntax.Node) error {
	_, err := b.declare(n, true)
	return err
}

// declare builds n. listed controls whether the entity appears in its
// owner's children and index; template primaries and specialization
// bodies are reached through their template instead.
func (b *Builder) declare(n *syntax.Node, listed bool) (*model.Entity, error) {
	switch n.Kind {
	case syntax.Namespace:
		return nil, b.namespace(n)
	case syntax.Class, syntax.Struct, syntax.Union:
		return b.record(n, listed)
	case syntax.Enum, syntax.EnumClass, syntax.EnumStruct:
		return b.enum(n, listed)
	case syntax.Function, syntax.Method:
		return b.function(n, listed)
	case syntax.Variable, syntax.Field:
		return b.variable(n, listed)
	case syntax.Typedef, syntax.UsingAlias:
		return b.alias(n, listed)
	case syntax.TemplateWrapper:
		return b.template(n)
	case syntax.Specialization:
		return b.specialization(n)
	case syntax.Concept:
		return b.concept(n, n.TemplateParams)
	case syntax.UsingDirective:
		return nil, b.usingDirective(n)
	case syntax.UsingDeclaration:
		return b.usingDeclaration(n)
	case syntax.ExternBlock:
		return nil, b.extern(n)
	default:
		return b.unmodeled(n), nil
	}
}

// newEntity creates the entity in the current scope and records its raw
// annotation inputs.
func (b *Builder) newEntity(n *syntax.Node, kind model.Kind, name string, detail model.Detail, listed bool) *model.Entity {
	indexed := listed && name != ""
	e := b.arena.New(kind, name, b.top().scope, n.Span, detail, listed, indexed)
	if name == "" {
		e.Internal = anonymousName(n)
	}
	addRaw(e, n)
	return e
}

func addRaw(e *model.Entity, n *syntax.Node) {
	e.Raw.Attributes = append(e.Raw.Attributes, n.Attributes...)
	e.Raw.Comments = append(e.Raw.Comments, n.Comment)
	e.Raw.Trailing = append(e.Raw.Trailing, n.TrailingComment)
	e.Raw.Spans = append(e.Raw.Spans, n.Span)
}

func anonymousName(n *syntax.Node) string {
	what := strings.ToLower(n.Kind.String())
	if n.Kind == syntax.Namespace {
		return fmt.Sprintf("(anonymous namespace in %s)", n.Span.File)
	}
	return fmt.Sprintf("(anonymous %s at %s)", what, n.Span)
}

func (b *Builder) children(n *syntax.Node) error {
	for _, c := range n.Children {
		if err := b.node(c); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Namespaces
// ---------------------------------------------------------------------------

func (b *Builder) namespace(n *syntax.Node) error {
	if b.top().kind != frameNamespace {
		return b.structural(n, "namespace %q inside a class or enum", n.Name)
	}
	names := []string{n.Name}
	if strings.Contains(n.Name, "::") {
		names = strings.Split(n.Name, "::")
	}
	pushed := 0
	for i, name := range names {
		inline := n.Has("inline") && i == len(names)-1
		e := b.openNamespace(n, name, inline)
		b.push(frame{scope: e.ID, kind: frameNamespace, linkage: b.top().linkage})
		pushed++
	}
	err := b.children(n)
	for ; pushed > 0; pushed-- {
		b.pop()
	}
	return err
}

// openNamespace reuses the namespace already declared under name in the
// current scope, or creates it. Anonymous namespaces are reused per scope.
func (b *Builder) openNamespace(n *syntax.Node, name string, inline bool) *model.Entity {
	scope := b.arena.ScopeOf(b.top().scope)
	var found *model.Entity
	if name == "" {
		for _, id := range scope.Implicit {
			if e := b.arena.Get(id); e != nil && e.Kind == model.KindNamespace && e.Anonymous() {
				found = e
				break
			}
		}
	} else {
		for _, id := range scope.Lookup(name) {
			if e := b.arena.Get(id); e != nil && e.Kind == model.KindNamespace {
				found = e
				break
			}
		}
	}
	if found == nil {
		found = b.newEntity(n, model.KindNamespace, name, &model.NamespaceInfo{Inline: inline}, true)
		if name == "" || inline {
			scope.Implicit = append(scope.Implicit, found.ID)
		}
	} else {
		addRaw(found, n)
	}
	info := found.Detail.(*model.NamespaceInfo)
	if inline && !info.Inline {
		info.Inline = true
		scope.Implicit = append(scope.Implicit, found.ID)
	}
	info.Fragments = append(info.Fragments, n.Span)
	return found
}

func (b *Builder) extern(n *syntax.Node) error {
	fr := *b.top()
	fr.linkage = n.Linkage
	if fr.linkage == "" {
		fr.linkage = "C"
	}
	b.push(fr)
	defer b.pop()
	return b.children(n)
}

// ---------------------------------------------------------------------------
// Records and enums
// ---------------------------------------------------------------------------

func recordKeyword(n *syntax.Node) string {
	switch n.Kind {
	case syntax.Union:
		return "union"
	case syntax.Class:
		return "class"
	case syntax.Struct:
		return "struct"
	}
	for _, q := range n.Qualifiers {
		if q == "class" || q == "struct" || q == "union" {
			return q
		}
	}
	return "struct"
}

func (b *Builder) record(n *syntax.Node, listed bool) (*model.Entity, error) {
	if b.top().kind == frameEnum {
		return nil, b.structural(n, "record %q inside an enum", n.Name)
	}
	if base, args := specializedName(n); len(args) > 0 {
		return b.specializationOf(n, base, args, nil)
	}
	info := &model.ClassInfo{
		Keyword: recordKeyword(n),
		Defined: n.IsDefinition || len(n.Children) > 0,
		Final:   n.Has("final"),
		Access:  b.memberAccess(n),
	}
	kind := model.KindClass
	if info.Keyword == "union" {
		kind = model.KindUnion
	}
	e := b.newEntity(n, kind, n.Name, info, listed)
	if e.Anonymous() && listed {
		sc := b.arena.ScopeOf(b.top().scope)
		sc.Implicit = append(sc.Implicit, e.ID)
	}
	return e, b.recordBody(e, n, info)
}

// recordBody fills a record's bases and members.
func (b *Builder) recordBody(e *model.Entity, n *syntax.Node, info *model.ClassInfo) error {
	for _, base := range n.Bases {
		t := model.ParseType(base.Name, b.top().params)
		if t == nil {
			return b.structural(n, "empty base specifier on %q", n.Name)
		}
		access := base.Access
		if access == "" {
			access = info.DefaultAccess()
		}
		info.Bases = append(info.Bases, model.Base{Type: t, Access: access, Virtual: base.Virtual})
		b.arena.AddTypeRefs(t, b.top().scope, e.ID, model.RefBase)
	}
	b.push(frame{scope: e.ID, kind: frameRecord, access: info.DefaultAccess(), linkage: b.top().linkage})
	defer b.pop()
	for _, c := range n.Children {
		if isAccessLabel(c) {
			b.top().access = c.Access
			continue
		}
		if err := b.node(c); err != nil {
			return err
		}
	}
	return nil
}

// isAccessLabel reports whether n is a "public:" style label rather than a
// declaration.
func isAccessLabel(n *syntax.Node) bool {
	if n.Kind != syntax.Unknown || n.Access == "" {
		return false
	}
	switch n.RawKind {
	case "AccessSpecifier", "CXX_ACCESS_SPEC_DECL", "access_specifier":
		return true
	}
	return n.Name == ""
}

func (b *Builder) memberAccess(n *syntax.Node) string {
	if b.top().kind != frameRecord {
		return ""
	}
	if n.Access != "" {
		return n.Access
	}
	return b.top().access
}

func (b *Builder) enum(n *syntax.Node, listed bool) (*model.Entity, error) {
	if b.top().kind == frameEnum {
		return nil, b.structural(n, "enum %q inside an enum", n.Name)
	}
	info := &model.EnumInfo{
		Keyword:    "enum",
		Underlying: model.ParseType(n.Type, b.top().params),
		Defined:    n.IsDefinition || len(n.Children) > 0,
		Access:     b.memberAccess(n),
	}
	switch {
	case n.Kind == syntax.EnumClass || n.Has("class"):
		info.Scoped, info.Keyword = true, "enum class"
	case n.Kind == syntax.EnumStruct || n.Has("struct"):
		info.Scoped, info.Keyword = true, "enum struct"
	}
	e := b.newEntity(n, model.KindEnum, n.Name, info, listed)
	b.arena.AddTypeRefs(info.Underlying, b.top().scope, e.ID, model.RefType)
	outer := b.arena.ScopeOf(b.top().scope)

	b.push(frame{scope: e.ID, kind: frameEnum, linkage: b.top().linkage})
	defer b.pop()
	for _, c := range n.Children {
		if c.Kind != syntax.Variable && c.Kind != syntax.Field {
			return e, b.structural(c, "%s %q inside enum %q", c.Kind, c.Name, n.Name)
		}
		if c.Name == "" {
			return e, b.structural(c, "enumerator without a name in %q", n.Name)
		}
		v := b.newEntity(c, model.KindVariable, c.Name, &model.VariableInfo{Enumerator: true, Value: c.Value, Access: info.Access}, true)
		if !info.Scoped {
			b.arena.Index(outer, c.Name, v.ID)
		}
	}
	return e, nil
}

// ---------------------------------------------------------------------------
// Functions and variables
// ---------------------------------------------------------------------------

// splitQualified separates "A::B::f" into the qualifier "A::B" and "f".
// Scope operators inside template arguments or after "operator" are not
// split points.
func splitQualified(name string) (string, string) {
	limit := len(name)
	if i := strings.Index(name, "operator"); i >= 0 {
		limit = i
	}
	depth, cut := 0, -1
	for i := 0; i+1 < limit; i++ {
		switch name[i] {
		case '<':
			depth++
		case '>':
			depth--
		case ':':
			if depth == 0 && name[i+1] == ':' {
				cut = i
				i++
			}
		}
	}
	switch {
	case cut < 0:
		return "", name
	case cut == 0:
		return "", name[2:]
	}
	return name[:cut], name[cut+2:]
}

// splitTemplateID separates "f<int>" into "f" and its argument texts.
func splitTemplateID(name string) (string, []string) {
	if strings.HasPrefix(name, "operator") {
		return name, nil
	}
	i := strings.IndexByte(name, '<')
	if i <= 0 || !strings.HasSuffix(name, ">") {
		return name, nil
	}
	return strings.TrimSpace(name[:i]), model.SplitArgs(name[i+1 : len(name)-1])
}

func (b *Builder) function(n *syntax.Node, listed bool) (*model.Entity, error) {
	if n.Name == "" {
		return nil, b.structural(n, "function without a name")
	}
	fr := b.top()
	if fr.kind == frameEnum {
		return nil, b.structural(n, "function %q inside an enum", n.Name)
	}
	qualifier, name := splitQualified(n.Name)
	name, idArgs := splitTemplateID(name)
	if n.Kind == syntax.Method && fr.kind != frameRecord && qualifier == "" {
		return nil, b.structural(n, "method %q outside a class", n.Name)
	}
	params := fr.params
	info := &model.FunctionInfo{
		Return:    model.ParseType(n.Type, params),
		Method:    fr.kind == frameRecord || n.Kind == syntax.Method,
		HasBody:   n.IsDefinition,
		Static:    n.Has("static"),
		Virtual:   n.Has("virtual") || n.Has("override") || n.Has("pure"),
		Pure:      n.Has("pure"),
		Const:     n.Has("const"),
		Deleted:   n.Has("deleted") || n.Has("delete"),
		Defaulted: n.Has("defaulted") || n.Has("default"),
		Inline:    n.Has("inline"),
		Constexpr: n.Has("constexpr"),
		Noexcept:  n.Has("noexcept"),
		Variadic:  n.Has("variadic"),
		Access:    b.memberAccess(n),
		Linkage:   fr.linkage,
		Dtor:      strings.HasPrefix(name, "~"),
	}
	if qualifier != "" {
		info.Qualifier = model.ParseName(qualifier)
		_, owner := splitQualified(qualifier)
		owner, _ = splitTemplateID(owner)
		info.Ctor = owner == name
		info.Dtor = info.Dtor && strings.TrimPrefix(name, "~") == owner
	} else if fr.kind == frameRecord {
		if cls := b.arena.Get(fr.scope); cls != nil {
			base, _ := splitTemplateID(cls.Name)
			info.Ctor = name == base
		}
	}
	for _, p := range n.Params {
		if strings.TrimSpace(p.Type) == "..." {
			info.Variadic = true
			continue
		}
		info.Params = append(info.Params, model.Param{Name: p.Name, Type: model.ParseType(p.Type, params), Default: p.Default})
	}
	args := n.TemplateArgs
	if len(args) == 0 {
		args = idArgs
	}
	if len(args) > 0 {
		info.TemplateArgs = model.ParseArgs(args, params)
	}

	if len(args) > 0 {
		// An explicit function template specialization is a body of the
		// function template, not a visible overload.
		e := b.newEntity(n, model.KindFunction, name, info, false)
		b.functionRefs(e, info)
		b.pend(n, e, name, info.TemplateArgs, nil)
		return e, nil
	}
	e := b.newEntity(n, model.KindFunction, name, info, listed)
	b.functionRefs(e, info)
	return e, nil
}

func (b *Builder) functionRefs(e *model.Entity, info *model.FunctionInfo) {
	scope := b.top().scope
	b.arena.AddTypeRefs(info.Return, scope, e.ID, model.RefType)
	for _, p := range info.Params {
		b.arena.AddTypeRefs(p.Type, scope, e.ID, model.RefType)
	}
	for _, a := range info.TemplateArgs {
		b.arena.AddTypeRefs(a, scope, e.ID, model.RefType)
	}
	if info.Qualifier != nil {
		info.Qualifier.Context = model.RefAny
		info.Qualifier.Scope = scope
		info.Qualifier.Owner = e.ID
		b.arena.AddRef(info.Qualifier)
	}
}

func (b *Builder) variable(n *syntax.Node, listed bool) (*model.Entity, error) {
	fr := b.top()
	if n.Kind == syntax.Field && fr.kind != frameRecord {
		return nil, b.structural(n, "field %q outside a class", n.Name)
	}
	if fr.kind == frameEnum {
		return nil, b.structural(n, "variable %q inside an enum", n.Name)
	}
	if n.Name == "" && n.Kind == syntax.Variable {
		return nil, b.structural(n, "variable without a name")
	}
	qualifier, name := splitQualified(n.Name)
	info := &model.VariableInfo{
		Type:      model.ParseType(n.Type, fr.params),
		Value:     n.Value,
		Field:     n.Kind == syntax.Field || (fr.kind == frameRecord && !n.Has("static")),
		Static:    n.Has("static"),
		Constexpr: n.Has("constexpr"),
		Mutable:   n.Has("mutable"),
		Access:    b.memberAccess(n),
		Linkage:   fr.linkage,
	}
	if fr.kind == frameRecord && n.Kind == syntax.Variable {
		info.Static = true
		info.Field = false
	}
	e := b.newEntity(n, model.KindVariable, name, info, listed)
	b.arena.AddTypeRefs(info.Type, fr.scope, e.ID, model.RefType)
	if qualifier != "" {
		// Out-of-line static member definition; the merger relocates it.
		info.Qualifier = model.ParseName(qualifier)
		info.Qualifier.Scope = fr.scope
		info.Qualifier.Owner = e.ID
		b.arena.AddRef(info.Qualifier)
	}
	return e, nil
}

// ---------------------------------------------------------------------------
// Aliases and using
// ---------------------------------------------------------------------------

func (b *Builder) alias(n *syntax.Node, listed bool) (*model.Entity, error) {
	if n.Name == "" {
		return nil, b.structural(n, "alias without a name")
	}
	if b.top().kind == frameEnum {
		return nil, b.structural(n, "alias %q inside an enum", n.Name)
	}
	// "typedef struct {...} name;" carries the record as a child.
	for _, c := range n.Children {
		if err := b.node(c); err != nil {
			return nil, err
		}
	}
	info := &model.AliasInfo{
		Form:   model.AliasUsing,
		Target: model.ParseType(n.Type, b.top().params),
		Access: b.memberAccess(n),
	}
	if n.Kind == syntax.Typedef {
		info.Form = model.AliasTypedef
	}
	if info.Target == nil {
		return nil, b.structural(n, "alias %q without a target type", n.Name)
	}
	e := b.newEntity(n, model.KindTypedefAlias, n.Name, info, listed)
	b.arena.AddTypeRefs(info.Target, b.top().scope, e.ID, model.RefType)
	return e, nil
}

func (b *Builder) usingDirective(n *syntax.Node) error {
	if n.Name == "" {
		return b.structural(n, "using-directive without a namespace")
	}
	if b.top().kind != frameNamespace {
		return b.structural(n, "using-directive %q inside a class", n.Name)
	}
	ref := model.ParseName(n.Name)
	ref.Scope = b.top().scope
	ref.Owner = b.top().scope
	ref.Context = model.RefNamespace
	sc := b.arena.ScopeOf(b.top().scope)
	sc.Using = append(sc.Using, ref)
	b.arena.AddRef(ref)
	return nil
}

func (b *Builder) usingDeclaration(n *syntax.Node) (*model.Entity, error) {
	if n.Name == "" {
		return nil, b.structural(n, "using-declaration without a name")
	}
	ref := model.ParseName(n.Name)
	if !ref.Qualified() {
		return nil, b.structural(n, "using-declaration %q is not qualified", n.Name)
	}
	info := &model.AliasInfo{Form: model.AliasUsingDeclaration, Ref: ref, Access: b.memberAccess(n)}
	e := b.newEntity(n, model.KindTypedefAlias, ref.Last().Name, info, true)
	ref.Scope = b.top().scope
	ref.Owner = e.ID
	b.arena.AddRef(ref)
	return e, nil
}

// ---------------------------------------------------------------------------
// Unmodeled constructs
// ---------------------------------------------------------------------------

// unmodeled wraps a construct the model does not understand. Opaque
// entities are enumerable by position only, never by name.
func (b *Builder) unmodeled(n *syntax.Node) *model.Entity {
	e := b.arena.New(model.KindUnmodeled, n.Name, b.top().scope, n.Span, &model.UnmodeledInfo{RawKind: n.RawKind}, true, false)
	if n.Name == "" {
		e.Internal = anonymousName(n)
	}
	addRaw(e, n)
	b.arena.Diags.Addf(model.UnsupportedConstruct, e.ID, n.Span, "unsupported construct %q", n.RawKind)
	return e
}
