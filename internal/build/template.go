package build

import (
	"strings"

	"github.com/jward/devana/internal/model"
	"github.com/jward/devana/internal/syntax"
)

// outerShift keeps placeholder indexes of enclosing templates apart from
// those of the innermost parameter list.
const outerShift = 1000

// paramMap maps parameter names to placeholder indexes. Names of enclosing
// templates stay visible unless shadowed.
func (b *Builder) paramMap(in []syntax.TemplateParam) map[string]int {
	outer := b.top().params
	m := make(map[string]int, len(in)+len(outer))
	for name, idx := range outer {
		m[name] = idx + outerShift
	}
	for i, p := range in {
		if p.Name != "" {
			m[p.Name] = i
		}
	}
	return m
}

func (b *Builder) templateParams(in []syntax.TemplateParam, m map[string]int, owner model.ID) []model.TemplateParam {
	scope := b.top().scope
	out := make([]model.TemplateParam, 0, len(in))
	for _, p := range in {
		tp := model.TemplateParam{
			Name:      p.Name,
			Specifier: p.Specifier,
			Default:   strings.TrimSpace(p.Default),
			Variadic:  p.Variadic,
		}
		switch p.Kind {
		case "non-type":
			tp.Kind = model.ParamNonType
			tp.Type = model.ParseType(p.Type, m)
			b.arena.AddTypeRefs(tp.Type, scope, owner, model.RefType)
		case "template":
			tp.Kind = model.ParamTemplate
		default:
			tp.Kind = model.ParamType
		}
		if tp.Default != "" {
			tp.DefaultType = model.ParseArgs([]string{tp.Default}, m)[0]
			b.arena.AddTypeRefs(tp.DefaultType, scope, owner, model.RefType)
		}
		out = append(out, tp)
	}
	return out
}

// templatedDecl returns the declaration a template wrapper introduces.
func templatedDecl(n *syntax.Node) *syntax.Node {
	for _, c := range n.Children {
		if c.Kind != syntax.Unknown {
			return c
		}
	}
	return nil
}

func (b *Builder) template(n *syntax.Node) (*model.Entity, error) {
	decl := templatedDecl(n)
	if decl == nil {
		return nil, b.structural(n, "template %q without a declaration", n.Name)
	}
	if b.top().kind == frameEnum {
		return nil, b.structural(n, "template inside an enum")
	}
	if decl.Kind == syntax.Concept {
		return b.concept(mergeNode(n, decl), n.TemplateParams)
	}

	// "template<> struct S<int>" and "template<class T> struct S<T*>" are
	// specializations, not new templates.
	base, args := specializedName(decl)
	if decl.Kind == syntax.Specialization || len(args) > 0 {
		if decl.Kind == syntax.Specialization {
			if len(decl.TemplateParams) == 0 {
				decl.TemplateParams = n.TemplateParams
			}
			return b.specialization(mergeNode(n, decl))
		}
		return b.specializationOf(mergeNode(n, decl), base, args, n.TemplateParams)
	}

	_, name := splitQualified(decl.Name)
	if name == "" {
		return nil, b.structural(decl, "templated %s without a name", decl.Kind)
	}
	m := b.paramMap(n.TemplateParams)
	info := &model.TemplateInfo{}
	tmpl := b.newEntity(n, model.KindTemplate, name, info, true)
	if tmpl.Span.IsZero() {
		tmpl.Span = decl.Span
	}
	info.Params = b.templateParams(n.TemplateParams, m, tmpl.ID)

	fr := *b.top()
	fr.params = m
	b.push(fr)
	primary, err := b.declare(decl, false)
	b.pop()
	if err != nil {
		return nil, err
	}
	if primary == nil {
		return nil, b.structural(decl, "%s cannot be templated", decl.Kind)
	}
	info.Primary = primary.ID
	addRaw(tmpl, decl)
	return tmpl, nil
}

// mergeNode carries the wrapper's position and annotations onto the
// wrapped declaration.
func mergeNode(wrapper, decl *syntax.Node) *syntax.Node {
	c := *decl
	c.Attributes = append(append([]string(nil), wrapper.Attributes...), decl.Attributes...)
	if c.Comment == "" {
		c.Comment = wrapper.Comment
	}
	if !wrapper.Span.IsZero() {
		c.Span = wrapper.Span
	}
	return &c
}

// specializedName splits a declaration written as a template-id.
func specializedName(n *syntax.Node) (string, []string) {
	if len(n.TemplateArgs) > 0 {
		base, _ := splitTemplateID(n.Name)
		return base, n.TemplateArgs
	}
	if n.Kind == syntax.Function || n.Kind == syntax.Method {
		return n.Name, nil
	}
	return splitTemplateID(n.Name)
}

// specialization handles a Specialization node: either the record itself
// with its members as children, or a wrapper around the record or function.
func (b *Builder) specialization(n *syntax.Node) (*model.Entity, error) {
	base, args := specializedName(n)
	if len(args) == 0 {
		return nil, b.structural(n, "specialization of %q without arguments", n.Name)
	}
	return b.specializationOf(n, base, args, n.TemplateParams)
}

func (b *Builder) specializationOf(n *syntax.Node, base string, args []string, params []syntax.TemplateParam) (*model.Entity, error) {
	if base == "" {
		return nil, b.structural(n, "specialization without a template name")
	}
	body := n
	if len(n.Children) == 1 {
		c := n.Children[0]
		if cb, _ := specializedName(c); (c.Kind.IsRecord() || c.Kind == syntax.Function || c.Kind == syntax.Method) && cb == base {
			body = mergeNode(n, c)
		}
	}

	m := b.paramMap(params)
	fr := *b.top()
	fr.params = m
	b.push(fr)
	defer b.pop()

	if body.Kind == syntax.Function || body.Kind == syntax.Method {
		fn := *body
		fn.Name = base
		fn.TemplateArgs = args
		return b.function(&fn, false)
	}

	info := &model.ClassInfo{
		Keyword: recordKeyword(body),
		Defined: true,
		Final:   body.Has("final"),
		Access:  b.memberAccess(body),
	}
	kind := model.KindClass
	if info.Keyword == "union" {
		kind = model.KindUnion
	}
	display := base + "<" + strings.Join(args, ", ") + ">"
	e := b.newEntity(body, kind, display, info, false)
	tps := b.templateParams(params, m, e.ID)
	pattern := model.ParseArgs(args, m)
	b.pend(n, e, base, pattern, tps)
	return e, b.recordBody(e, body, info)
}

// pend queues body as a specialization of the template named name.
func (b *Builder) pend(n *syntax.Node, body *model.Entity, name string, pattern []*model.TypeExpr, params []model.TemplateParam) {
	scope := b.top().scope
	ref := model.ParseName(name)
	ref.Scope = scope
	ref.Owner = body.ID
	ref.Context = model.RefTemplate
	b.arena.AddRef(ref)
	deduced := false
	for _, p := range pattern {
		b.arena.AddTypeRefs(p, scope, body.ID, model.RefType)
		deduced = deduced || p.HasPlaceholders()
	}
	if len(params) > 0 && !deduced {
		b.arena.Diags.Addf(model.UnsupportedConstruct, body.ID, n.Span,
			"partial specialization %s does not use its template parameters", body.Name)
	}
	b.arena.AddPending(&model.PendingSpecialization{
		Template: ref,
		Spec: model.Specialization{
			Pattern:  pattern,
			Params:   params,
			Explicit: len(params) == 0,
			Body:     body.ID,
			Span:     n.Span,
		},
	})
}

// ---------------------------------------------------------------------------
// Concepts
// ---------------------------------------------------------------------------

func (b *Builder) concept(n *syntax.Node, params []syntax.TemplateParam) (*model.Entity, error) {
	if n.Name == "" {
		return nil, b.structural(n, "concept without a name")
	}
	if b.top().kind != frameNamespace {
		return nil, b.structural(n, "concept %q outside namespace scope", n.Name)
	}
	m := b.paramMap(params)
	info := &model.ConceptInfo{
		Constraint:   n.Value,
		Requirements: ParseRequirements(n.Value),
	}
	e := b.newEntity(n, model.KindConcept, n.Name, info, true)
	info.Params = b.templateParams(params, m, e.ID)
	return e, nil
}
