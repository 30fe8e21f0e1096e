// Package frontend parses C++ source text with tree-sitter and produces the
// node stream the syntax adapter consumes. It reports declarations as they
// are written; it performs no lookup and merges nothing.
package frontend

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/jward/devana/internal/syntax"
)

// ParseFile reads and parses one C++ file.
func ParseFile(ctx context.Context, path string) (*syntax.Unit, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("frontend: read %s: %w", path, err)
	}
	return Parse(ctx, path, src)
}

// Parse parses src as the unit named path. Regions tree-sitter cannot
// parse are skipped; everything around them is still reported.
func Parse(ctx context.Context, path string, src []byte) (*syntax.Unit, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(cpp.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("frontend: parse %s: %w", path, err)
	}
	defer tree.Close()

	w := &walker{src: src, path: path}
	root := tree.RootNode()
	w.comments(root)
	u := &syntax.Unit{Path: path, Comments: w.found, Source: src}
	u.Nodes = w.items(root, false)
	return u, nil
}

type walker struct {
	src   []byte
	path  string
	found []syntax.Comment
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.src)
}

func (w *walker) span(n *sitter.Node) syntax.Span {
	s, e := n.StartPoint(), n.EndPoint()
	return syntax.Span{
		File:      w.path,
		StartLine: int(s.Row) + 1,
		StartCol:  int(s.Column) + 1,
		EndLine:   int(e.Row) + 1,
		EndCol:    int(e.Column) + 1,
	}
}

// comments collects every comment outside function bodies.
func (w *walker) comments(n *sitter.Node) {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "comment":
			t := w.text(c)
			w.found = append(w.found, syntax.Comment{Span: w.span(c), Text: t, Block: strings.HasPrefix(t, "/*")})
		case "compound_statement":
		default:
			w.comments(c)
		}
	}
}

// items converts the declarations directly inside n. inRecord selects
// member semantics for functions.
func (w *walker) items(n *sitter.Node, inRecord bool) []*syntax.RawNode {
	var out []*syntax.RawNode
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, w.item(n.NamedChild(i), inRecord)...)
	}
	return out
}

func (w *walker) item(n *sitter.Node, inRecord bool) []*syntax.RawNode {
	switch n.Type() {
	case "namespace_definition":
		return []*syntax.RawNode{w.namespace(n)}
	case "linkage_specification":
		return []*syntax.RawNode{w.linkage(n)}
	case "class_specifier", "struct_specifier", "union_specifier":
		return []*syntax.RawNode{w.record(n, n)}
	case "enum_specifier":
		return []*syntax.RawNode{w.enum(n, n)}
	case "function_definition":
		return []*syntax.RawNode{w.functionDefinition(n, inRecord)}
	case "declaration", "field_declaration":
		return w.declaration(n, inRecord)
	case "type_definition":
		return w.typedef(n)
	case "alias_declaration":
		return []*syntax.RawNode{w.aliasDeclaration(n)}
	case "using_declaration":
		return []*syntax.RawNode{w.using(n)}
	case "template_declaration":
		return []*syntax.RawNode{w.template(n, inRecord)}
	case "concept_definition":
		return []*syntax.RawNode{w.concept(n)}
	case "access_specifier":
		return []*syntax.RawNode{{
			Kind:   "AccessSpecifier",
			Access: strings.TrimSuffix(strings.TrimSpace(w.text(n)), ":"),
			Span:   w.span(n),
		}}
	case "preproc_ifdef", "preproc_if", "preproc_else", "preproc_elif", "declaration_list":
		return w.items(n, inRecord)
	case "friend_declaration", "static_assert_declaration":
		return []*syntax.RawNode{{Kind: n.Type(), Span: w.span(n)}}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Scopes
// ---------------------------------------------------------------------------

func (w *walker) namespace(n *sitter.Node) *syntax.RawNode {
	raw := &syntax.RawNode{
		Kind:         "Namespace",
		Spelling:     w.text(n.ChildByFieldName("name")),
		Span:         w.span(n),
		IsDefinition: true,
	}
	if hasToken(n, "inline") {
		raw.Qualifiers = append(raw.Qualifiers, "inline")
	}
	raw.AttributeTokens = w.attributes(n)
	if body := n.ChildByFieldName("body"); body != nil {
		raw.Children = w.items(body, false)
	}
	return raw
}

func (w *walker) linkage(n *sitter.Node) *syntax.RawNode {
	raw := &syntax.RawNode{
		Kind:    "ExternBlock",
		Linkage: w.text(n.ChildByFieldName("value")),
		Span:    w.span(n),
	}
	if body := n.ChildByFieldName("body"); body != nil {
		if body.Type() == "declaration_list" {
			raw.Children = w.items(body, false)
		} else {
			raw.Children = w.item(body, false)
		}
	}
	return raw
}

// ---------------------------------------------------------------------------
// Records and enums
// ---------------------------------------------------------------------------

// record converts a class, struct or union specifier. decl is the
// statement that contains it, whose span and attributes the record takes.
func (w *walker) record(n, decl *sitter.Node) *syntax.RawNode {
	kind := map[string]string{
		"class_specifier":  "Class",
		"struct_specifier": "Struct",
		"union_specifier":  "Union",
	}[n.Type()]
	raw := &syntax.RawNode{Kind: kind, Span: w.span(decl)}
	w.name(n.ChildByFieldName("name"), raw)
	raw.AttributeTokens = w.attributes(n)
	if decl != n {
		raw.AttributeTokens = append(w.attributes(decl), raw.AttributeTokens...)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "virtual_specifier":
			raw.Qualifiers = append(raw.Qualifiers, w.text(c))
		case "base_class_clause":
			raw.Bases = w.bases(c)
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		raw.IsDefinition = true
		raw.Children = w.items(body, true)
	}
	return raw
}

// name sets the spelling of a record, splitting a template-id into the
// template name and its arguments.
func (w *walker) name(n *sitter.Node, raw *syntax.RawNode) {
	if n == nil {
		return
	}
	if n.Type() == "template_type" {
		raw.Spelling = w.text(n.ChildByFieldName("name"))
		raw.TemplateArgs = w.arguments(n.ChildByFieldName("arguments"))
		return
	}
	raw.Spelling = w.text(n)
}

func (w *walker) arguments(list *sitter.Node) []string {
	if list == nil {
		return nil
	}
	out := []string{}
	for i := 0; i < int(list.NamedChildCount()); i++ {
		c := list.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		out = append(out, w.text(c))
	}
	return out
}

func (w *walker) bases(clause *sitter.Node) []syntax.Base {
	var out []syntax.Base
	var cur syntax.Base
	for i := 0; i < int(clause.ChildCount()); i++ {
		c := clause.Child(i)
		switch c.Type() {
		case "access_specifier":
			cur.Access = w.text(c)
		case "public", "protected", "private":
			cur.Access = c.Type()
		case "virtual":
			cur.Virtual = true
		case ",", ":":
		case "type_identifier", "qualified_type_identifier", "template_type":
			cur.Name = w.text(c)
			out = append(out, cur)
			cur = syntax.Base{}
		}
	}
	return out
}

func (w *walker) enum(n, decl *sitter.Node) *syntax.RawNode {
	raw := &syntax.RawNode{
		Kind:     "Enum",
		Spelling: w.text(n.ChildByFieldName("name")),
		Type:     w.text(n.ChildByFieldName("base")),
		Span:     w.span(decl),
	}
	raw.AttributeTokens = w.attributes(n)
	switch {
	case hasToken(n, "class"):
		raw.Kind = "EnumClass"
	case hasToken(n, "struct"):
		raw.Kind = "EnumStruct"
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return raw
	}
	raw.IsDefinition = true
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		if c.Type() != "enumerator" {
			continue
		}
		raw.Children = append(raw.Children, &syntax.RawNode{
			Kind:            "Variable",
			Spelling:        w.text(c.ChildByFieldName("name")),
			Value:           w.text(c.ChildByFieldName("value")),
			Span:            w.span(c),
			AttributeTokens: w.attributes(c),
		})
	}
	return raw
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// declarator is what one declarator contributes to a declaration.
type declarator struct {
	name string
	// ops are the pointer and reference operators, outermost first.
	ops    string
	suffix string
	value  string
	fn     *sitter.Node
	tmpl   *sitter.Node
}

func (w *walker) unwrap(n *sitter.Node, d *declarator) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "init_declarator":
		d.value = w.text(n.ChildByFieldName("value"))
		w.unwrap(n.ChildByFieldName("declarator"), d)
	case "pointer_declarator":
		d.ops += "*"
		w.unwrap(n.ChildByFieldName("declarator"), d)
	case "reference_declarator":
		if hasToken(n, "&&") {
			d.ops += "&&"
		} else {
			d.ops += "&"
		}
		if k := n.NamedChildCount(); k > 0 {
			w.unwrap(n.NamedChild(int(k)-1), d)
		}
	case "array_declarator":
		d.suffix = "[" + w.text(n.ChildByFieldName("size")) + "]" + d.suffix
		w.unwrap(n.ChildByFieldName("declarator"), d)
	case "function_declarator":
		d.fn = n
		w.unwrap(n.ChildByFieldName("declarator"), d)
	case "parenthesized_declarator", "attributed_declarator":
		if n.NamedChildCount() > 0 {
			w.unwrap(n.NamedChild(0), d)
		}
	case "template_function":
		d.tmpl = n
		d.name = w.text(n)
	default:
		d.name = w.text(n)
	}
}

var declaratorTypes = map[string]bool{
	"identifier": true, "field_identifier": true, "type_identifier": true,
	"qualified_identifier": true, "destructor_name": true, "operator_name": true,
	"template_function": true, "init_declarator": true, "pointer_declarator": true,
	"reference_declarator": true, "array_declarator": true, "function_declarator": true,
	"parenthesized_declarator": true, "attributed_declarator": true,
}

// declarators returns the declarator children of a declaration, skipping
// its type.
func (w *walker) declarators(n *sitter.Node) []*sitter.Node {
	typ := n.ChildByFieldName("type")
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if typ != nil && c.StartByte() < typ.EndByte() {
			continue
		}
		if declaratorTypes[c.Type()] {
			out = append(out, c)
		}
	}
	return out
}

var modifierWords = map[string]bool{
	"static": true, "extern": true, "inline": true, "virtual": true,
	"constexpr": true, "mutable": true, "explicit": true, "consteval": true,
	"constinit": true, "thread_local": true,
}

// modifiers returns the cv-qualifiers that apply to the declared type and
// the remaining declaration specifiers.
func (w *walker) modifiers(n *sitter.Node) (cv string, quals []string) {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		t := strings.TrimSpace(w.text(c))
		switch {
		case c.Type() == "type_qualifier" && (t == "const" || t == "volatile"):
			cv += t + " "
		case modifierWords[t]:
			quals = append(quals, t)
		case c.Type() == "storage_class_specifier", c.Type() == "virtual_function_specifier":
			quals = append(quals, t)
		}
	}
	return cv, quals
}

// typeText returns the spelling of a declaration's type specifier. Records
// and enums defined inline are named by their tag.
func (w *walker) typeText(typ *sitter.Node) string {
	if typ == nil {
		return ""
	}
	switch typ.Type() {
	case "class_specifier", "struct_specifier", "union_specifier", "enum_specifier":
		return w.text(typ.ChildByFieldName("name"))
	}
	return w.text(typ)
}

func (w *walker) declaration(n *sitter.Node, inRecord bool) []*syntax.RawNode {
	var out []*syntax.RawNode
	typ := n.ChildByFieldName("type")
	decls := w.declarators(n)
	if typ != nil {
		switch typ.Type() {
		case "class_specifier", "struct_specifier", "union_specifier":
			if typ.ChildByFieldName("body") != nil || len(decls) == 0 {
				anchor := n
				if len(decls) > 0 {
					anchor = typ
				}
				out = append(out, w.record(typ, anchor))
			}
		case "enum_specifier":
			if typ.ChildByFieldName("body") != nil || len(decls) == 0 {
				anchor := n
				if len(decls) > 0 {
					anchor = typ
				}
				out = append(out, w.enum(typ, anchor))
			}
		}
	}
	cv, quals := w.modifiers(n)
	base := w.typeText(typ)
	for _, dn := range decls {
		var d declarator
		w.unwrap(dn, &d)
		if d.name == "" {
			continue
		}
		raw := &syntax.RawNode{
			Spelling:        d.name,
			Span:            w.span(n),
			AttributeTokens: w.attributes(n),
			Qualifiers:      append([]string(nil), quals...),
		}
		if d.fn != nil {
			raw.Kind = "Function"
			if inRecord {
				raw.Kind = "Method"
			}
			raw.Type = strings.TrimSpace(cv + base + d.ops)
			w.function(d, raw)
			if dv := n.ChildByFieldName("default_value"); dv != nil && strings.TrimSpace(w.text(dv)) == "0" {
				raw.Qualifiers = append(raw.Qualifiers, "pure")
			}
			w.methodClauses(n, raw)
		} else {
			raw.Kind = "Variable"
			if inRecord && !hasWord(quals, "static") {
				raw.Kind = "Field"
			}
			raw.Type = strings.TrimSpace(cv + base + d.ops + d.suffix)
			raw.Value = d.value
			if dv := n.ChildByFieldName("default_value"); dv != nil && raw.Value == "" {
				raw.Value = w.text(dv)
			}
			raw.IsDefinition = !hasWord(quals, "extern")
		}
		out = append(out, raw)
	}
	return out
}

func (w *walker) functionDefinition(n *sitter.Node, inRecord bool) *syntax.RawNode {
	var d declarator
	w.unwrap(n.ChildByFieldName("declarator"), &d)
	cv, quals := w.modifiers(n)
	raw := &syntax.RawNode{
		Kind:            "Function",
		Spelling:        d.name,
		Type:            strings.TrimSpace(cv + w.typeText(n.ChildByFieldName("type")) + d.ops),
		Span:            w.span(n),
		AttributeTokens: w.attributes(n),
		Qualifiers:      quals,
		IsDefinition:    true,
	}
	if inRecord {
		raw.Kind = "Method"
	}
	w.function(d, raw)
	w.methodClauses(n, raw)
	return raw
}

// methodClauses records "= default", "= delete" and "= 0".
func (w *walker) methodClauses(n *sitter.Node, raw *syntax.RawNode) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		switch n.NamedChild(i).Type() {
		case "default_method_clause":
			raw.Qualifiers = append(raw.Qualifiers, "default")
		case "delete_method_clause":
			raw.Qualifiers = append(raw.Qualifiers, "delete")
		case "pure_virtual_clause":
			raw.Qualifiers = append(raw.Qualifiers, "pure")
		}
	}
}

// function fills parameters, trailing qualifiers and template arguments
// from a function declarator.
func (w *walker) function(d declarator, raw *syntax.RawNode) {
	if d.tmpl != nil {
		raw.TemplateArgs = w.arguments(d.tmpl.ChildByFieldName("arguments"))
	}
	fn := d.fn
	if fn == nil {
		return
	}
	if params := fn.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.ChildCount()); i++ {
			c := params.Child(i)
			switch c.Type() {
			case "...":
				raw.Qualifiers = append(raw.Qualifiers, "variadic")
			case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
				raw.Params = append(raw.Params, w.param(c))
			}
		}
	}
	for i := 0; i < int(fn.ChildCount()); i++ {
		c := fn.Child(i)
		switch c.Type() {
		case "type_qualifier":
			raw.Qualifiers = append(raw.Qualifiers, w.text(c))
		case "noexcept":
			raw.Qualifiers = append(raw.Qualifiers, "noexcept")
		case "virtual_specifier":
			raw.Qualifiers = append(raw.Qualifiers, w.text(c))
		case "trailing_return_type":
			if c.NamedChildCount() > 0 {
				raw.Type = w.text(c.NamedChild(0))
			}
		}
	}
}

func (w *walker) param(n *sitter.Node) syntax.Param {
	var d declarator
	w.unwrap(n.ChildByFieldName("declarator"), &d)
	cv, _ := w.modifiers(n)
	p := syntax.Param{
		Name:    d.name,
		Type:    strings.TrimSpace(cv + w.typeText(n.ChildByFieldName("type")) + d.ops + d.suffix),
		Default: w.text(n.ChildByFieldName("default_value")),
	}
	if n.Type() == "variadic_parameter_declaration" {
		p.Type += "..."
		p.Name = strings.TrimPrefix(strings.TrimSpace(p.Name), "...")
	}
	return p
}

// ---------------------------------------------------------------------------
// Aliases and using
// ---------------------------------------------------------------------------

func (w *walker) typedef(n *sitter.Node) []*syntax.RawNode {
	var out []*syntax.RawNode
	typ := n.ChildByFieldName("type")
	var children []*syntax.RawNode
	if typ != nil {
		switch typ.Type() {
		case "class_specifier", "struct_specifier", "union_specifier":
			if typ.ChildByFieldName("body") != nil {
				children = append(children, w.record(typ, typ))
			}
		case "enum_specifier":
			if typ.ChildByFieldName("body") != nil {
				children = append(children, w.enum(typ, typ))
			}
		}
	}
	cv, _ := w.modifiers(n)
	base := w.typeText(typ)
	for i, dn := range w.declarators(n) {
		var d declarator
		w.unwrap(dn, &d)
		if d.name == "" {
			continue
		}
		raw := &syntax.RawNode{
			Kind:            "Typedef",
			Spelling:        d.name,
			Type:            strings.TrimSpace(cv + base + d.ops + d.suffix),
			Span:            w.span(n),
			AttributeTokens: w.attributes(n),
		}
		if i == 0 {
			raw.Children = children
		}
		out = append(out, raw)
	}
	return out
}

func (w *walker) aliasDeclaration(n *sitter.Node) *syntax.RawNode {
	return &syntax.RawNode{
		Kind:            "UsingAlias",
		Spelling:        w.text(n.ChildByFieldName("name")),
		Type:            w.text(n.ChildByFieldName("type")),
		Span:            w.span(n),
		AttributeTokens: w.attributes(n),
	}
}

func (w *walker) using(n *sitter.Node) *syntax.RawNode {
	raw := &syntax.RawNode{Kind: "UsingDeclaration", Span: w.span(n)}
	if hasToken(n, "namespace") {
		raw.Kind = "UsingDirective"
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "identifier", "qualified_identifier", "namespace_identifier", "type_identifier", "qualified_type_identifier":
			raw.Spelling = w.text(c)
		}
	}
	return raw
}

// ---------------------------------------------------------------------------
// Templates and concepts
// ---------------------------------------------------------------------------

func (w *walker) template(n *sitter.Node, inRecord bool) *syntax.RawNode {
	raw := &syntax.RawNode{Kind: "TemplateWrapper", Span: w.span(n)}
	params := n.ChildByFieldName("parameters")
	raw.TemplateParams = w.templateParams(params)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if params != nil && c.StartByte() == params.StartByte() {
			continue
		}
		if c.Type() == "comment" || c.Type() == "requires_clause" {
			continue
		}
		inner := w.item(c, inRecord)
		if len(inner) > 0 {
			raw.Children = inner[:1]
			raw.Spelling = inner[0].Spelling
			break
		}
	}
	return raw
}

func (w *walker) templateParams(list *sitter.Node) []syntax.TemplateParam {
	if list == nil {
		return nil
	}
	sources := w.paramSources(list)
	var out []syntax.TemplateParam
	for i := 0; i < int(list.NamedChildCount()); i++ {
		c := list.NamedChild(i)
		switch c.Type() {
		case "type_parameter_declaration", "variadic_type_parameter_declaration", "optional_type_parameter_declaration":
			p := syntax.TemplateParam{Kind: "type", Specifier: "typename"}
			if hasToken(c, "class") {
				p.Specifier = "class"
			}
			p.Variadic = hasToken(c, "...")
			if name := c.ChildByFieldName("name"); name != nil {
				p.Name = w.text(name)
			} else {
				p.Name = lastNamed(w, c, "type_identifier")
			}
			p.Default = defaultAt(sources, c)
			out = append(out, p)
		case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
			sp := w.param(c)
			p := syntax.TemplateParam{
				Kind:     "non-type",
				Name:     sp.Name,
				Type:     strings.TrimSuffix(sp.Type, "..."),
				Default:  sp.Default,
				Variadic: c.Type() == "variadic_parameter_declaration",
			}
			out = append(out, p)
		case "template_template_parameter_declaration":
			p := syntax.TemplateParam{Kind: "template", Specifier: "class"}
			for j := 0; j < int(c.NamedChildCount()); j++ {
				inner := c.NamedChild(j)
				if inner.Type() == "template_parameter_list" {
					continue
				}
				if name := inner.ChildByFieldName("name"); name != nil {
					p.Name = w.text(name)
				} else {
					p.Name = lastNamed(w, inner, "type_identifier")
				}
				p.Default = defaultAt(sources, c)
				p.Variadic = hasToken(inner, "...")
			}
			out = append(out, p)
		}
	}
	return out
}

func (w *walker) concept(n *sitter.Node) *syntax.RawNode {
	name := n.ChildByFieldName("name")
	raw := &syntax.RawNode{Kind: "Concept", Spelling: w.text(name), Span: w.span(n)}
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		c := n.NamedChild(i)
		if name != nil && c.StartByte() == name.StartByte() {
			break
		}
		if c.Type() != "comment" {
			raw.Value = w.text(c)
			break
		}
	}
	return raw
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// attributes returns the attribute lists written directly on n.
func (w *walker) attributes(n *sitter.Node) []string {
	var out []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "attribute_declaration", "attribute_specifier":
			out = append(out, w.text(c))
		}
	}
	return out
}

// paramSource is one top-level entry of a template parameter list: its
// byte range and the text after its "=".
type paramSource struct {
	start, end uint32
	def        string
}

// paramSources splits a template parameter list on top-level commas. The
// grammar only takes a type specifier as a default type, so declarators
// such as "*" or "[2]" are read from the source instead of the tree.
func (w *walker) paramSources(list *sitter.Node) []paramSource {
	from, to := list.StartByte(), list.EndByte()
	if to-from < 2 {
		return nil
	}
	from, to = from+1, to-1 // "<" and ">"
	var out []paramSource
	depth, start, eq := 0, from, -1
	flush := func(end uint32) {
		ps := paramSource{start: start, end: end}
		if eq >= 0 {
			ps.def = strings.TrimSpace(string(w.src[eq+1 : end]))
		}
		out = append(out, ps)
	}
	for i := from; i < to; i++ {
		switch w.src[i] {
		case '<', '(', '[', '{':
			depth++
		case '>', ')', ']', '}':
			depth--
		case '=':
			if depth == 0 && eq < 0 {
				eq = int(i)
			}
		case ',':
			if depth == 0 {
				flush(i)
				start, eq = i+1, -1
			}
		}
	}
	flush(to)
	return out
}

func defaultAt(sources []paramSource, n *sitter.Node) string {
	for _, ps := range sources {
		if n.StartByte() >= ps.start && n.StartByte() < ps.end {
			return ps.def
		}
	}
	return ""
}

func hasToken(n *sitter.Node, tok string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !c.IsNamed() && c.Type() == tok {
			return true
		}
	}
	return false
}

func hasWord(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}

func lastNamed(w *walker, n *sitter.Node, typ string) string {
	name := ""
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == typ {
			name = w.text(c)
		}
	}
	return name
}
