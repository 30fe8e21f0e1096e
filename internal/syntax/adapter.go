package syntax

import (
	"regexp"
	"sort"
	"strings"
)

// cursorKinds maps libclang cursor kind names onto the node vocabulary so
// front ends built on libclang can hand their cursors over unchanged.
var cursorKinds = map[string]Kind{
	"NAMESPACE":                             Namespace,
	"CLASS_DECL":                            Class,
	"STRUCT_DECL":                           Struct,
	"UNION_DECL":                            Union,
	"ENUM_DECL":                             Enum,
	"FUNCTION_DECL":                         Function,
	"CXX_METHOD":                            Method,
	"CONSTRUCTOR":                           Method,
	"DESTRUCTOR":                            Method,
	"VAR_DECL":                              Variable,
	"ENUM_CONSTANT_DECL":                    Variable,
	"FIELD_DECL":                            Field,
	"TYPEDEF_DECL":                          Typedef,
	"TYPE_ALIAS_DECL":                       UsingAlias,
	"CLASS_TEMPLATE":                        TemplateWrapper,
	"FUNCTION_TEMPLATE":                     TemplateWrapper,
	"CLASS_TEMPLATE_PARTIAL_SPECIALIZATION": Specialization,
	"CONCEPT_DECL":                          Concept,
	"USING_DIRECTIVE":                       UsingDirective,
	"USING_DECLARATION":                     UsingDeclaration,
	"LINKAGE_SPEC":                          ExternBlock,
}

var (
	attributeListRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	scopeSpaceRe    = regexp.MustCompile(`\s*::\s*`)
)

// Adapt normalizes a front-end unit. It never fails: unknown kinds become
// Unknown nodes and are left for the builder to wrap.
func Adapt(u *Unit) *File {
	f := &File{Path: u.Path}
	for _, raw := range u.Nodes {
		if raw == nil {
			continue
		}
		f.Nodes = append(f.Nodes, adaptNode(raw, u.Path))
	}
	f.Comments = make([]Comment, 0, len(u.Comments))
	for _, c := range u.Comments {
		c.Span = fillSpan(c.Span, u.Path)
		f.Comments = append(f.Comments, c)
	}
	sort.SliceStable(f.Comments, func(i, j int) bool {
		return f.Comments[i].Span.Before(f.Comments[j].Span)
	})
	return f
}

func adaptNode(raw *RawNode, path string) *Node {
	n := &Node{
		Kind:            adaptKind(raw.Kind),
		RawKind:         raw.Kind,
		Name:            normalizeName(raw.Spelling),
		Span:            fillSpan(raw.Span, path),
		Attributes:      attributeBodies(raw.AttributeTokens),
		Comment:         raw.CommentText,
		TrailingComment: raw.TrailingComment,
		Type:            strings.TrimSpace(raw.Type),
		Value:           strings.TrimSpace(raw.Value),
		Params:          raw.Params,
		TemplateParams:  raw.TemplateParams,
		TemplateArgs:    trimAll(raw.TemplateArgs),
		Bases:           raw.Bases,
		Access:          strings.ToLower(strings.TrimSpace(raw.Access)),
		Qualifiers:      raw.Qualifiers,
		IsDefinition:    raw.IsDefinition,
		Linkage:         strings.Trim(strings.TrimSpace(raw.Linkage), `"`),
	}
	for i := range n.Bases {
		n.Bases[i].Name = normalizeName(n.Bases[i].Name)
	}
	for _, c := range raw.Children {
		if c == nil {
			continue
		}
		n.Children = append(n.Children, adaptNode(c, path))
	}
	return n
}

func adaptKind(name string) Kind {
	if k, ok := ParseKind(name); ok {
		return k
	}
	if k, ok := cursorKinds[name]; ok {
		return k
	}
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return Kind(k)
		}
	}
	return Unknown
}

func fillSpan(s Span, path string) Span {
	if s.File == "" {
		s.File = path
	}
	if s.EndLine == 0 {
		s.EndLine = s.StartLine
		if s.EndCol == 0 {
			s.EndCol = s.StartCol
		}
	}
	return s
}

// normalizeName trims a spelling and removes whitespace around scope
// operators so "a :: b" and "a::b" compare equal.
func normalizeName(s string) string {
	s = strings.TrimSpace(s)
	return scopeSpaceRe.ReplaceAllString(s, "::")
}

func trimAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

// attributeBodies splits raw attribute tokens into list bodies. A token may
// hold several "[[...]]" lists or be a bare body.
func attributeBodies(tokens []string) []string {
	var out []string
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		matches := attributeListRe.FindAllStringSubmatch(tok, -1)
		if len(matches) == 0 {
			if inner, ok := gnuAttribute(tok); ok {
				out = append(out, inner)
				continue
			}
			out = append(out, tok)
			continue
		}
		for _, m := range matches {
			out = append(out, strings.TrimSpace(m[1]))
		}
	}
	return out
}

func gnuAttribute(tok string) (string, bool) {
	const prefix = "__attribute__(("
	if !strings.HasPrefix(tok, prefix) || !strings.HasSuffix(tok, "))") {
		return "", false
	}
	return strings.TrimSpace(tok[len(prefix) : len(tok)-2]), true
}
