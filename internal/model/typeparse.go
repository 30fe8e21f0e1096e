package model

import (
	"slices"
	"strings"
	"unicode"
)

type tokKind uint8

const (
	tokIdent tokKind = iota
	tokNumber
	tokString
	tokPunct
)

type token struct {
	kind tokKind
	text string
}

var builtinRank = map[string]int{
	"signed": 0, "unsigned": 0,
	"short": 1, "long": 2,
	"void": 3, "bool": 3, "char": 3, "wchar_t": 3, "char8_t": 3, "char16_t": 3,
	"char32_t": 3, "int": 3, "float": 3, "double": 3, "auto": 3,
}

// elaborated and decl-specifier keywords that carry no type identity.
var skipWords = map[string]bool{
	"typename": true, "struct": true, "class": true, "union": true, "enum": true,
	"constexpr": true, "static": true, "inline": true, "mutable": true,
	"extern": true, "thread_local": true, "register": true,
}

func tokenize(text string) []token {
	var toks []token
	rs := []rune(text)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '_' || unicode.IsLetter(r):
			j := i + 1
			for j < len(rs) && (rs[j] == '_' || unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j])) {
				j++
			}
			toks = append(toks, token{tokIdent, string(rs[i:j])})
			i = j
		case unicode.IsDigit(r):
			j := i + 1
			for j < len(rs) && (unicode.IsDigit(rs[j]) || unicode.IsLetter(rs[j]) || rs[j] == '.' || rs[j] == '\'') {
				j++
			}
			toks = append(toks, token{tokNumber, string(rs[i:j])})
			i = j
		case r == '"' || r == '\'':
			j := i + 1
			for j < len(rs) && rs[j] != r {
				if rs[j] == '\\' {
					j++
				}
				j++
			}
			if j < len(rs) {
				j++
			}
			toks = append(toks, token{tokString, string(rs[i:min(j, len(rs))])})
			i = j
		default:
			p := string(r)
			for _, multi := range []string{"...", "::", "&&", "->"} {
				if strings.HasPrefix(string(rs[i:]), multi) {
					p = multi
					break
				}
			}
			toks = append(toks, token{tokPunct, p})
			i += len([]rune(p))
		}
	}
	return toks
}

type typeParser struct {
	toks   []token
	pos    int
	params map[string]int
}

// ParseType parses a C++ type-id. Single-segment names found in params are
// turned into placeholders carrying the parameter index. Text that does not
// fit the supported grammar comes back as a TypeUnknown node holding the
// original text. An empty text yields nil.
func ParseType(text string, params map[string]int) *TypeExpr {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	p := &typeParser{toks: tokenize(text), params: params}
	t, ok := p.parseType()
	if !ok || p.pos != len(p.toks) {
		return &TypeExpr{Kind: TypeUnknown, Name: joinTokens(p.toks)}
	}
	return t
}

// ParseArgs parses a template argument list given one text per argument.
func ParseArgs(texts []string, params map[string]int) []*TypeExpr {
	out := make([]*TypeExpr, 0, len(texts))
	for _, s := range texts {
		p := &typeParser{toks: tokenize(s), params: params}
		a := p.parseArg()
		if a == nil || p.pos != len(p.toks) {
			a = &TypeExpr{Kind: TypeValue, Name: joinTokens(p.toks)}
		}
		out = append(out, a)
	}
	return out
}

// SplitArgs splits an argument list body at top-level commas.
func SplitArgs(body string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range body {
		switch r {
		case '<', '(', '[', '{':
			depth++
		case '>', ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(body[start:i]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(body[start:]); rest != "" || len(out) > 0 {
		out = append(out, rest)
	}
	return out
}

func (p *typeParser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *typeParser) accept(text string) bool {
	if t, ok := p.peek(); ok && t.text == text && t.kind != tokString {
		p.pos++
		return true
	}
	return false
}

func (p *typeParser) cv(t *TypeExpr) {
	for {
		switch {
		case p.accept("const"):
			t.Const = true
		case p.accept("volatile"):
			t.Volatile = true
		default:
			return
		}
	}
}

func (p *typeParser) parseType() (*TypeExpr, bool) {
	t, ok := p.parseBase()
	if !ok {
		return nil, false
	}
	for {
		switch {
		case p.accept("*"):
			t = &TypeExpr{Kind: TypePointer, Elem: t}
			p.cv(t)
		case p.accept("&&"):
			t = &TypeExpr{Kind: TypeRValueRef, Elem: t}
		case p.accept("&"):
			t = &TypeExpr{Kind: TypeLValueRef, Elem: t}
		case p.accept("["):
			start := p.pos
			for p.pos < len(p.toks) && p.toks[p.pos].text != "]" {
				p.pos++
			}
			extent := joinTokens(p.toks[start:p.pos])
			if !p.accept("]") {
				return nil, false
			}
			t = &TypeExpr{Kind: TypeArray, Elem: t, Extent: extent}
		case p.accept("..."):
			t.Pack = true
		default:
			return t, true
		}
	}
}

func (p *typeParser) parseBase() (*TypeExpr, bool) {
	lead := &TypeExpr{}
	for {
		p.cv(lead)
		tk, ok := p.peek()
		if ok && tk.kind == tokIdent && skipWords[tk.text] {
			p.pos++
			continue
		}
		break
	}
	tk, ok := p.peek()
	if !ok {
		return nil, false
	}
	if tk.kind == tokIdent {
		if _, builtin := builtinRank[tk.text]; builtin {
			return p.parseBuiltin(lead), true
		}
	}
	if tk.text != "::" && tk.kind != tokIdent {
		return nil, false
	}
	ref, ok := p.parseName()
	if !ok {
		return nil, false
	}
	t := &TypeExpr{Kind: TypeNamed, Ref: ref, Const: lead.Const, Volatile: lead.Volatile}
	if idx, isParam := p.params[ref.Segments[0].Name]; isParam && !ref.Global {
		if len(ref.Segments) == 1 && !ref.Segments[0].HasArgs {
			t = &TypeExpr{Kind: TypePlaceholder, Name: ref.Segments[0].Name, Param: idx, Const: lead.Const, Volatile: lead.Volatile}
		} else {
			ref.Dependent = true
		}
	}
	p.cv(t)
	return t, true
}

func (p *typeParser) parseBuiltin(lead *TypeExpr) *TypeExpr {
	var words []string
	for {
		p.cv(lead)
		tk, ok := p.peek()
		if !ok || tk.kind != tokIdent {
			break
		}
		if _, builtin := builtinRank[tk.text]; !builtin {
			break
		}
		words = append(words, tk.text)
		p.pos++
	}
	slices.SortStableFunc(words, func(a, b string) int { return builtinRank[a] - builtinRank[b] })
	return &TypeExpr{Kind: TypeBuiltin, Name: strings.Join(words, " "), Const: lead.Const, Volatile: lead.Volatile}
}

func (p *typeParser) parseName() (*NameRef, bool) {
	ref := &NameRef{}
	if p.accept("::") {
		ref.Global = true
	}
	for {
		p.accept("template")
		tk, ok := p.peek()
		if !ok || tk.kind != tokIdent {
			return nil, false
		}
		p.pos++
		seg := Segment{Name: tk.text}
		if p.accept("<") {
			seg.HasArgs = true
			if !p.accept(">") {
				for {
					a := p.parseArg()
					if a == nil {
						return nil, false
					}
					seg.Args = append(seg.Args, a)
					if p.accept(",") {
						continue
					}
					if p.accept(">") {
						break
					}
					return nil, false
				}
			}
		}
		ref.Segments = append(ref.Segments, seg)
		if !p.accept("::") {
			return ref, true
		}
	}
}

// parseArg parses one template argument: a type when it parses as one and
// is followed by a list delimiter, otherwise a value expression.
func (p *typeParser) parseArg() *TypeExpr {
	start := p.pos
	if tk, ok := p.peek(); ok && !looksLikeValue(tk) {
		if t, ok := p.parseType(); ok {
			if nx, more := p.peek(); !more || nx.text == "," || nx.text == ">" {
				return t
			}
		}
	}
	p.pos = start
	return p.parseValue()
}

func looksLikeValue(tk token) bool {
	switch tk.kind {
	case tokNumber, tokString:
		return true
	case tokIdent:
		return tk.text == "true" || tk.text == "false" || tk.text == "nullptr" || tk.text == "sizeof"
	}
	return tk.text == "-" || tk.text == "(" || tk.text == "!" || tk.text == "~"
}

func (p *typeParser) parseValue() *TypeExpr {
	start := p.pos
	depth := 0
	for p.pos < len(p.toks) {
		tk := p.toks[p.pos]
		if depth == 0 && (tk.text == "," || tk.text == ">") && tk.kind == tokPunct {
			break
		}
		switch tk.text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		}
		p.pos++
	}
	if p.pos == start {
		return nil
	}
	text := joinTokens(p.toks[start:p.pos])
	if len(p.toks[start:p.pos]) == 1 {
		if idx, ok := p.params[text]; ok {
			return &TypeExpr{Kind: TypePlaceholder, Name: text, Param: idx}
		}
	}
	return &TypeExpr{Kind: TypeValue, Name: text}
}

func joinTokens(toks []token) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 && wordy(toks[i-1]) && wordy(t) {
			b.WriteByte(' ')
		}
		b.WriteString(t.text)
	}
	return b.String()
}

func wordy(t token) bool {
	return t.kind == tokIdent || t.kind == tokNumber
}
