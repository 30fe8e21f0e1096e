package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/devana/internal/syntax"
)

// syntaxFile is one buffer parsed for a script.
type syntaxFile struct {
	path string
	src  []byte
	lang *sitter.Language
	tree *sitter.Tree
}

// at returns the smallest named node covering sp, or nil for an empty
// span.
func (f *syntaxFile) at(sp syntax.Span) *sitter.Node {
	if sp.IsZero() {
		return nil
	}
	start := sitter.Point{Row: uint32(sp.StartLine - 1), Column: uint32(sp.StartCol - 1)}
	end := sitter.Point{Row: uint32(sp.EndLine - 1), Column: uint32(sp.EndCol - 1)}
	return f.tree.RootNode().NamedDescendantForPointRange(start, end)
}

// syntaxTrees keeps every tree a script parsed. A node is traced back to
// its buffer through its root, which the binding hands out as the same
// pointer for the life of the tree. Files named by model spans are
// parsed once.
type syntaxTrees struct {
	read func(path string) ([]byte, error)

	mu     sync.Mutex
	roots  map[*sitter.Node]*syntaxFile
	byPath map[string]*syntaxFile
}

func newSyntaxTrees(read func(path string) ([]byte, error)) *syntaxTrees {
	return &syntaxTrees{
		read:   read,
		roots:  make(map[*sitter.Node]*syntaxFile),
		byPath: make(map[string]*syntaxFile),
	}
}

func (s *syntaxTrees) parse(ctx context.Context, path string, src []byte, langName string) (*syntaxFile, error) {
	lang, ok := ParserForLanguage(langName)
	if !ok {
		return nil, fmt.Errorf("unsupported language %q", langName)
	}
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(lang)
	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	f := &syntaxFile{path: path, src: src, lang: lang, tree: tree}
	s.mu.Lock()
	s.roots[tree.RootNode()] = f
	s.mu.Unlock()
	return f, nil
}

// file parses path in the grammar its extension implies, C++ by default.
func (s *syntaxTrees) file(ctx context.Context, path string) (*syntaxFile, error) {
	s.mu.Lock()
	f, ok := s.byPath[path]
	s.mu.Unlock()
	if ok {
		return f, nil
	}
	src, err := s.read(path)
	if err != nil {
		return nil, err
	}
	lang, ok := LanguageForFile(path)
	if !ok {
		lang = "cpp"
	}
	if f, err = s.parse(ctx, path, src, lang); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.byPath[path] = f
	s.mu.Unlock()
	return f, nil
}

// owner returns the buffer n was parsed from.
func (s *syntaxTrees) owner(n *sitter.Node) (*syntaxFile, bool) {
	for n.Parent() != nil {
		n = n.Parent()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.roots[n]
	return f, ok
}

// syntaxFunctions returns the tree-sitter host functions. node_of is only
// present when a model is attached.
//
//	parse(path[, language])     → Tree
//	parse_src(source[, language]) → Tree
//	node_text(node)             → string
//	node_child(node, field)     → Node or nil
//	query(pattern, node)        → [{capture: Node}]
//	node_of(entity)             → Node or nil
func syntaxFunctions(s *syntaxTrees, m Model) map[string]any {
	fns := map[string]any{
		"parse": object.NewBuiltin("parse", func(ctx context.Context, args ...object.Object) object.Object {
			path, lang, errObj := sourceArgs("parse", args)
			if errObj != nil {
				return errObj
			}
			if lang == "" {
				f, err := s.file(ctx, path)
				if err != nil {
					return object.Errorf("parse: %v", err)
				}
				return proxy("parse", f.tree)
			}
			src, err := s.read(path)
			if err != nil {
				return object.Errorf("parse: %v", err)
			}
			return parsed(ctx, s, path, src, lang)
		}),
		"parse_src": object.NewBuiltin("parse_src", func(ctx context.Context, args ...object.Object) object.Object {
			src, lang, errObj := sourceArgs("parse_src", args)
			if errObj != nil {
				return errObj
			}
			if lang == "" {
				lang = "cpp"
			}
			return parsed(ctx, s, "<source>", []byte(src), lang)
		}),
		"node_text": object.NewBuiltin("node_text", func(ctx context.Context, args ...object.Object) object.Object {
			if len(args) != 1 {
				return object.NewArgsError("node_text", 1, len(args))
			}
			n, errObj := nodeArg("node_text", args[0])
			if errObj != nil {
				return errObj
			}
			f, ok := s.owner(n)
			if !ok {
				return object.Errorf("node_text: node does not belong to a parsed tree")
			}
			return object.NewString(n.Content(f.src))
		}),
		"node_child": object.NewBuiltin("node_child", func(ctx context.Context, args ...object.Object) object.Object {
			if len(args) != 2 {
				return object.NewArgsError("node_child", 2, len(args))
			}
			n, errObj := nodeArg("node_child", args[0])
			if errObj != nil {
				return errObj
			}
			field, err := toString(args[1])
			if err != nil {
				return object.Errorf("node_child: %v", err)
			}
			return nodeOrNil("node_child", n.ChildByFieldName(field))
		}),
		"query": object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
			if len(args) != 2 {
				return object.NewArgsError("query", 2, len(args))
			}
			pattern, err := toString(args[0])
			if err != nil {
				return object.Errorf("query: pattern: %v", err)
			}
			n, errObj := nodeArg("query", args[1])
			if errObj != nil {
				return errObj
			}
			f, ok := s.owner(n)
			if !ok {
				return object.Errorf("query: node does not belong to a parsed tree")
			}
			return runQuery(f, pattern, n)
		}),
	}
	if m != nil {
		fns["node_of"] = object.NewBuiltin("node_of", func(ctx context.Context, args ...object.Object) object.Object {
			id, errObj := idArg("node_of", args)
			if errObj != nil {
				return errObj
			}
			e, ok := m.Entity(id)
			if !ok || e.Span.IsZero() {
				return object.Nil
			}
			f, err := s.file(ctx, e.Span.File)
			if err != nil {
				return object.Errorf("node_of: %v", err)
			}
			return nodeOrNil("node_of", f.at(e.Span))
		})
	}
	return fns
}

// sourceArgs reads the (text[, language]) arguments of parse and
// parse_src. An omitted language is returned empty.
func sourceArgs(fn string, args []object.Object) (string, string, object.Object) {
	if len(args) < 1 || len(args) > 2 {
		return "", "", object.Errorf("%s: expected 1 or 2 arguments, got %d", fn, len(args))
	}
	text, err := toString(args[0])
	if err != nil {
		return "", "", object.Errorf("%s: %v", fn, err)
	}
	lang := ""
	if len(args) == 2 {
		if lang, err = toString(args[1]); err != nil {
			return "", "", object.Errorf("%s: language: %v", fn, err)
		}
	}
	return text, lang, nil
}

func parsed(ctx context.Context, s *syntaxTrees, path string, src []byte, lang string) object.Object {
	f, err := s.parse(ctx, path, src, lang)
	if err != nil {
		return object.Errorf("parse: %v", err)
	}
	return proxy("parse", f.tree)
}

func runQuery(f *syntaxFile, pattern string, n *sitter.Node) object.Object {
	q, err := sitter.NewQuery([]byte(pattern), f.lang)
	if err != nil {
		return object.Errorf("query: invalid pattern: %v", err)
	}
	defer q.Close()
	cur := sitter.NewQueryCursor()
	defer cur.Close()
	cur.Exec(q, n)

	results := []object.Object{}
	for {
		match, ok := cur.NextMatch()
		if !ok {
			break
		}
		match = cur.FilterPredicates(match, f.src)
		captures := make(map[string]object.Object, len(match.Captures))
		for _, c := range match.Captures {
			captures[q.CaptureNameForId(c.Index)] = proxy("query", c.Node)
		}
		results = append(results, object.NewMap(captures))
	}
	return object.NewList(results)
}

func nodeArg(fn string, o object.Object) (*sitter.Node, object.Object) {
	if p, ok := o.(*object.Proxy); ok {
		if n, ok := p.Interface().(*sitter.Node); ok && n != nil {
			return n, nil
		}
	}
	return nil, object.Errorf("%s: expected a syntax node, got %s", fn, o.Type())
}

// nodeOrNil proxies n, mapping a nil node to Risor nil rather than a
// proxied Go nil pointer.
func nodeOrNil(fn string, n *sitter.Node) object.Object {
	if n == nil {
		return object.Nil
	}
	return proxy(fn, n)
}

func proxy(fn string, v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		return object.Errorf("%s: %v", fn, err)
	}
	return p
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg)
}
