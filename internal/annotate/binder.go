// Package annotate attaches attributes, documentation and directives to
// the entities of a merged and resolved arena.
//
// The builder records the raw annotation inputs of every cursor on the
// entity it produced (Entity.Raw); merged entities carry the inputs of all
// their declarations in source order. Comments the front end did not bind
// to a cursor are found by position in the unit's comment list.
package annotate

import (
	"strings"

	"github.com/jward/devana/internal/model"
	"github.com/jward/devana/internal/syntax"
)

// Options control comment handling.
type Options struct {
	// Namespace is the directive prefix, "devana" by default.
	Namespace         string
	Accumulate        bool
	RemoveAsterisks   bool
	RemoveBlankLines  bool
	TrailingFieldDocs bool
}

// DefaultOptions returns the options used when no configuration is given.
func DefaultOptions() Options {
	return Options{
		Namespace:         "devana",
		Accumulate:        true,
		RemoveAsterisks:   true,
		RemoveBlankLines:  true,
		TrailingFieldDocs: true,
	}
}

// Stats summarizes a Bind call.
type Stats struct {
	Documented int
	Attributes int
	Directives int
	Malformed  int
}

type binder struct {
	arena *model.Arena
	opts  Options
	runs  map[string][]run
	// trailing lists each file's comments that follow code on their line.
	trailing map[string][]syntax.Comment
	stats    Stats
}

// Bind fills Attributes, Doc and Directives of every live entity and the
// arena's file preambles.
func Bind(a *model.Arena, opts Options) Stats {
	if opts.Namespace == "" {
		opts.Namespace = DefaultOptions().Namespace
	}
	b := &binder{
		arena:    a,
		opts:     opts,
		runs:     make(map[string][]run),
		trailing: make(map[string][]syntax.Comment),
	}
	b.index()
	for _, e := range a.All() {
		if e.ID == model.RootID || e.ID == model.UnknownID || !a.Live(e.ID) {
			continue
		}
		b.entity(e)
	}
	return b.stats
}

// index splits each file's comments into trailing comments and
// documentation runs, and records the preamble.
func (b *binder) index() {
	ends := make(map[string][]syntax.Span)
	for _, e := range b.arena.All() {
		for _, s := range e.Raw.Spans {
			ends[s.File] = append(ends[s.File], s)
		}
	}
	for _, file := range b.arena.Files {
		comments := b.arena.Comments[file]
		isTrailing := make(map[syntax.Span]bool)
		for _, c := range comments {
			for _, s := range ends[file] {
				if c.Span.StartLine == s.EndLine && c.Span.StartCol >= s.EndCol {
					isTrailing[c.Span] = true
					b.trailing[file] = append(b.trailing[file], c)
					break
				}
			}
		}
		rs := runs(comments, isTrailing, b.opts)
		b.runs[file] = rs
		if len(rs) > 0 && rs[0].first.Span.StartLine == 1 {
			if _, ok := b.arena.Preambles[file]; !ok {
				b.arena.Preambles[file] = strings.Join(Normalize(rs[0].text, b.opts), "\n")
			}
		}
	}
}

func (b *binder) entity(e *model.Entity) {
	e.Attributes = e.Attributes[:0]
	for _, body := range e.Raw.Attributes {
		e.Attributes = append(e.Attributes, ParseAttributes(body)...)
	}
	b.stats.Attributes += len(e.Attributes)

	var lines []string
	for i, span := range e.Raw.Spans {
		text := ""
		if i < len(e.Raw.Comments) {
			text = e.Raw.Comments[i]
		}
		if strings.TrimSpace(text) == "" {
			if r, ok := before(b.runs[span.File], span); ok {
				text = r.text
			}
		}
		if strings.TrimSpace(text) != "" {
			lines = append(lines, Normalize(text, b.opts)...)
		}
	}
	if len(lines) == 0 && b.opts.TrailingFieldDocs && memberLike(e) {
		lines = b.trailingDoc(e)
	}
	e.Doc = strings.Join(lines, "\n")
	if e.Doc != "" {
		b.stats.Documented++
	}

	e.Directives = e.Directives[:0]
	for _, line := range lines {
		d, ok, err := ParseDirective(line, b.opts.Namespace)
		switch {
		case !ok:
		case err != nil:
			b.stats.Malformed++
			b.arena.Diags.Addf(model.MalformedDirective, e.ID, e.Span, "%s on %s", err, e.QualifiedName())
		default:
			e.Directives = append(e.Directives, d)
		}
	}
	b.stats.Directives += len(e.Directives)
}

func (b *binder) trailingDoc(e *model.Entity) []string {
	for i, span := range e.Raw.Spans {
		if i < len(e.Raw.Trailing) && strings.TrimSpace(e.Raw.Trailing[i]) != "" {
			return Normalize(e.Raw.Trailing[i], b.opts)
		}
		if c, ok := after(b.trailing[span.File], span); ok {
			return Normalize(c.Text, b.opts)
		}
	}
	return nil
}

// memberLike reports whether e may be documented by a comment trailing
// its declaration: data members and enumerators.
func memberLike(e *model.Entity) bool {
	v, ok := e.Detail.(*model.VariableInfo)
	return ok && (v.Field || v.Enumerator)
}
