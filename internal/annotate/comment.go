package annotate

import (
	"strings"

	"github.com/jward/devana/internal/syntax"
)

// Normalize strips comment markers from raw comment text and returns the
// documentation lines.
func Normalize(text string, opts Options) []string {
	var lines []string
	inBlock := false
	for _, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		if !inBlock {
			switch {
			case strings.HasPrefix(t, "///"), strings.HasPrefix(t, "//!"):
				t = t[3:]
			case strings.HasPrefix(t, "//"):
				t = t[2:]
			case strings.HasPrefix(t, "/**"), strings.HasPrefix(t, "/*!"):
				t, inBlock = t[3:], true
			case strings.HasPrefix(t, "/*"):
				t, inBlock = t[2:], true
			}
		} else if opts.RemoveAsterisks && strings.HasPrefix(t, "*") && !strings.HasPrefix(t, "*/") {
			t = t[1:]
		}
		if inBlock {
			if i := strings.Index(t, "*/"); i >= 0 {
				t, inBlock = t[:i], false
			}
		}
		lines = append(lines, strings.TrimSpace(t))
	}
	if opts.RemoveBlankLines {
		for len(lines) > 0 && lines[0] == "" {
			lines = lines[1:]
		}
		for len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
	}
	return lines
}

// run is a group of comment tokens read as one documentation block.
type run struct {
	first, last syntax.Comment
	text        string
}

// runs groups a file's comments. One-line comments starting in the same
// column on consecutive lines form a run when accumulation is on; block
// comments are runs of their own. Trailing comments are never part of a
// run.
func runs(comments []syntax.Comment, trailing map[syntax.Span]bool, opts Options) []run {
	var out []run
	for _, c := range comments {
		if trailing[c.Span] {
			continue
		}
		if n := len(out); n > 0 && opts.Accumulate && !c.Block {
			prev := &out[n-1]
			if !prev.last.Block && c.Span.StartLine == prev.last.Span.EndLine+1 && c.Span.StartCol == prev.last.Span.StartCol {
				prev.last = c
				prev.text += "\n" + c.Text
				continue
			}
		}
		out = append(out, run{first: c, last: c, text: c.Text})
	}
	return out
}

// before returns the run that ends on the line above span, or on the same
// line ahead of it.
func before(rs []run, span syntax.Span) (run, bool) {
	for _, r := range rs {
		end := r.last.Span
		if end.EndLine == span.StartLine-1 {
			return r, true
		}
		if r.last.Block && end.EndLine == span.StartLine && end.EndCol <= span.StartCol {
			return r, true
		}
	}
	return run{}, false
}

// after returns the comment starting on the last line of span, after it.
func after(comments []syntax.Comment, span syntax.Span) (syntax.Comment, bool) {
	for _, c := range comments {
		if c.Span.StartLine == span.EndLine && c.Span.StartCol >= span.EndCol {
			return c, true
		}
	}
	return syntax.Comment{}, false
}
