package annotate

import (
	"strings"

	"github.com/jward/devana/internal/model"
)

// ParseAttributes parses the body of one attribute list, the text between
// "[[" and "]]". A leading "using ns:" applies ns to every attribute of the
// list that does not name its own namespace.
func ParseAttributes(body string) []model.Attribute {
	body = strings.TrimSpace(body)
	var using string
	if rest, ok := strings.CutPrefix(body, "using "); ok {
		if i := topLevelColon(rest); i >= 0 {
			using = strings.TrimSpace(rest[:i])
			body = rest[i+1:]
		}
	}
	var out []model.Attribute
	for _, item := range splitTopLevel(body, ',') {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, parseAttribute(item, using))
	}
	return out
}

func parseAttribute(item, using string) model.Attribute {
	name, args := item, ""
	hasArgs := false
	if i := strings.IndexByte(item, '('); i >= 0 {
		name = item[:i]
		args = item[i+1:]
		if j := strings.LastIndexByte(args, ')'); j >= 0 {
			args = args[:j]
		}
		hasArgs = true
	}
	name = strings.TrimSpace(name)
	a := model.Attribute{Name: name, Namespace: using}
	if i := strings.LastIndex(name, "::"); i >= 0 {
		a.Namespace = strings.TrimSpace(name[:i])
		a.Name = strings.TrimSpace(name[i+2:])
	}
	if hasArgs {
		a.Arguments = []string{}
		if strings.TrimSpace(args) != "" {
			for _, arg := range splitTopLevel(args, ',') {
				a.Arguments = append(a.Arguments, strings.TrimSpace(arg))
			}
		}
	}
	return a
}

// topLevelColon returns the index of the first ':' that is not part of a
// "::" and not inside brackets or quotes, or -1.
func topLevelColon(s string) int {
	for _, i := range topLevelIndexes(s, ':') {
		if (i+1 < len(s) && s[i+1] == ':') || (i > 0 && s[i-1] == ':') {
			continue
		}
		return i
	}
	return -1
}

// splitTopLevel splits s on sep, ignoring separators inside brackets and
// string or character literals.
func splitTopLevel(s string, sep byte) []string {
	var out []string
	start := 0
	for _, i := range topLevelIndexes(s, sep) {
		out = append(out, s[start:i])
		start = i + 1
	}
	return append(out, s[start:])
}

func topLevelIndexes(s string, sep byte) []int {
	var out []int
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				out = append(out, i)
			}
		}
	}
	return out
}
