package build

import (
	"strings"

	"github.com/jward/devana/internal/model"
)

// ParseRequirements splits the body of the first requires-expression in a
// concept's constraint into its requirements. Constraints without a
// requires-expression have none.
func ParseRequirements(constraint string) []model.Requirement {
	body, ok := requiresBody(constraint)
	if !ok {
		return nil
	}
	var out []model.Requirement
	for _, stmt := range splitTopLevel(body, ';') {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		out = append(out, parseRequirement(stmt))
	}
	return out
}

// requiresBody returns the text between the braces of "requires (...) {...}".
func requiresBody(s string) (string, bool) {
	for from := 0; ; {
		i := strings.Index(s[from:], "requires")
		if i < 0 {
			return "", false
		}
		rest := strings.TrimSpace(s[from+i+len("requires"):])
		if strings.HasPrefix(rest, "(") {
			end := matching(rest, 0)
			if end < 0 {
				return "", false
			}
			rest = strings.TrimSpace(rest[end+1:])
		}
		if strings.HasPrefix(rest, "{") {
			end := matching(rest, 0)
			if end < 0 {
				return "", false
			}
			return rest[1:end], true
		}
		from += i + len("requires")
	}
}

// matching returns the index of the bracket closing the one at open.
func matching(s string, open int) int {
	closer := map[byte]byte{'(': ')', '{': '}', '[': ']', '<': '>'}[s[open]]
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case s[open]:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			depth--
		case sep:
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

func parseRequirement(stmt string) model.Requirement {
	switch {
	case strings.HasPrefix(stmt, "typename "):
		return model.Requirement{Kind: model.RequireType, Text: strings.TrimSpace(stmt[len("typename "):])}
	case strings.HasPrefix(stmt, "requires "):
		return model.Requirement{Kind: model.RequireNested, Text: strings.TrimSpace(stmt[len("requires "):])}
	case strings.HasPrefix(stmt, "{"):
		end := matching(stmt, 0)
		if end < 0 {
			return model.Requirement{Kind: model.RequireSimple, Text: stmt}
		}
		r := model.Requirement{Kind: model.RequireCompound, Text: strings.TrimSpace(stmt[1:end])}
		rest := strings.TrimSpace(stmt[end+1:])
		if strings.HasPrefix(rest, "noexcept") {
			r.Noexcept = true
			rest = strings.TrimSpace(rest[len("noexcept"):])
		}
		if strings.HasPrefix(rest, "->") {
			r.ReturnConstraint = strings.TrimSpace(rest[2:])
		}
		return r
	}
	return model.Requirement{Kind: model.RequireSimple, Text: stmt}
}
