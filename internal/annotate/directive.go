package annotate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jward/devana/internal/model"
)

// Directives understood by the generator.
const (
	IgnoreField      = "ignore-field"
	IgnoreAttributes = "ignore-attributes"
	CustomName       = "custom-name"
)

var (
	directiveNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
	identifierRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ParseDirective reads one documentation line. ok is false when the line
// is not a directive for namespace ns. err is set for directive lines that
// do not follow the grammar; such lines stay plain documentation.
func ParseDirective(line, ns string) (d model.Directive, ok bool, err error) {
	rest, found := strings.CutPrefix(strings.TrimSpace(line), ns)
	if !found {
		return model.Directive{}, false, nil
	}
	rest = strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(rest, ":") || strings.HasPrefix(rest, "::") {
		return model.Directive{}, false, nil
	}
	rest = strings.TrimSpace(rest[1:])

	name, value, hasValue := strings.Cut(rest, "=")
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if !directiveNameRe.MatchString(name) {
		return model.Directive{}, true, fmt.Errorf("malformed directive %q", strings.TrimSpace(line))
	}
	d = model.Directive{Name: name, Value: value, HasValue: hasValue}
	switch name {
	case IgnoreField, IgnoreAttributes:
		if hasValue {
			return model.Directive{}, true, fmt.Errorf("directive %q takes no value", name)
		}
		d.Known = true
	case CustomName:
		if !identifierRe.MatchString(value) {
			return model.Directive{}, true, fmt.Errorf("directive %q needs an identifier, got %q", name, value)
		}
		d.Known = true
	}
	return d, true, nil
}
