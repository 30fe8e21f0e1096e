package model

import (
	"fmt"
	"sort"

	"github.com/jward/devana/internal/syntax"
)

// Code classifies a diagnostic.
type Code uint8

const (
	UnresolvedReference Code = iota + 1
	AmbiguousReference
	AmbiguousSpecialization
	DuplicateDefinition
	UnsupportedConstruct
	MalformedDirective
)

func (c Code) String() string {
	switch c {
	case UnresolvedReference:
		return "UnresolvedReference"
	case AmbiguousReference:
		return "AmbiguousReference"
	case AmbiguousSpecialization:
		return "AmbiguousSpecialization"
	case DuplicateDefinition:
		return "DuplicateDefinition"
	case UnsupportedConstruct:
		return "UnsupportedConstruct"
	case MalformedDirective:
		return "MalformedDirective"
	default:
		return fmt.Sprintf("Code(%d)", uint8(c))
	}
}

// Diagnostic is a non-fatal problem found while building the model.
type Diagnostic struct {
	Code    Code
	Message string
	Entity  ID
	Span    syntax.Span
}

func (d Diagnostic) String() string {
	if d.Span.File == "" {
		return fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Span, d.Code, d.Message)
}

// Bag accumulates diagnostics up to a limit.
type Bag struct {
	items   []Diagnostic
	max     int
	dropped int
}

// NewBag returns a bag holding at most max diagnostics; max <= 0 means no
// limit.
func NewBag(max int) *Bag {
	return &Bag{max: max}
}

// Add appends d unless the limit is reached. It reports whether d was kept.
func (b *Bag) Add(d Diagnostic) bool {
	if b.max > 0 && len(b.items) >= b.max {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

// Addf is a convenience for Add.
func (b *Bag) Addf(code Code, entity ID, span syntax.Span, format string, args ...any) {
	b.Add(Diagnostic{Code: code, Entity: entity, Span: span, Message: fmt.Sprintf(format, args...)})
}

// Items returns the diagnostics. The slice must not be modified.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Dropped returns how many diagnostics were discarded by the limit.
func (b *Bag) Dropped() int {
	return b.dropped
}

// Merge appends other's diagnostics, growing the limit when needed.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	if b.max > 0 && len(b.items)+len(other.items) > b.max {
		b.max = len(b.items) + len(other.items)
	}
	b.items = append(b.items, other.items...)
	b.dropped += other.dropped
}

// Count returns how many diagnostics carry code.
func (b *Bag) Count(code Code) int {
	n := 0
	for _, d := range b.items {
		if d.Code == code {
			n++
		}
	}
	return n
}

// Sort orders diagnostics by file, position and code.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Span.File != dj.Span.File {
			return di.Span.File < dj.Span.File
		}
		if di.Span.StartLine != dj.Span.StartLine {
			return di.Span.StartLine < dj.Span.StartLine
		}
		if di.Span.StartCol != dj.Span.StartCol {
			return di.Span.StartCol < dj.Span.StartCol
		}
		return di.Code < dj.Code
	})
}

// StructuralError reports a node stream that cannot be turned into a
// model. It aborts the build of the unit that produced it.
type StructuralError struct {
	Unit   string
	Span   syntax.Span
	Reason string
}

func (e *StructuralError) Error() string {
	if e.Span.StartLine > 0 {
		return fmt.Sprintf("model: structural error in %s at %d:%d: %s", e.Unit, e.Span.StartLine, e.Span.StartCol, e.Reason)
	}
	return fmt.Sprintf("model: structural error in %s: %s", e.Unit, e.Reason)
}
