package model

import (
	"crypto/sha256"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotEntity is the canonical, order-stable form of an entity used for
// fingerprinting. Raw annotation inputs are left out on purpose: two
// models that answer every query the same way fingerprint the same.
type snapshotEntity struct {
	ID         ID          `msgpack:"id"`
	Kind       string      `msgpack:"kind"`
	Name       string      `msgpack:"name"`
	Path       []string    `msgpack:"path"`
	Owner      ID          `msgpack:"owner"`
	Doc        string      `msgpack:"doc,omitempty"`
	Attributes []Attribute `msgpack:"attrs,omitempty"`
	Directives []Directive `msgpack:"dirs,omitempty"`
	Span       string      `msgpack:"span"`
	Detail     string      `msgpack:"detail"`
	Children   []ID        `msgpack:"children,omitempty"`
}

type snapshot struct {
	Entities    []snapshotEntity `msgpack:"entities"`
	Refs        []string         `msgpack:"refs"`
	Instances   []string         `msgpack:"instances"`
	Diagnostics []string         `msgpack:"diagnostics"`
}

// Fingerprint hashes a canonical msgpack encoding of the arena. Building
// the same node stream twice yields the same fingerprint.
func (a *Arena) Fingerprint() (string, error) {
	var s snapshot
	for _, e := range a.All() {
		se := snapshotEntity{
			ID:         e.ID,
			Kind:       e.Kind.String(),
			Name:       e.ScopeName(),
			Path:       e.Path,
			Owner:      e.Owner,
			Doc:        e.Doc,
			Attributes: e.Attributes,
			Directives: e.Directives,
			Span:       e.Span.String(),
			Detail:     DescribeDetail(e),
		}
		if sc := e.Scope(); sc != nil {
			se.Children = sc.Children
		}
		s.Entities = append(s.Entities, se)
	}
	for _, r := range a.refs {
		s.Refs = append(s.Refs, fmt.Sprintf("%s@%d=%s:%d", r, r.Scope, r.Status, r.Target))
	}
	for _, in := range a.Instances {
		s.Instances = append(s.Instances, fmt.Sprintf("%d%s=%s:%d/%d", in.Template, in.Key, in.Status, in.Specialization, in.Body))
	}
	for _, d := range a.Diags.Items() {
		s.Diagnostics = append(s.Diagnostics, d.String())
	}
	data, err := msgpack.Marshal(&s)
	if err != nil {
		return "", fmt.Errorf("model: fingerprint: %w", err)
	}
	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

// DescribeDetail renders the variant payload of e as a short string.
func DescribeDetail(e *Entity) string {
	switch d := e.Detail.(type) {
	case *NamespaceInfo:
		return fmt.Sprintf("inline=%t fragments=%d", d.Inline, len(d.Fragments))
	case *ClassInfo:
		bases := make([]string, len(d.Bases))
		for i, b := range d.Bases {
			bases[i] = b.Access + " " + b.Type.Key()
		}
		return fmt.Sprintf("%s defined=%t final=%t bases=%v", d.Keyword, d.Defined, d.Final, bases)
	case *EnumInfo:
		return fmt.Sprintf("%s underlying=%s", d.Keyword, d.Underlying.Key())
	case *FunctionInfo:
		params := make([]string, len(d.Params))
		for i, p := range d.Params {
			params[i] = p.Type.Key()
		}
		return fmt.Sprintf("ret=%s params=%v body=%t method=%t const=%t", d.Return.Key(), params, d.HasBody, d.Method, d.Const)
	case *VariableInfo:
		return fmt.Sprintf("type=%s field=%t enumerator=%t value=%q", d.Type.Key(), d.Field, d.Enumerator, d.Value)
	case *AliasInfo:
		return fmt.Sprintf("%s target=%s resolved=%d", d.Form, d.Target.Key(), d.Resolved)
	case *TemplateInfo:
		specs := make([]string, len(d.Specializations))
		for i, sp := range d.Specializations {
			specs[i] = fmt.Sprintf("%s explicit=%t body=%d", ArgsKey(sp.Pattern), sp.Explicit, sp.Body)
		}
		return fmt.Sprintf("params=%d primary=%d specs=%v", len(d.Params), d.Primary, specs)
	case *ConceptInfo:
		return fmt.Sprintf("params=%d requirements=%d", len(d.Params), len(d.Requirements))
	case *UnmodeledInfo:
		return "raw=" + d.RawKind
	case *UnknownInfo:
		return "unknown"
	}
	return ""
}
