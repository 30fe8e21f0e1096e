package store

import (
	"context"
	"fmt"

	"github.com/jward/devana/internal/model"
)

// MetaFingerprint is the metadata key holding the exported model's
// fingerprint.
const MetaFingerprint = "model_fingerprint"

// Export replaces the model stored in s with a. Rows are buffered and
// committed in one transaction, so readers never see a partial model.
func Export(ctx context.Context, s *Store, a *model.Arena) error {
	batch := NewBatchedStore()
	if err := Write(ctx, batch, a); err != nil {
		return err
	}
	if err := s.CommitBatch(batch); err != nil {
		return err
	}
	fp, err := a.Fingerprint()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return s.SetMetadata(MetaFingerprint, fp)
}

// Write inserts every row describing a into ds.
func Write(ctx context.Context, ds DataStore, a *model.Arena) error {
	w := &writer{ds: ds, a: a, ordinals: make(map[model.ID]int)}
	return w.write(ctx)
}

type writer struct {
	ds       DataStore
	a        *model.Arena
	ordinals map[model.ID]int
	// members are written after every entity, since they refer to the
	// member entities as well as the class.
	members []*TypeMember
}

func (w *writer) write(ctx context.Context) error {
	for i, path := range w.a.Files {
		if _, err := w.ds.InsertFile(&File{Path: path, Ordinal: i, Preamble: w.a.Preambles[path]}); err != nil {
			return err
		}
	}

	all := w.a.All()
	for _, e := range all {
		for i, c := range w.a.Children(e.ID) {
			w.ordinals[c.ID] = i
		}
	}
	for _, e := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.entity(e); err != nil {
			return fmt.Errorf("export %s: %w", e.QualifiedName(), err)
		}
	}
	for _, m := range w.members {
		if _, err := w.ds.InsertTypeMember(m); err != nil {
			return err
		}
	}

	for _, r := range w.a.Refs() {
		ref := &Reference{
			OwnerID: int64(w.a.Canonical(r.Owner)),
			ScopeID: int64(w.a.Canonical(r.Scope)),
			Name:    r.String(),
			Context: r.Context.String(),
			Status:  r.Status.String(),
		}
		if r.Status == model.RefResolved {
			ref.TargetID = w.id(r.Target)
			ref.DeclaredID = w.id(r.Declared)
		}
		if _, err := w.ds.InsertReference(ref); err != nil {
			return err
		}
	}

	for _, in := range w.a.Instances {
		row := &Instance{
			TemplateID:     int64(w.a.Canonical(in.Template)),
			Args:           model.ArgsText(in.Args),
			Status:         in.Status.String(),
			Specialization: in.Specialization,
		}
		if in.Status == model.InstanceSelected {
			row.BodyID = w.id(in.Body)
		}
		if _, err := w.ds.InsertInstance(row); err != nil {
			return err
		}
	}

	for _, d := range w.a.Diags.Items() {
		row := &Diagnostic{
			Code:     d.Code.String(),
			Message:  d.Message,
			EntityID: w.id(d.Entity),
			File:     d.Span.File,
			Line:     d.Span.StartLine,
			Col:      d.Span.StartCol,
		}
		if _, err := w.ds.InsertDiagnostic(row); err != nil {
			return err
		}
	}
	return nil
}

// id returns a pointer to the exported row ID of a model entity, or nil
// when the entity is not exported.
func (w *writer) id(id model.ID) *int64 {
	e := w.a.Get(id)
	if e == nil || e.ID == model.UnknownID {
		return nil
	}
	v := int64(e.ID)
	return &v
}

func (w *writer) entity(e *model.Entity) error {
	id := int64(e.ID)
	ordinal, listed := w.ordinals[e.ID]
	if !listed {
		ordinal = -1
	}
	row := &Entity{
		ID:            id,
		Kind:          e.Kind.String(),
		Name:          e.Name,
		QualifiedName: e.QualifiedName(),
		OwnerID:       w.id(e.Owner),
		Ordinal:       ordinal,
		File:          e.Span.File,
		StartLine:     e.Span.StartLine,
		StartCol:      e.Span.StartCol,
		EndLine:       e.Span.EndLine,
		EndCol:        e.Span.EndCol,
		Doc:           e.Doc,
		Detail:        model.DescribeDetail(e),
	}
	if e.ID == model.RootID {
		row.OwnerID = nil
	}

	var (
		members []*TypeMember
		params  []*FunctionParam
		tparams []*TemplateParam
		keys    []string
	)
	switch d := e.Detail.(type) {
	case *model.ClassInfo:
		n := 0
		for _, c := range w.a.Children(e.ID) {
			v, ok := c.Detail.(*model.VariableInfo)
			if !ok || !v.Field || v.Static {
				continue
			}
			members = append(members, &TypeMember{
				EntityID:     id,
				MemberID:     int64(c.ID),
				Ordinal:      n,
				Name:         c.Name,
				TypeExpr:     v.Type.String(),
				Access:       v.Access,
				TypeEntityID: w.typeTarget(v.Type),
			})
			n++
		}
	case *model.FunctionInfo:
		for i, p := range d.Params {
			params = append(params, &FunctionParam{
				EntityID: id,
				Ordinal:  i,
				Name:     p.Name,
				TypeExpr: p.Type.String(),
				Default:  p.Default,
			})
		}
	case *model.TemplateInfo:
		tparams = templateParams(id, d.Params)
	case *model.ConceptInfo:
		tparams = templateParams(id, d.Params)
	}
	for _, at := range e.Attributes {
		keys = append(keys, at.Key())
	}
	row.SignatureHash = ComputeSignatureHash(row.Kind, row.QualifiedName, keys, members, params, tparams)

	if _, err := w.ds.InsertEntity(row); err != nil {
		return err
	}
	for i, at := range e.Attributes {
		if _, err := w.ds.InsertAttribute(&Attribute{
			EntityID:  id,
			Ordinal:   i,
			Namespace: at.Namespace,
			Name:      at.Name,
			Arguments: at.Arguments,
		}); err != nil {
			return err
		}
	}
	for i, d := range e.Directives {
		if _, err := w.ds.InsertDirective(&Directive{
			EntityID: id,
			Ordinal:  i,
			Name:     d.Name,
			Value:    d.Value,
			HasValue: d.HasValue,
			Known:    d.Known,
		}); err != nil {
			return err
		}
	}
	w.members = append(w.members, members...)
	for _, p := range params {
		if _, err := w.ds.InsertFunctionParam(p); err != nil {
			return err
		}
	}
	for _, tp := range tparams {
		if _, err := w.ds.InsertTemplateParam(tp); err != nil {
			return err
		}
	}
	if t, ok := e.Detail.(*model.TemplateInfo); ok {
		for i, sp := range t.Specializations {
			if _, err := w.ds.InsertSpecialization(&Specialization{
				TemplateID: id,
				Ordinal:    i,
				Pattern:    model.ArgsText(sp.Pattern),
				Explicit:   sp.Explicit,
				BodyID:     int64(w.a.Canonical(sp.Body)),
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// typeTarget returns the entity named at the core of t, looking through
// pointers, references and arrays.
func (w *writer) typeTarget(t *model.TypeExpr) *int64 {
	for t != nil && t.Elem != nil {
		t = t.Elem
	}
	target := t.Target()
	if target == model.None {
		return nil
	}
	return w.id(target)
}

func templateParams(owner int64, params []model.TemplateParam) []*TemplateParam {
	out := make([]*TemplateParam, len(params))
	for i, p := range params {
		out[i] = &TemplateParam{
			EntityID:  owner,
			Ordinal:   i,
			Name:      p.Name,
			ParamKind: p.Kind.String(),
			Specifier: p.Specifier,
			TypeExpr:  p.Type.String(),
			Default:   p.Default,
			Variadic:  p.Variadic,
		}
	}
	return out
}
