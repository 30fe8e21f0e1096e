package runtime

import (
	"context"

	"github.com/risor-io/risor/object"

	"github.com/jward/devana/internal/model"
)

// Model is the read-only query surface scripts run against. The root
// package's *Model satisfies it.
type Model interface {
	Root() model.Entity
	Entity(id model.ID) (model.Entity, bool)
	Children(scope model.ID) []model.Entity
	EntitiesByKind(kind model.Kind) []model.Entity
	Lookup(qualified string) (model.Entity, error)
	Resolve(qualified string) (model.Entity, error)
	HasDirective(id model.ID, name string) bool
	Specializations(tmpl model.ID) []model.Specialization
	Instantiate(tmpl model.ID, args ...string) (model.Instance, error)
	Diagnostics() []model.Diagnostic
	Files() []string
	Source(file string) ([]byte, bool)
	Fingerprint() string
}

// modelFunctions returns the model query host functions keyed by global
// name. Entities are passed to scripts as maps and addressed by their
// "id" key.
func modelFunctions(m Model) map[string]any {
	return map[string]any{
		"root": object.NewBuiltin("root", func(ctx context.Context, args ...object.Object) object.Object {
			if len(args) != 0 {
				return object.NewArgsError("root", 0, len(args))
			}
			e := m.Root()
			return entityToMap(&e)
		}),
		"entity": object.NewBuiltin("entity", func(ctx context.Context, args ...object.Object) object.Object {
			id, errObj := idArg("entity", args)
			if errObj != nil {
				return errObj
			}
			e, ok := m.Entity(id)
			if !ok {
				return object.Nil
			}
			return entityToMap(&e)
		}),
		"lookup":  makeNameFn("lookup", m.Lookup),
		"resolve": makeNameFn("resolve", m.Resolve),
		"children": object.NewBuiltin("children", func(ctx context.Context, args ...object.Object) object.Object {
			id, errObj := idArg("children", args)
			if errObj != nil {
				return errObj
			}
			return entitiesToList(m.Children(id))
		}),
		"entities": object.NewBuiltin("entities", func(ctx context.Context, args ...object.Object) object.Object {
			if len(args) != 1 {
				return object.NewArgsError("entities", 1, len(args))
			}
			name, err := toString(args[0])
			if err != nil {
				return object.Errorf("entities: %v", err)
			}
			kind, ok := model.ParseEntityKind(name)
			if !ok {
				return object.Errorf("entities: unknown kind %q", name)
			}
			return entitiesToList(m.EntitiesByKind(kind))
		}),
		"fields": object.NewBuiltin("fields", func(ctx context.Context, args ...object.Object) object.Object {
			id, errObj := idArg("fields", args)
			if errObj != nil {
				return errObj
			}
			return fieldsOf(m, id)
		}),
		"bases": object.NewBuiltin("bases", func(ctx context.Context, args ...object.Object) object.Object {
			id, errObj := idArg("bases", args)
			if errObj != nil {
				return errObj
			}
			return basesOf(m, id)
		}),
		"has_directive": object.NewBuiltin("has_directive", func(ctx context.Context, args ...object.Object) object.Object {
			if len(args) != 2 {
				return object.NewArgsError("has_directive", 2, len(args))
			}
			id, errObj := idArg("has_directive", args[:1])
			if errObj != nil {
				return errObj
			}
			name, err := toString(args[1])
			if err != nil {
				return object.Errorf("has_directive: %v", err)
			}
			return object.NewBool(m.HasDirective(id, name))
		}),
		"specializations": object.NewBuiltin("specializations", func(ctx context.Context, args ...object.Object) object.Object {
			id, errObj := idArg("specializations", args)
			if errObj != nil {
				return errObj
			}
			var out []object.Object
			for _, sp := range m.Specializations(id) {
				out = append(out, object.NewMap(map[string]object.Object{
					"pattern":  object.NewString(model.ArgsText(sp.Pattern)),
					"explicit": object.NewBool(sp.Explicit),
					"body":     object.NewInt(int64(sp.Body)),
				}))
			}
			return list(out)
		}),
		"instantiate": object.NewBuiltin("instantiate", func(ctx context.Context, args ...object.Object) object.Object {
			if len(args) < 1 {
				return object.Errorf("instantiate: expected a template id and arguments")
			}
			id, errObj := idArg("instantiate", args[:1])
			if errObj != nil {
				return errObj
			}
			texts := make([]string, 0, len(args)-1)
			for _, a := range args[1:] {
				s, err := toString(a)
				if err != nil {
					return object.Errorf("instantiate: %v", err)
				}
				texts = append(texts, s)
			}
			in, err := m.Instantiate(id, texts...)
			if err != nil {
				return object.Errorf("instantiate: %v", err)
			}
			return instanceToMap(&in)
		}),
		"diagnostics": object.NewBuiltin("diagnostics", func(ctx context.Context, args ...object.Object) object.Object {
			var out []object.Object
			for _, d := range m.Diagnostics() {
				out = append(out, object.NewMap(map[string]object.Object{
					"code":    object.NewString(d.Code.String()),
					"message": object.NewString(d.Message),
					"entity":  object.NewInt(int64(d.Entity)),
					"file":    object.NewString(d.Span.File),
					"line":    object.NewInt(int64(d.Span.StartLine)),
					"col":     object.NewInt(int64(d.Span.StartCol)),
				}))
			}
			return list(out)
		}),
		"files": object.NewBuiltin("files", func(ctx context.Context, args ...object.Object) object.Object {
			var out []object.Object
			for _, f := range m.Files() {
				out = append(out, object.NewString(f))
			}
			return list(out)
		}),
		"fingerprint": object.NewBuiltin("fingerprint", func(ctx context.Context, args ...object.Object) object.Object {
			return object.NewString(m.Fingerprint())
		}),
	}
}

func makeNameFn(name string, fn func(string) (model.Entity, error)) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError(name, 1, len(args))
		}
		qualified, err := toString(args[0])
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		e, err := fn(qualified)
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		return entityToMap(&e)
	})
}

// idArg accepts either an entity ID or an entity map.
func idArg(name string, args []object.Object) (model.ID, object.Object) {
	if len(args) != 1 {
		return 0, object.NewArgsError(name, 1, len(args))
	}
	if m, ok := args[0].(*object.Map); ok {
		v, ok := m.Value()["id"]
		if !ok {
			return 0, object.Errorf("%s: map has no id", name)
		}
		args = []object.Object{v}
	}
	id, err := toInt64(args[0])
	if err != nil {
		return 0, object.Errorf("%s: %v", name, err)
	}
	return model.ID(id), nil
}

func list(items []object.Object) object.Object {
	if items == nil {
		items = []object.Object{}
	}
	return object.NewList(items)
}

func entitiesToList(es []model.Entity) object.Object {
	out := make([]object.Object, len(es))
	for i := range es {
		out[i] = entityToMap(&es[i])
	}
	return list(out)
}

// entityToMap converts an entity to a Risor map. Detail fields that
// scripts commonly need are flattened in.
func entityToMap(e *model.Entity) object.Object {
	return object.NewMap(entityFields(e))
}

func entityFields(e *model.Entity) map[string]object.Object {
	attrs := make([]object.Object, len(e.Attributes))
	for i, a := range e.Attributes {
		attrs[i] = object.NewString(a.Key())
	}
	dirs := make(map[string]object.Object, len(e.Directives))
	for _, d := range e.Directives {
		dirs[d.Name] = object.NewString(d.Value)
	}
	m := map[string]object.Object{
		"id":             object.NewInt(int64(e.ID)),
		"kind":           object.NewString(e.Kind.String()),
		"name":           object.NewString(e.Name),
		"qualified_name": object.NewString(e.QualifiedName()),
		"owner":          object.NewInt(int64(e.Owner)),
		"file":           object.NewString(e.Span.File),
		"line":           object.NewInt(int64(e.Span.StartLine)),
		"col":            object.NewInt(int64(e.Span.StartCol)),
		"end_line":       object.NewInt(int64(e.Span.EndLine)),
		"doc":            object.NewString(e.Doc),
		"detail":         object.NewString(model.DescribeDetail(e)),
		"attributes":     object.NewList(attrs),
		"directives":     object.NewMap(dirs),
	}
	switch d := e.Detail.(type) {
	case *model.VariableInfo:
		m["type"] = object.NewString(d.Type.String())
		m["field"] = object.NewBool(d.Field)
		m["static"] = object.NewBool(d.Static)
		m["access"] = object.NewString(d.Access)
		m["value"] = object.NewString(d.Value)
	case *model.FunctionInfo:
		params := make([]object.Object, len(d.Params))
		for i, p := range d.Params {
			params[i] = object.NewMap(map[string]object.Object{
				"name":    object.NewString(p.Name),
				"type":    object.NewString(p.Type.String()),
				"default": object.NewString(p.Default),
			})
		}
		m["return"] = object.NewString(d.Return.String())
		m["params"] = object.NewList(params)
		m["access"] = object.NewString(d.Access)
	case *model.AliasInfo:
		m["target"] = object.NewString(d.Target.String())
		m["resolved"] = object.NewInt(int64(d.Resolved))
	case *model.ClassInfo:
		m["keyword"] = object.NewString(d.Keyword)
	case *model.TemplateInfo:
		m["primary"] = object.NewInt(int64(d.Primary))
	}
	return m
}

// classOf returns a class entity, unwrapping a class template to its
// primary.
func classOf(m Model, id model.ID) (model.Entity, *model.ClassInfo, bool) {
	e, ok := m.Entity(id)
	if !ok {
		return e, nil, false
	}
	if t, ok := e.Detail.(*model.TemplateInfo); ok {
		if e, ok = m.Entity(t.Primary); !ok {
			return e, nil, false
		}
	}
	info, ok := e.Detail.(*model.ClassInfo)
	return e, info, ok
}

func fieldsOf(m Model, id model.ID) object.Object {
	e, _, ok := classOf(m, id)
	if !ok {
		return list(nil)
	}
	var out []object.Object
	for _, c := range m.Children(e.ID) {
		v, ok := c.Detail.(*model.VariableInfo)
		if !ok || !v.Field || v.Static {
			continue
		}
		fm := entityFields(&c)
		fm["type_id"] = object.NewInt(int64(coreTarget(v.Type)))
		out = append(out, object.NewMap(fm))
	}
	return list(out)
}

func basesOf(m Model, id model.ID) object.Object {
	_, info, ok := classOf(m, id)
	if !ok {
		return list(nil)
	}
	out := make([]object.Object, len(info.Bases))
	for i, b := range info.Bases {
		out[i] = object.NewMap(map[string]object.Object{
			"type":    object.NewString(b.Type.String()),
			"id":      object.NewInt(int64(coreTarget(b.Type))),
			"access":  object.NewString(b.Access),
			"virtual": object.NewBool(b.Virtual),
		})
	}
	return list(out)
}

// coreTarget returns the entity named at the core of t, or 0.
func coreTarget(t *model.TypeExpr) model.ID {
	for t != nil && t.Elem != nil {
		t = t.Elem
	}
	return t.Target()
}

func instanceToMap(in *model.Instance) object.Object {
	bindings := make(map[string]object.Object, len(in.Bindings))
	for _, b := range in.Bindings {
		vals := make([]object.Object, len(b.Values))
		for i, v := range b.Values {
			vals[i] = object.NewString(v.String())
		}
		bindings[b.Name] = object.NewList(vals)
	}
	return object.NewMap(map[string]object.Object{
		"template":       object.NewInt(int64(in.Template)),
		"args":           object.NewString(model.ArgsText(in.Args)),
		"status":         object.NewString(in.Status.String()),
		"body":           object.NewInt(int64(in.Body)),
		"specialization": object.NewInt(int64(in.Specialization)),
		"explicit":       object.NewBool(in.Explicit),
		"bindings":       object.NewMap(bindings),
	})
}
