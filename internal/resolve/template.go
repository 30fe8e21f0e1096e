package resolve

import (
	"fmt"
	"strings"

	"github.com/jward/devana/internal/model"
)

func cacheKey(tmpl model.ID, argsKey string) string {
	return fmt.Sprintf("%d%s", tmpl, argsKey)
}

// Instantiate selects the definition of tmpl used with args: an explicit
// specialization equal to the arguments, else the single most specialized
// matching partial specialization, else the primary. Results are cached by
// structural key. Re-entering the same key while it is being selected
// yields a cyclic instance.
func (r *Resolver) Instantiate(tmpl model.ID, args []*model.TypeExpr) *model.Instance {
	e := r.arena.Get(tmpl)
	info, ok := e.Detail.(*model.TemplateInfo)
	if !ok {
		return &model.Instance{Template: tmpl, Status: model.InstanceInvalid, Body: model.UnknownID, Specialization: model.PrimaryIndex}
	}
	for _, a := range args {
		r.resolveType(a)
	}
	args = r.canonicalAll(args)
	in := &model.Instance{Template: e.ID, Args: args, Key: model.ArgsKey(args), Body: model.UnknownID, Specialization: model.PrimaryIndex}
	if dependent(args) {
		in.Status = model.InstanceDependent
		return in
	}
	key := cacheKey(e.ID, in.Key)
	if cached, ok := r.cache[key]; ok {
		return cached
	}
	if r.inProgress[key] {
		in.Status = model.InstanceCyclic
		return in
	}
	r.inProgress[key] = true
	defer delete(r.inProgress, key)

	r.selectDefinition(e, info, in)
	r.cache[key] = in
	if !r.readOnly {
		r.arena.Instances = append(r.arena.Instances, in)
		if in.Status == model.InstanceAmbiguous {
			names := make([]string, len(in.Candidates))
			for i, c := range in.Candidates {
				names[i] = model.ArgsKey(info.Specializations[c].Pattern)
				if b := r.arena.Get(info.Specializations[c].Body); b != nil {
					names[i] = b.QualifiedName()
				}
			}
			r.arena.Diags.Addf(model.AmbiguousSpecialization, e.ID, e.Span,
				"ambiguous specialization of %s<%s>: %s", e.QualifiedName(), argsText(args), strings.Join(names, ", "))
		}
	}
	return in
}

func argsText(args []*model.TypeExpr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

// dependent reports whether an argument list still mentions template
// parameters.
func dependent(args []*model.TypeExpr) bool {
	for _, a := range args {
		if a.HasPlaceholders() {
			return true
		}
		for _, ref := range a.Refs() {
			if ref.Dependent {
				return true
			}
		}
	}
	return false
}

func (r *Resolver) selectDefinition(e *model.Entity, info *model.TemplateInfo, in *model.Instance) {
	full, ok := r.complete(info, in.Args)
	if !ok {
		in.Status = model.InstanceInvalid
		return
	}

	for i, sp := range info.Specializations {
		if !sp.Explicit {
			continue
		}
		if _, ok := r.match(r.canonicalAll(sp.Pattern), full); ok {
			in.Status = model.InstanceSelected
			in.Specialization = i
			in.Explicit = true
			in.Body = sp.Body
			return
		}
	}

	var matches []int
	bound := map[int]bindings{}
	for i, sp := range info.Specializations {
		if sp.Explicit {
			continue
		}
		if b, ok := r.match(r.canonicalAll(sp.Pattern), full); ok {
			matches = append(matches, i)
			bound[i] = b
		}
	}
	switch len(matches) {
	case 0:
		in.Status = model.InstanceSelected
		in.Body = info.Primary
		in.Bindings = primaryBindings(info, full)
		return
	case 1:
	default:
		best := r.mostSpecialized(info, matches)
		if best < 0 {
			in.Status = model.InstanceAmbiguous
			in.Candidates = matches
			return
		}
		matches = []int{best}
	}
	i := matches[0]
	sp := info.Specializations[i]
	in.Status = model.InstanceSelected
	in.Specialization = i
	in.Body = sp.Body
	in.Bindings = bound[i].export(sp.Params)
}

// complete appends default arguments for trailing parameters. Defaults may
// refer to earlier parameters. A variadic last parameter absorbs any
// number of arguments, including none.
func (r *Resolver) complete(info *model.TemplateInfo, args []*model.TypeExpr) ([]*model.TypeExpr, bool) {
	n := len(info.Params)
	if n == 0 {
		return args, true
	}
	if len(args) > n && !info.Variadic() {
		return nil, false
	}
	out := append([]*model.TypeExpr(nil), args...)
	for i := len(args); i < n; i++ {
		p := info.Params[i]
		if p.Variadic {
			break
		}
		if p.DefaultType == nil {
			return nil, false
		}
		r.resolveType(p.DefaultType)
		out = append(out, r.canonical(substitute(p.DefaultType, out)))
	}
	return out, true
}

func primaryBindings(info *model.TemplateInfo, args []*model.TypeExpr) []model.Binding {
	out := make([]model.Binding, 0, len(info.Params))
	for i, p := range info.Params {
		b := model.Binding{Name: p.Name, Pack: p.Variadic}
		switch {
		case p.Variadic:
			if i < len(args) {
				b.Values = args[i:]
			}
		case i < len(args):
			b.Values = []*model.TypeExpr{args[i]}
		}
		out = append(out, b)
	}
	return out
}

// mostSpecialized returns the candidate more specialized than every other
// one, or -1 when there is no single maximum.
func (r *Resolver) mostSpecialized(info *model.TemplateInfo, candidates []int) int {
	for _, a := range candidates {
		best := true
		for _, b := range candidates {
			if a != b && !r.moreSpecialized(info.Specializations[a], info.Specializations[b]) {
				best = false
				break
			}
		}
		if best {
			return a
		}
	}
	return -1
}
