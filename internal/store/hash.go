package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// ComputeSignatureHash computes a deterministic hash from an entity's
// semantic identity: kind, qualified name, attribute keys, data members,
// function parameters and template parameters. Location and documentation
// changes do NOT affect the hash.
func ComputeSignatureHash(
	kind, qualifiedName string,
	attributes []string,
	members []*TypeMember,
	params []*FunctionParam,
	templateParams []*TemplateParam,
) string {
	h := sha256.New()

	fmt.Fprintf(h, "kind:%s\n", kind)
	fmt.Fprintf(h, "name:%s\n", qualifiedName)

	// Attributes are a set; sort for determinism.
	sorted := make([]string, len(attributes))
	copy(sorted, attributes)
	sort.Strings(sorted)
	fmt.Fprintf(h, "attributes:%s\n", strings.Join(sorted, ","))

	// Members, parameters and template parameters are positional.
	ms := make([]*TypeMember, len(members))
	copy(ms, members)
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Ordinal < ms[j].Ordinal })
	for _, m := range ms {
		fmt.Fprintf(h, "member:%d:%s:%s:%s\n", m.Ordinal, m.Name, m.TypeExpr, m.Access)
	}

	ps := make([]*FunctionParam, len(params))
	copy(ps, params)
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Ordinal < ps[j].Ordinal })
	for _, p := range ps {
		fmt.Fprintf(h, "param:%d:%s:%s\n", p.Ordinal, p.TypeExpr, p.Default)
	}

	ts := make([]*TemplateParam, len(templateParams))
	copy(ts, templateParams)
	sort.SliceStable(ts, func(i, j int) bool { return ts[i].Ordinal < ts[j].Ordinal })
	for _, tp := range ts {
		fmt.Fprintf(h, "tparam:%d:%s:%s:%s:%t\n", tp.Ordinal, tp.ParamKind, tp.Specifier, tp.TypeExpr, tp.Variadic)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
