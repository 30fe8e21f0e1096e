// Package devana builds a resolved semantic model of C++ source.
//
// # Pipeline
//
// An [Engine] turns translation units into a sealed [Model] in five stages:
//
//  1. Build: each unit's node stream is normalized and turned into a scope
//     tree. Forward declarations are merged with their definitions and
//     out-of-line member definitions move into their class. Units build in
//     parallel.
//
//  2. Link: the unit arenas are combined in order. Namespaces reopened in
//     several units become one scope whose children are concatenated.
//
//  3. Resolve: every name written in a signature, base list, alias or
//     using-directive is looked up, and template-ids are matched against
//     their template's explicit and partial specializations.
//
//  4. Annotate: attributes, documentation comments and directive comments
//     are attached to the entities they precede.
//
//  5. Seal: the model becomes read-only and is fingerprinted.
//
// Problems that leave the model usable are recorded as diagnostics. Only a
// structurally broken node stream fails the build, with a
// [StructuralError].
//
// # Usage
//
//	e, err := devana.New(devana.WithConfig(cfg))
//	if err != nil { ... }
//	m, err := e.BuildFiles(ctx, "include/widget.hpp")
//	if err != nil { ... }
//
//	w, err := m.Lookup("ui::Widget")
//	for _, f := range m.Fields(w.ID) { ... }
//
// # Front ends
//
// [Engine.Build] accepts node streams from any front end that can fill
// [Unit]. [Engine.BuildFiles], [Engine.BuildSource] and
// [Engine.BuildDirectory] use the bundled tree-sitter C++ front end.
package devana
