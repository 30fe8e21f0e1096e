package store

// DataStore is the interface for export-phase writes. Both Store (direct
// SQLite) and BatchedStore (in-memory buffering committed in one
// transaction) implement this interface.
type DataStore interface {
	InsertFile(f *File) (int64, error)
	InsertEntity(e *Entity) (int64, error)
	InsertAttribute(a *Attribute) (int64, error)
	InsertDirective(d *Directive) (int64, error)
	InsertTypeMember(tm *TypeMember) (int64, error)
	InsertFunctionParam(fp *FunctionParam) (int64, error)
	InsertTemplateParam(tp *TemplateParam) (int64, error)
	InsertReference(ref *Reference) (int64, error)
	InsertSpecialization(sp *Specialization) (int64, error)
	InsertInstance(in *Instance) (int64, error)
	InsertDiagnostic(d *Diagnostic) (int64, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
