package store

import "sync"

// BatchedStore buffers export inserts in memory. It implements DataStore so
// the exporter writes to it without knowing whether rows go to SQLite
// directly or are committed later in one transaction.
//
// Entities keep the model IDs they arrive with. Rows without an ID get a
// fake (negative) one that CommitBatch discards.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type BatchedStore struct {
	mu sync.Mutex

	Files           []File
	Entities        []Entity
	Attributes      []Attribute
	Directives      []Directive
	TypeMembers     []TypeMember
	FunctionParams  []FunctionParam
	TemplateParams  []TemplateParam
	References      []Reference
	Specializations []Specialization
	Instances       []Instance
	Diagnostics     []Diagnostic

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates an empty BatchedStore.
func NewBatchedStore() *BatchedStore {
	return &BatchedStore{nextFakeID: -1}
}

// assignID keeps a caller-chosen ID and allocates a fake one otherwise.
func (b *BatchedStore) assignID(id *int64) int64 {
	if *id == 0 {
		*id = b.nextFakeID
		b.nextFakeID--
	}
	return *id
}

func (b *BatchedStore) InsertFile(f *File) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.assignID(&f.ID)
	b.Files = append(b.Files, *f)
	return id, nil
}

func (b *BatchedStore) InsertEntity(e *Entity) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.assignID(&e.ID)
	b.Entities = append(b.Entities, *e)
	return id, nil
}

func (b *BatchedStore) InsertAttribute(a *Attribute) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.assignID(&a.ID)
	b.Attributes = append(b.Attributes, *a)
	return id, nil
}

func (b *BatchedStore) InsertDirective(d *Directive) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.assignID(&d.ID)
	b.Directives = append(b.Directives, *d)
	return id, nil
}

func (b *BatchedStore) InsertTypeMember(tm *TypeMember) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.assignID(&tm.ID)
	b.TypeMembers = append(b.TypeMembers, *tm)
	return id, nil
}

func (b *BatchedStore) InsertFunctionParam(fp *FunctionParam) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.assignID(&fp.ID)
	b.FunctionParams = append(b.FunctionParams, *fp)
	return id, nil
}

func (b *BatchedStore) InsertTemplateParam(tp *TemplateParam) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.assignID(&tp.ID)
	b.TemplateParams = append(b.TemplateParams, *tp)
	return id, nil
}

func (b *BatchedStore) InsertReference(ref *Reference) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.assignID(&ref.ID)
	b.References = append(b.References, *ref)
	return id, nil
}

func (b *BatchedStore) InsertSpecialization(sp *Specialization) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.assignID(&sp.ID)
	b.Specializations = append(b.Specializations, *sp)
	return id, nil
}

func (b *BatchedStore) InsertInstance(in *Instance) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.assignID(&in.ID)
	b.Instances = append(b.Instances, *in)
	return id, nil
}

func (b *BatchedStore) InsertDiagnostic(d *Diagnostic) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.assignID(&d.ID)
	b.Diagnostics = append(b.Diagnostics, *d)
	return id, nil
}

// Len returns the number of buffered rows.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Files) + len(b.Entities) + len(b.Attributes) + len(b.Directives) +
		len(b.TypeMembers) + len(b.FunctionParams) + len(b.TemplateParams) +
		len(b.References) + len(b.Specializations) + len(b.Instances) + len(b.Diagnostics)
}
