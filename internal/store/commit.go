package store

import (
	"fmt"
)

// CommitBatch replaces the stored model with the rows buffered in batch,
// within a single transaction. Fake (negative) IDs are dropped so that
// SQLite assigns real ones; entity IDs are written as given. Entity foreign
// keys are deferred, so owners may follow their members.
//
// Insert order:
//  1. Files
//  2. Entities
//  3. Attributes, Directives
//  4. TypeMembers, FunctionParams, TemplateParams
//  5. References
//  6. Specializations, Instances
//  7. Diagnostics
func (s *Store) CommitBatch(batch *BatchedStore) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	if err := clearTx(tx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	// 1. Files
	for _, f := range batch.Files {
		f.ID = keepID(f.ID)
		if _, err := insertFile(tx, &f); err != nil {
			return fmt.Errorf("commit batch: file %q: %w", f.Path, err)
		}
	}

	// 2. Entities
	for _, e := range batch.Entities {
		if e.ID <= 0 {
			return fmt.Errorf("commit batch: entity %q has no model id", e.QualifiedName)
		}
		if _, err := insertEntity(tx, &e); err != nil {
			return fmt.Errorf("commit batch: entity %q: %w", e.QualifiedName, err)
		}
	}

	// 3. Annotations
	for _, a := range batch.Attributes {
		a.ID = keepID(a.ID)
		if _, err := insertAttribute(tx, &a); err != nil {
			return fmt.Errorf("commit batch: attribute %q: %w", a.Name, err)
		}
	}
	for _, d := range batch.Directives {
		d.ID = keepID(d.ID)
		if _, err := insertDirective(tx, &d); err != nil {
			return fmt.Errorf("commit batch: directive %q: %w", d.Name, err)
		}
	}

	// 4. Members and parameters
	for _, tm := range batch.TypeMembers {
		tm.ID = keepID(tm.ID)
		if _, err := insertTypeMember(tx, &tm); err != nil {
			return fmt.Errorf("commit batch: type member %q: %w", tm.Name, err)
		}
	}
	for _, fp := range batch.FunctionParams {
		fp.ID = keepID(fp.ID)
		if _, err := insertFunctionParam(tx, &fp); err != nil {
			return fmt.Errorf("commit batch: function param %q: %w", fp.Name, err)
		}
	}
	for _, tp := range batch.TemplateParams {
		tp.ID = keepID(tp.ID)
		if _, err := insertTemplateParam(tx, &tp); err != nil {
			return fmt.Errorf("commit batch: template param %q: %w", tp.Name, err)
		}
	}

	// 5. References
	for _, ref := range batch.References {
		ref.ID = keepID(ref.ID)
		if _, err := insertReference(tx, &ref); err != nil {
			return fmt.Errorf("commit batch: reference %q: %w", ref.Name, err)
		}
	}

	// 6. Templates
	for _, sp := range batch.Specializations {
		sp.ID = keepID(sp.ID)
		if _, err := insertSpecialization(tx, &sp); err != nil {
			return fmt.Errorf("commit batch: specialization %q: %w", sp.Pattern, err)
		}
	}
	for _, in := range batch.Instances {
		in.ID = keepID(in.ID)
		if _, err := insertInstance(tx, &in); err != nil {
			return fmt.Errorf("commit batch: instance %q: %w", in.Args, err)
		}
	}

	// 7. Diagnostics
	for _, d := range batch.Diagnostics {
		d.ID = keepID(d.ID)
		if _, err := insertDiagnostic(tx, &d); err != nil {
			return fmt.Errorf("commit batch: diagnostic %s: %w", d.Code, err)
		}
	}

	return tx.Commit()
}

// keepID discards fake IDs.
func keepID(id int64) int64 {
	if id < 0 {
		return 0
	}
	return id
}
