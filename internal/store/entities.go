package store

import (
	"database/sql"
	"fmt"
)

// execer is satisfied by *sql.DB and *sql.Tx, so every insert is written
// once and shared by direct and batched writes.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// rowID maps the zero ID to NULL so that SQLite assigns one.
func rowID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// --- Inserts ---

func (s *Store) InsertFile(f *File) (int64, error) {
	id, err := insertFile(s.db, f)
	if err == nil {
		f.ID = id
	}
	return id, err
}

func (s *Store) InsertEntity(e *Entity) (int64, error) {
	id, err := insertEntity(s.db, e)
	if err == nil {
		e.ID = id
	}
	return id, err
}

func (s *Store) InsertAttribute(a *Attribute) (int64, error) {
	id, err := insertAttribute(s.db, a)
	if err == nil {
		a.ID = id
	}
	return id, err
}

func (s *Store) InsertDirective(d *Directive) (int64, error) {
	id, err := insertDirective(s.db, d)
	if err == nil {
		d.ID = id
	}
	return id, err
}

func (s *Store) InsertTypeMember(tm *TypeMember) (int64, error) {
	id, err := insertTypeMember(s.db, tm)
	if err == nil {
		tm.ID = id
	}
	return id, err
}

func (s *Store) InsertFunctionParam(fp *FunctionParam) (int64, error) {
	id, err := insertFunctionParam(s.db, fp)
	if err == nil {
		fp.ID = id
	}
	return id, err
}

func (s *Store) InsertTemplateParam(tp *TemplateParam) (int64, error) {
	id, err := insertTemplateParam(s.db, tp)
	if err == nil {
		tp.ID = id
	}
	return id, err
}

func (s *Store) InsertReference(ref *Reference) (int64, error) {
	id, err := insertReference(s.db, ref)
	if err == nil {
		ref.ID = id
	}
	return id, err
}

func (s *Store) InsertSpecialization(sp *Specialization) (int64, error) {
	id, err := insertSpecialization(s.db, sp)
	if err == nil {
		sp.ID = id
	}
	return id, err
}

func (s *Store) InsertInstance(in *Instance) (int64, error) {
	id, err := insertInstance(s.db, in)
	if err == nil {
		in.ID = id
	}
	return id, err
}

func (s *Store) InsertDiagnostic(d *Diagnostic) (int64, error) {
	id, err := insertDiagnostic(s.db, d)
	if err == nil {
		d.ID = id
	}
	return id, err
}

func insertFile(x execer, f *File) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO files (id, path, ordinal, preamble) VALUES (?, ?, ?, ?)`,
		rowID(f.ID), f.Path, f.Ordinal, f.Preamble,
	)
	return lastID(res, err, "file")
}

func insertEntity(x execer, e *Entity) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO entities (id, kind, name, qualified_name, owner_id, ordinal, file,
			start_line, start_col, end_line, end_col, doc, detail, signature_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rowID(e.ID), e.Kind, e.Name, e.QualifiedName, e.OwnerID, e.Ordinal, e.File,
		e.StartLine, e.StartCol, e.EndLine, e.EndCol, e.Doc, e.Detail, e.SignatureHash,
	)
	return lastID(res, err, "entity")
}

func insertAttribute(x execer, a *Attribute) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO attributes (id, entity_id, ordinal, namespace, name, arguments)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rowID(a.ID), a.EntityID, a.Ordinal, a.Namespace, a.Name, marshalArguments(a.Arguments),
	)
	return lastID(res, err, "attribute")
}

func insertDirective(x execer, d *Directive) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO directives (id, entity_id, ordinal, name, value, has_value, known)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rowID(d.ID), d.EntityID, d.Ordinal, d.Name, d.Value, d.HasValue, d.Known,
	)
	return lastID(res, err, "directive")
}

func insertTypeMember(x execer, tm *TypeMember) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO type_members (id, entity_id, member_id, ordinal, name, type_expr, access, type_entity_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rowID(tm.ID), tm.EntityID, tm.MemberID, tm.Ordinal, tm.Name, tm.TypeExpr, tm.Access, tm.TypeEntityID,
	)
	return lastID(res, err, "type member")
}

func insertFunctionParam(x execer, fp *FunctionParam) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO function_parameters (id, entity_id, ordinal, name, type_expr, default_value)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rowID(fp.ID), fp.EntityID, fp.Ordinal, fp.Name, fp.TypeExpr, fp.Default,
	)
	return lastID(res, err, "function parameter")
}

func insertTemplateParam(x execer, tp *TemplateParam) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO template_parameters (id, entity_id, ordinal, name, param_kind, specifier, type_expr, default_value, variadic)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rowID(tp.ID), tp.EntityID, tp.Ordinal, tp.Name, tp.ParamKind, tp.Specifier, tp.TypeExpr, tp.Default, tp.Variadic,
	)
	return lastID(res, err, "template parameter")
}

func insertReference(x execer, ref *Reference) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO references_ (id, owner_id, scope_id, name, context, status, target_id, declared_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rowID(ref.ID), ref.OwnerID, ref.ScopeID, ref.Name, ref.Context, ref.Status, ref.TargetID, ref.DeclaredID,
	)
	return lastID(res, err, "reference")
}

func insertSpecialization(x execer, sp *Specialization) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO specializations (id, template_id, ordinal, pattern, explicit, body_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rowID(sp.ID), sp.TemplateID, sp.Ordinal, sp.Pattern, sp.Explicit, sp.BodyID,
	)
	return lastID(res, err, "specialization")
}

func insertInstance(x execer, in *Instance) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO instances (id, template_id, args, status, body_id, specialization)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rowID(in.ID), in.TemplateID, in.Args, in.Status, in.BodyID, in.Specialization,
	)
	return lastID(res, err, "instance")
}

func insertDiagnostic(x execer, d *Diagnostic) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO diagnostics (id, code, message, entity_id, file, line, col)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rowID(d.ID), d.Code, d.Message, d.EntityID, d.File, d.Line, d.Col,
	)
	return lastID(res, err, "diagnostic")
}

// --- Queries ---

const entityColumns = `id, kind, name, qualified_name, owner_id, ordinal, file,
	start_line, start_col, end_line, end_col, doc, detail, signature_hash`

func scanEntity(row interface{ Scan(...any) error }) (*Entity, error) {
	var e Entity
	var owner sql.NullInt64
	err := row.Scan(&e.ID, &e.Kind, &e.Name, &e.QualifiedName, &owner, &e.Ordinal, &e.File,
		&e.StartLine, &e.StartCol, &e.EndLine, &e.EndCol, &e.Doc, &e.Detail, &e.SignatureHash)
	if err != nil {
		return nil, err
	}
	if owner.Valid {
		e.OwnerID = &owner.Int64
	}
	return &e, nil
}

func (s *Store) queryEntities(query string, args ...any) ([]*Entity, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()
	var out []*Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// EntityByID returns the entity with the given ID, or nil if absent.
func (s *Store) EntityByID(id int64) (*Entity, error) {
	e, err := scanEntity(s.db.QueryRow("SELECT "+entityColumns+" FROM entities WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("entity by id: %w", err)
	}
	return e, nil
}

// EntitiesByQualifiedName returns every entity whose qualified name is
// name. Overloads and a template with its primary share a name.
func (s *Store) EntitiesByQualifiedName(name string) ([]*Entity, error) {
	return s.queryEntities("SELECT "+entityColumns+" FROM entities WHERE qualified_name = ? ORDER BY id", name)
}

// EntitiesByKind returns every entity of the given kind.
func (s *Store) EntitiesByKind(kind string) ([]*Entity, error) {
	return s.queryEntities("SELECT "+entityColumns+" FROM entities WHERE kind = ? ORDER BY id", kind)
}

// ChildrenOf returns the listed members of owner in declaration order.
func (s *Store) ChildrenOf(owner int64) ([]*Entity, error) {
	return s.queryEntities("SELECT "+entityColumns+" FROM entities WHERE owner_id = ? AND ordinal >= 0 ORDER BY ordinal", owner)
}

// AttributesOf returns an entity's attributes in source order.
func (s *Store) AttributesOf(entityID int64) ([]*Attribute, error) {
	rows, err := s.db.Query(
		"SELECT id, entity_id, ordinal, namespace, name, arguments FROM attributes WHERE entity_id = ? ORDER BY ordinal",
		entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("attributes of: %w", err)
	}
	defer rows.Close()
	var out []*Attribute
	for rows.Next() {
		var a Attribute
		var args sql.NullString
		if err := rows.Scan(&a.ID, &a.EntityID, &a.Ordinal, &a.Namespace, &a.Name, &args); err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		a.Arguments = unmarshalArguments(args)
		out = append(out, &a)
	}
	return out, rows.Err()
}

// DirectivesOf returns an entity's directives in source order.
func (s *Store) DirectivesOf(entityID int64) ([]*Directive, error) {
	rows, err := s.db.Query(
		"SELECT id, entity_id, ordinal, name, value, has_value, known FROM directives WHERE entity_id = ? ORDER BY ordinal",
		entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("directives of: %w", err)
	}
	defer rows.Close()
	var out []*Directive
	for rows.Next() {
		var d Directive
		if err := rows.Scan(&d.ID, &d.EntityID, &d.Ordinal, &d.Name, &d.Value, &d.HasValue, &d.Known); err != nil {
			return nil, fmt.Errorf("scan directive: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// EntitiesWithDirective returns the IDs of entities carrying the named
// directive.
func (s *Store) EntitiesWithDirective(name string) ([]int64, error) {
	rows, err := s.db.Query("SELECT DISTINCT entity_id FROM directives WHERE name = ? ORDER BY entity_id", name)
	if err != nil {
		return nil, fmt.Errorf("entities with directive: %w", err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan entity id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// TypeMembersOf returns the data members of a class in declaration order.
func (s *Store) TypeMembersOf(entityID int64) ([]*TypeMember, error) {
	rows, err := s.db.Query(
		`SELECT id, entity_id, member_id, ordinal, name, type_expr, access, type_entity_id
		 FROM type_members WHERE entity_id = ? ORDER BY ordinal`,
		entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("type members of: %w", err)
	}
	defer rows.Close()
	var out []*TypeMember
	for rows.Next() {
		var tm TypeMember
		var typeEntity sql.NullInt64
		if err := rows.Scan(&tm.ID, &tm.EntityID, &tm.MemberID, &tm.Ordinal, &tm.Name, &tm.TypeExpr, &tm.Access, &typeEntity); err != nil {
			return nil, fmt.Errorf("scan type member: %w", err)
		}
		if typeEntity.Valid {
			tm.TypeEntityID = &typeEntity.Int64
		}
		out = append(out, &tm)
	}
	return out, rows.Err()
}

// FunctionParamsOf returns a function's parameters in order.
func (s *Store) FunctionParamsOf(entityID int64) ([]*FunctionParam, error) {
	rows, err := s.db.Query(
		`SELECT id, entity_id, ordinal, name, type_expr, default_value
		 FROM function_parameters WHERE entity_id = ? ORDER BY ordinal`,
		entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("function params of: %w", err)
	}
	defer rows.Close()
	var out []*FunctionParam
	for rows.Next() {
		var fp FunctionParam
		if err := rows.Scan(&fp.ID, &fp.EntityID, &fp.Ordinal, &fp.Name, &fp.TypeExpr, &fp.Default); err != nil {
			return nil, fmt.Errorf("scan function param: %w", err)
		}
		out = append(out, &fp)
	}
	return out, rows.Err()
}

// TemplateParamsOf returns a template's parameters in order.
func (s *Store) TemplateParamsOf(entityID int64) ([]*TemplateParam, error) {
	rows, err := s.db.Query(
		`SELECT id, entity_id, ordinal, name, param_kind, specifier, type_expr, default_value, variadic
		 FROM template_parameters WHERE entity_id = ? ORDER BY ordinal`,
		entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("template params of: %w", err)
	}
	defer rows.Close()
	var out []*TemplateParam
	for rows.Next() {
		var tp TemplateParam
		if err := rows.Scan(&tp.ID, &tp.EntityID, &tp.Ordinal, &tp.Name, &tp.ParamKind, &tp.Specifier, &tp.TypeExpr, &tp.Default, &tp.Variadic); err != nil {
			return nil, fmt.Errorf("scan template param: %w", err)
		}
		out = append(out, &tp)
	}
	return out, rows.Err()
}

// SpecializationsOf returns a template's specializations in declaration
// order.
func (s *Store) SpecializationsOf(templateID int64) ([]*Specialization, error) {
	rows, err := s.db.Query(
		`SELECT id, template_id, ordinal, pattern, explicit, body_id
		 FROM specializations WHERE template_id = ? ORDER BY ordinal`,
		templateID,
	)
	if err != nil {
		return nil, fmt.Errorf("specializations of: %w", err)
	}
	defer rows.Close()
	var out []*Specialization
	for rows.Next() {
		var sp Specialization
		if err := rows.Scan(&sp.ID, &sp.TemplateID, &sp.Ordinal, &sp.Pattern, &sp.Explicit, &sp.BodyID); err != nil {
			return nil, fmt.Errorf("scan specialization: %w", err)
		}
		out = append(out, &sp)
	}
	return out, rows.Err()
}

// InstancesOf returns the recorded instantiations of a template.
func (s *Store) InstancesOf(templateID int64) ([]*Instance, error) {
	rows, err := s.db.Query(
		`SELECT id, template_id, args, status, body_id, specialization
		 FROM instances WHERE template_id = ? ORDER BY id`,
		templateID,
	)
	if err != nil {
		return nil, fmt.Errorf("instances of: %w", err)
	}
	defer rows.Close()
	var out []*Instance
	for rows.Next() {
		var in Instance
		var body sql.NullInt64
		if err := rows.Scan(&in.ID, &in.TemplateID, &in.Args, &in.Status, &body, &in.Specialization); err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		if body.Valid {
			in.BodyID = &body.Int64
		}
		out = append(out, &in)
	}
	return out, rows.Err()
}

// ReferencesByStatus returns the references with the given resolution
// status.
func (s *Store) ReferencesByStatus(status string) ([]*Reference, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, scope_id, name, context, status, target_id, declared_id
		 FROM references_ WHERE status = ? ORDER BY id`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("references by status: %w", err)
	}
	defer rows.Close()
	var out []*Reference
	for rows.Next() {
		var r Reference
		var target, declared sql.NullInt64
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.ScopeID, &r.Name, &r.Context, &r.Status, &target, &declared); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		if target.Valid {
			r.TargetID = &target.Int64
		}
		if declared.Valid {
			r.DeclaredID = &declared.Int64
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Diagnostics returns every stored diagnostic in model order.
func (s *Store) Diagnostics() ([]*Diagnostic, error) {
	rows, err := s.db.Query("SELECT id, code, message, entity_id, file, line, col FROM diagnostics ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	defer rows.Close()
	var out []*Diagnostic
	for rows.Next() {
		var d Diagnostic
		var entity sql.NullInt64
		if err := rows.Scan(&d.ID, &d.Code, &d.Message, &entity, &d.File, &d.Line, &d.Col); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		if entity.Valid {
			d.EntityID = &entity.Int64
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// Files returns the exported units in link order.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT id, path, ordinal, preamble FROM files ORDER BY ordinal")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var out []*File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.Path, &f.Ordinal, &f.Preamble); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

// CountRows returns the number of rows in a model table.
func (s *Store) CountRows(table string) (int, error) {
	known := false
	for _, t := range Tables {
		known = known || t == table
	}
	if !known {
		return 0, fmt.Errorf("count rows: unknown table %q", table)
	}
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}
