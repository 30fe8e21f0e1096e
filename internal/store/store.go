// Package store persists sealed devana models in SQLite so that tools can
// query a model without rebuilding it.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for exported models.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Tables lists the model tables in dependency order.
var Tables = []string{
	"files", "entities", "attributes", "directives", "type_members",
	"function_parameters", "template_parameters", "references_",
	"specializations", "instances", "diagnostics", "metadata",
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  ordinal         INTEGER NOT NULL,
  preamble        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS entities (
  id              INTEGER PRIMARY KEY,
  kind            TEXT NOT NULL,
  name            TEXT NOT NULL,
  qualified_name  TEXT NOT NULL,
  owner_id        INTEGER REFERENCES entities(id) DEFERRABLE INITIALLY DEFERRED,
  ordinal         INTEGER NOT NULL,
  file            TEXT NOT NULL DEFAULT '',
  start_line      INTEGER NOT NULL DEFAULT 0,
  start_col       INTEGER NOT NULL DEFAULT 0,
  end_line        INTEGER NOT NULL DEFAULT 0,
  end_col         INTEGER NOT NULL DEFAULT 0,
  doc             TEXT NOT NULL DEFAULT '',
  detail          TEXT NOT NULL DEFAULT '',
  signature_hash  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_entities_qualified ON entities(qualified_name);
CREATE INDEX IF NOT EXISTS idx_entities_owner ON entities(owner_id, ordinal);
CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind);

CREATE TABLE IF NOT EXISTS attributes (
  id              INTEGER PRIMARY KEY,
  entity_id       INTEGER NOT NULL REFERENCES entities(id) DEFERRABLE INITIALLY DEFERRED,
  ordinal         INTEGER NOT NULL,
  namespace       TEXT NOT NULL DEFAULT '',
  name            TEXT NOT NULL,
  arguments       TEXT
);
CREATE INDEX IF NOT EXISTS idx_attributes_entity ON attributes(entity_id);

CREATE TABLE IF NOT EXISTS directives (
  id              INTEGER PRIMARY KEY,
  entity_id       INTEGER NOT NULL REFERENCES entities(id) DEFERRABLE INITIALLY DEFERRED,
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  value           TEXT NOT NULL DEFAULT '',
  has_value       BOOLEAN NOT NULL DEFAULT 0,
  known           BOOLEAN NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_directives_entity ON directives(entity_id);
CREATE INDEX IF NOT EXISTS idx_directives_name ON directives(name);

CREATE TABLE IF NOT EXISTS type_members (
  id              INTEGER PRIMARY KEY,
  entity_id       INTEGER NOT NULL REFERENCES entities(id) DEFERRABLE INITIALLY DEFERRED,
  member_id       INTEGER NOT NULL REFERENCES entities(id) DEFERRABLE INITIALLY DEFERRED,
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  type_expr       TEXT NOT NULL DEFAULT '',
  access          TEXT NOT NULL DEFAULT '',
  type_entity_id  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_type_members_entity ON type_members(entity_id, ordinal);

CREATE TABLE IF NOT EXISTS function_parameters (
  id              INTEGER PRIMARY KEY,
  entity_id       INTEGER NOT NULL REFERENCES entities(id) DEFERRABLE INITIALLY DEFERRED,
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL DEFAULT '',
  type_expr       TEXT NOT NULL DEFAULT '',
  default_value   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_function_parameters_entity ON function_parameters(entity_id, ordinal);

CREATE TABLE IF NOT EXISTS template_parameters (
  id              INTEGER PRIMARY KEY,
  entity_id       INTEGER NOT NULL REFERENCES entities(id) DEFERRABLE INITIALLY DEFERRED,
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL DEFAULT '',
  param_kind      TEXT NOT NULL,
  specifier       TEXT NOT NULL DEFAULT '',
  type_expr       TEXT NOT NULL DEFAULT '',
  default_value   TEXT NOT NULL DEFAULT '',
  variadic        BOOLEAN NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_template_parameters_entity ON template_parameters(entity_id, ordinal);

CREATE TABLE IF NOT EXISTS references_ (
  id              INTEGER PRIMARY KEY,
  owner_id        INTEGER NOT NULL,
  scope_id        INTEGER NOT NULL,
  name            TEXT NOT NULL,
  context         TEXT NOT NULL,
  status          TEXT NOT NULL,
  target_id       INTEGER,
  declared_id     INTEGER
);
CREATE INDEX IF NOT EXISTS idx_references_owner ON references_(owner_id);
CREATE INDEX IF NOT EXISTS idx_references_target ON references_(target_id);
CREATE INDEX IF NOT EXISTS idx_references_status ON references_(status);

CREATE TABLE IF NOT EXISTS specializations (
  id              INTEGER PRIMARY KEY,
  template_id     INTEGER NOT NULL REFERENCES entities(id) DEFERRABLE INITIALLY DEFERRED,
  ordinal         INTEGER NOT NULL,
  pattern         TEXT NOT NULL,
  explicit        BOOLEAN NOT NULL DEFAULT 0,
  body_id         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_specializations_template ON specializations(template_id, ordinal);

CREATE TABLE IF NOT EXISTS instances (
  id              INTEGER PRIMARY KEY,
  template_id     INTEGER NOT NULL,
  args            TEXT NOT NULL,
  status          TEXT NOT NULL,
  body_id         INTEGER,
  specialization  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_instances_template ON instances(template_id);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  code            TEXT NOT NULL,
  message         TEXT NOT NULL,
  entity_id       INTEGER,
  file            TEXT NOT NULL DEFAULT '',
  line            INTEGER NOT NULL DEFAULT 0,
  col             INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_diagnostics_code ON diagnostics(code);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);
`

// Clear deletes every exported row so that a new model can be written.
func (s *Store) Clear() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("clear: begin: %w", err)
	}
	defer tx.Rollback()
	if err := clearTx(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func clearTx(tx *sql.Tx) error {
	for i := len(Tables) - 1; i >= 0; i-- {
		if _, err := tx.Exec("DELETE FROM " + Tables[i]); err != nil {
			return fmt.Errorf("clear %s: %w", Tables[i], err)
		}
	}
	return nil
}

// SetMetadata stores a key/value pair, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	return nil
}

// GetMetadata returns the value stored under key, or "" if absent.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata: %w", err)
	}
	return value, nil
}
