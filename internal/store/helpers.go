package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// marshalArguments converts attribute arguments to JSON text. Nil stays
// NULL so that "name" and "name()" remain distinguishable.
func marshalArguments(args []string) sql.NullString {
	if args == nil {
		return sql.NullString{}
	}
	b, _ := json.Marshal(args)
	return sql.NullString{String: string(b), Valid: true}
}

// unmarshalArguments converts stored JSON text back to arguments.
func unmarshalArguments(s sql.NullString) []string {
	if !s.Valid {
		return nil
	}
	args := []string{}
	_ = json.Unmarshal([]byte(s.String), &args)
	return args
}

// lastID returns the row ID of an insert.
func lastID(res sql.Result, err error, what string) (int64, error) {
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", what, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}
