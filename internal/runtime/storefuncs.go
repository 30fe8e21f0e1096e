package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/devana/internal/store"
)

// Store host functions read an exported model database. Scripts cannot
// receive Go struct pointers usefully, so rows are converted to maps.

// makeDBQueryFn creates "db_query", a read-only SQL escape hatch.
//
// db_query(sql, args...) → []map[string]any
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		// Only allow SELECT statements.
		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, fmt.Sprintf("%v", arg))
			}
		}

		rows, queryErr := s.DB().QueryContext(ctx, sqlStr, queryArgs...)
		if queryErr != nil {
			return object.Errorf("db_query: %v", queryErr)
		}
		defer rows.Close()

		cols, colErr := rows.Columns()
		if colErr != nil {
			return object.Errorf("db_query: columns: %v", colErr)
		}

		var results []object.Object
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		return list(results)
	})
}

// makeDBEntitiesFn creates "db_entities".
//
// db_entities(qualified_name) → []map[string]any
func makeDBEntitiesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_entities", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("db_entities", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_entities: %v", err)
		}
		es, err := s.EntitiesByQualifiedName(name)
		if err != nil {
			return object.Errorf("db_entities: %v", err)
		}
		return storeEntitiesToList(es)
	})
}

// makeDBChildrenFn creates "db_children".
//
// db_children(id) → []map[string]any
func makeDBChildrenFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_children", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("db_children", 1, len(args))
		}
		id, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("db_children: %v", err)
		}
		es, err := s.ChildrenOf(id)
		if err != nil {
			return object.Errorf("db_children: %v", err)
		}
		return storeEntitiesToList(es)
	})
}

// makeDBWithDirectiveFn creates "db_with_directive".
//
// db_with_directive(name) → []int
func makeDBWithDirectiveFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_with_directive", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("db_with_directive", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_with_directive: %v", err)
		}
		ids, err := s.EntitiesWithDirective(name)
		if err != nil {
			return object.Errorf("db_with_directive: %v", err)
		}
		out := make([]object.Object, len(ids))
		for i, id := range ids {
			out[i] = object.NewInt(id)
		}
		return list(out)
	})
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

// sqlValueToObject converts a database value to a Risor object.
func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

// storeEntitiesToList converts exported entity rows to a Risor list of maps.
func storeEntitiesToList(es []*store.Entity) object.Object {
	var results []object.Object
	for _, e := range es {
		m := map[string]object.Object{
			"id":             object.NewInt(e.ID),
			"kind":           object.NewString(e.Kind),
			"name":           object.NewString(e.Name),
			"qualified_name": object.NewString(e.QualifiedName),
			"file":           object.NewString(e.File),
			"line":           object.NewInt(int64(e.StartLine)),
			"col":            object.NewInt(int64(e.StartCol)),
			"doc":            object.NewString(e.Doc),
			"detail":         object.NewString(e.Detail),
			"signature_hash": object.NewString(e.SignatureHash),
		}
		if e.OwnerID != nil {
			m["owner"] = object.NewInt(*e.OwnerID)
		}
		results = append(results, object.NewMap(m))
	}
	return list(results)
}
