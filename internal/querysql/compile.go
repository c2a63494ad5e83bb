// Package querysql compiles queryir queries to parameterized SQLite SQL.
package querysql

import (
	"fmt"
	"strings"

	"github.com/Frost/edeliver/internal/queryir"
)

// orderKeys is the journal order of each table. Text keys use COLLATE BINARY
// so ordering does not depend on the connection's collation.
var orderKeys = map[queryir.Table][]string{
	queryir.TableRuns:  {"seq", "id COLLATE BINARY"},
	queryir.TableSteps: {"run_id COLLATE BINARY", "idx"},
}

// Compile validates q and converts it to SQL with ? placeholders.
// Values are returned as params, never interpolated. Every query carries an
// ORDER BY over the table's journal order.
func Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}

	switch query := q.(type) {
	case queryir.Select:
		return compileSelect(query)
	case *queryir.Select:
		return compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func compileSelect(q queryir.Select) (string, []any, error) {
	table := string(q.From)
	cols := strings.Join(q.Columns, ", ")

	var where string
	var params []any
	if q.Filter != nil {
		cond, p, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		where = " WHERE " + cond
		params = p
	}

	asc := orderBy(q.From, "ASC")
	if q.Limit == 0 {
		return fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s", cols, table, where, asc), params, nil
	}

	// Keep the newest Limit rows, then return them oldest first.
	sql := fmt.Sprintf(
		"SELECT %s FROM %s WHERE rowid IN (SELECT rowid FROM %s%s ORDER BY %s LIMIT ?) ORDER BY %s",
		cols, table, table, where, orderBy(q.From, "DESC"), asc)
	return sql, append(params, q.Limit), nil
}

func orderBy(t queryir.Table, dir string) string {
	keys := orderKeys[t]
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + dir
	}
	return strings.Join(parts, ", ")
}

func compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return pred.Field + " = ?", []any{param(pred.Value)}, nil
	case queryir.In:
		if len(pred.Values) == 0 {
			return "0 = 1", nil, nil
		}
		marks := make([]string, len(pred.Values))
		params := make([]any, len(pred.Values))
		for i, v := range pred.Values {
			marks[i] = "?"
			params[i] = param(v)
		}
		return fmt.Sprintf("%s IN (%s)", pred.Field, strings.Join(marks, ", ")), params, nil
	case queryir.And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, sub := range pred.Predicates {
			s, ps, err := compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			if _, nested := sub.(queryir.And); nested {
				s = "(" + s + ")"
			}
			parts = append(parts, s)
			params = append(params, ps...)
		}
		return strings.Join(parts, " AND "), params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// param widens int so the driver always sees int64.
func param(v any) any {
	if i, ok := v.(int); ok {
		return int64(i)
	}
	return v
}
