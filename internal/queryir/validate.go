package queryir

import (
	"errors"
	"fmt"
)

// Schema lists the readable columns of each journal table.
var Schema = map[Table]map[string]bool{
	TableRuns: {
		"id": true, "seq": true, "pipeline": true, "pipeline_hash": true,
		"release_name": true, "from_version": true, "to_version": true,
		"input": true, "input_fingerprint": true, "output": true,
		"output_fingerprint": true, "status": true, "error": true,
		"started_at": true, "engine_version": true, "ir_version": true,
	},
	TableSteps: {
		"run_id": true, "idx": true, "unit": true, "before_fingerprint": true,
		"after_fingerprint": true, "up_len": true, "down_len": true,
	},
}

// Validate checks q against Schema. All problems are reported together.
func Validate(q Query) error {
	v := &validator{}
	v.query(q)
	return errors.Join(v.errs...)
}

type validator struct {
	errs []error
}

func (v *validator) addf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) query(q Query) {
	switch query := q.(type) {
	case nil:
		v.addf("nil query")
	case Select:
		v.selectQuery(query)
	case *Select:
		if query == nil {
			v.addf("nil query")
			return
		}
		v.selectQuery(*query)
	default:
		v.addf("unknown query type %T", q)
	}
}

func (v *validator) selectQuery(sel Select) {
	cols, ok := Schema[sel.From]
	if !ok {
		v.addf("unknown table %q", sel.From)
		return
	}
	// Explicit columns only, no SELECT *.
	if len(sel.Columns) == 0 {
		v.addf("select from %s: no columns", sel.From)
	}
	for _, c := range sel.Columns {
		if !cols[c] {
			v.addf("select from %s: unknown column %q", sel.From, c)
		}
	}
	if sel.Limit < 0 {
		v.addf("select from %s: negative limit %d", sel.From, sel.Limit)
	}
	if sel.Filter != nil {
		v.predicate(sel.From, cols, sel.Filter)
	}
}

func (v *validator) predicate(t Table, cols map[string]bool, p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.field(t, cols, pred.Field)
		v.value(pred.Field, pred.Value)
	case In:
		v.field(t, cols, pred.Field)
		for _, val := range pred.Values {
			v.value(pred.Field, val)
		}
	case And:
		for _, sub := range pred.Predicates {
			if sub == nil {
				v.addf("nil predicate in and")
				continue
			}
			v.predicate(t, cols, sub)
		}
	default:
		v.addf("unknown predicate type %T", p)
	}
}

func (v *validator) field(t Table, cols map[string]bool, name string) {
	if !cols[name] {
		v.addf("filter on %s: unknown column %q", t, name)
	}
}

func (v *validator) value(field string, val any) {
	switch val.(type) {
	case string, int, int64, bool:
	case nil:
		v.addf("column %q compared to null", field)
	case float32, float64:
		v.addf("column %q compared to float %v", field, val)
	default:
		v.addf("column %q: unsupported value type %T", field, val)
	}
}
