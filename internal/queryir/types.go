package queryir

// Query is a sealed interface over the query forms of this package.
type Query interface {
	queryNode()
}

// Predicate is a sealed interface over filter conditions.
type Predicate interface {
	predicateNode()
}

// Table names a journal table.
type Table string

const (
	TableRuns  Table = "runs"
	TableSteps Table = "steps"
)

// Select reads Columns from a table, keeping rows that satisfy Filter.
//
// Rows always come back in the table's journal order. A positive Limit
// keeps only the last Limit rows of that order, still returned oldest
// first.
type Select struct {
	From    Table
	Columns []string
	Filter  Predicate // nil keeps every row
	Limit   int
}

func (Select) queryNode() {}

// Equals holds when Field equals Value. Value must be a string, int, int64
// or bool.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// In holds when Field equals any of Values. An empty In matches nothing.
type In struct {
	Field  string
	Values []any
}

func (In) predicateNode() {}

// And holds when every predicate holds. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Where joins the non-nil predicates with And. It returns nil when none
// remain and the single predicate when only one does.
func Where(preds ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}
