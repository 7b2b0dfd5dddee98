// Package engine executes a validated ir.IRDoc against bound tables,
// following the single-threaded synchronous row-iteration model spec.md §5
// requires. Step dispatch mirrors database/database.go's RunDDLs: iterate in
// declared order, abort the whole run on the first operator failure.
package engine

import "github.com/sans-lang/sans/internal/value"

// Table is an in-memory column-oriented-by-name, row-major table. Column
// order is significant (it drives CSV/XPT output order).
type Table struct {
	Columns []string
	Rows    [][]value.Value
}

func NewTable(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

func (t *Table) ColIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (t *Table) Clone() *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...), Rows: make([][]value.Value, len(t.Rows))}
	for i, r := range t.Rows {
		out.Rows[i] = append([]value.Value(nil), r...)
	}
	return out
}

// RowMap returns row i as a name-keyed lookup, used by the expression
// evaluator.
func (t *Table) RowMap(i int) map[string]value.Value {
	m := make(map[string]value.Value, len(t.Columns))
	row := t.Rows[i]
	for j, c := range t.Columns {
		m[c] = row[j]
	}
	return m
}
