package core

import "fmt"

// TabularResult is a decoded result set. Every row holds exactly one cell
// per column, in column order.
type TabularResult struct {
	Columns []ColumnMeta
	Rows    [][]any
}

// ColumnNames returns the column names in order.
func (r *TabularResult) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column, or -1.
func (r *TabularResult) ColumnIndex(name string) int {
	for i, c := range r.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Validate checks the row shape invariant.
func (r *TabularResult) Validate() error {
	for i, row := range r.Rows {
		if len(row) != len(r.Columns) {
			return fmt.Errorf("row %d has %d cells, expected %d", i, len(row), len(r.Columns))
		}
	}
	return nil
}

// FirstColumn returns the first cell of every row. Used for single-column
// metadata queries such as SHOW TABLES.
func (r *TabularResult) FirstColumn() []any {
	out := make([]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		if len(row) > 0 {
			out = append(out, row[0])
		}
	}
	return out
}

// Len returns the number of rows.
func (r *TabularResult) Len() int {
	return len(r.Rows)
}
