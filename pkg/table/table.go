// Package table provides the column-oriented 2-D structure underlying
// battery datasets. A Table holds uniquely-named, ordered columns that
// share a row count; row order is significant and preserved across
// serialization round-trips.
package table

import (
	"fmt"
	"sort"
)

// Table is a column-oriented 2-D structure with ordered, uniquely
// named columns sharing a row count.
type Table struct {
	cols  []Column
	index map[string]int
}

// New creates an empty table
func New() *Table {
	return &Table{index: make(map[string]int)}
}

// FromColumns creates a table from the given columns, preserving order.
// All columns must have the same length and unique names.
func FromColumns(cols ...Column) (*Table, error) {
	t := New()
	for _, c := range cols {
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// AddColumn appends a column to the table. The column must have a
// unique name and, if the table already has columns, the same length.
func (t *Table) AddColumn(c Column) error {
	if _, exists := t.index[c.Name()]; exists {
		return fmt.Errorf("column %q already exists", c.Name())
	}
	if len(t.cols) > 0 && c.Len() != t.NumRows() {
		return fmt.Errorf("column %q has %d rows, table has %d", c.Name(), c.Len(), t.NumRows())
	}
	t.index[c.Name()] = len(t.cols)
	t.cols = append(t.cols, c)
	return nil
}

// SetColumn replaces the column with the same name, or appends the
// column if no such column exists. Length rules match AddColumn.
func (t *Table) SetColumn(c Column) error {
	i, exists := t.index[c.Name()]
	if !exists {
		return t.AddColumn(c)
	}
	if c.Len() != t.NumRows() {
		return fmt.Errorf("column %q has %d rows, table has %d", c.Name(), c.Len(), t.NumRows())
	}
	t.cols[i] = c
	return nil
}

// Column retrieves a column by name
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// ColumnNames returns all column names in table order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name()
	}
	return names
}

// Columns returns the columns in table order
func (t *Table) Columns() []Column {
	return t.cols
}

// NumColumns returns the number of columns
func (t *Table) NumColumns() int { return len(t.cols) }

// NumRows returns the shared row count
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// Row assembles the values of one row as a map keyed by column name
func (t *Table) Row(i int) (map[string]interface{}, error) {
	if i < 0 || i >= t.NumRows() {
		return nil, fmt.Errorf("row index %d out of range [0, %d)", i, t.NumRows())
	}
	row := make(map[string]interface{}, len(t.cols))
	for _, c := range t.cols {
		row[c.Name()] = c.Value(i)
	}
	return row, nil
}

// AppendRow appends one value per column. Every existing column must
// receive a value; unknown keys create new columns only on an empty
// table, where the type is inferred from the value.
func (t *Table) AppendRow(row map[string]interface{}) error {
	if len(t.cols) == 0 {
		// Establish columns in a deterministic order
		names := make([]string, 0, len(row))
		for name := range row {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			c, err := InferColumn(name, row[name])
			if err != nil {
				return err
			}
			if err := t.AddColumn(c); err != nil {
				return err
			}
		}
	}
	if len(row) != len(t.cols) {
		return fmt.Errorf("row has %d values, table has %d columns", len(row), len(t.cols))
	}
	// Check every value before mutating any column so a rejected row
	// never leaves columns with uneven lengths
	for _, c := range t.cols {
		v, ok := row[c.Name()]
		if !ok {
			return fmt.Errorf("row is missing a value for column %q", c.Name())
		}
		if err := c.Check(v); err != nil {
			return err
		}
	}
	for _, c := range t.cols {
		if err := c.Append(row[c.Name()]); err != nil {
			return err
		}
	}
	return nil
}

// Slice returns a copy of the rows in [start, end) with the same columns
func (t *Table) Slice(start, end int) (*Table, error) {
	if start < 0 || end > t.NumRows() || start > end {
		return nil, fmt.Errorf("slice [%d, %d) out of range [0, %d)", start, end, t.NumRows())
	}
	out := New()
	for _, c := range t.cols {
		if err := out.AddColumn(c.Slice(start, end)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Equal reports whether the other table has identical column order,
// names, types and exact values
func (t *Table) Equal(o *Table) bool {
	if o == nil || len(t.cols) != len(o.cols) {
		return false
	}
	for i, c := range t.cols {
		if !c.Equal(o.cols[i]) {
			return false
		}
	}
	return true
}
