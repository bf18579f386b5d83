package table

import (
	"fmt"
	"math"
)

// Column is a single named, typed column of a Table.
// Concrete implementations store values in contiguous typed slices.
type Column interface {
	// Name returns the column name
	Name() string
	// Len returns the number of values stored
	Len() int
	// Value returns the value at the given row index
	Value(i int) interface{}
	// Append adds a value, converting compatible Go types
	Append(v interface{}) error
	// Check reports whether Append would accept the value, without
	// storing it
	Check(v interface{}) error
	// Slice returns a copy of the rows in [start, end)
	Slice(start, end int) Column
	// Equal reports whether the other column has the same name,
	// type and exact values in the same order
	Equal(other Column) bool
}

// Float64Column stores 64-bit floating point values
type Float64Column struct {
	name   string
	values []float64
}

// NewFloat64Column creates a float column with the given values
func NewFloat64Column(name string, values []float64) *Float64Column {
	return &Float64Column{name: name, values: values}
}

func (c *Float64Column) Name() string          { return c.name }
func (c *Float64Column) Len() int              { return len(c.values) }
func (c *Float64Column) Value(i int) interface{} { return c.values[i] }

// Values returns the backing slice. Callers must not modify it.
func (c *Float64Column) Values() []float64 { return c.values }

func (c *Float64Column) Append(v interface{}) error {
	switch x := v.(type) {
	case float64:
		c.values = append(c.values, x)
	case float32:
		c.values = append(c.values, float64(x))
	case int:
		c.values = append(c.values, float64(x))
	case int64:
		c.values = append(c.values, float64(x))
	default:
		return fmt.Errorf("column %q holds floats, got %T", c.name, v)
	}
	return nil
}

func (c *Float64Column) Check(v interface{}) error {
	switch v.(type) {
	case float64, float32, int, int64:
		return nil
	}
	return fmt.Errorf("column %q holds floats, got %T", c.name, v)
}

func (c *Float64Column) Slice(start, end int) Column {
	out := make([]float64, end-start)
	copy(out, c.values[start:end])
	return &Float64Column{name: c.name, values: out}
}

func (c *Float64Column) Equal(other Column) bool {
	o, ok := other.(*Float64Column)
	if !ok || o.name != c.name || len(o.values) != len(c.values) {
		return false
	}
	for i, v := range c.values {
		// NaN-safe exact comparison
		if v != o.values[i] && !(math.IsNaN(v) && math.IsNaN(o.values[i])) {
			return false
		}
	}
	return true
}

// Int64Column stores 64-bit integer values
type Int64Column struct {
	name   string
	values []int64
}

// NewInt64Column creates an integer column with the given values
func NewInt64Column(name string, values []int64) *Int64Column {
	return &Int64Column{name: name, values: values}
}

func (c *Int64Column) Name() string          { return c.name }
func (c *Int64Column) Len() int              { return len(c.values) }
func (c *Int64Column) Value(i int) interface{} { return c.values[i] }

// Values returns the backing slice. Callers must not modify it.
func (c *Int64Column) Values() []int64 { return c.values }

func (c *Int64Column) Append(v interface{}) error {
	switch x := v.(type) {
	case int64:
		c.values = append(c.values, x)
	case int:
		c.values = append(c.values, int64(x))
	case int32:
		c.values = append(c.values, int64(x))
	default:
		return fmt.Errorf("column %q holds integers, got %T", c.name, v)
	}
	return nil
}

func (c *Int64Column) Check(v interface{}) error {
	switch v.(type) {
	case int64, int, int32:
		return nil
	}
	return fmt.Errorf("column %q holds integers, got %T", c.name, v)
}

func (c *Int64Column) Slice(start, end int) Column {
	out := make([]int64, end-start)
	copy(out, c.values[start:end])
	return &Int64Column{name: c.name, values: out}
}

func (c *Int64Column) Equal(other Column) bool {
	o, ok := other.(*Int64Column)
	if !ok || o.name != c.name || len(o.values) != len(c.values) {
		return false
	}
	for i, v := range c.values {
		if v != o.values[i] {
			return false
		}
	}
	return true
}

// StringColumn stores string values
type StringColumn struct {
	name   string
	values []string
}

// NewStringColumn creates a string column with the given values
func NewStringColumn(name string, values []string) *StringColumn {
	return &StringColumn{name: name, values: values}
}

func (c *StringColumn) Name() string          { return c.name }
func (c *StringColumn) Len() int              { return len(c.values) }
func (c *StringColumn) Value(i int) interface{} { return c.values[i] }

// Values returns the backing slice. Callers must not modify it.
func (c *StringColumn) Values() []string { return c.values }

func (c *StringColumn) Append(v interface{}) error {
	x, ok := v.(string)
	if !ok {
		return fmt.Errorf("column %q holds strings, got %T", c.name, v)
	}
	c.values = append(c.values, x)
	return nil
}

func (c *StringColumn) Check(v interface{}) error {
	if _, ok := v.(string); !ok {
		return fmt.Errorf("column %q holds strings, got %T", c.name, v)
	}
	return nil
}

func (c *StringColumn) Slice(start, end int) Column {
	out := make([]string, end-start)
	copy(out, c.values[start:end])
	return &StringColumn{name: c.name, values: out}
}

func (c *StringColumn) Equal(other Column) bool {
	o, ok := other.(*StringColumn)
	if !ok || o.name != c.name || len(o.values) != len(c.values) {
		return false
	}
	for i, v := range c.values {
		if v != o.values[i] {
			return false
		}
	}
	return true
}

// BoolColumn stores boolean values
type BoolColumn struct {
	name   string
	values []bool
}

// NewBoolColumn creates a boolean column with the given values
func NewBoolColumn(name string, values []bool) *BoolColumn {
	return &BoolColumn{name: name, values: values}
}

func (c *BoolColumn) Name() string          { return c.name }
func (c *BoolColumn) Len() int              { return len(c.values) }
func (c *BoolColumn) Value(i int) interface{} { return c.values[i] }

// Values returns the backing slice. Callers must not modify it.
func (c *BoolColumn) Values() []bool { return c.values }

func (c *BoolColumn) Append(v interface{}) error {
	x, ok := v.(bool)
	if !ok {
		return fmt.Errorf("column %q holds booleans, got %T", c.name, v)
	}
	c.values = append(c.values, x)
	return nil
}

func (c *BoolColumn) Check(v interface{}) error {
	if _, ok := v.(bool); !ok {
		return fmt.Errorf("column %q holds booleans, got %T", c.name, v)
	}
	return nil
}

func (c *BoolColumn) Slice(start, end int) Column {
	out := make([]bool, end-start)
	copy(out, c.values[start:end])
	return &BoolColumn{name: c.name, values: out}
}

func (c *BoolColumn) Equal(other Column) bool {
	o, ok := other.(*BoolColumn)
	if !ok || o.name != c.name || len(o.values) != len(c.values) {
		return false
	}
	for i, v := range c.values {
		if v != o.values[i] {
			return false
		}
	}
	return true
}

// FloatArrayColumn stores fixed-length numeric arrays, one per row.
// The expected length is set by the first appended row; rows of a
// different length are stored as-is and flagged during validation.
type FloatArrayColumn struct {
	name   string
	values [][]float64
}

// NewFloatArrayColumn creates an array column with the given values
func NewFloatArrayColumn(name string, values [][]float64) *FloatArrayColumn {
	return &FloatArrayColumn{name: name, values: values}
}

func (c *FloatArrayColumn) Name() string          { return c.name }
func (c *FloatArrayColumn) Len() int              { return len(c.values) }
func (c *FloatArrayColumn) Value(i int) interface{} { return c.values[i] }

// Values returns the backing slice. Callers must not modify it.
func (c *FloatArrayColumn) Values() [][]float64 { return c.values }

// Width returns the length of the first row's array, or 0 if empty
func (c *FloatArrayColumn) Width() int {
	if len(c.values) == 0 {
		return 0
	}
	return len(c.values[0])
}

// Uniform reports whether every row has the same array length
func (c *FloatArrayColumn) Uniform() bool {
	w := c.Width()
	for _, row := range c.values {
		if len(row) != w {
			return false
		}
	}
	return true
}

func (c *FloatArrayColumn) Append(v interface{}) error {
	switch x := v.(type) {
	case []float64:
		row := make([]float64, len(x))
		copy(row, x)
		c.values = append(c.values, row)
	default:
		return fmt.Errorf("column %q holds float arrays, got %T", c.name, v)
	}
	return nil
}

func (c *FloatArrayColumn) Check(v interface{}) error {
	if _, ok := v.([]float64); !ok {
		return fmt.Errorf("column %q holds float arrays, got %T", c.name, v)
	}
	return nil
}

func (c *FloatArrayColumn) Slice(start, end int) Column {
	out := make([][]float64, end-start)
	for i := range out {
		row := make([]float64, len(c.values[start+i]))
		copy(row, c.values[start+i])
		out[i] = row
	}
	return &FloatArrayColumn{name: c.name, values: out}
}

func (c *FloatArrayColumn) Equal(other Column) bool {
	o, ok := other.(*FloatArrayColumn)
	if !ok || o.name != c.name || len(o.values) != len(c.values) {
		return false
	}
	for i, row := range c.values {
		if len(row) != len(o.values[i]) {
			return false
		}
		for j, v := range row {
			if v != o.values[i][j] && !(math.IsNaN(v) && math.IsNaN(o.values[i][j])) {
				return false
			}
		}
	}
	return true
}

// InferColumn creates an empty column whose type matches the sample value
func InferColumn(name string, sample interface{}) (Column, error) {
	switch sample.(type) {
	case float64, float32:
		return &Float64Column{name: name}, nil
	case int, int32, int64:
		return &Int64Column{name: name}, nil
	case string:
		return &StringColumn{name: name}, nil
	case bool:
		return &BoolColumn{name: name}, nil
	case []float64:
		return &FloatArrayColumn{name: name}, nil
	default:
		return nil, fmt.Errorf("cannot infer column type for %q from %T", name, sample)
	}
}
