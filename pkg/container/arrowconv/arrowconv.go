// Package arrowconv converts between battkit tables and Arrow data.
// Both container codecs build on it: the Arrow IPC codec streams the
// records directly, the Parquet codec hands them to pqarrow.
//
// Type mapping is fixed and lossless: floats and times are float64,
// integers int64, strings utf8, booleans bool, and per-row float
// arrays variable-length lists of float64. Lists are used instead of
// fixed-size lists so the mapping survives a Parquet round-trip.
package arrowconv

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/battkit/battkit/pkg/errors"
	"github.com/battkit/battkit/pkg/schema"
	"github.com/battkit/battkit/pkg/table"
)

// TypeForColumn maps a runtime column to its Arrow type
func TypeForColumn(col table.Column) (arrow.DataType, error) {
	switch col.(type) {
	case *table.Float64Column:
		return arrow.PrimitiveTypes.Float64, nil
	case *table.Int64Column:
		return arrow.PrimitiveTypes.Int64, nil
	case *table.StringColumn:
		return arrow.BinaryTypes.String, nil
	case *table.BoolColumn:
		return arrow.FixedWidthTypes.Boolean, nil
	case *table.FloatArrayColumn:
		return arrow.ListOf(arrow.PrimitiveTypes.Float64), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeInternal, "", "unsupported column type %T", col)
	}
}

// TypeForDataType maps a declared schema type to its Arrow type
func TypeForDataType(dt schema.DataType) (arrow.DataType, error) {
	switch dt {
	case schema.Float:
		return arrow.PrimitiveTypes.Float64, nil
	case schema.Integer:
		return arrow.PrimitiveTypes.Int64, nil
	case schema.String:
		return arrow.BinaryTypes.String, nil
	case schema.Boolean:
		return arrow.FixedWidthTypes.Boolean, nil
	case schema.FloatArray:
		return arrow.ListOf(arrow.PrimitiveTypes.Float64), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeSchema, errors.CodeTypeMismatch,
			"unsupported data type %q", dt)
	}
}

// SchemaFields builds Arrow fields for a table, preserving its column
// order. Types come from the runtime columns so undocumented columns
// serialize too.
func SchemaFields(t *table.Table) ([]arrow.Field, error) {
	fields := make([]arrow.Field, 0, t.NumColumns())
	for _, col := range t.Columns() {
		dt, err := TypeForColumn(col)
		if err != nil {
			return nil, err
		}
		fields = append(fields, arrow.Field{Name: col.Name(), Type: dt})
	}
	return fields, nil
}

// BuildRecord converts the rows [start, end) of a table into one Arrow
// record batch matching the given schema.
func BuildRecord(alloc memory.Allocator, aschema *arrow.Schema, t *table.Table, start, end int) (arrow.Record, error) {
	rb := array.NewRecordBuilder(alloc, aschema)
	defer rb.Release()

	for i, col := range t.Columns() {
		if err := appendColumnRange(rb.Field(i), col, start, end); err != nil {
			return nil, err
		}
	}
	return rb.NewRecord(), nil
}

func appendColumnRange(b array.Builder, col table.Column, start, end int) error {
	switch c := col.(type) {
	case *table.Float64Column:
		b.(*array.Float64Builder).AppendValues(c.Values()[start:end], nil)
	case *table.Int64Column:
		b.(*array.Int64Builder).AppendValues(c.Values()[start:end], nil)
	case *table.StringColumn:
		b.(*array.StringBuilder).AppendValues(c.Values()[start:end], nil)
	case *table.BoolColumn:
		b.(*array.BooleanBuilder).AppendValues(c.Values()[start:end], nil)
	case *table.FloatArrayColumn:
		lb := b.(*array.ListBuilder)
		vb := lb.ValueBuilder().(*array.Float64Builder)
		for _, row := range c.Values()[start:end] {
			lb.Append(true)
			vb.AppendValues(row, nil)
		}
	default:
		return errors.Newf(errors.ErrorTypeInternal, "", "unsupported column type %T", col)
	}
	return nil
}

// NewColumns creates empty typed columns matching an Arrow schema, in
// field order.
func NewColumns(aschema *arrow.Schema) ([]table.Column, error) {
	cols := make([]table.Column, aschema.NumFields())
	for i, f := range aschema.Fields() {
		switch f.Type.ID() {
		case arrow.FLOAT64:
			cols[i] = table.NewFloat64Column(f.Name, nil)
		case arrow.INT64:
			cols[i] = table.NewInt64Column(f.Name, nil)
		case arrow.STRING:
			cols[i] = table.NewStringColumn(f.Name, nil)
		case arrow.BOOL:
			cols[i] = table.NewBoolColumn(f.Name, nil)
		case arrow.LIST, arrow.FIXED_SIZE_LIST:
			cols[i] = table.NewFloatArrayColumn(f.Name, nil)
		default:
			return nil, errors.Newf(errors.ErrorTypeContainer, errors.CodeCorruptContainer,
				"block column %q has unsupported physical type %s", f.Name, f.Type)
		}
	}
	return cols, nil
}

// AppendRecord appends one record batch's values onto typed columns
func AppendRecord(cols []table.Column, rec arrow.Record) error {
	for i := 0; i < int(rec.NumCols()); i++ {
		if err := appendArray(cols[i], rec.Column(i)); err != nil {
			return err
		}
	}
	return nil
}

func appendArray(col table.Column, arr arrow.Array) error {
	n := arr.Len()
	switch a := arr.(type) {
	case *array.Float64:
		for j := 0; j < n; j++ {
			if err := col.Append(a.Value(j)); err != nil {
				return err
			}
		}
	case *array.Int64:
		for j := 0; j < n; j++ {
			if err := col.Append(a.Value(j)); err != nil {
				return err
			}
		}
	case *array.String:
		for j := 0; j < n; j++ {
			if err := col.Append(a.Value(j)); err != nil {
				return err
			}
		}
	case *array.Boolean:
		for j := 0; j < n; j++ {
			if err := col.Append(a.Value(j)); err != nil {
				return err
			}
		}
	case *array.List:
		values, ok := a.ListValues().(*array.Float64)
		if !ok {
			return errors.Newf(errors.ErrorTypeContainer, errors.CodeCorruptContainer,
				"array column %q does not hold floats", col.Name())
		}
		for j := 0; j < n; j++ {
			start, end := a.ValueOffsets(j)
			row := make([]float64, 0, end-start)
			for k := start; k < end; k++ {
				row = append(row, values.Value(int(k)))
			}
			if err := col.Append(row); err != nil {
				return err
			}
		}
	case *array.FixedSizeList:
		values, ok := a.ListValues().(*array.Float64)
		if !ok {
			return errors.Newf(errors.ErrorTypeContainer, errors.CodeCorruptContainer,
				"array column %q does not hold floats", col.Name())
		}
		width := int(a.DataType().(*arrow.FixedSizeListType).Len())
		for j := 0; j < n; j++ {
			row := make([]float64, 0, width)
			for k := j * width; k < (j+1)*width; k++ {
				row = append(row, values.Value(k))
			}
			if err := col.Append(row); err != nil {
				return err
			}
		}
	default:
		return errors.Newf(errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"block column %q has unsupported array type %T", col.Name(), arr)
	}
	return nil
}

// RowValue extracts a single cell from an Arrow array as a Go value
func RowValue(arr arrow.Array, i int) (interface{}, error) {
	switch a := arr.(type) {
	case *array.Float64:
		return a.Value(i), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.String:
		return a.Value(i), nil
	case *array.Boolean:
		return a.Value(i), nil
	case *array.List:
		values, ok := a.ListValues().(*array.Float64)
		if !ok {
			return nil, errors.New(errors.ErrorTypeContainer, errors.CodeCorruptContainer,
				"array column does not hold floats")
		}
		start, end := a.ValueOffsets(i)
		row := make([]float64, 0, end-start)
		for k := start; k < end; k++ {
			row = append(row, values.Value(int(k)))
		}
		return row, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"unsupported array type %T", arr)
	}
}

// TableFromColumns assembles columns back into a table, flagging
// inconsistent blocks as corrupt
func TableFromColumns(cols []table.Column) (*table.Table, error) {
	t, err := table.FromColumns(cols...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"table block holds inconsistent columns")
	}
	return t, nil
}
