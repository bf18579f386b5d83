package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromColumnsPreservesOrder(t *testing.T) {
	tbl, err := FromColumns(
		NewFloat64Column("test_time", []float64{0, 1, 2}),
		NewFloat64Column("voltage", []float64{3.0, 3.1, 3.2}),
		NewInt64Column("cycle_number", []int64{0, 0, 1}),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"test_time", "voltage", "cycle_number"}, tbl.ColumnNames())
	assert.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, 3, tbl.NumColumns())
}

func TestAddColumnRejectsDuplicatesAndLengthMismatch(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.AddColumn(NewFloat64Column("voltage", []float64{3.0, 3.1})))

	err := tbl.AddColumn(NewFloat64Column("voltage", []float64{3.2, 3.3}))
	assert.Error(t, err)

	err = tbl.AddColumn(NewFloat64Column("current", []float64{1.0}))
	assert.Error(t, err)
}

func TestAppendRowInfersColumnsOnEmptyTable(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.AppendRow(map[string]interface{}{
		"voltage": 3.0, "cycle_number": int64(0), "state": "charging",
	}))
	require.NoError(t, tbl.AppendRow(map[string]interface{}{
		"voltage": 3.1, "cycle_number": int64(0), "state": "charging",
	}))

	assert.Equal(t, 2, tbl.NumRows())
	// Inferred columns are established alphabetically
	assert.Equal(t, []string{"cycle_number", "state", "voltage"}, tbl.ColumnNames())

	err := tbl.AppendRow(map[string]interface{}{"voltage": 3.2})
	assert.Error(t, err, "rows after the first must cover every column")
}

func TestAppendRowRejectedRowLeavesTableUnchanged(t *testing.T) {
	tbl, err := FromColumns(
		NewFloat64Column("voltage", []float64{3.0}),
		NewStringColumn("state", []string{"charging"}),
		NewInt64Column("cycle_number", []int64{0}),
	)
	require.NoError(t, err)

	err = tbl.AppendRow(map[string]interface{}{
		"voltage": 3.1, "state": "hold", "cycle_number": "zero",
	})
	require.Error(t, err)

	assert.Equal(t, 1, tbl.NumRows())
	for _, c := range tbl.Columns() {
		assert.Equal(t, 1, c.Len(), "column %q grew after a rejected row", c.Name())
	}

	require.NoError(t, tbl.AppendRow(map[string]interface{}{
		"voltage": 3.1, "state": "hold", "cycle_number": int64(1),
	}))
	assert.Equal(t, 2, tbl.NumRows())
}

func TestRowAssemblesValues(t *testing.T) {
	tbl, err := FromColumns(
		NewFloat64Column("voltage", []float64{3.0, 3.5}),
		NewStringColumn("state", []string{"charging", "hold"}),
	)
	require.NoError(t, err)

	row, err := tbl.Row(1)
	require.NoError(t, err)
	assert.Equal(t, 3.5, row["voltage"])
	assert.Equal(t, "hold", row["state"])

	_, err = tbl.Row(2)
	assert.Error(t, err)
}

func TestSliceCopies(t *testing.T) {
	tbl, err := FromColumns(NewFloat64Column("test_time", []float64{0, 1, 2, 3}))
	require.NoError(t, err)

	part, err := tbl.Slice(1, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, part.NumRows())

	col, _ := part.Column("test_time")
	require.NoError(t, col.Append(99.0))
	assert.Equal(t, 4, tbl.NumRows(), "mutating a slice must not touch the source")
}

func TestSetColumnReplacesInPlace(t *testing.T) {
	tbl, err := FromColumns(
		NewFloat64Column("test_time", []float64{0, 1}),
		NewFloat64Column("voltage", []float64{3.0, 3.1}),
	)
	require.NoError(t, err)

	require.NoError(t, tbl.SetColumn(NewFloat64Column("voltage", []float64{4.0, 4.1})))
	assert.Equal(t, []string{"test_time", "voltage"}, tbl.ColumnNames())
	col, _ := tbl.Column("voltage")
	assert.Equal(t, 4.0, col.Value(0))

	require.NoError(t, tbl.SetColumn(NewFloat64Column("cycle_time", []float64{0, 1})))
	assert.Equal(t, 3, tbl.NumColumns())

	err = tbl.SetColumn(NewFloat64Column("voltage", []float64{1.0}))
	assert.Error(t, err)
}

func TestEqualIsExactAndNaNSafe(t *testing.T) {
	a, _ := FromColumns(NewFloat64Column("v", []float64{1, math.NaN()}))
	b, _ := FromColumns(NewFloat64Column("v", []float64{1, math.NaN()}))
	c, _ := FromColumns(NewFloat64Column("v", []float64{1, 2}))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestFloatArrayColumnUniformity(t *testing.T) {
	col := NewFloatArrayColumn("spectrum", [][]float64{{1, 2}, {3, 4}})
	assert.True(t, col.Uniform())
	assert.Equal(t, 2, col.Width())

	require.NoError(t, col.Append([]float64{5}))
	assert.False(t, col.Uniform())
}

func TestInferColumn(t *testing.T) {
	cases := []struct {
		sample interface{}
		want   Column
	}{
		{3.0, &Float64Column{}},
		{int64(1), &Int64Column{}},
		{"charging", &StringColumn{}},
		{true, &BoolColumn{}},
		{[]float64{1, 2}, &FloatArrayColumn{}},
	}
	for _, tc := range cases {
		col, err := InferColumn("c", tc.sample)
		require.NoError(t, err)
		assert.IsType(t, tc.want, col)
	}

	_, err := InferColumn("c", struct{}{})
	assert.Error(t, err)
}
