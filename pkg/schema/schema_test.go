package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/battkit/battkit/pkg/errors"
	"github.com/battkit/battkit/pkg/table"
)

func minimalRawTable(t *testing.T, testTime []float64) *table.Table {
	t.Helper()
	n := len(testTime)
	voltage := make([]float64, n)
	current := make([]float64, n)
	tbl, err := table.FromColumns(
		table.NewFloat64Column("test_time", testTime),
		table.NewFloat64Column("voltage", voltage),
		table.NewFloat64Column("current", current),
	)
	require.NoError(t, err)
	return tbl
}

func TestValidateConformingTableIsClean(t *testing.T) {
	tbl := minimalRawTable(t, []float64{0, 1, 2})
	issues := RawData().Validate(tbl)
	assert.Empty(t, issues)
}

func TestValidateMissingRequiredColumn(t *testing.T) {
	tbl, err := table.FromColumns(
		table.NewFloat64Column("test_time", []float64{0, 1}),
		table.NewFloat64Column("voltage", []float64{3, 3}),
	)
	require.NoError(t, err)

	issues := RawData().Validate(tbl)
	require.Len(t, issues, 1)
	assert.Equal(t, errors.CodeMissingColumn, issues[0].Code)
	assert.Equal(t, SeverityError, issues[0].Severity)
	assert.Equal(t, "current", issues[0].Column)
	assert.True(t, HasErrors(issues))
}

func TestValidateTypeMismatch(t *testing.T) {
	tbl, err := table.FromColumns(
		table.NewFloat64Column("test_time", []float64{0, 1}),
		table.NewStringColumn("voltage", []string{"3.0", "3.1"}),
		table.NewFloat64Column("current", []float64{1, 1}),
	)
	require.NoError(t, err)

	issues := RawData().Validate(tbl)
	require.Len(t, issues, 1)
	assert.Equal(t, errors.CodeTypeMismatch, issues[0].Code)
	assert.Equal(t, "voltage", issues[0].Column)
}

func TestValidateMonotonicBoundary(t *testing.T) {
	// Equal adjacent values satisfy the constraint
	clean := minimalRawTable(t, []float64{0, 1, 1, 2})
	assert.Empty(t, RawData().Validate(clean))

	// A strict decrease is one violation, reported once per column
	dirty := minimalRawTable(t, []float64{0, 1, 0, 2})
	issues := RawData().Validate(dirty)
	require.Len(t, issues, 1)
	assert.Equal(t, errors.CodeMonotonicityViolation, issues[0].Code)
	assert.Equal(t, "test_time", issues[0].Column)
	assert.Contains(t, issues[0].Message, "row 2")
}

func TestValidateUndocumentedColumnIsWarning(t *testing.T) {
	tbl := minimalRawTable(t, []float64{0, 1})
	require.NoError(t, tbl.AddColumn(table.NewFloat64Column("chamber_humidity", []float64{40, 41})))

	issues := RawData().Validate(tbl)
	require.Len(t, issues, 1)
	assert.Equal(t, errors.CodeUndocumentedColumn, issues[0].Code)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
	assert.False(t, HasErrors(issues))
}

func TestValidateRaggedArray(t *testing.T) {
	s := NewSchema("",
		ColumnInfo{Name: "spectrum", Type: FloatArray, Required: true},
	)
	tbl, err := table.FromColumns(
		table.NewFloatArrayColumn("spectrum", [][]float64{{1, 2}, {3}}),
	)
	require.NoError(t, err)

	issues := s.Validate(tbl)
	require.Len(t, issues, 1)
	assert.Equal(t, errors.CodeRaggedArray, issues[0].Code)
	assert.Equal(t, SeverityError, issues[0].Severity)
}

func TestAddColumnRejectsDuplicates(t *testing.T) {
	s := RawData()
	err := s.AddColumn(ColumnInfo{Name: "voltage", Type: Float})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeDuplicateColumn))
}

func TestExtraColumnsStayAlphabetical(t *testing.T) {
	s := RawData()
	require.NoError(t, s.AddColumn(ColumnInfo{Name: "zeta", Type: Float}))
	require.NoError(t, s.AddColumn(ColumnInfo{Name: "alpha", Type: Float}))

	extra := s.ExtraColumns()
	require.Len(t, extra, 2)
	assert.Equal(t, "alpha", extra[0].Name)
	assert.Equal(t, "zeta", extra[1].Name)
}

func TestMergeConflict(t *testing.T) {
	a := NewSchema("", ColumnInfo{Name: "temperature", Type: Float, Units: "C"})
	b := NewSchema("", ColumnInfo{Name: "temperature", Type: Float, Units: "K"})

	_, err := a.Merge(b)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeSchemaConflict))
}

func TestMergeUnionsColumns(t *testing.T) {
	a := NewSchema("", ColumnInfo{Name: "voltage", Type: Float, Units: "V"})
	b := NewSchema("", ColumnInfo{Name: "voltage", Type: Float, Units: "V"})
	require.NoError(t, b.AddColumn(ColumnInfo{Name: "temperature", Type: Float, Units: "C"}))

	merged, err := a.Merge(b)
	require.NoError(t, err)
	assert.True(t, merged.Contains("voltage"))
	assert.True(t, merged.Contains("temperature"))
}

func TestJSONRoundTripIsIdentity(t *testing.T) {
	s := RawData()
	require.NoError(t, s.AddColumn(ColumnInfo{Name: "chamber_humidity", Type: Float, Units: "%"}))

	doc, err := s.ToJSON()
	require.NoError(t, err)

	restored, err := FromJSON(doc)
	require.NoError(t, err)

	doc2, err := restored.ToJSON()
	require.NoError(t, err)
	assert.JSONEq(t, string(doc), string(doc2))
	assert.Equal(t, s.Template(), restored.Template())
	assert.Equal(t, s.ColumnNames(), restored.ColumnNames())
}

func TestFromJSONRejectsBadDocuments(t *testing.T) {
	_, err := FromJSON([]byte(`{"columns": [{"name": "v", "type": "complex"}]}`))
	assert.Error(t, err)

	_, err = FromJSON([]byte(`{"columns": [{"name": "v", "type": "float"}, {"name": "v", "type": "float"}]}`))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeDuplicateColumn))
}

func TestTemplatesDocumentTheirRequiredColumns(t *testing.T) {
	raw := RawData()
	for _, name := range []string{"test_time", "voltage", "current"} {
		info, ok := raw.Column(name)
		require.True(t, ok, name)
		assert.True(t, info.Required, name)
	}
	info, _ := raw.Column("test_time")
	assert.True(t, info.Monotonic)

	eis := EIS()
	assert.True(t, eis.Contains("frequency"))
	assert.True(t, eis.Contains("z_real"))

	stats := CycleStats()
	info, ok := stats.Column("cycle_number")
	require.True(t, ok)
	assert.True(t, info.Required)
}
