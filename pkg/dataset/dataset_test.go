package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/battkit/battkit/pkg/errors"
	"github.com/battkit/battkit/pkg/metadata"
	"github.com/battkit/battkit/pkg/schema"
	"github.com/battkit/battkit/pkg/table"
)

func rawTable(t *testing.T, testTime []float64) *table.Table {
	t.Helper()
	n := len(testTime)
	tbl, err := table.FromColumns(
		table.NewFloat64Column("test_time", testTime),
		table.NewFloat64Column("voltage", make([]float64, n)),
		table.NewFloat64Column("current", make([]float64, n)),
	)
	require.NoError(t, err)
	return tbl
}

func TestNewRequiresMatchingKeySets(t *testing.T) {
	tbl := rawTable(t, []float64{0, 1})

	_, err := New(
		map[string]*table.Table{"raw_data": tbl},
		map[string]*schema.ColumnSchema{},
		metadata.New(),
	)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeMissingSchema))

	_, err = New(
		map[string]*table.Table{},
		map[string]*schema.ColumnSchema{"raw_data": schema.RawData()},
		metadata.New(),
	)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeOrphanSchema))
}

func TestTableLookup(t *testing.T) {
	tbl := rawTable(t, []float64{0, 1})
	ds, err := New(
		map[string]*table.Table{TableRawData: tbl},
		map[string]*schema.ColumnSchema{TableRawData: schema.RawData()},
		metadata.New(),
	)
	require.NoError(t, err)

	got, err := ds.Table(TableRawData)
	require.NoError(t, err)
	assert.Same(t, tbl, got)

	_, err = ds.Table("nope")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeUnknownTable))

	assert.True(t, ds.Contains(TableRawData))
	assert.False(t, ds.Contains("nope"))
}

func TestNewCellDatasetAttachesTemplates(t *testing.T) {
	ds, err := NewCellDataset(metadata.New(), CellTables{RawData: rawTable(t, []float64{0, 1, 2})})
	require.NoError(t, err)

	s, err := ds.Schema(TableRawData)
	require.NoError(t, err)
	assert.Equal(t, schema.TemplateRawData, s.Template())
	assert.Equal(t, []string{TableRawData}, ds.TableNames())
}

func TestNewCellDatasetRejectsMissingTemplateColumn(t *testing.T) {
	tbl, err := table.FromColumns(
		table.NewFloat64Column("test_time", []float64{0, 1}),
		table.NewFloat64Column("voltage", []float64{3, 3}),
	)
	require.NoError(t, err)

	_, err = NewCellDataset(metadata.New(), CellTables{RawData: tbl})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeTemplateColumnMismatch))
}

func TestNewCellDatasetExtraTablesNeedSchemas(t *testing.T) {
	extra, err := table.FromColumns(table.NewFloat64Column("x", []float64{1}))
	require.NoError(t, err)

	_, err = NewCellDataset(metadata.New(), CellTables{
		Extra: map[string]*table.Table{"aux": extra},
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeMissingSchema))
}

func TestValidateTagsIssuesWithTableName(t *testing.T) {
	tbl := rawTable(t, []float64{0, 2, 1})
	ds, err := New(
		map[string]*table.Table{TableRawData: tbl},
		map[string]*schema.ColumnSchema{TableRawData: schema.RawData()},
		metadata.New(),
	)
	require.NoError(t, err)

	issues := ds.Validate()
	require.Len(t, issues, 1)
	assert.Equal(t, TableRawData, issues[0].Table)
	assert.Equal(t, errors.CodeMonotonicityViolation, issues[0].Code)
}

func TestAddTable(t *testing.T) {
	ds, err := NewCellDataset(metadata.New(), CellTables{RawData: rawTable(t, []float64{0, 1})})
	require.NoError(t, err)

	stats, err := table.FromColumns(table.NewInt64Column("cycle_number", []int64{0}))
	require.NoError(t, err)
	require.NoError(t, ds.AddTable(TableCycleStats, stats, schema.CycleStats()))
	assert.Equal(t, []string{TableRawData, TableCycleStats}, ds.TableNames())

	err = ds.AddTable(TableCycleStats, stats, schema.CycleStats())
	assert.Error(t, err)
}

func TestCheckMergeable(t *testing.T) {
	metaA := metadata.New()
	metaA.Name = "cell_a"
	metaB := metadata.New()
	metaB.Name = "cell_b"

	a, err := NewCellDataset(metaA, CellTables{RawData: rawTable(t, []float64{0, 1})})
	require.NoError(t, err)
	b, err := NewCellDataset(metaA, CellTables{RawData: rawTable(t, []float64{0, 1})})
	require.NoError(t, err)
	c, err := NewCellDataset(metaB, CellTables{RawData: rawTable(t, []float64{0, 1})})
	require.NoError(t, err)

	assert.NoError(t, CheckMergeable(a, b))
	err = CheckMergeable(a, c)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeMetadataConflict))
}

func TestEqual(t *testing.T) {
	a, err := NewCellDataset(metadata.New(), CellTables{RawData: rawTable(t, []float64{0, 1})})
	require.NoError(t, err)
	b, err := NewCellDataset(metadata.New(), CellTables{RawData: rawTable(t, []float64{0, 1})})
	require.NoError(t, err)
	c, err := NewCellDataset(metadata.New(), CellTables{RawData: rawTable(t, []float64{0, 2})})
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}
