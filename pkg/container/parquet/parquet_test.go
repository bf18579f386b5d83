package parquet

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/battkit/battkit/pkg/container"
	"github.com/battkit/battkit/pkg/dataset"
	"github.com/battkit/battkit/pkg/errors"
	"github.com/battkit/battkit/pkg/metadata"
	"github.com/battkit/battkit/pkg/schema"
	"github.com/battkit/battkit/pkg/table"
)

func testMetadata() metadata.BatteryMetadata {
	m := metadata.New()
	m.Name = "cell_001"
	return m
}

func cellDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	tbl, err := table.FromColumns(
		table.NewFloat64Column("test_time", []float64{0, 2, 4}),
		table.NewFloat64Column("current", []float64{1, 1, -1}),
		table.NewFloat64Column("voltage", []float64{3.2, 3.5, 3.3}),
		table.NewInt64Column("cycle_number", []int64{0, 0, 1}),
	)
	require.NoError(t, err)
	ds, err := dataset.NewCellDataset(testMetadata(), dataset.CellTables{RawData: tbl})
	require.NoError(t, err)
	return ds
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cell.parquet")
	ds := cellDataset(t)
	codec := NewCodec()

	require.NoError(t, codec.Write(ds, dir, &container.Options{CompressionLevel: 9}))

	restored, err := codec.Read(dir, nil)
	require.NoError(t, err)
	assert.True(t, ds.Equal(restored), "read dataset must equal the written one")

	got, err := restored.Table(dataset.TableRawData)
	require.NoError(t, err)
	assert.Equal(t, []string{"test_time", "current", "voltage", "cycle_number"}, got.ColumnNames())

	s, err := restored.Schema(dataset.TableRawData)
	require.NoError(t, err)
	assert.Equal(t, schema.TemplateRawData, s.Template())
}

func TestRoundTripUncompressed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cell.parquet")
	ds := cellDataset(t)
	codec := NewCodec()

	require.NoError(t, codec.Write(ds, dir, nil))
	restored, err := codec.Read(dir, nil)
	require.NoError(t, err)
	assert.True(t, ds.Equal(restored))
}

func TestFloatArraySurvivesParquet(t *testing.T) {
	tbl, err := table.FromColumns(
		table.NewFloat64Column("x", []float64{1, 2}),
		table.NewFloatArrayColumn("spectrum", [][]float64{{0.1, 0.2}, {0.3, 0.4}}),
	)
	require.NoError(t, err)

	s := schema.NewSchema("",
		schema.ColumnInfo{Name: "x", Type: schema.Float},
		schema.ColumnInfo{Name: "spectrum", Type: schema.FloatArray},
	)
	ds, err := dataset.New(
		map[string]*table.Table{"aux": tbl},
		map[string]*schema.ColumnSchema{"aux": s},
		testMetadata(),
	)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "aux.parquet")
	codec := NewCodec()
	require.NoError(t, codec.Write(ds, dir, &container.Options{CompressionLevel: 4}))

	restored, err := codec.Read(dir, nil)
	require.NoError(t, err)
	assert.True(t, ds.Equal(restored))
}

func TestWriteRefusesExistingContainer(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cell.parquet")
	ds := cellDataset(t)
	codec := NewCodec()

	require.NoError(t, codec.Write(ds, dir, nil))
	err := codec.Write(ds, dir, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeContainerExists))

	require.NoError(t, codec.Write(ds, dir, &container.Options{Overwrite: true}))
}

func TestCapabilityErrors(t *testing.T) {
	codec := NewCodec()
	ds := cellDataset(t)
	dir := filepath.Join(t.TempDir(), "cell.parquet")

	err := codec.Write(ds, dir, &container.Options{KeyPrefix: "cell_a"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))

	err = codec.Write(ds, dir, &container.Options{Append: true})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))

	_, err = codec.Read(dir, &container.Options{KeyPrefix: "cell_a"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))
}

func TestReadRejectsEmptyDirectory(t *testing.T) {
	codec := NewCodec()
	_, err := codec.Read(t.TempDir(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCorruptContainer))
}

func TestReadRejectsDataViolatingEmbeddedSchema(t *testing.T) {
	tbl, err := table.FromColumns(
		table.NewFloat64Column("test_time", []float64{0, 2, 1}),
		table.NewFloat64Column("current", []float64{1, 1, 1}),
		table.NewFloat64Column("voltage", []float64{3, 3, 3}),
	)
	require.NoError(t, err)
	ds, err := dataset.NewCellDataset(testMetadata(), dataset.CellTables{RawData: tbl})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "cell.parquet")
	codec := NewCodec()
	require.NoError(t, codec.Write(ds, dir, nil))

	_, err = codec.Read(dir, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeSchemaDataMismatch))
}
