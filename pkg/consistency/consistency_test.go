package consistency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/battkit/battkit/pkg/dataset"
	"github.com/battkit/battkit/pkg/metadata"
	"github.com/battkit/battkit/pkg/schema"
	"github.com/battkit/battkit/pkg/table"
)

func buildDataset(t *testing.T, times, currents, voltages []float64) *dataset.Dataset {
	t.Helper()
	tbl, err := table.FromColumns(
		table.NewFloat64Column("test_time", times),
		table.NewFloat64Column("current", currents),
		table.NewFloat64Column("voltage", voltages),
	)
	require.NoError(t, err)
	ds, err := dataset.NewCellDataset(metadata.New(), dataset.CellTables{RawData: tbl})
	require.NoError(t, err)
	return ds
}

func TestCleanDataHasNoFindings(t *testing.T) {
	ds := buildDataset(t,
		[]float64{0, 1, 2, 3},
		[]float64{1, 1, -1, -1},
		[]float64{3.2, 3.5, 3.4, 3.1},
	)
	assert.Empty(t, Check(ds))
}

func TestVoltageOutOfRange(t *testing.T) {
	ds := buildDataset(t,
		[]float64{0, 1, 2},
		[]float64{1, -1, 1},
		[]float64{3.2, 7.5, -0.2},
	)
	warnings := Check(ds)
	require.Len(t, warnings, 2)
	for _, w := range warnings {
		assert.Equal(t, SeverityWarning, w.Severity)
		assert.Equal(t, dataset.TableRawData, w.Table)
		assert.Equal(t, "voltage", w.Column)
	}
	assert.Contains(t, warnings[0].Message, "row 1")
	assert.Contains(t, warnings[1].Message, "row 2")
}

func TestOneSignedCurrentIsInfo(t *testing.T) {
	ds := buildDataset(t,
		[]float64{0, 1, 2},
		[]float64{1, 2, 1},
		[]float64{3.2, 3.3, 3.4},
	)
	warnings := Check(ds)
	require.Len(t, warnings, 1)
	assert.Equal(t, SeverityInfo, warnings[0].Severity)
	assert.Equal(t, "current", warnings[0].Column)
	assert.Contains(t, warnings[0].Message, "charging")

	ds = buildDataset(t,
		[]float64{0, 1, 2},
		[]float64{-1, -2, -1},
		[]float64{3.2, 3.3, 3.4},
	)
	warnings = Check(ds)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "discharging")
}

func TestTimestepGap(t *testing.T) {
	times := make([]float64, 102)
	for i := 1; i <= 100; i++ {
		times[i] = times[i-1] + 0.01
	}
	times[101] = times[100] + 200
	currents := make([]float64, len(times))
	voltages := make([]float64, len(times))
	for i := range times {
		currents[i] = 1
		voltages[i] = 3.5
	}
	currents[0] = -1 // keep the sign check quiet

	ds := buildDataset(t, times, currents, voltages)
	warnings := Check(ds)
	require.Len(t, warnings, 1)
	assert.Equal(t, SeverityWarning, warnings[0].Severity)
	assert.Equal(t, "test_time", warnings[0].Column)
	assert.Contains(t, warnings[0].Message, "row 101")
}

func TestDatasetWithoutRawData(t *testing.T) {
	aux, err := table.FromColumns(table.NewFloat64Column("x", []float64{1}))
	require.NoError(t, err)
	ds, err := dataset.New(
		map[string]*table.Table{"aux": aux},
		map[string]*schema.ColumnSchema{
			"aux": schema.NewSchema("", schema.ColumnInfo{Name: "x", Type: schema.Float}),
		},
		metadata.New(),
	)
	require.NoError(t, err)
	assert.Nil(t, Check(ds))
}
