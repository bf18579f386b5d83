package postprocess

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/battkit/battkit/pkg/dataset"
	"github.com/battkit/battkit/pkg/errors"
	"github.com/battkit/battkit/pkg/metadata"
	"github.com/battkit/battkit/pkg/table"
)

// cyclingDataset builds a dataset with the given raw columns
func cyclingDataset(t *testing.T, times, currents, voltages []float64, cycles []int64) *dataset.Dataset {
	t.Helper()
	tbl, err := table.FromColumns(
		table.NewFloat64Column("test_time", times),
		table.NewFloat64Column("current", currents),
		table.NewFloat64Column("voltage", voltages),
		table.NewInt64Column("cycle_number", cycles),
	)
	require.NoError(t, err)
	ds, err := dataset.NewCellDataset(metadata.New(), dataset.CellTables{RawData: tbl})
	require.NoError(t, err)
	return ds
}

func rawFloats(t *testing.T, ds *dataset.Dataset, name string) []float64 {
	t.Helper()
	tbl, err := ds.Table(dataset.TableRawData)
	require.NoError(t, err)
	c, ok := tbl.Column(name)
	require.True(t, ok, "raw data should have column %q", name)
	fc, ok := c.(*table.Float64Column)
	require.True(t, ok)
	return fc.Values()
}

func TestCycleRuns(t *testing.T) {
	assert.Nil(t, cycleRuns(nil))
	assert.Equal(t, []run{{0, 3}}, cycleRuns([]int64{5, 5, 5}))
	assert.Equal(t, []run{{0, 2}, {2, 4}, {4, 5}}, cycleRuns([]int64{0, 0, 1, 1, 0}))
}

func TestCumTrapezoid(t *testing.T) {
	got := cumTrapezoid([]float64{0, 1, 2, 3, 4}, []float64{1, 1, 0, -1, -1})
	want := []float64{0, 1, 1.5, 1, 0}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12, "index %d", i)
	}
}

func TestCycleTimeEnhancer(t *testing.T) {
	ds := cyclingDataset(t,
		[]float64{10, 11, 20, 22},
		[]float64{1, 1, -1, -1},
		[]float64{3.5, 3.6, 3.4, 3.3},
		[]int64{0, 0, 1, 1},
	)

	e := NewCycleTimeEnhancer()
	assert.Equal(t, []string{"cycle_time"}, e.ColumnNames())
	require.NoError(t, e.Enhance(ds))

	got := rawFloats(t, ds, "cycle_time")
	assert.Equal(t, []float64{0, 1, 0, 2}, got)

	s, err := ds.Schema(dataset.TableRawData)
	require.NoError(t, err)
	assert.True(t, s.Contains("cycle_time"), "derived column must be documented")
}

func TestCycleTimeEnhancerMissingColumn(t *testing.T) {
	tbl, err := table.FromColumns(
		table.NewFloat64Column("test_time", []float64{0, 1}),
		table.NewFloat64Column("current", []float64{1, 1}),
		table.NewFloat64Column("voltage", []float64{3, 3}),
	)
	require.NoError(t, err)
	ds, err := dataset.NewCellDataset(metadata.New(), dataset.CellTables{RawData: tbl})
	require.NoError(t, err)

	err = NewCycleTimeEnhancer().Enhance(ds)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeMissingColumn))
}

func TestCapacityIntegrator(t *testing.T) {
	// One triangular charge/discharge excursion at constant voltage.
	ds := cyclingDataset(t,
		[]float64{0, 1, 2, 3, 4},
		[]float64{1, 1, 0, -1, -1},
		[]float64{4, 4, 4, 4, 4},
		[]int64{0, 0, 0, 0, 0},
	)
	require.NoError(t, NewCapacityIntegrator().Enhance(ds))

	// dq = [0, 1, 1.5, 1, 0] A-s; capacity is discharge-positive A-hr
	capacity := rawFloats(t, ds, "cycle_capacity")
	wantCap := []float64{0, -1 / 3600.0, -1.5 / 3600.0, -1 / 3600.0, 0}
	for i := range wantCap {
		assert.InDelta(t, wantCap[i], capacity[i], 1e-12, "capacity index %d", i)
	}

	// energy stays in joules, scaled by the 4 V plateau
	energy := rawFloats(t, ds, "cycle_energy")
	wantEng := []float64{0, -4, -6, -4, 0}
	for i := range wantEng {
		assert.InDelta(t, wantEng[i], energy[i], 1e-12, "energy index %d", i)
	}
}

func TestCapacityIntegratorResetsPerCycle(t *testing.T) {
	ds := cyclingDataset(t,
		[]float64{0, 1, 2, 3},
		[]float64{1, 1, 1, 1},
		[]float64{4, 4, 4, 4},
		[]int64{0, 0, 1, 1},
	)
	require.NoError(t, NewCapacityIntegrator().Enhance(ds))

	capacity := rawFloats(t, ds, "cycle_capacity")
	assert.Zero(t, capacity[0])
	assert.Zero(t, capacity[2], "integral restarts at each cycle boundary")
}

func TestCycleSummarizer(t *testing.T) {
	ds := cyclingDataset(t,
		[]float64{0, 1, 2, 3, 4, 5, 6},
		[]float64{1, 1, 0, -1, -1, 0, 0},
		[]float64{3.0, 3.5, 3.7, 3.5, 3.1, 3.0, 3.0},
		[]int64{0, 0, 0, 0, 0, 1, 1},
	)
	require.NoError(t, NewCycleSummarizer().Summarize(ds))
	require.True(t, ds.Contains(dataset.TableCycleStats))

	stats, err := ds.Table(dataset.TableCycleStats)
	require.NoError(t, err)
	require.Equal(t, 2, stats.NumRows())

	cycleNumber := statsInts(t, stats, "cycle_number")
	assert.Equal(t, []int64{0, 1}, cycleNumber)

	start := statsFloats(t, stats, "cycle_start")
	assert.Equal(t, []float64{0, 5}, start)

	dur := statsFloats(t, stats, "cycle_duration")
	assert.Equal(t, []float64{5, 1}, dur)

	// Full cycle: dq peaks at 1.5 A-s and returns to zero, so charge
	// and discharge capacities agree and efficiency is 100 percent.
	capCharge := statsFloats(t, stats, "capacity_charge")
	capDisch := statsFloats(t, stats, "capacity_discharge")
	assert.InDelta(t, 1.5/3600.0, capCharge[0], 1e-12)
	assert.InDelta(t, 1.5/3600.0, capDisch[0], 1e-12)
	assert.InDelta(t, 100.0, statsFloats(t, stats, "coulomb_efficiency")[0], 1e-9)

	vMax := statsFloats(t, stats, "V_maximum")
	vMin := statsFloats(t, stats, "V_minimum")
	assert.Equal(t, 3.7, vMax[0])
	assert.Equal(t, 3.0, vMin[0])
	assert.Equal(t, 3.0, vMax[1])

	// Two points are too few to integrate
	assert.True(t, math.IsNaN(capCharge[1]))
	assert.True(t, math.IsNaN(statsFloats(t, stats, "coulomb_efficiency")[1]))
}

func TestCycleSummarizerDischargeFirst(t *testing.T) {
	ds := cyclingDataset(t,
		[]float64{0, 1, 2, 3, 4},
		[]float64{-1, -1, 0, 1, 1},
		[]float64{4, 3.8, 3.5, 3.8, 4},
		[]int64{0, 0, 0, 0, 0},
	)
	require.NoError(t, NewCycleSummarizer().Summarize(ds))

	stats, err := ds.Table(dataset.TableCycleStats)
	require.NoError(t, err)

	// dq = [0, -1, -1.5, -1, 0]: the largest excursion is toward
	// discharge, so the cell began the cycle charged
	assert.InDelta(t, 1.5/3600.0, statsFloats(t, stats, "capacity_discharge")[0], 1e-12)
	assert.InDelta(t, 1.5/3600.0, statsFloats(t, stats, "capacity_charge")[0], 1e-12)
}

func statsFloats(t *testing.T, tbl *table.Table, name string) []float64 {
	t.Helper()
	c, ok := tbl.Column(name)
	require.True(t, ok, "cycle stats should have column %q", name)
	fc, ok := c.(*table.Float64Column)
	require.True(t, ok)
	return fc.Values()
}

func statsInts(t *testing.T, tbl *table.Table, name string) []int64 {
	t.Helper()
	c, ok := tbl.Column(name)
	require.True(t, ok)
	ic, ok := c.(*table.Int64Column)
	require.True(t, ok)
	return ic.Values()
}
