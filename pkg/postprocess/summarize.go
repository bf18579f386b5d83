package postprocess

import (
	"math"

	"github.com/battkit/battkit/pkg/dataset"
	"github.com/battkit/battkit/pkg/schema"
	"github.com/battkit/battkit/pkg/table"
)

// CycleSummarizer builds the per-cycle statistics table from raw data.
//
// Capacities follow the state-of-charge procedure: the running
// integral of current over each cycle gives the charge change from the
// cycle start; whether the cell began the cycle charged is inferred
// from whether the largest excursion is toward discharge. One capacity
// spans cycle start to the extreme point, the other the extreme point
// to cycle end. Energies use the same procedure on current times
// voltage. The results assume a cycle returns the cell to its starting
// state.
type CycleSummarizer struct{}

// NewCycleSummarizer creates the summarizer
func NewCycleSummarizer() *CycleSummarizer { return &CycleSummarizer{} }

// minPointsPerCycle is the shortest run a capacity integral is
// meaningful for; shorter cycles get NaN statistics
const minPointsPerCycle = 3

// Summarize computes per-cycle statistics and attaches them to the
// dataset as the cycle statistics table with its template schema
func (cs *CycleSummarizer) Summarize(ds *dataset.Dataset) error {
	t, _, err := rawData(ds)
	if err != nil {
		return err
	}
	times, err := floatColumn(t, "test_time")
	if err != nil {
		return err
	}
	currents, err := floatColumn(t, "current")
	if err != nil {
		return err
	}
	voltages, err := floatColumn(t, "voltage")
	if err != nil {
		return err
	}
	cycles, err := intColumn(t, "cycle_number")
	if err != nil {
		return err
	}

	power := make([]float64, len(times))
	for i := range power {
		power[i] = currents[i] * voltages[i]
	}

	runs := cycleRuns(cycles)
	n := len(runs)
	var (
		cycleNumber = make([]int64, n)
		cycleStart  = make([]float64, n)
		cycleDur    = make([]float64, n)
		capCharge   = make([]float64, n)
		capDisch    = make([]float64, n)
		engCharge   = make([]float64, n)
		engDisch    = make([]float64, n)
		coulombEff  = make([]float64, n)
		energyEff   = make([]float64, n)
		maxCycled   = make([]float64, n)
		vMax        = make([]float64, n)
		vMin        = make([]float64, n)
	)

	for k, r := range runs {
		cycleNumber[k] = cycles[r.start]
		cycleStart[k] = times[r.start]
		if k+1 < n {
			cycleDur[k] = times[runs[k+1].start] - times[r.start]
		} else {
			cycleDur[k] = times[r.end-1] - times[r.start]
		}

		vMax[k] = voltages[r.start]
		vMin[k] = voltages[r.start]
		for i := r.start; i < r.end; i++ {
			vMax[k] = math.Max(vMax[k], voltages[i])
			vMin[k] = math.Min(vMin[k], voltages[i])
		}

		if r.end-r.start < minPointsPerCycle {
			capCharge[k], capDisch[k] = math.NaN(), math.NaN()
			engCharge[k], engDisch[k] = math.NaN(), math.NaN()
			coulombEff[k], energyEff[k] = math.NaN(), math.NaN()
			maxCycled[k] = math.NaN()
			continue
		}

		dq := cumTrapezoid(times[r.start:r.end], currents[r.start:r.end])
		de := cumTrapezoid(times[r.start:r.end], power[r.start:r.end])
		maxCharge, maxDischarge := extremes(dq)
		maxChargeE, maxDischargeE := extremes(de)
		maxCycled[k] = (maxCharge + maxDischarge) / secondsPerHour

		last := len(dq) - 1
		var chargeCap, dischCap, chargeEng, dischEng float64
		if maxDischarge > maxCharge {
			// Cycle began with the cell charged
			dischCap = maxDischarge
			chargeCap = dq[last] + maxDischarge
			dischEng = maxDischargeE
			chargeEng = de[last] + dischEng
		} else {
			chargeCap = maxCharge
			dischCap = maxCharge - dq[last]
			chargeEng = maxChargeE
			dischEng = chargeEng - de[last]
		}

		capCharge[k] = chargeCap / secondsPerHour
		capDisch[k] = dischCap / secondsPerHour
		engCharge[k] = chargeEng / secondsPerHour
		engDisch[k] = dischEng / secondsPerHour

		coulombEff[k] = math.NaN()
		if capCharge[k] > 0 {
			coulombEff[k] = capDisch[k] / capCharge[k] * 100
		}
		energyEff[k] = math.NaN()
		if engCharge[k] > 0 {
			energyEff[k] = engDisch[k] / engCharge[k]
		}
	}

	stats, err := table.FromColumns(
		table.NewInt64Column("cycle_number", cycleNumber),
		table.NewFloat64Column("cycle_start", cycleStart),
		table.NewFloat64Column("cycle_duration", cycleDur),
		table.NewFloat64Column("capacity_discharge", capDisch),
		table.NewFloat64Column("energy_discharge", engDisch),
		table.NewFloat64Column("capacity_charge", capCharge),
		table.NewFloat64Column("energy_charge", engCharge),
		table.NewFloat64Column("coulomb_efficiency", coulombEff),
		table.NewFloat64Column("energy_efficiency", energyEff),
		table.NewFloat64Column("max_cycled_capacity", maxCycled),
		table.NewFloat64Column("V_maximum", vMax),
		table.NewFloat64Column("V_minimum", vMin),
	)
	if err != nil {
		return err
	}
	return ds.AddTable(dataset.TableCycleStats, stats, schema.CycleStats())
}

// extremes returns the largest positive and largest negative excursion
// of a running integral
func extremes(values []float64) (maxPos, maxNeg float64) {
	for _, v := range values {
		if v > maxPos {
			maxPos = v
		}
		if -v > maxNeg {
			maxNeg = -v
		}
	}
	return maxPos, maxNeg
}
