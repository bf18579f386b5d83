package postprocess

import (
	"github.com/battkit/battkit/pkg/dataset"
	"github.com/battkit/battkit/pkg/schema"
)

// secondsPerHour converts ampere-seconds to ampere-hours
const secondsPerHour = 3600.0

// CycleTimeEnhancer computes the time since the start of each cycle
type CycleTimeEnhancer struct{}

// NewCycleTimeEnhancer creates the enhancer
func NewCycleTimeEnhancer() *CycleTimeEnhancer { return &CycleTimeEnhancer{} }

func (e *CycleTimeEnhancer) Name() string { return "cycle_time" }

func (e *CycleTimeEnhancer) ColumnNames() []string { return []string{"cycle_time"} }

// Enhance subtracts each cycle's earliest test time from every row of
// the cycle
func (e *CycleTimeEnhancer) Enhance(ds *dataset.Dataset) error {
	t, s, err := rawData(ds)
	if err != nil {
		return err
	}
	times, err := floatColumn(t, "test_time")
	if err != nil {
		return err
	}
	cycles, err := intColumn(t, "cycle_number")
	if err != nil {
		return err
	}

	out := make([]float64, len(times))
	for _, r := range cycleRuns(cycles) {
		start := times[r.start]
		for i := r.start; i < r.end; i++ {
			if times[i] < start {
				start = times[i]
			}
		}
		for i := r.start; i < r.end; i++ {
			out[i] = times[i] - start
		}
	}

	info, _ := schema.RawData().Column("cycle_time")
	return setDerived(t, s, out, info)
}

// CapacityIntegrator computes the charge and energy transferred since
// the start of each cycle by trapezoidal integration of the measured
// current. Positive values indicate discharge, matching the column
// definitions, so the integral of the charging-positive current is
// negated.
type CapacityIntegrator struct{}

// NewCapacityIntegrator creates the integrator
func NewCapacityIntegrator() *CapacityIntegrator { return &CapacityIntegrator{} }

func (e *CapacityIntegrator) Name() string { return "capacity" }

func (e *CapacityIntegrator) ColumnNames() []string {
	return []string{"cycle_capacity", "cycle_energy"}
}

func (e *CapacityIntegrator) Enhance(ds *dataset.Dataset) error {
	t, s, err := rawData(ds)
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

	capacity := make([]float64, len(times))
	energy := make([]float64, len(times))
	power := make([]float64, len(times))
	for i := range power {
		power[i] = currents[i] * voltages[i]
	}

	for _, r := range cycleRuns(cycles) {
		dq := cumTrapezoid(times[r.start:r.end], currents[r.start:r.end])
		de := cumTrapezoid(times[r.start:r.end], power[r.start:r.end])
		for i, v := range dq {
			capacity[r.start+i] = -v / secondsPerHour
		}
		for i, v := range de {
			energy[r.start+i] = -v
		}
	}

	capInfo, _ := schema.RawData().Column("cycle_capacity")
	if err := setDerived(t, s, capacity, capInfo); err != nil {
		return err
	}
	engInfo, _ := schema.RawData().Column("cycle_energy")
	return setDerived(t, s, energy, engInfo)
}
