// Package consistency flags physically implausible cycling data. The
// checks are heuristics layered on top of schema validation: schema
// validation proves the data is well formed, these checks hint that it
// may still be wrong. Results are plain records; nothing here blocks
// reading or writing a dataset.
package consistency

import (
	"fmt"

	"github.com/battkit/battkit/pkg/dataset"
	"github.com/battkit/battkit/pkg/table"
)

// Severity grades a finding
type Severity string

const (
	// SeverityWarning marks data that is suspicious but usable
	SeverityWarning Severity = "warning"
	// SeverityInfo marks observations worth surfacing
	SeverityInfo Severity = "info"
)

// Warning is one finding about a dataset
type Warning struct {
	Severity Severity
	Table    string
	Column   string
	Message  string
}

// Plausibility bounds for lithium-ion style cells. Exceeding them is
// not an error, it is grounds for a second look at the cycler export.
const (
	minPlausibleVoltage = 0.0
	maxPlausibleVoltage = 6.0
	// maxTimestepFactor flags gaps much larger than the mean timestep.
	// The mean includes the gaps themselves, so the threshold is
	// conservative when a trace has several of them.
	maxTimestepFactor = 100.0
)

// Check runs every heuristic over the dataset's raw data table.
// Datasets without raw data get no findings.
func Check(ds *dataset.Dataset) []Warning {
	t, err := ds.Table(dataset.TableRawData)
	if err != nil {
		return nil
	}
	var warnings []Warning
	warnings = append(warnings, checkVoltageRange(t)...)
	warnings = append(warnings, checkSignConvention(t)...)
	warnings = append(warnings, checkTimesteps(t)...)
	return warnings
}

// checkVoltageRange flags voltages outside the plausible cell window
func checkVoltageRange(t *table.Table) []Warning {
	voltages, ok := floats(t, "voltage")
	if !ok {
		return nil
	}
	var warnings []Warning
	for i, v := range voltages {
		if v < minPlausibleVoltage || v > maxPlausibleVoltage {
			warnings = append(warnings, Warning{
				Severity: SeverityWarning,
				Table:    dataset.TableRawData,
				Column:   "voltage",
				Message: fmt.Sprintf("row %d: voltage %.3f V outside plausible range [%.1f, %.1f]",
					i, v, minPlausibleVoltage, maxPlausibleVoltage),
			})
		}
	}
	return warnings
}

// checkSignConvention flags datasets whose current never changes sign,
// which usually means the cycler's discharge convention was not
// converted to charging-positive
func checkSignConvention(t *table.Table) []Warning {
	currents, ok := floats(t, "current")
	if !ok || len(currents) == 0 {
		return nil
	}
	var positive, negative bool
	for _, c := range currents {
		if c > 0 {
			positive = true
		}
		if c < 0 {
			negative = true
		}
	}
	if positive && negative {
		return nil
	}
	direction := "charging"
	if negative {
		direction = "discharging"
	}
	return []Warning{{
		Severity: SeverityInfo,
		Table:    dataset.TableRawData,
		Column:   "current",
		Message: fmt.Sprintf("current is exclusively %s; check the cycler's sign convention (positive current means charging)",
			direction),
	}}
}

// checkTimesteps flags gaps far larger than the typical sampling
// interval, a sign of dropped rows or a mis-stitched export
func checkTimesteps(t *table.Table) []Warning {
	times, ok := floats(t, "test_time")
	if !ok || len(times) < 3 {
		return nil
	}

	var total float64
	for i := 1; i < len(times); i++ {
		total += times[i] - times[i-1]
	}
	mean := total / float64(len(times)-1)
	if mean <= 0 {
		return nil
	}

	var warnings []Warning
	for i := 1; i < len(times); i++ {
		if gap := times[i] - times[i-1]; gap > mean*maxTimestepFactor {
			warnings = append(warnings, Warning{
				Severity: SeverityWarning,
				Table:    dataset.TableRawData,
				Column:   "test_time",
				Message: fmt.Sprintf("row %d: timestep %.1f s is %.0fx the mean interval %.3f s",
					i, gap, gap/mean, mean),
			})
		}
	}
	return warnings
}

func floats(t *table.Table, name string) ([]float64, bool) {
	c, ok := t.Column(name)
	if !ok {
		return nil, false
	}
	fc, ok := c.(*table.Float64Column)
	if !ok {
		return nil, false
	}
	return fc.Values(), true
}
