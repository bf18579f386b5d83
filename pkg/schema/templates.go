package schema

// Template names for the built-in core column sets
const (
	TemplateRawData    = "raw_data"
	TemplateCycleStats = "cycle_stats"
	TemplateEIS        = "eis_data"
)

// RawData describes time-series measurements of a single cell
func RawData() *ColumnSchema {
	return NewSchema(TemplateRawData,
		ColumnInfo{Name: "file_number", Type: Integer, Monotonic: true,
			Description: "Which file a row came from, if the data was originally split into multiple files"},
		ColumnInfo{Name: "state", Type: String,
			Description: "Whether the battery is being charged, discharged or otherwise"},
		ColumnInfo{Name: "method", Type: String,
			Description: "Method to control the charge or discharge"},
		ColumnInfo{Name: "cycle_number", Type: Integer, Monotonic: true,
			Description: "Index of the testing cycle, starting at 0"},
		ColumnInfo{Name: "step_index", Type: Integer,
			Description: "Index of the step number within a testing cycle. A step change is defined by a change between charging, discharging, or resting"},
		ColumnInfo{Name: "substep_index", Type: Integer,
			Description: "Change of the control method within a cycle"},
		ColumnInfo{Name: "test_time", Type: Float, Units: "s", Required: true, Monotonic: true,
			Description: "Time from the beginning of measurements"},
		ColumnInfo{Name: "voltage", Type: Float, Units: "V", Required: true,
			Description: "Measured voltage of the system"},
		ColumnInfo{Name: "current", Type: Float, Units: "A", Required: true,
			Description: "Measured current of the system. Positive current represents the battery charging"},
		ColumnInfo{Name: "internal_resistance", Type: Float, Units: "ohm",
			Description: "Internal resistance of the battery"},
		ColumnInfo{Name: "time", Type: Float, Units: "s", Monotonic: true,
			Description: "Time as a UNIX timestamp, stored as floating-point seconds"},
		ColumnInfo{Name: "temperature", Type: Float, Units: "C",
			Description: "Temperature of the battery"},
		ColumnInfo{Name: "cycle_time", Type: Float, Units: "s",
			Description: "Time from the beginning of a cycle"},
		ColumnInfo{Name: "cycle_capacity", Type: Float, Units: "A-hr",
			Description: "Cumulative change in charge transferred from the battery since the start of a cycle. Positive values indicate discharge"},
		ColumnInfo{Name: "cycle_energy", Type: Float, Units: "J",
			Description: "Cumulative change in energy transferred from the battery since the start of a cycle. Positive values indicate discharge"},
		ColumnInfo{Name: "cycle_capacity_charge", Type: Float, Units: "A-hr",
			Description: "Cycle capacity computed only during the charging phase of a cycle"},
		ColumnInfo{Name: "cycle_capacity_discharge", Type: Float, Units: "A-hr",
			Description: "Cycle capacity computed only during the discharging phase of a cycle"},
	)
}

// CycleStats describes per-cycle summary statistics of a cell
func CycleStats() *ColumnSchema {
	return NewSchema(TemplateCycleStats,
		ColumnInfo{Name: "cycle_number", Type: Integer, Required: true, Monotonic: true,
			Description: "Index of the cycle"},
		ColumnInfo{Name: "cycle_start", Type: Float, Units: "s", Monotonic: true,
			Description: "Time since the first recorded data point for the start of this cycle"},
		ColumnInfo{Name: "cycle_duration", Type: Float, Units: "s",
			Description: "Duration of this cycle"},
		ColumnInfo{Name: "capacity_discharge", Type: Float, Units: "A-hr",
			Description: "Total amount of electrons released during discharge"},
		ColumnInfo{Name: "energy_discharge", Type: Float, Units: "W-hr",
			Description: "Total amount of energy released during discharge"},
		ColumnInfo{Name: "capacity_charge", Type: Float, Units: "A-hr",
			Description: "Total amount of electrons stored during charge"},
		ColumnInfo{Name: "energy_charge", Type: Float, Units: "W-hr",
			Description: "Total amount of energy stored during charge"},
		ColumnInfo{Name: "coulomb_efficiency", Type: Float, Units: "%",
			Description: "Fraction of electric charge that is lost during charge and recharge"},
		ColumnInfo{Name: "energy_efficiency", Type: Float,
			Description: "Amount of energy lost during charge and discharge"},
		ColumnInfo{Name: "max_cycled_capacity", Type: Float, Units: "A-hr",
			Description: "Maximum amount of charge cycled during the cycle"},
		ColumnInfo{Name: "discharge_V_average", Type: Float, Units: "V",
			Description: "Average voltage during discharge"},
		ColumnInfo{Name: "charge_V_average", Type: Float, Units: "V",
			Description: "Average voltage during charge"},
		ColumnInfo{Name: "V_maximum", Type: Float, Units: "V",
			Description: "Maximum voltage during cycle"},
		ColumnInfo{Name: "V_minimum", Type: Float, Units: "V",
			Description: "Minimum voltage during cycle"},
		ColumnInfo{Name: "discharge_I_average", Type: Float, Units: "A",
			Description: "Average current during discharge"},
		ColumnInfo{Name: "charge_I_average", Type: Float, Units: "A",
			Description: "Average current during charge"},
		ColumnInfo{Name: "temperature_minimum", Type: Float, Units: "C",
			Description: "Minimum observed battery temperature during cycle"},
		ColumnInfo{Name: "temperature_maximum", Type: Float, Units: "C",
			Description: "Maximum observed battery temperature during cycle"},
		ColumnInfo{Name: "temperature_average", Type: Float, Units: "C",
			Description: "Average observed battery temperature during cycle"},
	)
}

// EIS describes electrochemical impedance spectroscopy measurements
func EIS() *ColumnSchema {
	return NewSchema(TemplateEIS,
		ColumnInfo{Name: "test_id", Type: Integer, Required: true,
			Description: "Integer used to identify rows belonging to the same experiment"},
		ColumnInfo{Name: "test_time", Type: Float, Units: "s", Monotonic: true,
			Description: "Time from the beginning of measurements"},
		ColumnInfo{Name: "time", Type: Float, Units: "s",
			Description: "Time as a UNIX timestamp, stored as floating-point seconds"},
		ColumnInfo{Name: "frequency", Type: Float, Units: "Hz", Required: true,
			Description: "Applied frequency"},
		ColumnInfo{Name: "z_real", Type: Float, Units: "Ohm", Required: true,
			Description: "Real component of impedance"},
		ColumnInfo{Name: "z_imag", Type: Float, Units: "Ohm", Required: true,
			Description: "Imaginary component of impedance"},
		ColumnInfo{Name: "z_mag", Type: Float, Units: "Ohm", Required: true,
			Description: "Magnitude of impedance"},
		ColumnInfo{Name: "z_phase", Type: Float, Units: "Degree", Required: true,
			Description: "Phase angle of the impedance"},
	)
}

// TemplateSchema returns the built-in schema for a template name
func TemplateSchema(name string) (*ColumnSchema, bool) {
	switch name {
	case TemplateRawData:
		return RawData(), true
	case TemplateCycleStats:
		return CycleStats(), true
	case TemplateEIS:
		return EIS(), true
	}
	return nil, false
}
