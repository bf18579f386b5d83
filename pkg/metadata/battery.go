package metadata

import (
	"github.com/battkit/battkit/pkg/errors"
)

// ElectrodeDescription describes one electrode of a cell
type ElectrodeDescription struct {
	// Name is a short description of the electrode type
	Name string `json:"name"`
	// Supplier is the manufacturer of the material
	Supplier string `json:"supplier,omitempty"`
	// Product is the supplier's name for the material
	Product string `json:"product,omitempty"`
	// Thickness of the material in micrometers
	Thickness *float64 `json:"thickness,omitempty"`
	// Area of the electrode in cm^2
	Area *float64 `json:"area,omitempty"`
	// Loading is the amount of active material per area in mg/cm^2
	Loading *float64 `json:"loading,omitempty"`
	// Porosity is the relative volume occupied by gas, 0-100 percent
	Porosity *float64 `json:"porosity,omitempty"`
}

func (e *ElectrodeDescription) validate(field string) error {
	if e.Name == "" {
		return errors.Newf(errors.ErrorTypeMetadata, errors.CodeInvalidMetadataField,
			"%s.name must not be empty", field)
	}
	// Checked in declaration order so the first violation is stable
	dims := []struct {
		name  string
		value *float64
	}{
		{"thickness", e.Thickness},
		{"area", e.Area},
		{"loading", e.Loading},
	}
	for _, d := range dims {
		if d.value != nil && *d.value < 0 {
			return errors.Newf(errors.ErrorTypeMetadata, errors.CodeInvalidMetadataField,
				"%s.%s must be non-negative, got %v", field, d.name, *d.value)
		}
	}
	if e.Porosity != nil && (*e.Porosity < 0 || *e.Porosity > 100) {
		return errors.Newf(errors.ErrorTypeMetadata, errors.CodeInvalidMetadataField,
			"%s.porosity must be between 0 and 100, got %v", field, *e.Porosity)
	}
	return nil
}

// ElectrolyteAdditive describes an additive to the electrolyte
type ElectrolyteAdditive struct {
	// Name of the additive
	Name string `json:"name"`
	// Amount added to the solution
	Amount *float64 `json:"amount,omitempty"`
	// Units of the amount
	Units string `json:"units,omitempty"`
}

// ElectrolyteDescription describes the electrolyte
type ElectrolyteDescription struct {
	// Name is a short description of the electrolyte type
	Name string `json:"name"`
	// Additives present in the electrolyte
	Additives []ElectrolyteAdditive `json:"additives,omitempty"`
}

// BatteryDescription describes the entire battery assembly
type BatteryDescription struct {
	// Manufacturer of the battery
	Manufacturer string `json:"manufacturer,omitempty"`
	// Design is the name of the battery type, such as the product ID
	Design string `json:"design,omitempty"`
	// LayerCount is the number of layers within the battery
	LayerCount *int `json:"layer_count,omitempty"`
	// FormFactor is the general shape of the battery
	FormFactor string `json:"form_factor,omitempty"`
	// Mass of the entire battery in kilograms
	Mass *float64 `json:"mass,omitempty"`
	// Dimensions of the battery in plain text
	Dimensions string `json:"dimensions,omitempty"`
	// Anode material description
	Anode *ElectrodeDescription `json:"anode,omitempty"`
	// Cathode material description
	Cathode *ElectrodeDescription `json:"cathode,omitempty"`
	// Electrolyte material description
	Electrolyte *ElectrolyteDescription `json:"electrolyte,omitempty"`
	// NominalCapacity is the rated capacity in A-hr
	NominalCapacity *float64 `json:"nominal_capacity,omitempty"`
}

func (b *BatteryDescription) validate() error {
	if b.LayerCount != nil && *b.LayerCount <= 1 {
		return errors.Newf(errors.ErrorTypeMetadata, errors.CodeInvalidMetadataField,
			"battery.layer_count must be greater than 1, got %d", *b.LayerCount)
	}
	if b.Mass != nil && *b.Mass < 0 {
		return errors.Newf(errors.ErrorTypeMetadata, errors.CodeInvalidMetadataField,
			"battery.mass must be non-negative, got %v", *b.Mass)
	}
	if b.Anode != nil {
		if err := b.Anode.validate("battery.anode"); err != nil {
			return err
		}
	}
	if b.Cathode != nil {
		if err := b.Cathode.validate("battery.cathode"); err != nil {
			return err
		}
	}
	if b.Electrolyte != nil && b.Electrolyte.Name == "" {
		return errors.New(errors.ErrorTypeMetadata, errors.CodeInvalidMetadataField,
			"battery.electrolyte.name must not be empty")
	}
	if b.NominalCapacity != nil && *b.NominalCapacity < 0 {
		return errors.Newf(errors.ErrorTypeMetadata, errors.CodeInvalidMetadataField,
			"battery.nominal_capacity must be non-negative, got %v", *b.NominalCapacity)
	}
	return nil
}
