package metadata

import (
	"net/url"

	"github.com/battkit/battkit/pkg/errors"
)

// ModelType is the type of computational method used to generate data
type ModelType string

const (
	// ModelTypePhysics is a physical model with an identifiable analogy
	// to the original object
	ModelTypePhysics ModelType = "physics"
	// ModelTypeData is a data-driven model
	ModelTypeData ModelType = "data"
	// ModelTypeEmpirical is an empirical fit without physical meaning
	ModelTypeEmpirical ModelType = "empirical"
)

// ModelMetadata describes the computational tool that produced
// simulated battery data
type ModelMetadata struct {
	// Name of the software
	Name string `json:"name"`
	// Version of the software, if known
	Version string `json:"version,omitempty"`
	// Type of computational method implemented
	Type ModelType `json:"type,omitempty"`
	// References associated with the software
	References []string `json:"references,omitempty"`
	// Models names the mathematical model(s) used in a physics simulation
	Models []string `json:"models,omitempty"`
	// SimulationType names the kind of simulation performed
	SimulationType string `json:"simulation_type,omitempty"`
}

func (m *ModelMetadata) validate() error {
	if m.Name == "" {
		return errors.New(errors.ErrorTypeMetadata, errors.CodeInvalidMetadataField,
			"modeling.name must not be empty")
	}
	switch m.Type {
	case "", ModelTypePhysics, ModelTypeData, ModelTypeEmpirical:
	default:
		return errors.Newf(errors.ErrorTypeMetadata, errors.CodeInvalidMetadataField,
			"modeling.type %q is not one of physics, data, empirical", m.Type)
	}
	for _, ref := range m.References {
		u, err := url.Parse(ref)
		if err != nil || u.Scheme == "" {
			return errors.Newf(errors.ErrorTypeMetadata, errors.CodeInvalidMetadataField,
				"modeling.references entry %q is not a well-formed URI", ref)
		}
	}
	return nil
}
