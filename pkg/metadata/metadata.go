// Package metadata defines the versioned, hierarchical description of
// the physical system and experiment that produced a battery dataset.
// Documents are immutable value objects: updating metadata means
// constructing a new document. The version field is always set by this
// library, never by the caller.
package metadata

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/battkit/battkit/pkg/errors"
)

// Version of the metadata document format written by this library
const Version = "0.1.0"

// DateFormat is the layout for date fields
const DateFormat = "2006-01-02"

// Author identifies one author of a dataset
type Author struct {
	// FirstName is the author's given name
	FirstName string `json:"first_name"`
	// LastName is the author's family name
	LastName string `json:"last_name"`
	// Affiliation is the author's organization, if known
	Affiliation string `json:"affiliation,omitempty"`
}

// CyclingProtocol describes the test protocol used to cycle a cell
type CyclingProtocol struct {
	// Cycler is the name of the cycling machine
	Cycler string `json:"cycler,omitempty"`
	// StartDate is the date the initial test began, formatted as 2006-01-02
	StartDate string `json:"start_date,omitempty"`
	// SetTemperature is the setpoint of the test chamber in Celsius
	SetTemperature *float64 `json:"set_temperature,omitempty"`
	// Schedule references the schedule file used by the cycler
	Schedule string `json:"schedule,omitempty"`
}

// BatteryMetadata captures what experiment was run on what battery.
// A complete document should be sufficient to reproduce an experiment.
type BatteryMetadata struct {
	// Name of the cell, in whatever format the data provider uses
	Name string `json:"name,omitempty"`
	// Comments holds long-form notes describing the test
	Comments string `json:"comments,omitempty"`
	// Version of this document format. Set by the library.
	Version string `json:"version"`
	// IsMeasurement is true for observed data, false for simulation output
	IsMeasurement bool `json:"is_measurement"`
	// TestProtocol describes how the battery was cycled
	TestProtocol *CyclingProtocol `json:"test_protocol,omitempty"`
	// Battery describes the cell assembly
	Battery *BatteryDescription `json:"battery,omitempty"`
	// Modeling describes the simulation that produced synthetic data
	Modeling *ModelMetadata `json:"modeling,omitempty"`
	// Source is the organization that created the data
	Source string `json:"source,omitempty"`
	// DatasetName names a larger dataset this data belongs to
	DatasetName string `json:"dataset_name,omitempty"`
	// Authors lists the people who produced the data
	Authors []Author `json:"authors,omitempty"`
	// AssociatedIDs holds URIs of related resources, such as paper DOIs
	AssociatedIDs []string `json:"associated_ids,omitempty"`
}

// New creates an empty document with library-controlled defaults
func New() BatteryMetadata {
	return BatteryMetadata{Version: Version, IsMeasurement: true}
}

// Validate checks every field against its declared shape, scanning in
// declaration order and failing on the first violation.
func (m *BatteryMetadata) Validate() error {
	if m.TestProtocol != nil {
		if err := m.TestProtocol.validate(); err != nil {
			return err
		}
	}
	if m.Battery != nil {
		if err := m.Battery.validate(); err != nil {
			return err
		}
	}
	if m.Modeling != nil {
		if err := m.Modeling.validate(); err != nil {
			return err
		}
	}
	for _, id := range m.AssociatedIDs {
		u, err := url.Parse(id)
		if err != nil || u.Scheme == "" {
			return errors.Newf(errors.ErrorTypeMetadata, errors.CodeInvalidMetadataField,
				"associated_ids entry %q is not a well-formed URI", id)
		}
	}
	return nil
}

func (p *CyclingProtocol) validate() error {
	if p.StartDate != "" {
		if _, err := time.Parse(DateFormat, p.StartDate); err != nil {
			return errors.Newf(errors.ErrorTypeMetadata, errors.CodeInvalidMetadataField,
				"test_protocol.start_date %q does not parse as %s", p.StartDate, DateFormat)
		}
	}
	return nil
}

// ToJSON serializes the document, always stamping the library version
func (m BatteryMetadata) ToJSON() ([]byte, error) {
	m.Version = Version
	out, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMetadata, "", "failed to serialize metadata")
	}
	return out, nil
}

// FromJSON parses and validates a metadata document. Documents without
// a recognized version, or newer than this library, are rejected.
func FromJSON(data []byte) (*BatteryMetadata, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMetadata, "", "failed to parse metadata")
	}
	versionRaw, ok := raw["version"]
	if !ok {
		return nil, errors.New(errors.ErrorTypeMetadata, errors.CodeUnsupportedSchemaVersion,
			"metadata document has no version field")
	}
	var version string
	if err := json.Unmarshal(versionRaw, &version); err != nil {
		return nil, errors.New(errors.ErrorTypeMetadata, errors.CodeInvalidMetadataField,
			"metadata version field is not a string")
	}
	newer, err := newerThanLibrary(version)
	if err != nil {
		return nil, errors.Newf(errors.ErrorTypeMetadata, errors.CodeInvalidMetadataField,
			"metadata version %q is malformed", version)
	}
	if newer {
		return nil, errors.Newf(errors.ErrorTypeMetadata, errors.CodeUnsupportedSchemaVersion,
			"metadata version %q is newer than library version %s", version, Version)
	}

	var m BatteryMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMetadata, errors.CodeInvalidMetadataField,
			"failed to parse metadata")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Equal reports structural equality over all fields
func (m *BatteryMetadata) Equal(other *BatteryMetadata) bool {
	if m == nil || other == nil {
		return m == other
	}
	return reflect.DeepEqual(*m, *other)
}

// newerThanLibrary compares a dotted version string against Version
func newerThanLibrary(version string) (bool, error) {
	parse := func(s string) ([3]int, error) {
		var out [3]int
		parts := strings.SplitN(s, ".", 3)
		if len(parts) != 3 {
			return out, fmt.Errorf("version %q is not major.minor.patch", s)
		}
		for i, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil || n < 0 {
				return out, fmt.Errorf("version component %q is not a number", p)
			}
			out[i] = n
		}
		return out, nil
	}
	got, err := parse(version)
	if err != nil {
		return false, err
	}
	lib, err := parse(Version)
	if err != nil {
		return false, err
	}
	for i := range got {
		if got[i] != lib[i] {
			return got[i] > lib[i], nil
		}
	}
	return false, nil
}
