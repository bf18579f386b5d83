package schema

import (
	json "github.com/goccy/go-json"

	"github.com/battkit/battkit/pkg/errors"
)

// document is the wire format for a ColumnSchema. Core columns keep
// their template order; extra columns are alphabetical, so two schemas
// with the same content always serialize identically.
type document struct {
	Template     string       `json:"template,omitempty"`
	Columns      []ColumnInfo `json:"columns"`
	ExtraColumns []ColumnInfo `json:"extra_columns,omitempty"`
}

// ToJSON serializes the schema to its JSON document form
func (s *ColumnSchema) ToJSON() ([]byte, error) {
	doc := document{
		Template:     s.template,
		Columns:      s.core,
		ExtraColumns: s.extra,
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "", "failed to serialize column schema")
	}
	return out, nil
}

// FromJSON parses a schema from its JSON document form
func FromJSON(data []byte) (*ColumnSchema, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "", "failed to parse column schema")
	}
	s := NewSchema(doc.Template)
	for _, c := range doc.Columns {
		if !c.Type.Valid() {
			return nil, errors.Newf(errors.ErrorTypeSchema, errors.CodeTypeMismatch,
				"unknown data type %q for column %q", c.Type, c.Name)
		}
		if _, exists := s.index[c.Name]; exists {
			return nil, errors.Newf(errors.ErrorTypeSchema, errors.CodeDuplicateColumn,
				"column %q appears twice in schema document", c.Name)
		}
		s.index[c.Name] = len(s.core)
		s.core = append(s.core, c)
	}
	for _, c := range doc.ExtraColumns {
		if err := s.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}
