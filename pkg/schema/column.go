// Package schema describes and validates the columns of battery data
// tables. A ColumnSchema partitions its columns into a fixed "core" set,
// defined by a named template, and an open "extra" set registered by
// callers through AddColumn.
package schema

import (
	"sort"

	"github.com/battkit/battkit/pkg/errors"
)

// DataType is the semantic type of a column
type DataType string

const (
	// Float is a 64-bit floating point column
	Float DataType = "float"
	// Integer is a 64-bit integer column
	Integer DataType = "integer"
	// String is a text column
	String DataType = "string"
	// Boolean is a true/false column
	Boolean DataType = "boolean"
	// FloatArray is a column of fixed-length numeric arrays
	FloatArray DataType = "float_array"
)

// Valid reports whether the data type is one of the known types
func (d DataType) Valid() bool {
	switch d {
	case Float, Integer, String, Boolean, FloatArray:
		return true
	}
	return false
}

// ColumnInfo describes a single column of a table
type ColumnInfo struct {
	// Name is the column identifier
	Name string `json:"name"`
	// Description is a human-readable explanation of the column
	Description string `json:"description,omitempty"`
	// Type is the semantic type of the column's values
	Type DataType `json:"type"`
	// Units for the values, if applicable
	Units string `json:"units,omitempty"`
	// Required indicates the column must be present in a table
	Required bool `json:"required,omitempty"`
	// Monotonic indicates values must never decrease between rows
	Monotonic bool `json:"monotonic,omitempty"`
}

// ColumnSchema is an ordered description of a table's columns.
// The core partition comes from a named template; the extra partition
// holds caller-registered columns, kept in alphabetical order so that
// serialization is deterministic regardless of insertion order.
type ColumnSchema struct {
	template string
	core     []ColumnInfo
	extra    []ColumnInfo
	index    map[string]int // position within core (>= 0) or ^position within extra
}

// NewSchema creates a schema with the given template name and core columns
func NewSchema(template string, core ...ColumnInfo) *ColumnSchema {
	s := &ColumnSchema{
		template: template,
		core:     append([]ColumnInfo(nil), core...),
		index:    make(map[string]int, len(core)),
	}
	for i, c := range s.core {
		s.index[c.Name] = i
	}
	return s
}

// Template returns the name of the core column template
func (s *ColumnSchema) Template() string { return s.template }

// Column retrieves the descriptor for a column in either partition
func (s *ColumnSchema) Column(name string) (ColumnInfo, bool) {
	i, ok := s.index[name]
	if !ok {
		return ColumnInfo{}, false
	}
	if i >= 0 {
		return s.core[i], true
	}
	return s.extra[^i], true
}

// Contains reports whether the schema documents the named column
func (s *ColumnSchema) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// ColumnNames lists all documented columns, core partition first
func (s *ColumnSchema) ColumnNames() []string {
	names := make([]string, 0, len(s.core)+len(s.extra))
	for _, c := range s.core {
		names = append(names, c.Name)
	}
	for _, c := range s.extra {
		names = append(names, c.Name)
	}
	return names
}

// CoreColumns returns the core partition in template order
func (s *ColumnSchema) CoreColumns() []ColumnInfo {
	return append([]ColumnInfo(nil), s.core...)
}

// ExtraColumns returns the extra partition in alphabetical order
func (s *ColumnSchema) ExtraColumns() []ColumnInfo {
	return append([]ColumnInfo(nil), s.extra...)
}

// AddColumn registers a user-declared column in the extra partition.
// The name must not exist in either partition.
func (s *ColumnSchema) AddColumn(info ColumnInfo) error {
	if !info.Type.Valid() {
		return errors.Newf(errors.ErrorTypeSchema, errors.CodeTypeMismatch,
			"unknown data type %q for column %q", info.Type, info.Name)
	}
	if _, exists := s.index[info.Name]; exists {
		return errors.Newf(errors.ErrorTypeSchema, errors.CodeDuplicateColumn,
			"column %q already defined", info.Name)
	}
	s.extra = append(s.extra, info)
	s.normalizeExtra()
	return nil
}

// Merge produces a schema whose extra partition is the union of both
// inputs. Both schemas must share the same core template, and a name
// appearing in both extra partitions must agree on type and units.
func (s *ColumnSchema) Merge(other *ColumnSchema) (*ColumnSchema, error) {
	if s.template != other.template {
		return nil, errors.Newf(errors.ErrorTypeSchema, errors.CodeSchemaConflict,
			"cannot merge schemas with templates %q and %q", s.template, other.template)
	}
	out := NewSchema(s.template, s.core...)
	out.extra = append([]ColumnInfo(nil), s.extra...)
	for i, c := range out.extra {
		out.index[c.Name] = ^i
	}
	for _, c := range other.extra {
		if existing, ok := out.Column(c.Name); ok {
			if existing.Type != c.Type || existing.Units != c.Units {
				return nil, errors.Newf(errors.ErrorTypeSchema, errors.CodeSchemaConflict,
					"column %q differs between schemas: %s/%s vs %s/%s",
					c.Name, existing.Type, existing.Units, c.Type, c.Units)
			}
			continue
		}
		out.extra = append(out.extra, c)
	}
	out.normalizeExtra()
	return out, nil
}

// normalizeExtra keeps the extra partition alphabetical and reindexes
func (s *ColumnSchema) normalizeExtra() {
	sort.Slice(s.extra, func(i, j int) bool { return s.extra[i].Name < s.extra[j].Name })
	for name, i := range s.index {
		if i < 0 {
			delete(s.index, name)
		}
	}
	for i, c := range s.extra {
		s.index[c.Name] = ^i
	}
}
