// Package dataset provides the aggregate root of battkit: a named
// collection of tables, one column schema per table, and one metadata
// document shared across tables.
package dataset

import (
	"sort"

	"github.com/battkit/battkit/pkg/errors"
	"github.com/battkit/battkit/pkg/metadata"
	"github.com/battkit/battkit/pkg/schema"
	"github.com/battkit/battkit/pkg/table"
)

// Dataset owns its tables and schemas; the metadata document may be
// shared read-only across datasets describing related cells.
type Dataset struct {
	tables   map[string]*table.Table
	schemas  map[string]*schema.ColumnSchema
	order    []string
	Metadata metadata.BatteryMetadata
}

// New creates a dataset from caller-supplied tables, schemas and
// metadata. Every table must have a schema and vice versa.
func New(tables map[string]*table.Table, schemas map[string]*schema.ColumnSchema, meta metadata.BatteryMetadata) (*Dataset, error) {
	d := &Dataset{
		tables:   make(map[string]*table.Table, len(tables)),
		schemas:  make(map[string]*schema.ColumnSchema, len(schemas)),
		Metadata: meta,
	}

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sch, ok := schemas[name]
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeDataset, errors.CodeMissingSchema,
				"table %q has no schema", name)
		}
		d.tables[name] = tables[name]
		d.schemas[name] = sch
		d.order = append(d.order, name)
	}
	for name := range schemas {
		if _, ok := tables[name]; !ok {
			return nil, errors.Newf(errors.ErrorTypeDataset, errors.CodeOrphanSchema,
				"schema %q has no table", name)
		}
	}
	return d, nil
}

// Table returns the named table
func (d *Dataset) Table(name string) (*table.Table, error) {
	t, ok := d.tables[name]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeDataset, errors.CodeUnknownTable,
			"no table named %q", name)
	}
	return t, nil
}

// Schema returns the schema for the named table
func (d *Dataset) Schema(name string) (*schema.ColumnSchema, error) {
	s, ok := d.schemas[name]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeDataset, errors.CodeUnknownTable,
			"no table named %q", name)
	}
	return s, nil
}

// TableNames lists the tables in deterministic (insertion) order
func (d *Dataset) TableNames() []string {
	return append([]string(nil), d.order...)
}

// Contains reports whether the dataset holds the named table
func (d *Dataset) Contains(name string) bool {
	_, ok := d.tables[name]
	return ok
}

// AddTable attaches a new table and its schema, the mutation point
// used by post-processing collaborators that add summary tables.
func (d *Dataset) AddTable(name string, t *table.Table, s *schema.ColumnSchema) error {
	if _, exists := d.tables[name]; exists {
		return errors.Newf(errors.ErrorTypeDataset, "", "table %q already exists", name)
	}
	d.tables[name] = t
	d.schemas[name] = s
	d.order = append(d.order, name)
	return nil
}

// Validate runs every table's schema validation plus a cross-check
// that the table and schema mappings share the same key set. Issues
// are returned as data; callers decide severity handling.
func (d *Dataset) Validate() []schema.Issue {
	var issues []schema.Issue
	for _, name := range d.order {
		sch, ok := d.schemas[name]
		if !ok {
			issues = append(issues, schema.Issue{
				Code:     errors.CodeMissingSchema,
				Severity: schema.SeverityError,
				Table:    name,
				Message:  "table has no schema",
			})
			continue
		}
		for _, issue := range sch.Validate(d.tables[name]) {
			issue.Table = name
			issues = append(issues, issue)
		}
	}
	for name := range d.schemas {
		if _, ok := d.tables[name]; !ok {
			issues = append(issues, schema.Issue{
				Code:     errors.CodeOrphanSchema,
				Severity: schema.SeverityError,
				Table:    name,
				Message:  "schema has no table",
			})
		}
	}
	return issues
}

// CheckMergeable verifies two datasets may share a container, which
// requires structurally equal metadata documents.
func CheckMergeable(a, b *Dataset) error {
	if !a.Metadata.Equal(&b.Metadata) {
		return errors.New(errors.ErrorTypeMetadata, errors.CodeMetadataConflict,
			"datasets destined for the same container have differing metadata")
	}
	return nil
}

// Equal reports whether two datasets hold identical tables in the same
// order and structurally equal metadata. Schemas are compared through
// their serialized documents.
func (d *Dataset) Equal(o *Dataset) bool {
	if o == nil || len(d.order) != len(o.order) {
		return false
	}
	if !d.Metadata.Equal(&o.Metadata) {
		return false
	}
	for i, name := range d.order {
		if o.order[i] != name {
			return false
		}
		if !d.tables[name].Equal(o.tables[name]) {
			return false
		}
		mine, err1 := d.schemas[name].ToJSON()
		theirs, err2 := o.schemas[name].ToJSON()
		if err1 != nil || err2 != nil || string(mine) != string(theirs) {
			return false
		}
	}
	return true
}
