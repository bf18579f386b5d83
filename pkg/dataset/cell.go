package dataset

import (
	"github.com/battkit/battkit/pkg/errors"
	"github.com/battkit/battkit/pkg/metadata"
	"github.com/battkit/battkit/pkg/schema"
	"github.com/battkit/battkit/pkg/table"
)

// Standard table names for a single-cell dataset
const (
	TableRawData    = "raw_data"
	TableCycleStats = "cycle_stats"
	TableEISData    = "eis_data"
)

// CellTables holds the pre-named tables accepted by NewCellDataset.
// Nil tables are omitted from the dataset.
type CellTables struct {
	RawData    *table.Table
	CycleStats *table.Table
	EISData    *table.Table
	// Extra holds additional tables with caller-supplied schemas
	Extra map[string]*table.Table
	// ExtraSchemas provides the schema for each extra table
	ExtraSchemas map[string]*schema.ColumnSchema
}

// NewCellDataset builds a dataset for a single cell, attaching the
// built-in template schema to each supplied table. It fails with a
// template mismatch if a table lacks a column its template requires.
func NewCellDataset(meta metadata.BatteryMetadata, cell CellTables) (*Dataset, error) {
	tables := make(map[string]*table.Table)
	schemas := make(map[string]*schema.ColumnSchema)

	assign := func(name string, t *table.Table, s *schema.ColumnSchema) error {
		if t == nil {
			return nil
		}
		for _, info := range s.CoreColumns() {
			if info.Required {
				if _, ok := t.Column(info.Name); !ok {
					return errors.Newf(errors.ErrorTypeDataset, errors.CodeTemplateColumnMismatch,
						"table %q is missing column %q required by template %q",
						name, info.Name, s.Template())
				}
			}
		}
		tables[name] = t
		schemas[name] = s
		return nil
	}

	if err := assign(TableRawData, cell.RawData, schema.RawData()); err != nil {
		return nil, err
	}
	if err := assign(TableCycleStats, cell.CycleStats, schema.CycleStats()); err != nil {
		return nil, err
	}
	if err := assign(TableEISData, cell.EISData, schema.EIS()); err != nil {
		return nil, err
	}

	for name, t := range cell.Extra {
		s, ok := cell.ExtraSchemas[name]
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeDataset, errors.CodeMissingSchema,
				"extra table %q has no schema", name)
		}
		tables[name] = t
		schemas[name] = s
	}

	return New(tables, schemas, meta)
}
