package arrowipc

import (
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/battkit/battkit/pkg/container"
	"github.com/battkit/battkit/pkg/container/arrowconv"
	"github.com/battkit/battkit/pkg/errors"
	"github.com/battkit/battkit/pkg/metrics"
	"github.com/battkit/battkit/pkg/schema"
	"github.com/battkit/battkit/pkg/table"
)

// RecordIterator walks one table of a container row by row, holding at
// most one record batch in memory at a time.
type RecordIterator struct {
	f         *os.File
	cr        io.ReadCloser
	rdr       *ipc.Reader
	tableName string
	columns   []string
	schema    *schema.ColumnSchema
	rec       arrow.Record
	idx       int
	err       error
}

// OpenRecords opens a row iterator over one table of a container cell.
// The cell is selected by the key prefix option.
func OpenRecords(path, tableName string, opts *container.Options) (*RecordIterator, error) {
	opts = resolveOptions(opts)

	m, err := loadManifest(path)
	if err != nil {
		return nil, err
	}
	cell, ok := m.cell(opts.KeyPrefix)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeContainer, errors.CodeUnknownKeyPrefix,
			"container %s has no cell under prefix %q", path, opts.KeyPrefix)
	}
	found := false
	for _, name := range cell.Tables {
		if name == tableName {
			found = true
			break
		}
	}
	if !found {
		return nil, errors.Newf(errors.ErrorTypeDataset, errors.CodeUnknownTable,
			"cell %q has no table named %q", cell.Prefix, tableName)
	}
	comp, err := m.compressor()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(tablePath(path, cell.Prefix, tableName))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"failed to open table block")
	}
	cr, err := comp.WrapReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"failed to open compressed stream")
	}
	rdr, err := ipc.NewReader(cr, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		cr.Close()
		f.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"table block is not an Arrow IPC stream")
	}

	s, err := schemaFromArrow(rdr.Schema())
	if err != nil {
		rdr.Release()
		cr.Close()
		f.Close()
		return nil, err
	}
	columns := make([]string, rdr.Schema().NumFields())
	for i, field := range rdr.Schema().Fields() {
		columns[i] = field.Name
	}

	return &RecordIterator{
		f:         f,
		cr:        cr,
		rdr:       rdr,
		tableName: tableName,
		columns:   columns,
		schema:    s,
		idx:       -1,
	}, nil
}

// Columns returns the table's column names in block order
func (it *RecordIterator) Columns() []string {
	return append([]string(nil), it.columns...)
}

// Schema returns the column schema embedded in the table block
func (it *RecordIterator) Schema() *schema.ColumnSchema { return it.schema }

// Next advances to the next row, loading record batches lazily.
// It returns false at end of stream or on error; check Err after.
func (it *RecordIterator) Next() bool {
	if it.err != nil {
		return false
	}
	it.idx++
	for it.rec == nil || it.idx >= int(it.rec.NumRows()) {
		if !it.rdr.Next() {
			if err := it.rdr.Err(); err != nil {
				it.err = errors.Wrap(err, errors.ErrorTypeContainer, errors.CodeCorruptContainer,
					"table block is truncated or corrupt")
			}
			return false
		}
		it.rec = it.rdr.Record()
		it.idx = 0
	}
	metrics.RowsRead.WithLabelValues(FormatName, it.tableName).Inc()
	return true
}

// Row returns the current row keyed by column name
func (it *RecordIterator) Row() (map[string]interface{}, error) {
	if it.rec == nil || it.idx < 0 || it.idx >= int(it.rec.NumRows()) {
		return nil, errors.New(errors.ErrorTypeStreaming, "",
			"Row called without a successful Next")
	}
	row := make(map[string]interface{}, len(it.columns))
	for i, name := range it.columns {
		v, err := arrowconv.RowValue(it.rec.Column(i), it.idx)
		if err != nil {
			return nil, err
		}
		row[name] = v
	}
	return row, nil
}

// Err returns the first error encountered while iterating
func (it *RecordIterator) Err() error { return it.err }

// Close releases the underlying streams
func (it *RecordIterator) Close() error {
	if it.rdr != nil {
		it.rdr.Release()
		it.rdr = nil
	}
	if it.cr != nil {
		it.cr.Close()
		it.cr = nil
	}
	if it.f != nil {
		err := it.f.Close()
		it.f = nil
		return err
	}
	return nil
}

// CycleIterator yields one sub-table per contiguous run of equal values
// in a grouping column, the access pattern for per-cycle analysis.
// Runs are contiguous by construction: a group value that reappears
// later starts a new sub-table.
type CycleIterator struct {
	it      *RecordIterator
	group   string
	held    map[string]interface{}
	current *table.Table
	done    bool
	err     error
}

// OpenCycles opens a grouped iterator over one table of a container
// cell, typically grouping raw data by cycle_number.
func OpenCycles(path, tableName, groupColumn string, opts *container.Options) (*CycleIterator, error) {
	it, err := OpenRecords(path, tableName, opts)
	if err != nil {
		return nil, err
	}
	var field *arrow.Field
	for i, name := range it.columns {
		if name == groupColumn {
			f := it.rdr.Schema().Field(i)
			field = &f
			break
		}
	}
	if field == nil {
		it.Close()
		return nil, errors.Newf(errors.ErrorTypeStreaming, errors.CodeMissingColumn,
			"table %q has no grouping column %q", tableName, groupColumn)
	}
	if field.Type.ID() == arrow.LIST || field.Type.ID() == arrow.FIXED_SIZE_LIST {
		it.Close()
		return nil, errors.Newf(errors.ErrorTypeStreaming, errors.CodeTypeMismatch,
			"grouping column %q holds arrays, need a scalar type", groupColumn)
	}
	return &CycleIterator{it: it, group: groupColumn}, nil
}

// Next assembles the next contiguous group into a sub-table
func (ci *CycleIterator) Next() bool {
	if ci.err != nil || ci.done {
		return false
	}

	if ci.held == nil {
		if !ci.it.Next() {
			ci.err = ci.it.Err()
			ci.done = true
			return false
		}
		row, err := ci.it.Row()
		if err != nil {
			ci.err = err
			return false
		}
		ci.held = row
	}

	cols, err := newGroupColumns(ci.it.columns, ci.held)
	if err != nil {
		ci.err = err
		return false
	}
	groupVal := ci.held[ci.group]
	if err := appendGroupRow(cols, ci.held); err != nil {
		ci.err = err
		return false
	}
	ci.held = nil

	for ci.it.Next() {
		row, err := ci.it.Row()
		if err != nil {
			ci.err = err
			return false
		}
		if row[ci.group] != groupVal {
			ci.held = row
			return ci.finishGroup(cols)
		}
		if err := appendGroupRow(cols, row); err != nil {
			ci.err = err
			return false
		}
	}
	if err := ci.it.Err(); err != nil {
		ci.err = err
		return false
	}
	ci.done = true
	return ci.finishGroup(cols)
}

func (ci *CycleIterator) finishGroup(cols []table.Column) bool {
	t, err := table.FromColumns(cols...)
	if err != nil {
		ci.err = err
		return false
	}
	ci.current = t
	return true
}

// Table returns the sub-table assembled by the last successful Next
func (ci *CycleIterator) Table() *table.Table { return ci.current }

// Err returns the first error encountered while iterating
func (ci *CycleIterator) Err() error { return ci.err }

// Close releases the underlying iterator
func (ci *CycleIterator) Close() error { return ci.it.Close() }

func newGroupColumns(names []string, row map[string]interface{}) ([]table.Column, error) {
	cols := make([]table.Column, len(names))
	for i, name := range names {
		c, err := table.InferColumn(name, row[name])
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return cols, nil
}

func appendGroupRow(cols []table.Column, row map[string]interface{}) error {
	for _, c := range cols {
		if err := c.Append(row[c.Name()]); err != nil {
			return err
		}
	}
	return nil
}
