// Package postprocess derives additional columns and summary tables
// from raw cycling measurements. Enhancers mutate the raw data table
// in place and register any new column on its schema; the summarizer
// builds a fresh per-cycle statistics table.
package postprocess

import (
	"github.com/battkit/battkit/pkg/dataset"
	"github.com/battkit/battkit/pkg/errors"
	"github.com/battkit/battkit/pkg/schema"
	"github.com/battkit/battkit/pkg/table"
)

// Enhancer adds derived columns to a dataset's raw data table
type Enhancer interface {
	// Name identifies the enhancer in logs and errors
	Name() string
	// ColumnNames lists the columns the enhancer adds or replaces
	ColumnNames() []string
	// Enhance computes the derived columns in place
	Enhance(ds *dataset.Dataset) error
}

// run is one contiguous stretch of rows sharing a cycle number
type run struct {
	start, end int // [start, end)
}

// cycleRuns splits the row range into contiguous runs of equal cycle
// numbers. A cycle number that reappears later starts a new run.
func cycleRuns(cycles []int64) []run {
	if len(cycles) == 0 {
		return nil
	}
	var runs []run
	start := 0
	for i := 1; i < len(cycles); i++ {
		if cycles[i] != cycles[start] {
			runs = append(runs, run{start: start, end: i})
			start = i
		}
	}
	return append(runs, run{start: start, end: len(cycles)})
}

// floatColumn fetches a required float column from a table
func floatColumn(t *table.Table, name string) ([]float64, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeDataset, errors.CodeMissingColumn,
			"raw data has no %q column", name)
	}
	fc, ok := c.(*table.Float64Column)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeDataset, errors.CodeTypeMismatch,
			"column %q holds %T, need floats", name, c)
	}
	return fc.Values(), nil
}

// intColumn fetches a required integer column from a table
func intColumn(t *table.Table, name string) ([]int64, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeDataset, errors.CodeMissingColumn,
			"raw data has no %q column", name)
	}
	ic, ok := c.(*table.Int64Column)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeDataset, errors.CodeTypeMismatch,
			"column %q holds %T, need integers", name, c)
	}
	return ic.Values(), nil
}

// setDerived stores a derived column on the table and makes sure the
// schema documents it
func setDerived(t *table.Table, s *schema.ColumnSchema, values []float64, info schema.ColumnInfo) error {
	if err := t.SetColumn(table.NewFloat64Column(info.Name, values)); err != nil {
		return errors.Wrap(err, errors.ErrorTypeDataset, "", "failed to store derived column")
	}
	if !s.Contains(info.Name) {
		if err := s.AddColumn(info); err != nil {
			return err
		}
	}
	return nil
}

// cumTrapezoid integrates y over x by the trapezoidal rule, returning
// the running integral with the same length as the inputs and a zero
// first element.
func cumTrapezoid(x, y []float64) []float64 {
	out := make([]float64, len(x))
	for i := 1; i < len(x); i++ {
		out[i] = out[i-1] + (x[i]-x[i-1])*(y[i]+y[i-1])/2
	}
	return out
}

// rawData fetches the raw data table and schema of a dataset
func rawData(ds *dataset.Dataset) (*table.Table, *schema.ColumnSchema, error) {
	t, err := ds.Table(dataset.TableRawData)
	if err != nil {
		return nil, nil, err
	}
	s, err := ds.Schema(dataset.TableRawData)
	if err != nil {
		return nil, nil, err
	}
	return t, s, nil
}
