package arrowipc

import (
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"go.uber.org/zap"

	"github.com/battkit/battkit/pkg/compression"
	"github.com/battkit/battkit/pkg/container"
	"github.com/battkit/battkit/pkg/container/arrowconv"
	"github.com/battkit/battkit/pkg/dataset"
	"github.com/battkit/battkit/pkg/errors"
	"github.com/battkit/battkit/pkg/logger"
	"github.com/battkit/battkit/pkg/metrics"
	"github.com/battkit/battkit/pkg/schema"
	"github.com/battkit/battkit/pkg/table"
)

// Read reconstructs one cell's dataset from the container. The cell is
// selected by the key prefix option; the empty prefix names the cell
// written without one. Every table named by the manifest is loaded and
// validated against its embedded schema before the dataset is handed
// back.
func (c *Codec) Read(path string, opts *container.Options) (*dataset.Dataset, error) {
	opts = resolveOptions(opts)

	m, err := loadManifest(path)
	if err != nil {
		return nil, err
	}
	meta, err := m.metadataDocument()
	if err != nil {
		return nil, err
	}
	comp, err := m.compressor()
	if err != nil {
		return nil, err
	}

	cell, ok := m.cell(opts.KeyPrefix)
	if !ok {
		known := make([]string, len(m.Cells))
		for i, cc := range m.Cells {
			known[i] = cc.Prefix
		}
		return nil, errors.Newf(errors.ErrorTypeContainer, errors.CodeUnknownKeyPrefix,
			"container %s has no cell under prefix %q (cells: %s)",
			path, opts.KeyPrefix, strings.Join(known, ", "))
	}

	tables := make(map[string]*table.Table, len(cell.Tables))
	schemas := make(map[string]*schema.ColumnSchema, len(cell.Tables))
	for _, name := range cell.Tables {
		t, s, err := c.readTable(tablePath(path, cell.Prefix, name), comp)
		if err != nil {
			return nil, err
		}
		tables[name] = t
		schemas[name] = s
		metrics.RowsRead.WithLabelValues(FormatName, name).Add(float64(t.NumRows()))
	}

	ds, err := dataset.New(tables, schemas, *meta)
	if err != nil {
		return nil, err
	}

	issues := ds.Validate()
	for _, issue := range issues {
		metrics.ValidationIssues.WithLabelValues(string(issue.Severity)).Inc()
	}
	if schema.HasErrors(issues) {
		first := firstError(issues)
		return nil, errors.Newf(errors.ErrorTypeContainer, errors.CodeSchemaDataMismatch,
			"container %s holds data violating its embedded schema: %s", path, first.Message).
			WithDetail("table", first.Table).
			WithDetail("column", first.Column)
	}

	logger.Get().Debug("read container cell",
		zap.String("container", path),
		zap.String("format", FormatName),
		zap.String("cell", cell.Prefix),
		zap.Int("tables", len(cell.Tables)),
	)
	return ds, nil
}

func firstError(issues []schema.Issue) schema.Issue {
	for _, issue := range issues {
		if issue.Severity == schema.SeverityError {
			return issue
		}
	}
	return schema.Issue{}
}

// readTable loads one table block fully into memory
func (c *Codec) readTable(path string, comp compression.Compressor) (*table.Table, *schema.ColumnSchema, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.Newf(errors.ErrorTypeContainer, errors.CodeCorruptContainer,
				"manifest names block %s but the file is missing", path)
		}
		return nil, nil, errors.Wrap(err, errors.ErrorTypeFile, "", "failed to open table block")
	}
	defer f.Close()

	cr, err := comp.WrapReader(f)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"failed to open compressed stream")
	}
	defer cr.Close()

	rdr, err := ipc.NewReader(cr, ipc.WithAllocator(c.alloc))
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"table block is not an Arrow IPC stream")
	}
	defer rdr.Release()

	s, err := schemaFromArrow(rdr.Schema())
	if err != nil {
		return nil, nil, err
	}
	cols, err := arrowconv.NewColumns(rdr.Schema())
	if err != nil {
		return nil, nil, err
	}

	for rdr.Next() {
		if err := arrowconv.AppendRecord(cols, rdr.Record()); err != nil {
			return nil, nil, err
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"table block is truncated or corrupt")
	}

	t, err := arrowconv.TableFromColumns(cols)
	if err != nil {
		return nil, nil, err
	}
	return t, s, nil
}
