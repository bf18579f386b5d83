package arrowipc

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/battkit/battkit/pkg/compression"
	"github.com/battkit/battkit/pkg/container"
	"github.com/battkit/battkit/pkg/container/arrowconv"
	"github.com/battkit/battkit/pkg/dataset"
	"github.com/battkit/battkit/pkg/errors"
	"github.com/battkit/battkit/pkg/logger"
	"github.com/battkit/battkit/pkg/metadata"
	"github.com/battkit/battkit/pkg/metrics"
	"github.com/battkit/battkit/pkg/schema"
	"github.com/battkit/battkit/pkg/table"
)

// StreamWriter appends rows to a container cell without ever holding a
// full table in memory. Rows accumulate in a fixed-capacity buffer per
// table; each full buffer is flushed as one Arrow record batch onto the
// table's IPC stream. The first row written to a table fixes that
// table's column set for the whole session.
type StreamWriter struct {
	dir     string
	prefix  string
	comp    compression.Compressor
	alloc   memory.Allocator
	cap     int
	m       *manifest
	schemas map[string]*schema.ColumnSchema
	streams map[string]*tableStream
	order   []string
	closed  bool
}

// tableStream is one table's open IPC stream plus its row buffer
type tableStream struct {
	name     string
	f        *os.File
	cw       io.WriteCloser
	w        *ipc.Writer
	builder  *array.RecordBuilder
	aschema  *arrow.Schema
	names    []string
	index    map[string]int
	buffered int
	rows     int64
}

// NewStreamWriter opens a streaming session on a container. Schemas
// are keyed by table name; tables with no entry fall back to the
// built-in template matching their name. Existing-container handling
// follows the bulk writer: fail, overwrite, or append a new cell.
func NewStreamWriter(path string, meta metadata.BatteryMetadata, schemas map[string]*schema.ColumnSchema, opts *container.Options) (*StreamWriter, error) {
	opts = resolveOptions(opts)
	comp, err := compression.ForLevel(compression.Level(opts.CompressionLevel))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "", "invalid compression level")
	}

	var m *manifest
	switch {
	case !containerExists(path):
		if m, err = newManifest(meta, comp); err != nil {
			return nil, err
		}
	case opts.Overwrite:
		if err := os.RemoveAll(path); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "", "failed to remove existing container")
		}
		if m, err = newManifest(meta, comp); err != nil {
			return nil, err
		}
	case opts.Append:
		if m, err = loadManifest(path); err != nil {
			return nil, err
		}
		if _, taken := m.cell(opts.KeyPrefix); taken {
			return nil, errors.Newf(errors.ErrorTypeContainer, errors.CodeContainerExists,
				"container %s already holds a cell under prefix %q", path, opts.KeyPrefix)
		}
		existing, err := m.metadataDocument()
		if err != nil {
			return nil, err
		}
		if !existing.Equal(&meta) {
			return nil, errors.New(errors.ErrorTypeMetadata, errors.CodeMetadataConflict,
				"session metadata differs from the container's metadata")
		}
		if comp, err = m.compressor(); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Newf(errors.ErrorTypeContainer, errors.CodeContainerExists,
			"container %s already exists", path)
	}

	cellDir := path
	if opts.KeyPrefix != "" {
		cellDir = filepath.Join(path, opts.KeyPrefix)
	}
	if err := os.MkdirAll(cellDir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "", "failed to create container directory")
	}

	metrics.OpenWriters.Inc()
	return &StreamWriter{
		dir:     path,
		prefix:  opts.KeyPrefix,
		comp:    comp,
		alloc:   memory.DefaultAllocator,
		cap:     opts.EffectiveBatchSize(),
		m:       m,
		schemas: schemas,
		streams: make(map[string]*tableStream),
	}, nil
}

// WriteRow buffers one row for the named table, flushing the buffer as
// a record batch when it reaches capacity. Every row after the first
// must carry exactly the same column set with compatible value types.
func (sw *StreamWriter) WriteRow(tableName string, row map[string]interface{}) error {
	if sw.closed {
		return errors.New(errors.ErrorTypeStreaming, errors.CodeWriterClosed,
			"write on a closed streaming session")
	}

	ts, ok := sw.streams[tableName]
	if !ok {
		var err error
		if ts, err = sw.openStream(tableName, row); err != nil {
			return err
		}
		sw.streams[tableName] = ts
		sw.order = append(sw.order, tableName)
	}

	if len(row) != len(ts.names) {
		return errors.Newf(errors.ErrorTypeStreaming, errors.CodeSchemaMismatch,
			"row for table %q has %d columns, session fixed %d", tableName, len(row), len(ts.names))
	}
	// Validate the whole row before touching the builders so a bad row
	// never leaves columns with uneven lengths
	for _, name := range ts.names {
		v, ok := row[name]
		if !ok {
			return errors.Newf(errors.ErrorTypeStreaming, errors.CodeSchemaMismatch,
				"row for table %q is missing column %q fixed by the session", tableName, name)
		}
		if err := checkRowValue(ts.builder.Field(ts.index[name]), name, v); err != nil {
			return err
		}
	}
	for _, name := range ts.names {
		if err := appendRowValue(ts.builder.Field(ts.index[name]), name, row[name]); err != nil {
			return err
		}
	}
	ts.buffered++
	ts.rows++

	if ts.buffered >= sw.cap {
		return sw.flushStream(ts)
	}
	return nil
}

// openStream fixes a table's column order and types from its declared
// schema plus the first row: documented columns come first in schema
// order, undocumented ones follow alphabetically with inferred types.
func (sw *StreamWriter) openStream(tableName string, row map[string]interface{}) (*tableStream, error) {
	s := sw.schemas[tableName]
	if s == nil {
		tmpl, ok := schema.TemplateSchema(templateFor(tableName))
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeStreaming, errors.CodeMissingSchema,
				"no schema supplied for table %q", tableName)
		}
		s = tmpl
	}

	names := streamColumnOrder(s, row)
	fields := make([]arrow.Field, 0, len(names))
	for _, name := range names {
		var (
			dt  arrow.DataType
			err error
		)
		if info, ok := s.Column(name); ok {
			dt, err = arrowconv.TypeForDataType(info.Type)
		} else {
			var col table.Column
			if col, err = table.InferColumn(name, row[name]); err == nil {
				dt, err = arrowconv.TypeForColumn(col)
			}
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeStreaming, errors.CodeSchemaMismatch,
				"cannot type session column")
		}
		fields = append(fields, arrow.Field{Name: name, Type: dt})
	}

	doc, err := s.ToJSON()
	if err != nil {
		return nil, err
	}
	md := arrow.NewMetadata(
		[]string{schemaMetadataKey, versionMetadataKey},
		[]string{string(doc), metadata.Version},
	)
	aschema := arrow.NewSchema(fields, &md)

	f, err := os.Create(tablePath(sw.dir, sw.prefix, tableName))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "", "failed to create table block")
	}
	cw, err := sw.comp.WrapWriter(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeContainer, "", "failed to open compressed stream")
	}

	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}
	return &tableStream{
		name:    tableName,
		f:       f,
		cw:      cw,
		w:       ipc.NewWriter(cw, ipc.WithSchema(aschema), ipc.WithAllocator(sw.alloc)),
		builder: array.NewRecordBuilder(sw.alloc, aschema),
		aschema: aschema,
		names:   names,
		index:   index,
	}, nil
}

func templateFor(tableName string) string {
	switch tableName {
	case dataset.TableRawData:
		return schema.TemplateRawData
	case dataset.TableCycleStats:
		return schema.TemplateCycleStats
	case dataset.TableEISData:
		return schema.TemplateEIS
	}
	return ""
}

func streamColumnOrder(s *schema.ColumnSchema, row map[string]interface{}) []string {
	order := make([]string, 0, len(row))
	seen := make(map[string]bool, len(row))
	for _, name := range s.ColumnNames() {
		if _, ok := row[name]; ok {
			order = append(order, name)
			seen[name] = true
		}
	}
	var extra []string
	for name := range row {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}

// checkRowValue verifies a value can be appended to a builder without
// mutating it
func checkRowValue(b array.Builder, col string, v interface{}) error {
	mismatch := func(want string) error {
		return errors.Newf(errors.ErrorTypeStreaming, errors.CodeSchemaMismatch,
			"column %q holds %s, got %T", col, want, v)
	}
	switch b.(type) {
	case *array.Float64Builder:
		switch v.(type) {
		case float64, float32, int, int64:
		default:
			return mismatch("floats")
		}
	case *array.Int64Builder:
		switch v.(type) {
		case int64, int, int32:
		default:
			return mismatch("integers")
		}
	case *array.StringBuilder:
		if _, ok := v.(string); !ok {
			return mismatch("strings")
		}
	case *array.BooleanBuilder:
		if _, ok := v.(bool); !ok {
			return mismatch("booleans")
		}
	case *array.ListBuilder:
		if _, ok := v.([]float64); !ok {
			return mismatch("float arrays")
		}
	default:
		return errors.Newf(errors.ErrorTypeInternal, "", "unsupported builder type %T", b)
	}
	return nil
}

func appendRowValue(b array.Builder, col string, v interface{}) error {
	mismatch := func(want string) error {
		return errors.Newf(errors.ErrorTypeStreaming, errors.CodeSchemaMismatch,
			"column %q holds %s, got %T", col, want, v)
	}
	switch bb := b.(type) {
	case *array.Float64Builder:
		switch x := v.(type) {
		case float64:
			bb.Append(x)
		case float32:
			bb.Append(float64(x))
		case int:
			bb.Append(float64(x))
		case int64:
			bb.Append(float64(x))
		default:
			return mismatch("floats")
		}
	case *array.Int64Builder:
		switch x := v.(type) {
		case int64:
			bb.Append(x)
		case int:
			bb.Append(int64(x))
		case int32:
			bb.Append(int64(x))
		default:
			return mismatch("integers")
		}
	case *array.StringBuilder:
		x, ok := v.(string)
		if !ok {
			return mismatch("strings")
		}
		bb.Append(x)
	case *array.BooleanBuilder:
		x, ok := v.(bool)
		if !ok {
			return mismatch("booleans")
		}
		bb.Append(x)
	case *array.ListBuilder:
		x, ok := v.([]float64)
		if !ok {
			return mismatch("float arrays")
		}
		bb.Append(true)
		bb.ValueBuilder().(*array.Float64Builder).AppendValues(x, nil)
	default:
		return errors.Newf(errors.ErrorTypeInternal, "", "unsupported builder type %T", b)
	}
	return nil
}

// Flush forces every table's buffered rows onto disk as record batches
func (sw *StreamWriter) Flush() error {
	if sw.closed {
		return errors.New(errors.ErrorTypeStreaming, errors.CodeWriterClosed,
			"flush on a closed streaming session")
	}
	for _, name := range sw.order {
		if err := sw.flushStream(sw.streams[name]); err != nil {
			return err
		}
	}
	return nil
}

func (sw *StreamWriter) flushStream(ts *tableStream) error {
	if ts.buffered == 0 {
		return nil
	}
	rec := ts.builder.NewRecord()
	err := ts.w.Write(rec)
	rec.Release()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStreaming, "", "failed to flush record batch")
	}
	metrics.BufferFlushes.WithLabelValues(ts.name).Inc()
	ts.buffered = 0
	return nil
}

// Close flushes remaining rows, finishes every stream and commits the
// cell to the manifest. All resources are released even on error; the
// first failure is returned. Close is idempotent.
func (sw *StreamWriter) Close() error {
	if sw.closed {
		return nil
	}
	sw.closed = true
	metrics.OpenWriters.Dec()

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	var total int64
	for _, name := range sw.order {
		ts := sw.streams[name]
		keep(sw.closeStream(ts))
		metrics.RowsWritten.WithLabelValues(FormatName, name).Add(float64(ts.rows))
		total += ts.rows
	}
	if firstErr != nil {
		return firstErr
	}

	sw.m.addCell(sw.prefix, append([]string(nil), sw.order...))
	if err := sw.m.save(sw.dir); err != nil {
		return err
	}
	logger.Get().Info("closed streaming session",
		zap.String("container", sw.dir),
		zap.String("cell", sw.prefix),
		zap.Int("tables", len(sw.order)),
		zap.Int64("rows", total),
	)
	return nil
}

func (sw *StreamWriter) closeStream(ts *tableStream) error {
	err := sw.flushStream(ts)
	ts.builder.Release()
	if cerr := ts.w.Close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, errors.ErrorTypeStreaming, "", "failed to finish table block")
	}
	if cerr := ts.cw.Close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, errors.ErrorTypeStreaming, "", "failed to flush compressed stream")
	}
	if cerr := ts.f.Close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, errors.ErrorTypeFile, "", "failed to close table block")
	}
	return err
}
