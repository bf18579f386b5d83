// Package parquet implements the Parquet container format. A container
// is a directory with one `<table>.parquet` file per table. The
// metadata document, the table's column schema and the write date ride
// along as file-level key-value metadata, so each file remains readable
// by any Parquet tool while staying self-describing for battkit.
//
// Parquet containers hold exactly one dataset: key prefixes and
// appending are Arrow IPC container capabilities.
package parquet

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"go.uber.org/zap"

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

// FormatName is the registry name of the Parquet container codec
const FormatName = "parquet"

// File-level key-value metadata keys
const (
	batteryMetadataKey = "battery_metadata"
	tableMetadataKey   = "table_metadata"
	writeDateKey       = "write_date"
)

const fileExt = ".parquet"

// Codec reads and writes Parquet directory containers
type Codec struct {
	alloc memory.Allocator
}

// NewCodec creates a codec with the default allocator
func NewCodec() *Codec {
	return &Codec{alloc: memory.DefaultAllocator}
}

func init() {
	container.Register(NewCodec())
}

// Name returns the registered format name
func (c *Codec) Name() string { return FormatName }

func checkCapabilities(opts *container.Options) error {
	if opts == nil {
		return nil
	}
	if opts.KeyPrefix != "" {
		return errors.New(errors.ErrorTypeCapability, "",
			"parquet containers hold a single dataset, key prefixes are not supported")
	}
	if opts.Append {
		return errors.New(errors.ErrorTypeCapability, "",
			"parquet containers cannot be appended to")
	}
	return nil
}

// Write serializes a dataset into the container directory, one Parquet
// file per table
func (c *Codec) Write(ds *dataset.Dataset, path string, opts *container.Options) error {
	if err := checkCapabilities(opts); err != nil {
		return err
	}
	if opts == nil {
		opts = &container.Options{}
	}
	if opts.CompressionLevel < 0 || opts.CompressionLevel > 9 {
		return errors.Newf(errors.ErrorTypeConfig, "",
			"compression level %d outside range [0, 9]", opts.CompressionLevel)
	}

	if _, err := os.Stat(path); err == nil {
		if !opts.Overwrite {
			return errors.Newf(errors.ErrorTypeContainer, errors.CodeContainerExists,
				"container %s already exists", path)
		}
		if err := os.RemoveAll(path); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "", "failed to remove existing container")
		}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "", "failed to create container directory")
	}

	metaJSON, err := ds.Metadata.ToJSON()
	if err != nil {
		return err
	}
	writeDate := time.Now().Format(metadata.DateFormat)

	log := logger.Get().With(
		zap.String("container", path),
		zap.String("format", FormatName),
	)

	for _, name := range ds.TableNames() {
		t, err := ds.Table(name)
		if err != nil {
			return err
		}
		s, err := ds.Schema(name)
		if err != nil {
			return err
		}
		dst := filepath.Join(path, name+fileExt)
		if err := c.writeTable(dst, t, s, metaJSON, writeDate, opts); err != nil {
			return err
		}
		metrics.RowsWritten.WithLabelValues(FormatName, name).Add(float64(t.NumRows()))
		log.Debug("wrote table file",
			zap.String("table", name),
			zap.Int("rows", t.NumRows()),
		)
	}
	log.Info("wrote container", zap.Int("tables", len(ds.TableNames())))
	return nil
}

func (c *Codec) writeTable(path string, t *table.Table, s *schema.ColumnSchema, metaJSON []byte, writeDate string, opts *container.Options) error {
	fields, err := arrowconv.SchemaFields(t)
	if err != nil {
		return err
	}
	aschema := arrow.NewSchema(fields, nil)

	schemaJSON, err := s.ToJSON()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "", "failed to create table file")
	}

	props := writerProperties(opts.CompressionLevel)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(c.alloc))
	fw, err := pqarrow.NewFileWriter(aschema, f, props, arrowProps)
	if err != nil {
		f.Close()
		return errors.Wrap(err, errors.ErrorTypeContainer, "", "failed to create parquet writer")
	}

	writeErr := func() error {
		for _, kv := range []struct{ k, v string }{
			{batteryMetadataKey, string(metaJSON)},
			{tableMetadataKey, string(schemaJSON)},
			{writeDateKey, writeDate},
		} {
			if err := fw.AppendKeyValueMetadata(kv.k, kv.v); err != nil {
				return errors.Wrap(err, errors.ErrorTypeContainer, "", "failed to attach file metadata")
			}
		}
		batch := opts.EffectiveBatchSize()
		for start := 0; start < t.NumRows(); start += batch {
			end := start + batch
			if end > t.NumRows() {
				end = t.NumRows()
			}
			rec, err := arrowconv.BuildRecord(c.alloc, aschema, t, start, end)
			if err != nil {
				return err
			}
			err = fw.WriteBuffered(rec)
			rec.Release()
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeContainer, "", "failed to write row group")
			}
		}
		return nil
	}()

	if err := fw.Close(); err != nil && writeErr == nil {
		writeErr = errors.Wrap(err, errors.ErrorTypeContainer, "", "failed to finish table file")
	}
	if err := f.Close(); err != nil && writeErr == nil {
		writeErr = errors.Wrap(err, errors.ErrorTypeFile, "", "failed to close table file")
	}
	if writeErr != nil {
		os.Remove(path)
	}
	return writeErr
}

// writerProperties maps the container compression level onto Parquet
// codec settings: level 0 stores uncompressed, anything higher selects
// Zstd at that level.
func writerProperties(level int) *parquet.WriterProperties {
	if level <= 0 {
		return parquet.NewWriterProperties(
			parquet.WithCompression(compress.Codecs.Uncompressed),
		)
	}
	return parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Zstd),
		parquet.WithCompressionLevel(level),
	)
}

// Read reconstructs a dataset from the container directory. Table names
// come from the directory listing; each file's embedded schema document
// is validated against the data before the dataset is handed back.
func (c *Codec) Read(path string, opts *container.Options) (*dataset.Dataset, error) {
	if err := checkCapabilities(opts); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"failed to list container directory")
	}

	tables := make(map[string]*table.Table)
	schemas := make(map[string]*schema.ColumnSchema)
	var meta *metadata.BatteryMetadata

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != fileExt {
			continue
		}
		name := entry.Name()[:len(entry.Name())-len(fileExt)]
		t, s, m, err := c.readTable(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, err
		}
		tables[name] = t
		schemas[name] = s
		metrics.RowsRead.WithLabelValues(FormatName, name).Add(float64(t.NumRows()))
		switch {
		case meta == nil:
			meta = m
		case !meta.Equal(m):
			return nil, errors.Newf(errors.ErrorTypeMetadata, errors.CodeMetadataConflict,
				"table %q carries metadata differing from the container's", name)
		}
	}
	if len(tables) == 0 {
		return nil, errors.Newf(errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"%s holds no parquet table files", path)
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
		for _, issue := range issues {
			if issue.Severity == schema.SeverityError {
				return nil, errors.Newf(errors.ErrorTypeContainer, errors.CodeSchemaDataMismatch,
					"container %s holds data violating its embedded schema: %s", path, issue.Message)
			}
		}
	}
	return ds, nil
}

func (c *Codec) readTable(path string) (*table.Table, *schema.ColumnSchema, *metadata.BatteryMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, errors.ErrorTypeFile, "", "failed to open table file")
	}
	defer f.Close()

	fr, err := file.NewParquetReader(f)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"table file is not a parquet file")
	}
	defer fr.Close()

	kv := fr.MetaData().KeyValueMetadata()
	var metaJSON, schemaJSON *string
	if kv != nil {
		metaJSON = kv.FindValue(batteryMetadataKey)
		schemaJSON = kv.FindValue(tableMetadataKey)
	}
	if metaJSON == nil || schemaJSON == nil {
		return nil, nil, nil, errors.Newf(errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"%s carries no embedded battkit metadata", path)
	}
	meta, err := metadata.FromJSON([]byte(*metaJSON))
	if err != nil {
		return nil, nil, nil, err
	}
	s, err := schema.FromJSON([]byte(*schemaJSON))
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"embedded column schema cannot be parsed")
	}

	ar, err := pqarrow.NewFileReader(fr, pqarrow.ArrowReadProperties{}, c.alloc)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"failed to open arrow reader")
	}
	atbl, err := ar.ReadTable(context.Background())
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"failed to read table file")
	}
	defer atbl.Release()

	cols, err := arrowconv.NewColumns(atbl.Schema())
	if err != nil {
		return nil, nil, nil, err
	}
	tr := array.NewTableReader(atbl, int64(container.DefaultBatchSize))
	defer tr.Release()
	for tr.Next() {
		if err := arrowconv.AppendRecord(cols, tr.Record()); err != nil {
			return nil, nil, nil, err
		}
	}

	t, err := arrowconv.TableFromColumns(cols)
	if err != nil {
		return nil, nil, nil, err
	}
	return t, s, meta, nil
}
