// Package arrowipc implements the directory container format built on
// Arrow IPC streams. A container is a directory with a manifest.json
// at its root and one `<table>.arrow` stream per table, grouped into
// per-cell subdirectories when cells are written under key prefixes.
// Each stream's schema metadata embeds the table's column schema, so
// every block is self-describing.
package arrowipc

import (
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
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

// FormatName is the registry name of the Arrow IPC container codec
const FormatName = "arrow"

// Codec reads and writes Arrow IPC directory containers
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

func resolveOptions(opts *container.Options) *container.Options {
	if opts == nil {
		return &container.Options{}
	}
	return opts
}

// Write serializes a dataset into the container directory. A fresh
// container is created unless one exists; an existing container fails
// with a container-exists error unless Overwrite replaces it or Append
// adds the dataset as a new cell under an unused key prefix.
func (c *Codec) Write(ds *dataset.Dataset, path string, opts *container.Options) error {
	opts = resolveOptions(opts)
	comp, err := compression.ForLevel(compression.Level(opts.CompressionLevel))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "", "invalid compression level")
	}

	var m *manifest
	switch {
	case !containerExists(path):
		if m, err = newManifest(ds.Metadata, comp); err != nil {
			return err
		}
	case opts.Overwrite:
		if err := os.RemoveAll(path); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "", "failed to remove existing container")
		}
		if m, err = newManifest(ds.Metadata, comp); err != nil {
			return err
		}
	case opts.Append:
		if m, err = loadManifest(path); err != nil {
			return err
		}
		if _, taken := m.cell(opts.KeyPrefix); taken {
			return errors.Newf(errors.ErrorTypeContainer, errors.CodeContainerExists,
				"container %s already holds a cell under prefix %q", path, opts.KeyPrefix)
		}
		existing, err := m.metadataDocument()
		if err != nil {
			return err
		}
		if !existing.Equal(&ds.Metadata) {
			return errors.New(errors.ErrorTypeMetadata, errors.CodeMetadataConflict,
				"dataset metadata differs from the container's metadata")
		}
		// All cells share the container's recorded compression
		if comp, err = m.compressor(); err != nil {
			return err
		}
	default:
		return errors.Newf(errors.ErrorTypeContainer, errors.CodeContainerExists,
			"container %s already exists", path)
	}

	cellDir := path
	if opts.KeyPrefix != "" {
		cellDir = filepath.Join(path, opts.KeyPrefix)
	}
	if err := os.MkdirAll(cellDir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "", "failed to create container directory")
	}

	log := logger.Get().With(
		zap.String("container", path),
		zap.String("format", FormatName),
		zap.String("cell", opts.KeyPrefix),
	)

	batch := opts.EffectiveBatchSize()
	var written []string
	for _, name := range ds.TableNames() {
		t, err := ds.Table(name)
		if err != nil {
			return err
		}
		s, err := ds.Schema(name)
		if err != nil {
			return err
		}
		file := tablePath(path, opts.KeyPrefix, name)
		if err := c.writeTable(file, t, s, comp, batch); err != nil {
			cleanupFiles(written, file)
			return err
		}
		written = append(written, file)
		metrics.RowsWritten.WithLabelValues(FormatName, name).Add(float64(t.NumRows()))
		log.Debug("wrote table block",
			zap.String("table", name),
			zap.Int("rows", t.NumRows()),
		)
	}

	m.addCell(opts.KeyPrefix, ds.TableNames())
	if err := m.save(path); err != nil {
		cleanupFiles(written, "")
		return err
	}
	log.Info("wrote container cell",
		zap.Int("tables", len(written)),
		zap.String("compression", string(comp.Algorithm())),
	)
	return nil
}

// cleanupFiles removes partially written blocks so a failed write
// never leaves a half-populated cell behind
func cleanupFiles(written []string, current string) {
	for _, f := range written {
		os.Remove(f)
	}
	if current != "" {
		os.Remove(current)
	}
}

func (c *Codec) writeTable(path string, t *table.Table, s *schema.ColumnSchema, comp compression.Compressor, batch int) error {
	aschema, err := arrowSchemaForTable(t, s, metadata.Version)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "", "failed to create table block")
	}
	cw, err := comp.WrapWriter(f)
	if err != nil {
		f.Close()
		return errors.Wrap(err, errors.ErrorTypeContainer, "", "failed to open compressed stream")
	}
	w := ipc.NewWriter(cw, ipc.WithSchema(aschema), ipc.WithAllocator(c.alloc))

	writeErr := writeBatches(w, c.alloc, aschema, t, batch)

	if err := w.Close(); err != nil && writeErr == nil {
		writeErr = errors.Wrap(err, errors.ErrorTypeContainer, "", "failed to finish table block")
	}
	if err := cw.Close(); err != nil && writeErr == nil {
		writeErr = errors.Wrap(err, errors.ErrorTypeContainer, "", "failed to flush compressed stream")
	}
	if err := f.Close(); err != nil && writeErr == nil {
		writeErr = errors.Wrap(err, errors.ErrorTypeFile, "", "failed to close table block")
	}
	return writeErr
}

func writeBatches(w *ipc.Writer, alloc memory.Allocator, aschema *arrow.Schema, t *table.Table, batch int) error {
	for start := 0; start < t.NumRows(); start += batch {
		end := start + batch
		if end > t.NumRows() {
			end = t.NumRows()
		}
		rec, err := arrowconv.BuildRecord(alloc, aschema, t, start, end)
		if err != nil {
			return err
		}
		err = w.Write(rec)
		rec.Release()
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeContainer, "", "failed to write record batch")
		}
	}
	return nil
}

// ListCells returns the container's cell prefixes in write order
func (c *Codec) ListCells(path string) ([]string, error) {
	m, err := loadManifest(path)
	if err != nil {
		return nil, err
	}
	prefixes := make([]string, len(m.Cells))
	for i, cell := range m.Cells {
		prefixes[i] = cell.Prefix
	}
	return prefixes, nil
}
