// Package container defines the contract shared by battkit's on-disk
// container formats. Two codecs implement it: the Arrow IPC container
// (multi-cell, append-capable, streamable) and the Parquet container
// (one dataset per container). Callers pick a codec explicitly; there
// is no runtime format sniffing.
package container

import (
	"sort"
	"sync"

	"github.com/battkit/battkit/pkg/dataset"
)

// Options controls how a dataset is written to or read from a container
type Options struct {
	// CompressionLevel is between 0 (off) and 9 (maximum). It affects
	// on-disk size only; the logical content is identical at any level.
	CompressionLevel int
	// KeyPrefix namespaces one cell's tables within a shared container.
	// Only the Arrow IPC codec supports non-empty prefixes.
	KeyPrefix string
	// Overwrite replaces an existing container instead of failing
	Overwrite bool
	// Append adds a new cell to an existing container under KeyPrefix.
	// The metadata must structurally equal what the container holds.
	Append bool
	// BatchSize is the number of rows per on-disk chunk. Zero selects
	// the codec default.
	BatchSize int
}

// DefaultBatchSize is the chunk size codecs use when none is given
const DefaultBatchSize = 32768

// EffectiveBatchSize resolves the configured batch size
func (o *Options) EffectiveBatchSize() int {
	if o == nil || o.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return o.BatchSize
}

// Codec translates datasets to and from an on-disk representation,
// embedding the column schemas and metadata document as sidecar
// attributes so containers are self-describing.
type Codec interface {
	// Name returns the registered format name
	Name() string
	// Write serializes every table of the dataset to the destination
	Write(ds *dataset.Dataset, path string, opts *Options) error
	// Read reconstructs tables, schemas and metadata from a container
	Read(path string, opts *Options) (*dataset.Dataset, error)
}

// CellLister enumerates the cells sharing one container. Only codecs
// supporting multiple datasets per container implement it.
type CellLister interface {
	// ListCells returns cell prefixes in the order they were written
	ListCells(path string) ([]string, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Codec)
)

// Register adds a codec under its format name. Codecs register
// themselves from package init functions.
func Register(c Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[c.Name()] = c
}

// Get returns the codec registered under the given format name
func Get(name string) (Codec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[name]
	return c, ok
}

// Formats lists the registered format names alphabetically
func Formats() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
