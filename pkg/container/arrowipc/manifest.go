package arrowipc

import (
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/battkit/battkit/pkg/compression"
	"github.com/battkit/battkit/pkg/errors"
	"github.com/battkit/battkit/pkg/metadata"
)

const manifestName = "manifest.json"

// manifest is the container's root document. It records the library
// version that wrote the container, the shared metadata document, the
// compression settings, and the cells in the order they were written.
type manifest struct {
	FormatVersion    string                `json:"format_version"`
	Compression      compression.Algorithm `json:"compression"`
	CompressionLevel int                   `json:"compression_level"`
	Metadata         json.RawMessage       `json:"metadata"`
	Cells            []manifestCell        `json:"cells"`
}

type manifestCell struct {
	Prefix string   `json:"prefix"`
	Tables []string `json:"tables"`
}

// newManifest builds a manifest for a fresh container
func newManifest(meta metadata.BatteryMetadata, comp compression.Compressor) (*manifest, error) {
	doc, err := meta.ToJSON()
	if err != nil {
		return nil, err
	}
	return &manifest{
		FormatVersion:    metadata.Version,
		Compression:      comp.Algorithm(),
		CompressionLevel: int(comp.Level()),
		Metadata:         doc,
	}, nil
}

// containerExists reports whether the directory holds a container
func containerExists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, manifestName))
	return err == nil
}

// loadManifest reads and parses the container's root document
func loadManifest(dir string) (*manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrorTypeContainer, errors.CodeCorruptContainer,
				"%s is not a container: no %s", dir, manifestName)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "", "failed to read container manifest")
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"container manifest cannot be parsed")
	}
	if m.FormatVersion == "" {
		return nil, errors.New(errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"container manifest carries no format version")
	}
	if !m.Compression.Valid() {
		return nil, errors.Newf(errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"container manifest names unknown compression %q", m.Compression)
	}
	return &m, nil
}

// save writes the manifest atomically via a rename
func (m *manifest) save(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeContainer, "", "failed to serialize container manifest")
	}
	tmp := filepath.Join(dir, manifestName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "", "failed to write container manifest")
	}
	if err := os.Rename(tmp, filepath.Join(dir, manifestName)); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "", "failed to commit container manifest")
	}
	return nil
}

// cell returns the recorded cell for a prefix
func (m *manifest) cell(prefix string) (*manifestCell, bool) {
	for i := range m.Cells {
		if m.Cells[i].Prefix == prefix {
			return &m.Cells[i], true
		}
	}
	return nil, false
}

// addCell appends a cell, keeping write order
func (m *manifest) addCell(prefix string, tables []string) {
	m.Cells = append(m.Cells, manifestCell{Prefix: prefix, Tables: tables})
}

// metadataDocument parses the manifest's embedded metadata. Version
// and field errors from the metadata package pass through untouched so
// callers can distinguish an unreadable container from one written by
// a newer library.
func (m *manifest) metadataDocument() (*metadata.BatteryMetadata, error) {
	return metadata.FromJSON(m.Metadata)
}

// compressor reconstructs the compressor the container was written with
func (m *manifest) compressor() (compression.Compressor, error) {
	return compression.New(m.Compression, compression.Level(m.CompressionLevel))
}

// tablePath resolves the on-disk file for one cell's table
func tablePath(dir, prefix, table string) string {
	if prefix == "" {
		return filepath.Join(dir, table+".arrow")
	}
	return filepath.Join(dir, prefix, table+".arrow")
}
