// Package battkit curates battery cycling data: schema-validated
// tables, structured experiment metadata, and self-describing on-disk
// containers.
//
// # Architecture
//
// battkit separates four concerns:
//
// 1. Tables (pkg/table): column-oriented 2-D data with ordered, typed
// columns. Row order is significant and preserved across every
// serialization round-trip.
//
// 2. Schemas (pkg/schema): per-table column documentation with types,
// units and constraints. Built-in templates cover raw time-series data,
// per-cycle statistics and impedance spectra; validation yields issue
// records rather than panics.
//
// 3. Metadata (pkg/metadata): a versioned document describing the cell,
// the protocol and the provenance of an experiment, shared by every
// table of a dataset.
//
// 4. Containers (pkg/container): self-describing directory formats.
// The Arrow IPC codec supports multiple cells per container, in-session
// streaming writes and bounded-memory reads; the Parquet codec trades
// those for interoperability with the wider columnar ecosystem.
//
// # Quick Start
//
// Build a dataset for one cell and write it:
//
//	meta := metadata.New()
//	meta.Name = "cell_42"
//
//	ds, err := dataset.NewCellDataset(meta, dataset.CellTables{RawData: raw})
//	if err != nil {
//	    return err
//	}
//
//	codec, _ := container.Get("arrow")
//	err = codec.Write(ds, "cell_42.battkit", &container.Options{CompressionLevel: 5})
//
// Read it back elsewhere:
//
//	ds, err := codec.Read("cell_42.battkit", nil)
package battkit
