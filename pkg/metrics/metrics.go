// Package metrics provides Prometheus instrumentation for battkit
// container operations. All metrics are registered on the default
// registry at package load; recording them is optional and cheap.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsWritten counts rows persisted per format and table
	RowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "battkit_rows_written_total",
			Help: "Total number of rows written to containers",
		},
		[]string{"format", "table"},
	)

	// RowsRead counts rows read per format and table
	RowsRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "battkit_rows_read_total",
			Help: "Total number of rows read from containers",
		},
		[]string{"format", "table"},
	)

	// BufferFlushes counts streaming writer buffer flushes per table
	BufferFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "battkit_buffer_flushes_total",
			Help: "Total number of streaming write buffer flushes",
		},
		[]string{"table"},
	)

	// OpenWriters tracks currently open streaming writer sessions
	OpenWriters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "battkit_open_stream_writers",
			Help: "Number of streaming writer sessions currently open",
		},
	)

	// ValidationIssues counts validation findings by severity
	ValidationIssues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "battkit_validation_issues_total",
			Help: "Total number of validation issues observed",
		},
		[]string{"severity"},
	)
)
