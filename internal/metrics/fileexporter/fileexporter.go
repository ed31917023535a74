// Package fileexporter writes the pio metrics registry in the prometheus
// text format, for node_exporter's textfile collector.
package fileexporter

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/robert-malhotra/go-pio/internal/metrics"
)

// FileExporter writes metrics.Registry to one file.
type FileExporter struct{ name string }

// New returns an exporter that writes to the file name.
func New(name string) *FileExporter {
	return &FileExporter{
		name: name,
	}
}

// Export replaces the file with the current metric values. The file is
// written to a temporary name and renamed, so readers never see a partial
// file.
func (exp *FileExporter) Export() error {
	return prometheus.WriteToTextfile(exp.name, metrics.Registry)
}
