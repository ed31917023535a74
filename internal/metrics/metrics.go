// Package metrics records clone estimates and append throughput as
// prometheus metrics that are exported to a text file for node_exporter's
// textfile collector.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Exporter publishes the registered metrics somewhere outside the process.
type Exporter interface {
	Export() error
}

const (
	namespace = "pio"
)

var (
	cloneCells = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "clone",
			Name:      "cells",
			Help:      "Estimated clone cells. Broken down by dump file and processor count.",
		},
		[]string{"file", "nprocs"},
	)

	motherCells = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mesh",
			Name:      "mother_cells",
			Help:      "Refined (mother) cells in a dump file.",
		},
		[]string{"file"},
	)

	topCells = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mesh",
			Name:      "top_cells",
			Help:      "Leaf (top level) cells in a dump file.",
		},
		[]string{"file"},
	)

	appendWords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "append",
			Name:      "words_total",
			Help:      "Words written by the append engine. Broken down by copied data and new array data.",
		},
		[]string{"kind"},
	)

	appendDuration = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "append",
			Name:      "duration_seconds_total",
			Help:      "Total time spent rewriting dump files.",
		},
	)
)

var register sync.Once

// Registry holds the metrics of this package once Register is called.
var Registry = prometheus.NewRegistry()

// Register registers metrics. Only the first call has an effect.
func Register() {
	register.Do(func() {
		Registry.MustRegister(cloneCells, motherCells, topCells, appendWords, appendDuration)
	})
}

// CloneEstimate records the clone count of one dump file under nProcs
// processors, with its mother and top cell counts.
func CloneEstimate(file string, nProcs int, clones, mothers, top int64) {
	cloneCells.WithLabelValues(file, strconv.Itoa(nProcs)).Set(float64(clones))
	motherCells.WithLabelValues(file).Set(float64(mothers))
	topCells.WithLabelValues(file).Set(float64(top))
}

// Append records the words written by one append and the time it took
// since start.
func Append(copiedWords, newWords int64, start time.Time) {
	appendWords.WithLabelValues("copied").Add(float64(copiedWords))
	appendWords.WithLabelValues("appended").Add(float64(newWords))
	appendDuration.Add(time.Since(start).Seconds())
}
