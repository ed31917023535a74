// Package piotest builds small PIO containers for tests.
package piotest

import (
	"bytes"
	"os"
	"testing"

	binpkg "github.com/robert-malhotra/go-pio/internal/binary"
	"github.com/robert-malhotra/go-pio/internal/header"
)

// Array is one array of a fixture file.
type Array struct {
	Name   string
	Index  int64
	Values []float64

	// Reserved fills the record bytes after the offset field. It is
	// truncated or zero padded to fit.
	Reserved []byte
}

// Spec describes a fixture file. Zero fields take the defaults used by
// Default.
type Spec struct {
	Tag              string
	Version          int64
	NameWidth        int64
	HeaderLength     int64
	IndexEntryLength int64
	Timestamp        string
	FileSignature    int64
	Arrays           []Array
}

// Default returns a spec with the layout constants found in xRage dumps
// and no arrays.
func Default() Spec {
	return Spec{
		Tag:              "pio_file",
		Version:          4,
		NameWidth:        32,
		HeaderLength:     16,
		IndexEntryLength: 10,
		Timestamp:        "20210317100000  ",
		FileSignature:    8675309,
	}
}

func (s Spec) withDefaults() Spec {
	d := Default()
	if s.Tag == "" {
		s.Tag = d.Tag
	}
	if s.Version == 0 {
		s.Version = d.Version
	}
	if s.NameWidth == 0 {
		s.NameWidth = d.NameWidth
	}
	if s.HeaderLength == 0 {
		s.HeaderLength = d.HeaderLength
	}
	if s.IndexEntryLength == 0 {
		s.IndexEntryLength = d.IndexEntryLength
	}
	if s.Timestamp == "" {
		s.Timestamp = d.Timestamp
	}
	if s.FileSignature == 0 {
		s.FileSignature = d.FileSignature
	}
	return s
}

// Bytes serializes the fixture. Arrays are laid out in order right after the
// header, followed by the trailer.
func Bytes(s Spec) []byte {
	s = s.withDefaults()

	var dataWords int64
	for _, a := range s.Arrays {
		dataWords += int64(len(a.Values))
	}

	h := &header.Header{
		Version:          s.Version,
		NameWidth:        s.NameWidth,
		HeaderLength:     s.HeaderLength,
		IndexEntryLength: s.IndexEntryLength,
		VariableCount:    int64(len(s.Arrays)),
		TrailerOffset:    s.HeaderLength + dataWords,
		FileSignature:    s.FileSignature,
	}
	copy(h.Tag[:], s.Tag)
	copy(h.Timestamp[:], s.Timestamp)

	var buf bytes.Buffer
	w := binpkg.NewWriter(&buf, binpkg.DefaultConfig())
	if err := h.Write(w); err != nil {
		panic(err)
	}

	for _, a := range s.Arrays {
		if err := w.WriteDoubles(a.Values); err != nil {
			panic(err)
		}
	}

	offset := s.HeaderLength
	for _, a := range s.Arrays {
		if err := w.WriteBytes(Record(s, a, offset)); err != nil {
			panic(err)
		}
		offset += int64(len(a.Values))
	}

	if err := w.Flush(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Record serializes the trailer record of a placed at offset.
func Record(s Spec, a Array, offset int64) []byte {
	s = s.withDefaults()
	rec := make([]byte, s.IndexEntryLength*binpkg.WordSize)
	for i := 0; i < int(s.NameWidth); i++ {
		rec[i] = ' '
	}
	copy(rec, a.Name)
	scalars := binpkg.EncodeDoubles([]float64{float64(a.Index), float64(len(a.Values)), float64(offset)}, binpkg.DefaultConfig().ByteOrder)
	if int(s.NameWidth) < len(rec) {
		copy(rec[s.NameWidth:], scalars)
	}
	if off := int(s.NameWidth) + len(scalars); off < len(rec) {
		copy(rec[off:], a.Reserved)
	}
	return rec
}

// Write writes the fixture to path, failing the test on error.
func Write(t testing.TB, path string, s Spec) {
	t.Helper()
	if err := os.WriteFile(path, Bytes(s), 0644); err != nil {
		t.Fatalf("writing fixture %s: %v", path, err)
	}
}

// Fill returns n copies of v.
func Fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Ramp returns start, start+1, ... of length n.
func Ramp(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

// Chain1D returns the arrays of a 1D mesh of n leaf cells where the end
// cells reference themselves across the domain edge, as AMR codes store
// boundary neighbors. Neighbor indices are 1-based.
func Chain1D(n int) []Array {
	low := make([]float64, n)
	high := make([]float64, n)
	for i := 0; i < n; i++ {
		low[i] = float64(i) // cell i-1, 1-based
		high[i] = float64(i + 2)
	}
	low[0] = 1
	high[n-1] = float64(n)
	return []Array{
		{Name: "cell_center", Index: 1, Values: Ramp(n, 0.5)},
		{Name: "cell_daughter", Index: 0, Values: make([]float64, n)},
		{Name: "cell_index", Index: 1, Values: low},
		{Name: "cell_index", Index: 2, Values: high},
		{Name: "pres", Index: 0, Values: Fill(n, 1.25)},
	}
}
