// Package header handles the fixed header block at the start of a PIO file.
package header

import (
	"bytes"
	"math"

	"github.com/pkg/errors"

	binpkg "github.com/robert-malhotra/go-pio/internal/binary"
)

/*
Header Layout (offsets in bytes):
Offset  Size  Description
0       8     Signature, "pio_file" in any case
8       8     Format marker, always 2.0
16      8     Version
24      8     Name field width (bytes)
32      8     Header length (words)
40      8     Index entry length (words)
48      16    Timestamp, opaque
64      8     Variable count
72      8     Trailer offset (words)
80      8     File signature
88      ...   Zero padding up to header length

Every numeric field is stored as a double.
*/

// Signature is the file type tag, compared case-insensitively.
var Signature = []byte("pio_file")

// FormatMarker is the value stored in the second word of every PIO file.
const FormatMarker = 2.0

// FixedWords is the number of words occupied by the defined header fields.
const FixedWords = 11

// The record decoder needs room for the name plus index, length and offset.
const recordScalarBytes = 3 * binpkg.WordSize

// maxWords keeps word counts small enough that their byte size fits an int64.
const maxWords = math.MaxInt64 / binpkg.WordSize

// Errors
var (
	ErrInvalidFormat = errors.New("invalid PIO format")
)

// Header contains the fixed PIO header fields.
type Header struct {
	// Tag is the signature as found in the file.
	Tag [8]byte

	Version int64

	// NameWidth is the width of the name field of a trailer record, in bytes.
	NameWidth int64

	// HeaderLength is the size of the header block in words. The data
	// region starts right after it.
	HeaderLength int64

	// IndexEntryLength is the size of one trailer record in words.
	IndexEntryLength int64

	Timestamp [16]byte

	VariableCount int64

	// TrailerOffset is the word offset of the first trailer record, which
	// is also the end of the data region.
	TrailerOffset int64

	FileSignature int64
}

// Read parses the header block from the start of r.
func Read(r *binpkg.Reader) (*Header, error) {
	r.Seek(0)

	tag, err := r.ReadFixedBytes(len(Signature))
	if err != nil {
		return nil, errors.Wrap(err, "reading signature")
	}
	if !bytes.EqualFold(tag, Signature) {
		return nil, errors.Wrapf(ErrInvalidFormat, "signature %q", tag)
	}

	marker, err := r.ReadDouble()
	if err != nil {
		return nil, errors.Wrap(err, "reading format marker")
	}
	if marker != FormatMarker {
		return nil, errors.Wrapf(ErrInvalidFormat, "format marker is %v, expected %v", marker, FormatMarker)
	}

	h := &Header{}
	copy(h.Tag[:], tag)

	lead, err := r.ReadInts(4, true)
	if err != nil {
		return nil, errors.Wrap(err, "reading element lengths")
	}
	v := lead.Values()
	h.Version, h.NameWidth, h.HeaderLength, h.IndexEntryLength = v[0], v[1], v[2], v[3]

	ts, err := r.ReadFixedBytes(len(h.Timestamp))
	if err != nil {
		return nil, errors.Wrap(err, "reading timestamp")
	}
	copy(h.Timestamp[:], ts)

	tail, err := r.ReadInts(3, true)
	if err != nil {
		return nil, errors.Wrap(err, "reading variable count")
	}
	v = tail.Values()
	h.VariableCount, h.TrailerOffset, h.FileSignature = v[0], v[1], v[2]

	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// Validate checks that the lengths describe a decodable file.
func (h *Header) Validate() error {
	switch {
	case h.HeaderLength < FixedWords:
		return errors.Wrapf(ErrInvalidFormat, "header length %d is shorter than %d words", h.HeaderLength, FixedWords)
	case h.HeaderLength > maxWords || h.IndexEntryLength > maxWords || h.TrailerOffset > maxWords:
		return errors.Wrapf(ErrInvalidFormat, "word counts out of range: header %d, index entry %d, trailer %d", h.HeaderLength, h.IndexEntryLength, h.TrailerOffset)
	case h.NameWidth <= 0:
		return errors.Wrapf(ErrInvalidFormat, "name width %d", h.NameWidth)
	case h.NameWidth > h.IndexEntryLength*binpkg.WordSize-recordScalarBytes:
		return errors.Wrapf(ErrInvalidFormat, "index entry of %d words cannot hold a %d byte name", h.IndexEntryLength, h.NameWidth)
	case h.VariableCount < 0:
		return errors.Wrapf(ErrInvalidFormat, "variable count %d", h.VariableCount)
	case h.TrailerOffset < h.HeaderLength:
		return errors.Wrapf(ErrInvalidFormat, "trailer offset %d lies inside the header", h.TrailerOffset)
	}
	return nil
}

// CheckSize checks that the trailer fits in a file of size bytes. h must
// be valid.
func (h *Header) CheckSize(size int64) error {
	words := size / binpkg.WordSize
	if h.TrailerOffset > words {
		return errors.Wrapf(binpkg.ErrTruncated, "trailer offset %d is past the end of the file at word %d", h.TrailerOffset, words)
	}
	if h.VariableCount > (words-h.TrailerOffset)/h.IndexEntryLength {
		return errors.Wrapf(binpkg.ErrTruncated, "%d records of %d words do not fit between word %d and the end of the file at word %d",
			h.VariableCount, h.IndexEntryLength, h.TrailerOffset, words)
	}
	return nil
}

// RecordBytes returns the size in bytes of one trailer record.
func (h *Header) RecordBytes() int {
	return int(h.IndexEntryLength * binpkg.WordSize)
}

// Clone returns a copy of h.
func (h *Header) Clone() *Header {
	c := *h
	return &c
}

// Write writes the header block, zero padded to HeaderLength words.
func (h *Header) Write(w *binpkg.Writer) error {
	start := w.Pos()

	if err := w.WriteBytes(h.Tag[:]); err != nil {
		return err
	}
	lead := []float64{
		FormatMarker,
		float64(h.Version),
		float64(h.NameWidth),
		float64(h.HeaderLength),
		float64(h.IndexEntryLength),
	}
	if err := w.WriteDoubles(lead); err != nil {
		return err
	}
	if err := w.WriteBytes(h.Timestamp[:]); err != nil {
		return err
	}
	tail := []float64{
		float64(h.VariableCount),
		float64(h.TrailerOffset),
		float64(h.FileSignature),
	}
	if err := w.WriteDoubles(tail); err != nil {
		return err
	}

	return w.WriteZeroWords(h.HeaderLength - (w.Pos() - start))
}
