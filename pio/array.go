package pio

import (
	"io"

	"github.com/pkg/errors"
	"lukechampine.com/blake3"

	"github.com/robert-malhotra/go-pio/internal/binary"
	"github.com/robert-malhotra/go-pio/internal/index"
)

// ReadArray reads a whole array as doubles. An unknown key returns nil
// with no error.
func (f *File) ReadArray(key string) ([]float64, error) {
	h, err := f.lookup(key)
	if h == nil || err != nil {
		return nil, err
	}
	return f.readDoubles(h, 0, h.Length)
}

// ReadArrayRange reads count doubles starting start elements into the
// array. The range is not checked against the array length; reading past
// the end of the file returns ErrTruncated.
func (f *File) ReadArrayRange(key string, start, count int64) ([]float64, error) {
	if start < 0 || count < 0 {
		return nil, errors.Errorf("invalid range start=%d count=%d", start, count)
	}
	h, err := f.lookup(key)
	if h == nil || err != nil {
		return nil, err
	}
	return f.readDoubles(h, start, count)
}

// ReadArrayAsInt reads a whole array, truncating each double toward zero.
func (f *File) ReadArrayAsInt(key string) ([]int64, error) {
	h, err := f.lookup(key)
	if h == nil || err != nil {
		return nil, err
	}
	if err := f.checkExtent(h, 0, h.Length); err != nil {
		return nil, err
	}
	vals, err := f.reader.At(h.Offset).ReadInts(int(h.Length), true)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", key)
	}
	return vals.Values(), nil
}

// Variable reads the array stored under name and index.
func (f *File) Variable(name string, idx int64) ([]float64, error) {
	return f.ReadArray(index.Key(name, idx))
}

// VariableAsInt reads the array stored under name and index as integers.
func (f *File) VariableAsInt(name string, idx int64) ([]int64, error) {
	return f.ReadArrayAsInt(index.Key(name, idx))
}

// ArrayDigest returns the BLAKE3-256 digest of the raw bytes of an array.
// An unknown key returns nil with no error.
func (f *File) ArrayDigest(key string) ([]byte, error) {
	h, err := f.lookup(key)
	if h == nil || err != nil {
		return nil, err
	}
	if err := f.checkExtent(h, 0, h.Length); err != nil {
		return nil, err
	}

	hasher := blake3.New(32, nil)
	size := h.Length * binary.WordSize
	n, err := io.Copy(hasher, io.NewSectionReader(f.src, h.Offset*binary.WordSize, size))
	if err != nil {
		return nil, errors.Wrapf(err, "hashing %s", key)
	}
	if n != size {
		return nil, errors.Wrapf(ErrTruncated, "hashing %s: got %d of %d bytes", key, n, size)
	}
	return hasher.Sum(nil), nil
}

func (f *File) lookup(key string) (*index.ArrayHeader, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.table.Lookup(key), nil
}

// checkExtent checks that count words from start elements into h lie
// inside the file.
func (f *File) checkExtent(h *index.ArrayHeader, start, count int64) error {
	switch {
	case h.Length < 0 || h.Offset < 0:
		return errors.Wrapf(ErrInvalidFormat, "%s has length %d at word %d", h.Key(), h.Length, h.Offset)
	case h.Offset > f.words || start > f.words-h.Offset || count > f.words-h.Offset-start:
		return errors.Wrapf(ErrTruncated, "%s: %d words at word %d, file ends at word %d", h.Key(), count, h.Offset+start, f.words)
	}
	return nil
}

func (f *File) readDoubles(h *index.ArrayHeader, start, count int64) ([]float64, error) {
	if err := f.checkExtent(h, start, count); err != nil {
		return nil, err
	}
	vals, err := f.reader.At(h.Offset+start).ReadDoubles(int(count), true)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", h.Key())
	}
	return vals.Values(), nil
}
