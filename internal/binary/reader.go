// Package binary provides low-level word-addressed I/O for PIO container files.
//
// Every position in a PIO file is expressed in 8-byte words. Scalars are stored
// as IEEE-754 doubles even when they are logically integers, so the reader
// offers a double decode path and an integer-truncating one over the same bytes.
package binary

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// WordSize is the size in bytes of one addressable unit.
const WordSize = 8

// ErrTruncated is returned when fewer bytes are available than were requested.
var ErrTruncated = errors.New("truncated read")

// Config holds reader and writer configuration.
type Config struct {
	ByteOrder binary.ByteOrder
}

// DefaultConfig returns the configuration used by files written on
// little-endian hosts, which is every file seen in practice.
func DefaultConfig() Config {
	return Config{ByteOrder: binary.LittleEndian}
}

// maxWords is the largest word count whose byte size fits an int.
const maxWords = math.MaxInt / WordSize

// Reader reads words and raw byte blocks from an io.ReaderAt.
// A Reader owns its position; readers derived with At share only the
// underlying io.ReaderAt.
type Reader struct {
	r     io.ReaderAt
	order binary.ByteOrder
	pos   int64 // byte offset
	size  int64 // bytes, -1 when unknown
}

// NewReader creates a reader positioned at the start of r. When r reports
// its size, as *io.SectionReader and *bytes.Reader do, reads past the end
// fail with ErrTruncated before any buffer is allocated.
func NewReader(r io.ReaderAt, cfg Config) *Reader {
	order := cfg.ByteOrder
	if order == nil {
		order = binary.LittleEndian
	}
	size := int64(-1)
	if s, ok := r.(interface{ Size() int64 }); ok {
		size = s.Size()
	}
	return &Reader{r: r, order: order, size: size}
}

// At returns a new reader positioned at the given word offset.
func (r *Reader) At(word int64) *Reader {
	return &Reader{r: r.r, order: r.order, pos: word * WordSize, size: r.size}
}

// Size returns the size of the underlying data in bytes, or -1 when it is
// unknown.
func (r *Reader) Size() int64 {
	return r.size
}

// Seek moves the reader to the given word offset.
func (r *Reader) Seek(word int64) {
	r.pos = word * WordSize
}

// Pos returns the current position in words. Positions inside a word are
// truncated.
func (r *Reader) Pos() int64 {
	return r.pos / WordSize
}

// ByteOrder returns the configured byte order.
func (r *Reader) ByteOrder() binary.ByteOrder {
	return r.order
}

// ReadFixedBytes reads exactly n raw bytes from the current position.
func (r *Reader) ReadFixedBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	if r.pos < 0 {
		return nil, errors.Errorf("negative byte offset %d", r.pos)
	}
	if r.size >= 0 && int64(n) > r.size-r.pos {
		return nil, errors.Wrapf(ErrTruncated, "wanted %d bytes at byte offset %d, size is %d", n, r.pos, r.size)
	}
	buf := make([]byte, n)
	got, err := r.r.ReadAt(buf, r.pos)
	if got < n {
		if err != nil && err != io.EOF {
			return nil, errors.Wrapf(err, "reading %d bytes at byte offset %d", n, r.pos)
		}
		return nil, errors.Wrapf(ErrTruncated, "wanted %d bytes at byte offset %d, got %d", n, r.pos, got)
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadDoubles reads count consecutive doubles. When count is 1 and force is
// false the result is a scalar; otherwise it is a sequence.
func (r *Reader) ReadDoubles(count int, force bool) (Doubles, error) {
	vals, err := r.readFloats(count)
	if err != nil {
		return Doubles{}, err
	}
	return Doubles{values: vals, scalar: count == 1 && !force}, nil
}

// ReadDouble reads one scalar double.
func (r *Reader) ReadDouble() (float64, error) {
	d, err := r.ReadDoubles(1, false)
	if err != nil {
		return 0, err
	}
	v, _ := d.Scalar()
	return v, nil
}

// ReadInts reads count consecutive doubles and truncates each toward zero.
// The scalar/sequence rule is the same as for ReadDoubles.
func (r *Reader) ReadInts(count int, force bool) (Ints, error) {
	vals, err := r.readFloats(count)
	if err != nil {
		return Ints{}, err
	}
	ints := make([]int64, len(vals))
	for i, v := range vals {
		ints[i] = int64(v)
	}
	return Ints{values: ints, scalar: count == 1 && !force}, nil
}

// ReadInt reads one double and returns it truncated to an integer.
func (r *Reader) ReadInt() (int64, error) {
	v, err := r.ReadDouble()
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

func (r *Reader) readFloats(count int) ([]float64, error) {
	if count < 0 {
		return nil, errors.Errorf("negative element count %d", count)
	}
	if count == 0 {
		return []float64{}, nil
	}
	if count > maxWords {
		return nil, errors.Wrapf(ErrTruncated, "%d words at byte offset %d", count, r.pos)
	}
	buf, err := r.ReadFixedBytes(count * WordSize)
	if err != nil {
		return nil, err
	}
	return DecodeDoubles(buf, r.order), nil
}

// DecodeDoubles decodes a byte slice whose length is a multiple of WordSize.
func DecodeDoubles(buf []byte, order binary.ByteOrder) []float64 {
	out := make([]float64, len(buf)/WordSize)
	for i := range out {
		out[i] = math.Float64frombits(order.Uint64(buf[i*WordSize:]))
	}
	return out
}

// Doubles is the result of a double read: either a bare scalar or a sequence.
type Doubles struct {
	values []float64
	scalar bool
}

// IsScalar reports whether the read produced a scalar.
func (d Doubles) IsScalar() bool { return d.scalar }

// Scalar returns the scalar value. ok is false for sequences.
func (d Doubles) Scalar() (v float64, ok bool) {
	if !d.scalar {
		return 0, false
	}
	return d.values[0], true
}

// Values returns the decoded values. A scalar is returned as a one-element slice.
func (d Doubles) Values() []float64 { return d.values }

// Len returns the number of decoded values.
func (d Doubles) Len() int { return len(d.values) }

// Ints is the integer counterpart of Doubles.
type Ints struct {
	values []int64
	scalar bool
}

// IsScalar reports whether the read produced a scalar.
func (n Ints) IsScalar() bool { return n.scalar }

// Scalar returns the scalar value. ok is false for sequences.
func (n Ints) Scalar() (v int64, ok bool) {
	if !n.scalar {
		return 0, false
	}
	return n.values[0], true
}

// Values returns the decoded values.
func (n Ints) Values() []int64 { return n.values }

// Len returns the number of decoded values.
func (n Ints) Len() int { return len(n.values) }
