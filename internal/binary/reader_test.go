package binary

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bytesReaderAt wraps a byte slice to implement io.ReaderAt.
type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, nil
	}
	n := copy(p, b[off:])
	return n, nil
}

func doublesBytes(vals ...float64) bytesReaderAt {
	var buf bytes.Buffer
	for _, v := range vals {
		binary.Write(&buf, binary.LittleEndian, math.Float64bits(v))
	}
	return buf.Bytes()
}

func TestReaderScalarSequenceDuality(t *testing.T) {
	data := doublesBytes(42.5)

	r := NewReader(data, DefaultConfig())
	unforced, err := r.ReadDoubles(1, false)
	require.NoError(t, err)
	assert.True(t, unforced.IsScalar())
	v, ok := unforced.Scalar()
	assert.True(t, ok)
	assert.Equal(t, 42.5, v)

	r = NewReader(data, DefaultConfig())
	forced, err := r.ReadDoubles(1, true)
	require.NoError(t, err)
	assert.False(t, forced.IsScalar())
	_, ok = forced.Scalar()
	assert.False(t, ok)
	assert.Equal(t, []float64{42.5}, forced.Values())
	assert.Equal(t, unforced.Values(), forced.Values())
}

func TestReaderReadDoublesSequence(t *testing.T) {
	r := NewReader(doublesBytes(1, 2, 3, 4), DefaultConfig())

	d, err := r.ReadDoubles(3, false)
	require.NoError(t, err)
	assert.False(t, d.IsScalar())
	assert.Equal(t, []float64{1, 2, 3}, d.Values())
	assert.Equal(t, int64(3), r.Pos())

	v, err := r.ReadDouble()
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)
}

func TestReaderReadIntsTruncates(t *testing.T) {
	r := NewReader(doublesBytes(7.9, -2.7, 3.0), DefaultConfig())

	scalar, err := r.ReadInts(1, false)
	require.NoError(t, err)
	v, ok := scalar.Scalar()
	require.True(t, ok)
	assert.Equal(t, int64(7), v)

	seq, err := r.ReadInts(2, false)
	require.NoError(t, err)
	assert.Equal(t, []int64{-2, 3}, seq.Values())

	r.Seek(0)
	forced, err := r.ReadInts(1, true)
	require.NoError(t, err)
	assert.False(t, forced.IsScalar())
	assert.Equal(t, 1, forced.Len())
}

func TestReaderFixedBytesAdvancesWords(t *testing.T) {
	data := append([]byte("PIO_FILE"), doublesBytes(2.0)...)
	r := NewReader(bytesReaderAt(data), DefaultConfig())

	sig, err := r.ReadFixedBytes(8)
	require.NoError(t, err)
	assert.Equal(t, "PIO_FILE", string(sig))
	assert.Equal(t, int64(1), r.Pos())

	v, err := r.ReadDouble()
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
	assert.Equal(t, int64(2), r.Pos())
}

func TestReaderTruncation(t *testing.T) {
	tests := []struct {
		name string
		read func(r *Reader) error
	}{
		{"doubles", func(r *Reader) error { _, err := r.ReadDoubles(3, false); return err }},
		{"ints", func(r *Reader) error { _, err := r.ReadInts(3, true); return err }},
		{"bytes", func(r *Reader) error { _, err := r.ReadFixedBytes(17); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(doublesBytes(1, 2), DefaultConfig())
			err := tt.read(r)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTruncated), "got %v", err)
			assert.Equal(t, int64(0), r.Pos(), "failed read must not move the cursor")
		})
	}
}

func TestReaderAtIndependentPosition(t *testing.T) {
	r := NewReader(doublesBytes(10, 20, 30), DefaultConfig())

	sub := r.At(2)
	v, err := sub.ReadDouble()
	require.NoError(t, err)
	assert.Equal(t, 30.0, v)

	assert.Equal(t, int64(0), r.Pos())
	v, err = r.ReadDouble()
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)
}

func TestReaderZeroCount(t *testing.T) {
	r := NewReader(bytesReaderAt{}, DefaultConfig())

	d, err := r.ReadDoubles(0, false)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Len())
	assert.False(t, d.IsScalar())

	_, err = r.ReadDoubles(-1, false)
	assert.Error(t, err)
}

func TestReaderBigEndian(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, math.Float64bits(3.25))

	r := NewReader(bytesReaderAt(buf.Bytes()), Config{ByteOrder: binary.BigEndian})
	v, err := r.ReadDouble()
	require.NoError(t, err)
	assert.Equal(t, 3.25, v)
}

func TestReaderSizedRejectsOverrun(t *testing.T) {
	data := doublesBytes(1, 2, 3)
	r := NewReader(bytes.NewReader(data), DefaultConfig())
	assert.Equal(t, int64(24), r.Size())

	tests := []struct {
		name string
		at   int64
		read func(r *Reader) error
	}{
		{"one past end", 1, func(r *Reader) error { _, err := r.ReadDoubles(3, true); return err }},
		{"corrupt length", 0, func(r *Reader) error { _, err := r.ReadDoubles(1e17, true); return err }},
		{"overflowing count", 0, func(r *Reader) error { _, err := r.ReadInts(math.MaxInt, true); return err }},
		{"past end", 10, func(r *Reader) error { _, err := r.ReadFixedBytes(8); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.read(r.At(tt.at))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTruncated), "got %v", err)
		})
	}

	d, err := r.At(1).ReadDoubles(2, true)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, d.Values())

	assert.Equal(t, int64(-1), NewReader(data, DefaultConfig()).Size())
}
