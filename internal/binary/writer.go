package binary

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
)

// DefaultBufferSize is the buffer used by NewWriter.
const DefaultBufferSize = 1 << 20

// Writer writes words and raw byte blocks sequentially to an io.Writer.
// Writes are buffered; callers must Flush before closing the destination.
type Writer struct {
	w     *bufio.Writer
	order binary.ByteOrder
	pos   int64 // bytes written
}

// NewWriter creates a buffered writer.
func NewWriter(w io.Writer, cfg Config) *Writer {
	order := cfg.ByteOrder
	if order == nil {
		order = binary.LittleEndian
	}
	return &Writer{
		w:     bufio.NewWriterSize(w, DefaultBufferSize),
		order: order,
	}
}

// Pos returns the number of whole words written so far.
func (w *Writer) Pos() int64 {
	return w.pos / WordSize
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	n, err := w.w.Write(data)
	w.pos += int64(n)
	return err
}

// WriteDoubles writes each value as a double.
func (w *Writer) WriteDoubles(vals []float64) error {
	if len(vals) == 0 {
		return nil
	}
	return w.WriteBytes(EncodeDoubles(vals, w.order))
}

// WriteZeroWords writes n zero words.
func (w *Writer) WriteZeroWords(n int64) error {
	if n <= 0 {
		return nil
	}
	zeros := make([]byte, n*WordSize)
	return w.WriteBytes(zeros)
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// ByteOrder returns the configured byte order.
func (w *Writer) ByteOrder() binary.ByteOrder {
	return w.order
}

// EncodeDoubles encodes values as consecutive doubles.
func EncodeDoubles(vals []float64, order binary.ByteOrder) []byte {
	buf := make([]byte, len(vals)*WordSize)
	for i, v := range vals {
		order.PutUint64(buf[i*WordSize:], math.Float64bits(v))
	}
	return buf
}
