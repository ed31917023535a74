// Package sidefile stores per-cell integer arrays, such as processor ids,
// for tools that import them next to a dump file.
//
// A side file is a zstd stream holding the magic "PIOSIDE1", a little
// endian int64 count, the count little endian int64 values byte shuffled
// and a little endian Fletcher-32 checksum of the unshuffled values.
package sidefile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Magic starts every decompressed side file.
var Magic = [8]byte{'P', 'I', 'O', 'S', 'I', 'D', 'E', '1'}

// Errors
var (
	ErrExists    = errors.New("side file already exists")
	ErrBadFormat = errors.New("not a side file")
)

// Write stores values at path. path must not exist.
func Write(path string, values []int64) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return errors.Wrapf(ErrExists, "%s", path)
		}
		return errors.Wrap(err, "creating side file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing side file")
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return errors.Wrap(err, "creating encoder")
	}
	if err := encode(enc, values); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "finishing zstd stream")
	}
	return nil
}

func encode(w io.Writer, values []int64) error {
	raw := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[i*8:], uint64(v))
	}

	bw := bufio.NewWriter(w)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(values)))
	for _, part := range [][]byte{Magic[:], buf[:], shuffle(raw, 8)} {
		if _, err := bw.Write(part); err != nil {
			return errors.Wrap(err, "writing side file")
		}
	}
	binary.LittleEndian.PutUint32(buf[:4], fletcher32(raw))
	if _, err := bw.Write(buf[:4]); err != nil {
		return errors.Wrap(err, "writing checksum")
	}
	return errors.Wrap(bw.Flush(), "flushing side file")
}

// Read loads the values stored at path.
func Read(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening side file")
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "creating decoder")
	}
	defer dec.Close()

	return decode(bufio.NewReader(dec))
}

func decode(r io.Reader) ([]int64, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, errors.Wrap(ErrBadFormat, err.Error())
	}
	if magic != Magic {
		return nil, errors.Wrapf(ErrBadFormat, "magic %q", magic[:])
	}

	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, errors.Wrap(ErrBadFormat, "reading count")
	}
	n := int64(binary.LittleEndian.Uint64(buf[:]))
	if n < 0 || n > math.MaxInt32 {
		return nil, errors.Wrapf(ErrBadFormat, "count %d", n)
	}

	// The count is not trusted for allocation; the buffer grows with the data.
	var data bytes.Buffer
	if _, err := io.CopyN(&data, r, n*8); err != nil {
		return nil, errors.Wrapf(ErrBadFormat, "reading %d values: %v", n, err)
	}
	shuffled := data.Bytes()
	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return nil, errors.Wrap(ErrBadFormat, "reading checksum")
	}

	raw := unshuffle(shuffled, 8)
	if want, got := binary.LittleEndian.Uint32(buf[:4]), fletcher32(raw); want != got {
		return nil, errors.Wrapf(ErrBadFormat, "checksum mismatch (stored=0x%08x, computed=0x%08x)", want, got)
	}

	values := make([]int64, n)
	for i := range values {
		values[i] = int64(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return values, nil
}

// LeafOnly keeps the values of cells whose daughter is <= 0.
func LeafOnly(values, daughter []int64) ([]int64, error) {
	if len(values) != len(daughter) {
		return nil, errors.Errorf("%d values for %d cells", len(values), len(daughter))
	}
	out := make([]int64, 0, len(values))
	for i, v := range values {
		if daughter[i] <= 0 {
			out = append(out, v)
		}
	}
	return out, nil
}
