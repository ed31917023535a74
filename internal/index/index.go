// Package index decodes and synthesizes PIO trailer records.
//
// The trailer is an ordered list of fixed-size records, one per array. Only
// the name, index, length and offset fields are interpreted; the full record
// bytes are kept so that a rewritten file replays them unchanged.
package index

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	binpkg "github.com/robert-malhotra/go-pio/internal/binary"
	"github.com/robert-malhotra/go-pio/internal/header"
)

/*
Record Layout (W = name width in bytes):
Offset  Size  Description
0       W     Name, space padded
W       8     Index (double)
W+8     8     Length in words (double)
W+16    8     Offset in words (double)
W+24    ...   Reserved up to the index entry length
*/

// ErrNameTooLong is returned when a name does not fit the name field.
var ErrNameTooLong = errors.New("array name exceeds name field width")

// ArrayHeader describes one array stored in the data region.
type ArrayHeader struct {
	Name   string // trimmed
	Index  int64
	Length int64 // elements
	Offset int64 // words from the start of the file

	// Raw is the complete serialized record.
	Raw []byte
}

// Key returns the name table key for this array.
func (a *ArrayHeader) Key() string {
	return Key(a.Name, a.Index)
}

// End returns the word offset just past the array data.
func (a *ArrayHeader) End() int64 {
	return a.Offset + a.Length
}

// Key builds a name table key from a base name and index.
func Key(name string, index int64) string {
	return name + "_" + strconv.FormatInt(index, 10)
}

// Decode parses a record. The record must hold at least the name and the
// three scalar fields.
func Decode(raw []byte, nameWidth int, order binary.ByteOrder) (*ArrayHeader, error) {
	if nameWidth <= 0 || len(raw) < nameWidth+3*binpkg.WordSize {
		return nil, errors.Errorf("record of %d bytes too short for name width %d", len(raw), nameWidth)
	}

	field := func(i int) float64 {
		off := nameWidth + i*binpkg.WordSize
		return math.Float64frombits(order.Uint64(raw[off:]))
	}

	blob := make([]byte, len(raw))
	copy(blob, raw)

	return &ArrayHeader{
		Name:   trimName(raw[:nameWidth]),
		Index:  int64(field(0)),
		Length: int64(field(1)),
		Offset: int64(field(2)),
		Raw:    blob,
	}, nil
}

func trimName(b []byte) string {
	return strings.TrimRight(string(b), " \t\r\n\v\f\x00")
}

// ReadAll decodes h.VariableCount records starting at h.TrailerOffset.
func ReadAll(r *binpkg.Reader, h *header.Header) ([]*ArrayHeader, error) {
	r.Seek(h.TrailerOffset)

	size := h.RecordBytes()
	var headers []*ArrayHeader
	for i := int64(0); i < h.VariableCount; i++ {
		raw, err := r.ReadFixedBytes(size)
		if err != nil {
			return nil, errors.Wrapf(err, "reading trailer record %d", i)
		}
		ah, err := Decode(raw, int(h.NameWidth), r.ByteOrder())
		if err != nil {
			return nil, errors.Wrapf(err, "decoding trailer record %d", i)
		}
		headers = append(headers, ah)
	}
	return headers, nil
}

// Synthesize builds a record for a new array from a template record.
//
// The template bytes are copied, the name field is replaced with name padded
// by spaces, and the four words after it are set to [0, length, offset, 0].
// Any bytes beyond those come from the template unchanged.
func Synthesize(template *ArrayHeader, name string, nameWidth int, length, offset int64, order binary.ByteOrder) (*ArrayHeader, error) {
	if len(name) > nameWidth {
		return nil, errors.Wrapf(ErrNameTooLong, "%q is %d bytes, field holds %d", name, len(name), nameWidth)
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("array name is empty")
	}
	quad := 4 * binpkg.WordSize
	if len(template.Raw) < nameWidth+quad {
		return nil, errors.Errorf("template record %q is %d bytes, need %d", template.Key(), len(template.Raw), nameWidth+quad)
	}

	raw := make([]byte, len(template.Raw))
	copy(raw, template.Raw)

	copy(raw[:nameWidth], strings.Repeat(" ", nameWidth))
	copy(raw, name)

	scalars := binpkg.EncodeDoubles([]float64{0, float64(length), float64(offset), 0}, order)
	copy(raw[nameWidth:nameWidth+quad], scalars)

	return &ArrayHeader{
		Name:   trimName([]byte(name)),
		Index:  0,
		Length: length,
		Offset: offset,
		Raw:    raw,
	}, nil
}
