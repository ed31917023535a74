package pio

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/robert-malhotra/go-pio/internal/binary"
	"github.com/robert-malhotra/go-pio/internal/header"
	"github.com/robert-malhotra/go-pio/internal/index"
)

// File represents an open PIO file.
type File struct {
	path   string
	file   *os.File
	src    io.ReaderAt
	reader *binary.Reader
	header *header.Header
	table  *index.Table
	closed bool

	words   int64 // file size
	numCell int64
	dim     int
	dims    []Dims

	log zerolog.Logger
}

// ArrayHeader describes one array in the trailer.
type ArrayHeader = index.ArrayHeader

// Dims summarizes the arrays sharing a base name.
type Dims struct {
	Name string

	// Width is the number of indexed arrays with this name.
	Width int

	// Length is the length of the last array with this name in trailer
	// order.
	Length int64
}

// Open opens a PIO file for reading.
func Open(path string, opts ...Option) (*File, error) {
	o := defaultFileOptions()
	for _, opt := range opts {
		opt(o)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "stat file")
	}

	pf, err := newFile(io.NewSectionReader(f, 0, st.Size()), path, o)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	pf.file = f
	return pf, nil
}

func newFile(r *io.SectionReader, path string, o *fileOptions) (*File, error) {
	reader := binary.NewReader(r, binary.DefaultConfig())

	h, err := header.Read(reader.At(0))
	if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	if err := h.CheckSize(r.Size()); err != nil {
		return nil, errors.Wrap(err, "checking trailer")
	}

	records, err := index.ReadAll(reader.At(h.TrailerOffset), h)
	if err != nil {
		return nil, errors.Wrap(err, "reading trailer")
	}

	log := o.logger.With().Str("file", path).Logger()

	table, shadowed := index.NewTable(records)
	for _, key := range shadowed {
		log.Debug().Str("key", key).Msg("duplicate array key, later record wins")
	}

	center := table.Lookup(CellCenterKey)
	if center == nil {
		return nil, errors.Wrapf(ErrMissingRequiredArray, "%s", CellCenterKey)
	}

	pf := &File{
		path:    path,
		src:     r,
		reader:  reader,
		header:  h,
		table:   table,
		words:   r.Size() / binary.WordSize,
		numCell: center.Length,
		dim:     1,
		log:     log,
	}
	switch {
	case table.Has("cell_center_3"):
		pf.dim = 3
	case table.Has("cell_center_2"):
		pf.dim = 2
	}
	pf.dims = listDims(records)

	log.Debug().
		Int64("version", h.Version).
		Int64("variables", h.VariableCount).
		Int64("cells", pf.numCell).
		Int("dim", pf.dim).
		Msg("opened")

	return pf, nil
}

func listDims(records []*index.ArrayHeader) []Dims {
	byName := make(map[string]*Dims)
	for _, r := range records {
		d, ok := byName[r.Name]
		if !ok {
			d = &Dims{Name: r.Name}
			byName[r.Name] = d
		}
		d.Width++
		d.Length = r.Length
	}
	out := make([]Dims, 0, len(byName))
	for _, d := range byName {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Close closes the file. Closing twice is a no-op.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.file == nil {
		return nil
	}
	return f.file.Close()
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// NumCell returns the number of cells, the length of cell_center_1.
func (f *File) NumCell() int64 {
	return f.numCell
}

// Dim returns the mesh dimensionality.
func (f *File) Dim() int {
	return f.dim
}

// Version returns the format version.
func (f *File) Version() int64 {
	return f.header.Version
}

// NameWidth returns the width of the trailer name field in bytes.
func (f *File) NameWidth() int64 {
	return f.header.NameWidth
}

// HeaderLength returns the header block size in words.
func (f *File) HeaderLength() int64 {
	return f.header.HeaderLength
}

// IndexEntryLength returns the trailer record size in words.
func (f *File) IndexEntryLength() int64 {
	return f.header.IndexEntryLength
}

// VariableCount returns the number of trailer records.
func (f *File) VariableCount() int64 {
	return f.header.VariableCount
}

// TrailerOffset returns the word offset of the trailer.
func (f *File) TrailerOffset() int64 {
	return f.header.TrailerOffset
}

// FileSignature returns the signature word stored in the header.
func (f *File) FileSignature() int64 {
	return f.header.FileSignature
}

// Timestamp returns the header timestamp with trailing padding removed.
func (f *File) Timestamp() string {
	return strings.TrimRight(string(f.header.Timestamp[:]), " \x00")
}

// Has reports whether key names an array.
func (f *File) Has(key string) bool {
	return f.table.Has(key)
}

// Header returns the trailer record for key, or nil.
func (f *File) Header(key string) *ArrayHeader {
	return f.table.Lookup(key)
}

// Headers returns all trailer records in file order, including records
// shadowed by a later duplicate key.
func (f *File) Headers() []*ArrayHeader {
	return f.table.Headers()
}

// Keys returns the distinct array keys, sorted.
func (f *File) Keys() []string {
	seen := make(map[string]bool, f.table.Len())
	var keys []string
	for _, h := range f.table.Headers() {
		k := h.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Dims returns one entry per array base name, sorted by name.
func (f *File) Dims() []Dims {
	out := make([]Dims, len(f.dims))
	copy(out, f.dims)
	return out
}

// Width returns the number of indexed arrays named name.
func (f *File) Width(name string) int {
	i := sort.Search(len(f.dims), func(i int) bool { return f.dims[i].Name >= name })
	if i < len(f.dims) && f.dims[i].Name == name {
		return f.dims[i].Width
	}
	return 0
}
