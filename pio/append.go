package pio

import (
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/robert-malhotra/go-pio/internal/alloc"
	"github.com/robert-malhotra/go-pio/internal/binary"
	"github.com/robert-malhotra/go-pio/internal/header"
	"github.com/robert-malhotra/go-pio/internal/index"
	"github.com/robert-malhotra/go-pio/internal/metrics"
)

// AppendResult describes a file written by AppendCellArray.
type AppendResult struct {
	Path string

	// Project is the project descriptor path, empty when none was written.
	Project string

	// Array is the record of the new array.
	Array *ArrayHeader

	VariableCount int64
	TrailerOffset int64

	// CopiedWords is the size of the data region copied from the source.
	CopiedWords int64
}

// AppendCellArray writes a new file at dst holding every array of f plus a
// new cell array name_0 with the given values.
//
// The source file is not modified and f keeps describing it. dst must not
// exist. On failure no output file is left behind.
func (f *File) AppendCellArray(dst, name string, values []float64, opts ...AppendOption) (*AppendResult, error) {
	if f.closed {
		return nil, ErrClosed
	}
	o := defaultAppendOptions()
	for _, opt := range opts {
		opt(o)
	}

	start := time.Now()
	key := index.Key(name, 0)

	if int64(len(values)) != f.numCell {
		return nil, errors.Wrapf(ErrLengthMismatch, "%s has %d values, file has %d cells", key, len(values), f.numCell)
	}
	if f.table.Has(key) {
		return nil, errors.Wrapf(ErrArrayExists, "%s", key)
	}

	tmpl, err := f.template(o.template)
	if err != nil {
		return nil, err
	}

	hdr, table, rec, err := f.layout(tmpl, name)
	if err != nil {
		return nil, err
	}

	chunk := o.chunkWords
	if chunk <= 0 {
		chunk = f.numCell
		if chunk < MinChunkWords {
			chunk = MinChunkWords
		}
	}

	if err := f.writeAppended(dst, hdr, table, values, chunk); err != nil {
		return nil, err
	}

	res := &AppendResult{
		Path:          dst,
		Array:         rec,
		VariableCount: hdr.VariableCount,
		TrailerOffset: hdr.TrailerOffset,
		CopiedWords:   f.header.TrailerOffset - f.header.HeaderLength,
	}

	if o.project {
		project, err := WriteProject(dst)
		if err != nil {
			os.Remove(dst)
			return nil, err
		}
		res.Project = project
	}

	metrics.Append(res.CopiedWords, f.numCell, start)
	f.log.Info().
		Str("dst", dst).
		Str("array", key).
		Str("template", tmpl.Key()).
		Int64("copied_words", res.CopiedWords).
		Int64("new_words", f.numCell).
		Dur("elapsed", time.Since(start)).
		Msg("appended cell array")

	return res, nil
}

// template picks the record new records are cloned from.
func (f *File) template(key string) (*index.ArrayHeader, error) {
	var tmpl *index.ArrayHeader
	switch {
	case key != "":
		tmpl = f.table.Lookup(key)
		if tmpl == nil {
			return nil, errors.Wrapf(ErrTemplateMismatch, "template %s not found", key)
		}
	default:
		if h := f.table.Lookup(DefaultTemplateKey); h != nil && h.Length == f.numCell {
			tmpl = h
			break
		}
		for _, h := range f.table.Headers() {
			if h.Length == f.numCell {
				tmpl = h
				break
			}
		}
		if tmpl == nil {
			return nil, errors.Wrapf(ErrTemplateMismatch, "no array of %d cells to use as template", f.numCell)
		}
	}
	if tmpl.Length != f.numCell {
		return nil, errors.Wrapf(ErrTemplateMismatch, "template %s has %d elements, file has %d cells", tmpl.Key(), tmpl.Length, f.numCell)
	}
	return tmpl, nil
}

// layout builds the header and trailer of the output file. f is not
// touched.
func (f *File) layout(tmpl *index.ArrayHeader, name string) (*header.Header, *index.Table, *index.ArrayHeader, error) {
	hdr := f.header.Clone()
	table := f.table.Clone()
	key := index.Key(name, 0)

	a := alloc.New(hdr.HeaderLength, hdr.TrailerOffset)
	for _, h := range table.Headers() {
		a.Reserve(h.Offset, h.Length, h.Key())
	}
	offset := a.Alloc(f.numCell, key)
	if err := a.Validate(); err != nil {
		return nil, nil, nil, errors.Wrap(ErrInvalidFormat, err.Error())
	}

	rec, err := index.Synthesize(tmpl, name, int(hdr.NameWidth), f.numCell, offset, f.reader.ByteOrder())
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "building record for %s", key)
	}
	table.Add(rec)

	hdr.VariableCount++
	hdr.TrailerOffset = a.End()
	return hdr, table, rec, nil
}

func (f *File) writeAppended(dst string, hdr *header.Header, table *index.Table, values []float64, chunk int64) (err error) {
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return errors.Wrapf(ErrDestinationExists, "%s", dst)
		}
		return errors.Wrap(err, "creating output")
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing output")
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	w := binary.NewWriter(out, binary.Config{ByteOrder: f.reader.ByteOrder()})

	if err := hdr.Write(w); err != nil {
		return errors.Wrap(err, "writing header")
	}
	if err := f.copyData(w, chunk); err != nil {
		return err
	}
	if err := w.WriteDoubles(values); err != nil {
		return errors.Wrap(err, "writing new array")
	}
	for _, h := range table.Headers() {
		if err := w.WriteBytes(h.Raw); err != nil {
			return errors.Wrapf(err, "writing record %s", h.Key())
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "flushing output")
	}
	if err := out.Sync(); err != nil {
		return errors.Wrap(err, "syncing output")
	}
	return nil
}

// copyData streams the source data region in chunks of at most chunk words.
func (f *File) copyData(w *binary.Writer, chunk int64) error {
	r := f.reader.At(f.header.HeaderLength)
	remaining := f.header.TrailerOffset - f.header.HeaderLength
	for remaining > 0 {
		n := chunk
		if n > remaining {
			n = remaining
		}
		buf, err := r.ReadFixedBytes(int(n * binary.WordSize))
		if err != nil {
			return errors.Wrapf(err, "copying data at word %d", r.Pos())
		}
		if err := w.WriteBytes(buf); err != nil {
			return errors.Wrap(err, "writing data")
		}
		remaining -= n
		f.log.Debug().Int64("word", r.Pos()).Int64("remaining", remaining).Msg("copied chunk")
	}
	return nil
}
