package pio

import (
	"strings"

	"github.com/pkg/errors"
)

// Material layout arrays.
const (
	MaterialDefName   = "matdef"
	MaterialCountName = "chunk_nummat"
	MaterialIDName    = "chunk_mat"
	chunkPrefix       = "chunk_"
	fractionPrefix    = "frac_"
)

// MaterialCount returns the number of materials, the width of matdef.
func (f *File) MaterialCount() int {
	return f.Width(MaterialDefName)
}

// Field2D reads every indexed array named name, index 1 through its width.
func (f *File) Field2D(name string) ([][]float64, error) {
	w := f.Width(name)
	out := make([][]float64, 0, w)
	for i := 1; i <= w; i++ {
		vals, err := f.Variable(name, int64(i))
		if err != nil {
			return nil, err
		}
		out = append(out, vals)
	}
	return out, nil
}

// MaterialVariable expands a per-material field into one cell array per
// material id, 1 through MaterialCount. Cells without a material hold 0.
//
// The field is read from name_0. A missing chunk_X field falls back to
// frac_X_0. When neither exists the result is nil with no error.
func (f *File) MaterialVariable(field string) (map[int][]float64, error) {
	data, err := f.Variable(field, 0)
	if err != nil {
		return nil, err
	}
	if data == nil {
		if strings.HasPrefix(field, chunkPrefix) {
			alt := fractionPrefix + strings.TrimPrefix(field, chunkPrefix)
			f.log.Debug().Str("field", field).Str("fallback", alt).Msg("material field not found")
			return f.MaterialVariable(alt)
		}
		return nil, nil
	}

	nMat := f.MaterialCount()
	out := make(map[int][]float64, nMat)
	for m := 1; m <= nMat; m++ {
		out[m] = make([]float64, f.numCell)
	}

	if nMat == 1 {
		if int64(len(data)) < f.numCell {
			return nil, errors.Errorf("material field %s has %d values, file has %d cells", field, len(data), f.numCell)
		}
		copy(out[1], data)
		return out, nil
	}

	counts, err := f.VariableAsInt(MaterialCountName, 0)
	if err != nil {
		return nil, err
	}
	ids, err := f.VariableAsInt(MaterialIDName, 0)
	if err != nil {
		return nil, err
	}
	if counts == nil || ids == nil {
		return nil, errors.Wrapf(ErrMissingRequiredArray, "%s and %s are needed to expand %s", MaterialCountName, MaterialIDName, field)
	}
	if int64(len(counts)) < f.numCell {
		return nil, errors.Errorf("%s has %d values, file has %d cells", MaterialCountName, len(counts), f.numCell)
	}

	idx := 0
	for cell := int64(0); cell < f.numCell; cell++ {
		for j := int64(0); j < counts[cell]; j, idx = j+1, idx+1 {
			if idx >= len(ids) || idx >= len(data) {
				return nil, errors.Errorf("material entry %d of cell %d is past the end of %s", idx, cell, field)
			}
			id := int(ids[idx])
			vals, ok := out[id]
			if !ok {
				return nil, errors.Errorf("cell %d has material id %d, file defines %d materials", cell, id, nMat)
			}
			vals[cell] = data[idx]
		}
	}
	return out, nil
}
