package clone

import (
	"strconv"

	"github.com/pkg/errors"
)

// Mesh arrays.
const (
	DaughterKey      = "cell_daughter_0"
	NeighborName     = "cell_index"
	GlobalNumCellKey = "global_numcell_0"
)

// Source provides the arrays a Mesh is built from. *pio.File implements it.
type Source interface {
	NumCell() int64
	Dim() int
	ReadArrayAsInt(key string) ([]int64, error)
}

// Mesh is the connectivity of an AMR mesh.
type Mesh struct {
	NumCell int64
	Dim     int

	// Daughter is the first child of each cell, <= 0 for leaf cells.
	Daughter []int64

	// Low and High hold, per direction, the 1-based index of each cell's
	// neighbor on the low and high face. A cell on the domain edge refers
	// to itself.
	Low  [][]int64
	High [][]int64
}

// NeighborKeys returns the low and high neighbor array keys of direction d.
func NeighborKeys(d int) (low, high string) {
	return NeighborName + "_" + strconv.Itoa(2*d+1), NeighborName + "_" + strconv.Itoa(2*d+2)
}

// LoadMesh reads the daughter and neighbor arrays from src.
func LoadMesh(src Source) (*Mesh, error) {
	m := &Mesh{
		NumCell: src.NumCell(),
		Dim:     src.Dim(),
	}

	read := func(key string) ([]int64, error) {
		vals, err := src.ReadArrayAsInt(key)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", key)
		}
		if vals == nil {
			return nil, errors.Wrapf(ErrMissingArray, "%s", key)
		}
		return vals, nil
	}

	var err error
	if m.Daughter, err = read(DaughterKey); err != nil {
		return nil, err
	}
	for d := 0; d < m.Dim; d++ {
		lowKey, highKey := NeighborKeys(d)
		low, err := read(lowKey)
		if err != nil {
			return nil, err
		}
		high, err := read(highKey)
		if err != nil {
			return nil, err
		}
		m.Low = append(m.Low, low)
		m.High = append(m.High, high)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks that every array covers the mesh.
func (m *Mesh) Validate() error {
	if m.Dim < 1 || m.Dim > MaxDim {
		return errors.Errorf("mesh dimensionality %d", m.Dim)
	}
	if int64(len(m.Daughter)) < m.NumCell {
		return errors.Errorf("%s has %d values, mesh has %d cells", DaughterKey, len(m.Daughter), m.NumCell)
	}
	if len(m.Low) != m.Dim || len(m.High) != m.Dim {
		return errors.Errorf("neighbor arrays for %d/%d directions, mesh is %dD", len(m.Low), len(m.High), m.Dim)
	}
	for d := 0; d < m.Dim; d++ {
		if int64(len(m.Low[d])) < m.NumCell || int64(len(m.High[d])) < m.NumCell {
			lowKey, highKey := NeighborKeys(d)
			return errors.Errorf("%s/%s shorter than %d cells", lowKey, highKey, m.NumCell)
		}
	}
	return nil
}

// IsLeaf reports whether cell i has no children.
func (m *Mesh) IsLeaf(i int64) bool {
	return m.Daughter[i] <= 0
}

// Mothers returns the number of refined cells.
func (m *Mesh) Mothers() int64 {
	var n int64
	for i := int64(0); i < m.NumCell; i++ {
		if !m.IsLeaf(i) {
			n++
		}
	}
	return n
}

// ObservedPlan returns the partition recorded in src by the simulation,
// global_numcell_0. Without it all cells belong to one processor.
func ObservedPlan(src Source) (Plan, error) {
	counts, err := src.ReadArrayAsInt(GlobalNumCellKey)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", GlobalNumCellKey)
	}
	if counts == nil {
		return Plan{src.NumCell()}, nil
	}
	plan := Plan(counts)
	if err := plan.Validate(src.NumCell()); err != nil {
		return nil, err
	}
	return plan, nil
}
