package pio

import (
	"github.com/pkg/errors"

	"github.com/robert-malhotra/go-pio/internal/index"
)

// Mesh arrays used by the level queries.
const (
	CellLevelKey    = "cell_level_0"
	CellDaughterKey = "cell_daughter_0"
)

// The first neighbors of cell 0 along x, y and z on the level 1 grid.
var levelOneNeighbor = [3]int64{1, 2, 4}

// LevelMap groups the leaf cells of a mesh by refinement level.
type LevelMap struct {
	// Cells[l] lists the leaf cells at level l in ascending order. Level 0
	// is kept so that indices match level numbers.
	Cells [][]int64
}

// NLevel returns the deepest level.
func (m *LevelMap) NLevel() int {
	return len(m.Cells) - 1
}

// Counts returns the number of leaf cells at each level.
func (m *LevelMap) Counts() []int64 {
	counts := make([]int64, len(m.Cells))
	for l, cells := range m.Cells {
		counts[l] = int64(len(cells))
	}
	return counts
}

// NLevel returns the deepest refinement level, the maximum of cell_level_0.
func (f *File) NLevel() (int, error) {
	_, n, err := f.levels()
	return n, err
}

// LeafCellsByLevel returns the leaf cells (daughter <= 0) of every level.
func (f *File) LeafCellsByLevel() (*LevelMap, error) {
	levels, nLevel, err := f.levels()
	if err != nil {
		return nil, err
	}
	daughter, err := f.required(CellDaughterKey)
	if err != nil {
		return nil, err
	}

	counts := make([]int64, nLevel+1)
	for i := int64(0); i < f.numCell; i++ {
		if daughter[i] <= 0 {
			counts[levels[i]]++
		}
	}
	m := &LevelMap{Cells: make([][]int64, nLevel+1)}
	for l := range m.Cells {
		m.Cells[l] = make([]int64, 0, counts[l])
	}
	for i := int64(0); i < f.numCell; i++ {
		if daughter[i] <= 0 {
			m.Cells[levels[i]] = append(m.Cells[levels[i]], i)
		}
	}
	return m, nil
}

// CellSizes returns the cell size of every level, indexed by level then
// direction. Level 1 sizes are half the distance from cell 0 to its first
// neighbor in each direction; every deeper level halves them again.
// Directions beyond the mesh dimensionality, and level 0, are 1.
func (f *File) CellSizes() ([][3]float64, error) {
	_, nLevel, err := f.levels()
	if err != nil {
		return nil, err
	}

	sizes := make([][3]float64, nLevel+1)
	for l := range sizes {
		sizes[l] = [3]float64{1, 1, 1}
	}
	if nLevel < 1 {
		return sizes, nil
	}

	for d := 0; d < f.dim; d++ {
		nbr := levelOneNeighbor[d]
		if nbr >= f.numCell {
			return nil, errors.Errorf("%d cells are too few to size a %dD level 1 grid", f.numCell, f.dim)
		}
		key := index.Key("cell_center", int64(d+1))
		center, err := f.ReadArrayRange(key, 0, nbr+1)
		if err != nil {
			return nil, err
		}
		if center == nil {
			return nil, errors.Wrapf(ErrMissingRequiredArray, "%s", key)
		}
		sizes[1][d] = 0.5 * (center[nbr] - center[0])
	}
	for l := 2; l <= nLevel; l++ {
		for d := 0; d < f.dim; d++ {
			sizes[l][d] = 0.5 * sizes[l-1][d]
		}
	}
	return sizes, nil
}

// levels reads cell_level_0 and returns it with its maximum.
func (f *File) levels() ([]int64, int, error) {
	levels, err := f.required(CellLevelKey)
	if err != nil {
		return nil, 0, err
	}
	var deepest int64
	for i := int64(0); i < f.numCell; i++ {
		// A level needs a mother cell on every level above it.
		if lv := levels[i]; lv < 0 || lv > f.numCell {
			return nil, 0, errors.Wrapf(ErrInvalidFormat, "cell %d has level %d", i, lv)
		} else if lv > deepest {
			deepest = lv
		}
	}
	return levels, int(deepest), nil
}

// required reads a per-cell array that must exist and cover every cell.
func (f *File) required(key string) ([]int64, error) {
	vals, err := f.ReadArrayAsInt(key)
	if err != nil {
		return nil, err
	}
	if vals == nil {
		return nil, errors.Wrapf(ErrMissingRequiredArray, "%s", key)
	}
	if int64(len(vals)) < f.numCell {
		return nil, errors.Errorf("%s has %d values, file has %d cells", key, len(vals), f.numCell)
	}
	return vals, nil
}
