// Package clone estimates how many cells a block-aligned partition of an
// AMR mesh replicates across processor boundaries.
package clone

import (
	"math"

	"github.com/pkg/errors"
)

// Errors
var (
	ErrInvalidPlan  = errors.New("invalid partition plan")
	ErrMissingArray = errors.New("mesh array missing")
)

// MaxDim is the largest supported mesh dimensionality.
const MaxDim = 3

// Plan holds the number of cells owned by each processor, in rank order.
// Processor p owns the contiguous cell range that follows the cells of
// processors 0 through p-1.
type Plan []int64

// NewPlan splits numCell cells over nProcs processors in blocks of 2^dim.
//
// Every processor but the last gets round(numCell/nProcs) cells rounded
// down to a multiple of the block size. The rounding remainder accumulates
// and adds a block to a processor's share once it reaches a full block. A
// share that would run past numCell is cut back to the largest block
// multiple that fits. The last processor takes the rest.
func NewPlan(numCell int64, nProcs, dim int) (Plan, error) {
	switch {
	case nProcs <= 0:
		return nil, errors.Wrapf(ErrInvalidPlan, "%d processors", nProcs)
	case numCell < 0:
		return nil, errors.Wrapf(ErrInvalidPlan, "%d cells", numCell)
	case dim < 0 || dim > MaxDim:
		return nil, errors.Wrapf(ErrInvalidPlan, "dimensionality %d", dim)
	}

	block := int64(1) << uint(dim)
	quantum := int64(math.RoundToEven(float64(numCell) / float64(nProcs)))
	remainder := quantum % block
	quantum -= remainder

	plan := make(Plan, nProcs)
	var end, r int64
	for i := 0; i < nProcs; i++ {
		start := end
		if i == nProcs-1 {
			end = numCell
		} else {
			share := quantum
			r += remainder
			if r >= block {
				share += block
				r -= block
			}
			if start+share > numCell {
				share = (numCell - start) / block * block
			}
			end = start + share
		}
		plan[i] = end - start
	}
	return plan, nil
}

// NProcs returns the number of processors.
func (p Plan) NProcs() int {
	return len(p)
}

// Sum returns the number of cells covered by the plan.
func (p Plan) Sum() int64 {
	var n int64
	for _, c := range p {
		n += c
	}
	return n
}

// Validate checks that the plan covers exactly numCell cells.
func (p Plan) Validate(numCell int64) error {
	if len(p) == 0 {
		return errors.Wrap(ErrInvalidPlan, "no processors")
	}
	for i, c := range p {
		if c < 0 {
			return errors.Wrapf(ErrInvalidPlan, "processor %d owns %d cells", i, c)
		}
	}
	if sum := p.Sum(); sum != numCell {
		return errors.Wrapf(ErrInvalidPlan, "plan covers %d cells, mesh has %d", sum, numCell)
	}
	return nil
}

// Owners returns the owning processor of every cell.
func (p Plan) Owners() []int32 {
	owners := make([]int32, 0, p.Sum())
	for id, c := range p {
		for k := int64(0); k < c; k++ {
			owners = append(owners, int32(id))
		}
	}
	return owners
}

// ProcessorIDs returns the owners as doubles, ready to append as a cell
// array.
func (p Plan) ProcessorIDs() []float64 {
	owners := p.Owners()
	ids := make([]float64, len(owners))
	for i, o := range owners {
		ids[i] = float64(o)
	}
	return ids
}

// Range returns the half-open cell range owned by processor id.
func (p Plan) Range(id int) (start, end int64) {
	for i := 0; i < id && i < len(p); i++ {
		start += p[i]
	}
	end = start
	if id >= 0 && id < len(p) {
		end += p[id]
	}
	return start, end
}
