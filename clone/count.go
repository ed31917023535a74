package clone

import (
	"context"
)

// Report is the result of counting clones for one plan.
type Report struct {
	NProcs  int
	NumCell int64
	Clones  int64
	Mothers int64
	Top     int64
}

// Ratio returns the extra cells per real cell, (Clones+Mothers)/Top. It is
// 0 when the mesh has no leaf cells.
func (r Report) Ratio() float64 {
	if r.Top == 0 {
		return 0
	}
	return float64(r.Clones+r.Mothers) / float64(r.Top)
}

// Count counts the clone cells of m partitioned by plan.
//
// For every leaf cell and direction, each face neighbor that lies outside
// the mesh, is the cell itself, or belongs to another processor adds one
// clone. Mother cells are counted once and otherwise skipped.
func Count(m *Mesh, plan Plan) (Report, error) {
	return count(context.Background(), m, plan)
}

func count(ctx context.Context, m *Mesh, plan Plan) (Report, error) {
	if err := m.Validate(); err != nil {
		return Report{}, err
	}
	if err := plan.Validate(m.NumCell); err != nil {
		return Report{}, err
	}

	owners := plan.Owners()
	rep := Report{
		NProcs:  plan.NProcs(),
		NumCell: m.NumCell,
	}

	isClone := func(i, k int64) bool {
		return k < 0 || k >= m.NumCell || k == i || owners[k] != owners[i]
	}

	for d := 0; d < m.Dim; d++ {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		low, high := m.Low[d], m.High[d]
		for i := int64(0); i < m.NumCell; i++ {
			if !m.IsLeaf(i) {
				if d == 0 {
					rep.Mothers++
				}
				continue
			}
			if isClone(i, low[i]-1) {
				rep.Clones++
			}
			if isClone(i, high[i]-1) {
				rep.Clones++
			}
		}
	}

	rep.Top = m.NumCell - rep.Mothers
	return rep, nil
}
