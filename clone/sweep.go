package clone

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SweepOptions configures Sweep.
type SweepOptions struct {
	// Concurrency bounds the plans evaluated at once. Values <= 0 mean no
	// bound.
	Concurrency int

	Logger zerolog.Logger
}

// Sweep counts clones of m for each processor count with synthetic plans
// from NewPlan. Reports are returned in the order of nProcs.
func Sweep(ctx context.Context, m *Mesh, nProcs []int, opts SweepOptions) ([]Report, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	plans := make([]Plan, len(nProcs))
	for i, n := range nProcs {
		plan, err := NewPlan(m.NumCell, n, m.Dim)
		if err != nil {
			return nil, err
		}
		plans[i] = plan
	}

	reports := make([]Report, len(nProcs))
	g, ctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i := range plans {
		i := i
		g.Go(func() error {
			rep, err := count(ctx, m, plans[i])
			if err != nil {
				return err
			}
			reports[i] = rep
			opts.Logger.Debug().
				Int("nprocs", rep.NProcs).
				Int64("clones", rep.Clones).
				Float64("ratio", rep.Ratio()).
				Msg("counted clones")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
