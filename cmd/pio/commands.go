package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/robert-malhotra/go-pio/clone"
	"github.com/robert-malhotra/go-pio/internal/metrics"
	"github.com/robert-malhotra/go-pio/internal/sidefile"
	"github.com/robert-malhotra/go-pio/pio"
)

// ProcessorIDName is the array added by add-procid.
const ProcessorIDName = "processor_id"

func requireArgs(c *cli.Context, n int) error {
	if c.NArg() != n {
		return errors.Errorf("%s: expected %d arguments, got %d (usage: %s)", c.Command.Name, n, c.NArg(), c.Command.ArgsUsage)
	}
	return nil
}

func (e *env) open(path string) (*pio.File, error) {
	return pio.Open(path, pio.WithLogger(e.log))
}

func infoCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Print the header and array listing of a dump file",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			f, err := e.open(c.Args().First())
			if err != nil {
				return err
			}
			defer f.Close()

			w := c.App.Writer
			fmt.Fprintf(w, "File:              %s\n", f.Path())
			fmt.Fprintf(w, "Version:           %d\n", f.Version())
			fmt.Fprintf(w, "Timestamp:         %s\n", f.Timestamp())
			fmt.Fprintf(w, "Name width:        %d\n", f.NameWidth())
			fmt.Fprintf(w, "Header length:     %d\n", f.HeaderLength())
			fmt.Fprintf(w, "Index entry:       %d\n", f.IndexEntryLength())
			fmt.Fprintf(w, "Variables:         %d\n", f.VariableCount())
			fmt.Fprintf(w, "Trailer offset:    %d\n", f.TrailerOffset())
			fmt.Fprintf(w, "File signature:    %d\n", f.FileSignature())
			fmt.Fprintf(w, "Cells:             %d\n", f.NumCell())
			fmt.Fprintf(w, "Dimensions:        %d\n", f.Dim())
			fmt.Fprintf(w, "Materials:         %d\n", f.MaterialCount())
			fmt.Fprintln(w)

			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tWIDTH\tLENGTH")
			for _, d := range f.Dims() {
				fmt.Fprintf(tw, "%s\t%d\t%d\n", d.Name, d.Width, d.Length)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if f.Has(pio.CellLevelKey) && f.Has(pio.CellDaughterKey) {
				return printLevels(c, f)
			}
			return nil
		},
	}
}

func printLevels(c *cli.Context, f *pio.File) error {
	m, err := f.LeafCellsByLevel()
	if err != nil {
		return err
	}
	sizes, err := f.CellSizes()
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer)
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LEVEL\tLEAVES\tDX\tDY\tDZ")
	for l, n := range m.Counts() {
		if l == 0 {
			continue
		}
		d := sizes[l]
		fmt.Fprintf(tw, "%d\t%d\t%g\t%g\t%g\n", l, n, d[0], d[1], d[2])
	}
	return tw.Flush()
}

func dumpCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "dump",
		Usage:     "Print the values of one array",
		ArgsUsage: "<file> <key>",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "start", Value: 0, Usage: "First element to print"},
			&cli.Int64Flag{Name: "count", Value: -1, Usage: "Number of elements to print, -1 for all"},
			&cli.BoolFlag{Name: "int", Value: false, Usage: "Print values truncated to integers"},
		},
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 2); err != nil {
				return err
			}
			f, err := e.open(c.Args().Get(0))
			if err != nil {
				return err
			}
			defer f.Close()

			key := c.Args().Get(1)
			h := f.Header(key)
			if h == nil {
				return errors.Errorf("no array %s in %s", key, f.Path())
			}

			start, count := c.Int64("start"), c.Int64("count")
			if count < 0 {
				count = h.Length - start
			}
			vals, err := f.ReadArrayRange(key, start, count)
			if err != nil {
				return err
			}
			for i, v := range vals {
				if c.Bool("int") {
					fmt.Fprintf(c.App.Writer, "%d %d\n", start+int64(i), int64(v))
				} else {
					fmt.Fprintf(c.App.Writer, "%d %s\n", start+int64(i), strconv.FormatFloat(v, 'g', -1, 64))
				}
			}
			return nil
		},
	}
}

// plan returns the synthetic plan for nProcs > 0, otherwise the plan the
// file records.
func plan(f *pio.File, nProcs int) (clone.Plan, error) {
	if nProcs > 0 {
		return clone.NewPlan(f.NumCell(), nProcs, f.Dim())
	}
	return clone.ObservedPlan(f)
}

func addProcIDCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "add-procid",
		Usage:     "Write a copy of a dump file with a processor_id cell array",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Value: "", Usage: "Output base name, the dump is written to <out>-dmp000000 (default from config, else tmp)"},
			&cli.IntFlag{Name: "synthetic", Value: 0, Usage: "Partition over this many processors instead of using global_numcell"},
			&cli.StringFlag{Name: "template", Value: "", Usage: "Trailer record key to clone for the new array"},
			&cli.Int64Flag{Name: "chunk-words", Value: 0, Usage: "Words copied per read"},
			&cli.BoolFlag{Name: "no-project", Value: false, Usage: "Do not write the <out>.pio project file"},
		},
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			f, err := e.open(c.Args().First())
			if err != nil {
				return err
			}
			defer f.Close()

			p, err := plan(f, c.Int("synthetic"))
			if err != nil {
				return err
			}

			cfg := e.cfg.Append
			if c.IsSet("out") {
				cfg.OutBase = c.String("out")
			}
			if c.IsSet("template") {
				cfg.Template = c.String("template")
			}
			if c.IsSet("chunk-words") {
				cfg.ChunkWords = c.Int64("chunk-words")
			}
			if c.IsSet("no-project") {
				cfg.NoProject = c.Bool("no-project")
			}

			opts := []pio.AppendOption{pio.WithChunkWords(cfg.ChunkWords)}
			if cfg.Template != "" {
				opts = append(opts, pio.WithTemplate(cfg.Template))
			}
			if cfg.NoProject {
				opts = append(opts, pio.WithoutProject())
			}

			dst := cfg.OutBase + "-dmp000000"
			res, err := f.AppendCellArray(dst, ProcessorIDName, p.ProcessorIDs(), opts...)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "wrote %s (%d processors)\n", res.Path, p.NProcs())
			if res.Project != "" {
				fmt.Fprintf(c.App.Writer, "wrote %s\n", res.Project)
			}
			return nil
		},
	}
}

func clonesCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "clones",
		Usage:     "Estimate clone cells for synthetic partitions",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.IntSliceFlag{Name: "nprocs", Usage: "Processor counts to evaluate (default from config, else 1)"},
			&cli.IntFlag{Name: "concurrency", Value: 0, Usage: "Partitions evaluated at once (default from config)"},
		},
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			f, err := e.open(c.Args().First())
			if err != nil {
				return err
			}
			defer f.Close()

			nProcs := e.cfg.Clone.NProcs
			if c.IsSet("nprocs") {
				nProcs = c.IntSlice("nprocs")
			}
			if len(nProcs) == 0 {
				nProcs = []int{1}
			}
			concurrency := e.cfg.Clone.Concurrency
			if c.IsSet("concurrency") {
				concurrency = c.Int("concurrency")
			}

			mesh, err := clone.LoadMesh(f)
			if err != nil {
				return err
			}
			reports, err := clone.Sweep(c.Context, mesh, nProcs, clone.SweepOptions{
				Concurrency: concurrency,
				Logger:      e.log,
			})
			if err != nil {
				return err
			}

			name := filepath.Base(f.Path())
			tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NPROCS\tCLONES\tMOTHERS\tTOP\tRATIO")
			for _, r := range reports {
				fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%.6f\n", r.NProcs, r.Clones, r.Mothers, r.Top, r.Ratio())
				metrics.CloneEstimate(name, r.NProcs, r.Clones, r.Mothers, r.Top)
			}
			return tw.Flush()
		},
	}
}

func cloneInfoCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "clone-info",
		Usage:     "Count clone cells under the partition recorded in each dump file",
		ArgsUsage: "<file>...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return errors.Errorf("%s: expected at least one file", c.Command.Name)
			}
			for _, path := range c.Args().Slice() {
				if err := e.cloneInfo(c, path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (e *env) cloneInfo(c *cli.Context, path string) error {
	f, err := e.open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	p, err := clone.ObservedPlan(f)
	if err != nil {
		return err
	}
	mesh, err := clone.LoadMesh(f)
	if err != nil {
		return err
	}
	r, err := clone.Count(mesh, p)
	if err != nil {
		return err
	}
	metrics.CloneEstimate(filepath.Base(path), r.NProcs, r.Clones, r.Mothers, r.Top)

	w := c.App.Writer
	fmt.Fprintf(w, "%s\n", path)
	fmt.Fprintf(w, "  nProcs  = %d\n", r.NProcs)
	fmt.Fprintf(w, "  numcell = %d\n", r.NumCell)
	fmt.Fprintf(w, "  nClones = %d\n", r.Clones)
	fmt.Fprintf(w, "  nMother = %d\n", r.Mothers)
	fmt.Fprintf(w, "  nTop    = %d\n", r.Top)
	fmt.Fprintf(w, "  Ratio   = %g\n", r.Ratio())
	return nil
}

func exportProcIDCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "export-procid",
		Usage:     "Write per-cell processor ids to a compressed side file",
		ArgsUsage: "<file> <out>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "synthetic", Value: 0, Usage: "Partition over this many processors instead of using global_numcell"},
			&cli.BoolFlag{Name: "leaf-only", Value: false, Usage: "Only export leaf cells"},
		},
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 2); err != nil {
				return err
			}
			f, err := e.open(c.Args().Get(0))
			if err != nil {
				return err
			}
			defer f.Close()

			p, err := plan(f, c.Int("synthetic"))
			if err != nil {
				return err
			}
			owners := p.Owners()
			ids := make([]int64, len(owners))
			for i, o := range owners {
				ids[i] = int64(o)
			}

			if c.Bool("leaf-only") {
				daughter, err := f.ReadArrayAsInt(clone.DaughterKey)
				if err != nil {
					return err
				}
				if daughter == nil {
					return errors.Wrapf(clone.ErrMissingArray, "%s", clone.DaughterKey)
				}
				if ids, err = sidefile.LeafOnly(ids, daughter); err != nil {
					return err
				}
			}

			out := c.Args().Get(1)
			if err := sidefile.Write(out, ids); err != nil {
				return err
			}
			e.log.Info().Str("out", out).Int("values", len(ids)).Msg("exported processor ids")
			return nil
		},
	}
}

func verifyCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Check that every array of a dump file is unchanged in a rewritten copy",
		ArgsUsage: "<src> <dst>",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 2); err != nil {
				return err
			}
			src, err := e.open(c.Args().Get(0))
			if err != nil {
				return err
			}
			defer src.Close()
			dst, err := e.open(c.Args().Get(1))
			if err != nil {
				return err
			}
			defer dst.Close()

			var bad int
			for _, key := range src.Keys() {
				want, err := src.ArrayDigest(key)
				if err != nil {
					return err
				}
				got, err := dst.ArrayDigest(key)
				if err != nil {
					return err
				}
				switch {
				case got == nil:
					fmt.Fprintf(c.App.Writer, "missing  %s\n", key)
					bad++
				case string(got) != string(want):
					fmt.Fprintf(c.App.Writer, "changed  %s\n", key)
					bad++
				}
			}
			for _, key := range dst.Keys() {
				if !src.Has(key) {
					fmt.Fprintf(c.App.Writer, "added    %s\n", key)
				}
			}
			if bad > 0 {
				return errors.Errorf("%d of %d arrays differ", bad, len(src.Keys()))
			}
			fmt.Fprintf(c.App.Writer, "ok: %d arrays match\n", len(src.Keys()))
			return nil
		},
	}
}
