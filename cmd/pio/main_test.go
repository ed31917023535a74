package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-pio/internal/piotest"
	"github.com/robert-malhotra/go-pio/internal/sidefile"
	"github.com/robert-malhotra/go-pio/pio"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"pio"}, args...))
	return out.String(), err
}

func fixture(t *testing.T, extra ...piotest.Array) string {
	t.Helper()
	spec := piotest.Default()
	spec.Arrays = append(piotest.Chain1D(6), extra...)
	path := filepath.Join(t.TempDir(), "chain-dmp000010")
	piotest.Write(t, path, spec)
	return path
}

func TestInfo(t *testing.T) {
	out, err := run(t, "info", fixture(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Cells:             6")
	assert.Contains(t, out, "Dimensions:        1")
	assert.Contains(t, out, "Variables:         5")
	assert.Regexp(t, `cell_index\s+2\s+6`, out)
}

func TestInfoLevels(t *testing.T) {
	out, err := run(t, "info", fixture(t, piotest.Array{Name: "cell_level", Values: piotest.Fill(6, 1)}))
	require.NoError(t, err)
	assert.Regexp(t, `LEVEL\s+LEAVES\s+DX`, out)
	assert.Regexp(t, `(?m)^1\s+6\s+0\.5\s+1\s+1$`, out)
}

func TestDump(t *testing.T) {
	path := fixture(t)

	out, err := run(t, "dump", "--start", "4", path, "cell_center_1")
	require.NoError(t, err)
	assert.Equal(t, "4 4.5\n5 5.5\n", out)

	out, err = run(t, "dump", "--int", "--count", "2", path, "cell_index_2")
	require.NoError(t, err)
	assert.Equal(t, "0 2\n1 3\n", out)

	_, err = run(t, "dump", path, "nope_0")
	assert.Error(t, err)

	_, err = run(t, "dump", path)
	assert.Error(t, err)
}

func TestAddProcIDAndVerify(t *testing.T) {
	src := fixture(t, piotest.Array{Name: "global_numcell", Values: []float64{2, 4}})
	base := filepath.Join(t.TempDir(), "tmp")

	out, err := run(t, "add-procid", "--out", base, src)
	require.NoError(t, err)
	assert.Contains(t, out, "(2 processors)")

	dst := base + "-dmp000000"
	f, err := pio.Open(dst)
	require.NoError(t, err)
	ids, err := f.ReadArray("processor_id_0")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 1, 1, 1}, ids)
	require.NoError(t, f.Close())

	project, err := os.ReadFile(base + ".pio")
	require.NoError(t, err)
	assert.Equal(t, "DUMP_DIRECTORY .\nDUMP_BASE_NAME tmp\n", string(project))

	out, err = run(t, "verify", src, dst)
	require.NoError(t, err)
	assert.Contains(t, out, "added    processor_id_0")
	assert.Contains(t, out, "ok: 6 arrays match")

	out, err = run(t, "verify", dst, src)
	assert.Error(t, err)
	assert.Contains(t, out, "missing  processor_id_0")

	// output exists
	_, err = run(t, "add-procid", "--out", base, src)
	assert.ErrorIs(t, err, pio.ErrDestinationExists)
}

func TestAddProcIDSynthetic(t *testing.T) {
	base := filepath.Join(t.TempDir(), "syn")
	_, err := run(t, "add-procid", "--out", base, "--synthetic", "3", "--no-project", fixture(t))
	require.NoError(t, err)

	f, err := pio.Open(base + "-dmp000000")
	require.NoError(t, err)
	defer f.Close()
	ids, err := f.ReadArray("processor_id_0")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 1, 2, 2}, ids)

	_, err = os.Stat(base + ".pio")
	assert.True(t, os.IsNotExist(err))
}

func TestClones(t *testing.T) {
	out, err := run(t, "clones", "--nprocs", "1,2", fixture(t))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Regexp(t, `^1\s+2\s+0\s+6\s+0.333333$`, lines[1])
	assert.Regexp(t, `^2\s+4\s+0\s+6\s+0.666667$`, lines[2])
}

func TestCloneInfo(t *testing.T) {
	path := fixture(t, piotest.Array{Name: "global_numcell", Values: []float64{2, 4}})
	out, err := run(t, "clone-info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "nProcs  = 2")
	assert.Contains(t, out, "nClones = 4")
	assert.Contains(t, out, "nTop    = 6")

	_, err = run(t, "clone-info")
	assert.Error(t, err)
}

func TestExportProcID(t *testing.T) {
	spec := piotest.Default()
	spec.Arrays = piotest.Chain1D(6)
	spec.Arrays[1].Values = []float64{0, 0, 5, 0, 0, 0}
	spec.Arrays = append(spec.Arrays, piotest.Array{Name: "global_numcell", Values: []float64{2, 4}})
	src := filepath.Join(t.TempDir(), "mothers-dmp000001")
	piotest.Write(t, src, spec)

	dir := t.TempDir()
	all := filepath.Join(dir, "all.side")
	_, err := run(t, "export-procid", src, all)
	require.NoError(t, err)
	got, err := sidefile.Read(all)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 1, 1, 1, 1}, got)

	leaves := filepath.Join(dir, "leaves.side")
	_, err = run(t, "export-procid", "--leaf-only", src, leaves)
	require.NoError(t, err)
	got, err = sidefile.Read(leaves)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 1, 1, 1}, got)

	_, err = run(t, "export-procid", src, all)
	assert.ErrorIs(t, err, sidefile.ErrExists)
}

func TestConfigAndMetrics(t *testing.T) {
	dir := t.TempDir()
	prom := filepath.Join(dir, "pio.prom")
	cfg := filepath.Join(dir, "pio.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("[clone]\nnprocs = [2]\n"), 0644))

	out, err := run(t, "--config", cfg, "--metrics-file", prom, "clones", fixture(t))
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^2\s+4\s`, out)

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), `pio_clone_cells{file="chain-dmp000010",nprocs="2"} 4`)
}

func TestBadLogLevel(t *testing.T) {
	_, err := run(t, "--log-level", "loud", "info", fixture(t))
	assert.Error(t, err)
}
