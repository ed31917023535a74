package pio

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-pio/internal/piotest"
)

func reservedSpec(n int) piotest.Spec {
	spec := chainSpec(n)
	for i := range spec.Arrays {
		if spec.Arrays[i].Name == "pres" {
			spec.Arrays[i].Reserved = bytes.Repeat([]byte{0xab}, 24)
		}
	}
	return spec
}

func TestAppendRoundTrip(t *testing.T) {
	src := writeFixture(t, reservedSpec(6))
	before, err := os.ReadFile(src)
	require.NoError(t, err)

	f, err := Open(src)
	require.NoError(t, err)
	defer f.Close()

	dst := filepath.Join(t.TempDir(), "tmp-dmp000000")
	ids := []float64{0, 0, 0, 1, 1, 1}
	res, err := f.AppendCellArray(dst, "processor_id", ids)
	require.NoError(t, err)

	assert.Equal(t, dst, res.Path)
	assert.Equal(t, int64(6), res.VariableCount)
	assert.Equal(t, f.TrailerOffset()+6, res.TrailerOffset)
	assert.Equal(t, int64(5*6), res.CopiedWords)
	assert.Equal(t, "processor_id_0", res.Array.Key())
	assert.Equal(t, f.TrailerOffset(), res.Array.Offset)

	// the opened file still describes the source
	assert.Equal(t, int64(5), f.VariableCount())
	assert.False(t, f.Has("processor_id_0"))
	after, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	g, err := Open(dst)
	require.NoError(t, err)
	defer g.Close()

	assert.Equal(t, f.NumCell(), g.NumCell())
	assert.Equal(t, f.Version(), g.Version())
	assert.Equal(t, f.NameWidth(), g.NameWidth())
	assert.Equal(t, f.HeaderLength(), g.HeaderLength())
	assert.Equal(t, f.IndexEntryLength(), g.IndexEntryLength())
	assert.Equal(t, f.Timestamp(), g.Timestamp())
	assert.Equal(t, f.FileSignature(), g.FileSignature())
	assert.Equal(t, f.VariableCount()+1, g.VariableCount())
	assert.Equal(t, f.TrailerOffset()+f.NumCell(), g.TrailerOffset())

	for _, h := range f.Headers() {
		want, err := f.ReadArray(h.Key())
		require.NoError(t, err)
		got, err := g.ReadArray(h.Key())
		require.NoError(t, err)
		assert.Equal(t, want, got, h.Key())
		assert.Equal(t, h.Raw, g.Header(h.Key()).Raw, h.Key())
	}

	got, err := g.ReadArray("processor_id_0")
	require.NoError(t, err)
	assert.Equal(t, ids, got)

	headers := g.Headers()
	assert.Equal(t, "processor_id_0", headers[len(headers)-1].Key())

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, (g.TrailerOffset()+g.VariableCount()*g.IndexEntryLength())*8, info.Size())
}

func TestAppendRecordFromTemplate(t *testing.T) {
	f := openFixture(t, reservedSpec(4))

	dst := filepath.Join(t.TempDir(), "out")
	res, err := f.AppendCellArray(dst, "processor_id", piotest.Fill(4, 2), WithoutProject())
	require.NoError(t, err)

	raw := res.Array.Raw
	require.Len(t, raw, 80)
	assert.Equal(t, "processor_id"+strings.Repeat(" ", 20), string(raw[:32]))
	assert.Equal(t, make([]byte, 8), raw[56:64])
	assert.Equal(t, bytes.Repeat([]byte{0xab}, 16), raw[64:80])
}

func TestAppendChunkSizeDoesNotChangeOutput(t *testing.T) {
	f := openFixture(t, chainSpec(7))
	dir := t.TempDir()
	vals := piotest.Ramp(7, 10)

	_, err := f.AppendCellArray(filepath.Join(dir, "a"), "v", vals, WithoutProject())
	require.NoError(t, err)
	_, err = f.AppendCellArray(filepath.Join(dir, "b"), "v", vals, WithoutProject(), WithChunkWords(3))
	require.NoError(t, err)

	a, err := os.ReadFile(filepath.Join(dir, "a"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, "b"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAppendTwice(t *testing.T) {
	f := openFixture(t, chainSpec(4))
	dir := t.TempDir()

	first := filepath.Join(dir, "one")
	_, err := f.AppendCellArray(first, "a", piotest.Fill(4, 1), WithoutProject())
	require.NoError(t, err)

	g, err := Open(first)
	require.NoError(t, err)
	defer g.Close()

	second := filepath.Join(dir, "two")
	_, err = g.AppendCellArray(second, "b", piotest.Fill(4, 2), WithoutProject())
	require.NoError(t, err)

	h, err := Open(second)
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, int64(7), h.VariableCount())
	a, err := h.ReadArray("a_0")
	require.NoError(t, err)
	assert.Equal(t, piotest.Fill(4, 1), a)
	b, err := h.ReadArray("b_0")
	require.NoError(t, err)
	assert.Equal(t, piotest.Fill(4, 2), b)
}

func TestAppendErrors(t *testing.T) {
	f := openFixture(t, chainSpec(4))
	dir := t.TempDir()

	t.Run("destination exists", func(t *testing.T) {
		dst := filepath.Join(dir, "exists")
		require.NoError(t, os.WriteFile(dst, []byte("keep"), 0644))

		_, err := f.AppendCellArray(dst, "x", piotest.Fill(4, 0))
		assert.True(t, errors.Is(err, ErrDestinationExists), "got %v", err)

		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "keep", string(data))
	})

	t.Run("destination is source", func(t *testing.T) {
		_, err := f.AppendCellArray(f.Path(), "x", piotest.Fill(4, 0))
		assert.True(t, errors.Is(err, ErrDestinationExists), "got %v", err)
	})

	cases := []struct {
		name   string
		array  string
		values []float64
		opts   []AppendOption
		want   error
	}{
		{"length mismatch", "x", piotest.Fill(3, 0), nil, ErrLengthMismatch},
		{"array exists", "pres", piotest.Fill(4, 0), nil, ErrArrayExists},
		{"name too long", strings.Repeat("n", 33), piotest.Fill(4, 0), nil, ErrNameTooLong},
		{"unknown template", "x", piotest.Fill(4, 0), []AppendOption{WithTemplate("nope_0")}, ErrTemplateMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dst := filepath.Join(dir, strings.ReplaceAll(tc.name, " ", "-"))
			_, err := f.AppendCellArray(dst, tc.array, tc.values, tc.opts...)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			_, statErr := os.Stat(dst)
			assert.True(t, os.IsNotExist(statErr), "output left behind")
		})
	}
}

func TestAppendTemplateSelection(t *testing.T) {
	spec := piotest.Default()
	spec.Arrays = []piotest.Array{
		{Name: "matdef", Index: 1, Values: piotest.Fill(2, 0)},
		{Name: "cell_center", Index: 1, Values: piotest.Ramp(4, 0)},
		{Name: "pres", Index: 0, Values: piotest.Fill(2, 0)},
		{Name: "vcell", Index: 0, Values: piotest.Fill(4, 1), Reserved: []byte{0, 0, 0, 0, 0, 0, 0, 0, 7}},
	}
	f := openFixture(t, spec)
	dir := t.TempDir()

	tmpl, err := f.template("")
	require.NoError(t, err)
	assert.Equal(t, "cell_center_1", tmpl.Key())

	tmpl, err = f.template("vcell_0")
	require.NoError(t, err)
	assert.Equal(t, "vcell_0", tmpl.Key())

	_, err = f.template("pres_0")
	assert.True(t, errors.Is(err, ErrTemplateMismatch), "got %v", err)

	res, err := f.AppendCellArray(filepath.Join(dir, "out"), "p", piotest.Fill(4, 3), WithTemplate("vcell_0"), WithoutProject())
	require.NoError(t, err)
	assert.Equal(t, byte(7), res.Array.Raw[64])
}

func TestAppendWritesProject(t *testing.T) {
	f := openFixture(t, chainSpec(4))
	dir := t.TempDir()

	res, err := f.AppendCellArray(filepath.Join(dir, "run-dmp000000"), "x", piotest.Fill(4, 0))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run.pio"), res.Project)

	data, err := os.ReadFile(res.Project)
	require.NoError(t, err)
	assert.Equal(t, "DUMP_DIRECTORY .\nDUMP_BASE_NAME run\n", string(data))

	res, err = f.AppendCellArray(filepath.Join(dir, "other-dmp000001"), "x", piotest.Fill(4, 0), WithoutProject())
	require.NoError(t, err)
	assert.Empty(t, res.Project)
	_, err = os.Stat(filepath.Join(dir, "other.pio"))
	assert.True(t, os.IsNotExist(err))
}

func TestAppendLogs(t *testing.T) {
	var buf bytes.Buffer
	path := writeFixture(t, chainSpec(4))
	f, err := Open(path, WithLogger(zerolog.New(&buf)))
	require.NoError(t, err)
	defer f.Close()

	_, err = f.AppendCellArray(filepath.Join(t.TempDir(), "out"), "x", piotest.Fill(4, 0), WithoutProject())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"message":"appended cell array"`)
	assert.Contains(t, buf.String(), `"copied_words":20`)
}
