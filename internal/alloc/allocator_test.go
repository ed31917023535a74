package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatorBasic(t *testing.T) {
	a := New(16, 40)

	off1 := a.Alloc(6, "processor_id_0")
	assert.Equal(t, int64(40), off1)

	off2 := a.Alloc(6, "level_map_0")
	assert.Equal(t, int64(46), off2)
	assert.Equal(t, int64(52), a.End())
	require.NoError(t, a.Validate())
}

func TestAllocatorZeroSize(t *testing.T) {
	a := New(11, 100)

	assert.Equal(t, int64(100), a.Alloc(0, "empty_0"))
	assert.Equal(t, int64(100), a.End())
	require.NoError(t, a.Validate())
}

func TestAllocatorValidate(t *testing.T) {
	a := New(11, 23)
	a.Reserve(11, 6, "cell_center_1")
	a.Reserve(17, 6, "pres_0")
	a.Alloc(6, "processor_id_0")
	require.NoError(t, a.Validate())

	outside := New(11, 23)
	outside.Reserve(20, 6, "bad_0")
	assert.Error(t, outside.Validate())

	before := New(11, 23)
	before.Reserve(5, 2, "bad_0")
	assert.Error(t, before.Validate())
}

func TestAllocatorOverlapWithReserved(t *testing.T) {
	// A trailer offset that points inside an existing array.
	a := New(11, 20)
	a.Reserve(11, 12, "cell_center_1")
	a.Alloc(6, "processor_id_0")

	err := a.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlaps existing array cell_center_1")
}
