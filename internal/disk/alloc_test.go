package disk_test

import (
	"testing"

	"github.com/ostafen/oasis/internal/disk"
	"github.com/stretchr/testify/require"
)

func newMap(t *testing.T, blocks int) *disk.AllocMap {
	t.Helper()
	return disk.NewAllocMap(make([]byte, blocks/8))
}

func markAllocated(t *testing.T, m *disk.AllocMap, blocks ...int) {
	t.Helper()
	for _, b := range blocks {
		require.NoError(t, m.SetState(b, true))
	}
}

func TestAllocateMarksRun(t *testing.T) {
	m := newMap(t, 64)

	start, err := m.Allocate(5)
	require.NoError(t, err)

	for b := start; b < start+5; b++ {
		allocated, err := m.IsAllocated(b)
		require.NoError(t, err)
		require.True(t, allocated)
	}
	require.Equal(t, 64-5, m.CountFree())
}

func TestAllocateBestFit(t *testing.T) {
	m := newMap(t, 104)

	// Free runs: 0..9 (10), 15..19 (5), 24..29 (6), 34..99+ (rest).
	markAllocated(t, m, 10, 11, 12, 13, 14, 20, 21, 22, 23, 30, 31, 32, 33)
	for b := 100; b < 104; b++ {
		markAllocated(t, m, b)
	}

	start, err := m.Allocate(5)
	require.NoError(t, err)
	require.Equal(t, 15, start)
}

func TestAllocateBestFitTie(t *testing.T) {
	m := newMap(t, 32)

	// Free runs of sizes 5, 4, 4 starting at blocks 10, 20, 3.
	for b := 0; b < 32; b++ {
		markAllocated(t, m, b)
	}
	frees := func(start, n int) {
		for b := start; b < start+n; b++ {
			require.NoError(t, m.SetState(b, false))
		}
	}
	frees(10, 5)
	frees(20, 4)
	frees(3, 4)

	start, err := m.Allocate(4)
	require.NoError(t, err)
	require.Equal(t, 20, start)
}

func TestAllocateNoSpace(t *testing.T) {
	m := newMap(t, 16)
	markAllocated(t, m, 4, 10)

	_, err := m.Allocate(12)
	require.ErrorIs(t, err, disk.ErrNoSpace)
	require.Equal(t, 14, m.CountFree())
}

func TestAllocateLeavesOtherBlocksUntouched(t *testing.T) {
	m := newMap(t, 64)
	markAllocated(t, m, 8, 9, 10, 11)

	before := make([]bool, 64)
	for b := range before {
		before[b], _ = m.IsAllocated(b)
	}

	start, err := m.Allocate(3)
	require.NoError(t, err)

	for b := 0; b < 64; b++ {
		if b >= start && b < start+3 {
			continue
		}
		got, err := m.IsAllocated(b)
		require.NoError(t, err)
		require.Equal(t, before[b], got, "block %d changed state", b)
	}
}

func TestDeallocate(t *testing.T) {
	m := newMap(t, 32)
	markAllocated(t, m, 5, 6, 7)

	require.NoError(t, m.Deallocate(5, 3))
	require.Equal(t, 32, m.CountFree())
}

func TestDeallocateFreeBlockFails(t *testing.T) {
	m := newMap(t, 32)
	markAllocated(t, m, 5, 7)

	// Block 6 is free: the call must fail and leave the map unchanged.
	require.ErrorIs(t, m.Deallocate(5, 3), disk.ErrNotAllocated)

	for _, b := range []int{5, 7} {
		allocated, err := m.IsAllocated(b)
		require.NoError(t, err)
		require.True(t, allocated)
	}
}

func TestLargestFreeRun(t *testing.T) {
	m := newMap(t, 32)
	require.Equal(t, 32, m.LargestFreeRun())

	markAllocated(t, m, 10, 20)
	require.Equal(t, 11, m.LargestFreeRun())
}
