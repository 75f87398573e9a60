package jsgc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollectReclaimsUnreachable(t *testing.T) {
	r := NewRegistry(nil)

	reachable := r.Register(8, nil, nil)
	unreachable := r.Register(8, nil, nil)
	_ = unreachable

	stats := r.Collect(RootSet{reachable})
	require.Equal(t, uint64(1), stats.ReclaimedCells)
	require.Equal(t, 1, r.LiveCount())

	live := r.Live()
	require.Equal(t, []CellID{reachable}, live)
}

func TestCollectReclaimsCycle(t *testing.T) {
	r := NewRegistry(nil)

	var bID, aID CellID
	dropped := map[CellID]bool{}

	aID = r.Register(8, func(push func(CellID)) { push(bID) }, func() { dropped[aID] = true })
	bID = r.Register(8, func(push func(CellID)) { push(aID) }, func() { dropped[bID] = true })

	stats := r.Collect(RootSet{}) // no roots: a<->b cycle is unreachable
	require.Equal(t, uint64(2), stats.ReclaimedCells)
	require.Equal(t, 0, r.LiveCount())
	require.True(t, dropped[aID])
	require.True(t, dropped[bID])
}

func TestCollectResetsMarksToWhite(t *testing.T) {
	r := NewRegistry(nil)
	id := r.Register(8, nil, nil)
	r.Collect(RootSet{id})
	require.Equal(t, White, r.cells[id].Color)
}

func TestDeallocAllFreesEverything(t *testing.T) {
	r := NewRegistry(nil)
	intrinsic := r.Register(8, nil, nil)
	r.MarkIntrinsic(intrinsic)
	other := r.Register(8, nil, nil)
	_ = other

	r.DeallocAll()
	require.Equal(t, 0, r.LiveCount())
}

func TestDeallocNonIntrinsicPreservesIntrinsics(t *testing.T) {
	r := NewRegistry(nil)
	intrinsic := r.Register(8, nil, nil)
	r.MarkIntrinsic(intrinsic)
	other := r.Register(8, nil, nil)
	_ = other

	r.DeallocNonIntrinsic()
	require.Equal(t, 1, r.LiveCount())
	live := r.Live()
	require.Equal(t, []CellID{intrinsic}, live)

	// Surviving any number of non-process-exit teardowns.
	r.DeallocNonIntrinsic()
	require.Equal(t, 1, r.LiveCount())
}

func TestTotalBytesTracksRegisteredCells(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(16, nil, nil)
	r.Register(32, nil, nil)
	require.Equal(t, uint64(48), r.TotalBytes())
}

func TestDropNotCalledOnReachableCells(t *testing.T) {
	r := NewRegistry(nil)
	var dropCalled bool
	id := r.Register(8, nil, func() { dropCalled = true })
	r.Collect(RootSet{id})
	require.False(t, dropCalled)
}
