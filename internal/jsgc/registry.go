// Package jsgc implements the per-thread GC cell registry and the
// stop-the-world tri-color mark/sweep collector described in spec.md
// section 4.B. Each internal/interp.VmContext owns exactly one
// Registry; registries are never shared across threads, mirroring the
// single-writer-per-context discipline the teacher's own engine
// (internal/engine/interpreter) applies to its codes map.
package jsgc

import (
	"sync/atomic"

	"github.com/octofhir/otter-vm/internal/logging"
)

// Color is a cell's tri-color mark state.
type Color uint8

const (
	White Color = iota
	Gray
	Black
)

// CellID identifies a registered cell within one Registry. It is not
// a pointer so that the registry map keys are cheap to compare; the
// owner (internal/jsobject, internal/jsvalue) is responsible for
// mapping a Value's pointer payload to a CellID.
type CellID uint64

// Cell is the bookkeeping record the registry keeps per heap
// allocation, matching "{ header_ptr, size, drop_fn, trace_fn }" from
// spec.md section 3.5.
type Cell struct {
	ID    CellID
	Size  uintptr
	Color Color
	// Intrinsic marks a cell as part of the shared built-in graph; it
	// survives Registry.DeallocNonIntrinsic (context teardown) and is
	// freed only by Registry.DeallocAll.
	Intrinsic bool

	// Trace pushes this cell's children onto the worklist.
	Trace func(push func(CellID))
	// Drop releases any non-GC resources the cell owns (e.g. native
	// buffers). Drop must not dereference other GC cells once
	// Registry.tearingDown is set - those cells may already be freed.
	Drop func()
}

// Stats mirrors the statistics spec.md section 4.B requires the
// registry to expose.
type Stats struct {
	LastPauseNanos  int64
	TotalPauseNanos int64
	ReclaimedBytes  uint64
	ReclaimedCells  uint64
	AllocationCount uint64
	Collections     uint64
}

// Registry owns every live cell allocated on one thread.
type Registry struct {
	cells map[CellID]*Cell
	// order preserves registration order for dealloc_all, per
	// spec.md section 4.B "Teardown".
	order []CellID
	next  CellID

	totalBytes uint64

	// thresholdBytes triggers an automatic collection once totalBytes
	// crosses it; tunable, defaults to 1 MiB (spec.md "Triggering").
	thresholdBytes uint64

	// tearingDown is set for the duration of DeallocAll so that Drop
	// implementations can detect teardown and skip dereferencing
	// other (possibly already-freed) cells. Accessed with atomics so
	// a concurrently-running JIT compile thread's read-only snapshot
	// code (which never touches the registry) never races with it;
	// within one thread it is plain sequential state.
	tearingDown int32

	stats Stats

	nowNanos func() int64

	listener logging.VmListener
}

const defaultThresholdBytes = 1 << 20 // 1 MiB, spec.md default

// NewRegistry constructs an empty registry. nowNanos supplies pause
// timing; pass nil to disable timing (tests want determinism).
func NewRegistry(nowNanos func() int64) *Registry {
	return &Registry{
		cells:          make(map[CellID]*Cell),
		thresholdBytes: defaultThresholdBytes,
		nowNanos:       nowNanos,
		listener:       logging.NopListener{},
	}
}

// SetThreshold overrides the byte threshold that triggers an automatic
// collection on the next allocation check.
func (r *Registry) SetThreshold(bytes uint64) { r.thresholdBytes = bytes }

// SetListener installs the VmListener this registry reports GC pauses
// to; passing nil restores the no-op default.
func (r *Registry) SetListener(l logging.VmListener) {
	if l == nil {
		l = logging.NopListener{}
	}
	r.listener = l
}

// Register creates a cell with the given size and trace/drop
// callbacks, adds it to the registry and returns its newly assigned ID.
func (r *Registry) Register(size uintptr, trace func(push func(CellID)), drop func()) CellID {
	r.next++
	id := r.next
	cell := &Cell{ID: id, Size: size, Color: White, Trace: trace, Drop: drop}
	r.cells[id] = cell
	r.order = append(r.order, id)
	r.totalBytes += uint64(size)
	r.stats.AllocationCount++
	return id
}

// MarkIntrinsic flags a cell as intrinsic (survives non-process-exit
// teardown).
func (r *Registry) MarkIntrinsic(id CellID) {
	if c, ok := r.cells[id]; ok {
		c.Intrinsic = true
	}
}

// MarkAllIntrinsic flags every currently registered cell as intrinsic.
// The intrinsics bootstrap calls it once, after the built-in graph is
// fully populated, so the whole graph (prototypes, constructors,
// method closures) shares one protection boundary.
func (r *Registry) MarkAllIntrinsic() {
	for _, c := range r.cells {
		c.Intrinsic = true
	}
}

// Live returns the set of currently registered cell IDs. Used by tests
// asserting G1/G2 from spec.md section 4.B.
func (r *Registry) Live() []CellID {
	out := make([]CellID, 0, len(r.cells))
	for id := range r.cells {
		out = append(out, id)
	}
	return out
}

func (r *Registry) LiveCount() int { return len(r.cells) }

func (r *Registry) TotalBytes() uint64 { return r.totalBytes }

func (r *Registry) Stats() Stats { return r.stats }

// ShouldCollect reports whether total_bytes has crossed the tunable
// threshold, per spec.md's "a heap-byte threshold ... and a
// per-allocation check".
func (r *Registry) ShouldCollect() bool { return r.totalBytes >= r.thresholdBytes }

func (r *Registry) isTearingDown() bool { return atomic.LoadInt32(&r.tearingDown) != 0 }
