package jsgc

import (
	"sync/atomic"

	"github.com/octofhir/otter-vm/internal/logging"
)

// RootSet is the set of cells directly reachable without tracing:
// registers and locals across all live frames, pending args/this, the
// global object, intrinsics, module constants, and task-queue
// references (spec.md section 4.B step 2). Callers (internal/interp)
// build this slice from their own live state each collection.
type RootSet []CellID

// Collect runs one stop-the-world tri-color mark/sweep cycle using
// roots as the initial worklist seed, and returns updated Stats.
//
// Algorithm (spec.md section 4.B):
//  1. reset all marks to White (cheap here: White is the zero Color
//     and cells default to it; only cells left Black from the
//     previous cycle need resetting, which the sweep step below does).
//  2. seed the worklist with roots.
//  3. drain the worklist iteratively, never recursively, so a deep
//     object graph cannot blow the collector's own stack.
//  4. sweep: free every still-White cell, recolor survivors White.
func (r *Registry) Collect(roots RootSet) Stats {
	start := r.now()

	worklist := make([]CellID, 0, len(roots))
	for _, id := range roots {
		if c, ok := r.cells[id]; ok && c.Color == White {
			c.Color = Gray
			worklist = append(worklist, id)
		}
	}
	// Intrinsic cells are roots in their own right (spec.md section
	// 4.B seeds "intrinsics" alongside frames and globals): the shared
	// built-in graph survives even when no live frame references it.
	for id, c := range r.cells {
		if c.Intrinsic && c.Color == White {
			c.Color = Gray
			worklist = append(worklist, id)
		}
	}

	for len(worklist) > 0 {
		id := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		c, ok := r.cells[id]
		if !ok || c.Color == Black {
			continue
		}
		if c.Trace != nil {
			c.Trace(func(child CellID) {
				if cc, ok := r.cells[child]; ok && cc.Color == White {
					cc.Color = Gray
					worklist = append(worklist, child)
				}
			})
		}
		c.Color = Black
	}

	var reclaimedBytes uint64
	var reclaimedCells uint64
	for _, id := range r.order {
		c, ok := r.cells[id]
		if !ok {
			continue
		}
		if c.Color == White {
			if c.Drop != nil {
				c.Drop()
			}
			delete(r.cells, id)
			reclaimedBytes += uint64(c.Size)
			reclaimedCells++
			r.totalBytes -= uint64(c.Size)
		} else {
			c.Color = White // G3: after collect, all surviving marks are White
		}
	}
	r.compactOrder()

	pause := r.now() - start
	r.stats.LastPauseNanos = pause
	r.stats.TotalPauseNanos += pause
	r.stats.ReclaimedBytes += reclaimedBytes
	r.stats.ReclaimedCells += reclaimedCells
	r.stats.Collections++

	if r.listener != nil {
		r.listener.OnGCPause(logging.GCPauseEvent{
			PauseNanos:     pause,
			ReclaimedBytes: reclaimedBytes,
			ReclaimedCells: reclaimedCells,
			Collection:     r.stats.Collections,
		})
	}
	return r.stats
}

// compactOrder drops dead IDs from the registration-order slice so
// DeallocAll doesn't re-walk entries already swept. Cheap relative to
// a full GC pause; done once per collection.
func (r *Registry) compactOrder() {
	kept := r.order[:0]
	for _, id := range r.order {
		if _, ok := r.cells[id]; ok {
			kept = append(kept, id)
		}
	}
	r.order = kept
}

func (r *Registry) now() int64 {
	if r.nowNanos == nil {
		return 0
	}
	return r.nowNanos()
}

// DeallocAll frees every tracked cell in registration order,
// regardless of color or intrinsic marking, for whole-process
// shutdown. Context teardown (a context going away without the
// process exiting) must instead call DeallocNonIntrinsic, which
// preserves cells marked Intrinsic (spec.md "Intrinsic protection").
func (r *Registry) DeallocAll() {
	r.teardown(func(c *Cell) bool { return true })
}

// DeallocNonIntrinsic tears down a single context: every non-intrinsic
// cell is freed, but intrinsic-marked cells (the shared built-in
// graph) survive, per spec.md section 4.B.
func (r *Registry) DeallocNonIntrinsic() {
	r.teardown(func(c *Cell) bool { return !c.Intrinsic })
}

// teardown uses scoped acquisition of the tearing-down flag with
// guaranteed release (spec.md section 5, "Scoped acquisition"), so a
// panic in a Drop implementation never leaves the registry stuck
// mid-teardown.
func (r *Registry) teardown(shouldDrop func(*Cell) bool) {
	atomic.StoreInt32(&r.tearingDown, 1)
	defer atomic.StoreInt32(&r.tearingDown, 0)

	var kept []CellID
	for _, id := range r.order {
		c, ok := r.cells[id]
		if !ok {
			continue
		}
		if !shouldDrop(c) {
			kept = append(kept, id)
			continue
		}
		if c.Drop != nil {
			c.Drop()
		}
		delete(r.cells, id)
		r.totalBytes -= uint64(c.Size)
	}
	r.order = kept
}

// TearingDown reports whether a teardown is currently in progress on
// this registry. Drop implementations call this before dereferencing
// another GC cell, per spec.md's teardown contract.
func (r *Registry) TearingDown() bool { return r.isTearingDown() }
