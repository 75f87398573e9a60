package jsobject

// ICState is the lifecycle a per-site feedback slot moves through,
// per spec.md section 4.C: Uninitialized -> Monomorphic ->
// Polymorphic(<=4) -> Megamorphic, with every state also recording the
// proto_epoch it was recorded under so a prototype mutation
// invalidates stale entries (spec.md "epoch mismatch invalidates the
// cache to one-shot slow-path and re-records").
//
// DESIGN.md open-question resolution: on a third distinct shape while
// already Polymorphic-with-2, the site widens to Polymorphic (up to 4
// entries) as spec'd; a 5th distinct shape drops straight to
// Megamorphic rather than ever growing past 4 - this mirrors the
// teacher's compiler_value_location generalize-once-then-bail shape.
type ICState uint8

const (
	ICUninitialized ICState = iota
	ICMonomorphic
	ICPolymorphic
	ICMegamorphic
)

const maxPolymorphicEntries = 4

type icEntry struct {
	shape  ShapeID
	offset int
}

// IC is one property-access site's feedback slot.
type IC struct {
	State   ICState
	Entries []icEntry // len 1 when Monomorphic, <=4 when Polymorphic
	Epoch   uint64
}

// Record folds an observed (shape, offset) pair into the IC state
// machine, per spec.md section 4.C.
func (ic *IC) Record(shape ShapeID, offset int, currentEpoch uint64) {
	if ic.Epoch != currentEpoch {
		// Epoch mismatch invalidates to one-shot slow-path and re-records.
		ic.State = ICUninitialized
		ic.Entries = nil
		ic.Epoch = currentEpoch
	}

	switch ic.State {
	case ICUninitialized:
		ic.Entries = []icEntry{{shape, offset}}
		ic.State = ICMonomorphic
	case ICMonomorphic:
		if ic.Entries[0].shape == shape {
			return // repeat hit, nothing to do
		}
		ic.Entries = append(ic.Entries, icEntry{shape, offset})
		ic.State = ICPolymorphic
	case ICPolymorphic:
		for i, e := range ic.Entries {
			if e.shape == shape {
				// MRU-reorder on hit.
				ic.Entries[0], ic.Entries[i] = ic.Entries[i], ic.Entries[0]
				return
			}
		}
		if len(ic.Entries) < maxPolymorphicEntries {
			ic.Entries = append(ic.Entries, icEntry{shape, offset})
			return
		}
		ic.State = ICMegamorphic
		ic.Entries = nil
	case ICMegamorphic:
		// stays megamorphic forever
	}
}

// Lookup returns the cached offset for shape if the IC currently has a
// fast path for it (Monomorphic or Polymorphic hit under a matching
// epoch); ok is false for Uninitialized, Megamorphic, or a miss -
// callers must fall back to the full Get/Set slow path, which then
// calls Record.
func (ic *IC) Lookup(shape ShapeID, currentEpoch uint64) (offset int, ok bool) {
	if ic.Epoch != currentEpoch {
		return 0, false
	}
	switch ic.State {
	case ICMonomorphic:
		if ic.Entries[0].shape == shape {
			return ic.Entries[0].offset, true
		}
	case ICPolymorphic:
		for _, e := range ic.Entries {
			if e.shape == shape {
				return e.offset, true
			}
		}
	}
	return 0, false
}

// Megamorphic reports whether the site has given up on caching -
// proxies force this immediately, per spec.md's "Proxies are opaque to
// IC optimization (always megamorphic)".
func (ic *IC) Megamorphic() bool { return ic.State == ICMegamorphic }

// ForceMegamorphic is used when an operation is known up front to be
// IC-hostile (a proxy receiver).
func (ic *IC) ForceMegamorphic() {
	ic.State = ICMegamorphic
	ic.Entries = nil
}
