package bytecode

import "github.com/octofhir/otter-vm/internal/jsobject"

// TypeFlag records an observed runtime type at a feedback site, used
// by both the interpreter's quickening pass and the JIT translator's
// type speculation (spec.md sections 4.D and 4.G).
type TypeFlag uint8

const (
	TypeNone  TypeFlag = 0
	TypeInt32 TypeFlag = 1 << iota
	TypeNumber
	TypeString
	TypeBoolean
	TypeObject
	TypeOther
)

// FeedbackSlot carries "observed type flags and IC state" for one
// feedback-vector entry, per spec.md section 3.4. The IC state machine
// itself is internal/jsobject.IC; FeedbackSlot also tracks the type
// flags used purely for arithmetic/comparison quickening, which is a
// distinct concern from property-access caching even though both live
// in the same vector slot, exactly as the teacher's
// internal/engine/compiler keeps per-site value-location state
// alongside (not instead of) type info.
type FeedbackSlot struct {
	IC    jsobject.IC
	Types TypeFlag
}

// Observe folds an observed type into the slot's type flags. Used by
// arithmetic/comparison dispatch to decide whether a site has become
// monomorphic enough to quicken.
func (s *FeedbackSlot) Observe(t TypeFlag) { s.Types |= t }

// Dominant reports the single type flag to quicken for, if exactly one
// bit is set; ok is false for Uninitialized (Types==TypeNone) or mixed
// (more than one type observed) sites.
func (s *FeedbackSlot) Dominant() (TypeFlag, bool) {
	if s.Types == TypeNone {
		return TypeNone, false
	}
	// a power of two has exactly one bit set
	if s.Types&(s.Types-1) != 0 {
		return TypeNone, false
	}
	return s.Types, true
}
