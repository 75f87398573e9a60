// Package jit implements the baseline compiler described in spec.md
// section 4.G: a Cranelift-style translator from eligible
// bytecode.Function bodies to native machine code, guarded by runtime
// type checks that bail back out to internal/interp on a speculation
// miss. Grounded on the teacher's internal/engine/cranelift package -
// jitEngine mirrors engine, compiledFunction mirrors compiledModule's
// per-function entry, and JitContext mirrors vmContext/
// opaqueVmContextOffsets, generalized from one Wasm module's linear
// memory/table/imported-function offsets to one JS frame's register
// file, local slots and upvalue vector.
//
// internal/engine/compiler/impl_amd64.go - the teacher's actual
// machine-code emission for its competing (non-Cranelift) engine -
// was not available in the retrieved reference set, so this package's
// codegen (translator_amd64.go) is written directly against
// internal/asm/amd64's Assembler, following that package's own
// instruction-emission conventions instead. See DESIGN.md.
package jit

import "unsafe"

// BailoutReason records why compiled code handed control back to the
// interpreter, per spec.md section 4.G's bailout-reason taxonomy
// ("not exhaustive"): TypeGuardFailure, HelperReturnedSentinel,
// UnsupportedOp, StackOverflowGuard, DivByZeroHandled.
type BailoutReason uint32

const (
	BailoutNone BailoutReason = iota
	// BailoutTypeGuardFailure fires when a speculated Int32/Number fast
	// path's runtime tag check fails, or a guarded Int32 arithmetic op
	// overflows the 32-bit range the quickened opcode assumed.
	BailoutTypeGuardFailure
	// BailoutHelperReturnedSentinel fires when a runtime helper called
	// from the bailout-resume path (internal/jithelpers) itself
	// signals failure.
	BailoutHelperReturnedSentinel
	// BailoutUnsupportedOp marks every opcode the translator has no
	// real fast path for; compiled code for these opcodes is a single
	// "record reason, return sentinel" stub (spec.md's "absent a
	// helper, an immediate bailout" clause).
	BailoutUnsupportedOp
	// BailoutStackOverflowGuard fires when a compiled function's own
	// recursion/call depth guard trips.
	BailoutStackOverflowGuard
	// BailoutDivByZeroHandled fires when a guarded Div/Mod fast path
	// observes a zero divisor and defers to the slow path's IEEE-754
	// (or BigInt-throwing) semantics instead of replicating them.
	BailoutDivByZeroHandled
	// BailoutProtoEpoch fires when a property-access site's cached
	// proto_epoch no longer matches the realm's current one.
	BailoutProtoEpoch
)

// JitContext is the ABI-stable struct compiled code receives a pointer
// to as its sole argument, exactly as the teacher's vmContext is the
// sole argument threaded through compiled Wasm code. Every field
// compiled code touches is accessed by a fixed byte offset baked into
// the generated code at compile time, taken from offsetOf below;
// Go-side callers only ever touch the named fields, so reshuffling
// needs no hand-patched machine code.
//
// internal/interp's tryCompiledCall fills in only RegistersPtr/
// RegisterCount, LocalsPtr/LocalCount and ThisRaw; every other input
// field is left zero, and translated code reads only RegistersPtr and
// LocalsPtr.
//
// Field order intentionally mirrors spec.md section 6.4's listing.
type JitContext struct {
	// FunctionPtr identifies the compiledFunction this invocation
	// belongs to, for relocation/debugging purposes; compiled code
	// never dereferences it itself.
	FunctionPtr uintptr

	// ProtoEpoch is a slot for the realm's proto_epoch. The translator
	// emits no property-access fast path and never reads it.
	ProtoEpoch uint64

	// InterpreterPtr/VmCtxPtr are opaque uintptr slots for the owning
	// *interp.VmThread and its state; neither the jit package nor
	// internal/interp reads them.
	InterpreterPtr uintptr
	VmCtxPtr       uintptr

	// RegistersPtr/RegisterCount and LocalsPtr/LocalCount address the
	// live Frame.registers/Frame.locals slices directly (not a copy),
	// so compiled code's guarded fast paths read and write through the
	// same backing array the interpreter resumes into on bailout -
	// there is no separate "deopt buffer" to reconcile.
	RegistersPtr  uintptr
	RegisterCount uint32
	LocalsPtr     uintptr
	LocalCount    uint32

	// ConstantsPtr addresses the owning Module's constant pool, for
	// fast paths that load a constant directly (OpLoadConst).
	ConstantsPtr uintptr

	// UpvaluesPtr/UpvalueCount address the active closure's upvalue
	// cell vector.
	UpvaluesPtr  uintptr
	UpvalueCount uint32

	ThisRaw       uint64 // NaN-boxed `this`
	CalleeRaw     uint64 // NaN-boxed callee (for recursive self-calls without a re-lookup)
	HomeObjectRaw uint64 // NaN-boxed [[HomeObject]], for super property access fast paths

	// SecondaryResult carries a second NaN-boxed Value out alongside
	// the primary return value where an opcode's slow-path semantics
	// need one (e.g. iterator-next's {value, done} pair); unused
	// (Undefined) otherwise.
	SecondaryResult uint64

	// BailoutReason/BailoutPC are written by every bailout stub before
	// returning the bailout sentinel; internal/interp's resume path
	// reads BailoutPC to decide where to re-enter run(), and does not
	// read BailoutReason.
	BailoutReason BailoutReason
	BailoutPC     uint32

	// DeoptLocalsPtr/DeoptRegsPtr are retained for parity with
	// spec.md's field list but are never set or read: this translator
	// never operates on a scratch copy, so there is nothing to
	// reconcile back on bailout.
	DeoptLocalsPtr uintptr
	DeoptRegsPtr   uintptr
}

// offsetOf returns a JitContext field's byte offset by name;
// context_test.go uses it to check that no two fields share an offset.
func offsetOf(field string) uintptr {
	switch field {
	case "FunctionPtr":
		return unsafe.Offsetof(JitContext{}.FunctionPtr)
	case "ProtoEpoch":
		return unsafe.Offsetof(JitContext{}.ProtoEpoch)
	case "InterpreterPtr":
		return unsafe.Offsetof(JitContext{}.InterpreterPtr)
	case "VmCtxPtr":
		return unsafe.Offsetof(JitContext{}.VmCtxPtr)
	case "RegistersPtr":
		return unsafe.Offsetof(JitContext{}.RegistersPtr)
	case "RegisterCount":
		return unsafe.Offsetof(JitContext{}.RegisterCount)
	case "LocalsPtr":
		return unsafe.Offsetof(JitContext{}.LocalsPtr)
	case "LocalCount":
		return unsafe.Offsetof(JitContext{}.LocalCount)
	case "ConstantsPtr":
		return unsafe.Offsetof(JitContext{}.ConstantsPtr)
	case "UpvaluesPtr":
		return unsafe.Offsetof(JitContext{}.UpvaluesPtr)
	case "UpvalueCount":
		return unsafe.Offsetof(JitContext{}.UpvalueCount)
	case "ThisRaw":
		return unsafe.Offsetof(JitContext{}.ThisRaw)
	case "CalleeRaw":
		return unsafe.Offsetof(JitContext{}.CalleeRaw)
	case "HomeObjectRaw":
		return unsafe.Offsetof(JitContext{}.HomeObjectRaw)
	case "SecondaryResult":
		return unsafe.Offsetof(JitContext{}.SecondaryResult)
	case "BailoutReason":
		return unsafe.Offsetof(JitContext{}.BailoutReason)
	case "BailoutPC":
		return unsafe.Offsetof(JitContext{}.BailoutPC)
	case "DeoptLocalsPtr":
		return unsafe.Offsetof(JitContext{}.DeoptLocalsPtr)
	case "DeoptRegsPtr":
		return unsafe.Offsetof(JitContext{}.DeoptRegsPtr)
	default:
		panic("jit: unknown JitContext field " + field)
	}
}
