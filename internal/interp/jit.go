package interp

import (
	"unsafe"

	"github.com/octofhir/otter-vm/internal/bytecode"
	"github.com/octofhir/otter-vm/internal/jit"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// tryCompiledCall implements spec.md section 4.G's policy: advance
// fn's hotness counter on entry, and once it crosses
// jit.HotnessThreshold, hand execution to fn's compiled entry point
// instead of dispatch. Returns (result, true) when the call completed
// natively; (undefined, false) means the caller should fall back to
// t.run(frame) - either because the function isn't compiled (yet, or
// ever - JITEligible rejected it), or because the compiled entry
// bailed out partway through. On bailout, frame.pc has already been
// rewritten to the bailout PC and frame.registers/frame.locals
// already hold the partial state, since JitContext addresses them
// directly rather than through a separate deopt buffer (see
// internal/jit's JitContext doc comment on DeoptLocalsPtr/
// DeoptRegsPtr), so t.run(frame) simply resumes dispatch in place.
func (t *VmThread) tryCompiledCall(fn *bytecode.Function, frame *Frame) (jsvalue.Value, bool) {
	fn.HotnessCounter++
	if fn.HotnessCounter < jit.HotnessThreshold {
		return jsvalue.Undefined, false
	}

	cf, found := t.JIT.Lookup(fn)
	if !found {
		cf = t.JIT.Compile(fn)
	}
	if !cf.Ready() {
		return jsvalue.Undefined, false
	}

	// A function with zero registers and zero locals never references
	// either array (nativeSubset instructions always address one or
	// the other when they produce or consume a value), so there is
	// nothing unsafe to point at; skip straight to the interpreter
	// rather than risk indexing an empty slice below.
	if len(frame.registers) == 0 && len(frame.locals) == 0 {
		return jsvalue.Undefined, false
	}

	ctx := &jit.JitContext{
		RegisterCount: uint32(len(frame.registers)),
		LocalCount:    uint32(len(frame.locals)),
		ThisRaw:       frame.this.ToJitBits(),
	}
	if len(frame.registers) > 0 {
		ctx.RegistersPtr = uintptr(unsafe.Pointer(&frame.registers[0]))
	}
	if len(frame.locals) > 0 {
		ctx.LocalsPtr = uintptr(unsafe.Pointer(&frame.locals[0]))
	}

	raw, ok := cf.Invoke(ctx)
	if !ok {
		return jsvalue.Undefined, false
	}
	if raw == jit.BailoutSentinel {
		frame.pc = int(ctx.BailoutPC)
		t.JIT.Bailout(fn, frame.pc)
		return jsvalue.Undefined, false
	}
	return jsvalue.FromJitBits(raw), true
}
