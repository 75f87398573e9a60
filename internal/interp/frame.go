package interp

import (
	"github.com/octofhir/otter-vm/internal/bytecode"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// tryHandler records one active OpTryStart..OpTryEnd region so a
// thrown exception can unwind straight to its catch target instead of
// propagating as a Go panic past the owning frame's dispatch loop.
type tryHandler struct {
	catchPC    int
	stackDepth int // register count to keep a consistent frame on unwind (informational)
}

// Frame is one call's activation record: a register file, the
// function/closure being executed, the try-handler stack, and the
// pending `this`/new.target slots per spec.md section 4.E. It mirrors
// the teacher's callFrame{pc, f}, widened from a shared operand stack
// to a per-frame register file because bytecode.Instruction addresses
// registers directly rather than pushing/popping a shared stack.
type Frame struct {
	pc int

	closure *Closure
	fn      *bytecode.Function

	registers []jsvalue.Value
	locals    []jsvalue.Value

	// capturedLocals holds the boxed cell for any local a nested
	// closure captures by reference (OpClosure's FromParentLocal
	// upvalues); created lazily on first capture. Once a local is
	// captured, reads/writes in this frame go through the cell too,
	// so the closure and the defining frame never see stale copies.
	capturedLocals map[uint16]*UpvalueCell

	this      jsvalue.Value
	newTarget jsvalue.Value

	tryStack []tryHandler

	// gen is non-nil when this frame's run() executes on a dedicated
	// coroutine goroutine (see coroutine.go): OpYield/OpAwait block on
	// its channels instead of returning, so the Go call stack itself
	// holds the suspended state between resumptions.
	gen *Coroutine
}

func newFrame(cl *Closure, args []jsvalue.Value, this, newTarget jsvalue.Value) *Frame {
	fn := cl.Fn
	f := &Frame{
		closure:   cl,
		fn:        fn,
		registers: make([]jsvalue.Value, fn.RegisterCount),
		locals:    make([]jsvalue.Value, fn.LocalCount),
		this:      this,
		newTarget: newTarget,
	}
	n := int(fn.ParamCount)
	if len(args) < n {
		n = len(args)
	}
	for i := 0; i < n; i++ {
		f.locals[i] = args[i]
	}
	if fn.Flags.HasRest && int(fn.ParamCount) <= len(f.locals) {
		// Rest-parameter materialization happens in dispatch.go via
		// OpCreateArguments/array construction, not here, since it
		// needs heap access the frame alone doesn't have.
	}
	return f
}

func (f *Frame) get(r bytecode.Register) jsvalue.Value    { return f.registers[r] }
func (f *Frame) set(r bytecode.Register, v jsvalue.Value) { f.registers[r] = v }

func (f *Frame) getLocal(i uint16) jsvalue.Value {
	if cell, ok := f.capturedLocals[i]; ok {
		return cell.Value
	}
	return f.locals[i]
}

func (f *Frame) setLocal(i uint16, v jsvalue.Value) {
	if cell, ok := f.capturedLocals[i]; ok {
		cell.Value = v
		return
	}
	f.locals[i] = v
}

// captureLocal returns the boxed cell for local i, creating it (and
// seeding it with the local's current value) on first capture.
func (f *Frame) captureLocal(i uint16) *UpvalueCell {
	if f.capturedLocals == nil {
		f.capturedLocals = make(map[uint16]*UpvalueCell)
	}
	if cell, ok := f.capturedLocals[i]; ok {
		return cell
	}
	cell := &UpvalueCell{Value: f.locals[i]}
	f.capturedLocals[i] = cell
	return cell
}
