//go:build amd64

package jit

import (
	"math"

	"github.com/octofhir/otter-vm/internal/asm"
	amd64asm "github.com/octofhir/otter-vm/internal/asm/amd64"
	"github.com/octofhir/otter-vm/internal/bytecode"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// nativeSubset is the small, exactly-real-codegen-able opcode set this
// translator emits amd64 machine code for. Every other JIT-eligible
// opcode (property access, calls, iteration, generic arithmetic before
// it has quickened, ...) is left to the interpreter entirely: a
// function using any of them is simply never natively compiled, and
// keeps running interpreted forever. This is a narrower gate than
// spec.md section 4.G's "absent a helper, an immediate bailout" clause
// technically allows (which would let every eligible opcode at least
// get a one-instruction bailout stub compiled in), chosen because
// internal/engine/compiler/impl_amd64.go - the teacher's own
// machine-code emission for its competing engine - was not present in
// the retrieved reference set to ground a wider translator on. See
// DESIGN.md.
func nativeSubset(op bytecode.Opcode) bool {
	switch op {
	case bytecode.OpLoadInt8, bytecode.OpLoadInt32,
		bytecode.OpGetLocal, bytecode.OpSetLocal,
		bytecode.OpAddInt32, bytecode.OpSubInt32,
		bytecode.OpReturn, bytecode.OpReturnUndefined,
		bytecode.OpNop, bytecode.OpJump:
		return true
	default:
		return false
	}
}

// nativeEligible reports whether fn's entire body is in nativeSubset,
// on top of the general bytecode.Function.JITEligible gate.
func nativeEligible(fn *bytecode.Function) bool {
	if !fn.JITEligible() {
		return false
	}
	for _, ins := range fn.Instructions {
		if !nativeSubset(ins.Op) {
			return false
		}
	}
	return true
}

const (
	minInt32 = int64(math.MinInt32)
	maxInt32 = int64(math.MaxInt32)
)

// translate emits fn's body as amd64 machine code, following the
// calling convention native_amd64.s's trampoline establishes: ctx
// arrives in CX. Returns the assembled bytes or an error if fn falls
// outside nativeSubset.
func translate(fn *bytecode.Function) ([]byte, error) {
	if !nativeEligible(fn) {
		return nil, errUnsupportedPlatform // reuse: "can't natively compile this one"
	}

	a, err := amd64asm.NewAssembler(amd64asm.REG_R11)
	if err != nil {
		return nil, err
	}

	const (
		ctxReg    = amd64asm.REG_R15
		regsBase  = amd64asm.REG_R14
		localBase = amd64asm.REG_R13
	)

	// Prologue: stash the incoming ctx pointer (CX, per
	// native_amd64.s) and hoist the registers/locals array base
	// pointers once, since every instruction in nativeSubset touches
	// one or the other.
	a.CompileRegisterToRegister(amd64asm.MOVQ, amd64asm.REG_CX, ctxReg)
	a.CompileMemoryToRegister(amd64asm.MOVQ, ctxReg, int64(offsetOf("RegistersPtr")), regsBase)
	a.CompileMemoryToRegister(amd64asm.MOVQ, ctxReg, int64(offsetOf("LocalsPtr")), localBase)

	pending := map[int][]asm.Node{} // bytecode pc -> jump nodes targeting it
	var bailoutNodes []asm.Node     // jump nodes targeting the shared bailout epilogue

	flushPending := func(pc int) {
		if nodes, ok := pending[pc]; ok && len(nodes) > 0 {
			a.SetJumpTargetOnNext(nodes...)
			delete(pending, pc)
		}
	}

	emitBail := func(pc int, reason BailoutReason) {
		a.CompileConstToRegister(amd64asm.MOVL, int64(pc), amd64asm.REG_AX)
		a.CompileRegisterToMemory(amd64asm.MOVL, amd64asm.REG_AX, ctxReg, int64(offsetOf("BailoutPC")))
		a.CompileConstToRegister(amd64asm.MOVL, int64(reason), amd64asm.REG_AX)
		a.CompileRegisterToMemory(amd64asm.MOVL, amd64asm.REG_AX, ctxReg, int64(offsetOf("BailoutReason")))
		jmp := a.CompileJump(amd64asm.JMP)
		bailoutNodes = append(bailoutNodes, jmp)
	}

	// skipBailIf emits "if skipCond then jump past an inline bailout
	// stub; otherwise fall into it", so every bail site writes its own
	// pc/reason before joining the shared sentinel-return epilogue.
	// The CMPQ setting flags must already have been emitted by the
	// caller.
	skipBailIf := func(skipCond asm.Instruction, pc int, reason BailoutReason) {
		skip := a.CompileJump(skipCond)
		emitBail(pc, reason)
		a.SetJumpTargetOnNext(skip)
	}

	// guardInt32 emits a tag check on the value already loaded into
	// valueReg, bailing to pc's bailout stub on a mismatch. Clobbers
	// scratchA/scratchB.
	guardInt32 := func(pc int, valueReg, scratchA, scratchB asm.Register) {
		a.CompileRegisterToRegister(amd64asm.MOVQ, valueReg, scratchA)
		a.CompileConstToRegister(amd64asm.ANDQ, int64(tagMaskConst), scratchA)
		a.CompileConstToRegister(amd64asm.MOVQ, int64(tagInt32Const), scratchB)
		a.CompileRegisterToRegister(amd64asm.CMPQ, scratchB, scratchA)
		skipBailIf(amd64asm.JEQ, pc, BailoutTypeGuardFailure)
	}

	for i := 0; i < len(fn.Instructions); i++ {
		flushPending(i)
		ins := fn.Instructions[i]

		switch ins.Op {
		case bytecode.OpNop:
			// no emission; a jump landing exactly here resolves to
			// whatever the next instruction emits, which is
			// behaviorally identical since Nop does nothing.

		case bytecode.OpLoadInt8, bytecode.OpLoadInt32:
			bits := jsvalue.Int32(ins.JumpDelta).ToJitBits()
			a.CompileConstToRegister(amd64asm.MOVQ, int64(bits), amd64asm.REG_AX)
			a.CompileRegisterToMemory(amd64asm.MOVQ, amd64asm.REG_AX, regsBase, int64(ins.Dst)*8)

		case bytecode.OpGetLocal:
			a.CompileMemoryToRegister(amd64asm.MOVQ, localBase, int64(ins.Src1)*8, amd64asm.REG_AX)
			a.CompileRegisterToMemory(amd64asm.MOVQ, amd64asm.REG_AX, regsBase, int64(ins.Dst)*8)

		case bytecode.OpSetLocal:
			a.CompileMemoryToRegister(amd64asm.MOVQ, regsBase, int64(ins.Src1)*8, amd64asm.REG_AX)
			a.CompileRegisterToMemory(amd64asm.MOVQ, amd64asm.REG_AX, localBase, int64(ins.Dst)*8)

		case bytecode.OpAddInt32, bytecode.OpSubInt32:
			a.CompileMemoryToRegister(amd64asm.MOVQ, regsBase, int64(ins.Src1)*8, amd64asm.REG_AX)
			a.CompileMemoryToRegister(amd64asm.MOVQ, regsBase, int64(ins.Src2)*8, amd64asm.REG_BX)
			guardInt32(i, amd64asm.REG_AX, amd64asm.REG_DX, amd64asm.REG_CX)
			guardInt32(i, amd64asm.REG_BX, amd64asm.REG_DX, amd64asm.REG_CX)
			a.CompileRegisterToRegister(amd64asm.MOVLQSX, amd64asm.REG_AX, amd64asm.REG_AX)
			a.CompileRegisterToRegister(amd64asm.MOVLQSX, amd64asm.REG_BX, amd64asm.REG_BX)
			if ins.Op == bytecode.OpAddInt32 {
				a.CompileRegisterToRegister(amd64asm.ADDQ, amd64asm.REG_BX, amd64asm.REG_AX)
			} else {
				a.CompileRegisterToRegister(amd64asm.SUBQ, amd64asm.REG_BX, amd64asm.REG_AX)
			}
			// Range-check the 64-bit exact result against int32 bounds;
			// out of range means the real semantics promote to a
			// Double, which this translator does not synthesize -
			// bail and let the slow path produce it.
			a.CompileConstToRegister(amd64asm.MOVQ, minInt32, amd64asm.REG_CX)
			a.CompileRegisterToRegister(amd64asm.CMPQ, amd64asm.REG_CX, amd64asm.REG_AX)
			skipBailIf(amd64asm.JGE, i, BailoutTypeGuardFailure)
			a.CompileConstToRegister(amd64asm.MOVQ, maxInt32, amd64asm.REG_CX)
			a.CompileRegisterToRegister(amd64asm.CMPQ, amd64asm.REG_CX, amd64asm.REG_AX)
			skipBailIf(amd64asm.JLE, i, BailoutTypeGuardFailure)
			// Re-tag as Int32: keep the low 32 bits as payload, OR in
			// the Int32 tag.
			a.CompileConstToRegister(amd64asm.ANDQ, int64(payloadMask32Const), amd64asm.REG_AX)
			a.CompileConstToRegister(amd64asm.MOVQ, int64(tagInt32Const), amd64asm.REG_CX)
			a.CompileRegisterToRegister(amd64asm.ORQ, amd64asm.REG_CX, amd64asm.REG_AX)
			a.CompileRegisterToMemory(amd64asm.MOVQ, amd64asm.REG_AX, regsBase, int64(ins.Dst)*8)

		case bytecode.OpJump:
			target := i + int(ins.JumpDelta)
			jmp := a.CompileJump(amd64asm.JMP)
			pending[target] = append(pending[target], jmp)

		case bytecode.OpReturn:
			a.CompileMemoryToRegister(amd64asm.MOVQ, regsBase, int64(ins.Src1)*8, amd64asm.REG_AX)
			a.CompileStandAlone(amd64asm.RET)

		case bytecode.OpReturnUndefined:
			a.CompileConstToRegister(amd64asm.MOVQ, int64(jsvalue.Undefined.ToJitBits()), amd64asm.REG_AX)
			a.CompileStandAlone(amd64asm.RET)

		default:
			// Unreachable: nativeEligible already rejected any function
			// containing an opcode outside nativeSubset.
			emitBail(i, BailoutUnsupportedOp)
		}
	}

	// Any jump that targeted one-past-the-end (falling off a
	// well-formed function body never happens in practice, since every
	// path ends in an explicit Return/ReturnUndefined, but a malformed
	// one shouldn't execute garbage) lands on the shared bailout
	// epilogue too.
	if nodes, ok := pending[len(fn.Instructions)]; ok {
		bailoutNodes = append(bailoutNodes, nodes...)
	}

	if len(bailoutNodes) > 0 {
		a.SetJumpTargetOnNext(bailoutNodes...)
		a.CompileConstToRegister(amd64asm.MOVQ, int64(BailoutSentinel), amd64asm.REG_AX)
		a.CompileStandAlone(amd64asm.RET)
	}

	return a.Assemble()
}

// tag constants duplicated here (rather than imported unexported from
// jsvalue) because the translator bakes them into machine code as
// immediates; jsvalue.Int32/jsvalue.Undefined above are still used as
// the source of truth for encoding an actual constant's bit pattern.
var (
	tagMaskConst       = uint64(0xFFFF) << 48
	tagInt32Const      = uint64(0xFFF1) << 48
	payloadMask32Const = uint64(0xFFFF_FFFF)
)
