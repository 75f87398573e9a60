package bytecode

// Quicken rewrites a generic arithmetic opcode to its type-specialized
// form in place once feedback proves one type dominates (spec.md
// section 4.D "Quickening"). It mutates f.Instructions[pc] directly, as
// the teacher's own in-place instruction rewriting does for its
// compiler's value-location specialization.
//
// DESIGN.md's resolution of the memoization open question: once a site
// has observed more than one type, Quicken de-quickens it back to the
// generic opcode (never widens to a multi-type fast path). The slot's
// type flags are not reset, so the site stays generic from then on.
func Quicken(f *Function, pc int) {
	if pc < 0 || pc >= len(f.Instructions) {
		return
	}
	ins := &f.Instructions[pc]
	if !ins.Op.IsArithmeticQuickenable() || ins.ICIndex == NoFeedback {
		return
	}
	slot := &f.Feedback[ins.ICIndex]
	dominant, ok := slot.Dominant()
	if !ok {
		dequicken(ins)
		return
	}

	switch ins.Op {
	case OpAdd:
		switch dominant {
		case TypeInt32:
			ins.Op = OpAddInt32
		case TypeNumber:
			ins.Op = OpAddNumber
		}
	case OpSub:
		switch dominant {
		case TypeInt32:
			ins.Op = OpSubInt32
		case TypeNumber:
			ins.Op = OpSubNumber
		}
	case OpMul:
		switch dominant {
		case TypeInt32:
			ins.Op = OpMulInt32
		case TypeNumber:
			ins.Op = OpMulNumber
		}
	}
}

// Dequicken reverts an in-place-quickened opcode back to its generic
// form; called when a quickened site observes a type drift it can no
// longer serve from the fast path (spec.md: "Quickened ops ... may
// de-quicken if observed types drift").
func Dequicken(f *Function, pc int) {
	if pc < 0 || pc >= len(f.Instructions) {
		return
	}
	dequicken(&f.Instructions[pc])
}

func dequicken(ins *Instruction) {
	switch ins.Op {
	case OpAddInt32, OpAddNumber:
		ins.Op = OpAdd
	case OpSubInt32, OpSubNumber:
		ins.Op = OpSub
	case OpMulInt32, OpMulNumber:
		ins.Op = OpMul
	}
}
